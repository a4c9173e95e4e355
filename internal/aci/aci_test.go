package aci

import (
	"encoding/json"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveStrictRange(t *testing.T) {
	for _, idx := range []int{0, 256, -5, -1, 1000} {
		_, err := Resolve(idx, Strict)
		assert.ErrorIs(t, err, ErrInvalidColorIndex, "index %d", idx)
	}
	for _, idx := range []int{1, 7, 255} {
		_, err := Resolve(idx, Strict)
		assert.NoError(t, err, "index %d", idx)
	}
}

func TestResolveSignTolerant(t *testing.T) {
	neg, err := Resolve(-5, SignTolerant)
	require.NoError(t, err)
	pos, err := Resolve(5, Strict)
	require.NoError(t, err)
	assert.Equal(t, pos, neg)

	_, err = Resolve(0, SignTolerant)
	assert.ErrorIs(t, err, ErrInvalidColorIndex)
	_, err = Resolve(-256, SignTolerant)
	assert.ErrorIs(t, err, ErrInvalidColorIndex)
	_, err = Resolve(-255, SignTolerant)
	assert.NoError(t, err)
}

func TestKnownColors(t *testing.T) {
	tests := []struct {
		index int
		hex   string
	}{
		{1, "#ff0000"},
		{2, "#ffff00"},
		{3, "#00ff00"},
		{4, "#00ffff"},
		{5, "#0000ff"},
		{6, "#ff00ff"},
		{7, "#ffffff"},
		{8, "#808080"},
		{10, "#ff0000"},
		{11, "#ff7f7f"},
		{250, "#333333"},
		{255, "#ffffff"},
	}
	for _, tt := range tests {
		c, err := Resolve(tt.index, Strict)
		require.NoError(t, err)
		assert.Equal(t, tt.hex, c.Hex(), "index %d", tt.index)
	}
}

func TestLookupNeverReadsZero(t *testing.T) {
	_, ok := Lookup(0)
	assert.False(t, ok)
	_, ok = Lookup(256)
	assert.False(t, ok)
	for i := MinIndex; i <= MaxIndex; i++ {
		_, ok := Lookup(i)
		assert.True(t, ok, "index %d", i)
	}
}

func TestResolveValueTypes(t *testing.T) {
	c, err := ResolveValue(float64(3), Strict)
	require.NoError(t, err)
	assert.Equal(t, "#00ff00", c.Hex())

	c, err = ResolveValue(json.Number("-3"), SignTolerant)
	require.NoError(t, err)
	assert.Equal(t, "#00ff00", c.Hex())

	for _, v := range []any{"3", true, nil, 1.5, math.NaN(), math.Inf(1), json.Number("x")} {
		_, err := ResolveValue(v, Strict)
		assert.ErrorIs(t, err, ErrInvalidColorIndexType, "value %v", v)
	}

	_, err = ResolveValue(float64(1e12), SignTolerant)
	assert.ErrorIs(t, err, ErrInvalidColorIndex)
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("strict")
	require.NoError(t, err)
	assert.Equal(t, Strict, m)
	m, err = ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, SignTolerant, m)
	_, err = ParseMode("loose")
	assert.Error(t, err)
}

func TestConcurrentLookup(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := Resolve(i%255+1, Strict)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()
}

func TestFloat4(t *testing.T) {
	assert.Equal(t, [4]float32{1, 0, 0, 1}, Color{R: 255}.Float4())
}
