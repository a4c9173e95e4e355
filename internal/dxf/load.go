package dxf

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
)

var ErrUnsupportedSource = errors.New("unsupported source")

// Load reads a drawing from a local path or an http(s) URL. Gzip-compressed
// bodies are detected by content, whatever the transport advertised.
func Load(ctx context.Context, src string) (*Document, []Issue, error) {
	rc, err := open(ctx, src)
	if err != nil {
		return nil, nil, err
	}
	defer rc.Close()

	doc, issues, err := Decode(rc)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", src, err)
	}
	return doc, issues, nil
}

// IsURL reports whether src is an http(s) URL rather than a local path.
func IsURL(src string) bool {
	return strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://")
}

func open(ctx context.Context, src string) (io.ReadCloser, error) {
	switch {
	case IsURL(src):
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
		if err != nil {
			return nil, fmt.Errorf("dxf: %w", err)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("dxf: fetch %s: %w", src, err)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("dxf: fetch %s: %s", src, resp.Status)
		}
		return resp.Body, nil
	case strings.Contains(src, "://"):
		return nil, fmt.Errorf("dxf: %w: %s", ErrUnsupportedSource, src)
	}

	f, err := os.Open(src)
	if err != nil {
		return nil, fmt.Errorf("dxf: read %s: %w", src, err)
	}
	return f, nil
}
