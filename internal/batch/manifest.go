package batch

import (
	"encoding/json"
	"os"
)

// ManifestEntry represents one drawing in the output manifest.
type ManifestEntry struct {
	Name    string   `json:"name"`
	Source  string   `json:"source"`
	Outputs []string `json:"outputs"`
	Built   int      `json:"built"`
	Failed  int      `json:"failed"`
	Skipped int      `json:"skipped"`
	Error   string   `json:"error,omitempty"`
}

// WriteManifest writes manifest.json for results.
func WriteManifest(path string, results []Result) error {
	entries := make([]ManifestEntry, len(results))
	for i, r := range results {
		outputs := r.Outputs
		if outputs == nil {
			outputs = []string{}
		}
		entries[i] = ManifestEntry{
			Name:    r.Name,
			Source:  r.Source,
			Outputs: outputs,
			Built:   r.Summary.Built,
			Failed:  r.Summary.Failed,
			Skipped: r.Summary.Skipped,
			Error:   r.Error,
		}
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
