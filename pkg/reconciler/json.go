package reconciler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tailscale/hujson"
)

// parseJSON parses JSON or JSONC bytes into a map. hasComments is true
// if comments or trailing commas were found; they are lost on write.
func parseJSON(raw []byte) (map[string]any, bool, error) {
	ast, err := hujson.Parse(raw)
	if err != nil {
		return nil, false, fmt.Errorf("parsing JSON: %w", err)
	}

	hasComments := bytes.Contains(raw, []byte("//")) || bytes.Contains(raw, []byte("/*"))

	// Standardize strips comments and trailing commas.
	ast.Standardize()
	standardized := ast.Pack()

	var data map[string]any
	if err := json.Unmarshal(standardized, &data); err != nil {
		return nil, false, fmt.Errorf("unmarshaling JSON: %w", err)
	}

	return data, hasComments, nil
}

// writeJSONFile atomically writes a map as pretty-printed JSON: the
// content goes to a temp file in the same directory, then a rename over
// the target. A concurrently running Claude Desktop can never observe a
// partially written file.
func writeJSONFile(path string, data map[string]any) error {
	out, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	out = append(out, '\n')

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, out, 0644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}

	return nil
}

// fileExists reports whether path exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
