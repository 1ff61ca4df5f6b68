package report

import (
	"fmt"
	"io"

	"github.com/goccy/go-json"
)

// WriteJSON encodes v as indented JSON
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("unable to encode json, %w", err)
	}
	return nil
}

// WriteJSONFile writes v as indented JSON to path
func WriteJSONFile(path string, v any) error {
	return WriteFile(path, func(w io.Writer) error {
		return WriteJSON(w, v)
	})
}
