// ABOUTME: Loader for workflow input files supplied on the command line
// ABOUTME: Reads YAML or JSON input maps and merges --input overrides

package inputs

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Loader reads workflow input maps from files
type Loader struct {
	fs afero.Fs
}

// New creates an input loader
func New(fs afero.Fs) *Loader {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Loader{fs: fs}
}

// LoadFile reads an input map from a YAML or JSON file
func (l *Loader) LoadFile(filename string) (map[string]any, error) {
	data, err := afero.ReadFile(l.fs, filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read inputs file: %w", err)
	}

	inputs := make(map[string]any)
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		if err := json.Unmarshal(trimmed, &inputs); err != nil {
			return nil, fmt.Errorf("failed to parse inputs file: %w", err)
		}
		return inputs, nil
	}

	if err := yaml.Unmarshal(data, &inputs); err != nil {
		return nil, fmt.Errorf("failed to parse inputs file: %w", err)
	}
	return inputs, nil
}

// ApplyOverrides merges key=value pairs over an input map. Values are
// kept as strings; tasks coerce their own inputs.
func ApplyOverrides(inputs map[string]any, overrides []string) (map[string]any, error) {
	if inputs == nil {
		inputs = make(map[string]any)
	}
	for _, override := range overrides {
		key, value, found := strings.Cut(override, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("invalid input override %q, expected key=value", override)
		}
		inputs[key] = value
	}
	return inputs, nil
}
