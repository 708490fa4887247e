// ABOUTME: Tests for the workflow inputs loader
// ABOUTME: Covers YAML and JSON files plus key=value overrides

package inputs

import (
	"testing"

	"github.com/spf13/afero"
)

func TestLoadFile_YAML(t *testing.T) {
	fs := afero.NewMemMapFs()
	_ = afero.WriteFile(fs, "/inputs.yaml", []byte("pdf_data: abc\nchunk_size: 500\n"), 0644)

	inputs, err := New(fs).LoadFile("/inputs.yaml")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if inputs["pdf_data"] != "abc" || inputs["chunk_size"] != 500 {
		t.Errorf("Unexpected inputs: %v", inputs)
	}
}

func TestLoadFile_JSON(t *testing.T) {
	fs := afero.NewMemMapFs()
	_ = afero.WriteFile(fs, "/inputs.json", []byte(`{"title": "Doc", "pages": 3}`), 0644)

	inputs, err := New(fs).LoadFile("/inputs.json")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if inputs["title"] != "Doc" {
		t.Errorf("Unexpected inputs: %v", inputs)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	if _, err := New(afero.NewMemMapFs()).LoadFile("/nope.yaml"); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestApplyOverrides(t *testing.T) {
	inputs, err := ApplyOverrides(map[string]any{"kept": 1}, []string{"lang=es", "mode=fast"})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if inputs["lang"] != "es" || inputs["mode"] != "fast" || inputs["kept"] != 1 {
		t.Errorf("Unexpected merged inputs: %v", inputs)
	}

	if _, err := ApplyOverrides(nil, []string{"invalid"}); err == nil {
		t.Error("Expected error for malformed override")
	}
}
