// ABOUTME: Tests for definition file parsing
// ABOUTME: Covers YAML and JSON forms, strict decoding, and validation wiring

package parser

import (
	"strings"
	"testing"

	"github.com/spf13/afero"
)

const workflowYAML = `
name: pdf-extract-and-chunk
version: 1.0.0
tasks:
  - id: extract
    type: extract_pdf_text
    inputs:
      pdf_data: "{{workflow.input.pdf_data}}"
  - id: chunk
    type: chunk_document
    depends_on: [extract]
    inputs:
      content: "{{extract.text}}"
      chunk_size: 1000
output:
  chunks: "{{chunk.chunks}}"
options:
  parallel: false
  timeout_ms: 300000
`

const graphJSON = `{
  "name": "approval-flow",
  "state_schema": {"fields": {"approved": {"type": "boolean", "default": false}}},
  "nodes": [
    {"id": "analyze", "type": "tool", "function_name": "chunk_text"},
    {"id": "route", "type": "conditional", "condition_code": "{{ if .approved }}finalize{{ else }}END{{ end }}"},
    {"id": "finalize", "type": "passthrough"}
  ],
  "edges": [
    {"from_node": "analyze", "to_node": "route"},
    {"from_node": "route", "to_node": {"finalize": "finalize", "END": "END"}},
    {"from_node": "finalize", "to_node": "END"}
  ],
  "entry_point": "analyze",
  "finish_points": ["finalize"]
}`

func TestParseWorkflow_YAML(t *testing.T) {
	p := New(afero.NewMemMapFs())

	def, err := p.ParseWorkflow([]byte(workflowYAML))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if def.Name != "pdf-extract-and-chunk" {
		t.Errorf("Unexpected name: %s", def.Name)
	}
	if len(def.Tasks) != 2 {
		t.Fatalf("Expected 2 tasks, got %d", len(def.Tasks))
	}
	if def.Tasks[1].DependsOn[0] != "extract" {
		t.Errorf("Unexpected depends_on: %v", def.Tasks[1].DependsOn)
	}
	if def.Options.TimeoutMS != 300000 {
		t.Errorf("Unexpected timeout: %d", def.Options.TimeoutMS)
	}
}

func TestParseWorkflow_UnknownFieldRejected(t *testing.T) {
	p := New(afero.NewMemMapFs())

	bad := strings.Replace(workflowYAML, "version:", "verison:", 1)
	if _, err := p.ParseWorkflow([]byte(bad)); err == nil {
		t.Error("Expected strict decoding to reject unknown field")
	}
}

func TestParseGraph_JSON(t *testing.T) {
	p := New(afero.NewMemMapFs())

	def, err := p.ParseGraph([]byte(graphJSON))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if def.EntryPoint != "analyze" {
		t.Errorf("Unexpected entry point: %s", def.EntryPoint)
	}

	edge := def.Edges[1]
	if !edge.ToNode.IsBranching() {
		t.Fatal("Expected branching edge target")
	}
	if edge.ToNode.Branches["finalize"] != "finalize" {
		t.Errorf("Unexpected branches: %v", edge.ToNode.Branches)
	}
}

func TestParseWorkflowFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/flows/chunk.yaml", []byte(workflowYAML), 0644); err != nil {
		t.Fatal(err)
	}

	p := New(fs)
	def, err := p.ParseWorkflowFile("/flows/chunk.yaml")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if def.Name != "pdf-extract-and-chunk" {
		t.Errorf("Unexpected name: %s", def.Name)
	}

	if _, err := p.ParseWorkflowFile("/flows/missing.yaml"); err == nil {
		t.Error("Expected error for missing file")
	}
}
