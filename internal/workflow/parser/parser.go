// ABOUTME: YAML and JSON parser for workflow and graph definition files
// ABOUTME: Handles decoding, defaulting, and validation of definition documents

package parser

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/loferris/artificer/internal/workflow/validator"
	"github.com/loferris/artificer/pkg/types"
)

// Parser decodes definition documents from an afero filesystem
type Parser struct {
	fs afero.Fs
}

// New creates a new definition parser
func New(fs afero.Fs) *Parser {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Parser{fs: fs}
}

// ParseWorkflow parses and validates a workflow definition from bytes.
// JSON documents are detected by their leading brace; everything else
// is decoded as YAML with unknown fields rejected.
func (p *Parser) ParseWorkflow(data []byte) (*types.WorkflowDefinition, error) {
	var def types.WorkflowDefinition
	if err := decode(data, &def); err != nil {
		return nil, types.NewValidationError("", "failed to parse workflow definition: "+err.Error())
	}
	if err := validator.ValidateWorkflow(&def); err != nil {
		return nil, err
	}
	return &def, nil
}

// ParseWorkflowFile parses a workflow definition from a file
func (p *Parser) ParseWorkflowFile(filename string) (*types.WorkflowDefinition, error) {
	data, err := p.read(filename)
	if err != nil {
		return nil, err
	}
	return p.ParseWorkflow(data)
}

// ParseGraph parses and validates a graph definition from bytes
func (p *Parser) ParseGraph(data []byte) (*types.GraphDefinition, error) {
	var def types.GraphDefinition
	if err := decode(data, &def); err != nil {
		return nil, types.NewValidationError("", "failed to parse graph definition: "+err.Error())
	}
	if err := validator.ValidateGraph(&def); err != nil {
		return nil, err
	}
	return &def, nil
}

// ParseGraphFile parses a graph definition from a file
func (p *Parser) ParseGraphFile(filename string) (*types.GraphDefinition, error) {
	data, err := p.read(filename)
	if err != nil {
		return nil, err
	}
	return p.ParseGraph(data)
}

func (p *Parser) read(filename string) ([]byte, error) {
	exists, err := afero.Exists(p.fs, filename)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, types.NewNotFoundError("file", filename)
	}
	return afero.ReadFile(p.fs, filename)
}

func decode(data []byte, out any) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		return json.Unmarshal(trimmed, out)
	}

	decoder := yaml.NewDecoder(strings.NewReader(string(data)))
	decoder.KnownFields(true)
	return decoder.Decode(out)
}
