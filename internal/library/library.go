// ABOUTME: Library of pre-built workflow definitions shipped with the engine
// ABOUTME: Fixed document pipelines addressable by workflow id

package library

import (
	"sort"

	"github.com/loferris/artificer/pkg/types"
)

// Entry is the listing form of a pre-built workflow
type Entry struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Inputs      []string `json:"inputs"`
}

// Library holds the pre-built workflow definitions
type Library struct {
	workflows map[string]*types.WorkflowDefinition
	inputs    map[string][]string
}

// New creates the library with the shipped pipelines
func New() *Library {
	l := &Library{
		workflows: make(map[string]*types.WorkflowDefinition),
		inputs:    make(map[string][]string),
	}

	l.add(pdfExtractAndChunk(), []string{"pdf_data", "document_id", "project_id", "chunk_size", "chunk_overlap"})
	l.add(pdfToHTML(), []string{"pdf_data", "include_styles", "title"})
	l.add(multiFormatExport(), []string{"content", "title"})

	return l
}

func (l *Library) add(def *types.WorkflowDefinition, inputs []string) {
	l.workflows[def.Name] = def
	l.inputs[def.Name] = inputs
}

// Get returns a pre-built workflow definition by id
func (l *Library) Get(workflowID string) (*types.WorkflowDefinition, error) {
	def, exists := l.workflows[workflowID]
	if !exists {
		return nil, types.NewNotFoundError("workflow", workflowID)
	}
	return def, nil
}

// Has reports whether a pre-built workflow exists
func (l *Library) Has(workflowID string) bool {
	_, exists := l.workflows[workflowID]
	return exists
}

// List returns entries for all pre-built workflows, sorted by id
func (l *Library) List() []Entry {
	entries := make([]Entry, 0, len(l.workflows))
	for id, def := range l.workflows {
		entries = append(entries, Entry{
			ID:          id,
			Name:        def.Name,
			Description: def.Description,
			Inputs:      l.inputs[id],
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	return entries
}

func pdfExtractAndChunk() *types.WorkflowDefinition {
	return &types.WorkflowDefinition{
		Name:        "pdf-extract-and-chunk",
		Description: "Extract PDF and chunk into segments",
		Version:     "1.0.0",
		Tasks: []types.TaskDefinition{
			{
				ID:     "extract",
				Type:   "extract_pdf_text",
				Inputs: map[string]any{"pdf_data": "{{workflow.input.pdf_data}}"},
			},
			{
				ID:        "chunk",
				Type:      "chunk_document",
				DependsOn: []string{"extract"},
				Inputs: map[string]any{
					"document_id":   "{{workflow.input.document_id}}",
					"project_id":    "{{workflow.input.project_id}}",
					"content":       "{{extract.text}}",
					"chunk_size":    "{{workflow.input.chunk_size}}",
					"chunk_overlap": "{{workflow.input.chunk_overlap}}",
				},
			},
		},
		Output: map[string]string{
			"chunks":       "{{chunk.chunks}}",
			"total_chunks": "{{chunk.total_chunks}}",
			"metadata":     "{{extract.metadata}}",
		},
		Options: types.WorkflowOptions{Parallel: false, TimeoutMS: 300000},
	}
}

func pdfToHTML() *types.WorkflowDefinition {
	return &types.WorkflowDefinition{
		Name:        "pdf-to-html",
		Description: "Convert PDF to HTML with token counting",
		Version:     "1.0.0",
		Tasks: []types.TaskDefinition{
			{
				ID:     "extract",
				Type:   "extract_pdf_text",
				Inputs: map[string]any{"pdf_data": "{{workflow.input.pdf_data}}"},
			},
			{
				ID:        "count",
				Type:      "count_tokens",
				DependsOn: []string{"extract"},
				Inputs:    map[string]any{"content": "{{extract.text}}"},
			},
			{
				ID:        "import",
				Type:      "import_markdown",
				DependsOn: []string{"extract"},
				Inputs:    map[string]any{"content": "{{extract.text}}"},
			},
			{
				ID:        "export",
				Type:      "export_html",
				DependsOn: []string{"import"},
				Inputs: map[string]any{
					"document":       "{{import.document}}",
					"include_styles": "{{workflow.input.include_styles}}",
					"title":          "{{workflow.input.title}}",
				},
			},
		},
		Output: map[string]string{
			"html":        "{{export.html}}",
			"token_count": "{{count.token_count}}",
			"pages":       "{{extract.metadata.pages}}",
		},
		Options: types.WorkflowOptions{Parallel: true, TimeoutMS: 600000},
	}
}

func multiFormatExport() *types.WorkflowDefinition {
	return &types.WorkflowDefinition{
		Name:        "multi-format-export",
		Description: "Export document to multiple formats in parallel",
		Version:     "1.0.0",
		Tasks: []types.TaskDefinition{
			{
				ID:     "import",
				Type:   "import_markdown",
				Inputs: map[string]any{"content": "{{workflow.input.content}}"},
			},
			{
				ID:        "export_html",
				Type:      "export_html",
				DependsOn: []string{"import"},
				Inputs: map[string]any{
					"document": "{{import.document}}",
					"title":    "{{workflow.input.title}}",
				},
			},
			{
				ID:        "export_md",
				Type:      "export_markdown",
				DependsOn: []string{"import"},
				Inputs:    map[string]any{"document": "{{import.document}}"},
			},
		},
		Output: map[string]string{
			"html":     "{{export_html.html}}",
			"markdown": "{{export_md.markdown}}",
		},
		Options: types.WorkflowOptions{Parallel: true, TimeoutMS: 300000},
	}
}
