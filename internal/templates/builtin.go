// ABOUTME: Built-in workflow templates for common document pipelines
// ABOUTME: Pre-built patterns users instantiate with their own parameters

package templates

import (
	"github.com/loferris/artificer/pkg/types"
)

func builtinTemplates() []*Template {
	return []*Template{
		ragIngestion(),
		pdfToHTML(),
		multiFormatExport(),
		translationConsensus(),
	}
}

// ragIngestion processes a PDF into chunks sized for retrieval
func ragIngestion() *Template {
	return &Template{
		ID:          "rag-ingestion",
		Name:        "RAG Ingestion Pipeline",
		Description: "Process a PDF into retrieval-ready chunks with optional OCR",
		Category:    "ingestion",
		Version:     "1.0.0",
		Parameters: map[string]Parameter{
			"chunk_size":    {Type: "integer", Default: 1000, Description: "Size of text chunks"},
			"chunk_overlap": {Type: "integer", Default: 200, Description: "Overlap between chunks"},
			"force_ocr":     {Type: "boolean", Default: false, Description: "Always run OCR"},
		},
		Render: func(params map[string]any) *types.WorkflowDefinition {
			return &types.WorkflowDefinition{
				Name:        "rag-ingestion",
				Description: "Extract PDF and chunk into segments for retrieval",
				Version:     "1.0.0",
				Tasks: []types.TaskDefinition{
					{
						ID:   "process",
						Type: "process_pdf",
						Inputs: map[string]any{
							"pdf_data":  "{{workflow.input.pdf_data}}",
							"force_ocr": params["force_ocr"],
						},
					},
					{
						ID:        "chunk",
						Type:      "chunk_document",
						DependsOn: []string{"process"},
						Inputs: map[string]any{
							"document_id":   "{{workflow.input.document_id}}",
							"project_id":    "{{workflow.input.project_id}}",
							"content":       "{{process.text}}",
							"chunk_size":    params["chunk_size"],
							"chunk_overlap": params["chunk_overlap"],
						},
					},
				},
				Output: map[string]string{
					"chunks":       "{{chunk.chunks}}",
					"total_chunks": "{{chunk.total_chunks}}",
					"metadata":     "{{process.metadata}}",
				},
				Options: types.WorkflowOptions{Parallel: false, TimeoutMS: 300000},
			}
		},
	}
}

// pdfToHTML converts a PDF document to styled HTML
func pdfToHTML() *Template {
	return &Template{
		ID:          "pdf-to-html",
		Name:        "PDF to HTML Conversion",
		Description: "Extract PDF text and export it as an HTML document",
		Category:    "conversion",
		Version:     "1.0.0",
		Parameters: map[string]Parameter{
			"include_styles": {Type: "boolean", Default: true, Description: "Include CSS styles"},
			"title":          {Type: "string", Default: "", Description: "Document title"},
		},
		Render: func(params map[string]any) *types.WorkflowDefinition {
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
							"include_styles": params["include_styles"],
							"title":          params["title"],
						},
					},
				},
				Output: map[string]string{
					"html":        "{{export.html}}",
					"token_count": "{{count.token_count}}",
				},
				Options: types.WorkflowOptions{Parallel: true, TimeoutMS: 600000},
			}
		},
	}
}

// multiFormatExport exports one document to several formats in parallel
func multiFormatExport() *Template {
	return &Template{
		ID:          "multi-format-export",
		Name:        "Multi-Format Export",
		Description: "Export a document to HTML and Markdown in parallel",
		Category:    "export",
		Version:     "1.0.0",
		Parameters: map[string]Parameter{
			"include_metadata": {Type: "boolean", Default: false, Description: "Include document metadata"},
		},
		Render: func(params map[string]any) *types.WorkflowDefinition {
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
							"document":         "{{import.document}}",
							"include_metadata": params["include_metadata"],
						},
					},
					{
						ID:        "export_md",
						Type:      "export_markdown",
						DependsOn: []string{"import"},
						Inputs: map[string]any{
							"document":         "{{import.document}}",
							"include_metadata": params["include_metadata"],
						},
					},
				},
				Output: map[string]string{
					"html":     "{{export_html.html}}",
					"markdown": "{{export_md.markdown}}",
				},
				Options: types.WorkflowOptions{Parallel: true, TimeoutMS: 300000},
			}
		},
	}
}

// translationConsensus fans text out to refinement specialists and
// selects the best candidate. target_language has no default and must
// be supplied.
func translationConsensus() *Template {
	return &Template{
		ID:          "translation-consensus",
		Name:        "Translation with Specialist Consensus",
		Description: "Translate text via parallel specialists and consensus selection",
		Category:    "translation",
		Version:     "1.0.0",
		Parameters: map[string]Parameter{
			"target_language": {Type: "string", Description: "Target language code"},
			"source_language": {Type: "string", Default: "auto", Description: "Source language code"},
			"min_specialists": {Type: "integer", Default: 3, Description: "Minimum successful specialists"},
		},
		Render: func(params map[string]any) *types.WorkflowDefinition {
			return &types.WorkflowDefinition{
				Name:        "translation-consensus",
				Description: "Parallel translation by specialists with consensus selection",
				Version:     "1.0.0",
				Tasks: []types.TaskDefinition{
					{
						ID:   "cultural",
						Type: "webhook_call",
						Inputs: map[string]any{
							"url": "{{workflow.input.refine_url}}",
							"body": map[string]any{
								"specialist":      "cultural",
								"text":            "{{workflow.input.text}}",
								"target_language": params["target_language"],
								"source_language": params["source_language"],
							},
						},
					},
					{
						ID:   "prose",
						Type: "webhook_call",
						Inputs: map[string]any{
							"url": "{{workflow.input.refine_url}}",
							"body": map[string]any{
								"specialist":      "prose",
								"text":            "{{workflow.input.text}}",
								"target_language": params["target_language"],
								"source_language": params["source_language"],
							},
						},
					},
					{
						ID:   "fluency",
						Type: "webhook_call",
						Inputs: map[string]any{
							"url": "{{workflow.input.refine_url}}",
							"body": map[string]any{
								"specialist":      "fluency",
								"text":            "{{workflow.input.text}}",
								"target_language": params["target_language"],
								"source_language": params["source_language"],
							},
						},
					},
					{
						ID:        "select",
						Type:      "webhook_call",
						DependsOn: []string{"cultural", "prose", "fluency"},
						Inputs: map[string]any{
							"url": "{{workflow.input.select_url}}",
							"body": map[string]any{
								"strategy": "ensemble",
								"candidates": []any{
									"{{cultural.response}}",
									"{{prose.response}}",
									"{{fluency.response}}",
								},
								"min_successful": params["min_specialists"],
							},
						},
					},
				},
				Output: map[string]string{
					"translation": "{{select.response}}",
				},
				Options: types.WorkflowOptions{Parallel: true, TimeoutMS: 600000, RetryFailedTasks: true, MaxRetries: 2},
			}
		},
	}
}
