// ABOUTME: Built-in tool catalogue available to agent and tool nodes
// ABOUTME: Tool metadata for discovery; dispatch goes through the task runner

package graph

// ToolParameter describes one parameter of a built-in tool
type ToolParameter struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
	Default     any    `json:"default,omitempty"`
}

// ToolDefinition describes a built-in tool for discovery
type ToolDefinition struct {
	Name        string                   `json:"name"`
	Description string                   `json:"description"`
	Parameters  map[string]ToolParameter `json:"parameters"`
}

// builtinTools are the tools graph nodes may name. Each corresponds to
// a task type in the runner's catalogue.
var builtinTools = []ToolDefinition{
	{
		Name:        "search_documents",
		Description: "Search documents using semantic search",
		Parameters: map[string]ToolParameter{
			"query":      {Type: "string", Description: "Search query"},
			"project_id": {Type: "string", Description: "Project ID"},
			"limit":      {Type: "integer", Description: "Max results", Default: 5},
		},
	},
	{
		Name:        "extract_pdf",
		Description: "Extract text from PDF",
		Parameters: map[string]ToolParameter{
			"pdf_data": {Type: "string", Description: "Base64 PDF data"},
		},
	},
	{
		Name:        "chunk_text",
		Description: "Chunk text into segments",
		Parameters: map[string]ToolParameter{
			"text":          {Type: "string", Description: "Text to chunk"},
			"chunk_size":    {Type: "integer", Description: "Chunk size", Default: 1000},
			"chunk_overlap": {Type: "integer", Description: "Overlap", Default: 200},
		},
	},
	{
		Name:        "web_search",
		Description: "Search the web",
		Parameters: map[string]ToolParameter{
			"query":       {Type: "string", Description: "Search query"},
			"num_results": {Type: "integer", Description: "Number of results", Default: 5},
		},
	},
	{
		Name:        "http_request",
		Description: "Make HTTP request",
		Parameters: map[string]ToolParameter{
			"url":     {Type: "string", Description: "URL to request"},
			"method":  {Type: "string", Description: "HTTP method", Default: "GET"},
			"headers": {Type: "object", Description: "HTTP headers"},
			"body":    {Type: "object", Description: "Request body"},
		},
	},
}

// BuiltinTools lists the built-in tool definitions
func BuiltinTools() []ToolDefinition {
	tools := make([]ToolDefinition, len(builtinTools))
	copy(tools, builtinTools)
	return tools
}
