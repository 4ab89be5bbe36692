package tool

import "github.com/sagelabs/sage/internal/document"

// DefaultTools builds the full sandbox tool set.
func DefaultTools(store *document.Store, lifecycle Lifecycle) []Tool {
	return []Tool{
		NewPersistDocumentTool(store),
		NewCompleteSessionTool(lifecycle),
		NewEnterArcTool(lifecycle),
		NewRequestPulseUITool(),
		NewRequestOptionUITool(),
	}
}
