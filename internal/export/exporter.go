// Package export renders a stored conversation into formats other tools can
// read.
package export

import (
	"sort"

	"github.com/askai/askai/internal/conversation"
	"github.com/askai/askai/internal/ledger"
)

// ExportData is passed to every Exporter.
type ExportData struct {
	Conversation conversation.Summary
	Turns        []conversation.Turn
	// ShowModeratedOutput includes assistant text that output moderation
	// flagged. When false that text is left out.
	ShowModeratedOutput bool
}

// Cost totals every recorded call in the conversation.
func (d ExportData) Cost() ledger.Cost {
	return ledger.Sum(d.Turns)
}

// Exporter renders ExportData to a string in a specific format.
type Exporter interface {
	Export(data ExportData) (string, error)
}

// registry maps format names to Exporter implementations.
var registry = map[string]Exporter{
	"markdown": &MarkdownExporter{},
	"json":     &JSONExporter{},
	"csv":      &CSVExporter{},
}

// Get returns the Exporter registered under name, and whether it was found.
func Get(name string) (Exporter, bool) {
	e, ok := registry[name]
	return e, ok
}

// ValidFormats returns the supported export format names, sorted.
func ValidFormats() []string {
	formats := make([]string, 0, len(registry))
	for k := range registry {
		formats = append(formats, k)
	}
	sort.Strings(formats)
	return formats
}

// assistantText is the reply an export may show for t.
func assistantText(t conversation.Turn, showModerated bool) string {
	if t.OutputModerated && !showModerated {
		return ""
	}
	return t.AssistantText
}
