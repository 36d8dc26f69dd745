package document

import "github.com/LukasParke/treeviewer/protocol"

// ApplyChanges applies a set of LSP content change events to document text.
// Supports both full and incremental sync.
func ApplyChanges(text string, changes []protocol.TextDocumentContentChangeEvent) string {
	for _, change := range changes {
		if change.Range == nil {
			text = change.Text
			continue
		}
		start := OffsetAt(text, change.Range.Start)
		end := OffsetAt(text, change.Range.End)
		if start < 0 {
			start = 0
		}
		if end > len(text) {
			end = len(text)
		}
		if start > end {
			start = end
		}
		text = text[:start] + change.Text + text[end:]
	}
	return text
}
