// Package render defines the content-node contract produced by the
// document renderer. The real renderer lives outside this service; it
// is consumed as a pure function from raw text to an ordered node list.
package render

// NodeKind identifies the semantic type of a rendered content unit.
type NodeKind string

const (
	Heading1   NodeKind = "heading1"
	Heading2   NodeKind = "heading2"
	Heading3   NodeKind = "heading3"
	Heading4   NodeKind = "heading4"
	Heading5   NodeKind = "heading5"
	Heading6   NodeKind = "heading6"
	Paragraph  NodeKind = "paragraph"
	ListItem   NodeKind = "list_item"
	Blockquote NodeKind = "blockquote"
	Codeblock  NodeKind = "codeblock"
)

// Eligible reports whether nodes of this kind can carry an anchor.
func (k NodeKind) Eligible() bool {
	switch k {
	case Heading1, Heading2, Heading3, Heading4, Heading5, Heading6,
		Paragraph, ListItem, Blockquote, Codeblock:
		return true
	}
	return false
}

// ContentNode is one rendered content unit. Nodes are ephemeral and
// recomputed on every render; they are never persisted.
type ContentNode struct {
	Kind          NodeKind `json:"kind"`
	FlattenedText string   `json:"flattened_text"`
	PositionIndex int      `json:"position_index"`
}

// Renderer turns raw document text into an ordered node sequence.
// Implementations must be pure: same input, same output, no side effects.
type Renderer interface {
	Render(raw string) []ContentNode
}
