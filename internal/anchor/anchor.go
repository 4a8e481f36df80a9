// Package anchor assigns stable identifiers to the content units of a
// rendered document. Anchors are derived values: they are recomputed on
// every render and never persisted, so the same content at the same
// relative position always carries the same identifier.
package anchor

import (
	"strconv"

	"marginalia/internal/render"
	"marginalia/pkg/slug"
)

// General is the fixed root anchor for comments on the document as a
// whole rather than on a specific passage. Orphaned comments are
// regrouped under it as well.
const General = "general"

// Anchor attaches an identifier to one eligible content unit.
type Anchor struct {
	ID   string          `json:"id"`
	Kind render.NodeKind `json:"node_kind"`
}

// Assign walks the node sequence in document order and produces one
// anchor per eligible node. The first node slugging to a given base
// gets the bare base; the Nth gets "base-N". Because the suffix depends
// on occurrence order, inserting or removing an earlier duplicate
// shifts later suffixes; the reconciler treats that as the passage
// having been edited away.
func Assign(nodes []render.ContentNode) []Anchor {
	seen := make(map[string]int, len(nodes))
	anchors := make([]Anchor, 0, len(nodes))
	for _, n := range nodes {
		if !n.Kind.Eligible() {
			continue
		}
		base := slug.Normalize(n.FlattenedText)
		if base == "" {
			base = slug.Normalize(string(n.Kind))
		}
		seen[base]++
		id := base
		if c := seen[base]; c > 1 {
			id = base + "-" + strconv.Itoa(c)
		}
		anchors = append(anchors, Anchor{ID: id, Kind: n.Kind})
	}
	return anchors
}

// Index maps anchor ids to their document-order position.
func Index(anchors []Anchor) map[string]int {
	idx := make(map[string]int, len(anchors))
	for i, a := range anchors {
		idx[a.ID] = i
	}
	return idx
}
