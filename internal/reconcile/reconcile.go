// Package reconcile classifies a document's comments against the
// current render's anchor set and groups them for display. It is a
// total, pure computation: no storage access, no error paths.
package reconcile

import (
	"sort"

	"marginalia/internal/anchor"
	"marginalia/internal/comment/model"
	"marginalia/internal/render"
)

// Class describes a comment's relationship to the live document.
type Class string

const (
	// ClassGeneral marks comments attached to the document as a whole.
	ClassGeneral Class = "general"
	// ClassCurrent marks comments whose anchor is present and whose
	// version stamp matches the current version.
	ClassCurrent Class = "current"
	// ClassStale marks comments whose anchor is still present but that
	// were created under an earlier edit of the surrounding content.
	ClassStale Class = "stale_anchored"
	// ClassOrphaned marks comments whose source passage was edited
	// away; they are regrouped into the general bucket.
	ClassOrphaned Class = "orphaned"
)

// Entry is one classified comment.
type Entry struct {
	model.Comment
	Class Class `json:"class"`
}

// Group holds the comments displayed under one anchor, in creation
// order. The general bucket uses position -1 and is always first.
type Group struct {
	AnchorID string          `json:"anchor_id"`
	NodeKind render.NodeKind `json:"node_kind,omitempty"`
	Position int             `json:"position"`
	Comments []Entry         `json:"comments"`
}

// View is the grouped comment view consumed by the presentation layer.
type View struct {
	Groups []Group `json:"groups"`
}

// Reconcile classifies every comment and groups by effective display
// anchor. Anchor presence is a membership check against the
// just-computed anchor set, never a cached one. Runs in
// O(len(comments) + len(anchors)) via map lookups, plus a sort over the
// resulting groups.
func Reconcile(currentVersion int, anchors []anchor.Anchor, comments []model.Comment) View {
	positions := make(map[string]int, len(anchors))
	kinds := make(map[string]render.NodeKind, len(anchors))
	for i, a := range anchors {
		positions[a.ID] = i
		kinds[a.ID] = a.Kind
	}

	groups := make(map[string]*Group)
	bucket := func(anchorID string) *Group {
		g, ok := groups[anchorID]
		if !ok {
			g = &Group{AnchorID: anchorID, Position: -1}
			if anchorID != anchor.General {
				g.Position = positions[anchorID]
				g.NodeKind = kinds[anchorID]
			}
			groups[anchorID] = g
		}
		return g
	}

	for _, c := range comments {
		var class Class
		display := c.AnchorID
		_, present := positions[c.AnchorID]
		switch {
		case c.AnchorID == anchor.General:
			class = ClassGeneral
			display = anchor.General
		case present && c.DocumentVersion == currentVersion:
			class = ClassCurrent
		case present:
			class = ClassStale
		default:
			class = ClassOrphaned
			display = anchor.General
		}
		g := bucket(display)
		g.Comments = append(g.Comments, Entry{Comment: c, Class: class})
	}

	out := make([]Group, 0, len(groups))
	if g, ok := groups[anchor.General]; ok {
		out = append(out, *g)
		delete(groups, anchor.General)
	}
	rest := make([]Group, 0, len(groups))
	for _, g := range groups {
		rest = append(rest, *g)
	}
	sort.Slice(rest, func(i, j int) bool { return rest[i].Position < rest[j].Position })
	out = append(out, rest...)
	return View{Groups: out}
}
