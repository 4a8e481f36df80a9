package service

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marginalia/internal/apperr"
	"marginalia/internal/blob"
	"marginalia/internal/comment/model"
	docmodel "marginalia/internal/document/model"
	docservice "marginalia/internal/document/service"
	"marginalia/internal/reconcile"
	"marginalia/internal/render"
	"marginalia/pkg/logger"
)

func init() { logger.Init() }

type fakeCommentRepo struct {
	mu       sync.Mutex
	comments []model.Comment
}

func (f *fakeCommentRepo) Insert(_ context.Context, c model.Comment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.comments = append(f.comments, c)
	return nil
}

func (f *fakeCommentRepo) ListVisible(_ context.Context, docID string) ([]model.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Comment{}
	for _, c := range f.comments {
		if c.DocumentID == docID && !c.Flagged {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeCommentRepo) ToggleFlag(_ context.Context, commentID string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.comments {
		if f.comments[i].ID == commentID {
			f.comments[i].Flagged = !f.comments[i].Flagged
			return f.comments[i].DocumentID, f.comments[i].Flagged, nil
		}
	}
	return "", false, &apperr.NotFoundError{Resource: "comment", ID: commentID}
}

// fakeDocRepo is a minimal in-memory docservice.Repository, enough to
// publish and edit documents under the comment flows.
type fakeDocRepo struct {
	mu    sync.Mutex
	docs  map[string]docmodel.Document
	blobs *blob.Memory
}

func (f *fakeDocRepo) Create(ctx context.Context, doc docmodel.Document, content []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.blobs.Put(ctx, doc.ContentRef, content); err != nil {
		return err
	}
	f.docs[doc.ID] = doc
	return nil
}

func (f *fakeDocRepo) Get(_ context.Context, docID string) (docmodel.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[docID]
	if !ok {
		return docmodel.Document{}, &apperr.NotFoundError{Resource: "document", ID: docID}
	}
	return doc, nil
}

func (f *fakeDocRepo) GetCurrent(_ context.Context, docID string) (int, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[docID]
	if !ok {
		return 0, "", &apperr.NotFoundError{Resource: "document", ID: docID}
	}
	return doc.CurrentVersion, doc.ContentRef, nil
}

func (f *fakeDocRepo) CommitEdit(ctx context.Context, docID string, expected int, oldContent, newContent []byte) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[docID]
	if !ok {
		return false, &apperr.NotFoundError{Resource: "document", ID: docID}
	}
	if doc.CurrentVersion != expected {
		return false, nil
	}
	if err := f.blobs.Put(ctx, blob.SnapshotKey(docID, expected), oldContent); err != nil {
		return false, err
	}
	if err := f.blobs.Put(ctx, blob.LiveKey(docID), newContent); err != nil {
		return false, err
	}
	doc.CurrentVersion++
	f.docs[docID] = doc
	return true, nil
}

func (f *fakeDocRepo) GetSnapshotRef(_ context.Context, docID string, version int) (string, error) {
	return "", &apperr.NotFoundError{Resource: "snapshot", ID: blob.SnapshotKey(docID, version)}
}

func (f *fakeDocRepo) UpdateTitle(context.Context, string, string) (int64, error) { return 1, nil }

func (f *fakeDocRepo) Delete(_ context.Context, docID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.docs, docID)
	return nil
}

// newHarness publishes one document and wires a comment service over
// in-memory fakes.
func newHarness(t *testing.T, content string) (*CommentService, *docservice.DocumentService, string) {
	t.Helper()
	blobs := blob.NewMemory()
	docs := docservice.NewDocumentService(
		&fakeDocRepo{docs: make(map[string]docmodel.Document), blobs: blobs},
		blobs, render.PlainText{}, nil,
	)
	resp, err := docs.Publish(context.Background(), "Piece", content)
	require.NoError(t, err)
	svc := NewCommentService(&fakeCommentRepo{}, docs, nil)
	return svc, docs, resp.DocID
}

func TestCreateAcceptsBoundaryLengths(t *testing.T) {
	ctx := context.Background()
	svc, _, docID := newHarness(t, "Intro")

	c, err := svc.Create(ctx, model.CreateRequest{
		DocID:      docID,
		AnchorID:   "intro",
		AuthorName: strings.Repeat("a", 50),
		Body:       strings.Repeat("b", 2000),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, c.ID)
	assert.Equal(t, 1, c.DocumentVersion)
	assert.False(t, c.Flagged)
}

func TestCreateRejectsInvalidFields(t *testing.T) {
	ctx := context.Background()
	svc, _, docID := newHarness(t, "Intro")

	cases := []struct {
		name string
		req  model.CreateRequest
	}{
		{"author name too long", model.CreateRequest{DocID: docID, AnchorID: "intro", AuthorName: strings.Repeat("a", 51), Body: "fine"}},
		{"author name blank", model.CreateRequest{DocID: docID, AnchorID: "intro", AuthorName: "   ", Body: "fine"}},
		{"body too long", model.CreateRequest{DocID: docID, AnchorID: "intro", AuthorName: "reader", Body: strings.Repeat("b", 2001)}},
		{"body empty", model.CreateRequest{DocID: docID, AnchorID: "intro", AuthorName: "reader", Body: ""}},
		{"anchor empty", model.CreateRequest{DocID: docID, AnchorID: "", AuthorName: "reader", Body: "fine"}},
		{"anchor not slug shaped", model.CreateRequest{DocID: docID, AnchorID: "Intro Section!", AuthorName: "reader", Body: "fine"}},
		{"anchor with trailing hyphen", model.CreateRequest{DocID: docID, AnchorID: "intro-", AuthorName: "reader", Body: "fine"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tc.req)
			assert.ErrorIs(t, err, apperr.ErrValidation)
		})
	}
}

func TestCreateTrimsAuthorName(t *testing.T) {
	svc, _, docID := newHarness(t, "Intro")
	c, err := svc.Create(context.Background(), model.CreateRequest{
		DocID: docID, AnchorID: "general", AuthorName: "  reader  ", Body: "hello",
	})
	require.NoError(t, err)
	assert.Equal(t, "reader", c.AuthorName)
}

func TestCreateUnknownDocument(t *testing.T) {
	svc, _, _ := newHarness(t, "Intro")
	_, err := svc.Create(context.Background(), model.CreateRequest{
		DocID: "ghost", AnchorID: "intro", AuthorName: "reader", Body: "hello",
	})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestCreateStampsVersionLiveAtCreation(t *testing.T) {
	ctx := context.Background()
	svc, docs, docID := newHarness(t, "Intro")

	first, err := svc.Create(ctx, model.CreateRequest{
		DocID: docID, AnchorID: "intro", AuthorName: "reader", Body: "before the edit",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, first.DocumentVersion)

	_, err = docs.CommitEdit(ctx, docID, "Intro, revised")
	require.NoError(t, err)

	second, err := svc.Create(ctx, model.CreateRequest{
		DocID: docID, AnchorID: "intro-revised", AuthorName: "reader", Body: "after the edit",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, second.DocumentVersion)
}

func TestListExcludesFlagged(t *testing.T) {
	ctx := context.Background()
	svc, _, docID := newHarness(t, "Intro")

	kept, err := svc.Create(ctx, model.CreateRequest{DocID: docID, AnchorID: "intro", AuthorName: "a", Body: "keep"})
	require.NoError(t, err)
	hidden, err := svc.Create(ctx, model.CreateRequest{DocID: docID, AnchorID: "intro", AuthorName: "b", Body: "hide"})
	require.NoError(t, err)

	resp, err := svc.ToggleFlag(ctx, hidden.ID)
	require.NoError(t, err)
	assert.True(t, resp.Flagged)

	visible, err := svc.List(ctx, docID)
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, kept.ID, visible[0].ID)

	// Unflagging restores visibility.
	resp, err = svc.ToggleFlag(ctx, hidden.ID)
	require.NoError(t, err)
	assert.False(t, resp.Flagged)

	visible, err = svc.List(ctx, docID)
	require.NoError(t, err)
	assert.Len(t, visible, 2)
}

func TestToggleFlagUnknownComment(t *testing.T) {
	svc, _, _ := newHarness(t, "Intro")
	_, err := svc.ToggleFlag(context.Background(), "ghost")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestReconcileClassifiesAgainstFreshRender(t *testing.T) {
	ctx := context.Background()
	svc, docs, docID := newHarness(t, "Intro\n\nIntro")

	// Two identical paragraphs yield intro and intro-2.
	onSecond, err := svc.Create(ctx, model.CreateRequest{
		DocID: docID, AnchorID: "intro-2", AuthorName: "reader", Body: "on the duplicate",
	})
	require.NoError(t, err)
	onFirst, err := svc.Create(ctx, model.CreateRequest{
		DocID: docID, AnchorID: "intro", AuthorName: "reader", Body: "on the first",
	})
	require.NoError(t, err)
	atRoot, err := svc.Create(ctx, model.CreateRequest{
		DocID: docID, AnchorID: "general", AuthorName: "reader", Body: "about the whole piece",
	})
	require.NoError(t, err)

	// The edit removes the second paragraph. intro survives, intro-2
	// does not.
	_, err = docs.CommitEdit(ctx, docID, "Intro")
	require.NoError(t, err)

	view, err := svc.Reconcile(ctx, docID)
	require.NoError(t, err)
	require.Len(t, view.Groups, 2)

	general := view.Groups[0]
	assert.Equal(t, "general", general.AnchorID)
	assert.Equal(t, -1, general.Position)
	require.Len(t, general.Comments, 2)
	// Creation order within the bucket: the orphaned comment was
	// created first.
	assert.Equal(t, onSecond.ID, general.Comments[0].ID)
	assert.Equal(t, reconcile.ClassOrphaned, general.Comments[0].Class)
	assert.Equal(t, atRoot.ID, general.Comments[1].ID)
	assert.Equal(t, reconcile.ClassGeneral, general.Comments[1].Class)

	anchored := view.Groups[1]
	assert.Equal(t, "intro", anchored.AnchorID)
	require.Len(t, anchored.Comments, 1)
	assert.Equal(t, onFirst.ID, anchored.Comments[0].ID)
	// The anchor survived but the comment predates the current version.
	assert.Equal(t, reconcile.ClassStale, anchored.Comments[0].Class)
}

func TestReconcileCurrentVersionComments(t *testing.T) {
	ctx := context.Background()
	svc, _, docID := newHarness(t, "Intro")

	c, err := svc.Create(ctx, model.CreateRequest{
		DocID: docID, AnchorID: "intro", AuthorName: "reader", Body: "fresh",
	})
	require.NoError(t, err)

	view, err := svc.Reconcile(ctx, docID)
	require.NoError(t, err)
	require.Len(t, view.Groups, 1)
	require.Len(t, view.Groups[0].Comments, 1)
	assert.Equal(t, c.ID, view.Groups[0].Comments[0].ID)
	assert.Equal(t, reconcile.ClassCurrent, view.Groups[0].Comments[0].Class)
}
