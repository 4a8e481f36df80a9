package router

import (
	"database/sql"
	"net/http"

	"marginalia/internal/blob"
	commentHandler "marginalia/internal/comment"
	commentRepo "marginalia/internal/comment/repository"
	commentService "marginalia/internal/comment/service"
	docHandler "marginalia/internal/document"
	docRepo "marginalia/internal/document/repository"
	docService "marginalia/internal/document/service"
	"marginalia/internal/render"
	"marginalia/middleware"
	"marginalia/socket"
)

func Setup(db *sql.DB, renderer render.Renderer, hub *socket.Hub) http.Handler {
	mux := http.NewServeMux()

	// WebSocket live feed for readers viewing a document.
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		socket.ServeWs(hub, w, r)
	})

	blobs := blob.NewPostgres(db)

	documents := docService.NewDocumentService(docRepo.NewDocumentRepository(db), blobs, renderer, hub)
	comments := commentService.NewCommentService(commentRepo.NewCommentRepository(db), documents, hub)

	docs := docHandler.NewDocumentHandler(documents)
	cmts := commentHandler.NewCommentHandler(comments)
	auth := middleware.PublisherAuth

	// Reader routes: anonymous.
	mux.Handle("/api/documents/view", http.HandlerFunc(docs.View))
	mux.Handle("/api/documents/comments", http.HandlerFunc(cmts.GetComments))
	mux.Handle("/api/documents/comments/add", http.HandlerFunc(cmts.AddComment))
	mux.Handle("/api/documents/reconcile", http.HandlerFunc(cmts.Reconcile))

	// Publisher routes: JWT-guarded.
	mux.Handle("/api/documents/create", auth(http.HandlerFunc(docs.Publish)))
	mux.Handle("/api/documents/save", auth(http.HandlerFunc(docs.Save)))
	mux.Handle("/api/documents/update", auth(http.HandlerFunc(docs.UpdateTitle)))
	mux.Handle("/api/documents/delete", auth(http.HandlerFunc(docs.Delete)))
	mux.Handle("/api/documents/snapshot", auth(http.HandlerFunc(docs.Snapshot)))
	mux.Handle("/api/documents/comments/flag", auth(http.HandlerFunc(cmts.ToggleFlag)))

	return middleware.CORSMiddleware(mux)
}
