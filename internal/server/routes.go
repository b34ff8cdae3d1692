package server

import (
	"net/http"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// API routes - Documents
	mux.HandleFunc("/api/documents/stats", s.app.DocumentHandler.StatsHandler)
	mux.HandleFunc("/api/documents", s.handleDocumentsRoute)  // GET (list), POST (upload)
	mux.HandleFunc("/api/documents/", s.handleDocumentRoutes) // GET/DELETE /{id}

	// API routes - Chat
	mux.HandleFunc("/api/chat", s.app.ChatHandler.ChatHandler)
	mux.HandleFunc("/api/chat/history/", s.handleHistoryRoutes) // GET/DELETE /{session}, GET /{session}/pdf

	// API routes - System
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)

	// 404 handler for unmatched routes
	mux.HandleFunc("/", s.app.APIHandler.NotFoundHandler)

	return mux
}

// handleDocumentsRoute routes /api/documents requests (list and upload)
func (s *Server) handleDocumentsRoute(w http.ResponseWriter, r *http.Request) {
	RouteResourceCollection(w, r, s.app.DocumentHandler.ListHandler, s.app.DocumentHandler.UploadHandler)
}

// handleDocumentRoutes routes /api/documents/{id} requests
func (s *Server) handleDocumentRoutes(w http.ResponseWriter, r *http.Request) {
	RouteResourceItem(w, r, s.app.DocumentHandler.GetHandler, nil, s.app.DocumentHandler.DeleteHandler)
}

// handleHistoryRoutes routes /api/chat/history/{session} and its transcript export
func (s *Server) handleHistoryRoutes(w http.ResponseWriter, r *http.Request) {
	if RouteByPathSuffix(w, r, "/api/chat/history/", []PathSuffixRouter{
		{Suffix: "/pdf", Handler: s.app.ChatHandler.TranscriptHandler},
	}) {
		return
	}

	RouteResourceItem(w, r, s.app.ChatHandler.HistoryHandler, nil, s.app.ChatHandler.ClearHistoryHandler)
}
