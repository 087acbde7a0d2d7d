package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/askdoc-labs/askdoc-core/internal/core/domain"
	"github.com/askdoc-labs/askdoc-core/internal/core/ports/driving"
)

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Failed to encode JSON response: %v", err)
	}
}

// writeError writes a JSON error response
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeDomainError maps a domain error to an HTTP status and writes it
// with its machine-readable code.
func writeDomainError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidArgument),
		errors.Is(err, domain.ErrEmptyQuery),
		errors.Is(err, domain.ErrInvalidConfig):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrUnsupportedFormat):
		status = http.StatusUnsupportedMediaType
	case errors.Is(err, domain.ErrDocumentTooLarge):
		status = http.StatusRequestEntityTooLarge
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrTimeout):
		status = http.StatusGatewayTimeout
	case errors.Is(err, domain.ErrEmbeddingFailure),
		errors.Is(err, domain.ErrVectorStoreFailure),
		errors.Is(err, domain.ErrSynthesisFailure):
		status = http.StatusBadGateway
	}

	writeJSON(w, status, map[string]string{
		"error": err.Error(),
		"code":  domain.ErrorCode(err),
	})
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleHealthDetailed handles GET /health/detailed. Optional components
// report "not configured" instead of failing the check.
func (s *Server) handleHealthDetailed(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	components := map[string]string{}
	healthy := true

	check := func(name string, p Pinger) {
		if p == nil {
			components[name] = "not configured"
			return
		}
		if err := p.Ping(ctx); err != nil {
			components[name] = "unhealthy: " + err.Error()
			healthy = false
			return
		}
		components[name] = "healthy"
	}

	check("vector_store", s.vectorStore)
	check("database", s.db)
	check("conversation_store", s.conversationStore)
	check("embedding", s.services.EmbeddingService())
	check("completion", s.services.CompletionService())

	status := "ok"
	code := http.StatusOK
	if !healthy {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, code, map[string]interface{}{
		"status":     status,
		"components": components,
	})
}

// handleVersion handles GET /version
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": s.version})
}

// handleUpload handles POST /api/v1/upload
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	var req driving.UploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := s.ingestService.Ingest(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// chatRequest extends the core payload with an optional session id. When
// set, history is loaded from the conversation store and the exchange is
// appended back after a successful answer.
type chatRequest struct {
	domain.ChatRequest
	SessionID string `json:"session_id,omitempty"`
}

// handleChat handles POST /api/v1/chat
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.SessionID != "" && s.conversationStore == nil {
		writeError(w, http.StatusBadRequest, "Sessions are not enabled")
		return
	}

	if req.SessionID != "" && len(req.History) == 0 {
		history, err := s.conversationStore.Recent(r.Context(), req.SessionID, domain.DefaultHistoryTurns)
		if err != nil {
			log.Printf("Failed to load session %s history: %v", req.SessionID, err)
		} else {
			req.History = history
		}
	}

	answer, err := s.chatService.Ask(r.Context(), req.ChatRequest)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if req.SessionID != "" {
		if err := s.conversationStore.Append(r.Context(), req.SessionID,
			domain.ConversationTurn{Role: domain.RoleUser, Content: req.Message},
			domain.ConversationTurn{Role: domain.RoleAssistant, Content: answer.Text},
		); err != nil {
			log.Printf("Failed to append session %s history: %v", req.SessionID, err)
		}
	}

	writeJSON(w, http.StatusOK, answer)
}

// handleListDocuments handles GET /api/v1/documents
func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	namespace := r.URL.Query().Get("namespace")
	limit := queryInt(r, "limit", 0)
	offset := queryInt(r, "offset", 0)

	docs, err := s.docService.ListByNamespace(r.Context(), namespace, limit, offset)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"documents": docs,
		"count":     len(docs),
	})
}

// handleGetDocument handles GET /api/v1/documents/{id}
func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.docService.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, doc)
}

// handleGetDocumentChunks handles GET /api/v1/documents/{id}/chunks
func (s *Server) handleGetDocumentChunks(w http.ResponseWriter, r *http.Request) {
	chunks, err := s.docService.GetChunks(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"chunks": chunks,
		"count":  len(chunks),
	})
}

// handleDeleteDocument handles DELETE /api/v1/documents/{id}
func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	namespace := r.URL.Query().Get("namespace")

	if err := s.docService.Delete(r.Context(), namespace, r.PathValue("id")); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// handleClearSession handles DELETE /api/v1/sessions/{id}
func (s *Server) handleClearSession(w http.ResponseWriter, r *http.Request) {
	if s.conversationStore == nil {
		writeError(w, http.StatusBadRequest, "Sessions are not enabled")
		return
	}

	if err := s.conversationStore.Clear(r.Context(), r.PathValue("id")); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
