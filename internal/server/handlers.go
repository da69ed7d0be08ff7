package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/oralabs/ora-memory/internal/memory"
)

// ─── Responses ───────────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps the memory error taxonomy onto HTTP status codes:
// ValidationError → 400, NotFoundError → 404, everything else → 500.
func writeError(w http.ResponseWriter, err error) {
	var (
		ve *memory.ValidationError
		nf *memory.NotFoundError
	)
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: ve.Msg})
	case errors.As(err, &nf):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: nf.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return false
	}
	return true
}

// ─── Service endpoints ───────────────────────────────────────────────────────

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"service":   serviceName,
		"version":   Version,
		"timestamp": memory.Now(),
	})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": serviceName + " is running",
		"endpoints": map[string]string{
			"health":               "/health",
			"admin_panel":          "/admin",
			"get_user_context":     "/api/memory/get-context",
			"save_conversation":    "/api/memory/save-conversation",
			"update_profile":       "/api/memory/update-profile",
			"get_user_stats":       "/api/memory/get-stats",
			"get_all_users":        "/api/memory/get-all-users",
			"search_conversations": "/api/memory/search-conversations",
		},
		"documentation": "Send POST requests to the memory endpoints",
	})
}

// ─── Memory endpoints ────────────────────────────────────────────────────────

type userRequest struct {
	UserID string `json:"user_id"`
}

func (s *Server) handleGetContext(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if !decodeBody(w, r, &req) {
		return
	}

	res, err := s.svc.GetContext(req.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleSaveConversation(w http.ResponseWriter, r *http.Request) {
	var req memory.SaveConversationParams
	if !decodeBody(w, r, &req) {
		return
	}

	rec, err := s.svc.SaveConversation(req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "saved",
		"user_id":   rec.UserID,
		"timestamp": rec.Timestamp,
	})
}

type updateProfileRequest struct {
	UserID string `json:"user_id"`
	memory.ProfilePatch
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if !decodeBody(w, r, &req) {
		return
	}

	_, fields, err := s.svc.UpdateProfile(req.UserID, req.ProfilePatch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "updated",
		"user_id":        req.UserID,
		"updated_fields": fields,
	})
}

func (s *Server) handleGetAllUsers(w http.ResponseWriter, r *http.Request) {
	overview, err := s.svc.AllUsers()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, overview)
}

type searchRequest struct {
	UserID string `json:"user_id"`
	Limit  int    `json:"limit"`
}

func (s *Server) handleSearchConversations(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if !decodeBody(w, r, &req) {
		return
	}

	res, err := s.svc.SearchConversations(req.UserID, req.Limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if !decodeBody(w, r, &req) {
		return
	}

	stats, err := s.svc.UserStats(req.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
