package httpapi

import (
	"errors"
	"net/http"

	"github.com/khelan-mehta/avatar-backend/internal/auth"
	"github.com/khelan-mehta/avatar-backend/internal/persona"
)

type loginRequest struct {
	Password string `json:"password"`
}

type contextRequest struct {
	Context *string `json:"context"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.auth == nil {
		respondError(w, http.StatusNotImplemented, "unavailable", "admin login not configured")
		return
	}
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	token, err := s.auth.Login(req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidPassword) {
			s.logWarn("admin: failed login from %s", r.RemoteAddr)
			respondError(w, http.StatusUnauthorized, "invalid_password", "Invalid password")
			return
		}
		s.logError("admin: issue token: %v", err)
		respondError(w, http.StatusInternalServerError, "internal", "Login failed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.auth == nil {
			respondError(w, http.StatusNotImplemented, "unavailable", "admin auth not configured")
			return
		}
		token, err := auth.BearerToken(r.Header.Get("Authorization"))
		if err != nil {
			respondError(w, http.StatusUnauthorized, "unauthorized", "Access denied. No token provided.")
			return
		}
		if _, err := s.auth.Verify(token); err != nil {
			if errors.Is(err, auth.ErrForbidden) {
				respondError(w, http.StatusForbidden, "forbidden", "Insufficient permissions")
				return
			}
			respondError(w, http.StatusUnauthorized, "invalid_token", "Invalid or expired token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleGetContext(w http.ResponseWriter, r *http.Request) {
	text, err := persona.LoadContext(r.Context(), s.store)
	s.metrics.IncStoreOp("get_context", err)
	if err != nil {
		s.logWarn("admin: read additional context: %v", err)
	}
	respondJSON(w, http.StatusOK, map[string]string{"context": text})
}

func (s *Server) handleSaveContext(w http.ResponseWriter, r *http.Request) {
	var req contextRequest
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	text := ""
	if req.Context != nil {
		text = *req.Context
	}
	_, err := persona.SaveContext(r.Context(), s.store, text, s.now())
	s.metrics.IncStoreOp("set_context", err)
	if err != nil {
		s.logError("admin: save additional context: %v", err)
		respondError(w, http.StatusInternalServerError, "store_error", "Failed to save context")
		return
	}
	s.logInfo("admin: additional context saved (%d chars)", len([]rune(text)))
	respondJSON(w, http.StatusOK, map[string]string{"message": "Context saved successfully"})
}
