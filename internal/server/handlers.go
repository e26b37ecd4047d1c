package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mesh-intelligence/linkshelf/internal/backup"
	"github.com/mesh-intelligence/linkshelf/pkg/types"
)

// maxBodyBytes caps request bodies; restore payloads carry whole
// collections.
const maxBodyBytes = 8 << 20

type successResponse struct {
	Success bool `json:"success"`
	Skipped bool `json:"skipped,omitempty"`
}

var okResponse = successResponse{Success: true}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// fail maps err to a status code. Store failures are logged and reported
// without detail.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, types.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, types.ErrInvalidBackup):
		writeError(w, http.StatusBadRequest, "Invalid backup data")
	case errors.Is(err, types.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		s.logger.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// decode reads a JSON body into v. It writes a 400 and returns false when
// the body is not valid JSON for v.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	body := io.LimitReader(r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON body: %v", err))
		return false
	}
	return true
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if !decode(w, r, &req) {
		return
	}
	if s.gate == nil {
		s.fail(w, r, types.ErrUnauthorized)
		return
	}
	if err := s.gate.Check(req.Password); err != nil {
		s.logger.Warn().Str("remote", r.RemoteAddr).Msg("login rejected")
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.repo.Categories(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cats)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var c types.Category
	if !decode(w, r, &c) {
		return
	}
	if err := s.repo.InsertCategory(r.Context(), c); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse)
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	var p types.CategoryPatch
	if !decode(w, r, &p) {
		return
	}
	if err := s.repo.UpdateCategory(r.Context(), mux.Vars(r)["id"], p); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := s.repo.DeleteCategory(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse)
}

func (s *Server) handleReorderCategories(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Order *[]string `json:"order"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.Order == nil {
		writeError(w, http.StatusBadRequest, "order must be an array of category ids")
		return
	}
	if err := s.repo.ReorderCategories(r.Context(), *req.Order); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse)
}

func (s *Server) handleListLinks(w http.ResponseWriter, r *http.Request) {
	links, err := s.repo.Links(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, links)
}

func (s *Server) handleCreateLink(w http.ResponseWriter, r *http.Request) {
	var l types.Link
	if !decode(w, r, &l) {
		return
	}
	if err := s.repo.InsertLink(r.Context(), l); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse)
}

func (s *Server) handleUpdateLink(w http.ResponseWriter, r *http.Request) {
	var p types.LinkPatch
	if !decode(w, r, &p) {
		return
	}
	if err := s.repo.UpdateLink(r.Context(), mux.Vars(r)["id"], p); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse)
}

func (s *Server) handleDeleteLink(w http.ResponseWriter, r *http.Request) {
	if err := s.repo.DeleteLink(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse)
}

func (s *Server) handleBackup(w http.ResponseWriter, r *http.Request) {
	if _, err := s.backups.Snapshot(r.Context(), backup.TriggerManual); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse)
}

func (s *Server) handleCronBackup(w http.ResponseWriter, r *http.Request) {
	_, ran, err := s.backups.RunScheduled(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true, Skipped: !ran})
}

func (s *Server) handleBackupList(w http.ResponseWriter, r *http.Request) {
	infos, err := s.backups.List(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, infos)
}

func (s *Server) handleRestoreKV(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Key string `json:"key"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := s.backups.Restore(r.Context(), req.Key); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse)
}

func (s *Server) handleRestore(w http.ResponseWriter, r *http.Request) {
	var p types.RestorePayload
	if !decode(w, r, &p) {
		return
	}
	if err := s.backups.RestoreFromPayload(r.Context(), p); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse)
}
