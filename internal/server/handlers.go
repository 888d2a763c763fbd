package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"blocknotes/internal/domain"
	"blocknotes/internal/service"
	"blocknotes/internal/storage"
)

// maxBodyBytes caps request bodies; toggle children travel inside props.
const maxBodyBytes = 4 << 20

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ── Pages ──────────────────────────────────────────────────

func (s *Server) handleListPages(w http.ResponseWriter, r *http.Request) {
	var parent *domain.ID
	if v := r.URL.Query().Get("parent_id"); v != "" {
		id := domain.ID(v)
		parent = &id
	}
	pages, err := s.pages.ListPages(parent)
	if err != nil {
		s.fail(w, err, "Failed to load pages")
		return
	}
	writeJSON(w, http.StatusOK, pages)
}

func (s *Server) handleCreatePage(w http.ResponseWriter, r *http.Request) {
	var in domain.PageInput
	if err := decodeBody(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	page, err := s.pages.CreatePage(in)
	if err != nil {
		s.fail(w, err, "Parent page not found")
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleGetPage(w http.ResponseWriter, r *http.Request) {
	page, err := s.pages.GetPage(pathID(r))
	if err != nil {
		s.fail(w, err, "Page not found")
		return
	}
	if page.Blocks == nil {
		page.Blocks = []domain.Block{}
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleUpdatePage(w http.ResponseWriter, r *http.Request) {
	var patch domain.PagePatch
	if err := decodeBody(w, r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	page, err := s.pages.UpdatePage(pathID(r), patch)
	if err != nil {
		s.fail(w, err, "Page not found")
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleDeletePage(w http.ResponseWriter, r *http.Request) {
	if err := s.pages.DeletePage(pathID(r)); err != nil {
		s.fail(w, err, "Page not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// ── Blocks ─────────────────────────────────────────────────

func (s *Server) handleCreateBlock(w http.ResponseWriter, r *http.Request) {
	var in domain.BlockInput
	if err := decodeBody(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	b, err := s.blocks.CreateBlock(pathID(r), in)
	if err != nil {
		s.fail(w, err, "Page not found")
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleUpdateBlock(w http.ResponseWriter, r *http.Request) {
	var patch domain.BlockPatch
	if err := decodeBody(w, r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	b, err := s.blocks.UpdateBlock(pathID(r), patch)
	if err != nil {
		s.fail(w, err, "Block not found")
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleDeleteBlock(w http.ResponseWriter, r *http.Request) {
	if err := s.blocks.DeleteBlock(pathID(r)); err != nil {
		s.fail(w, err, "Block not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// ── helpers ────────────────────────────────────────────────

// fail maps service errors to statuses. notFoundMsg is the detail used
// for a missing record.
func (s *Server) fail(w http.ResponseWriter, err error, notFoundMsg string) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, notFoundMsg)
	case errors.Is(err, service.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.log.Error().Err(err).Msg("kb request failed")
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func pathID(r *http.Request) domain.ID {
	return domain.ID(mux.Vars(r)["id"])
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError uses the {"detail": ...} body shape of the original API.
func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func decodeBody(w http.ResponseWriter, r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(target); err != nil {
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}
