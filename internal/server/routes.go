package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ymatsuda/machichat/internal/chat"
	"github.com/ymatsuda/machichat/internal/property"
	"github.com/ymatsuda/machichat/internal/store"
)

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	ids, err := s.store.ListSessions(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"sessions": ids})
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")

	sess, err := s.store.Load(r.Context(), sessionID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if sess.Turns == nil {
		sess.Turns = []store.Turn{}
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleExportHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")

	sess, err := s.store.Load(r.Context(), sessionID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="history_`+sessionID+`.csv"`)
	// Headers are already sent at this point; a write error just cuts
	// the download short.
	_ = store.ExportCSV(w, sess)
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")

	if err := s.store.Clear(r.Context(), sessionID); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (s *Server) handleListProperties(w http.ResponseWriter, r *http.Request) {
	records, err := s.properties.List(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if records == nil {
		records = []property.Record{}
	}
	writeJSON(w, http.StatusOK, map[string][]property.Record{"properties": records})
}

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]*chat.Template{"templates": s.templates.List()})
}

func (s *Server) handlePutTemplate(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var tpl chat.Template
	if err := json.NewDecoder(r.Body).Decode(&tpl); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid template body"})
		return
	}
	tpl.Name = name

	if err := s.templates.Set(&tpl); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, &tpl)
}

func (s *Server) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	if err := s.templates.Delete(name); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// writeJSON encodes v as the response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
