package server

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nzaccagnino/notedeck/internal/listing"
	"github.com/nzaccagnino/notedeck/internal/notes"
	"github.com/nzaccagnino/notedeck/internal/profile"
	"github.com/nzaccagnino/notedeck/internal/query"
	"github.com/nzaccagnino/notedeck/internal/ratelimit"
)

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, map[string]string{"status": "ok"}, http.StatusOK)
}

// Notes

func (s *Server) listNotesHandler(w http.ResponseWriter, r *http.Request) {
	overrides, err := query.ParseValues(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}

	var page *int
	if raw := r.URL.Query().Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			jsonError(w, "invalid page", http.StatusBadRequest)
			return
		}
		page = &n
	}

	result, err := s.Listing.Page(r.Context(), overrides, page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, result, http.StatusOK)
}

func (s *Server) saveNoteHandler(w http.ResponseWriter, r *http.Request) {
	var req notes.SaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if !s.cooldownAllows(w, r, s.saveCooldown) {
		return
	}

	note, err := s.Notes.Save(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.Hub.Broadcast(Event{Type: EventNoteSaved, NoteID: note.ID})

	status := http.StatusOK
	if req.ID == nil {
		status = http.StatusCreated
	}
	jsonResponse(w, note, status)
}

func (s *Server) getNoteHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	note, err := s.Notes.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	attachments, err := s.DB.ListAttachments(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	jsonResponse(w, map[string]interface{}{
		"note":        note,
		"attachments": attachments,
	}, http.StatusOK)
}

func (s *Server) deleteNoteHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	if err := s.Notes.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	s.Hub.Broadcast(Event{Type: EventNoteDeleted, NoteID: id})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) visitNoteHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	visits, err := s.Notes.Visit(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, map[string]int64{"visit_count": visits}, http.StatusOK)
}

func idParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		jsonError(w, "invalid id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// Pagination

type PageRequest struct {
	// Action is "next", "previous" or "goto".
	Action string `json:"action"`
	Page   int    `json:"page,omitempty"`
}

func (s *Server) pageHandler(w http.ResponseWriter, r *http.Request) {
	var req PageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	overrides, err := query.ParseValues(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}

	var result *listing.Result
	switch req.Action {
	case "next":
		result, err = s.Listing.Next(r.Context(), overrides)
	case "previous":
		result, err = s.Listing.Previous(r.Context(), overrides)
	case "goto":
		result, err = s.Listing.Goto(r.Context(), req.Page, overrides)
	default:
		jsonError(w, fmt.Sprintf("unknown action %q", req.Action), http.StatusBadRequest)
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, result, http.StatusOK)
}

// Config

func (s *Server) getConfigHandler(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	value, err := s.Profile.Get(r.Context(), key)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if value == nil {
		jsonError(w, "unknown config key", http.StatusNotFound)
		return
	}
	jsonResponse(w, map[string]interface{}{"key": key, "value": value}, http.StatusOK)
}

type ConfigRequest struct {
	Value interface{} `json:"value"`
}

func (s *Server) setConfigHandler(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	var req ConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Value == nil {
		jsonError(w, "value required", http.StatusBadRequest)
		return
	}

	if err := profile.Validate(key, req.Value); err != nil {
		writeError(w, r, err)
		return
	}
	if key == query.KeySearchContent && !s.cooldownAllows(w, r, s.searchCooldown) {
		return
	}

	if err := s.Profile.Set(r.Context(), key, req.Value); err != nil {
		writeError(w, r, err)
		return
	}
	value, err := s.Profile.Get(r.Context(), key)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, map[string]interface{}{"key": key, "value": value}, http.StatusOK)
}

// Tags

func (s *Server) listTagsHandler(w http.ResponseWriter, r *http.Request) {
	tags, err := s.DB.ListTags(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, tags, http.StatusOK)
}

func (s *Server) generateTagsHandler(w http.ResponseWriter, r *http.Request) {
	report, err := s.Notes.GenerateTags(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, report, http.StatusOK)
}

func (s *Server) clearTagsHandler(w http.ResponseWriter, r *http.Request) {
	n, err := s.Notes.ClearTags(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, map[string]int64{"deleted": n}, http.StatusOK)
}

// cooldownAllows answers 429 and returns false when c has not elapsed.
func (s *Server) cooldownAllows(w http.ResponseWriter, r *http.Request, c *ratelimit.Cooldown) bool {
	ok, wait, err := c.Allow(r.Context())
	if err != nil {
		writeError(w, r, err)
		return false
	}
	if !ok {
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
		jsonResponse(w, map[string]interface{}{
			"error":       "too many requests",
			"retry_after": wait.Seconds(),
		}, http.StatusTooManyRequests)
		return false
	}
	return true
}
