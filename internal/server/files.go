package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"

	"github.com/nzaccagnino/notedeck/internal/db"
)

type UploadResponse struct {
	Attachment    *db.Attachment `json:"attachment"`
	TemporaryUUID string         `json:"temporary_uuid"`
}

// uploadHandler stores a file under a temporary correlation id. The id is
// generated when the caller did not send one and must be passed back on
// save so the note claims the file.
func (s *Server) uploadHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonError(w, "file too large", http.StatusRequestEntityTooLarge)
			return
		}
		jsonError(w, "missing file field", http.StatusBadRequest)
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		jsonError(w, "failed to read upload", http.StatusBadRequest)
		return
	}

	tempUUID := r.URL.Query().Get("temporary_uuid")
	if tempUUID == "" {
		tempUUID = uuid.NewString()
	} else if _, err := uuid.Parse(tempUUID); err != nil {
		jsonError(w, "invalid temporary_uuid", http.StatusBadRequest)
		return
	}

	mimetype := header.Header.Get("Content-Type")
	if mimetype == "" || mimetype == "application/octet-stream" {
		mimetype = http.DetectContentType(content)
	}

	a, err := s.DB.CreateAttachment(r.Context(), db.Attachment{
		Filename:      filepath.Base(header.Filename),
		Content:       content,
		Mimetype:      mimetype,
		TemporaryUUID: tempUUID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	jsonResponse(w, UploadResponse{Attachment: a, TemporaryUUID: tempUUID}, http.StatusCreated)
}

func (s *Server) fileHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	a, err := s.DB.GetAttachment(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", a.Mimetype)
	w.Header().Set("Content-Length", strconv.Itoa(len(a.Content)))
	w.Header().Set("Content-Disposition", contentDisposition(a.Filename))
	w.WriteHeader(http.StatusOK)
	w.Write(a.Content)
}

// contentDisposition renders an inline disposition with an RFC 5987
// filename so non-ASCII names survive.
func contentDisposition(filename string) string {
	return fmt.Sprintf("inline; filename*=UTF-8''%s", url.PathEscape(filename))
}
