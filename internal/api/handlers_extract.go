package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/dgallion1/examkb/internal/export"
	"github.com/dgallion1/examkb/internal/parser"
)

// Output formats of /api/extract.
const (
	FormatTree    = "tree"
	FormatRecords = "records"
	FormatSQL     = "sql"
)

// parseUpload caps the request body and parses the multipart form. It
// writes the error response and returns false on failure.
func (s *Server) parseUpload(w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonError(w, fmt.Sprintf("request exceeds max size (%d bytes)", tooLarge.Limit), http.StatusRequestEntityTooLarge)
			return false
		}
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	if !s.parseUpload(w, r) {
		return
	}
	defer r.MultipartForm.RemoveAll()

	format := r.FormValue("format")
	if format == "" {
		format = FormatTree
	}
	switch format {
	case FormatTree, FormatRecords, FormatSQL:
	default:
		jsonError(w, fmt.Sprintf("unknown format %q", format), http.StatusBadRequest)
		return
	}

	persist := r.FormValue("store") == "true"
	if persist && s.store == nil {
		jsonError(w, "no database configured", http.StatusServiceUnavailable)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	if !parser.IsSupportedExtension(filename) {
		jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
		return
	}
	if header.Size > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RequestTimeout)
	defer cancel()

	res, err := s.pipeline.Run(ctx, file, filename)
	if err != nil {
		s.log.Warn("extract failed", "file", filename, "error", err)
		switch {
		case errors.Is(err, parser.ErrUnsupportedFormat):
			jsonError(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, context.DeadlineExceeded):
			jsonError(w, "extraction timed out", http.StatusGatewayTimeout)
		default:
			jsonError(w, err.Error(), http.StatusUnprocessableEntity)
		}
		return
	}

	records := export.Flatten(res.Tree)
	if persist {
		if err := s.store.Replace(ctx, res.Tree.SubjectCode, records); err != nil {
			s.log.Error("store failed", "run_id", res.RunID, "error", err)
			jsonError(w, "failed to store records", http.StatusInternalServerError)
			return
		}
		s.log.Info("records stored", "run_id", res.RunID, "subject_code", res.Tree.SubjectCode, "records", len(records))
	}

	w.Header().Set(runIDHeader, res.RunID)
	switch format {
	case FormatTree:
		w.Header().Set("Content-Type", "application/json")
		err = export.WriteJSON(w, res.Tree)
	case FormatRecords:
		w.Header().Set("Content-Type", "application/json")
		err = json.NewEncoder(w).Encode(map[string]any{
			"run_id":  res.RunID,
			"records": records,
		})
	case FormatSQL:
		w.Header().Set("Content-Type", "application/sql; charset=utf-8")
		err = export.WriteSQL(w, records, time.Now())
	}
	if err != nil {
		s.log.Error("write response", "run_id", res.RunID, "error", err)
	}
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." || name == "/" {
		name = "unnamed"
	}
	return name
}
