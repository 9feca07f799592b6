package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/dgallion1/examkb/internal/questions"
)

func (s *Server) handleQuestions(w http.ResponseWriter, r *http.Request) {
	if !s.parseUpload(w, r) {
		return
	}
	defer r.MultipartForm.RemoveAll()

	year, err := strconv.Atoi(r.FormValue("year"))
	if err != nil || year <= 0 {
		jsonError(w, "year is required", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	if !questions.IsSupportedExtension(filename) {
		jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
		return
	}

	qs, err := questions.Read(file, filename)
	if err != nil {
		jsonError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	if issues := questions.Validate(qs); len(issues) > 0 && r.FormValue("force") != "true" {
		msgs := make([]string, len(issues))
		for i, is := range issues {
			msgs[i] = is.String()
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]any{"error": "validation failed", "issues": msgs})
		return
	}

	meta := questions.Meta{
		ExamType:   formOr(r, "exam_type", s.cfg.ExamType),
		Subject:    formOr(r, "subject", s.cfg.Subject),
		Chapter:    r.FormValue("chapter"),
		SourceType: formOr(r, "source_type", s.cfg.SourceType),
		Year:       year,
		Source:     filename,
	}
	w.Header().Set("Content-Type", "application/sql; charset=utf-8")
	if err := questions.WriteSQL(w, meta, qs, time.Now()); err != nil {
		s.log.Error("write question sql", "file", filename, "error", err)
	}
}

func formOr(r *http.Request, key, fallback string) string {
	if v := r.FormValue(key); v != "" {
		return v
	}
	return fallback
}
