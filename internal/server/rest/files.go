package rest

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/geocrypt/internal/server/models"
	"github.com/dmitrijs2005/geocrypt/internal/server/services"
	"github.com/go-chi/chi/v5"
)

type fileResponse struct {
	ID        string    `json:"id"`
	Filename  string    `json:"filename"`
	MimeType  string    `json:"mime_type"`
	Size      int64     `json:"size"`
	Geohash   *string   `json:"geohash"`
	CreatedAt time.Time `json:"created_at"`
}

type downloadResponse struct {
	DownloadURL string    `json:"download_url"`
	Filename    string    `json:"filename"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func toFileResponse(f *models.File) fileResponse {
	return fileResponse{
		ID:        f.ID,
		Filename:  f.DisplayName,
		MimeType:  f.MimeType,
		Size:      f.Size,
		Geohash:   f.Geohash,
		CreatedAt: f.CreatedAt,
	}
}

func (s *Server) uploadFile(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())

	if s.maxUpload > 0 {
		if r.ContentLength > s.maxUpload {
			s.writeDetail(w, r, http.StatusRequestEntityTooLarge, "File too large")
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeDetail(w, r, http.StatusRequestEntityTooLarge, "File too large")
			return
		}
		s.writeDetail(w, r, http.StatusBadRequest, "file is required")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeDetail(w, r, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()
	if r.MultipartForm != nil {
		defer func() { _ = r.MultipartForm.RemoveAll() }()
	}

	in := services.UploadInput{
		DisplayName: header.Filename,
		MimeType:    header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	}
	if g := strings.TrimSpace(r.FormValue("geohash")); g != "" {
		in.Geohash = &g
	}

	f, err := s.files.Upload(r.Context(), userID, in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.logger.Info(r.Context(), "File uploaded", "file_id", f.ID)
	s.writeJSON(w, r, http.StatusCreated, toFileResponse(f))
}

func (s *Server) listFiles(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())

	list, err := s.files.List(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	out := make([]fileResponse, 0, len(list))
	for _, f := range list {
		out = append(out, toFileResponse(f))
	}
	s.writeJSON(w, r, http.StatusOK, out)
}

func (s *Server) getFile(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())

	f, err := s.files.Get(r.Context(), chi.URLParam(r, "fileID"), userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, toFileResponse(f))
}

func (s *Server) deleteFile(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())

	if err := s.files.Delete(r.Context(), chi.URLParam(r, "fileID"), userID); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, messageResponse{Message: "File deleted successfully"})
}

func (s *Server) requestCode(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())

	if err := s.gate.RequestCode(r.Context(), chi.URLParam(r, "fileID"), userID); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusAccepted, messageResponse{Message: "OTP sent"})
}

func (s *Server) download(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())

	q := r.URL.Query()
	geohash, code := q.Get("geohash"), q.Get("otp")
	if geohash == "" || code == "" {
		s.writeDetail(w, r, http.StatusBadRequest, "geohash and otp are required")
		return
	}

	rc, err := s.gate.Verify(r.Context(), chi.URLParam(r, "fileID"), userID, geohash, code)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, r, http.StatusOK, downloadResponse{
		DownloadURL: rc.URL,
		Filename:    rc.Filename,
		ExpiresAt:   rc.ExpiresAt,
	})
}
