package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/usergroups/internal/artifact"
	"github.com/JonMunkholm/usergroups/internal/core"
	"github.com/JonMunkholm/usergroups/internal/session"
	"github.com/JonMunkholm/usergroups/internal/web/templates"
)

// maxSelectBody bounds the select request body: the content limit plus
// room for the other fields.
const maxSelectBody = session.MaxContentBytes + 16<<10

// uploadField is the multipart field carrying the identifier file.
const uploadField = "uid_file"

// handleIndex renders the single-page form, prefilled from the session.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	sum, err := s.service.Session(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}

	data := templates.IndexData{
		State:       sum.State,
		Filename:    sum.Filename,
		FileID:      sum.FileID,
		Total:       sum.Total,
		MaxFileSize: s.cfg.Upload.MaxFileSize,
	}
	if sel := sum.Selection; sel != nil {
		data.ArchiveName = sel.Filename
		data.Category = sel.Category
		data.Rate = sel.Rate
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.Index(data).Render(r.Context(), w); err != nil {
		respondError(w, r, err)
	}
}

// handleUpload accepts an identifier file and makes it the current session.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	defer removeForm(r)
	file, header, err := s.formFile(w, r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	defer file.Close()

	res, err := s.service.Upload(r.Context(), header.Filename, file)
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// handleInspect reports how a file would be read without changing the session.
func (s *Server) handleInspect(w http.ResponseWriter, r *http.Request) {
	defer removeForm(r)
	file, header, err := s.formFile(w, r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	defer file.Close()

	ins, err := s.service.Inspect(r.Context(), header.Filename, file)
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, ins)
}

// formFile extracts the identifier file from a multipart request. Callers
// defer removeForm to drop the parser's temporary files.
func (s *Server) formFile(w http.ResponseWriter, r *http.Request) (multipart.File, *multipart.FileHeader, error) {
	// Allow for the multipart envelope around the file itself.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxFileSize+1<<20)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return nil, nil, formError(err)
	}

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		return nil, nil, formError(err)
	}
	return file, header, nil
}

func removeForm(r *http.Request) {
	if r.MultipartForm != nil {
		r.MultipartForm.RemoveAll()
	}
}

// formError classifies multipart parsing failures.
func formError(err error) error {
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr):
		return fmt.Errorf("%w: exceeds %d bytes", core.ErrFileTooLarge, maxErr.Limit)
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		return core.ErrNoFile
	case core.IsUserFacing(err):
		// The multipart reader may flatten a body limit error to text.
		return err
	}
	return fmt.Errorf("%w: %v", core.ErrNoFile, err)
}

// handleSelect applies category, open rate and content to the current upload.
func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var sel session.Selection

	r.Body = http.MaxBytesReader(w, r.Body, maxSelectBody)
	if err := json.NewDecoder(r.Body).Decode(&sel); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			err = fmt.Errorf("%w: request body exceeds %d bytes", session.ErrInvalidSelection, maxErr.Limit)
		} else {
			err = fmt.Errorf("%w: %v", session.ErrInvalidSelection, err)
		}
		respondError(w, r, err)
		return
	}

	preview, err := s.service.Select(r.Context(), sel)
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, preview)
}

// handleDownload packages the current selection and streams the archive.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	d, err := s.service.Download(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	defer d.Close()

	serveArchive(w, r, d)
}

// handleArchive streams an archive that was packaged earlier.
func (s *Server) handleArchive(w http.ResponseWriter, r *http.Request) {
	d, err := s.service.Archive(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	defer d.Close()

	serveArchive(w, r, d)
}

func serveArchive(w http.ResponseWriter, r *http.Request, d *artifact.Delivery) {
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": d.Filename}))
	http.ServeContent(w, r, d.Filename, d.ModTime, d)
}

// handleSession returns the current session summary.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	sum, err := s.service.Session(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

type healthResponse struct {
	Status string          `json:"status"`
	Gate   core.GateStatus `json:"gate"`
}

// handleHealth reports liveness. A busy gate is still healthy.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Gate: s.service.GateStatus()})
}
