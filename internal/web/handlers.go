package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/salesmerge/internal/core"
	"github.com/JonMunkholm/salesmerge/internal/logging"
	"github.com/JonMunkholm/salesmerge/internal/mojibake"
	"github.com/JonMunkholm/salesmerge/internal/sheet"
	"github.com/JonMunkholm/salesmerge/internal/web/templates"
)

const (
	// multipartMemory is how much of an upload is buffered before spilling to disk.
	multipartMemory = 32 << 20

	// defaultHistoryLimit is the number of merges the dashboard and API list.
	defaultHistoryLimit = 10

	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var errNoFile = errors.New("no file provided")

// uploadResult is the per-file entry of an upload response.
type uploadResult struct {
	Name      string              `json:"name"`
	File      *core.ProcessedFile `json:"file,omitempty"`
	Error     string              `json:"error,omitempty"`
	Code      string              `json:"code,omitempty"`
	Discarded bool                `json:"discarded,omitempty"`
}

type filesResponse struct {
	Files     []core.ProcessedFile `json:"files"`
	TotalRows int                  `json:"totalRows"`
}

type uploadResponse struct {
	Results   []uploadResult `json:"results"`
	TotalRows int            `json:"totalRows"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"status":    "ok",
		"files":     len(s.service.Files()),
		"totalRows": s.service.TotalRows(),
		"parsers":   s.service.Limiter().Status(),
		"collation": s.service.Locale(),
		"repair":    mojibake.Version,
	})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	files := s.service.Files()
	views := make([]templates.FileView, len(files))
	for i, f := range files {
		views[i] = templates.FileView{
			ID:       f.ID,
			Name:     f.Name,
			RowCount: f.RowCount,
			Headers:  f.Headers,
			Error:    f.Error,
			Loaded:   f.Loaded,
		}
	}

	var history []templates.HistoryView
	recent, err := s.service.History(ctx, defaultHistoryLimit)
	if err != nil {
		logging.FromContext(ctx).Warn("load merge history failed", "error", err)
	}
	for _, rec := range recent {
		history = append(history, templates.HistoryView{
			OutputName: rec.OutputName,
			SortKey:    rec.SortKey,
			Files:      len(rec.FileNames),
			TotalRows:  rec.TotalRows,
			CreatedAt:  rec.CreatedAt,
		})
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err = templates.Dashboard(templates.DashboardData{
		Files:      views,
		TotalRows:  s.service.TotalRows(),
		SortKey:    s.cfg.Merge.SortKey,
		OutputName: core.DefaultOutputName(s.now()),
		History:    history,
	}).Render(ctx, w)
	if err != nil {
		logging.FromContext(ctx).Error("render dashboard failed", "error", err)
	}
}

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, filesResponse{
		Files:     s.service.Files(),
		TotalRows: s.service.TotalRows(),
	})
}

// handleUpload ingests every file of the multipart field "files". One bad
// file never fails the request: its result carries the error instead.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	maxSize := s.cfg.Upload.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize*int64(s.cfg.Upload.MaxFiles)+multipartMemory)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			s.respondError(w, r, fmt.Errorf("%w: upload exceeds %d bytes", core.ErrFileTooLarge, tooBig.Limit), http.StatusRequestEntityTooLarge)
			return
		}
		s.respondError(w, r, fmt.Errorf("%w: %v", errNoFile, err), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		headers = r.MultipartForm.File["file"]
	}
	if len(headers) == 0 {
		s.respondError(w, r, errNoFile, http.StatusBadRequest)
		return
	}
	if len(headers) > s.cfg.Upload.MaxFiles {
		s.respondError(w, r, fmt.Errorf("too many files: %d exceeds %d", len(headers), s.cfg.Upload.MaxFiles), http.StatusBadRequest)
		return
	}

	results := make([]uploadResult, len(headers))
	var sources []core.Source
	var slots []int
	for i, fh := range headers {
		results[i].Name = fh.Filename
		if fh.Size > maxSize {
			s.fail(&results[i], &core.ParseError{
				FileName: fh.Filename,
				Err:      fmt.Errorf("%w: %d bytes exceeds limit of %d", core.ErrFileTooLarge, fh.Size, maxSize),
			})
			continue
		}
		data, err := readPart(fh)
		if err != nil {
			s.fail(&results[i], &core.ParseError{FileName: fh.Filename, Err: err})
			continue
		}
		sources = append(sources, core.Source{Name: fh.Filename, Data: data})
		slots = append(slots, i)
	}

	ctx := WithRequestMetadata(r.Context(), r)
	logging.WithFields(ctx, "files", len(sources)).Info("ingest started")

	for j, out := range s.service.IngestBatch(ctx, sources) {
		res := &results[slots[j]]
		switch {
		case out.Err != nil:
			s.fail(res, out.Err)
		case out.Discarded:
			res.Discarded = true
		default:
			res.File = out.File
		}
	}

	writeJSON(w, uploadResponse{Results: results, TotalRows: s.service.TotalRows()})
}

func (s *Server) fail(res *uploadResult, err error) {
	msg := core.MapError(err)
	res.Error = msg.Message
	res.Code = msg.Code
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (s *Server) handleRemoveFile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.service.RemoveFile(id); err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	s.handleListFiles(w, r)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.service.Reset()
	s.handleListFiles(w, r)
}

// handleMerge exports the working set as an xlsx attachment. When no file
// has the sort key and force is unset it answers 409 so the client can
// confirm.
func (s *Server) handleMerge(w http.ResponseWriter, r *http.Request) {
	var req core.MergeRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			s.respondError(w, r, fmt.Errorf("invalid merge request: %w", err), http.StatusBadRequest)
			return
		}
	}
	if req.SortKey == "" {
		req.SortKey = s.cfg.Merge.SortKey
	}
	if req.FileName == "" {
		req.FileName = core.DefaultOutputName(s.now())
	}
	req.FileName = sheet.EnsureExtension(req.FileName)

	ctx := WithRequestMetadata(r.Context(), r)

	var buf bytes.Buffer
	rec, err := s.service.Export(ctx, &buf, req)
	if err != nil {
		if warn, ok := core.IsSortKeyWarning(err); ok {
			s.respondSortKeyWarning(w, r, warn)
			return
		}
		s.respondError(w, r, err, statusFor(err))
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": rec.OutputName}))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("X-Output-Name", url.PathEscape(rec.OutputName))
	w.Header().Set("X-Total-Rows", strconv.Itoa(rec.TotalRows))
	if _, err := buf.WriteTo(w); err != nil {
		logging.FromContext(ctx).Warn("write merged workbook failed", "error", err)
	}
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := parseIntParam(r, "limit", defaultHistoryLimit)
	recs, err := s.service.History(r.Context(), limit)
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"history": recs})
}

// parseIntParam parses a positive integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}
