package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"sales-import/internal/domain"
	"sales-import/internal/infra/logging"
	"sales-import/internal/infra/metrics"
	"sales-import/internal/infra/tabular"
	"sales-import/internal/usecase"
)

const (
	UploadField = "file"
	xlsxMIME    = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type Options struct {
	APIKey           string
	MaxUploadBytes   int64
	Limiter          Limiter
	UploadsPerMinute int
	ReadTimeout      time.Duration
}

// Server exposes the import use case over HTTP.
type Server struct {
	importUC usecase.ImportUseCase
	opts     Options
	log      *zerolog.Logger
}

func NewServer(importUC usecase.ImportUseCase, opts Options, logger *zerolog.Logger) *Server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 50 << 20
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 10 * time.Second
	}
	l := logger.With().Str("component", "api").Logger()
	return &Server{importUC: importUC, opts: opts, log: &l}
}

// Routes builds the chi router with the full middleware chain.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(TraceID(), RequestLog(s.log), Recover(s.log))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1/imports", func(r chi.Router) {
		r.Use(APIKey(s.opts.APIKey))
		r.With(RateLimit(s.opts.Limiter, s.opts.UploadsPerMinute, s.log)).Post("/", s.handleUpload)

		r.Group(func(r chi.Router) {
			r.Use(Timeout(s.opts.ReadTimeout))
			r.Get("/", s.handleList)
			r.Get("/template", s.handleTemplate)
			r.Get("/{id}", s.handleStatus)
		})
	})
	return r
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logging.With(ctx, s.log)

	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	upload, err := spoolUpload(r, UploadField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			writeError(w, http.StatusRequestEntityTooLarge, "file exceeds the upload limit")
		case errors.Is(err, domain.ErrUnsupportedFileFormat), errors.Is(err, errNoUpload):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			log.Error().Err(err).Msg("failed to receive upload")
			writeError(w, http.StatusBadRequest, "invalid multipart upload")
		}
		return
	}

	id, err := s.importUC.Submit(ctx, upload.FileName, upload)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUnsupportedFileFormat):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, domain.ErrQueueFull):
			w.Header().Set("Retry-After", "30")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error(), "import_id": id})
		default:
			log.Error().Err(err).Str("file_name", upload.FileName).Msg("failed to submit import")
			writeError(w, http.StatusInternalServerError, "failed to submit import")
		}
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"import_id": id})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	job, err := s.importUC.GetStatus(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			writeError(w, http.StatusNotFound, "import not found")
			return
		}
		s.internalError(w, r, err, "failed to load import")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	jobs, err := s.importUC.ListRecent(r.Context(), limit)
	if err != nil {
		s.internalError(w, r, err, "failed to list imports")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": jobs})
}

func (s *Server) handleTemplate(w http.ResponseWriter, r *http.Request) {
	b, err := s.importUC.Template()
	if err != nil {
		s.internalError(w, r, err, "failed to build template")
		return
	}
	w.Header().Set("Content-Type", xlsxMIME)
	w.Header().Set("Content-Disposition", `attachment; filename="`+tabular.TemplateFileName+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(b)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	l := logging.With(r.Context(), s.log)
	l.Error().Err(err).Msg(msg)
	writeError(w, http.StatusInternalServerError, msg)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
