// Package server exposes the validation pipeline over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/cors"

	"github.com/hetulpatel/pdfvalidator/internal/config"
	"github.com/hetulpatel/pdfvalidator/internal/events"
	"github.com/hetulpatel/pdfvalidator/internal/logging"
	"github.com/hetulpatel/pdfvalidator/internal/validator"
)

const (
	// formOverhead covers multipart boundaries and the rule fields on top of
	// the file size limit.
	formOverhead   = 1 << 20
	maxFormMemory  = 32 << 20
	publishTimeout = 5 * time.Second
)

var ruleFields = []string{"rule1", "rule2", "rule3"}

// Validator is the part of validator.Service the HTTP layer depends on.
type Validator interface {
	Validate(ctx context.Context, path string, rules []string) (*validator.Outcome, error)
	Provider() string
	Model() string
}

type Options struct {
	Config    *config.Config
	Validator Validator
	Publisher events.Publisher
}

type Server struct {
	cfg       *config.Config
	validator Validator
	publisher events.Publisher
}

func New(opts Options) (*Server, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("server: config is required")
	}
	if opts.Validator == nil {
		return nil, fmt.Errorf("server: validator is required")
	}
	pub := opts.Publisher
	if pub == nil {
		pub = events.Nop{}
	}
	return &Server{cfg: opts.Config, validator: opts.Validator, publisher: pub}, nil
}

// Handler returns the routed handler wrapped in the CORS policy.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/validate", s.handleValidate)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /{$}", s.handleRoot)

	c := cors.New(cors.Options{
		AllowedOrigins:   s.cfg.CORSOrigins,
		AllowCredentials: true,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch,
			http.MethodDelete, http.MethodHead, http.MethodOptions,
		},
		AllowedHeaders: []string{"*"},
	})
	return c.Handler(mux)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":       "healthy",
		"service":      config.APITitle,
		"llm_provider": s.cfg.LLMProvider,
	})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message":      config.APITitle,
		"llm_provider": s.cfg.LLMProvider,
		"version":      config.APIVersion,
	})
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	reqID := uuid.NewString()
	w.Header().Set("X-Request-ID", reqID)
	limit := s.cfg.MaxUploadBytes()

	r.Body = http.MaxBytesReader(w, r.Body, limit+formOverhead)
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) || strings.Contains(err.Error(), "request body too large") {
			s.fail(w, reqID, &errTooLarge{limit: limit})
			return
		}
		s.fail(w, reqID, &validator.InputValidationError{Field: "body", Reason: "invalid multipart form"})
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.fail(w, reqID, &validator.InputValidationError{Field: "file", Reason: "field required"})
		return
	}
	defer file.Close()

	if !s.extensionAllowed(header.Filename) {
		s.fail(w, reqID, &validator.InputValidationError{Reason: s.extensionReason()})
		return
	}

	rules := make([]string, 0, len(ruleFields))
	for _, field := range ruleFields {
		vals, ok := r.MultipartForm.Value[field]
		if !ok || len(vals) == 0 {
			s.fail(w, reqID, &validator.InputValidationError{Field: field, Reason: "field required"})
			return
		}
		rules = append(rules, vals[0])
	}

	staged, err := stageUpload(s.cfg.UploadDir, header.Filename, file, limit)
	if err != nil {
		s.fail(w, reqID, err)
		return
	}
	defer func() {
		if err := staged.remove(); err != nil {
			logging.Warnf("[api] %s remove staging file %s: %v", reqID, staged.Path, err)
		}
	}()
	logging.Infof("[api] %s staged %s (%d bytes)", reqID, header.Filename, staged.Size)

	outcome, err := s.validator.Validate(r.Context(), staged.Path, rules)
	s.publish(r.Context(), events.Request{
		RequestID:      reqID,
		Filename:       header.Filename,
		DocumentSHA256: staged.SHA256,
		Rules:          rules,
		Provider:       s.validator.Provider(),
		Model:          s.validator.Model(),
	}, outcome, err)
	if err != nil {
		s.fail(w, reqID, err)
		return
	}

	logging.Infof("[api] %s validated %s: %d/%d passed in %.2fs",
		reqID, header.Filename, outcome.Passed(), len(outcome.Results), outcome.ProcessingTime)
	writeJSON(w, http.StatusOK, outcome)
}

func (s *Server) extensionAllowed(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return ext != "" && slices.Contains(s.cfg.AllowedExtensions, ext)
}

// extensionReason renders e.g. "Only PDF files are allowed".
func (s *Server) extensionReason() string {
	names := make([]string, 0, len(s.cfg.AllowedExtensions))
	for _, ext := range s.cfg.AllowedExtensions {
		names = append(names, strings.ToUpper(strings.TrimPrefix(ext, ".")))
	}
	return fmt.Sprintf("Only %s files are allowed", strings.Join(names, "/"))
}

// publish sends the outcome event. Failures are logged only; the caller's
// response does not depend on the event stream.
func (s *Server) publish(ctx context.Context, req events.Request, outcome *validator.Outcome, err error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if pubErr := s.publisher.PublishOutcome(ctx, events.NewOutcomeEvent(req, outcome, err)); pubErr != nil {
		logging.Warnf("[api] %s publish outcome: %v", req.RequestID, pubErr)
	}
}

func (s *Server) fail(w http.ResponseWriter, reqID string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logging.Errorf("[api] %s %s error: %v", reqID, validator.Kind(err), err)
	} else {
		logging.Infof("[api] %s rejected: %v", reqID, err)
	}
	writeJSON(w, status, map[string]string{"detail": err.Error()})
}

func statusFor(err error) int {
	var (
		inputErr *validator.InputValidationError
		sizeErr  *errTooLarge
	)
	switch {
	case errors.As(err, &inputErr):
		return http.StatusBadRequest
	case errors.As(err, &sizeErr):
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.Errorf("[api] write response: %v", err)
	}
}
