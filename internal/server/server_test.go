package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hetulpatel/pdfvalidator/internal/config"
	"github.com/hetulpatel/pdfvalidator/internal/events"
	"github.com/hetulpatel/pdfvalidator/internal/hashutil"
	"github.com/hetulpatel/pdfvalidator/internal/testutil"
	"github.com/hetulpatel/pdfvalidator/internal/validator"
)

type fakeValidator struct {
	calls    int
	path     string
	rules    []string
	existed  bool
	contents []byte
	outcome  *validator.Outcome
	err      error
}

func (f *fakeValidator) Validate(ctx context.Context, path string, rules []string) (*validator.Outcome, error) {
	f.calls++
	f.path = path
	f.rules = rules
	data, err := os.ReadFile(path)
	f.existed = err == nil
	f.contents = data
	return f.outcome, f.err
}

func (f *fakeValidator) Provider() string { return "stub" }

func (f *fakeValidator) Model() string { return "stub-model" }

type capturePublisher struct {
	events []events.OutcomeEvent
	err    error
}

func (p *capturePublisher) PublishOutcome(ctx context.Context, ev events.OutcomeEvent) error {
	p.events = append(p.events, ev)
	return p.err
}

func (p *capturePublisher) Close() error { return nil }

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		LLMProvider:       config.ProviderLMStudio,
		MaxFileSizeMB:     1,
		AllowedExtensions: []string{".pdf"},
		UploadDir:         t.TempDir(),
		CORSOrigins:       []string{"http://localhost:3000"},
	}
}

func newTestServer(t *testing.T, cfg *config.Config, v Validator, pub events.Publisher) http.Handler {
	t.Helper()
	srv, err := New(Options{Config: cfg, Validator: v, Publisher: pub})
	require.NoError(t, err)
	return srv.Handler()
}

// multipartBody builds a form with the given file and text fields. A nil
// file omits the file part.
func multipartBody(t *testing.T, filename string, file []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if file != nil {
		part, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write(file)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

var defaultRules = map[string]string{
	"rule1": "Document mentions annual leave entitlement",
	"rule2": "Document is signed by HR",
	"rule3": "Document states a probation period",
}

func postValidate(t *testing.T, h http.Handler, filename string, file []byte, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartBody(t, filename, file, fields)
	req := httptest.NewRequest(http.MethodPost, "/api/validate", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeDetail(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["detail"]
}

func assertDirEmpty(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "staging directory should be empty")
}

func TestValidateSuccess(t *testing.T) {
	cfg := testConfig(t)
	pdf := testutil.BuildPDF("Welcome", "Annual leave: 20 days")
	fake := &fakeValidator{outcome: &validator.Outcome{
		Results: []validator.Verdict{
			{Rule: defaultRules["rule1"], Status: validator.StatusPass, Evidence: "Page 2: 'Annual leave: 20 days'", Confidence: 90},
			{Rule: defaultRules["rule2"], Status: validator.StatusFail, Confidence: 70},
			{Rule: defaultRules["rule3"], Status: validator.StatusFail, Confidence: 65},
		},
		PageCount:      2,
		ProcessingTime: 0.42,
	}}
	pub := &capturePublisher{}
	h := newTestServer(t, cfg, fake, pub)

	rec := postValidate(t, h, "handbook.pdf", pdf, defaultRules)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	var got validator.Outcome
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, *fake.outcome, got)

	assert.Equal(t, 1, fake.calls)
	assert.True(t, fake.existed, "staged file must exist while validating")
	assert.Equal(t, pdf, fake.contents)
	assert.Equal(t, []string{defaultRules["rule1"], defaultRules["rule2"], defaultRules["rule3"]}, fake.rules)
	assert.Equal(t, cfg.UploadDir, filepath.Dir(fake.path))
	assert.True(t, strings.HasPrefix(filepath.Base(fake.path), "temp_"))
	assert.True(t, strings.HasSuffix(fake.path, "_handbook.pdf"))
	assertDirEmpty(t, cfg.UploadDir)

	require.Len(t, pub.events, 1)
	ev := pub.events[0]
	assert.Equal(t, rec.Header().Get("X-Request-ID"), ev.RequestID)
	assert.Equal(t, "handbook.pdf", ev.Filename)
	assert.Equal(t, 1, ev.Passed)
	assert.Equal(t, 2, ev.Failed)
	assert.True(t, ev.Succeeded())

	digest := hashutil.NewDigest()
	digest.Write(pdf)
	assert.Equal(t, digest.Hex(), ev.DocumentSHA256)
}

func TestValidateEndToEndWithPipeline(t *testing.T) {
	cfg := testConfig(t)
	reply := `{"results": [
		{"rule": "a", "status": "pass", "evidence": "Page 2: 'Annual leave: 20 days'", "reasoning": "explicit", "confidence": 95},
		{"rule": "b", "status": "fail", "evidence": "", "reasoning": "no signature", "confidence": 80},
		{"rule": "c", "status": "fail", "evidence": "", "reasoning": "not stated", "confidence": 75}
	]}`
	svc, err := validator.NewService(validator.Config{
		Extractor: validator.NewPDFExtractor(),
		Invoker:   &cannedInvoker{reply: "```json\n" + reply + "\n```"},
	})
	require.NoError(t, err)
	h := newTestServer(t, cfg, svc, nil)

	rec := postValidate(t, h, "Handbook.PDF", testutil.BuildPDF("Welcome", "Annual leave: 20 days"), defaultRules)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var got validator.Outcome
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 2, got.PageCount)
	require.Len(t, got.Results, 3)
	assert.Equal(t, defaultRules["rule1"], got.Results[0].Rule)
	assert.Equal(t, validator.StatusPass, got.Results[0].Status)
	assertDirEmpty(t, cfg.UploadDir)
}

type cannedInvoker struct {
	reply string
	err   error
}

func (c *cannedInvoker) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return c.reply, c.err
}

func (c *cannedInvoker) Provider() string { return "canned" }

func (c *cannedInvoker) Model() string { return "canned-model" }

func TestValidateTransportFailureCleansUp(t *testing.T) {
	cfg := testConfig(t)
	fake := &fakeValidator{err: &validator.InvocationError{Provider: "openai", Err: errors.New("dial tcp: connection refused")}}
	pub := &capturePublisher{err: errors.New("broker down")}
	h := newTestServer(t, cfg, fake, pub)

	rec := postValidate(t, h, "doc.pdf", testutil.BuildPDF("text"), defaultRules)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	detail := decodeDetail(t, rec)
	assert.Contains(t, detail, "LLM validation error")
	assert.Contains(t, detail, "connection refused")
	assert.True(t, fake.existed)
	assertDirEmpty(t, cfg.UploadDir)

	require.Len(t, pub.events, 1)
	assert.Equal(t, "invocation", pub.events[0].ErrorKind)
}

func TestValidateStageErrorsMapToStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{name: "blank rule", err: &validator.InputValidationError{Field: "rule2", Reason: "rule must not be empty"}, status: http.StatusBadRequest},
		{name: "extraction", err: &validator.ExtractionError{Err: errors.New("xref table broken")}, status: http.StatusInternalServerError},
		{name: "malformed output", err: &validator.MalformedModelOutputError{Reason: "invalid JSON"}, status: http.StatusInternalServerError},
		{name: "unclassified", err: errors.New("boom"), status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			h := newTestServer(t, cfg, &fakeValidator{err: tt.err}, nil)

			rec := postValidate(t, h, "doc.pdf", testutil.BuildPDF("text"), defaultRules)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.err.Error(), decodeDetail(t, rec))
			assertDirEmpty(t, cfg.UploadDir)
		})
	}
}

func TestValidateRejectsBeforePipeline(t *testing.T) {
	missingRule := map[string]string{"rule1": "a", "rule3": "c"}

	tests := []struct {
		name     string
		filename string
		file     []byte
		fields   map[string]string
		status   int
		detail   string
	}{
		{name: "wrong extension", filename: "notes.txt", file: []byte("plain text"), fields: defaultRules, status: http.StatusBadRequest, detail: "Only PDF files are allowed"},
		{name: "no extension", filename: "notes", file: []byte("plain text"), fields: defaultRules, status: http.StatusBadRequest, detail: "Only PDF files are allowed"},
		{name: "missing file", fields: defaultRules, status: http.StatusBadRequest, detail: "file: field required"},
		{name: "missing rule", filename: "doc.pdf", file: []byte("%PDF-1.4"), fields: missingRule, status: http.StatusBadRequest, detail: "rule2: field required"},
		{name: "oversize", filename: "big.pdf", file: bytes.Repeat([]byte("x"), 1<<20+10), fields: defaultRules, status: http.StatusRequestEntityTooLarge, detail: "File too large; maximum size is 1 MB"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			fake := &fakeValidator{}
			pub := &capturePublisher{}
			h := newTestServer(t, cfg, fake, pub)

			rec := postValidate(t, h, tt.filename, tt.file, tt.fields)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.detail, decodeDetail(t, rec))
			assert.Zero(t, fake.calls, "pipeline must not run")
			assert.Empty(t, pub.events)
			assertDirEmpty(t, cfg.UploadDir)
		})
	}
}

func TestValidateRejectsNonMultipartBody(t *testing.T) {
	cfg := testConfig(t)
	fake := &fakeValidator{}
	h := newTestServer(t, cfg, fake, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/validate", strings.NewReader(`{"rule1":"a"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "body: invalid multipart form", decodeDetail(t, rec))
	assert.Zero(t, fake.calls)
}

func TestValidateAllowsConfiguredExtensions(t *testing.T) {
	cfg := testConfig(t)
	cfg.AllowedExtensions = []string{".pdf", ".pdfa"}
	fake := &fakeValidator{outcome: &validator.Outcome{Results: []validator.Verdict{}}}
	h := newTestServer(t, cfg, fake, nil)

	rec := postValidate(t, h, "archive.PDFA", []byte("%PDF-1.4"), defaultRules)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = postValidate(t, h, "notes.txt", []byte("x"), defaultRules)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Only PDF/PDFA files are allowed", decodeDetail(t, rec))
}

func TestHealthAndRoot(t *testing.T) {
	cfg := testConfig(t)
	cfg.LLMProvider = config.ProviderOpenAI
	h := newTestServer(t, cfg, &fakeValidator{}, nil)

	tests := []struct {
		path string
		want map[string]string
	}{
		{path: "/health", want: map[string]string{"status": "healthy", "service": config.APITitle, "llm_provider": "openai"}},
		{path: "/", want: map[string]string{"message": config.APITitle, "llm_provider": "openai", "version": config.APIVersion}},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			require.Equal(t, http.StatusOK, rec.Code)
			var got map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUnknownRouteAndMethod(t *testing.T) {
	h := newTestServer(t, testConfig(t), &fakeValidator{}, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/docs", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/validate", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestCORS(t *testing.T) {
	h := newTestServer(t, testConfig(t), &fakeValidator{}, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/validate", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "content-type")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := New(Options{Validator: &fakeValidator{}})
	assert.Error(t, err)
	_, err = New(Options{Config: testConfig(t)})
	assert.Error(t, err)
}

var fixedTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func TestStagingName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "report.pdf", want: "_report.pdf"},
		{in: "../../etc/passwd.pdf", want: "_passwd.pdf"},
		{in: `C:\Users\me\scan.pdf`, want: "_scan.pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			name := stagingName(tt.in, fixedTime)
			assert.True(t, strings.HasPrefix(name, fmt.Sprintf("temp_%d_", fixedTime.Unix())), name)
			assert.True(t, strings.HasSuffix(name, tt.want), name)
			assert.NotContains(t, name, "/")
		})
	}
}
