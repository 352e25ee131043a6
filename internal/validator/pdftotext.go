package validator

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/hetulpatel/pdfvalidator/internal/config"
)

const defaultPageTimeout = 25 * time.Second

// CommandExtractor counts pages with pdfcpu and converts each page to text
// via the pdftotext CLI.
type CommandExtractor struct {
	binary  string
	timeout time.Duration
}

// NewCommandExtractor returns an extractor using the pdftotext CLI.
func NewCommandExtractor(bin string) *CommandExtractor {
	if bin == "" {
		bin = os.Getenv("PDFTOTEXT_BIN")
	}
	if bin == "" {
		bin = "pdftotext"
	}
	// pdfcpu would otherwise install a config tree under the user's home.
	model.ConfigPath = "disable"
	return &CommandExtractor{
		binary:  bin,
		timeout: defaultPageTimeout,
	}
}

// Extract runs pdftotext once per page so page boundaries stay exact.
func (e *CommandExtractor) Extract(ctx context.Context, path string) (*ExtractedDocument, error) {
	if e == nil {
		return nil, &ExtractionError{Path: path, Err: fmt.Errorf("pdf extractor is nil")}
	}
	if strings.TrimSpace(path) == "" {
		return nil, &ExtractionError{Path: path, Err: fmt.Errorf("pdf path is empty")}
	}

	total, err := api.PageCountFile(path)
	if err != nil {
		return nil, &ExtractionError{Path: path, Err: err}
	}

	pages := make([]Page, 0, total)
	for n := 1; n <= total; n++ {
		text, err := e.page(ctx, path, n)
		if err != nil {
			return nil, &ExtractionError{Path: path, Page: n, Err: err}
		}
		pages = append(pages, Page{Number: n, Text: text})
	}
	return NewExtractedDocument(pages), nil
}

func (e *CommandExtractor) page(ctx context.Context, path string, n int) (string, error) {
	cmdCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	page := strconv.Itoa(n)
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(cmdCtx, e.binary, "-layout", "-f", page, "-l", page, path, "-")
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("pdftotext failed: %w: %s", err, msg)
		}
		return "", fmt.Errorf("pdftotext failed: %w", err)
	}
	// pdftotext ends every page with a form feed.
	return strings.TrimRight(stdout.String(), "\f"), nil
}

// NewExtractor returns the extractor selected by PDF_EXTRACTOR.
func NewExtractor(kind, pdftotextBin string) (Extractor, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", config.ExtractorNative:
		return NewPDFExtractor(), nil
	case config.ExtractorPDFToText:
		return NewCommandExtractor(pdftotextBin), nil
	default:
		return nil, fmt.Errorf("validator: unknown extractor %q", kind)
	}
}
