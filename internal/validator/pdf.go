package validator

import (
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PageMarker formats the delimiter placed before each page's text. The
// prompt tells the model to cite pages using this marker.
func PageMarker(n int) string {
	return fmt.Sprintf("\n--- Page %d ---\n", n)
}

// NewExtractedDocument assembles the page-annotated full text from pages
// already in document order.
func NewExtractedDocument(pages []Page) *ExtractedDocument {
	var b strings.Builder
	for _, p := range pages {
		b.WriteString(PageMarker(p.Number))
		b.WriteString(p.Text)
	}
	if pages == nil {
		pages = []Page{}
	}
	return &ExtractedDocument{
		FullText:  b.String(),
		PageCount: len(pages),
		Pages:     pages,
	}
}

// PDFExtractor reads PDF text in-process.
type PDFExtractor struct{}

// NewPDFExtractor returns the in-process extractor.
func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

// Extract opens path read-only and returns the text of every page. Pages
// without a text layer come back as empty strings.
func (e *PDFExtractor) Extract(ctx context.Context, path string) (doc *ExtractedDocument, err error) {
	if strings.TrimSpace(path) == "" {
		return nil, &ExtractionError{Path: path, Err: fmt.Errorf("pdf path is empty")}
	}

	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, &ExtractionError{Path: path, Err: err}
	}
	defer f.Close()

	// The decoder panics on some malformed object graphs.
	defer func() {
		if r := recover(); r != nil {
			doc = nil
			err = &ExtractionError{Path: path, Err: fmt.Errorf("%v", r)}
		}
	}()

	total := reader.NumPage()
	pages := make([]Page, 0, total)
	for n := 1; n <= total; n++ {
		if err := ctx.Err(); err != nil {
			return nil, &ExtractionError{Path: path, Page: n, Err: err}
		}
		text, err := pageText(reader.Page(n))
		if err != nil {
			return nil, &ExtractionError{Path: path, Page: n, Err: err}
		}
		pages = append(pages, Page{Number: n, Text: text})
	}
	return NewExtractedDocument(pages), nil
}

func pageText(p pdf.Page) (string, error) {
	if p.V.IsNull() || p.V.Key("Contents").IsNull() {
		return "", nil
	}
	return p.GetPlainText(nil)
}
