package loader

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Page is the extracted text of one PDF page.
type Page struct {
	Number int // 1-based page number.
	Text   string
}

// PDFExtractor reads page text from PDF files on disk.
type PDFExtractor struct{}

// ExtractPages implements the page source used by the ingestion pipeline.
func (PDFExtractor) ExtractPages(path string) ([]Page, error) {
	return ExtractPages(path)
}

// ExtractPages opens the PDF at path and returns the normalized text of
// every non-null page in order.
func ExtractPages(path string) (pages []Page, err error) {
	// The PDF parser panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			pages, err = nil, fmt.Errorf("loader: malformed pdf %s: %v", path, r)
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("loader: open pdf %s: %w", path, err)
	}
	defer f.Close()

	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("loader: page %d of %s: %w", i, path, err)
		}
		pages = append(pages, Page{Number: i, Text: NormalizeText(text)})
	}
	return pages, nil
}

var horizontalSpace = regexp.MustCompile(`[ \t\f\v]+`)

// NormalizeText unifies line endings, collapses runs of horizontal
// whitespace and trims trailing whitespace on every line.
func NormalizeText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = horizontalSpace.ReplaceAllString(s, " ")

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " ")
	}
	return strings.TrimRight(strings.Join(lines, "\n"), "\n")
}
