package textextractor

import (
	"bytes"
	"errors"
	"fmt"
	"html"
	"regexp"
	"strings"
	"sync"

	"github.com/nguyenthenguyen/docx"
	"github.com/unidoc/unipdf/v3/common/license"
	"github.com/unidoc/unipdf/v3/extractor"
	"github.com/unidoc/unipdf/v3/model"
)

var (
	paragraphEnd = regexp.MustCompile(`</w:p>|<w:br/>|<w:cr/>`)
	tabTag       = regexp.MustCompile(`<w:tab/>`)
	xmlTag       = regexp.MustCompile(`<[^>]+>`)
)

// docxText reads the body of a DOCX archive, one paragraph per line.
func docxText(data []byte) (string, error) {
	r, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("op=docx.read: %w", err)
	}
	defer func() { _ = r.Close() }()
	body := r.Editable().GetContent()
	body = paragraphEnd.ReplaceAllString(body, "\n")
	body = tabTag.ReplaceAllString(body, "\t")
	body = xmlTag.ReplaceAllString(body, "")
	return html.UnescapeString(body), nil
}

var (
	licenseOnce sync.Once
	licenseErr  error
)

// setPDFLicense installs the metered unipdf key once per process.
func setPDFLicense(key string) error {
	licenseOnce.Do(func() { licenseErr = license.SetMeteredKey(key) })
	return licenseErr
}

// pdfText extracts every page with unipdf, one page per block.
func pdfText(data []byte) (string, error) {
	reader, err := model.NewPdfReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("op=pdf.read: %w", err)
	}
	n, err := reader.GetNumPages()
	if err != nil {
		return "", fmt.Errorf("op=pdf.pages: %w", err)
	}
	var b strings.Builder
	for i := 1; i <= n; i++ {
		page, err := reader.GetPage(i)
		if err != nil {
			continue
		}
		ex, err := extractor.New(page)
		if err != nil {
			continue
		}
		text, err := ex.ExtractText()
		if err != nil {
			continue
		}
		b.WriteString(text)
		b.WriteString("\n")
	}
	if strings.TrimSpace(b.String()) == "" {
		return "", errors.New("op=pdf.extract: no text on any page")
	}
	return b.String(), nil
}
