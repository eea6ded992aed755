package textextractor

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRemote struct {
	text  string
	err   error
	calls int
	mime  string
}

func (f *fakeRemote) Extract(_ context.Context, _ []byte, contentType string) (string, error) {
	f.calls++
	f.mime = contentType
	return f.text, f.err
}

func buildDocx(t *testing.T, paragraphs ...string) []byte {
	t.Helper()
	var body string
	for _, p := range paragraphs {
		body += `<w:p><w:r><w:t>` + p + `</w:t></w:r></w:p>`
	}
	files := map[string]string{
		"[Content_Types].xml":          `<?xml version="1.0" encoding="UTF-8"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"></Types>`,
		"word/_rels/document.xml.rels": `<?xml version="1.0" encoding="UTF-8"?><Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"></Relationships>`,
		"word/document.xml":            `<?xml version="1.0" encoding="UTF-8"?><w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` + body + `</w:body></w:document>`,
	}
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestExtractor_PlainText(t *testing.T) {
	remote := &fakeRemote{}
	e := New(WithRemote(remote))

	p := e.Extract(context.Background(), []byte("Ada Lovelace\nada@example.com\n+1 555 123 4567"), "text/plain; charset=utf-8")
	assert.Equal(t, "Ada Lovelace", p.Name)
	assert.Equal(t, "ada@example.com", p.Email)
	assert.Equal(t, "+1 555 123 4567", p.Phone)
	assert.Zero(t, remote.calls)
}

func TestExtractor_Docx(t *testing.T) {
	remote := &fakeRemote{}
	e := New(WithRemote(remote))

	data := buildDocx(t, "Grace Hopper", "grace@navy.mil &amp; more", "555-987-6543")
	p := e.Extract(context.Background(), data, MimeDOCX)
	assert.Equal(t, "Grace Hopper", p.Name)
	assert.Equal(t, "grace@navy.mil", p.Email)
	assert.Equal(t, "555-987-6543", p.Phone)
	assert.Contains(t, p.RawText, "grace@navy.mil & more")
	assert.Zero(t, remote.calls)
}

func TestExtractor_CorruptDocxFallsBackToRemote(t *testing.T) {
	remote := &fakeRemote{text: "Alan Turing\nalan@bletchley.uk"}
	e := New(WithRemote(remote))

	p := e.Extract(context.Background(), []byte("not a zip"), MimeDOCX)
	assert.Equal(t, 1, remote.calls)
	assert.Equal(t, "Alan Turing", p.Name)
	assert.Equal(t, "alan@bletchley.uk", p.Email)
}

func TestExtractor_PDFWithoutLicenseUsesRemote(t *testing.T) {
	remote := &fakeRemote{text: "Barbara Liskov"}
	e := New(WithRemote(remote), WithPDFLicense(""))

	p := e.Extract(context.Background(), []byte("%PDF-1.4"), MimePDF)
	assert.Equal(t, 1, remote.calls)
	assert.Equal(t, MimePDF, remote.mime)
	assert.Equal(t, "Barbara Liskov", p.Name)
}

func TestExtractor_NeverFails(t *testing.T) {
	tests := []struct {
		name   string
		remote RemoteExtractor
	}{
		{name: "no remote"},
		{name: "remote error", remote: &fakeRemote{err: errors.New("tika down")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var opts []Option
			if tt.remote != nil {
				opts = append(opts, WithRemote(tt.remote))
			}
			p := New(opts...).Extract(context.Background(), []byte("%PDF-1.4"), MimePDF)
			assert.Empty(t, p.Name)
			assert.Empty(t, p.Email)
			assert.Empty(t, p.Phone)
			assert.Empty(t, p.RawText)
		})
	}
}

func TestBaseMime(t *testing.T) {
	assert.Equal(t, "text/plain", baseMime(" Text/Plain; charset=utf-8"))
	assert.Equal(t, MimePDF, baseMime(MimePDF))
}
