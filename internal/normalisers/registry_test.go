package normalisers

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/normalisers/docx"
)

// stubNormaliser records the MIME type it was called with.
type stubNormaliser struct {
	types    []string
	priority int
	format   string
	err      error
	gotMIME  string
}

func (s *stubNormaliser) SupportedMIMETypes() []string { return s.types }
func (s *stubNormaliser) Priority() int                { return s.priority }
func (s *stubNormaliser) Normalise(_ context.Context, raw *domain.RawContent) (*domain.ExtractedText, error) {
	s.gotMIME = raw.MIMEType
	if s.err != nil {
		return nil, s.err
	}
	return &domain.ExtractedText{Text: string(raw.Data), Format: s.format}, nil
}

func TestRegistry_PriorityOrder(t *testing.T) {
	r := NewRegistry()
	low := &stubNormaliser{types: []string{"text/html", "text/plain"}, priority: 5, format: "low"}
	high := &stubNormaliser{types: []string{"text/html"}, priority: 50, format: "high"}
	r.Register(low)
	r.Register(high)

	n, ok := r.Get("text/html; charset=utf-8")
	require.True(t, ok)
	assert.Same(t, high, n)

	n, ok = r.Get("TEXT/PLAIN")
	require.True(t, ok)
	assert.Same(t, low, n)

	_, ok = r.Get("image/png")
	assert.False(t, ok)

	assert.Equal(t, []string{"text/html", "text/plain"}, r.MIMETypes())
}

func TestRegistry_ExtractDetectsType(t *testing.T) {
	r := NewRegistry()
	md := &stubNormaliser{types: []string{"text/markdown"}, format: "markdown"}
	r.Register(md)

	raw := &domain.RawContent{Name: "notes/HIIT.MD", Data: []byte("# Intervals")}
	result, err := r.Extract(context.Background(), raw)
	require.NoError(t, err)

	assert.Equal(t, "markdown", result.Format)
	assert.Equal(t, "text/markdown", md.gotMIME)
	assert.Empty(t, raw.MIMEType, "caller's content is not modified")
}

func TestRegistry_ExtractExplicitType(t *testing.T) {
	r := NewRegistry()
	html := &stubNormaliser{types: []string{"text/html"}, format: "html"}
	r.Register(html)

	raw := &domain.RawContent{Name: "page.txt", MIMEType: "text/html; charset=utf-8", Data: []byte("<p>x</p>")}
	_, err := r.Extract(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, "text/html", html.gotMIME)
}

func TestRegistry_ExtractErrors(t *testing.T) {
	r := NewRegistry()
	broken := &stubNormaliser{types: []string{"text/plain"}, err: domain.ErrInvalidInput}
	r.Register(broken)

	_, err := r.Extract(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = r.Extract(context.Background(), &domain.RawContent{Name: "photo.png", Data: []byte{0x89, 'P', 'N', 'G'}})
	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)
	assert.Contains(t, err.Error(), "image/png")

	_, err = r.Extract(context.Background(), &domain.RawContent{Name: "a.txt", Data: []byte("x")})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
	assert.Contains(t, err.Error(), "extract text/plain")
}

func TestDetectMIMEType(t *testing.T) {
	tests := []struct {
		name     string
		fileName string
		data     string
		want     string
	}{
		{"markdown extension", "guide.md", "anything", "text/markdown"},
		{"upper case extension", "PAGE.HTM", "", "text/html"},
		{"docx extension", "plan.docx", "", docx.MIMEType},
		{"email extension", "thread.eml", "", "message/rfc822"},
		{"yaml extension", "batch.yml", "", "text/yaml"},
		{"empty stdin", "", "", "text/plain"},
		{"sniffed html", "", "<!DOCTYPE html><html><body><p>Hi</p></body></html>", "text/html"},
		{"sniffed text", "", "Just some words.\n", "text/plain"},
		{"unknown extension sniffed", "notes.zzz", "plain words", "text/plain"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectMIMEType(tt.fileName, []byte(tt.data)))
		})
	}
}

func TestDefault(t *testing.T) {
	r := Default()

	for _, mt := range []string{
		"text/plain",
		"text/markdown",
		"text/html",
		"application/xhtml+xml",
		"application/json",
		docx.MIMEType,
		"message/rfc822",
	} {
		_, ok := r.Get(mt)
		assert.True(t, ok, mt)
	}

	result, err := r.Extract(context.Background(), &domain.RawContent{
		Name: "page.html",
		Data: []byte("<html><head><title>Squats</title></head><body><p>Keep your back straight.</p></body></html>"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Squats", result.Title)
	assert.Equal(t, "Keep your back straight.", result.Text)
	assert.Equal(t, "html", result.Format)
}
