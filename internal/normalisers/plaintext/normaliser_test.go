package plaintext

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

func TestSupportedMIMETypes(t *testing.T) {
	normaliser := New()
	mimeTypes := normaliser.SupportedMIMETypes()

	assert.Contains(t, mimeTypes, "text/plain")
	assert.Contains(t, mimeTypes, "text/x-go")
	assert.Contains(t, mimeTypes, "application/json")
	assert.Equal(t, 5, normaliser.Priority())
}

func TestNormalise_NilInput(t *testing.T) {
	result, err := New().Normalise(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Nil(t, result)
}

func TestNormalise_Success(t *testing.T) {
	raw := &domain.RawContent{Name: "notes.txt", Data: []byte("Line one.\nLine two.")}

	result, err := New().Normalise(context.Background(), raw)
	require.NoError(t, err)

	assert.Equal(t, "Line one.\nLine two.", result.Text)
	assert.Equal(t, "text", result.Format)
	assert.Empty(t, result.Title)
}

func TestNormalise_BOMAndLineEndings(t *testing.T) {
	raw := &domain.RawContent{Data: []byte("\xef\xbb\xbfFirst\r\nSecond\r\n")}

	result, err := New().Normalise(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, "First\nSecond\n", result.Text)
}

func TestNormalise_Binary(t *testing.T) {
	raw := &domain.RawContent{Data: []byte{0xff, 0xfe, 0x00, 0x01}}

	_, err := New().Normalise(context.Background(), raw)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
