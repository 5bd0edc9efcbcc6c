package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// createTestDOCX creates a minimal DOCX file in memory.
func createTestDOCX(t *testing.T, documentXML, coreXML string) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	w := zip.NewWriter(buf)

	write := func(name, body string) {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(body))
		require.NoError(t, err)
	}

	write("[Content_Types].xml", `<?xml version="1.0" encoding="UTF-8"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"/>`)
	if documentXML != "" {
		write("word/document.xml", documentXML)
	}
	if coreXML != "" {
		write("docProps/core.xml", coreXML)
	}

	require.NoError(t, w.Close())
	return buf.Bytes()
}

const twoParagraphs = `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
<w:p><w:r><w:t>Hello </w:t></w:r><w:r><w:t>World</w:t></w:r></w:p>
<w:p></w:p>
<w:p><w:r><w:t>Second paragraph.</w:t></w:r></w:p>
</w:body>
</w:document>`

func TestSupportedMIMETypes(t *testing.T) {
	normaliser := New()
	assert.Equal(t, []string{MIMEType}, normaliser.SupportedMIMETypes())
	assert.Equal(t, 50, normaliser.Priority())
}

func TestNormalise_NilInput(t *testing.T) {
	result, err := New().Normalise(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Nil(t, result)
}

func TestNormalise_NotAZip(t *testing.T) {
	_, err := New().Normalise(context.Background(), &domain.RawContent{Data: []byte("plain text")})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestNormalise_Success(t *testing.T) {
	coreXML := `<?xml version="1.0" encoding="UTF-8"?>
<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties"
 xmlns:dc="http://purl.org/dc/elements/1.1/">
<dc:title>Training Plan</dc:title>
<dc:creator>Ana Lima</dc:creator>
</cp:coreProperties>`

	raw := &domain.RawContent{Name: "plan.docx", Data: createTestDOCX(t, twoParagraphs, coreXML)}

	result, err := New().Normalise(context.Background(), raw)
	require.NoError(t, err)

	assert.Equal(t, "Hello World\n\nSecond paragraph.", result.Text)
	assert.Equal(t, "Training Plan", result.Title)
	assert.Equal(t, "Ana Lima", result.Author)
	assert.Equal(t, "docx", result.Format)
}

func TestNormalise_NoCoreProperties(t *testing.T) {
	raw := &domain.RawContent{Data: createTestDOCX(t, twoParagraphs, "")}

	result, err := New().Normalise(context.Background(), raw)
	require.NoError(t, err)
	assert.Empty(t, result.Title)
	assert.Contains(t, result.Text, "Hello World")
}

func TestNormalise_MissingDocument(t *testing.T) {
	raw := &domain.RawContent{Data: createTestDOCX(t, "", "")}

	result, err := New().Normalise(context.Background(), raw)
	require.NoError(t, err)
	assert.Empty(t, result.Text)
}
