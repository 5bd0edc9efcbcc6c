package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"io"
	"strings"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// MIMEType is the Office Open XML word processing type.
const MIMEType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles DOCX documents.
type Normaliser struct{}

// New creates a new DOCX normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{MIMEType}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50
}

// Normalise reads word/document.xml and docProps/core.xml from the
// archive. Paragraphs are separated by blank lines.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawContent) (*domain.ExtractedText, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	reader, err := zip.NewReader(bytes.NewReader(raw.Data), int64(len(raw.Data)))
	if err != nil {
		return nil, domain.ErrInvalidInput
	}

	body, err := readFile(reader, "word/document.xml")
	if err != nil {
		return nil, err
	}

	result := &domain.ExtractedText{
		Text:   parseDocumentXML(body),
		Format: "docx",
	}

	if core, err := readFile(reader, "docProps/core.xml"); err == nil && core != nil {
		var props coreXML
		if xml.Unmarshal(core, &props) == nil {
			result.Title = strings.TrimSpace(props.Title)
			result.Author = strings.TrimSpace(props.Creator)
		}
	}

	return result, nil
}

// readFile returns the named archive member, or nil if it is absent.
func readFile(reader *zip.Reader, name string) ([]byte, error) {
	for _, file := range reader.File {
		if file.Name != name {
			continue
		}

		rc, err := file.Open()
		if err != nil {
			return nil, domain.ErrInvalidInput
		}
		defer rc.Close()

		content, err := io.ReadAll(rc)
		if err != nil {
			return nil, domain.ErrInvalidInput
		}
		return content, nil
	}
	return nil, nil
}

// documentXML represents the structure of word/document.xml.
type documentXML struct {
	Body struct {
		Paragraphs []paragraph `xml:"p"`
	} `xml:"body"`
}

type paragraph struct {
	Runs []run `xml:"r"`
}

type run struct {
	Text []textElement `xml:"t"`
}

type textElement struct {
	Content string `xml:",chardata"`
}

// parseDocumentXML extracts paragraph text from the document XML.
func parseDocumentXML(content []byte) string {
	var doc documentXML
	if err := xml.Unmarshal(content, &doc); err != nil {
		return ""
	}

	paras := make([]string, 0, len(doc.Body.Paragraphs))
	for _, para := range doc.Body.Paragraphs {
		var b strings.Builder
		for _, r := range para.Runs {
			for _, text := range r.Text {
				b.WriteString(text.Content)
			}
		}
		if line := strings.TrimSpace(b.String()); line != "" {
			paras = append(paras, line)
		}
	}

	return strings.Join(paras, "\n\n")
}

// coreXML represents the structure of docProps/core.xml.
type coreXML struct {
	Title   string `xml:"title"`
	Creator string `xml:"creator"`
}
