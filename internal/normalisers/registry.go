package normalisers

import (
	"context"
	"fmt"
	"mime"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/normalisers/docx"
)

// Registry maps MIME types to normalisers. Register all normalisers
// before sharing a Registry between goroutines.
type Registry struct {
	byMIME map[string][]driven.Normaliser
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byMIME: make(map[string][]driven.Normaliser),
	}
}

// Register adds a normaliser under each MIME type it supports.
// Normalisers sharing a type are ordered by descending priority.
func (r *Registry) Register(n driven.Normaliser) {
	for _, mt := range n.SupportedMIMETypes() {
		list := append(r.byMIME[mt], n)
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].Priority() > list[j].Priority()
		})
		r.byMIME[mt] = list
	}
}

// Get returns the highest priority normaliser for a MIME type.
// Parameters such as charset are ignored.
func (r *Registry) Get(mimeType string) (driven.Normaliser, bool) {
	list := r.byMIME[baseType(mimeType)]
	if len(list) == 0 {
		return nil, false
	}
	return list[0], true
}

// MIMETypes returns every registered MIME type, sorted.
func (r *Registry) MIMETypes() []string {
	types := make([]string, 0, len(r.byMIME))
	for mt := range r.byMIME {
		types = append(types, mt)
	}
	sort.Strings(types)
	return types
}

// Extract detects the MIME type of raw when unset and runs the matching
// normaliser. Types with no normaliser fail with domain.ErrUnsupportedFormat.
func (r *Registry) Extract(ctx context.Context, raw *domain.RawContent) (*domain.ExtractedText, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	mt := raw.MIMEType
	if mt == "" {
		mt = DetectMIMEType(raw.Name, raw.Data)
	}

	n, ok := r.Get(mt)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedFormat, baseType(mt))
	}

	detected := *raw
	detected.MIMEType = baseType(mt)
	result, err := n.Normalise(ctx, &detected)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", detected.MIMEType, err)
	}
	return result, nil
}

// extensionTypes covers extensions that system MIME tables often lack.
var extensionTypes = map[string]string{
	".md":       "text/markdown",
	".markdown": "text/markdown",
	".txt":      "text/plain",
	".text":     "text/plain",
	".log":      "text/plain",
	".rst":      "text/plain",
	".html":     "text/html",
	".htm":      "text/html",
	".xhtml":    "application/xhtml+xml",
	".eml":      "message/rfc822",
	".docx":     docx.MIMEType,
	".csv":      "text/csv",
	".json":     "application/json",
	".xml":      "text/xml",
	".yaml":     "text/yaml",
	".yml":      "text/yaml",
	".toml":     "text/toml",
	".go":       "text/x-go",
	".py":       "text/x-python",
	".rs":       "text/x-rust",
	".java":     "text/x-java",
	".c":        "text/x-c",
	".h":        "text/x-c",
	".cpp":      "text/x-c++",
	".rb":       "text/x-ruby",
	".sh":       "text/x-shellscript",
	".sql":      "text/x-sql",
	".js":       "text/javascript",
	".ts":       "text/typescript",
	".css":      "text/css",
}

// DetectMIMEType guesses a MIME type from the file extension, falling
// back to sniffing the content. Empty content is treated as plain text.
func DetectMIMEType(name string, data []byte) string {
	if ext := strings.ToLower(filepath.Ext(name)); ext != "" {
		if mt, ok := extensionTypes[ext]; ok {
			return mt
		}
		if mt := mime.TypeByExtension(ext); mt != "" {
			return baseType(mt)
		}
	}
	if len(data) == 0 {
		return "text/plain"
	}
	return baseType(mimetype.Detect(data).String())
}

// baseType strips parameters and normalises case.
func baseType(mt string) string {
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = mt[:i]
	}
	return strings.ToLower(strings.TrimSpace(mt))
}
