package domain

// RawContent is a file or stream as read from disk or stdin, before text
// extraction.
type RawContent struct {
	// Name is the original file name or path. Empty for stdin.
	Name string

	// MIMEType is the content type (e.g., "text/html"). Detected from
	// Name and Data when empty.
	MIMEType string

	// Data is the raw bytes.
	Data []byte
}

// ExtractedText is the readable text recovered from RawContent.
type ExtractedText struct {
	// Text is the plain text to be chunked.
	Text string

	// Title is the document title found in the content, if any.
	Title string

	// Author is the author found in the content, if any.
	Author string

	// Format names the source format, e.g. "html" or "email". It is used
	// as the document content type when the caller does not set one.
	Format string
}

// ChangeType represents the type of file change.
type ChangeType int

const (
	// ChangeCreated indicates a new file.
	ChangeCreated ChangeType = iota

	// ChangeUpdated indicates a modified file.
	ChangeUpdated

	// ChangeDeleted indicates a removed file.
	ChangeDeleted
)

// String returns the change name.
func (c ChangeType) String() string {
	switch c {
	case ChangeCreated:
		return "created"
	case ChangeUpdated:
		return "updated"
	case ChangeDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// RawContentChange is a change event from a watched directory.
// Content.Data is empty for ChangeDeleted.
type RawContentChange struct {
	Type    ChangeType
	Content RawContent
}
