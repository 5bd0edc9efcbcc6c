package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// Flags shared by add and update.
var (
	docID          string
	docDomain      string
	docSource      string
	docContentType string
	docTitle       string
	docAuthor      string
	docTags        []string
	docRaw         bool
	docJSON        bool
)

var addCmd = &cobra.Command{
	Use:   "add [file]",
	Short: "Add a document to a domain",
	Long: `Chunks, embeds and stores a document in a knowledge domain.

Content is read from the file argument, or from stdin when the argument is
omitted or "-". HTML, Markdown, DOCX and email files are converted to plain
text first; the title, author and content type found in the file are used
unless set by flags. Adding an id that already exists replaces the document.

Examples:
  sercha-rag add --domain fitness --id hiit notes/hiit.md
  curl -s https://example.com/post.txt | sercha-rag add --domain news`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAdd,
}

var updateCmd = &cobra.Command{
	Use:   "update [doc-id] [file]",
	Short: "Replace a document's content and metadata",
	Long: `Re-chunks and re-embeds a document. Every chunk stored for the previous
version is removed once the new version has been embedded.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runUpdate,
}

var removeCmd = &cobra.Command{
	Use:   "remove [doc-id]",
	Short: "Remove a document and its chunks",
	Args:  cobra.ExactArgs(1),
	RunE:  runRemove,
}

func init() {
	for _, cmd := range []*cobra.Command{addCmd, updateCmd} {
		cmd.Flags().StringVarP(&docDomain, "domain", "d", "", "knowledge domain (required)")
		cmd.Flags().StringVar(&docSource, "source", "cli", "producer of the document")
		cmd.Flags().StringVar(&docContentType, "content-type", "", "kind of content, e.g. article (default: detected format)")
		cmd.Flags().StringVar(&docTitle, "title", "", "document title (default: from content or file name)")
		cmd.Flags().StringVar(&docAuthor, "author", "", "document author")
		cmd.Flags().StringSliceVar(&docTags, "tag", nil, "tag, repeatable")
		cmd.Flags().BoolVar(&docRaw, "raw", false, "index the content verbatim without format conversion")
		cmd.Flags().BoolVar(&docJSON, "json", false, "output result as JSON")
	}
	addCmd.Flags().StringVar(&docID, "id", "", "document id (default: random)")
	removeCmd.Flags().StringVarP(&docDomain, "domain", "d", "", "knowledge domain (required)")
	removeCmd.Flags().BoolVar(&docJSON, "json", false, "output result as JSON")

	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(removeCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	if docDomain == "" {
		return errors.New("--domain is required")
	}

	path := ""
	if len(args) > 0 {
		path = args[0]
	}
	content, meta, err := loadDocument(cmd, path)
	if err != nil {
		return err
	}

	rag, err := pipeline(cmd.Context())
	if err != nil {
		return err
	}

	id := docID
	if id == "" {
		id = uuid.NewString()
	}
	doc := domain.Document{ID: id, Content: content, Metadata: meta}

	result, err := rag.AddDocument(cmd.Context(), doc)
	if err != nil {
		return fmt.Errorf("add failed: %w", err)
	}
	return outputDocumentResult(cmd, result)
}

func runUpdate(cmd *cobra.Command, args []string) error {
	if docDomain == "" {
		return errors.New("--domain is required")
	}

	path := ""
	if len(args) > 1 {
		path = args[1]
	}
	content, meta, err := loadDocument(cmd, path)
	if err != nil {
		return err
	}

	rag, err := pipeline(cmd.Context())
	if err != nil {
		return err
	}

	result, err := rag.UpdateDocument(cmd.Context(), args[0], content, meta)
	if err != nil {
		return fmt.Errorf("update failed: %w", err)
	}
	return outputDocumentResult(cmd, result)
}

func runRemove(cmd *cobra.Command, args []string) error {
	if docDomain == "" {
		return errors.New("--domain is required")
	}

	rag, err := pipeline(cmd.Context())
	if err != nil {
		return err
	}

	result, err := rag.RemoveDocument(cmd.Context(), args[0], docDomain)
	if err != nil {
		return fmt.Errorf("remove failed: %w", err)
	}
	return outputDocumentResult(cmd, result)
}

// loadDocument reads the content at path and builds its metadata. Flags
// take precedence over what extraction finds in the file.
func loadDocument(cmd *cobra.Command, path string) (string, domain.DocumentMetadata, error) {
	data, err := readContent(cmd, path)
	if err != nil {
		return "", domain.DocumentMetadata{}, err
	}

	extracted := &domain.ExtractedText{Text: string(data)}
	if extractor != nil && !docRaw {
		name := ""
		if path != "-" {
			name = path
		}
		extracted, err = extractor.Extract(cmd.Context(), &domain.RawContent{Name: name, Data: data})
		if err != nil {
			return "", domain.DocumentMetadata{}, fmt.Errorf("failed to extract text: %w", err)
		}
	}

	meta := domain.DocumentMetadata{
		Domain:      docDomain,
		Source:      docSource,
		ContentType: firstNonEmpty(docContentType, extracted.Format, "text"),
		Title:       firstNonEmpty(docTitle, extracted.Title, fileTitle(path)),
		Author:      firstNonEmpty(docAuthor, extracted.Author),
		Tags:        docTags,
	}
	return extracted.Text, meta, nil
}

func fileTitle(path string) string {
	if path == "" || path == "-" {
		return ""
	}
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// readContent reads a file, or the command's stdin for "" and "-".
func readContent(cmd *cobra.Command, path string) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if path == "" || path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read content: %w", err)
	}
	return data, nil
}

func outputDocumentResult(cmd *cobra.Command, result domain.DocumentResult) error {
	if docJSON {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	switch result.Status {
	case domain.StatusRemoved:
		cmd.Printf("Removed %s (%d chunks)\n", result.DocumentID, result.ChunkCount)
	case domain.StatusUpdated:
		cmd.Printf("Updated %s (%d chunks)\n", result.DocumentID, result.ChunkCount)
	default:
		cmd.Printf("Added %s (%d chunks)\n", result.DocumentID, result.ChunkCount)
	}
	return nil
}
