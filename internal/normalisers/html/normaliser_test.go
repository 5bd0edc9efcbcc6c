package html

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

func TestSupportedMIMETypes(t *testing.T) {
	normaliser := New()
	assert.ElementsMatch(t, []string{"text/html", "application/xhtml+xml"}, normaliser.SupportedMIMETypes())
	assert.Equal(t, 50, normaliser.Priority())
}

func TestNormalise_NilInput(t *testing.T) {
	result, err := New().Normalise(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Nil(t, result)
}

func TestNormalise_Success(t *testing.T) {
	raw := &domain.RawContent{
		Name: "document.html",
		Data: []byte(`<html><head><title>Test &amp; Page</title>` +
			`<meta name="author" content="Ana Lima"></head>` +
			`<body><p>Hello World</p></body></html>`),
	}

	result, err := New().Normalise(context.Background(), raw)
	require.NoError(t, err)

	assert.Equal(t, "Test & Page", result.Title)
	assert.Equal(t, "Ana Lima", result.Author)
	assert.Equal(t, "html", result.Format)
	assert.Equal(t, "Hello World", result.Text)
}

func TestNormalise_NoTitle(t *testing.T) {
	raw := &domain.RawContent{Data: []byte("<p>Body only</p>")}

	result, err := New().Normalise(context.Background(), raw)
	require.NoError(t, err)
	assert.Empty(t, result.Title)
	assert.Empty(t, result.Author)
}

func TestStripHTML(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "paragraphs become blank line separated",
			in:   "<p>First</p><p>Second</p>",
			want: "First\n\nSecond",
		},
		{
			name: "line breaks kept",
			in:   "one<br>two<br/>three",
			want: "one\ntwo\nthree",
		},
		{
			name: "scripts and styles removed",
			in:   "<style>p{color:red}</style><script>alert(1)</script><p>Visible</p>",
			want: "Visible",
		},
		{
			name: "comments removed",
			in:   "<!-- hidden --><div>Shown</div>",
			want: "Shown",
		},
		{
			name: "entities decoded",
			in:   "<p>Fish &amp; chips &lt;3</p>",
			want: "Fish & chips <3",
		},
		{
			name: "inline tags collapse",
			in:   "<p>This   is <b>bold</b>\tand <a href=\"#\">linked</a></p>",
			want: "This is bold and linked",
		},
		{
			name: "list items",
			in:   "<ul><li>Warm up</li><li>Sprint</li></ul>",
			want: "Warm up\n\nSprint",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripHTML(tt.in))
		})
	}
}
