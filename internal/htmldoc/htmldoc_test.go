package htmldoc

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const page = `<!DOCTYPE html>
<html>
<head><title>Chapter</title></head>
<body><div id="fileName">ch<b>1</b>.html</div><section><p id="dup">first</p></section><p id="dup">second</p><div id="footer">f</div></body>
</html>`

func TestElementByID_FirstInDocumentOrder(t *testing.T) {
	doc, err := Parse(strings.NewReader(page))
	require.NoError(t, err)

	n := doc.ElementByID("dup")
	require.NotNil(t, n)
	assert.Equal(t, "first", TextContent(n))
	assert.Nil(t, doc.ElementByID("missing"))
}

func TestElementText(t *testing.T) {
	doc, err := Parse(strings.NewReader(page))
	require.NoError(t, err)

	text, ok, err := doc.ElementText(context.Background(), "fileName")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "ch1.html", text)

	_, ok, err = doc.ElementText(context.Background(), "nope")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRemoveElement(t *testing.T) {
	doc, err := Parse(strings.NewReader(page))
	require.NoError(t, err)

	require.NoError(t, doc.RemoveElement(context.Background(), "dup"))
	assert.Equal(t, "second", TextContent(doc.ElementByID("dup")))
	assert.Equal(t, 1, doc.Mutations())

	assert.ErrorIs(t, doc.RemoveElement(context.Background(), "nope"), ErrNotFound)
}

func TestRemoveBodyChild(t *testing.T) {
	doc, err := Parse(strings.NewReader(page))
	require.NoError(t, err)

	require.NoError(t, doc.RemoveBodyChild(context.Background(), "footer"))
	assert.Nil(t, doc.ElementByID("footer"))

	// Already removed.
	assert.ErrorIs(t, doc.RemoveBodyChild(context.Background(), "footer"), ErrNotFound)

	// Nested under <section>, not a direct child of body.
	assert.ErrorIs(t, doc.RemoveBodyChild(context.Background(), "dup"), ErrNotFound)
	assert.Equal(t, 1, doc.Mutations())
}

func TestOuterHTML_OmitsDoctype(t *testing.T) {
	doc, err := Parse(strings.NewReader(page))
	require.NoError(t, err)

	out, err := doc.OuterHTML(context.Background())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "<html>"), out)
	assert.True(t, strings.HasSuffix(out, "</html>"), out)
	assert.NotContains(t, out, "DOCTYPE")
}

func TestOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "p.html")
	require.NoError(t, os.WriteFile(path, []byte(page), 0o644))

	doc, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, doc.WaitLoad())
	assert.NotNil(t, doc.Body())

	_, err = Open(filepath.Join(t.TempDir(), "missing.html"))
	assert.Error(t, err)
}
