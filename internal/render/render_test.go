package render

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/csheth/citeview/internal/geometry"
	"github.com/csheth/citeview/internal/viewer"
)

const fixture = "testdata/two_pages.pdf"

func openFixture(t *testing.T) *Document {
	t.Helper()
	doc, err := Open(fixture)
	require.NoError(t, err)
	return doc
}

func TestOpenReadsPageSizes(t *testing.T) {
	doc := openFixture(t)
	require.Equal(t, 2, doc.NumPages())

	letter, ok := doc.PageSize(1)
	require.True(t, ok)
	assert.Equal(t, geometry.Size{Width: 612, Height: 792}, letter)

	a4, ok := doc.PageSize(2)
	require.True(t, ok)
	assert.Equal(t, geometry.Size{Width: 595, Height: 842}, a4)

	fallback, ok := doc.PageSize(3)
	assert.False(t, ok)
	assert.Equal(t, geometry.DefaultReference, fallback)
	assert.Len(t, doc.ID, 40)
}

func TestOpenInheritsMediaBoxAndRotate(t *testing.T) {
	doc, err := Open("testdata/inherited_box.pdf")
	require.NoError(t, err)
	require.Equal(t, 1, doc.NumPages())

	size, ok := doc.PageSize(1)
	require.True(t, ok, "box declared on the page tree node applies to its kids")
	assert.Equal(t, geometry.Size{Width: 792, Height: 612}, size)
	assert.Contains(t, doc.PageText(1), "Landscape")
}

func TestOpenExtractsText(t *testing.T) {
	doc := openFixture(t)
	assert.Contains(t, doc.PageText(1), "revenue")
	assert.Contains(t, doc.PageText(2), "margin")
	assert.Empty(t, doc.PageText(0))
}

func TestOpenRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.pdf")
	require.NoError(t, os.WriteFile(path, []byte("not a pdf"), 0o644))
	_, err := Open(path)
	assert.Error(t, err)

	_, err = Open(filepath.Join(t.TempDir(), "missing.pdf"))
	assert.Error(t, err)
}

func TestPaintKeepsAspectRatio(t *testing.T) {
	r := NewRenderer(openFixture(t))
	ticket := viewer.PaintTicket{Page: 1, Width: 600, Generation: 3}
	painted, err := r.Paint(context.Background(), ticket)
	require.NoError(t, err)
	assert.Equal(t, ticket, painted.Ticket)
	assert.Equal(t, 600.0, painted.Size.Width)
	assert.Equal(t, 776.0, painted.Size.Height)

	painted, err = r.Paint(context.Background(), viewer.PaintTicket{Page: 2, Width: 595})
	require.NoError(t, err)
	assert.Equal(t, 842.0, painted.Size.Height)
}

func TestPaintErrors(t *testing.T) {
	r := NewRenderer(openFixture(t))
	_, err := r.Paint(context.Background(), viewer.PaintTicket{Page: 3, Width: 600})
	assert.Error(t, err)
	_, err = r.Paint(context.Background(), viewer.PaintTicket{Page: 1})
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.Paint(ctx, viewer.PaintTicket{Page: 1, Width: 600})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRasterizeAndHighlight(t *testing.T) {
	doc := openFixture(t)
	rendered := geometry.Size{Width: 600, Height: 800}
	frame := doc.Rasterize(1, rendered, 30)
	assert.Equal(t, 30, frame.Cols)
	assert.Equal(t, 20, frame.Rows)
	require.Len(t, frame.Lines, 20)
	assert.True(t, strings.HasPrefix(string(frame.Lines[0]), "Quarterly"))

	spans := frame.Highlight(geometry.Rect{Left: 0, Top: 0, Width: 200, Height: 80})
	require.Len(t, spans, 2)
	assert.Equal(t, Span{Row: 0, From: 0, To: 9}, spans[0])

	lines := frame.Render(spans, func(s string) string { return "[" + s + "]" })
	assert.True(t, strings.HasPrefix(lines[0], "[Quarterly ]"))
	assert.Equal(t, 32, len(lines[1]))
	assert.Equal(t, 30, len(lines[2]))
}

func TestHighlightOutsideFrame(t *testing.T) {
	doc := openFixture(t)
	frame := doc.Rasterize(2, geometry.Size{Width: 100, Height: 100}, 10)
	assert.Nil(t, frame.Highlight(geometry.Rect{Left: 200, Top: 0, Width: 10, Height: 10}))
}
