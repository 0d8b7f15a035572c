// Package render is the page rendering backend: it reads page count, page
// sizes and page text with github.com/ledongthuc/pdf and "paints" pages at a
// requested width.
package render

import (
	"crypto/sha1"
	"encoding/hex"
	"io"
	"math"
	"os"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pkg/errors"

	"github.com/csheth/citeview/internal/geometry"
)

var extraneousWhitespace = regexp.MustCompile(`\s+`)

// Document is a parsed PDF held in memory. Pages are 1-based.
type Document struct {
	Path  string
	ID    string
	sizes []geometry.Size
	known []bool
	texts []string
}

// Open parses the PDF at path, collecting each page's MediaBox and text.
func Open(path string) (*Document, error) {
	id, err := fileDigest(path)
	if err != nil {
		return nil, err
	}
	file, reader, err := pdf.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open pdf")
	}
	defer file.Close()

	n := reader.NumPage()
	if n <= 0 {
		return nil, errors.Errorf("%s has no pages", path)
	}
	doc := &Document{
		Path:  path,
		ID:    id,
		sizes: make([]geometry.Size, n),
		known: make([]bool, n),
		texts: make([]string, n),
	}
	for i := 1; i <= n; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			doc.sizes[i-1] = geometry.DefaultReference
			continue
		}
		if size, ok := mediaBox(page); ok {
			doc.sizes[i-1] = size
			doc.known[i-1] = true
		} else {
			doc.sizes[i-1] = geometry.DefaultReference
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// Unreadable text leaves the page blank; geometry is still usable.
			continue
		}
		doc.texts[i-1] = strings.TrimSpace(extraneousWhitespace.ReplaceAllString(text, " "))
	}
	return doc, nil
}

// NumPages returns the page count.
func (d *Document) NumPages() int { return len(d.sizes) }

// PageSize returns the page's MediaBox size in points. ok is false when the
// MediaBox could not be read and the A4 default is being used.
func (d *Document) PageSize(page int) (geometry.Size, bool) {
	if page < 1 || page > len(d.sizes) {
		return geometry.DefaultReference, false
	}
	return d.sizes[page-1], d.known[page-1]
}

// PageText returns the extracted text for page.
func (d *Document) PageText(page int) string {
	if page < 1 || page > len(d.texts) {
		return ""
	}
	return d.texts[page-1]
}

func mediaBox(page pdf.Page) (geometry.Size, bool) {
	box := inherited(page, "MediaBox")
	if box.Kind() != pdf.Array || box.Len() != 4 {
		return geometry.Size{}, false
	}
	size := geometry.Size{
		Width:  math.Abs(box.Index(2).Float64() - box.Index(0).Float64()),
		Height: math.Abs(box.Index(3).Float64() - box.Index(1).Float64()),
	}
	if rotate := inherited(page, "Rotate").Int64(); rotate%180 != 0 {
		size.Width, size.Height = size.Height, size.Width
	}
	return size, size.Valid()
}

// inherited looks key up on the page and then on its ancestors in the page
// tree.
func inherited(page pdf.Page, key string) pdf.Value {
	for v := page.V; !v.IsNull(); v = v.Key("Parent") {
		if r := v.Key(key); !r.IsNull() {
			return r
		}
	}
	return pdf.Value{}
}

func fileDigest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.Wrap(err, "failed to read pdf")
	}
	defer f.Close()
	h := sha1.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", errors.Wrap(err, "failed to hash pdf")
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
