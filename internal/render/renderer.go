package render

import (
	"context"
	"math"

	"github.com/pkg/errors"

	"github.com/csheth/citeview/internal/geometry"
	"github.com/csheth/citeview/internal/viewer"
)

// Painted is the outcome of a paint request.
type Painted struct {
	Ticket viewer.PaintTicket
	Size   geometry.Size
}

// Renderer paints pages of one document.
type Renderer struct {
	doc *Document
}

// NewRenderer returns a renderer for doc.
func NewRenderer(doc *Document) *Renderer {
	return &Renderer{doc: doc}
}

// Paint lays page ticket.Page out at ticket.Width and reports the size it
// occupies. The height follows the page's aspect ratio.
func (r *Renderer) Paint(ctx context.Context, ticket viewer.PaintTicket) (Painted, error) {
	if err := ctx.Err(); err != nil {
		return Painted{Ticket: ticket}, err
	}
	if r.doc == nil {
		return Painted{Ticket: ticket}, errors.New("no document loaded")
	}
	if ticket.Page < 1 || ticket.Page > r.doc.NumPages() {
		return Painted{Ticket: ticket}, errors.Errorf("page %d out of range (1-%d)", ticket.Page, r.doc.NumPages())
	}
	if !(ticket.Width > 0) || math.IsInf(ticket.Width, 0) {
		return Painted{Ticket: ticket}, errors.Errorf("invalid paint width %v", ticket.Width)
	}
	size, _ := r.doc.PageSize(ticket.Page)
	return Painted{
		Ticket: ticket,
		Size: geometry.Size{
			Width:  ticket.Width,
			Height: math.Round(ticket.Width * size.Height / size.Width),
		},
	}, nil
}
