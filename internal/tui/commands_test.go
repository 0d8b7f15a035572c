package tui

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/csheth/citeview/internal/backend"
	"github.com/csheth/citeview/internal/history"
	"github.com/csheth/citeview/internal/render"
	"github.com/csheth/citeview/internal/viewer"
)

func TestUploadJobOpensThenUploads(t *testing.T) {
	fake := &fakeBackend{}
	msg, err := uploadJob(nil, fake, fixturePDF)(context.Background())
	if err != nil {
		t.Fatalf("upload job failed: %v", err)
	}
	result := msg.(uploadResultMsg)
	if result.doc == nil || result.doc.NumPages() != 2 {
		t.Fatalf("expected the two-page fixture, got %+v", result.doc)
	}
	if len(fake.uploads) != 1 || fake.uploads[0] != fixturePDF {
		t.Fatalf("unexpected uploads %v", fake.uploads)
	}
}

func TestUploadJobFailures(t *testing.T) {
	fake := &fakeBackend{uploadErr: errors.New("boom")}
	msg, err := uploadJob(nil, fake, fixturePDF)(context.Background())
	if err == nil || msg.(uploadResultMsg).doc != nil {
		t.Fatal("backend failure must not return a document")
	}

	fake = &fakeBackend{}
	_, err = uploadJob(nil, fake, filepath.Join(t.TempDir(), "missing.pdf"))(context.Background())
	if err == nil {
		t.Fatal("unreadable document should fail")
	}
	if len(fake.uploads) != 0 {
		t.Fatal("an unreadable document must not be uploaded")
	}
}

func TestPaintJobReportsFailures(t *testing.T) {
	doc, err := render.Open(fixturePDF)
	if err != nil {
		t.Fatal(err)
	}
	tickets := []viewer.PaintTicket{{Page: 2, Width: 600}, {Page: 1, Width: 600}, {Page: 5, Width: 600}}
	msg, err := paintJob(render.NewRenderer(doc), tickets)(context.Background())
	if err == nil {
		t.Fatal("expected an error for page 5")
	}
	result := msg.(paintResultMsg)
	if len(result.painted) != 2 || len(result.failed) != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
	if result.painted[0].Ticket.Page != 2 {
		t.Fatal("paints should keep request order")
	}
}

func TestCitationsAreNumberedInOrder(t *testing.T) {
	page := 4
	citations := citationsFrom([]backend.Reference{
		{Text: "no page"},
		{PageNumber: &page, BBox: []float64{1, 2, 3, 4}, Text: "located"},
	})
	if len(citations) != 2 {
		t.Fatalf("expected 2 citations, got %d", len(citations))
	}
	if citations[0].Index != 1 || citations[0].HasPage() {
		t.Fatalf("unexpected first citation %+v", citations[0])
	}
	if citations[1].Index != 2 || citations[1].PageNumber != 4 {
		t.Fatalf("unexpected second citation %+v", citations[1])
	}
}

func TestHistoryIsRestoredOnLoad(t *testing.T) {
	store, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	defer store.Close()
	doc, err := render.Open(fixturePDF)
	if err != nil {
		t.Fatal(err)
	}
	page := 1
	if _, err := store.Append(context.Background(), history.Exchange{
		DocumentID: doc.ID,
		Question:   "What grew?",
		Answer:     "Revenue.",
		References: []backend.Reference{{PageNumber: &page, BBox: []float64{72, 700, 250, 730}, Text: "Quarterly revenue grew"}},
	}); err != nil {
		t.Fatal(err)
	}

	m := newTestModel(t)
	m.config.History = store
	m.update(uploadResultMsg{input: fixturePDF, doc: doc})
	msg, err := loadHistoryJob(store, doc, 10)(context.Background())
	if err != nil {
		t.Fatalf("load history: %v", err)
	}
	m.update(msg)

	if len(m.qaHistory) != 1 || !m.qaHistory[0].Restored {
		t.Fatalf("expected one restored exchange, got %+v", m.qaHistory)
	}
	pressKey(m, "1")
	active, ok := m.session.Highlights().Active()
	if !ok || active.Text != "Quarterly revenue grew" {
		t.Fatalf("restored references should be selectable, got %+v", active)
	}
}
