package tui

import (
	"context"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"

	"github.com/csheth/citeview/internal/backend"
	"github.com/csheth/citeview/internal/docsource"
	"github.com/csheth/citeview/internal/history"
	"github.com/csheth/citeview/internal/render"
	"github.com/csheth/citeview/internal/viewer"
)

const (
	uploadTimeout   = 5 * time.Minute
	questionTimeout = 2 * time.Minute
	historyTimeout  = 10 * time.Second
)

type uploadResultMsg struct {
	input string
	doc   *render.Document
	err   error
}

type paintFailure struct {
	ticket viewer.PaintTicket
	err    error
}

type paintResultMsg struct {
	painted []render.Painted
	failed  []paintFailure
}

type questionResultMsg struct {
	index  int
	docID  string
	answer backend.Answer
	err    error
}

type historyLoadedMsg struct {
	docID     string
	exchanges []history.Exchange
	err       error
}

type historySavedMsg struct {
	err error
}

// uploadJob resolves input to a local PDF, parses it, then hands it to the
// backend. The document is only returned once every step has succeeded.
func uploadJob(resolver *docsource.Resolver, client backend.Client, input string) jobRunner {
	return func(parent context.Context) (tea.Msg, error) {
		ctx, cancel := context.WithTimeout(parent, uploadTimeout)
		defer cancel()
		path := input
		if resolver != nil {
			resolved, err := resolver.Resolve(ctx, input)
			if err != nil {
				return uploadResultMsg{input: input, err: err}, err
			}
			path = resolved
		}
		doc, err := render.Open(path)
		if err != nil {
			return uploadResultMsg{input: input, err: err}, err
		}
		if client == nil {
			err := errors.New("no backend configured")
			return uploadResultMsg{input: input, err: err}, err
		}
		if err := client.Upload(ctx, path); err != nil {
			return uploadResultMsg{input: input, err: err}, err
		}
		return uploadResultMsg{input: input, doc: doc}, nil
	}
}

func paintJob(renderer *render.Renderer, tickets []viewer.PaintTicket) jobRunner {
	batch := append([]viewer.PaintTicket(nil), tickets...)
	return func(parent context.Context) (tea.Msg, error) {
		msg := paintResultMsg{}
		for _, ticket := range batch {
			painted, err := renderer.Paint(parent, ticket)
			if err != nil {
				msg.failed = append(msg.failed, paintFailure{ticket: ticket, err: err})
				continue
			}
			msg.painted = append(msg.painted, painted)
		}
		if len(msg.failed) > 0 {
			return msg, errors.Wrapf(msg.failed[0].err, "%d of %d pages failed to paint", len(msg.failed), len(batch))
		}
		return msg, nil
	}
}

func questionJob(client backend.Client, index int, docID, question string) jobRunner {
	return func(parent context.Context) (tea.Msg, error) {
		ctx, cancel := context.WithTimeout(parent, questionTimeout)
		defer cancel()
		answer, err := client.Ask(ctx, question)
		return questionResultMsg{index: index, docID: docID, answer: answer, err: err}, err
	}
}

func loadHistoryJob(store *history.Store, doc *render.Document, limit int) jobRunner {
	docID := doc.ID
	name := filepath.Base(doc.Path)
	return func(parent context.Context) (tea.Msg, error) {
		ctx, cancel := context.WithTimeout(parent, historyTimeout)
		defer cancel()
		if err := store.TouchDocument(ctx, docID, name); err != nil {
			return historyLoadedMsg{docID: docID, err: err}, err
		}
		exchanges, err := store.Recent(ctx, docID, limit)
		return historyLoadedMsg{docID: docID, exchanges: exchanges, err: err}, err
	}
}

func saveHistoryJob(store *history.Store, ex history.Exchange) jobRunner {
	return func(parent context.Context) (tea.Msg, error) {
		ctx, cancel := context.WithTimeout(parent, historyTimeout)
		defer cancel()
		_, err := store.Append(ctx, ex)
		return historySavedMsg{err: err}, err
	}
}

// citationsFrom numbers references 1..n in the order the backend sent them.
func citationsFrom(refs []backend.Reference) []viewer.Citation {
	out := make([]viewer.Citation, 0, len(refs))
	for i, ref := range refs {
		out = append(out, viewer.Citation{
			PageNumber: ref.Page(),
			BBox:       append([]float64(nil), ref.BBox...),
			Text:       ref.Text,
			Index:      i + 1,
		})
	}
	return out
}

func exchangeFromHistory(ex history.Exchange) qaExchange {
	entry := qaExchange{
		Question:  ex.Question,
		Answer:    ex.Answer,
		Citations: citationsFrom(ex.References),
		Restored:  true,
		AskedAt:   ex.AskedAt,
	}
	if ex.Failed {
		entry.Error = ex.Answer
		entry.Answer = ""
	}
	return entry
}
