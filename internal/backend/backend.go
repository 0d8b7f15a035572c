// Package backend talks to the document-processing service that receives
// uploaded PDFs and answers questions about them with cited passages.
package backend

import (
	"context"
	"net/http"
	"os"
	"strings"
	"time"
)

const (
	defaultURL         = "http://localhost:5000"
	defaultThreadID    = "1"
	defaultHTTPTimeout = 2 * time.Minute
)

// Fixed user-facing texts for backend failures.
const (
	QueryErrorText  = "Error: Could not get response from server."
	UploadErrorText = "Failed to upload PDF to backend."
)

// Config describes how to reach the backend.
type Config struct {
	URL        string
	ThreadID   string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client uploads documents and asks questions about the current one.
type Client interface {
	Upload(ctx context.Context, path string) error
	Ask(ctx context.Context, question string) (Answer, error)
	Name() string
}

// Answer is the bot reply to a question.
type Answer struct {
	Text       string
	References []Reference
}

// Reference is one cited passage. PageNumber is nil when the backend did not
// say where the passage lives.
type Reference struct {
	PageNumber *int      `json:"pageNumber" yaml:"page,omitempty"`
	BBox       []float64 `json:"bbox" yaml:"bbox,omitempty,flow"`
	Text       string    `json:"text" yaml:"text"`
}

// Page returns the 1-based page number, or zero when it is unknown.
func (r Reference) Page() int {
	if r.PageNumber == nil {
		return 0
	}
	return *r.PageNumber
}

// New builds an HTTP client for cfg. Empty fields fall back to
// CITEVIEW_BACKEND_URL and then to http://localhost:5000.
func New(cfg Config) Client {
	base := strings.TrimRight(cfg.URL, "/")
	if base == "" {
		if env := os.Getenv("CITEVIEW_BACKEND_URL"); env != "" {
			base = strings.TrimRight(env, "/")
		} else {
			base = defaultURL
		}
	}
	thread := cfg.ThreadID
	if thread == "" {
		thread = defaultThreadID
	}
	return &httpClient{
		base:     base,
		threadID: thread,
		client:   pickHTTPClient(cfg.HTTPClient, cfg.Timeout),
	}
}

func pickHTTPClient(custom *http.Client, timeout time.Duration) *http.Client {
	if custom != nil {
		return custom
	}
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	// Uploads trigger indexing on the server side and can take a while.
	return &http.Client{Timeout: timeout}
}
