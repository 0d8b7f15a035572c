// Package docsource turns what the user typed or picked into a local PDF path.
// Remote documents are downloaded once and kept in an on-disk cache.
package docsource

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// ErrNotPDF is returned when the resolved file does not start with a PDF
// header.
var ErrNotPDF = errors.New("not a PDF file")

var pdfMagic = []byte("%PDF-")

// Resolver maps picker input to local files.
type Resolver struct {
	cache *downloadCache
}

// NewResolver builds a resolver caching downloads under cacheDir. An empty
// cacheDir uses the user cache directory.
func NewResolver(cacheDir string, client *http.Client) (*Resolver, error) {
	cache, err := newDownloadCache(cacheDir, client)
	if err != nil {
		return nil, err
	}
	return &Resolver{cache: cache}, nil
}

// IsRemote reports whether input names an http(s) document.
func IsRemote(input string) bool {
	lower := strings.ToLower(strings.TrimSpace(input))
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// Resolve returns the local path of a PDF named by input: a filesystem path
// (with ~ expansion and surrounding quotes removed), an http(s) URL, or an
// arXiv link or "arXiv:<id>" reference.
func (r *Resolver) Resolve(ctx context.Context, input string) (string, error) {
	input = strings.Trim(strings.TrimSpace(input), `"'`)
	if input == "" {
		return "", errors.New("no document given")
	}
	if pdfURL, ok := arxivPDFURL(input); ok {
		input = pdfURL
	}
	var path string
	if IsRemote(input) {
		fetched, err := r.cache.Fetch(ctx, input)
		if err != nil {
			return "", err
		}
		path = fetched
	} else {
		local, err := localPath(input)
		if err != nil {
			return "", err
		}
		path = local
	}
	if err := checkPDF(path); err != nil {
		return "", err
	}
	return path, nil
}

func localPath(input string) (string, error) {
	if input == "~" || strings.HasPrefix(input, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", errors.Wrap(err, "failed to expand ~")
		}
		input = filepath.Join(home, strings.TrimPrefix(input, "~"))
	}
	abs, err := filepath.Abs(input)
	if err != nil {
		return "", errors.Wrap(err, "invalid path")
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", errors.Wrap(err, "document not found")
	}
	if info.IsDir() {
		return "", errors.Errorf("%s is a directory", abs)
	}
	return abs, nil
}

func checkPDF(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "failed to open document")
	}
	defer f.Close()
	head := make([]byte, len(pdfMagic))
	if _, err := io.ReadFull(f, head); err != nil || !bytes.Equal(head, pdfMagic) {
		return errors.Wrap(ErrNotPDF, filepath.Base(path))
	}
	return nil
}
