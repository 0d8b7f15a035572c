package docsource

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

const (
	downloadTTL        = 24 * time.Hour
	partialSuffix      = ".part"
	metaSuffix         = ".json"
	defaultHTTPTimeout = 90 * time.Second
)

// downloadCache keeps remote PDFs on disk keyed by URL and revalidates them
// with conditional requests once they are older than downloadTTL.
type downloadCache struct {
	dir    string
	client *http.Client
}

type entryMeta struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag"`
	LastModified string    `json:"lastModified"`
	FetchedAt    time.Time `json:"fetchedAt"`
	Size         int64     `json:"size"`
}

type entryPaths struct {
	pdf     string
	meta    string
	partial string
}

func newDownloadCache(dir string, client *http.Client) (*downloadCache, error) {
	if dir == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			base = os.TempDir()
		}
		dir = filepath.Join(base, "citeview", "downloads")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create download cache")
	}
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &downloadCache{dir: dir, client: client}, nil
}

// Fetch returns a local path holding the body of url. A stale copy is served
// when revalidation fails.
func (c *downloadCache) Fetch(ctx context.Context, url string) (string, error) {
	paths := c.pathsFor(url)
	current, _ := os.Stat(paths.pdf)
	if current != nil && current.Size() > 0 && time.Since(current.ModTime()) < downloadTTL {
		return paths.pdf, nil
	}
	meta, _ := readEntryMeta(paths.meta)
	err := c.download(ctx, url, paths, meta, current)
	if err == nil {
		return paths.pdf, nil
	}
	if current != nil && current.Size() > 0 {
		return paths.pdf, nil
	}
	return "", err
}

func (c *downloadCache) download(ctx context.Context, url string, paths entryPaths, meta entryMeta, current os.FileInfo) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.Wrap(err, "failed to build download request")
	}
	haveCopy := current != nil && current.Size() > 0
	if haveCopy {
		if meta.ETag != "" {
			req.Header.Set("If-None-Match", meta.ETag)
		}
		if meta.LastModified != "" {
			req.Header.Set("If-Modified-Since", meta.LastModified)
		}
	}
	var resumeFrom int64
	if info, err := os.Stat(paths.partial); err == nil && info.Size() > 0 {
		resumeFrom = info.Size()
		req.Header.Set("Range", "bytes="+strconv.FormatInt(resumeFrom, 10)+"-")
		if meta.ETag != "" {
			req.Header.Set("If-Range", meta.ETag)
		}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "download failed")
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNotModified:
		if !haveCopy {
			return errors.New("server answered 304 without a cached copy")
		}
		meta.FetchedAt = time.Now().UTC()
		now := time.Now()
		_ = os.Chtimes(paths.pdf, now, now)
		return writeEntryMeta(paths.meta, meta)
	case http.StatusOK:
		return c.store(resp, paths, false)
	case http.StatusPartialContent:
		return c.store(resp, paths, resumeFrom > 0)
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return errors.Errorf("download failed: %s (%s)", resp.Status, string(body))
	}
}

func (c *downloadCache) store(resp *http.Response, paths entryPaths, appendPartial bool) error {
	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if appendPartial {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}
	file, err := os.OpenFile(paths.partial, flags, 0o644)
	if err != nil {
		return errors.Wrap(err, "failed to open partial download")
	}
	if _, err := io.Copy(file, resp.Body); err != nil {
		file.Close()
		return errors.Wrap(err, "download interrupted")
	}
	if err := file.Close(); err != nil {
		return err
	}
	if err := os.Rename(paths.partial, paths.pdf); err != nil {
		return errors.Wrap(err, "failed to finalize download")
	}
	meta := entryMeta{
		URL:          resp.Request.URL.String(),
		ETag:         resp.Header.Get("Etag"),
		LastModified: resp.Header.Get("Last-Modified"),
		FetchedAt:    time.Now().UTC(),
	}
	if info, err := os.Stat(paths.pdf); err == nil {
		meta.Size = info.Size()
	}
	return writeEntryMeta(paths.meta, meta)
}

func (c *downloadCache) pathsFor(url string) entryPaths {
	sum := sha1.Sum([]byte(url))
	key := filepath.Join(c.dir, hex.EncodeToString(sum[:]))
	return entryPaths{pdf: key + ".pdf", meta: key + metaSuffix, partial: key + partialSuffix}
}

func readEntryMeta(path string) (entryMeta, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return entryMeta{}, err
	}
	var meta entryMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return entryMeta{}, err
	}
	return meta, nil
}

func writeEntryMeta(path string, meta entryMeta) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	return errors.Wrap(os.WriteFile(path, data, 0o644), "failed to write cache metadata")
}
