package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

const maxErrorBody = 512

type httpClient struct {
	base     string
	threadID string
	client   *http.Client
}

func (c *httpClient) Name() string {
	return fmt.Sprintf("backend (%s)", c.base)
}

// Upload sends the PDF at path as the "file" field of a multipart form.
func (c *httpClient) Upload(ctx context.Context, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "failed to open upload")
	}
	defer file.Close()

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return errors.Wrap(err, "failed to build upload form")
	}
	if _, err := io.Copy(part, file); err != nil {
		return errors.Wrap(err, "failed to read upload")
	}
	if err := form.Close(); err != nil {
		return errors.Wrap(err, "failed to build upload form")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/upload", &body)
	if err != nil {
		return errors.Wrap(err, "failed to build upload request")
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	raw, err := c.do(req)
	if err != nil {
		return errors.Wrap(err, "upload failed")
	}
	var parsed struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return errors.Wrap(err, "failed to decode upload response")
	}
	if !parsed.Success {
		if parsed.Error == "" {
			parsed.Error = "backend did not report success"
		}
		return errors.New(parsed.Error)
	}
	log.Printf("[backend] uploaded %s", filepath.Base(path))
	return nil
}

// Ask posts question on the configured thread. The last message of the reply
// is the answer.
func (c *httpClient) Ask(ctx context.Context, question string) (Answer, error) {
	if strings.TrimSpace(question) == "" {
		return Answer{}, errors.New("question cannot be empty")
	}
	buf, err := json.Marshal(map[string]string{
		"query":     question,
		"thread_id": c.threadID,
	})
	if err != nil {
		return Answer{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/query", bytes.NewReader(buf))
	if err != nil {
		return Answer{}, errors.Wrap(err, "failed to build query request")
	}
	req.Header.Set("Content-Type", "application/json")

	raw, err := c.do(req)
	if err != nil {
		return Answer{}, errors.Wrap(err, "query failed")
	}
	return decodeAnswer(raw)
}

func (c *httpClient) do(req *http.Request) ([]byte, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, errors.Errorf("backend error: %s (%s)", resp.Status, serverMessage(body))
	}
	return body, nil
}

func decodeAnswer(raw []byte) (Answer, error) {
	var parsed struct {
		Messages []struct {
			Content    string      `json:"content"`
			References []Reference `json:"references"`
		} `json:"messages"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return Answer{}, errors.Wrap(err, "failed to decode query response")
	}
	if len(parsed.Messages) == 0 {
		return Answer{}, errors.New("backend returned no messages")
	}
	last := parsed.Messages[len(parsed.Messages)-1]
	return Answer{Text: strings.TrimSpace(last.Content), References: last.References}, nil
}

// serverMessage pulls {"error": "..."} out of an error body when present.
func serverMessage(body []byte) string {
	var parsed struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Error != "" {
		return parsed.Error
	}
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return strings.TrimSpace(string(body))
}
