// Package portfolio talks to the remote portfolio backend over HTTP.
package portfolio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/princekumarofficial/portfolio-studio/internal/files"
	"github.com/princekumarofficial/portfolio-studio/internal/storage"
	"github.com/princekumarofficial/portfolio-studio/internal/types/media"
	"github.com/princekumarofficial/portfolio-studio/internal/utils/response"
)

const (
	OpCreate = "create"
	OpSave   = "save"
	OpLoad   = "load"
	OpDelete = "delete"
)

// HTTPDoer describes the HTTP client used by Client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// TransportError reports a failed remote call. StatusCode is zero when the
// request never produced a response or the response could not be decoded.
type TransportError struct {
	Op         string
	StatusCode int
	Status     string
	Message    string
	Err        error
}

// Error keeps the HTTP status in front of any message the backend sent,
// e.g. "404 Not Found: Item not found".
func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		status := e.Status
		if status == "" {
			status = strings.TrimSpace(fmt.Sprintf("%d %s", e.StatusCode, http.StatusText(e.StatusCode)))
		}
		if e.Message == "" || strings.HasSuffix(status, e.Message) {
			return status
		}
		return status + ": " + e.Message
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return e.Op + " failed"
}

func (e *TransportError) Unwrap() error { return e.Err }

// Client implements storage.Portfolio against the backend's REST API.
type Client struct {
	baseURL string
	client  HTTPDoer
	logger  *slog.Logger
}

var _ storage.Portfolio = (*Client)(nil)

// NewClient builds a client for baseURL. A nil doer means http.DefaultClient.
func NewClient(baseURL string, doer HTTPDoer, logger *slog.Logger) *Client {
	if doer == nil {
		doer = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		client:  doer,
		logger:  logger,
	}
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// Create uploads f as multipart form data together with the form fields.
func (c *Client) Create(ctx context.Context, f *files.File, req media.UploadRequest) (media.MediaItem, error) {
	if f == nil {
		return media.MediaItem{}, &TransportError{Op: OpCreate, Err: fmt.Errorf("no file")}
	}

	body, contentType, err := encodeUpload(f, req)
	if err != nil {
		return media.MediaItem{}, &TransportError{Op: OpCreate, Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload", body)
	if err != nil {
		return media.MediaItem{}, &TransportError{Op: OpCreate, Err: fmt.Errorf("build request: %w", err)}
	}
	httpReq.Header.Set("Content-Type", contentType)

	var item media.MediaItem
	if err := c.do(httpReq, OpCreate, &item); err != nil {
		return media.MediaItem{}, err
	}
	if err := item.Validate(); err != nil {
		return media.MediaItem{}, &TransportError{Op: OpCreate, Err: err}
	}
	return item, nil
}

func encodeUpload(f *files.File, req media.UploadRequest) (*bytes.Buffer, string, error) {
	in, err := os.Open(f.Path)
	if err != nil {
		return nil, "", fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer in.Close()

	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(f.Name)))
	header.Set("Content-Type", f.Type)

	part, err := w.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("create file part: %w", err)
	}
	if _, err := io.Copy(part, in); err != nil {
		return nil, "", fmt.Errorf("copy %s: %w", f.Name, err)
	}

	fields := []struct{ name, value string }{
		{"title", req.Title},
		{"description", req.Description},
		{"category", req.Category},
	}
	for _, field := range fields {
		if err := w.WriteField(field.name, field.value); err != nil {
			return nil, "", fmt.Errorf("write %s: %w", field.name, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart body: %w", err)
	}
	return buf, w.FormDataContentType(), nil
}

// Save replaces the persisted portfolio for userID with items.
func (c *Client) Save(ctx context.Context, userID string, items []media.MediaItem) error {
	if items == nil {
		items = []media.MediaItem{}
	}
	payload, err := json.Marshal(media.SaveRequest{UserID: userID, Items: items})
	if err != nil {
		return &TransportError{Op: OpSave, Err: fmt.Errorf("encode items: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/save-portfolio", bytes.NewReader(payload))
	if err != nil {
		return &TransportError{Op: OpSave, Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, OpSave, nil)
}

// Load fetches the persisted portfolio for userID. A null item list is empty.
func (c *Client) Load(ctx context.Context, userID string) ([]media.MediaItem, error) {
	endpoint := c.baseURL + "/load-portfolio/" + url.PathEscape(userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &TransportError{Op: OpLoad, Err: fmt.Errorf("build request: %w", err)}
	}

	var resp media.LoadResponse
	if err := c.do(req, OpLoad, &resp); err != nil {
		return nil, err
	}
	if resp.Items == nil {
		return []media.MediaItem{}, nil
	}
	return resp.Items, nil
}

// Delete removes one persisted item.
func (c *Client) Delete(ctx context.Context, userID, itemID string) error {
	endpoint := fmt.Sprintf("%s/update-portfolio/%s/%s", c.baseURL, url.PathEscape(userID), url.PathEscape(itemID))
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return &TransportError{Op: OpDelete, Err: fmt.Errorf("build request: %w", err)}
	}
	return c.do(req, OpDelete, nil)
}

// do sends req and decodes a 2xx body into dst when dst is non-nil.
func (c *Client) do(req *http.Request, op string, dst interface{}) error {
	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Error("portfolio request failed", "op", op, "error", err.Error())
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("read response: %w", err)}
	}

	c.logger.Debug("portfolio request",
		"op", op,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &TransportError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Message:    response.ErrorMessage(body),
		}
	}

	if dst == nil {
		return nil
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
