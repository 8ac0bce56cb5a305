package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/chapterhub/event-gallery/pkg/config"
	"github.com/chapterhub/event-gallery/pkg/middleware/requestid"
)

const defaultTimeout = 5 * time.Minute

// APIError is returned for any non-2xx response.
type APIError struct {
	Status  int
	Code    string
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// StatusCode extracts the HTTP status from err, or 0 when err is not an *APIError.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// IsTimeout reports whether err is a transport timeout.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// Client issues requests against the gallery API base URL.
type Client struct {
	baseURL   string
	mediaBase string
	token     string
	http      *http.Client
	logger    *zap.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient swaps the underlying transport, mainly for tests.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// New builds a client for cfg.
func New(cfg config.ClientConfig, logger *zap.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	mediaBase := cfg.MediaBaseURL
	if mediaBase == "" {
		mediaBase = cfg.BaseURL
	}
	c := &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		mediaBase: strings.TrimRight(mediaBase, "/"),
		token:     cfg.Token,
		http:      &http.Client{Timeout: timeout},
		logger:    logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root every path is joined onto.
func (c *Client) BaseURL() string { return c.baseURL }

// MediaBaseURL is where relative photo URLs resolve.
func (c *Client) MediaBaseURL() string { return c.mediaBase }

// StreamURL maps path onto the websocket scheme of the base URL.
func (c *Client) StreamURL(path string) string {
	target := c.url(path)
	switch {
	case strings.HasPrefix(target, "https://"):
		return "wss://" + strings.TrimPrefix(target, "https://")
	case strings.HasPrefix(target, "http://"):
		return "ws://" + strings.TrimPrefix(target, "http://")
	default:
		return target
	}
}

// AuthHeader carries the bearer token, if any, for non-HTTP transports.
func (c *Client) AuthHeader() http.Header {
	h := http.Header{}
	if c.token != "" {
		h.Set("Authorization", "Bearer "+c.token)
	}
	return h
}

// FormFile is one file part of a multipart request.
type FormFile struct {
	Field    string
	Filename string
	Reader   io.Reader
}

// Form is an ordered multipart body.
type Form struct {
	Fields [][2]string
	Files  []FormFile
}

// Set appends a text field, skipping empty values.
func (f *Form) Set(name, value string) {
	if value == "" {
		return
	}
	f.Fields = append(f.Fields, [2]string{name, value})
}

// AddFile appends a file part.
func (f *Form) AddFile(field, filename string, r io.Reader) {
	f.Files = append(f.Files, FormFile{Field: field, Filename: filename, Reader: r})
}

// DoJSON sends body encoded as JSON (nil for none) and decodes the response into out.
func (c *Client) DoJSON(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	kind := "none"
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
		kind = "json"
	}
	return c.do(ctx, method, path, reader, "application/json", kind, out)
}

// DoMultipart streams form as multipart/form-data, overriding the JSON content type.
func (c *Client) DoMultipart(ctx context.Context, method, path string, form *Form, out interface{}) error {
	if form == nil {
		form = &Form{}
	}
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeForm(mw, form))
	}()
	err := c.do(ctx, method, path, pr, mw.FormDataContentType(), fmt.Sprintf("multipart(%d files)", len(form.Files)), out)
	_ = pr.Close()
	return err
}

func writeForm(mw *multipart.Writer, form *Form) error {
	for _, field := range form.Fields {
		if err := mw.WriteField(field[0], field[1]); err != nil {
			return err
		}
	}
	for _, file := range form.Files {
		part, err := mw.CreateFormFile(file.Field, file.Filename)
		if err != nil {
			return err
		}
		if _, err := io.Copy(part, file.Reader); err != nil {
			return fmt.Errorf("copy %s: %w", file.Filename, err)
		}
	}
	return mw.Close()
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType, kind string, out interface{}) error {
	target := c.url(path)
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if id := requestid.FromContext(ctx); id != "" {
		req.Header.Set(requestid.HeaderKey, id)
	}

	c.logger.Debug("api request", zap.String("method", method), zap.String("url", target), zap.String("body", kind))
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("api request failed", zap.String("method", method), zap.String("url", target),
			zap.Bool("timeout", IsTimeout(err)), zap.Error(err))
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	fields := []zap.Field{
		zap.String("method", method),
		zap.String("url", target),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := decodeError(resp.StatusCode, raw)
		fields = append(fields, zap.String("message", apiErr.Message))
		switch {
		case resp.StatusCode == http.StatusUnauthorized:
			c.logger.Warn("api unauthorized", fields...)
		case resp.StatusCode == http.StatusForbidden:
			c.logger.Warn("api forbidden", fields...)
		case resp.StatusCode >= http.StatusInternalServerError:
			c.logger.Error("api server error", fields...)
		default:
			c.logger.Info("api client error", fields...)
		}
		return apiErr
	}
	c.logger.Debug("api response", fields...)

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	return decodeData(raw, out)
}

func (c *Client) url(path string) string {
	if u, err := url.Parse(path); err == nil && u.IsAbs() {
		return path
	}
	return c.baseURL + "/" + strings.TrimLeft(path, "/")
}

// decodeData unwraps the {"data": ...} envelope when present and falls back to the
// raw body for endpoints that reply with a bare document.
func decodeData(raw []byte, out interface{}) error {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err == nil {
		if data, ok := envelope["data"]; ok {
			raw = data
		}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeError(status int, raw []byte) *APIError {
	apiErr := &APIError{Status: status}
	var body struct {
		Message string          `json:"message"`
		Error   json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		var nested struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if len(body.Error) > 0 && json.Unmarshal(body.Error, &nested) == nil {
			apiErr.Code = nested.Code
			apiErr.Message = nested.Message
		} else if len(body.Error) > 0 {
			var plain string
			if json.Unmarshal(body.Error, &plain) == nil {
				apiErr.Message = plain
			}
		}
		if apiErr.Message == "" {
			apiErr.Message = body.Message
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}
