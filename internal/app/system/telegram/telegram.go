// internal/app/system/telegram/telegram.go
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
)

// DefaultBaseURL is the public Bot API endpoint.
const DefaultBaseURL = "https://api.telegram.org"

// MaxMediaGroup is the Bot API limit for one sendMediaGroup call.
const MaxMediaGroup = 10

var (
	// ErrUpstream is returned when the Bot API rejects a call or is unreachable.
	ErrUpstream = errors.New("telegram: upstream request failed")
	// ErrFileNotFound is returned when a file id cannot be resolved.
	ErrFileNotFound = errors.New("telegram: file not found")
)

// APIError is a call the Bot API answered with ok:false. It unwraps to
// ErrUpstream.
type APIError struct {
	Code        int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram: api error %d: %s", e.Code, e.Description)
}

func (e *APIError) Unwrap() error { return ErrUpstream }

// Config configures a Client.
type Config struct {
	Token      string
	ChatID     string
	BaseURL    string
	HTTPClient *http.Client
}

// Photo is an image to upload.
type Photo struct {
	Filename string
	Data     []byte
}

// Client talks to the Telegram Bot API, using a chat as file storage.
type Client struct {
	token  string
	chatID string
	base   string
	http   *http.Client
}

// New creates a Client.
func New(cfg Config) (*Client, error) {
	if cfg.Token == "" || cfg.ChatID == "" {
		return nil, errors.New("telegram: bot token and chat id are required")
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{token: cfg.Token, chatID: cfg.ChatID, base: base, http: hc}, nil
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	ErrorCode   int             `json:"error_code"`
	Description string          `json:"description"`
	Result      json.RawMessage `json:"result"`
}

type photoSize struct {
	FileID   string `json:"file_id"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	FileSize int    `json:"file_size"`
}

type message struct {
	Photo []photoSize `json:"photo"`
}

type file struct {
	FileID   string `json:"file_id"`
	FilePath string `json:"file_path"`
}

type inputMedia struct {
	Type    string `json:"type"`
	Media   string `json:"media"`
	Caption string `json:"caption,omitempty"`
}

// SendPhoto uploads one photo and returns the file id of its largest size.
func (c *Client) SendPhoto(ctx context.Context, p Photo, caption string) (string, error) {
	body, contentType, err := buildForm(func(w *multipart.Writer) error {
		if err := w.WriteField("chat_id", c.chatID); err != nil {
			return err
		}
		if caption != "" {
			if err := w.WriteField("caption", caption); err != nil {
				return err
			}
		}
		return writeFile(w, "photo", p)
	})
	if err != nil {
		return "", err
	}

	var msg message
	if err := c.call(ctx, "sendPhoto", body, contentType, &msg); err != nil {
		return "", err
	}
	return largest(msg.Photo)
}

// SendMediaGroup uploads up to MaxMediaGroup photos as one album. The
// caption is attached to the first item. File ids come back in input order.
func (c *Client) SendMediaGroup(ctx context.Context, photos []Photo, caption string) ([]string, error) {
	if len(photos) == 0 || len(photos) > MaxMediaGroup {
		return nil, fmt.Errorf("telegram: media group needs 1..%d photos, got %d", MaxMediaGroup, len(photos))
	}

	media := make([]inputMedia, len(photos))
	for i := range photos {
		media[i] = inputMedia{Type: "photo", Media: fmt.Sprintf("attach://photo%d", i)}
	}
	media[0].Caption = caption
	mediaJSON, err := json.Marshal(media)
	if err != nil {
		return nil, err
	}

	body, contentType, err := buildForm(func(w *multipart.Writer) error {
		if err := w.WriteField("chat_id", c.chatID); err != nil {
			return err
		}
		if err := w.WriteField("media", string(mediaJSON)); err != nil {
			return err
		}
		for i, p := range photos {
			if err := writeFile(w, fmt.Sprintf("photo%d", i), p); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var msgs []message
	if err := c.call(ctx, "sendMediaGroup", body, contentType, &msgs); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(msgs))
	for _, m := range msgs {
		id, err := largest(m.Photo)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// FilePath resolves a file id into the path used by the file endpoint.
// Only a Bot API rejection means the file is gone; transport failures stay
// ErrUpstream.
func (c *Client) FilePath(ctx context.Context, fileID string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.methodURL("getFile")+"?file_id="+url.QueryEscape(fileID), nil)
	if err != nil {
		return "", err
	}
	var f file
	if err := c.do(req, &f); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("%w: %s", ErrFileNotFound, apiErr.Description)
		}
		return "", err
	}
	if f.FilePath == "" {
		return "", ErrFileNotFound
	}
	return f.FilePath, nil
}

// OpenFile streams the file at filePath. The caller closes the body.
func (c *Client) OpenFile(ctx context.Context, filePath string) (io.ReadCloser, error) {
	u := fmt.Sprintf("%s/file/bot%s/%s", c.base, c.token, strings.TrimLeft(filePath, "/"))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return nil, ErrFileNotFound
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: file download status %d", ErrUpstream, resp.StatusCode)
	}
	return resp.Body, nil
}

func (c *Client) methodURL(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", c.base, c.token, method)
}

func (c *Client) call(ctx context.Context, method string, body *bytes.Buffer, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL(method), body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	var api apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&api); err != nil {
		return fmt.Errorf("%w: decode %s response: %v", ErrUpstream, req.URL.Path, err)
	}
	if !api.OK {
		return &APIError{Code: api.ErrorCode, Description: api.Description}
	}
	if err := json.Unmarshal(api.Result, out); err != nil {
		return fmt.Errorf("%w: decode result: %v", ErrUpstream, err)
	}
	return nil
}

func buildForm(fill func(*multipart.Writer) error) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := fill(w); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

func writeFile(w *multipart.Writer, field string, p Photo) error {
	name := p.Filename
	if name == "" {
		name = "image.jpg"
	}
	part, err := w.CreateFormFile(field, name)
	if err != nil {
		return err
	}
	_, err = part.Write(p.Data)
	return err
}

// largest picks the last (highest resolution) size Telegram returned.
func largest(sizes []photoSize) (string, error) {
	if len(sizes) == 0 {
		return "", fmt.Errorf("%w: response carried no photo sizes", ErrUpstream)
	}
	return sizes[len(sizes)-1].FileID, nil
}
