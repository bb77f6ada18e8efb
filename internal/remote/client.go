package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/existflow/ironhabit/internal/logger"
	"github.com/existflow/ironhabit/internal/model"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNoIdentity   = errors.New("no identity")
	ErrSealed       = errors.New("document is sealed and no passphrase is configured")
)

// Document is the wire form of one stored document. Data holds the item as
// JSON, or a JSON string with the sealed payload when Sealed is set.
type Document struct {
	ID        string          `json:"id"`
	Data      json.RawMessage `json:"data"`
	Sealed    bool            `json:"sealed"`
	UpdatedAt string          `json:"updated_at,omitempty"`
}

// ListResponse is the body of a collection read.
type ListResponse struct {
	Items []Document `json:"items"`
}

// SignInResponse is the body returned by anonymous sign-in.
type SignInResponse struct {
	UID   string `json:"uid"`
	Token string `json:"token"`
}

// Client talks to the document store server.
type Client struct {
	baseURL    string
	passphrase string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithPassphrase seals every todo document with a key derived from p.
func WithPassphrase(p string) Option {
	return func(c *Client) { c.passphrase = p }
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the server address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Health checks that the server answers.
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "/health", "", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check: status %d", resp.StatusCode)
	}
	return nil
}

// SignInAnonymously creates a new anonymous identity on the server.
func (c *Client) SignInAnonymously(ctx context.Context) (model.Identity, error) {
	resp, err := c.do(ctx, http.MethodPost, "/api/v1/auth/anonymous", "", nil)
	if err != nil {
		return model.Identity{}, fmt.Errorf("failed to connect: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return model.Identity{}, statusError("anonymous sign-in", resp)
	}

	var result SignInResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return model.Identity{}, fmt.Errorf("decode sign-in response: %w", err)
	}

	id := model.Identity{UID: result.UID, Token: result.Token, CreatedAt: time.Now()}
	if !id.Valid() {
		return model.Identity{}, errors.New("sign-in response missing uid or token")
	}
	return id, nil
}

// Verify checks that the server still accepts id.
func (c *Client) Verify(ctx context.Context, id model.Identity) error {
	resp, err := c.do(ctx, http.MethodGet, "/api/v1/auth/me", id.Token, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return statusError("verify identity", resp)
	}
	return nil
}

// Scoped returns the todo collection adapter for id.
func (c *Client) Scoped(id model.Identity) Adapter {
	col := &TodoCollection{client: c, identity: id}
	if c.passphrase != "" {
		col.crypto = NewCrypto(c.passphrase, IdentitySalt(id.UID))
	}
	return col
}

func (c *Client) do(ctx context.Context, method, path, token string, body interface{}) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(data)
	}

	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	logger.Debug("HTTP Request", logger.F("method", method), logger.F("url", url))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	logger.Debug("HTTP Response", logger.F("status", resp.StatusCode), logger.F("url", url))
	return resp, nil
}

func statusError(op string, resp *http.Response) error {
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%s: %w: %s", op, ErrUnauthorized, strings.TrimSpace(string(respBody)))
	}
	return fmt.Errorf("%s: server error %d: %s", op, resp.StatusCode, strings.TrimSpace(string(respBody)))
}
