// Package explain calls a text-generation proxy that turns a prompt into an
// explanation. The proxy accepts {"prompt": ...} and answers {"text": ...}
// or {"error": ...}.
package explain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrUpstream indicates the proxy answered with a failure.
var ErrUpstream = errors.New("explanation service error")

const maxResponseBytes = 1 << 20

type Client struct {
	url  string
	http *http.Client
}

func NewClient(url string, timeout time.Duration) *Client {
	return &Client{url: url, http: &http.Client{Timeout: timeout}}
}

type request struct {
	Prompt string `json:"prompt"`
}

type response struct {
	Text  string `json:"text"`
	Error string `json:"error"`
}

// Explain implements goquad.Explainer.
func (c *Client) Explain(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(request{Prompt: prompt})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out response
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: status %d: decode: %v", ErrUpstream, resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := out.Error
		if msg == "" {
			msg = "failed to fetch explanation"
		}
		return "", fmt.Errorf("%w: status %d: %s", ErrUpstream, resp.StatusCode, msg)
	}
	return out.Text, nil
}
