package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// ErrIncompleteStream reports a chat stream that closed before the
// terminal done=true chunk arrived.
var ErrIncompleteStream = errors.New("stream closed before done signal")

type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}

	// no client timeout: chat responses stream for as long as generation
	// runs, cancellation comes from the request context
	return &Client{baseURL: baseURL, http: &http.Client{}}
}

// ChatStream starts a streaming chat request. The returned Stream yields
// chunks in arrival order until the terminal chunk; the caller must Close it.
func (c *Client) ChatStream(ctx context.Context, chatReq ChatRequest) (Stream, error) {
	chatReq.Stream = true

	jsonBody, err := json.Marshal(chatReq)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/chat", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != 200 {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("ollama error (status %d): %s", resp.StatusCode, string(body))
	}

	return &chatStream{body: resp.Body, dec: json.NewDecoder(resp.Body)}, nil
}

// Stream is a pull-based sequence of chat chunks. Next returns io.EOF
// after the terminal chunk has been consumed and ErrIncompleteStream if
// the connection closes without one.
type Stream interface {
	Next() (*ChatChunk, error)
	Close() error
}

type chatStream struct {
	body io.ReadCloser
	dec  *json.Decoder
	done bool
}

func (s *chatStream) Next() (*ChatChunk, error) {
	if s.done {
		return nil, io.EOF
	}

	var chunk ChatChunk
	if err := s.dec.Decode(&chunk); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrIncompleteStream
		}
		return nil, fmt.Errorf("decode chunk: %w", err)
	}

	if chunk.Done {
		s.done = true
	}

	return &chunk, nil
}

func (s *chatStream) Close() error {
	return s.body.Close()
}

// ListModels returns the models the server has available.
func (c *Client) ListModels(ctx context.Context) ([]Model, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("ollama error (status %d): %s", resp.StatusCode, string(body))
	}

	var tags struct {
		Models []Model `json:"models"`
	}
	if err := json.Unmarshal(body, &tags); err != nil {
		return nil, err
	}

	return tags.Models, nil
}
