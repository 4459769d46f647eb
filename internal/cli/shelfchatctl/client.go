package shelfchatctl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
)

type client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// statusError is returned for any API response with status >= 400.
type statusError struct {
	Status int
	Body   []byte
}

func (e *statusError) Error() string {
	return fmt.Sprintf("http %d: %s", e.Status, strings.TrimSpace(string(e.Body)))
}

func (c *client) do(ctx context.Context, method, path string, requestBody any) ([]byte, error) {
	var payload io.Reader
	if requestBody != nil {
		raw, err := json.Marshal(requestBody)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		payload = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if requestBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, &statusError{Status: resp.StatusCode, Body: body}
	}
	return body, nil
}

// stream sends question over /v1/ask/stream and hands every frame to onFrame
// until a done or error frame arrives.
func (c *client) stream(ctx context.Context, question string, onFrame func(frameType string, raw []byte)) (string, error) {
	endpoint, err := url.Parse(c.baseURL + "/v1/ask/stream")
	if err != nil {
		return "", err
	}
	switch endpoint.Scheme {
	case "https":
		endpoint.Scheme = "wss"
	default:
		endpoint.Scheme = "ws"
	}

	header := http.Header{}
	if c.apiKey != "" {
		header.Set("X-API-Key", c.apiKey)
	}
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, endpoint.String(), header)
	if err != nil {
		if resp != nil {
			body, _ := io.ReadAll(resp.Body)
			_ = resp.Body.Close()
			return "", &statusError{Status: resp.StatusCode, Body: body}
		}
		return "", fmt.Errorf("dial %s: %w", endpoint.Redacted(), err)
	}
	defer func() { _ = conn.Close() }()

	if err := conn.WriteJSON(map[string]string{"question": question}); err != nil {
		return "", fmt.Errorf("send question: %w", err)
	}
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return "", fmt.Errorf("read stream: %w", err)
		}
		var frame struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(raw, &frame); err != nil {
			return "", fmt.Errorf("decode frame: %w", err)
		}
		onFrame(frame.Type, raw)
		if frame.Type == "done" || frame.Type == "error" {
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return frame.Type, nil
		}
	}
}

func prettyJSON(raw []byte) (string, bool) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return "", false
	}
	var anyValue any
	if err := json.Unmarshal(raw, &anyValue); err != nil {
		return "", false
	}
	formatted, err := json.MarshalIndent(anyValue, "", "  ")
	if err != nil {
		return "", false
	}
	return string(formatted), true
}
