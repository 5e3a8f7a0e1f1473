package printing

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
)

// ErrBridgeUnavailable reports a failed connect/handshake with the local
// print bridge. It is distinct from a send failure so callers can fall
// back to another channel instead of retrying a half-printed job.
var ErrBridgeUnavailable = errors.New("print bridge unavailable")

// BridgeConn is the handshake-based print collaborator: a local print
// service brokering raw output to OS-registered printers. A connection is
// established once and reused across jobs.
type BridgeConn interface {
	Connect(ctx context.Context) error
	IsConnected() bool
	SelectPrinter(name string)
	SendRaw(ctx context.Context, payload []byte) error
}

// HTTPBridge talks to the bridge service over HTTP: POST /connect for
// the handshake, POST /print for raw jobs.
type HTTPBridge struct {
	baseURL string
	http    *http.Client

	mu        sync.Mutex
	connected bool
	printer   string
}

func NewHTTPBridge(baseURL string) *HTTPBridge {
	return &HTTPBridge{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
	}
}

func (b *HTTPBridge) Connect(ctx context.Context) error {
	b.mu.Lock()
	if b.connected {
		b.mu.Unlock()
		return nil
	}
	b.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/connect", nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBridgeUnavailable, err)
	}
	resp, err := b.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBridgeUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: handshake returned status %d", ErrBridgeUnavailable, resp.StatusCode)
	}

	b.mu.Lock()
	b.connected = true
	b.mu.Unlock()
	return nil
}

func (b *HTTPBridge) IsConnected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.connected
}

func (b *HTTPBridge) SelectPrinter(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.printer = name
}

func (b *HTTPBridge) SendRaw(ctx context.Context, payload []byte) error {
	b.mu.Lock()
	printer := b.printer
	connected := b.connected
	b.mu.Unlock()

	if !connected {
		return ErrBridgeUnavailable
	}

	body, err := json.Marshal(map[string]string{
		"printer": printer,
		"data":    base64.StdEncoding.EncodeToString(payload),
	})
	if err != nil {
		return fmt.Errorf("failed to encode print job: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/print", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build print request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.http.Do(req)
	if err != nil {
		// A transport error after a successful handshake means the
		// bridge went away; drop the cached connection.
		b.mu.Lock()
		b.connected = false
		b.mu.Unlock()
		return fmt.Errorf("bridge send failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bridge send returned status %d", resp.StatusCode)
	}
	return nil
}
