package printing

import (
	"context"
	"encoding/json"
	"fmt"

	"scanlane/internal/domain"
	"scanlane/internal/storage"
)

// Channel names used in job requests and logs.
const (
	ChannelNative = "native"
	ChannelBridge = "bridge"
	ChannelSystem = "system"
)

// Channel is one way of getting an encoded receipt onto paper.
type Channel interface {
	Name() string
	Send(ctx context.Context, payload []byte, printerName string) error
}

// NativeChannel pushes raw bytes straight at the platform spooler.
type NativeChannel struct {
	printer NativePrinter
}

func NewNativeChannel(printer NativePrinter) *NativeChannel {
	return &NativeChannel{printer: printer}
}

func (c *NativeChannel) Name() string { return ChannelNative }

func (c *NativeChannel) Send(ctx context.Context, payload []byte, printerName string) error {
	if err := c.printer.SendRaw(ctx, payload, printerName); err != nil {
		return fmt.Errorf("native send failed: %w", err)
	}
	return nil
}

// BridgeChannel routes through the local print bridge, performing the
// handshake lazily on first use and reusing the connection afterwards.
type BridgeChannel struct {
	conn BridgeConn
}

func NewBridgeChannel(conn BridgeConn) *BridgeChannel {
	return &BridgeChannel{conn: conn}
}

func (c *BridgeChannel) Name() string { return ChannelBridge }

func (c *BridgeChannel) Send(ctx context.Context, payload []byte, printerName string) error {
	if !c.conn.IsConnected() {
		if err := c.conn.Connect(ctx); err != nil {
			// Surfaced as-is: a handshake failure must stay
			// distinguishable from a send failure.
			return err
		}
	}

	if printerName != "" {
		c.conn.SelectPrinter(printerName)
	}
	return c.conn.SendRaw(ctx, payload)
}

// SystemChannel is the graphical, non-raw fallback: instead of raw
// bytes, the receipt document is parked in durable storage under the
// job's preview key and an out-of-process viewer renders and prints it.
// It deliberately does not implement Channel; the dispatcher routes to
// it explicitly.
type SystemChannel struct {
	store storage.Store
}

func NewSystemChannel(store storage.Store) *SystemChannel {
	return &SystemChannel{store: store}
}

// Park stores a receipt document for the preview viewer under
// print:{jobID}. The viewer deletes the slot once consumed; the
// dispatcher deletes it after a successful raw print.
func (c *SystemChannel) Park(ctx context.Context, jobID string, doc domain.ReceiptDocument) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode preview document: %w", err)
	}
	if err := c.store.Set(ctx, PreviewKey(jobID), string(data)); err != nil {
		return fmt.Errorf("failed to park preview document: %w", err)
	}
	return nil
}

// PreviewKey is the durable slot shared with the preview viewer.
func PreviewKey(jobID string) string {
	return "print:" + jobID
}
