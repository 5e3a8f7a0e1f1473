package printing

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// NativePrinter is the platform print collaborator: enumerate printers,
// report the default, push raw bytes at one of them.
type NativePrinter interface {
	ListPrinters(ctx context.Context) ([]string, error)
	DefaultPrinterName(ctx context.Context) (string, error)
	SendRaw(ctx context.Context, payload []byte, printerName string) error
}

// LPPrinter drives the system spooler through lpstat/lp. Raw mode (-o
// raw) keeps the spooler from re-rendering the ESC/POS stream.
type LPPrinter struct{}

func NewLPPrinter() *LPPrinter {
	return &LPPrinter{}
}

func (p *LPPrinter) ListPrinters(ctx context.Context) ([]string, error) {
	out, err := exec.CommandContext(ctx, "lpstat", "-e").Output()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate printers: %w", err)
	}

	var names []string
	for _, line := range strings.Split(string(out), "\n") {
		if name := strings.TrimSpace(line); name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}

func (p *LPPrinter) DefaultPrinterName(ctx context.Context) (string, error) {
	out, err := exec.CommandContext(ctx, "lpstat", "-d").Output()
	if err != nil {
		return "", fmt.Errorf("failed to query default printer: %w", err)
	}

	// lpstat -d prints "system default destination: NAME" or a
	// no-default message.
	line := strings.TrimSpace(string(out))
	if idx := strings.LastIndex(line, ":"); idx >= 0 {
		if name := strings.TrimSpace(line[idx+1:]); name != "" {
			return name, nil
		}
	}
	return "", nil
}

func (p *LPPrinter) SendRaw(ctx context.Context, payload []byte, printerName string) error {
	tmp, err := os.CreateTemp("", "receipt-*.bin")
	if err != nil {
		return fmt.Errorf("failed to spool receipt: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to spool receipt: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to spool receipt: %w", err)
	}

	args := []string{"-o", "raw"}
	if printerName != "" {
		args = append(args, "-d", printerName)
	}
	args = append(args, tmp.Name())

	if out, err := exec.CommandContext(ctx, "lp", args...).CombinedOutput(); err != nil {
		return fmt.Errorf("lp failed: %v: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}
