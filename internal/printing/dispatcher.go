package printing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"scanlane/internal/domain"
	"scanlane/internal/storage"
)

var (
	// ErrChannelUnavailable wraps handshake/reachability failures so the
	// operator can pick another channel. The dispatcher never retries the
	// same channel on its own: thermal printers are stateful and a
	// partial cut or feed must not be repeated.
	ErrChannelUnavailable = errors.New("print channel unavailable")

	ErrUnknownChannel = errors.New("unknown print channel")
	ErrNoPrinter      = errors.New("no printer available")
)

// defaultPrinterKey is the durable slot holding the operator's saved
// printer choice.
const defaultPrinterKey = "printer:default"

// Job is one dispatch attempt: an encoded payload bound for a channel.
// Transient; it exists only for the duration of the attempt.
type Job struct {
	ID          string
	Payload     []byte
	Document    domain.ReceiptDocument
	Channel     string // ChannelNative, ChannelBridge, ChannelSystem; empty means native
	PrinterName string // explicit override, optional
}

// Result reports where a job ended up.
type Result struct {
	Channel     string `json:"channel"`
	PrinterName string `json:"printer_name,omitempty"`
	JobID       string `json:"job_id"`
}

// Dispatcher routes encoded receipts to one of the configured channels:
// Idle -> Resolving-Channel -> Sending -> Success or Failed. Fallback
// across channels is the caller's decision.
type Dispatcher struct {
	native  *NativeChannel
	bridge  *BridgeChannel
	system  *SystemChannel
	printer NativePrinter
	store   storage.Store
	timeout time.Duration
	logger  *zap.Logger
}

func NewDispatcher(
	native *NativeChannel,
	bridge *BridgeChannel,
	system *SystemChannel,
	printer NativePrinter,
	store storage.Store,
	timeout time.Duration,
	logger *zap.Logger,
) *Dispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{
		native:  native,
		bridge:  bridge,
		system:  system,
		printer: printer,
		store:   store,
		timeout: timeout,
		logger:  logger,
	}
}

// Dispatch sends one job. Channel errors come back verbatim so the
// operator has enough detail to choose a fallback; a successful raw send
// also clears the job's parked preview state.
func (d *Dispatcher) Dispatch(ctx context.Context, job Job) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	channelName := job.Channel
	if channelName == "" {
		channelName = ChannelNative
	}

	if channelName == ChannelSystem {
		if err := d.system.Park(ctx, job.ID, job.Document); err != nil {
			return nil, err
		}
		d.logger.Info("Receipt handed to system preview",
			zap.String("job_id", job.ID),
		)
		return &Result{Channel: ChannelSystem, JobID: job.ID}, nil
	}

	var channel Channel
	switch channelName {
	case ChannelNative:
		channel = d.native
	case ChannelBridge:
		channel = d.bridge
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownChannel, job.Channel)
	}

	printerName, err := d.resolvePrinter(ctx, job.PrinterName)
	if err != nil {
		return nil, err
	}

	if err := channel.Send(ctx, job.Payload, printerName); err != nil {
		if errors.Is(err, ErrBridgeUnavailable) {
			err = fmt.Errorf("%w: %v", ErrChannelUnavailable, err)
		}
		d.logger.Warn("Print dispatch failed",
			zap.String("job_id", job.ID),
			zap.String("channel", channelName),
			zap.String("printer", printerName),
			zap.Error(err),
		)
		return nil, err
	}

	// The parked preview payload is transient; once the receipt is on
	// paper it is deleted.
	if job.ID != "" {
		if err := d.store.Remove(ctx, PreviewKey(job.ID)); err != nil {
			d.logger.Warn("Failed to clear preview state",
				zap.String("job_id", job.ID),
				zap.Error(err),
			)
		}
	}

	d.logger.Info("Receipt dispatched",
		zap.String("job_id", job.ID),
		zap.String("channel", channelName),
		zap.String("printer", printerName),
		zap.Int("bytes", len(job.Payload)),
	)
	return &Result{Channel: channelName, PrinterName: printerName, JobID: job.ID}, nil
}

// SaveDefaultPrinter records the operator's printer choice.
func (d *Dispatcher) SaveDefaultPrinter(ctx context.Context, name string) error {
	if err := d.store.Set(ctx, defaultPrinterKey, name); err != nil {
		return fmt.Errorf("failed to save default printer: %w", err)
	}
	return nil
}

// ListPrinters exposes the platform's printer enumeration.
func (d *Dispatcher) ListPrinters(ctx context.Context) ([]string, error) {
	return d.printer.ListPrinters(ctx)
}

// resolvePrinter applies the preference order: explicit caller choice,
// saved default, platform default, first enumerated.
func (d *Dispatcher) resolvePrinter(ctx context.Context, explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}

	if saved, ok, err := d.store.Get(ctx, defaultPrinterKey); err == nil && ok && saved != "" {
		return saved, nil
	}

	if name, err := d.printer.DefaultPrinterName(ctx); err == nil && name != "" {
		return name, nil
	}

	names, err := d.printer.ListPrinters(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoPrinter, err)
	}
	if len(names) == 0 {
		return "", ErrNoPrinter
	}
	return names[0], nil
}
