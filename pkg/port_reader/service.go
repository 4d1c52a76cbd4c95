package port_reader

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/NotCoffee418/p1_forwarder/pkg/telegram"
	"github.com/NotCoffee418/p1_forwarder/pkg/types"
)

const defaultReopenDelay = 100 * time.Millisecond

func NewP1Reader(dialer Dialer, logger *slog.Logger) *P1Reader {
	return &P1Reader{
		dialer:      dialer,
		logger:      logger,
		reopenDelay: defaultReopenDelay,
		state:       StateClosed,
		validator:   telegram.NewChecksumValidator(logger),
		extractor:   telegram.NewFieldExtractor(logger),
	}
}

func (p *P1Reader) State() State {
	return p.state
}

// BadChecksums reports how many frames failed validation since startup.
func (p *P1Reader) BadChecksums() uint64 {
	return p.validator.BadChecksums()
}

// Open connects to the serial device. Any partially assembled frame is
// dropped so no frame ever spans two connections.
func (p *P1Reader) Open(ctx context.Context) error {
	p.logger.Info("Opening serial line", "count", p.openCount)
	p.openCount++

	port, err := p.dialer.Dial(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrOpenFailed, err)
	}

	p.portMu.Lock()
	p.port = port
	p.portMu.Unlock()

	p.reader = bufio.NewReader(port)
	p.assembler.Reset()
	p.state = StateOpen
	return nil
}

// ReadLine returns the next line including its "\r\n". On any failure the
// port is closed before the error is returned.
func (p *P1Reader) ReadLine() (string, error) {
	if p.state == StateClosed {
		return "", ErrNotOpen
	}

	p.state = StateReading
	line, err := p.reader.ReadString('\n')
	if err == nil && !isASCII(line) {
		err = ErrNonASCII
	}
	if err != nil {
		p.Close()
		return "", fmt.Errorf("%w: %w", ErrReadFailed, err)
	}

	p.state = StateOpen
	p.logger.Debug("Received line", "line", strings.TrimRight(line, "\r\n"))
	return line, nil
}

func (p *P1Reader) Close() {
	p.portMu.Lock()
	port := p.port
	p.port = nil
	p.portMu.Unlock()

	p.state = StateClosed
	p.reader = nil

	if port == nil {
		return
	}
	if err := port.Close(); err != nil {
		p.logger.Warn("Failed to close serial port", "error", err)
	}
}

// StartReading runs the ingestion loop until ctx is cancelled, handing every
// validated reading to handleReading. The port is opened when closed; a
// failed open ends the loop with an error wrapping ErrOpenFailed. Read
// failures only cost the frame in progress.
func (p *P1Reader) StartReading(ctx context.Context, handleReading func(*types.Reading)) error {
	// Unblocks a pending read on shutdown.
	stop := context.AfterFunc(ctx, p.interrupt)
	defer stop()
	defer p.Close()

	for {
		if ctx.Err() != nil {
			return nil
		}

		if p.state == StateClosed {
			if err := p.Open(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
		}

		line, err := p.ReadLine()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			p.logger.Error("There was a problem reading the telegram, continuing", "error", err)
			p.discardPartialFrame()
			sleepWithContext(ctx, p.reopenDelay)
			continue
		}

		frame, complete := p.assembler.Push(line)
		if !complete {
			continue
		}

		if reading := p.processFrame(frame); reading != nil {
			handleReading(reading)
		}
	}
}

func (p *P1Reader) processFrame(frame []byte) *types.Reading {
	if !p.validator.Validate(frame).Valid {
		return nil
	}
	p.logger.Debug("Good checksum")

	reading, ok := p.extractor.Extract(frame)
	if !ok {
		p.logger.Warn("Telegram has no valid timestamp, skipping")
		return nil
	}
	return reading
}

func (p *P1Reader) discardPartialFrame() {
	if pending := p.assembler.Pending(); pending > 0 {
		p.logger.Info("Discarding partial telegram", "bytes", pending)
	}
	p.assembler.Reset()
}

// interrupt closes the port from outside the reading goroutine.
func (p *P1Reader) interrupt() {
	p.portMu.Lock()
	port := p.port
	p.port = nil
	p.portMu.Unlock()

	if port != nil {
		port.Close()
	}
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

func sleepWithContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
