package port_reader

import (
	"bufio"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/NotCoffee418/p1_forwarder/pkg/telegram"
)

type State int

const (
	StateClosed State = iota
	StateOpen
	StateReading
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateReading:
		return "reading"
	}
	return "unknown"
}

// P1Reader owns the serial connection and the ingestion loop.
// Everything except the port handle is confined to the reading goroutine.
type P1Reader struct {
	dialer      Dialer
	logger      *slog.Logger
	reopenDelay time.Duration

	portMu sync.Mutex
	port   io.ReadCloser

	reader    *bufio.Reader
	state     State
	openCount int

	assembler telegram.FrameAssembler
	validator *telegram.ChecksumValidator
	extractor *telegram.FieldExtractor
}
