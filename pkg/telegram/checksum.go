// Package telegram turns raw P1 lines into validated, parsed meter readings.
package telegram

import (
	"bytes"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/sigurn/crc16"
)

// The real telegram ends with an exclamation mark right after a CR/LF.
const terminator = "\r\n!"

const checksumDigits = 4

// CRC16_ARC is the reflected 0xA001 variant DSMR uses.
var crcTable = crc16.MakeTable(crc16.CRC16_ARC)

type ChecksumResult struct {
	Expected uint16
	Computed uint16
	Valid    bool
}

// Checksum computes the DSMR CRC16 over data.
func Checksum(data []byte) uint16 {
	return crc16.Checksum(data, crcTable)
}

type ChecksumValidator struct {
	logger       *slog.Logger
	badChecksums atomic.Uint64
}

func NewChecksumValidator(logger *slog.Logger) *ChecksumValidator {
	return &ChecksumValidator{logger: logger}
}

// Validate checks the frame's trailing CRC. Invalid frames are counted; only
// the second and later ones are reported.
func (v *ChecksumValidator) Validate(frame []byte) ChecksumResult {
	result := checkFrame(frame)
	if result.Valid {
		return result
	}

	if count := v.badChecksums.Add(1); count > 1 {
		v.logger.Warn("Bad checksum",
			"count", count,
			"expected", fmt.Sprintf("%04X", result.Expected),
			"computed", fmt.Sprintf("%04X", result.Computed),
		)
	}
	return result
}

// BadChecksums returns how many invalid frames have been seen so far.
func (v *ChecksumValidator) BadChecksums() uint64 {
	return v.badChecksums.Load()
}

func checkFrame(frame []byte) ChecksumResult {
	idx := bytes.Index(frame, []byte(terminator))
	if idx < 0 {
		return ChecksumResult{}
	}

	// The exclamation mark is part of the checksummed data.
	end := idx + len(terminator)
	computed := Checksum(frame[:end])

	// Strict: exactly one CRLF, nothing else.
	given := strings.TrimSuffix(string(frame[end:]), "\r\n")
	if !isChecksumField(given) {
		return ChecksumResult{Computed: computed}
	}
	expected, err := strconv.ParseUint(given, 16, 16)
	if err != nil {
		return ChecksumResult{Computed: computed}
	}

	return ChecksumResult{
		Expected: uint16(expected),
		Computed: computed,
		Valid:    uint16(expected) == computed,
	}
}

// DSMR writes the CRC as four uppercase hex digits.
func isChecksumField(s string) bool {
	if len(s) != checksumDigits {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'A' || c > 'F') {
			return false
		}
	}
	return true
}
