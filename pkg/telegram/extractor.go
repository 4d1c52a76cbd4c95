package telegram

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/NotCoffee418/p1_forwarder/pkg/types"
)

// YYMMDDhhmmss, followed by a W (winter) or S (summer) flag.
const timestampLayout = "060102150405"

var (
	errTimestampFormat = errors.New("timestamp is not YYMMDDhhmmss[WS]")
	errGasGroups       = errors.New("gas value needs exactly two groups")
)

type FieldExtractor struct {
	logger   *slog.Logger
	fields   map[string]FieldDefinition
	location *time.Location
}

func NewFieldExtractor(logger *slog.Logger) *FieldExtractor {
	return &FieldExtractor{
		logger:   logger,
		fields:   Fields,
		location: time.Local,
	}
}

// Extract builds a reading from a frame whose checksum has been validated.
// Returns false when the frame carries no usable timestamp.
func (e *FieldExtractor) Extract(frame []byte) (*types.Reading, bool) {
	values := splitDataLines(string(frame))

	// Sorted for deterministic output only.
	codes := make([]string, 0, len(values))
	for code := range values {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	reading := &types.Reading{Fields: make(map[string]types.FieldValue)}
	hasTimestamp := false

	for _, code := range codes {
		payload := values[code]

		if code == timestampTag {
			ts, err := parseTimestamp(payload, e.location)
			if err != nil {
				e.logger.Warn("Invalid telegram timestamp", "value", payload, "error", err)
				continue
			}
			reading.Timestamp = ts
			hasTimestamp = true
			continue
		}

		def, ok := e.fields[code]
		if !ok || def.OutputKey == "" {
			continue
		}

		value, err := parseValue(payload)
		if err != nil {
			e.logger.Debug("Skipping unparseable value", "code", code, "value", payload, "error", err)
			continue
		}
		e.logger.Debug(def.Label, "value", value)

		reading.Fields[def.OutputKey] = types.FieldValue{Value: value, Unit: def.Unit}
	}

	if !hasTimestamp {
		return nil, false
	}
	return reading, true
}

// splitDataLines maps each OBIS code to its raw payload, opening parenthesis
// included. Only lines starting with a digit carry data.
func splitDataLines(frame string) map[string]string {
	values := make(map[string]string)
	for _, line := range strings.Split(frame, "\r\n") {
		if line == "" || line[0] < '0' || line[0] > '9' {
			continue
		}
		code, rest, found := strings.Cut(line, "(")
		if found {
			rest = "(" + rest
		}
		values[code] = rest
	}
	return values
}

func parseTimestamp(payload string, loc *time.Location) (time.Time, error) {
	value := strings.TrimRight(strings.TrimLeft(payload, "("), ")")
	if len(value) != len(timestampLayout)+1 {
		return time.Time{}, errTimestampFormat
	}

	// The DST flag is accepted and dropped; no offset is applied.
	switch value[len(value)-1] {
	case 'W', 'S':
	default:
		return time.Time{}, errTimestampFormat
	}

	ts, err := time.ParseInLocation(timestampLayout, value[:len(timestampLayout)], loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", errTimestampFormat, err)
	}
	return ts, nil
}

func parseValue(payload string) (float64, error) {
	if strings.Contains(payload, "m3") {
		return parseGasValue(payload)
	}

	value := strings.TrimLeft(payload, "(")
	value = strings.TrimRight(value, ")*kWhAV")
	return strconv.ParseFloat(value, 64)
}

// Gas lines carry (capture time)(value*m3). The capture time is dropped.
func parseGasValue(payload string) (float64, error) {
	groups := parenGroups(payload)
	if len(groups) != 2 {
		return 0, errGasGroups
	}
	return strconv.ParseFloat(strings.TrimSuffix(groups[1], "*m3"), 64)
}

// parenGroups returns the contents of every "(...)" group, left to right.
func parenGroups(s string) []string {
	var groups []string
	for {
		start := strings.IndexByte(s, '(')
		if start < 0 {
			return groups
		}
		s = s[start+1:]

		end := strings.IndexByte(s, ')')
		if end < 0 {
			return groups
		}
		groups = append(groups, s[:end])
		s = s[end+1:]
	}
}
