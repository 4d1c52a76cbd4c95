package types

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

// DateTimeLayout is the local, zone-less ISO-8601 form used for "dateTime".
const DateTimeLayout = "2006-01-02T15:04:05"

const dateTimeKey = "dateTime"

// FieldValue is one forwarded measurement.
// Fields without a declared unit serialize as a bare number.
type FieldValue struct {
	Value float64
	Unit  string
}

type valueWithUnit struct {
	Unit  string  `json:"unit"`
	Value float64 `json:"value"`
}

func (f FieldValue) MarshalJSON() ([]byte, error) {
	if f.Unit == "" {
		return json.Marshal(f.Value)
	}
	return json.Marshal(valueWithUnit{Unit: f.Unit, Value: f.Value})
}

func (f *FieldValue) UnmarshalJSON(data []byte) error {
	var bare float64
	if err := json.Unmarshal(data, &bare); err == nil {
		*f = FieldValue{Value: bare}
		return nil
	}

	var wu valueWithUnit
	if err := json.Unmarshal(data, &wu); err != nil {
		return err
	}
	*f = FieldValue{Value: wu.Value, Unit: wu.Unit}
	return nil
}

// Reading is the parsed content of one valid telegram.
// Timestamp comes from the telegram's own clock, in local time.
// Fields is keyed by output key.
type Reading struct {
	Timestamp time.Time
	Fields    map[string]FieldValue
}

func (r Reading) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Fields)+1)
	for key, value := range r.Fields {
		out[key] = value
	}
	out[dateTimeKey] = r.Timestamp.Format(DateTimeLayout)
	return json.Marshal(out)
}

func (r *Reading) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	rawDateTime, ok := raw[dateTimeKey]
	if !ok {
		return fmt.Errorf("reading has no %s", dateTimeKey)
	}
	var dateTime string
	if err := json.Unmarshal(rawDateTime, &dateTime); err != nil {
		return fmt.Errorf("invalid %s: %w", dateTimeKey, err)
	}
	ts, err := time.ParseInLocation(DateTimeLayout, dateTime, time.Local)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", dateTimeKey, err)
	}
	delete(raw, dateTimeKey)

	fields := make(map[string]FieldValue, len(raw))
	for key, value := range raw {
		var fv FieldValue
		if err := json.Unmarshal(value, &fv); err != nil {
			return fmt.Errorf("invalid field %s: %w", key, err)
		}
		fields[key] = fv
	}

	r.Timestamp = ts
	r.Fields = fields
	return nil
}

func (r *Reading) ToJsonBytes() []byte {
	data, err := json.Marshal(r)
	if err != nil {
		slog.Error("Error marshaling reading", "error", err)
		return nil
	}
	return data
}

// Returns nil when the message is not a reading.
func ReadingFromJsonBytes(data []byte) *Reading {
	var reading Reading
	if err := json.Unmarshal(data, &reading); err != nil {
		return nil
	}
	return &reading
}
