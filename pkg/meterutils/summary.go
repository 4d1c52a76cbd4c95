package meterutils

import (
	"fmt"
	"math"
	"strings"

	"github.com/NotCoffee418/p1_forwarder/pkg/types"
)

// No negative values
func KwToW(kw float64) uint32 {
	if kw < 0 {
		return 0
	}
	return uint32(math.Round(kw * 1000))
}

// Summary renders the headline values of a reading on one line, e.g.
// "2022-09-01T12:00:00 delivered=354W l1=230.1V tariff=2 gas=123.456m3".
// Values missing from the reading are left out.
func Summary(reading *types.Reading) string {
	var sb strings.Builder
	sb.WriteString(reading.Timestamp.Format(types.DateTimeLayout))

	if v, ok := reading.Fields["actualPowerDelivered"]; ok {
		fmt.Fprintf(&sb, " delivered=%dW", KwToW(v.Value))
	}
	if v, ok := reading.Fields["actualVoltageL1"]; ok {
		fmt.Fprintf(&sb, " l1=%.1fV", v.Value)
	}
	if v, ok := reading.Fields["tariffIndicator"]; ok {
		fmt.Fprintf(&sb, " tariff=%d", int(v.Value))
	}
	if v, ok := reading.Fields["totalGasDeliveredToClient"]; ok {
		fmt.Fprintf(&sb, " gas=%.3fm3", v.Value)
	}
	return sb.String()
}
