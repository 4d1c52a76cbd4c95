package telegram

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
)

// sampleTelegram is a DSMR 5 telegram with a valid CRC.
const sampleTelegram = "/ISK5\\2M550T-1012\r\n" +
	"\r\n" +
	"1-3:0.2.8(50)\r\n" +
	"0-0:1.0.0(220901120000S)\r\n" +
	"0-0:96.1.1(4530303434303037313331363130333136)\r\n" +
	"1-0:1.8.1(001581.123*kWh)\r\n" +
	"1-0:1.8.2(001435.706*kWh)\r\n" +
	"1-0:2.8.1(000000.000*kWh)\r\n" +
	"1-0:2.8.2(000000.000*kWh)\r\n" +
	"0-0:96.14.0(0002)\r\n" +
	"1-0:1.7.0(00.354*kW)\r\n" +
	"1-0:2.7.0(00.000*kW)\r\n" +
	"0-0:96.3.10(1)\r\n" +
	"0-0:96.7.21(00010)\r\n" +
	"0-0:96.7.9(00003)\r\n" +
	"1-0:99.97.0(1)(0-0:96.7.19)(190220102523W)(0000000237*s)\r\n" +
	"1-0:32.32.0(00002)\r\n" +
	"1-0:32.36.0(00000)\r\n" +
	"0-0:96.13.0()\r\n" +
	"1-0:32.7.0(230.1*V)\r\n" +
	"1-0:31.7.0(001*A)\r\n" +
	"1-0:21.7.0(00.354*kW)\r\n" +
	"1-0:22.7.0(00.000*kW)\r\n" +
	"0-1:24.1.0(003)\r\n" +
	"0-1:96.1.0(4730303339303031383030343533313138)\r\n" +
	"0-1:24.2.1(220901115500S)(00123.456*m3)\r\n" +
	"!2C4B\r\n"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func bufferLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// withChecksum terminates body with a correct checksum line.
func withChecksum(body string) string {
	data := body + "!"
	return data + fmt.Sprintf("%04X", Checksum([]byte(data))) + "\r\n"
}
