package telegram

// FieldDefinition describes an OBIS code the extractor recognizes.
// An empty OutputKey means the code is known but not forwarded.
type FieldDefinition struct {
	TagCode   string
	Label     string
	OutputKey string
	Unit      string
}

// Telegram clock, handled separately from the dictionary.
const timestampTag = "0-0:1.0.0"

// M-Bus channel the gas meter is attached to.
const gasMeterChannel = "1"

var fieldList = []FieldDefinition{
	{"1-0:1.8.1", "Meter Reading electricity delivered to client (Tariff 1) in kWh", "totalEnergyDeliveredToClientTariff1", "kWh"},
	{"1-0:1.8.2", "Meter Reading electricity delivered to client (Tariff 2) in kWh", "totalEnergyDeliveredToClientTariff2", "kWh"},
	{"1-0:2.8.1", "Meter Reading electricity delivered by client (Tariff 1) in kWh", "", ""},
	{"1-0:2.8.2", "Meter Reading electricity delivered by client (Tariff 2) in kWh", "", ""},
	{"0-0:96.14.0", "Tariff indicator electricity", "tariffIndicator", ""},
	{"1-0:1.7.0", "Actual electricity power delivered (+P) in kW", "actualPowerDelivered", "kW"},
	{"1-0:2.7.0", "Actual electricity power received (-P) in kW", "", ""},
	{"0-0:17.0.0", "The actual threshold electricity in kW", "", ""},
	{"0-0:96.3.10", "Switch position electricity", "switch", ""},
	{"0-0:96.7.21", "Number of power failures in any phase", "failures", ""},
	{"0-0:96.7.9", "Number of long power failures in any phase", "longFailures", ""},
	{"1-0:32.32.0", "Number of voltage sags in phase L1", "", ""},
	{"1-0:52.32.0", "Number of voltage sags in phase L2", "", ""},
	{"1-0:72.32.0", "Number of voltage sags in phase L3", "", ""},
	{"1-0:32.36.0", "Number of voltage swells in phase L1", "", ""},
	{"1-0:52.36.0", "Number of voltage swells in phase L2", "", ""},
	{"1-0:72.36.0", "Number of voltage swells in phase L3", "", ""},
	{"1-0:31.7.0", "Instantaneous current L1 in A", "actualCurrentL1", "A"},
	{"1-0:32.7.0", "Instantaneous voltage L1 in V", "actualVoltageL1", "V"},
	{"1-0:51.7.0", "Instantaneous current L2 in A", "", ""},
	{"1-0:71.7.0", "Instantaneous current L3 in A", "", ""},
	{"1-0:21.7.0", "Instantaneous active power L1 (+P) in kW", "actualPowerL1", "kW"},
	{"1-0:41.7.0", "Instantaneous active power L2 (+P) in kW", "", ""},
	{"1-0:61.7.0", "Instantaneous active power L3 (+P) in kW", "", ""},
	{"1-0:22.7.0", "Instantaneous active power L1 (-P) in kW", "", ""},
	{"1-0:42.7.0", "Instantaneous active power L2 (-P) in kW", "", ""},
	{"1-0:62.7.0", "Instantaneous active power L3 (-P) in kW", "", ""},
	{"0-" + gasMeterChannel + ":24.2.1", "gas delivered to client in m3", "totalGasDeliveredToClient", "m3"},
}

// Fields is the static dictionary keyed by tag code.
var Fields = buildFieldMap(fieldList)

func buildFieldMap(list []FieldDefinition) map[string]FieldDefinition {
	fields := make(map[string]FieldDefinition, len(list))
	for _, def := range list {
		fields[def.TagCode] = def
	}
	return fields
}
