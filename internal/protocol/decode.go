package protocol

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/meimefarm/greenhouse-core/internal/telemetry"
)

// DecodeEnvironment parses an environmental data payload into a partial
// update. Unknown fields are ignored; numeric fields that fail to parse
// are left absent from the partial so the merge keeps the prior value,
// never zeroing out a known-good reading.
func DecodeEnvironment(payload []byte) (telemetry.EnvironmentPartial, error) {
	fields, err := parseFields(payload)
	if err != nil {
		return telemetry.EnvironmentPartial{}, err
	}

	return telemetry.EnvironmentPartial{
		Temperature: numField(fields, "temperature"),
		Humidity:    numField(fields, "humidity"),
		Light:       numField(fields, "light"),
		CO2:         numField(fields, "co2"),
		EarthTemp:   numField(fields, "earth_temp"),
		EarthWater:  numField(fields, "earth_water"),
		EarthEC:     numField(fields, "earth_ec"),
		EarthN:      numField(fields, "earth_n"),
		EarthP:      numField(fields, "earth_p"),
		EarthK:      numField(fields, "earth_k"),
	}, nil
}

// DecodeActuator parses a sensor node payload carrying relay states and
// LED brightness levels.
func DecodeActuator(payload []byte) (telemetry.ActuatorPartial, error) {
	fields, err := parseFields(payload)
	if err != nil {
		return telemetry.ActuatorPartial{}, err
	}

	return telemetry.ActuatorPartial{
		Relay5: numField(fields, "relay5"),
		Relay6: numField(fields, "relay6"),
		Relay7: numField(fields, "relay7"),
		Relay8: numField(fields, "relay8"),
		LED1:   numField(fields, "led1"),
		LED2:   numField(fields, "led2"),
		LED3:   numField(fields, "led3"),
		LED4:   numField(fields, "led4"),
	}, nil
}

// DecodeSpectral parses a spectral sensor payload. Spectral messages are
// sparse; channels not present in the payload retain their previous
// snapshot value after the merge.
func DecodeSpectral(payload []byte) (telemetry.SpectralPartial, error) {
	fields, err := parseFields(payload)
	if err != nil {
		return telemetry.SpectralPartial{}, err
	}

	return telemetry.SpectralPartial{
		Channel1:  numField(fields, "channel_1"),
		Channel2:  numField(fields, "channel_2"),
		Channel3:  numField(fields, "channel_3"),
		Channel4:  numField(fields, "channel_4"),
		Channel5:  numField(fields, "channel_5"),
		Channel6:  numField(fields, "channel_6"),
		Channel7:  numField(fields, "channel_7"),
		Channel8:  numField(fields, "channel_8"),
		Channel9:  numField(fields, "channel_9"),
		Channel10: numField(fields, "channel_10"),
		Channel11: numField(fields, "channel_11"),
		Flicker:   numField(fields, "flicker"),
	}, nil
}

func parseFields(payload []byte) (map[string]any, error) {
	var fields map[string]any
	if err := json.Unmarshal(payload, &fields); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecodeFailed, err)
	}
	return fields, nil
}

// numField extracts an integer field by name. Devices occasionally send
// numbers as quoted strings, so both forms are accepted. A missing,
// null, or unparsable value returns nil (absent from the partial).
func numField(fields map[string]any, key string) *int {
	raw, ok := fields[key]
	if !ok {
		return nil
	}
	switch v := raw.(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil
		}
		n := int(v)
		return &n
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return nil
		}
		return &n
	default:
		return nil
	}
}
