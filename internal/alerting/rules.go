package alerting

import (
	"fmt"
	"strings"

	"github.com/meimefarm/greenhouse-core/internal/telemetry"
)

// Alert codes, one per threshold rule.
const (
	CodeHighTemp    = "high_temp"
	CodeFrost       = "frost"
	CodeLowHumidity = "low_humidity"
	CodeHighCO2     = "high_co2"
	CodeLowLight    = "low_light"
	CodeSoilDrought = "soil_drought"
	CodeSensorFault = "sensor_fault"
)

// Threshold values. Temperature and humidity thresholds apply to the
// tenths-scaled snapshot values divided by 10.
const (
	highTempCelsius    = 40.0
	frostCelsius       = 0.0
	lowHumidityPercent = 20.0
	highCO2PPM         = 3000
	lowLightLux        = 1200
	soilDroughtPercent = 10

	// Daytime window for the light rule: local hour in [8, 17).
	daytimeStartHour = 8
	daytimeEndHour   = 17
)

// Alert is one matched threshold rule: a stable code for history storage
// and a human-readable message fragment for the notification digest.
type Alert struct {
	Code    string
	Message string
}

// Evaluate runs every threshold rule against the snapshot and returns
// all matches in fixed rule order. Rules are independent; there is no
// early exit, so a single evaluation can yield multiple fragments.
//
// hour is the local hour (0-23) in the site's timezone; only the light
// rule consults it.
func Evaluate(snap telemetry.Snapshot, hour int) []Alert {
	var alerts []Alert

	tempC := float64(snap.Temperature) / 10
	humidityPct := float64(snap.Humidity) / 10

	if tempC > highTempCelsius {
		alerts = append(alerts, Alert{
			Code:    CodeHighTemp,
			Message: fmt.Sprintf("🌡️ 高温警报:当前温度 %.1f°C,超过 %.0f°C", tempC, highTempCelsius),
		})
	}
	if tempC < frostCelsius {
		alerts = append(alerts, Alert{
			Code:    CodeFrost,
			Message: fmt.Sprintf("❄️ 低温警报:当前温度 %.1f°C,存在霜冻风险", tempC),
		})
	}
	if humidityPct < lowHumidityPercent {
		alerts = append(alerts, Alert{
			Code:    CodeLowHumidity,
			Message: fmt.Sprintf("💧 低湿警报:当前湿度 %.1f%%,低于 %.0f%%", humidityPct, lowHumidityPercent),
		})
	}
	if snap.CO2 > highCO2PPM {
		alerts = append(alerts, Alert{
			Code:    CodeHighCO2,
			Message: fmt.Sprintf("🫧 CO2浓度警报:当前 %d ppm,超过 %d ppm", snap.CO2, highCO2PPM),
		})
	}
	if hour >= daytimeStartHour && hour < daytimeEndHour && snap.Light < lowLightLux {
		alerts = append(alerts, Alert{
			Code:    CodeLowLight,
			Message: fmt.Sprintf("☀️ 白天光照不足:当前 %d lux,低于 %d lux", snap.Light, lowLightLux),
		})
	}
	if snap.EarthWater < soilDroughtPercent {
		alerts = append(alerts, Alert{
			Code:    CodeSoilDrought,
			Message: fmt.Sprintf("🌱 土壤干旱警报:当前土壤湿度 %d%%,低于 %d%%", snap.EarthWater, soilDroughtPercent),
		})
	}
	if fault := faultySensors(snap); len(fault) > 0 {
		alerts = append(alerts, Alert{
			Code:    CodeSensorFault,
			Message: fmt.Sprintf("⚠️ 传感器可能故障(读数为 0):%s", strings.Join(fault, "、")),
		})
	}

	return alerts
}

// faultySensors names the sensors whose readings are exactly zero, which
// on this hardware means a disconnected or failed probe rather than a
// genuine measurement.
func faultySensors(snap telemetry.Snapshot) []string {
	checks := []struct {
		name  string
		value int
	}{
		{"湿度", snap.Humidity},
		{"CO2", snap.CO2},
		{"土壤湿度", snap.EarthWater},
		{"土壤EC", snap.EarthEC},
		{"氮", snap.EarthN},
		{"磷", snap.EarthP},
		{"钾", snap.EarthK},
	}

	var names []string
	for _, c := range checks {
		if c.value == 0 {
			names = append(names, c.name)
		}
	}
	return names
}
