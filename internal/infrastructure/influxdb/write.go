package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/meimefarm/greenhouse-core/internal/telemetry"
)

// WriteEnvironment records the environmental subset of a snapshot as one
// point in the environment measurement. Actuator and spectral fields are
// deliberately excluded; only sensor readings belong in the time series.
//
// The write is non-blocking: points are batched and flushed by the
// client, and failures surface through the SetOnError callback.
//
// siteID tags the point so multiple gateways can share a bucket.
func (c *Client) WriteEnvironment(siteID string, snap telemetry.Snapshot) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"environment",
		map[string]string{
			"site": siteID,
		},
		map[string]interface{}{
			"temperature": snap.Temperature,
			"humidity":    snap.Humidity,
			"light":       snap.Light,
			"co2":         snap.CO2,
			"earth_temp":  snap.EarthTemp,
			"earth_water": snap.EarthWater,
			"earth_ec":    snap.EarthEC,
			"earth_n":     snap.EarthN,
			"earth_p":     snap.EarthP,
			"earth_k":     snap.EarthK,
		},
		time.UnixMilli(snap.TimestampMs),
	)

	c.writeAPI.WritePoint(point)
}
