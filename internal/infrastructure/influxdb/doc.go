// Package influxdb persists greenhouse sensor readings to InfluxDB v2.
//
// It wraps the official influxdb-client-go v2 library. After every
// environmental merge the gateway hands the snapshot to WriteEnvironment,
// which records the sensor subset (never actuator or spectral state) as
// a single point.
//
// # Error Handling
//
// Writes are non-blocking and batched; batch errors are delivered
// asynchronously via the SetOnError callback and logged by the gateway.
// A slow or unreachable InfluxDB never stalls telemetry ingestion.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteEnvironment("greenhouse-01", snapshot)
//
// All methods are safe for concurrent use from multiple goroutines.
package influxdb
