// Package influxdb mirrors climate readings into InfluxDB.
//
// It wraps the official influxdb-client-go v2 library. The mirror is
// optional (influxdb.enabled) and never affects publishing: writes are
// batched and non-blocking, and failures are reported through a callback.
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//	client.SetDevice(cfg.Device.HomeID, cfg.Device.ID)
//	client.WriteReading(reading)
//
// Each reading becomes one point in the "climate" measurement, tagged with
// home_id and device_id, with temperature_c and humidity_pct fields.
package influxdb
