// Package influxdb mirrors published window transitions into InfluxDB.
//
// It wraps the official influxdb-client-go v2 library. The mirror is
// optional: when disabled in config, Connect returns ErrDisabled and the
// publisher runs without history.
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteTransition(influxdb.TransitionPoint{
//	    WindowID:  "window-0",
//	    FromState: 0,
//	    ToState:   1,
//	    Timestamp: time.Now(),
//	})
//
// # Error Handling
//
// Writes are non-blocking; batch errors are delivered through SetOnError.
// Connection and health check errors are returned directly.
package influxdb
