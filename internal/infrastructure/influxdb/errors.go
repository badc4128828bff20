package influxdb

import "errors"

// Sentinel errors for InfluxDB operations.
var (
	// ErrNotConnected indicates the client is not connected to InfluxDB.
	ErrNotConnected = errors.New("influxdb: not connected")

	// ErrConnectionFailed indicates the initial connection attempt failed.
	ErrConnectionFailed = errors.New("influxdb: connection failed")

	// ErrDisabled indicates the history mirror is disabled in configuration.
	ErrDisabled = errors.New("influxdb: disabled in configuration")
)
