package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// measurementTransition is the measurement written for each state change.
const measurementTransition = "window_transition"

// TransitionPoint is one published state change.
type TransitionPoint struct {
	WindowID  string
	Floor     string
	Room      string
	FromState int
	ToState   int
	Timestamp time.Time
}

// WriteTransition queues a transition point. Writes are dropped when the
// client is not connected; errors arrive through SetOnError.
func (c *Client) WriteTransition(p TransitionPoint) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}
	c.writeAPI.WritePoint(transitionPoint(p))
	return nil
}

// transitionPoint tags by location so history can be queried per room.
func transitionPoint(p TransitionPoint) *write.Point {
	tags := map[string]string{
		"window_id": p.WindowID,
	}
	if p.Floor != "" {
		tags["floor"] = p.Floor
	}
	if p.Room != "" {
		tags["room"] = p.Room
	}

	return write.NewPoint(
		measurementTransition,
		tags,
		map[string]interface{}{
			"from_state": int64(p.FromState),
			"to_state":   int64(p.ToState),
		},
		p.Timestamp,
	)
}
