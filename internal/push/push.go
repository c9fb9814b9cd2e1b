// Package push defines the frame type shared by the realtime services and
// the websocket transport.
package push

// Message is one frame queued to a subscriber connection. Seq is
// monotonic per room so clients can drop stale frames.
type Message struct {
	Type string      `json:"type"`
	Seq  int64       `json:"seq"`
	Data interface{} `json:"data"`
}
