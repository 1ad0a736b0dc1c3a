package prdgen

import "time"

// Message is one transcript entry: a user answer or an assistant discovery
// question. Messages are plain-text value types; a Session's transcript is
// append-only and Index reflects append order.
type Message struct {
	Role      Role
	Text      string
	Index     int
	Timestamp time.Time
}
