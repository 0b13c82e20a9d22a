// Package messaging carries native-to-web events. Native code publishes
// envelopes onto the bus; each connected web view holds a subscription and
// pumps the envelopes over its event socket.
package messaging

// Publisher is the send side of the event bus, the only side native
// services see.
type Publisher interface {
	// Publish emits an event for the given bridge module and function. The
	// payload is marshalled to JSON; a payload that cannot be marshalled is
	// dropped with a log entry.
	Publish(module, fn string, payload any)
}
