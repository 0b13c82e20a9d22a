package messaging

import (
	"encoding/json"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/opentravelmate/bridge-go/internal/infrastructure/observability/logging"
)

// Envelope is one event on the wire.
type Envelope struct {
	ID      string          `json:"id"`
	Module  string          `json:"module"`
	Fn      string          `json:"fn"`
	Payload json.RawMessage `json:"payload"`
}

// BridgeBus fans events out to every live subscriber. Subscriber channels
// are buffered; a subscriber that stops draining loses events rather than
// blocking publishers.
type BridgeBus struct {
	mu         sync.Mutex
	clients    map[int]chan []byte
	nextClient int
	bufferSize int
	logger     *logging.ChanneledLogger
}

// NewBridgeBus creates a bus whose subscriber channels buffer bufferSize
// events.
func NewBridgeBus(bufferSize int, logger *logging.ChanneledLogger) *BridgeBus {
	if bufferSize < 1 {
		bufferSize = 1
	}
	return &BridgeBus{
		clients:    make(map[int]chan []byte),
		bufferSize: bufferSize,
		logger:     logger,
	}
}

// Publish marshals the payload into an envelope and delivers it to every
// subscriber.
func (b *BridgeBus) Publish(module, fn string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		b.logger.Bridge().Error("Dropping unmarshalable event payload",
			"module", module, "fn", fn, "error", err.Error())
		return
	}
	env := Envelope{
		ID:      ulid.Make().String(),
		Module:  module,
		Fn:      fn,
		Payload: raw,
	}
	data, err := json.Marshal(env)
	if err != nil {
		b.logger.Bridge().Error("Dropping unmarshalable event envelope",
			"module", module, "fn", fn, "error", err.Error())
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.clients {
		select {
		case ch <- data:
		default:
			b.logger.Bridge().Warn("Subscriber buffer full, dropping event",
				"client", id, "module", module, "fn", fn)
		}
	}
}

// Subscribe registers a new subscriber and returns its event channel plus a
// cancel function. Cancel closes the channel; pending buffered events are
// still readable.
func (b *BridgeBus) Subscribe() (<-chan []byte, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextClient
	b.nextClient++
	ch := make(chan []byte, b.bufferSize)
	b.clients[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if c, ok := b.clients[id]; ok {
			delete(b.clients, id)
			close(c)
		}
	}
	return ch, cancel
}

// SubscriberCount returns the number of live subscribers.
func (b *BridgeBus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clients)
}
