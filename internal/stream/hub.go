// Package stream pushes game snapshots to websocket subscribers.
//
// The hub never ticks the game: it only relays the snapshot produced by a
// /get_bubbles or /hit_bubble request to everyone watching.
package stream

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"
)

// Message types carried in Envelope.T.
const (
	MsgState = "state"
)

// Envelope is the wire frame: {"t": type, "p": payload}.
type Envelope struct {
	T string          `json:"t"`
	P json.RawMessage `json:"p"`
}

// Encode wraps payload in an Envelope of type t.
func Encode(t string, payload any) ([]byte, error) {
	if t == "" {
		return nil, errors.New("stream: empty envelope type")
	}
	if payload == nil {
		return nil, errors.New("stream: nil payload")
	}
	pb, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{T: t, P: pb})
}

// Decode parses an Envelope and its payload into out.
func Decode(b []byte, out any) (string, error) {
	if len(b) == 0 {
		return "", errors.New("stream: empty frame")
	}
	var env Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return "", err
	}
	if len(env.P) == 0 {
		return env.T, errors.New("stream: empty payload")
	}
	return env.T, json.Unmarshal(env.P, out)
}

// Conn is a subscriber connection.
type Conn interface {
	Send([]byte) error
	Close() error
}

type subscriber struct {
	conn  Conn
	codec Codec
}

// Hub tracks subscribers and fans out snapshots.
type Hub struct {
	mu     sync.Mutex // guards subs, nextID
	subs   map[int64]subscriber
	nextID int64

	origin string // allowed websocket Origin; "*" accepts any
}

// NewHub returns an empty hub. origin is checked on websocket upgrades.
func NewHub(origin string) *Hub {
	return &Hub{subs: make(map[int64]subscriber), origin: origin}
}

// Add registers a JSON subscriber and returns its id.
func (h *Hub) Add(c Conn) int64 { return h.AddCodec(c, CodecJSON) }

// AddCodec registers c to receive frames encoded with codec.
func (h *Hub) AddCodec(c Conn, codec Codec) int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	h.subs[h.nextID] = subscriber{conn: c, codec: codec}
	return h.nextID
}

// Remove unregisters and closes subscriber id. Unknown ids are ignored.
func (h *Hub) Remove(id int64) {
	h.mu.Lock()
	sub, ok := h.subs[id]
	delete(h.subs, id)
	h.mu.Unlock()
	if ok {
		_ = sub.conn.Close()
	}
}

// Len returns the number of subscribers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Publish encodes payload once per codec in use and sends it to every
// subscriber. Subscribers whose Send fails are dropped.
func (h *Hub) Publish(payload any) {
	h.mu.Lock()
	if len(h.subs) == 0 {
		h.mu.Unlock()
		return
	}
	targets := make(map[int64]subscriber, len(h.subs))
	for id, sub := range h.subs {
		targets[id] = sub
	}
	h.mu.Unlock()

	frames := make(map[Codec][]byte, 2)
	for id, sub := range targets {
		b, ok := frames[sub.codec]
		if !ok {
			var err error
			if b, err = sub.codec.Encode(MsgState, payload); err != nil {
				log.Warn().Err(err).Stringer("codec", sub.codec).Msg("encode snapshot")
				return
			}
			frames[sub.codec] = b
		}
		if err := sub.conn.Send(b); err != nil {
			log.Debug().Err(err).Int64("sub", id).Msg("dropping subscriber")
			h.Remove(id)
		}
	}
}
