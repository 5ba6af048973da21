// Package sse fans run events out to server-sent-event subscribers, one
// stream per run id.
package sse

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/r3labs/sse/v2"
)

// QueryParameterName selects the stream in a subscription URL.
const QueryParameterName = "stream"

var (
	// ErrStreamNameRequired is returned to subscribers that name no stream.
	ErrStreamNameRequired = errors.New("sse: a stream name must be supplied")

	// ErrStreamNotFound is returned to subscribers of a stream that was never
	// opened or has been removed.
	ErrStreamNotFound = errors.New("sse: stream not found")

	// ErrEmptyMessage is returned by Publish for an empty payload.
	ErrEmptyMessage = errors.New("sse: only non-empty messages can be sent")
)

// Hub wraps an r3labs server. Events are kept per stream and replayed to
// late subscribers, so a client may subscribe after a run has started.
type Hub struct {
	server *sse.Server
}

// New returns an empty hub.
func New() *Hub {
	s := sse.New()
	s.AutoReplay = true
	return &Hub{server: s}
}

// Open creates the stream for id if it does not exist yet.
func (h *Hub) Open(id string) {
	if !h.server.StreamExists(id) {
		h.server.CreateStream(id)
	}
}

// Publish sends msg to every subscriber of id.
func (h *Hub) Publish(id string, msg []byte) error {
	if len(msg) == 0 {
		return ErrEmptyMessage
	}
	h.Open(id)
	h.server.Publish(id, &sse.Event{Data: msg})
	return nil
}

// PublishJSON marshals v and publishes it to id.
func (h *Hub) PublishJSON(id string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return h.Publish(id, b)
}

// Remove drops the stream for id with its replay buffer and disconnects its
// subscribers.
func (h *Hub) Remove(id string) {
	h.server.RemoveStream(id)
}

// Exists reports whether the stream for id is open.
func (h *Hub) Exists(id string) bool {
	return h.server.StreamExists(id)
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.server.Close()
}

// ServeHTTP subscribes the client to the stream named by ?stream=, or by ?id=
// for clients that address runs by id. Unknown streams answer 404.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	name := q.Get(QueryParameterName)
	if name == "" {
		name = q.Get("id")
		if name == "" {
			http.Error(w, ErrStreamNameRequired.Error(), http.StatusBadRequest)
			return
		}
		q.Set(QueryParameterName, name)
		r = r.Clone(r.Context())
		r.URL.RawQuery = q.Encode()
	}
	if !h.server.StreamExists(name) {
		http.Error(w, ErrStreamNotFound.Error(), http.StatusNotFound)
		return
	}
	h.server.ServeHTTP(w, r)
}
