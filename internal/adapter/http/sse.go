package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bnema/mediaconv/internal/service"
)

const keepAliveInterval = 15 * time.Second

// EventSource is the subscription side of the event bus.
type EventSource interface {
	Subscribe(topic string) chan service.Event
	Unsubscribe(topic string, ch chan service.Event)
}

// sseWrite writes an SSE event, handling multi-line data correctly.
func sseWrite(w http.ResponseWriter, eventName string, data string) {
	_, _ = fmt.Fprintf(w, "event: %s\n", eventName)
	for _, line := range strings.Split(data, "\n") {
		_, _ = fmt.Fprintf(w, "data: %s\n", line)
	}
	_, _ = fmt.Fprint(w, "\n")
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func sseWriteJSON(w http.ResponseWriter, eventName string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	sseWrite(w, eventName, string(data))
	return nil
}

// sendKeepAlive writes an SSE comment to keep the connection active.
func sendKeepAlive(w http.ResponseWriter) {
	_, _ = fmt.Fprint(w, ": keep-alive\n\n")
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

// events streams every registry and batch event. The stream opens with a
// snapshot of the requested kind so clients need no separate list call.
// ?item=<id> narrows the stream to one item.
func (s *Server) events(w http.ResponseWriter, r *http.Request) {
	topic := service.TopicAll
	if id := r.URL.Query().Get("item"); id != "" {
		if _, err := s.items.Get(id); err != nil {
			s.writeError(w, err)
			return
		}
		topic = id
	}

	// Subscribe before the snapshot so nothing between the two is lost.
	ch := s.bus.Subscribe(topic)
	defer s.bus.Unsubscribe(topic, ch)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	if topic == service.TopicAll {
		kind, items, err := s.items.ActiveSnapshot()
		if err == nil {
			_ = sseWriteJSON(w, "snapshot", itemsResponse{Kind: kind, Items: items})
		}
	} else if item, err := s.items.Get(topic); err == nil {
		_ = sseWriteJSON(w, "snapshot", item)
	}

	ctx := r.Context()
	keepAlive := time.NewTicker(s.keepAlive)
	defer keepAlive.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-keepAlive.C:
			sendKeepAlive(w)
		case event, ok := <-ch:
			if !ok {
				return
			}
			if err := sseWriteJSON(w, event.Type, event); err != nil {
				s.log.Warn().Err(err).Str("event", event.Type).Msg("encode event")
			}
		}
	}
}
