package service

import (
	"sync"

	"github.com/bnema/mediaconv/internal/domain"
)

// TopicAll receives every event regardless of the topic it was published on.
const TopicAll = "*"

const (
	EventItemAdded     = "item.added"
	EventItemUpdated   = "item.updated"
	EventItemRemoved   = "item.removed"
	EventBatchStarted  = "batch.started"
	EventBatchFinished = "batch.finished"
)

type Event struct {
	Type  string            `json:"type"`
	Item  *domain.MediaItem `json:"item,omitempty"`
	Batch *BatchResult      `json:"batch,omitempty"`
}

type EventPublisher interface {
	Publish(topic string, event Event)
}

type EventBus struct {
	subscribers map[string][]chan Event
	mu          sync.RWMutex
}

func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[string][]chan Event),
	}
}

// Subscribe registers a buffered channel for topic, an item id or TopicAll.
func (eb *EventBus) Subscribe(topic string) chan Event {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	ch := make(chan Event, 64)
	eb.subscribers[topic] = append(eb.subscribers[topic], ch)
	return ch
}

func (eb *EventBus) Unsubscribe(topic string, ch chan Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	subs := eb.subscribers[topic]
	for i, sub := range subs {
		if sub == ch {
			eb.subscribers[topic] = append(subs[:i], subs[i+1:]...)
			close(ch)
			break
		}
	}

	if len(eb.subscribers[topic]) == 0 {
		delete(eb.subscribers, topic)
	}
}

// Publish delivers event to the topic's subscribers and to TopicAll. It
// never blocks: a subscriber whose buffer is full misses the event.
func (eb *EventBus) Publish(topic string, event Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	deliver(eb.subscribers[topic], event)
	if topic != TopicAll {
		deliver(eb.subscribers[TopicAll], event)
	}
}

func deliver(subs []chan Event, event Event) {
	for _, ch := range subs {
		select {
		case ch <- event:
		default:
		}
	}
}

func itemEvent(eventType string, item domain.MediaItem) Event {
	return Event{Type: eventType, Item: &item}
}
