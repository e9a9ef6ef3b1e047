// Package queue provides the in-process job queue connecting the HTTP
// pipelines to their background consumers. Topics carry opaque JSON
// payloads with at-least-once delivery; coordination across processes is
// out of scope.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// Topic names for the two job streams.
const (
	TopicFileProcessing = "file_processing"
	TopicWelcomeEmail   = "welcome_email"
)

// ErrClosed is returned when publishing to a closed queue.
var ErrClosed = errors.New("queue is closed")

// Message is a serialized job payload.
type Message []byte

// Decode unmarshals the payload into v.
func (m Message) Decode(v any) error {
	return json.Unmarshal(m, v)
}

// Queue is a topic-addressed buffered channel broker.
type Queue struct {
	mu      sync.Mutex
	buffer  int
	topics  map[string]chan Message
	closed  bool
	done    chan struct{}
	senders sync.WaitGroup
}

// New creates a queue whose topics buffer up to buffer messages each.
func New(buffer int) *Queue {
	if buffer <= 0 {
		buffer = 64
	}
	return &Queue{
		buffer: buffer,
		topics: make(map[string]chan Message),
		done:   make(chan struct{}),
	}
}

func (q *Queue) topic(name string) chan Message {
	q.mu.Lock()
	defer q.mu.Unlock()
	ch, ok := q.topics[name]
	if !ok {
		ch = make(chan Message, q.buffer)
		// A topic first touched after shutdown must still read as
		// drained, or a late consumer would block forever.
		if q.closed {
			close(ch)
		}
		q.topics[name] = ch
	}
	return ch
}

// Publish serializes payload and enqueues it on the named topic. It blocks
// while the topic buffer is full, honoring ctx cancellation; a Close while
// blocked unblocks it with ErrClosed.
func (q *Queue) Publish(ctx context.Context, topic string, payload any) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrClosed
	}
	// Registered under the lock so Close cannot close the topic channels
	// while this send is in flight.
	q.senders.Add(1)
	q.mu.Unlock()
	defer q.senders.Done()

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode job: %w", err)
	}

	select {
	case q.topic(topic) <- Message(data):
		return nil
	case <-q.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe returns the consume channel for a topic. The channel is closed
// when the queue is closed; consumers should range over it.
func (q *Queue) Subscribe(topic string) <-chan Message {
	return q.topic(topic)
}

// Close marks the queue closed, unblocks pending publishers, and closes
// every topic channel so consumers drain their buffers and exit. Topic
// channels are only closed once all in-flight publishers have returned.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.done)
	q.mu.Unlock()

	q.senders.Wait()

	q.mu.Lock()
	defer q.mu.Unlock()
	for _, ch := range q.topics {
		close(ch)
	}
}
