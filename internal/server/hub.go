package server

import (
	"context"
	"sync"
)

// streamHub fans encoded SSE frames for one scan out to every connected
// client. Publishing never blocks; a client that falls behind misses frames.
type streamHub struct {
	mu      sync.RWMutex
	streams map[string][]chan []byte
}

func newStreamHub() *streamHub {
	return &streamHub{
		streams: make(map[string][]chan []byte),
	}
}

// Publish sends data to all subscribers of a stream and reports whether at
// least one of them took it.
func (h *streamHub) Publish(stream string, data []byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	msg := make([]byte, len(data))
	copy(msg, data)

	sent := false
	for _, ch := range h.streams[stream] {
		select {
		case ch <- msg:
			sent = true
		default:
		}
	}
	return sent
}

// Subscribe registers a client. The channel is closed when ctx ends or the
// stream is closed.
func (h *streamHub) Subscribe(ctx context.Context, stream string) <-chan []byte {
	ch := make(chan []byte, 64)

	h.mu.Lock()
	h.streams[stream] = append(h.streams[stream], ch)
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.unsubscribe(stream, ch)
	}()

	return ch
}

func (h *streamHub) unsubscribe(stream string, ch chan []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs := h.streams[stream]
	for i, sub := range subs {
		if sub == ch {
			h.streams[stream] = append(subs[:i:i], subs[i+1:]...)
			close(ch)
			if len(h.streams[stream]) == 0 {
				delete(h.streams, stream)
			}
			return
		}
	}
}

// CloseStream closes all channels for a stream and removes it.
func (h *streamHub) CloseStream(stream string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, ch := range h.streams[stream] {
		close(ch)
	}
	delete(h.streams, stream)
}

func (h *streamHub) SubscriberCount(stream string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.streams[stream])
}
