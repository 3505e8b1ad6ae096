package scan

import (
	"sync"

	"codeberg.org/mutker/vitalscan/internal/logger"
)

type subscriber struct {
	id int
	fn func(Event)
}

// dispatcher delivers events to subscribers in publish order on its own
// goroutine. The queue is unbounded so publishers never block or drop.
type dispatcher struct {
	log logger.Logger

	mu       sync.Mutex
	subs     []subscriber
	nextID   int
	queue    []Event
	draining bool

	wake chan struct{}
	done chan struct{}
}

func newDispatcher(log logger.Logger) *dispatcher {
	d := &dispatcher{
		log:  log,
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *dispatcher) subscribe(fn func(Event)) func() {
	d.mu.Lock()
	defer d.mu.Unlock()

	id := d.nextID
	d.nextID++
	d.subs = append(d.subs, subscriber{id: id, fn: fn})

	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		for i, s := range d.subs {
			if s.id == id {
				d.subs = append(d.subs[:i:i], d.subs[i+1:]...)
				return
			}
		}
	}
}

// publish queues ev. When last is set, no further events are accepted and
// the dispatcher stops once the queue is empty.
func (d *dispatcher) publish(ev Event, last bool) {
	d.mu.Lock()
	if d.draining {
		d.mu.Unlock()
		d.log.Debug().Str("event", string(ev.Type)).Msg("Dropping event published after close")
		return
	}
	d.queue = append(d.queue, ev)
	d.draining = last
	d.mu.Unlock()

	d.signal()
}

func (d *dispatcher) close() {
	d.mu.Lock()
	d.draining = true
	d.mu.Unlock()

	d.signal()
}

func (d *dispatcher) signal() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

func (d *dispatcher) run() {
	defer close(d.done)

	for {
		d.mu.Lock()
		if len(d.queue) == 0 {
			draining := d.draining
			d.mu.Unlock()
			if draining {
				return
			}
			<-d.wake
			continue
		}

		batch := d.queue
		d.queue = nil
		subs := append([]subscriber(nil), d.subs...)
		d.mu.Unlock()

		for _, ev := range batch {
			for _, s := range subs {
				d.deliver(s, ev)
			}
		}
	}
}

func (d *dispatcher) deliver(s subscriber, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error().
				Str("event", string(ev.Type)).
				Interface("panic", r).
				Msg("Event handler panicked")
		}
	}()

	s.fn(ev)
}
