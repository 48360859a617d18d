package docstore

import "sync"

// ChangeQueue decouples producers from a slow subscriber: Push never blocks,
// and a pump goroutine forwards changes to Out in push order.
type ChangeQueue struct {
	mu      sync.Mutex
	pending []Change
	notify  chan struct{}
	done    chan struct{}
	out     chan Change
	once    sync.Once
}

func NewChangeQueue() *ChangeQueue {
	q := &ChangeQueue{
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
		out:    make(chan Change),
	}
	go q.pump()
	return q
}

func (q *ChangeQueue) Push(c Change) {
	q.mu.Lock()
	q.pending = append(q.pending, c)
	q.mu.Unlock()
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

func (q *ChangeQueue) Out() <-chan Change { return q.out }

// Close stops delivery and closes Out. Undelivered changes are dropped.
func (q *ChangeQueue) Close() {
	q.once.Do(func() { close(q.done) })
}

// Done is closed once Close has been called.
func (q *ChangeQueue) Done() <-chan struct{} { return q.done }

func (q *ChangeQueue) pump() {
	defer close(q.out)
	for {
		q.mu.Lock()
		batch := q.pending
		q.pending = nil
		q.mu.Unlock()

		for _, c := range batch {
			select {
			case q.out <- c:
			case <-q.done:
				return
			}
		}

		select {
		case <-q.notify:
		case <-q.done:
			return
		}
	}
}
