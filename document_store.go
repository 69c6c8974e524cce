package content

import "sync"

// DocumentStore holds the working document and the baseline it was loaded or
// last committed from.
//
// Subscribers are never called while a caller holds the store through hold:
// changes made under a hold are queued and delivered in order once the last
// hold is released, so a subscriber may call back into the editor.
type DocumentStore struct {
	mu          sync.RWMutex
	current     Document
	baseline    Document
	nextSub     int
	subscribers map[int]func(Document)

	notifyMu    sync.Mutex
	holds       int
	dispatching bool
	pending     []Document
}

// NewDocumentStore returns a store whose working copy and baseline are doc.
func NewDocumentStore(doc Document) *DocumentStore {
	return &DocumentStore{
		current:     doc,
		baseline:    doc,
		subscribers: map[int]func(Document){},
	}
}

// Document returns the working document.
func (s *DocumentStore) Document() Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Baseline returns the document last adopted from durable storage.
func (s *DocumentStore) Baseline() Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.baseline
}

// Set replaces the working document.
func (s *DocumentStore) Set(doc Document) {
	s.mu.Lock()
	s.current = doc
	s.mu.Unlock()
	s.publish(doc)
}

// Adopt replaces both the working document and the baseline.
func (s *DocumentStore) Adopt(doc Document) {
	s.mu.Lock()
	s.current = doc
	s.baseline = doc
	s.mu.Unlock()
	s.publish(doc)
}

// Revert discards the working document in favour of the baseline.
func (s *DocumentStore) Revert() Document {
	s.mu.Lock()
	s.current = s.baseline
	doc := s.current
	s.mu.Unlock()
	s.publish(doc)
	return doc
}

// Dirty reports whether the working document differs from the baseline.
func (s *DocumentStore) Dirty() bool {
	s.mu.RLock()
	current, baseline := s.current, s.baseline
	s.mu.RUnlock()
	return !Equal(current, baseline)
}

// Subscribe registers fn to be called with every new working document. The
// returned function removes the subscription.
func (s *DocumentStore) Subscribe(fn func(Document)) func() {
	if fn == nil {
		return func() {}
	}
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subscribers, id)
			s.mu.Unlock()
		})
	}
}

// hold defers notifications until the returned release function is called.
// Holds nest; delivery happens when the last one is released. Callers take
// the hold before their own locks and release it after unlocking.
func (s *DocumentStore) hold() func() {
	s.notifyMu.Lock()
	s.holds++
	s.notifyMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.notifyMu.Lock()
			s.holds--
			s.notifyMu.Unlock()
			s.dispatch()
		})
	}
}

func (s *DocumentStore) publish(doc Document) {
	s.notifyMu.Lock()
	s.pending = append(s.pending, doc)
	s.notifyMu.Unlock()
	s.dispatch()
}

// dispatch delivers queued documents unless a hold is active or another
// goroutine is already delivering; that goroutine picks up the queue.
func (s *DocumentStore) dispatch() {
	s.notifyMu.Lock()
	if s.holds > 0 || s.dispatching {
		s.notifyMu.Unlock()
		return
	}
	s.dispatching = true
	for len(s.pending) > 0 && s.holds == 0 {
		batch := s.pending
		s.pending = nil
		s.notifyMu.Unlock()
		for _, doc := range batch {
			s.notify(doc)
		}
		s.notifyMu.Lock()
	}
	s.dispatching = false
	s.notifyMu.Unlock()
}

func (s *DocumentStore) notify(doc Document) {
	s.mu.RLock()
	subs := make([]func(Document), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	s.mu.RUnlock()
	for _, fn := range subs {
		fn(doc)
	}
}
