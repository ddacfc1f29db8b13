package feed

import "sync"

// Registry is the in-memory feed store backing the HTTP control plane. It
// is an external collaborator to the scheduler, not part of it: the
// scheduler never reads or writes it directly.
type Registry struct {
	mu     sync.RWMutex
	feeds  map[uint64]Feed
	nextID uint64
}

// NewRegistry creates an empty Registry whose id counter starts at 1.
func NewRegistry() *Registry {
	return &Registry{
		feeds:  make(map[uint64]Feed),
		nextID: 1,
	}
}

// Create assigns the next monotonic id to def and stores it.
func (r *Registry) Create(def CreateFeed) Feed {
	r.mu.Lock()
	defer r.mu.Unlock()

	feed := Feed{
		ID:        r.nextID,
		Name:      def.Name,
		URL:       def.URL,
		Frequency: def.Frequency,
		Headers:   def.Headers,
	}
	r.feeds[feed.ID] = feed
	r.nextID++
	return feed
}

// Get returns the feed stored under id, if any.
func (r *Registry) Get(id uint64) (Feed, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.feeds[id]
	return f, ok
}

// Update replaces the feed stored under id, returning false if id is unknown.
func (r *Registry) Update(id uint64, def CreateFeed) (Feed, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.feeds[id]; !ok {
		return Feed{}, false
	}
	feed := Feed{
		ID:        id,
		Name:      def.Name,
		URL:       def.URL,
		Frequency: def.Frequency,
		Headers:   def.Headers,
	}
	r.feeds[id] = feed
	return feed, true
}

// Delete removes the feed stored under id, returning it and true if it
// existed.
func (r *Registry) Delete(id uint64) (Feed, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, ok := r.feeds[id]
	if !ok {
		return Feed{}, false
	}
	delete(r.feeds, id)
	return f, true
}

// List returns every stored feed, in unspecified order.
func (r *Registry) List() []Feed {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Feed, 0, len(r.feeds))
	for _, f := range r.feeds {
		out = append(out, f)
	}
	return out
}
