package results

import (
	"encoding/json"
	"sort"
	"strings"
	"sync"

	"github.com/triagekit/probekit/bus"
	"github.com/triagekit/probekit/logging"
	"github.com/triagekit/probekit/state"
)

// Store caches the latest RunResult per tool id. Writes persist the whole
// set asynchronously under one workspace-scoped key; reads are served from
// memory.
type Store struct {
	mu      sync.RWMutex
	results map[string]*RunResult

	persist state.Store  // nil disables persistence
	events  bus.EventBus // nil disables publication
	key     string
	log     *logging.Logger
	wg      sync.WaitGroup
}

// StoreConfig configures a Store. State and Bus are optional collaborators;
// WorkspaceID scopes the persistence key to one project.
type StoreConfig struct {
	State       state.Store
	Bus         bus.EventBus
	WorkspaceID string
	Logger      *logging.Logger
}

// NewStore creates a result store. Call LoadAll to rehydrate persisted
// results before serving reads.
func NewStore(cfg StoreConfig) *Store {
	log := cfg.Logger
	if log == nil {
		log = logging.New()
	}
	return &Store{
		results: make(map[string]*RunResult),
		persist: cfg.State,
		events:  cfg.Bus,
		key:     PersistenceKey(cfg.WorkspaceID),
		log:     log.WithComponent("results"),
	}
}

// PersistenceKey returns the workspace-scoped key the result set is stored
// under. Characters the state layer rejects are folded to dashes.
func PersistenceKey(workspaceID string) string {
	if workspaceID == "" {
		workspaceID = "default"
	}
	var b strings.Builder
	for _, r := range workspaceID {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	return "results." + strings.Trim(b.String(), "-")
}

// Get returns the cached result for a tool id.
func (s *Store) Get(id string) (*RunResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.results[id]
	if !ok {
		return nil, false
	}
	return r.Clone(), true
}

// List returns all cached results, most recent first.
func (s *Store) List() []*RunResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*RunResult, 0, len(s.results))
	for _, r := range s.results {
		out = append(out, r.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	return out
}

// Len returns the number of cached results.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.results)
}

// Put records a result, overwriting any previous run for the same id, then
// persists the set and publishes a completion event in the background.
func (s *Store) Put(r *RunResult) {
	if r == nil || r.ID == "" {
		return
	}

	stored := r.Clone()

	s.mu.Lock()
	s.results[stored.ID] = stored
	snapshot := s.encodeLocked()
	s.mu.Unlock()

	if s.persist != nil && snapshot != nil {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := s.persist.Put(s.key, snapshot, 0); err != nil {
				s.log.PersistFailure(s.key, err)
			}
		}()
	}

	if s.events != nil {
		if data, err := json.Marshal(stored); err == nil {
			// Fire-and-forget; a bus failure never fails the run.
			go func() { _ = s.events.Publish(bus.SubjectRunCompleted, data) }()
		}
	}
}

// encodeLocked marshals the current result set. Caller holds the lock.
func (s *Store) encodeLocked() []byte {
	data, err := json.Marshal(s.results)
	if err != nil {
		s.log.Error("encode_failed", map[string]interface{}{"error": err.Error()})
		return nil
	}
	return data
}

// LoadAll rehydrates the cached set from the persistence collaborator.
// A missing key is a clean first run; a corrupt record is logged and the
// store starts empty rather than failing startup.
func (s *Store) LoadAll() error {
	if s.persist == nil {
		return nil
	}

	data, err := s.persist.Get(s.key)
	if err != nil {
		if err == state.ErrNotFound {
			return nil
		}
		return err
	}

	decoded := make(map[string]*RunResult)
	if err := json.Unmarshal(data, &decoded); err != nil {
		s.log.Warn("rehydrate_failed", map[string]interface{}{
			"key":   s.key,
			"error": err.Error(),
		})
		return nil
	}

	s.mu.Lock()
	for id, r := range decoded {
		if r == nil {
			continue
		}
		if r.ID == "" {
			r.ID = id
		}
		s.results[id] = r
	}
	count := len(s.results)
	s.mu.Unlock()

	s.log.Info("rehydrated", map[string]interface{}{"count": count})
	return nil
}

// Flush waits for in-flight persistence writes to settle.
func (s *Store) Flush() {
	s.wg.Wait()
}

// Close flushes pending writes. The state store and bus are owned by the
// caller and are not closed here.
func (s *Store) Close() error {
	s.Flush()
	return nil
}
