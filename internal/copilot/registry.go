package copilot

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"plc-copilot/internal/types"
)

// DefaultCapacity is the number of live sessions kept when none is configured.
const DefaultCapacity = 1000

// Loader reads a persisted transcript.
type Loader interface {
	History(ctx context.Context, sessionID string) ([]types.Message, error)
}

type RegistryOption func(*Registry)

// WithCapacity bounds the live sessions. Past size the least recently used
// session is dropped; with idle > 0 a session unused for that long is
// dropped too. Dropped sessions come back from the store on next use.
func WithCapacity(size int, idle time.Duration) RegistryOption {
	return func(r *Registry) {
		if size > 0 {
			r.capacity = size
		}
		r.idle = idle
	}
}

// WithTranscriptLimit keeps at most n transcript entries per session, the
// same limit the store applies. 0 keeps everything.
func WithTranscriptLimit(n int) RegistryOption {
	return func(r *Registry) { r.transcriptLimit = n }
}

// Registry hands out one Session per session ID, restoring the persisted
// transcript the first time an ID is seen.
type Registry struct {
	mu              sync.Mutex
	sessions        *expirable.LRU[string, *Session]
	capacity        int
	idle            time.Duration
	transcriptLimit int
	gen             Generator
	verifier        Verifier
	history         History
	loader          Loader
	logger          *zap.Logger
}

func NewRegistry(gen Generator, verifier Verifier, history History, loader Loader, logger *zap.Logger, opts ...RegistryOption) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{
		capacity: DefaultCapacity,
		gen:      gen,
		verifier: verifier,
		history:  history,
		loader:   loader,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.sessions = expirable.NewLRU[string, *Session](r.capacity, nil, r.idle)
	return r
}

// Get returns the live session for id, creating and restoring it when
// needed. The transcript is loaded without holding the registry lock.
func (r *Registry) Get(ctx context.Context, id string) *Session {
	if s, ok := r.touch(id); ok {
		return s
	}

	var restored []types.Message
	if r.loader != nil {
		msgs, err := r.loader.History(ctx, id)
		if err != nil {
			r.logger.Warn("transcript restore failed", zap.String("session", id), zap.Error(err))
		} else {
			restored = msgs
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// Another request may have created it while we were loading.
	if s, ok := r.sessions.Get(id); ok {
		return s
	}
	s := NewSession(id, r.gen, r.verifier, r.history, r.logger)
	s.limit = r.transcriptLimit
	if len(restored) > 0 {
		s.Restore(restored)
	}
	r.sessions.Add(id, s)
	return s
}

// Peek returns the live session for id without creating one.
func (r *Registry) Peek(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions.Peek(id)
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	return r.sessions.Len()
}

// touch looks id up and restarts its idle timer.
func (r *Registry) touch(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions.Get(id)
	if ok {
		r.sessions.Add(id, s)
	}
	return s, ok
}
