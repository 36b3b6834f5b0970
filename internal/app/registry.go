package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"navalwar/internal/ports"
)

var ErrMatchExists = errors.New("match already exists")

// Registry keeps the live sessions of a standalone server and runs their clocks.
type Registry struct {
	ctx        context.Context
	newService func() *Service
	store      ports.SnapshotStore
	logger     ports.Logger
	opts       []SessionOption

	mu       sync.Mutex
	sessions map[string]*Session
	wg       sync.WaitGroup
}

// NewRegistry creates a registry whose session clocks stop when ctx is done.
func NewRegistry(ctx context.Context, newService func() *Service, store ports.SnapshotStore, logger ports.Logger, opts ...SessionOption) *Registry {
	if store != nil {
		opts = append([]SessionOption{WithStore(store)}, opts...)
	}
	return &Registry{
		ctx:        ctx,
		newService: newService,
		store:      store,
		logger:     logger,
		opts:       opts,
		sessions:   make(map[string]*Session),
	}
}

// Create opens a new match, stores its first record and starts its clock.
func (r *Registry) Create(matchID string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[matchID]; ok {
		return nil, fmt.Errorf("%s: %w", matchID, ErrMatchExists)
	}
	s := NewSession(matchID, r.newService(), r.logger, r.opts...)
	s.mu.Lock()
	s.commit(r.ctx, s.rec.CreatedAt)
	s.mu.Unlock()

	r.sessions[matchID] = s
	r.start(s)
	r.logger.Info("match %s: created", matchID)
	return s, nil
}

// Get returns the live session of matchID, resuming it from the store when needed.
// The store is read without holding the registry lock.
func (r *Registry) Get(ctx context.Context, matchID string) (*Session, error) {
	if s, ok := r.lookup(matchID); ok {
		return s, nil
	}
	if r.store == nil {
		return nil, fmt.Errorf("%s: %w", matchID, ErrMatchNotFound)
	}
	data, err := r.store.Load(ctx, matchID)
	if errors.Is(err, ports.ErrSnapshotNotFound) {
		return nil, fmt.Errorf("%s: %w", matchID, ErrMatchNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load match %s: %w", matchID, err)
	}
	rec, err := UnmarshalRecord(data)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// Another caller may have resumed it meanwhile.
	if s, ok := r.sessions[matchID]; ok {
		return s, nil
	}
	s := ResumeSession(rec, r.newService(), r.logger, r.opts...)
	r.sessions[matchID] = s
	if !rec.State.Finished() {
		r.start(s)
	}
	r.logger.Info("match %s: resumed in phase %s", matchID, rec.State.Phase)
	return s, nil
}

func (r *Registry) lookup(matchID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[matchID]
	return s, ok
}

// Release drops a finished session nobody is attached to. Its record stays in the store.
func (r *Registry) Release(matchID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[matchID]
	if !ok || !s.Finished() || s.Connections() > 0 {
		return false
	}
	delete(r.sessions, matchID)
	return true
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Wait blocks until every session clock has stopped.
func (r *Registry) Wait() {
	r.wg.Wait()
}

func (r *Registry) start(s *Session) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := s.Run(r.ctx); err != nil && !errors.Is(err, context.Canceled) {
			r.logger.Error("match %s: clock stopped: %v", s.ID(), err)
		}
	}()
}
