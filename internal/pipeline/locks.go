package pipeline

import (
	"context"
	"sync"
)

// sessionLocks hands out one mutex per session and forgets it once nobody holds or waits on it.
type sessionLocks struct {
	mu    sync.Mutex
	locks map[string]*sessionLock
}

type sessionLock struct {
	ch   chan struct{}
	refs int
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{locks: make(map[string]*sessionLock)}
}

// lock blocks until the session is free or ctx is done.
func (s *sessionLocks) lock(ctx context.Context, session string) (func(), error) {
	s.mu.Lock()
	l, ok := s.locks[session]
	if !ok {
		l = &sessionLock{ch: make(chan struct{}, 1)}
		s.locks[session] = l
	}
	l.refs++
	s.mu.Unlock()

	select {
	case l.ch <- struct{}{}:
	case <-ctx.Done():
		s.release(session, l)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-l.ch
			s.release(session, l)
		})
	}, nil
}

func (s *sessionLocks) release(session string, l *sessionLock) {
	s.mu.Lock()
	l.refs--
	if l.refs == 0 {
		delete(s.locks, session)
	}
	s.mu.Unlock()
}

func (s *sessionLocks) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.locks)
}
