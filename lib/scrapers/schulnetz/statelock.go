package schulnetz

import (
	"context"
	"errors"
	"sync"
)

// ErrLockCancelled is observed by every waiter that was queued on the
// state lock when a forceful acquisition (logout) threw the queue away.
var ErrLockCancelled = errors.New("state lock acquisition cancelled")

type lockGrant struct {
	token uint64
	err   error
}

type lockWaiter struct {
	result chan lockGrant
}

// stateLock serializes state-changing navigation against state-preserving
// reads on one portal session.
//
// Exclusive holders are granted in FIFO order, except that a priority
// acquisition (login) jumps to the front of the queue. Stable-state
// (read) sections are reference counted: the first reader takes the
// exclusive lock as a placeholder so navigation cannot interleave with
// a read burst, and the last reader out releases it again. Readers that
// arrive while an exclusive holder is active queue up and are admitted
// as a batch the moment the lock clears.
type stateLock struct {
	mu        sync.Mutex
	nextToken uint64
	// current holder token, 0 when the lock is free
	holder uint64
	queue  []*lockWaiter
	// number of active stable-state holders
	stable      int
	stableQueue []*lockWaiter
	// token held on behalf of the stable-state section
	placeholder uint64
}

func (s *stateLock) newTokenLocked() uint64 {
	s.nextToken++
	return s.nextToken
}

func (s *stateLock) acquire(ctx context.Context) (uint64, error) {
	return s.acquireInternal(ctx, false)
}

// acquireWithPriority puts the requester at the front of the wait
// queue. only login may use this.
func (s *stateLock) acquireWithPriority(ctx context.Context) (uint64, error) {
	return s.acquireInternal(ctx, true)
}

func (s *stateLock) acquireInternal(ctx context.Context, priority bool) (uint64, error) {
	s.mu.Lock()
	if s.holder == 0 {
		token := s.newTokenLocked()
		s.holder = token
		s.mu.Unlock()
		return token, nil
	}

	w := &lockWaiter{result: make(chan lockGrant, 1)}
	if priority {
		s.queue = append([]*lockWaiter{w}, s.queue...)
	} else {
		s.queue = append(s.queue, w)
	}
	s.mu.Unlock()

	select {
	case grant := <-w.result:
		return grant.token, grant.err
	case <-ctx.Done():
		s.mu.Lock()
		removed := removeWaiter(&s.queue, w)
		s.mu.Unlock()
		if !removed {
			// a grant raced with the cancellation, give the lock back
			grant := <-w.result
			if grant.err == nil {
				s.release(grant.token)
			}
		}
		return 0, ctx.Err()
	}
}

// release hands the lock over only when called by the current holder.
// queued stable-state waiters were only ever waiting for the lock to
// clear, so they are admitted before the next exclusive waiter.
func (s *stateLock) release(token uint64) {
	s.mu.Lock()
	if token == 0 || s.holder != token {
		s.mu.Unlock()
		return
	}

	if len(s.stableQueue) > 0 {
		placeholder := s.newTokenLocked()
		s.holder = placeholder
		s.placeholder = placeholder
		s.stable += len(s.stableQueue)
		waiters := s.stableQueue
		s.stableQueue = nil
		s.mu.Unlock()
		for _, w := range waiters {
			w.result <- lockGrant{}
		}
		return
	}

	if len(s.queue) > 0 {
		w := s.queue[0]
		s.queue = s.queue[1:]
		next := s.newTokenLocked()
		s.holder = next
		s.mu.Unlock()
		w.result <- lockGrant{token: next}
		return
	}

	s.holder = 0
	s.mu.Unlock()
}

// retainStable enters the reference-counted read section, waiting
// while a state-changing holder is active.
func (s *stateLock) retainStable(ctx context.Context) error {
	s.mu.Lock()
	if s.stable > 0 {
		s.stable++
		s.mu.Unlock()
		return nil
	}
	if s.holder == 0 {
		placeholder := s.newTokenLocked()
		s.holder = placeholder
		s.placeholder = placeholder
		s.stable = 1
		s.mu.Unlock()
		return nil
	}

	w := &lockWaiter{result: make(chan lockGrant, 1)}
	s.stableQueue = append(s.stableQueue, w)
	s.mu.Unlock()

	select {
	case grant := <-w.result:
		return grant.err
	case <-ctx.Done():
		s.mu.Lock()
		removed := removeWaiter(&s.stableQueue, w)
		s.mu.Unlock()
		if !removed {
			grant := <-w.result
			if grant.err == nil {
				s.releaseStable()
			}
		}
		return ctx.Err()
	}
}

func (s *stateLock) releaseStable() {
	s.mu.Lock()
	if s.stable == 0 {
		s.mu.Unlock()
		return
	}
	s.stable--
	if s.stable > 0 {
		s.mu.Unlock()
		return
	}
	placeholder := s.placeholder
	s.placeholder = 0
	s.mu.Unlock()

	s.release(placeholder)
}

// forceAcquire cancels every queued waiter (exclusive and stable) with
// ErrLockCancelled and then seizes the lock unconditionally, making any
// outstanding holder token stale. only logout may use this: it must
// proceed even when other operations are stuck waiting, and those
// operations must observe a failure rather than hang forever.
func (s *stateLock) forceAcquire() uint64 {
	s.mu.Lock()
	cancelled := make([]*lockWaiter, 0, len(s.queue)+len(s.stableQueue))
	cancelled = append(cancelled, s.queue...)
	cancelled = append(cancelled, s.stableQueue...)
	s.queue = nil
	s.stableQueue = nil
	s.stable = 0
	s.placeholder = 0
	token := s.newTokenLocked()
	s.holder = token
	s.mu.Unlock()

	for _, w := range cancelled {
		w.result <- lockGrant{err: ErrLockCancelled}
	}
	return token
}

func removeWaiter(queue *[]*lockWaiter, target *lockWaiter) bool {
	for i, w := range *queue {
		if w == target {
			*queue = append((*queue)[:i], (*queue)[i+1:]...)
			return true
		}
	}
	return false
}
