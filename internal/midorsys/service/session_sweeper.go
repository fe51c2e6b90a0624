package service

import (
	"context"
	"log"
	"time"
)

// SessionSweeper periodically reaps expired enrollment sessions, running the
// same cascading cleanup as an explicit cancel.  It is an optimization over
// lazy expiry on read, never a correctness requirement.  It runs as a
// background goroutine and is safe to stop via its context or Stop.
//
// An interval of 0 disables the sweeper entirely.
type SessionSweeper struct {
	enrollment *EnrollmentService
	interval   time.Duration
	logger     *log.Logger
	cancel     context.CancelFunc
	done       chan struct{}
}

func NewSessionSweeper(enrollment *EnrollmentService, interval time.Duration, logger *log.Logger) *SessionSweeper {
	return &SessionSweeper{
		enrollment: enrollment,
		interval:   interval,
		logger:     logger,
		done:       make(chan struct{}),
	}
}

// Start begins the background sweep loop.  It runs an immediate sweep on
// startup, then repeats on the configured interval.  The loop exits when
// ctx is cancelled or Stop is called.
func (s *SessionSweeper) Start(ctx context.Context) {
	if s.interval <= 0 {
		s.logger.Printf("session sweeper disabled (interval=0)")
		close(s.done)
		return
	}

	ctx, s.cancel = context.WithCancel(ctx)

	go s.loop(ctx)

	s.logger.Printf("session sweeper started (interval=%s)", s.interval)
}

// Stop signals the sweeper to exit and waits for it to finish.
func (s *SessionSweeper) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	<-s.done
}

func (s *SessionSweeper) loop(ctx context.Context) {
	defer close(s.done)

	// Clean up any backlog from before the last shutdown.
	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *SessionSweeper) sweep(ctx context.Context) {
	reaped, err := s.enrollment.ReapExpired(ctx, time.Now().UTC())
	if err != nil {
		s.logger.Printf("session sweep error: %v", err)
		return
	}
	if reaped > 0 {
		s.logger.Printf("session sweep: reaped %d expired sessions", reaped)
	}
}
