// Package scheduler runs the periodic mirror export on a cron
// schedule.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/shelfmark/shelfmark/internal/mirror"
)

// Config controls the mirror sync scheduler.
type Config struct {
	Enabled  bool
	Schedule string // standard 5-field cron expression
}

// MirrorSyncScheduler manages the periodic export of all books to the
// mirror directory.
type MirrorSyncScheduler struct {
	exporter *mirror.Exporter
	config   Config

	cron       *cron.Cron
	entryID    cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	cancelFunc context.CancelFunc
}

// NewMirrorSyncScheduler creates a new scheduler instance.
func NewMirrorSyncScheduler(exporter *mirror.Exporter, config Config) *MirrorSyncScheduler {
	return &MirrorSyncScheduler{
		exporter: exporter,
		config:   config,
		cron:     cron.New(cron.WithParser(cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow))),
	}
}

// Start begins the scheduler if sync is enabled.
func (s *MirrorSyncScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}
	if !s.config.Enabled {
		log.Printf("Mirror sync scheduler: disabled")
		return nil
	}

	entryID, err := s.cron.AddFunc(s.config.Schedule, s.runSync)
	if err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", s.config.Schedule, err)
	}
	s.entryID = entryID

	var cancelCtx context.Context
	cancelCtx, s.cancelFunc = context.WithCancel(ctx)

	s.cron.Start()
	s.isRunning = true

	log.Printf("Mirror sync scheduler: started with schedule %q", s.config.Schedule)

	go func() {
		<-cancelCtx.Done()
		s.Stop()
	}()

	return nil
}

// Stop gracefully stops the scheduler, waiting for a running export to
// complete.
func (s *MirrorSyncScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()

	s.isRunning = false
	// Releases the context watcher spawned in Start when Stop is called
	// directly rather than through context cancellation.
	if s.cancelFunc != nil {
		s.cancelFunc()
		s.cancelFunc = nil
	}

	log.Printf("Mirror sync scheduler: stopped")
}

// RunNow triggers an immediate export.
func (s *MirrorSyncScheduler) RunNow() {
	go s.runSync()
}

// IsRunning returns whether the scheduler is active.
func (s *MirrorSyncScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// NextRunTime returns when the next export will occur, or nil when the
// scheduler is idle.
func (s *MirrorSyncScheduler) NextRunTime() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}
	for _, entry := range s.cron.Entries() {
		if entry.ID == s.entryID {
			t := entry.Next
			return &t
		}
	}
	return nil
}

func (s *MirrorSyncScheduler) runSync() {
	log.Printf("Mirror sync: starting export")
	startTime := time.Now()

	result, err := s.exporter.ExportAll()
	if err != nil {
		log.Printf("Mirror sync: export failed: %v", err)
		return
	}

	log.Printf("Mirror sync: exported %d books (%d failed) in %v",
		result.BooksExported, result.BooksFailed, time.Since(startTime).Round(time.Millisecond))
}
