package cleanup

import (
	"context"
	"fmt"
	"time"

	"github.com/eval-printer/SmartHome-Demo/internal/repository"
	nuts "github.com/vaudience/go-nuts"
)

// Events emitted after each prune.
const (
	EventReadingsPruned = "readings.pruned"
	EventCommandsPruned = "commands.pruned"
)

// CleanupService enforces the retention window of readings and the command log
type CleanupService struct {
	readings repository.ReadingRepository
	commands repository.CommandRepository
	events   *nuts.EventEmitter
}

// New creates a new CleanupService
func New(readings repository.ReadingRepository, commands repository.CommandRepository) *CleanupService {
	return &CleanupService{
		readings: readings,
		commands: commands,
		events:   nuts.NewEventEmitter(),
	}
}

// Prune deletes readings and commands recorded before the cutoff
func (s *CleanupService) Prune(ctx context.Context, before time.Time) error {
	n, err := s.readings.DeleteOlderThan(ctx, before)
	if err != nil {
		return fmt.Errorf("failed to prune readings: %w", err)
	}
	s.emit(EventReadingsPruned, n)

	n, err = s.commands.DeleteOlderThan(ctx, before)
	if err != nil {
		return fmt.Errorf("failed to prune commands: %w", err)
	}
	s.emit(EventCommandsPruned, n)
	return nil
}

// Run prunes every interval until ctx is done, keeping the last retention worth of history
func (s *CleanupService) Run(ctx context.Context, interval, retention time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if err := s.Prune(ctx, now.Add(-retention)); err != nil {
				nuts.L.Errorf("[Cleanup] %v", err)
			}
		}
	}
}

// OnCleanup registers a callback for cleanup events. The handler receives the
// number of pruned rows.
func (s *CleanupService) OnCleanup(event string, handler func(count int64)) {
	if _, err := s.events.On(event, "cleanup_handler", handler); err != nil {
		nuts.L.Errorf("[Cleanup] Failed to register %s handler: %v", event, err)
	}
}

func (s *CleanupService) emit(event string, count int64) {
	if err := s.events.Emit(event, count); err != nil {
		nuts.L.Errorf("[Cleanup] Failed to emit %s: %v", event, err)
	}
}
