package audit

import (
	"context"
	"log/slog"
	"sync"
)

// recorderBuffer is the size of the pending-entry channel. Entries past
// this are dropped rather than blocking the caller.
const recorderBuffer = 256

// Recorder accepts audit entries from request handlers and writes them
// to the repository from a single background goroutine. Record never
// blocks: when the buffer is full the entry is dropped and a warning
// logged.
type Recorder struct {
	repo   Repository
	logger *slog.Logger

	entries chan AuditLog
	done    chan struct{}
	once    sync.Once
}

// NewRecorder creates a Recorder and starts its drain goroutine.
func NewRecorder(repo Repository, logger *slog.Logger) *Recorder {
	r := &Recorder{
		repo:    repo,
		logger:  logger,
		entries: make(chan AuditLog, recorderBuffer),
		done:    make(chan struct{}),
	}
	go r.drain()
	return r
}

// Record enqueues an audit entry, best effort.
func (r *Recorder) Record(entry AuditLog) {
	if entry.Source == "" {
		entry.Source = "api"
	}

	select {
	case r.entries <- entry:
	default:
		r.logger.Warn("audit buffer full, entry dropped",
			"action", entry.Action,
			"entity_type", entry.EntityType,
		)
	}
}

// Close stops the recorder after flushing pending entries.
// Safe to call more than once.
func (r *Recorder) Close() {
	r.once.Do(func() {
		close(r.entries)
		<-r.done
	})
}

// drain writes queued entries until the channel is closed.
func (r *Recorder) drain() {
	defer close(r.done)

	for entry := range r.entries {
		if err := r.repo.Create(context.Background(), &entry); err != nil {
			r.logger.Error("writing audit entry",
				"action", entry.Action,
				"error", err,
			)
		}
	}
}
