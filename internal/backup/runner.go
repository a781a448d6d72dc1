package backup

import (
	"context"
	"database/sql"
	"log"
	"os"
	"time"

	"mailgate/internal/db"
)

// Runner snapshots the database off the caller's critical path. Kick
// requests a snapshot and returns immediately; bursts of kicks collapse
// into one run. Snapshot failures are logged, never surfaced.
type Runner struct {
	database *sql.DB
	dest     string
	store    *SnapshotStore

	kicks chan struct{}
	done  chan struct{}
}

// NewRunner starts the snapshot loop. store may be nil for local-only
// snapshots.
func NewRunner(database *sql.DB, dest string, store *SnapshotStore) *Runner {
	r := &Runner{
		database: database,
		dest:     dest,
		store:    store,
		kicks:    make(chan struct{}, 1),
		done:     make(chan struct{}),
	}

	go r.loop()

	return r
}

// Kick schedules a snapshot. Never blocks.
func (r *Runner) Kick() {
	select {
	case r.kicks <- struct{}{}:
	default:
	}
}

// Close stops the loop after any in-flight snapshot finishes.
func (r *Runner) Close() {
	close(r.kicks)
	<-r.done
}

func (r *Runner) loop() {
	defer close(r.done)

	for range r.kicks {
		if err := r.RunOnce(); err != nil {
			log.Printf("Backup failed: %v", err)
		}
	}
}

// RunOnce takes one snapshot synchronously.
func (r *Runner) RunOnce() error {
	if err := db.Backup(r.database, r.dest); err != nil {
		return err
	}

	if r.store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		if err := r.store.Upload(ctx, r.dest); err != nil {
			return err
		}
	}

	return nil
}

// Restore puts a previous snapshot in place of a missing database file.
// It prefers the local snapshot and falls back to the bucket. A fresh
// deployment with no snapshot anywhere is not an error.
func Restore(dbPath, snapshotPath string, store *SnapshotStore) (bool, error) {
	if _, err := os.Stat(dbPath); err == nil {
		return false, nil
	}

	if data, err := os.ReadFile(snapshotPath); err == nil {
		if err := os.WriteFile(dbPath, data, 0600); err != nil {
			return false, err
		}
		return true, nil
	}

	if store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		found, err := store.Download(ctx, dbPath)
		if err != nil {
			return false, err
		}
		return found, nil
	}

	return false, nil
}
