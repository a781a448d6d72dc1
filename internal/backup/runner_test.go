package backup

import (
	"os"
	"path/filepath"
	"testing"

	"mailgate/internal/conf"
	"mailgate/internal/db"
	"mailgate/internal/models"
)

func TestRunOnceWritesLocalSnapshot(t *testing.T) {
	database, err := db.Open(":memory:")
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer func() { _ = database.Close() }()

	account := models.Account{Username: "alice", Address: "imap.example.com", Password: "pw", Port: 993}
	if err := db.InsertConnection(database, account); err != nil {
		t.Fatalf("InsertConnection() error: %v", err)
	}

	dest := filepath.Join(t.TempDir(), "mail.db.bak")
	r := NewRunner(database, dest, nil)
	defer r.Close()

	if err := r.RunOnce(); err != nil {
		t.Fatalf("RunOnce() error: %v", err)
	}

	snapshot, err := db.Open(dest)
	if err != nil {
		t.Fatalf("Open(snapshot) error: %v", err)
	}
	defer func() { _ = snapshot.Close() }()

	accounts, err := db.GetConnections(snapshot)
	if err != nil {
		t.Fatalf("GetConnections() error: %v", err)
	}
	if len(accounts) != 1 || accounts[0].Username != "alice" {
		t.Errorf("snapshot accounts = %+v", accounts)
	}
}

func TestKickDoesNotBlock(t *testing.T) {
	database, err := db.Open(":memory:")
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer func() { _ = database.Close() }()

	r := NewRunner(database, filepath.Join(t.TempDir(), "mail.db.bak"), nil)

	for i := 0; i < 100; i++ {
		r.Kick()
	}

	r.Close()
}

func TestRestoreFromLocalSnapshot(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "mail.db")
	snapshotPath := filepath.Join(dir, "mail.db.bak")

	if err := os.WriteFile(snapshotPath, []byte("snapshot bytes"), 0600); err != nil {
		t.Fatalf("write snapshot: %v", err)
	}

	restored, err := Restore(dbPath, snapshotPath, nil)
	if err != nil {
		t.Fatalf("Restore() error: %v", err)
	}
	if !restored {
		t.Fatal("Restore() = false, want true")
	}

	data, err := os.ReadFile(dbPath)
	if err != nil {
		t.Fatalf("read restored db: %v", err)
	}
	if string(data) != "snapshot bytes" {
		t.Errorf("restored content = %q", data)
	}
}

func TestRestoreSkipsExistingDatabase(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "mail.db")
	snapshotPath := filepath.Join(dir, "mail.db.bak")

	if err := os.WriteFile(dbPath, []byte("live"), 0600); err != nil {
		t.Fatalf("write db: %v", err)
	}
	if err := os.WriteFile(snapshotPath, []byte("old snapshot"), 0600); err != nil {
		t.Fatalf("write snapshot: %v", err)
	}

	restored, err := Restore(dbPath, snapshotPath, nil)
	if err != nil {
		t.Fatalf("Restore() error: %v", err)
	}
	if restored {
		t.Error("Restore() = true, want false for existing database")
	}

	data, _ := os.ReadFile(dbPath)
	if string(data) != "live" {
		t.Errorf("live database overwritten: %q", data)
	}
}

func TestRestoreNothingAvailable(t *testing.T) {
	dir := t.TempDir()

	restored, err := Restore(filepath.Join(dir, "mail.db"), filepath.Join(dir, "mail.db.bak"), nil)
	if err != nil {
		t.Fatalf("Restore() error: %v", err)
	}
	if restored {
		t.Error("Restore() = true, want false with nothing to restore")
	}
}

func TestNewSnapshotStoreRequiresBucket(t *testing.T) {
	if _, err := NewSnapshotStore(conf.BackupConfig{}); err == nil {
		t.Error("NewSnapshotStore() expected error for missing bucket")
	}
}
