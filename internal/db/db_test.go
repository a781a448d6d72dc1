package db

import (
	"path/filepath"
	"testing"
)

func TestBackupSnapshot(t *testing.T) {
	database := openTestDB(t)

	if err := InsertMessage(database, testUser, testAddr, testBox, testMessage(1, 1, 100)); err != nil {
		t.Fatalf("InsertMessage() error: %v", err)
	}

	dest := filepath.Join(t.TempDir(), "snapshot.db")
	if err := Backup(database, dest); err != nil {
		t.Fatalf("Backup() error: %v", err)
	}
	// Replacing an existing snapshot must work.
	if err := Backup(database, dest); err != nil {
		t.Fatalf("Backup() second error: %v", err)
	}

	restored, err := Open(dest)
	if err != nil {
		t.Fatalf("Open(snapshot) error: %v", err)
	}
	defer func() { _ = restored.Close() }()

	msg, err := GetMessage(restored, testUser, testAddr, testBox, 1)
	if err != nil {
		t.Fatalf("GetMessage() error: %v", err)
	}
	if msg == nil {
		t.Fatal("snapshot is missing the cached message")
	}
}
