package db

import (
	"testing"

	"mailgate/internal/models"
)

func TestInsertConnectionIdempotent(t *testing.T) {
	database := openTestDB(t)

	// openTestDB already inserted this account once.
	again := models.Account{Username: testUser, Address: testAddr, Password: "other", Port: 143}
	if err := InsertConnection(database, again); err != nil {
		t.Fatalf("InsertConnection() error: %v", err)
	}

	accounts, err := GetConnections(database)
	if err != nil {
		t.Fatalf("GetConnections() error: %v", err)
	}
	if len(accounts) != 1 {
		t.Fatalf("len = %d, want 1", len(accounts))
	}
	if accounts[0].Password != "secret" || accounts[0].Port != 993 {
		t.Errorf("original row overwritten: %+v", accounts[0])
	}
}

func TestGetConnectionsEmpty(t *testing.T) {
	database, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer func() { _ = database.Close() }()

	accounts, err := GetConnections(database)
	if err != nil {
		t.Fatalf("GetConnections() error: %v", err)
	}
	if len(accounts) != 0 {
		t.Errorf("len = %d, want 0", len(accounts))
	}
}

func TestMailboxesRoundTrip(t *testing.T) {
	database := openTestDB(t)

	paths := []string{"Archive", "INBOX", "Sent"}
	if err := InsertMailboxes(database, testUser, testAddr, paths); err != nil {
		t.Fatalf("InsertMailboxes() error: %v", err)
	}
	// INBOX was already cached; the duplicate is a no-op.
	got, err := GetMailboxes(database, testUser, testAddr)
	if err != nil {
		t.Fatalf("GetMailboxes() error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if got[0] != "Archive" || got[1] != "INBOX" || got[2] != "Sent" {
		t.Errorf("paths = %v", got)
	}
}
