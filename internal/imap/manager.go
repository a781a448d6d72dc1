package imap

import (
	"database/sql"
	"log"
	"sort"
	"sync"

	"mailgate/internal/backup"
	"mailgate/internal/db"
	"mailgate/internal/fault"
	"mailgate/internal/models"
)

// Session pairs an account with its live transport. The per-session
// mutex serializes SELECT+operation sequences; SELECT is session-global
// state, so two operations on one session must not interleave.
type Session struct {
	ID      int64
	Account models.Account

	mu        sync.Mutex
	transport Transport
}

// Manager owns all live sessions. Handles are monotonically increasing
// and never reused, so logging out one session never renumbers another.
type Manager struct {
	dial    Dialer
	store   *sql.DB
	backups *backup.Runner

	mu       sync.Mutex
	sessions map[int64]*Session
	nextID   int64
}

// NewManager creates a session manager. backups may be nil.
func NewManager(dial Dialer, store *sql.DB, backups *backup.Runner) *Manager {
	return &Manager{
		dial:     dial,
		store:    store,
		backups:  backups,
		sessions: make(map[int64]*Session),
	}
}

// Connect logs the account in and returns its session handle. A second
// connect for the same (username, address) returns the existing handle.
// The account is persisted so it reconnects after a restart; failure to
// persist is logged, not fatal.
func (m *Manager) Connect(account models.Account) (int64, error) {
	if id, ok := m.findSession(account.Username, account.Address); ok {
		return id, nil
	}

	// Dial outside the lock; logins to other accounts proceed meanwhile.
	transport, err := m.dial(account)
	if err != nil {
		return 0, err
	}

	m.mu.Lock()
	// Someone may have connected the same account while we dialed.
	for id, s := range m.sessions {
		if s.Account.Username == account.Username && s.Account.Address == account.Address {
			m.mu.Unlock()
			_ = transport.Logout()
			return id, nil
		}
	}

	m.nextID++
	id := m.nextID
	m.sessions[id] = &Session{ID: id, Account: account, transport: transport}
	m.mu.Unlock()

	if err := db.InsertConnection(m.store, account); err != nil {
		log.Printf("Failed to persist account %s@%s: %v", account.Username, account.Address, err)
	} else {
		m.kick()
	}

	return id, nil
}

// Logout ends the session, forgets the handle and removes the persisted
// account.
func (m *Manager) Logout(id int64) error {
	const op = "imap.Logout"

	m.mu.Lock()
	s, ok := m.sessions[id]
	if !ok {
		m.mu.Unlock()
		return fault.Newf(fault.KindNotFound, op, "no session %d", id)
	}
	delete(m.sessions, id)
	m.mu.Unlock()

	s.mu.Lock()
	if err := s.transport.Logout(); err != nil {
		log.Printf("Logout of %s@%s: %v", s.Account.Username, s.Account.Address, err)
	}
	s.mu.Unlock()

	if err := db.RemoveConnection(m.store, s.Account.Username, s.Account.Address); err != nil {
		return err
	}
	m.kick()

	return nil
}

// Sessions lists live sessions in handle order.
func (m *Manager) Sessions() []models.SessionInfo {
	m.mu.Lock()
	defer m.mu.Unlock()

	infos := make([]models.SessionInfo, 0, len(m.sessions))
	for _, s := range m.sessions {
		infos = append(infos, models.SessionInfo{
			ID:       s.ID,
			Username: s.Account.Username,
			Address:  s.Account.Address,
			Port:     s.Account.Port,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })

	return infos
}

// Account returns the account behind a session handle.
func (m *Manager) Account(id int64) (models.Account, error) {
	const op = "imap.Account"

	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return models.Account{}, fault.Newf(fault.KindNotFound, op, "no session %d", id)
	}

	return s.Account, nil
}

// WithSession selects mailbox on the session's transport and runs op
// with the transport and the mailbox's message count. On a
// disconnect-class failure it reconnects and retries op exactly once;
// a second failure propagates. All other error kinds propagate
// unchanged. This is the only place reconnect handling lives.
func (m *Manager) WithSession(id int64, mailbox string, op func(tr Transport, exists uint32) error) error {
	return m.withTransport(id, func(tr Transport) error {
		exists, err := tr.Select(mailbox)
		if err != nil {
			return err
		}
		return op(tr, exists)
	})
}

// WithTransport is WithSession without the SELECT, for operations like
// LIST that are not mailbox-scoped.
func (m *Manager) WithTransport(id int64, op func(tr Transport) error) error {
	return m.withTransport(id, op)
}

func (m *Manager) withTransport(id int64, op func(tr Transport) error) error {
	const op_ = "imap.WithSession"

	m.mu.Lock()
	s, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok {
		return fault.Newf(fault.KindNotFound, op_, "no session %d", id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Bounded retry: one attempt, one reconnect, one more attempt.
	err := op(s.transport)
	for attempt := 0; attempt < 1 && fault.IsDisconnect(err); attempt++ {
		transport, dialErr := m.dial(s.Account)
		if dialErr != nil {
			return dialErr
		}
		s.transport = transport

		err = op(s.transport)
	}

	return err
}

func (m *Manager) findSession(username, address string) (int64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, s := range m.sessions {
		if s.Account.Username == username && s.Account.Address == address {
			return id, true
		}
	}
	return 0, false
}

// Store exposes the cache handle to the operation layer.
func (m *Manager) Store() *sql.DB {
	return m.store
}

func (m *Manager) kick() {
	if m.backups != nil {
		m.backups.Kick()
	}
}
