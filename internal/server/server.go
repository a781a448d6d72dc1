// Package server exposes the gateway over plain HTTP. Every endpoint
// takes GET query parameters and answers with a JSON envelope.
package server

import (
	"log"
	"net/http"

	"mailgate/internal/imap"
	"mailgate/internal/mailsync"
)

type Server struct {
	mgr    *imap.Manager
	syncer *mailsync.Syncer
	secret string
}

// NewServer wires the request surface to the session manager and the
// synchronizer. An empty secret disables bearer-token auth.
func NewServer(mgr *imap.Manager, syncer *mailsync.Syncer, secret string) *Server {
	return &Server{mgr: mgr, syncer: syncer, secret: secret}
}

// Router builds the endpoint table. Login stays outside the auth
// middleware so clients can obtain a token.
func (s *Server) Router() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/login", s.handleLogin)
	mux.HandleFunc("/logout", s.requireAuth(s.handleLogout))
	mux.HandleFunc("/get_sessions", s.requireAuth(s.handleGetSessions))
	mux.HandleFunc("/get_mailboxes", s.requireAuth(s.handleGetMailboxes))
	mux.HandleFunc("/update_mailboxes", s.requireAuth(s.handleUpdateMailboxes))
	mux.HandleFunc("/get_messages_with_uids", s.requireAuth(s.handleGetMessagesWithUIDs))
	mux.HandleFunc("/get_messages_sorted", s.requireAuth(s.handleGetMessagesSorted))
	mux.HandleFunc("/get_message", s.requireAuth(s.handleGetMessage))
	mux.HandleFunc("/update_mailbox", s.requireAuth(s.handleUpdateMailbox))
	mux.HandleFunc("/modify_flags", s.requireAuth(s.handleModifyFlags))
	mux.HandleFunc("/move_message", s.requireAuth(s.handleMoveMessage))

	return mux
}

// ListenAndServe blocks serving the router on addr.
func (s *Server) ListenAndServe(addr string) error {
	log.Printf("HTTP listening on %s", addr)
	return http.ListenAndServe(addr, s.Router())
}
