package server

import (
	"net/http"

	"mailgate/internal/models"
)

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	username, err := paramString(q, "username")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	password, err := paramString(q, "password")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	address, err := paramString(q, "address")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	port, err := paramUint16(q, "port")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	id, err := s.mgr.Connect(models.Account{
		Username: username,
		Password: password,
		Address:  address,
		Port:     port,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	token, err := s.issueToken(username)
	if err != nil {
		writeError(w, err)
		return
	}

	data := struct {
		SessionID int64  `json:"session_id"`
		Token     string `json:"token,omitempty"`
	}{SessionID: id, Token: token}

	writeOK(w, "connected to IMAP server", data)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	id, err := paramInt64(r.URL.Query(), "session_id")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	if err := s.mgr.Logout(id); err != nil {
		writeError(w, err)
		return
	}

	writeOK(w, "logged out", id)
}

func (s *Server) handleGetSessions(w http.ResponseWriter, r *http.Request) {
	writeOK(w, "sessions retrieved", s.mgr.Sessions())
}

func (s *Server) handleGetMailboxes(w http.ResponseWriter, r *http.Request) {
	id, err := paramInt64(r.URL.Query(), "session_id")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	mailboxes, err := s.mgr.GetMailboxes(id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeOK(w, "mailboxes retrieved", mailboxes)
}

func (s *Server) handleUpdateMailboxes(w http.ResponseWriter, r *http.Request) {
	id, err := paramInt64(r.URL.Query(), "session_id")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	mailboxes, err := s.mgr.UpdateMailboxes(id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeOK(w, "mailboxes updated", mailboxes)
}

func (s *Server) handleGetMessagesWithUIDs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	id, err := paramInt64(q, "session_id")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	mailbox, err := paramString(q, "mailbox_path")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	uids, err := paramUIDList(q, "message_uids")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	messages, err := s.mgr.GetMessagesWithUIDs(id, mailbox, uids)
	if err != nil {
		writeError(w, err)
		return
	}

	writeOK(w, "messages retrieved", messages)
}

func (s *Server) handleGetMessagesSorted(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	id, err := paramInt64(q, "session_id")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	mailbox, err := paramString(q, "mailbox_path")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	start, err := paramUint32(q, "start")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	end, err := paramUint32(q, "end")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	messages, err := s.mgr.GetMessagesSorted(id, mailbox, start, end)
	if err != nil {
		writeError(w, err)
		return
	}

	writeOK(w, "messages retrieved", messages)
}

func (s *Server) handleGetMessage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	id, err := paramInt64(q, "session_id")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	mailbox, err := paramString(q, "mailbox_path")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	uid, err := paramUint32(q, "message_uid")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	message, err := s.mgr.GetMessage(id, mailbox, uid)
	if err != nil {
		writeError(w, err)
		return
	}
	if message == nil {
		writeJSON(w, http.StatusNotFound, response{Success: false, Message: "message not found"})
		return
	}

	writeOK(w, "message retrieved", message)
}

func (s *Server) handleUpdateMailbox(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	id, err := paramInt64(q, "session_id")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	mailbox, err := paramString(q, "mailbox_path")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	changed, err := s.syncer.UpdateMailbox(id, mailbox)
	if err != nil {
		writeError(w, err)
		return
	}

	writeOK(w, "mailbox updated", changed)
}

func (s *Server) handleModifyFlags(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	id, err := paramInt64(q, "session_id")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	mailbox, err := paramString(q, "mailbox_path")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	uid, err := paramUint32(q, "message_uid")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	flags, err := paramFlagList(q, "flags")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	add, err := paramBool(q, "add")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	current, err := s.mgr.ModifyFlags(id, mailbox, uid, flags, add)
	if err != nil {
		writeError(w, err)
		return
	}

	writeOK(w, "flags modified", current)
}

func (s *Server) handleMoveMessage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	id, err := paramInt64(q, "session_id")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	mailbox, err := paramString(q, "mailbox_path")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	uid, err := paramUint32(q, "message_uid")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	dest, err := paramString(q, "mailbox_path_dest")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	newUID, err := s.mgr.MoveMessage(id, mailbox, uid, dest)
	if err != nil {
		writeError(w, err)
		return
	}

	data := struct {
		MessageUID uint32 `json:"message_uid"`
	}{MessageUID: newUID}

	writeOK(w, "message moved", data)
}
