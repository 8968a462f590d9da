package identity

import (
	"errors"
	"os"
	"strings"
	"sync"

	"github.com/benmeehan/fieldsales-agent/pkg/file"
)

// ErrNoSession is returned when an operation needs a signed-in agent.
var ErrNoSession = errors.New("no agent is signed in")

// Session holds the signed-in agent as returned by the backend login.
type Session struct {
	NationalID string `json:"nationalID"`
	Name       string `json:"name"`
	Role       string `json:"role,omitempty"`
}

// IsAdmin reports whether the agent has the admin role.
func (s Session) IsAdmin() bool {
	return strings.EqualFold(s.Role, "admin")
}

// SessionStoreInterface defines methods for managing the persisted agent session.
type SessionStoreInterface interface {
	Load() error
	Save(session Session) error
	Clear() error
	Current() (Session, error)
}

// SessionStore keeps the agent session in a JSON file between runs.
type SessionStore struct {
	sessionFile string
	fileOps     file.FileOperations

	mu      sync.RWMutex
	session *Session
}

// NewSessionStore initializes a new SessionStore instance.
func NewSessionStore(filePath string, fileOps file.FileOperations) *SessionStore {
	return &SessionStore{
		sessionFile: filePath,
		fileOps:     fileOps,
	}
}

// Load reads the session file. A missing file leaves the store signed out.
func (s *SessionStore) Load() error {
	var session Session
	err := s.fileOps.ReadJsonFile(s.sessionFile, &session)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.set(nil)
			return nil
		}
		return err
	}

	if session.NationalID == "" {
		s.set(nil)
		return nil
	}
	s.set(&session)
	return nil
}

// Save persists the session and makes it current.
func (s *SessionStore) Save(session Session) error {
	if session.NationalID == "" {
		return errors.New("session requires a national ID")
	}
	if err := s.fileOps.WriteJsonFile(s.sessionFile, session); err != nil {
		return err
	}
	s.set(&session)
	return nil
}

// Clear signs the agent out and removes the session file.
func (s *SessionStore) Clear() error {
	s.set(nil)
	return s.fileOps.RemoveFile(s.sessionFile)
}

// Current returns the signed-in agent or ErrNoSession.
func (s *SessionStore) Current() (Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.session == nil {
		return Session{}, ErrNoSession
	}
	return *s.session, nil
}

func (s *SessionStore) set(session *Session) {
	s.mu.Lock()
	s.session = session
	s.mu.Unlock()
}
