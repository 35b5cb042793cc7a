package main

import (
	"sync"

	"github.com/google/uuid"
)

// Session is one joinable match: a name, a mode and its Game loop.
type Session struct {
	ID   string
	Name string
	Mode Mode
	Game *Game
}

// SessionManager creates, lists and reaps sessions. Each session's Game runs
// its own goroutine; the manager never touches game state directly.
type SessionManager struct {
	mu          sync.RWMutex
	sessions    map[string]*Session
	maxSessions int
	gameCfg     GameConfig
}

func NewSessionManager(maxSessions int, gameCfg GameConfig) *SessionManager {
	return &SessionManager{
		sessions:    make(map[string]*Session),
		maxSessions: maxSessions,
		gameCfg:     gameCfg,
	}
}

// CreateSession starts a new session on the given map. Returns nil when the
// session limit is reached.
func (sm *SessionManager) CreateSession(name string, mode Mode, m *LoadedMap) *Session {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if len(sm.sessions) >= sm.maxSessions {
		return nil
	}

	sess := &Session{
		ID:   uuid.NewString(),
		Name: name,
		Mode: mode,
		Game: NewGame(sm.gameCfg, mode, m),
	}
	sm.sessions[sess.ID] = sess
	go sess.Game.Run()
	logger.Infow("session created", "sid", sess.ID, "name", name, "mode", modeName(mode))
	return sess
}

// GetSession returns a session by id, or nil.
func (sm *SessionManager) GetSession(id string) *Session {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.sessions[id]
}

// RemovePlayer detaches a player from a session and reaps the session once
// empty. The game applies the removal at its next tick boundary.
func (sm *SessionManager) RemovePlayer(sessionID string, playerID uint32) {
	sm.mu.RLock()
	sess, ok := sm.sessions[sessionID]
	sm.mu.RUnlock()
	if !ok {
		return
	}
	sess.Game.MarkRemove(playerID)

	if sess.Game.PlayerCount() == 0 {
		sess.Game.Stop()
		sm.mu.Lock()
		delete(sm.sessions, sessionID)
		sm.mu.Unlock()
		logger.Infow("session reaped", "sid", sessionID)
	}
}

// ListSessions snapshots all active sessions for the lobby list.
func (sm *SessionManager) ListSessions() []SessionInfo {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	list := make([]SessionInfo, 0, len(sm.sessions))
	for _, sess := range sm.sessions {
		list = append(list, SessionInfo{
			ID:      sess.ID,
			Name:    sess.Name,
			Mode:    modeName(sess.Mode),
			Phase:   sess.Game.Phase().String(),
			Players: sess.Game.PlayerCount(),
		})
	}
	return list
}

// Count returns the number of live sessions.
func (sm *SessionManager) Count() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}

// StopAll shuts every session down, for server shutdown.
func (sm *SessionManager) StopAll() {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	for id, sess := range sm.sessions {
		sess.Game.Stop()
		delete(sm.sessions, id)
	}
}
