package session

import (
	"log/slog"
	"sync"

	"github.com/clipforge/clipforge-agent/internal/player"
)

// Manager hands out one editing session per video for the lifetime of the
// agent process.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	logger   *slog.Logger
}

func NewManager(logger *slog.Logger) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		logger:   logger,
	}
}

func (m *Manager) GetOrCreate(videoID string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[videoID]; ok {
		return s
	}
	s := New(videoID, player.NewController(m.logger))
	m.sessions[videoID] = s
	if m.logger != nil {
		m.logger.Debug("session created", "video_id", videoID)
	}
	return s
}

func (m *Manager) Get(videoID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[videoID]
	return s, ok
}
