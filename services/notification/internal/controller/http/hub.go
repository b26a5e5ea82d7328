package http

import (
	"context"
	"sync"

	"telecare/pkg/logger"
	"telecare/services/notification/internal/realtime"
	"telecare/services/notification/internal/repo/persistent"
	"telecare/services/notification/internal/usecase"
)

// Hub keeps exactly one coordinator per connected user, no matter how many
// sockets that user has open. Attaching a second tab shares the existing
// coordinator instead of opening another realtime subscription; the last
// detach is the logout point that tears the coordinator down.
type Hub struct {
	mu       sync.Mutex
	repo     persistent.NotificationRepository
	channel  realtime.Channel
	logger   *logger.Logger
	sessions map[string]*session
}

type session struct {
	coordinator *usecase.Coordinator
	fanout      *toastFanout
	refs        int
}

func NewHub(repo persistent.NotificationRepository, channel realtime.Channel, log *logger.Logger) *Hub {
	return &Hub{
		repo:     repo,
		channel:  channel,
		logger:   log,
		sessions: make(map[string]*session),
	}
}

// Attach returns the user's shared coordinator and toast fan-out, starting
// a new session if none exists. The returned detach func must be called
// exactly once when the consumer goes away.
func (h *Hub) Attach(userID string) (*usecase.Coordinator, *toastFanout, func()) {
	h.mu.Lock()
	sess, ok := h.sessions[userID]
	if !ok {
		fanout := newToastFanout()
		coordinator := usecase.NewCoordinator(userID, h.repo, h.channel, fanout, h.logger)
		sess = &session{coordinator: coordinator, fanout: fanout}
		h.sessions[userID] = sess
		go func() {
			if err := coordinator.Start(context.Background()); err != nil {
				h.logger.Warn("Failed to start coordinator for user %s: %v", userID, err)
			}
		}()
	}
	sess.refs++
	h.mu.Unlock()

	var once sync.Once
	detach := func() {
		once.Do(func() {
			h.detach(userID)
		})
	}
	return sess.coordinator, sess.fanout, detach
}

func (h *Hub) detach(userID string) {
	h.mu.Lock()
	sess, ok := h.sessions[userID]
	if !ok {
		h.mu.Unlock()
		return
	}
	sess.refs--
	if sess.refs > 0 {
		h.mu.Unlock()
		return
	}
	delete(h.sessions, userID)
	h.mu.Unlock()

	sess.coordinator.Stop()
	h.logger.Info("Notification session ended for user %s", userID)
}

// ActiveSessions reports how many users currently hold a live coordinator.
func (h *Hub) ActiveSessions() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// toastFanout delivers coordinator toasts to every socket of one user.
type toastFanout struct {
	mu     sync.Mutex
	sinks  map[int]chan usecase.Toast
	nextID int
}

func newToastFanout() *toastFanout {
	return &toastFanout{sinks: make(map[int]chan usecase.Toast)}
}

func (f *toastFanout) Show(toast usecase.Toast) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.sinks {
		select {
		case ch <- toast:
		default:
		}
	}
}

func (f *toastFanout) attach() (<-chan usecase.Toast, func()) {
	f.mu.Lock()
	id := f.nextID
	f.nextID++
	ch := make(chan usecase.Toast, 8)
	f.sinks[id] = ch
	f.mu.Unlock()

	return ch, func() {
		f.mu.Lock()
		delete(f.sinks, id)
		f.mu.Unlock()
	}
}
