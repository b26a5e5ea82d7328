package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"telecare/pkg/logger"
	"telecare/services/notification/internal/entity"
	"telecare/services/notification/internal/realtime"
	"telecare/services/notification/internal/repo/persistent"
	"telecare/services/notification/internal/store"
)

type State int

const (
	StateUnauthenticated State = iota
	StateLoading
	StateReady
)

const (
	ToastNotification = "notification"
	ToastError        = "error"
)

// Toast is a fire-and-forget user-facing message.
type Toast struct {
	Kind     string `json:"kind"`
	Title    string `json:"title"`
	Body     string `json:"body"`
	Critical bool   `json:"critical"`
}

// ToastSink receives toasts emitted by the coordinator.
type ToastSink interface {
	Show(toast Toast)
}

// Snapshot is the read surface handed to UI consumers.
type Snapshot struct {
	Notifications []entity.Notification `json:"notifications"`
	UnreadCount   int                   `json:"unread_count"`
}

// Coordinator owns one user's local notification view. It is the single
// writer of its store: direct operations mutate optimistically before the
// gateway call resolves, and inbound realtime events are merged idempotently
// by id. One coordinator serves all of a session's consumers; fan-out
// happens through Subscribe, never through extra realtime subscriptions.
type Coordinator struct {
	mu     sync.Mutex
	userID string
	state  State
	// epoch is bumped on logout so responses that were in flight when the
	// session ended are discarded instead of being applied to a cleared store.
	epoch int

	store          *store.Store
	repo           persistent.NotificationRepository
	channel        realtime.Channel
	toasts         ToastSink
	logger         *logger.Logger
	cancelRealtime func()

	subscribers map[int]chan Snapshot
	nextSubID   int
}

func NewCoordinator(userID string, repo persistent.NotificationRepository, channel realtime.Channel, toasts ToastSink, log *logger.Logger) *Coordinator {
	return &Coordinator{
		userID:      userID,
		state:       StateUnauthenticated,
		store:       store.New(),
		repo:        repo,
		channel:     channel,
		toasts:      toasts,
		logger:      log,
		subscribers: make(map[int]chan Snapshot),
	}
}

// Start performs the initial load and attaches the realtime subscription.
// A load failure leaves the coordinator ready with an empty store so the
// user can retry; a subscription failure leaves it ready without live
// updates until an explicit reload.
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateUnauthenticated {
		c.mu.Unlock()
		return fmt.Errorf("coordinator already started for user %s", c.userID)
	}
	c.state = StateLoading
	epoch := c.epoch
	c.mu.Unlock()

	notifications, err := c.repo.ListByUser(ctx, c.userID)

	c.mu.Lock()
	if epoch != c.epoch {
		c.mu.Unlock()
		return nil
	}
	if err != nil {
		c.state = StateReady
		c.mu.Unlock()
		c.logger.Warn("Initial notification load failed for user %s: %v", c.userID, err)
		c.toasts.Show(Toast{Kind: ToastError, Title: "Notifications unavailable", Body: "Could not load your notifications."})
	} else {
		c.store.Replace(notifications)
		c.state = StateReady
		c.mu.Unlock()
		c.notifySubscribers()
	}

	events, cancel, err := c.channel.Subscribe(ctx, c.userID)
	if err != nil {
		c.logger.Warn("Realtime subscription failed for user %s: %v", c.userID, err)
		return nil
	}

	c.mu.Lock()
	if epoch != c.epoch {
		c.mu.Unlock()
		cancel()
		return nil
	}
	c.cancelRealtime = cancel
	c.mu.Unlock()

	go c.consumeEvents(epoch, events)
	return nil
}

// Stop is the logout path: it tears down the realtime subscription, clears
// the store, and invalidates any in-flight responses.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	c.epoch++
	c.state = StateUnauthenticated
	c.store.Clear()
	cancel := c.cancelRealtime
	c.cancelRealtime = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	c.notifySubscribers()
}

func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Coordinator) UnreadCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.UnreadCount()
}

func (c *Coordinator) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Subscribe registers a UI consumer. The channel carries the latest snapshot
// after every store change; slow consumers only ever miss intermediate
// states, never the newest one. The returned func detaches the consumer.
func (c *Coordinator) Subscribe() (<-chan Snapshot, func()) {
	c.mu.Lock()
	id := c.nextSubID
	c.nextSubID++
	ch := make(chan Snapshot, 1)
	c.subscribers[id] = ch
	c.mu.Unlock()

	return ch, func() {
		c.mu.Lock()
		delete(c.subscribers, id)
		c.mu.Unlock()
	}
}

// LoadNotifications refetches the full feed and replaces the store.
func (c *Coordinator) LoadNotifications(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateReady {
		c.mu.Unlock()
		return entity.ErrNotReady
	}
	epoch := c.epoch
	c.mu.Unlock()

	notifications, err := c.repo.ListByUser(ctx, c.userID)
	if err != nil {
		c.toasts.Show(Toast{Kind: ToastError, Title: "Notifications unavailable", Body: "Could not load your notifications."})
		return fmt.Errorf("failed to load notifications: %w", err)
	}

	c.mu.Lock()
	if epoch != c.epoch {
		c.mu.Unlock()
		return nil
	}
	c.store.Replace(notifications)
	c.mu.Unlock()

	c.notifySubscribers()
	return nil
}

// LoadNotificationsByType is a fetch-only filtered view; it never touches
// the shared store.
func (c *Coordinator) LoadNotificationsByType(ctx context.Context, notificationType string) ([]entity.Notification, error) {
	c.mu.Lock()
	if c.state != StateReady {
		c.mu.Unlock()
		return nil, entity.ErrNotReady
	}
	c.mu.Unlock()

	notifications, err := c.repo.ListByUserAndType(ctx, c.userID, notificationType)
	if err != nil {
		return nil, fmt.Errorf("failed to load notifications by type: %w", err)
	}
	return notifications, nil
}

// MarkAsRead flips the local entry immediately and then confirms with the
// gateway. The optimistic change is kept even when the gateway call fails;
// a read notification flipping back to unread is worse UX than a stale flag.
func (c *Coordinator) MarkAsRead(ctx context.Context, id string) error {
	c.mu.Lock()
	if c.state != StateReady {
		c.mu.Unlock()
		return entity.ErrNotReady
	}
	changed := c.store.MarkRead(id)
	c.mu.Unlock()

	if changed {
		c.notifySubscribers()
	}

	if err := c.repo.MarkRead(ctx, id); err != nil {
		c.logger.Warn("Failed to mark notification %s read remotely: %v", id, err)
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	return nil
}

// MarkAllAsRead zeroes the local unread state and issues a single gateway
// call for the whole feed.
func (c *Coordinator) MarkAllAsRead(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateReady {
		c.mu.Unlock()
		return entity.ErrNotReady
	}
	changed := c.store.MarkAllRead()
	c.mu.Unlock()

	if changed > 0 {
		c.notifySubscribers()
	}

	if err := c.repo.MarkAllRead(ctx, c.userID); err != nil {
		c.logger.Warn("Failed to mark all notifications read remotely for user %s: %v", c.userID, err)
		return fmt.Errorf("failed to mark all notifications read: %w", err)
	}
	return nil
}

// DeleteNotificationByID removes the entry locally first. A remote
// not-found is treated as success: the observable local effect is the same.
func (c *Coordinator) DeleteNotificationByID(ctx context.Context, id string) error {
	c.mu.Lock()
	if c.state != StateReady {
		c.mu.Unlock()
		return entity.ErrNotReady
	}
	existed, _ := c.store.Remove(id)
	c.mu.Unlock()

	if existed {
		c.notifySubscribers()
	}

	err := c.repo.Delete(ctx, id)
	if err != nil && !errors.Is(err, entity.ErrNotFound) {
		c.logger.Warn("Failed to delete notification %s remotely: %v", id, err)
		return fmt.Errorf("failed to delete notification: %w", err)
	}
	return nil
}

// CreateNewNotification is the only creation path originating from this
// client. The returned id is in the store before the matching realtime
// insert event can arrive, which is what suppresses the duplicate toast.
func (c *Coordinator) CreateNewNotification(ctx context.Context, data entity.CreateNotificationData) (*entity.Notification, error) {
	c.mu.Lock()
	if c.state != StateReady {
		c.mu.Unlock()
		return nil, entity.ErrNotReady
	}
	epoch := c.epoch
	c.mu.Unlock()

	data.UserID = c.userID
	notification, err := c.repo.Create(ctx, data)
	if err != nil {
		if !errors.Is(err, entity.ErrValidation) {
			c.toasts.Show(Toast{Kind: ToastError, Title: "Notification failed", Body: "Could not create the notification."})
		}
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}

	c.mu.Lock()
	if epoch != c.epoch {
		c.mu.Unlock()
		return notification, nil
	}
	c.store.Prepend(*notification)
	c.mu.Unlock()

	c.notifySubscribers()
	return notification, nil
}

// UpdateNotificationByID merges the gateway's updated row into the store.
func (c *Coordinator) UpdateNotificationByID(ctx context.Context, id string, data entity.UpdateNotificationData) (*entity.Notification, error) {
	c.mu.Lock()
	if c.state != StateReady {
		c.mu.Unlock()
		return nil, entity.ErrNotReady
	}
	epoch := c.epoch
	c.mu.Unlock()

	notification, err := c.repo.Update(ctx, id, data)
	if err != nil {
		c.logger.Warn("Failed to update notification %s: %v", id, err)
		return nil, fmt.Errorf("failed to update notification: %w", err)
	}

	c.mu.Lock()
	if epoch != c.epoch {
		c.mu.Unlock()
		return notification, nil
	}
	c.store.Update(*notification)
	c.mu.Unlock()

	c.notifySubscribers()
	return notification, nil
}

// RefreshUnreadCount reconciles the bookkept counter against an
// authoritative remote recount.
func (c *Coordinator) RefreshUnreadCount(ctx context.Context) (int, error) {
	c.mu.Lock()
	if c.state != StateReady {
		c.mu.Unlock()
		return 0, entity.ErrNotReady
	}
	epoch := c.epoch
	c.mu.Unlock()

	count, err := c.repo.UnreadCount(ctx, c.userID)
	if err != nil {
		return 0, fmt.Errorf("failed to refresh unread count: %w", err)
	}

	c.mu.Lock()
	if epoch != c.epoch {
		c.mu.Unlock()
		return int(count), nil
	}
	if int(count) != c.store.UnreadCount() {
		c.logger.Warn("Unread count drift for user %s: local=%d remote=%d", c.userID, c.store.UnreadCount(), count)
		c.store.SetUnreadCount(int(count))
		c.mu.Unlock()
		c.notifySubscribers()
	} else {
		c.mu.Unlock()
	}

	return int(count), nil
}

func (c *Coordinator) consumeEvents(epoch int, events <-chan realtime.ChangeEvent) {
	for event := range events {
		c.applyEvent(epoch, event)
	}
	c.logger.Warn("Realtime channel closed for user %s; feed is static until reload", c.userID)
}

// applyEvent merges one inbound change. Events are at least once and only
// loosely ordered, so everything here is keyed by id and tolerates
// duplicates, unknown parents, and rows the store already reflects.
func (c *Coordinator) applyEvent(epoch int, event realtime.ChangeEvent) {
	var toast *Toast
	changed := false

	c.mu.Lock()
	if epoch != c.epoch || c.state != StateReady {
		c.mu.Unlock()
		return
	}

	switch event.EntityTable {
	case realtime.TableNotifications:
		notification, err := event.Notification()
		if err != nil {
			c.mu.Unlock()
			c.logger.Warn("Dropping bad notification event: %v", err)
			return
		}
		switch event.EventType {
		case realtime.EventInsert:
			// Our own create already put this id in the store; merging it
			// again would duplicate the entry and re-toast the user.
			if c.store.Contains(notification.ID) {
				break
			}
			c.store.Prepend(notification)
			changed = true
			if !notification.Read {
				toast = &Toast{
					Kind:     ToastNotification,
					Title:    notification.Title,
					Body:     notification.Body,
					Critical: notification.Critical,
				}
			}
		case realtime.EventUpdate:
			existing, ok := c.store.Get(notification.ID)
			if !ok {
				break
			}
			// Last writer wins; a stale event must not clobber a newer
			// local mutation.
			if notification.UpdatedAt.Before(existing.UpdatedAt) {
				break
			}
			notification.Actions = existing.Actions
			changed = c.store.Update(notification)
		case realtime.EventDelete:
			changed, _ = c.store.Remove(notification.ID)
		}
	case realtime.TableNotificationActions:
		action, err := event.Action()
		if err != nil {
			c.mu.Unlock()
			c.logger.Warn("Dropping bad action event: %v", err)
			return
		}
		switch event.EventType {
		case realtime.EventInsert, realtime.EventUpdate:
			changed = c.store.UpsertAction(action)
		case realtime.EventDelete:
			changed = c.store.RemoveAction(action.NotificationID, action.ID)
		}
	}
	c.mu.Unlock()

	if changed {
		c.notifySubscribers()
	}
	if toast != nil {
		c.toasts.Show(*toast)
	}
}

func (c *Coordinator) snapshotLocked() Snapshot {
	return Snapshot{
		Notifications: c.store.Snapshot(),
		UnreadCount:   c.store.UnreadCount(),
	}
}

func (c *Coordinator) notifySubscribers() {
	c.mu.Lock()
	snapshot := c.snapshotLocked()
	for _, ch := range c.subscribers {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snapshot:
		default:
		}
	}
	c.mu.Unlock()
}
