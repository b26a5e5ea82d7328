// Package store holds the in-memory materialized view of one user's
// notification feed. The store is not safe for concurrent use on its own;
// the owning coordinator is its single writer.
package store

import (
	"telecare/services/notification/internal/entity"
)

type Store struct {
	notifications []entity.Notification
	unread        int
}

func New() *Store {
	return &Store{}
}

// Replace swaps the whole feed and recomputes the unread count.
func (s *Store) Replace(notifications []entity.Notification) {
	s.notifications = make([]entity.Notification, len(notifications))
	copy(s.notifications, notifications)
	s.unread = 0
	for i := range s.notifications {
		s.notifications[i].SortActions()
		if !s.notifications[i].Read {
			s.unread++
		}
	}
}

func (s *Store) Clear() {
	s.notifications = nil
	s.unread = 0
}

func (s *Store) Len() int {
	return len(s.notifications)
}

func (s *Store) UnreadCount() int {
	return s.unread
}

// SetUnreadCount overrides the bookkept counter with an authoritative
// remote recount.
func (s *Store) SetUnreadCount(count int) {
	if count < 0 {
		count = 0
	}
	s.unread = count
}

// Snapshot returns a copy of the feed, newest first.
func (s *Store) Snapshot() []entity.Notification {
	snapshot := make([]entity.Notification, len(s.notifications))
	copy(snapshot, s.notifications)
	for i := range snapshot {
		snapshot[i].Actions = append([]entity.NotificationAction(nil), snapshot[i].Actions...)
	}
	return snapshot
}

func (s *Store) Get(id string) (entity.Notification, bool) {
	if i := s.indexOf(id); i >= 0 {
		n := s.notifications[i]
		n.Actions = append([]entity.NotificationAction(nil), n.Actions...)
		return n, true
	}
	return entity.Notification{}, false
}

func (s *Store) Contains(id string) bool {
	return s.indexOf(id) >= 0
}

// Prepend adds a notification to the head of the feed. Returns false if the
// id is already present.
func (s *Store) Prepend(n entity.Notification) bool {
	if s.indexOf(n.ID) >= 0 {
		return false
	}
	n.SortActions()
	s.notifications = append([]entity.Notification{n}, s.notifications...)
	if !n.Read {
		s.unread++
	}
	return true
}

// Update overwrites an existing entry's fields, keeping its position.
// Returns false if the id is not present. The unread counter follows any
// read transition in either direction.
func (s *Store) Update(n entity.Notification) bool {
	i := s.indexOf(n.ID)
	if i < 0 {
		return false
	}
	wasRead := s.notifications[i].Read
	n.SortActions()
	s.notifications[i] = n
	if wasRead && !n.Read {
		s.unread++
	} else if !wasRead && n.Read {
		s.decrementUnread()
	}
	return true
}

// MarkRead flips one entry to read. Returns true only when the entry exists
// and was unread, so callers can tell whether the count moved.
func (s *Store) MarkRead(id string) bool {
	i := s.indexOf(id)
	if i < 0 || s.notifications[i].Read {
		return false
	}
	s.notifications[i].Read = true
	s.decrementUnread()
	return true
}

// MarkAllRead flips every entry to read and returns how many changed.
func (s *Store) MarkAllRead() int {
	changed := 0
	for i := range s.notifications {
		if !s.notifications[i].Read {
			s.notifications[i].Read = true
			changed++
		}
	}
	s.unread = 0
	return changed
}

// Remove deletes an entry by id. Reports whether it existed and whether it
// was unread.
func (s *Store) Remove(id string) (existed, wasUnread bool) {
	i := s.indexOf(id)
	if i < 0 {
		return false, false
	}
	wasUnread = !s.notifications[i].Read
	s.notifications = append(s.notifications[:i], s.notifications[i+1:]...)
	if wasUnread {
		s.decrementUnread()
	}
	return true, wasUnread
}

// UpsertAction inserts or replaces an action on its parent notification and
// re-sorts the siblings. Returns false when the parent is not present.
func (s *Store) UpsertAction(action entity.NotificationAction) bool {
	i := s.indexOf(action.NotificationID)
	if i < 0 {
		return false
	}
	n := &s.notifications[i]
	replaced := false
	for j := range n.Actions {
		if n.Actions[j].ID == action.ID {
			n.Actions[j] = action
			replaced = true
			break
		}
	}
	if !replaced {
		n.Actions = append(n.Actions, action)
	}
	n.SortActions()
	return true
}

// RemoveAction deletes an action from its parent notification. Returns false
// when the parent or the action is not present.
func (s *Store) RemoveAction(notificationID, actionID string) bool {
	i := s.indexOf(notificationID)
	if i < 0 {
		return false
	}
	n := &s.notifications[i]
	for j := range n.Actions {
		if n.Actions[j].ID == actionID {
			n.Actions = append(n.Actions[:j], n.Actions[j+1:]...)
			return true
		}
	}
	return false
}

func (s *Store) indexOf(id string) int {
	for i := range s.notifications {
		if s.notifications[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) decrementUnread() {
	if s.unread > 0 {
		s.unread--
	}
}
