package store

import (
	"testing"
	"time"

	"telecare/services/notification/internal/entity"

	"github.com/stretchr/testify/assert"
)

func makeNotification(id string, read bool) entity.Notification {
	return entity.Notification{
		ID:        id,
		UserID:    "user-1",
		Type:      "chat",
		Title:     "Title " + id,
		Body:      "Body " + id,
		Read:      read,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

func assertInvariant(t *testing.T, s *Store) {
	t.Helper()
	unread := 0
	for _, n := range s.Snapshot() {
		if !n.Read {
			unread++
		}
	}
	assert.Equal(t, unread, s.UnreadCount(), "unread count must match unread entries")
}

func TestReplace_RecomputesUnreadCount(t *testing.T) {
	s := New()
	s.Replace([]entity.Notification{
		makeNotification("a", false),
		makeNotification("b", true),
		makeNotification("c", false),
	})

	assert.Equal(t, 3, s.Len())
	assert.Equal(t, 2, s.UnreadCount())
	assertInvariant(t, s)
}

func TestPrepend_AddsToHead(t *testing.T) {
	s := New()
	s.Replace([]entity.Notification{makeNotification("old", true)})

	added := s.Prepend(makeNotification("new", false))

	assert.True(t, added)
	snapshot := s.Snapshot()
	assert.Equal(t, "new", snapshot[0].ID)
	assert.Equal(t, 1, s.UnreadCount())
	assertInvariant(t, s)
}

func TestPrepend_DuplicateIDSkipped(t *testing.T) {
	s := New()
	s.Prepend(makeNotification("a", false))

	added := s.Prepend(makeNotification("a", false))

	assert.False(t, added)
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, 1, s.UnreadCount())
	assertInvariant(t, s)
}

func TestMarkRead_Idempotent(t *testing.T) {
	s := New()
	s.Prepend(makeNotification("a", false))

	assert.True(t, s.MarkRead("a"))
	assert.Equal(t, 0, s.UnreadCount())

	// Second call must not double-decrement
	assert.False(t, s.MarkRead("a"))
	assert.Equal(t, 0, s.UnreadCount())

	n, ok := s.Get("a")
	assert.True(t, ok)
	assert.True(t, n.Read)
	assertInvariant(t, s)
}

func TestMarkRead_MissingID(t *testing.T) {
	s := New()
	assert.False(t, s.MarkRead("ghost"))
	assert.Equal(t, 0, s.UnreadCount())
}

func TestMarkAllRead(t *testing.T) {
	s := New()
	s.Replace([]entity.Notification{
		makeNotification("a", false),
		makeNotification("b", true),
		makeNotification("c", false),
		makeNotification("d", false),
		makeNotification("e", true),
	})

	changed := s.MarkAllRead()

	assert.Equal(t, 3, changed)
	assert.Equal(t, 0, s.UnreadCount())
	for _, n := range s.Snapshot() {
		assert.True(t, n.Read)
	}
	assertInvariant(t, s)
}

func TestRemove(t *testing.T) {
	s := New()
	s.Replace([]entity.Notification{
		makeNotification("a", false),
		makeNotification("b", true),
	})

	existed, wasUnread := s.Remove("a")
	assert.True(t, existed)
	assert.True(t, wasUnread)
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, 0, s.UnreadCount())

	existed, wasUnread = s.Remove("ghost")
	assert.False(t, existed)
	assert.False(t, wasUnread)
	assertInvariant(t, s)
}

func TestUpdate_ReadTransitions(t *testing.T) {
	s := New()
	s.Prepend(makeNotification("a", false))

	updated := makeNotification("a", true)
	assert.True(t, s.Update(updated))
	assert.Equal(t, 0, s.UnreadCount())

	// true -> false increments again
	updated.Read = false
	assert.True(t, s.Update(updated))
	assert.Equal(t, 1, s.UnreadCount())
	assertInvariant(t, s)
}

func TestUpdate_MissingID(t *testing.T) {
	s := New()
	assert.False(t, s.Update(makeNotification("ghost", false)))
}

func TestActions_SortStability(t *testing.T) {
	s := New()
	n := makeNotification("a", false)
	s.Prepend(n)

	// Insert out of order: 2, 0, 1
	for _, displayOrder := range []int{2, 0, 1} {
		ok := s.UpsertAction(entity.NotificationAction{
			ID:             "action-" + string(rune('0'+displayOrder)),
			NotificationID: "a",
			Label:          "Action",
			ActionType:     "review",
			DisplayOrder:   displayOrder,
		})
		assert.True(t, ok)
	}

	got, ok := s.Get("a")
	assert.True(t, ok)
	orders := make([]int, 0, len(got.Actions))
	for _, action := range got.Actions {
		orders = append(orders, action.DisplayOrder)
	}
	assert.Equal(t, []int{0, 1, 2}, orders)
}

func TestUpsertAction_UnknownParentIgnored(t *testing.T) {
	s := New()
	ok := s.UpsertAction(entity.NotificationAction{
		ID:             "action-1",
		NotificationID: "ghost",
		Label:          "Review",
		ActionType:     "review",
	})
	assert.False(t, ok)
}

func TestUpsertAction_ReplacesByID(t *testing.T) {
	s := New()
	s.Prepend(makeNotification("a", false))

	s.UpsertAction(entity.NotificationAction{ID: "x", NotificationID: "a", Label: "Old", ActionType: "review"})
	s.UpsertAction(entity.NotificationAction{ID: "x", NotificationID: "a", Label: "New", ActionType: "review"})

	got, _ := s.Get("a")
	assert.Len(t, got.Actions, 1)
	assert.Equal(t, "New", got.Actions[0].Label)
}

func TestRemoveAction(t *testing.T) {
	s := New()
	s.Prepend(makeNotification("a", false))
	s.UpsertAction(entity.NotificationAction{ID: "x", NotificationID: "a", Label: "Review", ActionType: "review"})

	assert.True(t, s.RemoveAction("a", "x"))
	assert.False(t, s.RemoveAction("a", "x"))
	assert.False(t, s.RemoveAction("ghost", "x"))
}

func TestClear(t *testing.T) {
	s := New()
	s.Replace([]entity.Notification{makeNotification("a", false)})

	s.Clear()

	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 0, s.UnreadCount())
}

func TestSetUnreadCount_FloorsAtZero(t *testing.T) {
	s := New()
	s.SetUnreadCount(-5)
	assert.Equal(t, 0, s.UnreadCount())

	s.SetUnreadCount(3)
	assert.Equal(t, 3, s.UnreadCount())
}

func TestSnapshot_IsACopy(t *testing.T) {
	s := New()
	n := makeNotification("a", false)
	n.Actions = []entity.NotificationAction{{ID: "x", NotificationID: "a", Label: "Review", ActionType: "review"}}
	s.Prepend(n)

	snapshot := s.Snapshot()
	snapshot[0].Title = "mutated"
	snapshot[0].Actions[0].Label = "mutated"

	got, _ := s.Get("a")
	assert.Equal(t, "Title a", got.Title)
	assert.Equal(t, "Review", got.Actions[0].Label)
}
