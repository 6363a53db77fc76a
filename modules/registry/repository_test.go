package registry

import (
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB creates an in-memory SQLite database for testing.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := db.AutoMigrate(&RoomRecord{}, &MessageRecord{}); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

func TestRepository_RegisterRoom(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	created, err := repo.RegisterRoom("lobby")
	if err != nil {
		t.Fatalf("RegisterRoom() unexpected error: %v", err)
	}
	if !created {
		t.Error("RegisterRoom() expected created=true for a new name")
	}

	rooms, err := repo.ListRooms()
	if err != nil {
		t.Fatalf("ListRooms() unexpected error: %v", err)
	}
	if len(rooms) != 1 || rooms[0].Name != "lobby" {
		t.Fatalf("ListRooms() = %v, want exactly [lobby]", rooms)
	}
}

func TestRepository_RegisterRoomIsIdempotent(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	if _, err := repo.RegisterRoom("lobby"); err != nil {
		t.Fatalf("first RegisterRoom() unexpected error: %v", err)
	}

	// Re-registering an existing name must not error and must not
	// duplicate the registry entry.
	created, err := repo.RegisterRoom("lobby")
	if err != nil {
		t.Fatalf("second RegisterRoom() unexpected error: %v", err)
	}
	if created {
		t.Error("second RegisterRoom() expected created=false")
	}

	rooms, err := repo.ListRooms()
	if err != nil {
		t.Fatalf("ListRooms() unexpected error: %v", err)
	}
	if len(rooms) != 1 {
		t.Fatalf("expected exactly 1 registry entry, got %d", len(rooms))
	}
}

func TestRepository_ListRoomsCreationOrder(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	for _, name := range []string{"zebra", "alpha", "mango"} {
		if _, err := repo.RegisterRoom(name); err != nil {
			t.Fatalf("RegisterRoom(%q) unexpected error: %v", name, err)
		}
	}

	rooms, err := repo.ListRooms()
	if err != nil {
		t.Fatalf("ListRooms() unexpected error: %v", err)
	}

	want := []string{"zebra", "alpha", "mango"}
	if len(rooms) != len(want) {
		t.Fatalf("expected %d rooms, got %d", len(want), len(rooms))
	}
	for i, name := range want {
		if rooms[i].Name != name {
			t.Errorf("rooms[%d].Name = %q, want %q", i, rooms[i].Name, name)
		}
	}
}

func TestRepository_HistoryOrdering(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	base := time.Now().Add(-time.Minute)
	texts := []string{"first", "second", "third", "fourth"}
	for i, text := range texts {
		if err := repo.AppendMessage("lobby", "alice", text, base.Add(time.Duration(i)*time.Second)); err != nil {
			t.Fatalf("AppendMessage(%q) unexpected error: %v", text, err)
		}
	}

	msgs, err := repo.History("lobby", 0)
	if err != nil {
		t.Fatalf("History() unexpected error: %v", err)
	}
	if len(msgs) != len(texts) {
		t.Fatalf("expected %d messages, got %d", len(texts), len(msgs))
	}
	for i, text := range texts {
		if msgs[i].Content != text {
			t.Errorf("msgs[%d].Content = %q, want %q", i, msgs[i].Content, text)
		}
	}
	for i := 1; i < len(msgs); i++ {
		if msgs[i].Timestamp.Before(msgs[i-1].Timestamp) {
			t.Errorf("timestamps not ascending at index %d", i)
		}
	}
}

func TestRepository_HistoryLimitKeepsMostRecent(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	base := time.Now().Add(-time.Minute)
	for i, text := range []string{"first", "second", "third", "fourth"} {
		if err := repo.AppendMessage("lobby", "alice", text, base.Add(time.Duration(i)*time.Second)); err != nil {
			t.Fatalf("AppendMessage(%q) unexpected error: %v", text, err)
		}
	}

	msgs, err := repo.History("lobby", 2)
	if err != nil {
		t.Fatalf("History() unexpected error: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Content != "third" || msgs[1].Content != "fourth" {
		t.Errorf("History(limit=2) = [%q, %q], want the two most recent in ascending order",
			msgs[0].Content, msgs[1].Content)
	}
}

func TestRepository_HistoryScopedByRoom(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	if err := repo.AppendMessage("lobby", "alice", "hi", time.Now()); err != nil {
		t.Fatalf("AppendMessage() unexpected error: %v", err)
	}
	if err := repo.AppendMessage("games", "bob", "yo", time.Now()); err != nil {
		t.Fatalf("AppendMessage() unexpected error: %v", err)
	}

	msgs, err := repo.History("lobby", 0)
	if err != nil {
		t.Fatalf("History() unexpected error: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Content != "hi" {
		t.Fatalf("History(lobby) = %v, want exactly the lobby message", msgs)
	}

	empty, err := repo.History("unknown", 0)
	if err != nil {
		t.Fatalf("History(unknown) unexpected error: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("History(unknown) expected no messages, got %d", len(empty))
	}
}
