package registry

import (
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/rtc-relay-demo/domain/chat"
)

// Repository provides access to the durable room registry and chat log.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new registry repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// RegisterRoom inserts a registry entry for name unless one already
// exists. Duplicate names are success, not failure: created reports
// whether this call added the row.
func (r *Repository) RegisterRoom(name string) (bool, error) {
	rec := RoomRecord{Name: name, CreatedAt: time.Now()}
	result := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoNothing: true,
	}).Create(&rec)
	if result.Error != nil {
		return false, fmt.Errorf("failed to register room %q: %w", name, result.Error)
	}
	return result.RowsAffected > 0, nil
}

// ListRooms returns every registered room in creation order.
func (r *Repository) ListRooms() ([]chat.Room, error) {
	var recs []RoomRecord
	if err := r.db.Order("id asc").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	rooms := make([]chat.Room, 0, len(recs))
	for _, rec := range recs {
		rooms = append(rooms, chat.Room{Name: rec.Name, CreatedAt: rec.CreatedAt})
	}
	return rooms, nil
}

// AppendMessage appends a chat message to a room's history. A zero ts
// falls back to the current time.
func (r *Repository) AppendMessage(room, username, content string, ts time.Time) error {
	if ts.IsZero() {
		ts = time.Now()
	}
	rec := MessageRecord{
		RoomName:  room,
		Username:  username,
		Content:   content,
		CreatedAt: ts,
	}
	if err := r.db.Create(&rec).Error; err != nil {
		return fmt.Errorf("failed to append message for room %q: %w", room, err)
	}
	return nil
}

// History returns up to limit of the most recent messages for a room, in
// ascending timestamp order. limit <= 0 returns the full history.
func (r *Repository) History(room string, limit int) ([]chat.Message, error) {
	q := r.db.Where("room_name = ?", room).Order("created_at desc, id desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var recs []MessageRecord
	if err := q.Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to load history for room %q: %w", room, err)
	}
	// Query runs newest-first to honor the limit; reverse back to ascending.
	msgs := make([]chat.Message, len(recs))
	for i, rec := range recs {
		msgs[len(recs)-1-i] = chat.Message{
			Room:      rec.RoomName,
			Username:  rec.Username,
			Content:   rec.Content,
			Timestamp: rec.CreatedAt,
		}
	}
	return msgs, nil
}
