package registry

import "time"

// RoomRecord is the durable registry row for a room. The unique index on
// Name is what makes concurrent registrations of the same name safe: the
// store, not the relay engine, enforces uniqueness.
type RoomRecord struct {
	ID        uint      `gorm:"primarykey" json:"-"`
	Name      string    `gorm:"uniqueIndex;size:100;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the table name for RoomRecord.
func (RoomRecord) TableName() string {
	return "rooms"
}

// MessageRecord is one entry in the append-only chat log. Rows are never
// updated or deleted.
type MessageRecord struct {
	ID        uint      `gorm:"primarykey" json:"-"`
	RoomName  string    `gorm:"index;size:100;not null" json:"room"`
	Username  string    `gorm:"size:100;not null" json:"username"`
	Content   string    `gorm:"size:5000;not null" json:"message"`
	CreatedAt time.Time `json:"timestamp"`
}

// TableName returns the table name for MessageRecord.
func (MessageRecord) TableName() string {
	return "messages"
}
