package store

import (
	"time"

	"github.com/kbukum/chatstream/chat"
)

// messageRecord is the persisted form of a chat message.
type messageRecord struct {
	ID        string    `gorm:"primaryKey;size:36"`
	Sender    string    `gorm:"size:128;not null"`
	Receiver  string    `gorm:"size:128;not null"`
	Content   string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"index;not null"`
	UpdatedAt time.Time `gorm:"index;not null"`
}

func (messageRecord) TableName() string { return "messages" }

func (r messageRecord) toMessage() chat.Message {
	return chat.Message{
		ID:        r.ID,
		Sender:    chat.Ref(r.Sender),
		Receiver:  chat.Ref(r.Receiver),
		Content:   r.Content,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

var columns = map[chat.Field]string{
	chat.FieldUpdatedAt: "updated_at",
	chat.FieldCreatedAt: "created_at",
}

var operators = map[chat.Operator]string{
	chat.OpGreaterThan:      ">",
	chat.OpGreaterThanEqual: ">=",
	chat.OpLessThan:         "<",
}

var orders = map[string]string{
	chat.SortUpdatedAtDesc: "updated_at DESC, id DESC",
	chat.SortUpdatedAtAsc:  "updated_at ASC, id ASC",
	chat.SortCreatedAtDesc: "created_at DESC, id DESC",
}
