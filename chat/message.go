package chat

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Message is a single chat message as read from the store.
type Message struct {
	ID        string    `json:"id"`
	Sender    Ref       `json:"sender"`
	Receiver  Ref       `json:"receiver"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewMessage is the input accepted by the create-message operation.
type NewMessage struct {
	Sender   Ref    `json:"sender" validate:"required,notblank,max=128"`
	Receiver Ref    `json:"receiver" validate:"required,notblank,max=128"`
	Content  string `json:"content" validate:"required,notblank,maxrunes=4096"`
}

// MessageUpdate is the input accepted by the edit-message operation. Nil
// fields are left unchanged.
type MessageUpdate struct {
	Sender   *Ref    `json:"sender,omitempty" validate:"omitnil,notblank,max=128"`
	Receiver *Ref    `json:"receiver,omitempty" validate:"omitnil,notblank,max=128"`
	Content  *string `json:"content,omitempty" validate:"omitnil,notblank,maxrunes=4096"`
}

// Empty reports whether u changes nothing.
func (u MessageUpdate) Empty() bool {
	return u.Sender == nil && u.Receiver == nil && u.Content == nil
}

// Ref is an opaque user reference. Clients may send it as a JSON string or
// a JSON number; it is always encoded as a string.
type Ref string

// UnmarshalJSON accepts both `"42"` and `42`.
func (r *Ref) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*r = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = Ref(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("chat: reference must be a string or number: %w", err)
	}
	if _, err := strconv.ParseFloat(n.String(), 64); err != nil {
		return fmt.Errorf("chat: invalid numeric reference %q", n.String())
	}
	*r = Ref(n.String())
	return nil
}

// String returns the reference as a plain string.
func (r Ref) String() string { return string(r) }

// Newest returns the message with the greatest UpdatedAt, or false for an
// empty batch.
func Newest(msgs []Message) (Message, bool) {
	if len(msgs) == 0 {
		return Message{}, false
	}
	newest := msgs[0]
	for _, m := range msgs[1:] {
		if m.UpdatedAt.After(newest.UpdatedAt) {
			newest = m
		}
	}
	return newest, true
}
