package app

import (
	"context"

	"github.com/kbukum/chatstream/chat"
	apperrors "github.com/kbukum/chatstream/errors"
	"github.com/kbukum/chatstream/store"
)

// storeRef resolves the store at call time. Handlers and pollers are built
// before the store component connects; requests only arrive once it has.
type storeRef struct {
	c *store.Component
}

func (r storeRef) get() (*store.Store, error) {
	s := r.c.Store()
	if s == nil {
		return nil, apperrors.ServiceUnavailable("store")
	}
	return s, nil
}

func (r storeRef) Find(ctx context.Context, q chat.Query) ([]chat.Message, error) {
	s, err := r.get()
	if err != nil {
		return nil, err
	}
	return s.Find(ctx, q)
}

func (r storeRef) Create(ctx context.Context, in chat.NewMessage) (chat.Message, error) {
	s, err := r.get()
	if err != nil {
		return chat.Message{}, err
	}
	return s.Create(ctx, in)
}

func (r storeRef) Recent(ctx context.Context, limit int) ([]chat.Message, error) {
	s, err := r.get()
	if err != nil {
		return nil, err
	}
	return s.Recent(ctx, limit)
}

func (r storeRef) Get(ctx context.Context, id string) (chat.Message, error) {
	s, err := r.get()
	if err != nil {
		return chat.Message{}, err
	}
	return s.Get(ctx, id)
}

func (r storeRef) Update(ctx context.Context, id string, upd chat.MessageUpdate) (chat.Message, error) {
	s, err := r.get()
	if err != nil {
		return chat.Message{}, err
	}
	return s.Update(ctx, id, upd)
}
