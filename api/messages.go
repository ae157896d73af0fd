package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/chatstream/chat"
	apperrors "github.com/kbukum/chatstream/errors"
	"github.com/kbukum/chatstream/logger"
	"github.com/kbukum/chatstream/server"
	"github.com/kbukum/chatstream/validation"
)

// List limits for GET /api/messages.
const (
	DefaultListLimit = 10
	MaxListLimit     = 100
)

const publishTimeout = 5 * time.Second

// MessageStore is the persistence the message endpoints need.
type MessageStore interface {
	Create(ctx context.Context, in chat.NewMessage) (chat.Message, error)
	Recent(ctx context.Context, limit int) ([]chat.Message, error)
	Get(ctx context.Context, id string) (chat.Message, error)
	Update(ctx context.Context, id string, upd chat.MessageUpdate) (chat.Message, error)
}

// Publisher announces created and edited messages to live subscribers.
type Publisher interface {
	Publish(ctx context.Context, msgs ...chat.Message) error
}

// MessageHandler serves the /api/messages endpoints.
type MessageHandler struct {
	store     MessageStore
	publisher Publisher
	log       *logger.Logger
}

// NewMessageHandler creates the handler. publisher may be nil, in which
// case only polling clients see new messages.
func NewMessageHandler(store MessageStore, publisher Publisher, log *logger.Logger) *MessageHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &MessageHandler{store: store, publisher: publisher, log: log.WithComponent("api")}
}

// Register mounts the routes. limit guards the write routes and may be nil.
func (h *MessageHandler) Register(r gin.IRouter, limit gin.HandlerFunc) {
	g := r.Group("/api/messages")
	limited := func(handler gin.HandlerFunc) []gin.HandlerFunc {
		if limit == nil {
			return []gin.HandlerFunc{handler}
		}
		return []gin.HandlerFunc{limit, handler}
	}
	g.POST("", limited(h.Create)...)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.PATCH("/:id", limited(h.Update)...)
}

// Create stores a message and publishes it to the hub.
func (h *MessageHandler) Create(c *gin.Context) {
	var in chat.NewMessage
	if err := json.NewDecoder(c.Request.Body).Decode(&in); err != nil {
		server.RespondWithError(c, decodeError(err))
		return
	}
	if err := validation.Validate(in); err != nil {
		server.RespondWithError(c, err)
		return
	}

	ctx := c.Request.Context()
	msg, err := h.store.Create(ctx, in)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}

	h.publish(ctx, msg)
	h.log.WithContext(ctx).Debug("Message created", map[string]interface{}{"message_id": msg.ID})
	server.RespondCreated(c, msg)
}

// Update edits a message and publishes the new version. Polling clients
// see it again because its updatedAt moves forward.
func (h *MessageHandler) Update(c *gin.Context) {
	id := c.Param("id")
	if err := validation.New().RequiredUUID("id", id).Validate(); err != nil {
		server.RespondWithError(c, err)
		return
	}
	var upd chat.MessageUpdate
	if err := json.NewDecoder(c.Request.Body).Decode(&upd); err != nil {
		server.RespondWithError(c, decodeError(err))
		return
	}
	if upd.Empty() {
		server.RespondWithError(c, apperrors.InvalidInput("body", "nothing to update"))
		return
	}
	if err := validation.Validate(upd); err != nil {
		server.RespondWithError(c, err)
		return
	}

	ctx := c.Request.Context()
	msg, err := h.store.Update(ctx, id, upd)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}

	h.publish(ctx, msg)
	h.log.WithContext(ctx).Debug("Message updated", map[string]interface{}{"message_id": msg.ID})
	server.RespondOK(c, msg)
}

// List returns the newest messages, newest first.
func (h *MessageHandler) List(c *gin.Context) {
	v := validation.New()
	limit := v.Int("limit", c.Query("limit"), DefaultListLimit)
	v.Range("limit", limit, 1, MaxListLimit)
	if err := v.Validate(); err != nil {
		server.RespondWithError(c, err)
		return
	}

	msgs, err := h.store.Recent(c.Request.Context(), limit)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOKWithMeta(c, msgs, &server.Meta{Count: len(msgs), Limit: limit})
}

// Get returns one message.
func (h *MessageHandler) Get(c *gin.Context) {
	id := c.Param("id")
	if err := validation.New().RequiredUUID("id", id).Validate(); err != nil {
		server.RespondWithError(c, err)
		return
	}
	msg, err := h.store.Get(c.Request.Context(), id)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, msg)
}

// publish hands msg to the relay. The publisher logs its own failures; the
// stored message reaches polling clients either way.
func (h *MessageHandler) publish(ctx context.Context, msg chat.Message) {
	if h.publisher == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	_ = h.publisher.Publish(pubCtx, msg)
}

func decodeError(err error) error {
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr):
		return apperrors.InvalidInput("body", "request body too large")
	case errors.Is(err, io.EOF):
		return apperrors.InvalidInput("body", "request body is empty")
	default:
		return apperrors.InvalidInput("body", "malformed JSON: "+err.Error())
	}
}
