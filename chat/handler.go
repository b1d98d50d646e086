package chat

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/easychat/auth/authctx"
	apperrors "github.com/kbukum/easychat/errors"
	"github.com/kbukum/easychat/logger"
	"github.com/kbukum/easychat/notify"
	"github.com/kbukum/easychat/server"
	"github.com/kbukum/easychat/store"
	"github.com/kbukum/easychat/validation"
)

// ChatRepository is the chat persistence the handlers need.
type ChatRepository interface {
	ListChats(ctx context.Context, userID int64) ([]store.ChatRecord, error)
	CreateChat(ctx context.Context, ownerID int64, fields store.CreateChatFields) (*store.ChatRecord, error)
	UpdateChat(ctx context.Context, chatID, userID int64, fields store.UpdateChatFields) (*store.ChatRecord, error)
	DeleteChat(ctx context.Context, chatID, userID int64) (*store.ChatRecord, error)
	Members(ctx context.Context, chatID int64) ([]int64, error)
	CreateMessage(ctx context.Context, chatID, senderID int64, content string) (*store.MessageRecord, error)
	ListMessages(ctx context.Context, chatID, userID, beforeID int64, limit int) ([]store.MessageRecord, error)
}

var _ ChatRepository = (*store.ChatStore)(nil)

// Handler serves the chat HTTP API.
type Handler struct {
	auth   *AuthService
	chats  ChatRepository
	events notify.Publisher
	log    *logger.Logger
}

// NewHandler creates a Handler. A nil events publisher discards events.
func NewHandler(authService *AuthService, chats ChatRepository, events notify.Publisher, log *logger.Logger) *Handler {
	if events == nil {
		events = notify.Discard
	}
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Handler{
		auth:   authService,
		chats:  chats,
		events: events,
		log:    log.WithComponent("chat"),
	}
}

// Register mounts the business routes on r.
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/", h.Index)

	api := r.Group("/api")
	{
		api.POST("/signup", h.SignUp)
		api.POST("/signin", h.SignIn)

		api.GET("/chat", h.ListChats)
		api.POST("/chat", h.CreateChat)
		api.PATCH("/chat/:id", h.UpdateChat)
		api.DELETE("/chat/:id", h.DeleteChat)
		api.POST("/chat/:id", h.SendMessage)
		api.GET("/chat/:id/message", h.ListMessages)
	}
}

// Index answers the root path.
func (h *Handler) Index(c *gin.Context) {
	c.String(http.StatusOK, "index")
}

// SignUp registers a user and responds 201 with a token.
func (h *Handler) SignUp(c *gin.Context) {
	var form SignUpForm
	if !bind(c, &form) {
		return
	}
	token, err := h.auth.SignUp(c.Request.Context(), form)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondCreated(c, TokenResponse{Token: token})
}

// SignIn exchanges credentials for a token.
func (h *Handler) SignIn(c *gin.Context) {
	var form SignInForm
	if !bind(c, &form) {
		return
	}
	token, err := h.auth.SignIn(c.Request.Context(), form)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, TokenResponse{Token: token})
}

// ListChats returns the chats the caller belongs to.
func (h *Handler) ListChats(c *gin.Context) {
	ctx := c.Request.Context()
	identity, err := authctx.RequireIdentity(ctx)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	chats, err := h.chats.ListChats(ctx, identity.ID)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, chats)
}

// CreateChat creates a chat owned by the caller.
func (h *Handler) CreateChat(c *gin.Context) {
	ctx := c.Request.Context()
	identity, err := authctx.RequireIdentity(ctx)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	var form CreateChatForm
	if !bind(c, &form) {
		return
	}
	if err := validation.Validate(form); err != nil {
		server.RespondWithError(c, err)
		return
	}

	chat, err := h.chats.CreateChat(ctx, identity.ID, store.CreateChatFields{
		Name:    form.Name,
		Members: form.Members,
	})
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	h.publish(ctx, notify.ChatUpdated(chat.Members, chat))
	server.RespondCreated(c, chat)
}

// UpdateChat renames a chat or replaces its members. Owner only.
func (h *Handler) UpdateChat(c *gin.Context) {
	ctx := c.Request.Context()
	identity, err := authctx.RequireIdentity(ctx)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	chatID, err := validation.ParseID("id", c.Param("id"))
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	var form UpdateChatForm
	if !bind(c, &form) {
		return
	}
	if err := validation.Validate(form); err != nil {
		server.RespondWithError(c, err)
		return
	}
	if form.Name == nil && form.Members == nil {
		server.RespondWithError(c, apperrors.Validation("Nothing to update: provide name or members."))
		return
	}

	before, err := h.chats.Members(ctx, chatID)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	chat, err := h.chats.UpdateChat(ctx, chatID, identity.ID, store.UpdateChatFields{
		Name:    form.Name,
		Members: form.Members,
	})
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	h.publish(ctx, notify.ChatUpdated(union(before, chat.Members), chat))
	server.RespondOK(c, chat)
}

// DeleteChat removes a chat with its messages. Owner only.
func (h *Handler) DeleteChat(c *gin.Context) {
	ctx := c.Request.Context()
	identity, err := authctx.RequireIdentity(ctx)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	chatID, err := validation.ParseID("id", c.Param("id"))
	if err != nil {
		server.RespondWithError(c, err)
		return
	}

	chat, err := h.chats.DeleteChat(ctx, chatID, identity.ID)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	h.publish(ctx, notify.ChatDeleted(chat.ID, chat.Members))
	server.RespondNoContent(c)
}

// SendMessage posts a message to a chat the caller belongs to.
func (h *Handler) SendMessage(c *gin.Context) {
	ctx := c.Request.Context()
	identity, err := authctx.RequireIdentity(ctx)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	chatID, err := validation.ParseID("id", c.Param("id"))
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	var form SendMessageForm
	if !bind(c, &form) {
		return
	}
	if err := validation.Validate(form); err != nil {
		server.RespondWithError(c, err)
		return
	}

	msg, err := h.chats.CreateMessage(ctx, chatID, identity.ID, form.Content)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	members, err := h.chats.Members(ctx, chatID)
	if err != nil {
		h.log.WithContext(ctx).Warn("Could not load chat members for notification", map[string]interface{}{
			logger.FieldChatID: chatID,
			logger.FieldError:  err.Error(),
		})
	} else {
		h.publish(ctx, notify.MessageCreated(chatID, members, msg))
	}
	server.RespondCreated(c, msg)
}

// ListMessages pages through a chat's messages, newest first. The "before"
// query parameter is an exclusive message id cursor; "limit" is clamped to
// [1, store.MaxMessageLimit].
func (h *Handler) ListMessages(c *gin.Context) {
	ctx := c.Request.Context()
	identity, err := authctx.RequireIdentity(ctx)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}

	v := validation.New()
	chatID := v.ID("id", c.Param("id"))
	before := v.OptionalInt("before", c.Query("before"), 0)
	limit := v.OptionalInt("limit", c.Query("limit"), store.DefaultMessageLimit)
	v.Custom(before >= 0, "before", "must not be negative")
	if appErr := v.Validate(); appErr != nil {
		server.RespondWithError(c, appErr)
		return
	}

	messages, err := h.chats.ListMessages(ctx, chatID, identity.ID, int64(before), limit)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, messages)
}

func (h *Handler) publish(ctx context.Context, evt notify.Event) {
	if err := h.events.Publish(ctx, evt); err != nil {
		h.log.WithContext(ctx).Warn("Dropping chat event", map[string]interface{}{
			"event":           evt.Type,
			logger.FieldError: err.Error(),
		})
	}
}

// bind decodes the JSON body into form, responding VALIDATION_ERROR when it
// cannot be decoded.
func bind(c *gin.Context, form any) bool {
	if err := c.ShouldBindJSON(form); err != nil {
		server.RespondWithError(c, apperrors.Validation("Request body must be a valid JSON object.").WithCause(err))
		return false
	}
	return true
}

// union merges two ascending id lists.
func union(a, b []int64) []int64 {
	out := make([]int64, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) || j < len(b) {
		switch {
		case j == len(b) || (i < len(a) && a[i] < b[j]):
			out = append(out, a[i])
			i++
		case i == len(a) || b[j] < a[i]:
			out = append(out, b[j])
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	return out
}
