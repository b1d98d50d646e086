package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"gorm.io/gorm"

	"github.com/kbukum/easychat/database"
	apperrors "github.com/kbukum/easychat/errors"
)

// Message page bounds.
const (
	DefaultMessageLimit = 50
	MaxMessageLimit     = 100
)

// CreateChatFields describe a new chat. The owner is always a member.
type CreateChatFields struct {
	Name    string
	Members []int64
}

// UpdateChatFields describe a partial chat update. Nil fields are left as
// they are; Members replaces the member list.
type UpdateChatFields struct {
	Name    *string
	Members []int64
}

// ChatStore reads and writes chats, their members and their messages.
type ChatStore struct {
	src Source
}

// NewChatStore creates a ChatStore over src.
func NewChatStore(src Source) *ChatStore {
	return &ChatStore{src: src}
}

// ListChats returns the chats userID belongs to, oldest first.
func (s *ChatStore) ListChats(ctx context.Context, userID int64) ([]ChatRecord, error) {
	_, db, err := conn(ctx, s.src)
	if err != nil {
		return nil, err
	}

	memberOf := db.Model(&ChatMemberRecord{}).Select("chat_id").Where("user_id = ?", userID)
	chats := []ChatRecord{}
	if err := db.Where("id IN (?)", memberOf).Order("id").Find(&chats).Error; err != nil {
		return nil, database.FromDatabase(err, "chat")
	}
	if err := loadMembers(db, chats); err != nil {
		return nil, database.FromDatabase(err, "chat")
	}
	return chats, nil
}

// CreateChat creates a chat owned by ownerID. Every member must be an
// existing user.
func (s *ChatStore) CreateChat(ctx context.Context, ownerID int64, fields CreateChatFields) (*ChatRecord, error) {
	db, _, err := conn(ctx, s.src)
	if err != nil {
		return nil, err
	}

	chat := ChatRecord{Name: fields.Name, OwnerID: ownerID}
	members := normalizeMembers(ownerID, fields.Members)

	err = db.Transaction(ctx, func(tx *gorm.DB) error {
		if err := checkUsersExist(tx, members); err != nil {
			return err
		}
		if err := tx.Create(&chat).Error; err != nil {
			return err
		}
		return replaceMembers(tx, chat.ID, members)
	})
	if err != nil {
		return nil, database.FromDatabase(err, "chat")
	}
	chat.Members = members
	return &chat, nil
}

// UpdateChat renames a chat or replaces its members. Only the owner may
// update a chat.
func (s *ChatStore) UpdateChat(ctx context.Context, chatID, userID int64, fields UpdateChatFields) (*ChatRecord, error) {
	db, _, err := conn(ctx, s.src)
	if err != nil {
		return nil, err
	}

	var chat *ChatRecord
	err = db.Transaction(ctx, func(tx *gorm.DB) error {
		c, err := ownedChat(tx, chatID, userID)
		if err != nil {
			return err
		}
		if fields.Name != nil {
			c.Name = *fields.Name
		}
		if fields.Members != nil {
			c.Members = normalizeMembers(c.OwnerID, fields.Members)
			if err := checkUsersExist(tx, c.Members); err != nil {
				return err
			}
			if err := replaceMembers(tx, c.ID, c.Members); err != nil {
				return err
			}
		}
		if err := tx.Save(c).Error; err != nil {
			return err
		}
		chat = c
		return nil
	})
	if err != nil {
		return nil, database.FromDatabase(err, "chat")
	}
	return chat, nil
}

// DeleteChat removes a chat with its members and messages and returns the
// chat as it was. Only the owner may delete a chat.
func (s *ChatStore) DeleteChat(ctx context.Context, chatID, userID int64) (*ChatRecord, error) {
	db, _, err := conn(ctx, s.src)
	if err != nil {
		return nil, err
	}

	var chat *ChatRecord
	err = db.Transaction(ctx, func(tx *gorm.DB) error {
		c, err := ownedChat(tx, chatID, userID)
		if err != nil {
			return err
		}
		if err := tx.Where("chat_id = ?", chatID).Delete(&MessageRecord{}).Error; err != nil {
			return err
		}
		if err := tx.Where("chat_id = ?", chatID).Delete(&ChatMemberRecord{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&ChatRecord{}, chatID).Error; err != nil {
			return err
		}
		chat = c
		return nil
	})
	if err != nil {
		return nil, database.FromDatabase(err, "chat")
	}
	return chat, nil
}

// Members returns the member ids of a chat in ascending order.
func (s *ChatStore) Members(ctx context.Context, chatID int64) ([]int64, error) {
	_, db, err := conn(ctx, s.src)
	if err != nil {
		return nil, err
	}
	var ids []int64
	err = db.Model(&ChatMemberRecord{}).Where("chat_id = ?", chatID).Order("user_id").Pluck("user_id", &ids).Error
	if err != nil {
		return nil, database.FromDatabase(err, "chat")
	}
	return ids, nil
}

// CreateMessage posts content to a chat. The sender must be a member.
func (s *ChatStore) CreateMessage(ctx context.Context, chatID, senderID int64, content string) (*MessageRecord, error) {
	_, db, err := conn(ctx, s.src)
	if err != nil {
		return nil, err
	}
	if err := requireMember(db, chatID, senderID); err != nil {
		return nil, database.FromDatabase(err, "chat")
	}

	msg := MessageRecord{ChatID: chatID, SenderID: senderID, Content: content}
	if err := db.Create(&msg).Error; err != nil {
		return nil, database.FromDatabase(err, "message")
	}
	return &msg, nil
}

// ListMessages returns up to limit messages of a chat, newest first. A
// positive beforeID pages backwards from that message. The limit is clamped
// to [1, MaxMessageLimit]; zero or less means DefaultMessageLimit.
func (s *ChatStore) ListMessages(ctx context.Context, chatID, userID, beforeID int64, limit int) ([]MessageRecord, error) {
	_, db, err := conn(ctx, s.src)
	if err != nil {
		return nil, err
	}
	if err := requireMember(db, chatID, userID); err != nil {
		return nil, database.FromDatabase(err, "chat")
	}

	q := db.Where("chat_id = ?", chatID)
	if beforeID > 0 {
		q = q.Where("id < ?", beforeID)
	}
	messages := []MessageRecord{}
	if err := q.Order("id DESC").Limit(ClampLimit(limit)).Find(&messages).Error; err != nil {
		return nil, database.FromDatabase(err, "message")
	}
	return messages, nil
}

// ClampLimit applies the message page bounds.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultMessageLimit
	case limit > MaxMessageLimit:
		return MaxMessageLimit
	default:
		return limit
	}
}

func findChat(db *gorm.DB, chatID int64) (*ChatRecord, error) {
	var chat ChatRecord
	if err := db.Take(&chat, chatID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("chat", strconv.FormatInt(chatID, 10))
		}
		return nil, err
	}
	return &chat, nil
}

func ownedChat(tx *gorm.DB, chatID, userID int64) (*ChatRecord, error) {
	chat, err := findChat(tx, chatID)
	if err != nil {
		return nil, err
	}
	if chat.OwnerID != userID {
		return nil, apperrors.Forbidden("Only the chat owner can change this chat.")
	}
	chats := []ChatRecord{*chat}
	if err := loadMembers(tx, chats); err != nil {
		return nil, err
	}
	return &chats[0], nil
}

func requireMember(db *gorm.DB, chatID, userID int64) error {
	if _, err := findChat(db, chatID); err != nil {
		return err
	}
	var n int64
	err := db.Model(&ChatMemberRecord{}).
		Where("chat_id = ? AND user_id = ?", chatID, userID).
		Count(&n).Error
	if err != nil {
		return err
	}
	if n == 0 {
		return apperrors.Forbidden("You are not a member of this chat.")
	}
	return nil
}

func checkUsersExist(tx *gorm.DB, ids []int64) error {
	n, err := countUsers(tx, ids)
	if err != nil {
		return err
	}
	if n != int64(len(ids)) {
		return apperrors.Validation("Chat members must be existing users.")
	}
	return nil
}

func replaceMembers(tx *gorm.DB, chatID int64, members []int64) error {
	if err := tx.Where("chat_id = ?", chatID).Delete(&ChatMemberRecord{}).Error; err != nil {
		return fmt.Errorf("clear members: %w", err)
	}
	rows := make([]ChatMemberRecord, len(members))
	for i, id := range members {
		rows[i] = ChatMemberRecord{ChatID: chatID, UserID: id}
	}
	return tx.Create(&rows).Error
}

// loadMembers fills Members for every chat with one query.
func loadMembers(db *gorm.DB, chats []ChatRecord) error {
	if len(chats) == 0 {
		return nil
	}
	ids := make([]int64, len(chats))
	index := make(map[int64]int, len(chats))
	for i := range chats {
		ids[i] = chats[i].ID
		index[chats[i].ID] = i
		chats[i].Members = []int64{}
	}

	var rows []ChatMemberRecord
	if err := db.Where("chat_id IN ?", ids).Order("user_id").Find(&rows).Error; err != nil {
		return err
	}
	for _, r := range rows {
		i := index[r.ChatID]
		chats[i].Members = append(chats[i].Members, r.UserID)
	}
	return nil
}

// normalizeMembers adds the owner and removes duplicates, in ascending order.
func normalizeMembers(ownerID int64, members []int64) []int64 {
	seen := map[int64]bool{ownerID: true}
	out := []int64{ownerID}
	for _, id := range members {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
