package store

import (
	"time"

	"github.com/kbukum/easychat/auth/session"
)

// UserRecord is a row of t_user. The password hash never leaves the process.
type UserRecord struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"size:64;not null" json:"username"`
	Passwd    string    `gorm:"column:passwd;size:255;not null" json:"-"`
	Email     string    `gorm:"size:255;not null;uniqueIndex:idx_t_user_email" json:"email"`
	Avatar    string    `gorm:"size:255;not null;default:''" json:"avatar"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName implements gorm's tabler.
func (UserRecord) TableName() string { return "t_user" }

// Identity derives the public session identity of the user.
func (u *UserRecord) Identity() session.Identity {
	return session.Identity{ID: u.ID, Username: u.Username, Email: u.Email}
}

// ChatRecord is a row of t_chat together with its member ids.
type ChatRecord struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:128;not null" json:"name"`
	OwnerID   int64     `gorm:"not null;index:idx_t_chat_owner_id" json:"ownerId"`
	Members   []int64   `gorm:"-" json:"members"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName implements gorm's tabler.
func (ChatRecord) TableName() string { return "t_chat" }

// HasMember reports whether userID is in the chat.
func (c *ChatRecord) HasMember(userID int64) bool {
	for _, id := range c.Members {
		if id == userID {
			return true
		}
	}
	return false
}

// ChatMemberRecord is a row of t_chat_member.
type ChatMemberRecord struct {
	ChatID int64 `gorm:"primaryKey;autoIncrement:false"`
	UserID int64 `gorm:"primaryKey;autoIncrement:false;index:idx_t_chat_member_user_id"`
}

// TableName implements gorm's tabler.
func (ChatMemberRecord) TableName() string { return "t_chat_member" }

// MessageRecord is a row of t_message.
type MessageRecord struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	ChatID    int64     `gorm:"not null;index:idx_t_message_chat_id" json:"chatId"`
	SenderID  int64     `gorm:"not null" json:"senderId"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// TableName implements gorm's tabler.
func (MessageRecord) TableName() string { return "t_message" }

// Models lists the records for GORM auto-migration.
func Models() []interface{} {
	return []interface{}{&UserRecord{}, &ChatRecord{}, &ChatMemberRecord{}, &MessageRecord{}}
}
