package chat

// SignUpForm is the body of POST /api/signup.
type SignUpForm struct {
	Username string `json:"username" validate:"required,max=64"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Passwd   string `json:"passwd" validate:"required,min=6,max=128"`
	Avatar   string `json:"avatar" validate:"max=255"`
}

// SignInForm is the body of POST /api/signin.
type SignInForm struct {
	Email  string `json:"email" validate:"required,email"`
	Passwd string `json:"passwd" validate:"required"`
}

// TokenResponse carries a freshly issued token.
type TokenResponse struct {
	Token string `json:"token"`
}

// CreateChatForm is the body of POST /api/chat. The caller becomes the owner
// and is added to Members.
type CreateChatForm struct {
	Name    string  `json:"name" validate:"required,max=128"`
	Members []int64 `json:"members" validate:"max=200,dive,gt=0"`
}

// UpdateChatForm is the body of PATCH /api/chat/:id. Omitted fields are left
// unchanged.
type UpdateChatForm struct {
	Name    *string `json:"name" validate:"omitempty,min=1,max=128"`
	Members []int64 `json:"members" validate:"omitempty,max=200,dive,gt=0"`
}

// SendMessageForm is the body of POST /api/chat/:id.
type SendMessageForm struct {
	Content string `json:"content" validate:"required,max=4096"`
}
