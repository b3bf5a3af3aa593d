package dto

import "time"

// CheckUserRequest asks whether an account exists for an email address.
type CheckUserRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// CheckUserResponse reports account existence and verification state.
type CheckUserResponse struct {
	Exists     bool `json:"exists"`
	IsVerified bool `json:"is_verified"`
}

// RegisterRequest creates a local credentials account.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"omitempty,min=1,max=255"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

// LoginRequest authenticates with local credentials.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// VerifyEmailRequest confirms an account with the emailed code.
type VerifyEmailRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,len=6"`
}

// RefreshRequest exchanges a refresh token for a new token pair.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// ExchangeRequest swaps a provider token for a local token pair.
type ExchangeRequest struct {
	Token string `json:"token" validate:"required"`
}

// TokenPairResponse carries freshly issued credentials.
type TokenPairResponse struct {
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token"`
	TokenType    string          `json:"token_type"`
	ExpiresIn    int64           `json:"expires_in"`
	User         ProfileResponse `json:"user"`
}

// ProfileResponse is the public view of a user account.
type ProfileResponse struct {
	ID         string     `json:"id"`
	Email      string     `json:"email"`
	Name       string     `json:"name"`
	AvatarURL  string     `json:"avatar_url"`
	Role       string     `json:"role"`
	Roles      []string   `json:"roles"`
	IsActive   bool       `json:"is_active"`
	IsVerified bool       `json:"is_verified"`
	LastLogin  *time.Time `json:"last_login"`
	CreatedAt  time.Time  `json:"created_at"`
}

// UpdateProfileRequest patches mutable profile fields.
type UpdateProfileRequest struct {
	Name      *string `json:"name" validate:"omitempty,min=1,max=255"`
	AvatarURL *string `json:"avatar_url" validate:"omitempty,url"`
}
