package dto

import "time"

// UserListFilter narrows the admin user listing.
type UserListFilter struct {
	Page     int    `query:"page"`
	PageSize int    `query:"page_size"`
	Role     string `query:"role"`
	Search   string `query:"search"`
	Active   *bool  `query:"active"`
}

// AdminUserResponse is the admin view of an account.
type AdminUserResponse struct {
	ID         string     `json:"id"`
	Email      string     `json:"email"`
	Name       string     `json:"name"`
	Roles      []string   `json:"roles"`
	IsActive   bool       `json:"is_active"`
	IsVerified bool       `json:"is_verified"`
	ExternalID *string    `json:"external_id"`
	LastLogin  *time.Time `json:"last_login"`
	CreatedAt  time.Time  `json:"created_at"`
}

// UserListResponse is a paginated set of accounts.
type UserListResponse struct {
	Users    []AdminUserResponse `json:"users"`
	Total    int64               `json:"total"`
	Page     int                 `json:"page"`
	PageSize int                 `json:"page_size"`
}

// RoleChangeRequest assigns or removes a role from a user.
type RoleChangeRequest struct {
	Role string `json:"role" validate:"required,oneof=student teacher admin"`
}

// RoleResponse describes a role and its permissions.
type RoleResponse struct {
	ID          uint     `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	IsDefault   bool     `json:"is_default"`
	Permissions []string `json:"permissions"`
}

// UploadResponse reports where an uploaded asset landed.
type UploadResponse struct {
	URL      string `json:"url"`
	PublicID string `json:"public_id"`
	MimeType string `json:"mime_type"`
	Size     int64  `json:"size"`
}
