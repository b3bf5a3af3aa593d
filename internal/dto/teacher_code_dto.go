package dto

import "time"

// IssueCodeRequest creates an access code for a teacher.
type IssueCodeRequest struct {
	MaxUses   int        `json:"max_uses" validate:"gte=0"`
	ExpiresAt *time.Time `json:"expires_at"`
}

// RedeemCodeRequest redeems an access code.
type RedeemCodeRequest struct {
	Code string `json:"code" validate:"required,min=4,max=16"`
}

// TeacherOnboardingRequest completes teacher signup with an onboarding code.
type TeacherOnboardingRequest struct {
	Code string `json:"code" validate:"required,min=4,max=16"`
}

// InviteTeacherRequest asks the identity provider to invite a new teacher.
type InviteTeacherRequest struct {
	Email       string `json:"email" validate:"required,email"`
	RedirectURL string `json:"redirect_url" validate:"omitempty,url"`
}

// InviteTeacherResponse reports the invitation outcome and onboarding code.
type InviteTeacherResponse struct {
	Email        string `json:"email"`
	Code         string `json:"code"`
	InvitationID string `json:"invitation_id,omitempty"`
}

// TeacherCodeResponse is the public view of an access code.
type TeacherCodeResponse struct {
	ID        uint       `json:"id"`
	Code      string     `json:"code"`
	TeacherID string     `json:"teacher_id"`
	MaxUses   int        `json:"max_uses"`
	UseCount  int        `json:"use_count"`
	Unlimited bool       `json:"unlimited"`
	ExpiresAt *time.Time `json:"expires_at"`
	IsActive  bool       `json:"is_active"`
	CreatedAt time.Time  `json:"created_at"`
}

// RedeemCodeResponse reports a successful redemption.
type RedeemCodeResponse struct {
	TeacherID   string `json:"teacher_id"`
	TeacherName string `json:"teacher_name"`
	LinkActive  bool   `json:"link_active"`
}

// TeacherLinkResponse describes a student to teacher assignment.
type TeacherLinkResponse struct {
	ID             uint      `json:"id"`
	TeacherID      string    `json:"teacher_id"`
	TeacherName    string    `json:"teacher_name,omitempty"`
	StudentID      string    `json:"student_id"`
	StudentName    string    `json:"student_name,omitempty"`
	Active         bool      `json:"active"`
	GrantedViaCode bool      `json:"granted_via_code"`
	AssignedAt     time.Time `json:"assigned_at"`
}

// StudentAccessResponse summarises a student's access state.
type StudentAccessResponse struct {
	HasAccess bool                 `json:"has_access"`
	Link      *TeacherLinkResponse `json:"link,omitempty"`
}

// AssignTeacherRequest manually links a student to a teacher.
type AssignTeacherRequest struct {
	TeacherID string `json:"teacher_id" validate:"required,uuid"`
	StudentID string `json:"student_id" validate:"required,uuid"`
}
