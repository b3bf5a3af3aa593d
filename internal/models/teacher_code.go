package models

import "time"

// UnlimitedUses is the single sentinel meaning a code has no use limit.
// Negative values are rejected on write.
const UnlimitedUses = 0

// TeacherCode is a redeemable enrollment credential owned by a teacher.
type TeacherCode struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	Code      string     `gorm:"size:16;uniqueIndex;not null" json:"code"`
	TeacherID string     `gorm:"type:uuid;index;not null" json:"teacher_id"`
	MaxUses   int        `gorm:"not null;default:1" json:"max_uses"`
	UseCount  int        `gorm:"not null;default:0" json:"use_count"`
	ExpiresAt *time.Time `json:"expires_at"`
	IsActive  bool       `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time  `json:"created_at"`
	Teacher   *User      `gorm:"foreignKey:TeacherID" json:"teacher,omitempty"`
}

// IsExpired reports whether the code has passed its expiry.
func (c TeacherCode) IsExpired(reference time.Time) bool {
	return c.ExpiresAt != nil && reference.After(*c.ExpiresAt)
}

// IsExhausted reports whether a limited code has consumed all its uses.
func (c TeacherCode) IsExhausted() bool {
	return c.MaxUses != UnlimitedUses && c.UseCount >= c.MaxUses
}

// TeacherCodeUse records a single redemption, enforcing one redemption per student per code.
type TeacherCodeUse struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CodeID    uint      `gorm:"index;not null;uniqueIndex:idx_code_use" json:"code_id"`
	StudentID string    `gorm:"type:uuid;not null;uniqueIndex:idx_code_use" json:"student_id"`
	UsedAt    time.Time `gorm:"autoCreateTime" json:"used_at"`
}

// TeacherLink is the single edge type between a teacher and a student. The
// original system carried two parallel schemas for this relationship; they
// collapse here into one record with a soft-revocation flag.
type TeacherLink struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	TeacherID      string    `gorm:"type:uuid;index:idx_teacher_student;not null" json:"teacher_id"`
	StudentID      string    `gorm:"type:uuid;index:idx_teacher_student;not null" json:"student_id"`
	Active         bool      `gorm:"not null;default:true" json:"active"`
	GrantedViaCode bool      `gorm:"not null;default:false" json:"granted_via_code"`
	AssignedBy     *string   `gorm:"type:uuid" json:"assigned_by"`
	AssignedAt     time.Time `gorm:"autoCreateTime" json:"assigned_at"`
	Teacher        *User     `gorm:"foreignKey:TeacherID" json:"teacher,omitempty"`
	Student        *User     `gorm:"foreignKey:StudentID" json:"student,omitempty"`
}
