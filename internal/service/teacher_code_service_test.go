package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/regod-app/regod-api/internal/dto"
	"github.com/regod-app/regod-api/internal/models"
	"github.com/regod-app/regod-api/internal/rbac"
	"github.com/regod-app/regod-api/internal/repository"
)

func newCodeService(t *testing.T) (TeacherCodeService, *gorm.DB) {
	t.Helper()

	db := newTestDB(t)
	svc := NewTeacherCodeService(
		repository.NewTeacherCodeRepository(db),
		repository.NewTeacherLinkRepository(db),
		repository.NewUserRepository(db),
		repository.NewRoleRepository(db),
		testValidator(),
		testLogger(),
	)
	return svc, db
}

func createUser(t *testing.T, db *gorm.DB, name, email string) models.User {
	t.Helper()

	addr := email
	user := models.User{Email: &addr, Name: name, IsActive: true, IsVerified: true}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func TestIssueRejectsNegativeMaxUses(t *testing.T) {
	svc, db := newCodeService(t)
	teacher := createUser(t, db, "Teach", "teach@example.com")

	_, err := svc.Issue(context.Background(), teacher.ID, dto.IssueCodeRequest{MaxUses: -1})
	require.Error(t, err)
}

func TestIssueAndRedeemLinksStudent(t *testing.T) {
	svc, db := newCodeService(t)
	teacher := createUser(t, db, "Teach", "teach@example.com")
	student := createUser(t, db, "Student", "student@example.com")

	code, err := svc.Issue(context.Background(), teacher.ID, dto.IssueCodeRequest{MaxUses: 5})
	require.NoError(t, err)
	require.Len(t, code.Code, 8)
	require.False(t, code.Unlimited)

	result, err := svc.RedeemAccessCode(context.Background(), student.ID, code.Code)
	require.NoError(t, err)
	require.Equal(t, teacher.ID, result.TeacherID)
	require.Equal(t, "Teach", result.TeacherName)
	require.True(t, result.LinkActive)

	linked, err := svc.CheckAssignment(context.Background(), teacher.ID, student.ID)
	require.NoError(t, err)
	require.True(t, linked)

	var stored models.TeacherCode
	require.NoError(t, db.First(&stored, "code = ?", code.Code).Error)
	require.Equal(t, 1, stored.UseCount)

	var link models.TeacherLink
	require.NoError(t, db.First(&link, "student_id = ?", student.ID).Error)
	require.True(t, link.GrantedViaCode)
}

func TestRedeemUnknownCode(t *testing.T) {
	svc, db := newCodeService(t)
	student := createUser(t, db, "Student", "student@example.com")

	_, err := svc.RedeemAccessCode(context.Background(), student.ID, "NOPE1234")
	require.ErrorIs(t, err, ErrCodeNotFound)
}

func TestRedeemTwiceIsRejected(t *testing.T) {
	svc, db := newCodeService(t)
	teacher := createUser(t, db, "Teach", "teach@example.com")
	student := createUser(t, db, "Student", "student@example.com")

	code, err := svc.Issue(context.Background(), teacher.ID, dto.IssueCodeRequest{MaxUses: models.UnlimitedUses})
	require.NoError(t, err)

	_, err = svc.RedeemAccessCode(context.Background(), student.ID, code.Code)
	require.NoError(t, err)

	_, err = svc.RedeemAccessCode(context.Background(), student.ID, code.Code)
	require.ErrorIs(t, err, ErrCodeAlreadyRedeemed)

	var uses int64
	require.NoError(t, db.Model(&models.TeacherCodeUse{}).Count(&uses).Error)
	require.EqualValues(t, 1, uses)
}

func TestRedeemExhaustedCode(t *testing.T) {
	svc, db := newCodeService(t)
	teacher := createUser(t, db, "Teach", "teach@example.com")
	first := createUser(t, db, "First", "first@example.com")
	second := createUser(t, db, "Second", "second@example.com")

	code, err := svc.Issue(context.Background(), teacher.ID, dto.IssueCodeRequest{MaxUses: 1})
	require.NoError(t, err)

	_, err = svc.RedeemAccessCode(context.Background(), first.ID, code.Code)
	require.NoError(t, err)

	_, err = svc.RedeemAccessCode(context.Background(), second.ID, code.Code)
	require.ErrorIs(t, err, ErrCodeExhausted)

	var stored models.TeacherCode
	require.NoError(t, db.First(&stored, "code = ?", code.Code).Error)
	require.Equal(t, 1, stored.UseCount)
}

func TestConcurrentRedemptionsRespectMaxUses(t *testing.T) {
	svc, db := newCodeService(t)
	teacher := createUser(t, db, "Teach", "teach@example.com")

	// A single connection keeps sqlite happy under parallel writers while
	// the goroutines still race through the service path.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	const maxUses = 3
	code, err := svc.Issue(context.Background(), teacher.ID, dto.IssueCodeRequest{MaxUses: maxUses})
	require.NoError(t, err)

	students := make([]models.User, maxUses+1)
	for i := range students {
		students[i] = createUser(t, db, fmt.Sprintf("Student %d", i), fmt.Sprintf("student%d@example.com", i))
	}

	var wg sync.WaitGroup
	var succeeded, exhausted atomic.Int32
	for _, student := range students {
		wg.Add(1)
		go func(studentID string) {
			defer wg.Done()
			_, err := svc.RedeemAccessCode(context.Background(), studentID, code.Code)
			switch {
			case err == nil:
				succeeded.Add(1)
			case errors.Is(err, ErrCodeExhausted):
				exhausted.Add(1)
			default:
				t.Errorf("unexpected redemption error: %v", err)
			}
		}(student.ID)
	}
	wg.Wait()

	require.Equal(t, int32(maxUses), succeeded.Load())
	require.Equal(t, int32(1), exhausted.Load())

	var stored models.TeacherCode
	require.NoError(t, db.First(&stored, "code = ?", code.Code).Error)
	require.Equal(t, maxUses, stored.UseCount)
}

func TestRedeemExpiredCode(t *testing.T) {
	svc, db := newCodeService(t)
	teacher := createUser(t, db, "Teach", "teach@example.com")
	student := createUser(t, db, "Student", "student@example.com")

	expired := time.Now().Add(-time.Hour)
	_, err := svc.Issue(context.Background(), teacher.ID, dto.IssueCodeRequest{MaxUses: 0, ExpiresAt: &expired})
	require.NoError(t, err)

	codes, err := svc.List(context.Background(), teacher.ID)
	require.NoError(t, err)
	require.Len(t, codes, 1)

	_, err = svc.RedeemAccessCode(context.Background(), student.ID, codes[0].Code)
	require.ErrorIs(t, err, ErrCodeExpired)
}

func TestRedeemRevokedCode(t *testing.T) {
	svc, db := newCodeService(t)
	teacher := createUser(t, db, "Teach", "teach@example.com")
	student := createUser(t, db, "Student", "student@example.com")

	code, err := svc.Issue(context.Background(), teacher.ID, dto.IssueCodeRequest{MaxUses: 0})
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(context.Background(), teacher.ID, code.ID, false))

	_, err = svc.RedeemAccessCode(context.Background(), student.ID, code.Code)
	require.ErrorIs(t, err, ErrCodeInactive)
}

func TestRevokeRequiresOwnership(t *testing.T) {
	svc, db := newCodeService(t)
	teacher := createUser(t, db, "Teach", "teach@example.com")
	other := createUser(t, db, "Other", "other@example.com")

	code, err := svc.Issue(context.Background(), teacher.ID, dto.IssueCodeRequest{MaxUses: 0})
	require.NoError(t, err)

	require.ErrorIs(t, svc.Revoke(context.Background(), other.ID, code.ID, false), ErrCodeNotOwned)
	require.NoError(t, svc.Revoke(context.Background(), other.ID, code.ID, true))
}

func TestMyCodeCreatesStandingUnlimitedCode(t *testing.T) {
	svc, db := newCodeService(t)
	teacher := createUser(t, db, "Teach", "teach@example.com")

	first, err := svc.MyCode(context.Background(), teacher.ID)
	require.NoError(t, err)
	require.True(t, first.Unlimited)

	second, err := svc.MyCode(context.Background(), teacher.ID)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, first.Code, second.Code)
}

func TestStudentAccessReflectsLink(t *testing.T) {
	svc, db := newCodeService(t)
	teacher := createUser(t, db, "Teach", "teach@example.com")
	student := createUser(t, db, "Student", "student@example.com")

	access, err := svc.StudentAccess(context.Background(), student.ID)
	require.NoError(t, err)
	require.False(t, access.HasAccess)
	require.Nil(t, access.Link)

	code, err := svc.MyCode(context.Background(), teacher.ID)
	require.NoError(t, err)
	_, err = svc.RedeemAccessCode(context.Background(), student.ID, code.Code)
	require.NoError(t, err)

	access, err = svc.StudentAccess(context.Background(), student.ID)
	require.NoError(t, err)
	require.True(t, access.HasAccess)
	require.NotNil(t, access.Link)
	require.Equal(t, teacher.ID, access.Link.TeacherID)
}

func TestRedeemTeacherOnboardingCodeGrantsRole(t *testing.T) {
	svc, db := newCodeService(t)
	admin := createUser(t, db, "Admin", "admin@example.com")
	invited := createUser(t, db, "Invited", "invited@example.com")

	code, err := svc.Issue(context.Background(), admin.ID, dto.IssueCodeRequest{MaxUses: 1})
	require.NoError(t, err)

	require.NoError(t, svc.RedeemTeacherOnboardingCode(context.Background(), invited.ID, code.Code))

	var user models.User
	require.NoError(t, db.Preload("Roles").First(&user, "id = ?", invited.ID).Error)
	require.True(t, user.HasRole(rbac.RoleTeacher))

	// Single-use invitation codes cannot be replayed by anyone else.
	err = svc.RedeemTeacherOnboardingCode(context.Background(), admin.ID, code.Code)
	require.ErrorIs(t, err, ErrCodeExhausted)
}

func TestListStudentsReturnsActiveLinks(t *testing.T) {
	svc, db := newCodeService(t)
	teacher := createUser(t, db, "Teach", "teach@example.com")
	student := createUser(t, db, "Student", "student@example.com")

	code, err := svc.MyCode(context.Background(), teacher.ID)
	require.NoError(t, err)
	_, err = svc.RedeemAccessCode(context.Background(), student.ID, code.Code)
	require.NoError(t, err)

	students, err := svc.ListStudents(context.Background(), teacher.ID)
	require.NoError(t, err)
	require.Len(t, students, 1)
	require.Equal(t, student.ID, students[0].StudentID)
	require.Equal(t, "Student", students[0].StudentName)
}
