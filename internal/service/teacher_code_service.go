package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/regod-app/regod-api/internal/dto"
	"github.com/regod-app/regod-api/internal/models"
	"github.com/regod-app/regod-api/internal/observability"
	"github.com/regod-app/regod-api/internal/rbac"
	"github.com/regod-app/regod-api/internal/repository"
)

// Redemption failures callers can map to client errors.
var (
	ErrCodeNotFound        = errors.New("access code not found")
	ErrCodeInactive        = errors.New("access code has been revoked")
	ErrCodeExpired         = errors.New("access code has expired")
	ErrCodeExhausted       = errors.New("access code has no remaining uses")
	ErrCodeAlreadyRedeemed = errors.New("access code was already redeemed by this student")
	ErrAlreadyLinked       = errors.New("student is already linked to this teacher")
	ErrCodeNotOwned        = errors.New("access code belongs to another teacher")
	ErrNegativeMaxUses     = errors.New("max uses must not be negative")
)

const (
	codeLength   = 8
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	// Retries absorb unique-index collisions on generated codes.
	codeGenerationAttempts = 5
)

// TeacherCodeService manages access codes and teacher-student links.
type TeacherCodeService interface {
	Issue(ctx context.Context, teacherID string, req dto.IssueCodeRequest) (dto.TeacherCodeResponse, error)
	MyCode(ctx context.Context, teacherID string) (dto.TeacherCodeResponse, error)
	List(ctx context.Context, teacherID string) ([]dto.TeacherCodeResponse, error)
	Revoke(ctx context.Context, teacherID string, codeID uint, isAdmin bool) error
	RedeemAccessCode(ctx context.Context, studentID, code string) (dto.RedeemCodeResponse, error)
	RedeemTeacherOnboardingCode(ctx context.Context, userID, code string) error
	StudentAccess(ctx context.Context, studentID string) (dto.StudentAccessResponse, error)
	CheckAssignment(ctx context.Context, teacherID, studentID string) (bool, error)
	ListStudents(ctx context.Context, teacherID string) ([]dto.TeacherLinkResponse, error)
}

type teacherCodeService struct {
	codes    repository.TeacherCodeRepository
	links    repository.TeacherLinkRepository
	users    repository.UserRepository
	roles    repository.RoleRepository
	validate *validator.Validate
	logger   zerolog.Logger
}

// NewTeacherCodeService builds the teacher code service.
func NewTeacherCodeService(
	codes repository.TeacherCodeRepository,
	links repository.TeacherLinkRepository,
	users repository.UserRepository,
	roles repository.RoleRepository,
	validate *validator.Validate,
	logger zerolog.Logger,
) TeacherCodeService {
	return &teacherCodeService{
		codes:    codes,
		links:    links,
		users:    users,
		roles:    roles,
		validate: validate,
		logger:   logger.With().Str("component", "teacher_code_service").Logger(),
	}
}

func (s *teacherCodeService) Issue(ctx context.Context, teacherID string, req dto.IssueCodeRequest) (dto.TeacherCodeResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return dto.TeacherCodeResponse{}, err
	}

	if req.MaxUses < 0 {
		return dto.TeacherCodeResponse{}, ErrNegativeMaxUses
	}

	code, err := s.createCode(ctx, teacherID, req.MaxUses, req.ExpiresAt)
	if err != nil {
		return dto.TeacherCodeResponse{}, err
	}

	s.logger.Info().
		Str("teacher_id", teacherID).
		Str("code", code.Code).
		Int("max_uses", code.MaxUses).
		Msg("access code issued")

	return codeResponse(code), nil
}

// MyCode returns the teacher's standing unlimited code, creating it on first
// request.
func (s *teacherCodeService) MyCode(ctx context.Context, teacherID string) (dto.TeacherCodeResponse, error) {
	code, err := s.codes.FirstByTeacher(ctx, teacherID)
	if err == nil {
		return codeResponse(code), nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.TeacherCodeResponse{}, err
	}

	code, err = s.createCode(ctx, teacherID, models.UnlimitedUses, nil)
	if err != nil {
		return dto.TeacherCodeResponse{}, err
	}

	s.logger.Info().Str("teacher_id", teacherID).Str("code", code.Code).Msg("standing access code created")

	return codeResponse(code), nil
}

func (s *teacherCodeService) List(ctx context.Context, teacherID string) ([]dto.TeacherCodeResponse, error) {
	codes, err := s.codes.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.TeacherCodeResponse, 0, len(codes))
	for _, code := range codes {
		responses = append(responses, codeResponse(code))
	}

	return responses, nil
}

func (s *teacherCodeService) Revoke(ctx context.Context, teacherID string, codeID uint, isAdmin bool) error {
	code, err := s.codes.GetByID(ctx, codeID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrCodeNotFound
	}
	if err != nil {
		return err
	}

	if !isAdmin && code.TeacherID != teacherID {
		return ErrCodeNotOwned
	}

	return s.codes.Deactivate(ctx, codeID)
}

// RedeemAccessCode consumes one use of the code and links the student to the
// issuing teacher. The use counter is advanced with a conditional update so
// concurrent redemptions cannot exceed the limit.
func (s *teacherCodeService) RedeemAccessCode(ctx context.Context, studentID, code string) (dto.RedeemCodeResponse, error) {
	record, err := s.lookupCode(ctx, code)
	if err != nil {
		observability.CodeRedemptions().WithLabelValues("rejected").Inc()
		return dto.RedeemCodeResponse{}, err
	}

	redeemed, err := s.codes.HasUse(ctx, record.ID, studentID)
	if err != nil {
		return dto.RedeemCodeResponse{}, err
	}
	if redeemed {
		observability.CodeRedemptions().WithLabelValues("duplicate").Inc()
		return dto.RedeemCodeResponse{}, ErrCodeAlreadyRedeemed
	}

	if _, err := s.links.ActiveLink(ctx, record.TeacherID, studentID); err == nil {
		observability.CodeRedemptions().WithLabelValues("duplicate").Inc()
		return dto.RedeemCodeResponse{}, ErrAlreadyLinked
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.RedeemCodeResponse{}, err
	}

	if err := s.consume(ctx, record); err != nil {
		observability.CodeRedemptions().WithLabelValues("rejected").Inc()
		return dto.RedeemCodeResponse{}, err
	}

	if err := s.codes.RecordUse(ctx, record.ID, studentID); err != nil {
		return dto.RedeemCodeResponse{}, err
	}

	link := models.TeacherLink{
		TeacherID:      record.TeacherID,
		StudentID:      studentID,
		Active:         true,
		GrantedViaCode: true,
	}
	if err := s.links.Create(ctx, &link); err != nil {
		return dto.RedeemCodeResponse{}, err
	}

	observability.CodeRedemptions().WithLabelValues("success").Inc()
	s.logger.Info().
		Str("student_id", studentID).
		Str("teacher_id", record.TeacherID).
		Str("code", record.Code).
		Msg("access code redeemed")

	teacherName := ""
	if record.Teacher != nil {
		teacherName = record.Teacher.Name
	}

	return dto.RedeemCodeResponse{
		TeacherID:   record.TeacherID,
		TeacherName: teacherName,
		LinkActive:  true,
	}, nil
}

// RedeemTeacherOnboardingCode finishes invited-teacher signup. Consuming the
// code proves the invitation and grants the teacher role.
func (s *teacherCodeService) RedeemTeacherOnboardingCode(ctx context.Context, userID, code string) error {
	record, err := s.lookupCode(ctx, code)
	if err != nil {
		observability.CodeRedemptions().WithLabelValues("rejected").Inc()
		return err
	}

	redeemed, err := s.codes.HasUse(ctx, record.ID, userID)
	if err != nil {
		return err
	}
	if redeemed {
		observability.CodeRedemptions().WithLabelValues("duplicate").Inc()
		return ErrCodeAlreadyRedeemed
	}

	if err := s.consume(ctx, record); err != nil {
		observability.CodeRedemptions().WithLabelValues("rejected").Inc()
		return err
	}

	if err := s.codes.RecordUse(ctx, record.ID, userID); err != nil {
		return err
	}

	role, err := s.roles.GetByName(ctx, rbac.RoleTeacher)
	if err != nil {
		return fmt.Errorf("failed to load teacher role: %w", err)
	}

	if err := s.users.AssignRole(ctx, userID, role.ID, nil); err != nil {
		return err
	}

	observability.CodeRedemptions().WithLabelValues("success").Inc()
	s.logger.Info().Str("user_id", userID).Str("code", record.Code).Msg("teacher onboarding completed")

	return nil
}

func (s *teacherCodeService) StudentAccess(ctx context.Context, studentID string) (dto.StudentAccessResponse, error) {
	link, err := s.links.FirstActiveForStudent(ctx, studentID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.StudentAccessResponse{HasAccess: false}, nil
	}
	if err != nil {
		return dto.StudentAccessResponse{}, err
	}

	response := linkResponse(link)

	return dto.StudentAccessResponse{HasAccess: true, Link: &response}, nil
}

func (s *teacherCodeService) CheckAssignment(ctx context.Context, teacherID, studentID string) (bool, error) {
	_, err := s.links.ActiveLink(ctx, teacherID, studentID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return true, nil
}

func (s *teacherCodeService) ListStudents(ctx context.Context, teacherID string) ([]dto.TeacherLinkResponse, error) {
	links, err := s.links.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.TeacherLinkResponse, 0, len(links))
	for _, link := range links {
		responses = append(responses, linkResponse(link))
	}

	return responses, nil
}

func (s *teacherCodeService) lookupCode(ctx context.Context, code string) (models.TeacherCode, error) {
	record, err := s.codes.GetByCode(ctx, code)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.TeacherCode{}, ErrCodeNotFound
	}
	if err != nil {
		return models.TeacherCode{}, err
	}

	now := time.Now()
	switch {
	case !record.IsActive:
		return models.TeacherCode{}, ErrCodeInactive
	case record.IsExpired(now):
		return models.TeacherCode{}, ErrCodeExpired
	case record.IsExhausted():
		return models.TeacherCode{}, ErrCodeExhausted
	}

	return record, nil
}

// consume advances the use counter. A zero-row update means the code state
// changed since lookup, so the fresh record decides which error to report.
func (s *teacherCodeService) consume(ctx context.Context, record models.TeacherCode) error {
	ok, err := s.codes.ConsumeUse(ctx, record.ID, time.Now())
	if err != nil {
		return err
	}
	if ok {
		return nil
	}

	fresh, err := s.codes.GetByID(ctx, record.ID)
	if err != nil {
		return ErrCodeExhausted
	}

	now := time.Now()
	switch {
	case !fresh.IsActive:
		return ErrCodeInactive
	case fresh.IsExpired(now):
		return ErrCodeExpired
	default:
		return ErrCodeExhausted
	}
}

func (s *teacherCodeService) createCode(ctx context.Context, teacherID string, maxUses int, expiresAt *time.Time) (models.TeacherCode, error) {
	var lastErr error
	for attempt := 0; attempt < codeGenerationAttempts; attempt++ {
		value, err := generateCode()
		if err != nil {
			return models.TeacherCode{}, err
		}

		code := models.TeacherCode{
			Code:      value,
			TeacherID: teacherID,
			MaxUses:   maxUses,
			ExpiresAt: expiresAt,
			IsActive:  true,
		}
		if err := s.codes.Create(ctx, &code); err != nil {
			lastErr = err
			continue
		}

		return code, nil
	}

	return models.TeacherCode{}, fmt.Errorf("failed to generate a unique access code: %w", lastErr)
}

func generateCode() (string, error) {
	buf := make([]byte, codeLength)
	for i := range buf {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeAlphabet))))
		if err != nil {
			return "", fmt.Errorf("failed to read random bytes: %w", err)
		}
		buf[i] = codeAlphabet[n.Int64()]
	}

	return string(buf), nil
}

func codeResponse(code models.TeacherCode) dto.TeacherCodeResponse {
	return dto.TeacherCodeResponse{
		ID:        code.ID,
		Code:      code.Code,
		TeacherID: code.TeacherID,
		MaxUses:   code.MaxUses,
		UseCount:  code.UseCount,
		Unlimited: code.MaxUses == models.UnlimitedUses,
		ExpiresAt: code.ExpiresAt,
		IsActive:  code.IsActive,
		CreatedAt: code.CreatedAt,
	}
}

func linkResponse(link models.TeacherLink) dto.TeacherLinkResponse {
	response := dto.TeacherLinkResponse{
		ID:             link.ID,
		TeacherID:      link.TeacherID,
		StudentID:      link.StudentID,
		Active:         link.Active,
		GrantedViaCode: link.GrantedViaCode,
		AssignedAt:     link.AssignedAt,
	}
	if link.Teacher != nil {
		response.TeacherName = link.Teacher.Name
	}
	if link.Student != nil {
		response.StudentName = link.Student.Name
	}

	return response
}
