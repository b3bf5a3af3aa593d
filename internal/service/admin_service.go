package service

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/regod-app/regod-api/internal/dto"
	"github.com/regod-app/regod-api/internal/models"
	"github.com/regod-app/regod-api/internal/rbac"
	"github.com/regod-app/regod-api/internal/repository"
	"github.com/regod-app/regod-api/pkg/clerk"
)

// Administration failures callers can map to client errors.
var (
	ErrUserNotFound     = errors.New("user not found")
	ErrRoleNotFound     = errors.New("role not found")
	ErrSelfDeactivation = errors.New("an admin cannot deactivate their own account")
	ErrLinkNotFound     = errors.New("teacher link not found")
	ErrInviterOffline   = errors.New("identity provider integration is not configured")
)

// TeacherInviter sends signup invitations through the identity provider.
type TeacherInviter interface {
	CreateInvitation(ctx context.Context, email, redirectURL string) (clerk.Invitation, error)
}

// AdminService implements account and role administration.
type AdminService interface {
	ListUsers(ctx context.Context, filter dto.UserListFilter) (dto.UserListResponse, error)
	GetUser(ctx context.Context, userID string) (dto.AdminUserResponse, error)
	AssignRole(ctx context.Context, actorID, userID string, req dto.RoleChangeRequest) error
	RemoveRole(ctx context.Context, userID string, req dto.RoleChangeRequest) error
	DeactivateUser(ctx context.Context, actorID, userID string) error
	ListRoles(ctx context.Context) ([]dto.RoleResponse, error)
	InviteTeacher(ctx context.Context, req dto.InviteTeacherRequest) (dto.InviteTeacherResponse, error)
	AssignTeacher(ctx context.Context, actorID string, req dto.AssignTeacherRequest) (dto.TeacherLinkResponse, error)
	RemoveLink(ctx context.Context, linkID uint) error
	ListLinks(ctx context.Context) ([]dto.TeacherLinkResponse, error)
}

type adminService struct {
	users    repository.UserRepository
	roles    repository.RoleRepository
	links    repository.TeacherLinkRepository
	codes    TeacherCodeService
	inviter  TeacherInviter
	validate *validator.Validate
	logger   zerolog.Logger
}

// NewAdminService builds the administration service.
func NewAdminService(
	users repository.UserRepository,
	roles repository.RoleRepository,
	links repository.TeacherLinkRepository,
	codes TeacherCodeService,
	inviter TeacherInviter,
	validate *validator.Validate,
	logger zerolog.Logger,
) AdminService {
	return &adminService{
		users:    users,
		roles:    roles,
		links:    links,
		codes:    codes,
		inviter:  inviter,
		validate: validate,
		logger:   logger.With().Str("component", "admin_service").Logger(),
	}
}

func (s *adminService) ListUsers(ctx context.Context, filter dto.UserListFilter) (dto.UserListResponse, error) {
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	users, total, err := s.users.List(ctx, repository.UserFilter{
		Page:     page,
		PageSize: pageSize,
		Role:     filter.Role,
		Search:   filter.Search,
		Active:   filter.Active,
	})
	if err != nil {
		return dto.UserListResponse{}, err
	}

	responses := make([]dto.AdminUserResponse, 0, len(users))
	for _, user := range users {
		responses = append(responses, adminUserResponse(user))
	}

	return dto.UserListResponse{
		Users:    responses,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}, nil
}

func (s *adminService) GetUser(ctx context.Context, userID string) (dto.AdminUserResponse, error) {
	user, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.AdminUserResponse{}, ErrUserNotFound
	}
	if err != nil {
		return dto.AdminUserResponse{}, err
	}

	return adminUserResponse(user), nil
}

func (s *adminService) AssignRole(ctx context.Context, actorID, userID string, req dto.RoleChangeRequest) error {
	if err := s.validate.Struct(req); err != nil {
		return err
	}

	if _, err := s.users.GetByID(ctx, userID); errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrUserNotFound
	} else if err != nil {
		return err
	}

	role, err := s.roles.GetByName(ctx, req.Role)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrRoleNotFound
	}
	if err != nil {
		return err
	}

	if err := s.users.AssignRole(ctx, userID, role.ID, &actorID); err != nil {
		return err
	}

	s.logger.Info().
		Str("actor_id", actorID).
		Str("user_id", userID).
		Str("role", req.Role).
		Msg("role assigned")

	return nil
}

func (s *adminService) RemoveRole(ctx context.Context, userID string, req dto.RoleChangeRequest) error {
	if err := s.validate.Struct(req); err != nil {
		return err
	}

	role, err := s.roles.GetByName(ctx, req.Role)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrRoleNotFound
	}
	if err != nil {
		return err
	}

	return s.users.RemoveRole(ctx, userID, role.ID)
}

func (s *adminService) DeactivateUser(ctx context.Context, actorID, userID string) error {
	if actorID == userID {
		return ErrSelfDeactivation
	}

	if err := s.users.Deactivate(ctx, userID); errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrUserNotFound
	} else if err != nil {
		return err
	}

	s.logger.Info().Str("actor_id", actorID).Str("user_id", userID).Msg("account deactivated")

	return nil
}

func (s *adminService) ListRoles(ctx context.Context) ([]dto.RoleResponse, error) {
	roles, err := s.roles.ListRoles(ctx)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.RoleResponse, 0, len(roles))
	for _, role := range roles {
		permissions := make([]string, 0, len(role.Permissions))
		for _, permission := range role.Permissions {
			permissions = append(permissions, permission.Name)
		}
		responses = append(responses, dto.RoleResponse{
			ID:          role.ID,
			Name:        role.Name,
			Description: role.Description,
			IsDefault:   role.IsDefault,
			Permissions: permissions,
		})
	}

	return responses, nil
}

// InviteTeacher provisions an inactive teacher account, generates a
// single-use onboarding code and asks the identity provider to email the
// invitation. Signup is completed by redeeming the code.
func (s *adminService) InviteTeacher(ctx context.Context, req dto.InviteTeacherRequest) (dto.InviteTeacherResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return dto.InviteTeacherResponse{}, err
	}

	user, err := s.users.GetByEmail(ctx, req.Email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		email := req.Email
		user = models.User{
			Email:    &email,
			Name:     models.GenericUserName,
			IsActive: true,
		}
		if err := s.users.Create(ctx, &user); err != nil {
			return dto.InviteTeacherResponse{}, err
		}
	} else if err != nil {
		return dto.InviteTeacherResponse{}, err
	}

	role, err := s.roles.GetByName(ctx, rbac.RoleTeacher)
	if err != nil {
		return dto.InviteTeacherResponse{}, err
	}
	if err := s.users.AssignRole(ctx, user.ID, role.ID, nil); err != nil {
		return dto.InviteTeacherResponse{}, err
	}

	code, err := s.codes.Issue(ctx, user.ID, dto.IssueCodeRequest{MaxUses: 1})
	if err != nil {
		return dto.InviteTeacherResponse{}, err
	}

	response := dto.InviteTeacherResponse{Email: req.Email, Code: code.Code}

	if s.inviter == nil {
		s.logger.Warn().Str("email", req.Email).Msg("invitation not delivered, provider is not configured")
		return response, nil
	}

	invitation, err := s.inviter.CreateInvitation(ctx, req.Email, req.RedirectURL)
	if err != nil {
		s.logger.Error().Err(err).Str("email", req.Email).Msg("provider invitation failed")
		return response, nil
	}

	response.InvitationID = invitation.ID
	s.logger.Info().Str("email", req.Email).Str("invitation_id", invitation.ID).Msg("teacher invited")

	return response, nil
}

func (s *adminService) AssignTeacher(ctx context.Context, actorID string, req dto.AssignTeacherRequest) (dto.TeacherLinkResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return dto.TeacherLinkResponse{}, err
	}

	if existing, err := s.links.ActiveLink(ctx, req.TeacherID, req.StudentID); err == nil {
		return linkResponse(existing), nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.TeacherLinkResponse{}, err
	}

	link := models.TeacherLink{
		TeacherID:  req.TeacherID,
		StudentID:  req.StudentID,
		Active:     true,
		AssignedBy: &actorID,
	}
	if err := s.links.Create(ctx, &link); err != nil {
		return dto.TeacherLinkResponse{}, err
	}

	s.logger.Info().
		Str("actor_id", actorID).
		Str("teacher_id", req.TeacherID).
		Str("student_id", req.StudentID).
		Msg("teacher manually assigned")

	return linkResponse(link), nil
}

func (s *adminService) RemoveLink(ctx context.Context, linkID uint) error {
	if err := s.links.Deactivate(ctx, linkID); errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrLinkNotFound
	} else if err != nil {
		return err
	}

	return nil
}

func (s *adminService) ListLinks(ctx context.Context) ([]dto.TeacherLinkResponse, error) {
	links, err := s.links.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.TeacherLinkResponse, 0, len(links))
	for _, link := range links {
		responses = append(responses, linkResponse(link))
	}

	return responses, nil
}

func adminUserResponse(user models.User) dto.AdminUserResponse {
	return dto.AdminUserResponse{
		ID:         user.ID,
		Email:      user.EmailValue(),
		Name:       user.Name,
		Roles:      user.RoleNames(),
		IsActive:   user.IsActive,
		IsVerified: user.IsVerified,
		ExternalID: user.ExternalID,
		LastLogin:  user.LastLogin,
		CreatedAt:  user.CreatedAt,
	}
}
