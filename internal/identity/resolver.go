package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/regod-app/regod-api/internal/auth"
	"github.com/regod-app/regod-api/internal/models"
	"github.com/regod-app/regod-api/internal/repository"
)

// Resolution failures surfaced to the authentication middleware.
var (
	// ErrUserInactive indicates the account exists but has been deactivated.
	ErrUserInactive = errors.New("user account is inactive")
	// ErrUserNotFound indicates no local account matched and none could be provisioned.
	ErrUserNotFound = errors.New("user not found")
)

// Resolver maps normalized claims to a local user, provisioning one on first
// contact with an external identity. Resolution is idempotent: the same
// claims never create a second user or a duplicate role assignment.
type Resolver struct {
	users  repository.UserRepository
	roles  repository.RoleRepository
	logger zerolog.Logger
}

// NewResolver constructs an identity resolver.
func NewResolver(users repository.UserRepository, roles repository.RoleRepository, logger zerolog.Logger) *Resolver {
	return &Resolver{
		users:  users,
		roles:  roles,
		logger: logger.With().Str("component", "identity_resolver").Logger(),
	}
}

// Resolve looks up (or provisions) the user behind the claims and returns the
// resolved identity. Reconciliation writes that fail cause the whole
// resolution to fail: the request must not proceed with a stale identity.
func (r *Resolver) Resolve(ctx context.Context, claims auth.Claims) (Identity, error) {
	user, err := r.lookup(ctx, claims)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return Identity{}, err
		}

		user, err = r.provision(ctx, claims)
		if err != nil {
			return Identity{}, err
		}
	} else {
		user, err = r.reconcile(ctx, user, claims)
		if err != nil {
			return Identity{}, err
		}
	}

	if !user.IsActive {
		return Identity{}, ErrUserInactive
	}

	return FromUser(user), nil
}

func (r *Resolver) lookup(ctx context.Context, claims auth.Claims) (models.User, error) {
	if _, parseErr := uuid.Parse(claims.SubjectID); parseErr == nil {
		user, err := r.users.GetByID(ctx, claims.SubjectID)
		if err == nil || !errors.Is(err, gorm.ErrRecordNotFound) {
			return user, err
		}
	}

	user, err := r.users.GetByExternalID(ctx, claims.SubjectID)
	if err == nil || !errors.Is(err, gorm.ErrRecordNotFound) {
		return user, err
	}

	if claims.Email != "" {
		return r.users.GetByEmail(ctx, claims.Email)
	}

	return models.User{}, gorm.ErrRecordNotFound
}

// provision creates a local account for a previously unseen external subject
// and grants the default role.
func (r *Resolver) provision(ctx context.Context, claims auth.Claims) (models.User, error) {
	name := claims.Name
	if name == "" {
		name = models.GenericUserName
	}

	externalID := claims.SubjectID
	user := models.User{
		ExternalID: &externalID,
		Name:       name,
		IsActive:   true,
		IsVerified: claims.Verified,
	}
	if claims.Email != "" {
		email := claims.Email
		user.Email = &email
	}

	if err := r.users.Create(ctx, &user); err != nil {
		return models.User{}, fmt.Errorf("provision user: %w", err)
	}

	defaultRole, err := r.roles.GetDefault(ctx)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, fmt.Errorf("load default role: %w", err)
		}
	} else {
		if err := r.users.AssignRole(ctx, user.ID, defaultRole.ID, nil); err != nil {
			return models.User{}, fmt.Errorf("assign default role: %w", err)
		}
		user.Roles = []models.Role{defaultRole}
	}

	r.logger.Info().Str("user_id", user.ID).Str("external_id", claims.SubjectID).Msg("user provisioned from external identity")
	return user, nil
}

// reconcile conservatively folds claim fields into an existing user: email on
// change, name only generic→specific, verified only false→true.
func (r *Resolver) reconcile(ctx context.Context, user models.User, claims auth.Claims) (models.User, error) {
	changed := false

	if claims.Email != "" && claims.Email != user.EmailValue() {
		email := claims.Email
		user.Email = &email
		changed = true
	}

	if user.HasGenericName() && claims.Name != "" && claims.Name != models.GenericUserName {
		user.Name = claims.Name
		changed = true
	}

	if claims.Verified && !user.IsVerified {
		user.IsVerified = true
		changed = true
	}

	if user.ExternalID == nil && claims.SubjectID != user.ID {
		externalID := claims.SubjectID
		user.ExternalID = &externalID
		changed = true
	}

	if changed {
		if err := r.users.Update(ctx, &user); err != nil {
			return models.User{}, fmt.Errorf("reconcile user: %w", err)
		}
	}

	return user, nil
}
