package users

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/angelmondragon/campuspoints-backend/internal/promotions"
	"github.com/angelmondragon/campuspoints-backend/pkg/config"
	"github.com/angelmondragon/campuspoints-backend/pkg/db"
	"github.com/angelmondragon/campuspoints-backend/pkg/db/models"
	"github.com/angelmondragon/campuspoints-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/campuspoints-backend/pkg/errors"
	"github.com/angelmondragon/campuspoints-backend/pkg/logger"
	"github.com/angelmondragon/campuspoints-backend/pkg/pagination"
	"github.com/angelmondragon/campuspoints-backend/pkg/policy"
	"github.com/angelmondragon/campuspoints-backend/pkg/security"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	// ActivationTokenTTL is how long a freshly created account's reset token lives.
	ActivationTokenTTL = 7 * 24 * time.Hour

	EmailDomain   = "@mail.utoronto.ca"
	maxNameLength = 50
)

var utoridPattern = regexp.MustCompile(`^[A-Za-z0-9]{7,8}$`)

// ValidUtorid reports whether raw looks like a UofT login id.
func ValidUtorid(raw string) bool {
	return utoridPattern.MatchString(raw)
}

// ValidEmail reports whether raw is a UofT student mailbox.
func ValidEmail(raw string) bool {
	addr, err := mail.ParseAddress(raw)
	if err != nil || addr.Address != raw {
		return false
	}
	lower := strings.ToLower(raw)
	return strings.HasSuffix(lower, EmailDomain) && len(lower) > len(EmailDomain)
}

type userRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindByUtorid(ctx context.Context, utorid string) (*models.User, error)
	ExistsByUtoridOrEmail(ctx context.Context, utorid, email string) (bool, bool, error)
	List(ctx context.Context, q listQuery) ([]models.User, int64, error)
	Updates(ctx context.Context, id uuid.UUID, fields map[string]any) error
	UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error
}

type availablePromotions interface {
	AvailableOneTime(ctx context.Context, userID uuid.UUID) ([]promotions.PromotionDTO, error)
}

type resetTokenStore interface {
	StoreResetToken(ctx context.Context, token, utorid string, ttl time.Duration) error
}

// Service manages account records. Balances are read here but only the
// ledger changes them.
type Service interface {
	Create(ctx context.Context, actor policy.Actor, input CreateInput) (*Created, error)
	List(ctx context.Context, actor policy.Actor, filters ListFilters) (pagination.Page[UserDTO], error)
	Me(ctx context.Context, actor policy.Actor) (*UserDTO, error)
	UpdateMe(ctx context.Context, actor policy.Actor, input UpdateMeInput) (*UserDTO, error)
	ChangePassword(ctx context.Context, actor policy.Actor, input PasswordChange) error
	Get(ctx context.Context, actor policy.Actor, id uuid.UUID) (*UserDTO, error)
	Update(ctx context.Context, actor policy.Actor, id uuid.UUID, input UpdateInput) (*Updated, error)
}

type ServiceParams struct {
	Repo        userRepository
	Promotions  availablePromotions
	ResetTokens resetTokenStore
	Password    config.PasswordConfig
	Logger      *logger.Logger
}

type service struct {
	repo        userRepository
	promotions  availablePromotions
	resetTokens resetTokenStore
	passwordCfg config.PasswordConfig
	logg        *logger.Logger
	now         func() time.Time
}

// NewService wires the user service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("user repository required")
	}
	if params.Promotions == nil {
		return nil, fmt.Errorf("promotion service required")
	}
	if params.ResetTokens == nil {
		return nil, fmt.Errorf("reset token store required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:        params.Repo,
		promotions:  params.Promotions,
		resetTokens: params.ResetTokens,
		passwordCfg: params.Password,
		logg:        params.Logger,
		now:         time.Now,
	}, nil
}

func (s *service) Create(ctx context.Context, actor policy.Actor, input CreateInput) (*Created, error) {
	if err := actor.Require(enums.RoleCashier); err != nil {
		return nil, err
	}

	utorid := strings.TrimSpace(input.Utorid)
	name := strings.TrimSpace(input.Name)
	email := strings.TrimSpace(input.Email)
	if !ValidUtorid(utorid) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "utorid must be 7-8 alphanumeric characters")
	}
	if name == "" || len([]rune(name)) > maxNameLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name must be 1-50 characters")
	}
	if !ValidEmail(email) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email must be a valid University of Toronto address")
	}

	utoridTaken, emailTaken, err := s.repo.ExistsByUtoridOrEmail(ctx, utorid, email)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check existing user")
	}
	if utoridTaken {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "utorid already registered")
	}
	if emailTaken {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
	}

	user := models.User{
		Utorid: utorid,
		Name:   name,
		Email:  email,
		Role:   enums.RoleRegular,
	}
	if err := s.repo.Create(ctx, &user); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "user already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
	}

	token, err := security.GenerateResetToken()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate activation token")
	}
	if err := s.resetTokens.StoreResetToken(ctx, token, user.Utorid, ActivationTokenTTL); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store activation token")
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"new_user_id": user.ID.String(),
		"created_by":  actor.Utorid,
	}), "user.created")

	return &Created{
		ID:         user.ID,
		Utorid:     user.Utorid,
		Name:       user.Name,
		Email:      user.Email,
		Verified:   user.Verified,
		ExpiresAt:  s.now().UTC().Add(ActivationTokenTTL),
		ResetToken: token,
	}, nil
}

func (s *service) List(ctx context.Context, actor policy.Actor, filters ListFilters) (pagination.Page[UserDTO], error) {
	if err := actor.Require(enums.RoleManager); err != nil {
		return pagination.Page[UserDTO]{}, err
	}
	if filters.Role != nil && !filters.Role.IsValid() {
		return pagination.Page[UserDTO]{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid role")
	}

	params := filters.Params.Normalize()
	rows, total, err := s.repo.List(ctx, listQuery{
		name:      filters.Name,
		role:      filters.Role,
		verified:  filters.Verified,
		activated: filters.Activated,
		limit:     params.Limit,
		offset:    params.Offset(),
	})
	if err != nil {
		return pagination.Page[UserDTO]{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list users")
	}

	results := make([]UserDTO, 0, len(rows))
	for i := range rows {
		results = append(results, *FromModel(&rows[i]))
	}
	return pagination.NewPage(params, total, results), nil
}

func (s *service) Me(ctx context.Context, actor policy.Actor) (*UserDTO, error) {
	if err := actor.Require(enums.RoleRegular); err != nil {
		return nil, err
	}
	user, err := s.load(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	return s.withPromotions(ctx, FromModel(user))
}

func (s *service) UpdateMe(ctx context.Context, actor policy.Actor, input UpdateMeInput) (*UserDTO, error) {
	if err := actor.Require(enums.RoleRegular); err != nil {
		return nil, err
	}
	if input.empty() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no fields to update")
	}

	fields := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" || len([]rune(name)) > maxNameLength {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name must be 1-50 characters")
		}
		fields["name"] = name
	}
	if input.Email != nil {
		email := strings.TrimSpace(*input.Email)
		if !ValidEmail(email) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "email must be a valid University of Toronto address")
		}
		if err := s.ensureEmailFree(ctx, actor.UserID, email); err != nil {
			return nil, err
		}
		fields["email"] = email
	}
	if input.Birthday != nil {
		birthday, err := parseBirthday(*input.Birthday, s.now())
		if err != nil {
			return nil, err
		}
		fields["birthday"] = birthday
	}

	if err := s.repo.Updates(ctx, actor.UserID, fields); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update profile")
	}
	return s.Me(ctx, actor)
}

func (s *service) ChangePassword(ctx context.Context, actor policy.Actor, input PasswordChange) error {
	if err := actor.Require(enums.RoleRegular); err != nil {
		return err
	}
	if input.Old == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "old password is required")
	}
	if violations := security.PasswordViolations(input.New); len(violations) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "new password does not meet policy").
			WithDetails(map[string]any{"new": violations})
	}

	user, err := s.load(ctx, actor.UserID)
	if err != nil {
		return err
	}
	if user.PasswordHash == nil {
		return pkgerrors.New(pkgerrors.CodeForbidden, "incorrect password")
	}
	ok, err := security.VerifyPassword(input.Old, *user.PasswordHash)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeForbidden, "incorrect password")
	}

	hash, err := security.HashPassword(input.New, s.passwordCfg)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	if err := s.repo.UpdatePassword(ctx, user.ID, hash); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update password")
	}

	s.logg.Info(s.logg.WithUserID(ctx, user.ID.String()), "user.password_changed")
	return nil
}

func (s *service) Get(ctx context.Context, actor policy.Actor, id uuid.UUID) (*UserDTO, error) {
	if err := actor.Require(enums.RoleCashier); err != nil {
		return nil, err
	}
	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Is(enums.RoleManager) {
		return s.withPromotions(ctx, FromModel(user))
	}
	return s.withPromotions(ctx, cashierView(user))
}

func (s *service) Update(ctx context.Context, actor policy.Actor, id uuid.UUID, input UpdateInput) (*Updated, error) {
	if err := actor.Require(enums.RoleManager); err != nil {
		return nil, err
	}
	if input.empty() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no fields to update")
	}

	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	out := &Updated{ID: user.ID, Utorid: user.Utorid, Name: user.Name}
	fields := map[string]any{}

	if input.Email != nil {
		email := strings.TrimSpace(*input.Email)
		if !ValidEmail(email) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "email must be a valid University of Toronto address")
		}
		if err := s.ensureEmailFree(ctx, user.ID, email); err != nil {
			return nil, err
		}
		fields["email"] = email
		out.Email = &email
	}
	if input.Verified != nil {
		if !*input.Verified {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "verified can only be set to true")
		}
		fields["verified"] = true
		out.Verified = input.Verified
	}
	if input.Suspicious != nil {
		fields["suspicious"] = *input.Suspicious
		out.Suspicious = input.Suspicious
	}
	if input.Role != nil {
		role := *input.Role
		if !role.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid role")
		}
		if !policy.CanAssign(actor.Role, role) {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot assign that role")
		}
		if role == enums.RoleCashier {
			if input.Suspicious != nil && *input.Suspicious {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "a suspicious user cannot be promoted to cashier")
			}
			cleared := false
			fields["suspicious"] = cleared
			out.Suspicious = &cleared
		}
		fields["role"] = role
		out.Role = &role
	}

	if err := s.repo.Updates(ctx, user.ID, fields); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update user")
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"target_user_id": user.ID.String(),
		"fields":         len(fields),
	}), "user.updated")
	return out, nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}
	return user, nil
}

func (s *service) ensureEmailFree(ctx context.Context, self uuid.UUID, email string) error {
	_, taken, err := s.repo.ExistsByUtoridOrEmail(ctx, "", email)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check email")
	}
	if !taken {
		return nil
	}
	current, err := s.load(ctx, self)
	if err != nil {
		return err
	}
	if strings.EqualFold(current.Email, email) {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
}

func (s *service) withPromotions(ctx context.Context, dto *UserDTO) (*UserDTO, error) {
	promos, err := s.promotions.AvailableOneTime(ctx, dto.ID)
	if err != nil {
		return nil, err
	}
	dto.Promotions = promos
	if dto.Promotions == nil {
		dto.Promotions = []promotions.PromotionDTO{}
	}
	return dto, nil
}

func parseBirthday(raw string, now time.Time) (time.Time, error) {
	parsed, err := time.Parse(birthdayLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "birthday must be YYYY-MM-DD")
	}
	if parsed.After(now.UTC()) {
		return time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "birthday cannot be in the future")
	}
	return parsed, nil
}
