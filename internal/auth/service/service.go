package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	authmetrics "policygate/internal/auth/metrics"
	"policygate/internal/auth/models"
	"policygate/internal/auth/password"
	userstore "policygate/internal/auth/store/user"
	id "policygate/pkg/domain"
	dErrors "policygate/pkg/domain-errors"
	"policygate/pkg/platform/sentinel"
	"policygate/pkg/requestcontext"
)

// Login failure messages are deliberately generic: they vary by identifier
// kind but never disclose whether the identifier exists.
const (
	msgInvalidEmailOrPassword = "invalid email or password"
	msgInvalidPhoneOrPassword = "invalid country code, phone number, or password"
)

type UserStore interface {
	CreateIfAvailable(ctx context.Context, u *models.User) error
	FindByID(ctx context.Context, userID id.UserID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByPhone(ctx context.Context, countryCode, phoneNumber string) (*models.User, error)
}

// TokenIssuer signs bearer tokens for authenticated identities.
type TokenIssuer interface {
	GenerateAccessToken(ident requestcontext.UserIdentity, now time.Time) (string, error)
}

// Service orchestrates registration and login.
type Service struct {
	users   UserStore
	hasher  *password.Hasher
	tokens  TokenIssuer
	logger  *slog.Logger
	metrics *authmetrics.Metrics
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *authmetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// New constructs a Service.
func New(users UserStore, hasher *password.Hasher, tokens TokenIssuer, opts ...Option) *Service {
	s := &Service{users: users, hasher: hasher, tokens: tokens, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterRequest carries registration input. Active defaults to true when
// nil.
type RegisterRequest struct {
	Name        string
	Email       string
	Password    string
	Role        string
	CountryCode string
	PhoneNumber string
	Active      *bool
}

// Register creates a new user. The email and phone pre-checks give fast,
// specific errors; the store's unique constraints remain the authoritative
// guard, and a constraint violation on insert maps to the same Conflict.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (models.Summary, error) {
	role := id.RoleUser
	if req.Role != "" {
		parsed, err := id.ParseRole(req.Role)
		if err != nil {
			return models.Summary{}, err
		}
		role = parsed
	}
	if req.Password == "" {
		return models.Summary{}, dErrors.NewValidation(dErrors.FieldViolation{Field: "password", Message: "is required"})
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	now := requestcontext.Now(ctx)
	user, err := models.NewUser(id.NewUserID(), req.Name, req.Email, s.hasher.Hash(req.Password),
		role, req.CountryCode, req.PhoneNumber, active, now)
	if err != nil {
		return models.Summary{}, err
	}

	if _, err := s.users.FindByEmail(ctx, user.Email); err == nil {
		return models.Summary{}, dErrors.New(dErrors.CodeConflict, "user with this email already exists")
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return models.Summary{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check email availability")
	}

	if user.HasPhone() {
		if _, err := s.users.FindByPhone(ctx, user.CountryCode, user.PhoneNumber); err == nil {
			return models.Summary{}, dErrors.New(dErrors.CodeConflict, "user with this phone number already exists")
		} else if !errors.Is(err, sentinel.ErrNotFound) {
			return models.Summary{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check phone availability")
		}
	}

	if err := s.users.CreateIfAvailable(ctx, user); err != nil {
		switch {
		case errors.Is(err, userstore.ErrEmailTaken):
			return models.Summary{}, dErrors.New(dErrors.CodeConflict, "user with this email already exists")
		case errors.Is(err, userstore.ErrPhoneTaken):
			return models.Summary{}, dErrors.New(dErrors.CodeConflict, "user with this phone number already exists")
		case errors.Is(err, sentinel.ErrConflict):
			return models.Summary{}, dErrors.New(dErrors.CodeConflict, "user already exists")
		default:
			return models.Summary{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create user")
		}
	}

	s.logger.InfoContext(ctx, "user registered",
		"request_id", requestcontext.RequestID(ctx),
		"user_id", user.ID.String(),
	)
	s.incrementRegistered()

	return user.Summary(), nil
}

// IdentifierKind selects how a login identifies the account.
type IdentifierKind string

const (
	IdentifyByEmail IdentifierKind = "email"
	IdentifyByPhone IdentifierKind = "phone"
)

// LoginRequest carries login input for either identifier kind.
type LoginRequest struct {
	Kind        IdentifierKind
	Email       string
	CountryCode string
	PhoneNumber string
	Password    string
}

// LoginResult is a signed token plus the subject's summary.
type LoginResult struct {
	Token string         `json:"token"`
	User  models.Summary `json:"user"`
}

// Login verifies credentials and issues a bearer token. Unknown identifier,
// wrong password, and inactive account all produce the same external shape.
func (s *Service) Login(ctx context.Context, req LoginRequest) (LoginResult, error) {
	var (
		user       *models.User
		err        error
		genericMsg string
	)

	switch req.Kind {
	case IdentifyByEmail:
		genericMsg = msgInvalidEmailOrPassword
		if req.Email == "" || req.Password == "" {
			return LoginResult{}, s.loginFailed(ctx, genericMsg, "missing email or password")
		}
		user, err = s.users.FindByEmail(ctx, req.Email)
	case IdentifyByPhone:
		genericMsg = msgInvalidPhoneOrPassword
		if req.CountryCode == "" || req.PhoneNumber == "" || req.Password == "" {
			return LoginResult{}, s.loginFailed(ctx, genericMsg, "missing phone pair or password")
		}
		user, err = s.users.FindByPhone(ctx, req.CountryCode, req.PhoneNumber)
	default:
		return LoginResult{}, dErrors.New(dErrors.CodeBadRequest, "login type must be email or phone")
	}

	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return LoginResult{}, s.loginFailed(ctx, genericMsg, "user not found")
		}
		return LoginResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up user")
	}

	if !s.hasher.Verify(user.PasswordHash, req.Password) {
		return LoginResult{}, s.loginFailed(ctx, genericMsg, "password mismatch")
	}

	if !user.Active {
		return LoginResult{}, s.loginFailed(ctx, genericMsg, "user inactive")
	}

	now := requestcontext.Now(ctx)
	token, err := s.tokens.GenerateAccessToken(requestcontext.UserIdentity{
		UserID: user.ID,
		Email:  user.Email,
		Name:   user.Name,
		Role:   user.Role,
	}, now)
	if err != nil {
		return LoginResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue token")
	}

	s.logger.InfoContext(ctx, "login successful",
		"request_id", requestcontext.RequestID(ctx),
		"user_id", user.ID.String(),
	)
	s.incrementLogin()

	return LoginResult{Token: token, User: user.Summary()}, nil
}

// loginFailed logs the internal reason and returns the non-enumerating
// external error.
func (s *Service) loginFailed(ctx context.Context, externalMsg, internalReason string) error {
	s.logger.WarnContext(ctx, "login rejected",
		"request_id", requestcontext.RequestID(ctx),
		"reason", internalReason,
	)
	s.incrementLoginFailure()
	return dErrors.New(dErrors.CodeUnauthorized, externalMsg)
}

func (s *Service) incrementRegistered() {
	if s.metrics != nil {
		s.metrics.IncrementRegistered()
	}
}

func (s *Service) incrementLogin() {
	if s.metrics != nil {
		s.metrics.IncrementLogin()
	}
}

func (s *Service) incrementLoginFailure() {
	if s.metrics != nil {
		s.metrics.IncrementLoginFailure()
	}
}
