// Package service implements account registration, login and token lifecycle.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"sante/internal/auth/models"
	jwttoken "sante/internal/jwt_token"
	"sante/internal/platform/metrics"
	"sante/internal/rbac"
	"sante/pkg/email"
	"sante/pkg/platform/audit"
	"sante/pkg/platform/sentinel"
	"sante/pkg/requestcontext"

	dErrors "sante/pkg/domain-errors"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks UserStore,ResetTokenStore,AuditPublisher

type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindByIdentifier(ctx context.Context, identifier string) (*models.User, error)
}

// ResetTokenStore remembers outstanding password-reset token ids.
type ResetTokenStore interface {
	Issue(ctx context.Context, jti, userID string, ttl time.Duration) error
	Consume(ctx context.Context, jti string) (string, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Internal login failure reasons. Both surface to callers as the same
// CodeInvalidCredentials error; they are only logged and audited.
var (
	ErrUnknownIdentifier = errors.New("unknown identifier")
	ErrPasswordMismatch  = errors.New("password mismatch")
	ErrInactiveUser      = errors.New("inactive user")
)

const (
	MinPasswordLength = 8
	// bcrypt ignores input past 72 bytes.
	MaxPasswordLength = 72
	tokenType         = "Bearer"
)

// Config holds the immutable knobs of the service.
type Config struct {
	TokenTTL        time.Duration
	ResetTokenTTL   time.Duration
	BcryptCost      int
	HashConcurrency int64
}

type Service struct {
	users          UserStore
	resets         ResetTokenStore
	jwt            *jwttoken.JWTService
	cfg            Config
	hasher         *passwordHasher
	logger         *slog.Logger
	metrics        *metrics.Metrics
	auditPublisher AuditPublisher
	now            func() time.Time
	// dummyHash keeps unknown-identifier logins as slow as wrong passwords.
	dummyHash []byte
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = p
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New builds the service. jwt must carry a signing key; config.Load refuses to
// start without one.
func New(users UserStore, resets ResetTokenStore, jwt *jwttoken.JWTService, cfg Config, opts ...Option) (*Service, error) {
	if users == nil || resets == nil || jwt == nil {
		return nil, errors.New("auth service: users, resets and jwt are required")
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 24 * time.Hour
	}
	if cfg.ResetTokenTTL <= 0 {
		cfg.ResetTokenTTL = time.Hour
	}
	s := &Service{
		users:  users,
		resets: resets,
		jwt:    jwt,
		cfg:    cfg,
		hasher: newPasswordHasher(cfg.HashConcurrency, cfg.BcryptCost),
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	dummy, err := s.hasher.hash(context.Background(), uuid.NewString())
	if err != nil {
		return nil, err
	}
	s.dummyHash = dummy
	return s, nil
}

// Register creates an account. Identifier, password and a known role are
// required; a taken identifier is a conflict.
func (s *Service) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	identifier, kind, ok := models.NormalizeIdentifier(req.Identifier)
	if !ok {
		return nil, dErrors.New(dErrors.CodeValidation, "identifier must be a valid email or phone number")
	}
	if err := validatePassword(req.Password); err != nil {
		return nil, err
	}
	role := rbac.Role(req.Role)
	if req.Role == "" || !rbac.IsValidRole(role) {
		return nil, dErrors.New(dErrors.CodeValidation, "role is required and must be known")
	}

	if _, err := s.users.FindByIdentifier(ctx, identifier); err == nil {
		return nil, dErrors.New(dErrors.CodeConflict, "identifier already registered")
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up user")
	}

	hash, err := s.hasher.hash(ctx, req.Password)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}

	firstName, lastName := req.FirstName, req.LastName
	if firstName == "" && lastName == "" && kind == models.IdentifierEmail {
		firstName, lastName = email.DeriveNameFromEmail(identifier)
	}

	now := s.now()
	user := &models.User{
		ID:             uuid.New(),
		Identifier:     identifier,
		IdentifierKind: kind,
		PasswordHash:   hash,
		Role:           role,
		FirstName:      firstName,
		LastName:       lastName,
		Active:         true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "identifier already registered")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save user")
	}

	s.metrics.IncrementUsersRegistered()
	s.logAudit(ctx, audit.Event{
		Action:  string(audit.EventUserRegistered),
		UserID:  user.ID.String(),
		Subject: string(role),
	})
	s.logger.InfoContext(ctx, "user registered",
		"user_id", user.ID.String(),
		"role", string(role),
		"request_id", requestcontext.RequestID(ctx),
	)
	return user, nil
}

// Login verifies credentials and issues an access token. Every failure mode
// returns the same CodeInvalidCredentials error.
func (s *Service) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResult, error) {
	user, err := s.authenticate(ctx, req)
	if err != nil {
		var reason string
		switch {
		case errors.Is(err, ErrUnknownIdentifier), errors.Is(err, ErrPasswordMismatch), errors.Is(err, ErrInactiveUser):
			reason = err.Error()
		default:
			return nil, err
		}
		s.metrics.IncrementLoginFailures()
		s.logAudit(ctx, audit.Event{
			Action:   string(audit.EventLoginFailed),
			Subject:  req.Identifier,
			Decision: "denied",
			Reason:   reason,
		})
		s.logger.WarnContext(ctx, "login failed",
			"reason", reason,
			"request_id", requestcontext.RequestID(ctx),
		)
		return nil, invalidCredentials()
	}

	token, claims, err := s.issueAccessToken(user)
	if err != nil {
		return nil, err
	}

	now := s.now()
	user.LastLoginAt = &now
	user.UpdatedAt = now
	if err := s.users.Update(ctx, user); err != nil {
		s.logger.WarnContext(ctx, "failed to record last login", "user_id", user.ID.String(), "error", err)
	}

	s.logAudit(ctx, audit.Event{
		Action: string(audit.EventLoginSucceeded),
		UserID: user.ID.String(),
	})
	return &models.LoginResult{
		User:        user.View(),
		Role:        string(user.Role),
		Token:       token,
		TokenType:   tokenType,
		Permissions: claims.Permissions,
		ExpiresAt:   claims.ExpiresAt.Time,
	}, nil
}

func (s *Service) authenticate(ctx context.Context, req models.LoginRequest) (*models.User, error) {
	identifier, _, ok := models.NormalizeIdentifier(req.Identifier)
	if !ok {
		_ = s.hasher.compare(ctx, s.dummyHash, req.Password)
		return nil, ErrUnknownIdentifier
	}
	user, err := s.users.FindByIdentifier(ctx, identifier)
	if errors.Is(err, sentinel.ErrNotFound) {
		_ = s.hasher.compare(ctx, s.dummyHash, req.Password)
		return nil, ErrUnknownIdentifier
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up user")
	}
	if err := s.hasher.compare(ctx, user.PasswordHash, req.Password); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, dErrors.Wrap(ctxErr, dErrors.CodeTimeout, "login cancelled")
		}
		return nil, ErrPasswordMismatch
	}
	if !user.Active {
		return nil, ErrInactiveUser
	}
	return user, nil
}

// VerifyToken validates an access token. Reset tokens are rejected.
func (s *Service) VerifyToken(token string) (*jwttoken.Claims, error) {
	return s.jwt.ValidateAccessToken(token)
}

// RefreshToken re-signs an access token for the same user. The old token may
// be expired but its signature must verify and the user must still exist.
func (s *Service) RefreshToken(ctx context.Context, oldToken string) (*models.RefreshResult, error) {
	claims, err := s.jwt.ParseIgnoringExpiry(oldToken)
	if err != nil {
		return nil, err
	}
	if claims.Purpose != jwttoken.PurposeAccess {
		return nil, dErrors.New(dErrors.CodeInvalidToken, "invalid token")
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeInvalidToken, "invalid token")
	}
	user, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeInvalidToken, "invalid token")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up user")
	}
	if !user.Active {
		return nil, dErrors.New(dErrors.CodeInvalidToken, "invalid token")
	}

	token, fresh, err := s.issueAccessToken(user)
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, audit.Event{
		Action: string(audit.EventTokenRefreshed),
		UserID: user.ID.String(),
	})
	return &models.RefreshResult{Token: token, TokenType: tokenType, ExpiresAt: fresh.ExpiresAt.Time}, nil
}

// RequestPasswordReset issues a single-use reset token valid for the
// configured reset TTL (1h by default).
func (s *Service) RequestPasswordReset(ctx context.Context, identifier string) (string, error) {
	normalized, _, ok := models.NormalizeIdentifier(identifier)
	if !ok {
		return "", dErrors.New(dErrors.CodeValidation, "identifier must be a valid email or phone number")
	}
	user, err := s.users.FindByIdentifier(ctx, normalized)
	if errors.Is(err, sentinel.ErrNotFound) {
		return "", dErrors.New(dErrors.CodeNotFound, "user not found")
	}
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up user")
	}

	token, claims, err := s.jwt.GeneratePasswordResetToken(user.ID, user.Identifier, s.cfg.ResetTokenTTL)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign reset token")
	}
	if err := s.resets.Issue(ctx, claims.ID, user.ID.String(), s.cfg.ResetTokenTTL); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to record reset token")
	}

	s.logAudit(ctx, audit.Event{
		Action: string(audit.EventPasswordResetRequested),
		UserID: user.ID.String(),
	})
	return token, nil
}

// ResetPassword consumes a reset token and replaces the password. A token can
// be used once.
func (s *Service) ResetPassword(ctx context.Context, resetToken, newPassword string) error {
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	claims, err := s.jwt.ValidatePasswordResetToken(resetToken)
	if err != nil {
		return err
	}
	owner, err := s.resets.Consume(ctx, claims.ID)
	if errors.Is(err, sentinel.ErrNotFound) || errors.Is(err, sentinel.ErrExpired) {
		return dErrors.New(dErrors.CodeInvalidToken, "reset token is no longer valid")
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to consume reset token")
	}
	if owner != claims.UserID {
		return dErrors.New(dErrors.CodeInvalidToken, "reset token is no longer valid")
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return dErrors.New(dErrors.CodeInvalidToken, "invalid reset token")
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeInvalidToken, "invalid reset token")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up user")
	}

	hash, err := s.hasher.hash(ctx, newPassword)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}
	user.PasswordHash = hash
	user.UpdatedAt = s.now()
	if err := s.users.Update(ctx, user); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save user")
	}

	s.logAudit(ctx, audit.Event{
		Action: string(audit.EventPasswordResetCompleted),
		UserID: user.ID.String(),
	})
	return nil
}

func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up user")
	}
	return user, nil
}

func (s *Service) issueAccessToken(user *models.User) (string, *jwttoken.Claims, error) {
	token, claims, err := s.jwt.GenerateAccessToken(jwttoken.Identity{
		UserID:      user.ID,
		Identifier:  user.Identifier,
		Role:        string(user.Role),
		Permissions: rbac.PermissionStrings(user.Role),
	}, s.cfg.TokenTTL)
	if err != nil {
		return "", nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign token")
	}
	s.metrics.IncrementTokensIssued()
	return token, claims, nil
}

func validatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return dErrors.New(dErrors.CodeValidation, "password must be at least 8 characters")
	}
	if len(password) > MaxPasswordLength {
		return dErrors.New(dErrors.CodeValidation, "password must be at most 72 bytes")
	}
	return nil
}

func invalidCredentials() error {
	return dErrors.New(dErrors.CodeInvalidCredentials, "invalid credentials")
}

func (s *Service) logAudit(ctx context.Context, event audit.Event) {
	if s.auditPublisher == nil {
		return
	}
	event.RequestID = requestcontext.RequestID(ctx)
	if err := s.auditPublisher.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to emit audit event",
			"action", event.Action,
			"error", err,
		)
	}
}
