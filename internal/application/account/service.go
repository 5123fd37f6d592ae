package account

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-accounts-api/internal/application/token"
	"github.com/go-accounts-api/internal/domain"
	"github.com/go-accounts-api/internal/pkg/id"
)

// DynamoDB attribute names used in partial update maps.
const (
	fieldIsActive     = "is_active"
	fieldPasswordHash = "password_hash"
	fieldTokenKey     = "token_key"
)

type userStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	ExistsActiveByEmail(ctx context.Context, email string) (bool, error)
	Put(ctx context.Context, u *domain.User) error
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
}

type secretProvider interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
	ValidatePolicy(password string) error
	RandomToken(length int) (string, error)
}

type pinEngine interface {
	Issue(ctx context.Context, u *domain.User) (string, error)
	Validate(ctx context.Context, u *domain.User, candidate string) error
	Consume(ctx context.Context, u *domain.User) error
}

type tokenEngine interface {
	CreateAccessToken(u *domain.User, extra map[string]interface{}) (string, error)
	CreateRefreshToken(u *domain.User, extra map[string]interface{}) (string, error)
	Verify(ctx context.Context, tokenStr, wantType string) (*domain.User, error)
}

type notifier interface {
	EnqueueConfirmationEmail(ctx context.Context, u *domain.User, pin string)
	PublishAccountConfirmed(u *domain.User)
}

// Service composes the PIN and token engines into the user-facing auth flows.
// It is stateless; the only shared mutable state is the user record itself.
type Service interface {
	Register(ctx context.Context, req domain.RegisterRequest) (*domain.User, error)
	Confirm(ctx context.Context, req domain.ConfirmRequest) (*domain.User, error)
	ResendPIN(ctx context.Context, email string) error
	SignIn(ctx context.Context, req domain.SignInRequest) (*domain.TokenPair, error)
	Verify(ctx context.Context, accessToken string) (*domain.User, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
	ChangePassword(ctx context.Context, userID string, req domain.ChangePasswordRequest) error
}

type service struct {
	users          userStore
	secrets        secretProvider
	pins           pinEngine
	tokens         tokenEngine
	notifier       notifier
	tokenKeyLength int
	confirmByEmail bool
}

type ServiceDeps struct {
	UserRepo       userStore
	Secrets        secretProvider
	PINEngine      pinEngine
	TokenEngine    tokenEngine
	Notifier       notifier
	TokenKeyLength int
	ConfirmByEmail bool
}

func NewService(deps ServiceDeps) Service {
	return &service{
		users:          deps.UserRepo,
		secrets:        deps.Secrets,
		pins:           deps.PINEngine,
		tokens:         deps.TokenEngine,
		notifier:       deps.Notifier,
		tokenKeyLength: deps.TokenKeyLength,
		confirmByEmail: deps.ConfirmByEmail,
	}
}

// Register creates an inactive account and, when email confirmation is on,
// issues a PIN and queues the confirmation email. Only an *active* duplicate
// email is rejected: re-registering over an unconfirmed account is allowed
// and supersedes the stale record.
func (s *service) Register(ctx context.Context, req domain.RegisterRequest) (*domain.User, error) {
	if err := s.secrets.ValidatePolicy(req.Password); err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrPasswordPolicy, err.Error())
	}
	email := normalizeEmail(req.Email)
	exists, err := s.users.ExistsActiveByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: email already registered", domain.ErrValidation)
	}
	hash, err := s.secrets.Hash(req.Password)
	if err != nil {
		return nil, err
	}
	tokenKey, err := s.secrets.RandomToken(s.tokenKeyLength)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	u := &domain.User{
		UserID:       id.New(),
		Email:        email,
		Username:     req.Username,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Phone:        req.Phone,
		PasswordHash: hash,
		IsActive:     false,
		TokenKey:     tokenKey,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Put(ctx, u); err != nil {
		return nil, err
	}

	if !s.confirmByEmail {
		if err := s.users.Update(ctx, u.UserID, map[string]interface{}{fieldIsActive: true}); err != nil {
			return nil, err
		}
		u.IsActive = true
		return u, nil
	}

	code, err := s.pins.Issue(ctx, u)
	if err != nil {
		return nil, err
	}
	s.notifier.EnqueueConfirmationEmail(ctx, u, code)
	return u, nil
}

// Confirm validates and consumes the outstanding PIN for the account. The
// lookup is by plain email on purpose: an already-active account has no
// outstanding PIN, so the attempt fails at the expiry check rather than
// revealing activation state.
func (s *service) Confirm(ctx context.Context, req domain.ConfirmRequest) (*domain.User, error) {
	u, err := s.users.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		return nil, err
	}
	if err := s.pins.Validate(ctx, u, req.PIN); err != nil {
		return nil, err
	}
	if err := s.pins.Consume(ctx, u); err != nil {
		return nil, err
	}
	s.notifier.PublishAccountConfirmed(u)
	return u, nil
}

// ResendPIN re-issues a confirmation PIN for an unconfirmed account and
// queues a fresh confirmation email. Re-issuing resets the failure counter.
func (s *service) ResendPIN(ctx context.Context, email string) error {
	u, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return err
	}
	if u.IsActive {
		return fmt.Errorf("%w: account already confirmed", domain.ErrValidation)
	}
	code, err := s.pins.Issue(ctx, u)
	if err != nil {
		return err
	}
	s.notifier.EnqueueConfirmationEmail(ctx, u, code)
	return nil
}

// SignIn checks credentials and issues an access/refresh token pair.
// Unknown email and wrong password both come back as ErrInvalidCredentials;
// the password check runs either way (against a decoy hash when the user is
// missing) so the two cases are not distinguishable by timing. The active
// check runs strictly after the password check.
func (s *service) SignIn(ctx context.Context, req domain.SignInRequest) (*domain.TokenPair, error) {
	u, err := s.users.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		s.secrets.Verify(req.Password, "")
		return nil, domain.ErrInvalidCredentials
	}
	if !s.secrets.Verify(req.Password, u.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}
	if !u.IsActive {
		return nil, domain.ErrNotConfirmed
	}
	access, err := s.tokens.CreateAccessToken(u, nil)
	if err != nil {
		return nil, err
	}
	refresh, err := s.tokens.CreateRefreshToken(u, nil)
	if err != nil {
		return nil, err
	}
	return &domain.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Verify resolves an access token to its active user.
func (s *service) Verify(ctx context.Context, accessToken string) (*domain.User, error) {
	return s.tokens.Verify(ctx, accessToken, token.TypeAccess)
}

// Refresh exchanges a valid refresh token for a new access token. The
// refresh token itself is not rotated.
func (s *service) Refresh(ctx context.Context, refreshToken string) (string, error) {
	u, err := s.tokens.Verify(ctx, refreshToken, token.TypeRefresh)
	if err != nil {
		return "", err
	}
	return s.tokens.CreateAccessToken(u, nil)
}

// ChangePassword stores a new password hash and rotates the token key in the
// same update, which instantly invalidates every token issued so far.
func (s *service) ChangePassword(ctx context.Context, userID string, req domain.ChangePasswordRequest) error {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return err
	}
	if !s.secrets.Verify(req.CurrentPassword, u.PasswordHash) {
		return domain.ErrInvalidCredentials
	}
	if err := s.secrets.ValidatePolicy(req.NewPassword); err != nil {
		return fmt.Errorf("%w: %s", domain.ErrPasswordPolicy, err.Error())
	}
	hash, err := s.secrets.Hash(req.NewPassword)
	if err != nil {
		return err
	}
	tokenKey, err := s.secrets.RandomToken(s.tokenKeyLength)
	if err != nil {
		return err
	}
	return s.users.Update(ctx, userID, map[string]interface{}{
		fieldPasswordHash: hash,
		fieldTokenKey:     tokenKey,
	})
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
