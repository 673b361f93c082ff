// Package service holds the business logic between the HTTP handlers and the
// repositories: account linking for the Salesforce callback and validation
// for the admin settings surface.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nkoleva/sflogin/internal/apperror"
	"github.com/nkoleva/sflogin/internal/auth"
	"github.com/nkoleva/sflogin/internal/model"
	"github.com/nkoleva/sflogin/internal/repository"
	"github.com/nkoleva/sflogin/internal/salesforce"
)

// LoginService turns a Salesforce profile plus token response into an
// authenticated local session, provisioning the account if needed.
type LoginService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

// NewLoginService creates a LoginService with all required dependencies.
func NewLoginService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *LoginService {
	return &LoginService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// LoginResult bundles the linked user and the issued session token so the
// handler can set the cookie and redirect in one step.
type LoginResult struct {
	User  *model.User
	Token string
}

// LinkAndLogin finds or creates the local account for a Salesforce profile,
// records the provider link, and issues a session token.
//
// Exactly one of the two branches runs per call:
//
//   - Email matches an existing account → that account is reused as-is; only
//     its provider link is replaced with the new tokens.
//   - No match → a new active account is provisioned with the profile's email
//     and username and a random, never-disclosed password, then linked.
//
// The session token is issued only after every store write has succeeded; a
// persistence failure leaves no session behind. The create branch is not
// idempotent on its own — the store's UNIQUE email constraint is what
// collapses a concurrent duplicate create into an ErrPersistence failure.
func (s *LoginService) LinkAndLogin(ctx context.Context, profile *salesforce.Profile, tokens *salesforce.TokenResponse) (*LoginResult, error) {
	if profile == nil || tokens == nil {
		return nil, fmt.Errorf("service/login: profile and tokens must not be nil")
	}

	user, err := s.users.GetByEmail(ctx, profile.Email)
	switch {
	case err == nil:
		// Existing account — reused as-is, link overwritten below.
	case errors.Is(err, apperror.ErrNotFound):
		user, err = s.provision(ctx, profile)
		if err != nil {
			return nil, err
		}
	default:
		return nil, apperror.Persistence("looking up account by email", err)
	}

	link := &model.ProviderLink{
		UserID:         user.ID,
		Provider:       model.ProviderSalesforce,
		ProviderUserID: tokens.IdentityURL,
		AccessToken:    tokens.AccessToken,
		RefreshToken:   tokens.RefreshToken,
		IssuedAt:       tokens.IssuedAt,
	}
	if err := s.users.SetProviderLink(ctx, link); err != nil {
		return nil, apperror.Persistence("writing provider link", err)
	}

	s.logger.Info("user authenticated via Salesforce",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
	)

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/login: generating session token for user %s: %w", user.ID, err)
	}

	return &LoginResult{
		User:  user,
		Token: token,
	}, nil
}

// provision creates a new active account for a first-time Salesforce login.
// The generated password only ever exists as a bcrypt hash, so the account is
// reachable exclusively through this flow.
func (s *LoginService) provision(ctx context.Context, profile *salesforce.Profile) (*model.User, error) {
	plaintext, err := auth.RandomPassword()
	if err != nil {
		return nil, fmt.Errorf("service/login: %w", err)
	}
	hash, err := s.passwords.Hash(plaintext)
	if err != nil {
		return nil, fmt.Errorf("service/login: %w", err)
	}

	user := &model.User{
		Email:        profile.Email,
		Username:     profile.Username,
		PasswordHash: hash,
		Active:       true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, apperror.Persistence("creating account", err)
	}

	s.logger.Info("provisioned account from Salesforce identity",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
	)

	return user, nil
}

// GetUserByID returns the user for the given internal ID. Used by the
// /api/me handler after the middleware validates the session token.
func (s *LoginService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, fmt.Errorf("service/login: user ID must not be empty")
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/login: fetching user %s: %w", id, err)
	}

	return user, nil
}
