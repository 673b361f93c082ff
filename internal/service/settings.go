package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nkoleva/sflogin/internal/apperror"
	"github.com/nkoleva/sflogin/internal/model"
	"github.com/nkoleva/sflogin/internal/repository"
	"github.com/nkoleva/sflogin/internal/salesforce"
)

// SettingsService owns the connected-app configuration: validation on
// update, the computed redirect URI, and translation into the provider
// config the callback needs.
//
// The redirect URI is derived from the server's public base URL and the
// fixed callback path. Admins see it but can never set it — the value
// registered at Salesforce has to match this server exactly.
type SettingsService struct {
	settings    repository.SettingsRepository
	redirectURI string
	logger      *slog.Logger
}

// CallbackPath is the route Salesforce redirects back to. It is part of the
// connected-app contract, so it is fixed here rather than configurable.
const CallbackPath = "/salesforce/callback"

// NewSettingsService creates a SettingsService. publicBaseURL is the
// scheme+host the service is reachable at, e.g. "https://app.example.com".
func NewSettingsService(settings repository.SettingsRepository, publicBaseURL string, logger *slog.Logger) *SettingsService {
	return &SettingsService{
		settings:    settings,
		redirectURI: strings.TrimRight(publicBaseURL, "/") + CallbackPath,
		logger:      logger,
	}
}

// Get returns the current settings with the computed redirect URI filled in,
// regardless of what (if anything) a previous version persisted for it.
func (s *SettingsService) Get(ctx context.Context) (*model.Settings, error) {
	settings, err := s.settings.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/settings: %w", err)
	}
	settings.RedirectURI = s.redirectURI
	return settings, nil
}

// SettingsUpdate carries the admin-editable fields. The redirect URI is
// deliberately absent.
type SettingsUpdate struct {
	LoginURL     string `json:"loginUrl"`
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
}

// Update validates and persists new connected-app settings. All three
// editable fields are required; the login URL must be an http(s) base URL.
func (s *SettingsService) Update(ctx context.Context, in SettingsUpdate) (*model.Settings, error) {
	in.LoginURL = strings.TrimSpace(in.LoginURL)
	in.ClientID = strings.TrimSpace(in.ClientID)
	in.ClientSecret = strings.TrimSpace(in.ClientSecret)

	if in.LoginURL == "" {
		return nil, apperror.ValidationFailed("login_url", "login_url is required")
	}
	if !strings.HasPrefix(in.LoginURL, "https://") && !strings.HasPrefix(in.LoginURL, "http://") {
		return nil, apperror.ValidationFailed("login_url", "login_url must be an http(s) URL")
	}
	if in.ClientID == "" {
		return nil, apperror.ValidationFailed("client_id", "client_id is required")
	}
	if in.ClientSecret == "" {
		return nil, apperror.ValidationFailed("client_secret", "client_secret is required")
	}

	settings := &model.Settings{
		LoginURL:     strings.TrimRight(in.LoginURL, "/"),
		ClientID:     in.ClientID,
		ClientSecret: in.ClientSecret,
		RedirectURI:  s.redirectURI,
	}
	if err := s.settings.Save(ctx, settings); err != nil {
		return nil, apperror.Persistence("saving settings", err)
	}

	s.logger.Info("connected-app settings updated",
		slog.String("loginURL", settings.LoginURL),
	)

	return settings, nil
}

// ProviderConfig loads the settings and shapes them into a salesforce.Config.
// Returns ErrValidation if the connected app has not been fully configured —
// the callback refuses to start an exchange against a half-configured app.
func (s *SettingsService) ProviderConfig(ctx context.Context) (salesforce.Config, error) {
	settings, err := s.Get(ctx)
	if err != nil {
		return salesforce.Config{}, err
	}
	if !settings.Complete() {
		return salesforce.Config{}, apperror.ValidationFailed("settings", "Salesforce login is not configured")
	}
	return salesforce.Config{
		LoginURL:     settings.LoginURL,
		ClientID:     settings.ClientID,
		ClientSecret: settings.ClientSecret,
		RedirectURI:  settings.RedirectURI,
	}, nil
}
