// Package repository declares the storage interfaces the rest of the
// application depends on. The sqlite subpackage provides the implementation;
// services only ever see these interfaces.
package repository

import (
	"context"

	"github.com/nkoleva/sflogin/internal/model"
)

// UserRepository persists local accounts and their provider links.
//
// GetByEmail is the lookup the account linker runs on every callback; the
// store's UNIQUE constraint on email is what makes "find by email" and
// "create with email" safe to run from concurrent first-time logins.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)

	// SetProviderLink inserts or wholesale-replaces the link row for
	// (link.UserID, link.Provider). There is never more than one.
	SetProviderLink(ctx context.Context, link *model.ProviderLink) error
	GetProviderLink(ctx context.Context, userID, provider string) (*model.ProviderLink, error)
}

// SettingsRepository persists the connected-app settings under the
// login_with_salesforce namespace. Load returns zero-value Settings (not an
// error) when nothing has been saved yet, so a fresh install starts with an
// empty admin form rather than a failure.
type SettingsRepository interface {
	Load(ctx context.Context) (*model.Settings, error)
	Save(ctx context.Context, settings *model.Settings) error
}
