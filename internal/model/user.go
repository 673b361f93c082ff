// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a local user account.
//
// Accounts are provisioned through the Salesforce login flow: the first time a
// Salesforce identity with an unknown email completes the callback, a User is
// created for it. Email is the join key between the local account and the
// Salesforce identity, so the users table carries a UNIQUE constraint on it.
//
// PasswordHash holds a bcrypt hash of a random password generated at
// provisioning time. The plaintext is never stored or disclosed anywhere, so a
// provisioned account is reachable only through the Salesforce flow.
type User struct {
	ID           string    `json:"id"        db:"id"`
	Email        string    `json:"email"     db:"email"`
	Username     string    `json:"username"  db:"username"`
	PasswordHash string    `json:"-"         db:"password_hash"`
	Active       bool      `json:"active"    db:"active"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

// ProviderLink ties a local account to an identity-provider identity and holds
// the tokens obtained on the most recent login.
//
// There is at most one link per (user, provider) pair; every successful login
// replaces the row wholesale. The link has no lifecycle of its own — it lives
// and dies with its owning User.
//
// IssuedAt is the `issued_at` value from the provider's token response, kept as
// the opaque string the provider sends (Salesforce uses epoch milliseconds).
type ProviderLink struct {
	UserID         string    `json:"userId"         db:"user_id"`
	Provider       string    `json:"provider"       db:"provider"`
	ProviderUserID string    `json:"providerUserId" db:"provider_user_id"`
	AccessToken    string    `json:"-"              db:"access_token"`
	RefreshToken   string    `json:"-"              db:"refresh_token"`
	IssuedAt       string    `json:"issuedAt"       db:"issued_at"`
	UpdatedAt      time.Time `json:"updatedAt"      db:"updated_at"`
}

// ProviderSalesforce is the provider key used for ProviderLink rows written by
// the Salesforce login flow. It doubles as the settings namespace.
const ProviderSalesforce = "login_with_salesforce"
