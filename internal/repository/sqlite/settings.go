package sqlite

import (
	"context"
	"fmt"

	"github.com/nkoleva/sflogin/internal/model"
	"github.com/nkoleva/sflogin/internal/repository"
)

// compile-time check that *DB implements repository.SettingsRepository
var _ repository.SettingsRepository = (*DB)(nil)

// Settings are stored as rows under the login_with_salesforce namespace, one
// row per field, mirroring how the configuration was originally persisted as
// named keys rather than a single blob.
const settingsNamespace = model.ProviderSalesforce

// Load reads the connected-app settings. Fields with no saved row come back
// as empty strings; a never-configured install gets zero-value Settings and
// no error.
func (db *DB) Load(ctx context.Context) (*model.Settings, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT name, value FROM settings WHERE namespace = ?`,
		settingsNamespace,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: loading settings: %w", err)
	}
	defer rows.Close()

	var s model.Settings
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, fmt.Errorf("sqlite: scanning settings row: %w", err)
		}
		switch name {
		case "login_url":
			s.LoginURL = value
		case "client_id":
			s.ClientID = value
		case "client_secret":
			s.ClientSecret = value
		case "redirect_uri":
			s.RedirectURI = value
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating settings rows: %w", err)
	}

	return &s, nil
}

// Save writes all four settings inside one transaction so a torn write can't
// leave the connected app half-configured.
func (db *DB) Save(ctx context.Context, settings *model.Settings) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning settings transaction: %w", err)
	}
	defer tx.Rollback()

	pairs := map[string]string{
		"login_url":     settings.LoginURL,
		"client_id":     settings.ClientID,
		"client_secret": settings.ClientSecret,
		"redirect_uri":  settings.RedirectURI,
	}

	for name, value := range pairs {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO settings (namespace, name, value) VALUES (?, ?, ?)
			 ON CONFLICT (namespace, name) DO UPDATE SET value = excluded.value`,
			settingsNamespace, name, value,
		)
		if err != nil {
			return fmt.Errorf("sqlite: saving setting %s: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing settings: %w", err)
	}

	return nil
}
