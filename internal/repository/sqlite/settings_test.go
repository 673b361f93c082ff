package sqlite

import (
	"context"
	"testing"

	"github.com/nkoleva/sflogin/internal/model"
)

func TestSettingsLoad_FreshInstall(t *testing.T) {
	db := newTestDB(t)

	s, err := db.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() on fresh database error = %v", err)
	}

	// Nothing saved yet → zero values, not an error
	if s.LoginURL != "" || s.ClientID != "" || s.ClientSecret != "" || s.RedirectURI != "" {
		t.Errorf("Load() on fresh database = %+v, want zero values", s)
	}
	if s.Complete() {
		t.Error("Complete() = true for empty settings")
	}
}

func TestSettingsSaveAndLoad(t *testing.T) {
	db := newTestDB(t)

	in := &model.Settings{
		LoginURL:     "https://login.salesforce.com",
		ClientID:     "consumer-key",
		ClientSecret: "consumer-secret",
		RedirectURI:  "https://app.example.com/salesforce/callback",
	}
	if err := db.Save(context.Background(), in); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := db.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if *got != *in {
		t.Errorf("Load() = %+v, want %+v", got, in)
	}
	if !got.Complete() {
		t.Error("Complete() = false for fully saved settings")
	}
}

func TestSettingsSave_Overwrites(t *testing.T) {
	db := newTestDB(t)

	first := &model.Settings{
		LoginURL:     "https://login.salesforce.com",
		ClientID:     "old-key",
		ClientSecret: "old-secret",
		RedirectURI:  "https://app.example.com/salesforce/callback",
	}
	if err := db.Save(context.Background(), first); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	second := &model.Settings{
		LoginURL:     "https://test.salesforce.com",
		ClientID:     "new-key",
		ClientSecret: "new-secret",
		RedirectURI:  "https://app.example.com/salesforce/callback",
	}
	if err := db.Save(context.Background(), second); err != nil {
		t.Fatalf("Save() second call error = %v", err)
	}

	got, err := db.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if *got != *second {
		t.Errorf("Load() after overwrite = %+v, want %+v", got, second)
	}
}
