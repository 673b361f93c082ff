package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/nkoleva/sflogin/internal/apperror"
	"github.com/nkoleva/sflogin/internal/auth"
	"github.com/nkoleva/sflogin/internal/model"
	"github.com/nkoleva/sflogin/internal/salesforce"
)

// fakeUserRepo is an in-memory implementation of repository.UserRepository.
// A fake (not a mock framework) keeps these tests dependency-free and easy to
// read — you can see exactly what the fake does.
type fakeUserRepo struct {
	byID    map[string]*model.User
	byEmail map[string]*model.User
	links   map[string]*model.ProviderLink // keyed by userID+"/"+provider
	nextID  int

	// set to a non-nil error to simulate a store failure
	createErr error
	linkErr   error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		byID:    make(map[string]*model.User),
		byEmail: make(map[string]*model.User),
		links:   make(map[string]*model.ProviderLink),
		nextID:  1,
	}
}

func (f *fakeUserRepo) Create(ctx context.Context, user *model.User) error {
	if f.createErr != nil {
		return f.createErr
	}
	if _, exists := f.byEmail[user.Email]; exists {
		return apperror.Conflict("user", user.Email)
	}
	user.ID = "user-fake-id-" + string(rune('0'+f.nextID))
	f.nextID++
	user.CreatedAt = time.Now()
	user.UpdatedAt = time.Now()
	copied := *user
	f.byID[user.ID] = &copied
	f.byEmail[user.Email] = &copied
	return nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	return u, nil
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	u, ok := f.byEmail[email]
	if !ok {
		return nil, apperror.NotFound("user", email)
	}
	return u, nil
}

func (f *fakeUserRepo) SetProviderLink(ctx context.Context, link *model.ProviderLink) error {
	if f.linkErr != nil {
		return f.linkErr
	}
	copied := *link
	f.links[link.UserID+"/"+link.Provider] = &copied
	return nil
}

func (f *fakeUserRepo) GetProviderLink(ctx context.Context, userID, provider string) (*model.ProviderLink, error) {
	l, ok := f.links[userID+"/"+provider]
	if !ok {
		return nil, apperror.NotFound("provider link", userID)
	}
	return l, nil
}

// newTestLoginService returns a LoginService wired with fake dependencies.
func newTestLoginService(t *testing.T, repo *fakeUserRepo) *LoginService {
	t.Helper()

	ts, err := auth.NewTokenService("test-secret-at-least-16-chars!!")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}

	// Cost 4 is bcrypt minimum — makes tests fast
	ps := auth.NewPasswordServiceForTest(4)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewLoginService(repo, ts, ps, logger)
}

func testTokens() *salesforce.TokenResponse {
	return &salesforce.TokenResponse{
		IdentityURL:  "https://idp/id/U1",
		AccessToken:  "tok1",
		RefreshToken: "ref1",
		IssuedAt:     "1700000000",
	}
}

func TestLinkAndLogin_ProvisionsNewAccount(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestLoginService(t, repo)

	profile := &salesforce.Profile{Email: "a@example.com", Username: "alice"}

	result, err := svc.LinkAndLogin(context.Background(), profile, testTokens())
	if err != nil {
		t.Fatalf("LinkAndLogin() error = %v", err)
	}

	if result.Token == "" {
		t.Fatal("LinkAndLogin() returned empty session token")
	}
	if result.User.ID == "" {
		t.Fatal("LinkAndLogin() user has no ID")
	}
	if result.User.Email != "a@example.com" || result.User.Username != "alice" {
		t.Errorf("provisioned user = %+v", result.User)
	}
	if !result.User.Active {
		t.Error("provisioned user is not active")
	}
	if result.User.PasswordHash == "" {
		t.Error("provisioned user has no password hash")
	}

	link, err := repo.GetProviderLink(context.Background(), result.User.ID, model.ProviderSalesforce)
	if err != nil {
		t.Fatalf("GetProviderLink() after login error = %v", err)
	}
	if link.ProviderUserID != "https://idp/id/U1" {
		t.Errorf("link.ProviderUserID = %q, want the identity URL", link.ProviderUserID)
	}
	if link.AccessToken != "tok1" || link.RefreshToken != "ref1" || link.IssuedAt != "1700000000" {
		t.Errorf("link tokens = %+v", link)
	}
}

func TestLinkAndLogin_LinksExistingAccount(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestLoginService(t, repo)

	existing := &model.User{Email: "a@example.com", Username: "alice", PasswordHash: "hash", Active: true}
	if err := repo.Create(context.Background(), existing); err != nil {
		t.Fatalf("seeding user: %v", err)
	}

	profile := &salesforce.Profile{Email: "a@example.com", Username: "alice"}

	result, err := svc.LinkAndLogin(context.Background(), profile, testTokens())
	if err != nil {
		t.Fatalf("LinkAndLogin() error = %v", err)
	}

	// Must reuse the existing account, not create a second one
	if result.User.ID != existing.ID {
		t.Errorf("LinkAndLogin() user ID = %q, want existing %q", result.User.ID, existing.ID)
	}
	if len(repo.byID) != 1 {
		t.Errorf("store has %d users after second login, want 1", len(repo.byID))
	}

	if _, err := repo.GetProviderLink(context.Background(), existing.ID, model.ProviderSalesforce); err != nil {
		t.Errorf("existing account has no provider link after login: %v", err)
	}
}

func TestLinkAndLogin_SecondLoginReplacesLink(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestLoginService(t, repo)

	profile := &salesforce.Profile{Email: "a@example.com", Username: "alice"}

	first, err := svc.LinkAndLogin(context.Background(), profile, testTokens())
	if err != nil {
		t.Fatalf("first LinkAndLogin() error = %v", err)
	}

	newer := &salesforce.TokenResponse{
		IdentityURL:  "https://idp/id/U1",
		AccessToken:  "tok2",
		RefreshToken: "ref2",
		IssuedAt:     "1700009999",
	}
	second, err := svc.LinkAndLogin(context.Background(), profile, newer)
	if err != nil {
		t.Fatalf("second LinkAndLogin() error = %v", err)
	}

	if second.User.ID != first.User.ID {
		t.Errorf("second login user ID = %q, want %q (no duplicate account)", second.User.ID, first.User.ID)
	}

	link, err := repo.GetProviderLink(context.Background(), first.User.ID, model.ProviderSalesforce)
	if err != nil {
		t.Fatalf("GetProviderLink() error = %v", err)
	}
	if link.AccessToken != "tok2" || link.IssuedAt != "1700009999" {
		t.Errorf("link after second login = %+v, want the newer tokens", link)
	}
}

func TestLinkAndLogin_CreateFailure(t *testing.T) {
	repo := newFakeUserRepo()
	repo.createErr = errors.New("database is on fire")
	svc := newTestLoginService(t, repo)

	profile := &salesforce.Profile{Email: "a@example.com", Username: "alice"}

	_, err := svc.LinkAndLogin(context.Background(), profile, testTokens())
	if !errors.Is(err, apperror.ErrPersistence) {
		t.Errorf("LinkAndLogin() error = %v, want ErrPersistence", err)
	}
	if len(repo.links) != 0 {
		t.Error("provider link was written despite the failed create")
	}
}

func TestLinkAndLogin_LinkFailureIssuesNoSession(t *testing.T) {
	repo := newFakeUserRepo()
	repo.linkErr = errors.New("disk full")
	svc := newTestLoginService(t, repo)

	profile := &salesforce.Profile{Email: "a@example.com", Username: "alice"}

	result, err := svc.LinkAndLogin(context.Background(), profile, testTokens())
	if !errors.Is(err, apperror.ErrPersistence) {
		t.Errorf("LinkAndLogin() error = %v, want ErrPersistence", err)
	}
	if result != nil {
		t.Error("LinkAndLogin() returned a result despite the persistence failure")
	}
}

func TestLinkAndLogin_TokenIsValidSession(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestLoginService(t, repo)

	profile := &salesforce.Profile{Email: "a@example.com", Username: "alice"}

	result, err := svc.LinkAndLogin(context.Background(), profile, testTokens())
	if err != nil {
		t.Fatalf("LinkAndLogin() error = %v", err)
	}

	// The issued token must validate and carry the linked user's ID
	ts, err := auth.NewTokenService("test-secret-at-least-16-chars!!")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	userID, err := ts.Validate(result.Token)
	if err != nil {
		t.Fatalf("Validate() on issued token error = %v", err)
	}
	if userID != result.User.ID {
		t.Errorf("session subject = %q, want %q", userID, result.User.ID)
	}
}
