package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/teamboard/internal/apperror"
	"github.com/sakif/teamboard/internal/model"
)

// newTestDB opens a fresh in-memory database per test and seeds two
// countries so profile foreign keys resolve (Italy = 1, France = 2).
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.SeedCountries(context.Background(), []string{"Italy", "France"}); err != nil {
		t.Fatalf("failed to seed countries: %v", err)
	}
	return db
}

func createTestUser(t *testing.T, db *DB, username string) *model.User {
	t.Helper()
	user := &model.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "$2a$04$hash",
	}
	if err := db.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

func createTestUserWithProfile(t *testing.T, db *DB, username string) (*model.User, *model.Profile) {
	t.Helper()
	user := &model.User{Username: username, Email: username + "@example.com"}
	profile := &model.Profile{Job: "job", Gender: model.GenderMale, CountryID: 1, Skills: "go,sql"}
	if err := db.CreateUserWithProfile(context.Background(), user, profile); err != nil {
		t.Fatalf("failed to create test user with profile: %v", err)
	}
	return user, profile
}

// =========================================================================
// CREATE TESTS
// =========================================================================

func TestCreateUser(t *testing.T) {
	db := newTestDB(t)

	user := &model.User{
		Username:  "testuser",
		Email:     "test@example.com",
		FirstName: "Test",
		LastName:  "User",
	}
	if err := db.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	if user.ID == "" {
		t.Error("CreateUser() did not set user.ID")
	}
	if user.CreatedAt.IsZero() || user.UpdatedAt.IsZero() {
		t.Error("CreateUser() did not set timestamps")
	}

	got, err := db.GetUserByID(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("GetUserByID() error = %v", err)
	}
	if got.Username != "testuser" || got.FirstName != "Test" || got.LastName != "User" {
		t.Errorf("GetUserByID() = %+v", got)
	}
	if got.IsStaff || got.IsSuperuser {
		t.Error("new user should not be privileged")
	}
	if got.GitHubID != nil {
		t.Errorf("GitHubID = %v, want nil", *got.GitHubID)
	}
}

func TestCreateUser_DuplicateUsername(t *testing.T) {
	db := newTestDB(t)
	createTestUser(t, db, "taken")

	err := db.CreateUser(context.Background(), &model.User{Username: "taken", Email: "other@example.com"})
	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("CreateUser() error = %v, want ErrConflict", err)
	}
	var appErr *apperror.AppError
	if errors.As(err, &appErr) && appErr.Field != "username" {
		t.Errorf("conflict field = %q, want username", appErr.Field)
	}
}

func TestCreateUser_DuplicateEmailIgnoresCase(t *testing.T) {
	db := newTestDB(t)
	createTestUser(t, db, "first")

	err := db.CreateUser(context.Background(), &model.User{Username: "second", Email: "FIRST@example.com"})
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) || appErr.Field != "email" {
		t.Fatalf("CreateUser() error = %v, want email conflict", err)
	}
}

func TestCreateUser_EmptyEmailsDoNotClash(t *testing.T) {
	db := newTestDB(t)

	for _, name := range []string{"gh-one", "gh-two"} {
		if err := db.CreateUser(context.Background(), &model.User{Username: name}); err != nil {
			t.Fatalf("CreateUser(%s) error = %v", name, err)
		}
	}
}

func TestCreateUser_GitHubID(t *testing.T) {
	db := newTestDB(t)
	ghID := int64(4242)

	user := &model.User{Username: "octocat", GitHubID: &ghID}
	if err := db.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	got, err := db.GetUserByGitHubID(context.Background(), ghID)
	if err != nil {
		t.Fatalf("GetUserByGitHubID() error = %v", err)
	}
	if got.ID != user.ID {
		t.Errorf("GetUserByGitHubID() id = %q, want %q", got.ID, user.ID)
	}

	_, err = db.GetUserByGitHubID(context.Background(), 1)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("unknown github id error = %v, want ErrNotFound", err)
	}
}

func TestCreateUserWithProfile(t *testing.T) {
	db := newTestDB(t)
	user, _ := createTestUserWithProfile(t, db, "withprofile")

	p, err := db.GetProfile(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("GetProfile() error = %v", err)
	}
	if p.Job != "job" || p.Gender != "M" || p.CountryID != 1 || p.Skills != "go,sql" {
		t.Errorf("GetProfile() = %+v", p)
	}
	if p.HasTeam() {
		t.Error("new profile should have no team")
	}
}

// A failing profile insert must roll back the user row as well.
func TestCreateUserWithProfile_RollsBack(t *testing.T) {
	db := newTestDB(t)

	user := &model.User{Username: "orphan", Email: "orphan@example.com"}
	profile := &model.Profile{Job: "job", Gender: "M", CountryID: 999}
	if err := db.CreateUserWithProfile(context.Background(), user, profile); err == nil {
		t.Fatal("CreateUserWithProfile() should fail for unknown country")
	}

	exists, err := db.UsernameExists(context.Background(), "orphan")
	if err != nil {
		t.Fatalf("UsernameExists() error = %v", err)
	}
	if exists {
		t.Error("user row survived a failed transaction")
	}
}

// =========================================================================
// LOOKUP TESTS
// =========================================================================

func TestGetUserByID_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetUserByID(context.Background(), "nonexistent-id")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("GetUserByID() error = %v, want ErrNotFound", err)
	}
}

func TestGetUserByUsername(t *testing.T) {
	db := newTestDB(t)
	created := createTestUser(t, db, "alice")

	got, err := db.GetUserByUsername(context.Background(), "alice")
	if err != nil {
		t.Fatalf("GetUserByUsername() error = %v", err)
	}
	if got.ID != created.ID {
		t.Errorf("id = %q, want %q", got.ID, created.ID)
	}
	if got.PasswordHash != "$2a$04$hash" {
		t.Errorf("PasswordHash = %q", got.PasswordHash)
	}

	if _, err := db.GetUserByUsername(context.Background(), "ALICE"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("usernames should be case-sensitive, got %v", err)
	}
}

func TestListUsersByEmail(t *testing.T) {
	db := newTestDB(t)
	createTestUser(t, db, "bob")

	users, err := db.ListUsersByEmail(context.Background(), "BOB@example.com")
	if err != nil {
		t.Fatalf("ListUsersByEmail() error = %v", err)
	}
	if len(users) != 1 || users[0].Username != "bob" {
		t.Errorf("ListUsersByEmail() = %+v", users)
	}

	users, err = db.ListUsersByEmail(context.Background(), "nobody@example.com")
	if err != nil {
		t.Fatalf("ListUsersByEmail() error = %v", err)
	}
	if len(users) != 0 {
		t.Errorf("expected no users, got %d", len(users))
	}
}

func TestExistsChecks(t *testing.T) {
	db := newTestDB(t)
	createTestUser(t, db, "carol")
	ctx := context.Background()

	if ok, _ := db.UsernameExists(ctx, "carol"); !ok {
		t.Error("UsernameExists(carol) = false")
	}
	if ok, _ := db.UsernameExists(ctx, "dave"); ok {
		t.Error("UsernameExists(dave) = true")
	}
	if ok, _ := db.EmailExists(ctx, "Carol@Example.com"); !ok {
		t.Error("EmailExists should ignore case")
	}
	if ok, _ := db.EmailExists(ctx, ""); ok {
		t.Error("EmailExists(\"\") should be false")
	}
}

func TestSetPassword(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "erin")

	if err := db.SetPassword(context.Background(), user.ID, "$2a$04$new"); err != nil {
		t.Fatalf("SetPassword() error = %v", err)
	}
	got, _ := db.GetUserByID(context.Background(), user.ID)
	if got.PasswordHash != "$2a$04$new" {
		t.Errorf("PasswordHash = %q", got.PasswordHash)
	}

	if err := db.SetPassword(context.Background(), "missing", "x"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("SetPassword(missing) error = %v, want ErrNotFound", err)
	}
}
