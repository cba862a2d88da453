package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sakif/teamboard/internal/apperror"
	"github.com/sakif/teamboard/internal/auth"
	"github.com/sakif/teamboard/internal/mailer"
	"github.com/sakif/teamboard/internal/model"
	"github.com/sakif/teamboard/internal/repository"
)

// =========================================================================
// FAKES AND HELPERS
// =========================================================================

// fakeStore is an in-memory repository.Store. It enforces the same unique
// constraints as the SQL backends so conflict handling can be tested.
type fakeStore struct {
	mu        sync.Mutex
	users     map[string]*model.User
	profiles  map[string]*model.Profile
	countries []model.Country
	teams     map[string]*model.Team
	nextID    int

	// set to simulate a database failure
	createErr error
}

var _ repository.Store = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:    make(map[string]*model.User),
		profiles: make(map[string]*model.Profile),
		teams:    make(map[string]*model.Team),
		countries: []model.Country{
			{ID: 1, Name: "Italy"},
			{ID: 2, Name: "France"},
		},
	}
}

func (f *fakeStore) newID(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s-%d", prefix, f.nextID)
}

func (f *fakeStore) insertUserLocked(user *model.User) error {
	for _, u := range f.users {
		if u.Username == user.Username {
			return apperror.Conflict("user", "username", user.Username)
		}
		if user.Email != "" && strings.EqualFold(u.Email, user.Email) {
			return apperror.Conflict("user", "email", user.Email)
		}
	}
	user.ID = f.newID("user")
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	copied := *user
	f.users[user.ID] = &copied
	return nil
}

func (f *fakeStore) CreateUser(_ context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	return f.insertUserLocked(user)
}

func (f *fakeStore) CreateUserWithProfile(_ context.Context, user *model.User, profile *model.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	if err := f.insertUserLocked(user); err != nil {
		return err
	}
	profile.UserID = user.ID
	copied := *profile
	f.profiles[user.ID] = &copied
	return nil
}

func (f *fakeStore) GetUserByID(_ context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	copied := *u
	return &copied, nil
}

func (f *fakeStore) GetUserByUsername(_ context.Context, username string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == username {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("user", username)
}

func (f *fakeStore) GetUserByGitHubID(_ context.Context, githubID int64) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.GitHubID != nil && *u.GitHubID == githubID {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("user", fmt.Sprintf("github:%d", githubID))
}

func (f *fakeStore) ListUsersByEmail(_ context.Context, email string) ([]model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.User
	for _, u := range f.users {
		if u.Email != "" && strings.EqualFold(u.Email, email) {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (f *fakeStore) UsernameExists(ctx context.Context, username string) (bool, error) {
	_, err := f.GetUserByUsername(ctx, username)
	return err == nil, nil
}

func (f *fakeStore) EmailExists(ctx context.Context, email string) (bool, error) {
	users, _ := f.ListUsersByEmail(ctx, email)
	return len(users) > 0, nil
}

func (f *fakeStore) SetPassword(_ context.Context, userID, passwordHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return apperror.NotFound("user", userID)
	}
	u.PasswordHash = passwordHash
	return nil
}

func (f *fakeStore) GetProfile(_ context.Context, userID string) (*model.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[userID]
	if !ok {
		return nil, apperror.NotFound("profile", userID)
	}
	copied := *p
	return &copied, nil
}

func (f *fakeStore) SaveProfile(_ context.Context, profile *model.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *profile
	if existing, ok := f.profiles[profile.UserID]; ok {
		copied.TeamID = existing.TeamID
	}
	f.profiles[profile.UserID] = &copied
	return nil
}

func (f *fakeStore) SetTeam(_ context.Context, userID string, teamID *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[userID]
	if !ok {
		return apperror.NotFound("profile", userID)
	}
	p.TeamID = teamID
	return nil
}

func (f *fakeStore) SeedCountries(_ context.Context, names []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, name := range names {
		found := false
		for _, c := range f.countries {
			found = found || c.Name == name
		}
		if !found {
			f.countries = append(f.countries, model.Country{ID: int64(len(f.countries) + 1), Name: name})
		}
	}
	return nil
}

func (f *fakeStore) ListCountries(_ context.Context) ([]model.Country, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Country(nil), f.countries...), nil
}

func (f *fakeStore) GetCountry(_ context.Context, id int64) (*model.Country, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.countries {
		if c.ID == id {
			copied := c
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("country", fmt.Sprint(id))
}

func (f *fakeStore) CreateTeam(_ context.Context, team *model.Team, ownerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.teams {
		if t.Name == team.Name {
			return apperror.Conflict("team", "name", team.Name)
		}
	}
	p, ok := f.profiles[ownerID]
	if !ok {
		return apperror.NotFound("profile", ownerID)
	}
	team.ID = f.newID("team")
	team.CreatedAt = time.Now()
	copied := *team
	f.teams[team.ID] = &copied
	id := team.ID
	p.TeamID = &id
	return nil
}

func (f *fakeStore) GetTeam(_ context.Context, id string) (*model.Team, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.teams[id]
	if !ok {
		return nil, apperror.NotFound("team", id)
	}
	copied := *t
	return &copied, nil
}

func (f *fakeStore) ListTeams(_ context.Context, opts repository.ListOptions) ([]model.Team, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Team, 0, len(f.teams))
	for _, t := range f.teams {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	if opts.Offset >= len(out) {
		return nil, nil
	}
	out = out[opts.Offset:]
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (f *fakeStore) ListMembers(_ context.Context, teamID string) ([]model.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Member
	for userID, p := range f.profiles {
		if p.TeamID == nil || *p.TeamID != teamID {
			continue
		}
		u := f.users[userID]
		out = append(out, model.Member{
			UserID:    userID,
			Username:  u.Username,
			FirstName: u.FirstName,
			LastName:  u.LastName,
			Job:       p.Job,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (f *fakeStore) DeleteTeam(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.teams[id]; !ok {
		return apperror.NotFound("team", id)
	}
	for _, p := range f.profiles {
		if p.TeamID != nil && *p.TeamID == id {
			p.TeamID = nil
		}
	}
	delete(f.teams, id)
	return nil
}

func (f *fakeStore) Ping(context.Context) error { return nil }
func (f *fakeStore) Close() error               { return nil }

// addUser stores a user with the given password (empty means unusable) and,
// when withProfile is set, a profile without team.
func (f *fakeStore) addUser(t *testing.T, username, password string, withProfile bool) *model.User {
	t.Helper()
	user := &model.User{Username: username, Email: username + "@example.com"}
	if password != "" {
		hash, err := testPasswords.Hash(password)
		if err != nil {
			t.Fatalf("Hash: %v", err)
		}
		user.PasswordHash = hash
	}
	var err error
	if withProfile {
		err = f.CreateUserWithProfile(context.Background(), user, &model.Profile{
			Job: "Engineer", Gender: model.GenderOther, CountryID: 1,
		})
	} else {
		err = f.CreateUser(context.Background(), user)
	}
	if err != nil {
		t.Fatalf("adding user %q: %v", username, err)
	}
	return user
}

// fakeTokens is an in-memory repository.ResetTokenRepository.
type fakeTokens struct {
	mu     sync.Mutex
	tokens map[string]string
}

func newFakeTokens() *fakeTokens {
	return &fakeTokens{tokens: make(map[string]string)}
}

func (f *fakeTokens) Save(_ context.Context, token, userID string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens[token] = userID
	return nil
}

func (f *fakeTokens) Lookup(_ context.Context, token string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	userID, ok := f.tokens[token]
	if !ok {
		return "", apperror.NotFound("reset token", token)
	}
	return userID, nil
}

func (f *fakeTokens) Consume(ctx context.Context, token string) (string, error) {
	userID, err := f.Lookup(ctx, token)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	delete(f.tokens, token)
	f.mu.Unlock()
	return userID, nil
}

// fakeMailer records every reset email.
type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

type sentMail struct {
	To   string
	Data mailer.PasswordResetData
}

func (m *fakeMailer) SendPasswordReset(_ context.Context, to string, data mailer.PasswordResetData) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{To: to, Data: data})
	return nil
}

// Cost 4 is the bcrypt minimum; it keeps the tests fast.
var testPasswords = auth.NewPasswordServiceForTest(4)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestTokenService(t *testing.T) *auth.TokenService {
	t.Helper()
	ts, err := auth.NewTokenService("test-secret-at-least-16-chars!!", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return ts
}
