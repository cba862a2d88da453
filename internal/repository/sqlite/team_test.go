package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/teamboard/internal/apperror"
	"github.com/sakif/teamboard/internal/model"
	"github.com/sakif/teamboard/internal/repository"
)

// =========================================================================
// COUNTRY TESTS
// =========================================================================

func TestSeedCountries_OrderAndIdempotence(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	// Seeding again (with one new name) must not duplicate or renumber.
	if err := db.SeedCountries(ctx, []string{"Italy", " ", "Spain"}); err != nil {
		t.Fatalf("SeedCountries() error = %v", err)
	}

	italy, err := db.GetCountry(ctx, 1)
	if err != nil {
		t.Fatalf("GetCountry(1) error = %v", err)
	}
	if italy.Name != "Italy" {
		t.Errorf("country 1 = %q, want Italy", italy.Name)
	}

	countries, err := db.ListCountries(ctx)
	if err != nil {
		t.Fatalf("ListCountries() error = %v", err)
	}
	if len(countries) != 3 {
		t.Fatalf("ListCountries() returned %d, want 3", len(countries))
	}
	if countries[0].Name != "France" {
		t.Errorf("countries should be sorted by name, first = %q", countries[0].Name)
	}

	if _, err := db.GetCountry(ctx, 99); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetCountry(99) error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// PROFILE TESTS
// =========================================================================

func TestGetProfile_Missing(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "noprofile")

	_, err := db.GetProfile(context.Background(), user.ID)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("GetProfile() error = %v, want ErrNotFound", err)
	}
}

func TestSaveProfile_InsertThenUpdateKeepsTeam(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db, "frank")

	p := &model.Profile{UserID: user.ID, Job: "dev", Gender: "O", CountryID: 2}
	if err := db.SaveProfile(ctx, p); err != nil {
		t.Fatalf("SaveProfile() insert error = %v", err)
	}

	team := &model.Team{Name: "Blue"}
	if err := db.CreateTeam(ctx, team, user.ID); err != nil {
		t.Fatalf("CreateTeam() error = %v", err)
	}

	update := &model.Profile{UserID: user.ID, Job: "lead", Gender: "O", CountryID: 1, Skills: "a,b"}
	if err := db.SaveProfile(ctx, update); err != nil {
		t.Fatalf("SaveProfile() update error = %v", err)
	}

	got, err := db.GetProfile(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetProfile() error = %v", err)
	}
	if got.Job != "lead" || got.CountryID != 1 || got.Skills != "a,b" {
		t.Errorf("GetProfile() = %+v", got)
	}
	if !got.HasTeam() || *got.TeamID != team.ID {
		t.Error("SaveProfile() must not clear team membership")
	}
}

func TestSetTeam_NoProfile(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "ghost")
	teamID := "x"

	err := db.SetTeam(context.Background(), user.ID, &teamID)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("SetTeam() error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// TEAM TESTS
// =========================================================================

func TestCreateTeam_OwnerJoins(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	owner, _ := createTestUserWithProfile(t, db, "owner")

	team := &model.Team{Name: "Red"}
	if err := db.CreateTeam(ctx, team, owner.ID); err != nil {
		t.Fatalf("CreateTeam() error = %v", err)
	}
	if team.ID == "" || team.CreatedBy != owner.ID {
		t.Errorf("CreateTeam() = %+v", team)
	}

	members, err := db.ListMembers(ctx, team.ID)
	if err != nil {
		t.Fatalf("ListMembers() error = %v", err)
	}
	if len(members) != 1 || members[0].Username != "owner" || members[0].Job != "job" {
		t.Errorf("ListMembers() = %+v", members)
	}
}

func TestCreateTeam_DuplicateName(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	a, _ := createTestUserWithProfile(t, db, "a")
	b, _ := createTestUserWithProfile(t, db, "b")

	if err := db.CreateTeam(ctx, &model.Team{Name: "Dup"}, a.ID); err != nil {
		t.Fatalf("first CreateTeam() error = %v", err)
	}
	err := db.CreateTeam(ctx, &model.Team{Name: "Dup"}, b.ID)
	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("second CreateTeam() error = %v, want ErrConflict", err)
	}

	p, _ := db.GetProfile(ctx, b.ID)
	if p.HasTeam() {
		t.Error("failed CreateTeam must not move the owner")
	}
}

func TestCreateTeam_OwnerWithoutProfileRollsBack(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db, "lonely")

	if err := db.CreateTeam(ctx, &model.Team{Name: "Solo"}, user.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("CreateTeam() error = %v, want ErrNotFound", err)
	}
	teams, _ := db.ListTeams(ctx, repository.ListOptions{})
	if len(teams) != 0 {
		t.Errorf("team row survived rollback: %+v", teams)
	}
}

func TestListTeams_Pagination(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	for _, name := range []string{"c", "a", "b"} {
		u, _ := createTestUserWithProfile(t, db, "owner-"+name)
		if err := db.CreateTeam(ctx, &model.Team{Name: name}, u.ID); err != nil {
			t.Fatalf("CreateTeam(%s) error = %v", name, err)
		}
	}

	teams, err := db.ListTeams(ctx, repository.ListOptions{Limit: 2, Offset: 1})
	if err != nil {
		t.Fatalf("ListTeams() error = %v", err)
	}
	if len(teams) != 2 || teams[0].Name != "b" || teams[1].Name != "c" {
		t.Errorf("ListTeams() = %+v", teams)
	}
}

func TestDeleteTeam_DetachesMembers(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	owner, _ := createTestUserWithProfile(t, db, "owner")
	team := &model.Team{Name: "Gone"}
	if err := db.CreateTeam(ctx, team, owner.ID); err != nil {
		t.Fatalf("CreateTeam() error = %v", err)
	}

	if err := db.DeleteTeam(ctx, team.ID); err != nil {
		t.Fatalf("DeleteTeam() error = %v", err)
	}

	p, _ := db.GetProfile(ctx, owner.ID)
	if p.HasTeam() {
		t.Error("member still attached to deleted team")
	}
	if _, err := db.GetTeam(ctx, team.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetTeam() after delete error = %v, want ErrNotFound", err)
	}
	if err := db.DeleteTeam(ctx, team.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("second DeleteTeam() error = %v, want ErrNotFound", err)
	}
}
