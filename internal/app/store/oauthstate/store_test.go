package oauthstate_test

import (
	"testing"
	"time"

	"github.com/dalemusser/hirehub/internal/app/store/oauthstate"
	"github.com/dalemusser/hirehub/internal/app/system/indexes"
	"github.com/dalemusser/hirehub/internal/testutil"
)

func TestStore_Validate_ReturnsCorrectData(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := oauthstate.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	err := store.Save(ctx, oauthstate.State{
		State:     "state-1",
		Provider:  "linear",
		UserID:    "u1",
		ReturnURL: "/settings",
		ExpiresAt: time.Now().Add(10 * time.Minute),
	})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	st, valid, err := store.Validate(ctx, "linear", "state-1")
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if !valid {
		t.Fatal("expected state to be valid")
	}
	if st.UserID != "u1" || st.ReturnURL != "/settings" {
		t.Errorf("unexpected state: %+v", st)
	}
}

func TestStore_Validate_Rejects(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := oauthstate.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	for _, st := range []oauthstate.State{
		{State: "live", Provider: "linear", ExpiresAt: time.Now().Add(time.Hour)},
		{State: "expired", Provider: "linear", ExpiresAt: time.Now().Add(-time.Minute)},
	} {
		if err := store.Save(ctx, st); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	tests := []struct {
		name     string
		provider string
		state    string
	}{
		{"unknown state", "linear", "nope"},
		{"expired", "linear", "expired"},
		{"other provider", "github", "live"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, valid, err := store.Validate(ctx, tt.provider, tt.state)
			if err != nil {
				t.Fatalf("Validate failed: %v", err)
			}
			if valid {
				t.Error("expected state to be rejected")
			}
		})
	}
}

func TestStore_Validate_SingleUse(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := oauthstate.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := store.Save(ctx, oauthstate.State{State: "once", Provider: "linear", ExpiresAt: time.Now().Add(time.Minute)}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, valid, _ := store.Validate(ctx, "linear", "once"); !valid {
		t.Fatal("first validation should succeed")
	}
	if _, valid, _ := store.Validate(ctx, "linear", "once"); valid {
		t.Error("second validation should fail")
	}
}

func TestStore_CleanupExpired(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := oauthstate.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	for i, exp := range []time.Duration{-time.Hour, -time.Minute, time.Hour} {
		st := oauthstate.State{State: string(rune('a' + i)), Provider: "linear", ExpiresAt: time.Now().Add(exp)}
		if err := store.Save(ctx, st); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	n, err := store.CleanupExpired(ctx)
	if err != nil {
		t.Fatalf("CleanupExpired failed: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 deleted, got %d", n)
	}
	if _, valid, _ := store.Validate(ctx, "linear", "c"); !valid {
		t.Error("unexpired state should survive cleanup")
	}
}

func TestStore_Save_DuplicateState(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}
	store := oauthstate.New(db)

	st := oauthstate.State{State: "dup", Provider: "linear", ExpiresAt: time.Now().Add(time.Minute)}
	if err := store.Save(ctx, st); err != nil {
		t.Fatalf("first Save failed: %v", err)
	}
	if err := store.Save(ctx, st); err == nil {
		t.Error("expected duplicate state to be rejected")
	}
}
