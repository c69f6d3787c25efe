package queries

import (
	"context"
	"errors"
	"testing"
	"time"

	"rolewarden/contexts/access-control/grant-lifecycle/adapters/memory"
	domainerrors "rolewarden/contexts/access-control/grant-lifecycle/domain/errors"
	"rolewarden/contexts/access-control/grant-lifecycle/ports"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

func TestListActiveRejectsInvalidIdentifiers(t *testing.T) {
	useCase := ListActiveUseCase{Grants: memory.NewStore(), Clock: fixedClock{now: time.Now().UTC()}}

	if _, err := useCase.Execute(context.Background(), 0, 10); !errors.Is(err, domainerrors.ErrInvalidPrincipalID) {
		t.Fatalf("expected invalid principal, got %v", err)
	}
	if _, err := useCase.Execute(context.Background(), 1, 0); !errors.Is(err, domainerrors.ErrInvalidRealmID) {
		t.Fatalf("expected invalid realm, got %v", err)
	}
}

func TestListActiveExcludesExpiredRows(t *testing.T) {
	store := memory.NewStore()
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

	seed := []ports.UpsertGrantInput{
		{GrantID: "g-active", PrincipalID: 1, RealmID: 10, RoleID: 99, ExpiresAt: now.Add(time.Hour), CreatedAt: now},
		{GrantID: "g-expired", PrincipalID: 1, RealmID: 10, RoleID: 98, ExpiresAt: now.Add(-time.Hour), CreatedAt: now.Add(-2 * time.Hour)},
	}
	for _, input := range seed {
		if _, err := store.Upsert(context.Background(), input); err != nil {
			t.Fatalf("seed upsert failed: %v", err)
		}
	}

	useCase := ListActiveUseCase{Grants: store, Clock: fixedClock{now: now}}
	grants, err := useCase.Execute(context.Background(), 1, 10)
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if len(grants) != 1 || grants[0].GrantID != "g-active" {
		t.Fatalf("unexpected active grants %v", grants)
	}
}

func TestCountIncludesStaleRows(t *testing.T) {
	store := memory.NewStore()
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

	seed := []ports.UpsertGrantInput{
		{GrantID: "g-active", PrincipalID: 1, RealmID: 10, RoleID: 99, ExpiresAt: now.Add(time.Hour), CreatedAt: now},
		{GrantID: "g-stale", PrincipalID: 2, RealmID: 10, RoleID: 98, ExpiresAt: now.Add(-time.Hour), CreatedAt: now.Add(-2 * time.Hour)},
	}
	for _, input := range seed {
		if _, err := store.Upsert(context.Background(), input); err != nil {
			t.Fatalf("seed upsert failed: %v", err)
		}
	}

	useCase := CountUseCase{Grants: store}
	count, err := useCase.Execute(context.Background())
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected stale rows counted until reconciliation, got %d", count)
	}
}
