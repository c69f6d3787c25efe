package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"rolewarden/contexts/access-control/grant-lifecycle/domain/entities"
	"rolewarden/contexts/access-control/grant-lifecycle/ports"

	"github.com/google/uuid"
)

type tripleKey struct {
	PrincipalID int64
	RealmID     int64
	RoleID      int64
}

// Store is an in-memory GrantStore implementing the same insert-or-replace
// and partition semantics as the Postgres adapter. It is intended for tests
// and local development wiring, and doubles as Clock and IDGenerator.
type Store struct {
	mu       sync.RWMutex
	grants   map[string]entities.Grant
	byTriple map[tripleKey]string
}

func NewStore() *Store {
	return &Store{
		grants:   make(map[string]entities.Grant),
		byTriple: make(map[tripleKey]string),
	}
}

func (s *Store) EnsureSchema(context.Context) error {
	return nil
}

func (s *Store) Upsert(_ context.Context, input ports.UpsertGrantInput) (entities.Grant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := tripleKey{
		PrincipalID: input.PrincipalID,
		RealmID:     input.RealmID,
		RoleID:      input.RoleID,
	}
	grantID := input.GrantID
	if existingID, ok := s.byTriple[key]; ok {
		grantID = existingID
	}
	grant := entities.Grant{
		GrantID:     grantID,
		PrincipalID: input.PrincipalID,
		RealmID:     input.RealmID,
		RoleID:      input.RoleID,
		ExpiresAt:   input.ExpiresAt.UTC(),
		CreatedAt:   input.CreatedAt.UTC(),
	}
	s.grants[grantID] = grant
	s.byTriple[key] = grantID
	return grant, nil
}

func (s *Store) ListExpired(_ context.Context, now time.Time) ([]entities.Grant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]entities.Grant, 0)
	for _, grant := range s.grants {
		if grant.Expired(now) {
			items = append(items, grant)
		}
	}
	sortByExpiry(items)
	return items, nil
}

func (s *Store) ListActive(_ context.Context, principalID int64, realmID int64, now time.Time) ([]entities.Grant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]entities.Grant, 0)
	for _, grant := range s.grants {
		if grant.PrincipalID != principalID || grant.RealmID != realmID {
			continue
		}
		if grant.Expired(now) {
			continue
		}
		items = append(items, grant)
	}
	sortByExpiry(items)
	return items, nil
}

func (s *Store) DeleteMany(_ context.Context, grantIDs []string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for _, grantID := range grantIDs {
		grant, ok := s.grants[grantID]
		if !ok {
			continue
		}
		delete(s.grants, grantID)
		delete(s.byTriple, tripleKey{
			PrincipalID: grant.PrincipalID,
			RealmID:     grant.RealmID,
			RoleID:      grant.RoleID,
		})
		deleted++
	}
	return deleted, nil
}

func (s *Store) Count(context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return int64(len(s.grants)), nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

func sortByExpiry(items []entities.Grant) {
	sort.Slice(items, func(i, j int) bool {
		return items[i].ExpiresAt.Before(items[j].ExpiresAt)
	})
}

var _ ports.GrantStore = (*Store)(nil)
