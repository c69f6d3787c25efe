package workers

import (
	"context"
	"testing"
	"time"

	"rolewarden/contexts/access-control/grant-lifecycle/adapters/memory"
)

func TestSchedulerRunsPassesUntilCancelled(t *testing.T) {
	now := time.Now().UTC()
	store := memory.NewStore()
	authority := memory.NewAuthority()
	authority.AddRealm(10, "guild")
	authority.AddMember(10, 1, "member-1")
	authority.AddRole(10, 99, "role-99")
	authority.AssignRole(10, 1, 99)
	seedGrant(t, store, "g-1", 1, 10, 99, now.Add(-time.Minute))

	reconciler := &Reconciler{Grants: store, Authority: authority, Clock: fixedClock{now: now}}
	scheduler := NewScheduler(reconciler, 25*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- scheduler.Run(ctx)
	}()

	deadline := time.After(3 * time.Second)
	for len(authority.Revocations()) == 0 {
		select {
		case <-deadline:
			cancel()
			t.Fatalf("scheduler never ran a pass")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("scheduler did not stop after cancel")
	}

	count, _ := store.Count(context.Background())
	if count != 0 {
		t.Fatalf("expired grant not swept, %d rows remain", count)
	}
}

func TestSchedulerDefaultsNonPositivePeriod(t *testing.T) {
	scheduler := NewScheduler(&Reconciler{}, 0, nil)
	if scheduler.period != 5*time.Minute {
		t.Fatalf("expected 5m fallback, got %s", scheduler.period)
	}
}
