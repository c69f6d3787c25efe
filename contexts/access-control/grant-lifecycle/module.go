package grantlifecycle

import (
	"log/slog"
	"time"

	httpadapter "rolewarden/contexts/access-control/grant-lifecycle/adapters/http"
	"rolewarden/contexts/access-control/grant-lifecycle/adapters/memory"
	"rolewarden/contexts/access-control/grant-lifecycle/application/commands"
	"rolewarden/contexts/access-control/grant-lifecycle/application/queries"
	"rolewarden/contexts/access-control/grant-lifecycle/application/workers"
	"rolewarden/contexts/access-control/grant-lifecycle/ports"
)

// Module is the grant-lifecycle composition root exposed to runtime wiring.
// Handler serves the admin HTTP surface; Reconciler is handed to the worker
// scheduler for the periodic expiry sweep.
type Module struct {
	Handler    httpadapter.Handler
	Reconciler *workers.Reconciler
	Store      *memory.Store
	Authority  *memory.Authority
}

// Dependencies captures all runtime ports/config required by NewModule.
type Dependencies struct {
	Grants               ports.GrantStore
	Authority            ports.RoleAuthority
	Clock                ports.Clock
	IDGenerator          ports.IDGenerator
	DefaultGrantDuration time.Duration
	RevokeAuditReason    string
	Logger               *slog.Logger
}

func NewModule(deps Dependencies) Module {
	grantUseCase := commands.GrantUseCase{
		Grants:          deps.Grants,
		Clock:           deps.Clock,
		IDGenerator:     deps.IDGenerator,
		DefaultDuration: deps.DefaultGrantDuration,
		Logger:          deps.Logger,
	}
	listActiveUseCase := queries.ListActiveUseCase{
		Grants: deps.Grants,
		Clock:  deps.Clock,
		Logger: deps.Logger,
	}
	countUseCase := queries.CountUseCase{
		Grants: deps.Grants,
		Logger: deps.Logger,
	}
	reconciler := &workers.Reconciler{
		Grants:      deps.Grants,
		Authority:   deps.Authority,
		Clock:       deps.Clock,
		AuditReason: deps.RevokeAuditReason,
		Logger:      deps.Logger,
	}

	return Module{
		Handler: httpadapter.Handler{
			Grant:      grantUseCase,
			ListActive: listActiveUseCase,
			Count:      countUseCase,
			Reconciler: reconciler,
			Logger:     deps.Logger,
		},
		Reconciler: reconciler,
	}
}

// NewInMemoryModule builds a development/testing module with in-memory
// adapters for both the grant store and the role authority.
func NewInMemoryModule(logger *slog.Logger) Module {
	store := memory.NewStore()
	authority := memory.NewAuthority()
	module := NewModule(Dependencies{
		Grants:               store,
		Authority:            authority,
		Clock:                store,
		IDGenerator:          store,
		DefaultGrantDuration: 24 * time.Hour,
		Logger:               logger,
	})
	module.Store = store
	module.Authority = authority
	return module
}
