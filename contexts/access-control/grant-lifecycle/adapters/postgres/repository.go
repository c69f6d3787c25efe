package postgresadapter

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"rolewarden/contexts/access-control/grant-lifecycle/domain/entities"
	domainerrors "rolewarden/contexts/access-control/grant-lifecycle/domain/errors"
	"rolewarden/contexts/access-control/grant-lifecycle/ports"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const defaultOpTimeout = 30 * time.Second

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS temporary_grants (
		id UUID PRIMARY KEY,
		principal_id BIGINT NOT NULL,
		realm_id BIGINT NOT NULL,
		role_id BIGINT NOT NULL,
		expires_at TIMESTAMP WITH TIME ZONE NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_temporary_grants_triple
		ON temporary_grants (principal_id, realm_id, role_id)`,
	`CREATE INDEX IF NOT EXISTS idx_temporary_grants_expires_at
		ON temporary_grants (expires_at)`,
	`CREATE INDEX IF NOT EXISTS idx_temporary_grants_principal_realm
		ON temporary_grants (principal_id, realm_id)`,
}

// Repository implements ports.GrantStore on Postgres. Every operation
// carries a bounded timeout and maps storage-level failures to the single
// ErrStorageUnavailable sentinel callers are expected to branch on.
type Repository struct {
	db        *gorm.DB
	logger    *slog.Logger
	opTimeout time.Duration
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:        db,
		logger:    logger,
		opTimeout: defaultOpTimeout,
	}
}

// EnsureSchema creates the grant table and its indexes. Safe to call
// repeatedly and from concurrent processes; racing CREATE IF NOT EXISTS
// statements that lose to a sibling are treated as success.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	ctx, cancel := r.opContext(ctx)
	defer cancel()

	for _, statement := range schemaStatements {
		if err := r.db.WithContext(ctx).Exec(statement).Error; err != nil {
			if isDuplicateObject(err) {
				continue
			}
			return r.storageError("grant_repo_ensure_schema_failed", err)
		}
	}
	return nil
}

func (r *Repository) Upsert(ctx context.Context, input ports.UpsertGrantInput) (entities.Grant, error) {
	ctx, cancel := r.opContext(ctx)
	defer cancel()

	row := grantModel{
		ID:          input.GrantID,
		PrincipalID: input.PrincipalID,
		RealmID:     input.RealmID,
		RoleID:      input.RoleID,
		ExpiresAt:   input.ExpiresAt.UTC(),
		CreatedAt:   input.CreatedAt.UTC(),
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "principal_id"},
			{Name: "realm_id"},
			{Name: "role_id"},
		},
		DoUpdates: clause.Assignments(map[string]any{
			"expires_at": row.ExpiresAt,
			"created_at": row.CreatedAt,
		}),
	}).Create(&row)
	if create.Error != nil {
		return entities.Grant{}, r.storageError("grant_repo_upsert_failed", create.Error,
			"principal_id", input.PrincipalID,
			"realm_id", input.RealmID,
			"role_id", input.RoleID,
		)
	}

	// A replace keeps the original surrogate id, so read the canonical row
	// back. Losing the row to a concurrent reconciliation delete is an
	// accepted race; the written values stand in for the response.
	var stored grantModel
	err := r.db.WithContext(ctx).
		Where("principal_id = ?", input.PrincipalID).
		Where("realm_id = ?", input.RealmID).
		Where("role_id = ?", input.RoleID).
		First(&stored).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return row.toEntity(), nil
		}
		return entities.Grant{}, r.storageError("grant_repo_upsert_readback_failed", err,
			"principal_id", input.PrincipalID,
			"realm_id", input.RealmID,
			"role_id", input.RoleID,
		)
	}
	return stored.toEntity(), nil
}

func (r *Repository) ListExpired(ctx context.Context, now time.Time) ([]entities.Grant, error) {
	ctx, cancel := r.opContext(ctx)
	defer cancel()

	var rows []grantModel
	if err := r.db.WithContext(ctx).
		Where("expires_at <= ?", now.UTC()).
		Order("expires_at ASC").
		Find(&rows).Error; err != nil {
		return nil, r.storageError("grant_repo_list_expired_failed", err)
	}
	return toGrantEntities(rows), nil
}

func (r *Repository) ListActive(ctx context.Context, principalID int64, realmID int64, now time.Time) ([]entities.Grant, error) {
	ctx, cancel := r.opContext(ctx)
	defer cancel()

	var rows []grantModel
	if err := r.db.WithContext(ctx).
		Where("principal_id = ?", principalID).
		Where("realm_id = ?", realmID).
		Where("expires_at > ?", now.UTC()).
		Order("expires_at ASC").
		Find(&rows).Error; err != nil {
		return nil, r.storageError("grant_repo_list_active_failed", err,
			"principal_id", principalID,
			"realm_id", realmID,
		)
	}
	return toGrantEntities(rows), nil
}

func (r *Repository) DeleteMany(ctx context.Context, grantIDs []string) (int64, error) {
	if len(grantIDs) == 0 {
		return 0, nil
	}
	ctx, cancel := r.opContext(ctx)
	defer cancel()

	result := r.db.WithContext(ctx).
		Where("id IN ?", grantIDs).
		Delete(&grantModel{})
	if result.Error != nil {
		return 0, r.storageError("grant_repo_delete_many_failed", result.Error,
			"grant_count", len(grantIDs),
		)
	}
	return result.RowsAffected, nil
}

func (r *Repository) Count(ctx context.Context) (int64, error) {
	ctx, cancel := r.opContext(ctx)
	defer cancel()

	var count int64
	if err := r.db.WithContext(ctx).
		Model(&grantModel{}).
		Count(&count).Error; err != nil {
		return 0, r.storageError("grant_repo_count_failed", err)
	}
	return count, nil
}

func (r *Repository) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := r.opTimeout
	if timeout <= 0 {
		timeout = defaultOpTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

func (r *Repository) storageError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "access-control/grant-lifecycle",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("grant repository operation failed", fields...)
	return domainerrors.ErrStorageUnavailable
}

type grantModel struct {
	ID          string    `gorm:"column:id;primaryKey"`
	PrincipalID int64     `gorm:"column:principal_id"`
	RealmID     int64     `gorm:"column:realm_id"`
	RoleID      int64     `gorm:"column:role_id"`
	ExpiresAt   time.Time `gorm:"column:expires_at"`
	CreatedAt   time.Time `gorm:"column:created_at"`
}

func (grantModel) TableName() string {
	return "temporary_grants"
}

func (m grantModel) toEntity() entities.Grant {
	return entities.Grant{
		GrantID:     m.ID,
		PrincipalID: m.PrincipalID,
		RealmID:     m.RealmID,
		RoleID:      m.RoleID,
		ExpiresAt:   m.ExpiresAt.UTC(),
		CreatedAt:   m.CreatedAt.UTC(),
	}
}

func toGrantEntities(rows []grantModel) []entities.Grant {
	items := make([]entities.Grant, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items
}

func isDuplicateObject(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	// 42P07 duplicate_table, 42710 duplicate_object: another caller won the
	// CREATE IF NOT EXISTS race.
	return pgErr.Code == "42P07" || pgErr.Code == "42710"
}

var _ ports.GrantStore = (*Repository)(nil)
