package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	domainErrors "github.com/reno-apps/ordermerge/internal/domain/errors"
	"github.com/reno-apps/ordermerge/internal/domain/model"
	"github.com/reno-apps/ordermerge/internal/domain/repository"
)

// pool is the subset of pgxpool.Pool used by the storage, so tests can
// substitute a mock pool.
type pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// Storage acts as repository facade backed by PostgreSQL.
type Storage struct {
	pool   pool
	logger *slog.Logger
}

type orderIndexRepository struct {
	storage *Storage
}

type mergeGroupRepository struct {
	storage *Storage
}

type settingsRepository struct {
	storage *Storage
}

type eventRepository struct {
	storage *Storage
}

// New creates storage with schema initialization.
func New(ctx context.Context, dsn string, logger *slog.Logger) (*Storage, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	p, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	storage := &Storage{pool: p, logger: logger}
	if err := storage.initSchema(ctx); err != nil {
		p.Close()
		return nil, err
	}

	return storage, nil
}

// Close releases database resources.
func (s *Storage) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Factory methods for domain repositories.
func (s *Storage) OrderIndex() repository.OrderIndexRepository {
	return &orderIndexRepository{storage: s}
}

func (s *Storage) MergeGroups() repository.MergeGroupRepository {
	return &mergeGroupRepository{storage: s}
}

func (s *Storage) Settings() repository.SettingsRepository {
	return &settingsRepository{storage: s}
}

func (s *Storage) Events() repository.EventRepository {
	return &eventRepository{storage: s}
}

func (s *Storage) initSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS order_index (
            shop TEXT NOT NULL,
            id TEXT NOT NULL,
            name TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMPTZ NOT NULL,
            address_fingerprint TEXT NOT NULL,
            email_fingerprint TEXT,
            status TEXT NOT NULL DEFAULT 'open',
            merge_group_id TEXT,
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            PRIMARY KEY (shop, id)
        )`,
		`CREATE TABLE IF NOT EXISTS merge_groups (
            id TEXT PRIMARY KEY,
            shop TEXT NOT NULL,
            window_minutes INT NOT NULL,
            original_ids TEXT[] NOT NULL,
            reason TEXT NOT NULL,
            status TEXT NOT NULL DEFAULT 'pending',
            draft_id TEXT,
            new_order_id TEXT,
            failure_reason TEXT,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`CREATE TABLE IF NOT EXISTS shop_settings (
            shop TEXT PRIMARY KEY,
            window_minutes INT NOT NULL DEFAULT 120,
            by_address BOOLEAN NOT NULL DEFAULT TRUE,
            by_email BOOLEAN NOT NULL DEFAULT FALSE,
            require_both BOOLEAN NOT NULL DEFAULT FALSE,
            auto_complete_draft BOOLEAN NOT NULL DEFAULT TRUE,
            auto_merge BOOLEAN NOT NULL DEFAULT FALSE,
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`CREATE TABLE IF NOT EXISTS order_events (
            shop TEXT NOT NULL,
            order_id TEXT NOT NULL,
            name TEXT NOT NULL DEFAULT '',
            order_created_at TIMESTAMPTZ NOT NULL,
            address_fingerprint TEXT NOT NULL,
            line_item_count INT NOT NULL DEFAULT 0,
            total_price TEXT NOT NULL DEFAULT '',
            has_email BOOLEAN NOT NULL DEFAULT FALSE,
            received_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            PRIMARY KEY (shop, order_id)
        )`,
		`CREATE INDEX IF NOT EXISTS idx_order_index_address ON order_index(shop, address_fingerprint, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_merge_groups_shop ON merge_groups(shop, status, created_at DESC)`,
	}

	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}

	return nil
}

// --- OrderIndexRepository implementation ---

// Upsert writes the record keyed by (shop, id). Descriptive fields follow the
// latest delivery; a record owned by an in-flight group keeps its replaced
// status so webhook retries cannot release claimed candidates.
func (r *orderIndexRepository) Upsert(ctx context.Context, record model.OrderRecord) error {
	const query = `INSERT INTO order_index
                       (shop, id, name, created_at, address_fingerprint, email_fingerprint, status, merge_group_id)
                   VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, NULLIF($8, ''))
                   ON CONFLICT (shop, id) DO UPDATE SET
                       name = EXCLUDED.name,
                       created_at = EXCLUDED.created_at,
                       address_fingerprint = EXCLUDED.address_fingerprint,
                       email_fingerprint = EXCLUDED.email_fingerprint,
                       status = CASE WHEN order_index.status = 'replaced'
                                     THEN order_index.status
                                     ELSE EXCLUDED.status END,
                       merge_group_id = CASE WHEN order_index.status = 'replaced'
                                             THEN order_index.merge_group_id
                                             ELSE EXCLUDED.merge_group_id END,
                       updated_at = NOW()`
	status := record.Status
	if status == "" {
		status = model.OrderStatusOpen
	}
	_, err := r.storage.pool.Exec(ctx, query,
		record.Shop, record.ID, record.Name, record.CreatedAt,
		record.AddressFingerprint, record.EmailFingerprint, status, record.MergeGroupID)
	return err
}

func (r *orderIndexRepository) FindCandidates(ctx context.Context, shop, addressFingerprint string, since time.Time) ([]model.OrderRecord, error) {
	const query = `SELECT shop, id, name, created_at, address_fingerprint, email_fingerprint, status, merge_group_id, updated_at
                   FROM order_index
                   WHERE shop=$1 AND address_fingerprint=$2 AND created_at >= $3
                   ORDER BY created_at ASC`
	rows, err := r.storage.pool.Query(ctx, query, shop, addressFingerprint, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.OrderRecord
	for rows.Next() {
		record, err := scanOrderRecord(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *orderIndexRepository) ResetToOpen(ctx context.Context, shop string, ids []string, groupID string) error {
	const query = `UPDATE order_index
                   SET status='open', merge_group_id=NULL, updated_at=NOW()
                   WHERE shop=$1 AND id = ANY($2) AND merge_group_id=$3`
	_, err := r.storage.pool.Exec(ctx, query, shop, ids, groupID)
	return err
}

func (r *orderIndexRepository) NamesByIDs(ctx context.Context, shop string, ids []string) ([]string, error) {
	const query = `SELECT id, name FROM order_index WHERE shop=$1 AND id = ANY($2)`
	rows, err := r.storage.pool.Query(ctx, query, shop, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names := make(map[string]string, len(ids))
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		names[id] = name
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	result := make([]string, 0, len(ids))
	for _, id := range ids {
		if name, ok := names[id]; ok && name != "" {
			result = append(result, name)
		} else {
			result = append(result, id)
		}
	}
	return result, nil
}

func scanOrderRecord(row pgx.Row) (model.OrderRecord, error) {
	var (
		record  model.OrderRecord
		emailFP *string
		groupID *string
	)
	err := row.Scan(&record.Shop, &record.ID, &record.Name, &record.CreatedAt,
		&record.AddressFingerprint, &emailFP, &record.Status, &groupID, &record.UpdatedAt)
	if err != nil {
		return model.OrderRecord{}, err
	}
	if emailFP != nil {
		record.EmailFingerprint = *emailFP
	}
	if groupID != nil {
		record.MergeGroupID = *groupID
	}
	return record, nil
}

// --- MergeGroupRepository implementation ---

// Create inserts the group and claims its members in one transaction. The
// claim succeeds only when no member is already replaced; on conflict the
// transaction rolls back and ErrCandidateConflict is returned.
func (r *mergeGroupRepository) Create(ctx context.Context, group *model.MergeGroup) error {
	return r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		const insertGroup = `INSERT INTO merge_groups (id, shop, window_minutes, original_ids, reason, status)
                             VALUES ($1, $2, $3, $4, $5, $6)
                             RETURNING created_at, updated_at`
		err := tx.QueryRow(ctx, insertGroup,
			group.ID, group.Shop, group.WindowMinutes, group.OriginalIDs, group.Reason, model.GroupStatusPending).
			Scan(&group.CreatedAt, &group.UpdatedAt)
		if err != nil {
			return err
		}
		group.Status = model.GroupStatusPending

		const claim = `UPDATE order_index
                       SET status='replaced', merge_group_id=$1, updated_at=NOW()
                       WHERE shop=$2 AND id = ANY($3) AND status <> 'replaced'`
		tag, err := tx.Exec(ctx, claim, group.ID, group.Shop, group.OriginalIDs)
		if err != nil {
			return err
		}
		if int(tag.RowsAffected()) != len(group.OriginalIDs) {
			return domainErrors.ErrCandidateConflict
		}
		return nil
	})
}

func (r *mergeGroupRepository) Get(ctx context.Context, id string) (*model.MergeGroup, error) {
	const query = `SELECT id, shop, window_minutes, original_ids, reason, status,
                          draft_id, new_order_id, failure_reason, created_at, updated_at
                   FROM merge_groups WHERE id=$1`
	group, err := scanMergeGroup(r.storage.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	return group, nil
}

func (r *mergeGroupRepository) SetDraft(ctx context.Context, id, draftID string) error {
	const query = `UPDATE merge_groups
                   SET draft_id=$2, status='draft_created', failure_reason=NULL, updated_at=NOW()
                   WHERE id=$1`
	return r.storage.execExpectingRow(ctx, query, id, draftID)
}

func (r *mergeGroupRepository) SetCompleted(ctx context.Context, id, newOrderID string) error {
	const query = `UPDATE merge_groups
                   SET new_order_id=$2, status='completed', updated_at=NOW()
                   WHERE id=$1`
	return r.storage.execExpectingRow(ctx, query, id, newOrderID)
}

func (r *mergeGroupRepository) SetFailed(ctx context.Context, id, reason string) error {
	const query = `UPDATE merge_groups
                   SET status='failed', failure_reason=$2, updated_at=NOW()
                   WHERE id=$1`
	return r.storage.execExpectingRow(ctx, query, id, reason)
}

// Reopen puts a failed group back to pending for an explicit re-attempt. The
// recorded draft id survives so the re-attempt can resume an existing draft.
func (r *mergeGroupRepository) Reopen(ctx context.Context, id string) error {
	const query = `UPDATE merge_groups
                   SET status='pending', failure_reason=NULL, updated_at=NOW()
                   WHERE id=$1 AND status='failed'`
	tag, err := r.storage.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrIllegalTransition
	}
	return nil
}

// Reject marks a pending group rejected and releases its members back to
// open in the same transaction.
func (r *mergeGroupRepository) Reject(ctx context.Context, id string) error {
	return r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		const update = `UPDATE merge_groups SET status='rejected', updated_at=NOW()
                        WHERE id=$1 AND status='pending'
                        RETURNING shop, original_ids`
		var (
			shop string
			ids  []string
		)
		if err := tx.QueryRow(ctx, update, id).Scan(&shop, &ids); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domainErrors.ErrIllegalTransition
			}
			return err
		}

		const release = `UPDATE order_index
                         SET status='open', merge_group_id=NULL, updated_at=NOW()
                         WHERE shop=$1 AND id = ANY($2) AND merge_group_id=$3`
		_, err := tx.Exec(ctx, release, shop, ids, id)
		return err
	})
}

func (r *mergeGroupRepository) ListPending(ctx context.Context, shop string) ([]model.MergeGroup, error) {
	const query = `SELECT id, shop, window_minutes, original_ids, reason, status,
                          draft_id, new_order_id, failure_reason, created_at, updated_at
                   FROM merge_groups WHERE shop=$1 AND status='pending'
                   ORDER BY created_at DESC`
	return r.storage.queryGroups(ctx, query, shop)
}

func (r *mergeGroupRepository) ListResolved(ctx context.Context, shop string, limit int) ([]model.MergeGroup, error) {
	const query = `SELECT id, shop, window_minutes, original_ids, reason, status,
                          draft_id, new_order_id, failure_reason, created_at, updated_at
                   FROM merge_groups
                   WHERE shop=$1 AND status IN ('completed', 'draft_created', 'failed')
                   ORDER BY created_at DESC
                   LIMIT $2`
	return r.storage.queryGroups(ctx, query, shop, limit)
}

func (r *mergeGroupRepository) CountByStatus(ctx context.Context, shop string, status model.GroupStatus) (int, error) {
	const query = `SELECT COUNT(*) FROM merge_groups WHERE shop=$1 AND status=$2`
	var count int
	if err := r.storage.pool.QueryRow(ctx, query, shop, status).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *mergeGroupRepository) SelectPendingBatch(ctx context.Context, limit int) ([]model.MergeGroup, error) {
	const query = `SELECT id, shop, window_minutes, original_ids, reason, status,
                          draft_id, new_order_id, failure_reason, created_at, updated_at
                   FROM merge_groups
                   WHERE status='pending'
                   ORDER BY created_at
                   LIMIT $1
                   FOR UPDATE SKIP LOCKED`

	var groups []model.MergeGroup
	err := r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, query, limit)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			group, err := scanMergeGroup(rows)
			if err != nil {
				return err
			}
			groups = append(groups, *group)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return groups, nil
}

func (s *Storage) queryGroups(ctx context.Context, query string, args ...any) ([]model.MergeGroup, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.MergeGroup
	for rows.Next() {
		group, err := scanMergeGroup(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *group)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func scanMergeGroup(row pgx.Row) (*model.MergeGroup, error) {
	var (
		group      model.MergeGroup
		draftID    *string
		newOrderID *string
		failure    *string
	)
	err := row.Scan(&group.ID, &group.Shop, &group.WindowMinutes, &group.OriginalIDs,
		&group.Reason, &group.Status, &draftID, &newOrderID, &failure,
		&group.CreatedAt, &group.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if draftID != nil {
		group.DraftID = *draftID
	}
	if newOrderID != nil {
		group.NewOrderID = *newOrderID
	}
	if failure != nil {
		group.FailureReason = *failure
	}
	return &group, nil
}

func (s *Storage) execExpectingRow(ctx context.Context, query string, args ...any) error {
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrNotFound
	}
	return nil
}

// --- SettingsRepository implementation ---

func (r *settingsRepository) Get(ctx context.Context, shop string) (*model.MatchRules, error) {
	const query = `SELECT shop, window_minutes, by_address, by_email, require_both,
                          auto_complete_draft, auto_merge, updated_at
                   FROM shop_settings WHERE shop=$1`
	rules, err := scanMatchRules(r.storage.pool.QueryRow(ctx, query, shop))
	if err == nil {
		return rules, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	const insert = `INSERT INTO shop_settings (shop) VALUES ($1)
                    ON CONFLICT (shop) DO UPDATE SET shop = EXCLUDED.shop
                    RETURNING shop, window_minutes, by_address, by_email, require_both,
                              auto_complete_draft, auto_merge, updated_at`
	return scanMatchRules(r.storage.pool.QueryRow(ctx, insert, shop))
}

func (r *settingsRepository) Update(ctx context.Context, rules model.MatchRules) (*model.MatchRules, error) {
	const query = `INSERT INTO shop_settings
                       (shop, window_minutes, by_address, by_email, require_both, auto_complete_draft, auto_merge, updated_at)
                   VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
                   ON CONFLICT (shop) DO UPDATE SET
                       window_minutes = EXCLUDED.window_minutes,
                       by_address = EXCLUDED.by_address,
                       by_email = EXCLUDED.by_email,
                       require_both = EXCLUDED.require_both,
                       auto_complete_draft = EXCLUDED.auto_complete_draft,
                       auto_merge = EXCLUDED.auto_merge,
                       updated_at = NOW()
                   RETURNING shop, window_minutes, by_address, by_email, require_both,
                             auto_complete_draft, auto_merge, updated_at`
	return scanMatchRules(r.storage.pool.QueryRow(ctx, query,
		rules.Shop, rules.WindowMinutes, rules.ByAddress, rules.ByEmail,
		rules.RequireBoth, rules.AutoCompleteDraft, rules.AutoMerge))
}

func scanMatchRules(row pgx.Row) (*model.MatchRules, error) {
	var rules model.MatchRules
	err := row.Scan(&rules.Shop, &rules.WindowMinutes, &rules.ByAddress, &rules.ByEmail,
		&rules.RequireBoth, &rules.AutoCompleteDraft, &rules.AutoMerge, &rules.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &rules, nil
}

// --- EventRepository implementation ---

func (r *eventRepository) Save(ctx context.Context, summary model.EventSummary) error {
	const query = `INSERT INTO order_events
                       (shop, order_id, name, order_created_at, address_fingerprint, line_item_count, total_price, has_email)
                   VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
                   ON CONFLICT (shop, order_id) DO UPDATE SET
                       name = EXCLUDED.name,
                       order_created_at = EXCLUDED.order_created_at,
                       address_fingerprint = EXCLUDED.address_fingerprint,
                       line_item_count = EXCLUDED.line_item_count,
                       total_price = EXCLUDED.total_price,
                       has_email = EXCLUDED.has_email,
                       received_at = NOW()`
	_, err := r.storage.pool.Exec(ctx, query,
		summary.Shop, summary.OrderID, summary.Name, summary.OrderCreatedAt,
		summary.AddressFingerprint, summary.LineItemCount, summary.TotalPrice, summary.HasEmail)
	return err
}

func (r *eventRepository) ListRecent(ctx context.Context, shop string, limit int) ([]model.EventSummary, error) {
	const query = `SELECT shop, order_id, name, order_created_at, address_fingerprint,
                          line_item_count, total_price, has_email, received_at
                   FROM order_events WHERE shop=$1
                   ORDER BY received_at DESC
                   LIMIT $2`
	rows, err := r.storage.pool.Query(ctx, query, shop, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.EventSummary
	for rows.Next() {
		var e model.EventSummary
		if err := rows.Scan(&e.Shop, &e.OrderID, &e.Name, &e.OrderCreatedAt,
			&e.AddressFingerprint, &e.LineItemCount, &e.TotalPrice, &e.HasEmail, &e.ReceivedAt); err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// WithinTransaction executes function inside transaction boundary.
func (s *Storage) WithinTransaction(ctx context.Context, fn func(pgx.Tx) error) (err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			err = tx.Commit(ctx)
		}
	}()

	err = fn(tx)
	return err
}

// HealthCheck verifies database connectivity.
func (s *Storage) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.pool.Ping(ctx)
}

// Logger returns storage logger.
func (s *Storage) Logger() *slog.Logger {
	return s.logger
}
