package permissions

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/crewbase/crewbase/internal/platform/db"
)

// OverrideStore is the durable home of explicit per-member permission
// decisions. Absence of a row means "inherit role default".
type OverrideStore interface {
	LoadOverrides(ctx context.Context, projectID, memberID int64) (map[Kind]bool, error)
	LoadProjectOverrides(ctx context.Context, projectID int64) (map[int64]map[Kind]bool, error)
	ReplaceOverrides(ctx context.Context, projectID, memberID int64, set map[Kind]bool, actor int64) error
}

// Repository provides PostgreSQL backed persistence for overrides.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// LoadOverrides returns the member's explicit decisions keyed by kind.
func (r *Repository) LoadOverrides(ctx context.Context, projectID, memberID int64) (map[Kind]bool, error) {
	const query = `
		SELECT kind, granted
		FROM permission_overrides
		WHERE project_id = $1 AND member_id = $2
	`
	rows, err := r.pool.Query(ctx, query, projectID, memberID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	overrides := make(map[Kind]bool)
	for rows.Next() {
		var kind string
		var granted bool
		if err := rows.Scan(&kind, &granted); err != nil {
			return nil, err
		}
		overrides[Kind(kind)] = granted
	}
	return overrides, rows.Err()
}

// LoadProjectOverrides returns every member's override map for the project
// in a single query, grouped client-side. Matrix building must never issue
// one query per member.
func (r *Repository) LoadProjectOverrides(ctx context.Context, projectID int64) (map[int64]map[Kind]bool, error) {
	const query = `
		SELECT member_id, kind, granted
		FROM permission_overrides
		WHERE project_id = $1
		ORDER BY member_id, kind
	`
	rows, err := r.pool.Query(ctx, query, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byMember := make(map[int64]map[Kind]bool)
	for rows.Next() {
		var memberID int64
		var kind string
		var granted bool
		if err := rows.Scan(&memberID, &kind, &granted); err != nil {
			return nil, err
		}
		m, ok := byMember[memberID]
		if !ok {
			m = make(map[Kind]bool)
			byMember[memberID] = m
		}
		m[Kind(kind)] = granted
	}
	return byMember, rows.Err()
}

// ReplaceOverrides atomically swaps the member's full override row set:
// delete everything, insert the rows implied by set. Rows with
// granted=false are stored explicitly; reverting a kind to inherit means
// omitting it from set. An empty set clears all overrides for the member.
// Concurrent replacements for the same member serialize on an advisory
// lock and the last commit wins. Writes for different members never block
// each other.
func (r *Repository) ReplaceOverrides(ctx context.Context, projectID, memberID int64, set map[Kind]bool, actor int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		// Row locks alone are not enough here: two writers racing through
		// delete+insert end in a duplicate-key failure on the primary key.
		// The advisory lock makes the loser wait and then win by going
		// second. Released automatically at commit or rollback.
		const lock = `SELECT pg_advisory_xact_lock(hashtextextended($1::text || ':' || $2::text, 0))`
		if _, err := tx.Exec(ctx, lock, projectID, memberID); err != nil {
			return err
		}

		const del = `DELETE FROM permission_overrides WHERE project_id = $1 AND member_id = $2`
		if _, err := tx.Exec(ctx, del, projectID, memberID); err != nil {
			return err
		}

		if len(set) == 0 {
			return nil
		}

		const ins = `
			INSERT INTO permission_overrides (project_id, member_id, kind, granted, updated_at, updated_by)
			VALUES ($1, $2, $3, $4, $5, $6)
		`
		batch := &pgx.Batch{}
		now := time.Now().UTC()
		for kind, granted := range set {
			batch.Queue(ins, projectID, memberID, string(kind), granted, now, actor)
		}
		results := tx.SendBatch(ctx, batch)
		for range set {
			if _, err := results.Exec(); err != nil {
				_ = results.Close()
				return err
			}
		}
		return results.Close()
	})
}
