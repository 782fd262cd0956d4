package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/progress2win/apiserver/types"
)

const progressColumns = `id, user_id, category, metric, value, unit, notes, date, created_at, updated_at`

// ProgressRepository handles persistence for progress entries.
// Every read and write is scoped by owner; an entry belonging to
// another user is indistinguishable from a missing one.
type ProgressRepository struct {
	db *sql.DB
}

func NewProgressRepository(db *sql.DB) *ProgressRepository {
	return &ProgressRepository{db: db}
}

func (r *ProgressRepository) Get(ctx context.Context, userID, id int) (types.Progress, error) {
	const query = `
		SELECT ` + progressColumns + `
		FROM progress
		WHERE id = $1 AND user_id = $2`
	return scanProgress(r.db.QueryRowContext(ctx, query, id, userID))
}

func (r *ProgressRepository) List(ctx context.Context, userID int, filter types.ProgressFilter) ([]types.Progress, error) {
	query := `
		SELECT ` + progressColumns + `
		FROM progress
		WHERE user_id = $1`
	args := []any{userID}

	query, args = appendProgressFilter(query, args, "", filter)
	query += fmt.Sprintf(" ORDER BY date DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []types.Progress{}
	for rows.Next() {
		entry, err := scanProgress(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// ListForUsers returns entries for a set of users, most recent first.
// Used by the comparison view, which needs both sides in one pass.
func (r *ProgressRepository) ListForUsers(ctx context.Context, userIDs []int, filter types.ProgressFilter) ([]types.Progress, error) {
	if len(userIDs) == 0 {
		return []types.Progress{}, nil
	}

	query := `
		SELECT ` + progressColumns + `
		FROM progress
		WHERE user_id = ANY($1)`
	args := []any{pq.Array(userIDs)}

	query, args = appendProgressFilter(query, args, "", filter)
	query += " ORDER BY date DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []types.Progress{}
	for rows.Next() {
		entry, err := scanProgress(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (r *ProgressRepository) Create(ctx context.Context, entry types.Progress) (types.Progress, error) {
	now := time.Now()
	entry.CreatedAt = now
	entry.UpdatedAt = now

	const query = `
		INSERT INTO progress (user_id, category, metric, value, unit, notes, date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		entry.UserID,
		entry.Category,
		entry.Metric,
		entry.Value,
		entry.Unit,
		entry.Notes,
		entry.Date,
		entry.CreatedAt,
		entry.UpdatedAt,
	).Scan(&entry.ID); err != nil {
		return types.Progress{}, err
	}
	return entry, nil
}

func (r *ProgressRepository) Update(ctx context.Context, entry types.Progress) (types.Progress, error) {
	entry.UpdatedAt = time.Now()

	const query = `
		UPDATE progress
		SET category = $1,
			metric = $2,
			value = $3,
			unit = $4,
			notes = $5,
			date = $6,
			updated_at = $7
		WHERE id = $8 AND user_id = $9`
	result, err := r.db.ExecContext(
		ctx,
		query,
		entry.Category,
		entry.Metric,
		entry.Value,
		entry.Unit,
		entry.Notes,
		entry.Date,
		entry.UpdatedAt,
		entry.ID,
		entry.UserID,
	)
	if err != nil {
		return types.Progress{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Progress{}, err
	}
	if affected == 0 {
		return types.Progress{}, ErrNotFound
	}
	return entry, nil
}

func (r *ProgressRepository) Delete(ctx context.Context, userID, id int) error {
	const query = `DELETE FROM progress WHERE id = $1 AND user_id = $2`
	result, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Leaderboard ranks active users by summed progress value.
func (r *ProgressRepository) Leaderboard(ctx context.Context, filter types.ProgressFilter) ([]types.LeaderboardEntry, error) {
	query := `
		SELECT u.id, u.email, u.first_name, u.last_name, u.avatar_url,
			COUNT(p.id) AS total_entries,
			COALESCE(SUM(p.value), 0) AS total_progress
		FROM users u
		LEFT JOIN progress p ON u.id = p.user_id`
	args := []any{}

	query, args = appendProgressFilter(query, args, "p.", filter)
	query += `
		WHERE u.is_active = TRUE
		GROUP BY u.id, u.email, u.first_name, u.last_name, u.avatar_url
		ORDER BY total_progress DESC`
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []types.LeaderboardEntry{}
	for rows.Next() {
		var entry types.LeaderboardEntry
		if err := rows.Scan(
			&entry.User.ID,
			&entry.User.Email,
			&entry.User.FirstName,
			&entry.User.LastName,
			&entry.User.AvatarURL,
			&entry.TotalEntries,
			&entry.TotalProgress,
		); err != nil {
			return nil, err
		}
		// Ranks continue across pages.
		entry.Rank = filter.Offset + len(entries) + 1
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Stats returns the aggregate dashboard counters.
func (r *ProgressRepository) Stats(ctx context.Context) (types.Stats, error) {
	const query = `
		SELECT
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM progress),
			(SELECT COUNT(DISTINCT user_id) FROM progress WHERE created_at > now() - INTERVAL '30 days')`
	var stats types.Stats
	if err := r.db.QueryRowContext(ctx, query).Scan(&stats.TotalUsers, &stats.TotalProgress, &stats.ActiveUsers); err != nil {
		return types.Stats{}, err
	}
	return stats, nil
}

// appendProgressFilter appends the optional category and date-range
// conditions for the progress table aliased by prefix. The leaderboard
// query attaches them to the join, everything else to the WHERE clause.
func appendProgressFilter(query string, args []any, prefix string, filter types.ProgressFilter) (string, []any) {
	if filter.Category != "" {
		query += fmt.Sprintf(" AND %scategory = $%d", prefix, len(args)+1)
		args = append(args, filter.Category)
	}
	if filter.StartDate != nil {
		query += fmt.Sprintf(" AND %sdate >= $%d", prefix, len(args)+1)
		args = append(args, *filter.StartDate)
	}
	if filter.EndDate != nil {
		query += fmt.Sprintf(" AND %sdate <= $%d", prefix, len(args)+1)
		args = append(args, *filter.EndDate)
	}
	return query, args
}

func scanProgress(row rowScanner) (types.Progress, error) {
	var entry types.Progress
	err := row.Scan(
		&entry.ID,
		&entry.UserID,
		&entry.Category,
		&entry.Metric,
		&entry.Value,
		&entry.Unit,
		&entry.Notes,
		&entry.Date,
		&entry.CreatedAt,
		&entry.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Progress{}, ErrNotFound
		}
		return types.Progress{}, err
	}
	return entry, nil
}
