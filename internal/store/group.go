package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/progress2win/apiserver/types"
)

const groupColumns = `id, name, code, creator_id, description, created_at`

// GroupRepository handles persistence for groups and their membership.
// The single-group-per-user rule is a unique constraint on
// group_members(user_id).
type GroupRepository struct {
	db *sql.DB
}

func NewGroupRepository(db *sql.DB) *GroupRepository {
	return &GroupRepository{db: db}
}

// Create inserts a group and its creator's membership in one
// transaction. A code collision surfaces as ErrDuplicate so the
// service can retry with a fresh code.
func (r *GroupRepository) Create(ctx context.Context, group types.Group) (types.Group, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return types.Group{}, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	const insertGroup = `
		INSERT INTO groups (name, code, creator_id, description)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`
	if err := tx.QueryRowContext(
		ctx,
		insertGroup,
		group.Name,
		group.Code,
		group.CreatorID,
		group.Description,
	).Scan(&group.ID, &group.CreatedAt); err != nil {
		return types.Group{}, mapError(err)
	}

	const insertMember = `
		INSERT INTO group_members (group_id, user_id)
		VALUES ($1, $2)`
	if _, err := tx.ExecContext(ctx, insertMember, group.ID, group.CreatorID); err != nil {
		return types.Group{}, mapError(err)
	}

	if err := tx.Commit(); err != nil {
		return types.Group{}, err
	}
	return group, nil
}

func (r *GroupRepository) Get(ctx context.Context, id int) (types.Group, error) {
	const query = `
		SELECT ` + groupColumns + `
		FROM groups
		WHERE id = $1`
	return scanGroup(r.db.QueryRowContext(ctx, query, id))
}

func (r *GroupRepository) GetByCode(ctx context.Context, code string) (types.Group, error) {
	const query = `
		SELECT ` + groupColumns + `
		FROM groups
		WHERE code = $1`
	return scanGroup(r.db.QueryRowContext(ctx, query, code))
}

// GetForUser returns the group the user is a member of, if any.
func (r *GroupRepository) GetForUser(ctx context.Context, userID int) (types.Group, error) {
	const query = `
		SELECT g.id, g.name, g.code, g.creator_id, g.description, g.created_at
		FROM groups g
		JOIN group_members gm ON g.id = gm.group_id
		WHERE gm.user_id = $1`
	return scanGroup(r.db.QueryRowContext(ctx, query, userID))
}

// AddMember enrolls a user. The unique constraint on user_id rejects a
// second membership with ErrDuplicate.
func (r *GroupRepository) AddMember(ctx context.Context, groupID, userID int) error {
	const query = `
		INSERT INTO group_members (group_id, user_id)
		VALUES ($1, $2)`
	if _, err := r.db.ExecContext(ctx, query, groupID, userID); err != nil {
		return mapError(err)
	}
	return nil
}

func (r *GroupRepository) RemoveMember(ctx context.Context, groupID, userID int) error {
	const query = `DELETE FROM group_members WHERE group_id = $1 AND user_id = $2`
	result, err := r.db.ExecContext(ctx, query, groupID, userID)
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

func (r *GroupRepository) Members(ctx context.Context, groupID int) ([]types.User, error) {
	const query = `
		SELECT u.id, u.email, u.first_name, u.last_name, u.avatar_url
		FROM users u
		JOIN group_members gm ON u.id = gm.user_id
		WHERE gm.group_id = $1
		ORDER BY gm.created_at`
	rows, err := r.db.QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := []types.User{}
	for rows.Next() {
		var user types.User
		if err := rows.Scan(&user.ID, &user.Email, &user.FirstName, &user.LastName, &user.AvatarURL); err != nil {
			return nil, err
		}
		members = append(members, user)
	}
	return members, rows.Err()
}

// MemberProgress returns recent progress across the whole group,
// attributed to each member.
func (r *GroupRepository) MemberProgress(ctx context.Context, groupID, limit int) ([]types.GroupProgressEntry, error) {
	const query = `
		SELECT p.id, p.user_id, p.category, p.metric, p.value, p.unit, p.notes, p.date, p.created_at, p.updated_at,
			u.first_name, u.last_name
		FROM progress p
		JOIN users u ON u.id = p.user_id
		JOIN group_members gm ON gm.user_id = p.user_id
		WHERE gm.group_id = $1
		ORDER BY p.date DESC, p.created_at DESC
		LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, groupID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []types.GroupProgressEntry{}
	for rows.Next() {
		var entry types.GroupProgressEntry
		if err := rows.Scan(
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
			&entry.FirstName,
			&entry.LastName,
		); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func scanGroup(row rowScanner) (types.Group, error) {
	var group types.Group
	err := row.Scan(
		&group.ID,
		&group.Name,
		&group.Code,
		&group.CreatorID,
		&group.Description,
		&group.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Group{}, ErrNotFound
		}
		return types.Group{}, err
	}
	return group, nil
}
