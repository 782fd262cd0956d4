package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/progress2win/apiserver/types"
)

// FriendRepository handles persistence for friendships.
type FriendRepository struct {
	db *sql.DB
}

func NewFriendRepository(db *sql.DB) *FriendRepository {
	return &FriendRepository{db: db}
}

// Create inserts a pending invitation. The (user_id, friend_id) unique
// constraint rejects duplicates; the service also checks the reverse
// direction before inserting.
func (r *FriendRepository) Create(ctx context.Context, userID, friendID int) (types.Friendship, error) {
	const query = `
		INSERT INTO user_friends (user_id, friend_id, status)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`
	friendship := types.Friendship{
		UserID:   userID,
		FriendID: friendID,
		Status:   types.FriendshipPending,
	}
	if err := r.db.QueryRowContext(ctx, query, userID, friendID, friendship.Status).
		Scan(&friendship.ID, &friendship.CreatedAt); err != nil {
		return types.Friendship{}, mapError(err)
	}
	return friendship, nil
}

// Get returns the friendship between two users in either direction.
func (r *FriendRepository) Get(ctx context.Context, userID, friendID int) (types.Friendship, error) {
	const query = `
		SELECT id, user_id, friend_id, status, created_at
		FROM user_friends
		WHERE (user_id = $1 AND friend_id = $2) OR (user_id = $2 AND friend_id = $1)`
	var friendship types.Friendship
	err := r.db.QueryRowContext(ctx, query, userID, friendID).Scan(
		&friendship.ID,
		&friendship.UserID,
		&friendship.FriendID,
		&friendship.Status,
		&friendship.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Friendship{}, ErrNotFound
		}
		return types.Friendship{}, err
	}
	return friendship, nil
}

// Accept marks a pending invitation accepted. Only the invitee may
// accept, so the update is guarded by friend_id.
func (r *FriendRepository) Accept(ctx context.Context, id, friendID int) error {
	const query = `
		UPDATE user_friends
		SET status = $1
		WHERE id = $2 AND friend_id = $3 AND status = $4`
	result, err := r.db.ExecContext(ctx, query, types.FriendshipAccepted, id, friendID, types.FriendshipPending)
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

// List returns the user's friendships in both directions, joined with
// the other party's public profile.
func (r *FriendRepository) List(ctx context.Context, userID int) ([]types.Friend, error) {
	const query = `
		SELECT f.id, f.user_id, f.friend_id, f.status, f.created_at,
			u.id, u.email, u.first_name, u.last_name, u.avatar_url
		FROM user_friends f
		JOIN users u ON u.id = CASE WHEN f.user_id = $1 THEN f.friend_id ELSE f.user_id END
		WHERE f.user_id = $1 OR f.friend_id = $1
		ORDER BY f.created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	friends := []types.Friend{}
	for rows.Next() {
		var friend types.Friend
		if err := rows.Scan(
			&friend.ID,
			&friend.UserID,
			&friend.FriendID,
			&friend.Status,
			&friend.CreatedAt,
			&friend.User.ID,
			&friend.User.Email,
			&friend.User.FirstName,
			&friend.User.LastName,
			&friend.User.AvatarURL,
		); err != nil {
			return nil, err
		}
		friends = append(friends, friend)
	}
	return friends, rows.Err()
}
