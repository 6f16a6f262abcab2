package store

import (
	"context"
	"database/sql"
	"fmt"
)

const commentColumns = `id, story_id, parent_id, author_id, body, created_at`

// InsertComment stores a comment. Replies carry the root story id in
// story_id as well as parent_id, so visibility lookups never walk the
// reply chain.
func (s *PostgresStore) InsertComment(ctx context.Context, comment Comment) (Comment, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO comments (id, story_id, parent_id, author_id, body)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, comment.ID, comment.StoryID, comment.ParentID, comment.AuthorID, comment.Body).Scan(&comment.CreatedAt)
	if err != nil {
		return Comment{}, fmt.Errorf("insert comment: %w", mapPgError(err))
	}
	return comment, nil
}

func (s *PostgresStore) GetComment(ctx context.Context, commentID string) (Comment, error) {
	var comment Comment
	err := s.db.QueryRowContext(ctx,
		`SELECT `+commentColumns+` FROM comments WHERE id=$1`, commentID).Scan(
		&comment.ID, &comment.StoryID, &comment.ParentID, &comment.AuthorID, &comment.Body, &comment.CreatedAt)
	if err != nil {
		return Comment{}, err
	}
	return comment, nil
}

func (s *PostgresStore) ListComments(ctx context.Context, storyID string) ([]Comment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+commentColumns+`
		FROM comments
		WHERE story_id=$1
		ORDER BY created_at
	`, storyID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	items := make([]Comment, 0)
	for rows.Next() {
		var comment Comment
		if err := rows.Scan(&comment.ID, &comment.StoryID, &comment.ParentID, &comment.AuthorID, &comment.Body, &comment.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		items = append(items, comment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comments: %w", err)
	}
	return items, nil
}

// CommentCountForStory counts top-level comments on the story authored by
// currently-active users. The active-author filter is always joined; rows
// from deactivated authors stay in the table but never in the count.
func (s *PostgresStore) CommentCountForStory(ctx context.Context, storyID string) (int, error) {
	return s.commentCount(ctx, `
		SELECT COUNT(*)
		FROM comments c
		JOIN users u ON u.id = c.author_id
		WHERE c.story_id=$1 AND c.parent_id IS NULL AND u.deactivated_at IS NULL
	`, storyID)
}

// CommentCountForComment counts direct replies to the comment, with the
// same active-author filter.
func (s *PostgresStore) CommentCountForComment(ctx context.Context, commentID string) (int, error) {
	return s.commentCount(ctx, `
		SELECT COUNT(*)
		FROM comments c
		JOIN users u ON u.id = c.author_id
		WHERE c.parent_id=$1 AND u.deactivated_at IS NULL
	`, commentID)
}

func (s *PostgresStore) commentCount(ctx context.Context, query, scopeID string) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, query, scopeID).Scan(&count); err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		return 0, fmt.Errorf("count comments: %w", err)
	}
	return count, nil
}
