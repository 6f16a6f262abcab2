package store

import (
	"context"
	"database/sql"
	"fmt"
)

const storyColumns = `id, author_id, publication_id, title, content, audience, license, unique_hash, cover_object, published_at, created_at, updated_at`

func scanStory(row *sql.Row) (Story, error) {
	var story Story
	err := row.Scan(
		&story.ID,
		&story.AuthorID,
		&story.PublicationID,
		&story.Title,
		&story.Content,
		&story.Audience,
		&story.License,
		&story.UniqueHash,
		&story.CoverObject,
		&story.PublishedAt,
		&story.CreatedAt,
		&story.UpdatedAt,
	)
	return story, err
}

func (s *PostgresStore) InsertStory(ctx context.Context, story Story) (Story, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO stories (id, author_id, publication_id, title, content, audience, license, unique_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`, story.ID, story.AuthorID, story.PublicationID, story.Title, story.Content,
		story.Audience, story.License, story.UniqueHash).Scan(&story.CreatedAt, &story.UpdatedAt)
	if err != nil {
		return Story{}, fmt.Errorf("insert story: %w", mapPgError(err))
	}
	return story, nil
}

func (s *PostgresStore) GetStory(ctx context.Context, storyID string) (Story, error) {
	return scanStory(s.db.QueryRowContext(ctx,
		`SELECT `+storyColumns+` FROM stories WHERE id=$1`, storyID))
}

func (s *PostgresStore) GetStoryByUniqueHash(ctx context.Context, uniqueHash string) (Story, error) {
	return scanStory(s.db.QueryRowContext(ctx,
		`SELECT `+storyColumns+` FROM stories WHERE unique_hash=$1`, uniqueHash))
}

// UpdateStory updates mutable story fields. The unique hash is never
// touched: it is immutable once set.
func (s *PostgresStore) UpdateStory(ctx context.Context, story Story) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE stories
		SET title=$2, content=$3, audience=$4, license=$5, publication_id=$6, updated_at=NOW()
		WHERE id=$1
	`, story.ID, story.Title, story.Content, story.Audience, story.License, story.PublicationID)
	if err != nil {
		return fmt.Errorf("update story: %w", mapPgError(err))
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update story rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// PublishStory stamps published_at once; republishing is a no-op.
func (s *PostgresStore) PublishStory(ctx context.Context, storyID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE stories SET published_at=NOW(), updated_at=NOW()
		WHERE id=$1 AND published_at IS NULL
	`, storyID)
	if err != nil {
		return fmt.Errorf("publish story: %w", err)
	}
	return nil
}

func (s *PostgresStore) SetStoryCover(ctx context.Context, storyID, coverObject string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE stories SET cover_object=$2, updated_at=NOW() WHERE id=$1
	`, storyID, coverObject)
	if err != nil {
		return fmt.Errorf("set story cover: %w", err)
	}
	return nil
}

// ReplaceStoryTags resolves tag names and swaps the story's tag links in
// one transaction.
func (s *PostgresStore) ReplaceStoryTags(ctx context.Context, storyID string, tagNames []string) ([]Tag, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin replace story tags: %w", err)
	}
	defer tx.Rollback()

	tags, err := resolveTagsTx(ctx, tx, tagNames)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM story_tags WHERE story_id=$1`, storyID); err != nil {
		return nil, fmt.Errorf("clear story tags: %w", err)
	}
	for _, tag := range tags {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO story_tags (story_id, tag_id) VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, storyID, tag.ID); err != nil {
			return nil, fmt.Errorf("link story tag: %w", mapPgError(err))
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit replace story tags: %w", err)
	}
	return tags, nil
}

func (s *PostgresStore) StarStory(ctx context.Context, storyID, userID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO stars (story_id, user_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, storyID, userID)
	if err != nil {
		return fmt.Errorf("star story: %w", mapPgError(err))
	}
	return nil
}

func (s *PostgresStore) UnstarStory(ctx context.Context, storyID, userID string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM stars WHERE story_id=$1 AND user_id=$2
	`, storyID, userID)
	if err != nil {
		return fmt.Errorf("unstar story: %w", err)
	}
	return nil
}

// StarCount counts stars from currently-active users only, the same policy
// as comment counts.
func (s *PostgresStore) StarCount(ctx context.Context, storyID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM stars st
		JOIN users u ON u.id = st.user_id
		WHERE st.story_id=$1 AND u.deactivated_at IS NULL
	`, storyID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count stars: %w", err)
	}
	return count, nil
}
