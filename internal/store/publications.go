package store

import (
	"context"
	"database/sql"
	"fmt"

	"inkwell/api/internal/util"
)

// CreatePublication inserts the publication, its owner membership, and any
// tag links in one transaction. The creator becomes the sole owner
// atomically with creation; a unique name violation rolls everything back.
func (s *PostgresStore) CreatePublication(ctx context.Context, pub Publication, ownerID string, tagNames []string) (Publication, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Publication{}, fmt.Errorf("begin create publication: %w", err)
	}
	defer tx.Rollback()

	tags, err := resolveTagsTx(ctx, tx, tagNames)
	if err != nil {
		return Publication{}, err
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO publications (id, name, description)
		VALUES ($1, $2, $3)
		RETURNING created_at, updated_at
	`, pub.ID, pub.Name, pub.Description).Scan(&pub.CreatedAt, &pub.UpdatedAt)
	if err != nil {
		return Publication{}, fmt.Errorf("insert publication: %w", mapPgError(err))
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO publication_memberships (id, publication_id, member_id, role)
		VALUES ($1, $2, $3, 'owner')
	`, util.NewID("mem"), pub.ID, ownerID); err != nil {
		return Publication{}, fmt.Errorf("insert owner membership: %w", mapPgError(err))
	}

	if err := linkPublicationTagsTx(ctx, tx, pub.ID, tags); err != nil {
		return Publication{}, err
	}

	if err := tx.Commit(); err != nil {
		return Publication{}, fmt.Errorf("commit create publication: %w", err)
	}
	pub.Tags = tags
	return pub, nil
}

// UpdatePublication updates the row and, when tagNames is non-nil, replaces
// the tag links, all in one transaction.
func (s *PostgresStore) UpdatePublication(ctx context.Context, pub Publication, tagNames []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update publication: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE publications SET name=$2, description=$3, updated_at=NOW()
		WHERE id=$1
	`, pub.ID, pub.Name, pub.Description)
	if err != nil {
		return fmt.Errorf("update publication: %w", mapPgError(err))
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update publication rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	if tagNames != nil {
		tags, err := resolveTagsTx(ctx, tx, tagNames)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM publication_tags WHERE publication_id=$1`, pub.ID); err != nil {
			return fmt.Errorf("clear publication tags: %w", err)
		}
		if err := linkPublicationTagsTx(ctx, tx, pub.ID, tags); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update publication: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetPublication(ctx context.Context, publicationID string) (Publication, error) {
	var pub Publication
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, created_at, updated_at
		FROM publications WHERE id=$1
	`, publicationID).Scan(&pub.ID, &pub.Name, &pub.Description, &pub.CreatedAt, &pub.UpdatedAt)
	if err != nil {
		return Publication{}, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.name
		FROM tags t
		JOIN publication_tags pt ON pt.tag_id = t.id
		WHERE pt.publication_id=$1
		ORDER BY t.name
	`, publicationID)
	if err != nil {
		return Publication{}, fmt.Errorf("list publication tags: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var tag Tag
		if err := rows.Scan(&tag.ID, &tag.Name); err != nil {
			return Publication{}, fmt.Errorf("scan publication tag: %w", err)
		}
		pub.Tags = append(pub.Tags, tag)
	}
	if err := rows.Err(); err != nil {
		return Publication{}, fmt.Errorf("iterate publication tags: %w", err)
	}
	return pub, nil
}

// MembershipRole returns the member's role in the publication, or
// sql.ErrNoRows when the user holds no membership.
func (s *PostgresStore) MembershipRole(ctx context.Context, publicationID, memberID string) (string, error) {
	var role string
	err := s.db.QueryRowContext(ctx, `
		SELECT role FROM publication_memberships
		WHERE publication_id=$1 AND member_id=$2
	`, publicationID, memberID).Scan(&role)
	if err != nil {
		return "", err
	}
	return role, nil
}

func (s *PostgresStore) MemberCount(ctx context.Context, publicationID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM publication_memberships WHERE publication_id=$1
	`, publicationID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count members: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) ListMembers(ctx context.Context, publicationID string) ([]Membership, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, publication_id, member_id, role, created_at
		FROM publication_memberships
		WHERE publication_id=$1
		ORDER BY created_at
	`, publicationID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	items := make([]Membership, 0)
	for rows.Next() {
		var item Membership
		if err := rows.Scan(&item.ID, &item.PublicationID, &item.MemberID, &item.Role, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan membership: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate members: %w", err)
	}
	return items, nil
}

// DeleteMembership removes the membership row for the pair and reports
// whether a row existed.
func (s *PostgresStore) DeleteMembership(ctx context.Context, publicationID, memberID string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM publication_memberships
		WHERE publication_id=$1 AND member_id=$2
	`, publicationID, memberID)
	if err != nil {
		return false, fmt.Errorf("delete membership: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete membership rows: %w", err)
	}
	return affected > 0, nil
}

func (s *PostgresStore) InsertInvitation(ctx context.Context, inv Invitation) (Invitation, error) {
	inv.Status = InvitationPending
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO publication_invitations (id, publication_id, invitee_id, role, status)
		VALUES ($1, $2, $3, $4, 'pending')
		RETURNING created_at, updated_at
	`, inv.ID, inv.PublicationID, inv.InviteeID, inv.Role).Scan(&inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return Invitation{}, fmt.Errorf("insert invitation: %w", mapPgError(err))
	}
	return inv, nil
}

const invitationColumns = `id, publication_id, invitee_id, role, status, created_at, updated_at`

func (s *PostgresStore) GetInvitation(ctx context.Context, invitationID string) (Invitation, error) {
	var inv Invitation
	err := s.db.QueryRowContext(ctx,
		`SELECT `+invitationColumns+` FROM publication_invitations WHERE id=$1`, invitationID).Scan(
		&inv.ID, &inv.PublicationID, &inv.InviteeID, &inv.Role, &inv.Status, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return Invitation{}, err
	}
	return inv, nil
}

func (s *PostgresStore) ListInvitations(ctx context.Context, publicationID string) ([]Invitation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+invitationColumns+`
		FROM publication_invitations
		WHERE publication_id=$1
		ORDER BY created_at DESC
	`, publicationID)
	if err != nil {
		return nil, fmt.Errorf("list invitations: %w", err)
	}
	defer rows.Close()

	items := make([]Invitation, 0)
	for rows.Next() {
		var inv Invitation
		if err := rows.Scan(&inv.ID, &inv.PublicationID, &inv.InviteeID, &inv.Role, &inv.Status, &inv.CreatedAt, &inv.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan invitation: %w", err)
		}
		items = append(items, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate invitations: %w", err)
	}
	return items, nil
}

// AcceptInvitation runs the acceptance transaction: mark the invitation
// accepted, reject every other pending invitation of the same invitee, and
// insert the membership row. No observer ever sees the invitation accepted
// while a sibling remains pending, and a membership uniqueness violation
// rolls the whole unit back (the invitation stays pending).
func (s *PostgresStore) AcceptInvitation(ctx context.Context, inv Invitation, membershipID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin accept invitation: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE publication_invitations SET status='accepted', updated_at=NOW()
		WHERE id=$1 AND status='pending'
	`, inv.ID)
	if err != nil {
		return fmt.Errorf("accept invitation: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("accept invitation rows: %w", err)
	}
	if affected == 0 {
		return ErrNotPending
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE publication_invitations SET status='rejected', updated_at=NOW()
		WHERE invitee_id=$1 AND id<>$2 AND status='pending'
	`, inv.InviteeID, inv.ID); err != nil {
		return fmt.Errorf("reject sibling invitations: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO publication_memberships (id, publication_id, member_id, role)
		VALUES ($1, $2, $3, $4)
	`, membershipID, inv.PublicationID, inv.InviteeID, inv.Role); err != nil {
		return fmt.Errorf("insert membership from invitation: %w", mapPgError(err))
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit accept invitation: %w", err)
	}
	return nil
}

// RejectInvitation marks a pending invitation rejected. Terminal statuses
// stay terminal: a non-pending invitation yields ErrNotPending.
func (s *PostgresStore) RejectInvitation(ctx context.Context, invitationID string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE publication_invitations SET status='rejected', updated_at=NOW()
		WHERE id=$1 AND status='pending'
	`, invitationID)
	if err != nil {
		return fmt.Errorf("reject invitation: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("reject invitation rows: %w", err)
	}
	if affected == 0 {
		return ErrNotPending
	}
	return nil
}

// ResolveTags finds or creates tag rows for the given names.
func (s *PostgresStore) ResolveTags(ctx context.Context, names []string) ([]Tag, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin resolve tags: %w", err)
	}
	defer tx.Rollback()

	tags, err := resolveTagsTx(ctx, tx, names)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit resolve tags: %w", err)
	}
	return tags, nil
}

func resolveTagsTx(ctx context.Context, tx *sql.Tx, names []string) ([]Tag, error) {
	tags := make([]Tag, 0, len(names))
	for _, name := range names {
		var tag Tag
		err := tx.QueryRowContext(ctx, `
			INSERT INTO tags (id, name) VALUES ($1, $2)
			ON CONFLICT (name) DO UPDATE SET name=EXCLUDED.name
			RETURNING id, name
		`, util.NewID("tag"), name).Scan(&tag.ID, &tag.Name)
		if err != nil {
			return nil, fmt.Errorf("resolve tag %s: %w", name, mapPgError(err))
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

func linkPublicationTagsTx(ctx context.Context, tx *sql.Tx, publicationID string, tags []Tag) error {
	for _, tag := range tags {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO publication_tags (publication_id, tag_id)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, publicationID, tag.ID); err != nil {
			return fmt.Errorf("link publication tag: %w", mapPgError(err))
		}
	}
	return nil
}
