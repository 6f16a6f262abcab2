package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"

	"inkwell/api/internal/util"
)

// newTestStore opens the database named by DATABASE_URL and applies
// migrations, or skips the test when no database is configured.
func newTestStore(t *testing.T) *PostgresStore {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		t.Skip("DATABASE_URL not set; skipping integration test")
	}

	ctx := context.Background()
	db, err := Open(ctx, databaseURL, PoolOptions{})
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := ApplyMigrations(ctx, db, "../../db/migrations"); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	return NewPostgresStore(db)
}

func seedUser(t *testing.T, s *PostgresStore, prefix string) User {
	t.Helper()
	user := User{
		ID:           util.NewID("usr"),
		Username:     prefix + "-" + util.NewID(""),
		Email:        prefix + "-" + util.NewID("") + "@example.test",
		DisplayName:  prefix,
		PasswordHash: "x",
	}
	if err := s.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func seedPublication(t *testing.T, s *PostgresStore, ownerID string) Publication {
	t.Helper()
	pub, err := s.CreatePublication(context.Background(), Publication{
		ID:   util.NewID("pub"),
		Name: "pub-" + util.NewID(""),
	}, ownerID, nil)
	if err != nil {
		t.Fatalf("seed publication: %v", err)
	}
	return pub
}

func TestCreatePublicationBootstrapsOwner(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	owner := seedUser(t, s, "owner")
	pub, err := s.CreatePublication(ctx, Publication{
		ID:          util.NewID("pub"),
		Name:        "pub-" + util.NewID(""),
		Description: "a publication",
	}, owner.ID, []string{"golang", "databases"})
	if err != nil {
		t.Fatalf("CreatePublication: %v", err)
	}

	role, err := s.MembershipRole(ctx, pub.ID, owner.ID)
	if err != nil {
		t.Fatalf("MembershipRole: %v", err)
	}
	if role != "owner" {
		t.Fatalf("owner role = %q, want owner", role)
	}

	count, err := s.MemberCount(ctx, pub.ID)
	if err != nil {
		t.Fatalf("MemberCount: %v", err)
	}
	if count != 1 {
		t.Fatalf("member count = %d, want 1", count)
	}
	if len(pub.Tags) != 2 {
		t.Fatalf("tag count = %d, want 2", len(pub.Tags))
	}
}

func TestCreatePublicationDuplicateNameRollsBack(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	owner := seedUser(t, s, "owner")
	name := "pub-" + util.NewID("")
	if _, err := s.CreatePublication(ctx, Publication{ID: util.NewID("pub"), Name: name}, owner.ID, nil); err != nil {
		t.Fatalf("first CreatePublication: %v", err)
	}

	second := seedUser(t, s, "second")
	dupID := util.NewID("pub")
	_, err := s.CreatePublication(ctx, Publication{ID: dupID, Name: name}, second.ID, nil)
	if !errors.Is(err, ErrUniqueViolation) {
		t.Fatalf("duplicate name error = %v, want ErrUniqueViolation", err)
	}

	// The failed creator must not have gained a membership anywhere.
	if _, err := s.MembershipRole(ctx, dupID, second.ID); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("membership after rollback: err = %v, want sql.ErrNoRows", err)
	}
}

func TestAcceptInvitationRejectsSiblings(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ownerA := seedUser(t, s, "owner-a")
	ownerB := seedUser(t, s, "owner-b")
	invitee := seedUser(t, s, "invitee")
	pubA := seedPublication(t, s, ownerA.ID)
	pubB := seedPublication(t, s, ownerB.ID)

	invA, err := s.InsertInvitation(ctx, Invitation{
		ID: util.NewID("inv"), PublicationID: pubA.ID, InviteeID: invitee.ID, Role: "editor",
	})
	if err != nil {
		t.Fatalf("insert invitation A: %v", err)
	}
	invB, err := s.InsertInvitation(ctx, Invitation{
		ID: util.NewID("inv"), PublicationID: pubB.ID, InviteeID: invitee.ID, Role: "writer",
	})
	if err != nil {
		t.Fatalf("insert invitation B: %v", err)
	}

	if err := s.AcceptInvitation(ctx, invA, util.NewID("mem")); err != nil {
		t.Fatalf("AcceptInvitation: %v", err)
	}

	gotA, err := s.GetInvitation(ctx, invA.ID)
	if err != nil {
		t.Fatalf("GetInvitation A: %v", err)
	}
	if gotA.Status != InvitationAccepted {
		t.Fatalf("invitation A status = %q, want accepted", gotA.Status)
	}

	gotB, err := s.GetInvitation(ctx, invB.ID)
	if err != nil {
		t.Fatalf("GetInvitation B: %v", err)
	}
	if gotB.Status != InvitationRejected {
		t.Fatalf("sibling invitation status = %q, want rejected", gotB.Status)
	}

	role, err := s.MembershipRole(ctx, pubA.ID, invitee.ID)
	if err != nil {
		t.Fatalf("MembershipRole: %v", err)
	}
	if role != "editor" {
		t.Fatalf("invitee role = %q, want editor", role)
	}
}

func TestAcceptInvitationTerminalStateIsConflict(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	owner := seedUser(t, s, "owner")
	invitee := seedUser(t, s, "invitee")
	pub := seedPublication(t, s, owner.ID)

	inv, err := s.InsertInvitation(ctx, Invitation{
		ID: util.NewID("inv"), PublicationID: pub.ID, InviteeID: invitee.ID, Role: "writer",
	})
	if err != nil {
		t.Fatalf("insert invitation: %v", err)
	}

	if err := s.RejectInvitation(ctx, inv.ID); err != nil {
		t.Fatalf("RejectInvitation: %v", err)
	}
	if err := s.RejectInvitation(ctx, inv.ID); !errors.Is(err, ErrNotPending) {
		t.Fatalf("second reject error = %v, want ErrNotPending", err)
	}
	if err := s.AcceptInvitation(ctx, inv, util.NewID("mem")); !errors.Is(err, ErrNotPending) {
		t.Fatalf("accept after reject error = %v, want ErrNotPending", err)
	}

	got, err := s.GetInvitation(ctx, inv.ID)
	if err != nil {
		t.Fatalf("GetInvitation: %v", err)
	}
	if got.Status != InvitationRejected {
		t.Fatalf("status after terminal no-op calls = %q, want rejected", got.Status)
	}
}

func TestAcceptInvitationLosingUniquenessRaceRollsBack(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	owner := seedUser(t, s, "owner")
	invitee := seedUser(t, s, "invitee")
	pub := seedPublication(t, s, owner.ID)

	first, err := s.InsertInvitation(ctx, Invitation{
		ID: util.NewID("inv"), PublicationID: pub.ID, InviteeID: invitee.ID, Role: "writer",
	})
	if err != nil {
		t.Fatalf("insert first invitation: %v", err)
	}
	if err := s.AcceptInvitation(ctx, first, util.NewID("mem")); err != nil {
		t.Fatalf("accept first invitation: %v", err)
	}

	// A second invitation for the same pair loses the membership
	// uniqueness check at acceptance time.
	second, err := s.InsertInvitation(ctx, Invitation{
		ID: util.NewID("inv"), PublicationID: pub.ID, InviteeID: invitee.ID, Role: "editor",
	})
	if err != nil {
		t.Fatalf("insert second invitation: %v", err)
	}
	err = s.AcceptInvitation(ctx, second, util.NewID("mem"))
	if !errors.Is(err, ErrUniqueViolation) {
		t.Fatalf("racing accept error = %v, want ErrUniqueViolation", err)
	}

	// Whole unit rolled back: the invitation is still pending and exactly
	// one membership row exists.
	got, err := s.GetInvitation(ctx, second.ID)
	if err != nil {
		t.Fatalf("GetInvitation: %v", err)
	}
	if got.Status != InvitationPending {
		t.Fatalf("status after lost race = %q, want pending", got.Status)
	}

	role, err := s.MembershipRole(ctx, pub.ID, invitee.ID)
	if err != nil {
		t.Fatalf("MembershipRole: %v", err)
	}
	if role != "writer" {
		t.Fatalf("surviving role = %q, want writer from the first accept", role)
	}
}

func TestDeleteMembershipReportsMissingRow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	owner := seedUser(t, s, "owner")
	outsider := seedUser(t, s, "outsider")
	pub := seedPublication(t, s, owner.ID)

	deleted, err := s.DeleteMembership(ctx, pub.ID, outsider.ID)
	if err != nil {
		t.Fatalf("DeleteMembership: %v", err)
	}
	if deleted {
		t.Fatal("DeleteMembership deleted a row for a non-member")
	}

	deleted, err = s.DeleteMembership(ctx, pub.ID, owner.ID)
	if err != nil {
		t.Fatalf("DeleteMembership owner: %v", err)
	}
	if !deleted {
		t.Fatal("DeleteMembership did not delete the owner row")
	}
}

func TestCommentCountsExcludeDeactivatedAuthors(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	author := seedUser(t, s, "author")
	active := seedUser(t, s, "active")
	ghost := seedUser(t, s, "ghost")

	story, err := s.InsertStory(ctx, Story{
		ID:         util.NewID("sty"),
		AuthorID:   author.ID,
		Title:      "counting comments",
		Audience:   AudienceAll,
		License:    LicenseAllRightsReserved,
		UniqueHash: util.NewUniqueHash(),
	})
	if err != nil {
		t.Fatalf("InsertStory: %v", err)
	}

	top, err := s.InsertComment(ctx, Comment{
		ID: util.NewID("cmt"), StoryID: story.ID, AuthorID: active.ID, Body: "first",
	})
	if err != nil {
		t.Fatalf("insert top comment: %v", err)
	}
	if _, err := s.InsertComment(ctx, Comment{
		ID: util.NewID("cmt"), StoryID: story.ID, AuthorID: ghost.ID, Body: "second",
	}); err != nil {
		t.Fatalf("insert ghost comment: %v", err)
	}
	// Reply stores the root story id alongside parent_id.
	if _, err := s.InsertComment(ctx, Comment{
		ID: util.NewID("cmt"), StoryID: story.ID, ParentID: &top.ID, AuthorID: ghost.ID, Body: "reply",
	}); err != nil {
		t.Fatalf("insert ghost reply: %v", err)
	}

	if err := s.DeactivateUser(ctx, ghost.ID); err != nil {
		t.Fatalf("DeactivateUser: %v", err)
	}

	storyCount, err := s.CommentCountForStory(ctx, story.ID)
	if err != nil {
		t.Fatalf("CommentCountForStory: %v", err)
	}
	if storyCount != 1 {
		t.Fatalf("story comment count = %d, want 1 (deactivated author excluded)", storyCount)
	}

	replyCount, err := s.CommentCountForComment(ctx, top.ID)
	if err != nil {
		t.Fatalf("CommentCountForComment: %v", err)
	}
	if replyCount != 0 {
		t.Fatalf("reply count = %d, want 0 (deactivated author excluded)", replyCount)
	}

	// The rows remain for display even though the counts exclude them.
	all, err := s.ListComments(ctx, story.ID)
	if err != nil {
		t.Fatalf("ListComments: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("stored comments = %d, want 3", len(all))
	}
}
