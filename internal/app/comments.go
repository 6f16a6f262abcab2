package app

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"inkwell/api/internal/store"
	"inkwell/api/internal/util"
)

// CreateComment writes a comment on a story or a reply to another comment.
// Replies store the root story id directly, so visibility never walks the
// parent chain. The author must be able to see the story.
func (s *Service) CreateComment(ctx context.Context, authorID, storyID string, parentID *string, body string) (store.Comment, error) {
	if strings.TrimSpace(body) == "" {
		return store.Comment{}, validationFailed("comment body is required")
	}
	if _, err := s.store.GetUser(ctx, authorID); err != nil {
		return store.Comment{}, notFound("author not found")
	}

	if parentID != nil {
		parent, err := s.store.GetComment(ctx, *parentID)
		if errors.Is(err, sql.ErrNoRows) {
			return store.Comment{}, notFound("parent comment not found")
		}
		if err != nil {
			return store.Comment{}, err
		}
		// The reply always hangs off the parent's story, whatever the
		// caller claimed.
		storyID = parent.StoryID
	}

	story, err := s.store.GetStory(ctx, storyID)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Comment{}, notFound("story not found")
	}
	if err != nil {
		return store.Comment{}, err
	}
	visible, err := s.CanSeeStory(ctx, story, authorID)
	if err != nil {
		return store.Comment{}, err
	}
	if !visible {
		return store.Comment{}, permissionDenied("not allowed to see this story")
	}

	comment, err := s.store.InsertComment(ctx, store.Comment{
		ID:       util.NewID("cmt"),
		StoryID:  storyID,
		ParentID: parentID,
		AuthorID: authorID,
		Body:     body,
	})
	if errors.Is(err, store.ErrForeignKeyViolation) {
		return store.Comment{}, notFound("story not found")
	}
	return comment, err
}

func (s *Service) GetComment(ctx context.Context, commentID string) (store.Comment, error) {
	comment, err := s.store.GetComment(ctx, commentID)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Comment{}, notFound("comment not found")
	}
	return comment, err
}

// ListComments returns a story's comments, oldest first, visibility-gated
// on the story.
func (s *Service) ListComments(ctx context.Context, userID, storyID string) ([]store.Comment, error) {
	story, err := s.store.GetStory(ctx, storyID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("story not found")
	}
	if err != nil {
		return nil, err
	}
	visible, err := s.CanSeeStory(ctx, story, userID)
	if err != nil {
		return nil, err
	}
	if !visible {
		return nil, permissionDenied("not allowed to see this story")
	}
	return s.store.ListComments(ctx, storyID)
}

// CanSeeComment delegates to the comment's story. The stored story id makes
// this one lookup regardless of reply depth.
func (s *Service) CanSeeComment(ctx context.Context, comment store.Comment, userID string) (bool, error) {
	story, err := s.store.GetStory(ctx, comment.StoryID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return s.CanSeeStory(ctx, story, userID)
}

// CommentScope names what to count: top-level comments of a story, or
// direct replies to a comment. Exactly one field must be set.
type CommentScope struct {
	StoryID   string
	CommentID string
}

// CommentCount counts comments in the scope whose authors are currently
// active. Comments by deactivated users stay stored but are not counted.
// An unknown scoped entity is a NotFound, never a zero count.
func (s *Service) CommentCount(ctx context.Context, scope CommentScope) (int, error) {
	switch {
	case scope.StoryID != "" && scope.CommentID != "":
		return 0, validationFailed("count scope must name a story or a comment, not both")
	case scope.StoryID != "":
		if _, err := s.store.GetStory(ctx, scope.StoryID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return 0, notFound("story not found")
			}
			return 0, err
		}
		return s.store.CommentCountForStory(ctx, scope.StoryID)
	case scope.CommentID != "":
		if _, err := s.store.GetComment(ctx, scope.CommentID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return 0, notFound("comment not found")
			}
			return 0, err
		}
		return s.store.CommentCountForComment(ctx, scope.CommentID)
	default:
		return 0, validationFailed("count scope must name a story or a comment")
	}
}
