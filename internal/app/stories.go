package app

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log"
	"time"

	"inkwell/api/internal/revisions"
	"inkwell/api/internal/roles"
	"inkwell/api/internal/search"
	"inkwell/api/internal/store"
	"inkwell/api/internal/util"
)

type StoryInput struct {
	Title         string
	Content       string
	Audience      string
	License       string
	PublicationID *string
	Tags          []string
}

func validateStoryInput(input StoryInput) *DomainError {
	if input.Title == "" {
		return validationFailed("story title is required")
	}
	switch input.Audience {
	case store.AudienceAll, store.AudienceMembers, store.AudienceUnlisted:
	default:
		return validationFailed("unknown audience")
	}
	switch input.License {
	case store.LicenseAllRightsReserved, store.LicensePublicDomain:
	default:
		return validationFailed("unknown license")
	}
	return nil
}

// CreateStory creates a draft story. Attaching it to a publication requires
// the author to hold a writing role there. The unique hash is generated
// here and never changes.
func (s *Service) CreateStory(ctx context.Context, authorID string, input StoryInput) (store.Story, error) {
	if input.Audience == "" {
		input.Audience = store.AudienceAll
	}
	if input.License == "" {
		input.License = store.LicenseAllRightsReserved
	}
	if err := validateStoryInput(input); err != nil {
		return store.Story{}, err
	}

	author, err := s.store.GetUser(ctx, authorID)
	if err != nil {
		return store.Story{}, notFound("author not found")
	}

	if input.PublicationID != nil {
		role, err := s.RoleFor(ctx, *input.PublicationID, authorID)
		if err != nil {
			return store.Story{}, err
		}
		if !roles.CanWriteStories(role) {
			return store.Story{}, permissionDenied("not allowed to write stories in this publication")
		}
	}

	story, err := s.store.InsertStory(ctx, store.Story{
		ID:            util.NewID("sty"),
		AuthorID:      authorID,
		PublicationID: input.PublicationID,
		Title:         input.Title,
		Content:       input.Content,
		Audience:      input.Audience,
		License:       input.License,
		UniqueHash:    util.NewUniqueHash(),
	})
	if errors.Is(err, store.ErrForeignKeyViolation) {
		return store.Story{}, notFound("publication not found")
	}
	if err != nil {
		return store.Story{}, err
	}

	if len(input.Tags) > 0 {
		if _, err := s.store.ReplaceStoryTags(ctx, story.ID, input.Tags); err != nil {
			return store.Story{}, err
		}
	}

	s.recordRevision(story, author.Username, "Create story")
	s.indexStory(story)
	return story, nil
}

// UpdateStory edits a story. The author may always edit; within a
// publication, members holding an editing role may edit too.
func (s *Service) UpdateStory(ctx context.Context, actorID, storyID string, input StoryInput) (store.Story, error) {
	story, err := s.store.GetStory(ctx, storyID)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Story{}, notFound("story not found")
	}
	if err != nil {
		return store.Story{}, err
	}

	allowed, err := s.canEditStory(ctx, story, actorID)
	if err != nil {
		return store.Story{}, err
	}
	if !allowed {
		return store.Story{}, permissionDenied("not allowed to edit this story")
	}

	if input.Audience == "" {
		input.Audience = story.Audience
	}
	if input.License == "" {
		input.License = story.License
	}
	if err := validateStoryInput(input); err != nil {
		return store.Story{}, err
	}

	// Moving the story into another publication requires a writing role
	// there as well.
	if input.PublicationID != nil &&
		(story.PublicationID == nil || *story.PublicationID != *input.PublicationID) {
		role, err := s.RoleFor(ctx, *input.PublicationID, actorID)
		if err != nil {
			return store.Story{}, err
		}
		if !roles.CanWriteStories(role) {
			return store.Story{}, permissionDenied("not allowed to write stories in this publication")
		}
	}

	story.Title = input.Title
	story.Content = input.Content
	story.Audience = input.Audience
	story.License = input.License
	story.PublicationID = input.PublicationID

	if err := s.store.UpdateStory(ctx, story); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.Story{}, notFound("story not found")
		}
		if errors.Is(err, store.ErrForeignKeyViolation) {
			return store.Story{}, notFound("publication not found")
		}
		return store.Story{}, err
	}
	if input.Tags != nil {
		if _, err := s.store.ReplaceStoryTags(ctx, story.ID, input.Tags); err != nil {
			return store.Story{}, err
		}
	}

	actor, err := s.store.GetUser(ctx, actorID)
	if err == nil {
		s.recordRevision(story, actor.Username, "Edit story")
	}
	s.indexStory(story)
	return s.store.GetStory(ctx, storyID)
}

// PublishStory stamps the story published. Republishing is a no-op.
func (s *Service) PublishStory(ctx context.Context, actorID, storyID string) (store.Story, error) {
	story, err := s.store.GetStory(ctx, storyID)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Story{}, notFound("story not found")
	}
	if err != nil {
		return store.Story{}, err
	}

	allowed, err := s.canEditStory(ctx, story, actorID)
	if err != nil {
		return store.Story{}, err
	}
	if !allowed {
		return store.Story{}, permissionDenied("not allowed to publish this story")
	}

	if err := s.store.PublishStory(ctx, storyID); err != nil {
		return store.Story{}, err
	}
	published, err := s.store.GetStory(ctx, storyID)
	if err != nil {
		return store.Story{}, err
	}
	s.indexStory(published)
	return published, nil
}

func (s *Service) GetStory(ctx context.Context, storyID string) (store.Story, error) {
	story, err := s.store.GetStory(ctx, storyID)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Story{}, notFound("story not found")
	}
	return story, err
}

func (s *Service) GetStoryByUniqueHash(ctx context.Context, uniqueHash string) (store.Story, error) {
	story, err := s.store.GetStoryByUniqueHash(ctx, uniqueHash)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Story{}, notFound("story not found")
	}
	return story, err
}

// CanSeeStory implements the audience rules: "all" and "unlisted" stories
// are visible to anyone holding the id (listing exclusion is a presentation
// concern); "members" stories are visible to the author and publication
// members only.
func (s *Service) CanSeeStory(ctx context.Context, story store.Story, userID string) (bool, error) {
	switch story.Audience {
	case store.AudienceAll, store.AudienceUnlisted:
		return true, nil
	case store.AudienceMembers:
		if userID == "" {
			return false, nil
		}
		if story.AuthorID == userID {
			return true, nil
		}
		if story.PublicationID == nil {
			return false, nil
		}
		role, err := s.RoleFor(ctx, *story.PublicationID, userID)
		if err != nil {
			return false, err
		}
		return roles.IsMember(role), nil
	default:
		return false, nil
	}
}

func (s *Service) canEditStory(ctx context.Context, story store.Story, actorID string) (bool, error) {
	if story.AuthorID == actorID {
		return true, nil
	}
	if story.PublicationID == nil {
		return false, nil
	}
	role, err := s.RoleFor(ctx, *story.PublicationID, actorID)
	if err != nil {
		return false, err
	}
	return roles.CanEditStories(role), nil
}

// UploadStoryCover stores the cover image in object storage and records
// its key on the story.
func (s *Service) UploadStoryCover(ctx context.Context, actorID, storyID string, reader io.Reader, size int64, contentType string) error {
	if s.media == nil {
		return validationFailed("media uploads are not enabled")
	}
	story, err := s.store.GetStory(ctx, storyID)
	if errors.Is(err, sql.ErrNoRows) {
		return notFound("story not found")
	}
	if err != nil {
		return err
	}
	allowed, err := s.canEditStory(ctx, story, actorID)
	if err != nil {
		return err
	}
	if !allowed {
		return permissionDenied("not allowed to edit this story")
	}

	key := "covers/" + storyID
	if _, err := s.media.Put(ctx, key, reader, size, contentType); err != nil {
		return err
	}
	return s.store.SetStoryCover(ctx, storyID, key)
}

// StoryCoverURL returns a time-limited link to the story's cover, or ""
// when the story has none.
func (s *Service) StoryCoverURL(ctx context.Context, story store.Story) (string, error) {
	if s.media == nil || story.CoverObject == "" {
		return "", nil
	}
	return s.media.PresignedURL(ctx, story.CoverObject, time.Hour)
}

// StarStory stars a story for the user; starring twice is a no-op. The
// user must be able to see the story.
func (s *Service) StarStory(ctx context.Context, userID, storyID string) error {
	story, err := s.store.GetStory(ctx, storyID)
	if errors.Is(err, sql.ErrNoRows) {
		return notFound("story not found")
	}
	if err != nil {
		return err
	}
	visible, err := s.CanSeeStory(ctx, story, userID)
	if err != nil {
		return err
	}
	if !visible {
		return permissionDenied("not allowed to see this story")
	}
	return s.store.StarStory(ctx, storyID, userID)
}

func (s *Service) UnstarStory(ctx context.Context, userID, storyID string) error {
	return s.store.UnstarStory(ctx, storyID, userID)
}

// StarCount counts stars from currently-active users.
func (s *Service) StarCount(ctx context.Context, storyID string) (int, error) {
	return s.store.StarCount(ctx, storyID)
}

// SearchStories queries the search facade. Returns an empty response when
// search is not configured.
func (s *Service) SearchStories(ctx context.Context, text string, limit, offset int) search.Response {
	if s.search == nil {
		return search.Response{Results: []search.Result{}, Query: text}
	}
	return s.search.Search(search.Query{Text: text, Limit: limit, Offset: offset})
}

// StoryRevisions lists the story's draft history, newest first.
func (s *Service) StoryRevisions(ctx context.Context, actorID, storyID string, limit int) ([]revisions.CommitInfo, error) {
	if s.revisions == nil {
		return nil, nil
	}
	story, err := s.store.GetStory(ctx, storyID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("story not found")
	}
	if err != nil {
		return nil, err
	}
	allowed, err := s.canEditStory(ctx, story, actorID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, permissionDenied("not allowed to see this story's history")
	}
	return s.revisions.History(storyID, limit)
}

func (s *Service) recordRevision(story store.Story, author, message string) {
	if s.revisions == nil {
		return
	}
	content := revisions.Content{Title: story.Title, Body: story.Content}
	if err := s.revisions.CommitDraft(story.ID, content, author, message); err != nil {
		log.Printf("revisions: commit %s: %v", story.ID, err)
	}
}

func (s *Service) indexStory(story store.Story) {
	if s.search == nil {
		return
	}
	s.search.IndexStory(search.StoryRecord{
		ID:         story.ID,
		Title:      story.Title,
		Content:    story.Content,
		UniqueHash: story.UniqueHash,
		Audience:   story.Audience,
		Published:  story.PublishedAt != nil,
	})
}
