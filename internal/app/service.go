package app

import (
	"context"

	"inkwell/api/internal/email"
	"inkwell/api/internal/media"
	"inkwell/api/internal/revisions"
	"inkwell/api/internal/search"
	"inkwell/api/internal/store"
)

type dataStore interface {
	GetUser(context.Context, string) (store.User, error)
	GetUserByUsername(context.Context, string) (store.User, error)

	CreatePublication(context.Context, store.Publication, string, []string) (store.Publication, error)
	UpdatePublication(context.Context, store.Publication, []string) error
	GetPublication(context.Context, string) (store.Publication, error)
	MembershipRole(context.Context, string, string) (string, error)
	MemberCount(context.Context, string) (int, error)
	ListMembers(context.Context, string) ([]store.Membership, error)
	DeleteMembership(context.Context, string, string) (bool, error)

	InsertInvitation(context.Context, store.Invitation) (store.Invitation, error)
	GetInvitation(context.Context, string) (store.Invitation, error)
	ListInvitations(context.Context, string) ([]store.Invitation, error)
	AcceptInvitation(context.Context, store.Invitation, string) error
	RejectInvitation(context.Context, string) error

	InsertStory(context.Context, store.Story) (store.Story, error)
	GetStory(context.Context, string) (store.Story, error)
	GetStoryByUniqueHash(context.Context, string) (store.Story, error)
	UpdateStory(context.Context, store.Story) error
	PublishStory(context.Context, string) error
	SetStoryCover(context.Context, string, string) error
	ReplaceStoryTags(context.Context, string, []string) ([]store.Tag, error)
	StarStory(context.Context, string, string) error
	UnstarStory(context.Context, string, string) error
	StarCount(context.Context, string) (int, error)

	InsertComment(context.Context, store.Comment) (store.Comment, error)
	GetComment(context.Context, string) (store.Comment, error)
	ListComments(context.Context, string) ([]store.Comment, error)
	CommentCountForStory(context.Context, string) (int, error)
	CommentCountForComment(context.Context, string) (int, error)

	ResolveTags(context.Context, []string) ([]store.Tag, error)
	Ping(context.Context) error
}

// inviteTokens issues and redeems single-use invitation-link tokens.
type inviteTokens interface {
	Issue(ctx context.Context, invitationID string) (string, error)
	Redeem(ctx context.Context, token string) (string, error)
}

// Service is the command/query surface of the publishing core. Every
// operation is a request-scoped read/compute/write cycle against the
// injected store; multi-write operations run inside one store transaction.
type Service struct {
	store     dataStore
	search    *search.Service
	revisions *revisions.Service
	mailer    *email.Service
	invites   inviteTokens
	media     *media.Service
}

// New creates the service. search, revisionLog, mailer, invites, and
// mediaStore are optional collaborators; nil disables the corresponding
// side effects.
func New(dataStore *store.PostgresStore, searchService *search.Service, revisionLog *revisions.Service, mailer *email.Service, invites inviteTokens, mediaStore *media.Service) *Service {
	return &Service{
		store:     dataStore,
		search:    searchService,
		revisions: revisionLog,
		mailer:    mailer,
		invites:   invites,
		media:     mediaStore,
	}
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// GetUser resolves a user by id; absence is a NotFound, never an error
// wrapped in a zero value.
func (s *Service) GetUser(ctx context.Context, userID string) (store.User, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return store.User{}, notFound("user not found")
	}
	return user, nil
}

func (s *Service) GetUserByUsername(ctx context.Context, username string) (store.User, error) {
	user, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		return store.User{}, notFound("user not found")
	}
	return user, nil
}

// ResolveTags finds or creates tags for the given names.
func (s *Service) ResolveTags(ctx context.Context, names []string) ([]store.Tag, error) {
	return s.store.ResolveTags(ctx, names)
}
