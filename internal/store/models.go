package store

import "time"

type User struct {
	ID            string
	Username      string
	Email         string
	DisplayName   string
	PasswordHash  string
	DeactivatedAt *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Active reports whether the user may author visible content. Deactivated
// users keep their rows but are excluded from counts.
func (u User) Active() bool {
	return u.DeactivatedAt == nil
}

type Publication struct {
	ID          string
	Name        string
	Description string
	Tags        []Tag
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Membership struct {
	ID            string
	PublicationID string
	MemberID      string
	Role          string
	CreatedAt     time.Time
}

const (
	InvitationPending  = "pending"
	InvitationAccepted = "accepted"
	InvitationRejected = "rejected"
)

type Invitation struct {
	ID            string
	PublicationID string
	InviteeID     string
	Role          string
	Status        string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

const (
	AudienceAll      = "all"
	AudienceMembers  = "members"
	AudienceUnlisted = "unlisted"
)

const (
	LicenseAllRightsReserved = "all_rights_reserved"
	LicensePublicDomain      = "public_domain"
)

type Story struct {
	ID            string
	AuthorID      string
	PublicationID *string
	Title         string
	Content       string
	Audience      string
	License       string
	UniqueHash    string
	CoverObject   string
	PublishedAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Comment struct {
	ID        string
	StoryID   string
	ParentID  *string
	AuthorID  string
	Body      string
	CreatedAt time.Time
}

type Tag struct {
	ID   string
	Name string
}
