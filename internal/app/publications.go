package app

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"strings"

	"inkwell/api/internal/roles"
	"inkwell/api/internal/store"
	"inkwell/api/internal/util"
)

// RoleFor returns the member's role in the publication, or roles.RoleNone
// when no membership exists. Absence is a normal answer, not an error.
func (s *Service) RoleFor(ctx context.Context, publicationID, userID string) (roles.Role, error) {
	if userID == "" {
		return roles.RoleNone, nil
	}
	role, err := s.store.MembershipRole(ctx, publicationID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return roles.RoleNone, nil
	}
	if err != nil {
		return roles.RoleNone, err
	}
	return roles.Normalize(role), nil
}

// CreatePublication inserts the publication and its owner membership in one
// atomic unit. The creator becomes the sole owner.
func (s *Service) CreatePublication(ctx context.Context, ownerID, name, description string, tagNames []string) (store.Publication, error) {
	if strings.TrimSpace(name) == "" {
		return store.Publication{}, validationFailed("publication name is required")
	}
	if _, err := s.store.GetUser(ctx, ownerID); err != nil {
		return store.Publication{}, notFound("owner not found")
	}

	pub, err := s.store.CreatePublication(ctx, store.Publication{
		ID:          util.NewID("pub"),
		Name:        name,
		Description: description,
	}, ownerID, tagNames)
	if errors.Is(err, store.ErrUniqueViolation) {
		return store.Publication{}, validationFailed("publication name already taken")
	}
	if err != nil {
		return store.Publication{}, err
	}
	return pub, nil
}

func (s *Service) UpdatePublication(ctx context.Context, actorID, publicationID, name, description string, tagNames []string) (store.Publication, error) {
	role, err := s.RoleFor(ctx, publicationID, actorID)
	if err != nil {
		return store.Publication{}, err
	}
	if !roles.CanUpdatePublication(role) {
		return store.Publication{}, permissionDenied("not allowed to update this publication")
	}
	if strings.TrimSpace(name) == "" {
		return store.Publication{}, validationFailed("publication name is required")
	}

	err = s.store.UpdatePublication(ctx, store.Publication{
		ID:          publicationID,
		Name:        name,
		Description: description,
	}, tagNames)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Publication{}, notFound("publication not found")
	}
	if errors.Is(err, store.ErrUniqueViolation) {
		return store.Publication{}, validationFailed("publication name already taken")
	}
	if err != nil {
		return store.Publication{}, err
	}
	return s.store.GetPublication(ctx, publicationID)
}

func (s *Service) GetPublication(ctx context.Context, publicationID string) (store.Publication, error) {
	pub, err := s.store.GetPublication(ctx, publicationID)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Publication{}, notFound("publication not found")
	}
	return pub, err
}

func (s *Service) MemberCount(ctx context.Context, publicationID string) (int, error) {
	return s.store.MemberCount(ctx, publicationID)
}

// ListInvitations returns the publication's invitations; only owners and
// admins may see them.
func (s *Service) ListInvitations(ctx context.Context, actorID, publicationID string) ([]store.Invitation, error) {
	role, err := s.RoleFor(ctx, publicationID, actorID)
	if err != nil {
		return nil, err
	}
	if !roles.CanSeeInvitations(role) {
		return nil, permissionDenied("not allowed to see invitations")
	}
	return s.store.ListInvitations(ctx, publicationID)
}

// InviteMember records a pending membership offer. Inviting a user who is
// already a member is rejected eagerly rather than left to fail at
// acceptance time.
func (s *Service) InviteMember(ctx context.Context, actorID, publicationID, inviteeID string, role roles.Role) (store.Invitation, error) {
	actorRole, err := s.RoleFor(ctx, publicationID, actorID)
	if err != nil {
		return store.Invitation{}, err
	}
	if !roles.CanSeeInvitations(actorRole) {
		return store.Invitation{}, permissionDenied("not allowed to invite members")
	}
	if !roles.Valid(role) {
		return store.Invitation{}, validationFailed("unknown role")
	}

	invitee, err := s.store.GetUser(ctx, inviteeID)
	if err != nil {
		return store.Invitation{}, notFound("invitee not found")
	}

	inviteeRole, err := s.RoleFor(ctx, publicationID, inviteeID)
	if err != nil {
		return store.Invitation{}, err
	}
	if roles.IsMember(inviteeRole) {
		return store.Invitation{}, conflict("user is already a member")
	}

	inv, err := s.store.InsertInvitation(ctx, store.Invitation{
		ID:            util.NewID("inv"),
		PublicationID: publicationID,
		InviteeID:     inviteeID,
		Role:          string(role),
	})
	if errors.Is(err, store.ErrForeignKeyViolation) {
		return store.Invitation{}, notFound("publication not found")
	}
	if err != nil {
		return store.Invitation{}, err
	}

	s.sendInvitationEmail(ctx, inv, invitee)
	return inv, nil
}

func (s *Service) sendInvitationEmail(ctx context.Context, inv store.Invitation, invitee store.User) {
	if s.mailer == nil || !s.mailer.IsConfigured() {
		return
	}
	var token string
	if s.invites != nil {
		issued, err := s.invites.Issue(ctx, inv.ID)
		if err != nil {
			log.Printf("invitations: issue token for %s: %v", inv.ID, err)
		} else {
			token = issued
		}
	}
	pub, err := s.store.GetPublication(ctx, inv.PublicationID)
	if err != nil {
		log.Printf("invitations: load publication %s for email: %v", inv.PublicationID, err)
		return
	}
	go func() {
		if err := s.mailer.SendInvitationEmail(invitee.Email, pub.Name, inv.Role, token); err != nil {
			log.Printf("invitations: send email for %s: %v", inv.ID, err)
		}
	}()
}

// AcceptInvitation transitions a pending invitation to accepted, rejects
// the invitee's other pending invitations, and grants the membership, all
// atomically. Losing the membership uniqueness race surfaces as a conflict
// and leaves the invitation pending.
func (s *Service) AcceptInvitation(ctx context.Context, invitationID string) (store.Invitation, error) {
	inv, err := s.store.GetInvitation(ctx, invitationID)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Invitation{}, notFound("invitation not found")
	}
	if err != nil {
		return store.Invitation{}, err
	}
	if inv.Status != store.InvitationPending {
		return store.Invitation{}, conflict("invitation is already " + inv.Status)
	}

	err = s.store.AcceptInvitation(ctx, inv, util.NewID("mem"))
	if errors.Is(err, store.ErrNotPending) {
		return store.Invitation{}, conflict("invitation is no longer pending")
	}
	if errors.Is(err, store.ErrUniqueViolation) {
		return store.Invitation{}, conflict("user is already a member")
	}
	if err != nil {
		return store.Invitation{}, err
	}
	return s.store.GetInvitation(ctx, invitationID)
}

// AcceptInvitationByToken redeems an emailed invitation-link token and
// accepts the invitation it names.
func (s *Service) AcceptInvitationByToken(ctx context.Context, token string) (store.Invitation, error) {
	if s.invites == nil {
		return store.Invitation{}, validationFailed("invitation links are not enabled")
	}
	invitationID, err := s.invites.Redeem(ctx, token)
	if err != nil {
		return store.Invitation{}, notFound("invitation link is invalid or expired")
	}
	return s.AcceptInvitation(ctx, invitationID)
}

// RejectInvitation marks a pending invitation rejected. Terminal statuses
// never change again.
func (s *Service) RejectInvitation(ctx context.Context, invitationID string) (store.Invitation, error) {
	inv, err := s.store.GetInvitation(ctx, invitationID)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Invitation{}, notFound("invitation not found")
	}
	if err != nil {
		return store.Invitation{}, err
	}
	if inv.Status != store.InvitationPending {
		return store.Invitation{}, conflict("invitation is already " + inv.Status)
	}

	err = s.store.RejectInvitation(ctx, invitationID)
	if errors.Is(err, store.ErrNotPending) {
		return store.Invitation{}, conflict("invitation is no longer pending")
	}
	if err != nil {
		return store.Invitation{}, err
	}
	return s.store.GetInvitation(ctx, invitationID)
}

// KickMember removes a member from the publication. Kicking a user who is
// not a member violates the membership invariant.
func (s *Service) KickMember(ctx context.Context, actorID, publicationID, memberID string) error {
	actorRole, err := s.RoleFor(ctx, publicationID, actorID)
	if err != nil {
		return err
	}
	if !roles.CanUpdatePublication(actorRole) {
		return permissionDenied("not allowed to remove members")
	}

	deleted, err := s.store.DeleteMembership(ctx, publicationID, memberID)
	if err != nil {
		return err
	}
	if !deleted {
		return invariantViolation("member is not a member of publication")
	}
	return nil
}
