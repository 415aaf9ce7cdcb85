package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/LovationAdmin/giftlist-api/models"
	"github.com/LovationAdmin/giftlist-api/utils"

	"github.com/google/uuid"
)

// InvitationTTL is how long an invitation token stays valid.
const InvitationTTL = 7 * 24 * time.Hour

// InvitationMailer delivers invitation e-mails.
type InvitationMailer interface {
	SendInvitationEmail(ctx context.Context, toEmail, inviterName, groupName, token string) error
}

type GroupService struct {
	groups        GroupRepository
	users         UserRepository
	notifications *NotificationService
	mailer        InvitationMailer
	now           func() time.Time
}

func NewGroupService(groups GroupRepository, users UserRepository, notifications *NotificationService, mailer InvitationMailer) *GroupService {
	return &GroupService{
		groups:        groups,
		users:         users,
		notifications: notifications,
		mailer:        mailer,
		now:           time.Now,
	}
}

func (s *GroupService) SetClock(now func() time.Time) {
	s.now = now
}

// Create creates a group with the creator as its owner member.
func (s *GroupService) Create(ctx context.Context, name, ownerID string) (*models.Group, error) {
	now := s.now()
	group := &models.Group{
		ID:        uuid.New().String(),
		Name:      strings.TrimSpace(name),
		OwnerID:   ownerID,
		CreatedAt: now,
		UpdatedAt: now,
		IsOwner:   true,
	}
	if group.Name == "" {
		return nil, validationError("name", "must not be empty")
	}

	if err := s.groups.CreateGroup(ctx, group); err != nil {
		return nil, fmt.Errorf("creating group: %w", err)
	}
	return group, nil
}

func (s *GroupService) ListForUser(ctx context.Context, userID string) ([]models.Group, error) {
	groups, err := s.groups.ListUserGroups(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing groups: %w", err)
	}
	for i := range groups {
		groups[i].IsOwner = groups[i].OwnerID == userID
	}
	return groups, nil
}

// Get returns the group with its members. Only members can see it.
func (s *GroupService) Get(ctx context.Context, groupID, userID string) (*models.Group, error) {
	group, err := s.memberGroup(ctx, groupID, userID)
	if err != nil {
		return nil, err
	}

	members, err := s.groups.ListMembers(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("listing members: %w", err)
	}
	group.Members = members
	group.IsOwner = group.OwnerID == userID
	return group, nil
}

func (s *GroupService) Delete(ctx context.Context, groupID, userID string) error {
	group, err := s.groups.GetGroup(ctx, groupID)
	if err != nil {
		return fmt.Errorf("loading group: %w", err)
	}
	if group == nil || group.OwnerID != userID {
		return fmt.Errorf("%w: group %s", ErrNotFound, groupID)
	}
	if err := s.groups.DeleteGroup(ctx, groupID); err != nil {
		return fmt.Errorf("deleting group: %w", err)
	}
	return nil
}

// ============================================================================
// INVITATIONS
// ============================================================================

// Invite creates a pending invitation, notifies an existing account in-app
// and sends the e-mail in the background.
func (s *GroupService) Invite(ctx context.Context, groupID, inviterID, email string) (*models.Invitation, error) {
	group, err := s.memberGroup(ctx, groupID, inviterID)
	if err != nil {
		return nil, err
	}
	email = strings.ToLower(strings.TrimSpace(email))

	invitee, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("loading invitee: %w", err)
	}
	if invitee != nil {
		member, err := s.groups.IsMember(ctx, groupID, invitee.ID)
		if err != nil {
			return nil, fmt.Errorf("checking membership: %w", err)
		}
		if member {
			return nil, fmt.Errorf("%w: user is already a member", ErrConflict)
		}
	}

	pending, err := s.groups.GetPendingInvitation(ctx, groupID, email)
	if err != nil {
		return nil, fmt.Errorf("checking pending invitation: %w", err)
	}
	if pending != nil && pending.ExpiresAt.After(s.now()) {
		return nil, fmt.Errorf("%w: invitation already pending", ErrConflict)
	}

	now := s.now()
	inv := &models.Invitation{
		ID:        uuid.New().String(),
		GroupID:   groupID,
		Email:     email,
		InvitedBy: inviterID,
		Token:     uuid.New().String(),
		Status:    models.InvitationPending,
		ExpiresAt: now.Add(InvitationTTL),
		CreatedAt: now,
	}
	if err := s.groups.CreateInvitation(ctx, inv); err != nil {
		return nil, fmt.Errorf("creating invitation: %w", err)
	}

	inviterName := "Someone"
	if inviter, err := s.users.GetUserByID(ctx, inviterID); err == nil && inviter != nil {
		inviterName = inviter.Name
	}

	if invitee != nil {
		s.notifications.CreateNotification(ctx, NotificationInput{
			UserID: invitee.ID,
			Type:   models.NotificationInvitation,
			Title:  "Group invitation",
			Body:   fmt.Sprintf("%s invited you to join \"%s\".", inviterName, group.Name),
			Data:   map[string]any{"group_id": group.ID, "group_name": group.Name, "token": inv.Token},
		})
	}

	if s.mailer != nil {
		groupName, token := group.Name, inv.Token
		s.notifications.Dispatch("invitation_email", func(ctx context.Context) error {
			err := s.mailer.SendInvitationEmail(ctx, email, inviterName, groupName, token)
			if errors.Is(err, utils.ErrEmailDisabled) {
				utils.SafeWarn("⚠️ %v", err)
				return nil
			}
			return err
		})
	}

	utils.SafeInfo("✉️ Invitation to group %s sent to %s", utils.MaskID(groupID), utils.MaskEmail(email))
	return inv, nil
}

func (s *GroupService) ListInvitations(ctx context.Context, groupID, userID string) ([]models.Invitation, error) {
	if _, err := s.memberGroup(ctx, groupID, userID); err != nil {
		return nil, err
	}
	invitations, err := s.groups.ListInvitations(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("listing invitations: %w", err)
	}
	return invitations, nil
}

// CancelInvitation deletes a pending invitation. Any member may cancel.
func (s *GroupService) CancelInvitation(ctx context.Context, groupID, invitationID, userID string) error {
	if _, err := s.memberGroup(ctx, groupID, userID); err != nil {
		return err
	}
	ok, err := s.groups.DeletePendingInvitation(ctx, groupID, invitationID)
	if err != nil {
		return fmt.Errorf("cancelling invitation: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: invitation not found or already processed", ErrNotFound)
	}
	return nil
}

// AcceptInvitation adds the user to the invitation's group. The account
// e-mail must match the invited address.
func (s *GroupService) AcceptInvitation(ctx context.Context, token, userID string) (*models.Group, error) {
	inv, err := s.groups.GetInvitationByToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("loading invitation: %w", err)
	}
	if inv == nil {
		return nil, fmt.Errorf("%w: invitation", ErrNotFound)
	}
	if inv.Status != models.InvitationPending {
		return nil, fmt.Errorf("%w: invitation is %s", ErrInvalidState, inv.Status)
	}
	if !inv.ExpiresAt.After(s.now()) {
		if err := s.groups.UpdateInvitationStatus(ctx, inv.ID, models.InvitationExpired); err != nil {
			utils.SafeError("Marking invitation %s expired: %v", utils.MaskID(inv.ID), err)
		}
		return nil, fmt.Errorf("%w: invitation expired", ErrInvalidState)
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading user: %w", err)
	}
	if user == nil || !strings.EqualFold(user.Email, inv.Email) {
		return nil, fmt.Errorf("%w: invitation", ErrNotFound)
	}

	member, err := s.groups.IsMember(ctx, inv.GroupID, userID)
	if err != nil {
		return nil, fmt.Errorf("checking membership: %w", err)
	}
	if member {
		return nil, fmt.Errorf("%w: already a member", ErrConflict)
	}

	if err := s.groups.AddMember(ctx, &models.GroupMember{
		ID:       uuid.New().String(),
		GroupID:  inv.GroupID,
		UserID:   userID,
		Role:     models.GroupRoleMember,
		JoinedAt: s.now(),
	}); err != nil {
		return nil, fmt.Errorf("adding member: %w", err)
	}

	if err := s.groups.UpdateInvitationStatus(ctx, inv.ID, models.InvitationAccepted); err != nil {
		utils.SafeError("Marking invitation %s accepted: %v", utils.MaskID(inv.ID), err)
	}

	group, err := s.groups.GetGroup(ctx, inv.GroupID)
	if err != nil {
		return nil, fmt.Errorf("loading group: %w", err)
	}
	if group == nil {
		return nil, fmt.Errorf("%w: group", ErrNotFound)
	}
	return group, nil
}

// RemoveMember removes memberID from the group. The owner may remove anyone
// but themselves; members may remove themselves.
func (s *GroupService) RemoveMember(ctx context.Context, groupID, memberID, actorID string) error {
	group, err := s.memberGroup(ctx, groupID, actorID)
	if err != nil {
		return err
	}
	if group.OwnerID != actorID && memberID != actorID {
		return fmt.Errorf("%w: only the owner can remove other members", ErrForbidden)
	}
	if memberID == group.OwnerID {
		return fmt.Errorf("%w: owner cannot be removed", ErrInvalidState)
	}

	ok, err := s.groups.RemoveMember(ctx, groupID, memberID)
	if err != nil {
		return fmt.Errorf("removing member: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: member", ErrNotFound)
	}
	return nil
}

// ExpireStaleInvitations marks overdue pending invitations expired.
func (s *GroupService) ExpireStaleInvitations(ctx context.Context) (int64, error) {
	return s.groups.ExpireStaleInvitations(ctx, s.now())
}

func (s *GroupService) memberGroup(ctx context.Context, groupID, userID string) (*models.Group, error) {
	group, err := s.groups.GetGroup(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("loading group: %w", err)
	}
	if group == nil {
		return nil, fmt.Errorf("%w: group %s", ErrNotFound, groupID)
	}
	member, err := s.groups.IsMember(ctx, groupID, userID)
	if err != nil {
		return nil, fmt.Errorf("checking membership: %w", err)
	}
	if !member {
		return nil, fmt.Errorf("%w: group %s", ErrNotFound, groupID)
	}
	return group, nil
}
