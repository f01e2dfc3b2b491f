package roster

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fkhayef/cinecircle/internal/membership"
	"github.com/fkhayef/cinecircle/internal/notification"
)

// Common errors
var (
	ErrNotAllowed     = errors.New("not allowed to moderate this group")
	ErrRemoveSelf     = errors.New("cannot remove yourself; leave the group instead")
	ErrTargetOwner    = errors.New("the owner cannot be removed")
	ErrTargetNotFound = errors.New("user is not a member of this group")
	ErrWrongRole      = errors.New("member does not hold the required role for this change")
	ErrNoApprovals    = errors.New("public groups have no join request queue")
)

// Service backs the membership detail view: member and request listings plus
// the moderation actions. Every successful mutation funnels back through the
// engine's refresh so the whole view converges on server truth.
type Service struct {
	client   membership.Client
	registry *membership.Registry
	notices  *notification.Service
	viewerID int64
	log      *slog.Logger
}

// NewService creates a new roster service
func NewService(client membership.Client, registry *membership.Registry, notices *notification.Service, viewerID int64) *Service {
	return &Service{
		client:   client,
		registry: registry,
		notices:  notices,
		viewerID: viewerID,
		log:      slog.Default().With("component", "roster"),
	}
}

// Members returns the group's confirmed members, fetching a fresh snapshot
// when the engine's copy has no embedded list
func (s *Service) Members(ctx context.Context, groupID int64) ([]membership.Member, error) {
	svc, err := s.registry.Get(ctx, groupID)
	if err != nil {
		return nil, err
	}

	g := svc.Group()
	if g == nil || len(g.Members) == 0 {
		fetched, err := s.client.GetGroupDetails(ctx, groupID)
		if err != nil {
			return nil, fmt.Errorf("failed to load members: %w", err)
		}
		svc.SetGroup(fetched)
		if err := svc.Reconcile(ctx); err != nil {
			s.log.Warn("reconcile after member listing failed", "group_id", groupID, "error", err)
		}
		g = fetched
	}
	return g.Members, nil
}

// Requests returns the pending join requests. Moderators and the owner only,
// and only on groups that enforce approval.
func (s *Service) Requests(ctx context.Context, groupID int64) ([]membership.PendingRequest, error) {
	svc, err := s.registry.Get(ctx, groupID)
	if err != nil {
		return nil, err
	}

	if role := svc.EffectiveRole(); role != membership.RoleOwner && role != membership.RoleModerator {
		return nil, ErrNotAllowed
	}
	if g := svc.Group(); g != nil && !g.Visibility.RequiresApproval() {
		return nil, ErrNoApprovals
	}

	return s.client.GetPendingRequests(ctx, groupID)
}

// Promote raises a plain member to moderator. Owner only.
func (s *Service) Promote(ctx context.Context, groupID, userID int64) error {
	svc, err := s.registry.Get(ctx, groupID)
	if err != nil {
		return err
	}
	if svc.EffectiveRole() != membership.RoleOwner {
		return ErrNotAllowed
	}
	if err := s.requireTargetRole(ctx, groupID, userID, membership.RoleMember); err != nil {
		return err
	}

	if err := s.client.UpdateMemberRole(ctx, groupID, userID, membership.RoleModerator); err != nil {
		s.surface(err)
		return err
	}

	s.notices.Success("Member promoted to moderator.")
	return svc.Refresh(ctx)
}

// Demote lowers a moderator back to member. Owner only.
func (s *Service) Demote(ctx context.Context, groupID, userID int64) error {
	svc, err := s.registry.Get(ctx, groupID)
	if err != nil {
		return err
	}
	if svc.EffectiveRole() != membership.RoleOwner {
		return ErrNotAllowed
	}
	if err := s.requireTargetRole(ctx, groupID, userID, membership.RoleModerator); err != nil {
		return err
	}

	if err := s.client.UpdateMemberRole(ctx, groupID, userID, membership.RoleMember); err != nil {
		s.surface(err)
		return err
	}

	s.notices.Success("Moderator demoted to member.")
	return svc.Refresh(ctx)
}

// Remove evicts a member. The owner may remove anyone but themselves;
// moderators may remove plain members only. Self-removal is rejected locally
// before any network call.
func (s *Service) Remove(ctx context.Context, groupID, userID int64) error {
	if userID == s.viewerID {
		s.notices.Info("Use \"leave group\" to remove yourself.")
		return ErrRemoveSelf
	}

	svc, err := s.registry.Get(ctx, groupID)
	if err != nil {
		return err
	}

	viewerRole := svc.EffectiveRole()
	if viewerRole != membership.RoleOwner && viewerRole != membership.RoleModerator {
		return ErrNotAllowed
	}

	targetRole, err := s.targetRole(ctx, groupID, userID)
	if err != nil {
		return err
	}
	if targetRole == membership.RoleOwner {
		return ErrTargetOwner
	}
	if viewerRole == membership.RoleModerator && targetRole != membership.RoleMember {
		return ErrNotAllowed
	}

	if err := s.client.RemoveMember(ctx, groupID, userID); err != nil {
		s.surface(err)
		return err
	}

	s.notices.Success("Member removed.")
	return svc.Refresh(ctx)
}

// Approve accepts a pending join request. Moderators and the owner only.
func (s *Service) Approve(ctx context.Context, groupID, userID int64) error {
	if err := s.requireModerator(ctx, groupID); err != nil {
		return err
	}

	if err := s.client.ApproveRequest(ctx, groupID, userID); err != nil {
		s.surface(err)
		return err
	}

	s.notices.Success("Request approved.")
	return s.refresh(ctx, groupID)
}

// Decline rejects a pending join request. Moderators and the owner only.
func (s *Service) Decline(ctx context.Context, groupID, userID int64) error {
	if err := s.requireModerator(ctx, groupID); err != nil {
		return err
	}

	if err := s.client.DeclineRequest(ctx, groupID, userID); err != nil {
		s.surface(err)
		return err
	}

	s.notices.Info("Request declined.")
	return s.refresh(ctx, groupID)
}

func (s *Service) requireModerator(ctx context.Context, groupID int64) error {
	svc, err := s.registry.Get(ctx, groupID)
	if err != nil {
		return err
	}
	if role := svc.EffectiveRole(); role != membership.RoleOwner && role != membership.RoleModerator {
		return ErrNotAllowed
	}
	if g := svc.Group(); g != nil && !g.Visibility.RequiresApproval() {
		return ErrNoApprovals
	}
	return nil
}

func (s *Service) refresh(ctx context.Context, groupID int64) error {
	svc, err := s.registry.Get(ctx, groupID)
	if err != nil {
		return err
	}
	return svc.Refresh(ctx)
}

// targetRole resolves the role the target currently holds in the group
func (s *Service) targetRole(ctx context.Context, groupID, userID int64) (membership.Role, error) {
	members, err := s.Members(ctx, groupID)
	if err != nil {
		return membership.RoleVisitor, err
	}
	for _, m := range members {
		if m.UserID == userID {
			return m.Role, nil
		}
	}
	return membership.RoleVisitor, ErrTargetNotFound
}

func (s *Service) requireTargetRole(ctx context.Context, groupID, userID int64, want membership.Role) error {
	role, err := s.targetRole(ctx, groupID, userID)
	if err != nil {
		return err
	}
	if role != want {
		return ErrWrongRole
	}
	return nil
}

// surface pushes the server's message onto the notice stream, hiding raw
// transport errors behind a generic line
func (s *Service) surface(err error) {
	var remote *membership.RemoteError
	if errors.As(err, &remote) && remote.Message != "" {
		s.notices.Error(remote.Message)
		return
	}
	s.log.Warn("moderation call failed", "error", err)
	s.notices.Error("Something went wrong. Please try again.")
}
