package membership

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/fkhayef/cinecircle/internal/metrics"
	"github.com/fkhayef/cinecircle/internal/notification"
)

// ActionKind identifies a membership transition the viewer can request
type ActionKind string

const (
	ActionJoin          ActionKind = "join"
	ActionRequestToJoin ActionKind = "request"
	ActionWithdraw      ActionKind = "withdraw"
	ActionLeave         ActionKind = "leave"
	ActionDelete        ActionKind = "delete"
)

// ErrUnknownAction is returned when the dispatcher receives a kind outside
// the action table
var ErrUnknownAction = errors.New("unknown membership action")

// Service reconciles the viewer's relationship to a single group. It layers
// an optimistic local override and the hint cache over server truth, executes
// membership transitions against the collaborator, and keeps member-only
// content in step with the effective role.
//
// All user-facing feedback goes through the notice stream; action methods
// return an error only when the action could not even be attempted.
type Service struct {
	client  Client
	hints   *Repository
	notices *notification.Service

	viewerID int64
	hintTTL  time.Duration
	log      *slog.Logger
	limiter  *rate.Limiter

	mu       sync.Mutex
	group    *Group
	override Role
	content  *MemberContent
	inflight map[ActionKind]bool
	lastRole Role
	lastSync string
	gapDone  bool
	closed   bool
	onChange func(*Group)
}

// NewService creates a membership engine for one viewer and one group view
func NewService(client Client, hints *Repository, notices *notification.Service, viewerID int64) *Service {
	return &Service{
		client:   client,
		hints:    hints,
		notices:  notices,
		viewerID: viewerID,
		hintTTL:  HintTTL,
		log:      slog.Default().With("component", "membership", "viewer_id", viewerID),
		limiter:  rate.NewLimiter(rate.Every(500*time.Millisecond), 5),
		inflight: make(map[ActionKind]bool),
		lastRole: RoleVisitor,
	}
}

// SetOnChange registers the membership-changed callback. It is invoked with
// the updated group snapshot after every confirmed transition; a nil snapshot
// means the group is gone and the parent should navigate away.
func (s *Service) SetOnChange(fn func(*Group)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

// SetGroup adopts a fresh group snapshot flowing down from the parent view
func (s *Service) SetGroup(g *Group) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.group = g.Clone()
}

// Group returns a copy of the current group snapshot
func (s *Service) Group() *Group {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.group.Clone()
}

// Content returns the currently loaded member-only content, or nil
func (s *Service) Content() *MemberContent {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.content == nil {
		return nil
	}
	out := *s.content
	return &out
}

// Close detaches the engine from its view. In-flight reloads observe the
// flag and stop before writing into state nobody renders anymore.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

// EffectiveRole resolves the viewer's current effective role
func (s *Service) EffectiveRole() Role {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolveLocked()
}

// resolveLocked derives the effective role and applies the owner-precedence
// side effects: owner identity forces a member hint and clears any
// conflicting override. The resolution itself stays in ResolveRole.
func (s *Service) resolveLocked() Role {
	role := ResolveRole(s.group, s.viewerID, s.override, s.hintLookup)
	if role == RoleOwner && s.group != nil {
		if s.override != "" && s.override != RoleOwner {
			s.override = ""
		}
		s.hints.Set(s.group.ID, s.viewerID, RoleMember)
	}
	return role
}

func (s *Service) hintLookup(groupID, userID int64) Role {
	return s.hints.Get(groupID, userID, s.hintTTL)
}

// Dispatch routes a requested action by kind
func (s *Service) Dispatch(ctx context.Context, kind ActionKind) error {
	switch kind {
	case ActionJoin, ActionRequestToJoin:
		return s.Join(ctx)
	case ActionWithdraw:
		return s.Withdraw(ctx)
	case ActionLeave:
		return s.Leave(ctx)
	case ActionDelete:
		return s.Delete(ctx)
	}
	return ErrUnknownAction
}

// begin gates re-entrancy for one action kind and validates the group is
// resolvable. It returns the group snapshot to act on, or ok=false when the
// call should be a no-op (second click, closed engine, unresolvable group).
func (s *Service) begin(kind ActionKind) (g *Group, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, false
	}
	if s.group == nil || s.group.ID == 0 {
		s.notices.Error("This group can't be resolved right now.")
		return nil, false
	}
	if s.inflight[kind] {
		return nil, false
	}
	s.inflight[kind] = true
	return s.group.Clone(), true
}

func (s *Service) finish(kind ActionKind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, kind)
}

// Join requests membership: a direct join on public groups, a join request
// on groups that enforce approval. The optimistic override and hint are
// applied before the call and undone exactly on transient failure.
func (s *Service) Join(ctx context.Context) error {
	g, ok := s.begin(ActionJoin)
	if !ok {
		return nil
	}
	defer s.finish(ActionJoin)

	s.mu.Lock()
	role := s.resolveLocked()
	if role == RolePending || role.GrantsMembership() {
		s.mu.Unlock()
		s.notices.Info("You already belong to this group.")
		return nil
	}

	target := RoleMember
	if g.Visibility.RequiresApproval() {
		target = RolePending
	}
	prevOverride := s.override
	prevHint := s.hints.Get(g.ID, s.viewerID, s.hintTTL)
	s.override = target
	s.mu.Unlock()
	s.hints.Set(g.ID, s.viewerID, target)

	var err error
	if target == RolePending {
		err = s.client.RequestToJoin(ctx, g.ID)
	} else {
		err = s.client.JoinGroup(ctx, g.ID)
	}

	if err == nil {
		s.confirmJoin(target)
		return nil
	}

	class, adopted := classifyFailure(err)
	if class == classBenign {
		s.adoptEndState(g.ID, adopted)
		metrics.ActionsTotal.WithLabelValues(string(ActionJoin), "benign").Inc()
		s.notices.Info(userMessage(err))
		return nil
	}

	// transient: undo exactly what the optimistic step did
	s.mu.Lock()
	if !s.closed {
		s.override = prevOverride
	}
	s.mu.Unlock()
	s.restoreHint(g.ID, prevHint)
	metrics.ActionsTotal.WithLabelValues(string(ActionJoin), "error").Inc()
	s.notices.Error(userMessage(err))
	return nil
}

func (s *Service) confirmJoin(target Role) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if s.group != nil {
		role := target
		s.group.Role = &role
		if target == RoleMember {
			isMember := true
			s.group.IsMember = &isMember
			s.group.MemberCount++
		}
	}
	snapshot := s.group.Clone()
	s.mu.Unlock()

	metrics.ActionsTotal.WithLabelValues(string(ActionJoin), "success").Inc()
	if target == RolePending {
		s.notices.Success("Join request sent.")
	} else {
		s.notices.Success("Welcome to the group!")
	}
	s.notifyChange(snapshot)
}

// adoptEndState converges on a server-declared end state after a
// benign-idempotent rejection. The rejection is the freshest server truth we
// have, so it is folded into the snapshot as an explicit role.
func (s *Service) adoptEndState(groupID int64, adopted Role) {
	s.mu.Lock()
	if !s.closed {
		s.override = adopted
		if s.group != nil && s.group.ID == groupID {
			role := adopted
			s.group.Role = &role
		}
	}
	s.mu.Unlock()

	hint := adopted
	if adopted == RoleOwner {
		hint = RoleMember
	}
	s.hints.Set(groupID, s.viewerID, hint)
}

// restoreHint puts the hint cache back to its pre-action value
func (s *Service) restoreHint(groupID int64, prev Role) {
	if prev == RolePending || prev == RoleMember {
		s.hints.Set(groupID, s.viewerID, prev)
		return
	}
	s.hints.Clear(groupID, s.viewerID)
}

// Withdraw cancels a pending join request. A 404/410 from the server means
// the request is already gone (declined or approved elsewhere) and counts as
// success.
func (s *Service) Withdraw(ctx context.Context) error {
	g, ok := s.begin(ActionWithdraw)
	if !ok {
		return nil
	}
	defer s.finish(ActionWithdraw)

	s.mu.Lock()
	if role := s.resolveLocked(); role != RolePending {
		s.mu.Unlock()
		s.notices.Info("There is no pending request to withdraw.")
		return nil
	}

	prevOverride := s.override
	prevRole := s.group.Role
	prevHint := s.hints.Get(g.ID, s.viewerID, s.hintTTL)
	s.override = ""
	s.group.Role = nil
	s.mu.Unlock()
	s.hints.Clear(g.ID, s.viewerID)

	err := s.client.WithdrawRequest(ctx, g.ID)
	if err != nil {
		if class, _ := classifyFailure(err); class != classGone {
			s.mu.Lock()
			if !s.closed {
				s.override = prevOverride
				if s.group != nil {
					s.group.Role = prevRole
				}
			}
			s.mu.Unlock()
			s.restoreHint(g.ID, prevHint)
			metrics.ActionsTotal.WithLabelValues(string(ActionWithdraw), "error").Inc()
			s.notices.Error(userMessage(err))
			return nil
		}
		metrics.ActionsTotal.WithLabelValues(string(ActionWithdraw), "gone").Inc()
	} else {
		metrics.ActionsTotal.WithLabelValues(string(ActionWithdraw), "success").Inc()
	}

	s.mu.Lock()
	snapshot := s.group.Clone()
	s.mu.Unlock()
	s.notices.Success("Join request withdrawn.")
	s.notifyChange(snapshot)
	return nil
}

// Leave removes the viewer's own membership. There is no idempotent recovery
// here; failures surface and state is restored.
func (s *Service) Leave(ctx context.Context) error {
	g, ok := s.begin(ActionLeave)
	if !ok {
		return nil
	}
	defer s.finish(ActionLeave)

	s.mu.Lock()
	role := s.resolveLocked()
	if role != RoleMember && role != RoleModerator {
		s.mu.Unlock()
		s.notices.Info("You're not a member of this group.")
		return nil
	}

	prevOverride := s.override
	prevHint := s.hints.Get(g.ID, s.viewerID, s.hintTTL)
	s.override = ""
	s.mu.Unlock()
	s.hints.Clear(g.ID, s.viewerID)

	if err := s.client.LeaveGroup(ctx, g.ID); err != nil {
		s.mu.Lock()
		if !s.closed {
			s.override = prevOverride
		}
		s.mu.Unlock()
		s.restoreHint(g.ID, prevHint)
		metrics.ActionsTotal.WithLabelValues(string(ActionLeave), "error").Inc()
		s.notices.Error(userMessage(err))
		return nil
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	if s.group != nil {
		s.group.Role = nil
		isMember := false
		s.group.IsMember = &isMember
		if s.group.MemberCount > 0 {
			s.group.MemberCount--
		}
		s.group.Members = removeMemberFrom(s.group.Members, s.viewerID)
	}
	snapshot := s.group.Clone()
	s.mu.Unlock()

	metrics.ActionsTotal.WithLabelValues(string(ActionLeave), "success").Inc()
	s.notices.Success("You left the group.")
	s.notifyChange(snapshot)
	return nil
}

// Delete destroys the group. Owner only, and deliberately not optimistic:
// destructive operations wait for the server.
func (s *Service) Delete(ctx context.Context) error {
	g, ok := s.begin(ActionDelete)
	if !ok {
		return nil
	}
	defer s.finish(ActionDelete)

	s.mu.Lock()
	if role := s.resolveLocked(); role != RoleOwner {
		s.mu.Unlock()
		s.notices.Error("Only the owner can delete a group.")
		return nil
	}
	s.mu.Unlock()

	if err := s.client.DeleteGroup(ctx, g.ID); err != nil {
		metrics.ActionsTotal.WithLabelValues(string(ActionDelete), "error").Inc()
		s.notices.Error(userMessage(err))
		return nil
	}

	s.mu.Lock()
	s.group = nil
	s.content = nil
	s.override = ""
	s.mu.Unlock()
	s.hints.Clear(g.ID, s.viewerID)

	metrics.ActionsTotal.WithLabelValues(string(ActionDelete), "success").Inc()
	s.notices.Success("Group deleted.")
	s.notifyChange(nil)
	return nil
}

// Refresh refetches the group from the server and reconciles against it.
// This is the convergence path after moderation actions and the poll that
// eventually observes approvals, declines and removals.
func (s *Service) Refresh(ctx context.Context) error {
	s.mu.Lock()
	if s.closed || s.group == nil {
		s.mu.Unlock()
		return nil
	}
	groupID := s.group.ID
	s.mu.Unlock()

	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	fetched, err := s.client.GetGroupDetails(ctx, groupID)
	if err != nil {
		s.notices.Error(userMessage(err))
		return nil
	}
	s.SetGroup(fetched)
	return s.Reconcile(ctx)
}

// Reconcile closes the gap between local state and server truth. It is
// change-gated on the group's identity and membership signal so repeated
// calls without new information cost nothing.
func (s *Service) Reconcile(ctx context.Context) error {
	s.mu.Lock()
	if s.closed || s.group == nil {
		s.mu.Unlock()
		return nil
	}
	if fp := s.fingerprintLocked(); fp == s.lastSync {
		s.mu.Unlock()
		return nil
	}
	groupID := s.group.ID
	needGapFill := !s.gapDone && s.override == "" &&
		!HasMembershipSignal(s.group) && s.group.OwnerID != s.viewerID
	s.gapDone = true
	s.mu.Unlock()

	metrics.ReconcilesTotal.Inc()

	if needGapFill {
		s.gapFill(ctx, groupID)
	}

	s.mu.Lock()
	// the group may have been deleted or the engine closed while unlocked
	if s.closed || s.group == nil {
		s.mu.Unlock()
		return nil
	}
	// A snapshot that carries a membership signal is fresher truth than any
	// hint or override. When it contradicts them (and no action is mid-
	// flight), the server wins and the local evidence goes.
	if len(s.inflight) == 0 && HasMembershipSignal(s.group) {
		serverRole := ResolveRole(s.group, s.viewerID, "", nil)
		if !serverRole.GrantsMembership() && serverRole != RolePending {
			s.override = ""
			s.hints.Clear(groupID, s.viewerID)
		}
	}
	role := s.resolveLocked()
	fp := s.fingerprintLocked()

	if !role.GrantsMembership() {
		wasMember := s.lastRole.GrantsMembership()
		s.content = nil
		if wasMember {
			// authoritative demotion, not a transient glitch
			s.override = ""
		}
		s.lastRole = role
		s.lastSync = fp
		s.mu.Unlock()
		if wasMember {
			s.hints.Clear(groupID, s.viewerID)
			s.log.Info("membership lost, cleared member-only state", "group_id", groupID)
		}
		return nil
	}
	s.lastRole = role
	s.mu.Unlock()

	favorites, favErr := s.client.GetGroupFavorites(ctx, groupID)
	activity, actErr := s.client.GetGroupActivity(ctx, groupID)

	s.mu.Lock()
	if s.closed || s.group == nil {
		s.mu.Unlock()
		return nil
	}
	if favErr != nil || actErr != nil {
		// keep whatever content was loaded before; retry on the next pass
		s.mu.Unlock()
		s.notices.Error("Couldn't load group content. Showing what we have.")
		return nil
	}
	s.content = &MemberContent{Favorites: favorites, Activity: activity}
	s.lastSync = fp
	s.mu.Unlock()
	return nil
}

// gapFill is the one-time fallback for sparse server responses: when the
// group carries no membership signal, ask which groups the viewer belongs to
// and synthesize membership if this one is present. It runs at most once per
// engine, so it carries no limiter budget of its own.
func (s *Service) gapFill(ctx context.Context, groupID int64) {
	refs, err := s.client.GetUserGroups(ctx, s.viewerID)
	if err != nil {
		s.log.Warn("membership gap-fill lookup failed", "group_id", groupID, "error", err)
		return
	}
	for _, ref := range refs {
		if ref.ID != groupID {
			continue
		}
		s.mu.Lock()
		if !s.closed && s.group != nil && s.group.ID == groupID {
			if ref.Role != nil {
				role := *ref.Role
				s.group.Role = &role
			} else {
				isMember := true
				s.group.IsMember = &isMember
			}
		}
		s.mu.Unlock()
		return
	}
}

// fingerprintLocked captures the inputs reconciliation is gated on. The
// members list is folded in as the viewer's own evidence (their role, or
// their absence from a non-empty list), so a removal that keeps the list
// length unchanged still reads as a change.
func (s *Service) fingerprintLocked() string {
	g := s.group
	parts := []string{
		strconv.FormatInt(g.ID, 10),
		"-", "-", "-",
		string(s.override),
		"-",
	}
	if g.Role != nil {
		parts[1] = string(*g.Role)
	}
	if g.IsMember != nil {
		parts[2] = strconv.FormatBool(*g.IsMember)
	}
	if g.IsOwner != nil {
		parts[3] = strconv.FormatBool(*g.IsOwner)
	}
	if role, ok := g.MemberRole(s.viewerID); ok {
		parts[5] = string(role)
	} else if len(g.Members) > 0 {
		parts[5] = "absent"
	}
	return strings.Join(parts, "|")
}

func (s *Service) notifyChange(g *Group) {
	s.mu.Lock()
	fn := s.onChange
	s.mu.Unlock()
	if fn != nil {
		fn(g)
	}
}

func removeMemberFrom(members []Member, userID int64) []Member {
	if members == nil {
		return nil
	}
	out := members[:0]
	for _, m := range members {
		if m.UserID != userID {
			out = append(out, m)
		}
	}
	return out
}
