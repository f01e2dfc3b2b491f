package roster

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fkhayef/cinecircle/internal/membership"
	"github.com/fkhayef/cinecircle/internal/notification"
)

const viewerID int64 = 7

type roleChange struct {
	userID int64
	role   membership.Role
}

// stubClient scripts the community server for moderation tests
type stubClient struct {
	mu sync.Mutex

	details *membership.Group

	requests    []membership.PendingRequest
	requestsErr error

	removeErr error
	updateErr error

	detailsCalls  int
	requestsCalls int
	removeCalls   int
	updateCalls   int
	approveCalls  int
	declineCalls  int

	lastUpdate roleChange
}

func (c *stubClient) JoinGroup(ctx context.Context, groupID int64) error     { return nil }
func (c *stubClient) RequestToJoin(ctx context.Context, groupID int64) error { return nil }
func (c *stubClient) WithdrawRequest(ctx context.Context, groupID int64) error {
	return nil
}
func (c *stubClient) LeaveGroup(ctx context.Context, groupID int64) error  { return nil }
func (c *stubClient) DeleteGroup(ctx context.Context, groupID int64) error { return nil }

func (c *stubClient) GetUserGroups(ctx context.Context, userID int64) ([]membership.GroupRef, error) {
	return nil, nil
}

func (c *stubClient) GetGroupDetails(ctx context.Context, groupID int64) (*membership.Group, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.detailsCalls++
	return c.details.Clone(), nil
}

func (c *stubClient) GetPendingRequests(ctx context.Context, groupID int64) ([]membership.PendingRequest, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requestsCalls++
	return c.requests, c.requestsErr
}

func (c *stubClient) RemoveMember(ctx context.Context, groupID, userID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeCalls++
	return c.removeErr
}

func (c *stubClient) UpdateMemberRole(ctx context.Context, groupID, userID int64, role membership.Role) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updateCalls++
	c.lastUpdate = roleChange{userID: userID, role: role}
	return c.updateErr
}

func (c *stubClient) ApproveRequest(ctx context.Context, groupID, userID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.approveCalls++
	return nil
}

func (c *stubClient) DeclineRequest(ctx context.Context, groupID, userID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.declineCalls++
	return nil
}

func (c *stubClient) GetGroupFavorites(ctx context.Context, groupID int64) ([]membership.Favorite, error) {
	return nil, nil
}

func (c *stubClient) GetGroupActivity(ctx context.Context, groupID int64) ([]membership.ActivityItem, error) {
	return nil, nil
}

func rolePtr(r membership.Role) *membership.Role { return &r }

func newTestService(t *testing.T, group *membership.Group) (*Service, *stubClient, *notification.Service) {
	t.Helper()
	stub := &stubClient{details: group}
	notices := notification.NewService(32)
	registry := membership.NewRegistry(stub, nil, notices, viewerID, 0)
	return NewService(stub, registry, notices, viewerID), stub, notices
}

func ownedGroup() *membership.Group {
	return &membership.Group{
		ID:         10,
		Name:       "Slow Cinema Club",
		Visibility: membership.VisibilityPrivate,
		OwnerID:    viewerID,
		Members: []membership.Member{
			{UserID: viewerID, Role: membership.RoleOwner},
			{UserID: 42, Role: membership.RoleMember},
			{UserID: 43, Role: membership.RoleModerator},
		},
	}
}

func moderatedGroup() *membership.Group {
	return &membership.Group{
		ID:         11,
		Name:       "Slow Cinema Club",
		Visibility: membership.VisibilityPrivate,
		OwnerID:    99,
		Role:       rolePtr(membership.RoleModerator),
		Members: []membership.Member{
			{UserID: 99, Role: membership.RoleOwner},
			{UserID: viewerID, Role: membership.RoleModerator},
			{UserID: 42, Role: membership.RoleMember},
			{UserID: 43, Role: membership.RoleModerator},
		},
	}
}

func TestRemove_SelfIsRejectedBeforeAnyCall(t *testing.T) {
	svc, stub, notices := newTestService(t, ownedGroup())

	err := svc.Remove(context.Background(), 10, viewerID)
	require.ErrorIs(t, err, ErrRemoveSelf)

	// rejected locally: the server was never consulted
	assert.Equal(t, 0, stub.detailsCalls)
	assert.Equal(t, 0, stub.removeCalls)

	drained := notices.Drain()
	require.Len(t, drained, 1)
	assert.Equal(t, notification.SeverityInfo, drained[0].Severity)
}

func TestRemove_OwnerRemovesMember(t *testing.T) {
	svc, stub, notices := newTestService(t, ownedGroup())

	require.NoError(t, svc.Remove(context.Background(), 10, 42))
	assert.Equal(t, 1, stub.removeCalls)

	sev := make([]notification.Severity, 0)
	for _, n := range notices.Drain() {
		sev = append(sev, n.Severity)
	}
	assert.Contains(t, sev, notification.SeveritySuccess)
}

func TestRemove_ModeratorCannotRemoveModerator(t *testing.T) {
	svc, stub, _ := newTestService(t, moderatedGroup())

	err := svc.Remove(context.Background(), 11, 43)
	require.ErrorIs(t, err, ErrNotAllowed)
	assert.Equal(t, 0, stub.removeCalls)
}

func TestRemove_ModeratorRemovesPlainMember(t *testing.T) {
	svc, stub, _ := newTestService(t, moderatedGroup())

	require.NoError(t, svc.Remove(context.Background(), 11, 42))
	assert.Equal(t, 1, stub.removeCalls)
}

func TestRemove_OwnerIsUntouchable(t *testing.T) {
	svc, stub, _ := newTestService(t, moderatedGroup())

	err := svc.Remove(context.Background(), 11, 99)
	require.ErrorIs(t, err, ErrTargetOwner)
	assert.Equal(t, 0, stub.removeCalls)
}

func TestRemove_TargetNotInGroup(t *testing.T) {
	svc, stub, _ := newTestService(t, ownedGroup())

	err := svc.Remove(context.Background(), 10, 1234)
	require.ErrorIs(t, err, ErrTargetNotFound)
	assert.Equal(t, 0, stub.removeCalls)
}

func TestRemove_ServerErrorSurfacesMessage(t *testing.T) {
	svc, stub, notices := newTestService(t, ownedGroup())
	stub.removeErr = &membership.RemoteError{Status: 500, Message: "Removal failed, try later"}

	err := svc.Remove(context.Background(), 10, 42)
	require.Error(t, err)

	drained := notices.Drain()
	require.NotEmpty(t, drained)
	last := drained[len(drained)-1]
	assert.Equal(t, notification.SeverityError, last.Severity)
	assert.Equal(t, "Removal failed, try later", last.Message)
}

func TestPromote_OwnerPromotesMember(t *testing.T) {
	svc, stub, _ := newTestService(t, ownedGroup())

	require.NoError(t, svc.Promote(context.Background(), 10, 42))
	assert.Equal(t, 1, stub.updateCalls)
	assert.Equal(t, roleChange{userID: 42, role: membership.RoleModerator}, stub.lastUpdate)
}

func TestPromote_RequiresPlainMemberTarget(t *testing.T) {
	svc, stub, _ := newTestService(t, ownedGroup())

	err := svc.Promote(context.Background(), 10, 43)
	require.ErrorIs(t, err, ErrWrongRole)
	assert.Equal(t, 0, stub.updateCalls)
}

func TestPromote_ModeratorIsNotEnough(t *testing.T) {
	svc, stub, _ := newTestService(t, moderatedGroup())

	err := svc.Promote(context.Background(), 11, 42)
	require.ErrorIs(t, err, ErrNotAllowed)
	assert.Equal(t, 0, stub.updateCalls)
}

func TestDemote_OwnerDemotesModerator(t *testing.T) {
	svc, stub, _ := newTestService(t, ownedGroup())

	require.NoError(t, svc.Demote(context.Background(), 10, 43))
	assert.Equal(t, roleChange{userID: 43, role: membership.RoleMember}, stub.lastUpdate)
}

func TestDemote_RequiresModeratorTarget(t *testing.T) {
	svc, stub, _ := newTestService(t, ownedGroup())

	err := svc.Demote(context.Background(), 10, 42)
	require.ErrorIs(t, err, ErrWrongRole)
	assert.Equal(t, 0, stub.updateCalls)
}

func TestRequests_ReturnsQueueForModerator(t *testing.T) {
	group := moderatedGroup()
	svc, stub, _ := newTestService(t, group)
	stub.requests = []membership.PendingRequest{{UserID: 55, DisplayName: "newcomer"}}

	got, err := svc.Requests(context.Background(), 11)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(55), got[0].UserID)
}

func TestRequests_PlainMemberIsRejected(t *testing.T) {
	group := moderatedGroup()
	group.Role = rolePtr(membership.RoleMember)
	group.Members[1].Role = membership.RoleMember
	svc, stub, _ := newTestService(t, group)

	_, err := svc.Requests(context.Background(), 11)
	require.ErrorIs(t, err, ErrNotAllowed)
	assert.Equal(t, 0, stub.requestsCalls)
}

func TestRequests_PublicGroupHasNoQueue(t *testing.T) {
	group := ownedGroup()
	group.Visibility = membership.VisibilityPublic
	svc, stub, _ := newTestService(t, group)

	_, err := svc.Requests(context.Background(), 10)
	require.ErrorIs(t, err, ErrNoApprovals)
	assert.Equal(t, 0, stub.requestsCalls)
}

func TestApprove_ModeratorApprovesRequest(t *testing.T) {
	svc, stub, notices := newTestService(t, moderatedGroup())

	require.NoError(t, svc.Approve(context.Background(), 11, 55))
	assert.Equal(t, 1, stub.approveCalls)

	sev := make([]notification.Severity, 0)
	for _, n := range notices.Drain() {
		sev = append(sev, n.Severity)
	}
	assert.Contains(t, sev, notification.SeveritySuccess)
}

func TestApprove_PublicGroupIsRejected(t *testing.T) {
	group := ownedGroup()
	group.Visibility = membership.VisibilityPublic
	svc, stub, _ := newTestService(t, group)

	err := svc.Approve(context.Background(), 10, 55)
	require.ErrorIs(t, err, ErrNoApprovals)
	assert.Equal(t, 0, stub.approveCalls)
}

func TestDecline_ModeratorDeclinesRequest(t *testing.T) {
	svc, stub, _ := newTestService(t, moderatedGroup())

	require.NoError(t, svc.Decline(context.Background(), 11, 55))
	assert.Equal(t, 1, stub.declineCalls)
}

func TestMembers_UsesEngineSnapshot(t *testing.T) {
	svc, stub, _ := newTestService(t, ownedGroup())

	members, err := svc.Members(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, members, 3)
	// one fetch to prime the engine, none to list
	assert.Equal(t, 1, stub.detailsCalls)
}
