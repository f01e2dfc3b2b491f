package membership

import (
	"context"
	"fmt"
)

// Client is the collaborator contract the engine needs from the community
// server. The api package provides the HTTP implementation; tests substitute
// a scripted stub.
type Client interface {
	JoinGroup(ctx context.Context, groupID int64) error
	RequestToJoin(ctx context.Context, groupID int64) error
	WithdrawRequest(ctx context.Context, groupID int64) error
	LeaveGroup(ctx context.Context, groupID int64) error
	DeleteGroup(ctx context.Context, groupID int64) error
	GetUserGroups(ctx context.Context, userID int64) ([]GroupRef, error)
	GetGroupDetails(ctx context.Context, groupID int64) (*Group, error)
	GetPendingRequests(ctx context.Context, groupID int64) ([]PendingRequest, error)
	RemoveMember(ctx context.Context, groupID, userID int64) error
	UpdateMemberRole(ctx context.Context, groupID, userID int64, role Role) error
	ApproveRequest(ctx context.Context, groupID, userID int64) error
	DeclineRequest(ctx context.Context, groupID, userID int64) error
	GetGroupFavorites(ctx context.Context, groupID int64) ([]Favorite, error)
	GetGroupActivity(ctx context.Context, groupID int64) ([]ActivityItem, error)
}

// RemoteError is a rejected collaborator call. Status carries the HTTP
// status, Code and Message the server's error envelope. Classification in
// classify.go is the only place allowed to inspect it.
type RemoteError struct {
	Status  int
	Code    string
	Message string
}

func (e *RemoteError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("server rejected request (status %d)", e.Status)
}
