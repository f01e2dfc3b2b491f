package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/fkhayef/cinecircle/internal/membership"
	"github.com/fkhayef/cinecircle/pkg/response"
)

// Client talks to the community server. It is the HTTP implementation of the
// collaborator contract the membership engine depends on; the server is
// authoritative and every rejection is passed up as a RemoteError for
// classification.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

var _ membership.Client = (*Client)(nil)

// NewClient creates a client for the community server at baseURL.
// The timeout keeps a hung server from wedging an action gate; a timeout
// surfaces like any other transient failure.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// do executes one collaborator call and decodes the standard envelope into
// out (which may be nil for calls without a payload)
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	var envelope response.APIResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		if resp.StatusCode >= 400 {
			return &membership.RemoteError{Status: resp.StatusCode}
		}
		return fmt.Errorf("failed to decode response from %s: %w", path, err)
	}

	if resp.StatusCode >= 400 || !envelope.Success {
		remote := &membership.RemoteError{Status: resp.StatusCode}
		if envelope.Error != nil {
			remote.Code = envelope.Error.Code
			remote.Message = envelope.Error.Message
		}
		return remote
	}

	if out != nil && envelope.Data != nil {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("failed to decode payload from %s: %w", path, err)
		}
	}
	return nil
}

// JoinGroup joins a public group directly
func (c *Client) JoinGroup(ctx context.Context, groupID int64) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/api/v1/groups/%d/join", groupID), nil, nil)
}

// RequestToJoin files a join request on a group that enforces approval
func (c *Client) RequestToJoin(ctx context.Context, groupID int64) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/api/v1/groups/%d/requests", groupID), nil, nil)
}

// WithdrawRequest cancels the viewer's pending join request
func (c *Client) WithdrawRequest(ctx context.Context, groupID int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/v1/groups/%d/requests/me", groupID), nil, nil)
}

// LeaveGroup removes the viewer's own membership
func (c *Client) LeaveGroup(ctx context.Context, groupID int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/v1/groups/%d/members/me", groupID), nil, nil)
}

// DeleteGroup destroys the group (owner only, enforced server-side)
func (c *Client) DeleteGroup(ctx context.Context, groupID int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/v1/groups/%d", groupID), nil, nil)
}

// GetUserGroups lists the groups a user belongs to
func (c *Client) GetUserGroups(ctx context.Context, userID int64) ([]membership.GroupRef, error) {
	var refs []membership.GroupRef
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/v1/users/%d/groups", userID), nil, &refs)
	return refs, err
}

// GetGroupDetails fetches a group snapshot
func (c *Client) GetGroupDetails(ctx context.Context, groupID int64) (*membership.Group, error) {
	var group membership.Group
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/v1/groups/%d", groupID), nil, &group); err != nil {
		return nil, err
	}
	return &group, nil
}

// GetPendingRequests lists outstanding join requests on a private group
func (c *Client) GetPendingRequests(ctx context.Context, groupID int64) ([]membership.PendingRequest, error) {
	var requests []membership.PendingRequest
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/v1/groups/%d/requests", groupID), nil, &requests)
	return requests, err
}

// RemoveMember removes a member from a group
func (c *Client) RemoveMember(ctx context.Context, groupID, userID int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/v1/groups/%d/members/%d", groupID, userID), nil, nil)
}

// UpdateMemberRole changes a member's role
func (c *Client) UpdateMemberRole(ctx context.Context, groupID, userID int64, role membership.Role) error {
	body := map[string]membership.Role{"role": role}
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/api/v1/groups/%d/members/%d", groupID, userID), body, nil)
}

// ApproveRequest approves a pending join request
func (c *Client) ApproveRequest(ctx context.Context, groupID, userID int64) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/api/v1/groups/%d/requests/%d/approve", groupID, userID), nil, nil)
}

// DeclineRequest declines a pending join request
func (c *Client) DeclineRequest(ctx context.Context, groupID, userID int64) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/api/v1/groups/%d/requests/%d/decline", groupID, userID), nil, nil)
}

// GetGroupFavorites fetches the group's pinned movies (members only)
func (c *Client) GetGroupFavorites(ctx context.Context, groupID int64) ([]membership.Favorite, error) {
	var favorites []membership.Favorite
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/v1/groups/%d/favorites", groupID), nil, &favorites)
	return favorites, err
}

// GetGroupActivity fetches recent group activity (members only)
func (c *Client) GetGroupActivity(ctx context.Context, groupID int64) ([]membership.ActivityItem, error) {
	var activity []membership.ActivityItem
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/v1/groups/%d/activity", groupID), nil, &activity)
	return activity, err
}
