package membership

import "time"

// Role represents the viewer's effective relationship to a group.
// It is the single value all UI gating depends on.
type Role string

const (
	RoleVisitor   Role = "visitor"
	RolePending   Role = "pending"
	RoleMember    Role = "member"
	RoleModerator Role = "moderator"
	RoleOwner     Role = "owner"
)

// ParseRole maps a server-provided role string onto the closed enum
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleVisitor, RolePending, RoleMember, RoleModerator, RoleOwner:
		return Role(s), true
	}
	return RoleVisitor, false
}

// GrantsMembership reports whether the role carries member-level viewing
// rights. Pending explicitly excludes them.
func (r Role) GrantsMembership() bool {
	switch r {
	case RoleMember, RoleModerator, RoleOwner:
		return true
	}
	return false
}

// Visibility represents a group's visibility setting
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// RequiresApproval reports whether joining the group needs moderator approval
func (v Visibility) RequiresApproval() bool {
	return v != VisibilityPublic
}

// Group mirrors the server's view of a group. Role, IsMember and IsOwner are
// the server's opinion of the viewer's relationship and may all be absent;
// Members is only embedded on some responses.
type Group struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Visibility  Visibility `json:"visibility"`
	OwnerID     int64      `json:"owner_id"`
	MemberCount int        `json:"member_count"`
	Role        *Role      `json:"role,omitempty"`
	IsMember    *bool      `json:"is_member,omitempty"`
	IsOwner     *bool      `json:"is_owner,omitempty"`
	Members     []Member   `json:"members,omitempty"`
}

// Clone returns a deep copy so snapshots handed to callers never alias
// engine-internal state.
func (g *Group) Clone() *Group {
	if g == nil {
		return nil
	}
	out := *g
	if g.Role != nil {
		role := *g.Role
		out.Role = &role
	}
	if g.IsMember != nil {
		isMember := *g.IsMember
		out.IsMember = &isMember
	}
	if g.IsOwner != nil {
		isOwner := *g.IsOwner
		out.IsOwner = &isOwner
	}
	if g.Members != nil {
		out.Members = append([]Member(nil), g.Members...)
	}
	return &out
}

// MemberRole returns the role recorded for userID in the embedded members
// list, if the list is present and contains the user.
func (g *Group) MemberRole(userID int64) (Role, bool) {
	for _, m := range g.Members {
		if m.UserID == userID {
			return m.Role, true
		}
	}
	return RoleVisitor, false
}

// Member represents a user's confirmed membership in a group.
// Pending requesters are never mixed into this list.
type Member struct {
	UserID      int64     `json:"user_id"`
	DisplayName string    `json:"display_name"`
	Role        Role      `json:"role"`
	JoinedAt    time.Time `json:"joined_at"`
}

// PendingRequest represents an outstanding join request on a private group
type PendingRequest struct {
	UserID      int64     `json:"user_id"`
	DisplayName string    `json:"display_name"`
	RequestedAt time.Time `json:"requested_at"`
}

// GroupRef is the compact shape returned by the user-groups listing
type GroupRef struct {
	ID   int64 `json:"id"`
	Role *Role `json:"role,omitempty"`
}

// Favorite is a member-only content item: a movie pinned by the group
type Favorite struct {
	MovieID int64     `json:"movie_id"`
	Title   string    `json:"title"`
	AddedBy int64     `json:"added_by"`
	AddedAt time.Time `json:"added_at"`
}

// ActivityItem is a member-only content item: recent group activity
type ActivityItem struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Summary   string    `json:"summary"`
	CreatedAt time.Time `json:"created_at"`
}

// MemberContent bundles everything that is only visible to members
type MemberContent struct {
	Favorites []Favorite     `json:"favorites"`
	Activity  []ActivityItem `json:"activity"`
}
