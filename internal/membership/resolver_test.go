package membership

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func rolePtr(r Role) *Role { return &r }
func boolPtr(b bool) *bool { return &b }
func staticHint(r Role) HintLookup {
	return func(groupID, userID int64) Role { return r }
}

func TestResolveRole_Precedence(t *testing.T) {
	tests := []struct {
		name     string
		group    *Group
		viewerID int64
		override Role
		hint     HintLookup
		want     Role
	}{
		{
			name:     "nil group is visitor",
			group:    nil,
			viewerID: 7,
			want:     RoleVisitor,
		},
		{
			name:     "owner id beats everything",
			group:    &Group{ID: 1, OwnerID: 7, Role: rolePtr(RolePending)},
			viewerID: 7,
			override: RolePending,
			hint:     staticHint(RolePending),
			want:     RoleOwner,
		},
		{
			name:     "is_owner flag counts as owner",
			group:    &Group{ID: 1, OwnerID: 99, IsOwner: boolPtr(true)},
			viewerID: 7,
			want:     RoleOwner,
		},
		{
			name:     "override beats server role",
			group:    &Group{ID: 1, OwnerID: 99, Role: rolePtr(RoleMember)},
			viewerID: 7,
			override: RolePending,
			want:     RolePending,
		},
		{
			name:     "server role beats is_member",
			group:    &Group{ID: 1, OwnerID: 99, Role: rolePtr(RoleModerator), IsMember: boolPtr(true)},
			viewerID: 7,
			want:     RoleModerator,
		},
		{
			name:     "server pending beats stale member hint",
			group:    &Group{ID: 1, OwnerID: 99, Role: rolePtr(RolePending)},
			viewerID: 7,
			hint:     staticHint(RoleMember),
			want:     RolePending,
		},
		{
			name:     "is_member fills absent role",
			group:    &Group{ID: 1, OwnerID: 99, IsMember: boolPtr(true)},
			viewerID: 7,
			want:     RoleMember,
		},
		{
			name: "members list evidence carries its role",
			group: &Group{ID: 1, OwnerID: 99, Members: []Member{
				{UserID: 7, Role: RoleModerator},
			}},
			viewerID: 7,
			want:     RoleModerator,
		},
		{
			name:     "cache hint fills genuine gaps",
			group:    &Group{ID: 1, OwnerID: 99},
			viewerID: 7,
			hint:     staticHint(RolePending),
			want:     RolePending,
		},
		{
			name:     "no evidence at all is visitor",
			group:    &Group{ID: 1, OwnerID: 99},
			viewerID: 7,
			want:     RoleVisitor,
		},
		{
			name:     "unknown viewer is visitor",
			group:    &Group{ID: 1, OwnerID: 99, IsMember: boolPtr(true)},
			viewerID: 0,
			want:     RoleVisitor,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveRole(tt.group, tt.viewerID, tt.override, tt.hint)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveRole_IsPure(t *testing.T) {
	group := &Group{ID: 3, OwnerID: 99, Role: rolePtr(RoleMember)}
	first := ResolveRole(group, 7, "", staticHint(RolePending))
	second := ResolveRole(group, 7, "", staticHint(RolePending))
	assert.Equal(t, first, second)
	// inputs are not mutated
	assert.Equal(t, RoleMember, *group.Role)
}

func TestHasMembershipSignal(t *testing.T) {
	assert.False(t, HasMembershipSignal(nil))
	assert.False(t, HasMembershipSignal(&Group{ID: 1}))
	assert.True(t, HasMembershipSignal(&Group{ID: 1, Role: rolePtr(RoleMember)}))
	assert.True(t, HasMembershipSignal(&Group{ID: 1, IsMember: boolPtr(false)}))
	assert.True(t, HasMembershipSignal(&Group{ID: 1, IsOwner: boolPtr(false)}))
	assert.True(t, HasMembershipSignal(&Group{ID: 1, Members: []Member{{UserID: 2}}}))
}
