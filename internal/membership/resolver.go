package membership

// HintLookup returns the cached membership hint for a (group, user) pair,
// or RoleVisitor when no unexpired hint exists.
type HintLookup func(groupID, userID int64) Role

// ResolveRole computes the viewer's effective role from the group snapshot,
// an optimistic local override and the hint cache. It is a pure function of
// its inputs so every render derives the identical answer.
//
// Precedence, highest first:
//  1. owner identity (owner_id equality or is_owner)
//  2. local override
//  3. server-declared role
//  4. is_member / embedded members list
//  5. unexpired cache hint
//  6. visitor
//
// The server's explicit role always beats the cache: a hint only fills
// genuinely absent role fields.
func ResolveRole(g *Group, viewerID int64, override Role, hints HintLookup) Role {
	if g == nil || viewerID == 0 {
		return RoleVisitor
	}

	if g.OwnerID != 0 && g.OwnerID == viewerID {
		return RoleOwner
	}
	if g.IsOwner != nil && *g.IsOwner {
		return RoleOwner
	}

	if override != "" && override != RoleVisitor {
		return override
	}

	if g.Role != nil {
		if role, ok := ParseRole(string(*g.Role)); ok && role != RoleVisitor {
			return role
		}
	}

	if g.IsMember != nil && *g.IsMember {
		return RoleMember
	}
	if role, ok := g.MemberRole(viewerID); ok {
		return role
	}

	if hints != nil {
		switch hint := hints(g.ID, viewerID); hint {
		case RolePending, RoleMember:
			return hint
		}
	}

	return RoleVisitor
}

// HasMembershipSignal reports whether the server expressed any opinion at all
// about the viewer's relationship to the group. When it returns false the
// engine performs its one-time gap-fill against the user-groups listing.
func HasMembershipSignal(g *Group) bool {
	if g == nil {
		return false
	}
	return g.Role != nil || g.IsMember != nil || g.IsOwner != nil || len(g.Members) > 0
}
