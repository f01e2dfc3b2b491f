package membership

// ActionRequest represents the request body of the action dispatcher
type ActionRequest struct {
	Kind ActionKind `json:"kind"`
}

// StatusResponse is what views poll to gate UI actions
type StatusResponse struct {
	EffectiveRole Role   `json:"effective_role"`
	IsMember      bool   `json:"is_member"`
	IsPending     bool   `json:"is_pending"`
	Group         *Group `json:"group,omitempty"`
}

// statusOf derives the response shape from an engine
func statusOf(svc *Service) StatusResponse {
	role := svc.EffectiveRole()
	return StatusResponse{
		EffectiveRole: role,
		IsMember:      role.GrantsMembership(),
		IsPending:     role == RolePending,
		Group:         svc.Group(),
	}
}
