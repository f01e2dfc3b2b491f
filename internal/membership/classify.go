package membership

import (
	"errors"
	"net/http"
	"strings"
)

// failureClass buckets a rejected collaborator call. The mapping lives here
// and nowhere else so the recovery policy stays consistent across actions.
type failureClass int

const (
	// classTransient: surface the message, leave local state unchanged
	classTransient failureClass = iota
	// classBenign: the requested end state already holds server-side;
	// adopt it locally and show an informational notice
	classBenign
	// classGone: the targeted resource no longer exists (404/410); for
	// operations that presume existence, treat as already completed
	classGone
)

// classifyFailure maps a collaborator error to a failure class. For
// classBenign it also returns the end state to adopt.
func classifyFailure(err error) (failureClass, Role) {
	var remote *RemoteError
	if !errors.As(err, &remote) {
		return classTransient, RoleVisitor
	}

	message := strings.ToLower(remote.Message)
	switch {
	case strings.Contains(message, "already a member"):
		return classBenign, RoleMember
	case strings.Contains(message, "already the owner"):
		return classBenign, RoleOwner
	case strings.Contains(message, "pending"):
		return classBenign, RolePending
	}

	switch remote.Status {
	case http.StatusNotFound, http.StatusGone:
		return classGone, RoleVisitor
	}

	return classTransient, RoleVisitor
}

// userMessage extracts the server-provided message for the notice stream,
// falling back to a generic one. Raw transport errors never reach views.
func userMessage(err error) string {
	var remote *RemoteError
	if errors.As(err, &remote) && remote.Message != "" {
		return remote.Message
	}
	return "Something went wrong. Please try again."
}
