package core

// Session is the authenticated identity supplied by the session collaborator.
// The data layer never derives identity itself; every call is checked against
// the session's workspace and attributed to its actor.
type Session struct {
	Actor     string
	Workspace string
}

// Authorize checks a per-call workspace against the authenticated one.
// A missing workspace is an unauthenticated call; a mismatching one is
// rejected outright, never silently substituted.
func (s Session) Authorize(workspace string) error {
	if workspace == "" {
		return Errorf(KindValidation, "workspace is required")
	}
	if s.Workspace == "" {
		return Errorf(KindAccessDenied, "session is not bound to a workspace")
	}
	if workspace != s.Workspace {
		return Errorf(KindAccessDenied, "workspace %q does not match session workspace", workspace)
	}
	return nil
}
