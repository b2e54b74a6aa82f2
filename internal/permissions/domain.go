package permissions

import "time"

// Kind is one named capability from the deployment's permission registry.
type Kind string

// Override is an explicit per-member grant or deny that supersedes the
// role default for one kind. Absence of an override row means the member
// inherits the role default for that kind.
type Override struct {
	ProjectID int64
	MemberID  int64
	Kind      Kind
	Granted   bool
	UpdatedAt time.Time
	UpdatedBy int64
}

// Membership is a member's standing in a project as reported by the
// membership directory. The engine never mutates memberships.
type Membership struct {
	MemberID    int64
	ProjectID   int64
	Role        string
	DisplayName string
}

// MemberPermissions is the single-member read result.
type MemberPermissions struct {
	MemberID  int64
	Role      string
	Effective []Kind
	Overrides map[Kind]bool
}

// MatrixRow is one member's entry in the project permission matrix.
type MatrixRow struct {
	MemberID    int64
	DisplayName string
	Role        string
	Effective   []Kind
}

// OverrideEntry is one element of a replace-overrides request.
type OverrideEntry struct {
	Permission Kind
	Granted    bool
}
