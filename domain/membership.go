package domain

import "time"

// ProjectRole is an account's role within a single project.
type ProjectRole string

const (
	ProjectRoleOwner  ProjectRole = "OWNER"
	ProjectRoleMember ProjectRole = "MEMBER"
)

// ProjectMember links an account to a project with a per-project role.
type ProjectMember struct {
	ID        string      `bson:"_id,omitempty"`
	ProjectID string      `bson:"project_id"`
	AccountID string      `bson:"account_id"`
	Role      ProjectRole `bson:"role"`
	JoinedAt  time.Time   `bson:"joined_at"`
}
