package domain

// Role groups a set of named permissions.
type Role struct {
	Name        string       `bson:"name"`
	Permissions []Permission `bson:"permissions,omitempty"`
}

// Permission is a globally unique permission name.
type Permission struct {
	Name string `bson:"name"`
}

// Built-in roles.
const (
	RoleAdmin  = "ADMIN"
	RoleMember = "MEMBER"
)

// Permissions carried by the built-in roles. PermAdminFullAccess grants the
// unconditional override in authorization checks.
const (
	PermAdminFullAccess = "ADMIN.FULL_ACCESS"

	PermProjectCreate = "PROJECT.CREATE"
	PermProjectView   = "PROJECT.VIEW"
	PermProjectUpdate = "PROJECT.UPDATE"
	PermProjectDelete = "PROJECT.DELETE"
)

// RolePrefix marks role names inside a token scope so coarse-grained role
// authorities and fine-grained permission names can share one string.
const RolePrefix = "ROLE_"
