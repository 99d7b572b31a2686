package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/ekaya-inc/ekaya-teamwork/pkg/apperrors"
)

// RoleName is one of the fixed workspace roles.
type RoleName string

const (
	RoleOwner  RoleName = "OWNER"
	RoleAdmin  RoleName = "ADMIN"
	RoleMember RoleName = "MEMBER"
)

// AllRoles lists every role in catalog order.
func AllRoles() []RoleName {
	return []RoleName{RoleOwner, RoleAdmin, RoleMember}
}

// Valid reports whether r is a declared role.
func (r RoleName) Valid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleMember:
		return true
	}
	return false
}

// ParseRoleName converts s to a RoleName, rejecting undeclared names.
func ParseRoleName(s string) (RoleName, error) {
	r := RoleName(s)
	if !r.Valid() {
		return "", apperrors.ErrInvalidRole
	}
	return r, nil
}

// Permission is an atomic capability flag.
type Permission string

const (
	PermCreateWorkspace         Permission = "CREATE_WORKSPACE"
	PermEditWorkspace           Permission = "EDIT_WORKSPACE"
	PermDeleteWorkspace         Permission = "DELETE_WORKSPACE"
	PermManageWorkspaceSettings Permission = "MANAGE_WORKSPACE_SETTINGS"
	PermAddMember               Permission = "ADD_MEMBER"
	PermChangeMemberRole        Permission = "CHANGE_MEMBER_ROLE"
	PermRemoveMember            Permission = "REMOVE_MEMBER"
	PermCreateProject           Permission = "CREATE_PROJECT"
	PermEditProject             Permission = "EDIT_PROJECT"
	PermDeleteProject           Permission = "DELETE_PROJECT"
	PermCreateTask              Permission = "CREATE_TASK"
	PermEditTask                Permission = "EDIT_TASK"
	PermDeleteTask              Permission = "DELETE_TASK"
	PermViewOnly                Permission = "VIEW_ONLY"
)

// AllPermissions lists every permission in declaration order.
func AllPermissions() []Permission {
	return []Permission{
		PermCreateWorkspace,
		PermEditWorkspace,
		PermDeleteWorkspace,
		PermManageWorkspaceSettings,
		PermAddMember,
		PermChangeMemberRole,
		PermRemoveMember,
		PermCreateProject,
		PermEditProject,
		PermDeleteProject,
		PermCreateTask,
		PermEditTask,
		PermDeleteTask,
		PermViewOnly,
	}
}

// Valid reports whether p is a declared permission.
func (p Permission) Valid() bool {
	for _, known := range AllPermissions() {
		if p == known {
			return true
		}
	}
	return false
}

// ParsePermission converts s to a Permission, rejecting undeclared names.
func ParsePermission(s string) (Permission, error) {
	p := Permission(s)
	if !p.Valid() {
		return "", apperrors.ErrInvalidPermission
	}
	return p, nil
}

// Role is the durable record of a seeded role.
type Role struct {
	ID          uuid.UUID    `json:"id"`
	Name        RoleName     `json:"name"`
	Permissions []Permission `json:"permissions"`
	CreatedAt   time.Time    `json:"created_at"`
}
