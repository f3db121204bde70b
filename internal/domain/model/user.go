package model

import (
	"time"

	"classroom-ai-platform/internal/domain"

	"github.com/google/uuid"
)

type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleSupport Role = "support"
	RoleAdmin   Role = "admin"
)

type OrgRole string

const (
	OrgRoleOwner  OrgRole = "owner"
	OrgRoleAdmin  OrgRole = "admin"
	OrgRoleMember OrgRole = "member"
)

// OrgMembership ties a user to an organization with an org-scoped role.
type OrgMembership struct {
	OrgID   string
	OrgSlug string
	Role    OrgRole
}

// User is a platform account: a teacher, student, or platform staff member.
type User struct {
	ID           string
	Email        string
	Name         string
	Role         Role
	Memberships  []OrgMembership
	RegisteredAt time.Time
	LastActiveAt time.Time
}

func NewUser(id, email, name string, role Role) (*User, error) {
	if id == "" {
		id = uuid.NewString()
	}
	if email == "" || name == "" {
		return nil, domain.ErrInvalidArgument
	}
	if role == "" {
		role = RoleStudent
	}
	return &User{
		ID:           id,
		Email:        email,
		Name:         name,
		Role:         role,
		RegisteredAt: time.Now(),
		LastActiveAt: time.Now(),
	}, nil
}

func (u *User) IsZero() bool { return u == nil || u.ID == "" }
func (u *User) Touch()       { u.LastActiveAt = time.Now() }

// IsPlatformStaff reports whether the base role dominates globally.
func (u *User) IsPlatformStaff() bool {
	return u.Role == RoleAdmin || u.Role == RoleSupport
}

// Membership returns the user's membership in the org with the given slug.
func (u *User) Membership(orgSlug string) (OrgMembership, bool) {
	for _, m := range u.Memberships {
		if m.OrgSlug == orgSlug {
			return m, true
		}
	}
	return OrgMembership{}, false
}

// EffectiveRole is the privilege level a request is handled with,
// derived from the base role, org memberships and the current org route.
type EffectiveRole string

const (
	EffectiveStudent       EffectiveRole = "student"
	EffectiveTeacher       EffectiveRole = "teacher"
	EffectiveOrgAdmin      EffectiveRole = "org_admin"
	EffectiveSupport       EffectiveRole = "support"
	EffectivePlatformAdmin EffectiveRole = "platform_admin"
)

// ComputeEffectiveRole returns the highest-privilege applicable role for
// a request context. Platform admin/support dominate everywhere; org
// owner/admin dominate within their own organization's routes; otherwise
// the user's base role applies. Pure: no side effects, no clock, no store.
func ComputeEffectiveRole(u *User, currentOrgSlug string) EffectiveRole {
	if u == nil {
		return EffectiveStudent
	}
	switch u.Role {
	case RoleAdmin:
		return EffectivePlatformAdmin
	case RoleSupport:
		return EffectiveSupport
	}
	if currentOrgSlug != "" {
		if m, ok := u.Membership(currentOrgSlug); ok {
			if m.Role == OrgRoleOwner || m.Role == OrgRoleAdmin {
				return EffectiveOrgAdmin
			}
		}
	}
	if u.Role == RoleTeacher {
		return EffectiveTeacher
	}
	return EffectiveStudent
}
