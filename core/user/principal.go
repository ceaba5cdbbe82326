package user

// Principal is the authenticated caller of an operation, resolved from a session or a JWT.
type Principal struct {
	UserID         string
	Role           string
	OrganizationID string
	Name           string
	Email          string
}

func (p Principal) IsAuthenticated() bool { return p.UserID != "" }
func (p Principal) IsSuperAdmin() bool    { return p.Role == RoleSuperAdmin }
func (p Principal) IsAdmin() bool         { return p.Role == RoleAdmin }
func (p Principal) IsInstructor() bool    { return p.Role == RoleInstructor }
func (p Principal) IsParent() bool        { return p.Role == RoleParent }

// IsOrgAdmin reports whether p manages every record of the organization.
func (p Principal) IsOrgAdmin(orgID string) bool {
	return p.IsSuperAdmin() || (p.IsAdmin() && p.OrganizationID == orgID)
}

// HasAnyRole reports whether p holds one of roles. Super admins hold them all.
func (p Principal) HasAnyRole(roles ...string) bool {
	if p.IsSuperAdmin() || len(roles) == 0 {
		return true
	}
	for _, role := range roles {
		if p.Role == role {
			return true
		}
	}
	return false
}

// CanAccessOrganization reports whether p may touch the records of the organization.
func (p Principal) CanAccessOrganization(orgID string) bool {
	return p.IsSuperAdmin() || (p.OrganizationID != "" && p.OrganizationID == orgID)
}

// CanGrant reports whether p may create users with role.
func (p Principal) CanGrant(role string) bool {
	return RolePriority(role) <= RolePriority(p.Role)
}
