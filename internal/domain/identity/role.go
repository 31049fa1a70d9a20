package identity

// Role is the closed set of account roles. Authorization is decided by the
// explicit permission check below, never by comparing role strings at call
// sites.
type Role string

const (
	// RoleUser is a regular account: owns companies, issues vouchers,
	// manages its own subscription.
	RoleUser Role = "user"
	// RoleOperator is a sub-user of a regular account: issues vouchers on
	// the parent's companies but cannot administer them or billing.
	RoleOperator Role = "operator"
	// RoleAdmin is staff: read access across accounts for support.
	RoleAdmin Role = "admin"
	// RoleSuperAdmin is the back office: plans, subscriptions, payment
	// verification.
	RoleSuperAdmin Role = "superadmin"
)

// IsValid reports whether the role belongs to the closed set
func (r Role) IsValid() bool {
	switch r {
	case RoleUser, RoleOperator, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// Permission names a protected action
type Permission string

const (
	PermManageCompanies  Permission = "companies:manage"
	PermIssueVouchers    Permission = "vouchers:issue"
	PermViewVouchers     Permission = "vouchers:view"
	PermUseAssistant     Permission = "assistant:use"
	PermManageOwnBilling Permission = "billing:manage_own"
	PermManageOperators  Permission = "operators:manage"
	PermAdministerPlans  Permission = "admin:plans"
	PermVerifyPayments   Permission = "admin:payments"
	PermViewAllAccounts  Permission = "admin:accounts_view"
)

var rolePermissions = map[Role]map[Permission]bool{
	RoleUser: {
		PermManageCompanies:  true,
		PermIssueVouchers:    true,
		PermViewVouchers:     true,
		PermUseAssistant:     true,
		PermManageOwnBilling: true,
		PermManageOperators:  true,
	},
	RoleOperator: {
		PermIssueVouchers: true,
		PermViewVouchers:  true,
		PermUseAssistant:  true,
	},
	RoleAdmin: {
		PermViewVouchers:    true,
		PermViewAllAccounts: true,
	},
	RoleSuperAdmin: {
		PermViewVouchers:    true,
		PermViewAllAccounts: true,
		PermAdministerPlans: true,
		PermVerifyPayments:  true,
	},
}

// Can reports whether the role is allowed the given action
func (r Role) Can(p Permission) bool {
	return rolePermissions[r][p]
}

// Permissions returns the role's granted permissions, for embedding into
// token claims.
func (r Role) Permissions() []string {
	perms := rolePermissions[r]
	out := make([]string, 0, len(perms))
	for p, granted := range perms {
		if granted {
			out = append(out, string(p))
		}
	}
	return out
}
