package models

const SuperRoleName = "SUPER_ADMIN"

const (
	PermManageElections  = "manage_elections"
	PermManageCandidates = "manage_candidates"
	PermManageParties    = "manage_parties"
	PermManageVoters     = "manage_voters"
	PermManageAdmins     = "manage_admins"
	PermViewResults      = "view_results"
	PermViewAuditLogs    = "view_audit_logs"
)

// Permissions is the fixed catalog a role can draw from.
var Permissions = []string{
	PermManageElections,
	PermManageCandidates,
	PermManageParties,
	PermManageVoters,
	PermManageAdmins,
	PermViewResults,
	PermViewAuditLogs,
}

func ValidPermission(perm string) bool {
	for _, known := range Permissions {
		if known == perm {
			return true
		}
	}
	return false
}
