// Package rbac holds the static role table: which permission tokens a role
// carries and which category it belongs to.
//
// Everything here is read-only after package initialisation, so the functions
// are safe to call from any goroutine without locking.
package rbac

import "slices"

// Role names a user's function on the platform.
type Role string

const (
	RoleSuperAdmin         Role = "super_admin"
	RoleAdmin              Role = "admin"
	RoleDoctorGeneral      Role = "doctor_general"
	RoleDoctorSpecialist   Role = "doctor_specialist"
	RoleNurse              Role = "nurse"
	RoleMidwife            Role = "midwife"
	RolePharmacist         Role = "pharmacist"
	RoleLabTechnician      Role = "lab_technician"
	RoleRadiologist        Role = "radiologist"
	RoleEstablishmentAdmin Role = "establishment_admin"
	RoleMinistryOfficial   Role = "ministry_official"
	RolePatient            Role = "patient"
)

// Category groups roles for routing and dashboards.
type Category string

const (
	CategoryAdministration          Category = "administration"
	CategoryProfessionalMedical     Category = "professional_medical"
	CategoryProfessionalParamedical Category = "professional_paramedical"
	CategoryProfessionalPharmacy    Category = "professional_pharmacy"
	CategoryProfessionalTechnical   Category = "professional_technical"
	CategoryEstablishment           Category = "establishment"
	CategoryMinistry                Category = "ministry"
	CategoryPatient                 Category = "patient"
)

// Permission is a single capability token carried in access tokens.
type Permission string

const (
	PermReadOwnDMP           Permission = "read_own_dmp"
	PermReadPatientDMP       Permission = "read_patient_dmp"
	PermWritePatientDMP      Permission = "write_patient_dmp"
	PermGrantConsent         Permission = "grant_consent"
	PermRevokeConsent        Permission = "revoke_consent"
	PermWritePrescription    Permission = "write_prescription"
	PermWriteLabResult       Permission = "write_lab_result"
	PermWriteImagingResult   Permission = "write_imaging_result"
	PermWriteVaccination     Permission = "write_vaccination"
	PermManageAppointments   Permission = "manage_appointments"
	PermBookAppointment      Permission = "book_appointment"
	PermReadOwnProfile       Permission = "read_own_profile"
	PermUpdateOwnProfile     Permission = "update_own_profile"
	PermManageUsers          Permission = "manage_users"
	PermManageEstablishments Permission = "manage_establishments"
	PermVerifyProfessionals  Permission = "verify_professionals"
	PermViewStatistics       Permission = "view_statistics"
	PermViewSystemMetrics    Permission = "view_system_metrics"
)

// allPermissions lists every defined token in declaration order.
var allPermissions = []Permission{
	PermReadOwnDMP,
	PermReadPatientDMP,
	PermWritePatientDMP,
	PermGrantConsent,
	PermRevokeConsent,
	PermWritePrescription,
	PermWriteLabResult,
	PermWriteImagingResult,
	PermWriteVaccination,
	PermManageAppointments,
	PermBookAppointment,
	PermReadOwnProfile,
	PermUpdateOwnProfile,
	PermManageUsers,
	PermManageEstablishments,
	PermVerifyProfessionals,
	PermViewStatistics,
	PermViewSystemMetrics,
}

type roleDefinition struct {
	category    Category
	permissions []Permission
}

var clinicianBase = []Permission{
	PermReadOwnProfile,
	PermUpdateOwnProfile,
	PermReadPatientDMP,
	PermManageAppointments,
}

var roleTable = map[Role]roleDefinition{
	RoleSuperAdmin: {
		category:    CategoryAdministration,
		permissions: allPermissions,
	},
	RoleAdmin: {
		category: CategoryAdministration,
		permissions: []Permission{
			PermReadOwnProfile,
			PermUpdateOwnProfile,
			PermManageUsers,
			PermManageEstablishments,
			PermVerifyProfessionals,
			PermViewStatistics,
			PermViewSystemMetrics,
		},
	},
	RoleDoctorGeneral: {
		category: CategoryProfessionalMedical,
		permissions: with(clinicianBase,
			PermWritePatientDMP,
			PermWritePrescription,
			PermWriteVaccination,
		),
	},
	RoleDoctorSpecialist: {
		category: CategoryProfessionalMedical,
		permissions: with(clinicianBase,
			PermWritePatientDMP,
			PermWritePrescription,
			PermWriteVaccination,
		),
	},
	RoleNurse: {
		category:    CategoryProfessionalParamedical,
		permissions: with(clinicianBase, PermWriteVaccination),
	},
	RoleMidwife: {
		category: CategoryProfessionalParamedical,
		permissions: with(clinicianBase,
			PermWritePatientDMP,
			PermWriteVaccination,
		),
	},
	RolePharmacist: {
		category: CategoryProfessionalPharmacy,
		permissions: []Permission{
			PermReadOwnProfile,
			PermUpdateOwnProfile,
			PermReadPatientDMP,
		},
	},
	RoleLabTechnician: {
		category: CategoryProfessionalTechnical,
		permissions: []Permission{
			PermReadOwnProfile,
			PermUpdateOwnProfile,
			PermWriteLabResult,
		},
	},
	RoleRadiologist: {
		category: CategoryProfessionalTechnical,
		permissions: []Permission{
			PermReadOwnProfile,
			PermUpdateOwnProfile,
			PermReadPatientDMP,
			PermWriteImagingResult,
		},
	},
	RoleEstablishmentAdmin: {
		category: CategoryEstablishment,
		permissions: []Permission{
			PermReadOwnProfile,
			PermUpdateOwnProfile,
			PermManageEstablishments,
			PermManageAppointments,
			PermViewStatistics,
		},
	},
	RoleMinistryOfficial: {
		category: CategoryMinistry,
		permissions: []Permission{
			PermReadOwnProfile,
			PermViewStatistics,
			PermVerifyProfessionals,
		},
	},
	RolePatient: {
		category: CategoryPatient,
		permissions: []Permission{
			PermReadOwnDMP,
			PermGrantConsent,
			PermRevokeConsent,
			PermBookAppointment,
			PermReadOwnProfile,
			PermUpdateOwnProfile,
		},
	},
}

func with(base []Permission, extra ...Permission) []Permission {
	out := make([]Permission, 0, len(base)+len(extra))
	out = append(out, base...)
	return append(out, extra...)
}

// IsValidRole reports whether role is present in the table.
func IsValidRole(role Role) bool {
	_, ok := roleTable[role]
	return ok
}

// HasPermission reports whether role carries permission. Unknown roles carry nothing.
func HasPermission(role Role, permission Permission) bool {
	def, ok := roleTable[role]
	if !ok {
		return false
	}
	return slices.Contains(def.permissions, permission)
}

// HasAllPermissions is the AND over HasPermission. An empty list is satisfied.
func HasAllPermissions(role Role, permissions []Permission) bool {
	for _, p := range permissions {
		if !HasPermission(role, p) {
			return false
		}
	}
	return true
}

// HasAnyPermission is the OR over HasPermission. An empty list is never satisfied.
func HasAnyPermission(role Role, permissions []Permission) bool {
	for _, p := range permissions {
		if HasPermission(role, p) {
			return true
		}
	}
	return false
}

// RoleCategory returns the single category of role.
func RoleCategory(role Role) (Category, bool) {
	def, ok := roleTable[role]
	if !ok {
		return "", false
	}
	return def.category, true
}

// PermissionsFor returns a copy of role's permission tokens in table order.
func PermissionsFor(role Role) []Permission {
	def, ok := roleTable[role]
	if !ok {
		return nil
	}
	return slices.Clone(def.permissions)
}

// PermissionStrings is PermissionsFor rendered as plain strings for token claims.
func PermissionStrings(role Role) []string {
	perms := PermissionsFor(role)
	out := make([]string, len(perms))
	for i, p := range perms {
		out[i] = string(p)
	}
	return out
}

// AllPermissions returns every defined permission token.
func AllPermissions() []Permission {
	return slices.Clone(allPermissions)
}

// IsProfessional reports whether role belongs to one of the professional categories.
func IsProfessional(role Role) bool {
	category, ok := RoleCategory(role)
	if !ok {
		return false
	}
	switch category {
	case CategoryProfessionalMedical,
		CategoryProfessionalParamedical,
		CategoryProfessionalPharmacy,
		CategoryProfessionalTechnical:
		return true
	}
	return false
}

// SelfRegistrable reports whether an anonymous caller may sign up with role.
// Professionals start unverified.
func SelfRegistrable(role Role) bool {
	return role == RolePatient || IsProfessional(role)
}

// CanAssignRole reports whether actor may create an account holding role.
// Only super_admin creates super_admin accounts.
func CanAssignRole(actor, role Role) bool {
	if SelfRegistrable(role) {
		return true
	}
	if !HasPermission(actor, PermManageUsers) {
		return false
	}
	return role != RoleSuperAdmin || actor == RoleSuperAdmin
}
