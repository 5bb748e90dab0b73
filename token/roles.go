package token

// Role represents the subscription tier carried in the access token's role
// claim. The tier controls how many records a single fetch may request.
type Role string

const (
	RoleUnset     Role = ""
	RoleFreeTrial Role = "free_trial"
	RolePremium   Role = "premium"
	RoleAdmin     Role = "admin"
)

// FreeTrialFetchCeiling is the per-fetch record ceiling for free-trial users.
const FreeTrialFetchCeiling = 1000

// ParseRole maps a role claim value onto a known tier. Unknown values
// degrade to the most restrictive tier rather than failing the login.
func ParseRole(claim string) Role {
	switch Role(claim) {
	case RolePremium:
		return RolePremium
	case RoleAdmin:
		return RoleAdmin
	case RoleFreeTrial, RoleUnset:
		return RoleFreeTrial
	default:
		return RoleFreeTrial
	}
}

// FetchCeiling returns the maximum record count this role may request in a
// single fetch. hardCeiling is the API-wide upper bound that applies to
// every tier.
func (r Role) FetchCeiling(hardCeiling int) int {
	switch r {
	case RolePremium, RoleAdmin:
		return hardCeiling
	default:
		return FreeTrialFetchCeiling
	}
}
