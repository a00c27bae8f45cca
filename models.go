package identity

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UserRole is the profile's role
type UserRole = string

const (
	// RoleUser is a regular account
	RoleUser UserRole = "user"
	// RoleAdmin is an administrator account
	RoleAdmin UserRole = "admin"
)

// Plan is the subscription tier exposed to the application
type Plan = string

const (
	// PlanFree is the default tier
	PlanFree Plan = "free"
	// PlanPro is the paid tier
	PlanPro Plan = "pro"
	// PlanVanguard is the top tier; admins always resolve to it
	PlanVanguard Plan = "vanguard"
)

// Profile is the application-owned identity record, keyed by the identity
// provider's user id. It is fetched and replaced wholesale, never mutated
// field by field by the store.
type Profile struct {
	bun.BaseModel `bun:"table:profiles,alias:pro"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Username      string     `bun:"username,notnull,unique" json:"username,omitempty"`
	DisplayName   string     `bun:"display_name" json:"display_name,omitempty"`
	AvatarURL     string     `bun:"avatar_url" json:"avatar_url,omitempty"`
	Role          UserRole   `bun:"user_role,notnull" json:"user_role,omitempty"`
	Plan          string     `bun:"plan" json:"plan,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt     *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// IsAdmin reports whether the profile carries the admin role.
func (p *Profile) IsAdmin() bool {
	return p != nil && p.Role == RoleAdmin
}

// Normalize replaces the stored plan column with the derived tier.
func (p *Profile) Normalize() *Profile {
	if p == nil {
		return nil
	}
	p.Plan = DerivePlan(p.Role, p.Plan)
	return p
}

// DerivePlan computes the effective tier from the role and the stored plan
// column. Admins and an explicitly stored top tier collapse to the top tier;
// any other stored value passes through lower-cased; empty defaults to free.
func DerivePlan(role UserRole, stored string) Plan {
	stored = strings.ToLower(strings.TrimSpace(stored))

	if role == RoleAdmin || stored == PlanVanguard {
		return PlanVanguard
	}

	if stored != "" {
		return stored
	}

	return PlanFree
}

// PlanRank orders tiers for "at least" comparisons.
func PlanRank(plan Plan) int {
	switch strings.ToLower(plan) {
	case PlanVanguard:
		return 2
	case PlanPro:
		return 1
	default:
		return 0
	}
}

// PlanIsAtLeast reports whether plan meets the minimum tier.
func PlanIsAtLeast(plan, min Plan) bool {
	return PlanRank(plan) >= PlanRank(min)
}
