package deal

import "time"

// Role names a party's side of a deal.
type Role string

const (
	RolePayer    Role = "payer"
	RoleProvider Role = "provider"
)

// Valid reports whether the role is one of the two deal sides.
func (r Role) Valid() bool {
	return r == RolePayer || r == RoleProvider
}

// Complement returns the opposite side.
func (r Role) Complement() Role {
	if r == RolePayer {
		return RoleProvider
	}
	return RolePayer
}

// PaymentStatus tracks whether escrow has been deposited.
type PaymentStatus string

const (
	PaymentUnpaid PaymentStatus = "unpaid"
	PaymentFunded PaymentStatus = "funded"
)

// InviteType selects how the second party is bound to the deal.
type InviteType string

const (
	InviteByCode     InviteType = "code"
	InviteByUsername InviteType = "username"
)

// Deal is the central escrow agreement entity. Amount is fixed at creation
// in minor currency units and never mutated. Each lifecycle timestamp is set
// exactly once, when the corresponding transition commits.
type Deal struct {
	ID                 int64
	ServiceDescription string
	Amount             int64
	Deadline           time.Time

	CreatorID   int64
	CreatorRole Role
	PayerID     *int64
	ProviderID  *int64

	InviteType      InviteType
	InviteCode      string
	InvitedUsername string
	// InvitedUserID is the invite target resolved at creation time.
	// Resolution is one-shot: a username that did not exist then is never
	// re-resolved.
	InvitedUserID *int64

	Status        Status
	PaymentStatus PaymentStatus

	CreatedAt   time.Time
	FundedAt    *time.Time
	CompletedAt *time.Time
	ReleasedAt  *time.Time
}

// IsParticipant reports whether the user is the deal's payer or provider.
func (d Deal) IsParticipant(userID int64) bool {
	if d.PayerID != nil && *d.PayerID == userID {
		return true
	}
	if d.ProviderID != nil && *d.ProviderID == userID {
		return true
	}
	return false
}

// RoleOf returns which side the user holds, if any.
func (d Deal) RoleOf(userID int64) (Role, bool) {
	if d.PayerID != nil && *d.PayerID == userID {
		return RolePayer, true
	}
	if d.ProviderID != nil && *d.ProviderID == userID {
		return RoleProvider, true
	}
	return "", false
}

// PartyID returns the user holding the given side, or nil before pairing.
func (d Deal) PartyID(role Role) *int64 {
	if role == RolePayer {
		return d.PayerID
	}
	return d.ProviderID
}
