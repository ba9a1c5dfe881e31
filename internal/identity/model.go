package identity

import "time"

// Roles.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// KYC statuses. Approval itself happens in an external workflow; this
// service only stores and checks the resulting flag.
const (
	KYCPending  = "pending"
	KYCApproved = "approved"
	KYCRejected = "rejected"
)

// User represents a registered platform member.
type User struct {
	ID           string
	Email        string
	Role         string
	KYCStatus    string
	PasswordHash []byte
	// ReferrerID links a referred user to the member who invited them.
	// Empty when the user signed up without a referral code.
	ReferrerID string
	CreatedAt  time.Time
}

// Credentials request structure.
type Credentials struct {
	Email        string
	Password     string
	ReferralCode string
}
