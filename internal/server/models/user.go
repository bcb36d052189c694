// Package models defines server-side data models persisted in the database.
package models

import "time"

// Role values assigned to users.
const (
	RoleClient = "client"
	RoleSystem = "system"
)

// SentinelCustodianID is the fixed id of the system account that temporarily
// owns uploaded files before their real owner exists. The row is seeded by
// migration, never created at request time.
const SentinelCustodianID = "00000000-0000-0000-0000-000000000001"

// SentinelCustodianEmail is the reserved internal address of the sentinel
// custodian. Guarded by the unique index on users.email.
const SentinelCustodianEmail = "temp-file-custodian@corrigo.internal"

// User is an account holder. Accounts materialized from a guest order start
// inactive and without a password hash; activation flips Active and may set
// the hash.
type User struct {
	ID           string
	FirstName    string
	LastName     string
	Email        string
	PasswordHash *string
	Active       bool
	Role         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
