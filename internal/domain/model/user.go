package model

import "time"

// User is the billing-relevant slice of an account: identity for provider
// customer creation plus the provider customer id once allocated.
type User struct {
	ID                 string // UUID
	Email              string
	FirstName          string
	LastName           string
	ExternalCustomerID *string // provider customer id; written once, never recreated
	CreatedAt          time.Time
}

func (u *User) FullName() string {
	if u.FirstName == "" {
		return u.LastName
	}
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
