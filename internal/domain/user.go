package domain

import "time"

// User is the owner of a credit balance.
type User struct {
	ID            string
	Email         string
	Name          string
	CreditBalance int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
