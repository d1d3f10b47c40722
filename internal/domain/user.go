package domain

import "time"

// Profile stores the optional personal details of a user.
type Profile struct {
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Email     string `json:"email,omitempty"`
	Address   string `json:"address,omitempty"`
}

// User is an account identified by a mobile number and authenticated by one-time codes.
type User struct {
	ID           string    `json:"id"`
	MobileNumber string    `json:"mobileNumber"`
	OTPHash      string    `json:"-"`
	IsAdmin      bool      `json:"isAdmin"`
	IsVerified   bool      `json:"isVerified"`
	Profile      Profile   `json:"profile"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
