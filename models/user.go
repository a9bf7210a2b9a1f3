package models

import (
	"time"
)

// UserMetadata is the free-form profile data kept on an identity.
type UserMetadata struct {
	FullName     string `bson:"full_name,omitempty" json:"full_name,omitempty"`
	AvatarURL    string `bson:"avatar_url,omitempty" json:"avatar_url,omitempty"`
	Phone        string `bson:"phone,omitempty" json:"phone,omitempty"`
	Gender       string `bson:"gender,omitempty" json:"gender,omitempty"`
	BaseImageURL string `bson:"base_image_url,omitempty" json:"base_image_url,omitempty"`
}

// Merge overlays the non-empty fields of m onto u.
func (u UserMetadata) Merge(m UserMetadata) UserMetadata {
	if m.FullName != "" {
		u.FullName = m.FullName
	}
	if m.AvatarURL != "" {
		u.AvatarURL = m.AvatarURL
	}
	if m.Phone != "" {
		u.Phone = m.Phone
	}
	if m.Gender != "" {
		u.Gender = m.Gender
	}
	if m.BaseImageURL != "" {
		u.BaseImageURL = m.BaseImageURL
	}
	return u
}

// Identity represents a registered user as seen by the auth service
type Identity struct {
	ID           string       `bson:"_id" json:"id"`
	Email        string       `bson:"email" json:"email"`
	PasswordHash string       `bson:"password" json:"-"` // Password is not returned in JSON
	Metadata     UserMetadata `bson:"metadata" json:"user_metadata"`
	Provider     string       `bson:"provider" json:"provider"` // email, google
	OTP          string       `bson:"otp,omitempty" json:"-"`   // OTP for password reset
	OTPExpiresAt time.Time    `bson:"otp_expires_at,omitempty" json:"-"`
	CreatedAt    time.Time    `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time    `bson:"updated_at" json:"updated_at"`
}

// Profile is a row of the public profile table.
type Profile struct {
	ID        string    `bson:"_id" json:"id"`
	Email     string    `bson:"email" json:"email"`
	FullName  string    `bson:"full_name" json:"full_name"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
