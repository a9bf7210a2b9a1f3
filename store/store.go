// Package store persists identities, profile rows and wardrobe outfits.
// Every outfit read and write is scoped to the owning user.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/raushankrgupta/fitly-tryon/models"
)

var (
	ErrNotFound   = errors.New("record not found")
	ErrEmailTaken = errors.New("email already registered")
)

const (
	identitiesTable = "identities"
	profilesTable   = "users"
	outfitsTable    = "wardrobe"
)

type IdentityStore interface {
	CreateIdentity(ctx context.Context, id *models.Identity) error
	GetIdentity(ctx context.Context, id string) (*models.Identity, error)
	GetIdentityByEmail(ctx context.Context, email string) (*models.Identity, error)
	UpdateIdentityMetadata(ctx context.Context, id string, meta models.UserMetadata) error
	UpdatePassword(ctx context.Context, id, hash string) error
	// SetResetOTP stores a reset code; an empty otp clears it.
	SetResetOTP(ctx context.Context, id, otp string, expiresAt time.Time) error
}

type ProfileStore interface {
	InsertProfile(ctx context.Context, p *models.Profile) error
	GetProfile(ctx context.Context, id string) (*models.Profile, error)
	UpdateProfileName(ctx context.Context, id, fullName string) error
}

type OutfitStore interface {
	InsertOutfit(ctx context.Context, o *models.Outfit) error
	// ListOutfits returns the user's outfits newest first.
	ListOutfits(ctx context.Context, userID string) ([]models.Outfit, error)
	GetOutfit(ctx context.Context, userID, id string) (*models.Outfit, error)
	// UpdateOutfit returns the number of rows it changed. Zero with a nil
	// error means the write matched nothing the caller owns.
	UpdateOutfit(ctx context.Context, userID, id string, u models.OutfitUpdate) (int64, error)
	DeleteOutfit(ctx context.Context, userID, id string) (int64, error)
}

type Store interface {
	IdentityStore
	ProfileStore
	OutfitStore
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
