package auth

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/raushankrgupta/fitly-tryon/models"
	"github.com/raushankrgupta/fitly-tryon/store"
)

// Widget is what the header shows for the signed-in user.
type Widget struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
}

// CurrentUser builds the identity widget. A missing profile row is not an error.
func (s *Service) CurrentUser(ctx context.Context, userID string) (*Widget, error) {
	ident, err := s.Identity(ctx, userID)
	if err != nil {
		return nil, err
	}
	profile, err := s.Users.GetProfile(ctx, userID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	name := DisplayName(profile, ident)
	return &Widget{
		ID:        ident.ID,
		Name:      name,
		Email:     ident.Email,
		AvatarURL: AvatarURL(name, ident.Metadata),
	}, nil
}

// DisplayName picks the profile full name, then the metadata full name,
// then the local part of the email.
func DisplayName(profile *models.Profile, ident *models.Identity) string {
	if profile != nil && strings.TrimSpace(profile.FullName) != "" {
		return strings.TrimSpace(profile.FullName)
	}
	if n := strings.TrimSpace(ident.Metadata.FullName); n != "" {
		return n
	}
	local, _, _ := strings.Cut(ident.Email, "@")
	return local
}

// AvatarURL returns the uploaded avatar or a generated initials avatar.
func AvatarURL(name string, meta models.UserMetadata) string {
	if meta.AvatarURL != "" {
		return meta.AvatarURL
	}
	return "https://ui-avatars.com/api/?name=" + url.QueryEscape(name) + "&background=random"
}
