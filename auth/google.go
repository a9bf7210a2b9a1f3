package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/raushankrgupta/fitly-tryon/models"
	"github.com/raushankrgupta/fitly-tryon/store"
	"github.com/raushankrgupta/fitly-tryon/utils"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// GoogleUser is the subset of the userinfo response we keep.
type GoogleUser struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// OAuthProvider is an external identity provider.
type OAuthProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*GoogleUser, error)
}

type GoogleProvider struct {
	Config      *oauth2.Config
	UserInfoURL string
}

// NewGoogleProvider returns nil when no client id is configured.
func NewGoogleProvider(clientID, clientSecret, redirectURL string) *GoogleProvider {
	if clientID == "" {
		return nil
	}
	return &GoogleProvider{
		Config: &oauth2.Config{
			RedirectURL:  redirectURL,
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Scopes:       []string{"https://www.googleapis.com/auth/userinfo.email", "https://www.googleapis.com/auth/userinfo.profile"},
			Endpoint:     google.Endpoint,
		},
		UserInfoURL: googleUserInfoURL,
	}
}

func (g *GoogleProvider) AuthCodeURL(state string) string {
	return g.Config.AuthCodeURL(state)
}

func (g *GoogleProvider) Exchange(ctx context.Context, code string) (*GoogleUser, error) {
	token, err := g.Config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange token: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.UserInfoURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := g.Config.Client(ctx, token).Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get user info: %w", err)
	}
	defer resp.Body.Close()

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read user info: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("user info status %d", resp.StatusCode)
	}

	var user GoogleUser
	if err := json.Unmarshal(content, &user); err != nil {
		return nil, fmt.Errorf("decode user info: %w", err)
	}
	if user.Email == "" {
		return nil, fmt.Errorf("google account has no email")
	}
	return &user, nil
}

// GoogleLoginURL issues a fresh state and returns the consent page URL.
func (s *Service) GoogleLoginURL(ctx context.Context) (string, error) {
	if s.Google == nil {
		return "", ErrOAuthDisabled
	}
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	state := hex.EncodeToString(b)
	if err := s.Prefs.PutOAuthState(ctx, state); err != nil {
		return "", fmt.Errorf("store oauth state: %w", err)
	}
	return s.Google.AuthCodeURL(state), nil
}

// GoogleCallback finishes the OAuth dance, creating the identity on first login.
func (s *Service) GoogleCallback(ctx context.Context, state, code string) (*Session, error) {
	if s.Google == nil {
		return nil, ErrOAuthDisabled
	}
	if state == "" || !s.Prefs.TakeOAuthState(ctx, state) {
		return nil, ErrOAuthState
	}
	if code == "" {
		return nil, invalid("Code not found")
	}

	gu, err := s.Google.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}

	ident, err := s.Users.GetIdentityByEmail(ctx, gu.Email)
	switch {
	case errors.Is(err, store.ErrNotFound):
		ident, err = s.createGoogleIdentity(ctx, gu)
		if err != nil {
			return nil, err
		}
	case err != nil:
		return nil, fmt.Errorf("find identity: %w", err)
	default:
		patch := models.UserMetadata{}
		if ident.Metadata.FullName == "" {
			patch.FullName = gu.Name
		}
		if ident.Metadata.AvatarURL == "" {
			patch.AvatarURL = gu.Picture
		}
		if patch != (models.UserMetadata{}) {
			if err := s.Users.UpdateIdentityMetadata(ctx, ident.ID, ident.Metadata.Merge(patch)); err != nil {
				utils.Log.Warn("could not merge google profile", zap.String("user_id", ident.ID), zap.Error(err))
			}
		}
	}

	return s.openSession(ctx, ident.ID)
}

func (s *Service) createGoogleIdentity(ctx context.Context, gu *GoogleUser) (*models.Identity, error) {
	now := s.clock()
	ident := &models.Identity{
		ID:        uuid.NewString(),
		Email:     strings.TrimSpace(gu.Email),
		Provider:  "google",
		Metadata:  models.UserMetadata{FullName: gu.Name, AvatarURL: gu.Picture},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Users.CreateIdentity(ctx, ident); err != nil {
		return nil, fmt.Errorf("create identity: %w", err)
	}
	if err := s.Users.InsertProfile(ctx, &models.Profile{ID: ident.ID, Email: ident.Email, FullName: gu.Name, CreatedAt: now}); err != nil {
		utils.Log.Error("profile insert failed", zap.String("user_id", ident.ID), zap.Error(err))
	}
	return ident, nil
}
