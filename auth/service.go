// Package auth owns identities and sessions: sign up, sign in, sign out,
// profile updates, password reset and Google login.
package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/raushankrgupta/fitly-tryon/clientstate"
	"github.com/raushankrgupta/fitly-tryon/events"
	"github.com/raushankrgupta/fitly-tryon/models"
	"github.com/raushankrgupta/fitly-tryon/notify"
	"github.com/raushankrgupta/fitly-tryon/storage"
	"github.com/raushankrgupta/fitly-tryon/store"
	"github.com/raushankrgupta/fitly-tryon/utils"
)

const (
	MinPasswordLength = 6
	otpTTL            = 15 * time.Minute
)

const msgPasswordTooShort = "Password must be at least 6 characters."

// Mailer delivers transactional email.
type Mailer interface {
	SendEmail(toName, toEmail, subject, textContent, htmlContent string) error
}

// Users is the slice of the store the auth service reads and writes.
type Users interface {
	store.IdentityStore
	store.ProfileStore
}

type Service struct {
	Users    Users
	Prefs    *clientstate.Prefs
	Objects  storage.ObjectStore
	Mailer   Mailer
	Notifier notify.Notifier
	Events   events.Publisher
	Google   OAuthProvider
	Secret   string

	now func() time.Time
}

func (s *Service) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

func (s *Service) notify(userID, event string) {
	if s.Notifier != nil {
		s.Notifier.Publish(userID, event)
	}
}

// Session is an issued session token.
type Session struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	SessionID string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Principal is the caller resolved from a session token.
type Principal struct {
	UserID    string
	SessionID string
}

type SignUpInput struct {
	FullName      string
	Email         string
	Phone         string
	Gender        string
	Password      string
	BaseImage     []byte
	BaseImageType string
}

// SignUp registers an identity, stores the optional base image and opens a
// session. Base image upload and profile row failures do not fail sign up.
func (s *Service) SignUp(ctx context.Context, in SignUpInput) (*Session, *models.Identity, error) {
	email := strings.TrimSpace(in.Email)
	if email == "" || in.Password == "" {
		return nil, nil, invalid("Email and password are required.")
	}
	if len(in.Password) < MinPasswordLength {
		return nil, nil, invalid(msgPasswordTooShort)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.clock()
	ident := &models.Identity{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		Provider:     "email",
		Metadata: models.UserMetadata{
			FullName: strings.TrimSpace(in.FullName),
			Phone:    in.Phone,
			Gender:   in.Gender,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Users.CreateIdentity(ctx, ident); err != nil {
		return nil, nil, fmt.Errorf("create identity: %w", err)
	}

	if len(in.BaseImage) > 0 && s.Objects != nil {
		key := fmt.Sprintf("%s/base_image_%d.%s", ident.ID, now.UnixMilli(), storage.ExtFromContentType(in.BaseImageType))
		if err := s.Objects.Upload(ctx, key, in.BaseImage, in.BaseImageType); err != nil {
			utils.Log.Warn("base image upload failed during sign up", zap.String("user_id", ident.ID), zap.Error(err))
		} else {
			ident.Metadata.BaseImageURL = s.Objects.PublicURL(key)
			if err := s.Users.UpdateIdentityMetadata(ctx, ident.ID, ident.Metadata); err != nil {
				utils.Log.Warn("could not record base image", zap.String("user_id", ident.ID), zap.Error(err))
			}
		}
	}

	profile := &models.Profile{ID: ident.ID, Email: email, FullName: ident.Metadata.FullName, CreatedAt: now}
	if err := s.Users.InsertProfile(ctx, profile); err != nil {
		utils.Log.Error("profile insert failed", zap.String("user_id", ident.ID), zap.Error(err))
	}

	if s.Events != nil {
		evt := events.UserRegisteredEvent{UserID: ident.ID, Email: email, Name: ident.Metadata.FullName}
		if err := s.Events.Publish(ctx, events.UserRegistered, evt); err != nil {
			utils.Log.Warn("publish user.registered", zap.Error(err))
		}
	}

	sess, err := s.openSession(ctx, ident.ID)
	if err != nil {
		return nil, nil, err
	}
	return sess, ident, nil
}

// SignIn checks a password and opens a session.
func (s *Service) SignIn(ctx context.Context, email, password string) (*Session, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, invalid("Email and password are required.")
	}
	ident, err := s.Users.GetIdentityByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("find identity: %w", err)
	}
	if ident.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(ident.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.openSession(ctx, ident.ID)
}

func (s *Service) openSession(ctx context.Context, userID string) (*Session, error) {
	sid := uuid.NewString()
	token, err := utils.GenerateToken(s.Secret, userID, sid)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	if err := s.Prefs.OpenSession(ctx, sid, userID); err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}
	s.notify(userID, notify.SignedIn)
	return &Session{
		Token:     token,
		UserID:    userID,
		SessionID: sid,
		ExpiresAt: s.clock().Add(utils.SessionTTL),
	}, nil
}

// Authenticate resolves a session token. Tokens of signed-out sessions are
// rejected even before they expire.
func (s *Service) Authenticate(ctx context.Context, token string) (*Principal, error) {
	if token == "" {
		return nil, ErrUnauthorized
	}
	claims, err := utils.ValidateToken(s.Secret, token)
	if err != nil {
		return nil, ErrUnauthorized
	}
	if !s.Prefs.SessionActive(ctx, claims.SessionID, claims.UserID) {
		return nil, ErrUnauthorized
	}
	return &Principal{UserID: claims.UserID, SessionID: claims.SessionID}, nil
}

// SignOut ends the session and drops its cached client state.
func (s *Service) SignOut(ctx context.Context, p Principal) error {
	if err := s.Prefs.ClearSession(ctx, p.UserID, p.SessionID); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	s.notify(p.UserID, notify.SignedOut)
	return nil
}

// Identity returns the raw identity, metadata included.
func (s *Service) Identity(ctx context.Context, userID string) (*models.Identity, error) {
	ident, err := s.Users.GetIdentity(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get identity: %w", err)
	}
	return ident, nil
}

type UpdateUserInput struct {
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
	Gender   string `json:"gender"`
	Password string `json:"password"`
}

// UpdateUser changes the password and merges profile metadata. Empty
// fields are left as they are.
func (s *Service) UpdateUser(ctx context.Context, userID string, in UpdateUserInput) (*models.Identity, error) {
	if in.Password != "" && len(in.Password) < MinPasswordLength {
		return nil, invalid(msgPasswordTooShort)
	}

	ident, err := s.Identity(ctx, userID)
	if err != nil {
		return nil, err
	}

	if in.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		if err := s.Users.UpdatePassword(ctx, userID, string(hash)); err != nil {
			return nil, fmt.Errorf("update password: %w", err)
		}
		ident.PasswordHash = string(hash)
	}

	patch := models.UserMetadata{FullName: strings.TrimSpace(in.FullName), Phone: in.Phone, Gender: in.Gender}
	if patch != (models.UserMetadata{}) {
		ident.Metadata = ident.Metadata.Merge(patch)
		if err := s.Users.UpdateIdentityMetadata(ctx, userID, ident.Metadata); err != nil {
			return nil, fmt.Errorf("update metadata: %w", err)
		}
	}

	if patch.FullName != "" {
		err := s.Users.UpdateProfileName(ctx, userID, patch.FullName)
		if errors.Is(err, store.ErrNotFound) {
			err = s.Users.InsertProfile(ctx, &models.Profile{ID: userID, Email: ident.Email, FullName: patch.FullName, CreatedAt: s.clock()})
		}
		if err != nil {
			return nil, fmt.Errorf("update profile: %w", err)
		}
	}

	s.notify(userID, notify.UserUpdated)
	return ident, nil
}

// UploadAvatar stores a new avatar and returns its public URL.
func (s *Service) UploadAvatar(ctx context.Context, userID string, data []byte, contentType string) (string, error) {
	if len(data) == 0 {
		return "", invalid("Please choose an image.")
	}
	key := fmt.Sprintf("%s/avatar_%d.%s", userID, s.clock().UnixMilli(), storage.ExtFromContentType(contentType))
	if err := s.Objects.Upload(ctx, key, data, contentType); err != nil {
		return "", fmt.Errorf("upload avatar: %w", err)
	}
	url := s.Objects.PublicURL(key)
	if err := s.updateMetadata(ctx, userID, models.UserMetadata{AvatarURL: url}); err != nil {
		return "", err
	}
	s.notify(userID, notify.UserUpdated)
	return url, nil
}

// DefaultBaseImage returns the user's saved base image URL, or "".
func (s *Service) DefaultBaseImage(ctx context.Context, userID string) (string, error) {
	ident, err := s.Identity(ctx, userID)
	if err != nil {
		return "", err
	}
	return ident.Metadata.BaseImageURL, nil
}

// SetDefaultBaseImage records url as the user's default base image.
func (s *Service) SetDefaultBaseImage(ctx context.Context, userID, url string) error {
	if err := s.updateMetadata(ctx, userID, models.UserMetadata{BaseImageURL: url}); err != nil {
		return err
	}
	s.notify(userID, notify.UserUpdated)
	return nil
}

func (s *Service) updateMetadata(ctx context.Context, userID string, patch models.UserMetadata) error {
	ident, err := s.Identity(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.Users.UpdateIdentityMetadata(ctx, userID, ident.Metadata.Merge(patch)); err != nil {
		return fmt.Errorf("update metadata: %w", err)
	}
	return nil
}

// RequestPasswordReset emails a one-time code to the account owner.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return invalid("Email is required.")
	}
	ident, err := s.Users.GetIdentityByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("find identity: %w", err)
	}

	otp, err := generateOTP()
	if err != nil {
		return fmt.Errorf("generate otp: %w", err)
	}
	if err := s.Users.SetResetOTP(ctx, ident.ID, otp, s.clock().Add(otpTTL)); err != nil {
		return fmt.Errorf("store otp: %w", err)
	}

	if s.Mailer == nil {
		return fmt.Errorf("no mailer configured")
	}
	err = s.Mailer.SendEmail(ident.Metadata.FullName, ident.Email, "Reset Password OTP",
		fmt.Sprintf("Your OTP for password reset is: %s", otp),
		fmt.Sprintf("<h1>Your OTP for password reset is: <strong>%s</strong></h1>", otp))
	if err != nil {
		return fmt.Errorf("send reset email: %w", err)
	}

	s.notify(ident.ID, notify.PasswordRecovery)
	return nil
}

// ResetPassword sets a new password when otp matches the last code sent.
func (s *Service) ResetPassword(ctx context.Context, email, otp, newPassword string) error {
	if strings.TrimSpace(email) == "" || otp == "" {
		return invalid("Email and OTP are required.")
	}
	if len(newPassword) < MinPasswordLength {
		return invalid(msgPasswordTooShort)
	}

	ident, err := s.Users.GetIdentityByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, store.ErrNotFound) {
		return ErrInvalidOTP
	}
	if err != nil {
		return fmt.Errorf("find identity: %w", err)
	}
	if ident.OTP == "" || ident.OTP != otp || s.clock().After(ident.OTPExpiresAt) {
		return ErrInvalidOTP
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.Users.UpdatePassword(ctx, ident.ID, string(hash)); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if err := s.Users.SetResetOTP(ctx, ident.ID, "", time.Time{}); err != nil {
		utils.Log.Warn("could not clear otp", zap.String("user_id", ident.ID), zap.Error(err))
	}
	s.notify(ident.ID, notify.UserUpdated)
	return nil
}

func generateOTP() (string, error) {
	var sb strings.Builder
	for i := 0; i < 6; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		sb.WriteString(n.String())
	}
	return sb.String(), nil
}
