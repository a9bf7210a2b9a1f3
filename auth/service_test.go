package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/raushankrgupta/fitly-tryon/clientstate"
	"github.com/raushankrgupta/fitly-tryon/models"
	"github.com/raushankrgupta/fitly-tryon/notify"
	"github.com/raushankrgupta/fitly-tryon/storage"
	"github.com/raushankrgupta/fitly-tryon/store"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingNotifier) Publish(userID, event string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingNotifier) last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return ""
	}
	return r.events[len(r.events)-1]
}

type fakeMailer struct {
	to   string
	text string
}

func (m *fakeMailer) SendEmail(toName, toEmail, subject, text, html string) error {
	m.to, m.text = toEmail, text
	return nil
}

type fakeGoogle struct{ user GoogleUser }

func (f fakeGoogle) AuthCodeURL(state string) string { return "https://accounts.example/auth?state=" + state }
func (f fakeGoogle) Exchange(ctx context.Context, code string) (*GoogleUser, error) {
	u := f.user
	return &u, nil
}

func newTestService(t *testing.T) (*Service, *store.MemoryStore, *recordingNotifier) {
	t.Helper()
	objects, err := storage.NewLocalStore(t.TempDir(), "wardrobe_images", "http://localhost:8080")
	if err != nil {
		t.Fatal(err)
	}
	db := store.NewMemoryStore()
	n := &recordingNotifier{}
	return &Service{
		Users:    db,
		Prefs:    clientstate.NewPrefs(clientstate.NewMemoryStore()),
		Objects:  objects,
		Mailer:   &fakeMailer{},
		Notifier: n,
		Secret:   "test-secret",
	}, db, n
}

func TestSignUpLoginAndNamePriority(t *testing.T) {
	ctx := context.Background()
	svc, db, n := newTestService(t)

	sess, ident, err := svc.SignUp(ctx, SignUpInput{
		FullName:      "Ana Lima",
		Email:         "ana@example.com",
		Phone:         "123",
		Gender:        "female",
		Password:      "secret1",
		BaseImage:     []byte("\x89PNG fake"),
		BaseImageType: "image/png",
	})
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	if sess.Token == "" || n.last() != notify.SignedIn {
		t.Errorf("session = %+v, last event = %s", sess, n.last())
	}

	stored, err := db.GetIdentity(ctx, ident.ID)
	if err != nil {
		t.Fatal(err)
	}
	wantPrefix := "http://localhost:8080/storage/wardrobe_images/" + ident.ID + "/base_image_"
	if !strings.HasPrefix(stored.Metadata.BaseImageURL, wantPrefix) || !strings.HasSuffix(stored.Metadata.BaseImageURL, ".png") {
		t.Errorf("base image url = %q", stored.Metadata.BaseImageURL)
	}

	login, err := svc.SignIn(ctx, "ANA@example.com", "secret1")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	p, err := svc.Authenticate(ctx, login.Token)
	if err != nil || p.UserID != ident.ID {
		t.Fatalf("Authenticate = %+v, %v", p, err)
	}

	w, err := svc.CurrentUser(ctx, ident.ID)
	if err != nil {
		t.Fatal(err)
	}
	if w.Name != "Ana Lima" {
		t.Errorf("name = %q", w.Name)
	}
	if w.AvatarURL != "https://ui-avatars.com/api/?name=Ana+Lima&background=random" {
		t.Errorf("avatar = %q", w.AvatarURL)
	}

	// the profile row wins over metadata
	if err := db.UpdateProfileName(ctx, ident.ID, "Ana Profile"); err != nil {
		t.Fatal(err)
	}
	if w, _ := svc.CurrentUser(ctx, ident.ID); w.Name != "Ana Profile" {
		t.Errorf("name with profile = %q", w.Name)
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		name    string
		profile *models.Profile
		meta    string
		want    string
	}{
		{name: "profile", profile: &models.Profile{FullName: "From Profile"}, meta: "From Meta", want: "From Profile"},
		{name: "blank profile", profile: &models.Profile{FullName: "  "}, meta: "From Meta", want: "From Meta"},
		{name: "no profile", meta: "From Meta", want: "From Meta"},
		{name: "email", want: "jo.doe"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ident := &models.Identity{Email: "jo.doe@example.com", Metadata: models.UserMetadata{FullName: tt.meta}}
			if got := DisplayName(tt.profile, ident); got != tt.want {
				t.Errorf("DisplayName = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPasswordMinimum(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	_, _, err := svc.SignUp(ctx, SignUpInput{Email: "a@b.c", Password: "12345"})
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Message != "Password must be at least 6 characters." {
		t.Fatalf("SignUp short password err = %v", err)
	}

	_, ident, err := svc.SignUp(ctx, SignUpInput{Email: "a@b.c", Password: "123456"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.UpdateUser(ctx, ident.ID, UpdateUserInput{Password: "abc"}); !errors.As(err, &verr) {
		t.Errorf("UpdateUser short password err = %v", err)
	}
}

func TestSignInRejectsWrongPassword(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)
	if _, _, err := svc.SignUp(ctx, SignUpInput{Email: "a@b.c", Password: "123456"}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.SignIn(ctx, "a@b.c", "654321"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("err = %v", err)
	}
	if _, err := svc.SignIn(ctx, "nobody@b.c", "123456"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown email err = %v", err)
	}
}

func TestSignOutRevokesSession(t *testing.T) {
	ctx := context.Background()
	svc, _, n := newTestService(t)

	sess, _, err := svc.SignUp(ctx, SignUpInput{Email: "a@b.c", Password: "123456"})
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.Prefs.SetHFToken(ctx, sess.SessionID, "hf_0123456789"); err != nil {
		t.Fatal(err)
	}

	p, err := svc.Authenticate(ctx, sess.Token)
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.SignOut(ctx, *p); err != nil {
		t.Fatal(err)
	}
	if n.last() != notify.SignedOut {
		t.Errorf("last event = %s", n.last())
	}
	if _, err := svc.Authenticate(ctx, sess.Token); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("token still valid after sign out: %v", err)
	}
	if tok := svc.Prefs.HFToken(ctx, sess.SessionID); tok != "" {
		t.Errorf("hf token survived sign out: %q", tok)
	}
}

func TestUpdateUserMergesMetadataAndProfile(t *testing.T) {
	ctx := context.Background()
	svc, db, n := newTestService(t)
	_, ident, err := svc.SignUp(ctx, SignUpInput{FullName: "Old", Email: "a@b.c", Phone: "1", Password: "123456"})
	if err != nil {
		t.Fatal(err)
	}

	got, err := svc.UpdateUser(ctx, ident.ID, UpdateUserInput{FullName: "New Name", Gender: "male"})
	if err != nil {
		t.Fatal(err)
	}
	if got.Metadata.FullName != "New Name" || got.Metadata.Phone != "1" || got.Metadata.Gender != "male" {
		t.Errorf("metadata = %+v", got.Metadata)
	}
	if p, _ := db.GetProfile(ctx, ident.ID); p.FullName != "New Name" {
		t.Errorf("profile name = %q", p.FullName)
	}
	if n.last() != notify.UserUpdated {
		t.Errorf("last event = %s", n.last())
	}
}

func TestPasswordResetFlow(t *testing.T) {
	ctx := context.Background()
	svc, _, n := newTestService(t)
	mailer := svc.Mailer.(*fakeMailer)
	if _, _, err := svc.SignUp(ctx, SignUpInput{Email: "a@b.c", Password: "123456"}); err != nil {
		t.Fatal(err)
	}

	if err := svc.RequestPasswordReset(ctx, "a@b.c"); err != nil {
		t.Fatal(err)
	}
	if n.last() != notify.PasswordRecovery {
		t.Errorf("last event = %s", n.last())
	}
	otp := strings.TrimPrefix(mailer.text, "Your OTP for password reset is: ")
	if len(otp) != 6 {
		t.Fatalf("otp = %q", otp)
	}

	if err := svc.ResetPassword(ctx, "a@b.c", "000000x", "newpass"); !errors.Is(err, ErrInvalidOTP) {
		t.Errorf("wrong otp err = %v", err)
	}
	if err := svc.ResetPassword(ctx, "a@b.c", otp, "newpass"); err != nil {
		t.Fatalf("ResetPassword: %v", err)
	}
	if _, err := svc.SignIn(ctx, "a@b.c", "newpass"); err != nil {
		t.Errorf("sign in with new password: %v", err)
	}
	if err := svc.ResetPassword(ctx, "a@b.c", otp, "another"); !errors.Is(err, ErrInvalidOTP) {
		t.Errorf("otp reused: %v", err)
	}
}

func TestGoogleCallback(t *testing.T) {
	ctx := context.Background()
	svc, db, _ := newTestService(t)
	svc.Google = fakeGoogle{user: GoogleUser{Email: "g@example.com", Name: "Gee", Picture: "https://pic"}}

	if _, err := svc.GoogleCallback(ctx, "forged", "code"); !errors.Is(err, ErrOAuthState) {
		t.Errorf("forged state err = %v", err)
	}

	loginURL, err := svc.GoogleLoginURL(ctx)
	if err != nil {
		t.Fatal(err)
	}
	_, state, _ := strings.Cut(loginURL, "state=")

	sess, err := svc.GoogleCallback(ctx, state, "code")
	if err != nil {
		t.Fatalf("GoogleCallback: %v", err)
	}
	ident, err := db.GetIdentity(ctx, sess.UserID)
	if err != nil {
		t.Fatal(err)
	}
	if ident.Provider != "google" || ident.Metadata.AvatarURL != "https://pic" {
		t.Errorf("identity = %+v", ident)
	}

	if _, err := svc.GoogleCallback(ctx, state, "code"); !errors.Is(err, ErrOAuthState) {
		t.Errorf("state reused: %v", err)
	}
}

func TestUploadAvatarBecomesWidgetAvatar(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)
	_, ident, err := svc.SignUp(ctx, SignUpInput{FullName: "Ana", Email: "ana@x.io", Password: "123456"})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.UploadAvatar(ctx, ident.ID, nil, "image/png"); err == nil {
		t.Fatal("empty avatar accepted")
	}
	url, err := svc.UploadAvatar(ctx, ident.ID, []byte("\x89PNG"), "image/png")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(url, "/storage/wardrobe_images/"+ident.ID+"/avatar_") {
		t.Errorf("avatar url = %q", url)
	}

	w, err := svc.CurrentUser(ctx, ident.ID)
	if err != nil {
		t.Fatal(err)
	}
	if w.AvatarURL != url {
		t.Errorf("widget avatar = %q, want %q", w.AvatarURL, url)
	}
}
