package api

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/raushankrgupta/fitly-tryon/auth"
	"github.com/raushankrgupta/fitly-tryon/utils"
)

const maxUploadBytes = 10 << 20

// LoginRequest represents the payload for user login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ForgotPasswordRequest represents the payload for forgot password
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest represents the payload for resetting password
type ResetPasswordRequest struct {
	Email       string `json:"email"`
	OTP         string `json:"otp"`
	NewPassword string `json:"new_password"`
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, sess *auth.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   h.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
	})
}

// readUpload returns the named multipart file, or nil when none was sent.
func readUpload(r *http.Request, field string) ([]byte, string, error) {
	file, header, err := r.FormFile(field)
	if err == http.ErrMissingFile {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", err
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		return nil, "", err
	}
	return data, header.Header.Get("Content-Type"), nil
}

// SignupHandler handles user registration. The form is multipart so the
// optional base image can travel with it.
func (h *Handler) SignupHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer utils.FlushLog(&logMessageBuilder)
	utils.AddToLogMessage(&logMessageBuilder, "[Signup API]")

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil && err != http.ErrNotMultipart {
		utils.RespondError(w, &logMessageBuilder, "Error parsing form data", http.StatusBadRequest)
		return
	}

	in := auth.SignUpInput{
		FullName: r.FormValue("fullname"),
		Email:    r.FormValue("email"),
		Phone:    r.FormValue("phone"),
		Gender:   r.FormValue("gender"),
		Password: r.FormValue("password"),
	}
	if r.MultipartForm != nil {
		data, contentType, err := readUpload(r, "base_image")
		if err != nil {
			utils.RespondError(w, &logMessageBuilder, "Error reading base image", http.StatusBadRequest)
			return
		}
		in.BaseImage, in.BaseImageType = data, contentType
	}

	sess, ident, err := h.Auth.SignUp(r.Context(), in)
	if err != nil {
		respondErr(w, &logMessageBuilder, err)
		return
	}
	utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("User created: %s", ident.ID))

	h.setSessionCookie(w, sess)
	utils.RespondJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Account created successfully!",
		"session": sess,
	})
}

// LoginHandler handles email and password sign in
func (h *Handler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer utils.FlushLog(&logMessageBuilder)
	utils.AddToLogMessage(&logMessageBuilder, "[Login API]")

	var req LoginRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondError(w, &logMessageBuilder, "Invalid request body", http.StatusBadRequest)
		return
	}

	sess, err := h.Auth.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		respondErr(w, &logMessageBuilder, err)
		return
	}
	utils.AddToLogMessage(&logMessageBuilder, "Login successful")

	h.setSessionCookie(w, sess)
	utils.RespondJSON(w, http.StatusOK, sess)
}

func (h *Handler) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer utils.FlushLog(&logMessageBuilder)
	utils.AddToLogMessage(&logMessageBuilder, "[Logout API]")

	p := principalFrom(r.Context())
	if err := h.Auth.SignOut(r.Context(), *p); err != nil {
		respondErr(w, &logMessageBuilder, err)
		return
	}
	h.TryOn.Forget(p.SessionID)

	clearSessionCookie(w)
	utils.RespondJSON(w, http.StatusOK, map[string]string{"message": "Signed out"})
}

// MeHandler returns the identity widget plus whether this is the session's
// first visit, which the page greets once.
func (h *Handler) MeHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer utils.FlushLog(&logMessageBuilder)
	utils.AddToLogMessage(&logMessageBuilder, "[Me API]")

	p := principalFrom(r.Context())
	widget, err := h.Auth.CurrentUser(r.Context(), p.UserID)
	if err != nil {
		respondErr(w, &logMessageBuilder, err)
		return
	}
	first, err := h.Auth.Prefs.MarkWelcomed(r.Context(), p.SessionID)
	if err != nil {
		utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("welcome flag: %v", err))
	}

	utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"user":          widget,
		"first_visit":   first,
		"welcome_title": "Welcome, " + widget.Name + "!",
	})
}

func (h *Handler) UpdateUserHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer utils.FlushLog(&logMessageBuilder)
	utils.AddToLogMessage(&logMessageBuilder, "[Update User API]")

	var req auth.UpdateUserInput
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondError(w, &logMessageBuilder, "Invalid request body", http.StatusBadRequest)
		return
	}

	userID, _ := GetUserIDFromContext(r.Context())
	ident, err := h.Auth.UpdateUser(r.Context(), userID, req)
	if err != nil {
		respondErr(w, &logMessageBuilder, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, ident)
}

func (h *Handler) AvatarHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer utils.FlushLog(&logMessageBuilder)
	utils.AddToLogMessage(&logMessageBuilder, "[Avatar API]")

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		utils.RespondError(w, &logMessageBuilder, "Error parsing form data", http.StatusBadRequest)
		return
	}
	data, contentType, err := readUpload(r, "file")
	if err != nil || len(data) == 0 {
		utils.RespondError(w, &logMessageBuilder, "Please choose an image file.", http.StatusBadRequest)
		return
	}

	userID, _ := GetUserIDFromContext(r.Context())
	url, err := h.Auth.UploadAvatar(r.Context(), userID, data, contentType)
	if err != nil {
		respondErr(w, &logMessageBuilder, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]string{"avatar_url": url})
}

// ForgotPasswordHandler emails a reset OTP
func (h *Handler) ForgotPasswordHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer utils.FlushLog(&logMessageBuilder)
	utils.AddToLogMessage(&logMessageBuilder, "[Forgot Password API]")

	var req ForgotPasswordRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondError(w, &logMessageBuilder, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.Auth.RequestPasswordReset(r.Context(), req.Email); err != nil {
		respondErr(w, &logMessageBuilder, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]string{"message": "OTP sent to your email"})
}

// ResetPasswordHandler sets a new password after OTP verification
func (h *Handler) ResetPasswordHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer utils.FlushLog(&logMessageBuilder)
	utils.AddToLogMessage(&logMessageBuilder, "[Reset Password API]")

	var req ResetPasswordRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondError(w, &logMessageBuilder, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.Auth.ResetPassword(r.Context(), req.Email, req.OTP, req.NewPassword); err != nil {
		respondErr(w, &logMessageBuilder, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]string{"message": "Password reset successfully"})
}

func (h *Handler) GoogleLoginHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer utils.FlushLog(&logMessageBuilder)
	utils.AddToLogMessage(&logMessageBuilder, "[Google Login API]")

	url, err := h.Auth.GoogleLoginURL(r.Context())
	if err != nil {
		respondErr(w, &logMessageBuilder, err)
		return
	}
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

// GoogleCallbackHandler finishes Google login and lands on the try-on page.
func (h *Handler) GoogleCallbackHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer utils.FlushLog(&logMessageBuilder)
	utils.AddToLogMessage(&logMessageBuilder, "[Google Callback API]")

	sess, err := h.Auth.GoogleCallback(r.Context(), r.FormValue("state"), r.FormValue("code"))
	if err != nil {
		respondErr(w, &logMessageBuilder, err)
		return
	}
	utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Google login: %s", sess.UserID))

	h.setSessionCookie(w, sess)
	http.Redirect(w, r, "/", http.StatusFound)
}

// EventsHandler streams auth-state changes over a websocket.
func (h *Handler) EventsHandler(w http.ResponseWriter, r *http.Request) {
	userID, _ := GetUserIDFromContext(r.Context())
	h.Hub.ServeWS(w, r, userID)
}
