package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/raushankrgupta/fitly-tryon/auth"
	"github.com/raushankrgupta/fitly-tryon/compositor"
	"github.com/raushankrgupta/fitly-tryon/inference"
	"github.com/raushankrgupta/fitly-tryon/store"
	"github.com/raushankrgupta/fitly-tryon/tryon"
	"github.com/raushankrgupta/fitly-tryon/utils"
	"github.com/raushankrgupta/fitly-tryon/wardrobe"
)

// respondErr maps a service error to its HTTP answer and logs the cause.
func respondErr(w http.ResponseWriter, log *strings.Builder, err error) {
	var (
		authInvalid  *auth.ValidationError
		tryonInvalid *tryon.ValidationError
		tokenErr     *inference.TokenRequiredError
		remoteErr    *inference.RemoteError
	)

	switch {
	case errors.As(err, &tokenErr):
		// the page opens its token dialog on this answer
		utils.AddToLogMessage(log, "HF token required")
		utils.RespondJSON(w, http.StatusOK, map[string]string{
			"status":     "error",
			"error_code": inference.ErrorCodeTokenRequired,
			"message":    tokenErr.Message,
		})
	case errors.As(err, &authInvalid):
		utils.RespondError(w, log, authInvalid.Message, http.StatusBadRequest)
	case errors.As(err, &tryonInvalid):
		utils.RespondError(w, log, tryonInvalid.Message, http.StatusBadRequest)
	case errors.Is(err, auth.ErrUnauthorized):
		utils.RespondError(w, log, "Unauthorized", http.StatusUnauthorized)
	case errors.Is(err, auth.ErrInvalidCredentials):
		utils.RespondError(w, log, "Invalid email or password", http.StatusUnauthorized)
	case errors.Is(err, auth.ErrInvalidOTP):
		utils.RespondError(w, log, "Invalid or expired OTP", http.StatusBadRequest)
	case errors.Is(err, auth.ErrOAuthState):
		utils.RespondError(w, log, "Invalid OAuth state", http.StatusBadRequest)
	case errors.Is(err, auth.ErrOAuthDisabled):
		utils.RespondError(w, log, "Google login is not configured", http.StatusNotImplemented)
	case errors.Is(err, store.ErrEmailTaken):
		utils.RespondError(w, log, "User already exists", http.StatusConflict)
	case errors.Is(err, wardrobe.ErrWriteBlocked):
		utils.RespondError(w, log, "Database record was not changed: the write was blocked by an authorization policy.", http.StatusForbidden)
	case errors.Is(err, wardrobe.ErrOutfitNotFound), errors.Is(err, store.ErrNotFound):
		utils.RespondError(w, log, "Not found", http.StatusNotFound)
	case errors.Is(err, compositor.ErrNoResult), errors.Is(err, compositor.ErrEmptyCanvas), errors.Is(err, compositor.ErrCanvasTooLarge):
		utils.RespondError(w, log, err.Error(), http.StatusBadRequest)
	case errors.Is(err, utils.ErrPrivateHost), errors.Is(err, utils.ErrImageTooLarge):
		utils.RespondError(w, log, "That image URL can't be used.", http.StatusBadRequest)
	case errors.As(err, &remoteErr):
		utils.RespondError(w, log, remoteErr.Message, http.StatusBadGateway)
	case errors.Is(err, inference.ErrServerOffline):
		utils.RespondError(w, log, "The AI server returned an invalid response (it might be offline, resetting, or crashing). Make sure your Colab cell is running and Ngrok is active.", http.StatusBadGateway)
	default:
		utils.AddToLogMessage(log, "Error: "+err.Error())
		utils.RespondError(w, log, "Internal server error", http.StatusInternalServerError)
	}
}
