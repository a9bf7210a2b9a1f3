package clientstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/raushankrgupta/fitly-tryon/models"
	"github.com/raushankrgupta/fitly-tryon/utils"
	"go.uber.org/zap"
)

const oauthStateTTL = 10 * time.Minute

// Prefs is the typed view over a Store. User-scoped ("local") keys live until
// removed; session-scoped keys expire with the session.
type Prefs struct {
	kv         Store
	sessionTTL time.Duration
}

func NewPrefs(kv Store) *Prefs {
	return &Prefs{kv: kv, sessionTTL: utils.SessionTTL}
}

func localKey(userID, name string) string      { return "local:" + userID + ":" + name }
func sessionKey(sessionID, name string) string { return "session:" + sessionID + ":" + name }

// APIURL returns the user's inference server, or fallback when unset.
func (p *Prefs) APIURL(ctx context.Context, userID, fallback string) string {
	v, err := p.kv.Get(ctx, localKey(userID, "api_url"))
	if err != nil || v == "" {
		return fallback
	}
	return v
}

// SetAPIURL stores the inference server base URL without its trailing slash.
// An empty url resets to the default.
func (p *Prefs) SetAPIURL(ctx context.Context, userID, url string) error {
	url = strings.TrimRight(strings.TrimSpace(url), "/")
	if url == "" {
		return p.kv.Delete(ctx, localKey(userID, "api_url"))
	}
	return p.kv.Set(ctx, localKey(userID, "api_url"), url, 0)
}

// CacheBaseImage mirrors the latest base image. It is best effort: a failure
// (quota, connectivity) is logged and otherwise ignored.
func (p *Prefs) CacheBaseImage(ctx context.Context, userID, ref string) {
	if err := p.kv.Set(ctx, localKey(userID, "cached_base_image"), ref, 0); err != nil {
		utils.Log.Warn("could not cache base image", zap.String("user_id", userID), zap.Error(err))
	}
}

func (p *Prefs) CachedBaseImage(ctx context.Context, userID string) string {
	v, err := p.kv.Get(ctx, localKey(userID, "cached_base_image"))
	if err != nil {
		return ""
	}
	return v
}

// PutRetry writes the one-shot "retry this outfit" handoff.
func (p *Prefs) PutRetry(ctx context.Context, userID string, r models.RetryOutfit) error {
	b, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode retry outfit: %w", err)
	}
	return p.kv.Set(ctx, localKey(userID, "retryOutfit"), string(b), 0)
}

// TakeRetry consumes the handoff. It returns nil when none is waiting; the
// slot is removed even if its payload can't be decoded.
func (p *Prefs) TakeRetry(ctx context.Context, userID string) (*models.RetryOutfit, error) {
	v, err := p.kv.Take(ctx, localKey(userID, "retryOutfit"))
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var r models.RetryOutfit
	if err := json.Unmarshal([]byte(v), &r); err != nil {
		utils.Log.Warn("discarding malformed retry outfit", zap.String("user_id", userID), zap.Error(err))
		return nil, nil
	}
	return &r, nil
}

func (p *Prefs) SetHFToken(ctx context.Context, sessionID, token string) error {
	return p.kv.Set(ctx, sessionKey(sessionID, "hf_token"), token, p.sessionTTL)
}

func (p *Prefs) HFToken(ctx context.Context, sessionID string) string {
	v, err := p.kv.Get(ctx, sessionKey(sessionID, "hf_token"))
	if err != nil {
		return ""
	}
	return v
}

// MarkWelcomed sets the session's welcome flag and reports whether this was
// the first time.
func (p *Prefs) MarkWelcomed(ctx context.Context, sessionID string) (bool, error) {
	key := sessionKey(sessionID, "welcomed")
	if _, err := p.kv.Get(ctx, key); err == nil {
		return false, nil
	} else if !errors.Is(err, ErrNotFound) {
		return false, err
	}
	if err := p.kv.Set(ctx, key, "true", p.sessionTTL); err != nil {
		return false, err
	}
	return true, nil
}

func (p *Prefs) LoadTryOnState(ctx context.Context, sessionID string) (string, error) {
	v, err := p.kv.Get(ctx, sessionKey(sessionID, "tryon_state"))
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	return v, err
}

func (p *Prefs) SaveTryOnState(ctx context.Context, sessionID, state string) error {
	return p.kv.Set(ctx, sessionKey(sessionID, "tryon_state"), state, p.sessionTTL)
}

// OpenSession marks a session live for the session lifetime.
func (p *Prefs) OpenSession(ctx context.Context, sessionID, userID string) error {
	return p.kv.Set(ctx, sessionKey(sessionID, "active"), userID, p.sessionTTL)
}

// SessionActive reports whether the session belongs to userID and has not been closed.
func (p *Prefs) SessionActive(ctx context.Context, sessionID, userID string) bool {
	v, err := p.kv.Get(ctx, sessionKey(sessionID, "active"))
	return err == nil && v == userID
}

// ClearSession ends a session and drops everything scoped to it, plus the
// user's cached base image.
func (p *Prefs) ClearSession(ctx context.Context, userID, sessionID string) error {
	return p.kv.Delete(ctx,
		sessionKey(sessionID, "active"),
		sessionKey(sessionID, "welcomed"),
		sessionKey(sessionID, "hf_token"),
		sessionKey(sessionID, "tryon_state"),
		localKey(userID, "cached_base_image"),
	)
}

func (p *Prefs) PutOAuthState(ctx context.Context, state string) error {
	return p.kv.Set(ctx, "oauth:"+state, "1", oauthStateTTL)
}

// TakeOAuthState reports whether state was issued, consuming it.
func (p *Prefs) TakeOAuthState(ctx context.Context, state string) bool {
	_, err := p.kv.Take(ctx, "oauth:"+state)
	return err == nil
}
