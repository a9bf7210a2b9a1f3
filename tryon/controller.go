// Package tryon runs the try-on page flows: acquiring the base and garment
// images, preset combos, remote try-on, recommendations and saving results.
package tryon

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/raushankrgupta/fitly-tryon/clientstate"
	"github.com/raushankrgupta/fitly-tryon/compositor"
	"github.com/raushankrgupta/fitly-tryon/inference"
	"github.com/raushankrgupta/fitly-tryon/models"
	"github.com/raushankrgupta/fitly-tryon/storage"
	"github.com/raushankrgupta/fitly-tryon/utils"
	"github.com/raushankrgupta/fitly-tryon/wardrobe"
)

// Profiles reads and writes the user's default base image.
type Profiles interface {
	DefaultBaseImage(ctx context.Context, userID string) (string, error)
	SetDefaultBaseImage(ctx context.Context, userID, url string) error
}

// GarmentFinder resolves a product page to its main image URL.
type GarmentFinder interface {
	FindGarmentImage(ctx context.Context, productURL string) (string, error)
}

// Saver persists a flattened outfit.
type Saver interface {
	Save(ctx context.Context, req wardrobe.SaveRequest) (*models.Outfit, error)
}

type Session struct {
	UserID    string
	SessionID string
}

// View is what every controller operation hands back to the page.
type View struct {
	Snapshot
	Preview []compositor.Layer `json:"preview"`
	APIURL  string             `json:"api_url"`
	Retried bool               `json:"retried,omitempty"`
}

type Controller struct {
	Prefs         *clientstate.Prefs
	Profiles      Profiles
	Objects       storage.ObjectStore
	Loader        compositor.Loader
	Inference     *inference.Client
	Recommender   *inference.Recommender
	Catalog       inference.Catalog
	Garments      GarmentFinder
	Wardrobe      Saver
	DefaultAPIURL string

	locks sync.Map
	now   func() time.Time
}

func (c *Controller) clock() time.Time {
	if c.now != nil {
		return c.now()
	}
	return time.Now()
}

// lock serializes operations of one session.
func (c *Controller) lock(sessionID string) func() {
	v, _ := c.locks.LoadOrStore(sessionID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// Forget drops the session's lock once the session is closed.
func (c *Controller) Forget(sessionID string) {
	c.locks.Delete(sessionID)
}

func (c *Controller) apiURL(ctx context.Context, s Session) string {
	return c.Prefs.APIURL(ctx, s.UserID, c.DefaultAPIURL)
}

func (c *Controller) load(ctx context.Context, s Session) (*State, error) {
	raw, err := c.Prefs.LoadTryOnState(ctx, s.SessionID)
	if err != nil {
		return nil, fmt.Errorf("load try-on state: %w", err)
	}
	st, err := decodeState(raw)
	if err != nil {
		utils.Log.Warn("discarding unreadable try-on state", zap.String("session_id", s.SessionID), zap.Error(err))
		return newState(), nil
	}
	return st, nil
}

func (c *Controller) store(ctx context.Context, s Session, st *State) error {
	if !st.dirty {
		return nil
	}
	raw, err := st.encode()
	if err != nil {
		return err
	}
	if err := c.Prefs.SaveTryOnState(ctx, s.SessionID, raw); err != nil {
		return fmt.Errorf("save try-on state: %w", err)
	}
	st.dirty = false
	return nil
}

// update runs fn against the session's state and writes back whatever fn
// changed, even when fn fails.
func (c *Controller) update(ctx context.Context, s Session, fn func(*State) error) (*View, error) {
	unlock := c.lock(s.SessionID)
	defer unlock()

	st, err := c.load(ctx, s)
	if err != nil {
		return nil, err
	}
	fnErr := fn(st)
	if err := c.store(ctx, s, st); err != nil {
		return nil, err
	}
	if fnErr != nil {
		return nil, fnErr
	}
	return c.view(ctx, s, st), nil
}

func (c *Controller) view(ctx context.Context, s Session, st *State) *View {
	return &View{
		Snapshot: st.Snapshot(),
		Preview:  compositor.PreviewStack(st.Base(), st.Garment()),
		APIURL:   c.apiURL(ctx, s),
	}
}

// Load starts the page: a fresh state seeded with the cached or default
// base image, then with the wardrobe retry handoff if one is waiting.
func (c *Controller) Load(ctx context.Context, s Session) (*View, error) {
	retried := false
	v, err := c.update(ctx, s, func(st *State) error {
		*st = *newState()
		st.dirty = true

		if cached := c.Prefs.CachedBaseImage(ctx, s.UserID); cached != "" {
			st.setBase(cached)
		} else if c.Profiles != nil {
			def, err := c.Profiles.DefaultBaseImage(ctx, s.UserID)
			if err != nil {
				utils.Log.Warn("could not read default base image", zap.String("user_id", s.UserID), zap.Error(err))
			} else if def != "" {
				st.setBase(def)
				c.Prefs.CacheBaseImage(ctx, s.UserID, def)
			}
		}

		r, err := c.Prefs.TakeRetry(ctx, s.UserID)
		if err != nil {
			utils.Log.Warn("could not read retry outfit", zap.String("user_id", s.UserID), zap.Error(err))
			return nil
		}
		if r != nil {
			st.applyRetry(*r)
			retried = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	v.Retried = retried
	return v, nil
}

// State returns the current view without changing anything.
func (c *Controller) State(ctx context.Context, s Session) (*View, error) {
	return c.update(ctx, s, func(*State) error { return nil })
}

type BaseKind int

const (
	BaseUpload BaseKind = iota
	BaseCamera
	BaseDefault
)

// BaseSource is where a base image comes from. Upload uses Data and
// ContentType; Camera uses Snapshot (a data URI) and Denied.
type BaseSource struct {
	Kind        BaseKind
	Data        []byte
	ContentType string
	Snapshot    string
	Denied      bool
}

// AcquireBase sets the person photo and mirrors it into the user's cache.
func (c *Controller) AcquireBase(ctx context.Context, s Session, src BaseSource) (*View, error) {
	var ref string
	switch src.Kind {
	case BaseUpload:
		if len(src.Data) == 0 {
			return nil, invalid(msgNoImage)
		}
		ref = utils.EncodeDataURI(imageContentType(src.Data, src.ContentType), src.Data)
	case BaseCamera:
		if src.Denied || !utils.IsDataURI(src.Snapshot) {
			return nil, ErrCameraUnavailable
		}
		ref = src.Snapshot
	case BaseDefault:
		def, err := c.Profiles.DefaultBaseImage(ctx, s.UserID)
		if err != nil {
			return nil, fmt.Errorf("read default base image: %w", err)
		}
		if def == "" {
			return nil, ErrNoDefaultImage
		}
		ref = def
	default:
		return nil, invalid(msgNoImage)
	}

	return c.update(ctx, s, func(st *State) error {
		st.setBase(ref)
		c.Prefs.CacheBaseImage(ctx, s.UserID, ref)
		return nil
	})
}

// SaveDefaultBase stores an uploaded photo as the user's default base image
// and makes it the current base.
func (c *Controller) SaveDefaultBase(ctx context.Context, s Session, data []byte, contentType string) (*View, error) {
	if len(data) == 0 {
		return nil, invalid(msgNoImage)
	}
	key := fmt.Sprintf("%s/base_image_%d.png", s.UserID, c.clock().UnixMilli())
	if err := c.Objects.Upload(ctx, key, data, imageContentType(data, contentType)); err != nil {
		return nil, fmt.Errorf("upload base image: %w", err)
	}
	publicURL := c.Objects.PublicURL(key)
	if err := c.Profiles.SetDefaultBaseImage(ctx, s.UserID, publicURL); err != nil {
		return nil, err
	}

	return c.update(ctx, s, func(st *State) error {
		st.setBase(publicURL)
		c.Prefs.CacheBaseImage(ctx, s.UserID, publicURL)
		return nil
	})
}

type GarmentKind int

const (
	GarmentUpload GarmentKind = iota
	GarmentURL
	GarmentProductPage
)

type GarmentSource struct {
	Kind        GarmentKind
	Data        []byte
	ContentType string
	URL         string
	// Accessory marks an upload from the accessory picker.
	Accessory bool
}

// AcquireGarment replaces the garment overlay.
func (c *Controller) AcquireGarment(ctx context.Context, s Session, src GarmentSource) (*View, error) {
	var ref string
	switch src.Kind {
	case GarmentUpload:
		if len(src.Data) == 0 {
			return nil, invalid(msgNoImage)
		}
		ref = utils.EncodeDataURI(imageContentType(src.Data, src.ContentType), src.Data)
	case GarmentURL:
		ref = strings.TrimSpace(src.URL)
		if ref == "" {
			return nil, invalid(msgNoGarment)
		}
	case GarmentProductPage:
		if !isHTTPURL(src.URL) {
			return nil, invalid(msgInvalidAPIURL)
		}
		if c.Garments == nil {
			return nil, invalid(msgNoProductImage)
		}
		img, err := c.Garments.FindGarmentImage(ctx, strings.TrimSpace(src.URL))
		if err != nil {
			return nil, fmt.Errorf("find garment image: %w", err)
		}
		if img == "" {
			return nil, invalid(msgNoProductImage)
		}
		ref = img
	default:
		return nil, invalid(msgNoGarment)
	}

	return c.update(ctx, s, func(st *State) error {
		st.setGarment(ref, src.Kind == GarmentUpload && src.Accessory)
		return nil
	})
}

// ApplyCombo dresses the base in a preset combo: the server's version when
// it answers, the bundled catalog otherwise.
func (c *Controller) ApplyCombo(ctx context.Context, s Session, style string) (*View, error) {
	style = strings.ToLower(strings.TrimSpace(style))
	return c.update(ctx, s, func(st *State) error {
		if st.Base() == "" {
			return ErrBaseRequired
		}

		var combo models.Combo
		remote, err := c.Inference.Combo(ctx, c.apiURL(ctx, s), style)
		if err == nil {
			combo = *remote
		} else {
			utils.Log.Info("combo server unavailable, using bundled catalog", zap.String("style", style), zap.Error(err))
			combo, err = c.Catalog.Lookup(style)
			if errors.Is(err, inference.ErrUnknownStyle) {
				return invalid(msgUnknownCombo)
			}
			if err != nil {
				return err
			}
		}

		st.setStyle(style)
		st.applyCombo(combo)
		return nil
	})
}

// Preview returns the overlay stack for the current state.
func (c *Controller) Preview(ctx context.Context, s Session) ([]compositor.Layer, error) {
	v, err := c.State(ctx, s)
	if err != nil {
		return nil, err
	}
	return v.Preview, nil
}

// RenderPreview rasterizes the overlay stack to PNG.
func (c *Controller) RenderPreview(ctx context.Context, s Session) ([]byte, error) {
	stack, err := c.Preview(ctx, s)
	if err != nil {
		return nil, err
	}
	if len(stack) == 0 {
		return nil, invalid(msgNoBase)
	}
	return compositor.RenderPreview(ctx, c.Loader, stack)
}

// TryOn sends the base and garment to the inference server. When the server
// asks for a HuggingFace token the request is parked until SubmitToken.
func (c *Controller) TryOn(ctx context.Context, s Session, category string) (*View, error) {
	return c.update(ctx, s, func(st *State) error {
		return c.runTryOn(ctx, s, st, category)
	})
}

func (c *Controller) runTryOn(ctx context.Context, s Session, st *State, category string) error {
	if st.Base() == "" {
		return invalid(msgNoBase)
	}
	if st.Garment() == "" {
		return invalid(msgNoGarment)
	}

	person, personType, err := c.Loader.Load(ctx, st.Base())
	if err != nil {
		utils.TryOnRequests.WithLabelValues("error").Inc()
		return fmt.Errorf("load base image: %w", err)
	}
	garment, garmentType, err := c.Loader.Load(ctx, st.Garment())
	if err != nil {
		utils.TryOnRequests.WithLabelValues("error").Inc()
		return fmt.Errorf("load garment image: %w", err)
	}

	resp, err := c.Inference.TryOn(ctx, c.apiURL(ctx, s), inference.TryOnRequest{
		Person:             person,
		PersonContentType:  personType,
		Garment:            garment,
		GarmentContentType: garmentType,
		Category:           category,
		HFToken:            c.Prefs.HFToken(ctx, s.SessionID),
	})
	var tokenErr *inference.TokenRequiredError
	switch {
	case errors.As(err, &tokenErr):
		utils.TryOnRequests.WithLabelValues("token_required").Inc()
		st.setPending(category)
		return err
	case err != nil:
		utils.TryOnRequests.WithLabelValues("error").Inc()
		return err
	}

	utils.TryOnRequests.WithLabelValues("success").Inc()
	st.clearPending()
	st.setResult(resp.ResultURL())
	return nil
}

// SubmitToken stores a HuggingFace token for the session and retries the
// parked try-on once.
func (c *Controller) SubmitToken(ctx context.Context, s Session, token string) (*View, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, invalid(msgTokenEmpty)
	}
	if !strings.HasPrefix(token, tokenPrefix) || len(token) < tokenMinimumLength {
		return nil, invalid(msgTokenFormat)
	}

	return c.update(ctx, s, func(st *State) error {
		if err := c.Prefs.SetHFToken(ctx, s.SessionID, token); err != nil {
			return fmt.Errorf("store hf token: %w", err)
		}
		pending, category := st.Pending()
		if !pending {
			return nil
		}
		// A second token-required answer parks the request again for the
		// next submission; it is never retried from here.
		st.clearPending()
		return c.runTryOn(ctx, s, st, category)
	})
}

// Recommend asks for a styling suggestion for the current look.
func (c *Controller) Recommend(ctx context.Context, s Session) (*inference.Recommendation, error) {
	unlock := c.lock(s.SessionID)
	st, err := c.load(ctx, s)
	unlock()
	if err != nil {
		return nil, err
	}
	if st.Base() == "" || st.Result() == "" {
		return nil, invalid(msgRecommendFirst)
	}

	req := inference.RecommendRequest{ClothingType: st.ClothingType(), ImageData: st.Base()}
	if style := st.Style(); style != "" {
		req.Occasion = &style
	}
	rec := c.Recommender.Recommend(ctx, c.apiURL(ctx, s), req)
	return &rec, nil
}

// SaveInput describes the result image as the page displayed it.
type SaveInput struct {
	Style         string `json:"style"`
	AccessoryName string `json:"accessory_name"`
	Width         int    `json:"width"`
	Height        int    `json:"height"`
}

// Save flattens the try-on result and stores it in the wardrobe.
func (c *Controller) Save(ctx context.Context, s Session, in SaveInput) (*models.Outfit, error) {
	unlock := c.lock(s.SessionID)
	defer unlock()

	st, err := c.load(ctx, s)
	if err != nil {
		return nil, err
	}
	if st.Result() == "" {
		return nil, invalid(msgSaveFirst)
	}
	style := strings.TrimSpace(in.Style)
	if style == "" {
		style = st.Style()
	}
	if style == "" {
		return nil, invalid(msgNoStyle)
	}
	if !displaySize(in.Width) || !displaySize(in.Height) {
		return nil, invalid(msgBadSize)
	}

	flat, err := compositor.Flatten(ctx, c.Loader, compositor.Scene{
		Width:  in.Width,
		Height: in.Height,
		Layers: []compositor.Layer{{Src: st.Result(), Width: in.Width, Height: in.Height}},
	})
	if err != nil {
		return nil, fmt.Errorf("flatten result: %w", err)
	}

	return c.Wardrobe.Save(ctx, wardrobe.SaveRequest{
		UserID:        s.UserID,
		Flattened:     flat,
		GarmentRef:    st.Garment(),
		Style:         style,
		AccessoryName: in.AccessoryName,
		Accessories:   st.Accessories().Present(),
	})
}

// SetAPIURL points the user's try-on calls at another inference server.
// An empty url restores the default.
func (c *Controller) SetAPIURL(ctx context.Context, s Session, raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw != "" && !isHTTPURL(raw) {
		return "", invalid(msgInvalidAPIURL)
	}
	if err := c.Prefs.SetAPIURL(ctx, s.UserID, raw); err != nil {
		return "", fmt.Errorf("store api url: %w", err)
	}
	return c.apiURL(ctx, s), nil
}

func displaySize(n int) bool {
	return n >= 0 && n <= compositor.MaxCanvasSide
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func imageContentType(data []byte, declared string) string {
	if strings.HasPrefix(declared, "image/") {
		return declared
	}
	return http.DetectContentType(data)
}
