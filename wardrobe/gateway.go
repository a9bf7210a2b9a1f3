// Package wardrobe saves try-on results and serves the saved-outfit gallery.
package wardrobe

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/raushankrgupta/fitly-tryon/clientstate"
	"github.com/raushankrgupta/fitly-tryon/events"
	"github.com/raushankrgupta/fitly-tryon/models"
	"github.com/raushankrgupta/fitly-tryon/storage"
	"github.com/raushankrgupta/fitly-tryon/store"
	"github.com/raushankrgupta/fitly-tryon/utils"
)

var (
	ErrOutfitNotFound = errors.New("outfit not found")
	// ErrWriteBlocked means the store accepted a write but changed no rows,
	// which is how an authorization policy rejects it.
	ErrWriteBlocked = errors.New("write was silently blocked by an authorization policy")
)

// Gateway persists outfits: image uploads to the object store, records to
// the outfit table.
type Gateway struct {
	Outfits store.OutfitStore
	Objects storage.ObjectStore
	Prefs   *clientstate.Prefs
	Events  events.Publisher

	now func() time.Time
}

func (g *Gateway) clock() time.Time {
	if g.now != nil {
		return g.now()
	}
	return time.Now()
}

func (g *Gateway) publish(ctx context.Context, key string, o *models.Outfit) {
	if g.Events == nil {
		return
	}
	evt := events.OutfitEvent{OutfitID: o.ID, UserID: o.UserID, Style: o.Style, ImageURL: o.ImageURL, At: g.clock().UTC()}
	if err := g.Events.Publish(ctx, key, evt); err != nil {
		utils.Log.Warn("publish outfit event", zap.String("key", key), zap.Error(err))
	}
}

type SaveRequest struct {
	UserID        string
	Flattened     []byte
	GarmentRef    string
	Style         string
	AccessoryName string
	Accessories   models.Accessories
}

// Save uploads the flattened image, uploads the garment when it is inline
// data, then inserts the record. The first failure stops the sequence;
// earlier uploads are not rolled back.
func (g *Gateway) Save(ctx context.Context, req SaveRequest) (*models.Outfit, error) {
	now := g.clock()
	ms := now.UnixMilli()

	imageKey := fmt.Sprintf("%s/wardrobe/outfit_%d.png", req.UserID, ms)
	if err := g.Objects.Upload(ctx, imageKey, req.Flattened, "image/png"); err != nil {
		return nil, fmt.Errorf("upload outfit image: %w", err)
	}

	clothURL := req.GarmentRef
	if utils.IsDataURI(req.GarmentRef) {
		data, contentType, err := utils.DecodeDataURI(req.GarmentRef)
		if err != nil {
			return nil, fmt.Errorf("decode garment: %w", err)
		}
		clothKey := fmt.Sprintf("%s/cloths/%d.png", req.UserID, ms)
		if err := g.Objects.Upload(ctx, clothKey, data, contentType); err != nil {
			return nil, fmt.Errorf("upload garment: %w", err)
		}
		clothURL = g.Objects.PublicURL(clothKey)
	}

	accessories := req.Accessories.Merge(nil)
	if name := strings.TrimSpace(req.AccessoryName); name != "" {
		accessories = models.Accessories{name: true}.Merge(req.Accessories)
	}

	outfit := &models.Outfit{
		ID:          uuid.NewString(),
		UserID:      req.UserID,
		ImageURL:    g.Objects.PublicURL(imageKey),
		ClothURL:    clothURL,
		Style:       req.Style,
		Accessories: accessories,
		CreatedAt:   now,
	}
	if err := g.Outfits.InsertOutfit(ctx, outfit); err != nil {
		return nil, fmt.Errorf("insert outfit: %w", err)
	}

	utils.OutfitsSaved.Inc()
	g.publish(ctx, events.OutfitSaved, outfit)
	return outfit, nil
}

// RenameRequest holds the new labels. Empty fields keep their current value.
type RenameRequest struct {
	Style          string `json:"style"`
	FinalLookName  string `json:"final_look_name"`
	AttireUsedName string `json:"attire_used_name"`
}

// Rename merges the labels into the record's accessories and updates its
// style. If the accessories write fails the labels go to their own columns.
func (g *Gateway) Rename(ctx context.Context, userID, id string, req RenameRequest) (*Item, error) {
	current, err := g.get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	item := Normalize(*current)

	style := firstNonEmpty(req.Style, item.Style)
	finalLook := firstNonEmpty(req.FinalLookName, item.FinalLookName)
	attire := firstNonEmpty(req.AttireUsedName, item.AttireUsedName)

	accessories := item.Accessories.Merge(models.Accessories{
		models.FinalLookNameKey:  finalLook,
		models.AttireUsedNameKey: attire,
	})

	n, err := g.Outfits.UpdateOutfit(ctx, userID, id, models.OutfitUpdate{Style: &style, Accessories: accessories})
	if err != nil {
		utils.Log.Warn("accessories update failed, falling back to label columns", zap.String("outfit_id", id), zap.Error(err))
		var fallbackErr error
		n, fallbackErr = g.Outfits.UpdateOutfit(ctx, userID, id, models.OutfitUpdate{
			Style:          &style,
			FinalLookName:  &finalLook,
			AttireUsedName: &attire,
		})
		if fallbackErr != nil {
			return nil, fmt.Errorf("update outfit: %v | fallback: %w", err, fallbackErr)
		}
		accessories = item.Accessories
		current.FinalLookName, current.AttireUsedName = finalLook, attire
	}
	if n == 0 {
		return nil, ErrWriteBlocked
	}

	current.Style = style
	current.Accessories = accessories
	g.publish(ctx, events.OutfitRenamed, current)

	renamed := Normalize(*current)
	return &renamed, nil
}

// Delete removes the user's outfit.
func (g *Gateway) Delete(ctx context.Context, userID, id string) error {
	n, err := g.Outfits.DeleteOutfit(ctx, userID, id)
	if err != nil {
		return fmt.Errorf("delete outfit: %w", err)
	}
	if n == 0 {
		return ErrOutfitNotFound
	}
	g.publish(ctx, events.OutfitDeleted, &models.Outfit{ID: id, UserID: userID})
	return nil
}

// Retry writes the outfit into the user's one-shot handoff slot so the next
// try-on page load starts from it.
func (g *Gateway) Retry(ctx context.Context, userID, id string) (*models.RetryOutfit, error) {
	o, err := g.get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	item := Normalize(*o)
	r := models.RetryOutfit{
		Style:       item.Style,
		Cloth:       item.Cloth,
		Accessories: item.Accessories,
		BaseImage:   item.ImageURL,
	}
	if err := g.Prefs.PutRetry(ctx, userID, r); err != nil {
		return nil, fmt.Errorf("store retry outfit: %w", err)
	}
	return &r, nil
}

func (g *Gateway) get(ctx context.Context, userID, id string) (*models.Outfit, error) {
	o, err := g.Outfits.GetOutfit(ctx, userID, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrOutfitNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetch outfit: %w", err)
	}
	return o, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
