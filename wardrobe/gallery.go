package wardrobe

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/raushankrgupta/fitly-tryon/models"
)

const (
	defaultStyle          = "Unknown"
	defaultFinalLookName  = "Final Look"
	defaultAttireUsedName = "Attire Used"
)

// Item is an outfit ready for the gallery.
type Item struct {
	ID             string             `json:"id"`
	ImageURL       string             `json:"image_url"`
	Cloth          string             `json:"cloth,omitempty"`
	Accessories    models.Accessories `json:"accessories"`
	Style          string             `json:"style"`
	FinalLookName  string             `json:"final_look_name"`
	AttireUsedName string             `json:"attire_used_name"`
	Timestamp      time.Time          `json:"timestamp"`
}

// Normalize fills the display defaults. Labels prefer the dedicated column,
// then the accessories mapping.
func Normalize(o models.Outfit) Item {
	accs := o.Accessories
	if accs == nil {
		accs = models.Accessories{}
	}
	style := o.Style
	if strings.TrimSpace(style) == "" {
		style = defaultStyle
	}
	return Item{
		ID:             o.ID,
		ImageURL:       o.ImageURL,
		Cloth:          o.ClothURL,
		Accessories:    accs,
		Style:          style,
		FinalLookName:  firstNonEmpty(o.FinalLookName, accs.String(models.FinalLookNameKey), defaultFinalLookName),
		AttireUsedName: firstNonEmpty(o.AttireUsedName, accs.String(models.AttireUsedNameKey), defaultAttireUsedName),
		Timestamp:      o.CreatedAt,
	}
}

// List returns the user's outfits newest first.
func (g *Gateway) List(ctx context.Context, userID string) ([]Item, error) {
	outfits, err := g.Outfits.ListOutfits(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list outfits: %w", err)
	}
	items := make([]Item, 0, len(outfits))
	for _, o := range outfits {
		items = append(items, Normalize(o))
	}
	return items, nil
}

type Filter struct {
	Style     string
	Accessory string
}

func (f Filter) empty() bool {
	return strings.TrimSpace(f.Style) == "" && strings.TrimSpace(f.Accessory) == ""
}

// ApplyFilters keeps items whose style equals f.Style and whose accessories
// contain the f.Accessory key, both ignoring case. Empty criteria match all.
func ApplyFilters(items []Item, f Filter) []Item {
	if f.empty() {
		return items
	}
	style := strings.TrimSpace(f.Style)
	accessory := strings.TrimSpace(f.Accessory)

	out := make([]Item, 0, len(items))
	for _, it := range items {
		if style != "" && !strings.EqualFold(it.Style, style) {
			continue
		}
		if accessory != "" && !it.Accessories.Has(accessory) {
			continue
		}
		out = append(out, it)
	}
	return out
}
