package models

import "time"

// Outfit is one saved look in a user's wardrobe.
type Outfit struct {
	ID             string      `bson:"_id" json:"id"`
	UserID         string      `bson:"user_id" json:"user_id"`
	ImageURL       string      `bson:"image_url" json:"image_url"`
	ClothURL       string      `bson:"cloth_url,omitempty" json:"cloth_url,omitempty"`
	Style          string      `bson:"style" json:"style"`
	Accessories    Accessories `bson:"accessories" json:"accessories"`
	FinalLookName  string      `bson:"final_look_name,omitempty" json:"final_look_name,omitempty"`
	AttireUsedName string      `bson:"attire_used_name,omitempty" json:"attire_used_name,omitempty"`
	CreatedAt      time.Time   `bson:"created_at" json:"created_at"`
}

// OutfitUpdate carries the columns a rename may touch. Nil fields are left alone.
type OutfitUpdate struct {
	Style          *string
	Accessories    Accessories
	FinalLookName  *string
	AttireUsedName *string
}

// RetryOutfit is the handoff written by the wardrobe "retry" action and
// consumed once by the try-on page.
type RetryOutfit struct {
	Style       string      `json:"style"`
	Cloth       string      `json:"cloth"`
	Accessories Accessories `json:"accessories"`
	BaseImage   string      `json:"baseImage"`
}

// ComboAccessories lists the accessory slots a combo fills. Empty means unused.
type ComboAccessories struct {
	Glasses string `json:"glasses" yaml:"glasses"`
	Watch   string `json:"watch" yaml:"watch"`
	Chain   string `json:"chain" yaml:"chain"`
	Earring string `json:"earring" yaml:"earring"`
	Bag     string `json:"bag" yaml:"bag"`
	Shoes   string `json:"shoes" yaml:"shoes"`
}

// Slots returns the combo accessories keyed by slot name. Unused slots map to nil.
func (c ComboAccessories) Slots() Accessories {
	slot := func(v string) interface{} {
		if v == "" {
			return nil
		}
		return v
	}
	return Accessories{
		"glasses": slot(c.Glasses),
		"watch":   slot(c.Watch),
		"chain":   slot(c.Chain),
		"earring": slot(c.Earring),
		"bag":     slot(c.Bag),
		"shoes":   slot(c.Shoes),
	}
}

// Combo is a preset garment plus accessories for a named style.
type Combo struct {
	Style       string           `json:"style" yaml:"-"`
	Clothing    string           `json:"clothing" yaml:"clothing"`
	Accessories ComboAccessories `json:"accessories" yaml:"accessories"`
	AITip       string           `json:"ai_tip,omitempty" yaml:"-"`
}
