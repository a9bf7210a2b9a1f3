package tryon

import (
	"encoding/json"
	"fmt"

	"github.com/raushankrgupta/fitly-tryon/models"
)

const (
	ClothingOutfit    = "outfit"
	ClothingAccessory = "accessory"

	defaultStyle = "formal"
)

// State is one session's working try-on. Setters mark it dirty so the
// controller only writes back states that changed.
type State struct {
	base         string
	garment      string
	clothingType string
	accessories  models.Accessories
	style        string
	result       string
	aiTip        string

	pending         bool
	pendingCategory string

	dirty bool
}

// Snapshot is the serialized form of a State.
type Snapshot struct {
	BaseImage    string             `json:"base_image,omitempty"`
	Garment      string             `json:"garment,omitempty"`
	ClothingType string             `json:"clothing_type"`
	Accessories  models.Accessories `json:"accessories"`
	Style        string             `json:"style"`
	Result       string             `json:"result,omitempty"`
	AITip        string             `json:"ai_tip,omitempty"`
	Pending      *PendingTryOn      `json:"pending,omitempty"`
}

// PendingTryOn is a try-on waiting for a HuggingFace token.
type PendingTryOn struct {
	Category string `json:"category"`
}

func newState() *State {
	return &State{
		clothingType: ClothingOutfit,
		accessories:  models.Accessories{},
		style:        defaultStyle,
	}
}

func (s *State) Base() string         { return s.base }
func (s *State) Garment() string      { return s.garment }
func (s *State) ClothingType() string { return s.clothingType }
func (s *State) Style() string        { return s.style }
func (s *State) Result() string       { return s.result }
func (s *State) AITip() string        { return s.aiTip }

// Accessories returns a copy of the accessory slots.
func (s *State) Accessories() models.Accessories { return s.accessories.Merge(nil) }

// Pending reports whether a try-on is waiting for a token, and its category.
func (s *State) Pending() (bool, string) { return s.pending, s.pendingCategory }

func (s *State) setBase(ref string) {
	s.base = ref
	s.dirty = true
}

func (s *State) setGarment(ref string, accessory bool) {
	s.garment = ref
	s.clothingType = ClothingOutfit
	if accessory {
		s.clothingType = ClothingAccessory
	}
	s.dirty = true
}

func (s *State) setStyle(style string) {
	s.style = style
	s.dirty = true
}

func (s *State) mergeAccessories(a models.Accessories) {
	s.accessories = s.accessories.Merge(a)
	s.dirty = true
}

func (s *State) applyCombo(c models.Combo) {
	s.setGarment(c.Clothing, false)
	s.mergeAccessories(c.Accessories.Slots())
	s.aiTip = c.AITip
}

func (s *State) setResult(url string) {
	s.result = url
	s.dirty = true
}

func (s *State) setPending(category string) {
	s.pending, s.pendingCategory = true, category
	s.dirty = true
}

func (s *State) clearPending() {
	if !s.pending {
		return
	}
	s.pending, s.pendingCategory = false, ""
	s.dirty = true
}

// applyRetry seeds the state from a wardrobe retry handoff. Empty fields
// leave the current values in place; accessories are merged.
func (s *State) applyRetry(r models.RetryOutfit) {
	if r.Style != "" {
		s.setStyle(r.Style)
	}
	if r.Cloth != "" {
		s.setGarment(r.Cloth, false)
	}
	if r.BaseImage != "" {
		s.setBase(r.BaseImage)
	}
	if len(r.Accessories) > 0 {
		s.mergeAccessories(r.Accessories)
	}
}

func (s *State) Snapshot() Snapshot {
	snap := Snapshot{
		BaseImage:    s.base,
		Garment:      s.garment,
		ClothingType: s.clothingType,
		Accessories:  s.Accessories(),
		Style:        s.style,
		Result:       s.result,
		AITip:        s.aiTip,
	}
	if s.pending {
		snap.Pending = &PendingTryOn{Category: s.pendingCategory}
	}
	return snap
}

func (s *State) encode() (string, error) {
	b, err := json.Marshal(s.Snapshot())
	if err != nil {
		return "", fmt.Errorf("encode try-on state: %w", err)
	}
	return string(b), nil
}

func decodeState(raw string) (*State, error) {
	st := newState()
	if raw == "" {
		return st, nil
	}
	var snap Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return nil, fmt.Errorf("decode try-on state: %w", err)
	}
	st.base = snap.BaseImage
	st.garment = snap.Garment
	if snap.ClothingType != "" {
		st.clothingType = snap.ClothingType
	}
	if snap.Accessories != nil {
		st.accessories = snap.Accessories
	}
	st.style = snap.Style
	st.result = snap.Result
	st.aiTip = snap.AITip
	if snap.Pending != nil {
		st.pending, st.pendingCategory = true, snap.Pending.Category
	}
	return st, nil
}
