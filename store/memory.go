package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/raushankrgupta/fitly-tryon/models"
)

// MemoryStore implements Store in memory. It backs local development and tests.
type MemoryStore struct {
	mu         sync.RWMutex
	identities map[string]models.Identity
	profiles   map[string]models.Profile
	outfits    map[string]models.Outfit
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		identities: make(map[string]models.Identity),
		profiles:   make(map[string]models.Profile),
		outfits:    make(map[string]models.Outfit),
	}
}

func (m *MemoryStore) Ping(ctx context.Context) error  { return nil }
func (m *MemoryStore) Close(ctx context.Context) error { return nil }

// --- Identities ---

func (m *MemoryStore) CreateIdentity(ctx context.Context, id *models.Identity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.identities {
		if strings.EqualFold(existing.Email, id.Email) {
			return ErrEmailTaken
		}
	}
	m.identities[id.ID] = *id
	return nil
}

func (m *MemoryStore) GetIdentity(ctx context.Context, id string) (*models.Identity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ident, ok := m.identities[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &ident, nil
}

func (m *MemoryStore) GetIdentityByEmail(ctx context.Context, email string) (*models.Identity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, ident := range m.identities {
		if strings.EqualFold(ident.Email, email) {
			ident := ident
			return &ident, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) updateIdentity(id string, fn func(*models.Identity)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ident, ok := m.identities[id]
	if !ok {
		return ErrNotFound
	}
	fn(&ident)
	ident.UpdatedAt = time.Now()
	m.identities[id] = ident
	return nil
}

func (m *MemoryStore) UpdateIdentityMetadata(ctx context.Context, id string, meta models.UserMetadata) error {
	return m.updateIdentity(id, func(i *models.Identity) { i.Metadata = meta })
}

func (m *MemoryStore) UpdatePassword(ctx context.Context, id, hash string) error {
	return m.updateIdentity(id, func(i *models.Identity) { i.PasswordHash = hash })
}

func (m *MemoryStore) SetResetOTP(ctx context.Context, id, otp string, expiresAt time.Time) error {
	return m.updateIdentity(id, func(i *models.Identity) {
		i.OTP = otp
		i.OTPExpiresAt = expiresAt
	})
}

// --- Profiles ---

func (m *MemoryStore) InsertProfile(ctx context.Context, p *models.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[p.ID] = *p
	return nil
}

func (m *MemoryStore) GetProfile(ctx context.Context, id string) (*models.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.profiles[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (m *MemoryStore) UpdateProfileName(ctx context.Context, id, fullName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	if !ok {
		return ErrNotFound
	}
	p.FullName = fullName
	m.profiles[id] = p
	return nil
}

// --- Outfits ---

func (m *MemoryStore) InsertOutfit(ctx context.Context, o *models.Outfit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *o
	cp.Accessories = o.Accessories.Merge(nil)
	m.outfits[o.ID] = cp
	return nil
}

func (m *MemoryStore) ListOutfits(ctx context.Context, userID string) ([]models.Outfit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Outfit
	for _, o := range m.outfits {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryStore) GetOutfit(ctx context.Context, userID, id string) (*models.Outfit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.outfits[id]
	if !ok || o.UserID != userID {
		return nil, ErrNotFound
	}
	return &o, nil
}

func (m *MemoryStore) UpdateOutfit(ctx context.Context, userID, id string, u models.OutfitUpdate) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.outfits[id]
	if !ok || o.UserID != userID {
		return 0, nil
	}
	if u.Style != nil {
		o.Style = *u.Style
	}
	if u.Accessories != nil {
		o.Accessories = u.Accessories.Merge(nil)
	}
	if u.FinalLookName != nil {
		o.FinalLookName = *u.FinalLookName
	}
	if u.AttireUsedName != nil {
		o.AttireUsedName = *u.AttireUsedName
	}
	m.outfits[id] = o
	return 1, nil
}

func (m *MemoryStore) DeleteOutfit(ctx context.Context, userID, id string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.outfits[id]
	if !ok || o.UserID != userID {
		return 0, nil
	}
	delete(m.outfits, id)
	return 1, nil
}
