package wardrobe

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/raushankrgupta/fitly-tryon/clientstate"
	"github.com/raushankrgupta/fitly-tryon/models"
	"github.com/raushankrgupta/fitly-tryon/storage"
	"github.com/raushankrgupta/fitly-tryon/store"
)

// countingObjects records uploads and fails from the failAt-th call on.
type countingObjects struct {
	storage.ObjectStore
	keys   []string
	failAt int
}

func (c *countingObjects) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	if c.failAt > 0 && len(c.keys)+1 >= c.failAt {
		return errors.New("bucket unavailable")
	}
	c.keys = append(c.keys, key)
	return nil
}

func (c *countingObjects) PublicURL(key string) string {
	return "https://cdn.example/wardrobe_images/" + key
}

// blockingOutfits wraps the memory store and can fail or block updates.
type blockingOutfits struct {
	*store.MemoryStore
	inserts          int
	failAccessories  bool
	blockAllUpdates  bool
	columnUpdateSeen bool
}

func (b *blockingOutfits) InsertOutfit(ctx context.Context, o *models.Outfit) error {
	b.inserts++
	return b.MemoryStore.InsertOutfit(ctx, o)
}

func (b *blockingOutfits) UpdateOutfit(ctx context.Context, userID, id string, u models.OutfitUpdate) (int64, error) {
	if b.blockAllUpdates {
		return 0, nil
	}
	if u.Accessories != nil && b.failAccessories {
		return 0, errors.New(`column "accessories" is of type text`)
	}
	if u.FinalLookName != nil {
		b.columnUpdateSeen = true
	}
	return b.MemoryStore.UpdateOutfit(ctx, userID, id, u)
}

func fixedClock() time.Time { return time.UnixMilli(1700000000000) }

func newGateway(objects storage.ObjectStore, outfits store.OutfitStore) *Gateway {
	return &Gateway{
		Outfits: outfits,
		Objects: objects,
		Prefs:   clientstate.NewPrefs(clientstate.NewMemoryStore()),
		now:     fixedClock,
	}
}

func TestSaveUploadsThenInserts(t *testing.T) {
	ctx := context.Background()
	objects := &countingObjects{}
	outfits := &blockingOutfits{MemoryStore: store.NewMemoryStore()}
	g := newGateway(objects, outfits)

	o, err := g.Save(ctx, SaveRequest{
		UserID:        "u1",
		Flattened:     []byte("png"),
		GarmentRef:    "data:image/png;base64,aGVsbG8=",
		Style:         "casual",
		AccessoryName: "Red Scarf",
		Accessories:   models.Accessories{"watch": true},
	})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	want := []string{"u1/wardrobe/outfit_1700000000000.png", "u1/cloths/1700000000000.png"}
	if strings.Join(objects.keys, ",") != strings.Join(want, ",") {
		t.Errorf("upload keys = %v, want %v", objects.keys, want)
	}
	if o.ImageURL != "https://cdn.example/wardrobe_images/u1/wardrobe/outfit_1700000000000.png" {
		t.Errorf("image url = %q", o.ImageURL)
	}
	if o.ClothURL != "https://cdn.example/wardrobe_images/u1/cloths/1700000000000.png" {
		t.Errorf("cloth url = %q", o.ClothURL)
	}
	if o.Accessories["Red Scarf"] != true || o.Accessories["watch"] != true {
		t.Errorf("accessories = %v", o.Accessories)
	}
}

func TestSaveKeepsGarmentURL(t *testing.T) {
	objects := &countingObjects{}
	g := newGateway(objects, store.NewMemoryStore())

	o, err := g.Save(context.Background(), SaveRequest{UserID: "u1", Flattened: []byte("png"), GarmentRef: "https://shop.example/shirt.png", Style: "formal"})
	if err != nil {
		t.Fatal(err)
	}
	if len(objects.keys) != 1 {
		t.Errorf("uploads = %v", objects.keys)
	}
	if o.ClothURL != "https://shop.example/shirt.png" {
		t.Errorf("cloth url = %q", o.ClothURL)
	}
	if o.Accessories == nil || len(o.Accessories) != 0 {
		t.Errorf("accessories = %v", o.Accessories)
	}
}

func TestSaveAbortsOnFirstFailure(t *testing.T) {
	tests := []struct {
		name       string
		failAt     int
		wantUpload int
	}{
		{name: "flattened upload", failAt: 1, wantUpload: 0},
		{name: "garment upload", failAt: 2, wantUpload: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			objects := &countingObjects{failAt: tt.failAt}
			outfits := &blockingOutfits{MemoryStore: store.NewMemoryStore()}
			g := newGateway(objects, outfits)

			_, err := g.Save(context.Background(), SaveRequest{UserID: "u1", Flattened: []byte("png"), GarmentRef: "data:image/png;base64,aGVsbG8=", Style: "party"})
			if err == nil {
				t.Fatal("expected error")
			}
			if len(objects.keys) != tt.wantUpload {
				t.Errorf("uploads = %v", objects.keys)
			}
			if outfits.inserts != 0 {
				t.Errorf("inserts = %d, want 0", outfits.inserts)
			}
		})
	}
}

// legacyOutfit decodes a record the way a driver would when accessories
// were stored as serialized text.
func legacyOutfit(t *testing.T) *models.Outfit {
	t.Helper()
	raw := `{"id":"o1","user_id":"u1","image_url":"https://cdn.example/o1.png","style":"formal",
		"accessories":"{\"watch\":true,\"chain\":\"https://cdn.example/chain.png\"}",
		"created_at":"2024-01-02T03:04:05Z"}`
	var o models.Outfit
	if err := json.Unmarshal([]byte(raw), &o); err != nil {
		t.Fatal(err)
	}
	return &o
}

func TestRenameLegacyTextAccessories(t *testing.T) {
	ctx := context.Background()
	db := store.NewMemoryStore()
	if err := db.InsertOutfit(ctx, legacyOutfit(t)); err != nil {
		t.Fatal(err)
	}
	g := newGateway(&countingObjects{}, db)

	item, err := g.Rename(ctx, "u1", "o1", RenameRequest{FinalLookName: "Gala", AttireUsedName: "Navy Suit"})
	if err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if item.Style != "formal" {
		t.Errorf("style = %q, want unchanged", item.Style)
	}

	stored, err := db.GetOutfit(ctx, "u1", "o1")
	if err != nil {
		t.Fatal(err)
	}
	accs := stored.Accessories
	if accs["watch"] != true || accs["chain"] != "https://cdn.example/chain.png" {
		t.Errorf("original keys lost: %v", accs)
	}
	if accs.String(models.FinalLookNameKey) != "Gala" || accs.String(models.AttireUsedNameKey) != "Navy Suit" {
		t.Errorf("labels = %v", accs)
	}
}

func TestRenameFallsBackToColumns(t *testing.T) {
	ctx := context.Background()
	outfits := &blockingOutfits{MemoryStore: store.NewMemoryStore(), failAccessories: true}
	if err := outfits.MemoryStore.InsertOutfit(ctx, legacyOutfit(t)); err != nil {
		t.Fatal(err)
	}
	g := newGateway(&countingObjects{}, outfits)

	item, err := g.Rename(ctx, "u1", "o1", RenameRequest{Style: "party", FinalLookName: "Night Out"})
	if err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if !outfits.columnUpdateSeen {
		t.Error("column fallback was not used")
	}
	if item.Style != "party" || item.FinalLookName != "Night Out" || item.AttireUsedName != "Attire Used" {
		t.Errorf("item = %+v", item)
	}
}

func TestRenameZeroRowsIsBlocked(t *testing.T) {
	ctx := context.Background()
	outfits := &blockingOutfits{MemoryStore: store.NewMemoryStore(), blockAllUpdates: true}
	if err := outfits.MemoryStore.InsertOutfit(ctx, legacyOutfit(t)); err != nil {
		t.Fatal(err)
	}
	g := newGateway(&countingObjects{}, outfits)

	if _, err := g.Rename(ctx, "u1", "o1", RenameRequest{FinalLookName: "x"}); !errors.Is(err, ErrWriteBlocked) {
		t.Errorf("err = %v, want ErrWriteBlocked", err)
	}
}

func TestRenameOtherUsersOutfit(t *testing.T) {
	ctx := context.Background()
	db := store.NewMemoryStore()
	if err := db.InsertOutfit(ctx, legacyOutfit(t)); err != nil {
		t.Fatal(err)
	}
	g := newGateway(&countingObjects{}, db)

	if _, err := g.Rename(ctx, "intruder", "o1", RenameRequest{FinalLookName: "x"}); !errors.Is(err, ErrOutfitNotFound) {
		t.Errorf("err = %v", err)
	}
	if err := g.Delete(ctx, "intruder", "o1"); !errors.Is(err, ErrOutfitNotFound) {
		t.Errorf("delete err = %v", err)
	}
	if err := g.Delete(ctx, "u1", "o1"); err != nil {
		t.Errorf("owner delete: %v", err)
	}
}

func TestRetryWritesHandoffSlot(t *testing.T) {
	ctx := context.Background()
	db := store.NewMemoryStore()
	o := legacyOutfit(t)
	o.ClothURL = "https://cdn.example/shirt.png"
	if err := db.InsertOutfit(ctx, o); err != nil {
		t.Fatal(err)
	}
	g := newGateway(&countingObjects{}, db)

	if _, err := g.Retry(ctx, "u1", "o1"); err != nil {
		t.Fatal(err)
	}
	r, err := g.Prefs.TakeRetry(ctx, "u1")
	if err != nil || r == nil {
		t.Fatalf("TakeRetry = %v, %v", r, err)
	}
	if r.Style != "formal" || r.Cloth != "https://cdn.example/shirt.png" || r.BaseImage != "https://cdn.example/o1.png" || r.Accessories["watch"] != true {
		t.Errorf("retry = %+v", r)
	}
	if again, _ := g.Prefs.TakeRetry(ctx, "u1"); again != nil {
		t.Errorf("slot not consumed: %+v", again)
	}
}
