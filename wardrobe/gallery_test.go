package wardrobe

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/raushankrgupta/fitly-tryon/models"
	"github.com/raushankrgupta/fitly-tryon/store"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name      string
		outfit    models.Outfit
		wantStyle string
		wantFinal string
		wantAttr  string
	}{
		{
			name:      "defaults",
			outfit:    models.Outfit{ID: "1"},
			wantStyle: "Unknown", wantFinal: "Final Look", wantAttr: "Attire Used",
		},
		{
			name: "labels from accessories",
			outfit: models.Outfit{ID: "2", Style: "casual", Accessories: models.Accessories{
				models.FinalLookNameKey: "Brunch", models.AttireUsedNameKey: "Linen Shirt",
			}},
			wantStyle: "casual", wantFinal: "Brunch", wantAttr: "Linen Shirt",
		},
		{
			name: "column wins",
			outfit: models.Outfit{ID: "3", Style: "party", FinalLookName: "Column Look", Accessories: models.Accessories{
				models.FinalLookNameKey: "Accessory Look",
			}},
			wantStyle: "party", wantFinal: "Column Look", wantAttr: "Attire Used",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.outfit)
			if got.Style != tt.wantStyle || got.FinalLookName != tt.wantFinal || got.AttireUsedName != tt.wantAttr {
				t.Errorf("Normalize = %+v", got)
			}
			if got.Accessories == nil {
				t.Error("accessories should never be nil")
			}
		})
	}
}

func TestApplyFilters(t *testing.T) {
	items := []Item{
		{ID: "a", Style: "Formal", Accessories: models.Accessories{"Watch": true}},
		{ID: "b", Style: "casual", Accessories: models.Accessories{"glasses": true}},
		{ID: "c", Style: "formal", Accessories: models.Accessories{}},
		{ID: "d", Style: "formal wear", Accessories: models.Accessories{"watch": "https://cdn/w.png"}},
	}

	ids := func(in []Item) []string {
		out := []string{}
		for _, it := range in {
			out = append(out, it.ID)
		}
		return out
	}

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{name: "empty", filter: Filter{}, want: []string{"a", "b", "c", "d"}},
		{name: "style ignores case", filter: Filter{Style: "FORMAL"}, want: []string{"a", "c"}},
		{name: "accessory key", filter: Filter{Accessory: "watch"}, want: []string{"a", "d"}},
		{name: "both", filter: Filter{Style: "formal", Accessory: "WATCH"}, want: []string{"a"}},
		{name: "no match", filter: Filter{Style: "sport"}, want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ids(ApplyFilters(items, tt.filter)); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ApplyFilters = %v, want %v", got, tt.want)
			}
		})
	}

	if got := ApplyFilters(items, Filter{Style: "  "}); !reflect.DeepEqual(got, items) {
		t.Error("blank filter changed the input")
	}
}

func TestListNewestFirst(t *testing.T) {
	ctx := context.Background()
	db := store.NewMemoryStore()
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "new", "mid"} {
		offset := map[string]time.Duration{"old": 0, "mid": time.Hour, "new": 2 * time.Hour}[id]
		o := &models.Outfit{ID: id, UserID: "u1", ImageURL: "img" + string(rune('0'+i)), CreatedAt: base.Add(offset)}
		if err := db.InsertOutfit(ctx, o); err != nil {
			t.Fatal(err)
		}
	}
	if err := db.InsertOutfit(ctx, &models.Outfit{ID: "other", UserID: "u2", CreatedAt: base.Add(3 * time.Hour)}); err != nil {
		t.Fatal(err)
	}

	g := newGateway(&countingObjects{}, db)
	items, err := g.List(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, it := range items {
		got = append(got, it.ID)
	}
	if !reflect.DeepEqual(got, []string{"new", "mid", "old"}) {
		t.Errorf("order = %v", got)
	}
	if !items[0].Timestamp.Equal(base.Add(2 * time.Hour)) {
		t.Errorf("timestamp = %v", items[0].Timestamp)
	}
}
