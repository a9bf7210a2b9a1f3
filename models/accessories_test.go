package models

import (
	"encoding/json"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
)

func TestAccessoriesUnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantLen int
		wantKey string
	}{
		{name: "structured", input: `{"watch":true,"chain":"images/combos/formal_chain.png"}`, wantLen: 2, wantKey: "watch"},
		{name: "legacy text", input: `"{\"watch\":true}"`, wantLen: 1, wantKey: "watch"},
		{name: "malformed text", input: `"{watch"`, wantLen: 0},
		{name: "null", input: `null`, wantLen: 0},
		{name: "number", input: `42`, wantLen: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var outfit struct {
				Accessories Accessories `json:"accessories"`
			}
			if err := json.Unmarshal([]byte(`{"accessories":`+tt.input+`}`), &outfit); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if len(outfit.Accessories) != tt.wantLen {
				t.Errorf("len = %d, want %d (%v)", len(outfit.Accessories), tt.wantLen, outfit.Accessories)
			}
			if tt.wantKey != "" && !outfit.Accessories.Has(tt.wantKey) {
				t.Errorf("missing key %q", tt.wantKey)
			}
		})
	}
}

func TestAccessoriesBSONAcceptsTextAndDocument(t *testing.T) {
	legacy, err := bson.Marshal(bson.M{"accessories": `{"bag":true}`})
	if err != nil {
		t.Fatal(err)
	}
	var fromText struct {
		Accessories Accessories `bson:"accessories"`
	}
	if err := bson.Unmarshal(legacy, &fromText); err != nil {
		t.Fatalf("unmarshal legacy: %v", err)
	}
	if !fromText.Accessories.Has("bag") {
		t.Errorf("legacy text not decoded: %v", fromText.Accessories)
	}

	doc, err := bson.Marshal(struct {
		Accessories Accessories `bson:"accessories"`
	}{Accessories: Accessories{"watch": true}})
	if err != nil {
		t.Fatal(err)
	}
	var raw bson.Raw = doc
	if got := raw.Lookup("accessories").Type; got != bson.TypeEmbeddedDocument {
		t.Errorf("accessories written as %v, want embedded document", got)
	}
}

func TestAccessoriesHasIgnoresCase(t *testing.T) {
	a := Accessories{"Watch": true}
	if !a.Has("watch") || !a.Has("WATCH") {
		t.Error("Has should ignore case")
	}
	if a.Has("chain") {
		t.Error("Has reported a missing key")
	}
}

func TestAccessoriesMergeKeepsOriginal(t *testing.T) {
	orig := Accessories{"watch": true}
	merged := orig.Merge(Accessories{FinalLookNameKey: "Evening"})

	if len(orig) != 1 {
		t.Errorf("original mutated: %v", orig)
	}
	if merged[FinalLookNameKey] != "Evening" || merged["watch"] != true {
		t.Errorf("merged = %v", merged)
	}
}

func TestAccessoriesPresent(t *testing.T) {
	a := Accessories{"watch": "w.png", "bag": nil, "glasses": false, "chain": "", "ring": true}
	got := a.Present()
	if len(got) != 2 || !got.Has("watch") || !got.Has("ring") {
		t.Errorf("Present() = %v", got)
	}
}
