package models

import (
	"encoding/json"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// Label keys stored alongside accessory slots.
const (
	FinalLookNameKey  = "final_look_name"
	AttireUsedNameKey = "attire_used_name"
)

// Accessories maps an accessory slot (watch, chain, ...) to a presence flag,
// an image URL or a label. Older records stored the mapping as serialized
// JSON text; both forms decode into the same structure and it is always
// written back structured.
type Accessories map[string]interface{}

// Has reports whether a slot key is present, ignoring case.
func (a Accessories) Has(key string) bool {
	for k := range a {
		if strings.EqualFold(k, key) {
			return true
		}
	}
	return false
}

// String returns the slot value when it is a non-empty string.
func (a Accessories) String(key string) string {
	if s, ok := a[key].(string); ok {
		return s
	}
	return ""
}

// Merge returns a copy of a with every entry of b applied on top.
func (a Accessories) Merge(b Accessories) Accessories {
	out := make(Accessories, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}

// Present drops empty slots (nil, false, "") so only worn accessories remain.
func (a Accessories) Present() Accessories {
	out := Accessories{}
	for k, v := range a {
		switch t := v.(type) {
		case nil:
			continue
		case bool:
			if !t {
				continue
			}
		case string:
			if t == "" {
				continue
			}
		}
		out[k] = v
	}
	return out
}

// ParseAccessoriesText decodes the legacy text form. Anything that is not a
// JSON object yields an empty mapping.
func ParseAccessoriesText(s string) Accessories {
	var m map[string]interface{}
	if err := json.Unmarshal([]byte(s), &m); err != nil || m == nil {
		return Accessories{}
	}
	return Accessories(m)
}

func (a Accessories) MarshalJSON() ([]byte, error) {
	if a == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(map[string]interface{}(a))
}

func (a *Accessories) UnmarshalJSON(b []byte) error {
	var raw interface{}
	if err := json.Unmarshal(b, &raw); err != nil {
		*a = Accessories{}
		return nil
	}
	switch v := raw.(type) {
	case map[string]interface{}:
		*a = Accessories(v)
	case string:
		*a = ParseAccessoriesText(v)
	default:
		*a = Accessories{}
	}
	return nil
}

func (a Accessories) MarshalBSONValue() (bsontype.Type, []byte, error) {
	m := map[string]interface{}(a)
	if m == nil {
		m = map[string]interface{}{}
	}
	return bson.MarshalValue(m)
}

func (a *Accessories) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	rv := bson.RawValue{Type: t, Value: data}
	switch t {
	case bsontype.String:
		*a = ParseAccessoriesText(rv.StringValue())
	case bsontype.EmbeddedDocument:
		var m map[string]interface{}
		if err := rv.Unmarshal(&m); err != nil {
			*a = Accessories{}
			return nil
		}
		*a = Accessories(m)
	default:
		*a = Accessories{}
	}
	return nil
}
