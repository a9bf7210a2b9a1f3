package inference

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/raushankrgupta/fitly-tryon/models"
)

//go:embed combos.yaml
var combosYAML []byte

// Catalog is the local set of preset combos keyed by style.
type Catalog map[string]models.Combo

// DefaultCatalog returns the combos bundled with the binary.
func DefaultCatalog() Catalog {
	c, err := ParseCatalog(combosYAML)
	if err != nil {
		panic(fmt.Sprintf("bundled combos.yaml: %v", err))
	}
	return c
}

// ParseCatalog reads a style → combo YAML document.
func ParseCatalog(data []byte) (Catalog, error) {
	var raw map[string]models.Combo
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse combos: %w", err)
	}
	c := make(Catalog, len(raw))
	for style, combo := range raw {
		style = strings.ToLower(style)
		combo.Style = style
		c[style] = combo
	}
	return c, nil
}

// Lookup finds a combo by style, ignoring case.
func (c Catalog) Lookup(style string) (models.Combo, error) {
	combo, ok := c[strings.ToLower(strings.TrimSpace(style))]
	if !ok {
		return models.Combo{}, fmt.Errorf("%q: %w", style, ErrUnknownStyle)
	}
	return combo, nil
}

func (c Catalog) Styles() []string {
	styles := make([]string, 0, len(c))
	for s := range c {
		styles = append(styles, s)
	}
	sort.Strings(styles)
	return styles
}
