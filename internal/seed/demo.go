package seed

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/chenyk320/menu/internal/menu"

	"gopkg.in/yaml.v3"
)

//go:embed demo.yaml
var builtinDemo []byte

// DemoFile is the YAML layout of demo dishes. Categories are referenced by
// prefix letter and allergens by Italian or Chinese name so the file does not
// depend on database ids.
type DemoFile struct {
	Dishes []DemoDish `yaml:"dishes"`
}

type DemoDish struct {
	Category       string        `yaml:"category"`
	NameCN         string        `yaml:"name_cn"`
	NameIT         string        `yaml:"name_it"`
	DescriptionIT  string        `yaml:"description_it"`
	Price          float64       `yaml:"price"`
	SortOrder      int           `yaml:"sort_order"`
	Surgelato      bool          `yaml:"surgelato"`
	Popular        bool          `yaml:"popular"`
	New            bool          `yaml:"new"`
	Vegan          bool          `yaml:"vegan"`
	SpicinessLevel int           `yaml:"spiciness"`
	Allergens      []string      `yaml:"allergens"`
	Portions       []DemoPortion `yaml:"portions"`
}

type DemoPortion struct {
	NameCN  string  `yaml:"name_cn"`
	NameIT  string  `yaml:"name_it"`
	Price   float64 `yaml:"price"`
	Default bool    `yaml:"default"`
}

// Builtin returns the demo menu shipped with the binary.
func Builtin() (*DemoFile, error) {
	return parse(builtinDemo)
}

func LoadFile(path string) (*DemoFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parse(data)
}

func parse(data []byte) (*DemoFile, error) {
	var f DemoFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse demo file: %w", err)
	}
	return &f, nil
}

// Apply creates every dish of f through the service so each gets a freshly
// generated number. Unknown allergen names are skipped; an unknown category
// prefix is an error.
func Apply(ctx context.Context, svc *menu.Service, f *DemoFile) (*Result, error) {
	cats, err := svc.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	byPrefix := make(map[string]uint, len(cats))
	for _, c := range cats {
		byPrefix[c.PrefixLetter] = c.ID
	}

	allergens, err := svc.ListAllergens(ctx)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]uint, 2*len(allergens))
	for _, a := range allergens {
		byName[strings.ToLower(a.NameIT)] = a.ID
		byName[strings.ToLower(a.NameCN)] = a.ID
	}

	res := &Result{}
	for _, d := range f.Dishes {
		catID, ok := byPrefix[strings.ToUpper(d.Category)]
		if !ok {
			return res, fmt.Errorf("dish %q: unknown category %q", d.NameIT, d.Category)
		}

		in := menu.DishInput{
			NameCN:         d.NameCN,
			NameIT:         d.NameIT,
			DescriptionIT:  d.DescriptionIT,
			Price:          d.Price,
			CategoryID:     catID,
			SortOrder:      d.SortOrder,
			Surgelato:      d.Surgelato,
			IsPopular:      d.Popular,
			IsNew:          d.New,
			IsVegan:        d.Vegan,
			SpicinessLevel: d.SpicinessLevel,
		}
		for _, name := range d.Allergens {
			if id, ok := byName[strings.ToLower(strings.TrimSpace(name))]; ok {
				in.AllergenIDs = append(in.AllergenIDs, id)
			}
		}
		for i, p := range d.Portions {
			in.Portions = append(in.Portions, menu.DishPortion{
				PortionNameCN: p.NameCN,
				PortionNameIT: p.NameIT,
				Price:         p.Price,
				SortOrder:     i,
				IsDefault:     p.Default,
			})
		}

		if _, err := svc.CreateDish(ctx, in, nil); err != nil {
			return res, fmt.Errorf("dish %q: %w", d.NameIT, err)
		}
		res.Dishes++
	}
	return res, nil
}
