package menu

import (
	"math"
	"strconv"
	"strings"
)

// DishForm is the multipart form posted by the admin page when adding or
// editing a dish. Values stay raw until Input converts them.
type DishForm struct {
	NameCN         string   `form:"name_cn"`
	NameIT         string   `form:"name_it"`
	DescriptionIT  string   `form:"description_it"`
	Price          string   `form:"price"`
	CategoryID     string   `form:"category_id"`
	SortOrder      string   `form:"sort_order"`
	Surgelato      string   `form:"surgelato"`
	IsPopular      string   `form:"is_popular"`
	IsNew          string   `form:"is_new"`
	IsVegan        string   `form:"is_vegan"`
	SpicinessLevel string   `form:"spiciness_level"`
	Portions       string   `form:"portions"`
	Allergens      []string `form:"allergens"`
}

// DishInput is the validated shape of a dish create/update request.
type DishInput struct {
	NameCN         string
	NameIT         string
	DescriptionIT  string
	Price          float64
	CategoryID     uint
	SortOrder      int
	Surgelato      bool
	IsPopular      bool
	IsNew          bool
	IsVegan        bool
	SpicinessLevel int
	Portions       []DishPortion
	AllergenIDs    []uint
}

// Input converts the raw form. A missing category, a non-numeric price or a
// bad spiciness level is a ValidationError; a malformed portion list or
// unparseable allergen ids are dropped silently.
func (f DishForm) Input() (DishInput, error) {
	in := DishInput{
		NameCN:        strings.TrimSpace(f.NameCN),
		NameIT:        strings.TrimSpace(f.NameIT),
		DescriptionIT: strings.TrimSpace(f.DescriptionIT),
		Surgelato:     checked(f.Surgelato),
		IsPopular:     checked(f.IsPopular),
		IsNew:         checked(f.IsNew),
		IsVegan:       checked(f.IsVegan),
	}

	catID, err := strconv.ParseUint(strings.TrimSpace(f.CategoryID), 10, 64)
	if err != nil || catID == 0 {
		return in, errNoCategory
	}
	in.CategoryID = uint(catID)

	price, err := strconv.ParseFloat(strings.TrimSpace(f.Price), 64)
	if err != nil || math.IsNaN(price) || math.IsInf(price, 0) {
		return in, invalid("price must be a number")
	}
	in.Price = price

	if s := strings.TrimSpace(f.SortOrder); s != "" {
		if in.SortOrder, err = strconv.Atoi(s); err != nil {
			return in, invalid("sort order must be an integer")
		}
	}

	if s := strings.TrimSpace(f.SpicinessLevel); s != "" {
		if in.SpicinessLevel, err = strconv.Atoi(s); err != nil {
			return in, invalid("spiciness level must be an integer between 0 and %d", SpicinessMax)
		}
	}

	in.Portions, _ = ParsePortions(f.Portions)

	for _, raw := range f.Allergens {
		id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
		if err != nil || id == 0 {
			continue
		}
		in.AllergenIDs = append(in.AllergenIDs, uint(id))
	}

	return in, nil
}

// checked interprets an HTML checkbox value.
func checked(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}

func (in DishInput) validate() error {
	if in.CategoryID == 0 {
		return errNoCategory
	}
	if in.NameCN == "" || in.NameIT == "" {
		return invalid("dish name is required in both Chinese and Italian")
	}
	if in.Price < 0 {
		return invalid("price cannot be negative")
	}
	if in.SpicinessLevel < 0 || in.SpicinessLevel > SpicinessMax {
		return invalid("spiciness level must be an integer between 0 and %d", SpicinessMax)
	}
	return nil
}

var errNoCategory = &ValidationError{Message: "please select a dish category"}

// CategoryInput is the body of a category create/update request.
type CategoryInput struct {
	NameCN       string `json:"name_cn"`
	NameIT       string `json:"name_it"`
	SortOrder    int    `json:"sort_order"`
	PrefixLetter string `json:"prefix_letter"`
}

func (in *CategoryInput) normalize() error {
	in.NameCN = strings.TrimSpace(in.NameCN)
	in.NameIT = strings.TrimSpace(in.NameIT)
	in.PrefixLetter = strings.ToUpper(strings.TrimSpace(in.PrefixLetter))

	if in.NameCN == "" || in.NameIT == "" {
		return invalid("category name is required in both Chinese and Italian")
	}
	if len(in.PrefixLetter) != 1 || in.PrefixLetter[0] < 'A' || in.PrefixLetter[0] > 'Z' {
		return invalid("prefix letter must be a single letter A-Z")
	}
	return nil
}

// AllergenInput is the body of an allergen create/update request.
type AllergenInput struct {
	NameCN        string `json:"name_cn"`
	NameIT        string `json:"name_it"`
	Icon          string `json:"icon"`
	DescriptionCN string `json:"description_cn"`
	DescriptionIT string `json:"description_it"`
}

func (in *AllergenInput) normalize() error {
	in.NameCN = strings.TrimSpace(in.NameCN)
	in.NameIT = strings.TrimSpace(in.NameIT)
	in.Icon = strings.TrimSpace(in.Icon)
	if in.NameCN == "" || in.NameIT == "" {
		return invalid("allergen name is required in both Chinese and Italian")
	}
	if in.Icon == "" {
		return invalid("allergen icon is required")
	}
	return nil
}
