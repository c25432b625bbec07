package menu

import (
	"encoding/json"
	"strconv"
	"strings"
)

// portionPayload is one entry of the portions form field. Prices arrive as
// either JSON numbers or strings depending on the admin form.
type portionPayload struct {
	NameCN    string          `json:"name_cn"`
	NameIT    string          `json:"name_it"`
	Price     json.RawMessage `json:"price"`
	IsDefault bool            `json:"is_default"`
}

// ParsePortions decodes the JSON portion list submitted with a dish. A
// malformed payload yields no portions at all; the dish then only carries its
// base price. The boolean reports whether the payload was usable.
func ParsePortions(raw string) ([]DishPortion, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, true
	}

	var items []portionPayload
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, false
	}

	portions := make([]DishPortion, 0, len(items))
	for i, it := range items {
		price, ok := parsePrice(it.Price)
		if !ok {
			return nil, false
		}
		portions = append(portions, DishPortion{
			PortionNameCN: it.NameCN,
			PortionNameIT: it.NameIT,
			Price:         price,
			SortOrder:     i,
			IsDefault:     it.IsDefault,
		})
	}
	return portions, true
}

func parsePrice(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, true
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
