package menu

import "time"

// Category groups dishes and owns the prefix letter of their numbers.
type Category struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	NameCN       string    `gorm:"size:50;not null" json:"name_cn"`
	NameIT       string    `gorm:"size:50;not null" json:"name_it"`
	SortOrder    int       `gorm:"not null;default:0" json:"sort_order"`
	PrefixLetter string    `gorm:"size:1;not null" json:"prefix_letter"`
	CreatedAt    time.Time `json:"-"`
	UpdatedAt    time.Time `json:"-"`
}

// Allergen is one of the EU declarable allergens.
type Allergen struct {
	ID            uint   `gorm:"primaryKey" json:"id"`
	NameCN        string `gorm:"size:50;not null" json:"name_cn"`
	NameIT        string `gorm:"size:50;not null" json:"name_it"`
	Icon          string `gorm:"size:100;not null" json:"icon"`
	DescriptionCN string `gorm:"size:200" json:"description_cn"`
	DescriptionIT string `gorm:"size:200" json:"description_it"`
}

// Dish is a menu entry. DishNumber is derived: category prefix + sequence.
type Dish struct {
	ID             uint    `gorm:"primaryKey" json:"id"`
	DishNumber     string  `gorm:"size:20;not null;uniqueIndex" json:"dish_number"`
	NameCN         string  `gorm:"size:100;not null" json:"name_cn"`
	NameIT         string  `gorm:"size:100;not null" json:"name_it"`
	DescriptionIT  string  `gorm:"type:text" json:"description_it"`
	Price          float64 `gorm:"not null" json:"price"`
	Image          string  `gorm:"size:200" json:"image_local"`
	ImageCDNURL    string  `gorm:"column:image_cdn_url;size:500" json:"image_cdn"`
	CategoryID     uint    `gorm:"index;not null" json:"category_id"`
	SortOrder      int     `gorm:"not null;default:0" json:"sort_order"`
	Surgelato      bool    `gorm:"not null;default:false" json:"surgelato"`
	IsPopular      bool    `gorm:"not null;default:false" json:"is_popular"`
	IsNew          bool    `gorm:"not null;default:false" json:"is_new"`
	IsVegan        bool    `gorm:"not null;default:false" json:"is_vegan"`
	SpicinessLevel int     `gorm:"not null;default:0" json:"spiciness_level"`

	Category  *Category     `gorm:"constraint:OnDelete:RESTRICT" json:"-"`
	Portions  []DishPortion `gorm:"constraint:OnDelete:CASCADE" json:"portions"`
	Allergens []Allergen    `gorm:"many2many:dish_allergens;constraint:OnDelete:CASCADE" json:"allergens"`

	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// DishPortion is a named price variant of a dish (half, full, ...).
type DishPortion struct {
	ID            uint    `gorm:"primaryKey" json:"id"`
	DishID        uint    `gorm:"index;not null" json:"-"`
	PortionNameCN string  `gorm:"size:50;not null" json:"name_cn"`
	PortionNameIT string  `gorm:"size:50;not null" json:"name_it"`
	Price         float64 `gorm:"not null" json:"price"`
	SortOrder     int     `gorm:"not null;default:0" json:"sort_order"`
	IsDefault     bool    `gorm:"not null;default:false" json:"is_default"`
}

// ImageRef points at the stored copies of a dish image. Either field may be
// empty; both empty means no image.
type ImageRef struct {
	Local string `json:"local,omitempty"`
	CDN   string `json:"cdn,omitempty"`
}

func (r ImageRef) IsZero() bool { return r.Local == "" && r.CDN == "" }

// ImageRef returns the references currently recorded on the dish.
func (d *Dish) ImageRef() ImageRef {
	return ImageRef{Local: d.Image, CDN: d.ImageCDNURL}
}

// DisplayImage resolves the image shown to guests: the CDN copy wins over the
// local path when both exist.
func (d *Dish) DisplayImage() string {
	if d.ImageCDNURL != "" {
		return d.ImageCDNURL
	}
	return d.Image
}

// SpicinessMax is the hottest level a dish can be tagged with.
const SpicinessMax = 3
