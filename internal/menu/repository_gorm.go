package menu

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// GormRepository stores the menu through gorm. SQLite is the default driver.
type GormRepository struct {
	db *gorm.DB
}

func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

// AutoMigrate creates or upgrades the menu tables.
func (r *GormRepository) AutoMigrate() error {
	return r.db.AutoMigrate(&Category{}, &Allergen{}, &Dish{}, &DishPortion{})
}

func notFound(err error, what string, id any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %v: %w", what, id, ErrNotFound)
	}
	return err
}

// affected turns a zero-row write into ErrNotFound.
func affected(res *gorm.DB, what string, id uint) error {
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%s %d: %w", what, id, ErrNotFound)
	}
	return nil
}

// -------------------------------
// Categories
// -------------------------------

func (r *GormRepository) ListCategories(ctx context.Context) ([]Category, error) {
	var out []Category
	err := r.db.WithContext(ctx).Order("sort_order, id").Find(&out).Error
	return out, err
}

func (r *GormRepository) GetCategory(ctx context.Context, id uint) (*Category, error) {
	var c Category
	if err := r.db.WithContext(ctx).First(&c, id).Error; err != nil {
		return nil, notFound(err, "category", id)
	}
	return &c, nil
}

func (r *GormRepository) FindCategoryByPrefix(ctx context.Context, prefix string) (*Category, error) {
	var c Category
	err := r.db.WithContext(ctx).Where("prefix_letter = ?", prefix).First(&c).Error
	if err != nil {
		return nil, notFound(err, "category with prefix", prefix)
	}
	return &c, nil
}

func (r *GormRepository) CreateCategory(ctx context.Context, c *Category) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *GormRepository) UpdateCategory(ctx context.Context, c *Category) error {
	res := r.db.WithContext(ctx).Model(&Category{}).Where("id = ?", c.ID).Updates(map[string]any{
		"name_cn":       c.NameCN,
		"name_it":       c.NameIT,
		"sort_order":    c.SortOrder,
		"prefix_letter": c.PrefixLetter,
	})
	return affected(res, "category", c.ID)
}

func (r *GormRepository) DeleteCategory(ctx context.Context, id uint) error {
	return affected(r.db.WithContext(ctx).Delete(&Category{}, id), "category", id)
}

func (r *GormRepository) CountDishesInCategory(ctx context.Context, categoryID uint) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&Dish{}).Where("category_id = ?", categoryID).Count(&n).Error
	return n, err
}

// -------------------------------
// Allergens
// -------------------------------

func (r *GormRepository) ListAllergens(ctx context.Context) ([]Allergen, error) {
	var out []Allergen
	err := r.db.WithContext(ctx).Order("id").Find(&out).Error
	return out, err
}

func (r *GormRepository) GetAllergen(ctx context.Context, id uint) (*Allergen, error) {
	var a Allergen
	if err := r.db.WithContext(ctx).First(&a, id).Error; err != nil {
		return nil, notFound(err, "allergen", id)
	}
	return &a, nil
}

func (r *GormRepository) FindAllergens(ctx context.Context, ids []uint) ([]Allergen, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var out []Allergen
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id").Find(&out).Error
	return out, err
}

func (r *GormRepository) CreateAllergen(ctx context.Context, a *Allergen) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *GormRepository) UpdateAllergen(ctx context.Context, a *Allergen) error {
	res := r.db.WithContext(ctx).Model(&Allergen{}).Where("id = ?", a.ID).Updates(map[string]any{
		"name_cn":        a.NameCN,
		"name_it":        a.NameIT,
		"icon":           a.Icon,
		"description_cn": a.DescriptionCN,
		"description_it": a.DescriptionIT,
	})
	return affected(res, "allergen", a.ID)
}

func (r *GormRepository) DeleteAllergen(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM dish_allergens WHERE allergen_id = ?", id).Error; err != nil {
			return err
		}
		return affected(tx.Delete(&Allergen{}, id), "allergen", id)
	})
}

// -------------------------------
// Dishes
// -------------------------------

func (r *GormRepository) withRelations(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Portions", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order, id")
		}).
		Preload("Allergens", func(db *gorm.DB) *gorm.DB {
			return db.Order("allergens.id")
		})
}

func (r *GormRepository) ListDishes(ctx context.Context) ([]Dish, error) {
	var out []Dish
	err := r.withRelations(ctx).
		Joins("JOIN categories ON categories.id = dishes.category_id").
		Order("categories.sort_order, categories.id, dishes.sort_order, dishes.id").
		Find(&out).Error
	return out, err
}

func (r *GormRepository) ListDishesByCategory(ctx context.Context, categoryID uint) ([]Dish, error) {
	var out []Dish
	err := r.db.WithContext(ctx).
		Where("category_id = ?", categoryID).
		Order("sort_order, id").
		Find(&out).Error
	return out, err
}

func (r *GormRepository) GetDish(ctx context.Context, id uint) (*Dish, error) {
	var d Dish
	if err := r.withRelations(ctx).First(&d, id).Error; err != nil {
		return nil, notFound(err, "dish", id)
	}
	return &d, nil
}

func (r *GormRepository) CreateDish(ctx context.Context, d *Dish) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Associations are written explicitly so allergens are linked, never upserted.
		allergens := d.Allergens
		if err := tx.Omit("Category", "Allergens").Create(d).Error; err != nil {
			return err
		}
		d.Allergens = allergens
		return linkAllergens(tx, d)
	})
}

func (r *GormRepository) UpdateDish(ctx context.Context, d *Dish) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&Dish{}).Where("id = ?", d.ID).Updates(map[string]any{
			"dish_number":     d.DishNumber,
			"name_cn":         d.NameCN,
			"name_it":         d.NameIT,
			"description_it":  d.DescriptionIT,
			"price":           d.Price,
			"image":           d.Image,
			"image_cdn_url":   d.ImageCDNURL,
			"category_id":     d.CategoryID,
			"sort_order":      d.SortOrder,
			"surgelato":       d.Surgelato,
			"is_popular":      d.IsPopular,
			"is_new":          d.IsNew,
			"is_vegan":        d.IsVegan,
			"spiciness_level": d.SpicinessLevel,
		})
		if err := affected(res, "dish", d.ID); err != nil {
			return err
		}

		if err := tx.Where("dish_id = ?", d.ID).Delete(&DishPortion{}).Error; err != nil {
			return err
		}
		for i := range d.Portions {
			d.Portions[i].ID = 0
			d.Portions[i].DishID = d.ID
		}
		if len(d.Portions) > 0 {
			if err := tx.Create(&d.Portions).Error; err != nil {
				return err
			}
		}

		if err := tx.Exec("DELETE FROM dish_allergens WHERE dish_id = ?", d.ID).Error; err != nil {
			return err
		}
		return linkAllergens(tx, d)
	})
}

func linkAllergens(tx *gorm.DB, d *Dish) error {
	for _, a := range d.Allergens {
		if err := tx.Exec(
			"INSERT INTO dish_allergens (dish_id, allergen_id) VALUES (?, ?)", d.ID, a.ID,
		).Error; err != nil {
			return fmt.Errorf("link allergen %d: %w", a.ID, err)
		}
	}
	return nil
}

func (r *GormRepository) DeleteDish(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("dish_id = ?", id).Delete(&DishPortion{}).Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM dish_allergens WHERE dish_id = ?", id).Error; err != nil {
			return err
		}
		return affected(tx.Delete(&Dish{}, id), "dish", id)
	})
}

// RenumberDishes parks every affected dish on a temporary number first so
// swaps inside the batch never trip the unique index.
func (r *GormRepository) RenumberDishes(ctx context.Context, numbers map[uint]string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for id := range numbers {
			res := tx.Model(&Dish{}).Where("id = ?", id).Update("dish_number", temporaryNumber(id))
			if err := affected(res, "dish", id); err != nil {
				return err
			}
		}
		for id, num := range numbers {
			if err := tx.Model(&Dish{}).Where("id = ?", id).Update("dish_number", num).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *GormRepository) SetDishImage(ctx context.Context, id uint, ref ImageRef) error {
	res := r.db.WithContext(ctx).Model(&Dish{}).Where("id = ?", id).Updates(map[string]any{
		"image":         ref.Local,
		"image_cdn_url": ref.CDN,
	})
	return affected(res, "dish", id)
}

func (r *GormRepository) SwapDishImage(ctx context.Context, id uint, old, next ImageRef) (bool, error) {
	res := r.db.WithContext(ctx).Model(&Dish{}).
		Where("id = ? AND image = ? AND image_cdn_url = ?", id, old.Local, old.CDN).
		Updates(map[string]any{
			"image":         next.Local,
			"image_cdn_url": next.CDN,
		})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		return true, nil
	}
	if _, err := r.GetDish(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

// temporaryNumber cannot collide with a real number: those start with A-Z.
func temporaryNumber(id uint) string {
	return fmt.Sprintf("#%d", id)
}
