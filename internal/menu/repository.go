package menu

import "context"

// Repository defines all database operations for the menu.
// Lookups of missing rows return ErrNotFound.
type Repository interface {

	// -------------------------------
	// Categories
	// -------------------------------

	// Ordered by sort order, then id.
	ListCategories(ctx context.Context) ([]Category, error)
	GetCategory(ctx context.Context, id uint) (*Category, error)
	FindCategoryByPrefix(ctx context.Context, prefix string) (*Category, error)
	CreateCategory(ctx context.Context, c *Category) error
	UpdateCategory(ctx context.Context, c *Category) error
	DeleteCategory(ctx context.Context, id uint) error
	CountDishesInCategory(ctx context.Context, categoryID uint) (int64, error)

	// -------------------------------
	// Allergens
	// -------------------------------

	ListAllergens(ctx context.Context) ([]Allergen, error)
	GetAllergen(ctx context.Context, id uint) (*Allergen, error)

	// Only ids that exist are returned; unknown ids are skipped.
	FindAllergens(ctx context.Context, ids []uint) ([]Allergen, error)
	CreateAllergen(ctx context.Context, a *Allergen) error
	UpdateAllergen(ctx context.Context, a *Allergen) error

	// Removes the dish associations first, then the allergen.
	DeleteAllergen(ctx context.Context, id uint) error

	// -------------------------------
	// Dishes
	// -------------------------------

	// Display order: category sort order, dish sort order, id.
	// Portions (by sort order) and allergens are loaded.
	ListDishes(ctx context.Context) ([]Dish, error)

	// Ordered by sort order, then id. Relations are not loaded.
	ListDishesByCategory(ctx context.Context, categoryID uint) ([]Dish, error)
	GetDish(ctx context.Context, id uint) (*Dish, error)

	// Inserts the dish with its portions and allergen associations.
	CreateDish(ctx context.Context, d *Dish) error

	// Updates scalar fields and replaces portions and allergens wholesale.
	UpdateDish(ctx context.Context, d *Dish) error

	// Deletes portions, allergen associations and the dish.
	DeleteDish(ctx context.Context, id uint) error

	// Applies dish id -> number in one batch.
	RenumberDishes(ctx context.Context, numbers map[uint]string) error

	SetDishImage(ctx context.Context, id uint, ref ImageRef) error

	// Writes next only while the dish still carries old. Reports false when
	// the image changed in between; a missing dish is ErrNotFound.
	SwapDishImage(ctx context.Context, id uint, old, next ImageRef) (bool, error)
}
