package menu

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryRepository keeps the menu in process memory. Used by tests and by
// the API when no database is configured.
type MemoryRepository struct {
	mu sync.RWMutex

	categories map[uint]Category
	allergens  map[uint]Allergen
	dishes     map[uint]Dish
	dishAllerg map[uint][]uint // dish id -> allergen ids

	nextID uint
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		categories: make(map[uint]Category),
		allergens:  make(map[uint]Allergen),
		dishes:     make(map[uint]Dish),
		dishAllerg: make(map[uint][]uint),
	}
}

func (r *MemoryRepository) id() uint {
	r.nextID++
	return r.nextID
}

// -------------------------------
// Categories
// -------------------------------

func (r *MemoryRepository) ListCategories(ctx context.Context) ([]Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Category, 0, len(r.categories))
	for _, c := range r.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *MemoryRepository) GetCategory(ctx context.Context, id uint) (*Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.categories[id]
	if !ok {
		return nil, fmt.Errorf("category %d: %w", id, ErrNotFound)
	}
	return &c, nil
}

func (r *MemoryRepository) FindCategoryByPrefix(ctx context.Context, prefix string) (*Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, c := range r.categories {
		if c.PrefixLetter == prefix {
			return &c, nil
		}
	}
	return nil, fmt.Errorf("category with prefix %q: %w", prefix, ErrNotFound)
}

func (r *MemoryRepository) CreateCategory(ctx context.Context, c *Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c.ID = r.id()
	r.categories[c.ID] = *c
	return nil
}

func (r *MemoryRepository) UpdateCategory(ctx context.Context, c *Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.categories[c.ID]; !ok {
		return fmt.Errorf("category %d: %w", c.ID, ErrNotFound)
	}
	r.categories[c.ID] = *c
	return nil
}

func (r *MemoryRepository) DeleteCategory(ctx context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.categories[id]; !ok {
		return fmt.Errorf("category %d: %w", id, ErrNotFound)
	}
	delete(r.categories, id)
	return nil
}

func (r *MemoryRepository) CountDishesInCategory(ctx context.Context, categoryID uint) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var n int64
	for _, d := range r.dishes {
		if d.CategoryID == categoryID {
			n++
		}
	}
	return n, nil
}

// -------------------------------
// Allergens
// -------------------------------

func (r *MemoryRepository) ListAllergens(ctx context.Context) ([]Allergen, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Allergen, 0, len(r.allergens))
	for _, a := range r.allergens {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *MemoryRepository) GetAllergen(ctx context.Context, id uint) (*Allergen, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.allergens[id]
	if !ok {
		return nil, fmt.Errorf("allergen %d: %w", id, ErrNotFound)
	}
	return &a, nil
}

func (r *MemoryRepository) FindAllergens(ctx context.Context, ids []uint) ([]Allergen, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[uint]bool)
	var out []Allergen
	for _, id := range ids {
		a, ok := r.allergens[id]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, a)
	}
	return out, nil
}

func (r *MemoryRepository) CreateAllergen(ctx context.Context, a *Allergen) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a.ID = r.id()
	r.allergens[a.ID] = *a
	return nil
}

func (r *MemoryRepository) UpdateAllergen(ctx context.Context, a *Allergen) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.allergens[a.ID]; !ok {
		return fmt.Errorf("allergen %d: %w", a.ID, ErrNotFound)
	}
	r.allergens[a.ID] = *a
	return nil
}

func (r *MemoryRepository) DeleteAllergen(ctx context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.allergens[id]; !ok {
		return fmt.Errorf("allergen %d: %w", id, ErrNotFound)
	}
	for dishID, ids := range r.dishAllerg {
		kept := ids[:0]
		for _, a := range ids {
			if a != id {
				kept = append(kept, a)
			}
		}
		r.dishAllerg[dishID] = kept
	}
	delete(r.allergens, id)
	return nil
}

// -------------------------------
// Dishes
// -------------------------------

func (r *MemoryRepository) ListDishes(ctx context.Context) ([]Dish, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Dish, 0, len(r.dishes))
	for id := range r.dishes {
		out = append(out, r.load(id))
	}
	sort.Slice(out, func(i, j int) bool {
		ci, cj := r.categories[out[i].CategoryID], r.categories[out[j].CategoryID]
		if ci.SortOrder != cj.SortOrder {
			return ci.SortOrder < cj.SortOrder
		}
		if ci.ID != cj.ID {
			return ci.ID < cj.ID
		}
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *MemoryRepository) ListDishesByCategory(ctx context.Context, categoryID uint) ([]Dish, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Dish
	for _, d := range r.dishes {
		if d.CategoryID == categoryID {
			d.Portions, d.Allergens = nil, nil
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *MemoryRepository) GetDish(ctx context.Context, id uint) (*Dish, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.dishes[id]; !ok {
		return nil, fmt.Errorf("dish %d: %w", id, ErrNotFound)
	}
	d := r.load(id)
	return &d, nil
}

// load returns a copy of the dish with its relations attached. Caller holds mu.
func (r *MemoryRepository) load(id uint) Dish {
	d := r.dishes[id]
	d.Portions = append([]DishPortion(nil), d.Portions...)
	sort.SliceStable(d.Portions, func(i, j int) bool {
		return d.Portions[i].SortOrder < d.Portions[j].SortOrder
	})
	d.Allergens = nil
	for _, aid := range r.dishAllerg[id] {
		if a, ok := r.allergens[aid]; ok {
			d.Allergens = append(d.Allergens, a)
		}
	}
	return d
}

func (r *MemoryRepository) CreateDish(ctx context.Context, d *Dish) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.categories[d.CategoryID]; !ok {
		return fmt.Errorf("category %d: %w", d.CategoryID, ErrNotFound)
	}
	if err := r.checkNumberFree(d.DishNumber, 0); err != nil {
		return err
	}

	d.ID = r.id()
	r.store(d)
	return nil
}

func (r *MemoryRepository) UpdateDish(ctx context.Context, d *Dish) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.dishes[d.ID]; !ok {
		return fmt.Errorf("dish %d: %w", d.ID, ErrNotFound)
	}
	if err := r.checkNumberFree(d.DishNumber, d.ID); err != nil {
		return err
	}
	r.store(d)
	return nil
}

// store saves d, assigning ids to fresh portions. Caller holds mu.
func (r *MemoryRepository) store(d *Dish) {
	for i := range d.Portions {
		d.Portions[i].ID = r.id()
		d.Portions[i].DishID = d.ID
	}

	ids := make([]uint, 0, len(d.Allergens))
	for _, a := range d.Allergens {
		ids = append(ids, a.ID)
	}
	r.dishAllerg[d.ID] = ids

	row := *d
	row.Portions = append([]DishPortion(nil), d.Portions...)
	row.Allergens = nil
	row.Category = nil
	r.dishes[d.ID] = row
}

func (r *MemoryRepository) checkNumberFree(number string, self uint) error {
	for id, other := range r.dishes {
		if id != self && other.DishNumber == number {
			return fmt.Errorf("dish number %s already in use", number)
		}
	}
	return nil
}

func (r *MemoryRepository) DeleteDish(ctx context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.dishes[id]; !ok {
		return fmt.Errorf("dish %d: %w", id, ErrNotFound)
	}
	delete(r.dishes, id)
	delete(r.dishAllerg, id)
	return nil
}

func (r *MemoryRepository) RenumberDishes(ctx context.Context, numbers map[uint]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id := range numbers {
		if _, ok := r.dishes[id]; !ok {
			return fmt.Errorf("dish %d: %w", id, ErrNotFound)
		}
	}
	for id, num := range numbers {
		d := r.dishes[id]
		d.DishNumber = num
		r.dishes[id] = d
	}
	return nil
}

func (r *MemoryRepository) SwapDishImage(ctx context.Context, id uint, old, next ImageRef) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.dishes[id]
	if !ok {
		return false, fmt.Errorf("dish %d: %w", id, ErrNotFound)
	}
	if d.Image != old.Local || d.ImageCDNURL != old.CDN {
		return false, nil
	}
	d.Image, d.ImageCDNURL = next.Local, next.CDN
	r.dishes[id] = d
	return true, nil
}

func (r *MemoryRepository) SetDishImage(ctx context.Context, id uint, ref ImageRef) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.dishes[id]
	if !ok {
		return fmt.Errorf("dish %d: %w", id, ErrNotFound)
	}
	d.Image, d.ImageCDNURL = ref.Local, ref.CDN
	r.dishes[id] = d
	return nil
}
