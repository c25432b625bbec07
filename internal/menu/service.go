package menu

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
)

// ImageIngestor turns uploads into stored image references.
type ImageIngestor interface {
	// Ingest stores a new upload. A non-zero previous ref is removed before
	// the new image is written; a failure after that point wraps
	// ErrImageDiscarded.
	Ingest(ctx context.Context, r io.Reader, filename string, previous ImageRef) (ImageRef, error)

	// Remove deletes every stored copy of ref, best-effort.
	Remove(ctx context.Context, ref ImageRef)
}

// Upload is an image file submitted with a dish.
type Upload struct {
	Filename string
	Body     io.Reader
}

type Service struct {
	repo   Repository
	images ImageIngestor
	locks  *categoryLocks
}

// NewService wires the menu service. images may be nil, in which case
// uploads are ignored.
func NewService(repo Repository, images ImageIngestor) *Service {
	return &Service{
		repo:   repo,
		images: images,
		locks:  newCategoryLocks(),
	}
}

// --------------------------------------------------
// Public reads
// --------------------------------------------------

func (s *Service) ListCategories(ctx context.Context) ([]Category, error) {
	return s.repo.ListCategories(ctx)
}

func (s *Service) ListDishes(ctx context.Context) ([]Dish, error) {
	return s.repo.ListDishes(ctx)
}

func (s *Service) ListAllergens(ctx context.Context) ([]Allergen, error) {
	return s.repo.ListAllergens(ctx)
}

func (s *Service) GetDish(ctx context.Context, id uint) (*Dish, error) {
	return s.repo.GetDish(ctx, id)
}

// --------------------------------------------------
// Categories
// --------------------------------------------------

func (s *Service) CreateCategory(ctx context.Context, in CategoryInput) (*Category, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	if err := s.ensurePrefixFree(ctx, in.PrefixLetter, 0); err != nil {
		return nil, err
	}

	cat := &Category{
		NameCN:       in.NameCN,
		NameIT:       in.NameIT,
		SortOrder:    in.SortOrder,
		PrefixLetter: in.PrefixLetter,
	}
	if err := s.repo.CreateCategory(ctx, cat); err != nil {
		return nil, err
	}
	return cat, nil
}

// UpdateCategory edits a category. Changing the prefix letter renumbers every
// dish of the category under the new letter.
func (s *Service) UpdateCategory(ctx context.Context, id uint, in CategoryInput) (*Category, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}

	unlock := s.locks.lock(id)
	defer unlock()

	cat, err := s.repo.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}

	prefixChanged := cat.PrefixLetter != in.PrefixLetter
	if prefixChanged {
		if err := s.ensurePrefixFree(ctx, in.PrefixLetter, id); err != nil {
			return nil, err
		}
	}

	cat.NameCN = in.NameCN
	cat.NameIT = in.NameIT
	cat.SortOrder = in.SortOrder
	cat.PrefixLetter = in.PrefixLetter
	if err := s.repo.UpdateCategory(ctx, cat); err != nil {
		return nil, err
	}

	if prefixChanged {
		if err := s.resequence(ctx, id); err != nil {
			return nil, fmt.Errorf("renumber dishes after prefix change: %w", err)
		}
	}
	return cat, nil
}

// DeleteCategory refuses while any dish still references the category.
func (s *Service) DeleteCategory(ctx context.Context, id uint) error {
	unlock := s.locks.lock(id)
	defer unlock()

	if _, err := s.repo.GetCategory(ctx, id); err != nil {
		return err
	}

	count, err := s.repo.CountDishesInCategory(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return &CategoryInUseError{CategoryID: id, Dishes: count}
	}
	return s.repo.DeleteCategory(ctx, id)
}

// The uniqueness check is best-effort: two concurrent creates with the same
// letter can both pass it.
func (s *Service) ensurePrefixFree(ctx context.Context, prefix string, self uint) error {
	existing, err := s.repo.FindCategoryByPrefix(ctx, prefix)
	switch {
	case errors.Is(err, ErrNotFound):
		return nil
	case err != nil:
		return err
	case existing.ID != self:
		return invalid("prefix letter %s is already in use", prefix)
	}
	return nil
}

// --------------------------------------------------
// Allergens
// --------------------------------------------------

func (s *Service) CreateAllergen(ctx context.Context, in AllergenInput) (*Allergen, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	a := &Allergen{
		NameCN:        in.NameCN,
		NameIT:        in.NameIT,
		Icon:          in.Icon,
		DescriptionCN: in.DescriptionCN,
		DescriptionIT: in.DescriptionIT,
	}
	if err := s.repo.CreateAllergen(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Service) UpdateAllergen(ctx context.Context, id uint, in AllergenInput) (*Allergen, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	a, err := s.repo.GetAllergen(ctx, id)
	if err != nil {
		return nil, err
	}
	a.NameCN = in.NameCN
	a.NameIT = in.NameIT
	a.Icon = in.Icon
	a.DescriptionCN = in.DescriptionCN
	a.DescriptionIT = in.DescriptionIT
	if err := s.repo.UpdateAllergen(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// DeleteAllergen detaches the allergen from every dish, then deletes it.
func (s *Service) DeleteAllergen(ctx context.Context, id uint) error {
	if _, err := s.repo.GetAllergen(ctx, id); err != nil {
		return err
	}
	return s.repo.DeleteAllergen(ctx, id)
}

// --------------------------------------------------
// Dishes
// --------------------------------------------------

// CreateDish validates the input, assigns the next number of the category,
// stores the optional image and inserts the dish.
func (s *Service) CreateDish(ctx context.Context, in DishInput, img *Upload) (*Dish, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	unlock := s.locks.lock(in.CategoryID)
	defer unlock()

	cat, err := s.categoryForDish(ctx, in.CategoryID)
	if err != nil {
		return nil, err
	}

	number, err := s.generateNumber(ctx, cat)
	if err != nil {
		return nil, err
	}

	ref, err := s.ingest(ctx, img, ImageRef{})
	if err != nil {
		return nil, err
	}

	dish := &Dish{DishNumber: number}
	applyInput(dish, in)
	dish.Image, dish.ImageCDNURL = ref.Local, ref.CDN

	if dish.Allergens, err = s.repo.FindAllergens(ctx, in.AllergenIDs); err != nil {
		s.discard(ctx, ref)
		return nil, err
	}

	if err := s.repo.CreateDish(ctx, dish); err != nil {
		s.discard(ctx, ref)
		return nil, fmt.Errorf("create dish %s: %w", number, err)
	}
	return dish, nil
}

// UpdateDish edits a dish in place. Moving it to another category gives it the
// next number there and closes the gap it leaves behind. Portions and
// allergens are replaced wholesale.
func (s *Service) UpdateDish(ctx context.Context, id uint, in DishInput, img *Upload) (*Dish, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	dish, unlock, err := s.lockDish(ctx, id, in.CategoryID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	oldCategoryID := dish.CategoryID
	moved := oldCategoryID != in.CategoryID

	if moved {
		cat, err := s.categoryForDish(ctx, in.CategoryID)
		if err != nil {
			return nil, err
		}
		if dish.DishNumber, err = s.generateNumber(ctx, cat); err != nil {
			return nil, err
		}
	}

	if img != nil {
		ref, err := s.ingest(ctx, img, dish.ImageRef())
		if errors.Is(err, ErrImageDiscarded) {
			if serr := s.repo.SetDishImage(ctx, id, ImageRef{}); serr != nil {
				log.Printf("clear image of dish %d: %v", id, serr)
			}
		}
		if err != nil {
			return nil, err
		}
		dish.Image, dish.ImageCDNURL = ref.Local, ref.CDN
	}

	applyInput(dish, in)
	if dish.Allergens, err = s.repo.FindAllergens(ctx, in.AllergenIDs); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateDish(ctx, dish); err != nil {
		return nil, fmt.Errorf("update dish %d: %w", id, err)
	}

	if moved {
		if err := s.resequence(ctx, oldCategoryID); err != nil {
			return nil, fmt.Errorf("resequence category %d: %w", oldCategoryID, err)
		}
	}
	return dish, nil
}

// DeleteDish removes the dish with its portions and images, then renumbers
// what is left of its category.
func (s *Service) DeleteDish(ctx context.Context, id uint) error {
	dish, unlock, err := s.lockDish(ctx, id, 0)
	if err != nil {
		return err
	}
	defer unlock()

	s.discard(ctx, dish.ImageRef())

	if err := s.repo.DeleteDish(ctx, id); err != nil {
		return err
	}
	return s.resequence(ctx, dish.CategoryID)
}

// DeleteDishImage drops the image of a dish without touching the dish itself.
func (s *Service) DeleteDishImage(ctx context.Context, id uint) error {
	dish, err := s.repo.GetDish(ctx, id)
	if err != nil {
		return err
	}
	ref := dish.ImageRef()
	if ref.IsZero() {
		return &ValidationError{Message: ErrNoImage.Error()}
	}

	s.discard(ctx, ref)
	return s.repo.SetDishImage(ctx, id, ImageRef{})
}

// lockDish loads the dish and locks its current category plus target (when
// non-zero). The dish is re-read under the lock in case it moved meanwhile.
func (s *Service) lockDish(ctx context.Context, id, target uint) (*Dish, func(), error) {
	for {
		dish, err := s.repo.GetDish(ctx, id)
		if err != nil {
			return nil, nil, err
		}
		other := target
		if other == 0 {
			other = dish.CategoryID
		}
		unlock := s.locks.lockPair(dish.CategoryID, other)

		current, err := s.repo.GetDish(ctx, id)
		if err != nil {
			unlock()
			return nil, nil, err
		}
		if current.CategoryID == dish.CategoryID {
			return current, unlock, nil
		}
		unlock()
	}
}

// An unknown category while numbering a dish is the caller's mistake.
func (s *Service) categoryForDish(ctx context.Context, id uint) (*Category, error) {
	cat, err := s.repo.GetCategory(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, invalid("unable to generate a dish number, check the category settings")
	}
	return cat, err
}

func (s *Service) ingest(ctx context.Context, img *Upload, previous ImageRef) (ImageRef, error) {
	if img == nil || img.Body == nil {
		return previous, nil
	}
	if s.images == nil {
		log.Printf("image upload %q ignored: no image store configured", img.Filename)
		return previous, nil
	}
	return s.images.Ingest(ctx, img.Body, img.Filename, previous)
}

func (s *Service) discard(ctx context.Context, ref ImageRef) {
	if s.images == nil || ref.IsZero() {
		return
	}
	s.images.Remove(ctx, ref)
}

func applyInput(d *Dish, in DishInput) {
	d.NameCN = in.NameCN
	d.NameIT = in.NameIT
	d.DescriptionIT = in.DescriptionIT
	d.Price = in.Price
	d.CategoryID = in.CategoryID
	d.SortOrder = in.SortOrder
	d.Surgelato = in.Surgelato
	d.IsPopular = in.IsPopular
	d.IsNew = in.IsNew
	d.IsVegan = in.IsVegan
	d.SpicinessLevel = in.SpicinessLevel

	portions := make([]DishPortion, len(in.Portions))
	for i, p := range in.Portions {
		p.ID = 0
		p.DishID = d.ID
		portions[i] = p
	}
	d.Portions = portions
}
