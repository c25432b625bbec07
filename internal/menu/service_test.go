package menu

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeImages records ingest and remove calls.
type fakeImages struct {
	mu       sync.Mutex
	next     int
	removed  []ImageRef
	previous []ImageRef
	fail     error
}

func (f *fakeImages) Ingest(ctx context.Context, r io.Reader, filename string, previous ImageRef) (ImageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return ImageRef{}, f.fail
	}
	if _, err := io.Copy(io.Discard, r); err != nil {
		return ImageRef{}, err
	}
	f.previous = append(f.previous, previous)
	if !previous.IsZero() {
		f.removed = append(f.removed, previous)
	}
	f.next++
	return ImageRef{Local: "/uploads/" + filename, CDN: "https://cdn.test/" + filename}, nil
}

func (f *fakeImages) Remove(ctx context.Context, ref ImageRef) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, ref)
}

type serviceFixture struct {
	svc    *Service
	repo   *MemoryRepository
	images *fakeImages
	catA   *Category
	catB   *Category
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	repo := NewMemoryRepository()
	images := &fakeImages{}
	svc := NewService(repo, images)

	ctx := context.Background()
	a, err := svc.CreateCategory(ctx, CategoryInput{NameCN: "主食", NameIT: "Piatti Principali", SortOrder: 1, PrefixLetter: "A"})
	require.NoError(t, err)
	b, err := svc.CreateCategory(ctx, CategoryInput{NameCN: "凉菜", NameIT: "Piatti Freddi", SortOrder: 2, PrefixLetter: "B"})
	require.NoError(t, err)

	return &serviceFixture{svc: svc, repo: repo, images: images, catA: a, catB: b}
}

func (f *serviceFixture) addDish(t *testing.T, cat *Category, name string) *Dish {
	t.Helper()
	d, err := f.svc.CreateDish(context.Background(), DishInput{
		NameCN: name, NameIT: name, Price: 5, CategoryID: cat.ID,
	}, nil)
	require.NoError(t, err)
	return d
}

func numbers(t *testing.T, repo Repository, categoryID uint) map[string]string {
	t.Helper()
	dishes, err := repo.ListDishesByCategory(context.Background(), categoryID)
	require.NoError(t, err)
	out := make(map[string]string, len(dishes))
	for _, d := range dishes {
		out[d.NameIT] = d.DishNumber
	}
	return out
}

func requireValidation(t *testing.T, err error, msg string) {
	t.Helper()
	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "want ValidationError, got %v", err)
	if msg != "" {
		assert.Equal(t, msg, verr.Message)
	}
}

func TestCreateDishNumbersSequentially(t *testing.T) {
	f := newServiceFixture(t)

	assert.Equal(t, "A1", f.addDish(t, f.catA, "one").DishNumber)
	assert.Equal(t, "A2", f.addDish(t, f.catA, "two").DishNumber)
	assert.Equal(t, "B1", f.addDish(t, f.catB, "cold").DishNumber)
}

func TestCreateDishUnknownCategory(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.svc.CreateDish(context.Background(), DishInput{NameCN: "x", NameIT: "y", CategoryID: 99}, nil)
	requireValidation(t, err, "unable to generate a dish number, check the category settings")
}

func TestCreateDishMissingCategory(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.svc.CreateDish(context.Background(), DishInput{NameCN: "x", NameIT: "y"}, nil)
	requireValidation(t, err, "please select a dish category")
}

func TestCreateDishWithImagePortionsAndAllergens(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	milk, err := f.svc.CreateAllergen(ctx, AllergenInput{NameCN: "牛奶", NameIT: "Latte", Icon: "images/allergens/Milk.jpg"})
	require.NoError(t, err)

	d, err := f.svc.CreateDish(ctx, DishInput{
		NameCN: "奶茶", NameIT: "Tè al latte", Price: 3, CategoryID: f.catA.ID,
		Portions: []DishPortion{
			{PortionNameCN: "中", PortionNameIT: "Media", Price: 3, SortOrder: 0, IsDefault: true},
			{PortionNameCN: "大", PortionNameIT: "Grande", Price: 4, SortOrder: 1},
		},
		AllergenIDs: []uint{milk.ID, 12345},
	}, &Upload{Filename: "tea.jpg", Body: emptyReader{}})
	require.NoError(t, err)

	got, err := f.svc.GetDish(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, "/uploads/tea.jpg", got.Image)
	assert.Equal(t, "https://cdn.test/tea.jpg", got.DisplayImage())
	require.Len(t, got.Portions, 2)
	assert.Equal(t, "Media", got.Portions[0].PortionNameIT)
	require.Len(t, got.Allergens, 1)
	assert.Equal(t, "Latte", got.Allergens[0].NameIT)
}

type emptyReader struct{}

func (emptyReader) Read([]byte) (int, error) { return 0, io.EOF }

func TestCreateDishImageRejected(t *testing.T) {
	f := newServiceFixture(t)
	f.images.fail = &ValidationError{Message: "unsupported image format"}

	_, err := f.svc.CreateDish(context.Background(), DishInput{
		NameCN: "x", NameIT: "y", CategoryID: f.catA.ID,
	}, &Upload{Filename: "x.txt", Body: emptyReader{}})
	requireValidation(t, err, "unsupported image format")

	n, _ := f.repo.CountDishesInCategory(context.Background(), f.catA.ID)
	assert.Zero(t, n)
}

func TestDeleteDishResequences(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	f.addDish(t, f.catA, "one")
	two := f.addDish(t, f.catA, "two")
	f.addDish(t, f.catA, "three")

	require.NoError(t, f.svc.DeleteDish(ctx, two.ID))

	assert.Equal(t, map[string]string{"one": "A1", "three": "A2"}, numbers(t, f.repo, f.catA.ID))
	assert.Equal(t, "A3", f.addDish(t, f.catA, "four").DishNumber)
}

func TestDeleteDishRemovesImage(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	d := f.addDish(t, f.catA, "one")
	ref := ImageRef{Local: "/uploads/one.jpg", CDN: "https://cdn.test/one.jpg"}
	require.NoError(t, f.repo.SetDishImage(ctx, d.ID, ref))

	require.NoError(t, f.svc.DeleteDish(ctx, d.ID))
	assert.Equal(t, []ImageRef{ref}, f.images.removed)

	_, err := f.svc.GetDish(ctx, d.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteDishNotFound(t *testing.T) {
	f := newServiceFixture(t)
	assert.ErrorIs(t, f.svc.DeleteDish(context.Background(), 404), ErrNotFound)
}

func TestUpdateDishMovesCategory(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	one := f.addDish(t, f.catA, "one")
	f.addDish(t, f.catA, "two")
	f.addDish(t, f.catB, "cold")

	moved, err := f.svc.UpdateDish(ctx, one.ID, DishInput{
		NameCN: "one", NameIT: "one", Price: 7, CategoryID: f.catB.ID,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "B2", moved.DishNumber)
	assert.Equal(t, 7.0, moved.Price)

	assert.Equal(t, map[string]string{"two": "A1"}, numbers(t, f.repo, f.catA.ID))
	assert.Equal(t, map[string]string{"cold": "B1", "one": "B2"}, numbers(t, f.repo, f.catB.ID))
}

func TestUpdateDishSameCategoryKeepsNumber(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	f.addDish(t, f.catA, "one")
	two := f.addDish(t, f.catA, "two")

	got, err := f.svc.UpdateDish(ctx, two.ID, DishInput{
		NameCN: "二", NameIT: "due", Price: 1, CategoryID: f.catA.ID,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "A2", got.DishNumber)
	assert.Equal(t, "due", got.NameIT)
}

func TestUpdateDishReplacesImageAndChildren(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	egg, err := f.svc.CreateAllergen(ctx, AllergenInput{NameCN: "鸡蛋", NameIT: "Uova", Icon: "e.jpg"})
	require.NoError(t, err)

	d, err := f.svc.CreateDish(ctx, DishInput{
		NameCN: "x", NameIT: "x", CategoryID: f.catA.ID,
		Portions:    []DishPortion{{PortionNameIT: "Piccola", Price: 1}},
		AllergenIDs: []uint{egg.ID},
	}, &Upload{Filename: "old.jpg", Body: emptyReader{}})
	require.NoError(t, err)

	got, err := f.svc.UpdateDish(ctx, d.ID, DishInput{
		NameCN: "x", NameIT: "x", CategoryID: f.catA.ID,
	}, &Upload{Filename: "new.jpg", Body: emptyReader{}})
	require.NoError(t, err)

	assert.Equal(t, "/uploads/new.jpg", got.Image)
	assert.Equal(t, ImageRef{Local: "/uploads/old.jpg", CDN: "https://cdn.test/old.jpg"}, f.images.previous[1])

	stored, err := f.svc.GetDish(ctx, d.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Portions)
	assert.Empty(t, stored.Allergens)
}

func TestUpdateDishWithoutImageKeepsIt(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	d, err := f.svc.CreateDish(ctx, DishInput{NameCN: "x", NameIT: "x", CategoryID: f.catA.ID},
		&Upload{Filename: "keep.jpg", Body: emptyReader{}})
	require.NoError(t, err)

	got, err := f.svc.UpdateDish(ctx, d.ID, DishInput{NameCN: "y", NameIT: "y", CategoryID: f.catA.ID}, nil)
	require.NoError(t, err)
	assert.Equal(t, "/uploads/keep.jpg", got.Image)
}

func TestUpdateDishFailedUploadClearsDiscardedImage(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	d, err := f.svc.CreateDish(ctx, DishInput{NameCN: "x", NameIT: "x", CategoryID: f.catA.ID},
		&Upload{Filename: "old.jpg", Body: emptyReader{}})
	require.NoError(t, err)

	f.images.fail = fmt.Errorf("%w: %w", ErrImageDiscarded, &ValidationError{Message: "unsupported image format"})
	_, err = f.svc.UpdateDish(ctx, d.ID, DishInput{NameCN: "y", NameIT: "y", CategoryID: f.catA.ID},
		&Upload{Filename: "bad.jpg", Body: emptyReader{}})
	requireValidation(t, err, "unsupported image format")

	got, err := f.svc.GetDish(ctx, d.ID)
	require.NoError(t, err)
	assert.True(t, got.ImageRef().IsZero())
	assert.Equal(t, "x", got.NameIT)
}

func TestDeleteDishImage(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	d := f.addDish(t, f.catA, "one")
	requireValidation(t, f.svc.DeleteDishImage(ctx, d.ID), "dish has no image")

	ref := ImageRef{Local: "/uploads/a.jpg"}
	require.NoError(t, f.repo.SetDishImage(ctx, d.ID, ref))
	require.NoError(t, f.svc.DeleteDishImage(ctx, d.ID))

	got, _ := f.svc.GetDish(ctx, d.ID)
	assert.True(t, got.ImageRef().IsZero())
	assert.Equal(t, []ImageRef{ref}, f.images.removed)

	assert.ErrorIs(t, f.svc.DeleteDishImage(ctx, 999), ErrNotFound)
}

func TestServiceDeleteCategoryInUse(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	f.addDish(t, f.catA, "one")
	f.addDish(t, f.catA, "two")

	err := f.svc.DeleteCategory(ctx, f.catA.ID)
	var inUse *CategoryInUseError
	require.True(t, errors.As(err, &inUse))
	assert.Equal(t, int64(2), inUse.Dishes)
	assert.Equal(t, "category still has 2 dishes and cannot be deleted", err.Error())

	require.NoError(t, f.svc.DeleteCategory(ctx, f.catB.ID))
	assert.ErrorIs(t, f.svc.DeleteCategory(ctx, f.catB.ID), ErrNotFound)
}

func TestCreateCategoryDuplicatePrefix(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.svc.CreateCategory(context.Background(), CategoryInput{NameCN: "x", NameIT: "y", PrefixLetter: "a"})
	requireValidation(t, err, "prefix letter A is already in use")
}

func TestUpdateCategoryPrefixRenumbers(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	f.addDish(t, f.catA, "one")
	f.addDish(t, f.catA, "two")

	cat, err := f.svc.UpdateCategory(ctx, f.catA.ID, CategoryInput{
		NameCN: "主食", NameIT: "Primi", SortOrder: 1, PrefixLetter: "m",
	})
	require.NoError(t, err)
	assert.Equal(t, "M", cat.PrefixLetter)
	assert.Equal(t, map[string]string{"one": "M1", "two": "M2"}, numbers(t, f.repo, f.catA.ID))

	_, err = f.svc.UpdateCategory(ctx, f.catA.ID, CategoryInput{NameCN: "x", NameIT: "y", PrefixLetter: "B"})
	requireValidation(t, err, "prefix letter B is already in use")
}

func TestResequenceFollowsSortOrder(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	first := f.addDish(t, f.catA, "first")
	f.addDish(t, f.catA, "second")

	_, err := f.svc.UpdateDish(ctx, first.ID, DishInput{NameCN: "first", NameIT: "first", CategoryID: f.catA.ID, SortOrder: 5}, nil)
	require.NoError(t, err)

	require.NoError(t, f.svc.Resequence(ctx, f.catA.ID))
	assert.Equal(t, map[string]string{"second": "A1", "first": "A2"}, numbers(t, f.repo, f.catA.ID))
}

func TestDeleteAllergenDetachesDishes(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	fish, err := f.svc.CreateAllergen(ctx, AllergenInput{NameCN: "鱼类", NameIT: "Pesce", Icon: "f.jpg"})
	require.NoError(t, err)
	d, err := f.svc.CreateDish(ctx, DishInput{NameCN: "鱼", NameIT: "Pesce", CategoryID: f.catA.ID, AllergenIDs: []uint{fish.ID}}, nil)
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteAllergen(ctx, fish.ID))

	got, err := f.svc.GetDish(ctx, d.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Allergens)
	assert.ErrorIs(t, f.svc.DeleteAllergen(ctx, fish.ID), ErrNotFound)
}

func TestUpdateAllergen(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	a, err := f.svc.CreateAllergen(ctx, AllergenInput{NameCN: "芹菜", NameIT: "Sedano", Icon: "c.jpg"})
	require.NoError(t, err)

	got, err := f.svc.UpdateAllergen(ctx, a.ID, AllergenInput{NameCN: "芹菜", NameIT: "Sedano", Icon: "celery.jpg", DescriptionIT: "e derivati"})
	require.NoError(t, err)
	assert.Equal(t, "celery.jpg", got.Icon)

	_, err = f.svc.UpdateAllergen(ctx, 999, AllergenInput{NameCN: "x", NameIT: "y", Icon: "z"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConcurrentCreatesGetDistinctNumbers(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.CreateDish(ctx, DishInput{NameCN: "x", NameIT: "x", CategoryID: f.catA.ID}, nil)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	dishes, err := f.repo.ListDishesByCategory(ctx, f.catA.ID)
	require.NoError(t, err)
	seen := make(map[string]bool)
	for _, d := range dishes {
		assert.False(t, seen[d.DishNumber], "duplicate %s", d.DishNumber)
		seen[d.DishNumber] = true
	}
	assert.Len(t, seen, 20)
}
