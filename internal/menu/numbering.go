package menu

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// NextNumber returns prefix + (highest suffix in use + 1). Numbers that do
// not carry the prefix or whose suffix is not a positive integer are ignored.
func NextNumber(prefix string, existing []string) string {
	max := 0
	for _, num := range existing {
		if n, ok := numberSuffix(prefix, num); ok && n > max {
			max = n
		}
	}
	return fmt.Sprintf("%s%d", prefix, max+1)
}

// SequenceNumbers returns prefix1..prefixN.
func SequenceNumbers(prefix string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s%d", prefix, i+1)
	}
	return out
}

func numberSuffix(prefix, num string) (int, bool) {
	if prefix == "" || !strings.HasPrefix(num, prefix) {
		return 0, false
	}
	n, err := strconv.Atoi(num[len(prefix):])
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

// GenerateNumber computes the next free dish number in a category. It does
// not reserve the number; callers hold the category lock until the dish
// carrying it is persisted.
func (s *Service) GenerateNumber(ctx context.Context, categoryID uint) (string, error) {
	cat, err := s.repo.GetCategory(ctx, categoryID)
	if err != nil {
		return "", err
	}
	return s.generateNumber(ctx, cat)
}

func (s *Service) generateNumber(ctx context.Context, cat *Category) (string, error) {
	dishes, err := s.repo.ListDishesByCategory(ctx, cat.ID)
	if err != nil {
		return "", fmt.Errorf("list dishes of category %d: %w", cat.ID, err)
	}
	existing := make([]string, len(dishes))
	for i, d := range dishes {
		existing[i] = d.DishNumber
	}
	return NextNumber(cat.PrefixLetter, existing), nil
}

// Resequence renumbers every dish of the category to prefix1..prefixN in
// (sort order, id) order, closing any gaps.
func (s *Service) Resequence(ctx context.Context, categoryID uint) error {
	unlock := s.locks.lock(categoryID)
	defer unlock()
	return s.resequence(ctx, categoryID)
}

func (s *Service) resequence(ctx context.Context, categoryID uint) error {
	cat, err := s.repo.GetCategory(ctx, categoryID)
	if err != nil {
		return err
	}
	dishes, err := s.repo.ListDishesByCategory(ctx, categoryID)
	if err != nil {
		return fmt.Errorf("list dishes of category %d: %w", categoryID, err)
	}

	numbers := SequenceNumbers(cat.PrefixLetter, len(dishes))
	changed := make(map[uint]string)
	for i, d := range dishes {
		if d.DishNumber != numbers[i] {
			changed[d.ID] = numbers[i]
		}
	}
	if len(changed) == 0 {
		return nil
	}
	return s.repo.RenumberDishes(ctx, changed)
}

// categoryLocks serialises number allocation per category. An entry lives
// only while someone holds or waits for it.
type categoryLocks struct {
	mu    sync.Mutex
	locks map[uint]*categoryLock
}

type categoryLock struct {
	mu   sync.Mutex
	refs int
}

func newCategoryLocks() *categoryLocks {
	return &categoryLocks{locks: make(map[uint]*categoryLock)}
}

func (l *categoryLocks) lock(categoryID uint) func() {
	l.mu.Lock()
	e, ok := l.locks[categoryID]
	if !ok {
		e = &categoryLock{}
		l.locks[categoryID] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()

		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.locks, categoryID)
		}
		l.mu.Unlock()
	}
}

// lockPair takes two category locks in id order so a move between A and B
// cannot deadlock against a move between B and A.
func (l *categoryLocks) lockPair(a, b uint) func() {
	if a == b {
		return l.lock(a)
	}
	if a > b {
		a, b = b, a
	}
	ua := l.lock(a)
	ub := l.lock(b)
	return func() {
		ub()
		ua()
	}
}
