package media

import (
	"context"
	"os"
	"testing"

	"github.com/chenyk320/menu/internal/imaging"
	"github.com/chenyk320/menu/internal/menu"
	"github.com/chenyk320/menu/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	repo   *menu.MemoryRepository
	local  *storage.LocalStore
	remote *fakeRemote
	cat    *menu.Category
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:   menu.NewMemoryRepository(),
		local:  newLocal(t),
		remote: newFakeRemote(),
		cat:    &menu.Category{NameCN: "主食", NameIT: "Piatti", PrefixLetter: "A"},
	}
	require.NoError(t, f.repo.CreateCategory(context.Background(), f.cat))
	return f
}

// addDish stores a dish whose local image file exists when withFile is set.
func (f *fixture) addDish(t *testing.T, number string, ref menu.ImageRef, withFile bool) *menu.Dish {
	t.Helper()
	if withFile {
		key := storage.KeyFromRef(ref.Local)
		require.NoError(t, os.WriteFile(f.local.Path(key), rgbaPNG(t, 30, 30), 0o644))
	}
	d := &menu.Dish{
		DishNumber: number, NameCN: "菜", NameIT: "Piatto", CategoryID: f.cat.ID,
		Image: ref.Local, ImageCDNURL: ref.CDN,
	}
	require.NoError(t, f.repo.CreateDish(context.Background(), d))
	return d
}

func TestStatus(t *testing.T) {
	f := newFixture(t)
	f.addDish(t, "A1", menu.ImageRef{Local: "/uploads/a1.jpg"}, true)
	f.addDish(t, "A2", menu.ImageRef{Local: "/uploads/a2.jpg"}, false)
	f.addDish(t, "A3", menu.ImageRef{Local: "/uploads/a3.jpg", CDN: "https://cdn.example.com/a3.jpg"}, true)
	f.addDish(t, "A4", menu.ImageRef{CDN: "https://cdn.example.com/a4.jpg"}, false)
	f.addDish(t, "A5", menu.ImageRef{}, false)

	m := NewMigrator(f.repo, f.local, nil, false, imaging.DefaultOptions())
	st, err := m.Status(context.Background())
	require.NoError(t, err)

	assert.False(t, st.RemoteEnabled)
	assert.Equal(t, 5, st.Total)
	assert.Equal(t, 3, st.WithLocal)
	assert.Equal(t, 2, st.WithCDN)
	assert.Equal(t, 1, st.Both)
	assert.Equal(t, 1, st.CDNOnly)
	assert.Equal(t, 2, st.LocalOnly)
	assert.Equal(t, 1, st.NoImage)
	assert.Equal(t, []string{"/uploads/a2.jpg"}, st.MissingFiles)
}

func TestMigrateToCDN(t *testing.T) {
	f := newFixture(t)
	ok := f.addDish(t, "A1", menu.ImageRef{Local: "/uploads/a1.jpg"}, true)
	missing := f.addDish(t, "A2", menu.ImageRef{Local: "/uploads/a2.jpg"}, false)
	done := f.addDish(t, "A3", menu.ImageRef{CDN: "https://cdn.example.com/a3.jpg"}, false)

	m := NewMigrator(f.repo, f.local, f.remote, false, imaging.DefaultOptions())
	res, err := m.MigrateToCDN(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, res.Candidates)
	assert.Equal(t, 1, res.Succeeded)
	assert.Equal(t, 1, res.Failed)

	got, err := f.repo.GetDish(context.Background(), ok.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/a1.jpg", got.ImageCDNURL)
	assert.Empty(t, got.Image)
	assert.False(t, f.local.Exists("a1.jpg"))
	assert.Contains(t, f.remote.objects, "a1.jpg")

	got, err = f.repo.GetDish(context.Background(), missing.ID)
	require.NoError(t, err)
	assert.Equal(t, "/uploads/a2.jpg", got.Image)
	assert.Empty(t, got.ImageCDNURL)

	got, err = f.repo.GetDish(context.Background(), done.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/a3.jpg", got.ImageCDNURL)
}

func TestMigrateToCDN_KeepsLocalBackup(t *testing.T) {
	f := newFixture(t)
	d := f.addDish(t, "A1", menu.ImageRef{Local: "/uploads/a1.jpg"}, true)

	m := NewMigrator(f.repo, f.local, f.remote, true, imaging.DefaultOptions())
	_, err := m.MigrateToCDN(context.Background())
	require.NoError(t, err)

	got, err := f.repo.GetDish(context.Background(), d.ID)
	require.NoError(t, err)
	assert.Equal(t, "/uploads/a1.jpg", got.Image)
	assert.NotEmpty(t, got.ImageCDNURL)
	assert.True(t, f.local.Exists("a1.jpg"))
}

func TestMigrateToCDN_RemoteDisabled(t *testing.T) {
	f := newFixture(t)
	m := NewMigrator(f.repo, f.local, nil, false, imaging.DefaultOptions())

	_, err := m.MigrateToCDN(context.Background())
	assert.ErrorIs(t, err, ErrRemoteDisabled)
}

func TestMigrateToCDN_UploadFailureLeavesDishUntouched(t *testing.T) {
	f := newFixture(t)
	d := f.addDish(t, "A1", menu.ImageRef{Local: "/uploads/a1.jpg"}, true)
	f.remote.fail = true

	m := NewMigrator(f.repo, f.local, f.remote, false, imaging.DefaultOptions())
	res, err := m.MigrateToCDN(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed)

	got, err := f.repo.GetDish(context.Background(), d.ID)
	require.NoError(t, err)
	assert.Equal(t, "/uploads/a1.jpg", got.Image)
	assert.Empty(t, got.ImageCDNURL)
	assert.True(t, f.local.Exists("a1.jpg"))
}

func TestCleanupLocal(t *testing.T) {
	f := newFixture(t)
	both := f.addDish(t, "A1", menu.ImageRef{Local: "/uploads/a1.jpg", CDN: "https://cdn.example.com/a1.jpg"}, true)
	localOnly := f.addDish(t, "A2", menu.ImageRef{Local: "/uploads/a2.jpg"}, true)

	m := NewMigrator(f.repo, f.local, nil, false, imaging.DefaultOptions())
	res, err := m.CleanupLocal(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Candidates)
	assert.Equal(t, 1, res.Succeeded)

	got, err := f.repo.GetDish(context.Background(), both.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Image)
	assert.Equal(t, "https://cdn.example.com/a1.jpg", got.ImageCDNURL)
	assert.False(t, f.local.Exists("a1.jpg"))

	got, err = f.repo.GetDish(context.Background(), localOnly.ID)
	require.NoError(t, err)
	assert.Equal(t, "/uploads/a2.jpg", got.Image)
	assert.True(t, f.local.Exists("a2.jpg"))
}


// editedDuringRun changes a dish image right after the batch has taken its
// snapshot, the way an admin edit racing the job would.
type editedDuringRun struct {
	*menu.MemoryRepository
	dishID uint
	ref    menu.ImageRef
}

func (r *editedDuringRun) ListDishes(ctx context.Context) ([]menu.Dish, error) {
	dishes, err := r.MemoryRepository.ListDishes(ctx)
	if err != nil {
		return nil, err
	}
	return dishes, r.MemoryRepository.SetDishImage(ctx, r.dishID, r.ref)
}

func TestMigrateToCDN_KeepsImageEditedDuringRun(t *testing.T) {
	f := newFixture(t)
	d := f.addDish(t, "A1", menu.ImageRef{Local: "/uploads/a1.jpg"}, true)
	edited := menu.ImageRef{Local: "/uploads/fresh.jpg"}
	repo := &editedDuringRun{MemoryRepository: f.repo, dishID: d.ID, ref: edited}

	m := NewMigrator(repo, f.local, f.remote, false, imaging.DefaultOptions())
	res, err := m.MigrateToCDN(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Succeeded)
	assert.Equal(t, 1, res.Failed)

	got, err := f.repo.GetDish(context.Background(), d.ID)
	require.NoError(t, err)
	assert.Equal(t, edited, got.ImageRef())
	assert.NotContains(t, f.remote.objects, "a1.jpg")
	assert.Contains(t, f.remote.deleted, "a1.jpg")
}

func TestCleanupLocal_KeepsImageEditedDuringRun(t *testing.T) {
	f := newFixture(t)
	d := f.addDish(t, "A1", menu.ImageRef{Local: "/uploads/a1.jpg", CDN: "https://cdn.example.com/a1.jpg"}, true)
	edited := menu.ImageRef{Local: "/uploads/fresh.jpg", CDN: "https://cdn.example.com/fresh.jpg"}
	repo := &editedDuringRun{MemoryRepository: f.repo, dishID: d.ID, ref: edited}

	m := NewMigrator(repo, f.local, nil, false, imaging.DefaultOptions())
	res, err := m.CleanupLocal(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed)

	got, err := f.repo.GetDish(context.Background(), d.ID)
	require.NoError(t, err)
	assert.Equal(t, edited, got.ImageRef())
	assert.True(t, f.local.Exists("a1.jpg"))
}
