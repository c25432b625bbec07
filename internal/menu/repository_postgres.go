package menu

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func noRows(err error, what string, id any) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s %v: %w", what, id, ErrNotFound)
	}
	return err
}

func rowsAffected(n int64, what string, id uint) error {
	if n == 0 {
		return fmt.Errorf("%s %d: %w", what, id, ErrNotFound)
	}
	return nil
}

// --------------------------------------------------
// CATEGORIES
// --------------------------------------------------

const categoryColumns = `id, name_cn, name_it, sort_order, prefix_letter, created_at, updated_at`

func scanCategory(row pgx.Row) (*Category, error) {
	var c Category
	err := row.Scan(&c.ID, &c.NameCN, &c.NameIT, &c.SortOrder, &c.PrefixLetter, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *PostgresRepository) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+categoryColumns+`
		FROM categories
		ORDER BY sort_order, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) GetCategory(ctx context.Context, id uint) (*Category, error) {
	c, err := scanCategory(r.db.QueryRow(ctx, `
		SELECT `+categoryColumns+` FROM categories WHERE id = $1
	`, id))
	if err != nil {
		return nil, noRows(err, "category", id)
	}
	return c, nil
}

func (r *PostgresRepository) FindCategoryByPrefix(ctx context.Context, prefix string) (*Category, error) {
	c, err := scanCategory(r.db.QueryRow(ctx, `
		SELECT `+categoryColumns+` FROM categories WHERE prefix_letter = $1
		ORDER BY id LIMIT 1
	`, prefix))
	if err != nil {
		return nil, noRows(err, "category with prefix", prefix)
	}
	return c, nil
}

func (r *PostgresRepository) CreateCategory(ctx context.Context, c *Category) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO categories (name_cn, name_it, sort_order, prefix_letter, created_at, updated_at)
		VALUES ($1, $2, $3, $4, now(), now())
		RETURNING id, created_at, updated_at
	`, c.NameCN, c.NameIT, c.SortOrder, c.PrefixLetter).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
}

func (r *PostgresRepository) UpdateCategory(ctx context.Context, c *Category) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE categories
		SET name_cn = $1,
		    name_it = $2,
		    sort_order = $3,
		    prefix_letter = $4,
		    updated_at = now()
		WHERE id = $5
	`, c.NameCN, c.NameIT, c.SortOrder, c.PrefixLetter, c.ID)
	if err != nil {
		return err
	}
	return rowsAffected(tag.RowsAffected(), "category", c.ID)
}

func (r *PostgresRepository) DeleteCategory(ctx context.Context, id uint) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return rowsAffected(tag.RowsAffected(), "category", id)
}

func (r *PostgresRepository) CountDishesInCategory(ctx context.Context, categoryID uint) (int64, error) {
	var n int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM dishes WHERE category_id = $1`, categoryID).Scan(&n)
	return n, err
}

// --------------------------------------------------
// ALLERGENS
// --------------------------------------------------

const allergenColumns = `id, name_cn, name_it, icon, description_cn, description_it`

func scanAllergen(row pgx.Row) (*Allergen, error) {
	var a Allergen
	if err := row.Scan(&a.ID, &a.NameCN, &a.NameIT, &a.Icon, &a.DescriptionCN, &a.DescriptionIT); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *PostgresRepository) queryAllergens(ctx context.Context, sql string, args ...any) ([]Allergen, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Allergen
	for rows.Next() {
		a, err := scanAllergen(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) ListAllergens(ctx context.Context) ([]Allergen, error) {
	return r.queryAllergens(ctx, `SELECT `+allergenColumns+` FROM allergens ORDER BY id`)
}

func (r *PostgresRepository) GetAllergen(ctx context.Context, id uint) (*Allergen, error) {
	a, err := scanAllergen(r.db.QueryRow(ctx, `
		SELECT `+allergenColumns+` FROM allergens WHERE id = $1
	`, id))
	if err != nil {
		return nil, noRows(err, "allergen", id)
	}
	return a, nil
}

func (r *PostgresRepository) FindAllergens(ctx context.Context, ids []uint) ([]Allergen, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]int64, len(ids))
	for i, id := range ids {
		keys[i] = int64(id)
	}
	return r.queryAllergens(ctx, `
		SELECT `+allergenColumns+` FROM allergens WHERE id = ANY($1) ORDER BY id
	`, keys)
}

func (r *PostgresRepository) CreateAllergen(ctx context.Context, a *Allergen) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO allergens (name_cn, name_it, icon, description_cn, description_it)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, a.NameCN, a.NameIT, a.Icon, a.DescriptionCN, a.DescriptionIT).Scan(&a.ID)
}

func (r *PostgresRepository) UpdateAllergen(ctx context.Context, a *Allergen) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE allergens
		SET name_cn = $1, name_it = $2, icon = $3, description_cn = $4, description_it = $5
		WHERE id = $6
	`, a.NameCN, a.NameIT, a.Icon, a.DescriptionCN, a.DescriptionIT, a.ID)
	if err != nil {
		return err
	}
	return rowsAffected(tag.RowsAffected(), "allergen", a.ID)
}

func (r *PostgresRepository) DeleteAllergen(ctx context.Context, id uint) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM dish_allergens WHERE allergen_id = $1`, id); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM allergens WHERE id = $1`, id)
		if err != nil {
			return err
		}
		return rowsAffected(tag.RowsAffected(), "allergen", id)
	})
}

// --------------------------------------------------
// DISHES
// --------------------------------------------------

const dishColumns = `d.id, d.dish_number, d.name_cn, d.name_it, d.description_it, d.price,
	d.image, d.image_cdn_url, d.category_id, d.sort_order, d.surgelato, d.is_popular,
	d.is_new, d.is_vegan, d.spiciness_level, d.created_at, d.updated_at`

func scanDish(row pgx.Row) (*Dish, error) {
	var d Dish
	err := row.Scan(
		&d.ID, &d.DishNumber, &d.NameCN, &d.NameIT, &d.DescriptionIT, &d.Price,
		&d.Image, &d.ImageCDNURL, &d.CategoryID, &d.SortOrder, &d.Surgelato, &d.IsPopular,
		&d.IsNew, &d.IsVegan, &d.SpicinessLevel, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *PostgresRepository) queryDishes(ctx context.Context, sql string, args ...any) ([]Dish, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Dish
	for rows.Next() {
		d, err := scanDish(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) ListDishes(ctx context.Context) ([]Dish, error) {
	dishes, err := r.queryDishes(ctx, `
		SELECT `+dishColumns+`
		FROM dishes d
		JOIN categories c ON c.id = d.category_id
		ORDER BY c.sort_order, c.id, d.sort_order, d.id
	`)
	if err != nil {
		return nil, err
	}
	if err := r.loadRelations(ctx, dishes); err != nil {
		return nil, err
	}
	return dishes, nil
}

func (r *PostgresRepository) ListDishesByCategory(ctx context.Context, categoryID uint) ([]Dish, error) {
	return r.queryDishes(ctx, `
		SELECT `+dishColumns+`
		FROM dishes d
		WHERE d.category_id = $1
		ORDER BY d.sort_order, d.id
	`, categoryID)
}

func (r *PostgresRepository) GetDish(ctx context.Context, id uint) (*Dish, error) {
	d, err := scanDish(r.db.QueryRow(ctx, `
		SELECT `+dishColumns+` FROM dishes d WHERE d.id = $1
	`, id))
	if err != nil {
		return nil, noRows(err, "dish", id)
	}
	one := []Dish{*d}
	if err := r.loadRelations(ctx, one); err != nil {
		return nil, err
	}
	return &one[0], nil
}

// loadRelations attaches portions and allergens with two queries for the
// whole batch.
func (r *PostgresRepository) loadRelations(ctx context.Context, dishes []Dish) error {
	if len(dishes) == 0 {
		return nil
	}
	ids := make([]int64, len(dishes))
	index := make(map[uint]int, len(dishes))
	for i, d := range dishes {
		ids[i] = int64(d.ID)
		index[d.ID] = i
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, dish_id, portion_name_cn, portion_name_it, price, sort_order, is_default
		FROM dish_portions
		WHERE dish_id = ANY($1)
		ORDER BY sort_order, id
	`, ids)
	if err != nil {
		return err
	}
	for rows.Next() {
		var p DishPortion
		if err := rows.Scan(&p.ID, &p.DishID, &p.PortionNameCN, &p.PortionNameIT, &p.Price, &p.SortOrder, &p.IsDefault); err != nil {
			rows.Close()
			return err
		}
		i := index[p.DishID]
		dishes[i].Portions = append(dishes[i].Portions, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = r.db.Query(ctx, `
		SELECT da.dish_id, a.id, a.name_cn, a.name_it, a.icon, a.description_cn, a.description_it
		FROM dish_allergens da
		JOIN allergens a ON a.id = da.allergen_id
		WHERE da.dish_id = ANY($1)
		ORDER BY a.id
	`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var dishID uint
		var a Allergen
		if err := rows.Scan(&dishID, &a.ID, &a.NameCN, &a.NameIT, &a.Icon, &a.DescriptionCN, &a.DescriptionIT); err != nil {
			return err
		}
		i := index[dishID]
		dishes[i].Allergens = append(dishes[i].Allergens, a)
	}
	return rows.Err()
}

func (r *PostgresRepository) CreateDish(ctx context.Context, d *Dish) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO dishes (
				dish_number, name_cn, name_it, description_it, price,
				image, image_cdn_url, category_id, sort_order, surgelato,
				is_popular, is_new, is_vegan, spiciness_level, created_at, updated_at
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, now(), now())
			RETURNING id, created_at, updated_at
		`,
			d.DishNumber, d.NameCN, d.NameIT, d.DescriptionIT, d.Price,
			d.Image, d.ImageCDNURL, d.CategoryID, d.SortOrder, d.Surgelato,
			d.IsPopular, d.IsNew, d.IsVegan, d.SpicinessLevel,
		).Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt)
		if err != nil {
			return err
		}
		return writeChildren(ctx, tx, d)
	})
}

func (r *PostgresRepository) UpdateDish(ctx context.Context, d *Dish) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE dishes
			SET dish_number = $1,
			    name_cn = $2,
			    name_it = $3,
			    description_it = $4,
			    price = $5,
			    image = $6,
			    image_cdn_url = $7,
			    category_id = $8,
			    sort_order = $9,
			    surgelato = $10,
			    is_popular = $11,
			    is_new = $12,
			    is_vegan = $13,
			    spiciness_level = $14,
			    updated_at = now()
			WHERE id = $15
		`,
			d.DishNumber, d.NameCN, d.NameIT, d.DescriptionIT, d.Price,
			d.Image, d.ImageCDNURL, d.CategoryID, d.SortOrder, d.Surgelato,
			d.IsPopular, d.IsNew, d.IsVegan, d.SpicinessLevel, d.ID,
		)
		if err != nil {
			return err
		}
		if err := rowsAffected(tag.RowsAffected(), "dish", d.ID); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `DELETE FROM dish_portions WHERE dish_id = $1`, d.ID); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM dish_allergens WHERE dish_id = $1`, d.ID); err != nil {
			return err
		}
		return writeChildren(ctx, tx, d)
	})
}

// writeChildren inserts the portions and allergen links of d.
func writeChildren(ctx context.Context, tx pgx.Tx, d *Dish) error {
	for i := range d.Portions {
		p := &d.Portions[i]
		p.DishID = d.ID
		err := tx.QueryRow(ctx, `
			INSERT INTO dish_portions (dish_id, portion_name_cn, portion_name_it, price, sort_order, is_default)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id
		`, p.DishID, p.PortionNameCN, p.PortionNameIT, p.Price, p.SortOrder, p.IsDefault).Scan(&p.ID)
		if err != nil {
			return fmt.Errorf("insert portion: %w", err)
		}
	}
	for _, a := range d.Allergens {
		if _, err := tx.Exec(ctx, `
			INSERT INTO dish_allergens (dish_id, allergen_id) VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, d.ID, a.ID); err != nil {
			return fmt.Errorf("link allergen %d: %w", a.ID, err)
		}
	}
	return nil
}

func (r *PostgresRepository) DeleteDish(ctx context.Context, id uint) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM dish_portions WHERE dish_id = $1`, id); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM dish_allergens WHERE dish_id = $1`, id); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM dishes WHERE id = $1`, id)
		if err != nil {
			return err
		}
		return rowsAffected(tag.RowsAffected(), "dish", id)
	})
}

func (r *PostgresRepository) RenumberDishes(ctx context.Context, numbers map[uint]string) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		for id := range numbers {
			tag, err := tx.Exec(ctx, `UPDATE dishes SET dish_number = $1 WHERE id = $2`, temporaryNumber(id), id)
			if err != nil {
				return err
			}
			if err := rowsAffected(tag.RowsAffected(), "dish", id); err != nil {
				return err
			}
		}
		for id, num := range numbers {
			if _, err := tx.Exec(ctx, `
				UPDATE dishes SET dish_number = $1, updated_at = now() WHERE id = $2
			`, num, id); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *PostgresRepository) SetDishImage(ctx context.Context, id uint, ref ImageRef) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE dishes SET image = $1, image_cdn_url = $2, updated_at = now() WHERE id = $3
	`, ref.Local, ref.CDN, id)
	if err != nil {
		return err
	}
	return rowsAffected(tag.RowsAffected(), "dish", id)
}

func (r *PostgresRepository) SwapDishImage(ctx context.Context, id uint, old, next ImageRef) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE dishes SET image = $1, image_cdn_url = $2, updated_at = now()
		WHERE id = $3 AND image = $4 AND image_cdn_url = $5
	`, next.Local, next.CDN, id, old.Local, old.CDN)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() > 0 {
		return true, nil
	}
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM dishes WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, err
	}
	if !exists {
		return false, fmt.Errorf("dish %d: %w", id, ErrNotFound)
	}
	return false, nil
}
