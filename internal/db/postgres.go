package db

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

func ConnectPostgres(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = time.Hour

	db, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres connection failed: %w", err)
	}

	log.Println("✅ Connected to PostgreSQL")

	if err := InitSchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return db, nil
}

// InitSchema creates or updates the database schema
func InitSchema(ctx context.Context, db *pgxpool.Pool) error {

	// -------------------------------
	// CATEGORIES
	// -------------------------------
	categoriesSQL := `
		CREATE TABLE IF NOT EXISTS categories (
			id SERIAL PRIMARY KEY,
			name_cn VARCHAR(50) NOT NULL,
			name_it VARCHAR(50) NOT NULL,
			sort_order INT NOT NULL DEFAULT 0,
			prefix_letter VARCHAR(1) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`
	if _, err := db.Exec(ctx, categoriesSQL); err != nil {
		return err
	}

	// -------------------------------
	// ALLERGENS
	// -------------------------------
	allergensSQL := `
		CREATE TABLE IF NOT EXISTS allergens (
			id SERIAL PRIMARY KEY,
			name_cn VARCHAR(50) NOT NULL,
			name_it VARCHAR(50) NOT NULL,
			icon VARCHAR(100) NOT NULL,
			description_cn VARCHAR(200) NOT NULL DEFAULT '',
			description_it VARCHAR(200) NOT NULL DEFAULT ''
		)
	`
	if _, err := db.Exec(ctx, allergensSQL); err != nil {
		return err
	}

	// -------------------------------
	// DISHES
	// -------------------------------
	dishesSQL := `
		CREATE TABLE IF NOT EXISTS dishes (
			id SERIAL PRIMARY KEY,
			dish_number VARCHAR(20) NOT NULL UNIQUE,
			name_cn VARCHAR(100) NOT NULL,
			name_it VARCHAR(100) NOT NULL,
			description_it TEXT NOT NULL DEFAULT '',
			price DOUBLE PRECISION NOT NULL,
			image VARCHAR(200) NOT NULL DEFAULT '',
			category_id INT NOT NULL REFERENCES categories(id) ON DELETE RESTRICT,
			sort_order INT NOT NULL DEFAULT 0,
			surgelato BOOLEAN NOT NULL DEFAULT FALSE,
			is_popular BOOLEAN NOT NULL DEFAULT FALSE,
			is_new BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);

		CREATE INDEX IF NOT EXISTS idx_dishes_category_id ON dishes (category_id);
	`
	if _, err := db.Exec(ctx, dishesSQL); err != nil {
		return err
	}

	// -------------------------------
	// COLUMNS ADDED AFTER LAUNCH (CDN, VEGAN, SPICINESS)
	// -------------------------------
	lateColumnsSQL := `
		ALTER TABLE dishes
		ADD COLUMN IF NOT EXISTS image_cdn_url VARCHAR(500) NOT NULL DEFAULT '';

		ALTER TABLE dishes
		ADD COLUMN IF NOT EXISTS is_vegan BOOLEAN NOT NULL DEFAULT FALSE;

		ALTER TABLE dishes
		ADD COLUMN IF NOT EXISTS spiciness_level INT NOT NULL DEFAULT 0;
	`
	if _, err := db.Exec(ctx, lateColumnsSQL); err != nil {
		return err
	}

	// -------------------------------
	// PORTIONS + DISH/ALLERGEN LINKS
	// -------------------------------
	childrenSQL := `
		CREATE TABLE IF NOT EXISTS dish_portions (
			id SERIAL PRIMARY KEY,
			dish_id INT NOT NULL REFERENCES dishes(id) ON DELETE CASCADE,
			portion_name_cn VARCHAR(50) NOT NULL,
			portion_name_it VARCHAR(50) NOT NULL,
			price DOUBLE PRECISION NOT NULL,
			sort_order INT NOT NULL DEFAULT 0,
			is_default BOOLEAN NOT NULL DEFAULT FALSE
		);

		CREATE INDEX IF NOT EXISTS idx_dish_portions_dish_id ON dish_portions (dish_id);

		CREATE TABLE IF NOT EXISTS dish_allergens (
			dish_id INT NOT NULL REFERENCES dishes(id) ON DELETE CASCADE,
			allergen_id INT NOT NULL REFERENCES allergens(id) ON DELETE CASCADE,
			PRIMARY KEY (dish_id, allergen_id)
		);
	`
	if _, err := db.Exec(ctx, childrenSQL); err != nil {
		return err
	}

	log.Println("✅ Schema initialized successfully")
	return nil
}
