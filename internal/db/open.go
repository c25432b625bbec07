// Package db opens the menu database selected by DATABASE_URL.
package db

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/chenyk320/menu/internal/menu"
)

// Store is an open menu database.
type Store struct {
	Repo  menu.Repository
	Kind  string
	close func() error
}

func (s *Store) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// Open connects to url and makes sure the schema is current.
// postgres:// and postgresql:// use pgx, sqlite://path or a bare path use
// gorm with SQLite.
func Open(ctx context.Context, url string) (*Store, error) {
	switch {
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		pool, err := ConnectPostgres(ctx, url)
		if err != nil {
			return nil, err
		}
		return &Store{
			Repo: menu.NewPostgresRepository(pool),
			Kind: "postgres",
			close: func() error {
				pool.Close()
				return nil
			},
		}, nil

	default:
		path := strings.TrimPrefix(url, "sqlite://")
		if path == "" {
			return nil, fmt.Errorf("empty database path in %q", url)
		}
		database, err := OpenSQLite(path)
		if err != nil {
			return nil, err
		}
		log.Printf("✅ Opened SQLite database %s", path)
		sqlDB, err := database.DB()
		if err != nil {
			return nil, err
		}
		return &Store{
			Repo:  menu.NewGormRepository(database),
			Kind:  "sqlite",
			close: sqlDB.Close,
		}, nil
	}
}
