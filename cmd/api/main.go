package main

import (
	"context"
	"log"

	"github.com/chenyk320/menu/internal/app"
	"github.com/chenyk320/menu/internal/auth"
	"github.com/chenyk320/menu/internal/config"
	"github.com/chenyk320/menu/internal/media"
	"github.com/chenyk320/menu/internal/menu"
	"github.com/chenyk320/menu/internal/router"
	"github.com/chenyk320/menu/internal/seed"
)

func main() {
	ctx := context.Background()

	// ───────────────────────── ENV ─────────────────────────
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("❌ %v", err)
	}

	// ───────────────────────── DB + STORAGE ─────────────────────────
	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	defer a.Close()

	res, err := seed.Defaults(ctx, a.Menu)
	if err != nil {
		log.Fatalf("❌ Seeding defaults failed: %v", err)
	}
	if res.Categories > 0 || res.Allergens > 0 {
		log.Printf("✅ Seeded %d categories and %d allergens", res.Categories, res.Allergens)
	}

	// ───────────────────────── AUTH ─────────────────────────
	admin, err := auth.NewStaticAdmin(cfg.AdminUsername, cfg.AdminPassword)
	if err != nil {
		log.Fatalf("❌ Admin account: %v", err)
	}
	sessions, err := auth.NewSessions(cfg.SecretKey, cfg.SessionTTL)
	if err != nil {
		log.Fatalf("❌ Sessions: %v", err)
	}
	authHandler := auth.NewHandler(admin, sessions)
	authHandler.SecureCookie = cfg.Env == "production"

	// ───────────────────────── HANDLERS ─────────────────────────
	imageStatus := func(ctx context.Context) (any, error) {
		return a.Migrator.Status(ctx)
	}

	r := router.NewRouter(router.Deps{
		Menu:        menu.NewHandler(a.Menu),
		Admin:       menu.NewAdminHandler(a.Menu, imageStatus),
		Images:      media.NewHandler(a.Migrator),
		Auth:        authHandler,
		Sessions:    sessions,
		UploadDir:   cfg.UploadFolder,
		CORSOrigins: cfg.CORSOrigins,
	})

	// ───────────────────────── START ─────────────────────────
	log.Printf("🚀 Menu API running at http://localhost:%s (%s database)", cfg.Port, a.Store.Kind)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Server stopped: %v", err)
	}
}
