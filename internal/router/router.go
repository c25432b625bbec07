package router

import (
	"github.com/chenyk320/menu/internal/auth"
	"github.com/chenyk320/menu/internal/media"
	"github.com/chenyk320/menu/internal/menu"
	"github.com/chenyk320/menu/internal/middleware"

	"github.com/gin-gonic/gin"
)

// Deps are the handlers the router mounts. UploadDir is served under
// /uploads when set.
type Deps struct {
	Menu     *menu.Handler
	Admin    *menu.AdminHandler
	Images   *media.Handler
	Auth     *auth.Handler
	Sessions *auth.Sessions

	UploadDir   string
	CORSOrigins []string
}

func NewRouter(d Deps) *gin.Engine {
	r := gin.Default()
	r.MaxMultipartMemory = media.MaxUploadBytes

	if len(d.CORSOrigins) > 0 {
		r.Use(middleware.CORS(d.CORSOrigins))
	}

	// Health check route
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	if d.UploadDir != "" {
		r.Static("/uploads", d.UploadDir)
	}

	// ───────────── PUBLIC ─────────────
	public := r.Group("/api")
	{
		public.GET("/categories", d.Menu.ListCategories)
		public.GET("/dishes", d.Menu.ListDishes)
		public.GET("/allergens", d.Menu.ListAllergens)
	}

	// ───────────── SESSION ─────────────
	r.GET(middleware.LoginPath, d.Auth.Status)
	r.POST(middleware.LoginPath, d.Auth.Login)
	r.GET("/logout", d.Auth.Logout)
	r.POST("/logout", d.Auth.Logout)

	// ───────────── ADMIN ─────────────
	requireSession := middleware.RequireSession(d.Sessions)

	r.GET("/admin", requireSession, d.Admin.Dashboard)

	admin := r.Group("/api")
	admin.Use(requireSession)
	{
		admin.POST("/dish", d.Admin.CreateDish)
		admin.PUT("/dish/:id", d.Admin.UpdateDish)
		admin.DELETE("/dish/:id", d.Admin.DeleteDish)
		admin.DELETE("/dish/:id/image", d.Admin.DeleteDishImage)

		admin.POST("/category", d.Admin.CreateCategory)
		admin.PUT("/category/:id", d.Admin.UpdateCategory)
		admin.DELETE("/category/:id", d.Admin.DeleteCategory)

		admin.POST("/allergen", d.Admin.CreateAllergen)
		admin.PUT("/allergen/:id", d.Admin.UpdateAllergen)
		admin.DELETE("/allergen/:id", d.Admin.DeleteAllergen)

		if d.Images != nil {
			admin.GET("/images/status", d.Images.Status)
			admin.POST("/images/migrate", d.Images.Migrate)
			admin.POST("/images/cleanup", d.Images.Cleanup)
		}
	}

	return r
}
