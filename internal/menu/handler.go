package menu

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"

	"github.com/chenyk320/menu/internal/resp"

	"github.com/gin-gonic/gin"
)

// Handler serves the public read API.
type Handler struct {
	service *Service
}

// ImageStatusFunc reports the state of the image store for the admin view.
type ImageStatusFunc func(ctx context.Context) (any, error)

// AdminHandler serves the session-gated write API.
type AdminHandler struct {
	service     *Service
	imageStatus ImageStatusFunc
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// NewAdminHandler wires the admin endpoints. imageStatus may be nil.
func NewAdminHandler(service *Service, imageStatus ImageStatusFunc) *AdminHandler {
	return &AdminHandler{service: service, imageStatus: imageStatus}
}

// --------------------------------------------------
// Response shapes
// --------------------------------------------------

type portionView struct {
	ID        uint    `json:"id"`
	NameCN    string  `json:"name_cn"`
	NameIT    string  `json:"name_it"`
	Price     float64 `json:"price"`
	IsDefault bool    `json:"is_default"`
}

type dishAllergenView struct {
	ID     uint   `json:"id"`
	NameCN string `json:"name_cn"`
	NameIT string `json:"name_it"`
	Icon   string `json:"icon"`
}

// DishView is the public JSON form of a dish. Image follows the display rule;
// empty references are rendered as null.
type DishView struct {
	ID             uint               `json:"id"`
	DishNumber     string             `json:"dish_number"`
	NameCN         string             `json:"name_cn"`
	NameIT         string             `json:"name_it"`
	DescriptionIT  string             `json:"description_it"`
	Price          float64            `json:"price"`
	Image          *string            `json:"image"`
	ImageLocal     *string            `json:"image_local"`
	ImageCDN       *string            `json:"image_cdn"`
	CategoryID     uint               `json:"category_id"`
	SortOrder      int                `json:"sort_order"`
	Surgelato      bool               `json:"surgelato"`
	IsPopular      bool               `json:"is_popular"`
	IsNew          bool               `json:"is_new"`
	IsVegan        bool               `json:"is_vegan"`
	SpicinessLevel int                `json:"spiciness_level"`
	Portions       []portionView      `json:"portions"`
	Allergens      []dishAllergenView `json:"allergens"`
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func NewDishView(d *Dish) DishView {
	v := DishView{
		ID:             d.ID,
		DishNumber:     d.DishNumber,
		NameCN:         d.NameCN,
		NameIT:         d.NameIT,
		DescriptionIT:  d.DescriptionIT,
		Price:          d.Price,
		Image:          nullable(d.DisplayImage()),
		ImageLocal:     nullable(d.Image),
		ImageCDN:       nullable(d.ImageCDNURL),
		CategoryID:     d.CategoryID,
		SortOrder:      d.SortOrder,
		Surgelato:      d.Surgelato,
		IsPopular:      d.IsPopular,
		IsNew:          d.IsNew,
		IsVegan:        d.IsVegan,
		SpicinessLevel: d.SpicinessLevel,
		Portions:       make([]portionView, 0, len(d.Portions)),
		Allergens:      make([]dishAllergenView, 0, len(d.Allergens)),
	}
	for _, p := range d.Portions {
		v.Portions = append(v.Portions, portionView{
			ID:        p.ID,
			NameCN:    p.PortionNameCN,
			NameIT:    p.PortionNameIT,
			Price:     p.Price,
			IsDefault: p.IsDefault,
		})
	}
	for _, a := range d.Allergens {
		v.Allergens = append(v.Allergens, dishAllergenView{
			ID:     a.ID,
			NameCN: a.NameCN,
			NameIT: a.NameIT,
			Icon:   a.Icon,
		})
	}
	return v
}

func dishViews(dishes []Dish) []DishView {
	out := make([]DishView, 0, len(dishes))
	for i := range dishes {
		out = append(out, NewDishView(&dishes[i]))
	}
	return out
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// --------------------------------------------------
// Public reads
// --------------------------------------------------

func (h *Handler) ListCategories(c *gin.Context) {
	cats, err := h.service.ListCategories(c.Request.Context())
	if err != nil {
		respondError(c, err, "")
		return
	}
	resp.OK(c, nonNil(cats))
}

func (h *Handler) ListDishes(c *gin.Context) {
	dishes, err := h.service.ListDishes(c.Request.Context())
	if err != nil {
		respondError(c, err, "")
		return
	}
	resp.OK(c, dishViews(dishes))
}

func (h *Handler) ListAllergens(c *gin.Context) {
	allergens, err := h.service.ListAllergens(c.Request.Context())
	if err != nil {
		respondError(c, err, "")
		return
	}
	resp.OK(c, nonNil(allergens))
}

// --------------------------------------------------
// Admin snapshot
// --------------------------------------------------

// Dashboard returns everything the admin page renders in one payload.
func (h *AdminHandler) Dashboard(c *gin.Context) {
	ctx := c.Request.Context()

	cats, err := h.service.ListCategories(ctx)
	if err != nil {
		respondError(c, err, "")
		return
	}
	dishes, err := h.service.ListDishes(ctx)
	if err != nil {
		respondError(c, err, "")
		return
	}
	allergens, err := h.service.ListAllergens(ctx)
	if err != nil {
		respondError(c, err, "")
		return
	}

	body := gin.H{
		"categories": nonNil(cats),
		"dishes":     dishViews(dishes),
		"allergens":  nonNil(allergens),
	}
	if h.imageStatus != nil {
		status, err := h.imageStatus(ctx)
		if err != nil {
			log.Printf("admin dashboard: image status: %v", err)
		} else {
			body["images"] = status
		}
	}
	resp.OK(c, body)
}

// --------------------------------------------------
// Dishes
// --------------------------------------------------

// dishRequest reads the multipart dish form and its optional image file.
// The returned cleanup closes the upload.
func dishRequest(c *gin.Context) (DishInput, *Upload, func(), error) {
	noop := func() {}

	var form DishForm
	if err := c.ShouldBind(&form); err != nil {
		return DishInput{}, nil, noop, invalid("invalid form: %v", err)
	}
	in, err := form.Input()
	if err != nil {
		return in, nil, noop, err
	}

	header, err := c.FormFile("image")
	if err != nil || header.Filename == "" {
		return in, nil, noop, nil
	}
	f, err := header.Open()
	if err != nil {
		return in, nil, noop, fmt.Errorf("open upload: %w", err)
	}
	return in, &Upload{Filename: header.Filename, Body: f}, func() { f.Close() }, nil
}

func (h *AdminHandler) CreateDish(c *gin.Context) {
	in, img, done, err := dishRequest(c)
	defer done()
	if err != nil {
		respondError(c, err, "")
		return
	}

	dish, err := h.service.CreateDish(c.Request.Context(), in, img)
	if err != nil {
		respondError(c, err, "category not found")
		return
	}
	resp.Success(c, fmt.Sprintf("dish added, number %s", dish.DishNumber), gin.H{
		"dish": NewDishView(dish),
	})
}

func (h *AdminHandler) UpdateDish(c *gin.Context) {
	id, ok := paramID(c, "dish not found")
	if !ok {
		return
	}
	in, img, done, err := dishRequest(c)
	defer done()
	if err != nil {
		respondError(c, err, "")
		return
	}

	dish, err := h.service.UpdateDish(c.Request.Context(), id, in, img)
	if err != nil {
		respondError(c, err, "dish not found")
		return
	}
	resp.Success(c, "dish updated", gin.H{"dish": NewDishView(dish)})
}

func (h *AdminHandler) DeleteDish(c *gin.Context) {
	id, ok := paramID(c, "dish not found")
	if !ok {
		return
	}
	if err := h.service.DeleteDish(c.Request.Context(), id); err != nil {
		respondError(c, err, "dish not found")
		return
	}
	resp.Success(c, "dish deleted", nil)
}

func (h *AdminHandler) DeleteDishImage(c *gin.Context) {
	id, ok := paramID(c, "dish not found")
	if !ok {
		return
	}
	if err := h.service.DeleteDishImage(c.Request.Context(), id); err != nil {
		respondError(c, err, "dish not found")
		return
	}
	resp.Success(c, "image deleted", nil)
}

// --------------------------------------------------
// Categories
// --------------------------------------------------

func (h *AdminHandler) CreateCategory(c *gin.Context) {
	var in CategoryInput
	if err := c.ShouldBindJSON(&in); err != nil {
		resp.BadRequest(c, "invalid request")
		return
	}
	cat, err := h.service.CreateCategory(c.Request.Context(), in)
	if err != nil {
		respondError(c, err, "")
		return
	}
	resp.Success(c, "category added", gin.H{"category": cat})
}

func (h *AdminHandler) UpdateCategory(c *gin.Context) {
	id, ok := paramID(c, "category not found")
	if !ok {
		return
	}
	var in CategoryInput
	if err := c.ShouldBindJSON(&in); err != nil {
		resp.BadRequest(c, "invalid request")
		return
	}
	cat, err := h.service.UpdateCategory(c.Request.Context(), id, in)
	if err != nil {
		respondError(c, err, "category not found")
		return
	}
	resp.Success(c, "category updated", gin.H{"category": cat})
}

func (h *AdminHandler) DeleteCategory(c *gin.Context) {
	id, ok := paramID(c, "category not found")
	if !ok {
		return
	}
	if err := h.service.DeleteCategory(c.Request.Context(), id); err != nil {
		respondError(c, err, "category not found")
		return
	}
	resp.Success(c, "category deleted", nil)
}

// --------------------------------------------------
// Allergens
// --------------------------------------------------

func (h *AdminHandler) CreateAllergen(c *gin.Context) {
	var in AllergenInput
	if err := c.ShouldBindJSON(&in); err != nil {
		resp.BadRequest(c, "invalid request")
		return
	}
	a, err := h.service.CreateAllergen(c.Request.Context(), in)
	if err != nil {
		respondError(c, err, "")
		return
	}
	resp.Success(c, "allergen added", gin.H{"allergen": a})
}

func (h *AdminHandler) UpdateAllergen(c *gin.Context) {
	id, ok := paramID(c, "allergen not found")
	if !ok {
		return
	}
	var in AllergenInput
	if err := c.ShouldBindJSON(&in); err != nil {
		resp.BadRequest(c, "invalid request")
		return
	}
	a, err := h.service.UpdateAllergen(c.Request.Context(), id, in)
	if err != nil {
		respondError(c, err, "allergen not found")
		return
	}
	resp.Success(c, "allergen updated", gin.H{"allergen": a})
}

func (h *AdminHandler) DeleteAllergen(c *gin.Context) {
	id, ok := paramID(c, "allergen not found")
	if !ok {
		return
	}
	if err := h.service.DeleteAllergen(c.Request.Context(), id); err != nil {
		respondError(c, err, "allergen not found")
		return
	}
	resp.Success(c, "allergen deleted", nil)
}

// --------------------------------------------------
// helpers
// --------------------------------------------------

func paramID(c *gin.Context, notFoundMsg string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		resp.NotFound(c, notFoundMsg)
		return 0, false
	}
	return uint(id), true
}

// respondError maps service errors onto the envelope: caller mistakes stay
// HTTP 200 with success=false, unknown ids are 404, the rest is 500.
func respondError(c *gin.Context, err error, notFoundMsg string) {
	var verr *ValidationError
	var inUse *CategoryInUseError

	switch {
	case errors.As(err, &verr):
		resp.Fail(c, verr.Message)
	case errors.As(err, &inUse):
		resp.Fail(c, inUse.Error())
	case errors.Is(err, ErrNotFound):
		if notFoundMsg == "" {
			notFoundMsg = err.Error()
		}
		resp.NotFound(c, notFoundMsg)
	default:
		resp.ServerError(c, err)
	}
}
