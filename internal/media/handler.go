package media

import (
	"errors"
	"fmt"

	"github.com/chenyk320/menu/internal/resp"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	migrator *Migrator
}

func NewHandler(migrator *Migrator) *Handler {
	return &Handler{migrator: migrator}
}

func (h *Handler) Status(c *gin.Context) {
	st, err := h.migrator.Status(c.Request.Context())
	if err != nil {
		resp.ServerError(c, err)
		return
	}
	resp.OK(c, st)
}

func (h *Handler) Migrate(c *gin.Context) {
	res, err := h.migrator.MigrateToCDN(c.Request.Context())
	if errors.Is(err, ErrRemoteDisabled) {
		resp.Fail(c, err.Error())
		return
	}
	if err != nil {
		resp.ServerError(c, err)
		return
	}
	resp.Success(c, fmt.Sprintf("migrated %d of %d images", res.Succeeded, res.Candidates), gin.H{"result": res})
}

func (h *Handler) Cleanup(c *gin.Context) {
	res, err := h.migrator.CleanupLocal(c.Request.Context())
	if err != nil {
		resp.ServerError(c, err)
		return
	}
	resp.Success(c, fmt.Sprintf("removed %d local copies", res.Succeeded), gin.H{"result": res})
}
