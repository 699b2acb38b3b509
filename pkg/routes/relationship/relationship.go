package relationship

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/bramble/pkg/models"
	"github.com/Ramsey-B/bramble/pkg/relationships"
	"github.com/Ramsey-B/bramble/pkg/tracing"
)

var validate = validator.New()

// Handler serves the relationship REST surface.
type Handler struct {
	engine *relationships.Engine
	logger ectologger.Logger
}

func NewHandler(engine *relationships.Engine, logger ectologger.Logger) *Handler {
	return &Handler{
		engine: engine,
		logger: logger,
	}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("", h.Create)
	g.GET("/between", h.GetBetween)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
}

// Create writes a relationship, mirrored when mutual, in one transaction
// POST /api/v1/relationships
func (h *Handler) Create(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "relationship_handler.Create")
	defer span.End()

	var req models.CreateRelationshipRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	result, err := h.engine.Create(ctx, &req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, result)
}

// Get returns a relationship row by id
// GET /api/v1/relationships/:id
func (h *Handler) Get(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "relationship_handler.Get")
	defer span.End()

	result, err := h.engine.GetByID(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// GetBetween returns the relationships between two characters
// GET /api/v1/relationships/between?character_a_id=&character_b_id=
func (h *Handler) GetBetween(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "relationship_handler.GetBetween")
	defer span.End()

	characterAID := c.QueryParam("character_a_id")
	characterBID := c.QueryParam("character_b_id")
	if characterAID == "" || characterBID == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "character_a_id and character_b_id are required")
	}

	var relType *string
	if raw := c.QueryParam("relationship_type"); raw != "" {
		relType = &raw
	}

	result, err := h.engine.GetBetween(ctx, characterAID, characterBID, relType)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"relationships": result,
		"count":         len(result),
	})
}

// Update applies content fields to a relationship and its mirror
// PUT /api/v1/relationships/:id
func (h *Handler) Update(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "relationship_handler.Update")
	defer span.End()

	id := c.Param("id")

	var req models.UpdateRelationshipRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	result, err := h.engine.Update(ctx, id, &req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// Delete removes a relationship pair, idempotently
// DELETE /api/v1/relationships/:id
func (h *Handler) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "relationship_handler.Delete")
	defer span.End()

	deleted, err := h.engine.Delete(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	if !deleted {
		return httperror.NewHTTPError(http.StatusNotFound, "relationship not found")
	}
	return c.NoContent(http.StatusNoContent)
}
