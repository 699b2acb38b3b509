package archetype

import (
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/bramble/internal/repositories/archetype"
	"github.com/Ramsey-B/bramble/pkg/models"
	"github.com/Ramsey-B/bramble/pkg/tracing"
	"github.com/Ramsey-B/bramble/pkg/validation"
)

var validate = validator.New()

// Handler serves the archetype registry REST surface. Archetypes are simple
// templates, so the handler talks to the repository directly.
type Handler struct {
	archetypes *archetype.Repository
	logger     ectologger.Logger
}

func NewHandler(archetypes *archetype.Repository, logger ectologger.Logger) *Handler {
	return &Handler{
		archetypes: archetypes,
		logger:     logger,
	}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
}

// Create creates a new archetype template
// POST /api/v1/archetypes
func (h *Handler) Create(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "archetype_handler.Create")
	defer span.End()

	var req models.CreateArchetypeRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	name, err := validation.NormalizeName(req.Name)
	if err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	now := time.Now().UTC()
	result := &models.Archetype{
		ID:                   uuid.NewString(),
		Name:                 name,
		Description:          req.Description,
		DefaultTraits:        req.DefaultTraits,
		NarrativeFunction:    req.NarrativeFunction,
		CommonMotivations:    req.CommonMotivations,
		RelationshipPatterns: req.RelationshipPatterns,
		GrowthPatterns:       req.GrowthPatterns,
		Examples:             req.Examples,
		IsActive:             true,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := h.archetypes.Create(ctx, result); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, result)
}

// List returns archetypes, active only unless include_inactive=true
// GET /api/v1/archetypes
func (h *Handler) List(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "archetype_handler.List")
	defer span.End()

	activeOnly := c.QueryParam("include_inactive") != "true"

	items, err := h.archetypes.List(ctx, activeOnly)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"archetypes": items,
		"count":      len(items),
	})
}

// Get returns an archetype by id
// GET /api/v1/archetypes/:id
func (h *Handler) Get(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "archetype_handler.Get")
	defer span.End()

	result, err := h.archetypes.GetByID(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	if result == nil {
		return httperror.NewHTTPError(http.StatusNotFound, "archetype not found")
	}
	return c.JSON(http.StatusOK, result)
}

// Update applies a partial update to an archetype
// PUT /api/v1/archetypes/:id
func (h *Handler) Update(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "archetype_handler.Update")
	defer span.End()

	id := c.Param("id")

	var req models.UpdateArchetypeRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	result, err := h.archetypes.Update(ctx, id, &req)
	if err != nil {
		return err
	}
	if result == nil {
		return httperror.NewHTTPError(http.StatusNotFound, "archetype not found")
	}
	return c.JSON(http.StatusOK, result)
}

// Delete removes an archetype; characters referencing it fall back to NULL
// DELETE /api/v1/archetypes/:id
func (h *Handler) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "archetype_handler.Delete")
	defer span.End()

	deleted, err := h.archetypes.Delete(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	if !deleted {
		return httperror.NewHTTPError(http.StatusNotFound, "archetype not found")
	}
	return c.NoContent(http.StatusNoContent)
}
