package character

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/bramble/pkg/characters"
	"github.com/Ramsey-B/bramble/pkg/models"
	"github.com/Ramsey-B/bramble/pkg/relationships"
	"github.com/Ramsey-B/bramble/pkg/tracing"
)

var validate = validator.New()

// Handler serves the character REST surface.
type Handler struct {
	service *characters.Service
	engine  *relationships.Engine
	logger  ectologger.Logger
}

func NewHandler(service *characters.Service, engine *relationships.Engine, logger ectologger.Logger) *Handler {
	return &Handler{
		service: service,
		engine:  engine,
		logger:  logger,
	}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("", h.Search)
	g.POST("", h.Create)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
	g.GET("/:id/relationships", h.ListRelationships)
	g.GET("/:id/network", h.Network)
}

// Create creates a new character
// POST /api/v1/characters
func (h *Handler) Create(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "character_handler.Create")
	defer span.End()

	var req models.CreateCharacterRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	result, err := h.service.Create(ctx, &req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, result)
}

// Get returns a character with its personality and archetype
// GET /api/v1/characters/:id
func (h *Handler) Get(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "character_handler.Get")
	defer span.End()

	id := c.Param("id")
	includeRelationships := c.QueryParam("include_relationships") == "true"

	result, err := h.service.Get(ctx, id, includeRelationships)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// Update applies a partial update and bumps the character version
// PUT /api/v1/characters/:id
func (h *Handler) Update(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "character_handler.Update")
	defer span.End()

	id := c.Param("id")

	var req models.UpdateCharacterRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	result, err := h.service.Update(ctx, id, &req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// Delete removes a character and its dependent rows
// DELETE /api/v1/characters/:id
func (h *Handler) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "character_handler.Delete")
	defer span.End()

	id := c.Param("id")

	deleted, err := h.service.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return httperror.NewHTTPError(http.StatusNotFound, "character not found")
	}
	return c.NoContent(http.StatusNoContent)
}

// Search runs a filtered character search
// GET /api/v1/characters
func (h *Handler) Search(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "character_handler.Search")
	defer span.End()

	req := models.SearchCharactersRequest{
		Query: c.QueryParam("query"),
	}
	if role := c.QueryParam("narrative_role"); role != "" {
		req.NarrativeRole = &role
	}
	if archetypeID := c.QueryParam("archetype_id"); archetypeID != "" {
		req.ArchetypeID = &archetypeID
	}
	if minAge := c.QueryParam("min_age"); minAge != "" {
		v, err := strconv.Atoi(minAge)
		if err != nil {
			return httperror.NewHTTPError(http.StatusBadRequest, "min_age must be an integer")
		}
		req.MinAge = &v
	}
	if maxAge := c.QueryParam("max_age"); maxAge != "" {
		v, err := strconv.Atoi(maxAge)
		if err != nil {
			return httperror.NewHTTPError(http.StatusBadRequest, "max_age must be an integer")
		}
		req.MaxAge = &v
	}
	if traits := c.QueryParam("traits"); traits != "" {
		for _, trait := range strings.Split(traits, ",") {
			if trait = strings.TrimSpace(trait); trait != "" {
				req.Traits = append(req.Traits, trait)
			}
		}
	}
	req.Limit, _ = strconv.Atoi(c.QueryParam("limit"))
	req.Offset, _ = strconv.Atoi(c.QueryParam("offset"))

	result, err := h.service.Search(ctx, &req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// ListRelationships returns the character's relationships from its own side
// GET /api/v1/characters/:id/relationships
func (h *Handler) ListRelationships(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "character_handler.ListRelationships")
	defer span.End()

	req := models.ListRelationshipsRequest{CharacterID: c.Param("id")}
	if relType := c.QueryParam("relationship_type"); relType != "" {
		req.RelationshipType = &relType
	}
	if status := c.QueryParam("status"); status != "" {
		req.Status = &status
	}

	result, err := h.engine.ListForCharacter(ctx, &req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"character_id":  req.CharacterID,
		"relationships": result,
		"count":         len(result),
	})
}

// Network runs the breadth-first relationship traversal
// GET /api/v1/characters/:id/network
func (h *Handler) Network(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "character_handler.Network")
	defer span.End()

	id := c.Param("id")
	depth := 0
	if raw := c.QueryParam("depth"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return httperror.NewHTTPError(http.StatusBadRequest, "depth must be an integer")
		}
		depth = v
	}

	result, err := h.engine.Network(ctx, id, depth)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}
