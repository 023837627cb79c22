package competition

import (
	"errors"
	"net/http"
	"strings"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"

	"github.com/rowstack/regatta/internal/repositories/competition"
	"github.com/rowstack/regatta/internal/repositories/race"
	"github.com/rowstack/regatta/internal/tracing"
	"github.com/rowstack/regatta/pkg/models"
)

// Register registers competition routes
func Register(g *echo.Group) {
	g.GET("", List)
	g.GET("/:id", Get)
	g.GET("/:id/races", ListRaces)
}

func parseKind(raw string) (models.CompetitionKind, error) {
	switch strings.ToUpper(raw) {
	case "", "TROPHY":
		return models.KindTrophy, nil
	case "FLAG":
		return models.KindFlag, nil
	default:
		return "", httperror.NewHTTPError(http.StatusBadRequest, "kind must be TROPHY or FLAG")
	}
}

// List returns all competitions of a kind
func List(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "competition_handler.List")
	defer span.End()

	kind, err := parseKind(c.QueryParam("kind"))
	if err != nil {
		return err
	}

	ctx, repo, err := ectoinject.GetContext[*competition.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	items, err := repo.List(ctx, kind)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to list competitions")
	}

	return c.JSON(http.StatusOK, map[string]any{"items": items, "kind": kind})
}

// Get returns a single competition by ID
func Get(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "competition_handler.Get")
	defer span.End()

	id := c.Param("id")

	ctx, repo, err := ectoinject.GetContext[*competition.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	result, err := repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return httperror.NewHTTPError(http.StatusNotFound, "competition not found")
		}
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get competition")
	}

	return c.JSON(http.StatusOK, result)
}

// ListRaces returns every race of a competition, ordered by edition
func ListRaces(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "competition_handler.ListRaces")
	defer span.End()

	id := c.Param("id")

	ctx, competitions, err := ectoinject.GetContext[*competition.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	result, err := competitions.Get(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return httperror.NewHTTPError(http.StatusNotFound, "competition not found")
		}
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get competition")
	}

	ctx, races, err := ectoinject.GetContext[*race.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	items, err := races.ListByCompetition(ctx, result.Kind, result.ID)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to list races")
	}

	return c.JSON(http.StatusOK, map[string]any{"items": items, "competition": result})
}
