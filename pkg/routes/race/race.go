package race

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"

	"github.com/rowstack/regatta/internal/repositories/competition"
	"github.com/rowstack/regatta/internal/repositories/participant"
	"github.com/rowstack/regatta/internal/repositories/race"
	"github.com/rowstack/regatta/internal/tracing"
	"github.com/rowstack/regatta/pkg/models"
)

// Register registers race routes
func Register(g *echo.Group) {
	g.GET("", List)
	g.GET("/:id", Get)
	g.GET("/:id/participants", ListParticipants)
}

// List returns the races of a year
func List(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "race_handler.List")
	defer span.End()

	year, err := strconv.Atoi(c.QueryParam("year"))
	if err != nil || year < 1900 {
		year = time.Now().Year()
	}
	page, _ := strconv.Atoi(c.QueryParam("page"))
	pageSize, _ := strconv.Atoi(c.QueryParam("page_size"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	ctx, repo, err := ectoinject.GetContext[*race.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	races, err := repo.ListByYear(ctx, year, page, pageSize)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to list races")
	}

	return c.JSON(http.StatusOK, map[string]any{
		"items":     races,
		"year":      year,
		"page":      page,
		"page_size": pageSize,
	})
}

// Get returns a single race by ID
func Get(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "race_handler.Get")
	defer span.End()

	id := c.Param("id")

	ctx, repo, err := ectoinject.GetContext[*race.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	result, err := repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return httperror.NewHTTPError(http.StatusNotFound, "race not found")
		}
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get race")
	}

	return c.JSON(http.StatusOK, raceResponse{Race: result, Name: displayName(ctx, result)})
}

type raceResponse struct {
	*models.Race
	// Name is the composed canonical title, empty when the competition
	// lookups fail.
	Name string `json:"name,omitempty"`
}

// displayName resolves the race's competition names and composes the
// canonical title. Lookup failures degrade to an empty name rather than
// failing the read.
func displayName(ctx context.Context, r *models.Race) string {
	if r.TrophyID == nil && r.FlagID == nil {
		return ""
	}
	ctx, competitions, err := ectoinject.GetContext[*competition.Repository](ctx)
	if err != nil {
		return ""
	}

	var trophyName, flagName string
	if r.TrophyID != nil {
		if result, err := competitions.Get(ctx, *r.TrophyID); err == nil {
			trophyName = result.Name
		}
	}
	if r.FlagID != nil {
		if result, err := competitions.Get(ctx, *r.FlagID); err == nil {
			flagName = result.Name
		}
	}
	return r.DisplayName(trophyName, flagName)
}

// ListParticipants returns a race's participants
func ListParticipants(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "race_handler.ListParticipants")
	defer span.End()

	id := c.Param("id")

	ctx, races, err := ectoinject.GetContext[*race.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}
	if _, err := races.Get(ctx, id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return httperror.NewHTTPError(http.StatusNotFound, "race not found")
		}
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get race")
	}

	ctx, participants, err := ectoinject.GetContext[*participant.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	items, err := participants.ListByRace(ctx, id)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to list participants")
	}

	return c.JSON(http.StatusOK, map[string]any{"items": items})
}
