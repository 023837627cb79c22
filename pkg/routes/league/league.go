package league

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"

	"github.com/rowstack/regatta/internal/repositories/league"
	"github.com/rowstack/regatta/internal/tracing"
)

// Register registers league routes
func Register(g *echo.Group) {
	g.GET("", List)
}

// List returns all leagues
func List(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "league_handler.List")
	defer span.End()

	ctx, repo, err := ectoinject.GetContext[*league.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	items, err := repo.List(ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to list leagues")
	}

	return c.JSON(http.StatusOK, map[string]any{"items": items})
}
