package middleware

import (
	"net/http"
	"strings"

	echo "github.com/labstack/echo/v4"

	"github.com/comandaqr/ticket-gateway/internal/repository"
)

// StationIDFromCtx extracts the authenticated station_id set by APIKeyMiddleware.
func StationIDFromCtx(c echo.Context) (int64, bool) {
	v := c.Get("station_id")
	id, ok := v.(int64)
	return id, ok
}

// APIKeyMiddleware authenticates operator devices using the X-API-Key header.
// On success it stores station_id in context and blocks suspended stations.
func APIKeyMiddleware(stations repository.StationsRepository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := strings.TrimSpace(c.Request().Header.Get("X-API-Key"))
			if key == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing api key"})
			}
			st, err := stations.GetByAPIKey(c.Request().Context(), key)
			if err != nil {
				return c.JSON(http.StatusInternalServerError, map[string]string{"error": "auth error"})
			}
			if st == nil || st.Status != "active" {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid api key"})
			}
			c.Set("station_id", st.ID)
			if st.RateLimitRPS != nil {
				c.Set("station_rps", *st.RateLimitRPS)
			}
			return next(c)
		}
	}
}
