package http

import (
	"net/http"
	"strconv"
	"strings"

	echo "github.com/labstack/echo/v4"

	"github.com/comandaqr/ticket-gateway/internal/http/middleware"
	"github.com/comandaqr/ticket-gateway/internal/model"
	"github.com/comandaqr/ticket-gateway/internal/repository"
)

func listScansHandler(events repository.ScanEventsRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		stationID, ok := middleware.StationIDFromCtx(c)
		if !ok || stationID <= 0 {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		}

		limit := 50
		offset := 0
		if v := c.QueryParam("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
				limit = n
			}
		}
		if v := c.QueryParam("offset"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n >= 0 {
				offset = n
			}
		}

		var outcome model.ScanOutcome
		if raw := strings.TrimSpace(c.QueryParam("outcome")); raw != "" {
			tmp := model.ScanOutcome(raw)
			if tmp.Valid() {
				outcome = tmp
			}
		}

		rows, err := events.ListByStation(
			c.Request().Context(),
			stationID,
			outcome,
			limit,
			offset,
		)
		if err != nil {
			c.Logger().Errorf("clickhouse list failed: %v", err)

			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "query failed"})
		}

		return c.JSON(http.StatusOK, map[string]any{
			"limit":   limit,
			"offset":  offset,
			"count":   len(rows),
			"results": rows,
		})
	}
}
