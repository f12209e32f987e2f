package http

import (
	"net/http"
	"strings"

	echo "github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"github.com/comandaqr/ticket-gateway/internal/decode"
	"github.com/comandaqr/ticket-gateway/internal/http/middleware"
	"github.com/comandaqr/ticket-gateway/internal/model"
	"github.com/comandaqr/ticket-gateway/internal/service/confirm"
)

type scanImageReq struct {
	SessionID string `json:"session_id"`
	Image     string `json:"image"` // data URI or bare base64
}

type scanLiveReq struct {
	SessionID string `json:"session_id"`
	Text      string `json:"text"` // decoded client-side
}

type scanResp struct {
	Success   bool   `json:"success"`
	Text      string `json:"text,omitempty"`
	Error     string `json:"error,omitempty"`
	SessionID string `json:"session_id"`
}

// scanImageHandler is the still-photo fallback path. Decode failures
// are results, not server errors: the response stays 200 so the
// operator UI can show the actionable message and offer a retry.
func scanImageHandler(orch *decode.Orchestrator, svc *confirm.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req scanImageReq
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}
		if strings.TrimSpace(req.Image) == "" {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "missing image"})
		}

		stationID, ok := middleware.StationIDFromCtx(c)
		if !ok || stationID <= 0 {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		}

		res := orch.SubmitStill(c.Request().Context(), stationID, req.SessionID, req.Image)
		recordMiss(c, svc, stationID, res, model.PathStill)

		return c.JSON(http.StatusOK, scanResp{
			Success:   res.Success,
			Text:      res.Text,
			Error:     res.Error,
			SessionID: res.SessionID,
		})
	}
}

// scanLiveHandler ingests detections the client scanner decoded
// itself; the orchestrator's first-wins rule still applies.
func scanLiveHandler(orch *decode.Orchestrator, svc *confirm.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req scanLiveReq
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}
		if strings.TrimSpace(req.Text) == "" {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "missing text"})
		}

		stationID, ok := middleware.StationIDFromCtx(c)
		if !ok || stationID <= 0 {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		}

		res := orch.ReportLive(c.Request().Context(), stationID, req.SessionID, strings.TrimSpace(req.Text))
		recordMiss(c, svc, stationID, res, model.PathLive)

		return c.JSON(http.StatusOK, scanResp{
			Success:   res.Success,
			Text:      res.Text,
			Error:     res.Error,
			SessionID: res.SessionID,
		})
	}
}

// recordMiss writes audit rows for attempts the confirmation flow
// never sees (decode failures and disregarded duplicates). Winning
// decodes are recorded by the confirmation service itself.
func recordMiss(c echo.Context, svc *confirm.Service, stationID int64, res decode.RouteResult, path model.ScanPath) {
	if svc == nil || res.Resolved {
		return
	}

	outcome := model.OutcomeDecodeError
	switch {
	case res.Duplicate:
		outcome = model.OutcomeDuplicate
	case res.Error == model.ReasonNoSymbol:
		outcome = model.OutcomeNoSymbol
	}

	svc.RecordScan(c.Request().Context(), stationID, res.SessionID, path, outcome, res.Text)
	if res.Error != "" {
		log.Debugf("scan miss: station=%d session=%s outcome=%s", stationID, res.SessionID, outcome)
	}
}
