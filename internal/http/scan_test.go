package http

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
	"go.uber.org/zap"

	"github.com/comandaqr/ticket-gateway/internal/config"
	"github.com/comandaqr/ticket-gateway/internal/decode"
	"github.com/comandaqr/ticket-gateway/internal/model"
	"github.com/comandaqr/ticket-gateway/internal/notifier"
	"github.com/comandaqr/ticket-gateway/internal/service/confirm"
)

type stubOrders struct {
	mu        sync.Mutex
	tickets   map[string]*model.TicketContext
	confirmed []int64
}

func (s *stubOrders) GetByTicketCode(ctx context.Context, code string) (*model.TicketContext, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tickets[code], nil
}

func (s *stubOrders) MarkConfirmed(ctx context.Context, orderID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.confirmed = append(s.confirmed, orderID)
	return nil
}

func ticketPayload(t *testing.T, text string) string {
	t.Helper()
	matrix, err := qrcode.NewQRCodeWriter().Encode(text, gozxing.BarcodeFormat_QR_CODE, 300, 300, nil)
	if err != nil {
		t.Fatalf("encode qr: %v", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, matrix); err != nil {
		t.Fatalf("png encode: %v", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func postScanImage(t *testing.T, h echo.HandlerFunc, body scanImageReq) scanResp {
	t.Helper()
	b, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, "/v1/scan/image", bytes.NewReader(b))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)
	c.Set("station_id", int64(1))

	if err := h(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp scanResp
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

// Full fallback path: photo submission decodes TICKET-ABC123, the
// order is confirmed, and one gateway POST goes out with the
// digits-only number.
func TestScanImageConfirmsAndNotifies(t *testing.T) {
	var mu sync.Mutex
	var numbers []string
	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Number string `json:"number"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		mu.Lock()
		numbers = append(numbers, req.Number)
		mu.Unlock()
	}))
	defer gateway.Close()

	orders := &stubOrders{tickets: map[string]*model.TicketContext{
		"TICKET-ABC123": {
			OrderID:       42,
			TicketCode:    "TICKET-ABC123",
			DishName:      "Feijoada Completa",
			CustomerPhone: "+55 11 91234-5678",
		},
	}}

	notif := notifier.New(config.NotifierConfig{BaseURL: gateway.URL, APIKey: "k"}, zap.NewNop())
	svc := confirm.New(orders, nil, notif, zap.NewNop())
	orch := decode.NewOrchestrator(decode.NewStillDecoder(zap.NewNop()), svc, zap.NewNop())
	h := scanImageHandler(orch, svc)

	resp := postScanImage(t, h, scanImageReq{Image: ticketPayload(t, "TICKET-ABC123")})
	if !resp.Success || resp.Text != "TICKET-ABC123" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.SessionID == "" {
		t.Fatal("expected session id in response")
	}

	orders.mu.Lock()
	confirmed := append([]int64(nil), orders.confirmed...)
	orders.mu.Unlock()
	if len(confirmed) != 1 || confirmed[0] != 42 {
		t.Fatalf("confirmed = %v, want [42]", confirmed)
	}

	// Notification is fire-and-forget; wait for the gateway call.
	deadline := time.After(5 * time.Second)
	for {
		mu.Lock()
		n := len(numbers)
		mu.Unlock()
		if n > 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("gateway never called")
		case <-time.After(10 * time.Millisecond):
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if len(numbers) != 1 || numbers[0] != "5511912345678" {
		t.Fatalf("gateway numbers = %v, want [5511912345678]", numbers)
	}
}

// A second decode of the same session must not re-confirm.
func TestScanImageDuplicateDisregarded(t *testing.T) {
	orders := &stubOrders{tickets: map[string]*model.TicketContext{
		"TICKET-ABC123": {OrderID: 42, TicketCode: "TICKET-ABC123", CustomerPhone: "5511900000000"},
	}}
	svc := confirm.New(orders, nil, nil, zap.NewNop())
	orch := decode.NewOrchestrator(decode.NewStillDecoder(zap.NewNop()), svc, zap.NewNop())
	h := scanImageHandler(orch, svc)

	payload := ticketPayload(t, "TICKET-ABC123")
	first := postScanImage(t, h, scanImageReq{Image: payload})
	second := postScanImage(t, h, scanImageReq{SessionID: first.SessionID, Image: payload})

	if !second.Success {
		t.Fatalf("duplicate decode should still report success: %+v", second)
	}
	if len(orders.confirmed) != 1 {
		t.Fatalf("confirmed %d times, want exactly 1", len(orders.confirmed))
	}
}

func TestScanImageNoSymbolMessage(t *testing.T) {
	svc := confirm.New(&stubOrders{}, nil, nil, zap.NewNop())
	orch := decode.NewOrchestrator(decode.NewStillDecoder(zap.NewNop()), svc, zap.NewNop())
	h := scanImageHandler(orch, svc)

	var buf bytes.Buffer
	img := image.NewRGBA(image.Rect(0, 0, 120, 120))
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png encode: %v", err)
	}
	payload := base64.StdEncoding.EncodeToString(buf.Bytes())

	resp := postScanImage(t, h, scanImageReq{Image: payload})
	if resp.Success {
		t.Fatal("blank image should not decode")
	}
	if resp.Error != model.ReasonNoSymbol {
		t.Fatalf("error = %q, want %q", resp.Error, model.ReasonNoSymbol)
	}
}

func TestScanImageMissingImage(t *testing.T) {
	svc := confirm.New(&stubOrders{}, nil, nil, zap.NewNop())
	orch := decode.NewOrchestrator(decode.NewStillDecoder(zap.NewNop()), svc, zap.NewNop())
	h := scanImageHandler(orch, svc)

	req := httptest.NewRequest(http.MethodPost, "/v1/scan/image", strings.NewReader(`{}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)
	c.Set("station_id", int64(1))

	if err := h(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
