package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/comandaqr/ticket-gateway/internal/config"
	"github.com/comandaqr/ticket-gateway/internal/metrics"
	"github.com/comandaqr/ticket-gateway/internal/util"
)

// Gateway wire format: POST {base}/message/sendText/{instance} with an
// apikey header.
type sendTextRequest struct {
	Number      string      `json:"number"`
	Options     sendOptions `json:"options"`
	TextMessage textMessage `json:"textMessage"`
}

type sendOptions struct {
	Delay       int    `json:"delay"`
	Presence    string `json:"presence"`
	LinkPreview bool   `json:"linkPreview"`
}

type textMessage struct {
	Text string `json:"text"`
}

// Notifier sends the order-confirmation message through the external
// messaging gateway. Delivery is best-effort by contract: every
// failure is logged and absorbed here so a messaging outage can never
// block order confirmation. No retry, no queue; a dropped notification
// stays dropped.
type Notifier struct {
	cfg    config.NotifierConfig
	client *http.Client
	br     *MicroBreaker
	log    *zap.Logger
}

func New(cfg config.NotifierConfig, log *zap.Logger) *Notifier {
	if cfg.Instance == "" {
		cfg.Instance = "main"
	}
	if cfg.TimeoutMs <= 0 {
		cfg.TimeoutMs = 3000
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Notifier{
		cfg:    cfg,
		client: &http.Client{Timeout: time.Duration(cfg.TimeoutMs) * time.Millisecond},
		br:     NewMicroBreaker(cfg.Breaker.FailThreshold, time.Duration(cfg.Breaker.OpenForMs)*time.Millisecond),
		log:    log,
	}
}

// Notify dispatches the confirmation message without making the caller
// wait. The launched goroutine fully handles its own outcome.
func (n *Notifier) Notify(phone, dishName string) {
	go func() {
		if err := n.Send(context.Background(), phone, dishName); err != nil {
			metrics.NotificationsTotal.WithLabelValues("failed").Inc()
			n.log.Error("notification failed", zap.String("dish", dishName), zap.Error(err))
			return
		}
	}()
}

// Send builds and posts one confirmation message. Missing gateway
// credentials skip the call entirely: notification is an enhancement,
// not a required step.
func (n *Notifier) Send(ctx context.Context, phone, dishName string) error {
	if strings.TrimSpace(n.cfg.BaseURL) == "" || strings.TrimSpace(n.cfg.APIKey) == "" {
		metrics.NotificationsTotal.WithLabelValues("skipped").Inc()
		n.log.Warn("notification skipped, gateway credentials not configured")
		return nil
	}

	if !n.br.TryAcquire() {
		metrics.NotificationsTotal.WithLabelValues("suppressed").Inc()
		n.log.Warn("notification suppressed, gateway breaker open", zap.String("dish", dishName))
		return nil
	}

	req := sendTextRequest{
		Number: util.NormalizePhone(phone),
		Options: sendOptions{
			Delay:       n.cfg.DelayMs,
			Presence:    n.cfg.Presence,
			LinkPreview: n.cfg.LinkPreview,
		},
		TextMessage: textMessage{Text: n.messageBody(dishName)},
	}

	if err := n.post(ctx, req); err != nil {
		n.br.OnFailure()
		return err
	}

	n.br.OnSuccess()
	metrics.NotificationsTotal.WithLabelValues("sent").Inc()
	n.log.Info("notification sent", zap.String("dish", dishName))
	return nil
}

func (n *Notifier) messageBody(dishName string) string {
	body := fmt.Sprintf("✅ Pedido confirmado: %s\nSeu pedido já está na cozinha!", dishName)
	if n.cfg.PublicHost != "" {
		body += fmt.Sprintf("\nAcompanhe em https://%s/pedido", n.cfg.PublicHost)
	}
	return body
}

func (n *Notifier) post(ctx context.Context, body sendTextRequest) error {
	b, _ := json.Marshal(body)
	url := strings.TrimRight(n.cfg.BaseURL, "/") + "/message/sendText/" + n.cfg.Instance

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", n.cfg.APIKey)

	res, err := n.client.Do(req)
	if err != nil {
		return err
	}

	defer res.Body.Close()

	if res.StatusCode/100 != 2 {
		// Keep whatever diagnostic the gateway returned for the log.
		detail, _ := io.ReadAll(io.LimitReader(res.Body, 2048))
		return fmt.Errorf("gateway status=%d body=%s", res.StatusCode, strings.TrimSpace(string(detail)))
	}

	return nil
}
