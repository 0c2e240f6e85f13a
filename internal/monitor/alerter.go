package monitor

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
)

// WebhookAlerter доставляет алерты HTTP POST-ом на настроенный webhook URL
type WebhookAlerter struct {
	logger *zap.Logger
	url    string
	client *http.Client
}

// NewWebhookAlerter создаёт новый webhook alerter
func NewWebhookAlerter(logger *zap.Logger, url string) *WebhookAlerter {
	return &WebhookAlerter{
		logger: logger,
		url:    url,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Alert отправляет алерт на webhook
func (a *WebhookAlerter) Alert(ctx context.Context, alert Alert) error {
	jsonData, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	// При не-2xx читаем тело ответа для диагностики
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("webhook status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	a.logger.Debug("alert delivered to webhook",
		zap.String("url", a.url),
		zap.String("queue", alert.Queue),
		zap.Int64("depth", alert.Depth),
	)

	return nil
}

// NoOpAlerter - no-op реализация Alerter (для тестов или когда webhook не настроен)
// Алерт остаётся виден в логах монитора
type NoOpAlerter struct {
	logger *zap.Logger
}

// NewNoOpAlerter создаёт no-op alerter
func NewNoOpAlerter(logger *zap.Logger) *NoOpAlerter {
	return &NoOpAlerter{
		logger: logger,
	}
}

// Alert ничего не делает, только логирует
func (a *NoOpAlerter) Alert(ctx context.Context, alert Alert) error {
	a.logger.Warn("no-op alerter: alert not delivered",
		zap.String("queue", alert.Queue),
		zap.Int64("depth", alert.Depth),
		zap.Int("threshold", alert.Threshold),
	)
	return nil
}
