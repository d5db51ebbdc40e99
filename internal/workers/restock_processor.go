// internal/workers/restock_processor.go
package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/smtp"

	"github.com/hibiken/asynq"

	"github.com/satyam-tomar/vending-machine-api/internal/core/ports"
	"github.com/satyam-tomar/vending-machine-api/internal/pkg/config"
)

// RestockProcessor notifies operators about items that sold out.
type RestockProcessor struct {
	config *config.Config
	logger *slog.Logger
}

// NewRestockProcessor creates a new restock processor
func NewRestockProcessor(cfg *config.Config, logger *slog.Logger) *RestockProcessor {
	return &RestockProcessor{
		config: cfg,
		logger: logger.With(slog.String("processor", "restock")),
	}
}

// ProcessRestockAlert handles a sold-out notification task.
func (p *RestockProcessor) ProcessRestockAlert(ctx context.Context, t *asynq.Task) error {
	var payload ports.RestockAlertPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	p.logger.InfoContext(ctx, "item sold out, restock needed",
		slog.String("slot_code", payload.SlotCode),
		slog.String("item_name", payload.ItemName),
		slog.String("item_id", payload.ItemID))

	subject := fmt.Sprintf("Restock needed: %s in slot %s", payload.ItemName, payload.SlotCode)
	body := fmt.Sprintf(
		"Item %s (id %s) in slot %s (id %s) has sold out and needs restocking.",
		payload.ItemName, payload.ItemID, payload.SlotCode, payload.SlotID,
	)

	// In development, just log the alert
	if p.config.App.Environment == "development" {
		p.logger.InfoContext(ctx, "restock alert would be sent",
			slog.String("to", p.config.Alerts.OperatorEmail),
			slog.String("subject", subject))
		return nil
	}

	if p.config.Alerts.SMTPAddr == "" || p.config.Alerts.OperatorEmail == "" {
		p.logger.WarnContext(ctx, "alert delivery not configured, skipping",
			slog.String("subject", subject))
		return nil
	}

	from := p.config.Alerts.FromAddress
	msg := []byte(fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s",
		from, p.config.Alerts.OperatorEmail, subject, body,
	))

	auth := smtp.PlainAuth("", p.config.Alerts.SMTPUser, p.config.Alerts.SMTPPassword, p.config.Alerts.SMTPHost)
	if err := smtp.SendMail(p.config.Alerts.SMTPAddr, auth, from, []string{p.config.Alerts.OperatorEmail}, msg); err != nil {
		return fmt.Errorf("failed to send restock alert: %w", err)
	}

	p.logger.InfoContext(ctx, "restock alert sent",
		slog.String("to", p.config.Alerts.OperatorEmail))
	return nil
}
