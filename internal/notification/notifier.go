// Package notification provides alert delivery to external channels
// (Telegram, webhooks) for fill and lifecycle events.
package notification

import (
	"context"
	"log/slog"

	"regime-systemv1/internal/execution"
	"regime-systemv1/internal/model"
)

// AlertLevel represents the severity of an alert.
type AlertLevel string

const (
	AlertInfo     AlertLevel = "INFO"
	AlertWarning  AlertLevel = "WARNING"
	AlertCritical AlertLevel = "CRITICAL"
)

// Alert represents a notification to be sent.
type Alert struct {
	Level   AlertLevel `json:"level"`
	Title   string     `json:"title"`
	Message string     `json:"message"`
}

// Notifier is the interface for all notification backends.
type Notifier interface {
	// Send delivers an alert. Returns error if delivery fails.
	Send(ctx context.Context, alert Alert) error
}

// LogNotifier logs alerts locally (useful for development).
type LogNotifier struct{}

// NewLogNotifier creates a log-based notifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Send(ctx context.Context, alert Alert) error {
	slog.Info("alert", "level", alert.Level, "title", alert.Title, "message", alert.Message)
	return nil
}

// MultiNotifier fans one alert out to several backends. Individual
// delivery failures are logged, not propagated, so one dead channel
// never silences the others.
type MultiNotifier struct {
	backends []Notifier
}

// NewMultiNotifier creates a notifier delivering to all given backends.
func NewMultiNotifier(backends ...Notifier) *MultiNotifier {
	return &MultiNotifier{backends: backends}
}

func (m *MultiNotifier) Send(ctx context.Context, alert Alert) error {
	for _, b := range m.backends {
		if err := b.Send(ctx, alert); err != nil {
			slog.Warn("alert delivery failed", "err", err, "title", alert.Title)
		}
	}
	return nil
}

// FillAlert formats an order fill into an alert.
func FillAlert(f execution.Fill) Alert {
	side := "BUY"
	qty := f.Qty
	if qty < 0 {
		side = "SELL"
		qty = -qty
	}
	return Alert{
		Level: AlertInfo,
		Title: "Fill: " + f.Tag,
		Message: side + " " + model.Itoa(int(qty)) + " " + f.Exchange + ":" + f.Token +
			" @ " + formatPaise(f.FillPrice) + " (order " + f.OrderID + ")",
	}
}

// formatPaise renders a paise amount as "rupees.paise".
func formatPaise(paise int64) string {
	neg := paise < 0
	if neg {
		paise = -paise
	}
	whole := model.Itoa(int(paise / 100))
	frac := int(paise % 100)
	out := whole + "." + string([]byte{byte('0' + frac/10), byte('0' + frac%10)})
	if neg {
		return "-" + out
	}
	return out
}
