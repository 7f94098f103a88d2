package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"marketwatch-backend/internal/metrics"
	"marketwatch-backend/internal/types"

	log "github.com/sirupsen/logrus"
)

// Summarizer produces a short market context for a firing. Any error means
// the dispatcher substitutes its deterministic fallback.
type Summarizer interface {
	AlertSummary(ctx context.Context, symbol string, price float64, kind types.AlertKind, target float64) (string, error)
}

// ChatSender pushes messages to a linked chat-bot account.
type ChatSender interface {
	SendAlert(telegramID, symbol string, kind types.AlertKind, price, target float64, summary string) error
	SendCorrelationAlert(telegramID string, c types.CorrelationAlert, triggeredBy string, price float64) error
}

// TemplateSender pushes a pre-approved business-messaging template.
type TemplateSender interface {
	SendAlertTemplate(ctx context.Context, phone, symbol string, kind types.AlertKind, price, target float64, summary string) error
}

// EmailSender delivers the transactional alert email.
type EmailSender interface {
	SendAlert(ctx context.Context, to, symbol string, kind types.AlertKind, price, target float64, summary string) error
}

const summaryTimeout = 20 * time.Second

// Dispatcher fans claimed firings out to each subscriber's eligible channels.
//
// Routing: Telegram for every tier when linked; email when there is no
// Telegram and no paid WhatsApp route; WhatsApp additionally for pro/elite
// with a linked number. A subscriber with no eligible channel is a logged
// no-op.
type Dispatcher struct {
	summarizer Summarizer
	chat       ChatSender
	whatsapp   TemplateSender
	email      EmailSender
}

func NewDispatcher(summarizer Summarizer, chat ChatSender, whatsapp TemplateSender, email EmailSender) *Dispatcher {
	return &Dispatcher{
		summarizer: summarizer,
		chat:       chat,
		whatsapp:   whatsapp,
		email:      email,
	}
}

// Dispatch delivers every firing concurrently and returns once all channel
// sends have finished. One channel's failure never cancels another's send.
func (d *Dispatcher) Dispatch(ctx context.Context, firings []types.Firing, correlations []types.CorrelationFiring) {
	var wg sync.WaitGroup

	for _, f := range firings {
		wg.Add(1)
		go func(f types.Firing) {
			defer wg.Done()
			d.notifyOne(ctx, f)
		}(f)
	}

	for _, c := range correlations {
		wg.Add(1)
		go func(c types.CorrelationFiring) {
			defer wg.Done()
			d.notifyCorrelation(c)
		}(c)
	}

	wg.Wait()
}

func (d *Dispatcher) notifyOne(ctx context.Context, f types.Firing) {
	a := f.Alert
	p := a.Profile
	summary := d.summary(ctx, a.Symbol, f.Price, a.Kind, a.Target)

	sendTelegram := p.TelegramID != ""
	sendWhatsApp := p.Tier.Paid() && p.WhatsApp != ""
	sendEmail := !sendTelegram && !sendWhatsApp && p.Email != ""

	if !sendTelegram && !sendWhatsApp && !sendEmail {
		log.Warnf("no eligible channel for user %s (alert %d), skipping notification", a.UserID, a.ID)
		return
	}

	var wg sync.WaitGroup

	if sendTelegram {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.report("telegram", a.ID,
				d.chat.SendAlert(p.TelegramID, a.Symbol, a.Kind, f.Price, a.Target, summary))
		}()
	}

	if sendWhatsApp {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.report("whatsapp", a.ID,
				d.whatsapp.SendAlertTemplate(ctx, p.WhatsApp, a.Symbol, a.Kind, f.Price, a.Target, summary))
		}()
	}

	if sendEmail {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.report("email", a.ID,
				d.email.SendAlert(ctx, p.Email, a.Symbol, a.Kind, f.Price, a.Target, summary))
		}()
	}

	wg.Wait()

	log.Infof("dispatched [%s] %s @ %.5f (tier=%s telegram=%t whatsapp=%t email=%t)",
		a.Kind, a.Symbol, f.Price, p.Tier, sendTelegram, sendWhatsApp, sendEmail)
}

func (d *Dispatcher) notifyCorrelation(f types.CorrelationFiring) {
	telegramID := f.Alert.Profile.TelegramID
	if telegramID == "" {
		log.Warnf("no telegram id for correlation alert user %s, skipping", f.Alert.UserID)
		return
	}

	d.report("telegram", f.Alert.ID,
		d.chat.SendCorrelationAlert(telegramID, f.Alert, f.TriggeredBy, f.Price))
}

// summary asks the AI collaborator for context and falls back to a
// deterministic sentence; delivery is never blocked by a summary failure.
func (d *Dispatcher) summary(ctx context.Context, symbol string, price float64, kind types.AlertKind, target float64) string {
	fallback := fmt.Sprintf("%s hit your %s level at %.5f.", symbol, kind, price)
	if d.summarizer == nil {
		return fallback
	}

	sctx, cancel := context.WithTimeout(ctx, summaryTimeout)
	defer cancel()

	text, err := d.summarizer.AlertSummary(sctx, symbol, price, kind, target)
	if err != nil || text == "" {
		log.Warnf("AI summary failed for %s: %v, using fallback", symbol, err)
		return fallback
	}
	return text
}

func (d *Dispatcher) report(channel string, alertID int64, err error) {
	if err != nil {
		metrics.NotificationsFailed.WithLabelValues(channel).Inc()
		log.Errorf("%s send failed for alert %d: %v", channel, alertID, err)
		return
	}
	metrics.NotificationsSent.WithLabelValues(channel).Inc()
}
