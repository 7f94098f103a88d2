package telegram

import (
	"fmt"
	"strconv"

	"marketwatch-backend/internal/types"
	"marketwatch-backend/lib/translation"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// NewBot creates new telegram bot
func NewBot(c BotConfig) (*Bot, error) {
	bot, err := tgbotapi.NewBotAPI(c.Token)
	if err != nil {
		return nil, errors.Wrap(err, "could not create telegram bot")
	}

	bot.Debug = c.Debug

	return &Bot{
		Bot:    bot,
		Config: c,
	}, nil
}

// SendMessage sends a telegram message
func (b *Bot) SendMessage(m Message) error {
	msg := tgbotapi.NewMessage(m.ChatID, m.Text)
	msg.DisableWebPagePreview = true
	msg.ParseMode = m.ParseMode
	_, err := b.Bot.Send(msg)
	return errors.Wrapf(err, "could not send message to chat %d", m.ChatID)
}

var kindEmoji = map[types.AlertKind]string{
	types.KindTouch: "🎯",
	types.KindCross: "⚡",
	types.KindNear:  "📍",
	types.KindZone:  "📦",
}

func formatAlertMessage(symbol string, kind types.AlertKind, price, target float64, summary string) string {
	emoji, ok := kindEmoji[kind]
	if !ok {
		emoji = "🔔"
	}
	return fmt.Sprintf(
		"%s *%s*\n\n*Symbol:* `%s`\n*Type:* %s\n*Current Price:* `%.5f`\n*Target Level:* `%.5f`\n\n🤖 *%s:*\n%s",
		emoji,
		translation.Translate("Alert Triggered"),
		symbol,
		string(kind),
		price,
		target,
		translation.Translate("AI Summary"),
		summary,
	)
}

// SendAlert pushes a fired-alert message to a subscriber. A failed Markdown
// send is retried once as plain text before reporting failure; that retry is
// this sender's contract, not the dispatcher's.
func (b *Bot) SendAlert(telegramID, symbol string, kind types.AlertKind, price, target float64, summary string) error {
	chatID, err := strconv.ParseInt(telegramID, 10, 64)
	if err != nil {
		return errors.Wrapf(err, "invalid telegram id %q", telegramID)
	}

	err = b.SendMessage(Message{
		ChatID:    chatID,
		Text:      formatAlertMessage(symbol, kind, price, target, summary),
		ParseMode: tgbotapi.ModeMarkdown,
	})
	if err == nil {
		return nil
	}
	log.Warnf("telegram markdown send failed for chat %d, retrying plain: %v", chatID, err)

	plain := fmt.Sprintf("Alert Triggered: %s %s\nPrice: %.5f  Target: %.5f\n\n%s",
		symbol, kind, price, target, summary)
	return b.SendMessage(Message{ChatID: chatID, Text: plain})
}

// SendCorrelationAlert pushes a correlation-zone firing, pointing the
// subscriber at the other leg for follow-through.
func (b *Bot) SendCorrelationAlert(telegramID string, c types.CorrelationAlert, triggeredBy string, price float64) error {
	chatID, err := strconv.ParseInt(telegramID, 10, 64)
	if err != nil {
		return errors.Wrapf(err, "invalid telegram id %q", telegramID)
	}

	other := c.Symbol2
	if triggeredBy == c.Symbol2 {
		other = c.Symbol1
	}

	text := fmt.Sprintf(
		"🔗 *%s*\n\n*Pair:* `%s` / `%s`\n*Zone:* `%.5f` to `%.5f`\n\n`%s` entered the zone @ `%.5f`\n\nWatch `%s` for follow-through.",
		translation.Translate("Correlation Zone Alert!"),
		c.Symbol1, c.Symbol2,
		c.ZoneLow, c.ZoneHigh,
		triggeredBy, price,
		other,
	)

	return b.SendMessage(Message{
		ChatID:    chatID,
		Text:      text,
		ParseMode: tgbotapi.ModeMarkdown,
	})
}
