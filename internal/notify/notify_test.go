package notify

import (
	"context"
	"sync"
	"testing"

	"marketwatch-backend/internal/types"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentAlert struct {
	to      string
	symbol  string
	summary string
}

type fakeChat struct {
	mu        sync.Mutex
	fail      bool
	alerts    []sentAlert
	corrSends []string
}

func (c *fakeChat) SendAlert(telegramID, symbol string, _ types.AlertKind, _, _ float64, summary string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.alerts = append(c.alerts, sentAlert{to: telegramID, symbol: symbol, summary: summary})
	if c.fail {
		return errors.New("telegram unavailable")
	}
	return nil
}

func (c *fakeChat) SendCorrelationAlert(telegramID string, _ types.CorrelationAlert, _ string, _ float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.corrSends = append(c.corrSends, telegramID)
	return nil
}

type fakeTemplate struct {
	mu    sync.Mutex
	fail  bool
	sends []sentAlert
}

func (w *fakeTemplate) SendAlertTemplate(_ context.Context, phone, symbol string, _ types.AlertKind, _, _ float64, summary string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.sends = append(w.sends, sentAlert{to: phone, symbol: symbol, summary: summary})
	if w.fail {
		return errors.New("whatsapp unavailable")
	}
	return nil
}

type fakeEmail struct {
	mu    sync.Mutex
	sends []sentAlert
}

func (e *fakeEmail) SendAlert(_ context.Context, to, symbol string, _ types.AlertKind, _, _ float64, summary string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sends = append(e.sends, sentAlert{to: to, symbol: symbol, summary: summary})
	return nil
}

type fakeSummarizer struct {
	text string
	err  error
}

func (s *fakeSummarizer) AlertSummary(_ context.Context, _ string, _ float64, _ types.AlertKind, _ float64) (string, error) {
	return s.text, s.err
}

func firing(profile types.Profile) types.Firing {
	return types.Firing{
		Alert: types.Alert{
			ID:      1,
			UserID:  "user-1",
			Symbol:  "EURUSD",
			Kind:    types.KindTouch,
			Target:  1.0850,
			Profile: profile,
		},
		Price: 1.0852,
	}
}

func TestDispatchFreeTierFallsBackToEmail(t *testing.T) {
	chat := &fakeChat{}
	wa := &fakeTemplate{}
	mail := &fakeEmail{}
	d := NewDispatcher(&fakeSummarizer{text: "context"}, chat, wa, mail)

	d.Dispatch(context.Background(), []types.Firing{firing(types.Profile{
		Tier:  types.TierFree,
		Email: "trader@example.com",
	})}, nil)

	assert.Empty(t, chat.alerts)
	assert.Empty(t, wa.sends)
	require.Len(t, mail.sends, 1)
	assert.Equal(t, "trader@example.com", mail.sends[0].to)
}

func TestDispatchProTierBothChannels(t *testing.T) {
	chat := &fakeChat{}
	wa := &fakeTemplate{}
	mail := &fakeEmail{}
	d := NewDispatcher(&fakeSummarizer{text: "context"}, chat, wa, mail)

	d.Dispatch(context.Background(), []types.Firing{firing(types.Profile{
		Tier:       types.TierPro,
		TelegramID: "42",
		WhatsApp:   "+15550001111",
		Email:      "trader@example.com",
	})}, nil)

	require.Len(t, chat.alerts, 1)
	require.Len(t, wa.sends, 1)
	// Telegram and WhatsApp cover the firing; email is the fallback channel only.
	assert.Empty(t, mail.sends)
}

func TestDispatchOneChannelFailureDoesNotSuppressOther(t *testing.T) {
	chat := &fakeChat{fail: true}
	wa := &fakeTemplate{}
	mail := &fakeEmail{}
	d := NewDispatcher(&fakeSummarizer{text: "context"}, chat, wa, mail)

	d.Dispatch(context.Background(), []types.Firing{firing(types.Profile{
		Tier:       types.TierElite,
		TelegramID: "42",
		WhatsApp:   "+15550001111",
	})}, nil)

	require.Len(t, chat.alerts, 1)
	require.Len(t, wa.sends, 1)
}

func TestDispatchPaidWhatsAppSuppressesEmailFallback(t *testing.T) {
	chat := &fakeChat{}
	wa := &fakeTemplate{}
	mail := &fakeEmail{}
	d := NewDispatcher(&fakeSummarizer{text: "context"}, chat, wa, mail)

	d.Dispatch(context.Background(), []types.Firing{firing(types.Profile{
		Tier:     types.TierPro,
		WhatsApp: "+15550001111",
		Email:    "trader@example.com",
	})}, nil)

	assert.Empty(t, chat.alerts)
	require.Len(t, wa.sends, 1)
	assert.Empty(t, mail.sends)
}

func TestDispatchFreeTierWhatsAppIsNotEligible(t *testing.T) {
	chat := &fakeChat{}
	wa := &fakeTemplate{}
	mail := &fakeEmail{}
	d := NewDispatcher(&fakeSummarizer{text: "context"}, chat, wa, mail)

	d.Dispatch(context.Background(), []types.Firing{firing(types.Profile{
		Tier:     types.TierFree,
		WhatsApp: "+15550001111",
		Email:    "trader@example.com",
	})}, nil)

	assert.Empty(t, wa.sends)
	require.Len(t, mail.sends, 1)
}

func TestDispatchNoEligibleChannelIsNoOp(t *testing.T) {
	chat := &fakeChat{}
	wa := &fakeTemplate{}
	mail := &fakeEmail{}
	d := NewDispatcher(&fakeSummarizer{text: "context"}, chat, wa, mail)

	d.Dispatch(context.Background(), []types.Firing{firing(types.Profile{
		Tier: types.TierFree,
	})}, nil)

	assert.Empty(t, chat.alerts)
	assert.Empty(t, wa.sends)
	assert.Empty(t, mail.sends)
}

func TestDispatchSummaryFailureUsesFallback(t *testing.T) {
	chat := &fakeChat{}
	d := NewDispatcher(&fakeSummarizer{err: errors.New("model timeout")}, chat, &fakeTemplate{}, &fakeEmail{})

	d.Dispatch(context.Background(), []types.Firing{firing(types.Profile{
		Tier:       types.TierFree,
		TelegramID: "42",
	})}, nil)

	require.Len(t, chat.alerts, 1)
	assert.Equal(t, "EURUSD hit your touch level at 1.08520.", chat.alerts[0].summary)
}

func TestDispatchEmptySummaryUsesFallback(t *testing.T) {
	chat := &fakeChat{}
	d := NewDispatcher(&fakeSummarizer{text: ""}, chat, &fakeTemplate{}, &fakeEmail{})

	d.Dispatch(context.Background(), []types.Firing{firing(types.Profile{
		Tier:       types.TierFree,
		TelegramID: "42",
	})}, nil)

	require.Len(t, chat.alerts, 1)
	assert.Equal(t, "EURUSD hit your touch level at 1.08520.", chat.alerts[0].summary)
}

func TestDispatchCorrelationGoesToTelegramOnly(t *testing.T) {
	chat := &fakeChat{}
	wa := &fakeTemplate{}
	mail := &fakeEmail{}
	d := NewDispatcher(&fakeSummarizer{text: "context"}, chat, wa, mail)

	corr := types.CorrelationFiring{
		Alert: types.CorrelationAlert{
			ID:      2,
			UserID:  "user-2",
			Symbol1: "EURUSD",
			Symbol2: "GBPUSD",
			Profile: types.Profile{Tier: types.TierPro, TelegramID: "99", WhatsApp: "+15550001111"},
		},
		TriggeredBy: "GBPUSD",
		Price:       1.1050,
	}

	d.Dispatch(context.Background(), nil, []types.CorrelationFiring{corr})

	require.Len(t, chat.corrSends, 1)
	assert.Equal(t, "99", chat.corrSends[0])
	assert.Empty(t, wa.sends)
	assert.Empty(t, mail.sends)
}

func TestDispatchCorrelationWithoutTelegramIsNoOp(t *testing.T) {
	chat := &fakeChat{}
	d := NewDispatcher(&fakeSummarizer{text: "context"}, chat, &fakeTemplate{}, &fakeEmail{})

	corr := types.CorrelationFiring{
		Alert: types.CorrelationAlert{
			ID:      2,
			UserID:  "user-2",
			Profile: types.Profile{Tier: types.TierFree, Email: "trader@example.com"},
		},
		TriggeredBy: "GBPUSD",
		Price:       1.1050,
	}

	d.Dispatch(context.Background(), nil, []types.CorrelationFiring{corr})

	assert.Empty(t, chat.corrSends)
}
