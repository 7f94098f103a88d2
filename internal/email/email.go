package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"marketwatch-backend/internal/types"
	"marketwatch-backend/lib/helpers"
	"marketwatch-backend/lib/translation"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const resendURL = "https://api.resend.com/emails"

var kindVerbs = map[types.AlertKind]string{
	types.KindTouch: "touched",
	types.KindCross: "crossed",
	types.KindNear:  "is near",
	types.KindZone:  "entered your zone at",
}

// Client delivers transactional alert emails through Resend. An empty API key
// leaves the client unconfigured; sends then no-op rather than fail.
type Client struct {
	apiKey      string
	from        string
	frontendURL string
	httpClient  *http.Client
}

func NewClient(apiKey, from, frontendURL string) *Client {
	return &Client{
		apiKey:      apiKey,
		from:        from,
		frontendURL: frontendURL,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
	}
}

// SendAlert emails a fired alert. Returns nil without sending when the
// client has no API key.
func (c *Client) SendAlert(ctx context.Context, to, symbol string, kind types.AlertKind, price, target float64, summary string) error {
	if c.apiKey == "" {
		log.Debugf("resend API key not set, skipping email alert for %s", to)
		return nil
	}

	verb, ok := kindVerbs[kind]
	if !ok {
		verb = "hit"
	}

	subject := fmt.Sprintf("🔔 %s %s — %s @ %s",
		symbol, translation.Translate("Alert"), string(kind), helpers.FormatPrice(price))

	html := fmt.Sprintf(`
	<div style="font-family:sans-serif;max-width:480px;margin:0 auto;padding:24px">
	  <h2 style="color:#10b981;margin:0 0 8px">MarketWatch AI Alert</h2>
	  <p style="color:#6b7280;margin:0 0 24px;font-size:14px">%s</p>

	  <div style="background:#111;border-radius:12px;padding:20px;margin-bottom:20px">
	    <p style="font-size:22px;font-weight:700;color:#fff;margin:0">%s</p>
	    <p style="color:#9ca3af;font-size:14px;margin:4px 0 16px">
	      %s %s <strong style="color:#fff">%s</strong>
	    </p>
	    <p style="font-size:16px;color:#10b981;font-weight:600;margin:0">
	      Current price: %s
	    </p>
	  </div>

	  <div style="background:#111;border-radius:12px;padding:20px;margin-bottom:24px">
	    <p style="color:#6b7280;font-size:12px;text-transform:uppercase;letter-spacing:.05em;margin:0 0 8px">
	      AI Market Context
	    </p>
	    <p style="color:#d1d5db;font-size:14px;line-height:1.6;margin:0">%s</p>
	  </div>

	  <a href="%s/dashboard/alerts"
	     style="display:inline-block;background:#10b981;color:#000;font-weight:600;
	            padding:12px 24px;border-radius:8px;text-decoration:none;font-size:14px">
	    Manage Alerts →
	  </a>
	</div>`,
		translation.Translate("Price alert triggered"),
		symbol,
		symbol, verb, helpers.FormatPrice(target),
		helpers.FormatPrice(price),
		summary,
		c.frontendURL,
	)

	body, err := json.Marshal(map[string]interface{}{
		"from":    c.from,
		"to":      []string{to},
		"subject": subject,
		"html":    html,
	})
	if err != nil {
		return errors.Wrap(err, "could not encode email payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, resendURL, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "could not build email request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "email send failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return errors.Errorf("resend API error (%d): %s", resp.StatusCode, detail)
	}

	return nil
}
