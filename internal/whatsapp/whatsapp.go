package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"marketwatch-backend/internal/types"

	"github.com/pkg/errors"
)

const graphURL = "https://graph.facebook.com/v19.0"

// Client sends pre-approved template messages through the WhatsApp Cloud API.
type Client struct {
	accessToken   string
	phoneNumberID string
	httpClient    *http.Client
}

func NewClient(accessToken, phoneNumberID string) *Client {
	return &Client{
		accessToken:   accessToken,
		phoneNumberID: phoneNumberID,
		httpClient:    &http.Client{Timeout: 10 * time.Second},
	}
}

type templateParam struct {
	Type          string `json:"type"`
	ParameterName string `json:"parameter_name"`
	Text          string `json:"text"`
}

// SendAlertTemplate pushes the Meta-approved 'market_alert' template with
// named body parameters for a fired alert.
func (c *Client) SendAlertTemplate(ctx context.Context, phone, symbol string, kind types.AlertKind, price, target float64, summary string) error {
	payload := map[string]interface{}{
		"messaging_product": "whatsapp",
		"to":                phone,
		"type":              "template",
		"template": map[string]interface{}{
			"name":     "market_alert",
			"language": map[string]string{"code": "en_US"},
			"components": []map[string]interface{}{
				{
					"type": "body",
					"parameters": []templateParam{
						{Type: "text", ParameterName: "symbol", Text: symbol},
						{Type: "text", ParameterName: "alert_type", Text: strings.ToUpper(string(kind))},
						{Type: "text", ParameterName: "current_price", Text: fmt.Sprintf("%.5f", price)},
						{Type: "text", ParameterName: "target_level", Text: fmt.Sprintf("%.5f", target)},
						{Type: "text", ParameterName: "ai_summary", Text: summary},
					},
				},
			},
		},
	}

	return c.post(ctx, payload)
}

func (c *Client) post(ctx context.Context, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "could not encode whatsapp payload")
	}

	endpoint := fmt.Sprintf("%s/%s/messages", graphURL, c.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "could not build whatsapp request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "whatsapp send failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return errors.Errorf("whatsapp API error (%d): %s", resp.StatusCode, detail)
	}

	return nil
}
