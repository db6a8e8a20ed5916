package messenger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"
)

// DeliveryError reports that the platform accepted the request but refused
// to deliver the message.
type DeliveryError struct {
	Message string
	Type    string
	Code    int
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("send rejected by platform: %s (type=%s, code=%d)", e.Message, e.Type, e.Code)
}

// TransportError reports a network-level failure before the platform could
// answer.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("messenger transport failure during %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Client talks to the platform's Send API. Delivery is fire-and-forget from
// the webhook's perspective; callers log failures instead of propagating
// them.
type Client struct {
	accessToken string
	baseURL     string
	httpClient  *http.Client
}

// NewClient builds a Send API client authenticated with the page access
// token. baseURL has no trailing slash, e.g. "https://graph.facebook.com/v2.6".
func NewClient(accessToken, baseURL string) *Client {
	return &Client{
		accessToken: accessToken,
		baseURL:     baseURL,
		httpClient:  &http.Client{Timeout: 15 * time.Second},
	}
}

type sendRequest struct {
	Recipient recipient `json:"recipient"`
	Message   message   `json:"message"`
}

type recipient struct {
	ID string `json:"id"`
}

type message struct {
	Text string `json:"text"`
}

type sendResponse struct {
	RecipientID string `json:"recipient_id"`
	MessageID   string `json:"message_id"`
	Error       *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// SendText pushes a plain text message to a channel user.
func (c *Client) SendText(ctx context.Context, recipientID, text string) error {
	payload, err := json.Marshal(sendRequest{
		Recipient: recipient{ID: recipientID},
		Message:   message{Text: text},
	})
	if err != nil {
		return fmt.Errorf("encode send payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/me/messages?access_token=%s", c.baseURL, url.QueryEscape(c.accessToken))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create send request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Op: "send", Err: err}
	}
	defer resp.Body.Close()

	var result sendResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return &TransportError{Op: "decode response", Err: err}
	}

	if result.Error != nil {
		return &DeliveryError{
			Message: result.Error.Message,
			Type:    result.Error.Type,
			Code:    result.Error.Code,
		}
	}

	log.Debug().
		Str("recipient", recipientID).
		Str("message_id", result.MessageID).
		Msg("message delivered")
	return nil
}
