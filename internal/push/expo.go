package push

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"
	"github.com/wecube/server/internal/domain"
)

const (
	DefaultSound = "default"
	DefaultTitle = "New Message"

	maxResponseBody = 64 << 10
)

// Message is one Expo push request body.
type Message struct {
	To    string `json:"to"`
	Sound string `json:"sound"`
	Title string `json:"title"`
	Body  string `json:"body"`
	Data  Data   `json:"data"`
}

type Data struct {
	MessageID string `json:"messageId"`
	SenderID  string `json:"senderId"`
}

// NewMessage builds the push for a stored chat message.
func NewMessage(token string, msg *domain.Message) *Message {
	return &Message{
		To:    token,
		Sound: DefaultSound,
		Title: DefaultTitle,
		Body:  msg.Message,
		Data: Data{
			MessageID: msg.ID,
			SenderID:  msg.SenderID,
		},
	}
}

// Sender delivers a push message to the push service.
type Sender interface {
	Send(ctx context.Context, msg *Message) error
}

// ExpoClient posts messages to the Expo push endpoint.
type ExpoClient struct {
	endpoint string
	client   *http.Client
}

func NewExpoClient(endpoint string, timeout time.Duration) *ExpoClient {
	return &ExpoClient{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

func (c *ExpoClient) Send(ctx context.Context, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return errors.Wrap(err, "marshal push message")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "build push request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "post push message")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return errors.Wrap(err, "read push response")
	}
	jww.INFO.Printf("push: response %d: %s", resp.StatusCode, bytes.TrimSpace(respBody))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errors.Errorf("push endpoint returned status %d", resp.StatusCode)
	}
	return nil
}
