package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// FCMConfig holds Firebase Cloud Messaging configuration
type FCMConfig struct {
	ServerKey string
	ProjectID string
}

// FCMClient sends push notifications via Firebase Cloud Messaging
type FCMClient struct {
	config     FCMConfig
	httpClient *http.Client
}

// NewFCMClient creates a new FCM client
func NewFCMClient(config FCMConfig) *FCMClient {
	return &FCMClient{
		config: config,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Enabled reports whether the client is configured for a real project
func (c *FCMClient) Enabled() bool {
	return c.config.ServerKey != "" && c.config.ProjectID != ""
}

// Message represents a push notification
type Message struct {
	Token string // Device token
	Title string
	Body  string
	Data  map[string]string // Custom data
	Badge int               // Badge count (iOS)
}

// fcmRequest represents the FCM HTTP v1 API request
type fcmRequest struct {
	Message fcmMessage `json:"message"`
}

type fcmMessage struct {
	Token        string            `json:"token,omitempty"`
	Topic        string            `json:"topic,omitempty"`
	Notification *fcmNotification  `json:"notification,omitempty"`
	Data         map[string]string `json:"data,omitempty"`
	Android      *fcmAndroid       `json:"android,omitempty"`
	APNS         *fcmAPNS          `json:"apns,omitempty"`
}

type fcmNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type fcmAndroid struct {
	Priority     string                  `json:"priority,omitempty"` // "high" or "normal"
	Notification *fcmAndroidNotification `json:"notification,omitempty"`
}

type fcmAndroidNotification struct {
	ClickAction string `json:"click_action,omitempty"`
	Sound       string `json:"sound,omitempty"`
}

type fcmAPNS struct {
	Payload *apnsPayload `json:"payload,omitempty"`
}

type apnsPayload struct {
	Aps *apnsAps `json:"aps,omitempty"`
}

type apnsAps struct {
	Badge int    `json:"badge,omitempty"`
	Sound string `json:"sound,omitempty"`
}

// Send sends a push notification to a single device
func (c *FCMClient) Send(ctx context.Context, msg *Message) error {
	if !c.Enabled() {
		return nil
	}

	request := fcmRequest{
		Message: fcmMessage{
			Token: msg.Token,
			Notification: &fcmNotification{
				Title: msg.Title,
				Body:  msg.Body,
			},
			Data: msg.Data,
			Android: &fcmAndroid{
				Priority: "high",
				Notification: &fcmAndroidNotification{
					ClickAction: "FLUTTER_NOTIFICATION_CLICK",
					Sound:       "default",
				},
			},
		},
	}

	// Add badge for iOS
	if msg.Badge > 0 {
		request.Message.APNS = &fcmAPNS{
			Payload: &apnsPayload{
				Aps: &apnsAps{
					Badge: msg.Badge,
					Sound: "default",
				},
			},
		}
	}

	body, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("failed to marshal FCM request: %w", err)
	}

	url := fmt.Sprintf("https://fcm.googleapis.com/v1/projects/%s/messages:send", c.config.ProjectID)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.config.ServerKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send FCM request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("FCM returned status %d", resp.StatusCode)
	}

	return nil
}

// SendToTopic sends a push notification to every device subscribed to
// a topic
func (c *FCMClient) SendToTopic(ctx context.Context, topic, title, body string, data map[string]string) error {
	if !c.Enabled() {
		return nil
	}

	request := fcmRequest{
		Message: fcmMessage{
			Topic: topic,
			Notification: &fcmNotification{
				Title: title,
				Body:  body,
			},
			Data: data,
			Android: &fcmAndroid{
				Priority: "high",
			},
		},
	}

	payload, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("failed to marshal FCM request: %w", err)
	}

	url := fmt.Sprintf("https://fcm.googleapis.com/v1/projects/%s/messages:send", c.config.ProjectID)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.config.ServerKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send FCM request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("FCM returned status %d", resp.StatusCode)
	}

	return nil
}

// SendToTokens sends a push notification to multiple tokens.
// Delivery failures are logged, never propagated: a dead token must not
// block the rest of the fan-out.
func (c *FCMClient) SendToTokens(ctx context.Context, tokens []string, title, body string, data map[string]string) {
	for _, token := range tokens {
		msg := &Message{
			Token: token,
			Title: title,
			Body:  body,
			Data:  data,
		}
		go func(m *Message) {
			if err := c.Send(context.Background(), m); err != nil {
				log.Warn().Err(err).Msg("push delivery failed")
			}
		}(msg)
	}
}
