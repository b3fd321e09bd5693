package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPGateway posts messages to the notification service
type HTTPGateway struct {
	apiURL string
	apiKey string
	sender string
	client *http.Client
}

// HTTPConfig holds configuration for the notification service
type HTTPConfig struct {
	APIURL string
	APIKey string
	Sender string
}

// NewHTTPGateway creates a new notification service client
func NewHTTPGateway(config HTTPConfig) *HTTPGateway {
	return &HTTPGateway{
		apiURL: strings.TrimRight(config.APIURL, "/"),
		apiKey: config.APIKey,
		sender: config.Sender,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type sendRequest struct {
	Sender string `json:"sender,omitempty"`
	Message
}

type sendResponse struct {
	Status  string `json:"status"`
	Comment string `json:"comment"`
}

// Notify posts the message to {apiURL}/notifications
func (g *HTTPGateway) Notify(ctx context.Context, msg Message) error {
	jsonData, err := json.Marshal(sendRequest{Sender: g.sender, Message: msg})
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.apiURL+"/notifications", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read notification response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("notification service returned status %d: %s", resp.StatusCode, string(body))
	}

	var out sendResponse
	if len(body) > 0 {
		if err := json.Unmarshal(body, &out); err != nil {
			return fmt.Errorf("failed to parse notification response: %w", err)
		}
		if out.Status != "" && out.Status != "success" {
			return fmt.Errorf("notification rejected: %s", out.Comment)
		}
	}
	return nil
}
