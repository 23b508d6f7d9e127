package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const defaultBaseURL = "https://slack.com/api"

// WebAPIProvider posts messages through chat.postMessage with a bot token.
type WebAPIProvider struct {
	token   string
	baseURL string
	client  *http.Client
}

func NewWebAPIProvider(token string, client *http.Client) *WebAPIProvider {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &WebAPIProvider{token: token, baseURL: defaultBaseURL, client: client}
}

// WithBaseURL points the provider at another API root.
func (p *WebAPIProvider) WithBaseURL(baseURL string) *WebAPIProvider {
	p.baseURL = strings.TrimRight(baseURL, "/")
	return p
}

type postMessageRequest struct {
	Channel string `json:"channel"`
	Text    string `json:"text"`
}

type postMessageResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

func (p *WebAPIProvider) PostMessage(ctx context.Context, channelID string, message string) error {
	channelID = strings.TrimSpace(channelID)
	if channelID == "" {
		return errors.New("slack channel is required")
	}

	body, err := json.Marshal(postMessageRequest{Channel: channelID, Text: message})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat.postMessage", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+p.token)

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("slack responded with status %d", resp.StatusCode)
	}
	var decoded postMessageResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return err
	}
	if !decoded.OK {
		return fmt.Errorf("slack error: %s", decoded.Error)
	}
	return nil
}
