package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"
)

// Telegram sends plain-text messages through the Bot API.
type Telegram struct {
	token   string
	chatID  string
	client  *http.Client
	baseURL string
}

type telegramAuth struct {
	Token  string `json:"token"`
	ChatID string `json:"chat_id"`
}

type sendMessageRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

func NewTelegram(token, chatID string, timeout time.Duration) *Telegram {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Telegram{
		token:   token,
		chatID:  chatID,
		client:  &http.Client{Timeout: timeout},
		baseURL: "https://api.telegram.org",
	}
}

// LoadTelegram reads {"token": ..., "chat_id": ...} from path. A missing file
// disables notifications and returns nil without error.
func LoadTelegram(path string) (*Telegram, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var auth telegramAuth
	if err := json.Unmarshal(payload, &auth); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if auth.Token == "" || auth.ChatID == "" {
		return nil, fmt.Errorf("%s: token and chat_id are required", path)
	}
	return NewTelegram(auth.Token, auth.ChatID, 0), nil
}

func (t *Telegram) Notify(ctx context.Context, message string) error {
	if t == nil || t.client == nil {
		return errors.New("telegram notifier not configured")
	}
	payload, err := json.Marshal(sendMessageRequest{ChatID: t.chatID, Text: message})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var apiResp telegramResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&apiResp)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if decodeErr == nil && apiResp.Description != "" {
			return fmt.Errorf("telegram api error: %s", apiResp.Description)
		}
		return fmt.Errorf("telegram api returned status %d", resp.StatusCode)
	}
	if decodeErr != nil {
		return decodeErr
	}
	if !apiResp.OK {
		return fmt.Errorf("telegram api error: %s", apiResp.Description)
	}
	return nil
}
