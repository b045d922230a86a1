package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTelegramNotify(t *testing.T) {
	var got sendMessageRequest
	var path string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	tg := NewTelegram("abc", "42", 0)
	tg.baseURL = server.URL

	require.NoError(t, tg.Notify(context.Background(), "Ended!"))
	assert.Equal(t, "/botabc/sendMessage", path)
	assert.Equal(t, sendMessageRequest{ChatID: "42", Text: "Ended!"}, got)
}

func TestTelegramNotifyAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"description":"chat not found"}`))
	}))
	defer server.Close()

	tg := NewTelegram("abc", "42", 0)
	tg.baseURL = server.URL

	err := tg.Notify(context.Background(), "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}

func TestLoadTelegram(t *testing.T) {
	dir := t.TempDir()

	tg, err := LoadTelegram(filepath.Join(dir, "telegram.json"))
	require.NoError(t, err)
	assert.Nil(t, tg)

	path := filepath.Join(dir, "auth.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"token":"t","chat_id":"c"}`), 0o600))
	tg, err = LoadTelegram(path)
	require.NoError(t, err)
	require.NotNil(t, tg)
	assert.Equal(t, "t", tg.token)
	assert.Equal(t, "c", tg.chatID)

	require.NoError(t, os.WriteFile(path, []byte(`{"token":"t"}`), 0o600))
	_, err = LoadTelegram(path)
	assert.Error(t, err)
}
