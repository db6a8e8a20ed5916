package messenger

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendTextSuccess(t *testing.T) {
	var gotPath, gotToken string
	var gotBody sendRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotToken = r.URL.Query().Get("access_token")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode send body: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]string{
			"recipient_id": "user-1",
			"message_id":   "mid.123",
		})
	}))
	defer srv.Close()

	client := NewClient("page-token", srv.URL)
	err := client.SendText(context.Background(), "user-1", "hola")

	require.NoError(t, err)
	assert.Equal(t, "/me/messages", gotPath)
	assert.Equal(t, "page-token", gotToken)
	assert.Equal(t, "user-1", gotBody.Recipient.ID)
	assert.Equal(t, "hola", gotBody.Message.Text)
}

func TestSendTextPlatformRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{
				"message": "Invalid OAuth access token.",
				"type":    "OAuthException",
				"code":    190,
			},
		})
	}))
	defer srv.Close()

	client := NewClient("bad-token", srv.URL)
	err := client.SendText(context.Background(), "user-1", "hola")

	var deliveryErr *DeliveryError
	require.ErrorAs(t, err, &deliveryErr)
	assert.Equal(t, "Invalid OAuth access token.", deliveryErr.Message)
	assert.Equal(t, 190, deliveryErr.Code)
}

func TestSendTextNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	client := NewClient("page-token", srv.URL)
	err := client.SendText(context.Background(), "user-1", "hola")

	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
}
