package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPGateway_Notify(t *testing.T) {
	userID := uuid.New()

	t.Run("Success", func(t *testing.T) {
		var received sendRequest
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/notifications", r.URL.Path)
			assert.Equal(t, "Bearer key-1", r.Header.Get("Authorization"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
			w.Write([]byte(`{"status":"success"}`))
		}))
		defer server.Close()

		gw := NewHTTPGateway(HTTPConfig{APIURL: server.URL + "/", APIKey: "key-1", Sender: "StayNest"})
		err := gw.Notify(context.Background(), Message{
			UserID:   userID,
			Template: TemplateBookingConfirmed,
			Data:     map[string]string{"booking_id": "12"},
		})
		require.NoError(t, err)
		assert.Equal(t, "StayNest", received.Sender)
		assert.Equal(t, userID, received.UserID)
		assert.Equal(t, "12", received.Data["booking_id"])
	})

	t.Run("Rejected", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"status":"error","comment":"unknown template"}`))
		}))
		defer server.Close()

		gw := NewHTTPGateway(HTTPConfig{APIURL: server.URL})
		err := gw.Notify(context.Background(), Message{UserID: userID, Template: "nope"})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "unknown template")
	})

	t.Run("Server Error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		gw := NewHTTPGateway(HTTPConfig{APIURL: server.URL})
		err := gw.Notify(context.Background(), Message{UserID: userID, Template: TemplatePayoutFailed})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "503")
	})
}
