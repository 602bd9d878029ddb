package zapier

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/myhockeyrecruiting/mhr/core"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(msg string, _ ...interface{}) {
	log.Fatal(msg)
}

var _ core.Logger = nopLogger{}

func TestNotifier_Notify(t *testing.T) {
	received := make(chan map[string]interface{}, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		var data map[string]interface{}
		assert.NoError(t, json.Unmarshal(body, &data))
		received <- data
	}))
	defer srv.Close()

	n := NewNotifier(srv.URL, nopLogger{})
	n.Notify(core.EventContactMessage, map[string]interface{}{"email": "jane@example.com"})

	select {
	case data := <-received:
		assert.Equal(t, core.EventContactMessage, data["event"])
		assert.Equal(t, "jane@example.com", data["email"])
		_, err := time.Parse(time.RFC3339, data["timestamp"].(string))
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("webhook not called")
	}
}

func TestNotifier_Notify_noURL(t *testing.T) {
	n := NewNotifier("", nopLogger{}).(*notifier)
	// must return immediately without sending
	n.Notify(core.EventContactMessage, nil)
}

func TestNotifier_body(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	n := notifier{now: func() time.Time { return now }}
	payload := map[string]interface{}{"event": "overridden", "id": "42"}

	b, err := n.body(core.EventFacilitySubmission, payload)
	require.NoError(t, err)

	var data map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &data))
	assert.Equal(t, map[string]interface{}{
		"event":     core.EventFacilitySubmission,
		"id":        "42",
		"timestamp": "2024-03-01T12:00:00Z",
	}, data)
	assert.Equal(t, "overridden", payload["event"], "payload must not be modified")
}

func TestRecorder(t *testing.T) {
	r := NewRecorder()
	r.Notify("a", map[string]interface{}{"x": 1})
	r.Notify("b", nil)
	events := r.Events()
	require.Len(t, events, 2)
	assert.Equal(t, "a", events[0].Name)
	assert.Equal(t, "b", events[1].Name)
}
