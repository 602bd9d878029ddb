// Package zapier forwards domain events to the automation webhook.
package zapier

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/sendgrid/rest"

	"github.com/myhockeyrecruiting/mhr/core"
)

type notifier struct {
	url    string
	logger core.Logger
	now    func() time.Time
}

var _ core.EventNotifier = (*notifier)(nil)

// NewNotifier posts events to webhookURL. Events are dropped when webhookURL is empty.
func NewNotifier(webhookURL string, logger core.Logger) core.EventNotifier {
	return &notifier{url: webhookURL, logger: logger, now: time.Now}
}

func (n notifier) Notify(event string, payload map[string]interface{}) {
	if n.url == "" {
		return
	}
	body, err := n.body(event, payload)
	if err != nil {
		n.logger.Error(fmt.Sprintf("encoding %s webhook: %v", event, err), err)
		return
	}
	go n.send(event, body)
}

func (n notifier) body(event string, payload map[string]interface{}) ([]byte, error) {
	data := make(map[string]interface{}, len(payload)+2)
	for k, v := range payload {
		data[k] = v
	}
	data["event"] = event
	data["timestamp"] = n.now().UTC().Format(time.RFC3339)
	return json.Marshal(data)
}

func (n notifier) send(event string, body []byte) {
	res, err := rest.Send(rest.Request{
		Method:  rest.Post,
		BaseURL: n.url,
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    body,
	})
	if err != nil {
		n.logger.Error(fmt.Sprintf("sending %s webhook: %v", event, err), err)
	} else if res.StatusCode >= http.StatusBadRequest {
		n.logger.Error(fmt.Sprintf("sending %s webhook - status: %d - body: %s", event, res.StatusCode, res.Body))
	}
}

// Event is a notification recorded by Recorder.
type Event struct {
	Name    string
	Payload map[string]interface{}
}

// Recorder keeps the events it is notified of.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

var _ core.EventNotifier = (*Recorder)(nil)

func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) Notify(event string, payload map[string]interface{}) {
	r.mu.Lock()
	r.events = append(r.events, Event{Name: event, Payload: payload})
	r.mu.Unlock()
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}
