// Package notify alerts site editors about deployment outcomes via Web Push.
package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	webpush "github.com/SherClockHolmes/webpush-go"
)

// Subscription is a browser push subscription.
type Subscription struct {
	Endpoint string `yaml:"endpoint" json:"endpoint"`
	P256dh   string `yaml:"p256dh" json:"p256dh"`
	Auth     string `yaml:"auth" json:"auth"`
}

// Message is the JSON payload handed to the service worker.
type Message struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url,omitempty"`
}

// WebPush delivers Messages to a fixed set of subscriptions.
type WebPush struct {
	PublicKey     string
	PrivateKey    string
	Subscriber    string
	Subscriptions []Subscription
	// HTTPClient overrides the client used to reach push services.
	HTTPClient webpush.HTTPClient

	wg sync.WaitGroup
}

// Enabled reports whether VAPID keys and at least one subscription are set.
func (w *WebPush) Enabled() bool {
	return w != nil && w.PublicKey != "" && w.PrivateKey != "" && len(w.Subscriptions) > 0
}

// Notify sends m in the background. It never blocks and never fails;
// delivery errors are logged.
func (w *WebPush) Notify(ctx context.Context, m Message) {
	if !w.Enabled() {
		return
	}
	ctx = context.WithoutCancel(ctx)
	w.wg.Go(func() {
		w.Send(ctx, m)
	})
}

// Wait blocks until background sends finish.
func (w *WebPush) Wait() {
	if w != nil {
		w.wg.Wait()
	}
}

// Send delivers m to every subscription and returns how many accepted it.
func (w *WebPush) Send(ctx context.Context, m Message) int {
	if !w.Enabled() {
		return 0
	}
	payload, err := json.Marshal(m)
	if err != nil {
		slog.ErrorContext(ctx, "Web push payload encoding failed", "err", err)
		return 0
	}
	delivered := 0
	for _, sub := range w.Subscriptions {
		resp, err := webpush.SendNotificationWithContext(ctx, payload, &webpush.Subscription{
			Endpoint: sub.Endpoint,
			Keys:     webpush.Keys{P256dh: sub.P256dh, Auth: sub.Auth},
		}, &webpush.Options{
			HTTPClient:      w.HTTPClient,
			Subscriber:      w.Subscriber,
			VAPIDPublicKey:  w.PublicKey,
			VAPIDPrivateKey: w.PrivateKey,
			TTL:             3600,
		})
		if err != nil {
			slog.ErrorContext(ctx, "Web push send failed", "err", err, "endpoint", sub.Endpoint)
			continue
		}
		_ = resp.Body.Close()
		switch {
		case resp.StatusCode == http.StatusGone, resp.StatusCode == http.StatusNotFound:
			slog.WarnContext(ctx, "Push subscription expired", "endpoint", sub.Endpoint, "status", resp.StatusCode)
		case resp.StatusCode >= 300:
			slog.ErrorContext(ctx, "Web push rejected", "endpoint", sub.Endpoint, "status", resp.StatusCode)
		default:
			delivered++
		}
	}
	return delivered
}
