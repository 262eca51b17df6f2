package notify

import (
	"context"
	"fmt"
	"net/http"

	"barbershop/internal/config"
	"barbershop/internal/models"

	webpush "github.com/SherClockHolmes/webpush-go"
)

// WebPushDeliverer sends notifications over the Web Push protocol using the
// configured VAPID key pair. HTTP 404 and 410 from the push service mean the
// endpoint is gone and map to ErrEndpointGone; everything else is transient.
type WebPushDeliverer struct {
	subject    string
	publicKey  string
	privateKey string
}

func NewWebPushDeliverer(cfg config.PushConfig) *WebPushDeliverer {
	return &WebPushDeliverer{
		subject:    cfg.Subject,
		publicKey:  cfg.VAPIDPublicKey,
		privateKey: cfg.VAPIDPrivateKey,
	}
}

func (w *WebPushDeliverer) Deliver(ctx context.Context, sub *models.PushSubscription, payload []byte) error {
	target := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dh,
			Auth:   sub.Auth,
		},
	}

	resp, err := webpush.SendNotificationWithContext(ctx, payload, target, &webpush.Options{
		Subscriber:      w.subject,
		VAPIDPublicKey:  w.publicKey,
		VAPIDPrivateKey: w.privateKey,
		TTL:             60,
	})
	if err != nil {
		return fmt.Errorf("send push: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return fmt.Errorf("%w: status %d", ErrEndpointGone, resp.StatusCode)
	case resp.StatusCode >= http.StatusBadRequest:
		return fmt.Errorf("push service rejected delivery: status %d", resp.StatusCode)
	}
	return nil
}
