package notify

import (
	"context"

	"firebase.google.com/go/v4/messaging"
	"github.com/matst80/killu-finder/pkg/logger"
	"go.uber.org/zap"
)

type Sender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// Pusher sends push notifications through Firebase Cloud Messaging.
type Pusher struct {
	client Sender
}

func NewPusher(client Sender) *Pusher {
	return &Pusher{client: client}
}

func (p *Pusher) Send(ctx context.Context, token, title, body string, data map[string]string) error {
	response, err := p.client.Send(ctx, &messaging.Message{
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data:  data,
		Token: token,
	})
	if err != nil {
		return err
	}
	logger.Log.Debug("sent push notification", zap.String("response", response))
	return nil
}

// SendConfirmation tells the device that notifications are now enabled.
func (p *Pusher) SendConfirmation(ctx context.Context, token string) error {
	return p.Send(ctx, token,
		"Notificaciones activadas",
		"Te avisaremos cuando haya nuevos celulares que coincidan con tus preferencias.",
		map[string]string{
			"type": "confirmation",
			"icon": "/icon-192x192.png",
			"tag":  "killu-notifications",
		})
}
