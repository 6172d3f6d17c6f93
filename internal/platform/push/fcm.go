package push

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"
)

// FCMSender sends notifications through Firebase Cloud Messaging.
type FCMSender struct {
	client *messaging.Client
}

// NewFCMSender initializes the Firebase Admin SDK from a service-account
// credentials file and returns a Sender backed by FCM.
func NewFCMSender(ctx context.Context, credentialsFile string) (*FCMSender, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("initialize firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("create messaging client: %w", err)
	}
	return &FCMSender{client: client}, nil
}

// Send delivers one notification to the device identified by deviceToken.
func (s *FCMSender) Send(ctx context.Context, deviceToken, title, body string, data map[string]string) error {
	if deviceToken == "" {
		return ErrMissingToken
	}

	msg := &messaging.Message{
		Token: deviceToken,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
	}

	if _, err := s.client.Send(ctx, msg); err != nil {
		return fmt.Errorf("fcm send: %w", err)
	}
	return nil
}

// LogSender is the development fallback used when no Firebase credentials are
// configured: it logs each would-be notification instead of delivering it.
type LogSender struct {
	Logger zerolog.Logger
}

// Send logs the notification and reports success.
func (s *LogSender) Send(_ context.Context, deviceToken, title, body string, data map[string]string) error {
	if deviceToken == "" {
		return ErrMissingToken
	}
	s.Logger.Info().
		Str("device_token", deviceToken).
		Str("title", title).
		Str("body", body).
		Interface("data", data).
		Msg("push notification (log sender)")
	return nil
}
