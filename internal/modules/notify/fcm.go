// README: Firebase Cloud Messaging sender.
package notify

import (
	"context"
	"fmt"

	"firebase.google.com/go/v4/messaging"
)

type FCMSender struct {
	client *messaging.Client
}

func NewFCMSender(client *messaging.Client) *FCMSender {
	return &FCMSender{client: client}
}

// Send delivers msg to one device as a high-priority notification with a data payload.
func (s *FCMSender) Send(ctx context.Context, deviceToken string, msg Message) (string, error) {
	if deviceToken == "" {
		return "", fmt.Errorf("empty device token for %s", msg.Type)
	}
	data := make(map[string]string, len(msg.Data)+1)
	for k, v := range msg.Data {
		data[k] = v
	}
	data["type"] = string(msg.Type)

	id, err := s.client.Send(ctx, &messaging.Message{
		Token: deviceToken,
		Data:  data,
		Notification: &messaging.Notification{
			Title: msg.Title,
			Body:  msg.Body,
		},
		Android: &messaging.AndroidConfig{
			Priority: "high",
		},
	})
	if err != nil {
		return "", fmt.Errorf("sending FCM %s: %w", msg.Type, err)
	}
	return id, nil
}
