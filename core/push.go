package core

import "context"

type (
	// PushMessage is a notification for one device.
	PushMessage struct {
		To    string
		Title string
		Body  string
		Data  map[string]string
	}

	// PushTicket is the gateway's answer for one PushMessage.
	PushTicket struct {
		To string
		// Unregistered is set when the gateway reports the device token as no longer valid.
		Unregistered bool
		Err          error
	}

	// PushService is any service that can send push notifications to mobile devices.
	PushService interface {
		// SendPush sends the messages in bulk requests and returns one ticket per message.
		// On error, the tickets of the messages already sent are returned with it.
		SendPush(ctx context.Context, messages ...PushMessage) ([]PushTicket, error)
	}
)
