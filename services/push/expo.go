package pushsvc

import (
	"context"
	"net/http"
	"time"

	expo "github.com/oliveroneill/exponent-server-sdk-golang/sdk"
	"github.com/pkg/errors"

	"github.com/lanes-app/lanes/core"
	"github.com/lanes-app/lanes/services/metrics"
)

// the gateway accepts at most 100 messages per request
const expoBatchSize = 100

type expoService struct {
	client *expo.PushClient
}

var _ core.PushService = (*expoService)(nil)

// bearerTransport authenticates the requests to the Expo gateway when an access token is configured.
type bearerTransport struct {
	token string
	next  http.RoundTripper
}

func (t bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("Authorization", "Bearer "+t.token)
	return t.next.RoundTrip(req)
}

func NewExpoService(conf *core.Config) core.PushService {
	httpClient := &http.Client{Timeout: 15 * time.Second}
	if conf.ExpoAccessToken != "" {
		httpClient.Transport = bearerTransport{token: conf.ExpoAccessToken, next: http.DefaultTransport}
	}
	return &expoService{client: expo.NewPushClient(&expo.ClientConfig{HTTPClient: httpClient})}
}

func (svc *expoService) SendPush(ctx context.Context, messages ...core.PushMessage) ([]core.PushTicket, error) {
	tickets := make([]core.PushTicket, 0, len(messages))
	batch := make([]expo.PushMessage, 0, expoBatchSize)
	batchTos := make([]string, 0, expoBatchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		resps, err := svc.client.PublishMultiple(batch)
		if err != nil {
			metrics.PushRequestsFailed.Inc()
			return errors.Wrap(err, "publishing push messages")
		}
		for i, to := range batchTos {
			if i >= len(resps) {
				tickets = append(tickets, core.PushTicket{To: to, Err: errors.New("missing push ticket")})
				continue
			}
			tickets = append(tickets, ticketOf(to, resps[i]))
		}
		batch = batch[:0]
		batchTos = batchTos[:0]
		return nil
	}

	for _, msg := range messages {
		if err := ctx.Err(); err != nil {
			return tickets, err
		}
		token, err := expo.NewExponentPushToken(msg.To)
		if err != nil {
			// malformed tokens will never be accepted
			metrics.PushMessagesTotal.WithLabelValues("unregistered").Inc()
			tickets = append(tickets, core.PushTicket{To: msg.To, Unregistered: true, Err: err})
			continue
		}
		batch = append(batch, expo.PushMessage{
			To:       []expo.ExponentPushToken{token},
			Title:    msg.Title,
			Body:     msg.Body,
			Data:     msg.Data,
			Sound:    "default",
			Priority: expo.DefaultPriority,
		})
		batchTos = append(batchTos, msg.To)
		if len(batch) == expoBatchSize {
			if err = flush(); err != nil {
				return tickets, err
			}
		}
	}
	if err := flush(); err != nil {
		return tickets, err
	}
	return tickets, nil
}

func ticketOf(to string, resp expo.PushResponse) core.PushTicket {
	err := resp.ValidateResponse()
	if err == nil {
		metrics.PushMessagesTotal.WithLabelValues("ok").Inc()
		return core.PushTicket{To: to}
	}
	var notRegistered *expo.DeviceNotRegisteredError
	if errors.As(err, &notRegistered) {
		metrics.PushMessagesTotal.WithLabelValues("unregistered").Inc()
		return core.PushTicket{To: to, Unregistered: true, Err: err}
	}
	metrics.PushMessagesTotal.WithLabelValues("error").Inc()
	return core.PushTicket{To: to, Err: err}
}
