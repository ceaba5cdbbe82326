package pushsvc

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/lanes-app/lanes/core"
)

type consoleService struct {
	logger core.Logger
}

var _ core.PushService = (*consoleService)(nil)

// NewConsoleService logs the push messages instead of sending them.
func NewConsoleService(logger core.Logger) core.PushService {
	return &consoleService{logger: logger}
}

func (svc *consoleService) SendPush(_ context.Context, messages ...core.PushMessage) ([]core.PushTicket, error) {
	tickets := make([]core.PushTicket, 0, len(messages))
	for _, msg := range messages {
		svc.logger.Info(fmt.Sprintf("push to %s: %s - %s", msg.To, msg.Title, msg.Body), map[string]interface{}{"data": msg.Data})
		tickets = append(tickets, core.PushTicket{To: msg.To})
	}
	return tickets, nil
}

// ConsoleServiceMock records the push messages, for tests.
// Tokens listed in Unregistered are reported as such. Err fails the request:
// with FailAfter > 0 the first FailAfter messages are sent and their tickets returned along with Err,
// as when a later batch is rejected by the gateway.
type ConsoleServiceMock struct {
	mu           sync.Mutex
	sent         []core.PushMessage
	Unregistered map[string]bool
	Err          error
	FailAfter    int
}

var _ core.PushService = (*ConsoleServiceMock)(nil)

func NewConsoleServiceMock() *ConsoleServiceMock {
	return &ConsoleServiceMock{sent: make([]core.PushMessage, 0), Unregistered: make(map[string]bool)}
}

func (svc *ConsoleServiceMock) SendPush(_ context.Context, messages ...core.PushMessage) ([]core.PushTicket, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	if svc.Err != nil && svc.FailAfter <= 0 {
		return nil, svc.Err
	}
	tickets := make([]core.PushTicket, 0, len(messages))
	for i, msg := range messages {
		if svc.Err != nil && i >= svc.FailAfter {
			return tickets, svc.Err
		}
		svc.sent = append(svc.sent, msg)
		t := core.PushTicket{To: msg.To}
		if svc.Unregistered[msg.To] || !strings.HasPrefix(msg.To, "ExponentPushToken[") {
			t.Unregistered = true
			t.Err = fmt.Errorf("%s is not a registered device", msg.To)
		}
		tickets = append(tickets, t)
	}
	return tickets, nil
}

func (svc *ConsoleServiceMock) SentMessages() []core.PushMessage {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return append([]core.PushMessage(nil), svc.sent...)
}

func (svc *ConsoleServiceMock) Reset() {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	svc.sent = svc.sent[:0]
	svc.Unregistered = make(map[string]bool)
	svc.Err = nil
	svc.FailAfter = 0
}
