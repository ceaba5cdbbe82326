package emailsvc

import (
	"fmt"
	"net/http"
	"net/mail"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/lanes-app/lanes/core"
	"github.com/lanes-app/lanes/services/metrics"
)

const (
	sendgridHost     = "https://api.sendgrid.com"
	sendgridEndpoint = "/v3/mail/send"
)

// sendgridService delivers the emails through the Sendgrid v3 mail API, one request per message.
type sendgridService struct {
	key        string
	from       *sgmail.Email
	subjPrefix string
	logger     core.Logger
	api        func(rest.Request) (*rest.Response, error)
}

var _ core.EmailService = (*sendgridService)(nil)

func NewSendgridService(conf *core.Config, logger core.Logger) core.EmailService {
	return &sendgridService{
		key:        conf.SendgridApiKey,
		from:       sgAddress(conf.DefaultFromEmail),
		subjPrefix: "[" + conf.AppName + "] ",
		logger:     logger,
		api:        sendgrid.API,
	}
}

// SendMessages delivers each message in its own goroutine; failures are logged.
func (svc *sendgridService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		go func(msg *core.EmailMessage) {
			if err := svc.deliver(msg); err != nil {
				svc.logger.Error(fmt.Sprintf("sending %q email to %s: %v", msg.Subject, joinAddresses(msg.To), err), err)
			}
		}(msg)
	}
}

func (svc *sendgridService) deliver(msg *core.EmailMessage) error {
	if err := msg.Render(); err != nil {
		return errors.Wrap(err, "rendering email")
	}
	if !msg.HasRecipients() || !msg.HasContent() {
		return nil
	}

	req := sendgrid.GetRequest(svc.key, sendgridEndpoint, sendgridHost)
	req.Method = rest.Post
	req.Body = sgmail.GetRequestBody(svc.newMail(*msg))

	res, err := svc.api(req)
	if err != nil {
		metrics.EmailsSent.WithLabelValues("error").Inc()
		return errors.Wrap(err, "calling sendgrid")
	}
	if res.StatusCode >= http.StatusBadRequest {
		metrics.EmailsSent.WithLabelValues("error").Inc()
		return errors.Errorf("sendgrid answered %d: %s", res.StatusCode, res.Body)
	}
	metrics.EmailsSent.WithLabelValues("ok").Inc()
	return nil
}

func (svc *sendgridService) newMail(msg core.EmailMessage) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = svc.subjPrefix + msg.Subject
	p.AddTos(sgAddresses(msg.To)...)
	p.AddCCs(sgAddresses(msg.Cc)...)
	p.AddBCCs(sgAddresses(msg.Bcc)...)

	m := sgmail.NewV3Mail()
	m.SetFrom(svc.from)
	m.AddPersonalizations(p)
	m.AddContent(sgmail.NewContent("text/plain", msg.TextContent))
	if msg.HTMLContent != "" {
		m.AddContent(sgmail.NewContent("text/html", msg.HTMLContent))
	}
	return m
}

func sgAddress(addr mail.Address) *sgmail.Email {
	return sgmail.NewEmail(addr.Name, addr.Address)
}

func sgAddresses(addrs []mail.Address) []*sgmail.Email {
	res := make([]*sgmail.Email, 0, len(addrs))
	for _, addr := range addrs {
		res = append(res, sgAddress(addr))
	}
	return res
}
