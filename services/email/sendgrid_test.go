package emailsvc

import (
	"encoding/json"
	"net/http"
	"net/mail"
	"testing"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanes-app/lanes/core"
	logsvc "github.com/lanes-app/lanes/services/logger"
)

type sgBody struct {
	From struct {
		Email string `json:"email"`
	} `json:"from"`
	Personalizations []struct {
		To []struct {
			Name  string `json:"name"`
			Email string `json:"email"`
		} `json:"to"`
		Subject string `json:"subject"`
	} `json:"personalizations"`
	Content []struct {
		Type  string `json:"type"`
		Value string `json:"value"`
	} `json:"content"`
}

func Test_sendgridService_deliver(t *testing.T) {
	conf := core.NewTestConfig()
	conf.SendgridApiKey = "SG.test-key"
	svc := NewSendgridService(conf, logsvc.NewRollbarLogger(conf).Named("TEST")).(*sendgridService)

	var got rest.Request
	status := http.StatusAccepted
	var apiErr error
	svc.api = func(req rest.Request) (*rest.Response, error) {
		got = req
		if apiErr != nil {
			return nil, apiErr
		}
		return &rest.Response{StatusCode: status, Body: `{"errors":[{"message":"bad key"}]}`}, nil
	}
	newMsg := func() *core.EmailMessage {
		return &core.EmailMessage{
			To:      []mail.Address{{Name: "Mona Otieno", Address: "mona@dolphins.test"}},
			Subject: "Pool closed",
			BodyStr: "No lessons on Friday.",
		}
	}

	require.NoError(t, svc.deliver(newMsg()))
	assert.Equal(t, sendgridHost+sendgridEndpoint, got.BaseURL)
	assert.Equal(t, rest.Post, got.Method)
	assert.Equal(t, "Bearer SG.test-key", got.Headers["Authorization"])

	var body sgBody
	require.NoError(t, json.Unmarshal(got.Body, &body))
	assert.Equal(t, conf.DefaultFromEmail.Address, body.From.Email)
	require.Len(t, body.Personalizations, 1)
	assert.Equal(t, "[Lanes] Pool closed", body.Personalizations[0].Subject)
	require.Len(t, body.Personalizations[0].To, 1)
	assert.Equal(t, "mona@dolphins.test", body.Personalizations[0].To[0].Email)
	// no html part without a template
	require.Len(t, body.Content, 1)
	assert.Equal(t, "text/plain", body.Content[0].Type)
	assert.Equal(t, "No lessons on Friday.", body.Content[0].Value)

	t.Run("rejected", func(t *testing.T) {
		status = http.StatusUnauthorized
		err := svc.deliver(newMsg())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "401")
	})

	t.Run("unreachable", func(t *testing.T) {
		apiErr = errors.New("connection refused")
		defer func() { apiErr = nil }()
		assert.Contains(t, svc.deliver(newMsg()).Error(), "connection refused")
	})

	t.Run("nothing to send", func(t *testing.T) {
		got = rest.Request{}
		msg := newMsg()
		msg.To = nil
		require.NoError(t, svc.deliver(msg))
		assert.Empty(t, got.BaseURL)
	})
}
