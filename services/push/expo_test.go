package pushsvc

import (
	"context"
	"testing"

	expo "github.com/oliveroneill/exponent-server-sdk-golang/sdk"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanes-app/lanes/core"
)

func Test_ticketOf(t *testing.T) {
	const to = "ExponentPushToken[mona]"
	tests := []struct {
		name             string
		resp             expo.PushResponse
		wantErr          bool
		wantUnregistered bool
	}{
		{name: "ok", resp: expo.PushResponse{ID: "t1", Status: expo.SuccessStatus}},
		{
			name:             "device not registered",
			resp:             expo.PushResponse{Status: "error", Message: "not a registered push token", Details: map[string]string{"error": expo.ErrorDeviceNotRegistered}},
			wantErr:          true,
			wantUnregistered: true,
		},
		{
			name:    "rate limited",
			resp:    expo.PushResponse{Status: "error", Message: "slow down", Details: map[string]string{"error": expo.ErrorMessageRateExceeded}},
			wantErr: true,
		},
		{name: "error without details", resp: expo.PushResponse{Status: "error", Message: "boom"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ticket := ticketOf(to, tt.resp)
			assert.Equal(t, to, ticket.To)
			assert.Equal(t, tt.wantUnregistered, ticket.Unregistered)
			if tt.wantErr {
				assert.Error(t, ticket.Err)
			} else {
				assert.NoError(t, ticket.Err)
			}
		})
	}
}

func Test_expoService_malformedTokens(t *testing.T) {
	svc := NewExpoService(core.NewTestConfig())

	// malformed tokens never reach the gateway
	tickets, err := svc.SendPush(context.Background(),
		core.PushMessage{To: "not-a-token", Title: "Hello"},
		core.PushMessage{To: "", Title: "Hello"},
	)
	require.NoError(t, err)
	require.Len(t, tickets, 2)
	for _, ticket := range tickets {
		assert.True(t, ticket.Unregistered)
		assert.Error(t, ticket.Err)
	}
}

func TestConsoleServiceMock(t *testing.T) {
	svc := NewConsoleServiceMock()
	svc.Unregistered["ExponentPushToken[old]"] = true

	tickets, err := svc.SendPush(context.Background(),
		core.PushMessage{To: "ExponentPushToken[new]"},
		core.PushMessage{To: "ExponentPushToken[old]"},
		core.PushMessage{To: "garbage"},
	)
	require.NoError(t, err)
	assert.Len(t, svc.SentMessages(), 3)
	assert.False(t, tickets[0].Unregistered)
	assert.True(t, tickets[1].Unregistered)
	assert.True(t, tickets[2].Unregistered)

	svc.Reset()
	assert.Empty(t, svc.SentMessages())
	assert.Empty(t, svc.Unregistered)

	gatewayErr := errors.New("gateway down")
	svc.Err = gatewayErr
	svc.FailAfter = 1
	tickets, err = svc.SendPush(context.Background(),
		core.PushMessage{To: "ExponentPushToken[new]"},
		core.PushMessage{To: "ExponentPushToken[old]"},
	)
	assert.Equal(t, gatewayErr, err)
	require.Len(t, tickets, 1)
	assert.Equal(t, "ExponentPushToken[new]", tickets[0].To)
	assert.Len(t, svc.SentMessages(), 1)

	svc.Reset()
	assert.Nil(t, svc.Err)
	assert.Zero(t, svc.FailAfter)
}
