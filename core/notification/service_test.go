package notification_test

import (
	"context"
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanes-app/lanes/core/notification"
	"github.com/lanes-app/lanes/testutil"
)

func Test_Service_RegisterDevice(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	org, _ := env.CreateOrganization(t, "Blue Dolphins", "anna@dolphins.test")
	mona := env.CreateParent(t, org, "Mona Otieno", "mona@dolphins.test")

	for _, token := range []string{"stale-device", "ExponentPushToken[]", "ExponentPushToken[abc", "ExpoToken[abc]"} {
		t.Run(token, func(t *testing.T) {
			_, err := env.Notifications.RegisterDevice(ctx, mona.UserID, notification.NewDeviceToken{Token: token})
			var verrs validator.ValidationErrors
			require.True(t, errors.As(err, &verrs), "got %v", err)
			assert.Equal(t, "push_token", verrs[0].Tag())
		})
	}

	dt, err := env.Notifications.RegisterDevice(ctx, mona.UserID, notification.NewDeviceToken{Token: " ExponentPushToken[mona] ", Platform: "Android"})
	require.NoError(t, err)
	assert.Equal(t, "ExponentPushToken[mona]", dt.Token)
	assert.Equal(t, "android", dt.Platform)
	assert.NotEmpty(t, dt.ID)
}

func Test_Service_NotifyUsers(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	org, _ := env.CreateOrganization(t, "Blue Dolphins", "anna@dolphins.test")
	mona := env.CreateParent(t, org, "Mona Otieno", "mona@dolphins.test")

	register := func(t *testing.T, tokens ...string) {
		t.Helper()
		for _, token := range tokens {
			_, err := env.Notifications.RegisterDevice(ctx, mona.UserID, notification.NewDeviceToken{Token: token})
			require.NoError(t, err)
		}
	}
	remaining := func(t *testing.T) []string {
		t.Helper()
		var tokens []string
		require.NoError(t, env.DB.Table("device_tokens").Order("token ASC").Pluck("token", &tokens).Error)
		return tokens
	}

	t.Run("unregistered devices sent before a failure are forgotten", func(t *testing.T) {
		env.Push.Reset()
		defer env.Push.Reset()
		register(t, "ExponentPushToken[a-lost]", "ExponentPushToken[b-phone]", "ExponentPushToken[c-tablet]")
		env.Push.Unregistered["ExponentPushToken[a-lost]"] = true
		env.Push.Unregistered["ExponentPushToken[c-tablet]"] = true
		env.Push.Err = errors.New("gateway down")
		env.Push.FailAfter = 2

		env.Notifications.NotifyUsers(ctx, []string{mona.UserID}, "Pool closed", "No lessons on Friday", nil)

		assert.Len(t, env.Push.SentMessages(), 2)
		// the tablet was never reached, so its token is kept
		assert.Equal(t, []string{"ExponentPushToken[b-phone]", "ExponentPushToken[c-tablet]"}, remaining(t))

		notifs, err := env.Notifications.Query(ctx, notification.QueryFilter{UserID: mona.UserID})
		require.NoError(t, err)
		require.Len(t, notifs, 1)
		assert.Equal(t, "No lessons on Friday", notifs[0].Body)
	})

	t.Run("a gateway down before any ticket keeps every token", func(t *testing.T) {
		env.Push.Reset()
		defer env.Push.Reset()
		env.Push.Unregistered["ExponentPushToken[b-phone]"] = true
		env.Push.Err = errors.New("gateway down")

		env.Notifications.NotifyUsers(ctx, []string{mona.UserID}, "Reminder", "Bring a swim cap", nil)

		assert.Empty(t, env.Push.SentMessages())
		assert.Equal(t, []string{"ExponentPushToken[b-phone]", "ExponentPushToken[c-tablet]"}, remaining(t))
	})

	t.Run("users without devices only get the notification", func(t *testing.T) {
		env.Push.Reset()
		omar := env.CreateParent(t, org, "Omar Hassan", "omar@dolphins.test")

		env.Notifications.NotifyUsers(ctx, []string{omar.UserID, ""}, "Hello", "Welcome aboard", map[string]string{"type": "welcome"})

		assert.Empty(t, env.Push.SentMessages())
		notifs, err := env.Notifications.Query(ctx, notification.QueryFilter{UserID: omar.UserID})
		require.NoError(t, err)
		require.Len(t, notifs, 1)
		assert.Equal(t, map[string]string{"type": "welcome"}, notifs[0].Data)
	})
}
