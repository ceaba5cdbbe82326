package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/lanes-app/lanes/core"
)

var (
	// errors
	ErrNotFound            = core.NewNotFoundError("notification not found")
	ErrDeviceTokenNotFound = core.NewNotFoundError("device token not found")
)

type Repository interface {
	// UpsertDeviceToken registers the token for its user; a token known for another user is moved.
	UpsertDeviceToken(ctx context.Context, dt DeviceToken) (DeviceToken, error)
	DeleteUserDeviceToken(ctx context.Context, userID, token string) error
	DeleteDeviceTokens(ctx context.Context, tokens ...string) (int64, error)
	QueryDeviceTokens(ctx context.Context, userIDs ...string) ([]DeviceToken, error)

	CreateNotifications(ctx context.Context, notifs ...Notification) error
	// QueryNotifications returns the user's notifications, newest first.
	QueryNotifications(ctx context.Context, filter QueryFilter) ([]Notification, error)
	MarkRead(ctx context.Context, userID, id string, at time.Time) (Notification, error)
	MarkAllRead(ctx context.Context, userID string, at time.Time) (int64, error)

	// DeleteUsersData deletes the device tokens and notifications of the users.
	DeleteUsersData(ctx context.Context, userIDs ...string) error
}

type Service struct {
	repo     Repository
	pushSvc  core.PushService
	validate *validator.Validate
	logger   core.Logger
}

func NewService(repo Repository, pushSvc core.PushService, validate *validator.Validate, logger core.Logger) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(pushSvc, "pushSvc"),
		vala.IsNotNil(validate, "validate"),
		vala.IsNotNil(logger, "logger"),
	).CheckAndPanic()

	return &Service{repo: repo, pushSvc: pushSvc, validate: validate, logger: logger}
}

func (svc *Service) RegisterDevice(ctx context.Context, userID string, nt NewDeviceToken) (DeviceToken, error) {
	nt.Clean()
	if err := svc.validate.Struct(nt); err != nil {
		return DeviceToken{}, err
	}
	return svc.repo.UpsertDeviceToken(ctx, DeviceToken{
		UserID:    userID,
		Token:     nt.Token,
		Platform:  nt.Platform,
		CreatedAt: time.Now().UTC(),
	})
}

func (svc *Service) UnregisterDevice(ctx context.Context, userID, token string) error {
	return svc.repo.DeleteUserDeviceToken(ctx, userID, token)
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter) ([]Notification, error) {
	return svc.repo.QueryNotifications(ctx, filter)
}

func (svc *Service) MarkRead(ctx context.Context, userID, id string) (Notification, error) {
	return svc.repo.MarkRead(ctx, userID, id, time.Now().UTC())
}

func (svc *Service) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	return svc.repo.MarkAllRead(ctx, userID, time.Now().UTC())
}

// PurgeUsers deletes the device tokens and notifications of the users.
func (svc *Service) PurgeUsers(ctx context.Context, userIDs ...string) error {
	if len(userIDs) == 0 {
		return nil
	}
	return svc.repo.DeleteUsersData(ctx, userIDs...)
}

// NotifyUsers stores a notification for each user and pushes it to their devices in one bulk request.
// Tokens the gateway reports as unregistered are deleted.
// Errors are logged and never returned: a failing push must not fail the caller.
func (svc *Service) NotifyUsers(ctx context.Context, userIDs []string, title, body string, data map[string]string) {
	userIDs = core.UniqueStrings(userIDs)
	if len(userIDs) == 0 {
		return
	}
	if err := svc.notifyUsers(ctx, userIDs, title, body, data); err != nil {
		svc.logger.Error(fmt.Sprintf("notifying users: %v", err), err, map[string]interface{}{"user_ids": userIDs})
	}
}

func (svc *Service) notifyUsers(ctx context.Context, userIDs []string, title, body string, data map[string]string) error {
	if data == nil {
		data = make(map[string]string)
	}
	now := time.Now().UTC()
	notifs := make([]Notification, 0, len(userIDs))
	for _, id := range userIDs {
		notifs = append(notifs, Notification{UserID: id, Title: title, Body: body, Data: data, CreatedAt: now})
	}
	if err := svc.repo.CreateNotifications(ctx, notifs...); err != nil {
		return errors.Wrap(err, "storing notifications")
	}

	tokens, err := svc.repo.QueryDeviceTokens(ctx, userIDs...)
	if err != nil {
		return errors.Wrap(err, "loading device tokens")
	}
	if len(tokens) == 0 {
		return nil
	}

	messages := make([]core.PushMessage, 0, len(tokens))
	for _, dt := range tokens {
		messages = append(messages, core.PushMessage{To: dt.Token, Title: title, Body: body, Data: data})
	}
	tickets, sendErr := svc.pushSvc.SendPush(ctx, messages...)
	if err = svc.forgetUnregistered(ctx, tickets); err != nil {
		return err
	}
	return errors.Wrap(sendErr, "sending push notifications")
}

// forgetUnregistered deletes the device tokens the gateway reported as unregistered.
func (svc *Service) forgetUnregistered(ctx context.Context, tickets []core.PushTicket) error {
	invalid := make([]string, 0)
	for _, ticket := range tickets {
		if ticket.Unregistered {
			invalid = append(invalid, ticket.To)
		} else if ticket.Err != nil {
			svc.logger.Warn(fmt.Sprintf("push notification rejected: %v", ticket.Err), ticket.Err)
		}
	}
	if len(invalid) == 0 {
		return nil
	}
	n, err := svc.repo.DeleteDeviceTokens(ctx, invalid...)
	if err != nil {
		return errors.Wrap(err, "deleting unregistered device tokens")
	}
	svc.logger.Info(fmt.Sprintf("deleted %d unregistered device tokens", n))
	return nil
}
