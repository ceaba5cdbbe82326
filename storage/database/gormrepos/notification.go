package gormrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm/clause"

	"github.com/lanes-app/lanes/core/notification"
	"github.com/lanes-app/lanes/storage/database"
)

type notificationRepository struct {
	db *database.DB
}

var _ notification.Repository = (*notificationRepository)(nil) // interface compliance check

func NewNotificationRepository(db *database.DB) notification.Repository {
	return &notificationRepository{db: db}
}

func deviceTokenFromRow(row deviceTokenRow) notification.DeviceToken {
	return notification.DeviceToken{
		ID:        row.ID,
		UserID:    row.UserID,
		Token:     row.Token,
		Platform:  row.Platform,
		CreatedAt: row.CreatedAt.UTC(),
	}
}

func notificationFromRow(row notificationRow) notification.Notification {
	n := notification.Notification{
		ID:        row.ID,
		UserID:    row.UserID,
		Title:     row.Title,
		Body:      row.Body,
		Data:      row.Data,
		CreatedAt: row.CreatedAt.UTC(),
	}
	if n.Data == nil {
		n.Data = make(map[string]string)
	}
	if row.ReadAt != nil {
		t := row.ReadAt.UTC()
		n.ReadAt = &t
	}
	return n
}

func (repo *notificationRepository) UpsertDeviceToken(ctx context.Context, dt notification.DeviceToken) (notification.DeviceToken, error) {
	row := deviceTokenRow{
		ID:        uuid.New().String(),
		UserID:    dt.UserID,
		Token:     dt.Token,
		Platform:  dt.Platform,
		CreatedAt: dt.CreatedAt.UTC(),
	}
	err := repo.db.Conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "token"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_id", "platform"}),
	}).Create(&row).Error
	if err != nil {
		return notification.DeviceToken{}, errors.Wrap(err, "upserting device token")
	}

	var saved deviceTokenRow
	if err = repo.db.Conn(ctx).Where("token = ?", dt.Token).Take(&saved).Error; err != nil {
		return notification.DeviceToken{}, errors.Wrap(err, "selecting device token")
	}
	return deviceTokenFromRow(saved), nil
}

func (repo *notificationRepository) DeleteUserDeviceToken(ctx context.Context, userID, token string) error {
	res := repo.db.Conn(ctx).Where("user_id = ? AND token = ?", userID, token).Delete(&deviceTokenRow{})
	if res.Error != nil {
		return errors.Wrap(res.Error, "deleting device token")
	}
	if res.RowsAffected == 0 {
		return notification.ErrDeviceTokenNotFound
	}
	return nil
}

func (repo *notificationRepository) DeleteDeviceTokens(ctx context.Context, tokens ...string) (int64, error) {
	if len(tokens) == 0 {
		return 0, nil
	}
	res := repo.db.Conn(ctx).Where("token IN ?", tokens).Delete(&deviceTokenRow{})
	return res.RowsAffected, errors.Wrap(res.Error, "deleting device tokens")
}

func (repo *notificationRepository) QueryDeviceTokens(ctx context.Context, userIDs ...string) ([]notification.DeviceToken, error) {
	if len(userIDs) == 0 {
		return []notification.DeviceToken{}, nil
	}
	var rows []deviceTokenRow
	if err := repo.db.Conn(ctx).Where("user_id IN ?", userIDs).Order("created_at ASC, token ASC").Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "selecting device tokens")
	}
	tokens := make([]notification.DeviceToken, 0, len(rows))
	for _, row := range rows {
		tokens = append(tokens, deviceTokenFromRow(row))
	}
	return tokens, nil
}

func (repo *notificationRepository) CreateNotifications(ctx context.Context, notifs ...notification.Notification) error {
	if len(notifs) == 0 {
		return nil
	}
	rows := make([]notificationRow, 0, len(notifs))
	for _, n := range notifs {
		rows = append(rows, notificationRow{
			ID:        uuid.New().String(),
			UserID:    n.UserID,
			Title:     n.Title,
			Body:      n.Body,
			Data:      n.Data,
			CreatedAt: n.CreatedAt.UTC(),
		})
	}
	return errors.Wrap(repo.db.Conn(ctx).CreateInBatches(&rows, 500).Error, "inserting notifications")
}

func (repo *notificationRepository) QueryNotifications(ctx context.Context, filter notification.QueryFilter) ([]notification.Notification, error) {
	q := repo.db.Conn(ctx).Where("user_id = ?", filter.UserID)
	if filter.UnreadOnly {
		q = q.Where("read_at IS NULL")
	}
	var rows []notificationRow
	if err := q.Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "selecting notifications")
	}
	notifs := make([]notification.Notification, 0, len(rows))
	for _, row := range rows {
		notifs = append(notifs, notificationFromRow(row))
	}
	return notifs, nil
}

func (repo *notificationRepository) MarkRead(ctx context.Context, userID, id string, at time.Time) (notification.Notification, error) {
	var row notificationRow
	err := repo.db.WithinTransaction(ctx, func(ctx context.Context) error {
		db := repo.db.Conn(ctx)
		if err := db.Where("user_id = ? AND id = ?", userID, id).Take(&row).Error; err != nil {
			return trapNotFound(err, notification.ErrNotFound, "selecting notification")
		}
		if row.ReadAt != nil {
			return nil
		}
		at = at.UTC()
		row.ReadAt = &at
		return errors.Wrap(db.Model(&notificationRow{ID: row.ID}).Update("read_at", at).Error, "marking notification read")
	})
	if err != nil {
		return notification.Notification{}, err
	}
	return notificationFromRow(row), nil
}

func (repo *notificationRepository) MarkAllRead(ctx context.Context, userID string, at time.Time) (int64, error) {
	res := repo.db.Conn(ctx).Model(&notificationRow{}).
		Where("user_id = ? AND read_at IS NULL", userID).
		Update("read_at", at.UTC())
	return res.RowsAffected, errors.Wrap(res.Error, "marking notifications read")
}

func (repo *notificationRepository) DeleteUsersData(ctx context.Context, userIDs ...string) error {
	if len(userIDs) == 0 {
		return nil
	}
	return repo.db.WithinTransaction(ctx, func(ctx context.Context) error {
		db := repo.db.Conn(ctx)
		if err := db.Where("user_id IN ?", userIDs).Delete(&deviceTokenRow{}).Error; err != nil {
			return errors.Wrap(err, "deleting device tokens")
		}
		return errors.Wrap(db.Where("user_id IN ?", userIDs).Delete(&notificationRow{}).Error, "deleting notifications")
	})
}

