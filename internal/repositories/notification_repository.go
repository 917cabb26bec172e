package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/aaravmahajanofficial/storefront/internal/models"
	"github.com/aaravmahajanofficial/storefront/internal/utils"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type NotificationRepository interface {
	CreateNotification(ctx context.Context, notification *models.Notification) error
	UpdateNotificationStatus(ctx context.Context, id uuid.UUID, status models.NotificationStatus, errorMsg string) error
	ListByOrderNumber(ctx context.Context, orderNumber string) ([]models.Notification, error)
}

type notificationRepository struct {
	db sqlx.ExtContext
}

func NewNotificationRepo(db sqlx.ExtContext) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) CreateNotification(ctx context.Context, notification *models.Notification) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	if notification.ID == uuid.Nil {
		notification.ID = uuid.New()
	}

	now := time.Now().UTC()

	query := r.db.Rebind(`
		INSERT INTO notifications (id, order_number, recipient, subject, status, error_message, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)

	_, err := r.db.ExecContext(dbCtx, query, notification.ID, notification.OrderNumber, notification.Recipient,
		notification.Subject, notification.Status, notification.ErrorMessage, now, now)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	notification.CreatedAt, notification.UpdatedAt = now, now

	return nil
}

func (r *notificationRepository) UpdateNotificationStatus(ctx context.Context, id uuid.UUID, status models.NotificationStatus, errorMsg string) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := r.db.Rebind(`UPDATE notifications SET status = ?, error_message = ?, updated_at = ? WHERE id = ?`)

	result, err := r.db.ExecContext(dbCtx, query, status, errorMsg, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update the notification status: %w", err)
	}

	return expectAffected(result)
}

func (r *notificationRepository) ListByOrderNumber(ctx context.Context, orderNumber string) ([]models.Notification, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	notifications := []models.Notification{}
	query := r.db.Rebind(`
		SELECT id, order_number, recipient, subject, status, error_message, created_at, updated_at
		FROM notifications
		WHERE order_number = ?
		ORDER BY created_at DESC`)

	if err := sqlx.SelectContext(dbCtx, r.db, &notifications, query, orderNumber); err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}

	return notifications, nil
}
