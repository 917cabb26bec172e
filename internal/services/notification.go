package service

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"

	"github.com/aaravmahajanofficial/storefront/internal/api/middleware"
	"github.com/aaravmahajanofficial/storefront/internal/metrics"
	"github.com/aaravmahajanofficial/storefront/internal/models"
	repository "github.com/aaravmahajanofficial/storefront/internal/repositories"
	"github.com/aaravmahajanofficial/storefront/pkg/sendgrid"
)

type NotificationService interface {
	OrderNotifier
	ListOrderNotifications(ctx context.Context, orderNumber string) ([]models.Notification, error)
}

type notificationService struct {
	repo   repository.NotificationRepository
	sender sendgrid.EmailSender
}

func NewNotificationService(repo repository.NotificationRepository, sender sendgrid.EmailSender) NotificationService {
	return &notificationService{repo: repo, sender: sender}
}

// SendOrderConfirmation records a pending notification, sends it and then
// marks it sent or failed.
func (n *notificationService) SendOrderConfirmation(ctx context.Context, order *models.Order, recipient string) error {
	req := orderConfirmationEmail(order, recipient)

	notification := &models.Notification{
		OrderNumber: order.OrderNumber,
		Recipient:   recipient,
		Subject:     req.Subject,
		Status:      models.NotificationStatusPending,
	}

	if err := n.repo.CreateNotification(ctx, notification); err != nil {
		return fmt.Errorf("failed to create notification record: %w", err)
	}

	if err := n.sender.Send(ctx, req); err != nil {
		metrics.RecordNotification(string(models.NotificationStatusFailed))

		if updateErr := n.repo.UpdateNotificationStatus(ctx, notification.ID, models.NotificationStatusFailed, err.Error()); updateErr != nil {
			middleware.LoggerFromContext(ctx).Error("Failed to mark notification failed", slog.String("error", updateErr.Error()))
		}

		return fmt.Errorf("failed to send email: %w", err)
	}

	metrics.RecordNotification(string(models.NotificationStatusSent))

	if err := n.repo.UpdateNotificationStatus(ctx, notification.ID, models.NotificationStatusSent, ""); err != nil {
		return fmt.Errorf("notification sent successfully but failed to update notification status: %w", err)
	}

	return nil
}

func (n *notificationService) ListOrderNotifications(ctx context.Context, orderNumber string) ([]models.Notification, error) {
	notifications, err := n.repo.ListByOrderNumber(ctx, orderNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}

	return notifications, nil
}

func orderConfirmationEmail(order *models.Order, recipient string) *models.EmailNotificationRequest {
	var text, markup strings.Builder

	fmt.Fprintf(&text, "Thank you for your order %s.\n\n", order.OrderNumber)
	fmt.Fprintf(&markup, "<h2>Thank you for your order %s</h2><ul>", html.EscapeString(order.OrderNumber))

	for _, item := range order.Items {
		fmt.Fprintf(&text, "%d x %s  %s\n", item.Quantity, item.ProductName, item.LineTotal.StringFixed(2))
		fmt.Fprintf(&markup, "<li>%d &times; %s: %s</li>", item.Quantity, html.EscapeString(item.ProductName), item.LineTotal.StringFixed(2))
	}

	fmt.Fprintf(&text, "\nSubtotal: %s\nTax: %s\nShipping: %s\nTotal: %s\n",
		order.Subtotal.StringFixed(2), order.Tax.StringFixed(2), order.Shipping.StringFixed(2), order.Total.StringFixed(2))
	fmt.Fprintf(&markup, "</ul><p>Total: <strong>%s</strong></p>", order.Total.StringFixed(2))

	return &models.EmailNotificationRequest{
		To:          recipient,
		Subject:     "Order confirmation " + order.OrderNumber,
		Content:     text.String(),
		HTMLContent: markup.String(),
	}
}
