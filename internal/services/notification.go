package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jerseyshop/storefront-api/internal/api/middleware"
	"github.com/jerseyshop/storefront-api/internal/metrics"
	"github.com/jerseyshop/storefront-api/internal/models"
	repository "github.com/jerseyshop/storefront-api/internal/repositories"
	"github.com/jerseyshop/storefront-api/pkg/sendgrid"
)

const retryBatchSize = 50

type NotificationService interface {
	// SendEmail logs the message, attempts delivery once and records the outcome.
	SendEmail(ctx context.Context, req *models.EmailNotificationRequest) (*models.Notification, error)
	SendOrderConfirmation(ctx context.Context, order *models.Order) error
	// RetryFailed re-sends failed messages that still have attempts left and
	// returns how many were delivered.
	RetryFailed(ctx context.Context) (int, error)
	RunRetryLoop(ctx context.Context, interval time.Duration)
}

type notificationService struct {
	repo         repository.NotificationRepository
	users        repository.UserRepository
	emailService sendgrid.EmailService
	maxAttempts  int
}

func NewNotificationService(repo repository.NotificationRepository, users repository.UserRepository, emailService sendgrid.EmailService, maxAttempts int) NotificationService {
	if maxAttempts < 1 {
		maxAttempts = 5
	}

	return &notificationService{repo: repo, users: users, emailService: emailService, maxAttempts: maxAttempts}
}

func newEmailNotification(req *models.EmailNotificationRequest) (*models.Notification, error) {
	var metadataJSON json.RawMessage

	if req.Metadata != nil {
		metadataBytes, err := json.Marshal(req.Metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal metadata: %w", err)
		}

		metadataJSON = metadataBytes
	}

	return &models.Notification{
		ID:          uuid.New(),
		Type:        models.NotificationTypeEmail,
		Recipient:   req.To,
		Subject:     req.Subject,
		Content:     req.Content,
		HTMLContent: req.HTMLContent,
		Status:      models.StatusPending,
		Metadata:    metadataJSON,
	}, nil
}

func (n *notificationService) SendEmail(ctx context.Context, req *models.EmailNotificationRequest) (*models.Notification, error) {
	notification, err := newEmailNotification(req)
	if err != nil {
		return nil, err
	}

	if err := n.repo.CreateNotification(ctx, notification); err != nil {
		return nil, fmt.Errorf("failed to create notification record: %w", err)
	}

	if err := n.deliver(ctx, notification, req); err != nil {
		return notification, err
	}

	return notification, nil
}

// SendOrderConfirmation mails the order summary to the account's address.
func (n *notificationService) SendOrderConfirmation(ctx context.Context, order *models.Order) error {
	user, err := n.users.GetUserByID(ctx, order.UserID)
	if err != nil {
		return n.deferConfirmation(ctx, order, err)
	}

	req, err := orderConfirmationEmail(user, order)
	if err != nil {
		return err
	}

	_, err = n.SendEmail(ctx, req)

	return err
}

// deferConfirmation logs the confirmation as a failed message without a
// recipient. The retry loop resolves the address from the user_id metadata.
func (n *notificationService) deferConfirmation(ctx context.Context, order *models.Order, lookupErr error) error {
	lookupErr = fmt.Errorf("failed to look up order recipient: %w", lookupErr)

	req, err := orderConfirmationEmail(&models.User{ID: order.UserID}, order)
	if err != nil {
		return errors.Join(lookupErr, err)
	}

	notification, err := newEmailNotification(req)
	if err != nil {
		return errors.Join(lookupErr, err)
	}

	notification.Status = models.StatusFailed
	notification.ErrorMessage = lookupErr.Error()
	notification.Attempts = 1

	if err := n.repo.CreateNotification(ctx, notification); err != nil {
		return errors.Join(lookupErr, fmt.Errorf("failed to create notification record: %w", err))
	}

	metrics.RecordNotification(string(models.StatusFailed))

	return lookupErr
}

func (n *notificationService) RetryFailed(ctx context.Context) (int, error) {
	logger := middleware.LoggerFromContext(ctx)

	pending, err := n.repo.ListRetryable(ctx, n.maxAttempts, retryBatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to list retryable notifications: %w", err)
	}

	delivered := 0

	for _, notification := range pending {
		req := &models.EmailNotificationRequest{
			To:          notification.Recipient,
			Subject:     notification.Subject,
			Content:     notification.Content,
			HTMLContent: notification.HTMLContent,
		}

		if len(notification.Metadata) > 0 {
			if err := json.Unmarshal(notification.Metadata, &req.Metadata); err != nil {
				logger.Warn("Ignoring unreadable notification metadata", slog.String("notificationId", notification.ID.String()), slog.Any("error", err))
			}
		}

		if req.To == "" {
			to, err := n.resolveRecipient(ctx, req.Metadata)
			if err != nil {
				n.recordOutcome(ctx, notification, err)
				logger.Warn("Notification recipient still unknown",
					slog.String("notificationId", notification.ID.String()),
					slog.Any("error", err))

				continue
			}

			req.To = to
		}

		if err := n.deliver(ctx, notification, req); err != nil {
			logger.Warn("Notification retry failed",
				slog.String("notificationId", notification.ID.String()),
				slog.Int("attempts", notification.Attempts),
				slog.Any("error", err))

			continue
		}

		delivered++
	}

	return delivered, nil
}

// RunRetryLoop calls RetryFailed every interval until ctx is cancelled.
func (n *notificationService) RunRetryLoop(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			delivered, err := n.RetryFailed(ctx)
			if err != nil {
				slog.Error("Notification retry pass failed", slog.Any("error", err))
				continue
			}

			if delivered > 0 {
				slog.Info("Redelivered notifications", slog.Int("count", delivered))
			}
		}
	}
}

func (n *notificationService) resolveRecipient(ctx context.Context, metadata map[string]string) (string, error) {
	userID, err := uuid.Parse(metadata["user_id"])
	if err != nil {
		return "", fmt.Errorf("notification has no user to resolve: %w", err)
	}

	user, err := n.users.GetUserByID(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("failed to look up order recipient: %w", err)
	}

	return user.Email, nil
}

func (n *notificationService) deliver(ctx context.Context, notification *models.Notification, req *models.EmailNotificationRequest) error {
	sendErr := n.emailService.Send(ctx, req)

	n.recordOutcome(ctx, notification, sendErr)

	if sendErr != nil {
		return fmt.Errorf("failed to send email: %w", sendErr)
	}

	return nil
}

// recordOutcome stores one delivery attempt. A nil err marks the message sent.
func (n *notificationService) recordOutcome(ctx context.Context, notification *models.Notification, attemptErr error) {
	logger := middleware.LoggerFromContext(ctx)

	status, errMsg := models.StatusSent, ""
	if attemptErr != nil {
		status, errMsg = models.StatusFailed, attemptErr.Error()
	}

	notification.Status = status
	notification.ErrorMessage = errMsg
	notification.Attempts++

	metrics.RecordNotification(string(status))

	if err := n.repo.UpdateNotificationStatus(ctx, notification.ID, status, errMsg); err != nil {
		logger.Error("Failed to record notification outcome",
			slog.String("notificationId", notification.ID.String()),
			slog.String("status", string(status)),
			slog.Any("error", err))
	}
}

var orderConfirmationHTML = template.Must(template.New("order").Parse(`<h2>Thanks for your order{{with .Name}}, {{.}}{{end}}!</h2>
<p>Order <strong>{{.OrderID}}</strong></p>
<table>
{{range .Items}}<tr><td>{{.Quantity}} x {{.ProductName}}{{if .Options}} ({{.Options}}){{end}}</td><td>{{.Subtotal}}</td></tr>
{{end}}</table>
<p>Total: <strong>{{.Total}} {{.Currency}}</strong></p>
<p>Shipping to {{.Address}}</p>`))

type confirmationLine struct {
	Quantity    int
	ProductName string
	Options     string
	Subtotal    string
}

func orderConfirmationEmail(user *models.User, order *models.Order) (*models.EmailNotificationRequest, error) {
	currency := strings.ToUpper(order.Currency)
	s := order.Shipping
	address := strings.Join(nonEmpty(s.Address1, s.Address2, s.City, s.State, s.Zip, s.Country), ", ")

	lines := make([]confirmationLine, 0, len(order.Items))

	var text strings.Builder

	greeting := "Thanks for your order!"
	if user.Name != "" {
		greeting = fmt.Sprintf("Thanks for your order, %s!", user.Name)
	}

	fmt.Fprintf(&text, "%s\n\nOrder %s\n\n", greeting, order.ID)

	for _, item := range order.Items {
		line := confirmationLine{
			Quantity:    item.Quantity,
			ProductName: item.ProductName,
			Options:     formatOptions(item.Options),
			Subtotal:    item.Subtotal().StringFixed(2),
		}
		lines = append(lines, line)

		fmt.Fprintf(&text, "%d x %s %s  %s\n", line.Quantity, line.ProductName, line.Options, line.Subtotal)
	}

	fmt.Fprintf(&text, "\nTotal: %s %s\nShipping to %s\n", order.Total.StringFixed(2), currency, address)

	var html bytes.Buffer

	err := orderConfirmationHTML.Execute(&html, map[string]any{
		"Name":     user.Name,
		"OrderID":  order.ID.String(),
		"Items":    lines,
		"Total":    order.Total.StringFixed(2),
		"Currency": currency,
		"Address":  address,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render confirmation email: %w", err)
	}

	return &models.EmailNotificationRequest{
		To:          user.Email,
		Subject:     fmt.Sprintf("Order confirmation #%s", order.ID.String()[:8]),
		Content:     text.String(),
		HTMLContent: html.String(),
		Metadata: map[string]string{
			"order_id": order.ID.String(),
			"user_id":  order.UserID.String(),
			"kind":     "order_confirmation",
		},
	}, nil
}

func formatOptions(opts models.LineOptions) string {
	if len(opts) == 0 {
		return ""
	}

	key := opts.Key()

	return strings.NewReplacer(`{`, "", `}`, "", `"`, "", `:`, ": ", `,`, ", ").Replace(key)
}

func nonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))

	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}

	return out
}
