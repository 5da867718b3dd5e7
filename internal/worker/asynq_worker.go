package worker

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/sylvan-next/internal/constants"
	"github.com/sylvan-next/internal/logger"
	"github.com/sylvan-next/internal/models"
	"github.com/sylvan-next/internal/provider"
	"github.com/sylvan-next/internal/queue"
	"github.com/sylvan-next/internal/service"

	"github.com/hibiken/asynq"
)

// 到期前提醒的提前量
const expiryReminderLead = 7 * 24 * time.Hour

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskOrderStatusEmail, c.handleOrderStatusEmail)
	mux.HandleFunc(queue.TaskAdoptionCertificate, c.handleAdoptionCertificate)
	mux.HandleFunc(queue.TaskAdoptionMilestone, c.handleAdoptionMilestone)
	mux.HandleFunc(queue.TaskOrderTimeoutCancel, c.handleOrderTimeoutCancel)
	mux.HandleFunc(queue.TaskAdoptionExpiryReminder, c.handleAdoptionExpiryReminder)
}

func (c *Consumer) handleOrderStatusEmail(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_order_status_email_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.OrderStatusEmailPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_order_status_email_unmarshal_failed", "error", err)
		return err
	}
	if payload.OrderID == 0 {
		logger.Debugw("worker_order_status_email_skip_invalid_payload", "order_id", payload.OrderID)
		return nil
	}
	order, err := c.OrderRepo.GetByID(payload.OrderID)
	if err != nil {
		logger.Warnw("worker_order_status_email_fetch_order_failed", "order_id", payload.OrderID, "error", err)
		return err
	}
	if order == nil {
		logger.Debugw("worker_order_status_email_skip_order_not_found", "order_id", payload.OrderID)
		return nil
	}
	receiverEmail, locale := c.resolveOrderReceiver(order)
	if receiverEmail == "" {
		logger.Debugw("worker_order_status_email_skip_empty_receiver", "order_id", order.ID, "order_no", order.OrderNo)
		return nil
	}
	if c.EmailService == nil {
		logger.Warnw("worker_order_status_email_skip_email_service_nil", "order_id", order.ID, "order_no", order.OrderNo)
		return nil
	}
	status := strings.TrimSpace(payload.Status)
	if status == "" {
		status = order.Status
	}
	input := service.OrderStatusEmailInput{
		OrderNo:    order.OrderNo,
		Status:     status,
		TrackingNo: order.TrackingNo,
	}
	if err := c.EmailService.SendOrderStatusEmail(receiverEmail, input, locale); err != nil {
		if isEmailUnavailable(err) {
			logger.Debugw("worker_order_status_email_skip_unavailable", "order_id", order.ID, "error", err)
			return nil
		}
		logger.Warnw("worker_order_status_email_send_failed",
			"order_id", order.ID,
			"order_no", order.OrderNo,
			"receiver_email", receiverEmail,
			"status", status,
			"error", err,
		)
		return err
	}
	return nil
}

func (c *Consumer) handleAdoptionCertificate(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_adoption_certificate_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.AdoptionCertificatePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_adoption_certificate_unmarshal_failed", "error", err)
		return err
	}
	if payload.AdoptionID == 0 {
		logger.Debugw("worker_adoption_certificate_skip_invalid_payload", "adoption_id", payload.AdoptionID)
		return nil
	}
	adoption, err := c.AdoptionRepo.GetByID(payload.AdoptionID)
	if err != nil {
		logger.Warnw("worker_adoption_certificate_fetch_failed", "adoption_id", payload.AdoptionID, "error", err)
		return err
	}
	if adoption == nil {
		logger.Debugw("worker_adoption_certificate_skip_not_found", "adoption_id", payload.AdoptionID)
		return nil
	}
	if adoption.CertifiedAt != nil {
		logger.Debugw("worker_adoption_certificate_skip_already_sent", "adoption_id", adoption.ID)
		return nil
	}
	targetName, err := c.resolveAdoptionTarget(adoption)
	if err != nil {
		logger.Warnw("worker_adoption_certificate_resolve_target_failed", "adoption_id", adoption.ID, "error", err)
		return err
	}
	receiverEmail, locale := c.resolveAdoptionReceiver(adoption)
	if receiverEmail == "" {
		logger.Debugw("worker_adoption_certificate_skip_empty_receiver", "adoption_id", adoption.ID)
		return nil
	}
	if c.EmailService == nil {
		logger.Warnw("worker_adoption_certificate_skip_email_service_nil", "adoption_id", adoption.ID)
		return nil
	}
	if err := c.EmailService.SendAdoptionCertificate(receiverEmail, adoption.AdopterName, targetName, adoption.ExpiresAt, locale); err != nil {
		if isEmailUnavailable(err) {
			logger.Debugw("worker_adoption_certificate_skip_unavailable", "adoption_id", adoption.ID, "error", err)
			return nil
		}
		logger.Warnw("worker_adoption_certificate_send_failed",
			"adoption_id", adoption.ID,
			"receiver_email", receiverEmail,
			"error", err,
		)
		return err
	}
	if err := c.AdoptionRepo.MarkCertified(adoption.ID, time.Now()); err != nil {
		logger.Warnw("worker_adoption_certificate_mark_failed", "adoption_id", adoption.ID, "error", err)
		return err
	}
	c.enqueueExpiryReminder(adoption)
	return nil
}

func (c *Consumer) handleAdoptionMilestone(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_adoption_milestone_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.AdoptionMilestonePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_adoption_milestone_unmarshal_failed", "error", err)
		return err
	}
	if payload.UserID == 0 || payload.Milestone <= 0 {
		logger.Debugw("worker_adoption_milestone_skip_invalid_payload", "user_id", payload.UserID, "milestone", payload.Milestone)
		return nil
	}
	user, err := c.UserRepo.GetByID(payload.UserID)
	if err != nil {
		logger.Warnw("worker_adoption_milestone_fetch_user_failed", "user_id", payload.UserID, "error", err)
		return err
	}
	if user == nil || strings.TrimSpace(user.Email) == "" {
		logger.Debugw("worker_adoption_milestone_skip_no_receiver", "user_id", payload.UserID)
		return nil
	}
	if c.EmailService == nil {
		logger.Warnw("worker_adoption_milestone_skip_email_service_nil", "user_id", payload.UserID)
		return nil
	}
	if err := c.EmailService.SendMilestoneNotification(user.Email, payload.Milestone, user.Locale); err != nil {
		if isEmailUnavailable(err) {
			logger.Debugw("worker_adoption_milestone_skip_unavailable", "user_id", payload.UserID, "error", err)
			return nil
		}
		logger.Warnw("worker_adoption_milestone_send_failed", "user_id", payload.UserID, "milestone", payload.Milestone, "error", err)
		return err
	}
	return nil
}

func (c *Consumer) handleOrderTimeoutCancel(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_order_timeout_cancel_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.OrderTimeoutCancelPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_order_timeout_cancel_unmarshal_failed", "error", err)
		return err
	}
	if payload.OrderID == 0 {
		logger.Debugw("worker_order_timeout_cancel_skip_invalid_payload", "order_id", payload.OrderID)
		return nil
	}
	if c.OrderService == nil {
		logger.Warnw("worker_order_timeout_cancel_skip_order_service_nil", "order_id", payload.OrderID)
		return nil
	}
	if err := c.OrderService.CancelExpiredByID(payload.OrderID); err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			logger.Debugw("worker_order_timeout_cancel_skip_order_not_found", "order_id", payload.OrderID)
			return nil
		}
		logger.Warnw("worker_order_timeout_cancel_failed", "order_id", payload.OrderID, "error", err)
		return err
	}
	return nil
}

func (c *Consumer) handleAdoptionExpiryReminder(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_adoption_expiry_reminder_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.AdoptionExpiryReminderPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_adoption_expiry_reminder_unmarshal_failed", "error", err)
		return err
	}
	if payload.AdoptionID == 0 {
		logger.Debugw("worker_adoption_expiry_reminder_skip_invalid_payload", "adoption_id", payload.AdoptionID)
		return nil
	}
	adoption, err := c.AdoptionRepo.GetByID(payload.AdoptionID)
	if err != nil {
		logger.Warnw("worker_adoption_expiry_reminder_fetch_failed", "adoption_id", payload.AdoptionID, "error", err)
		return err
	}
	if adoption == nil || adoption.Status != constants.AdoptionStatusActive {
		logger.Debugw("worker_adoption_expiry_reminder_skip_inactive", "adoption_id", payload.AdoptionID)
		return nil
	}
	if !adoption.ExpiresAt.After(time.Now()) {
		logger.Debugw("worker_adoption_expiry_reminder_skip_lapsed", "adoption_id", adoption.ID)
		return nil
	}
	targetName, err := c.resolveAdoptionTarget(adoption)
	if err != nil {
		logger.Warnw("worker_adoption_expiry_reminder_resolve_target_failed", "adoption_id", adoption.ID, "error", err)
		return err
	}
	receiverEmail, locale := c.resolveAdoptionReceiver(adoption)
	if receiverEmail == "" {
		logger.Debugw("worker_adoption_expiry_reminder_skip_empty_receiver", "adoption_id", adoption.ID)
		return nil
	}
	if c.EmailService == nil {
		logger.Warnw("worker_adoption_expiry_reminder_skip_email_service_nil", "adoption_id", adoption.ID)
		return nil
	}
	if err := c.EmailService.SendAdoptionExpiryReminder(receiverEmail, adoption.AdopterName, targetName, adoption.ExpiresAt, locale); err != nil {
		if isEmailUnavailable(err) {
			logger.Debugw("worker_adoption_expiry_reminder_skip_unavailable", "adoption_id", adoption.ID, "error", err)
			return nil
		}
		logger.Warnw("worker_adoption_expiry_reminder_send_failed", "adoption_id", adoption.ID, "error", err)
		return err
	}
	return nil
}

func (c *Consumer) enqueueExpiryReminder(adoption *models.Adoption) {
	if c.QueueClient == nil || !c.QueueClient.Enabled() {
		return
	}
	delay := time.Until(adoption.ExpiresAt.Add(-expiryReminderLead))
	if delay <= 0 {
		return
	}
	payload := queue.AdoptionExpiryReminderPayload{AdoptionID: adoption.ID}
	if err := c.QueueClient.EnqueueAdoptionExpiryReminder(payload, delay); err != nil {
		logger.Warnw("worker_adoption_expiry_reminder_enqueue_failed", "adoption_id", adoption.ID, "error", err)
	}
}

func (c *Consumer) resolveOrderReceiver(order *models.Order) (string, string) {
	if order.UserID != 0 {
		user, err := c.UserRepo.GetByID(order.UserID)
		if err != nil {
			logger.Warnw("worker_resolve_receiver_fetch_user_failed", "order_id", order.ID, "user_id", order.UserID, "error", err)
		}
		if user != nil {
			return strings.TrimSpace(user.Email), strings.TrimSpace(user.Locale)
		}
	}
	return strings.TrimSpace(order.CustomerEmail), ""
}

func (c *Consumer) resolveAdoptionReceiver(adoption *models.Adoption) (string, string) {
	locale := ""
	if adoption.UserID != 0 {
		if user, err := c.UserRepo.GetByID(adoption.UserID); err == nil && user != nil {
			locale = strings.TrimSpace(user.Locale)
			if email := strings.TrimSpace(adoption.AdopterEmail); email != "" {
				return email, locale
			}
			return strings.TrimSpace(user.Email), locale
		}
	}
	return strings.TrimSpace(adoption.AdopterEmail), locale
}

func (c *Consumer) resolveAdoptionTarget(adoption *models.Adoption) (string, error) {
	switch {
	case adoption.TreeID != nil:
		tree, err := c.TreeRepo.GetByID(*adoption.TreeID)
		if err != nil {
			return "", err
		}
		if tree == nil {
			return "", service.ErrTreeNotFound
		}
		return tree.Name, nil
	case adoption.PlotID != nil:
		plot, err := c.PlotRepo.GetByID(*adoption.PlotID)
		if err != nil {
			return "", err
		}
		if plot == nil {
			return "", service.ErrPlotNotFound
		}
		return plot.Name, nil
	default:
		return "", service.ErrInvalidOrderItem
	}
}

func isEmailUnavailable(err error) bool {
	return errors.Is(err, service.ErrEmailServiceDisabled) ||
		errors.Is(err, service.ErrEmailServiceNotConfigured) ||
		errors.Is(err, service.ErrInvalidEmail)
}
