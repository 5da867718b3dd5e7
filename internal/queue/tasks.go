package queue

import (
	"encoding/json"

	"github.com/sylvan-next/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskOrderStatusEmail 订单状态邮件通知任务
	TaskOrderStatusEmail = constants.TaskOrderStatusEmail
	// TaskAdoptionCertificate 认养证书生成与发送任务
	TaskAdoptionCertificate = constants.TaskAdoptionCertificate
	// TaskAdoptionMilestone 认养里程碑通知任务
	TaskAdoptionMilestone = constants.TaskAdoptionMilestone
	// TaskOrderTimeoutCancel 超时取消任务
	TaskOrderTimeoutCancel = constants.TaskOrderTimeoutCancel
	// TaskAdoptionExpiryReminder 认养到期提醒任务
	TaskAdoptionExpiryReminder = constants.TaskAdoptionExpiryReminder
)

// OrderStatusEmailPayload 订单状态邮件任务载荷
type OrderStatusEmailPayload struct {
	OrderID uint   `json:"order_id"`
	Status  string `json:"status"`
}

// AdoptionCertificatePayload 认养证书任务载荷
type AdoptionCertificatePayload struct {
	AdoptionID uint `json:"adoption_id"`
}

// AdoptionMilestonePayload 认养里程碑任务载荷
type AdoptionMilestonePayload struct {
	UserID    uint `json:"user_id"`
	Milestone int  `json:"milestone"`
}

// OrderTimeoutCancelPayload 超时取消任务载荷
type OrderTimeoutCancelPayload struct {
	OrderID uint `json:"order_id"`
}

// AdoptionExpiryReminderPayload 认养到期提醒任务载荷
type AdoptionExpiryReminderPayload struct {
	AdoptionID uint `json:"adoption_id"`
}

// NewOrderStatusEmailTask 创建订单状态邮件任务
func NewOrderStatusEmailTask(payload OrderStatusEmailPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOrderStatusEmail, body), nil
}

// NewAdoptionCertificateTask 创建认养证书任务
func NewAdoptionCertificateTask(payload AdoptionCertificatePayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAdoptionCertificate, body), nil
}

// NewAdoptionMilestoneTask 创建认养里程碑任务
func NewAdoptionMilestoneTask(payload AdoptionMilestonePayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAdoptionMilestone, body), nil
}

// NewOrderTimeoutCancelTask 创建超时取消任务
func NewOrderTimeoutCancelTask(payload OrderTimeoutCancelPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOrderTimeoutCancel, body), nil
}

// NewAdoptionExpiryReminderTask 创建认养到期提醒任务
func NewAdoptionExpiryReminderTask(payload AdoptionExpiryReminderPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAdoptionExpiryReminder, body), nil
}
