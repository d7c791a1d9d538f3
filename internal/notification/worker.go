// Package notification delivers occupant notices as web push messages.
package notification

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"hostel-allocation-backend/internal/metrics"
	"hostel-allocation-backend/internal/model"
)

// queuePerWorker sizes the job buffer.
const queuePerWorker = 64

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// Notice is a message for every device an occupant subscribed.
type Notice struct {
	OccupantID int64
	Message    string
}

// payload is the JSON body the service worker receives.
type payload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// WorkerPool manages a pool of workers for sending notifications.
type WorkerPool struct {
	size    int
	jobs    chan Notice
	db      *gorm.DB
	webpush *webpush.Options
	sender  NotificationSender
	log     *zap.Logger
	metrics *metrics.Metrics
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, db *gorm.DB, webpushOptions *webpush.Options, log *zap.Logger) *WorkerPool {
	if size < 1 {
		size = 1
	}
	return &WorkerPool{
		size:    size,
		jobs:    make(chan Notice, size*queuePerWorker),
		db:      db,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
		log:     log,
	}
}

// SetMetrics counts sent, failed, expired and dropped notices.
func (wp *WorkerPool) SetMetrics(m *metrics.Metrics) { wp.metrics = m }

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	wp.log.Debug("notification worker started", zap.Int("worker", id))
	for {
		select {
		case notice := <-wp.jobs:
			wp.sendToOccupant(ctx, notice)
		case <-ctx.Done():
			wp.log.Debug("notification worker shutting down", zap.Int("worker", id))
			return
		}
	}
}

// Notify queues a notice without blocking. When the queue is full the notice is dropped.
func (wp *WorkerPool) Notify(occupantID int64, message string) {
	select {
	case wp.jobs <- Notice{OccupantID: occupantID, Message: message}:
	default:
		wp.metrics.IncNotification("dropped")
		wp.log.Warn("notification queue full, dropping notice", zap.Int64("occupant_id", occupantID))
	}
}

func (wp *WorkerPool) sendToOccupant(ctx context.Context, notice Notice) {
	var subscriptions []model.PushSubscription
	if err := wp.db.WithContext(ctx).
		Where("occupant_id = ?", notice.OccupantID).
		Find(&subscriptions).Error; err != nil {
		wp.log.Error("failed to load subscriptions", zap.Int64("occupant_id", notice.OccupantID), zap.Error(err))
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	body, err := json.Marshal(payload{Title: "Hostel allocation", Body: notice.Message})
	if err != nil {
		wp.log.Error("failed to encode notice", zap.Error(err))
		return
	}
	for _, sub := range subscriptions {
		wp.sendNotification(ctx, sub, body)
	}
}

func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, body []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(body, wpSub, wp.webpush)
	if err != nil {
		wp.metrics.IncNotification("failed")
		wp.log.Warn("failed to send notification", zap.String("endpoint", sub.Endpoint), zap.Error(err))
		return
	}
	defer resp.Body.Close()

	// Push services answer 404 or 410 for subscriptions that are gone for good.
	if resp.StatusCode == http.StatusGone || resp.StatusCode == http.StatusNotFound {
		wp.metrics.IncNotification("expired")
		wp.log.Info("subscription expired, deleting", zap.String("endpoint", sub.Endpoint))
		if err := wp.db.WithContext(ctx).Delete(&sub).Error; err != nil {
			wp.log.Error("failed to delete expired subscription", zap.String("endpoint", sub.Endpoint), zap.Error(err))
		}
		return
	}
	wp.metrics.IncNotification("sent")
}
