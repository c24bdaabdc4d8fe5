package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/SherClockHolmes/webpush-go"

	"visitor-kiosk-backend/internal/metrics"
	"visitor-kiosk-backend/internal/model"
	"visitor-kiosk-backend/internal/queue"
	"visitor-kiosk-backend/internal/store"
)

const publishTimeout = 2 * time.Second

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

// Store is what the workers read and prune.
type Store interface {
	GetVisit(ctx context.Context, visitID int64) (model.Visit, error)
	ListHostSubscriptions(ctx context.Context, hostID int64) ([]model.PushSubscription, error)
	DeleteSubscription(ctx context.Context, endpoint string) error
}

// Payload is the JSON pushed to the host's browser.
type Payload struct {
	Title    string `json:"title"`
	Body     string `json:"body"`
	VisitID  int64  `json:"visit_id"`
	PhotoURL string `json:"photo_url,omitempty"`
}

// WorkerPool manages a pool of workers for sending host notifications.
// Jobs arrive through a queue so that several API instances can share one set of workers.
type WorkerPool struct {
	size     int
	queue    queue.Queue
	store    Store
	webpush  *webpush.Options
	sender   NotificationSender
	photoURL func(string) string
	wg       sync.WaitGroup
}

// NewWorkerPool creates a new worker pool. With nil webpushOptions notifications
// are written to the log instead of being pushed.
func NewWorkerPool(size int, q queue.Queue, st Store, webpushOptions *webpush.Options, photoURL func(string) string) *WorkerPool {
	if size <= 0 {
		size = 1
	}
	if photoURL == nil {
		photoURL = func(p string) string { return p }
	}
	return &WorkerPool{
		size:     size,
		queue:    q,
		store:    st,
		webpush:  webpushOptions,
		sender:   &WebPushSender{}, // Use the real sender by default
		photoURL: photoURL,
	}
}

// Start subscribes to the queue and launches the worker goroutines.
// Workers stop when ctx is done; Wait blocks until they have.
func (wp *WorkerPool) Start(ctx context.Context) error {
	jobs, err := wp.queue.Consume(ctx)
	if err != nil {
		return fmt.Errorf("failed to consume notification queue: %w", err)
	}
	for i := 0; i < wp.size; i++ {
		wp.wg.Add(1)
		go wp.worker(ctx, i, jobs)
	}
	return nil
}

// Wait blocks until every worker has exited.
func (wp *WorkerPool) Wait() {
	wp.wg.Wait()
}

// worker is the actual worker goroutine.
func (wp *WorkerPool) worker(ctx context.Context, id int, jobs <-chan queue.Message) {
	defer wp.wg.Done()
	log.Printf("Notification worker %d started", id)
	for msg := range jobs {
		if msg.Type != queue.TypeHostNotify {
			log.Printf("Worker %d skipping message of unknown type %q", id, msg.Type)
			continue
		}
		visitID, err := strconv.ParseInt(strings.TrimSpace(string(msg.Body)), 10, 64)
		if err != nil {
			log.Printf("Worker %d dropping malformed message %q", id, msg.Body)
			metrics.Notifications.WithLabelValues("dropped").Inc()
			continue
		}
		wp.notifyHost(ctx, visitID)
	}
	log.Printf("Notification worker %d shutting down", id)
}

// NotifyHost queues a notification for the host of visitID. The timeout only
// bounds network-backed queues; the in-memory queue never waits.
func (wp *WorkerPool) NotifyHost(ctx context.Context, visitID int64) error {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	return wp.queue.Publish(ctx, queue.Message{
		Type: queue.TypeHostNotify,
		Body: []byte(strconv.FormatInt(visitID, 10)),
	})
}

// notifyHost fetches the visit and pushes to each of the host's subscriptions.
func (wp *WorkerPool) notifyHost(ctx context.Context, visitID int64) {
	visit, err := wp.store.GetVisit(ctx, visitID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Printf("Visit %d vanished before its host could be notified", visitID)
		} else {
			log.Printf("Error fetching visit %d: %v", visitID, err)
		}
		metrics.Notifications.WithLabelValues("failed").Inc()
		return
	}

	payload := wp.buildPayload(visit)
	if wp.webpush == nil {
		log.Printf("Host %d notification (push disabled): %s", visit.HostID, payload.Body)
		metrics.Notifications.WithLabelValues("logged").Inc()
		return
	}

	subscriptions, err := wp.store.ListHostSubscriptions(ctx, visit.HostID)
	if err != nil {
		log.Printf("Error fetching subscriptions for host %d: %v", visit.HostID, err)
		metrics.Notifications.WithLabelValues("failed").Inc()
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Error encoding notification for visit %d: %v", visitID, err)
		return
	}

	log.Printf("Sending %d notifications for visit %d", len(subscriptions), visitID)
	for _, sub := range subscriptions {
		wp.sendNotification(ctx, sub, body)
	}
}

func (wp *WorkerPool) buildPayload(v model.Visit) Payload {
	name := "A visitor"
	if v.Visitor != nil && v.Visitor.FullName != "" {
		name = v.Visitor.FullName
		if v.Visitor.Company != nil && *v.Visitor.Company != "" {
			name += " (" + *v.Visitor.Company + ")"
		}
	}
	body := name + " is waiting at reception"
	if v.Purpose != nil && *v.Purpose != "" {
		body += ": " + *v.Purpose
	}

	p := Payload{Title: "Visitor arrived", Body: body, VisitID: v.ID}
	if v.Photo != nil && v.Photo.FilePath != "" {
		p.PhotoURL = wp.photoURL(v.Photo.FilePath)
	}
	return p
}

// sendNotification sends a single web push notification.
func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, payload []byte) {
	// Manually construct the webpush.Subscription object
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		log.Printf("Error sending notification to %s: %v", sub.Endpoint, err)
		metrics.Notifications.WithLabelValues("failed").Inc()
		return
	}
	defer resp.Body.Close()

	// Handle expired subscriptions
	if resp.StatusCode == http.StatusGone || resp.StatusCode == http.StatusNotFound {
		log.Printf("Subscription for endpoint %s is expired. Deleting.", sub.Endpoint)
		metrics.Notifications.WithLabelValues("expired").Inc()
		if err := wp.store.DeleteSubscription(ctx, sub.Endpoint); err != nil {
			log.Printf("Failed to delete expired subscription %s: %v", sub.Endpoint, err)
		}
		return
	}
	if resp.StatusCode >= 400 {
		log.Printf("Push service rejected notification to %s: %s", sub.Endpoint, resp.Status)
		metrics.Notifications.WithLabelValues("failed").Inc()
		return
	}
	metrics.Notifications.WithLabelValues("sent").Inc()
}

// WebPushOptions builds sender options from VAPID settings, or nil when push is disabled.
func WebPushOptions(publicKey, privateKey, subject string, ttl int) *webpush.Options {
	if publicKey == "" || privateKey == "" {
		return nil
	}
	return &webpush.Options{
		Subscriber:      subject,
		VAPIDPublicKey:  publicKey,
		VAPIDPrivateKey: privateKey,
		TTL:             ttl,
	}
}
