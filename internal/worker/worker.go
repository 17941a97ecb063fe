package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/aescanero/dago-pathway-router/internal/config"
	"github.com/aescanero/dago-pathway-router/internal/patient"
	"github.com/aescanero/dago-pathway-router/internal/router"
)

// StreamClient is the subset of the Redis client the worker uses.
// *redis.Client satisfies it.
type StreamClient interface {
	XGroupCreateMkStream(ctx context.Context, stream, group, start string) *redis.StatusCmd
	XReadGroup(ctx context.Context, a *redis.XReadGroupArgs) *redis.XStreamSliceCmd
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
	XAck(ctx context.Context, stream, group string, ids ...string) *redis.IntCmd
}

// Router routes one patient record.
type Router interface {
	Route(ctx context.Context, rec patient.Record) ([]router.ActivationResult, error)
}

// MessageObserver counts processed messages.
type MessageObserver interface {
	ObserveMessage(ok bool)
}

// messageTimeout bounds the routing, publish and ack of one message. It is
// detached from Stop so an in-flight message is always acknowledged.
const messageTimeout = 10 * time.Second

// Worker consumes patient records from a Redis stream and publishes the
// routing results
type Worker struct {
	id            string
	client        StreamClient
	router        Router
	observer      MessageObserver
	logger        *zap.Logger
	ctx           context.Context
	cancel        context.CancelFunc
	done          chan struct{}
	startOnce     sync.Once
	streamKey     string
	consumerGroup string
	resultStream  string
	errorStream   string
	blockTime     time.Duration
	now           func() time.Time
}

// NewWorker creates a new worker
func NewWorker(
	cfg *config.Config,
	client StreamClient,
	routerInstance Router,
	observer MessageObserver,
	logger *zap.Logger,
) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Worker{
		id:            cfg.WorkerID,
		client:        client,
		router:        routerInstance,
		observer:      observer,
		logger:        logger,
		ctx:           ctx,
		cancel:        cancel,
		done:          make(chan struct{}),
		streamKey:     cfg.StreamKey,
		consumerGroup: cfg.ConsumerGroup,
		resultStream:  cfg.ResultStream,
		errorStream:   cfg.ErrorStream(),
		blockTime:     cfg.BlockTime,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Start starts the worker
func (w *Worker) Start() error {
	w.logger.Info("starting pathway router worker",
		zap.String("worker_id", w.id),
		zap.String("stream_key", w.streamKey),
		zap.String("consumer_group", w.consumerGroup),
	)

	// Create consumer group if it doesn't exist
	if err := w.ensureConsumerGroup(); err != nil {
		return fmt.Errorf("failed to ensure consumer group: %w", err)
	}

	w.startOnce.Do(func() {
		go w.processWork()
	})

	w.logger.Info("pathway router worker started", zap.String("worker_id", w.id))
	return nil
}

// Stop stops the worker and waits for the in-flight message, up to timeout.
func (w *Worker) Stop(timeout time.Duration) error {
	w.logger.Info("stopping pathway router worker", zap.String("worker_id", w.id))

	w.cancel()

	// A worker that never started has no loop to close done.
	w.startOnce.Do(func() { close(w.done) })
	select {
	case <-w.done:
	case <-time.After(timeout):
		return fmt.Errorf("worker %s did not stop within %s", w.id, timeout)
	}

	w.logger.Info("pathway router worker stopped", zap.String("worker_id", w.id))
	return nil
}

// ensureConsumerGroup creates the consumer group if it doesn't exist
func (w *Worker) ensureConsumerGroup() error {
	err := w.client.XGroupCreateMkStream(w.ctx, w.streamKey, w.consumerGroup, "0").Err()
	if err != nil {
		// BUSYGROUP means the group already exists
		if strings.HasPrefix(err.Error(), "BUSYGROUP") {
			w.logger.Debug("consumer group already exists",
				zap.String("group", w.consumerGroup),
			)
			return nil
		}
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	w.logger.Info("created consumer group",
		zap.String("group", w.consumerGroup),
		zap.String("stream", w.streamKey),
	)
	return nil
}

// processWork reads the stream until the worker is stopped
func (w *Worker) processWork() {
	defer close(w.done)
	w.logger.Info("starting work processing loop")

	for {
		select {
		case <-w.ctx.Done():
			w.logger.Info("work processing loop stopped")
			return
		default:
		}

		streams, err := w.client.XReadGroup(w.ctx, &redis.XReadGroupArgs{
			Group:    w.consumerGroup,
			Consumer: w.id,
			Streams:  []string{w.streamKey, ">"},
			Count:    1,
			Block:    w.blockTime,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || w.ctx.Err() != nil {
				continue
			}
			w.logger.Error("failed to read from stream", zap.Error(err))
			select {
			case <-w.ctx.Done():
			case <-time.After(time.Second):
			}
			continue
		}

		for _, stream := range streams {
			for _, message := range stream.Messages {
				w.handleMessage(message)
			}
		}
	}
}

// Request is one routing request read from the stream.
type Request struct {
	RequestID string         `json:"request_id"`
	Patient   patient.Record `json:"patient"`
}

// Response is published to the result stream.
type Response struct {
	RequestID string                    `json:"request_id"`
	Results   []router.ActivationResult `json:"results"`
	Timestamp time.Time                 `json:"timestamp"`
}

// ErrorEvent is published to the error stream.
type ErrorEvent struct {
	RequestID string    `json:"request_id,omitempty"`
	MessageID string    `json:"message_id"`
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

// handleMessage routes one message. The message is always acknowledged.
func (w *Worker) handleMessage(message redis.XMessage) {
	messageID := message.ID
	ctx, cancel := context.WithTimeout(context.WithoutCancel(w.ctx), messageTimeout)
	defer cancel()

	w.logger.Debug("processing routing request",
		zap.String("message_id", messageID),
	)

	request, err := parseRequest(message.Values)
	if err == nil {
		err = w.process(ctx, request)
	}
	if err != nil {
		requestID := ""
		if request != nil {
			requestID = request.RequestID
		}
		w.logger.Error("failed to process routing request",
			zap.String("message_id", messageID),
			zap.String("request_id", requestID),
			zap.Error(err),
		)
		w.publishError(ctx, messageID, requestID, err)
	}
	if w.observer != nil {
		w.observer.ObserveMessage(err == nil)
	}

	w.acknowledgeMessage(ctx, messageID)
}

// parseRequest decodes the "data" field of a stream message.
func parseRequest(values map[string]interface{}) (*Request, error) {
	dataStr, ok := values["data"].(string)
	if !ok {
		return nil, fmt.Errorf("missing or invalid 'data' field")
	}

	var request Request
	if err := json.Unmarshal([]byte(dataStr), &request); err != nil {
		return nil, fmt.Errorf("failed to unmarshal routing request: %w", err)
	}
	if request.Patient == nil {
		return &request, fmt.Errorf("routing request has no patient record")
	}
	if request.RequestID == "" {
		request.RequestID = uuid.NewString()
	}

	return &request, nil
}

// process routes the patient record and publishes the results
func (w *Worker) process(ctx context.Context, request *Request) error {
	results, err := w.router.Route(ctx, request.Patient)
	if err != nil {
		return fmt.Errorf("routing failed: %w", err)
	}

	data, err := json.Marshal(Response{
		RequestID: request.RequestID,
		Results:   results,
		Timestamp: w.now(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}

	_, err = w.client.XAdd(ctx, &redis.XAddArgs{
		Stream: w.resultStream,
		Values: map[string]interface{}{
			"data": string(data),
		},
	}).Result()
	if err != nil {
		return fmt.Errorf("failed to publish to stream: %w", err)
	}

	w.logger.Info("published routing results",
		zap.String("request_id", request.RequestID),
		zap.Int("results", len(results)),
	)
	return nil
}

// publishError publishes an error event
func (w *Worker) publishError(ctx context.Context, messageID, requestID string, err error) {
	data, marshalErr := json.Marshal(ErrorEvent{
		RequestID: requestID,
		MessageID: messageID,
		Error:     err.Error(),
		Timestamp: w.now(),
	})
	if marshalErr != nil {
		w.logger.Error("failed to marshal error event", zap.Error(marshalErr))
		return
	}

	_, publishErr := w.client.XAdd(ctx, &redis.XAddArgs{
		Stream: w.errorStream,
		Values: map[string]interface{}{
			"data": string(data),
		},
	}).Result()
	if publishErr != nil {
		w.logger.Error("failed to publish error event", zap.Error(publishErr))
	}
}

// acknowledgeMessage acknowledges a message from the stream
func (w *Worker) acknowledgeMessage(ctx context.Context, messageID string) {
	err := w.client.XAck(ctx, w.streamKey, w.consumerGroup, messageID).Err()
	if err != nil {
		w.logger.Error("failed to acknowledge message",
			zap.String("message_id", messageID),
			zap.Error(err),
		)
	}
}
