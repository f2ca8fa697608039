// Package worker serves the tool catalog over an AMQP request/reply queue.
package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-logr/logr"
	amqp "github.com/rabbitmq/amqp091-go"
	"golang.org/x/sync/errgroup"

	"github.com/bigdata-coss/agent-mcp/internal/config"
	"github.com/bigdata-coss/agent-mcp/internal/models"
	"github.com/bigdata-coss/agent-mcp/pkg/mcp"
)

const consumerTag = "tool-worker"

// Channel is the subset of *amqp.Channel the worker uses.
type Channel interface {
	Qos(prefetchCount, prefetchSize int, global bool) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	ConsumeWithContext(ctx context.Context, queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Worker consumes tool requests and publishes replies.
type Worker struct {
	ch         Channel
	dispatcher mcp.Dispatcher
	cfg        config.WorkerConfig
	log        logr.Logger
}

func New(ch Channel, d mcp.Dispatcher, cfg config.WorkerConfig, log logr.Logger) *Worker {
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = 1
	}
	return &Worker{ch: ch, dispatcher: d, cfg: cfg, log: log.WithName("worker")}
}

// Run declares the queue and handles deliveries until ctx is cancelled or the
// channel closes. At most Prefetch deliveries are handled at once.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.ch.Qos(w.cfg.Prefetch, 0, false); err != nil {
		return fmt.Errorf("setting prefetch: %w", err)
	}
	q, err := w.ch.QueueDeclare(w.cfg.Queue, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("declaring queue %s: %w", w.cfg.Queue, err)
	}
	deliveries, err := w.ch.ConsumeWithContext(ctx, q.Name, consumerTag, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consuming %s: %w", q.Name, err)
	}
	w.log.Info("consuming tool requests", "queue", q.Name, "prefetch", w.cfg.Prefetch)

	var g errgroup.Group
	g.SetLimit(w.cfg.Prefetch)
	defer g.Wait()

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return nil
			}
			g.Go(func() error {
				w.HandleDelivery(ctx, d)
				return nil
			})
		}
	}
}

// HandleDelivery answers one delivery and settles it. The delivery is acked
// once the reply is published, including replies to malformed requests.
func (w *Worker) HandleDelivery(ctx context.Context, d amqp.Delivery) {
	reply := w.Process(ctx, d.Body, d.CorrelationId)
	log := w.log.WithValues("requestID", reply.RequestID, "correlationID", d.CorrelationId)

	if d.ReplyTo == "" {
		log.Info("delivery has no reply-to, dropping reply")
		w.ack(log, d)
		return
	}

	body, err := json.Marshal(reply)
	if err != nil {
		log.Error(err, "encoding reply")
		body, _ = json.Marshal(models.ErrorResponse(models.ErrCodeInvalidRequest, "reply could not be encoded", reply.RequestID))
	}
	err = w.ch.PublishWithContext(ctx, "", d.ReplyTo, false, false, amqp.Publishing{
		ContentType:   "application/json",
		CorrelationId: d.CorrelationId,
		Body:          body,
	})
	if err != nil {
		log.Error(err, "publishing reply", "replyTo", d.ReplyTo)
		if nerr := d.Nack(false, !d.Redelivered); nerr != nil {
			log.Error(nerr, "nack failed")
		}
		return
	}
	w.ack(log, d)
}

func (w *Worker) ack(log logr.Logger, d amqp.Delivery) {
	if err := d.Ack(false); err != nil {
		log.Error(err, "ack failed")
	}
}

// Process decodes a request body and runs it. fallbackID is used when the
// body carries no request_id.
func (w *Worker) Process(ctx context.Context, body []byte, fallbackID string) models.ToolReply {
	var req models.ToolRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return models.ErrorResponse(models.ErrCodeInvalidRequest, "invalid request: "+err.Error(), fallbackID)
	}
	if req.RequestID == "" {
		req.RequestID = fallbackID
	}

	switch req.Action {
	case "list_tools":
		return models.SuccessResponse(map[string]any{"tools": w.dispatcher.ListTools()}, req.RequestID)
	case "call_tool":
		if req.Name == "" {
			return models.ErrorResponse(models.ErrCodeInvalidRequest, "missing tool name", req.RequestID)
		}
		res := w.dispatcher.CallTool(ctx, mcp.ToolCall{Name: req.Name, Arguments: req.Arguments, Meta: req.Meta})
		return models.SuccessResponse(res, req.RequestID)
	default:
		return models.ErrorResponse(models.ErrCodeUnknownAction, fmt.Sprintf("unknown action: %s", req.Action), req.RequestID)
	}
}

// Dial opens a connection and a channel to url.
func Dial(url string) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("opening channel: %w", err)
	}
	return conn, ch, nil
}
