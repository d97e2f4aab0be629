// Package natsbridge serves the chat shell over NATS request/reply.
package natsbridge

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	nats "github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/neorisk-server/internal/conversation"
	"github.com/neorisk-server/internal/domain"
)

const tracerName = "github.com/neorisk-server/internal/natsbridge"

var propagator = propagation.TraceContext{}

// ChatRequest is the payload published on the chat subject
type ChatRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

// ChatResponse is sent back to the requester
type ChatResponse struct {
	Reply    string `json:"reply"`
	Complete bool   `json:"complete"`
	Error    string `json:"error,omitempty"`
}

// Bridge consumes chat requests from a NATS queue group
type Bridge struct {
	config domain.NATSConfig
	conn   *nats.Conn
	sub    *nats.Subscription
	shell  *conversation.Shell
	logger *logrus.Logger
	tracer trace.Tracer
}

// New creates a bridge; Connect or Attach binds it to a NATS connection
func New(cfg domain.NATSConfig, shell *conversation.Shell, logger *logrus.Logger) *Bridge {
	return &Bridge{
		config: cfg,
		shell:  shell,
		logger: logger,
		tracer: otel.Tracer(tracerName),
	}
}

// Connect dials the configured NATS server
func (b *Bridge) Connect() error {
	conn, err := nats.Connect(b.config.URL,
		nats.Name("neorisk"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				b.logger.WithError(err).Warn("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			b.logger.WithField("url", nc.ConnectedUrl()).Info("NATS reconnected")
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}
	b.conn = conn
	return nil
}

// Start subscribes to the chat subject
func (b *Bridge) Start() error {
	if b.conn == nil {
		return fmt.Errorf("NATS bridge is not connected")
	}

	sub, err := b.conn.QueueSubscribe(b.config.Subject, b.config.Queue, b.handle)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", b.config.Subject, err)
	}
	b.sub = sub

	b.logger.WithFields(logrus.Fields{
		"subject": b.config.Subject,
		"queue":   b.config.Queue,
	}).Info("NATS chat bridge started")
	return nil
}

// Close drains the subscription and the connection
func (b *Bridge) Close() error {
	if b.conn == nil {
		return nil
	}
	if err := b.conn.Drain(); err != nil {
		b.conn.Close()
		return fmt.Errorf("failed to drain NATS connection: %w", err)
	}
	return nil
}

func (b *Bridge) handle(m *nats.Msg) {
	ctx := propagator.Extract(context.Background(), propagation.HeaderCarrier(m.Header))
	ctx, span := b.tracer.Start(ctx, "nats.chat", trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(attribute.String("messaging.destination", m.Subject)))
	defer span.End()

	resp := b.Process(ctx, m.Data)
	if resp.Error != "" {
		span.SetStatus(codes.Error, resp.Error)
	}

	if m.Reply == "" {
		return
	}
	data, err := json.Marshal(resp)
	if err != nil {
		b.logger.WithError(err).Error("Failed to encode NATS chat response")
		return
	}
	if err := m.Respond(data); err != nil {
		b.logger.WithError(err).Warn("Failed to respond to NATS chat request")
	}
}

// Process runs one chat turn encoded as a ChatRequest
func (b *Bridge) Process(ctx context.Context, data []byte) ChatResponse {
	var req ChatRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return ChatResponse{Error: "malformed chat request: " + err.Error()}
	}
	req.ChatID = strings.TrimSpace(req.ChatID)
	if req.ChatID == "" {
		return ChatResponse{Error: "chat_id is required"}
	}

	reply, err := b.shell.HandleMessage(ctx, req.ChatID, req.Text)
	resp := ChatResponse{Reply: reply.Text, Complete: reply.Complete}
	if err != nil {
		b.logger.WithError(err).WithField("chat_id", req.ChatID).Warn("NATS chat turn failed")
		resp.Error = err.Error()
	}
	return resp
}
