package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	nc "github.com/nats-io/nats.go"

	"github.com/Stouckie/Scrimpilot/internal/eventbus"
)

// Request/reply subjects served by the platform gateway.
const (
	SubjectThreadCreate = "scrimpilot.gateway.thread.create"
	SubjectProofResolve = "scrimpilot.gateway.proof.resolve"
	SubjectCardPublish  = "scrimpilot.gateway.card.publish"
)

const requestTimeout = 10 * time.Second

// Gateway implements Notifier and ProofResolver against the platform gateway:
// request-reply over NATS for operations that need an answer, fire-and-forget
// bus publishes for informational posts.
type Gateway struct {
	conn   *nc.Conn
	bus    eventbus.EventBus
	logger *slog.Logger
}

// NewGateway returns a Gateway on an established NATS connection.
func NewGateway(conn *nc.Conn, bus eventbus.EventBus, logger *slog.Logger) *Gateway {
	return &Gateway{conn: conn, bus: bus, logger: logger}
}

var (
	_ Notifier      = (*Gateway)(nil)
	_ ProofResolver = (*Gateway)(nil)
)

func request[Req, Resp any](ctx context.Context, conn *nc.Conn, subject string, req Req) (Resp, error) {
	var resp Resp
	data, err := json.Marshal(req)
	if err != nil {
		return resp, fmt.Errorf("failed to marshal %s request: %w", subject, err)
	}
	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	msg, err := conn.RequestWithContext(reqCtx, subject, data)
	if err != nil {
		return resp, fmt.Errorf("gateway request %s failed: %w", subject, err)
	}
	if err := json.Unmarshal(msg.Data, &resp); err != nil {
		return resp, fmt.Errorf("failed to decode %s reply: %w", subject, err)
	}
	return resp, nil
}

func (g *Gateway) CreateMatchThread(ctx context.Context, req ThreadRequest) (ThreadResult, error) {
	return request[ThreadRequest, ThreadResult](ctx, g.conn, SubjectThreadCreate, req)
}

func (g *Gateway) PostToThread(ctx context.Context, threadID, content string) error {
	return g.bus.Publish(ctx, eventbus.TopicThreadPost, map[string]string{
		"thread_id": threadID,
		"content":   content,
	})
}

func (g *Gateway) PublishTicketCard(ctx context.Context, card TicketCard) (MessageRef, error) {
	return request[TicketCard, MessageRef](ctx, g.conn, SubjectCardPublish, card)
}

func (g *Gateway) UpdateTicketCard(ctx context.Context, ref MessageRef, update CardUpdate) error {
	return g.bus.Publish(ctx, eventbus.TopicTicketUpdate, map[string]any{
		"channel_id": ref.ChannelID,
		"message_id": ref.MessageID,
		"state":      update.State,
		"note":       update.Note,
		"closed":     update.Closed,
	})
}

type proofReply struct {
	Found bool       `json:"found"`
	Claim ProofClaim `json:"claim"`
}

func (g *Gateway) Resolve(ctx context.Context, rawURL string) (ProofClaim, error) {
	reply, err := request[map[string]string, proofReply](ctx, g.conn, SubjectProofResolve, map[string]string{"url": rawURL})
	if err != nil {
		return ProofClaim{}, err
	}
	if !reply.Found {
		return ProofClaim{}, fmt.Errorf("%w: %s", ErrProofUnresolved, rawURL)
	}
	return reply.Claim, nil
}
