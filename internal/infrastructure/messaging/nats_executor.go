package messaging

import (
	"context"
	"fmt"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"starknet_portfolio/internal/app/port"
	"starknet_portfolio/internal/domain/entity"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	DefaultStream        = "PORTFOLIO_REBALANCE"
	DefaultSubjectPrefix = "portfolio.rebalance"
	streamMaxAge         = 72 * time.Hour
)

// publisher is the part of jetstream.JetStream the executor needs.
type publisher interface {
	Publish(ctx context.Context, subject string, payload []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// NATSExecutor hands rebalance actions to downstream traders over JetStream.
// The action ID is sent as Nats-Msg-Id so redelivered plans are deduplicated
// by the server.
type NATSExecutor struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	pub    publisher
	stream string
	prefix string
	logger port.Logger
}

// NewNATSExecutor connects to url and prepares a JetStream context.
func NewNATSExecutor(url, stream, subjectPrefix string, l port.Logger) (*NATSExecutor, error) {
	nc, err := nats.Connect(url,
		nats.Name("starknet-portfolio"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	e := newExecutor(js, stream, subjectPrefix, l)
	e.nc = nc
	e.js = js
	return e, nil
}

func newExecutor(pub publisher, stream, subjectPrefix string, l port.Logger) *NATSExecutor {
	if stream == "" {
		stream = DefaultStream
	}
	subjectPrefix = strings.TrimSuffix(subjectPrefix, ".")
	if subjectPrefix == "" {
		subjectPrefix = DefaultSubjectPrefix
	}
	return &NATSExecutor{pub: pub, stream: stream, prefix: subjectPrefix, logger: l}
}

// EnsureStream creates or updates the stream that captures every action subject.
func (e *NATSExecutor) EnsureStream(ctx context.Context) error {
	if e.js == nil {
		return fmt.Errorf("JetStream context is not initialized")
	}
	_, err := e.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      e.stream,
		Subjects:  []string{e.prefix + ".>"},
		Storage:   jetstream.FileStorage,
		Retention: jetstream.LimitsPolicy,
		MaxAge:    streamMaxAge,
		Replicas:  1,
	})
	if err != nil {
		return fmt.Errorf("failed to ensure stream %s: %w", e.stream, err)
	}
	e.logger.Info("JetStream stream ready", "stream", e.stream, "subjects", e.prefix+".>")
	return nil
}

// Subject returns the subject an action is published on:
// <prefix>.<direction>.<category>, lower-cased.
func (e *NATSExecutor) Subject(action entity.RebalanceAction) string {
	return fmt.Sprintf("%s.%s.%s",
		e.prefix,
		strings.ToLower(string(action.Direction)),
		strings.ToLower(string(action.AssetCategory)),
	)
}

func (e *NATSExecutor) Execute(ctx context.Context, action entity.RebalanceAction) error {
	data, err := json.Marshal(action)
	if err != nil {
		return fmt.Errorf("failed to marshal action %s: %w", action.ID, err)
	}

	subject := e.Subject(action)
	ack, err := e.pub.Publish(ctx, subject, data, jetstream.WithMsgID(action.ID))
	if err != nil {
		return fmt.Errorf("failed to publish action %s on %s: %w", action.ID, subject, err)
	}

	if ack != nil && ack.Duplicate {
		e.logger.Debug("Action already published", "id", action.ID, "subject", subject)
		return nil
	}
	e.logger.Info("Published rebalance action",
		"id", action.ID,
		"wallet", action.WalletAddress,
		"subject", subject,
		"delta_usd", action.DeltaUSD,
	)
	return nil
}

// Close drains pending publishes and closes the connection.
func (e *NATSExecutor) Close() {
	if e.nc == nil {
		return
	}
	if err := e.nc.Drain(); err != nil {
		e.logger.Warn("NATS drain failed", "error", err)
		e.nc.Close()
	}
}
