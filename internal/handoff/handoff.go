// Package handoff publishes compiled build plans to an executor over NATS JetStream.
package handoff

import (
	"context"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	perrors "git.home.luguber.info/inful/buildplan/internal/errors"
	"git.home.luguber.info/inful/buildplan/internal/logfields"
	"git.home.luguber.info/inful/buildplan/internal/plan"
)

// Header names carried by every published plan.
const (
	HeaderDeclaration = "Buildplan-Declaration"
	HeaderFingerprint = "Buildplan-Fingerprint"
	HeaderHash        = "Buildplan-Hash"
	HeaderVersion     = "Buildplan-Version"
)

// DefaultSubject is used when Options.Subject is empty.
const DefaultSubject = "buildplan.plans"

// Publisher is the subset of jetstream.JetStream used for hand-off.
type Publisher interface {
	PublishMsg(ctx context.Context, msg *nats.Msg, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// Receipt describes an accepted hand-off.
type Receipt struct {
	Hash      string
	Stream    string
	Sequence  uint64
	Duplicate bool
}

// Client hands plans to the executor subject.
type Client struct {
	conn    *nats.Conn
	js      Publisher
	subject string
	timeout time.Duration
	logger  *slog.Logger
}

// Options configures a Client.
type Options struct {
	URL     string
	Subject string
	// Stream is created or updated to capture Subject when set.
	Stream  string
	Timeout time.Duration
	Logger  *slog.Logger
}

// Connect dials NATS and prepares a JetStream publisher.
func Connect(ctx context.Context, opts Options) (*Client, error) {
	if opts.URL == "" {
		opts.URL = nats.DefaultURL
	}
	conn, err := nats.Connect(opts.URL, nats.Name("buildplan"))
	if err != nil {
		return nil, handoffError("failed to connect to NATS", err).WithContext("url", opts.URL)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, handoffError("failed to create JetStream context", err)
	}

	c := New(js, opts)
	c.conn = conn

	if opts.Stream != "" {
		if err := c.ensureStream(ctx, js, opts.Stream); err != nil {
			conn.Close()
			return nil, err
		}
	}

	c.logger.Info("NATS hand-off ready", slog.String("url", opts.URL), slog.String("subject", c.subject))
	return c, nil
}

// New wraps an existing publisher.
func New(js Publisher, opts Options) *Client {
	c := &Client{
		js:      js,
		subject: opts.Subject,
		timeout: opts.Timeout,
		logger:  opts.Logger,
	}
	if c.subject == "" {
		c.subject = DefaultSubject
	}
	if c.timeout <= 0 {
		c.timeout = 5 * time.Second
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

func (c *Client) ensureStream(ctx context.Context, js jetstream.JetStream, name string) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:        name,
		Description: "Compiled build plans awaiting execution",
		Subjects:    []string{c.subject},
		Duplicates:  time.Hour,
		MaxBytes:    100 * 1024 * 1024,
	})
	if err != nil {
		return handoffError("failed to create plan stream", err).WithContext("stream", name)
	}
	return nil
}

// Message builds the NATS message for p. The plan hash doubles as the JetStream
// message id so re-publishing an unchanged plan is de-duplicated by the server.
func (c *Client) Message(declaration string, p *plan.BuildPlan) (*nats.Msg, string, error) {
	data, err := p.Marshal()
	if err != nil {
		return nil, "", perrors.InternalError("failed to marshal plan", err)
	}
	hash, err := p.Hash()
	if err != nil {
		return nil, "", perrors.InternalError("failed to hash plan", err)
	}

	msg := nats.NewMsg(c.subject)
	msg.Data = data
	msg.Header.Set(HeaderHash, hash)
	msg.Header.Set(HeaderFingerprint, p.Source.Fingerprint.String())
	msg.Header.Set(HeaderVersion, "1")
	if declaration != "" {
		msg.Header.Set(HeaderDeclaration, declaration)
	}
	return msg, hash, nil
}

// Publish hands p to the executor subject and waits for the stream to acknowledge it.
func (c *Client) Publish(ctx context.Context, declaration string, p *plan.BuildPlan) (Receipt, error) {
	msg, hash, err := c.Message(declaration, p)
	if err != nil {
		return Receipt{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	ack, err := c.js.PublishMsg(ctx, msg, jetstream.WithMsgID(hash))
	if err != nil {
		return Receipt{}, handoffError("failed to publish plan", err).
			WithContext("subject", c.subject).
			WithContext("hash", hash)
	}

	r := Receipt{Hash: hash, Stream: ack.Stream, Sequence: ack.Sequence, Duplicate: ack.Duplicate}
	c.logger.Debug("Published build plan",
		slog.String("subject", c.subject),
		slog.String("hash", hash),
		slog.Bool("duplicate", r.Duplicate),
		logfields.Fingerprint(p.Source.Fingerprint.String()))
	return r, nil
}

// Close closes the NATS connection when the client owns one.
func (c *Client) Close() {
	if c.conn != nil {
		c.conn.Close()
	}
}

func handoffError(msg string, cause error) *perrors.PlanError {
	return perrors.Wrap(cause, perrors.CategoryHandoff, perrors.SeverityError, msg)
}
