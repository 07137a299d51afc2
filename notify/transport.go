// notify/transport.go
package notify

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Message is one outbound notification.
type Message struct {
	From     string
	FromName string
	To       []string
	ReplyTo  string
	Subject  string
	HTMLBody string
	TextBody string
}

// Transport delivers a Message. Send returns the provider's message id.
type Transport interface {
	Send(ctx context.Context, msg Message) (id string, err error)
	Name() string
}

var (
	errNoRecipients = errors.New("no recipients specified")
	errEmptyBody    = errors.New("message body is empty")
)

// validate errors are permanent: no transport will accept the message.
func (m Message) validate() error {
	if len(m.To) == 0 {
		return Permanent(errNoRecipients)
	}
	if m.HTMLBody == "" && m.TextBody == "" {
		return Permanent(errEmptyBody)
	}
	return nil
}

// Log writes messages to the logger instead of delivering them.
type Log struct {
	logger *zap.Logger
}

// NewLog creates a Log transport.
func NewLog(logger *zap.Logger) *Log {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Log{logger: logger}
}

// Name implements Transport.
func (*Log) Name() string { return "log" }

// Send implements Transport.
func (l *Log) Send(ctx context.Context, msg Message) (string, error) {
	if err := msg.validate(); err != nil {
		return "", err
	}
	id := "log-" + uuid.NewString()
	l.logger.Info("email (log transport)",
		zap.String("id", id),
		zap.Strings("to", msg.To),
		zap.String("reply_to", msg.ReplyTo),
		zap.String("subject", msg.Subject),
		zap.String("text", msg.TextBody),
	)
	return id, nil
}
