// Package mail wraps the Basalt transactional email endpoint.
package mail

import (
	"context"
	"fmt"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/hashicorp/go-hclog"

	"github.com/basalt-io/basalt-go/pkg/transport"
)

// Message is one outbound email. Either a Subject plus HTML/Text body, or a
// TemplateID with TemplateData the backend renders.
type Message struct {
	To           []string       `json:"to"`
	CC           []string       `json:"cc,omitempty"`
	BCC          []string       `json:"bcc,omitempty"`
	From         string         `json:"from,omitempty"`
	ReplyTo      string         `json:"reply_to,omitempty"`
	Subject      string         `json:"subject,omitempty"`
	HTML         string         `json:"html,omitempty"`
	Text         string         `json:"text,omitempty"`
	TemplateID   string         `json:"template_id,omitempty"`
	TemplateData map[string]any `json:"template_data,omitempty"`
}

// Validate checks the message before it goes over the wire. Template
// messages carry their subject in the template, so Subject is only required
// without one.
func (m Message) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.To, validation.Required, validation.Each(is.Email)),
		validation.Field(&m.CC, validation.Each(is.Email)),
		validation.Field(&m.BCC, validation.Each(is.Email)),
		validation.Field(&m.From, is.Email),
		validation.Field(&m.ReplyTo, is.Email),
		validation.Field(&m.Subject, validation.Required.When(m.TemplateID == "")),
	)
}

// Receipt reports the accepted send.
type Receipt struct {
	ID string `json:"id"`
}

// Service wraps the email endpoint.
type Service struct {
	tc     *transport.Client
	logger hclog.Logger
}

// NewService creates a mail service on top of the shared transport.
func NewService(tc *transport.Client, logger hclog.Logger) *Service {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Service{tc: tc, logger: logger.Named("mail")}
}

// Send validates the message and hands it to the backend for delivery.
// Acceptance is queued delivery, not receipt by the recipient.
func (s *Service) Send(ctx context.Context, msg Message) (*Receipt, error) {
	if err := msg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid message: %w", err)
	}

	var receipt Receipt
	if err := s.tc.Do(ctx, http.MethodPost, "/v1/mail/send", msg, &receipt); err != nil {
		return nil, err
	}
	s.logger.Debug("message accepted", "id", receipt.ID, "recipients", len(msg.To))
	return &receipt, nil
}
