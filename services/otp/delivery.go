package otp

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

var ErrChannelUnavailable = errors.New("delivery channel is not configured")

// Delivery is what the core hands to a channel: where to send, who to greet
// and the code itself.
type Delivery struct {
	Method        Method
	Destination   string
	RecipientName string
	Code          string
	ExpiresAt     time.Time
	Validity      time.Duration
}

type Dispatcher interface {
	Deliver(ctx context.Context, delivery Delivery) error
}

type MailSender interface {
	HasTemplate(name string) bool
	SendTemplate(ctx context.Context, templateName string, to []string, subject string, data map[string]any) error
	SendPlain(ctx context.Context, to []string, subject, body string) error
}

type SMSSender interface {
	Send(ctx context.Context, phone, message string) error
}

// ChannelDispatcher routes deliveries to the mail or SMS sender by method.
// Either sender may be nil, in which case that method reports ErrChannelUnavailable.
type ChannelDispatcher struct {
	appName       string
	emailTemplate string
	mail          MailSender
	sms           SMSSender
}

func NewChannelDispatcher(appName, emailTemplate string, mail MailSender, sms SMSSender) *ChannelDispatcher {
	return &ChannelDispatcher{
		appName:       appName,
		emailTemplate: emailTemplate,
		mail:          mail,
		sms:           sms,
	}
}

func (d *ChannelDispatcher) Deliver(ctx context.Context, delivery Delivery) error {
	switch delivery.Method {
	case MethodEmail:
		if d.mail == nil {
			return fmt.Errorf("%w: %s", ErrChannelUnavailable, delivery.Method)
		}
		return d.deliverEmail(ctx, delivery)
	case MethodSMS:
		if d.sms == nil {
			return fmt.Errorf("%w: %s", ErrChannelUnavailable, delivery.Method)
		}
		return d.sms.Send(ctx, delivery.Destination, smsBody(delivery))
	default:
		return ErrUnsupportedMethod
	}
}

func (d *ChannelDispatcher) deliverEmail(ctx context.Context, delivery Delivery) error {
	to := []string{delivery.Destination}
	subject := d.appName + " verification code"

	if d.emailTemplate != "" && d.mail.HasTemplate(d.emailTemplate) {
		return d.mail.SendTemplate(ctx, d.emailTemplate, to, subject, map[string]any{
			"AppName":       d.appName,
			"Name":          delivery.RecipientName,
			"Code":          delivery.Code,
			"ExpiresAt":     delivery.ExpiresAt,
			"ExpiryMinutes": validityMinutes(delivery.Validity),
		})
	}

	return d.mail.SendPlain(ctx, to, subject, emailBody(delivery))
}

func emailBody(delivery Delivery) string {
	return fmt.Sprintf("Hello %s, your verification code is %s. It expires in %d minutes.",
		greetingName(delivery.RecipientName), delivery.Code, validityMinutes(delivery.Validity))
}

func smsBody(delivery Delivery) string {
	return fmt.Sprintf("Your verification code is %s. It expires in %d minutes.",
		delivery.Code, validityMinutes(delivery.Validity))
}

func greetingName(name string) string {
	if name == "" {
		return "there"
	}
	return name
}

func validityMinutes(d time.Duration) int {
	if d <= 0 {
		d = DefaultValidity
	}
	return int(math.Ceil(d.Minutes()))
}
