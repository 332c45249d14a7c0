package otp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/tech-arch1tect/otpgate/config"
	"github.com/tech-arch1tect/otpgate/services/logging"
	"github.com/tech-arch1tect/otpgate/services/sms"
	"go.uber.org/zap"
)

var ErrInvalidDestination = errors.New("invalid destination for delivery method")

type IssueResult struct {
	Method        Method    `json:"method"`
	Destination   string    `json:"destination"`
	ExpiresAt     time.Time `json:"expires_at"`
	ExpiresIn     int       `json:"expires_in"`
	Delivered     bool      `json:"delivered"`
	DeliveryError string    `json:"delivery_error,omitempty"`
	// Code is only set when delivery failed and disclosure is enabled.
	Code string `json:"code,omitempty"`
}

type Service struct {
	config     *config.Config
	store      *Store
	verifier   *Verifier
	generator  *Generator
	dispatcher Dispatcher
	validate   *validator.Validate
	logger     *logging.Service
}

func NewService(cfg *config.Config, store *Store, dispatcher Dispatcher, logger *logging.Service) *Service {
	if logger != nil {
		logger.Info("initializing OTP service",
			zap.String("store", cfg.OTP.Store),
			zap.Duration("validity", store.Validity()),
			zap.Bool("disclose_on_delivery_failure", cfg.OTP.DiscloseOnDeliveryFailure))
	}

	return &Service{
		config:     cfg,
		store:      store,
		verifier:   NewVerifier(store),
		generator:  NewGenerator(nil),
		dispatcher: dispatcher,
		validate:   validator.New(),
		logger:     logger,
	}
}

// IssueChallenge generates and stores a fresh code, replacing any outstanding
// one, then hands it to the dispatcher. A failed delivery is reported in the
// result; the stored code stays verifiable either way.
func (s *Service) IssueChallenge(ctx context.Context, method Method, destination, recipientName string) (*IssueResult, error) {
	parsed, err := ParseMethod(string(method))
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("challenge issuance rejected - unsupported method",
				zap.String("method", string(method)))
		}
		return nil, err
	}
	method = parsed

	destination, err = s.normaliseDestination(method, destination)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("challenge issuance rejected - invalid destination",
				zap.String("method", string(method)))
		}
		return nil, err
	}

	return s.issue(ctx, method, destination, recipientName)
}

// Resend issues a new code to the method and destination of the stored challenge.
func (s *Service) Resend(ctx context.Context, recipientName string) (*IssueResult, error) {
	current, err := s.store.Read(ctx)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("failed to read challenge for resend", zap.Error(err))
		}
		return nil, err
	}
	if current == nil {
		if s.logger != nil {
			s.logger.Debug("resend requested without an active challenge")
		}
		return nil, ErrNoActiveChallenge
	}

	if s.logger != nil {
		s.logger.Info("resending challenge",
			zap.String("method", string(current.Method)))
	}

	return s.issue(ctx, current.Method, current.Destination, recipientName)
}

func (s *Service) issue(ctx context.Context, method Method, destination, recipientName string) (*IssueResult, error) {
	code, err := s.generator.Generate()
	if err != nil {
		if s.logger != nil {
			s.logger.Error("failed to generate verification code", zap.Error(err))
		}
		return nil, fmt.Errorf("failed to generate verification code: %w", err)
	}

	challenge, err := s.store.Save(ctx, code, method, destination)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("failed to store challenge",
				zap.Error(err),
				zap.String("method", string(method)))
		}
		return nil, err
	}

	result := &IssueResult{
		Method:      method,
		Destination: destination,
		ExpiresAt:   challenge.ExpiresAt,
		ExpiresIn:   int(s.store.Validity().Seconds()),
	}

	deliveryErr := s.deliver(ctx, Delivery{
		Method:        method,
		Destination:   destination,
		RecipientName: recipientName,
		Code:          code,
		ExpiresAt:     challenge.ExpiresAt,
		Validity:      s.store.Validity(),
	})
	if deliveryErr == nil {
		result.Delivered = true
		if s.logger != nil {
			s.logger.Info("challenge issued and delivered",
				zap.String("method", string(method)),
				zap.Time("expires_at", challenge.ExpiresAt))
		}
		return result, nil
	}

	result.DeliveryError = deliveryErr.Error()
	if s.config.OTP.DiscloseOnDeliveryFailure {
		result.Code = code
	}

	if s.logger != nil {
		s.logger.Warn("challenge issued but delivery failed",
			zap.Error(deliveryErr),
			zap.String("method", string(method)),
			zap.Bool("code_disclosed", result.Code != ""))
	}

	return result, nil
}

func (s *Service) deliver(ctx context.Context, delivery Delivery) error {
	if s.dispatcher == nil {
		return ErrChannelUnavailable
	}
	return s.dispatcher.Deliver(ctx, delivery)
}

func (s *Service) SubmitVerification(ctx context.Context, code string) VerificationResult {
	result := s.verifier.Verify(ctx, code)

	if s.logger != nil {
		switch {
		case result.Valid:
			s.logger.Info("verification code accepted")
		case result.Error == KindStorageFailure:
			s.logger.Error("verification failed - storage failure")
		default:
			s.logger.Warn("verification code rejected",
				zap.String("reason", string(result.Error)))
		}
	}

	return result
}

func (s *Service) GetRemainingTime(ctx context.Context) int {
	return s.verifier.RemainingSeconds(ctx)
}

func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	return s.store.Stats(ctx)
}

// Cancel discards the outstanding challenge, if any.
func (s *Service) Cancel(ctx context.Context) error {
	if err := s.store.Clear(ctx); err != nil {
		if s.logger != nil {
			s.logger.Error("failed to cancel challenge", zap.Error(err))
		}
		return err
	}

	if s.logger != nil {
		s.logger.Info("challenge cancelled")
	}
	return nil
}

func (s *Service) normaliseDestination(method Method, destination string) (string, error) {
	destination = strings.TrimSpace(destination)

	switch method {
	case MethodEmail:
		if err := s.validate.Var(destination, "required,email"); err != nil {
			return "", fmt.Errorf("%w: %q is not an email address", ErrInvalidDestination, destination)
		}
		return destination, nil
	case MethodSMS:
		phone := sms.NormalisePhone(destination)
		e164 := phone
		if !strings.HasPrefix(e164, "+") {
			e164 = "+" + e164
		}
		if err := s.validate.Var(e164, "required,e164"); err != nil {
			return "", fmt.Errorf("%w: %q is not a phone number", ErrInvalidDestination, destination)
		}
		return phone, nil
	default:
		return "", ErrUnsupportedMethod
	}
}
