package otp

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/tech-arch1tect/otpgate/config"
	jwtmw "github.com/tech-arch1tect/otpgate/middleware/jwt"
	"github.com/tech-arch1tect/otpgate/services/jwt"
	"github.com/tech-arch1tect/otpgate/services/logging"
	otpsvc "github.com/tech-arch1tect/otpgate/services/otp"
	"go.uber.org/zap"
)

type IssueRequest struct {
	Method        string `json:"method" validate:"required,oneof=email sms" enum:"email,sms" doc:"Delivery channel"`
	Destination   string `json:"destination" validate:"required,max=254" example:"user@example.com" doc:"Email address or phone number"`
	RecipientName string `json:"recipient_name,omitempty" validate:"max=100" doc:"Name used in the greeting"`
}

type ResendRequest struct {
	RecipientName string `json:"recipient_name,omitempty" validate:"max=100"`
}

type VerifyRequest struct {
	Code string `json:"code" validate:"required,len=4,numeric" example:"4392"`
}

type VerifyResponse struct {
	Valid            bool   `json:"valid"`
	Error            string `json:"error,omitempty" enum:"no_active_challenge,already_used,expired,mismatch,storage_failure"`
	Message          string `json:"message,omitempty"`
	Receipt          string `json:"receipt,omitempty" doc:"Signed proof of the verification"`
	ReceiptExpiresIn int    `json:"receipt_expires_in,omitempty"`
}

type RemainingResponse struct {
	RemainingSeconds int `json:"remaining_seconds"`
}

type ReceiptResponse struct {
	Method      string `json:"method"`
	Destination string `json:"destination"`
	ID          string `json:"id"`
	ExpiresAt   int64  `json:"expires_at"`
}

// ErrorResponse matches the body echo writes for an HTTPError, plus
// per-field messages for validation failures.
type ErrorResponse struct {
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

type Handler struct {
	service  *otpsvc.Service
	receipts *jwt.Service
	config   *config.Config
	logger   *logging.Service
}

// NewHandler wires the HTTP surface. receipts may be nil, in which case
// successful verifications carry no receipt.
func NewHandler(cfg *config.Config, service *otpsvc.Service, receipts *jwt.Service, logger *logging.Service) *Handler {
	if !cfg.OTP.ReceiptsEnabled {
		receipts = nil
	}
	return &Handler{
		service:  service,
		receipts: receipts,
		config:   cfg,
		logger:   logger,
	}
}

func (h *Handler) Issue(c echo.Context) error {
	var req IssueRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	result, err := h.service.IssueChallenge(c.Request().Context(), otpsvc.Method(req.Method), req.Destination, req.RecipientName)
	if err != nil {
		return issueError(err)
	}

	return c.JSON(http.StatusCreated, result)
}

func (h *Handler) Resend(c echo.Context) error {
	var req ResendRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	result, err := h.service.Resend(c.Request().Context(), req.RecipientName)
	if err != nil {
		return issueError(err)
	}

	return c.JSON(http.StatusCreated, result)
}

func (h *Handler) Cancel(c echo.Context) error {
	if err := h.service.Cancel(c.Request().Context()); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to cancel challenge")
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Verify(c echo.Context) error {
	var req VerifyRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	result := h.service.SubmitVerification(c.Request().Context(), req.Code)
	response := VerifyResponse{
		Valid:   result.Valid,
		Error:   string(result.Error),
		Message: result.Message,
	}

	switch {
	case result.Error == otpsvc.KindStorageFailure:
		return c.JSON(http.StatusInternalServerError, response)
	case !result.Valid:
		return c.JSON(http.StatusUnprocessableEntity, response)
	}

	if h.receipts != nil {
		receipt, err := h.receipts.GenerateVerificationReceipt(string(result.Method), result.Destination)
		if err != nil {
			h.logger.Error("verification succeeded but receipt could not be issued", zap.Error(err))
		} else {
			response.Receipt = receipt
			response.ReceiptExpiresIn = h.receipts.GetReceiptExpirySeconds()
		}
	}

	return c.JSON(http.StatusOK, response)
}

func (h *Handler) Remaining(c echo.Context) error {
	return c.JSON(http.StatusOK, RemainingResponse{
		RemainingSeconds: h.service.GetRemainingTime(c.Request().Context()),
	})
}

func (h *Handler) Stats(c echo.Context) error {
	stats, err := h.service.Stats(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to read challenge")
	}
	if stats == nil {
		stats = &otpsvc.Stats{}
	}
	return c.JSON(http.StatusOK, stats)
}

// Receipt echoes the claims of the bearer receipt checked by RequireReceipt.
func (h *Handler) Receipt(c echo.Context) error {
	claims := jwtmw.GetClaims(c)
	if claims == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing verification receipt")
	}

	response := ReceiptResponse{
		Method:      claims.Method,
		Destination: claims.Destination,
		ID:          claims.JTI,
	}
	if claims.ExpiresAt != nil {
		response.ExpiresAt = claims.ExpiresAt.Unix()
	}
	return c.JSON(http.StatusOK, response)
}

func issueError(err error) error {
	switch {
	case errors.Is(err, otpsvc.ErrUnsupportedMethod), errors.Is(err, otpsvc.ErrInvalidDestination):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, otpsvc.ErrNoActiveChallenge):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to issue challenge")
	}
}

func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := c.Validate(req); err != nil {
		var validationErrors validator.ValidationErrors
		if !errors.As(err, &validationErrors) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}

		fields := make(map[string]string, len(validationErrors))
		for _, fe := range validationErrors {
			fields[fe.Field()] = fieldMessage(fe)
		}
		return echo.NewHTTPError(http.StatusBadRequest, ErrorResponse{Message: "validation failed", Fields: fields})
	}

	return nil
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "max":
		return fmt.Sprintf("Maximum length is %s", fe.Param())
	case "len":
		return fmt.Sprintf("Must be exactly %s characters", fe.Param())
	case "numeric":
		return "Must contain digits only"
	case "oneof":
		return fmt.Sprintf("Must be one of: %s", strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return fmt.Sprintf("Invalid %s field", fe.Field())
	}
}
