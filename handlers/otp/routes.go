package otp

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/tech-arch1tect/otpgate/config"
	jwtmw "github.com/tech-arch1tect/otpgate/middleware/jwt"
	"github.com/tech-arch1tect/otpgate/middleware/ratelimit"
	"github.com/tech-arch1tect/otpgate/openapi"
	otpsvc "github.com/tech-arch1tect/otpgate/services/otp"
)

const (
	Prefix      = "/api/otp"
	tag         = "otp"
	receiptAuth = "receipt"
)

var rateLimitHeaders = map[string]string{
	"X-RateLimit-Limit":     "Requests allowed in the current window",
	"X-RateLimit-Remaining": "Requests left in the current window",
	"X-RateLimit-Reset":     "Unix time the window resets",
}

// Limits builds the issue and verify rate limiters from configuration.
// Issue and resend share a counter; verify only counts failed attempts.
func Limits(cfg config.RateLimitConfig, store ratelimit.Store) (issue, verify echo.MiddlewareFunc) {
	issue = ratelimit.Middleware(&ratelimit.Config{
		Store:        store,
		Rate:         cfg.IssueRate,
		Period:       cfg.IssuePeriod,
		CountMode:    config.CountAll,
		KeyGenerator: ratelimit.ScopedKeyGenerator("issue"),
	})
	verify = ratelimit.Middleware(&ratelimit.Config{
		Store:        store,
		Rate:         cfg.VerifyRate,
		Period:       cfg.VerifyPeriod,
		CountMode:    config.CountFailures,
		KeyGenerator: ratelimit.ScopedKeyGenerator("verify"),
	})
	return issue, verify
}

// Register mounts the challenge routes on e and documents them in doc when
// it is non-nil.
func (h *Handler) Register(e *echo.Echo, store ratelimit.Store, doc *openapi.OpenAPI) {
	issueLimit, verifyLimit := Limits(h.config.RateLimit, store)

	g := e.Group(Prefix)
	g.POST("/challenges", h.Issue, issueLimit)
	g.POST("/challenges/resend", h.Resend, issueLimit)
	g.DELETE("/challenges", h.Cancel)
	g.POST("/verify", h.Verify, verifyLimit)
	g.GET("/remaining", h.Remaining)
	g.GET("/stats", h.Stats)
	if h.receipts != nil {
		g.GET("/receipt", h.Receipt, jwtmw.RequireReceipt(h.receipts))
	}

	if doc != nil {
		document(doc, h.receipts != nil)
	}
}

func document(doc *openapi.OpenAPI, receipts bool) {
	doc.Tag(tag, "One-time verification codes")

	doc.Document(http.MethodPost, Prefix+"/challenges").
		Summary("Issue a challenge").
		Description("Generates a code, replaces any outstanding one and sends it over the requested channel.").
		Tags(tag).
		Body(IssueRequest{}, "Delivery channel and destination").
		Response(http.StatusCreated, otpsvc.IssueResult{}, "Challenge issued").
		Headers(http.StatusCreated, rateLimitHeaders).
		Response(http.StatusBadRequest, ErrorResponse{}, "Invalid request or destination").
		Response(http.StatusTooManyRequests, ErrorResponse{}, "Too many challenges requested").
		Response(http.StatusInternalServerError, ErrorResponse{}, "Challenge could not be stored").
		Build()

	doc.Document(http.MethodPost, Prefix+"/challenges/resend").
		Summary("Resend the current challenge").
		Description("Issues a new code to the destination of the outstanding challenge.").
		Tags(tag).
		Body(ResendRequest{}, "Optional recipient name").
		Response(http.StatusCreated, otpsvc.IssueResult{}, "Challenge reissued").
		Headers(http.StatusCreated, rateLimitHeaders).
		Response(http.StatusNotFound, ErrorResponse{}, "No challenge to resend").
		Response(http.StatusTooManyRequests, ErrorResponse{}, "Too many challenges requested").
		Build()

	doc.Document(http.MethodDelete, Prefix+"/challenges").
		Summary("Cancel the current challenge").
		Tags(tag).
		Response(http.StatusNoContent, nil, "Challenge discarded").
		Build()

	doc.Document(http.MethodPost, Prefix+"/verify").
		Summary("Verify a code").
		Description("Consumes the outstanding challenge when the code matches.").
		Tags(tag).
		Body(VerifyRequest{}, "Submitted code").
		Response(http.StatusOK, VerifyResponse{}, "Code accepted").
		Headers(http.StatusOK, rateLimitHeaders).
		Response(http.StatusBadRequest, ErrorResponse{}, "Malformed code").
		Response(http.StatusUnprocessableEntity, VerifyResponse{}, "Code rejected").
		Response(http.StatusTooManyRequests, ErrorResponse{}, "Too many failed attempts").
		Response(http.StatusInternalServerError, VerifyResponse{}, "Challenge storage failed").
		Build()

	doc.Document(http.MethodGet, Prefix+"/remaining").
		Summary("Seconds left on the current challenge").
		Tags(tag).
		Response(http.StatusOK, RemainingResponse{}, "Remaining validity").
		Build()

	doc.Document(http.MethodGet, Prefix+"/stats").
		Summary("Describe the current challenge").
		Tags(tag).
		Response(http.StatusOK, otpsvc.Stats{}, "Challenge state without the code").
		Build()

	if !receipts {
		return
	}

	doc.BearerAuth(receiptAuth, "Verification receipt issued by a successful verify call")
	doc.Document(http.MethodGet, Prefix+"/receipt").
		Summary("Validate a verification receipt").
		Tags(tag).
		Security(receiptAuth).
		Response(http.StatusOK, ReceiptResponse{}, "Receipt claims").
		Response(http.StatusUnauthorized, ErrorResponse{}, "Missing or invalid receipt").
		Build()
}
