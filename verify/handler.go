// verify/handler.go
package verify

import (
	"net/http"
	"time"

	"github.com/dalemusser/sorpasso/httputil"
	"github.com/dalemusser/sorpasso/metrics"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Request is the body of POST /verify-email.
type Request struct {
	Email string `json:"email"`
}

// Response is returned for every verification request, always with 200.
type Response struct {
	Email      string `json:"email,omitempty"`
	Valid      bool   `json:"valid"`
	Reason     string `json:"reason,omitempty"`
	Confidence int    `json:"confidence"`
	Timestamp  string `json:"timestamp,omitempty"`
	Error      string `json:"error,omitempty"`
}

// ErrThrottled is the error string of a rate-limited verification.
const ErrThrottled = "too many verification requests"

// Handler serves email verification over HTTP.
type Handler struct {
	verifier *Verifier
	logger   *zap.Logger
	now      func() time.Time
}

// NewHandler wraps v. A nil logger is replaced with a no-op logger.
func NewHandler(v *Verifier, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{verifier: v, logger: logger, now: time.Now}
}

// Mount registers POST /verify-email on r.
func (h *Handler) Mount(r chi.Router) {
	r.Post("/verify-email", h.ServeHTTP)
}

// ServeHTTP never reports failure to the client: a request that cannot be
// verified is answered with the fail-open result and an error string.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.unavailable(w, err.Error())
		return
	}

	email := req.Email
	if email == "" {
		h.unavailable(w, "Email is required")
		return
	}

	res := h.verifier.Verify(r.Context(), email)
	metrics.Verification(string(res.Check))

	h.logger.Debug("email verified",
		zap.String("domain", Domain(email)),
		zap.Bool("valid", res.Valid),
		zap.String("check", string(res.Check)),
		zap.Int("confidence", res.Confidence),
	)

	reason := res.Reason
	if res.Check == CheckUnavailable {
		reason = ReasonUnavailable
	}

	httputil.WriteJSON(w, http.StatusOK, Response{
		Email:      email,
		Valid:      res.Valid,
		Reason:     reason,
		Confidence: res.Confidence,
		Timestamp:  h.timestamp(),
	})
}

// Throttled answers a request refused by a rate limiter with the fail-open
// result and status 200.
func (h *Handler) Throttled(w http.ResponseWriter, _ *http.Request) {
	h.unavailable(w, ErrThrottled)
}

func (h *Handler) unavailable(w http.ResponseWriter, msg string) {
	metrics.Verification(string(CheckUnavailable))
	h.logger.Warn("email verification unavailable", zap.String("error", msg))

	res := Unavailable()
	httputil.WriteJSON(w, http.StatusOK, Response{
		Valid:      res.Valid,
		Reason:     ReasonUnavailable,
		Confidence: res.Confidence,
		Timestamp:  h.timestamp(),
		Error:      msg,
	})
}

func (h *Handler) timestamp() string {
	return h.now().UTC().Format(time.RFC3339Nano)
}
