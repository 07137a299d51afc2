// notify/handler.go
package notify

import (
	"net/http"
	"strconv"
	"time"

	"github.com/dalemusser/sorpasso/httputil"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Response is the JSON body of both contact endpoints.
type Response struct {
	Success   bool   `json:"success"`
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
	SpamScore *int   `json:"spamScore,omitempty"`
	Timestamp string `json:"timestamp"`
	Provider  string `json:"provider,omitempty"`
	EmailID   string `json:"emailId,omitempty"`
}

// Handler exposes a Notifier over HTTP.
type Handler struct {
	n      *Notifier
	logger *zap.Logger
}

// NewHandler wraps n.
func NewHandler(n *Notifier, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{n: n, logger: logger}
}

// Mount registers POST /send-contact-email and POST /send-email on r.
func (h *Handler) Mount(r chi.Router) {
	r.Post("/send-contact-email", h.Contact)
	r.Post("/send-email", h.Forward)
}

// Contact handles POST /send-contact-email.
func (h *Handler) Contact(w http.ResponseWriter, r *http.Request) {
	var s Submission
	if err := httputil.DecodeJSON(r, &s); err != nil {
		h.fail(w, validationError(err.Error()), nil)
		return
	}

	out, err := h.n.Submit(r.Context(), s)
	if err != nil {
		var score *int
		if IsKind(err, KindSpamBlocked) {
			score = &out.SpamScore
		}
		h.fail(w, err, score)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, Response{
		Success:   true,
		Message:   out.Message,
		SpamScore: &out.SpamScore,
		Timestamp: h.timestamp(),
		Provider:  out.Provider,
		EmailID:   out.EmailID,
	})
}

// Forward handles POST /send-email.
func (h *Handler) Forward(w http.ResponseWriter, r *http.Request) {
	var s Submission
	if err := httputil.DecodeJSON(r, &s); err != nil {
		h.fail(w, validationError(err.Error()), nil)
		return
	}

	out, err := h.n.Forward(r.Context(), s)
	if err != nil {
		h.fail(w, err, nil)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, Response{
		Success:   true,
		Message:   out.Message,
		Timestamp: h.timestamp(),
		Provider:  out.Provider,
		EmailID:   out.EmailID,
	})
}

func (h *Handler) fail(w http.ResponseWriter, err error, score *int) {
	e := AsError(err)
	if e.HTTPStatus() >= 500 {
		h.logger.Error("contact request failed", zap.String("kind", string(e.Kind)), zap.Error(err))
	}
	if e.Kind == KindRateLimited {
		w.Header().Set("Retry-After", strconv.Itoa(int(h.n.policy.Window.Seconds())))
	}
	httputil.WriteJSON(w, e.HTTPStatus(), Response{
		Success:   false,
		Error:     e.Message,
		SpamScore: score,
		Timestamp: h.timestamp(),
	})
}

func (h *Handler) timestamp() string {
	return h.n.Now().UTC().Format(time.RFC3339Nano)
}
