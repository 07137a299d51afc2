package notify

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/sorpasso/ratelimit"
	"github.com/dalemusser/sorpasso/spam"
)

type fakeTransport struct {
	mu   sync.Mutex
	sent []Message
	err  error
}

func (f *fakeTransport) Name() string { return "fake" }

func (f *fakeTransport) Send(ctx context.Context, msg Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, msg)
	return "msg-1", nil
}

func (f *fakeTransport) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

var fixedNow = time.Date(2026, 10, 14, 8, 30, 0, 0, time.UTC)

func newNotifier(tr Transport, limiter ratelimit.Store) *Notifier {
	return New(Config{
		Transport: tr,
		To:        []string{"owner@example.com"},
		From:      "noreply@example.com",
		FromName:  SiteName,
		Limiter:   limiter,
		Now:       func() time.Time { return fixedNow },
	})
}

var clean = Submission{
	Name:    "Mario Rossi",
	Email:   "info@azienda.it",
	Message: "Vorrei un preventivo per il noleggio di una Fiat 500 d'epoca.",
}

func TestSubmit_Validation(t *testing.T) {
	tests := []struct {
		name string
		sub  Submission
		want string
	}{
		{"missing name", Submission{Email: "a@b.it", Message: "abbastanza lungo"}, MsgMissingFields},
		{"missing email", Submission{Name: "Anna", Message: "abbastanza lungo"}, MsgMissingFields},
		{"blank message", Submission{Name: "Anna", Email: "a@b.it", Message: "   "}, MsgInvalidMessage},
		{"short name", Submission{Name: "A", Email: "a@b.it", Message: "abbastanza lungo"}, MsgInvalidName},
		{"long name", Submission{Name: strings.Repeat("a", 101), Email: "a@b.it", Message: "abbastanza lungo"}, MsgInvalidName},
		{"short message", Submission{Name: "Anna", Email: "a@b.it", Message: "ciao"}, MsgInvalidMessage},
		{"long message", Submission{Name: "Anna", Email: "a@b.it", Message: strings.Repeat("a ", 1001)}, MsgInvalidMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := &fakeTransport{}
			_, err := newNotifier(tr, nil).Submit(context.Background(), tt.sub)

			var e *Error
			if !errors.As(err, &e) {
				t.Fatalf("err = %v, want *Error", err)
			}
			if e.Kind != KindValidation || e.Message != tt.want || e.HTTPStatus() != 400 {
				t.Errorf("got %+v, want validation %q", e, tt.want)
			}
			if tr.count() != 0 {
				t.Error("transport called for invalid submission")
			}
		})
	}
}

func TestSubmit_LengthsCountWhitespace(t *testing.T) {
	tr := &fakeTransport{}
	sub := Submission{Name: " A ", Email: "anna@azienda.it", Message: "      short      "}
	out, err := newNotifier(tr, nil).Submit(context.Background(), sub)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !out.Delivered || tr.count() != 1 {
		t.Errorf("outcome = %+v, sent %d", out, tr.count())
	}
}

func TestSubmit_Clean(t *testing.T) {
	tr := &fakeTransport{}
	out, err := newNotifier(tr, nil).Submit(context.Background(), clean)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if !out.Delivered || out.Provider != "fake" || out.EmailID != "msg-1" {
		t.Errorf("outcome = %+v", out)
	}
	if out.SpamScore != 0 || out.Verdict != spam.Clean {
		t.Errorf("score = %d verdict = %s", out.SpamScore, out.Verdict)
	}
	if out.ID == "" {
		t.Error("missing submission id")
	}

	msg := tr.sent[0]
	if msg.Subject != "🚗 Nuova richiesta di contatto da Mario Rossi" {
		t.Errorf("subject = %q", msg.Subject)
	}
	if msg.ReplyTo != clean.Email {
		t.Errorf("reply-to = %q", msg.ReplyTo)
	}
	if len(msg.To) != 1 || msg.To[0] != "owner@example.com" {
		t.Errorf("to = %v", msg.To)
	}
	if strings.Contains(msg.HTMLBody, "Possibile Spam") {
		t.Error("clean message carries the spam banner")
	}
	if !strings.Contains(msg.TextBody, "Spam Score: 0/10") {
		t.Errorf("text body = %q", msg.TextBody)
	}
}

// A temporary-mail domain alone scores 5: flagged, still delivered.
func TestSubmit_TempDomainIsFlaggedButDelivered(t *testing.T) {
	tr := &fakeTransport{}
	n := newNotifier(tr, ratelimit.NewMemory())

	out, err := n.Submit(context.Background(), Submission{
		Name:    "Bob",
		Email:   "bob@guerrillamail.com",
		Message: "Please contact me about car rental, thanks!",
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if out.SpamScore != 5 || out.Verdict != spam.Flagged || !out.Delivered {
		t.Fatalf("outcome = %+v", out)
	}

	msg := tr.sent[0]
	if !strings.HasPrefix(msg.Subject, "🚗 [POSSIBILE SPAM] ") {
		t.Errorf("subject = %q", msg.Subject)
	}
	if !strings.Contains(msg.HTMLBody, "Possibile Spam (Score: 5/10)") {
		t.Error("missing spam banner")
	}
}

func TestSubmit_Blocked(t *testing.T) {
	tr := &fakeTransport{}
	out, err := newNotifier(tr, nil).Submit(context.Background(), Submission{
		Name:    "Winner",
		Email:   "x@mailinator.com",
		Message: "Congratulations winner, click here now!!",
	})

	if !IsKind(err, KindSpamBlocked) {
		t.Fatalf("err = %v, want spam blocked", err)
	}
	if AsError(err).HTTPStatus() != 400 || AsError(err).Message != MsgSpam {
		t.Errorf("error = %+v", AsError(err))
	}
	if out.SpamScore < spam.BlockThreshold {
		t.Errorf("score = %d", out.SpamScore)
	}
	if tr.count() != 0 {
		t.Error("blocked submission was delivered")
	}
}

func TestSubmit_RateLimited(t *testing.T) {
	tr := &fakeTransport{}
	n := newNotifier(tr, ratelimit.NewMemory())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := n.Submit(ctx, clean); err != nil {
			t.Fatalf("submit %d: %v", i+1, err)
		}
	}

	// Address case does not open a new bucket.
	again := clean
	again.Email = strings.ToUpper(clean.Email)
	_, err := n.Submit(ctx, again)
	if !IsKind(err, KindRateLimited) {
		t.Fatalf("4th submit err = %v, want rate limited", err)
	}
	if AsError(err).Message != MsgTooManyTries {
		t.Errorf("message = %q", AsError(err).Message)
	}
	if tr.count() != 3 {
		t.Errorf("delivered %d, want 3", tr.count())
	}
}

type brokenStore struct{}

func (brokenStore) Admit(context.Context, string, int, time.Duration) (bool, error) {
	return false, errors.New("redis down")
}
func (brokenStore) Reset(context.Context, string) error { return nil }

func TestSubmit_LimiterErrorAdmits(t *testing.T) {
	tr := &fakeTransport{}
	if _, err := newNotifier(tr, brokenStore{}).Submit(context.Background(), clean); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if tr.count() != 1 {
		t.Error("submission not delivered")
	}
}

func TestSubmit_TransportFailureFallsBack(t *testing.T) {
	tr := &fakeTransport{err: errors.New("resend: api error 401: invalid key")}
	out, err := newNotifier(tr, nil).Submit(context.Background(), clean)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if out.Provider != ProviderFallback || out.Delivered {
		t.Errorf("outcome = %+v", out)
	}
	if out.Message != "Contact saved, email delivery pending" {
		t.Errorf("message = %q", out.Message)
	}
}

type slowTransport struct{}

func (slowTransport) Name() string { return "slow" }
func (slowTransport) Send(ctx context.Context, msg Message) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestSubmit_TransportTimeout(t *testing.T) {
	n := New(Config{Transport: slowTransport{}, To: []string{"o@example.com"}, Timeout: 20 * time.Millisecond})
	out, err := n.Submit(context.Background(), clean)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if out.Provider != ProviderFallback {
		t.Errorf("provider = %q", out.Provider)
	}
}

func TestForward(t *testing.T) {
	tr := &fakeTransport{}
	n := newNotifier(tr, ratelimit.NewMemory())

	// Forward skips scoring: a temp-mail sender is not flagged.
	out, err := n.Forward(context.Background(), Submission{Name: "Bob", Email: "bob@mailinator.com", Message: "hi"})
	if err != nil {
		t.Fatalf("Forward: %v", err)
	}
	if !out.Delivered || out.Message != "Email sent successfully" {
		t.Errorf("outcome = %+v", out)
	}
	if got := tr.sent[0].Subject; got != "Nuova richiesta di contatto da Bob" {
		t.Errorf("subject = %q", got)
	}

	if _, err := n.Forward(context.Background(), Submission{Name: "Bob"}); !IsKind(err, KindValidation) {
		t.Errorf("err = %v, want validation", err)
	}
}

func TestForward_TransportFailure(t *testing.T) {
	tr := &fakeTransport{err: errors.New("connection refused")}
	_, err := newNotifier(tr, nil).Forward(context.Background(), clean)
	if !IsKind(err, KindTransport) {
		t.Fatalf("err = %v, want transport", err)
	}
	if AsError(err).HTTPStatus() != 500 {
		t.Errorf("status = %d", AsError(err).HTTPStatus())
	}
}

func TestRender_EscapesInput(t *testing.T) {
	s := Submission{
		Name:    `<script>alert(1)</script>`,
		Email:   "a@b.it",
		Message: "riga uno\nriga <b>due</b>",
	}
	html, text, err := renderContact(s, 3, false, fixedNow)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(html, "<script>") || strings.Contains(html, "<b>due</b>") {
		t.Error("html body contains unescaped input")
	}
	if !strings.Contains(html, "riga uno<br>riga &lt;b&gt;due&lt;/b&gt;") {
		t.Errorf("line breaks not rendered: %s", html)
	}
	if !strings.Contains(text, "riga <b>due</b>") {
		t.Error("text body should carry the raw message")
	}
	if !strings.Contains(text, "14 ottobre 2026 alle ore") {
		t.Errorf("date not in Italian: %s", text)
	}
}

func TestSubject(t *testing.T) {
	if got := Subject("Anna", true); got != "🚗 [POSSIBILE SPAM] Nuova richiesta di contatto da Anna" {
		t.Errorf("flagged subject = %q", got)
	}
	if got := Subject("Anna", false); got != "🚗 Nuova richiesta di contatto da Anna" {
		t.Errorf("subject = %q", got)
	}
}

func TestAsError(t *testing.T) {
	if AsError(nil) != nil {
		t.Error("AsError(nil) != nil")
	}
	e := AsError(errors.New("boom"))
	if e.Kind != KindInternal || e.HTTPStatus() != 500 {
		t.Errorf("got %+v", e)
	}
	wrapped := AsError(errors.Join(errors.New("ctx"), rateLimitedError()))
	if wrapped.Kind != KindRateLimited || wrapped.HTTPStatus() != 429 {
		t.Errorf("got %+v", wrapped)
	}
}
