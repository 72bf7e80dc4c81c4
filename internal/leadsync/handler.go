package leadsync

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"git.mci.dev/mse/sre/phoenix/golang/leadsync/internal/logging"
	"git.mci.dev/mse/sre/phoenix/golang/leadsync/internal/payload"
	prometheusLeadsync "git.mci.dev/mse/sre/phoenix/golang/leadsync/internal/prometheus"
	"git.mci.dev/mse/sre/phoenix/golang/leadsync/internal/webhook"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const acknowledgedMessage = "Webhook processed successfully"

type Pipeline interface {
	Process(ctx context.Context, p payload.Payload) (*webhook.Outcome, error)
}

type DeadLetterMarker interface {
	MarkDelivery(ctx context.Context, callID string, body []byte, errMsg string) error
}

type WebhookResponse struct {
	Success bool    `json:"success"`
	Message string  `json:"message,omitempty"`
	CallID  *string `json:"call_id,omitempty"`
	Error   string  `json:"error,omitempty"`
}

// WebhookHandler runs the pipeline detached from the request context: a sender that hangs
// up must not abort a delivery halfway or count against the database breaker.
// ProcessTimeout bounds the detached run; zero means no bound.
type WebhookHandler struct {
	Pipeline       Pipeline
	DeadLetters    DeadLetterMarker
	OnOutcome      func(ctx context.Context, outcome *webhook.Outcome)
	MaxBodyBytes   int64
	ProcessTimeout time.Duration
}

func NewRouter(handler *WebhookHandler, webhookPath string) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	router.Post(webhookPath, handler.ServeHTTP)

	return router
}

func (handler *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	outcomeLabel := prometheusLeadsync.OutcomeOK
	timer := prometheus.NewTimer(prometheus.ObserverFunc(func(seconds float64) {
		prometheusLeadsync.WebhookDuration.WithLabelValues(outcomeLabel).Observe(seconds)
	}))
	defer timer.ObserveDuration()

	requestID := middleware.GetReqID(r.Context())

	if handler.MaxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, handler.MaxBodyBytes)
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		outcomeLabel = prometheusLeadsync.OutcomeBadRequest
		status := http.StatusBadRequest

		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			status = http.StatusRequestEntityTooLarge
		}

		logging.Logger.Warn("[ServeHTTP] Failed to read webhook body",
			zap.String("request_id", requestID),
			zap.String("error", err.Error()),
		)
		writeJSON(w, status, WebhookResponse{Success: false, Error: err.Error()})

		return
	}

	p, err := payload.Parse(body)
	if err != nil {
		outcomeLabel = prometheusLeadsync.OutcomeBadRequest

		logging.Logger.Warn("[ServeHTTP] Rejected webhook body",
			zap.String("request_id", requestID),
			zap.String("error", err.Error()),
		)
		writeJSON(w, http.StatusBadRequest, WebhookResponse{Success: false, Error: err.Error()})

		return
	}

	ctx, cancel := handler.processContext(r.Context())
	defer cancel()

	outcome, err := handler.Pipeline.Process(ctx, p)
	if err != nil {
		outcomeLabel = prometheusLeadsync.OutcomeFailed
		callID := payload.CallID(p)

		logging.Logger.Error("[ServeHTTP] Webhook processing failed",
			zap.String("request_id", requestID),
			zap.String("call_id", callID),
			zap.String("error", err.Error()),
		)

		handler.markDeadLetter(ctx, callID, body, err)
		writeJSON(w, http.StatusInternalServerError, WebhookResponse{Success: false, Error: err.Error()})

		return
	}

	if handler.OnOutcome != nil {
		handler.OnOutcome(ctx, outcome)
	}

	logID := outcome.CallLog.LogID
	writeJSON(w, http.StatusOK, WebhookResponse{
		Success: true,
		Message: acknowledgedMessage,
		CallID:  &logID,
	})
}

func (handler *WebhookHandler) processContext(parent context.Context) (context.Context, context.CancelFunc) {
	detached := context.WithoutCancel(parent)
	if handler.ProcessTimeout <= 0 {
		return context.WithCancel(detached)
	}

	return context.WithTimeout(detached, handler.ProcessTimeout)
}

func (handler *WebhookHandler) markDeadLetter(ctx context.Context, callID string, body []byte, cause error) {
	if handler.DeadLetters == nil {
		return
	}

	err := handler.DeadLetters.MarkDelivery(ctx, callID, body, cause.Error())
	if err != nil {
		logging.Logger.Error("[ServeHTTP] Failed to store dead letter",
			zap.String("call_id", callID),
			zap.String("error", err.Error()),
		)

		return
	}

	prometheusLeadsync.DeadLetterTotal.WithLabelValues("marked").Inc()
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	err := json.NewEncoder(w).Encode(value)
	if err != nil {
		logging.Logger.Warn("[writeJSON] Failed to write response", zap.String("error", err.Error()))
	}
}
