package order

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/appetiteclub/coordinator/internal/tables"
	"github.com/appetiteclub/coordinator/pkg/enums/orderstatus"
	"github.com/aquamarinepk/aqm"
	"github.com/aquamarinepk/aqm/telemetry"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const MaxBodyBytes = 1 << 20

type Handler struct {
	engine *Engine
	logger aqm.Logger
	config *aqm.Config
	tlm    *telemetry.HTTP
}

func NewHandler(engine *Engine, config *aqm.Config, logger aqm.Logger) *Handler {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	return &Handler{
		engine: engine,
		logger: logger,
		config: config,
		tlm:    telemetry.NewHTTP(),
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/orders", func(r chi.Router) {
		r.Post("/", h.SubmitOrder)
		r.Get("/", h.SearchOrders)
		r.Get("/statistics", h.GetStatistics)
		r.Get("/unpaid-count", h.GetUnpaidCount)
		r.Get("/{id}", h.GetOrder)
		r.Post("/{id}/pay", h.PayOrder)
		r.Post("/{id}/confirm", h.ConfirmOrder)
		r.Post("/{id}/reject", h.RejectOrder)
		r.Post("/{id}/cancel", h.CancelOrder)
		r.Post("/{id}/dispatch", h.DispatchOrder)
		r.Post("/{id}/complete", h.CompleteOrder)
		r.Post("/{id}/reorder", h.ReorderOrder)
		r.Post("/{id}/reminder", h.RemindOrder)
	})
}

func (h *Handler) SubmitOrder(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.SubmitOrder")
	defer finish()

	log := h.log(r)

	var req SubmitOrderRequest
	if !decodePayload(w, r, log, &req) {
		return
	}

	submit, validationErrors := ValidateSubmit(req)
	if len(validationErrors) > 0 {
		log.Debug("validation failed", "errors", validationErrors)
		aqm.RespondError(w, http.StatusBadRequest, "Validation failed: "+strings.Join(validationErrors, ", "))
		return
	}

	order, err := h.engine.Submit(r.Context(), submit)
	if err != nil {
		respondOrderError(w, log, err, "Could not submit order")
		return
	}

	w.WriteHeader(http.StatusCreated)
	aqm.RespondSuccess(w, order.Labelled(), aqm.RESTfulLinksFor(order)...)
}

func (h *Handler) SearchOrders(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.SearchOrders")
	defer finish()

	log := h.log(r)

	q, err := parseQuery(r)
	if err != nil {
		log.Debug("invalid search query", "error", err)
		aqm.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	page, err := h.engine.Search(r.Context(), q)
	if err != nil {
		respondOrderError(w, log, err, "Could not search orders")
		return
	}

	aqm.RespondSuccess(w, page)
}

func (h *Handler) GetStatistics(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.GetStatistics")
	defer finish()

	stats, err := h.engine.Statistics(r.Context())
	if err != nil {
		respondOrderError(w, h.log(r), err, "Could not compute statistics")
		return
	}

	aqm.RespondSuccess(w, stats)
}

func (h *Handler) GetUnpaidCount(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.GetUnpaidCount")
	defer finish()

	log := h.log(r)

	userID, err := uuid.Parse(r.URL.Query().Get("user_id"))
	if err != nil {
		aqm.RespondError(w, http.StatusBadRequest, "user_id must be a valid UUID")
		return
	}

	count, err := h.engine.UnpaidCount(r.Context(), userID)
	if err != nil {
		respondOrderError(w, log, err, "Could not count unpaid orders")
		return
	}

	aqm.RespondSuccess(w, map[string]int64{"count": count})
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.GetOrder")
	defer finish()

	log := h.log(r)

	id, ok := parseIDParam(w, r, log)
	if !ok {
		return
	}

	order, err := h.engine.Get(r.Context(), id)
	if err != nil {
		respondOrderError(w, log, err, "Could not load order")
		return
	}

	aqm.RespondSuccess(w, order.Labelled(), aqm.RESTfulLinksFor(order)...)
}

type payResponse struct {
	Order                  *Order `json:"order"`
	Applied                bool   `json:"applied"`
	ReconciliationRequired bool   `json:"reconciliation_required"`
	Reconciliation         string `json:"reconciliation,omitempty"`
}

// PayOrder is the payment callback. It answers 200 for repeated callbacks
// and for payments whose table needs reconciliation.
func (h *Handler) PayOrder(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.PayOrder")
	defer finish()

	log := h.log(r)

	id, ok := parseIDParam(w, r, log)
	if !ok {
		return
	}

	result, err := h.engine.Pay(r.Context(), id)
	if err != nil {
		respondOrderError(w, log, err, "Could not record payment")
		return
	}

	resp := payResponse{
		Order:                  result.Order.Labelled(),
		Applied:                result.Applied,
		ReconciliationRequired: result.ReconciliationRequired(),
	}
	if result.Reconciliation != nil {
		resp.Reconciliation = result.Reconciliation.Error()
	}

	aqm.RespondSuccess(w, resp, aqm.RESTfulLinksFor(result.Order)...)
}

func (h *Handler) ConfirmOrder(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ConfirmOrder")
	defer finish()

	h.simpleTransition(w, r, "Could not confirm order", h.engine.Confirm)
}

func (h *Handler) DispatchOrder(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.DispatchOrder")
	defer finish()

	h.simpleTransition(w, r, "Could not dispatch order", h.engine.Dispatch)
}

func (h *Handler) CompleteOrder(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.CompleteOrder")
	defer finish()

	h.simpleTransition(w, r, "Could not complete order", h.engine.Complete)
}

func (h *Handler) RejectOrder(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.RejectOrder")
	defer finish()

	log := h.log(r)

	id, ok := parseIDParam(w, r, log)
	if !ok {
		return
	}

	var req RejectOrderRequest
	if !decodePayload(w, r, log, &req) {
		return
	}

	reason := strings.TrimSpace(req.Reason)
	if len(reason) > maxReasonLength {
		aqm.RespondError(w, http.StatusBadRequest, "reason is too long")
		return
	}

	order, err := h.engine.Reject(r.Context(), id, reason)
	if err != nil {
		respondOrderError(w, log, err, "Could not reject order")
		return
	}

	aqm.RespondSuccess(w, order.Labelled(), aqm.RESTfulLinksFor(order)...)
}

func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.CancelOrder")
	defer finish()

	log := h.log(r)

	id, ok := parseIDParam(w, r, log)
	if !ok {
		return
	}

	var req CancelOrderRequest
	if !decodePayload(w, r, log, &req) {
		return
	}

	cancel, validationErrors := ValidateCancel(req)
	if len(validationErrors) > 0 {
		aqm.RespondError(w, http.StatusBadRequest, "Validation failed: "+strings.Join(validationErrors, ", "))
		return
	}

	order, err := h.engine.Cancel(r.Context(), id, cancel)
	if err != nil {
		respondOrderError(w, log, err, "Could not cancel order")
		return
	}

	aqm.RespondSuccess(w, order.Labelled(), aqm.RESTfulLinksFor(order)...)
}

func (h *Handler) ReorderOrder(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ReorderOrder")
	defer finish()

	log := h.log(r)

	id, ok := parseIDParam(w, r, log)
	if !ok {
		return
	}

	var req ReorderRequest
	if !decodePayload(w, r, log, &req) {
		return
	}

	userID, err := uuid.Parse(strings.TrimSpace(req.UserID))
	if err != nil {
		aqm.RespondError(w, http.StatusBadRequest, "user_id must be a valid UUID")
		return
	}

	items, err := h.engine.Reorder(r.Context(), id, userID)
	if err != nil {
		respondOrderError(w, log, err, "Could not reorder")
		return
	}

	aqm.RespondSuccess(w, items)
}

func (h *Handler) RemindOrder(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.RemindOrder")
	defer finish()

	log := h.log(r)

	id, ok := parseIDParam(w, r, log)
	if !ok {
		return
	}

	if err := h.engine.Remind(r.Context(), id); err != nil {
		respondOrderError(w, log, err, "Could not send reminder")
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

// Helper methods

func (h *Handler) simpleTransition(w http.ResponseWriter, r *http.Request, fallback string, fn func(ctx context.Context, id uuid.UUID) (*Order, error)) {
	log := h.log(r)

	id, ok := parseIDParam(w, r, log)
	if !ok {
		return
	}

	order, err := fn(r.Context(), id)
	if err != nil {
		respondOrderError(w, log, err, fallback)
		return
	}

	aqm.RespondSuccess(w, order.Labelled(), aqm.RESTfulLinksFor(order)...)
}

func (h *Handler) log(r *http.Request) aqm.Logger {
	return h.logger.With("request_id", r.Context().Value("request_id"))
}

func parseQuery(r *http.Request) (Query, error) {
	values := r.URL.Query()
	var q Query

	if v := strings.TrimSpace(values.Get("user_id")); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return q, errors.New("user_id must be a valid UUID")
		}
		q.UserID = &id
	}

	if v := strings.TrimSpace(values.Get("status")); v != "" {
		if orderstatus.ByName(v) == nil {
			return q, errors.New("unknown status " + v)
		}
		q.Status = v
	}

	q.Number = strings.TrimSpace(values.Get("number"))

	for key, dst := range map[string]**time.Time{"from": &q.From, "to": &q.To} {
		v := strings.TrimSpace(values.Get(key))
		if v == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return q, errors.New(key + " must be an RFC3339 timestamp")
		}
		*dst = &t
	}

	for key, dst := range map[string]*int{"page": &q.Page, "page_size": &q.PageSize} {
		v := strings.TrimSpace(values.Get(key))
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return q, errors.New(key + " must be a number")
		}
		*dst = n
	}

	return q, nil
}

func respondOrderError(w http.ResponseWriter, log aqm.Logger, err error, fallback string) {
	switch {
	case errors.Is(err, ErrOrderNotFound), errors.Is(err, tables.ErrTableNotFound):
		aqm.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrTableRequired), errors.Is(err, ErrInvalidDiningType):
		aqm.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrCartEmpty), errors.Is(err, ErrAddressNotFound):
		aqm.RespondError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ErrInvalidOrderState), tables.IsBusinessError(err):
		aqm.RespondError(w, http.StatusConflict, err.Error())
	default:
		log.Error(strings.ToLower(fallback), "error", err)
		aqm.RespondError(w, http.StatusInternalServerError, fallback)
	}
}

func parseIDParam(w http.ResponseWriter, r *http.Request, log aqm.Logger) (uuid.UUID, bool) {
	return parseUUIDParam(w, r, log, "id")
}

func parseUUIDParam(w http.ResponseWriter, r *http.Request, log aqm.Logger, name string) (uuid.UUID, bool) {
	idStr := chi.URLParam(r, name)
	if idStr == "" {
		log.Debug("missing parameter", "name", name)
		aqm.RespondError(w, http.StatusBadRequest, "Missing "+name+" parameter")
		return uuid.Nil, false
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		log.Debug("invalid parameter", "name", name, "value", idStr, "error", err)
		aqm.RespondError(w, http.StatusBadRequest, "Invalid "+name+" parameter")
		return uuid.Nil, false
	}

	return id, true
}

func decodePayload(w http.ResponseWriter, r *http.Request, log aqm.Logger, out interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	defer r.Body.Close()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Debug("error reading request body", "error", err)
		aqm.RespondError(w, http.StatusBadRequest, "Could not read request body")
		return false
	}

	if len(body) == 0 {
		body = []byte("{}")
	}

	if err := json.Unmarshal(body, out); err != nil {
		log.Debug("error decoding JSON", "error", err)
		aqm.RespondError(w, http.StatusBadRequest, "Invalid JSON payload")
		return false
	}

	return true
}
