package tables

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/aquamarinepk/aqm"
	"github.com/aquamarinepk/aqm/telemetry"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const MaxBodyBytes = 1 << 20

type Handler struct {
	tableRepo   TableRepo
	coordinator *Coordinator
	cache       *StateCache
	orders      ActiveOrderCounter
	logger      aqm.Logger
	config      *aqm.Config
	tlm         *telemetry.HTTP
}

type HandlerDeps struct {
	TableRepo   TableRepo
	Coordinator *Coordinator
	Cache       *StateCache
	Orders      ActiveOrderCounter
}

func NewHandler(hd HandlerDeps, config *aqm.Config, logger aqm.Logger) *Handler {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	return &Handler{
		tableRepo:   hd.TableRepo,
		coordinator: hd.Coordinator,
		cache:       hd.Cache,
		orders:      hd.Orders,
		logger:      logger,
		config:      config,
		tlm:         telemetry.NewHTTP(),
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/tables", func(r chi.Router) {
		r.Post("/", h.CreateTable)
		r.Get("/", h.ListTables)
		r.Get("/available", h.ListAvailableTables)
		r.Get("/{id}", h.GetTable)
		r.Get("/{id}/availability", h.CheckAvailability)
		r.Patch("/{id}", h.UpdateTable)
		r.Delete("/{id}", h.DeleteTable)
		r.Post("/{id}/release", h.ReleaseTable)
	})
}

func (h *Handler) CreateTable(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.CreateTable")
	defer finish()

	log := h.log(r)
	ctx := r.Context()

	var req TableCreateRequest
	if !h.decodePayload(w, r, log, &req) {
		return
	}

	validationErrors := ValidateTableCreate(ctx, req)
	if len(validationErrors) > 0 {
		log.Debug("validation failed", "errors", validationErrors)
		aqm.RespondError(w, http.StatusBadRequest, "Validation failed: "+strings.Join(validationErrors, ", "))
		return
	}

	number := strings.TrimSpace(req.Number)
	existing, err := h.tableRepo.GetByNumber(ctx, number)
	if err != nil {
		log.Error("cannot check table number", "error", err)
		aqm.RespondError(w, http.StatusInternalServerError, "Could not create table")
		return
	}
	if existing != nil {
		aqm.RespondError(w, http.StatusConflict, ErrDuplicateNumber.Error())
		return
	}

	table := NewTable()
	table.Number = number
	table.Capacity = req.Capacity
	table.Sort = req.Sort
	if req.Status != "" {
		table.Status = req.Status
	}
	table.CreatedBy = req.By
	table.UpdatedBy = req.By
	table.BeforeCreate()

	if err := h.tableRepo.Create(ctx, table); err != nil {
		if errors.Is(err, ErrDuplicateNumber) {
			aqm.RespondError(w, http.StatusConflict, ErrDuplicateNumber.Error())
			return
		}
		log.Error("cannot create table", "error", err)
		aqm.RespondError(w, http.StatusInternalServerError, "Could not create table")
		return
	}

	h.coordinator.Publish(ctx, &Change{
		TableID: table.ID,
		Number:  table.Number,
		Status:  table.Status,
		Reason:  "table.created",
	})

	links := aqm.RESTfulLinksFor(table)
	w.WriteHeader(http.StatusCreated)
	aqm.RespondSuccess(w, table.Labelled(), links...)
}

func (h *Handler) GetTable(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.GetTable")
	defer finish()

	log := h.log(r)
	ctx := r.Context()

	id, ok := h.parseIDParam(w, r, log)
	if !ok {
		return
	}

	table, err := h.tableRepo.Get(ctx, id)
	if err != nil {
		log.Error("error loading table", "error", err, "id", id.String())
		aqm.RespondError(w, http.StatusInternalServerError, "Could not load table")
		return
	}

	if table == nil {
		aqm.RespondError(w, http.StatusNotFound, "Table not found")
		return
	}

	links := aqm.RESTfulLinksFor(table)
	aqm.RespondSuccess(w, table.Labelled(), links...)
}

func (h *Handler) ListTables(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ListTables")
	defer finish()

	log := h.log(r)
	ctx := r.Context()

	status := r.URL.Query().Get("status")
	number := strings.TrimSpace(r.URL.Query().Get("number"))

	var list []*Table
	var err error

	if status != "" {
		list, err = h.tableRepo.ListByStatus(ctx, status)
	} else {
		list, err = h.tableRepo.List(ctx)
	}

	if err != nil {
		log.Error("error retrieving tables", "error", err)
		aqm.RespondError(w, http.StatusInternalServerError, "Could not retrieve tables")
		return
	}

	aqm.RespondCollection(w, filterByNumber(list, number), "table")
}

// ListAvailableTables answers from the registry, not the cache. Callers must
// still go through submission to actually hold a table.
func (h *Handler) ListAvailableTables(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ListAvailableTables")
	defer finish()

	log := h.log(r)

	list, err := h.coordinator.Available(r.Context())
	if err != nil {
		log.Error("error retrieving available tables", "error", err)
		aqm.RespondError(w, http.StatusInternalServerError, "Could not retrieve tables")
		return
	}

	aqm.RespondCollection(w, filterByNumber(list, ""), "table")
}

type availabilityResponse struct {
	TableID   string `json:"table_id"`
	Status    string `json:"status"`
	Available bool   `json:"available"`
	Advisory  bool   `json:"advisory"`
}

func (h *Handler) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.CheckAvailability")
	defer finish()

	log := h.log(r)

	id, ok := h.parseIDParam(w, r, log)
	if !ok {
		return
	}

	if h.cache == nil {
		aqm.RespondError(w, http.StatusServiceUnavailable, "Availability cache not configured")
		return
	}

	available, status, err := h.cache.LooksAvailable(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrTableNotFound) {
			aqm.RespondError(w, http.StatusNotFound, "Table not found")
			return
		}
		log.Error("cannot check table availability", "error", err, "id", id.String())
		aqm.RespondError(w, http.StatusInternalServerError, "Could not check availability")
		return
	}

	aqm.RespondSuccess(w, availabilityResponse{
		TableID:   id.String(),
		Status:    status,
		Available: available,
		Advisory:  true,
	})
}

func (h *Handler) UpdateTable(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.UpdateTable")
	defer finish()

	log := h.log(r)
	ctx := r.Context()

	id, ok := h.parseIDParam(w, r, log)
	if !ok {
		return
	}

	var req TableUpdateRequest
	if !h.decodePayload(w, r, log, &req) {
		return
	}

	validationErrors := ValidateTableUpdate(ctx, id, req)
	if len(validationErrors) > 0 {
		log.Debug("validation failed", "errors", validationErrors)
		aqm.RespondError(w, http.StatusBadRequest, "Validation failed: "+strings.Join(validationErrors, ", "))
		return
	}

	table, err := h.tableRepo.Get(ctx, id)
	if err != nil {
		log.Error("error loading table", "error", err, "id", id.String())
		aqm.RespondError(w, http.StatusInternalServerError, "Could not update table")
		return
	}
	if table == nil {
		aqm.RespondError(w, http.StatusNotFound, "Table not found")
		return
	}

	number := strings.TrimSpace(req.Number)
	if number != "" && number != table.Number {
		other, err := h.tableRepo.GetByNumber(ctx, number)
		if err != nil {
			log.Error("cannot check table number", "error", err)
			aqm.RespondError(w, http.StatusInternalServerError, "Could not update table")
			return
		}
		if other != nil && other.ID != table.ID {
			aqm.RespondError(w, http.StatusConflict, ErrDuplicateNumber.Error())
			return
		}
		table.Number = number
	}
	if req.Capacity > 0 {
		table.Capacity = req.Capacity
	}
	if req.Sort != nil {
		table.Sort = *req.Sort
	}
	table.UpdatedBy = req.By
	table.BeforeUpdate()

	statusChange := req.Status != "" && req.Status != table.Status
	if statusChange && h.inUse(w, r, log, id) {
		return
	}

	// Metadata goes first: a rejected save must leave the status untouched.
	if err := h.tableRepo.Save(ctx, table); err != nil {
		if errors.Is(err, ErrDuplicateNumber) {
			aqm.RespondError(w, http.StatusConflict, ErrDuplicateNumber.Error())
			return
		}
		log.Error("cannot update table", "error", err)
		aqm.RespondError(w, http.StatusInternalServerError, "Could not update table")
		return
	}

	if statusChange {
		change, err := h.coordinator.SetAvailability(ctx, id, req.Status, req.By)
		if err != nil {
			log.Info("table details saved, status unchanged", "id", id.String(), "status", req.Status, "error", err)
			h.respondTableError(w, log, err, "Could not update table status")
			return
		}
		h.coordinator.Publish(ctx, change)
		table.Status = req.Status
	}

	links := aqm.RESTfulLinksFor(table)
	aqm.RespondSuccess(w, table.Labelled(), links...)
}

func (h *Handler) DeleteTable(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.DeleteTable")
	defer finish()

	log := h.log(r)
	ctx := r.Context()

	id, ok := h.parseIDParam(w, r, log)
	if !ok {
		return
	}

	if h.inUse(w, r, log, id) {
		return
	}

	deleted, err := h.tableRepo.Delete(ctx, id)
	if err != nil {
		log.Error("cannot delete table", "error", err)
		aqm.RespondError(w, http.StatusInternalServerError, "Could not delete table")
		return
	}

	if !deleted {
		table, err := h.tableRepo.Get(ctx, id)
		if err != nil {
			log.Error("error loading table", "error", err, "id", id.String())
			aqm.RespondError(w, http.StatusInternalServerError, "Could not delete table")
			return
		}
		if table == nil {
			aqm.RespondError(w, http.StatusNotFound, "Table not found")
			return
		}
		aqm.RespondError(w, http.StatusConflict, ErrTableInUse.Error())
		return
	}

	if h.cache != nil {
		h.cache.Forget(id)
	}

	w.WriteHeader(http.StatusNoContent)
}

// ReleaseTable force-frees a table stuck in reserved or occupied after a
// reconciliation anomaly. It refuses while any active order still points at
// the table.
func (h *Handler) ReleaseTable(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ReleaseTable")
	defer finish()

	log := h.log(r)
	ctx := r.Context()

	id, ok := h.parseIDParam(w, r, log)
	if !ok {
		return
	}

	var req TableReleaseRequest
	if !h.decodePayload(w, r, log, &req) {
		return
	}

	if strings.TrimSpace(req.By) == "" {
		aqm.RespondError(w, http.StatusBadRequest, "by is required")
		return
	}

	if h.inUse(w, r, log, id) {
		return
	}

	change, err := h.coordinator.ForceRelease(ctx, id, req.By)
	if err != nil {
		h.respondTableError(w, log, err, "Could not release table")
		return
	}

	if change != nil {
		log.Info("table force released", "table_id", id.String(), "by", req.By, "reason", req.Reason, "previous_status", change.Previous)
		h.coordinator.Publish(ctx, change)
	}

	table, err := h.tableRepo.Get(ctx, id)
	if err != nil || table == nil {
		log.Error("error loading table", "error", err, "id", id.String())
		aqm.RespondError(w, http.StatusInternalServerError, "Could not load table")
		return
	}

	aqm.RespondSuccess(w, table.Labelled(), aqm.RESTfulLinksFor(table)...)
}

// Helper methods

func (h *Handler) inUse(w http.ResponseWriter, r *http.Request, log aqm.Logger, id uuid.UUID) bool {
	if h.orders == nil {
		return false
	}

	count, err := h.orders.CountActiveByTable(r.Context(), id)
	if err != nil {
		log.Error("cannot count active orders for table", "error", err, "id", id.String())
		aqm.RespondError(w, http.StatusInternalServerError, "Could not check table usage")
		return true
	}

	if count > 0 {
		log.Debug("table has active orders", "id", id.String(), "count", count)
		aqm.RespondError(w, http.StatusConflict, ErrTableInUse.Error())
		return true
	}

	return false
}

func (h *Handler) respondTableError(w http.ResponseWriter, log aqm.Logger, err error, fallback string) {
	switch {
	case errors.Is(err, ErrTableNotFound):
		aqm.RespondError(w, http.StatusNotFound, err.Error())
	case IsBusinessError(err):
		aqm.RespondError(w, http.StatusConflict, err.Error())
	default:
		log.Error(strings.ToLower(fallback), "error", err)
		aqm.RespondError(w, http.StatusInternalServerError, fallback)
	}
}

func (h *Handler) log(r *http.Request) aqm.Logger {
	return h.logger.With("request_id", r.Context().Value("request_id"))
}

func (h *Handler) parseIDParam(w http.ResponseWriter, r *http.Request, log aqm.Logger) (uuid.UUID, bool) {
	idStr := chi.URLParam(r, "id")
	if idStr == "" {
		log.Debug("missing id parameter")
		aqm.RespondError(w, http.StatusBadRequest, "Missing id parameter")
		return uuid.Nil, false
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		log.Debug("invalid id parameter", "id", idStr, "error", err)
		aqm.RespondError(w, http.StatusBadRequest, "Invalid id parameter")
		return uuid.Nil, false
	}

	return id, true
}

func (h *Handler) decodePayload(w http.ResponseWriter, r *http.Request, log aqm.Logger, out interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	defer r.Body.Close()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Debug("error reading request body", "error", err)
		aqm.RespondError(w, http.StatusBadRequest, "Could not read request body")
		return false
	}

	if err := json.Unmarshal(body, out); err != nil {
		log.Debug("error decoding JSON", "error", err)
		aqm.RespondError(w, http.StatusBadRequest, "Invalid JSON payload")
		return false
	}

	return true
}

// filterByNumber keeps tables whose number contains the filter, labelled and
// in display order.
func filterByNumber(list []*Table, number string) []*Table {
	result := make([]*Table, 0, len(list))
	for _, t := range list {
		if number != "" && !strings.Contains(strings.ToLower(t.Number), strings.ToLower(number)) {
			continue
		}
		result = append(result, t.Labelled())
	}
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].Sort != result[j].Sort {
			return result[i].Sort < result[j].Sort
		}
		return result[i].Number < result[j].Number
	})
	return result
}
