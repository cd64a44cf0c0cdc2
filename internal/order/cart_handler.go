package order

import (
	"net/http"
	"strings"

	"github.com/aquamarinepk/aqm"
	"github.com/aquamarinepk/aqm/telemetry"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// CartHandler exposes the cart and address book that submission reads from.
type CartHandler struct {
	carts     CartSource
	addresses AddressBook
	logger    aqm.Logger
	tlm       *telemetry.HTTP
}

func NewCartHandler(carts CartSource, addresses AddressBook, logger aqm.Logger) *CartHandler {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	return &CartHandler{
		carts:     carts,
		addresses: addresses,
		logger:    logger,
		tlm:       telemetry.NewHTTP(),
	}
}

func (h *CartHandler) RegisterRoutes(r chi.Router) {
	r.Route("/carts/{userID}/items", func(r chi.Router) {
		r.Get("/", h.ListItems)
		r.Post("/", h.AddItems)
		r.Delete("/", h.ClearItems)
	})
	r.Route("/addresses", func(r chi.Router) {
		r.Post("/", h.CreateAddress)
		r.Get("/{id}", h.GetAddress)
	})
}

func (h *CartHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "CartHandler.ListItems")
	defer finish()

	log := h.log(r)

	userID, ok := parseUUIDParam(w, r, log, "userID")
	if !ok {
		return
	}

	items, err := h.carts.ListItems(r.Context(), userID)
	if err != nil {
		log.Error("cannot list cart items", "error", err, "user_id", userID.String())
		aqm.RespondError(w, http.StatusInternalServerError, "Could not load cart")
		return
	}
	if items == nil {
		items = []Item{}
	}

	aqm.RespondSuccess(w, items)
}

func (h *CartHandler) AddItems(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "CartHandler.AddItems")
	defer finish()

	log := h.log(r)

	userID, ok := parseUUIDParam(w, r, log, "userID")
	if !ok {
		return
	}

	var req CartItemsRequest
	if !decodePayload(w, r, log, &req) {
		return
	}

	validationErrors := ValidateCartItems(req)
	if len(validationErrors) > 0 {
		aqm.RespondError(w, http.StatusBadRequest, "Validation failed: "+strings.Join(validationErrors, ", "))
		return
	}

	if err := h.carts.AddItems(r.Context(), userID, req.Items); err != nil {
		log.Error("cannot add cart items", "error", err, "user_id", userID.String())
		aqm.RespondError(w, http.StatusInternalServerError, "Could not update cart")
		return
	}

	w.WriteHeader(http.StatusCreated)
	aqm.RespondSuccess(w, req.Items)
}

func (h *CartHandler) ClearItems(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "CartHandler.ClearItems")
	defer finish()

	log := h.log(r)

	userID, ok := parseUUIDParam(w, r, log, "userID")
	if !ok {
		return
	}

	if err := h.carts.Clear(r.Context(), userID); err != nil {
		log.Error("cannot clear cart", "error", err, "user_id", userID.String())
		aqm.RespondError(w, http.StatusInternalServerError, "Could not clear cart")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *CartHandler) CreateAddress(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "CartHandler.CreateAddress")
	defer finish()

	log := h.log(r)

	var req AddressCreateRequest
	if !decodePayload(w, r, log, &req) {
		return
	}

	validationErrors := ValidateAddressCreate(req)
	if len(validationErrors) > 0 {
		aqm.RespondError(w, http.StatusBadRequest, "Validation failed: "+strings.Join(validationErrors, ", "))
		return
	}

	address := NewAddress()
	address.UserID = uuid.MustParse(strings.TrimSpace(req.UserID))
	address.Consignee = strings.TrimSpace(req.Consignee)
	address.Phone = strings.TrimSpace(req.Phone)
	address.Detail = strings.TrimSpace(req.Detail)
	address.Label = strings.TrimSpace(req.Label)
	address.BeforeCreate()

	if err := h.addresses.Create(r.Context(), address); err != nil {
		log.Error("cannot create address", "error", err)
		aqm.RespondError(w, http.StatusInternalServerError, "Could not create address")
		return
	}

	w.WriteHeader(http.StatusCreated)
	aqm.RespondSuccess(w, address, aqm.RESTfulLinksFor(address)...)
}

func (h *CartHandler) GetAddress(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "CartHandler.GetAddress")
	defer finish()

	log := h.log(r)

	id, ok := parseIDParam(w, r, log)
	if !ok {
		return
	}

	address, err := h.addresses.Resolve(r.Context(), id)
	if err != nil {
		log.Error("cannot load address", "error", err, "id", id.String())
		aqm.RespondError(w, http.StatusInternalServerError, "Could not load address")
		return
	}
	if address == nil {
		aqm.RespondError(w, http.StatusNotFound, ErrAddressNotFound.Error())
		return
	}

	aqm.RespondSuccess(w, address, aqm.RESTfulLinksFor(address)...)
}

func (h *CartHandler) log(r *http.Request) aqm.Logger {
	return h.logger.With("request_id", r.Context().Value("request_id"))
}
