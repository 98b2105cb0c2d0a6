package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/moynul/taptosell-server/internal/fees"
	"github.com/moynul/taptosell-server/internal/infrastructure/auth"
	"github.com/moynul/taptosell-server/internal/models"
	service "github.com/moynul/taptosell-server/internal/services"
	pkgerrors "github.com/moynul/taptosell-server/pkg/errors"
)

type Handler struct {
	payments      service.PaymentService
	subscriptions service.SubscriptionService
	auth          service.AuthService
	content       service.ContentService
	cards         service.CardService
}

func NewHandler(
	payments service.PaymentService,
	subscriptions service.SubscriptionService,
	authSvc service.AuthService,
	content service.ContentService,
	cards service.CardService,
) *Handler {
	return &Handler{
		payments:      payments,
		subscriptions: subscriptions,
		auth:          authSvc,
		content:       content,
		cards:         cards,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{Error: err.Error()})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (h *Handler) RegisterPublicRoutes(r *mux.Router) {
	r.HandleFunc("/register", h.Register).Methods("POST")
	r.HandleFunc("/login", h.Login).Methods("POST")
}

func (h *Handler) RegisterProtectedRoutes(r *mux.Router) {
	r.HandleFunc("/transfer", h.Transfer).Methods("POST")
	r.HandleFunc("/transfer/{reference}/verify", h.VerifyTransfer).Methods("POST")
	r.HandleFunc("/balance", h.Balance).Methods("GET")
	r.HandleFunc("/history", h.History).Methods("GET")
	r.HandleFunc("/subscriptions", h.Subscribe).Methods("POST")
	r.HandleFunc("/subscriptions/active", h.ActiveSubscription).Methods("GET")
	r.HandleFunc("/subscriptions/{id}/cancel", h.CancelSubscription).Methods("POST")
	r.HandleFunc("/listings", h.CreateListing).Methods("POST")
	r.HandleFunc("/listings", h.ListListings).Methods("GET")
	r.HandleFunc("/listings/{id}", h.GetListing).Methods("GET")
	r.HandleFunc("/listings/{id}", h.UpdateListing).Methods("PUT")
	r.HandleFunc("/listings/{id}", h.DeleteListing).Methods("DELETE")
	r.HandleFunc("/card", h.Card).Methods("GET")
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Phone    string `json:"phone"`
		Name     string `json:"name"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	vendor, err := h.auth.Register(r.Context(), req.Phone, req.Name, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, pkgerrors.ErrVendorExists):
			h.writeError(w, http.StatusConflict, err)
		case errors.Is(err, pkgerrors.ErrValidation):
			h.writeError(w, http.StatusBadRequest, err)
		default:
			h.writeError(w, http.StatusInternalServerError, err)
		}
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]interface{}{"vendor_id": vendor.ID})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Phone    string `json:"phone"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	token, err := h.auth.Login(r.Context(), req.Phone, req.Password)
	if err != nil {
		if errors.Is(err, pkgerrors.ErrInvalidCredentials) {
			h.writeError(w, http.StatusUnauthorized, err)
		} else {
			h.writeError(w, http.StatusInternalServerError, err)
		}
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (h *Handler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FromPhone string  `json:"from_phone"`
		ToPhone   string  `json:"to_phone"`
		Amount    float64 `json:"amount"`
		Service   string  `json:"service"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	amount, err := fees.MinorUnits(req.Amount)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	result, err := h.payments.Transfer(r.Context(), service.TransferRequest{
		FromPhone: req.FromPhone,
		ToPhone:   req.ToPhone,
		Amount:    amount,
		Service:   req.Service,
		RequestID: r.Header.Get("Idempotency-Key"),
	})
	if err != nil {
		switch {
		case errors.Is(err, pkgerrors.ErrValidation):
			h.writeError(w, http.StatusBadRequest, err)
		case errors.Is(err, pkgerrors.ErrRequestAlreadyProcessed):
			h.writeError(w, http.StatusConflict, err)
		case errors.Is(err, pkgerrors.ErrGatewayRejected):
			h.writeJSON(w, http.StatusPaymentRequired, result)
		default:
			h.writeError(w, http.StatusInternalServerError, err)
		}
		return
	}

	// pending verification is not a failure; the caller gets the
	// reference and reconciles later
	if result.Status == models.StatusPendingVerification {
		h.writeJSON(w, http.StatusAccepted, result)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) VerifyTransfer(w http.ResponseWriter, r *http.Request) {
	ref := mux.Vars(r)["reference"]

	tx, err := h.payments.VerifyTransfer(r.Context(), ref)
	if err != nil {
		switch {
		case errors.Is(err, pkgerrors.ErrTransactionNotFound):
			h.writeError(w, http.StatusNotFound, err)
		case errors.Is(err, pkgerrors.ErrGatewayUnavailable), errors.Is(err, pkgerrors.ErrGatewayTimeout):
			h.writeError(w, http.StatusBadGateway, err)
		default:
			h.writeError(w, http.StatusInternalServerError, err)
		}
		return
	}

	h.writeJSON(w, http.StatusOK, tx)
}

func (h *Handler) Balance(w http.ResponseWriter, r *http.Request) {
	phone := r.URL.Query().Get("phone")

	balance, err := h.payments.Balance(r.Context(), phone)
	if err != nil {
		switch {
		case errors.Is(err, pkgerrors.ErrValidation):
			h.writeError(w, http.StatusBadRequest, err)
		case errors.Is(err, pkgerrors.ErrGatewayUnavailable), errors.Is(err, pkgerrors.ErrGatewayTimeout):
			h.writeError(w, http.StatusBadGateway, err)
		default:
			h.writeError(w, http.StatusInternalServerError, err)
		}
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]int64{"balance": balance})
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	phone := r.URL.Query().Get("phone")

	transactions, err := h.payments.History(r.Context(), phone)
	if err != nil {
		if errors.Is(err, pkgerrors.ErrValidation) {
			h.writeError(w, http.StatusBadRequest, err)
		} else {
			h.writeError(w, http.StatusInternalServerError, err)
		}
		return
	}

	h.writeJSON(w, http.StatusOK, transactions)
}

func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request) {
	vendorID, ok := auth.VendorID(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, errors.New("vendor not authenticated"))
		return
	}

	var req struct {
		PlanType     string  `json:"plan_type"`
		Amount       float64 `json:"amount"`
		DurationDays int     `json:"duration_days"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	amount, err := fees.MinorUnits(req.Amount)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	sub, err := h.subscriptions.Create(r.Context(), vendorID, req.PlanType, amount, time.Now().UTC(), req.DurationDays)
	if err != nil {
		switch {
		case errors.Is(err, pkgerrors.ErrActiveSubscriptionExists):
			h.writeError(w, http.StatusConflict, err)
		case errors.Is(err, pkgerrors.ErrValidation):
			h.writeError(w, http.StatusBadRequest, err)
		default:
			h.writeError(w, http.StatusInternalServerError, err)
		}
		return
	}

	h.writeJSON(w, http.StatusCreated, sub)
}

func (h *Handler) ActiveSubscription(w http.ResponseWriter, r *http.Request) {
	vendorID, ok := auth.VendorID(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, errors.New("vendor not authenticated"))
		return
	}

	sub, err := h.subscriptions.FindActive(r.Context(), vendorID)
	if err != nil {
		if errors.Is(err, pkgerrors.ErrSubscriptionNotFound) {
			h.writeError(w, http.StatusNotFound, err)
		} else {
			h.writeError(w, http.StatusInternalServerError, err)
		}
		return
	}

	h.writeJSON(w, http.StatusOK, sub)
}

func (h *Handler) CancelSubscription(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, errors.New("invalid subscription id"))
		return
	}

	if err := h.subscriptions.Cancel(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, pkgerrors.ErrSubscriptionNotFound):
			h.writeError(w, http.StatusNotFound, err)
		case errors.Is(err, pkgerrors.ErrInvalidTransition):
			h.writeError(w, http.StatusConflict, err)
		default:
			h.writeError(w, http.StatusInternalServerError, err)
		}
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

func (h *Handler) CreateListing(w http.ResponseWriter, r *http.Request) {
	vendorID, ok := auth.VendorID(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, errors.New("vendor not authenticated"))
		return
	}

	var req struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Price       int64  `json:"price"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	listing, err := h.content.CreateListing(r.Context(), vendorID, req.Title, req.Description, req.Price)
	if err != nil {
		switch {
		case errors.Is(err, pkgerrors.ErrValidation):
			h.writeError(w, http.StatusBadRequest, err)
		case errors.Is(err, pkgerrors.ErrSubscriptionNotFound):
			h.writeError(w, http.StatusForbidden, err)
		default:
			h.writeError(w, http.StatusInternalServerError, err)
		}
		return
	}

	h.writeJSON(w, http.StatusCreated, listing)
}

func (h *Handler) ListListings(w http.ResponseWriter, r *http.Request) {
	vendorID, ok := auth.VendorID(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, errors.New("vendor not authenticated"))
		return
	}

	listings, err := h.content.ListListings(r.Context(), vendorID)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}

	h.writeJSON(w, http.StatusOK, listings)
}

func (h *Handler) GetListing(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, errors.New("invalid listing id"))
		return
	}

	listing, err := h.content.GetListing(r.Context(), id)
	if err != nil {
		if errors.Is(err, pkgerrors.ErrListingNotFound) {
			h.writeError(w, http.StatusNotFound, err)
		} else {
			h.writeError(w, http.StatusInternalServerError, err)
		}
		return
	}

	h.writeJSON(w, http.StatusOK, listing)
}

func (h *Handler) UpdateListing(w http.ResponseWriter, r *http.Request) {
	vendorID, ok := auth.VendorID(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, errors.New("vendor not authenticated"))
		return
	}

	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, errors.New("invalid listing id"))
		return
	}

	var req struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Price       int64  `json:"price"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	listing, err := h.content.UpdateListing(r.Context(), vendorID, id, req.Title, req.Description, req.Price)
	if err != nil {
		switch {
		case errors.Is(err, pkgerrors.ErrListingNotFound):
			h.writeError(w, http.StatusNotFound, err)
		case errors.Is(err, pkgerrors.ErrValidation):
			h.writeError(w, http.StatusBadRequest, err)
		default:
			h.writeError(w, http.StatusInternalServerError, err)
		}
		return
	}

	h.writeJSON(w, http.StatusOK, listing)
}

func (h *Handler) DeleteListing(w http.ResponseWriter, r *http.Request) {
	vendorID, ok := auth.VendorID(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, errors.New("vendor not authenticated"))
		return
	}

	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, errors.New("invalid listing id"))
		return
	}

	if err := h.content.DeleteListing(r.Context(), vendorID, id); err != nil {
		if errors.Is(err, pkgerrors.ErrListingNotFound) {
			h.writeError(w, http.StatusNotFound, err)
		} else {
			h.writeError(w, http.StatusInternalServerError, err)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Card(w http.ResponseWriter, r *http.Request) {
	vendorID, ok := auth.VendorID(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, errors.New("vendor not authenticated"))
		return
	}

	artifact, err := h.cards.RenderForVendor(r.Context(), vendorID)
	if err != nil {
		if errors.Is(err, pkgerrors.ErrVendorNotFound) {
			h.writeError(w, http.StatusNotFound, err)
		} else {
			h.writeError(w, http.StatusInternalServerError, err)
		}
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename=virtual-card.html")
	w.Write(artifact)
}
