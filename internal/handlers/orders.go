package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/AmolSonawane1026/order-service/internal/platform/auth"
	"github.com/AmolSonawane1026/order-service/internal/platform/httpx"
	"github.com/AmolSonawane1026/order-service/internal/platform/observability"
	"github.com/AmolSonawane1026/order-service/internal/platform/pagination"
	"github.com/AmolSonawane1026/order-service/internal/services"
)

const (
	maxOrderBodySize = 64 * 1024

	customerPageSize = 10
	staffPageSize    = 20
)

var (
	customerListing = pagination.Options{DefaultLimit: customerPageSize, MaxLimit: pagination.MaxLimit}
	staffListing    = pagination.Options{DefaultLimit: staffPageSize, MaxLimit: pagination.MaxLimit}

	errInvalidBody = httpx.NewError(http.StatusBadRequest, "Invalid request body")
	errNoIdentity  = httpx.NewError(http.StatusUnauthorized, "No token provided. Authorization denied.")
)

type orderItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type addressRequest struct {
	Name      string `json:"name"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
	Street    string `json:"street"`
	City      string `json:"city"`
	State     string `json:"state"`
	ZipCode   string `json:"zipCode"`
	Country   string `json:"country"`
	Landmark  string `json:"landmark"`
}

type createOrderRequest struct {
	Items           []orderItemRequest `json:"items"`
	ShippingAddress *addressRequest    `json:"shippingAddress"`
	BillingAddress  *addressRequest    `json:"billingAddress"`
	PaymentMethod   string             `json:"paymentMethod"`
	Notes           string             `json:"notes"`
}

type trackingRequest struct {
	Carrier           string     `json:"carrier"`
	TrackingNumber    string     `json:"trackingNumber"`
	TrackingURL       string     `json:"trackingUrl"`
	EstimatedDelivery *time.Time `json:"estimatedDelivery"`
	ActualDelivery    *time.Time `json:"actualDelivery"`
}

type updateStatusRequest struct {
	Status       string           `json:"status"`
	TrackingInfo *trackingRequest `json:"trackingInfo"`
	Notes        *string          `json:"notes"`
}

type cancelOrderRequest struct {
	Reason string `json:"reason"`
}

type orderPayload struct {
	Order services.OrderView `json:"order"`
}

type createOrderPayload struct {
	Order       services.OrderView `json:"order"`
	CheckoutURL *string            `json:"checkoutUrl"`
}

type statusStatPayload struct {
	Status      string `json:"_id"`
	Count       int64  `json:"count"`
	TotalAmount int64  `json:"totalAmount"`
}

type statsPayload struct {
	Stats        []statusStatPayload `json:"stats"`
	TotalOrders  int64               `json:"totalOrders"`
	TotalRevenue int64               `json:"totalRevenue"`
}

// OrderHandlers exposes the /api/orders endpoints.
type OrderHandlers struct {
	orders services.OrderService
}

// NewOrderHandlers constructs a new OrderHandlers instance.
func NewOrderHandlers(orders services.OrderService) *OrderHandlers {
	return &OrderHandlers{orders: orders}
}

// Routes registers the order endpoints. The caller is expected to have
// authenticated the request already.
func (h *OrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	staff := auth.Authorize(auth.RoleSeller, auth.RoleAdmin)
	admin := auth.Authorize(auth.RoleAdmin)

	r.Post("/", h.createOrder)
	r.Get("/my-orders", h.listMyOrders)
	r.With(staff).Get("/seller/orders", h.listSellerOrders)
	r.With(admin).Get("/admin/all", h.listAllOrders)
	r.With(staff).Get("/admin/stats", h.orderStats)
	r.Get("/{orderID}", h.getOrder)
	r.Patch("/{orderID}/cancel", h.cancelOrder)
	r.With(staff).Patch("/{orderID}/status", h.updateStatus)
}

func (h *OrderHandlers) createOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := actorFromContext(ctx)
	if !ok {
		httpx.WriteError(ctx, w, errNoIdentity)
		return
	}

	var req createOrderRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		httpx.WriteError(ctx, w, errInvalidBody)
		return
	}

	cmd := services.CreateOrderCommand{
		Actor:           actor,
		ShippingAddress: req.ShippingAddress.toInput(),
		BillingAddress:  req.BillingAddress.toInput(),
		PaymentMethod:   req.PaymentMethod,
		Notes:           req.Notes,
	}
	for _, item := range req.Items {
		cmd.Items = append(cmd.Items, services.OrderItemInput{ProductID: item.ProductID, Quantity: item.Quantity})
	}

	result, err := h.orders.Create(ctx, cmd)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	payload := createOrderPayload{Order: services.NewOrderView(result.Order)}
	if result.CheckoutURL != "" {
		url := result.CheckoutURL
		payload.CheckoutURL = &url
	}
	httpx.WriteSuccess(w, http.StatusCreated, "Order placed successfully", payload)
}

func (h *OrderHandlers) listMyOrders(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, services.ScopeCustomer, customerListing)
}

func (h *OrderHandlers) listSellerOrders(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, services.ScopeSeller, staffListing)
}

func (h *OrderHandlers) listAllOrders(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, services.ScopeAll, staffListing)
}

func (h *OrderHandlers) list(w http.ResponseWriter, r *http.Request, scope services.ListScope, opts pagination.Options) {
	ctx := r.Context()
	actor, ok := actorFromContext(ctx)
	if !ok {
		httpx.WriteError(ctx, w, errNoIdentity)
		return
	}

	params := pagination.FromRequest(r, opts)
	query := r.URL.Query()
	listQuery := services.ListOrdersQuery{
		Actor:  actor,
		Scope:  scope,
		Status: query.Get("status"),
		Sort:   query.Get("sort"),
		Page:   params.Page,
		Limit:  params.Limit,
	}
	if scope == services.ScopeAll {
		listQuery.CustomerID = query.Get("customerId")
	}

	page, err := h.orders.List(ctx, listQuery)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	httpx.WritePaginated(w, services.NewOrderViews(page.Items), httpx.NewPagination(params.Page, params.Limit, page.Total))
}

func (h *OrderHandlers) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := actorFromContext(ctx)
	if !ok {
		httpx.WriteError(ctx, w, errNoIdentity)
		return
	}
	order, err := h.orders.Get(ctx, actor, chi.URLParam(r, "orderID"))
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, "Order retrieved successfully", orderPayload{Order: services.NewOrderView(order)})
}

func (h *OrderHandlers) updateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := actorFromContext(ctx)
	if !ok {
		httpx.WriteError(ctx, w, errNoIdentity)
		return
	}

	var req updateStatusRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		httpx.WriteError(ctx, w, errInvalidBody)
		return
	}
	cmd := services.UpdateStatusCommand{
		Actor:   actor,
		OrderID: chi.URLParam(r, "orderID"),
		Status:  req.Status,
		Notes:   req.Notes,
	}
	if req.TrackingInfo != nil {
		cmd.Tracking = &services.TrackingInput{
			Carrier:           req.TrackingInfo.Carrier,
			TrackingNumber:    req.TrackingInfo.TrackingNumber,
			TrackingURL:       req.TrackingInfo.TrackingURL,
			EstimatedDelivery: req.TrackingInfo.EstimatedDelivery,
			ActualDelivery:    req.TrackingInfo.ActualDelivery,
		}
	}

	order, err := h.orders.UpdateStatus(ctx, cmd)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, "Order updated successfully", orderPayload{Order: services.NewOrderView(order)})
}

func (h *OrderHandlers) cancelOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := actorFromContext(ctx)
	if !ok {
		httpx.WriteError(ctx, w, errNoIdentity)
		return
	}

	var req cancelOrderRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		httpx.WriteError(ctx, w, errInvalidBody)
		return
	}

	order, err := h.orders.Cancel(ctx, services.CancelOrderCommand{
		Actor:   actor,
		OrderID: chi.URLParam(r, "orderID"),
		Reason:  req.Reason,
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, "Order cancelled successfully", orderPayload{Order: services.NewOrderView(order)})
}

func (h *OrderHandlers) orderStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := actorFromContext(ctx)
	if !ok {
		httpx.WriteError(ctx, w, errNoIdentity)
		return
	}
	stats, err := h.orders.Stats(ctx, actor)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	payload := statsPayload{
		Stats:        make([]statusStatPayload, 0, len(stats.ByStatus)),
		TotalOrders:  stats.TotalOrders,
		TotalRevenue: stats.TotalRevenue,
	}
	for _, stat := range stats.ByStatus {
		payload.Stats = append(payload.Stats, statusStatPayload{
			Status:      string(stat.Status),
			Count:       stat.Count,
			TotalAmount: stat.TotalAmount,
		})
	}
	httpx.WriteSuccess(w, http.StatusOK, "Order statistics retrieved successfully", payload)
}

func (a *addressRequest) toInput() *services.AddressInput {
	if a == nil {
		return nil
	}
	return &services.AddressInput{
		Name:      a.Name,
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Phone:     a.Phone,
		Email:     a.Email,
		Street:    a.Street,
		City:      a.City,
		State:     a.State,
		ZipCode:   a.ZipCode,
		Country:   a.Country,
		Landmark:  a.Landmark,
	}
}

func actorFromContext(ctx context.Context) (services.Actor, bool) {
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || strings.TrimSpace(identity.UserID) == "" {
		return services.Actor{}, false
	}
	return services.Actor{
		ID:    identity.UserID,
		Role:  strings.ToLower(identity.Role),
		Email: identity.Email,
	}, true
}

// decodeJSON reads a bounded JSON body. allowEmpty accepts a missing body.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, allowEmpty bool) error {
	body := http.MaxBytesReader(w, r.Body, maxOrderBodySize)
	defer body.Close()

	err := json.NewDecoder(body).Decode(dst)
	if errors.Is(err, io.EOF) && allowEmpty {
		return nil
	}
	return err
}

func writeOrderError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	message := ""
	var orderErr *services.OrderError
	if errors.As(err, &orderErr) {
		message = orderErr.Message
	}

	var status int
	switch {
	case errors.Is(err, services.ErrOrderInvalidInput),
		errors.Is(err, services.ErrProductUnavailable),
		errors.Is(err, services.ErrOrderConflict):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrOrderNotFound),
		errors.Is(err, services.ErrProductNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrOrderForbidden):
		status = http.StatusForbidden
	case errors.Is(err, services.ErrOrderInternal) && message != "":
		observability.FromContext(ctx).Error("request.error", zap.Error(err))
		httpx.WriteError(ctx, w, httpx.NewError(http.StatusInternalServerError, message))
		return
	default:
		observability.FromContext(ctx).Error("request.error", zap.Error(err))
		httpx.WriteError(ctx, w, httpx.ErrInternal)
		return
	}
	if message == "" {
		message = http.StatusText(status)
	}
	httpx.WriteError(ctx, w, httpx.NewError(status, message))
}
