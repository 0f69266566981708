package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/AmolSonawane1026/order-service/internal/catalog"
	domain "github.com/AmolSonawane1026/order-service/internal/domain"
	"github.com/AmolSonawane1026/order-service/internal/notifications"
	"github.com/AmolSonawane1026/order-service/internal/payments"
	"github.com/AmolSonawane1026/order-service/internal/platform/textutil"
	"github.com/AmolSonawane1026/order-service/internal/repositories"
)

const (
	orderIDPrefix = "ord_"

	defaultCancelReason = "Cancelled by customer"
	maxNotesRunes       = 1000
	maxReasonRunes      = 500
	checkoutSessionTTL  = 30 * time.Minute
	detachedTimeout     = 5 * time.Second
)

// OrderServiceDeps bundles collaborators required to construct the order service.
type OrderServiceDeps struct {
	Orders   repositories.OrderRepository
	Counters repositories.CounterRepository
	Catalog  CatalogLookup
	Payments payments.Gateway
	Notifier Notifier
	Events   EventPublisher
	Metrics  OrderMetrics
	// FrontendURL is the storefront origin used for checkout redirects.
	FrontendURL string
	// Location fixes the calendar day used for order numbers. Defaults to time.Local.
	Location    *time.Location
	Clock       func() time.Time
	IDGenerator func() string
	Random      func(n int) int
	Logger      Logger
}

type orderService struct {
	orders      repositories.OrderRepository
	catalog     CatalogLookup
	payments    payments.Gateway
	notifier    Notifier
	events      EventPublisher
	metrics     OrderMetrics
	numbers     *orderNumbers
	frontendURL string
	clock       func() time.Time
	newID       func() string
	logger      Logger
}

// NewOrderService wires dependencies into a concrete OrderService implementation.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	if deps.Orders == nil {
		return nil, errors.New("order service: order repository is required")
	}
	if deps.Counters == nil {
		return nil, errors.New("order service: counter repository is required")
	}
	if deps.Catalog == nil {
		return nil, errors.New("order service: catalog lookup is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	newID := deps.IDGenerator
	if newID == nil {
		newID = func() string { return ulid.Make().String() }
	}
	random := deps.Random
	if random == nil {
		random = defaultRandom
	}
	location := deps.Location
	if location == nil {
		location = time.Local
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &orderService{
		orders:   deps.Orders,
		catalog:  deps.Catalog,
		payments: deps.Payments,
		notifier: deps.Notifier,
		events:   deps.Events,
		metrics:  deps.Metrics,
		numbers: &orderNumbers{
			counters: deps.Counters,
			location: location,
			clock:    clock,
			random:   random,
			logger:   logger,
			metrics:  deps.Metrics,
		},
		frontendURL: strings.TrimRight(strings.TrimSpace(deps.FrontendURL), "/"),
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:  newID,
		logger: logger,
	}, nil
}

func (s *orderService) Create(ctx context.Context, cmd CreateOrderCommand) (CreateOrderResult, error) {
	if strings.TrimSpace(cmd.Actor.ID) == "" {
		return CreateOrderResult{}, orderError(ErrOrderInvalidInput, "Authenticated customer is required")
	}
	if len(cmd.Items) == 0 {
		return CreateOrderResult{}, orderError(ErrOrderInvalidInput, "Order must contain at least one item")
	}
	quantities := make(map[string]int, len(cmd.Items))
	productIDs := make([]string, 0, len(cmd.Items))
	for _, item := range cmd.Items {
		id := strings.TrimSpace(item.ProductID)
		if id == "" || item.Quantity < 1 {
			return CreateOrderResult{}, orderError(ErrOrderInvalidInput, "Each item requires a productId and a positive quantity")
		}
		if _, seen := quantities[id]; !seen {
			productIDs = append(productIDs, id)
		}
		quantities[id] += item.Quantity
	}
	if !completeAddress(cmd.ShippingAddress) {
		return CreateOrderResult{}, orderError(ErrOrderInvalidInput, "Complete shipping address is required")
	}
	method := domain.PaymentMethod(strings.ToLower(strings.TrimSpace(cmd.PaymentMethod)))
	if !method.AcceptedAtCheckout() {
		return CreateOrderResult{}, orderError(ErrOrderInvalidInput, "Valid payment method is required (cod or stripe)")
	}

	products, err := s.catalog.GetProducts(ctx, productIDs)
	if err != nil {
		var missing *catalog.NotFoundError
		if errors.As(err, &missing) {
			return CreateOrderResult{}, &OrderError{
				Kind:    ErrProductNotFound,
				Message: fmt.Sprintf("Product %s not found", missing.ProductID),
				Err:     err,
			}
		}
		return CreateOrderResult{}, internalError("Failed to validate products", err)
	}

	lines := make([]domain.PriceLine, 0, len(cmd.Items))
	for _, item := range cmd.Items {
		id := strings.TrimSpace(item.ProductID)
		product, ok := products[id]
		if !ok {
			return CreateOrderResult{}, orderError(ErrProductNotFound, fmt.Sprintf("Product %s not found", id))
		}
		if !product.IsActive {
			return CreateOrderResult{}, orderError(ErrProductUnavailable, fmt.Sprintf("Product %q is not available", product.Name))
		}
		if product.Stock < quantities[id] {
			return CreateOrderResult{}, orderError(ErrProductUnavailable,
				fmt.Sprintf("Insufficient stock for %q. Available: %d", product.Name, product.Stock))
		}
		lines = append(lines, domain.PriceLine{Product: product, Quantity: item.Quantity})
	}

	pricing := domain.PriceOrder(lines)
	now := s.clock()

	shipping := buildAddress(*cmd.ShippingAddress)
	billing := shipping
	if cmd.BillingAddress != nil {
		billing = buildAddress(*cmd.BillingAddress)
	}
	email := strings.TrimSpace(cmd.Actor.Email)
	if email == "" {
		email = shipping.Email
	}

	status := domain.OrderStatusPaymentPending
	if method == domain.PaymentMethodCOD {
		status = domain.OrderStatusConfirmed
	}

	order := domain.Order{
		ID:              orderIDPrefix + s.newID(),
		OrderNumber:     s.numbers.next(ctx),
		CustomerID:      cmd.Actor.ID,
		CustomerEmail:   email,
		Items:           pricing.Items,
		SellerIDs:       domain.SellerIDsFor(pricing.Items),
		Subtotal:        pricing.Subtotal,
		Tax:             pricing.Tax,
		ShippingCharges: pricing.Shipping,
		Discount:        pricing.Discount,
		TotalAmount:     pricing.Total,
		Status:          status,
		Payment: domain.PaymentInfo{
			Method:   method,
			Status:   domain.PaymentStatusPending,
			Amount:   pricing.Total,
			Currency: domain.DefaultCurrency,
		},
		ShippingAddress: shipping,
		BillingAddress:  billing,
		Notes:           textutil.PlainText(cmd.Notes, maxNotesRunes),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	order.AppendTimeline(status, now)

	if err := s.orders.Insert(ctx, order); err != nil {
		return CreateOrderResult{}, s.mapRepositoryError(err, "Failed to create order")
	}

	var checkoutURL string
	if method == domain.PaymentMethodStripe {
		session, err := s.openCheckout(ctx, order, pricing)
		if err == nil {
			order.Payment.StripeSessionID = session.ID
			if session.IntentID != "" {
				order.Payment.StripePaymentIntentID = session.IntentID
			}
			order.UpdatedAt = s.clock()
			err = s.orders.Update(ctx, order)
		}
		if err != nil {
			s.discardOrder(ctx, order.ID)
			return CreateOrderResult{}, internalError("Failed to create payment session", err)
		}
		checkoutURL = session.URL
	}

	s.publish(ctx, domain.NewOrderEvent(domain.OrderEventCreated, order, "", now))
	if s.metrics != nil {
		s.metrics.OrderCreated(ctx, string(method), order.TotalAmount)
	}
	s.logger(ctx, "order.created", map[string]any{
		"orderId":       order.ID,
		"orderNumber":   order.OrderNumber,
		"customerId":    order.CustomerID,
		"paymentMethod": string(method),
		"totalAmount":   order.TotalAmount,
	})
	s.notify(ctx, order, notifications.TemplateOrderConfirmation,
		"Order Confirmation - "+order.OrderNumber, nil)

	return CreateOrderResult{Order: order, CheckoutURL: checkoutURL}, nil
}

// discardOrder removes an order whose checkout could not be attached. The
// delete runs detached from ctx so it still happens after the caller gives up.
func (s *orderService) discardOrder(ctx context.Context, orderID string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), detachedTimeout)
	defer cancel()
	if err := s.orders.Delete(ctx, orderID); err != nil {
		s.logger(ctx, "order.checkout.rollback_failed", map[string]any{
			"orderId": orderID,
			"error":   err,
		})
	}
}

func (s *orderService) openCheckout(ctx context.Context, order domain.Order, pricing domain.PricingBreakdown) (payments.CheckoutSession, error) {
	if s.payments == nil {
		return payments.CheckoutSession{}, errors.New("payment gateway not configured")
	}
	items := make([]payments.CheckoutLineItem, 0, len(order.Items)+2)
	for _, item := range order.Items {
		items = append(items, payments.CheckoutLineItem{
			Name:       item.Name,
			ImageURL:   item.Image,
			Quantity:   int64(item.Quantity),
			UnitAmount: item.Price,
		})
	}
	if pricing.Tax > 0 {
		items = append(items, payments.CheckoutLineItem{Name: "Tax (GST 18%)", Quantity: 1, UnitAmount: pricing.Tax})
	}
	if pricing.Shipping > 0 {
		items = append(items, payments.CheckoutLineItem{Name: "Shipping Charges", Quantity: 1, UnitAmount: pricing.Shipping})
	}

	return s.payments.CreateCheckoutSession(ctx, payments.CheckoutSessionRequest{
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		CustomerEmail: order.CustomerEmail,
		Currency:      order.Payment.Currency,
		SuccessURL:    fmt.Sprintf("%s/orders/%s?payment=success", s.frontendURL, order.ID),
		CancelURL:     s.frontendURL + "/checkout?payment=cancelled",
		ExpiresAt:     s.clock().Add(checkoutSessionTTL),
		Items:         items,
	})
}

func (s *orderService) List(ctx context.Context, query ListOrdersQuery) (domain.Page[domain.Order], error) {
	filter := repositories.OrderListFilter{Page: query.Page, Limit: query.Limit}

	switch query.Scope {
	case ScopeCustomer:
		if query.Actor.ID == "" {
			return domain.Page[domain.Order]{}, orderError(ErrOrderForbidden, "Access denied")
		}
		filter.CustomerID = query.Actor.ID
	case ScopeSeller:
		if query.Actor.ID == "" {
			return domain.Page[domain.Order]{}, orderError(ErrOrderForbidden, "Access denied")
		}
		filter.SellerID = query.Actor.ID
	case ScopeAll:
		if !query.Actor.IsAdmin() {
			return domain.Page[domain.Order]{}, orderError(ErrOrderForbidden, "Access denied")
		}
		filter.CustomerID = strings.TrimSpace(query.CustomerID)
	default:
		return domain.Page[domain.Order]{}, orderError(ErrOrderInvalidInput, "Invalid listing scope")
	}

	if raw := strings.TrimSpace(query.Status); raw != "" {
		status, ok := domain.ParseOrderStatus(raw)
		if !ok {
			return domain.Page[domain.Order]{}, orderError(ErrOrderInvalidInput, "Invalid order status")
		}
		filter.Status = status
	}
	sort, ok := domain.ParseOrderSort(query.Sort)
	if !ok {
		return domain.Page[domain.Order]{}, orderError(ErrOrderInvalidInput,
			"Invalid sort. Use createdAt, -createdAt, totalAmount or -totalAmount")
	}
	filter.Sort = sort

	page, err := s.orders.List(ctx, filter)
	if err != nil {
		return domain.Page[domain.Order]{}, s.mapRepositoryError(err, "Failed to fetch orders")
	}
	if page.Page == 0 {
		page.Page = filter.Page
	}
	if page.Limit == 0 {
		page.Limit = filter.Limit
	}
	return page, nil
}

func (s *orderService) Get(ctx context.Context, actor Actor, orderID string) (domain.Order, error) {
	order, err := s.find(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if !Can(actor, ActionView, order) {
		return domain.Order{}, orderError(ErrOrderForbidden, "Access denied")
	}
	return order, nil
}

func (s *orderService) UpdateStatus(ctx context.Context, cmd UpdateStatusCommand) (domain.Order, error) {
	rawStatus := strings.TrimSpace(cmd.Status)
	if rawStatus == "" && cmd.Tracking == nil && cmd.Notes == nil {
		return domain.Order{}, orderError(ErrOrderInvalidInput, "Nothing to update")
	}
	var target domain.OrderStatus
	if rawStatus != "" {
		status, ok := domain.ParseOrderStatus(rawStatus)
		if !ok {
			return domain.Order{}, orderError(ErrOrderInvalidInput, "Invalid order status")
		}
		target = status
	}

	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return domain.Order{}, orderError(ErrOrderInvalidInput, "Invalid order ID")
	}

	now := s.clock()
	var (
		previous domain.OrderStatus
		changed  bool
	)
	order, err := s.orders.Mutate(ctx, orderID, func(order *domain.Order) error {
		if !Can(cmd.Actor, ActionUpdateStatus, *order) {
			return orderError(ErrOrderForbidden, "Access denied")
		}
		previous = order.Status
		changed = target != "" && target != previous

		if changed {
			order.Status = target
			order.AppendTimeline(target, now)
			if target == domain.OrderStatusDelivered {
				if order.Payment.Method == domain.PaymentMethodCOD {
					order.Payment.Status = domain.PaymentStatusSucceeded
					paidAt := now
					order.Payment.PaidAt = &paidAt
				}
				if order.Tracking.ActualDelivery == nil {
					delivered := now
					order.Tracking.ActualDelivery = &delivered
				}
			}
		}
		if cmd.Tracking != nil {
			mergeTracking(&order.Tracking, *cmd.Tracking)
		}
		if cmd.Notes != nil {
			order.Notes = textutil.PlainText(*cmd.Notes, maxNotesRunes)
		}
		order.UpdatedAt = now
		return nil
	})
	if err != nil {
		return domain.Order{}, s.mutationError(err, "Failed to update order")
	}

	s.logger(ctx, "order.status.updated", map[string]any{
		"orderId":        order.ID,
		"orderNumber":    order.OrderNumber,
		"actorId":        cmd.Actor.ID,
		"previousStatus": string(previous),
		"status":         string(order.Status),
		"changed":        changed,
	})
	if changed {
		if s.metrics != nil {
			s.metrics.StatusChanged(ctx, string(previous), string(order.Status))
		}
		s.publish(ctx, domain.NewOrderEvent(domain.OrderEventStatusChanged, order, previous, now))
		s.notify(ctx, order, notifications.TemplateOrderStatusUpdate,
			"Order Update - "+order.OrderNumber, map[string]any{"previousStatus": string(previous)})
	}
	return order, nil
}

func (s *orderService) Cancel(ctx context.Context, cmd CancelOrderCommand) (domain.Order, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return domain.Order{}, orderError(ErrOrderInvalidInput, "Invalid order ID")
	}
	reason := textutil.PlainText(cmd.Reason, maxReasonRunes)
	if reason == "" {
		reason = defaultCancelReason
	}

	now := s.clock()
	var previous domain.OrderStatus
	order, err := s.orders.Mutate(ctx, orderID, func(order *domain.Order) error {
		if !Can(cmd.Actor, ActionCancel, *order) {
			return orderError(ErrOrderNotFound, "Order not found")
		}
		if !Cancellable(order.Status) {
			return orderError(ErrOrderConflict, "Order cannot be cancelled at this stage")
		}
		previous = order.Status
		order.Status = domain.OrderStatusCancelled
		order.CancelReason = reason
		order.AppendTimeline(domain.OrderStatusCancelled, now)
		order.UpdatedAt = now
		return nil
	})
	if err != nil {
		return domain.Order{}, s.mutationError(err, "Failed to cancel order")
	}

	// Refund only once the cancellation has committed.
	refund, refunded := s.refund(ctx, order)
	if refunded {
		order = s.recordRefund(ctx, order, refund)
	}

	if s.metrics != nil {
		s.metrics.OrderCancelled(ctx, refunded)
	}
	s.logger(ctx, "order.cancelled", map[string]any{
		"orderId":        order.ID,
		"orderNumber":    order.OrderNumber,
		"previousStatus": string(previous),
		"refunded":       refunded,
	})
	s.publish(ctx, domain.NewOrderEvent(domain.OrderEventCancelled, order, previous, now))
	s.notify(ctx, order, notifications.TemplateOrderStatusUpdate,
		"Order Cancelled - "+order.OrderNumber, map[string]any{"previousStatus": "active"})

	return order, nil
}

// refund issues a Stripe refund for captured card payments. Failures are logged
// and never block the cancellation.
func (s *orderService) refund(ctx context.Context, order domain.Order) (payments.Refund, bool) {
	if order.Payment.Status != domain.PaymentStatusSucceeded || order.Payment.StripePaymentIntentID == "" {
		return payments.Refund{}, false
	}
	if s.payments == nil {
		s.logger(ctx, "order.refund.failed", map[string]any{
			"orderId": order.ID,
			"error":   errors.New("payment gateway not configured"),
		})
		return payments.Refund{}, false
	}
	refund, err := s.payments.Refund(ctx, payments.RefundRequest{
		IntentID: order.Payment.StripePaymentIntentID,
		OrderID:  order.ID,
	})
	if err != nil {
		s.logger(ctx, "order.refund.failed", map[string]any{
			"orderId":  order.ID,
			"intentId": order.Payment.StripePaymentIntentID,
			"error":    err,
		})
		if s.metrics != nil {
			s.metrics.RefundFailed(ctx)
		}
		return payments.Refund{}, false
	}
	return refund, true
}

// recordRefund stores the refund on the cancelled order. The money has already
// moved, so the write is detached from ctx and a failure is only logged.
func (s *orderService) recordRefund(ctx context.Context, order domain.Order, refund payments.Refund) domain.Order {
	apply := func(o *domain.Order) error {
		o.Payment.Status = domain.PaymentStatusRefunded
		if refund.ID != "" {
			o.Payment.TransactionID = refund.ID
		}
		return nil
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), detachedTimeout)
	defer cancel()
	stored, err := s.orders.Mutate(writeCtx, order.ID, apply)
	if err != nil {
		s.logger(ctx, "order.refund.record_failed", map[string]any{
			"orderId":  order.ID,
			"refundId": refund.ID,
			"error":    err,
		})
		_ = apply(&order)
		return order
	}
	return stored
}

func (s *orderService) Stats(ctx context.Context, actor Actor) (domain.OrderStats, error) {
	var filter repositories.OrderStatsFilter
	switch {
	case actor.IsAdmin():
	case strings.EqualFold(actor.Role, RoleSeller) && actor.ID != "":
		filter.SellerID = actor.ID
	default:
		return domain.OrderStats{}, orderError(ErrOrderForbidden, "Access denied")
	}
	stats, err := s.orders.Stats(ctx, filter)
	if err != nil {
		return domain.OrderStats{}, s.mapRepositoryError(err, "Failed to fetch order statistics")
	}
	return stats, nil
}

func (s *orderService) find(ctx context.Context, orderID string) (domain.Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return domain.Order{}, orderError(ErrOrderInvalidInput, "Invalid order ID")
	}
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return domain.Order{}, s.mapRepositoryError(err, "Failed to fetch order")
	}
	return order, nil
}

func (s *orderService) publish(ctx context.Context, event domain.OrderEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger(ctx, "order.event.publish.failed", map[string]any{
			"orderId":   event.OrderID,
			"eventType": string(event.Type),
			"error":     err,
		})
	}
}

func (s *orderService) notify(ctx context.Context, order domain.Order, template, subject string, extra map[string]any) {
	if s.notifier == nil {
		return
	}
	data := map[string]any{
		"order":        NewOrderView(order),
		"customerName": order.ShippingAddress.FirstName,
	}
	for key, value := range extra {
		data[key] = value
	}
	s.notifier.Send(ctx, notifications.Email{
		To:       order.CustomerEmail,
		Subject:  subject,
		Template: template,
		Data:     data,
	})
}

// mutationError keeps the rejection returned from inside a Mutate callback and
// maps everything else as a repository failure.
func (s *orderService) mutationError(err error, message string) error {
	var orderErr *OrderError
	if errors.As(err, &orderErr) {
		return orderErr
	}
	return s.mapRepositoryError(err, message)
}

func (s *orderService) mapRepositoryError(err error, message string) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return &OrderError{Kind: ErrOrderNotFound, Message: "Order not found", Err: err}
		case repoErr.IsConflict():
			return &OrderError{Kind: ErrOrderConflict, Message: "Order already exists", Err: err}
		}
	}
	return internalError(message, err)
}

func completeAddress(addr *AddressInput) bool {
	if addr == nil {
		return false
	}
	for _, field := range []string{addr.Street, addr.City, addr.State, addr.ZipCode, addr.Phone} {
		if strings.TrimSpace(field) == "" {
			return false
		}
	}
	return true
}

func buildAddress(in AddressInput) domain.Address {
	firstName := strings.TrimSpace(in.FirstName)
	if firstName == "" {
		if fields := strings.Fields(in.Name); len(fields) > 0 {
			firstName = fields[0]
		}
	}
	if firstName == "" {
		firstName = domain.DefaultFirstName
	}
	lastName := strings.TrimSpace(in.LastName)
	if lastName == "" && strings.TrimSpace(in.FirstName) == "" {
		if fields := strings.Fields(in.Name); len(fields) > 1 {
			lastName = strings.Join(fields[1:], " ")
		}
	}
	country := strings.TrimSpace(in.Country)
	if country == "" {
		country = domain.DefaultCountry
	}
	return domain.Address{
		FirstName: firstName,
		LastName:  lastName,
		Phone:     strings.TrimSpace(in.Phone),
		Email:     strings.TrimSpace(in.Email),
		Street:    strings.TrimSpace(in.Street),
		City:      strings.TrimSpace(in.City),
		State:     strings.TrimSpace(in.State),
		ZipCode:   strings.TrimSpace(in.ZipCode),
		Country:   country,
		Landmark:  strings.TrimSpace(in.Landmark),
	}
}

func mergeTracking(dst *domain.TrackingInfo, in TrackingInput) {
	if v := strings.TrimSpace(in.Carrier); v != "" {
		dst.Carrier = v
	}
	if v := strings.TrimSpace(in.TrackingNumber); v != "" {
		dst.TrackingNumber = v
	}
	if v := strings.TrimSpace(in.TrackingURL); v != "" {
		dst.TrackingURL = v
	}
	if in.EstimatedDelivery != nil {
		t := in.EstimatedDelivery.UTC()
		dst.EstimatedDelivery = &t
	}
	if in.ActualDelivery != nil {
		t := in.ActualDelivery.UTC()
		dst.ActualDelivery = &t
	}
}
