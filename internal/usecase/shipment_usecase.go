package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shipwise-backend/internal/domain"
	"shipwise-backend/pkg/cache"
	"shipwise-backend/pkg/logger"
	"shipwise-backend/pkg/metrics"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	defaultClaimTTL = 2 * time.Minute
	defaultTrackTTL = 5 * time.Minute
)

// CourierQuoter prices a shipment for one courier. Implemented by RateUsecase.
type CourierQuoter interface {
	QuoteCourier(ctx context.Context, req domain.QuoteRequest, courierID int) (decimal.Decimal, error)
}

type ShipmentOptions struct {
	Events domain.EventPublisher // optional
	Labels domain.LabelArchiver  // optional
	Clock  domain.Clock
	// ClaimTTL is how long a booking claim blocks other attempts on the same
	// order before it is considered abandoned.
	ClaimTTL time.Duration
	// Quotes prices merchant bookings. Without it Ship refuses to assign a
	// courier.
	Quotes CourierQuoter
	// AllowZeroCharges lets orders without a positive charge be booked.
	AllowZeroCharges bool
	// TrackCache holds tracking views served to Track for TrackTTL. Optional.
	TrackCache cache.CacheService
	TrackTTL   time.Duration
}

// ShipmentUsecase drives an order through its shipping lifecycle: booking,
// pickup, labels, cancellation and tracking updates, keeping the wallet and
// the COD remittance in step with the carrier.
type ShipmentUsecase struct {
	orders     domain.OrderRepository
	warehouses domain.WarehouseRepository
	router     domain.CourierRouter
	wallet     *WalletUsecase
	remittance *RemittanceUsecase
	txManager  domain.TransactionManager
	events     domain.EventPublisher
	labels     domain.LabelArchiver
	clock      domain.Clock
	claimTTL   time.Duration
	quotes     CourierQuoter
	allowZero  bool
	trackCache cache.CacheService
	trackTTL   time.Duration
}

func NewShipmentUsecase(
	orders domain.OrderRepository,
	warehouses domain.WarehouseRepository,
	router domain.CourierRouter,
	wallet *WalletUsecase,
	remittance *RemittanceUsecase,
	txManager domain.TransactionManager,
	opts ShipmentOptions,
) *ShipmentUsecase {
	u := &ShipmentUsecase{
		orders:     orders,
		warehouses: warehouses,
		router:     router,
		wallet:     wallet,
		remittance: remittance,
		txManager:  txManager,
		events:     opts.Events,
		labels:     opts.Labels,
		clock:      opts.Clock,
		claimTTL:   opts.ClaimTTL,
		quotes:     opts.Quotes,
		allowZero:  opts.AllowZeroCharges,
		trackCache: opts.TrackCache,
		trackTTL:   opts.TrackTTL,
	}
	if u.clock == nil {
		u.clock = domain.SystemClock{}
	}
	if u.claimTTL <= 0 {
		u.claimTTL = defaultClaimTTL
	}
	if u.trackTTL <= 0 {
		u.trackTTL = defaultTrackTTL
	}
	return u
}

func (u *ShipmentUsecase) orderLogger(ctx context.Context, order *domain.Order) zerolog.Logger {
	l := logger.WithOrderID(ctx, order.ID)
	if order.CourierID != nil {
		kind, _ := u.router.Kind(*order.CourierID)
		l = logger.WithCarrier(l, string(kind), *order.CourierID)
	}
	return l
}

// --- Transitions ---

// transition moves the order with a compare-and-set, then records history and
// publishes the change. The order is updated in place on success.
func (u *ShipmentUsecase) transition(ctx context.Context, order *domain.Order, to domain.OrderStatus, reason string) error {
	from := order.Status
	if err := u.orders.CompareAndSetStatus(ctx, order.ID, from, to); err != nil {
		return err
	}
	order.Status = to
	u.recordTransition(ctx, order.ID, from, to, reason)
	return nil
}

func (u *ShipmentUsecase) recordTransition(ctx context.Context, orderID string, from, to domain.OrderStatus, reason string) {
	l := logger.WithOrderID(ctx, orderID)
	h := &domain.OrderHistory{OrderID: orderID, PreviousStatus: &from, NewStatus: to}
	if reason != "" {
		h.Reason = &reason
	}
	if err := u.orders.CreateOrderHistory(ctx, h); err != nil {
		l.Error().Err(err).Msg("Failed to record order history")
	}
	if u.events != nil {
		change := domain.OrderStatusChange{OrderID: orderID, Before: from, After: to}
		if err := u.events.PublishStatusChange(ctx, change); err != nil {
			l.Warn().Err(err).Msg("Failed to publish status change")
		}
	}
	l.Info().Str("from", string(from)).Str("to", string(to)).Str("reason", reason).Msg("Order status changed")
}

// --- Booking ---

// Ship assigns a courier to an unshipped order and books it at the courier's
// current marked-up rate. Calling it again on an order that is already booked
// returns the order unchanged.
func (u *ShipmentUsecase) Ship(ctx context.Context, orderID string, courierID int) (*domain.Order, error) {
	order, err := u.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.IsBooked() {
		return order, nil
	}

	switch order.Status {
	case domain.OrderStatusUnshipped:
		if _, err := u.router.Resolve(courierID); err != nil {
			return nil, err
		}
		charges, err := u.price(ctx, order, courierID)
		if err != nil {
			return nil, err
		}
		order.CourierID = &courierID
		order.CourierCharges = charges
		if err := u.orders.Update(ctx, order); err != nil {
			return nil, err
		}
		if err := u.transition(ctx, order, domain.OrderStatusReadyToShip, "courier assigned"); err != nil {
			return nil, err
		}
	case domain.OrderStatusReadyToShip:
		// A previous attempt was interrupted between phases; resume it.
	default:
		return nil, fmt.Errorf("%w: cannot ship from %s", domain.ErrInvalidTransition, order.Status)
	}

	if err := u.book(ctx, order); err != nil {
		return order, err
	}
	return order, nil
}

// price re-quotes the order for courierID.
func (u *ShipmentUsecase) price(ctx context.Context, order *domain.Order, courierID int) (decimal.Decimal, error) {
	if u.quotes == nil {
		return decimal.Zero, fmt.Errorf("%w: no rate source", domain.ErrChargesMissing)
	}
	w, err := u.pickupWarehouse(ctx, order)
	if err != nil {
		return decimal.Zero, err
	}
	p := order.Payload
	charges, err := u.quotes.QuoteCourier(ctx, domain.QuoteRequest{
		OriginPincode: w.Pincode,
		DestPincode:   p.Consignee().Pincode,
		COD:           order.IsCOD(),
		Weight:        p.Weight,
		Dimensions:    domain.Dimensions{Length: p.Length, Breadth: p.Breadth, Height: p.Height},
		DeclaredValue: p.SubTotal,
	}, courierID)
	if err != nil {
		return decimal.Zero, err
	}
	if !charges.IsPositive() && !u.allowZero {
		return decimal.Zero, domain.ErrChargesMissing
	}
	return charges, nil
}

// book runs the carrier booking for an order already in READY TO SHIP. On
// return the order is either booked and charged, or back in UNSHIPPED with
// the reason stored.
func (u *ShipmentUsecase) book(ctx context.Context, order *domain.Order) error {
	if order.IsBooked() {
		return nil
	}
	log := u.orderLogger(ctx, order)

	if order.CourierID == nil {
		err := fmt.Errorf("%w: no courier assigned", domain.ErrUnknownCourier)
		u.failBooking(ctx, order, err)
		return err
	}
	adapter, err := u.router.Resolve(*order.CourierID)
	if err != nil {
		u.failBooking(ctx, order, err)
		return err
	}
	if !order.CourierCharges.IsPositive() && !u.allowZero {
		err := domain.ErrChargesMissing
		u.failBooking(ctx, order, err)
		return err
	}

	claimed, err := u.orders.ClaimBooking(ctx, order.ID, u.claimTTL)
	if err != nil {
		return err
	}
	if !claimed {
		log.Info().Msg("Booking skipped, order already booked or claimed")
		return domain.ErrBookingInProgress
	}
	claimedAt := u.clock.Now()
	order.BookingClaimedAt = &claimedAt

	req, err := u.shipmentRequest(ctx, order)
	if err != nil {
		u.failBooking(ctx, order, err)
		return err
	}

	if err := u.wallet.EnsureFunds(ctx, order.UserID, order.CourierCharges); err != nil {
		log.Warn().Err(err).Msg("Booking refused before carrier call")
		order.WalletError = domain.FailureMessage(err)
		u.revertBooking(ctx, order, "wallet check failed: "+order.WalletError)
		return err
	}

	booking, err := u.createShipment(ctx, adapter, order, req)
	if err != nil {
		metrics.BookingsTotal.WithLabelValues(string(adapter.Kind()), "carrier_error").Inc()
		log.Warn().Err(err).Msg("Carrier booking failed")
		u.failBooking(ctx, order, err)
		return err
	}

	if err := u.commitBooking(ctx, order, booking); errors.Is(err, domain.ErrStatusConflict) {
		metrics.BookingsTotal.WithLabelValues(string(adapter.Kind()), "superseded").Inc()
		log.Warn().Str("awb", firstNonEmpty(booking.AWB, booking.LRN)).Msg("Order left READY TO SHIP during booking, cancelling at carrier")
		u.abandonBooking(ctx, adapter, order, booking)
		return err
	} else if err != nil {
		metrics.BookingsTotal.WithLabelValues(string(adapter.Kind()), "wallet_error").Inc()
		metrics.WalletFailuresTotal.WithLabelValues("booking").Inc()
		log.Error().Err(err).Str("awb", firstNonEmpty(booking.AWB, booking.LRN)).Msg("Wallet debit failed after booking, compensating")
		u.compensateBooking(ctx, adapter, order, booking, err)
		return err
	}

	metrics.BookingsTotal.WithLabelValues(string(adapter.Kind()), "success").Inc()
	log.Info().Str("awb", order.TrackingRef()).Str("charges", order.CourierCharges.StringFixed(2)).Msg("Order booked")

	if order.IsCOD() {
		if err := u.remittance.OnShipped(ctx, order); err != nil {
			log.Error().Err(err).Msg("Failed to open COD remittance")
		}
	}
	return nil
}

// createShipment books with the carrier. Two-phase carriers persist the
// intermediate ids so an interrupted booking resumes at the second phase.
func (u *ShipmentUsecase) createShipment(ctx context.Context, adapter domain.CarrierAdapter, order *domain.Order, req domain.ShipmentRequest) (*domain.Booking, error) {
	tp, ok := adapter.(domain.TwoPhaseBooker)
	if !ok {
		return adapter.CreateShipment(ctx, req)
	}

	progress := order.BookingProgress()
	if progress.Phase == domain.BookingPhaseNone {
		var err error
		progress, err = tp.CreateOrder(ctx, req)
		if err != nil {
			return nil, err
		}
		order.BookingPhase = progress.Phase
		order.ShiprocketOrderID = progress.ShiprocketOrderID
		order.ShipmentID = progress.ShipmentID
		if err := u.orders.Update(ctx, order); err != nil {
			return nil, err
		}
	}
	return tp.AssignAWB(ctx, progress, req.CourierID)
}

// commitBooking stores the carrier references and debits the wallet in one
// transaction. The store is a compare-and-set on READY TO SHIP, so a cancel
// that lands while the carrier call is in flight fails it with
// ErrStatusConflict and nothing is charged.
func (u *ShipmentUsecase) commitBooking(ctx context.Context, order *domain.Order, booking *domain.Booking) error {
	next := *order
	next.AWB = booking.AWB
	next.LRN = booking.LRN
	if booking.ShipmentID != "" {
		next.ShipmentID = booking.ShipmentID
	}
	if booking.ShiprocketOrderID != "" {
		next.ShiprocketOrderID = booking.ShiprocketOrderID
	}
	if next.BookingPhase != domain.BookingPhaseNone {
		next.BookingPhase = domain.BookingPhaseAWBAssigned
	}
	next.ErrorMessage = ""
	next.WalletError = ""
	next.UnbilledAWB = ""
	next.BookingClaimedAt = nil

	err := u.txManager.Do(ctx, func(ctx context.Context) error {
		if err := u.orders.SaveBooking(ctx, &next); err != nil {
			return err
		}
		if order.CourierCharges.IsPositive() {
			_, err := u.wallet.ApplyDelta(ctx, domain.WalletDelta{
				UserID:         order.UserID,
				Amount:         order.CourierCharges.Neg(),
				Reason:         fmt.Sprintf("Shipping charges for order %s", order.OrderID),
				OrderID:        order.ID,
				IdempotencyKey: "booking:" + order.ID,
			})
			if err != nil && !errors.Is(err, domain.ErrDuplicateTransaction) {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	*order = next
	return nil
}

// compensateBooking cancels a booking that could not be charged and puts the
// order back to UNSHIPPED. When the carrier refuses the cancel the reference
// is kept in unbilled_awb for manual reconciliation.
func (u *ShipmentUsecase) compensateBooking(ctx context.Context, adapter domain.CarrierAdapter, order *domain.Order, booking *domain.Booking, cause error) {
	log := u.orderLogger(ctx, order)

	order.WalletError = domain.FailureMessage(cause)
	cancelErr := adapter.CancelShipment(ctx, domain.CancelRequest{
		AWB:               booking.AWB,
		LRN:               booking.LRN,
		ShiprocketOrderID: firstNonEmpty(booking.ShiprocketOrderID, order.ShiprocketOrderID),
	})
	if cancelErr != nil {
		order.UnbilledAWB = firstNonEmpty(booking.AWB, booking.LRN)
		log.Error().Err(cancelErr).Str("awb", order.UnbilledAWB).Msg("Compensating cancel failed, shipment booked but not charged")
	}
	order.BookingPhase = domain.BookingPhaseNone
	order.ShiprocketOrderID = ""
	order.ShipmentID = ""

	u.revertBooking(ctx, order, "wallet debit failed: "+order.WalletError)
}

// abandonBooking cancels a booking whose order moved on (usually to
// CANCELLED) while the carrier call was in flight. The order keeps its new
// status; only the claim and phase fields are released.
func (u *ShipmentUsecase) abandonBooking(ctx context.Context, adapter domain.CarrierAdapter, order *domain.Order, booking *domain.Booking) {
	log := u.orderLogger(ctx, order)

	cancelErr := adapter.CancelShipment(ctx, domain.CancelRequest{
		AWB:               booking.AWB,
		LRN:               booking.LRN,
		ShiprocketOrderID: firstNonEmpty(booking.ShiprocketOrderID, order.ShiprocketOrderID),
	})
	if cancelErr != nil {
		order.UnbilledAWB = firstNonEmpty(booking.AWB, booking.LRN)
		log.Error().Err(cancelErr).Str("awb", order.UnbilledAWB).Msg("Cancel of superseded booking failed, shipment booked but not charged")
	}
	order.BookingPhase = domain.BookingPhaseNone
	order.ShiprocketOrderID = ""
	order.ShipmentID = ""
	order.BookingClaimedAt = nil
	if err := u.orders.Update(ctx, order); err != nil {
		log.Error().Err(err).Msg("Failed to release booking claim")
	}
}

// failBooking stores the carrier's reason and puts the order back to UNSHIPPED.
func (u *ShipmentUsecase) failBooking(ctx context.Context, order *domain.Order, cause error) {
	order.ErrorMessage = domain.FailureMessage(cause)
	u.revertBooking(ctx, order, "booking failed: "+order.ErrorMessage)
}

func (u *ShipmentUsecase) revertBooking(ctx context.Context, order *domain.Order, reason string) {
	log := u.orderLogger(ctx, order)
	order.BookingClaimedAt = nil
	if err := u.orders.Update(ctx, order); err != nil {
		log.Error().Err(err).Msg("Failed to store booking failure")
	}
	if order.Status != domain.OrderStatusReadyToShip {
		return
	}
	if err := u.transition(ctx, order, domain.OrderStatusUnshipped, reason); err != nil {
		log.Error().Err(err).Msg("Failed to revert order to UNSHIPPED")
	}
}

func (u *ShipmentUsecase) pickupWarehouse(ctx context.Context, order *domain.Order) (*domain.Warehouse, error) {
	if order.PickupLocation == "" {
		return nil, fmt.Errorf("%w: order has no pickup location", domain.ErrWarehouseNotFound)
	}
	w, err := u.warehouses.GetByName(ctx, order.PickupLocation)
	if err != nil {
		if errors.Is(err, domain.ErrWarehouseNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrWarehouseNotFound, order.PickupLocation)
		}
		return nil, err
	}
	return w, nil
}

func (u *ShipmentUsecase) shipmentRequest(ctx context.Context, order *domain.Order) (domain.ShipmentRequest, error) {
	w, err := u.pickupWarehouse(ctx, order)
	if err != nil {
		return domain.ShipmentRequest{}, err
	}
	p := order.Payload
	orderDate := order.CreatedAt
	if t, err := time.Parse(time.DateOnly, p.OrderDate); err == nil {
		orderDate = t
	} else if t, err := time.Parse(time.RFC3339, p.OrderDate); err == nil {
		orderDate = t
	}

	req := domain.ShipmentRequest{
		OrderRef:      order.ID,
		OrderID:       firstNonEmpty(p.OrderID, order.OrderID),
		OrderDate:     orderDate,
		CourierID:     *order.CourierID,
		PaymentMethod: firstNonEmpty(p.PaymentMethod, domain.PaymentMethodPrepaid),
		COD:           order.IsCOD(),
		SubTotal:      p.SubTotal,
		Weight:        p.Weight,
		Dimensions:    domain.Dimensions{Length: p.Length, Breadth: p.Breadth, Height: p.Height},
		Pickup:        *w,
		Billing:       p.Billing,
		Consignee:     p.Consignee(),
		Items:         p.Items,
	}
	if req.COD {
		req.CODAmount = p.SubTotal
	}
	return req, nil
}

// --- Pickup ---

// SchedulePickup requests a carrier pickup for a booked order.
func (u *ShipmentUsecase) SchedulePickup(ctx context.Context, orderID string, at time.Time) (*domain.Pickup, error) {
	order, err := u.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.IsBooked() {
		return nil, domain.ErrNotBooked
	}
	if order.Status != domain.OrderStatusReadyToShip {
		return nil, fmt.Errorf("%w: cannot schedule pickup from %s", domain.ErrInvalidTransition, order.Status)
	}
	if err := u.transition(ctx, order, domain.OrderStatusPickupScheduled, "pickup requested"); err != nil {
		return nil, err
	}
	return u.requestPickup(ctx, order, at)
}

// requestPickup calls the carrier for an order already in PICKUP SCHEDULED
// and reverts it to READY TO SHIP on failure.
func (u *ShipmentUsecase) requestPickup(ctx context.Context, order *domain.Order, at time.Time) (*domain.Pickup, error) {
	log := u.orderLogger(ctx, order)
	if at.IsZero() {
		at = u.clock.Now()
	}

	pickup, err := u.callPickup(ctx, order, at)
	if err != nil {
		log.Warn().Err(err).Msg("Pickup request failed")
		order.ErrorMessage = domain.FailureMessage(err)
		if uerr := u.orders.Update(ctx, order); uerr != nil {
			log.Error().Err(uerr).Msg("Failed to store pickup failure")
		}
		if terr := u.transition(ctx, order, domain.OrderStatusReadyToShip, "pickup failed: "+order.ErrorMessage); terr != nil {
			log.Error().Err(terr).Msg("Failed to revert order to READY TO SHIP")
		}
		return nil, err
	}

	order.PickupRequestID = pickup.PickupID
	order.ErrorMessage = ""
	if err := u.orders.Update(ctx, order); err != nil {
		return nil, err
	}
	log.Info().Str("pickup_id", pickup.PickupID).Time("scheduled_for", pickup.ScheduledFor).Msg("Pickup scheduled")
	return pickup, nil
}

func (u *ShipmentUsecase) callPickup(ctx context.Context, order *domain.Order, at time.Time) (*domain.Pickup, error) {
	if order.CourierID == nil {
		return nil, domain.ErrNotBooked
	}
	adapter, err := u.router.Resolve(*order.CourierID)
	if err != nil {
		return nil, err
	}
	w, err := u.pickupWarehouse(ctx, order)
	if err != nil {
		return nil, err
	}
	return adapter.RequestPickup(ctx, domain.PickupRequest{
		AWB:        order.AWB,
		LRN:        order.LRN,
		ShipmentID: order.ShipmentID,
		Warehouse:  *w,
		At:         at,
		Packages:   1,
	})
}

// --- Labels ---

// GenerateLabel returns the stored label or asks the carrier for one. A
// pending label stores the job id; its URL arrives on the label webhook.
func (u *ShipmentUsecase) GenerateLabel(ctx context.Context, orderID string) (*domain.Label, error) {
	order, err := u.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.IsBooked() || order.CourierID == nil {
		return nil, domain.ErrNotBooked
	}
	if order.LabelURL != "" {
		return &domain.Label{URL: order.LabelURL}, nil
	}
	adapter, err := u.router.Resolve(*order.CourierID)
	if err != nil {
		return nil, err
	}

	label, err := adapter.GenerateLabel(ctx, domain.LabelRequest{
		AWB:        order.AWB,
		LRN:        order.LRN,
		ShipmentID: order.ShipmentID,
	})
	if err != nil {
		return nil, err
	}
	jobID, url := "", label.URL
	if label.Pending {
		jobID, url = label.JobID, ""
	}
	if err := u.orders.SetLabel(ctx, order.ID, jobID, url); err != nil {
		return nil, err
	}

	// The label webhook may have landed while the carrier call was running.
	stored, err := u.orders.GetByID(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	if stored.LabelURL != "" {
		return &domain.Label{URL: stored.LabelURL, JobID: stored.LabelJobID}, nil
	}
	return label, nil
}

// HandleFreightLabelWebhook stores the label URL delivered by the freight
// carrier. Repeated deliveries and unknown LRNs are acknowledged without
// side effects.
func (u *ShipmentUsecase) HandleFreightLabelWebhook(ctx context.Context, hook domain.LabelWebhook) error {
	log := logger.WithContext(ctx).With().Str("lrn", hook.LRN).Str("job_id", hook.JobID).Logger()

	if hook.LRN == "" {
		log.Warn().Msg("Label webhook without LRN ignored")
		return nil
	}
	if !hook.Success || hook.PDFURL == "" {
		log.Warn().Str("status", hook.Status).Msg("Label webhook reported failure")
		return nil
	}

	order, err := u.orders.GetByLRN(ctx, hook.LRN)
	if errors.Is(err, domain.ErrOrderNotFound) {
		log.Warn().Msg("Label webhook for unknown LRN acknowledged")
		return nil
	}
	if err != nil {
		return err
	}
	if order.LabelURL != "" && (order.LabelURL == hook.PDFURL || order.LabelJobID == hook.JobID) {
		log.Debug().Msg("Duplicate label webhook")
		return nil
	}

	labelURL := hook.PDFURL
	if u.labels != nil {
		key := fmt.Sprintf("labels/%s/%s.pdf", hook.LRN, firstNonEmpty(hook.JobID, "label"))
		archived, err := u.labels.ArchiveLabel(ctx, key, hook.PDFURL)
		if err != nil {
			log.Warn().Err(err).Msg("Label archive failed, storing carrier URL")
		} else {
			labelURL = archived
		}
	}

	changed, err := u.orders.SetLabelByLRN(ctx, hook.LRN, hook.JobID, labelURL)
	if err != nil {
		return err
	}
	if changed {
		log.Info().Str("order_id", order.ID).Msg("Label stored")
	}
	return nil
}

// --- Cancellation ---

// CancelResult reports the carrier cancellation and the refund separately;
// an order can be cancelled while its refund still needs reconciling.
type CancelResult struct {
	Cancelled   bool            `json:"cancelled"`
	Refunded    bool            `json:"refunded"`
	RefundError string          `json:"refundError,omitempty"`
	Amount      decimal.Decimal `json:"refundAmount"`
}

func (u *ShipmentUsecase) Cancel(ctx context.Context, orderID string) (*CancelResult, error) {
	order, err := u.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status == domain.OrderStatusCancelled {
		res := &CancelResult{Cancelled: true}
		if order.RefundError != "" && order.IsBooked() {
			u.refund(ctx, order, res)
		}
		return res, nil
	}
	if order.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: order is %s", domain.ErrInvalidTransition, order.Status)
	}
	if u.bookingInFlight(order) {
		return nil, domain.ErrBookingInProgress
	}

	prev := order.Status
	if err := u.transition(ctx, order, domain.OrderStatusCancelled, "cancellation requested"); err != nil {
		return nil, err
	}
	return u.cancelShipment(ctx, order, prev)
}

// bookingInFlight reports whether another call holds a live booking claim.
func (u *ShipmentUsecase) bookingInFlight(order *domain.Order) bool {
	if order.IsBooked() || order.BookingClaimedAt == nil {
		return false
	}
	return u.clock.Now().Sub(*order.BookingClaimedAt) < u.claimTTL
}

// cancelShipment runs the carrier side of a cancellation for an order that is
// already CANCELLED, reverting it to prev if the carrier refuses.
func (u *ShipmentUsecase) cancelShipment(ctx context.Context, order *domain.Order, prev domain.OrderStatus) (*CancelResult, error) {
	log := u.orderLogger(ctx, order)
	res := &CancelResult{}

	if !order.IsBooked() {
		metrics.CancellationsTotal.WithLabelValues("unbooked").Inc()
		res.Cancelled = true
		return res, nil
	}
	if order.CarrierCancelledAt != nil {
		log.Debug().Msg("Carrier already cancelled, settling refund only")
		res.Cancelled = true
		u.refund(ctx, order, res)
		return res, nil
	}

	if err := u.callCancel(ctx, order); err != nil {
		metrics.CancellationsTotal.WithLabelValues("carrier_error").Inc()
		if refunded, herr := u.wallet.Applied(ctx, "refund:"+order.ID); herr == nil && refunded {
			log.Warn().Err(err).Msg("Carrier refused cancel of an order already refunded, keeping CANCELLED")
			res.Cancelled, res.Refunded = true, true
			return res, nil
		}
		log.Warn().Err(err).Msg("Carrier cancellation failed")
		order.ErrorMessage = domain.FailureMessage(err)
		if uerr := u.orders.Update(ctx, order); uerr != nil {
			log.Error().Err(uerr).Msg("Failed to store cancellation failure")
		}
		if terr := u.transition(ctx, order, prev, "cancellation failed: "+order.ErrorMessage); terr != nil {
			log.Error().Err(terr).Msg("Failed to revert cancelled order")
		}
		return res, err
	}
	res.Cancelled = true
	metrics.CancellationsTotal.WithLabelValues("success").Inc()
	u.markCarrierCancelled(ctx, order)

	u.refund(ctx, order, res)

	if order.IsCOD() && prev != domain.OrderStatusUnshipped {
		if err := u.remittance.OnCancelledAfterShipping(ctx, order); err != nil {
			log.Error().Err(err).Msg("Failed to update COD remittance")
		}
	}
	return res, nil
}

func (u *ShipmentUsecase) markCarrierCancelled(ctx context.Context, order *domain.Order) {
	now := u.clock.Now()
	order.CarrierCancelledAt = &now
	if err := u.orders.MarkCarrierCancelled(ctx, order.ID, now); err != nil {
		l := u.orderLogger(ctx, order)
		l.Error().Err(err).Msg("Failed to record carrier cancellation")
	}
}

// refund credits the booking charges back. A failure leaves the order
// CANCELLED with refund_error set for reconciliation.
func (u *ShipmentUsecase) refund(ctx context.Context, order *domain.Order, res *CancelResult) {
	if !order.CourierCharges.IsPositive() {
		return
	}
	log := u.orderLogger(ctx, order)
	res.Amount = order.CourierCharges

	_, err := u.wallet.ApplyDelta(ctx, domain.WalletDelta{
		UserID:         order.UserID,
		Amount:         order.CourierCharges,
		Reason:         fmt.Sprintf("Refund for cancelled order %s", order.OrderID),
		OrderID:        order.ID,
		IdempotencyKey: "refund:" + order.ID,
	})
	if err == nil || errors.Is(err, domain.ErrDuplicateTransaction) {
		res.Refunded = true
		if order.RefundError != "" {
			order.RefundError = ""
			if uerr := u.orders.Update(ctx, order); uerr != nil {
				log.Error().Err(uerr).Msg("Failed to clear refund error")
			}
		}
		return
	}

	metrics.WalletFailuresTotal.WithLabelValues("refund").Inc()
	log.Error().Err(err).Msg("Refund failed for cancelled order")
	res.RefundError = err.Error()
	order.RefundError = res.RefundError
	if uerr := u.orders.Update(ctx, order); uerr != nil {
		log.Error().Err(uerr).Msg("Failed to store refund failure")
	}
}

func (u *ShipmentUsecase) callCancel(ctx context.Context, order *domain.Order) error {
	if order.CourierID == nil {
		return domain.ErrNotBooked
	}
	adapter, err := u.router.Resolve(*order.CourierID)
	if err != nil {
		return err
	}
	return adapter.CancelShipment(ctx, domain.CancelRequest{
		AWB:               order.AWB,
		LRN:               order.LRN,
		ShiprocketOrderID: order.ShiprocketOrderID,
	})
}

// --- Tracking ---

// ApplyTracking moves the order to the status implied by a tracking result.
// Terminal orders never change and the status only moves forward, except for
// the RTO, LOST and CANCELLED exits. It reports whether the order changed.
func (u *ShipmentUsecase) ApplyTracking(ctx context.Context, order *domain.Order, result *domain.TrackingResult) (bool, error) {
	if result == nil {
		return false, nil
	}
	target, ok := result.Status.OrderStatus()
	if !ok || !domain.CanTransition(order.Status, target) {
		return false, nil
	}

	err := u.transition(ctx, order, target, "tracking: "+firstNonEmpty(result.RawStatus, string(result.Status)))
	if errors.Is(err, domain.ErrStatusConflict) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if target == domain.OrderStatusCancelled {
		u.flagCarrierCancel(ctx, order)
	}
	u.applyRemittance(ctx, order)
	return true, nil
}

// flagCarrierCancel handles a cancel reported by the carrier itself: nothing
// is cancelled on our side, so a charged order is flagged with refund_error
// until an operator confirms the refund through Cancel.
func (u *ShipmentUsecase) flagCarrierCancel(ctx context.Context, order *domain.Order) {
	if !order.IsBooked() {
		return
	}
	u.markCarrierCancelled(ctx, order)
	if !order.CourierCharges.IsPositive() {
		return
	}
	if refunded, err := u.wallet.Applied(ctx, "refund:"+order.ID); err != nil || refunded {
		return
	}
	log := u.orderLogger(ctx, order)
	metrics.WalletFailuresTotal.WithLabelValues("carrier_cancel").Inc()
	log.Warn().Str("charges", order.CourierCharges.StringFixed(2)).Msg("Carrier cancelled a charged shipment, flagged for refund")
	order.RefundError = "cancelled by carrier; charges not refunded"
	if err := u.orders.Update(ctx, order); err != nil {
		log.Error().Err(err).Msg("Failed to flag carrier cancellation")
	}
}

// applyRemittance updates the COD remittance after the order reached a
// status that affects it.
func (u *ShipmentUsecase) applyRemittance(ctx context.Context, order *domain.Order) {
	if !order.IsCOD() {
		return
	}
	var err error
	switch order.Status {
	case domain.OrderStatusDelivered:
		err = u.remittance.OnDelivered(ctx, order)
	case domain.OrderStatusRTO:
		err = u.remittance.OnRTO(ctx, order)
	case domain.OrderStatusCancelled:
		if order.IsBooked() {
			err = u.remittance.OnCancelledAfterShipping(ctx, order)
		}
	}
	if err != nil {
		l := logger.WithOrderID(ctx, order.ID)
		l.Error().Err(err).Str("status", string(order.Status)).Msg("Failed to update COD remittance")
	}
}

type TrackingView struct {
	OrderID      string                    `json:"orderId"`
	AWB          string                    `json:"awb,omitempty"`
	LRN          string                    `json:"lrn,omitempty"`
	Status       domain.OrderStatus        `json:"current_status"`
	Activities   []domain.TrackingActivity `json:"activities"`
	Origin       string                    `json:"origin,omitempty"`
	Destination  string                    `json:"destination,omitempty"`
	ExpectedDate *time.Time                `json:"expected_date,omitempty"`
}

// Track looks the order up by AWB, then by LRN, polls the carrier and folds
// the result into the order. With a track cache, a view younger than the
// track TTL is served without calling the carrier.
func (u *ShipmentUsecase) Track(ctx context.Context, ref string) (*TrackingView, error) {
	key := "track:" + ref
	if u.trackCache != nil {
		if v, ok := u.trackCache.Get(key); ok {
			if view, ok := v.(TrackingView); ok {
				return &view, nil
			}
		}
	}

	order, err := u.orders.GetByAWB(ctx, ref)
	if errors.Is(err, domain.ErrOrderNotFound) {
		order, err = u.orders.GetByLRN(ctx, ref)
	}
	if err != nil {
		return nil, err
	}
	result, err := u.trackOrder(ctx, order)
	if err != nil {
		return nil, err
	}
	if _, err := u.ApplyTracking(ctx, order, result); err != nil {
		l := logger.WithOrderID(ctx, order.ID)
		l.Warn().Err(err).Msg("Failed to apply tracking result")
	}

	activities := result.Activities
	if activities == nil {
		activities = []domain.TrackingActivity{}
	}
	view := TrackingView{
		OrderID:      order.ID,
		AWB:          order.AWB,
		LRN:          order.LRN,
		Status:       order.Status,
		Activities:   activities,
		Origin:       result.Origin,
		Destination:  result.Destination,
		ExpectedDate: result.ExpectedDate,
	}
	if u.trackCache != nil {
		u.trackCache.Set(key, view, u.trackTTL)
	}
	return &view, nil
}

func (u *ShipmentUsecase) trackOrder(ctx context.Context, order *domain.Order) (*domain.TrackingResult, error) {
	if !order.IsBooked() || order.CourierID == nil {
		return nil, domain.ErrNotBooked
	}
	adapter, err := u.router.Resolve(*order.CourierID)
	if err != nil {
		return nil, err
	}
	return adapter.TrackShipment(ctx, domain.TrackRequest{AWB: order.AWB, LRN: order.LRN})
}

func (u *ShipmentUsecase) Order(ctx context.Context, orderID string) (*domain.Order, error) {
	return u.orders.GetByID(ctx, orderID)
}

func (u *ShipmentUsecase) History(ctx context.Context, orderID string) ([]domain.OrderHistory, error) {
	if _, err := u.orders.GetByID(ctx, orderID); err != nil {
		return nil, err
	}
	return u.orders.GetOrderHistory(ctx, orderID)
}

// --- Status change notifications ---

// OnStatusChange reacts to a status change made by the storefront. The order
// is expected to already be in change.After.
func (u *ShipmentUsecase) OnStatusChange(ctx context.Context, change domain.OrderStatusChange) error {
	order, err := u.orders.GetByID(ctx, change.OrderID)
	if err != nil {
		return err
	}
	log := u.orderLogger(ctx, order).With().
		Str("before", string(change.Before)).
		Str("after", string(change.After)).
		Logger()

	if order.Status != change.After {
		log.Info().Str("current", string(order.Status)).Msg("Stale status change ignored")
		return nil
	}

	switch {
	case change.Before == domain.OrderStatusUnshipped && change.After == domain.OrderStatusReadyToShip:
		err := u.book(ctx, order)
		if errors.Is(err, domain.ErrBookingInProgress) {
			return nil
		}
		return err

	case change.Before == domain.OrderStatusReadyToShip && change.After == domain.OrderStatusPickupScheduled:
		_, err := u.requestPickup(ctx, order, time.Time{})
		return err

	case change.After == domain.OrderStatusCancelled:
		if change.Before.IsTerminal() {
			return nil
		}
		_, err := u.cancelShipment(ctx, order, change.Before)
		return err

	case change.After == domain.OrderStatusDelivered, change.After == domain.OrderStatusRTO:
		u.applyRemittance(ctx, order)
		return nil
	}

	log.Debug().Msg("No action for status change")
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
