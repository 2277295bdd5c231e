package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"shipwise-backend/internal/domain"

	"github.com/shopspring/decimal"
)

// --- orders ---

type memOrders struct {
	mu      sync.Mutex
	orders  map[string]*domain.Order
	history []domain.OrderHistory
	now     func() time.Time
}

func newMemOrders(orders ...*domain.Order) *memOrders {
	m := &memOrders{orders: map[string]*domain.Order{}, now: time.Now}
	for _, o := range orders {
		cp := *o
		m.orders[o.ID] = &cp
	}
	return m
}

func (m *memOrders) get(id string) *domain.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *m.orders[id]
	return &cp
}

func (m *memOrders) snapshot() map[string]domain.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]domain.Order, len(m.orders))
	for id, o := range m.orders {
		out[id] = *o
	}
	return out
}

func (m *memOrders) restore(snap map[string]domain.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders = make(map[string]*domain.Order, len(snap))
	for id, o := range snap {
		m.orders[id] = &o
	}
}

func (m *memOrders) GetByID(_ context.Context, id string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *memOrders) find(match func(*domain.Order) bool) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if match(o) {
			cp := *o
			return &cp, nil
		}
	}
	return nil, domain.ErrOrderNotFound
}

func (m *memOrders) GetByAWB(_ context.Context, awb string) (*domain.Order, error) {
	return m.find(func(o *domain.Order) bool { return awb != "" && o.AWB == awb })
}

func (m *memOrders) GetByLRN(_ context.Context, lrn string) (*domain.Order, error) {
	return m.find(func(o *domain.Order) bool { return lrn != "" && o.LRN == lrn })
}

func (m *memOrders) GetAll(_ context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Order
	for _, o := range m.orders {
		if filter.UserID != "" && o.UserID != filter.UserID {
			continue
		}
		out = append(out, *o)
	}
	return out, nil
}

func (m *memOrders) CompareAndSetStatus(_ context.Context, id string, from, to domain.OrderStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return domain.ErrOrderNotFound
	}
	if o.Status != from {
		return domain.ErrStatusConflict
	}
	o.Status = to
	return nil
}

func (m *memOrders) ClaimBooking(_ context.Context, id string, staleAfter time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return false, domain.ErrOrderNotFound
	}
	if o.IsBooked() {
		return false, nil
	}
	now := m.now()
	if o.BookingClaimedAt != nil && o.BookingClaimedAt.After(now.Add(-staleAfter)) {
		return false, nil
	}
	o.BookingClaimedAt = &now
	return true, nil
}

// Update mirrors the SQL column list: status, references, labels and the
// cancel mark are left alone.
func (m *memOrders) Update(_ context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[order.ID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	kept := *o
	*o = *order
	o.Status = kept.Status
	o.AWB, o.LRN = kept.AWB, kept.LRN
	o.LabelURL, o.LabelJobID = kept.LabelURL, kept.LabelJobID
	o.CarrierCancelledAt = kept.CarrierCancelledAt
	return nil
}

func (m *memOrders) SaveBooking(_ context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[order.ID]
	if !ok || o.Status != domain.OrderStatusReadyToShip || o.IsBooked() {
		return domain.ErrStatusConflict
	}
	o.AWB, o.LRN = order.AWB, order.LRN
	o.ShipmentID, o.ShiprocketOrderID, o.BookingPhase = order.ShipmentID, order.ShiprocketOrderID, order.BookingPhase
	o.ErrorMessage, o.WalletError, o.UnbilledAWB = "", "", ""
	o.BookingClaimedAt = nil
	return nil
}

func (m *memOrders) SetLabel(_ context.Context, id, jobID, labelURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return domain.ErrOrderNotFound
	}
	if o.LabelJobID == "" {
		o.LabelJobID = jobID
	}
	if o.LabelURL == "" {
		o.LabelURL = labelURL
	}
	return nil
}

func (m *memOrders) MarkCarrierCancelled(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return domain.ErrOrderNotFound
	}
	if o.CarrierCancelledAt == nil {
		o.CarrierCancelledAt = &at
	}
	return nil
}

func (m *memOrders) SetLabelByLRN(_ context.Context, lrn, jobID, labelURL string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.LRN != lrn || o.LabelURL == labelURL {
			continue
		}
		o.LabelURL = labelURL
		if jobID != "" {
			o.LabelJobID = jobID
		}
		return true, nil
	}
	return false, nil
}

func (m *memOrders) ListTrackable(_ context.Context, limit int) ([]domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Order
	for _, o := range m.orders {
		if o.IsBooked() && !o.Status.IsTerminal() {
			out = append(out, *o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memOrders) CreateOrderHistory(_ context.Context, h *domain.OrderHistory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = append(m.history, *h)
	return nil
}

func (m *memOrders) GetOrderHistory(_ context.Context, orderID string) ([]domain.OrderHistory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.OrderHistory
	for _, h := range m.history {
		if h.OrderID == orderID {
			out = append(out, h)
		}
	}
	return out, nil
}

// --- warehouses ---

type memWarehouses struct {
	mu    sync.Mutex
	byID  map[string]*domain.Warehouse
	regs  map[string]map[string]domain.Registration
	order []string
}

func newMemWarehouses(ws ...domain.Warehouse) *memWarehouses {
	m := &memWarehouses{byID: map[string]*domain.Warehouse{}, regs: map[string]map[string]domain.Registration{}}
	for i := range ws {
		_ = m.Create(context.Background(), &ws[i])
	}
	return m
}

func (m *memWarehouses) Create(_ context.Context, w *domain.Warehouse) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.byID {
		if existing.Name == w.Name {
			return domain.ErrWarehouseExists
		}
	}
	if w.ID == "" {
		w.ID = fmt.Sprintf("wh-%d", len(m.byID)+1)
	}
	cp := *w
	m.byID[w.ID] = &cp
	m.order = append(m.order, w.ID)
	return nil
}

func (m *memWarehouses) GetByName(_ context.Context, name string) (*domain.Warehouse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, w := range m.byID {
		if w.Name == name {
			cp := *w
			cp.Registrations = m.regs[w.ID]
			return &cp, nil
		}
	}
	return nil, domain.ErrWarehouseNotFound
}

func (m *memWarehouses) SetRegistration(_ context.Context, id string, carrier domain.CarrierKind, reg domain.Registration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return domain.ErrWarehouseNotFound
	}
	if m.regs[id] == nil {
		m.regs[id] = map[string]domain.Registration{}
	}
	m.regs[id][string(carrier)] = reg
	return nil
}

// --- wallet ---

type memWallets struct {
	mu        sync.Mutex
	wallets   map[string]*domain.Wallet
	txs       []domain.WalletTransaction
	updateErr error
}

func newMemWallets() *memWallets {
	return &memWallets{wallets: map[string]*domain.Wallet{}}
}

func (m *memWallets) seed(userID string, balance string) {
	m.wallets[userID] = &domain.Wallet{UserID: userID, Balance: decimal.RequireFromString(balance)}
}

func (m *memWallets) balance(userID string) decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	if w, ok := m.wallets[userID]; ok {
		return w.Balance
	}
	return decimal.Zero
}

func (m *memWallets) transactions() []domain.WalletTransaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.WalletTransaction(nil), m.txs...)
}

func (m *memWallets) snapshot() (map[string]domain.Wallet, []domain.WalletTransaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	wallets := make(map[string]domain.Wallet, len(m.wallets))
	for id, w := range m.wallets {
		wallets[id] = *w
	}
	return wallets, append([]domain.WalletTransaction(nil), m.txs...)
}

func (m *memWallets) restore(wallets map[string]domain.Wallet, txs []domain.WalletTransaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.wallets = make(map[string]*domain.Wallet, len(wallets))
	for id, w := range wallets {
		m.wallets[id] = &w
	}
	m.txs = txs
}

func (m *memWallets) GetForUpdate(ctx context.Context, userID string) (*domain.Wallet, error) {
	return m.Get(ctx, userID)
}

func (m *memWallets) Get(_ context.Context, userID string) (*domain.Wallet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.wallets[userID]
	if !ok {
		return nil, domain.ErrWalletNotFound
	}
	cp := *w
	return &cp, nil
}

func (m *memWallets) Create(_ context.Context, userID string) (*domain.Wallet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.wallets[userID]; !ok {
		m.wallets[userID] = &domain.Wallet{UserID: userID, Balance: decimal.Zero}
	}
	cp := *m.wallets[userID]
	return &cp, nil
}

func (m *memWallets) UpdateBalance(_ context.Context, userID string, balance decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	w, ok := m.wallets[userID]
	if !ok {
		return domain.ErrWalletNotFound
	}
	w.Balance = balance
	return nil
}

func (m *memWallets) HasTransaction(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, tx := range m.txs {
		if tx.IdempotencyKey != nil && *tx.IdempotencyKey == key {
			return true, nil
		}
	}
	return false, nil
}

func (m *memWallets) AppendTransaction(_ context.Context, tx *domain.WalletTransaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if tx.IdempotencyKey != nil {
		for _, existing := range m.txs {
			if existing.IdempotencyKey != nil && *existing.IdempotencyKey == *tx.IdempotencyKey {
				return domain.ErrDuplicateTransaction
			}
		}
	}
	tx.ID = fmt.Sprintf("tx-%d", len(m.txs)+1)
	m.txs = append(m.txs, *tx)
	return nil
}

func (m *memWallets) ListTransactions(_ context.Context, userID string, limit, offset int) ([]domain.WalletTransaction, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var mine []domain.WalletTransaction
	for i := len(m.txs) - 1; i >= 0; i-- {
		if m.txs[i].UserID == userID {
			mine = append(mine, m.txs[i])
		}
	}
	total := int64(len(mine))
	if offset >= len(mine) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(mine) {
		end = len(mine)
	}
	return mine[offset:end], total, nil
}

// --- remittances ---

type memRemittances struct {
	mu   sync.Mutex
	rows map[string]*domain.Remittance
}

func newMemRemittances() *memRemittances {
	return &memRemittances{rows: map[string]*domain.Remittance{}}
}

func (m *memRemittances) get(orderID string) (domain.Remittance, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[orderID]
	if !ok {
		return domain.Remittance{}, false
	}
	return *r, true
}

func (m *memRemittances) Create(_ context.Context, r *domain.Remittance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[r.OrderID]; ok {
		return nil
	}
	cp := *r
	m.rows[r.OrderID] = &cp
	return nil
}

func (m *memRemittances) GetByOrderID(_ context.Context, orderID string) (*domain.Remittance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[orderID]
	if !ok {
		return nil, domain.ErrRemittanceNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memRemittances) Update(_ context.Context, r *domain.Remittance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[r.OrderID]; !ok {
		return domain.ErrRemittanceNotFound
	}
	cp := *r
	m.rows[r.OrderID] = &cp
	return nil
}

func (m *memRemittances) List(_ context.Context, f domain.RemittanceFilter) ([]domain.Remittance, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Remittance
	for _, r := range m.rows {
		if (f.UserID == "" || r.UserID == f.UserID) && (f.Status == "" || r.Status == f.Status) {
			out = append(out, *r)
		}
	}
	return out, int64(len(out)), nil
}

type staticProfiles map[string]string

func (p staticProfiles) GetEarlyCODSetting(_ context.Context, userID string) (string, error) {
	return p[userID], nil
}

// --- infrastructure ---

// passthroughTx runs fn directly; the in-memory repos have nothing to roll back.
type passthroughTx struct{}

func (passthroughTx) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// rollbackTx puts the in-memory orders and wallets back when fn fails, the
// way the database would.
type rollbackTx struct {
	orders  *memOrders
	wallets *memWallets
}

func (tx rollbackTx) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	orders := tx.orders.snapshot()
	wallets, txs := tx.wallets.snapshot()
	if err := fn(ctx); err != nil {
		tx.orders.restore(orders)
		tx.wallets.restore(wallets, txs)
		return err
	}
	return nil
}

// stubQuoter prices couriers from a fixed table.
type stubQuoter map[int]decimal.Decimal

func (q stubQuoter) QuoteCourier(_ context.Context, _ domain.QuoteRequest, courierID int) (decimal.Decimal, error) {
	rate, ok := q[courierID]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: courier %d", domain.ErrCourierNotQuoted, courierID)
	}
	return rate, nil
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

// stubRouter maps courier ids straight onto adapters.
type stubRouter struct {
	byID  map[int]domain.CarrierAdapter
	kinds map[int]domain.CarrierKind
	list  []domain.CarrierAdapter
}

func newStubRouter() *stubRouter {
	return &stubRouter{byID: map[int]domain.CarrierAdapter{}, kinds: map[int]domain.CarrierKind{}}
}

func (r *stubRouter) add(courierID int, kind domain.CarrierKind, a domain.CarrierAdapter) *stubRouter {
	r.byID[courierID] = a
	r.kinds[courierID] = kind
	r.list = append(r.list, a)
	return r
}

func (r *stubRouter) Resolve(courierID int) (domain.CarrierAdapter, error) {
	a, ok := r.byID[courierID]
	if !ok {
		return nil, fmt.Errorf("%w: %d", domain.ErrUnknownCourier, courierID)
	}
	return a, nil
}

func (r *stubRouter) Kind(courierID int) (domain.CarrierKind, bool) {
	k, ok := r.kinds[courierID]
	return k, ok
}

func (r *stubRouter) Adapter(kind domain.CarrierKind) (domain.CarrierAdapter, bool) {
	for id, k := range r.kinds {
		if k == kind {
			return r.byID[id], true
		}
	}
	return nil, false
}

func (r *stubRouter) Adapters() []domain.CarrierAdapter { return r.list }

var errDBDown = errors.New("db down")
