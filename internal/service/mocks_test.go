package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/nikitamakarovs05-netizen/tg-market-bot/internal/domain"
)

// In-memory fakes implementing the repository contracts, shared across the
// service tests.

type memUsers struct {
	mu     sync.Mutex
	nextID int64
	byChat map[int64]*domain.User
}

func newMemUsers() *memUsers {
	return &memUsers{byChat: make(map[int64]*domain.User)}
}

func (m *memUsers) EnsureByChatID(_ context.Context, chatID int64, fullName, username string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.byChat[chatID]; ok {
		copied := *u
		return &copied, nil
	}
	m.nextID++
	u := &domain.User{
		ID:        m.nextID,
		ChatID:    chatID,
		FullName:  fullName,
		Username:  username,
		CreatedAt: time.Now(),
	}
	m.byChat[chatID] = u
	copied := *u
	return &copied, nil
}

func (m *memUsers) FindByChatID(_ context.Context, chatID int64) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byChat[chatID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (m *memUsers) FindByID(_ context.Context, id int64) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byChat {
		if u.ID == id {
			copied := *u
			return &copied, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memUsers) SetPhoneVerified(_ context.Context, chatID int64, phone string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byChat[chatID]
	if !ok {
		return domain.ErrNotFound
	}
	u.Phone = &phone
	u.Verified = true
	return nil
}

func (m *memUsers) SetEmailVerified(_ context.Context, userID int64, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byChat {
		if u.ID == userID {
			u.Email = &email
			u.Verified = true
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *memUsers) ListRecent(_ context.Context, limit int) ([]domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.User
	for _, u := range m.byChat {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type memProducts struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]*domain.Product
}

func newMemProducts() *memProducts {
	return &memProducts{byID: make(map[int64]*domain.Product)}
}

func (m *memProducts) Create(_ context.Context, title, description string, price int64, currency string, photoURL *string) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	p := &domain.Product{
		ID:          m.nextID,
		Title:       title,
		Description: description,
		Price:       price,
		Currency:    currency,
		PhotoURL:    photoURL,
		Active:      true,
	}
	m.byID[p.ID] = p
	copied := *p
	return &copied, nil
}

func (m *memProducts) GetByID(_ context.Context, id int64) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *p
	return &copied, nil
}

func (m *memProducts) ListActive(_ context.Context) ([]domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Product
	for _, p := range m.byID {
		if p.Active {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memProducts) SetActive(_ context.Context, id int64, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.Active = active
	return nil
}

func (m *memProducts) setPrice(id, price int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.byID[id]; ok {
		p.Price = price
	}
}

type memCarts struct {
	mu       sync.Mutex
	nextID   int64
	byUser   map[int64]*domain.Cart
	lines    map[int64]map[int64]int // cartID -> productID -> qty
	products *memProducts
}

func newMemCarts(products *memProducts) *memCarts {
	return &memCarts{
		byUser:   make(map[int64]*domain.Cart),
		lines:    make(map[int64]map[int64]int),
		products: products,
	}
}

func (m *memCarts) GetOrCreate(_ context.Context, userID int64) (*domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.byUser[userID]; ok {
		copied := *c
		return &copied, nil
	}
	m.nextID++
	c := &domain.Cart{ID: m.nextID, UserID: userID, UpdatedAt: time.Now()}
	m.byUser[userID] = c
	m.lines[c.ID] = make(map[int64]int)
	copied := *c
	return &copied, nil
}

func (m *memCarts) AddOrIncrement(_ context.Context, cartID, productID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lines[cartID][productID]++
	return nil
}

func (m *memCarts) Increment(_ context.Context, cartID, productID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.lines[cartID][productID]; ok {
		m.lines[cartID][productID]++
	}
	return nil
}

func (m *memCarts) Decrement(_ context.Context, cartID, productID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	qty, ok := m.lines[cartID][productID]
	if !ok {
		return nil
	}
	if qty > 1 {
		m.lines[cartID][productID] = qty - 1
	} else {
		delete(m.lines[cartID], productID)
	}
	return nil
}

func (m *memCarts) Remove(_ context.Context, cartID, productID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.lines[cartID], productID)
	return nil
}

func (m *memCarts) Lines(_ context.Context, cartID int64) ([]domain.CartLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.CartLine
	for pid, qty := range m.lines[cartID] {
		out = append(out, domain.CartLine{ProductID: pid, Qty: qty})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out, nil
}

func (m *memCarts) Snapshot(ctx context.Context, cartID int64) ([]domain.SnapshotLine, error) {
	lines, err := m.Lines(ctx, cartID)
	if err != nil {
		return nil, err
	}
	var out []domain.SnapshotLine
	for _, l := range lines {
		p, err := m.products.GetByID(ctx, l.ProductID)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.SnapshotLine{Product: *p, Qty: l.Qty})
	}
	return out, nil
}

type memOrders struct {
	mu      sync.Mutex
	nextID  int64
	orders  []*domain.Order
	carts   *memCarts
	failErr error // injected to abort CreateFromCart before any effect
}

func newMemOrders(carts *memCarts) *memOrders {
	return &memOrders{carts: carts}
}

func (m *memOrders) CreateFromCart(ctx context.Context, userID, cartID int64, address string, note *string) (*domain.Order, error) {
	if m.failErr != nil {
		return nil, m.failErr
	}

	snapshot, err := m.carts.Snapshot(ctx, cartID)
	if err != nil {
		return nil, err
	}
	total, currency, err := domain.SnapshotTotal(snapshot)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.nextID++
	order := &domain.Order{
		ID:        m.nextID,
		UserID:    userID,
		Amount:    total,
		Currency:  currency,
		Status:    domain.OrderPending,
		Address:   address,
		Note:      note,
		CreatedAt: time.Now(),
	}
	for _, l := range snapshot {
		order.Lines = append(order.Lines, domain.OrderLine{
			ProductID: l.Product.ID,
			Title:     l.Product.Title,
			Qty:       l.Qty,
			Price:     l.Product.Price,
		})
	}
	m.orders = append(m.orders, order)
	m.mu.Unlock()

	m.carts.mu.Lock()
	m.carts.lines[cartID] = make(map[int64]int)
	m.carts.mu.Unlock()

	copied := *order
	return &copied, nil
}

func (m *memOrders) GetByID(_ context.Context, id int64) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.ID == id {
			copied := *o
			return &copied, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memOrders) ListByUser(_ context.Context, userID int64, limit, offset int) ([]domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Order
	for _, o := range m.orders {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type memChallenges struct {
	mu          sync.Mutex
	nextID      int64
	rows        []*domain.EmailChallenge
	latestCalls int
}

func newMemChallenges() *memChallenges {
	return &memChallenges{}
}

func (m *memChallenges) Create(_ context.Context, userID int64, email, codeHash string, expiresAt time.Time) (*domain.EmailChallenge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	c := &domain.EmailChallenge{
		ID:        m.nextID,
		UserID:    userID,
		Email:     email,
		CodeHash:  codeHash,
		ExpiresAt: expiresAt,
	}
	m.rows = append(m.rows, c)
	copied := *c
	return &copied, nil
}

func (m *memChallenges) Latest(_ context.Context, userID int64) (*domain.EmailChallenge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latestCalls++
	now := time.Now()
	for i := len(m.rows) - 1; i >= 0; i-- {
		c := m.rows[i]
		if c.UserID == userID && c.Usable(now) {
			copied := *c
			return &copied, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memChallenges) Consume(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for _, c := range m.rows {
		if c.ID == id {
			if !c.Usable(now) {
				return false, nil
			}
			c.UsedAt = &now
			return true, nil
		}
	}
	return false, nil
}

func (m *memChallenges) DeleteExpired(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	var kept []*domain.EmailChallenge
	var deleted int64
	for _, c := range m.rows {
		if now.After(c.ExpiresAt) {
			deleted++
			continue
		}
		kept = append(kept, c)
	}
	m.rows = kept
	return deleted, nil
}

type capturingMailer struct {
	mu    sync.Mutex
	codes []string
	email string
	err   error
}

func (m *capturingMailer) SendVerificationCode(toEmail, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.email = toEmail
	m.codes = append(m.codes, code)
	return nil
}

func (m *capturingMailer) lastCode() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.codes) == 0 {
		return ""
	}
	return m.codes[len(m.codes)-1]
}

type capturingBus struct {
	mu        sync.Mutex
	published []publishedEvent
}

type publishedEvent struct {
	Subject string
	Data    interface{}
}

func (b *capturingBus) Publish(_ context.Context, subject string, data interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, publishedEvent{Subject: subject, Data: data})
	return nil
}

func (b *capturingBus) Close() error { return nil }

func (b *capturingBus) subjects() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []string
	for _, p := range b.published {
		out = append(out, p.Subject)
	}
	return out
}
