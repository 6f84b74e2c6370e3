package usecase

import (
	"context"
	stderrors "errors"
	"sort"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"accountmarket/internal/domain/entity"
	"accountmarket/internal/domain/repository"
	"accountmarket/internal/domain/service"
	"accountmarket/pkg/errors"
)

func cloneTransaction(t *entity.Transaction) *entity.Transaction {
	c := *t
	c.TransferProgress = make([]entity.TransferStep, len(t.TransferProgress))
	for i, s := range t.TransferProgress {
		s.Instructions = append([]string(nil), s.Instructions...)
		c.TransferProgress[i] = s
	}
	return &c
}

// memTransactionRepo mirrors the Firestore repository, including the
// listing writes it makes in the same transaction.
type memTransactionRepo struct {
	mu           sync.Mutex
	transactions map[string]*entity.Transaction
	locks        map[string]string
	logs         []*entity.TransactionLog
	listings     *memListingRepo

	// failWrite, when set, rejects the write of a successful update.
	failWrite func(*entity.Transaction) error
}

func newMemTransactionRepo(listings *memListingRepo) *memTransactionRepo {
	return &memTransactionRepo{
		transactions: map[string]*entity.Transaction{},
		locks:        map[string]string{},
		listings:     listings,
	}
}

func (r *memTransactionRepo) CreateExclusive(ctx context.Context, transaction *entity.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listings.mu.Lock()
	defer r.listings.mu.Unlock()

	listing, ok := r.listings.listings[transaction.ListingID]
	if !ok {
		return errors.NotFound("Listing", nil)
	}
	if !listing.IsActive() {
		return errors.BadRequest("Listing is not available for purchase", nil)
	}
	if holder, ok := r.locks[transaction.ListingID]; ok {
		if existing, found := r.transactions[holder]; found && !existing.IsTerminal() {
			return errors.BadRequest("Listing already has an active transaction", nil)
		}
	}
	r.locks[transaction.ListingID] = transaction.ID
	r.transactions[transaction.ID] = cloneTransaction(transaction)
	return nil
}

func (r *memTransactionRepo) GetByID(ctx context.Context, id string) (*entity.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.transactions[id]
	if !ok {
		return nil, errors.NotFound("Transaction", nil)
	}
	return cloneTransaction(t), nil
}

func (r *memTransactionRepo) GetByGatewayOrderID(ctx context.Context, orderID string) (*entity.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.transactions {
		if orderID != "" && t.GatewayOrderID == orderID {
			return cloneTransaction(t), nil
		}
	}
	return nil, errors.NotFound("Transaction", nil)
}

func (r *memTransactionRepo) UpdateFn(ctx context.Context, id string, fn func(*entity.Transaction) error) (*entity.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.transactions[id]
	if !ok {
		return nil, errors.NotFound("Transaction", nil)
	}
	working := cloneTransaction(stored)
	wasTerminal := working.IsTerminal()
	if err := fn(working); err != nil {
		if stderrors.Is(err, repository.ErrNoChange) {
			return cloneTransaction(stored), nil
		}
		return nil, err
	}
	if r.failWrite != nil {
		if err := r.failWrite(working); err != nil {
			return nil, err
		}
	}
	if !wasTerminal && working.IsTerminal() && r.locks[working.ListingID] == working.ID {
		delete(r.locks, working.ListingID)
	}
	if !wasTerminal && working.Status == entity.TransactionStatusCompleted {
		r.listings.mu.Lock()
		if listing, ok := r.listings.listings[working.ListingID]; ok {
			listing.Status = entity.ListingStatusSold
		}
		r.listings.mu.Unlock()
	}
	r.transactions[id] = working
	return cloneTransaction(working), nil
}

func (r *memTransactionRepo) ListByUserID(ctx context.Context, userID, role, status string, limit, offset int) ([]*entity.Transaction, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.Transaction
	for _, t := range r.transactions {
		match := (role != entity.PartySeller && t.BuyerID == userID) || (role != entity.PartyBuyer && t.SellerID == userID)
		if match && (status == "" || t.Status == status) {
			out = append(out, cloneTransaction(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	total := int64(len(out))
	if offset >= len(out) {
		return nil, total, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, total, nil
}

func (r *memTransactionRepo) CountCreatedByBuyerSince(ctx context.Context, buyerID string, since time.Time, exclude []string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, t := range r.transactions {
		if t.BuyerID != buyerID || t.CreatedAt.Before(since) || contains(exclude, t.Status) {
			continue
		}
		count++
	}
	return count, nil
}

func (r *memTransactionRepo) ListDueForAutoRelease(ctx context.Context, now time.Time, limit int) ([]*entity.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.Transaction
	for _, t := range r.transactions {
		if t.Status == entity.TransactionStatusTransferCompleted && t.AutoReleaseAt != nil && !t.AutoReleaseAt.After(now) {
			out = append(out, cloneTransaction(t))
		}
	}
	return out, nil
}

func (r *memTransactionRepo) CreateLog(ctx context.Context, log *entity.TransactionLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, log)
	return nil
}

func (r *memTransactionRepo) ListLogsByTransactionID(ctx context.Context, transactionID string) ([]*entity.TransactionLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.TransactionLog
	for _, l := range r.logs {
		if l.TransactionID == transactionID {
			out = append(out, l)
		}
	}
	return out, nil
}

// put stores t directly, bypassing the listing lock.
func (r *memTransactionRepo) put(t *entity.Transaction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transactions[t.ID] = cloneTransaction(t)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

type memListingRepo struct {
	mu       sync.Mutex
	listings map[string]*entity.Listing
}

func newMemListingRepo(listings ...*entity.Listing) *memListingRepo {
	r := &memListingRepo{listings: map[string]*entity.Listing{}}
	for _, l := range listings {
		r.listings[l.ID] = l
	}
	return r
}

func (r *memListingRepo) GetByID(ctx context.Context, id string) (*entity.Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.listings[id]
	if !ok {
		return nil, errors.NotFound("Listing", nil)
	}
	c := *l
	return &c, nil
}

func (r *memListingRepo) SetStatus(ctx context.Context, id, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.listings[id]
	if !ok {
		return errors.NotFound("Listing", nil)
	}
	l.Status = status
	return nil
}

func (r *memListingRepo) status(id string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listings[id].Status
}

type memOfferRepo struct {
	mu     sync.Mutex
	offers map[string]*entity.Offer
}

func newMemOfferRepo() *memOfferRepo {
	return &memOfferRepo{offers: map[string]*entity.Offer{}}
}

func cloneOffer(o *entity.Offer) *entity.Offer {
	c := *o
	return &c
}

func (r *memOfferRepo) CreatePending(ctx context.Context, offer *entity.Offer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.offers {
		if o.ListingID == offer.ListingID && o.BuyerID == offer.BuyerID && o.IsPending() {
			return errors.BadRequest("You already have a pending offer on this listing", nil)
		}
	}
	r.offers[offer.ID] = cloneOffer(offer)
	return nil
}

func (r *memOfferRepo) GetByID(ctx context.Context, id string) (*entity.Offer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.offers[id]
	if !ok {
		return nil, errors.NotFound("Offer", nil)
	}
	return cloneOffer(o), nil
}

func (r *memOfferRepo) UpdateFn(ctx context.Context, id string, fn func(*entity.Offer) error) (*entity.Offer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.offers[id]
	if !ok {
		return nil, errors.NotFound("Offer", nil)
	}
	working := cloneOffer(stored)
	if err := fn(working); err != nil {
		if stderrors.Is(err, repository.ErrNoChange) {
			return cloneOffer(stored), nil
		}
		return nil, err
	}
	r.offers[id] = working
	return cloneOffer(working), nil
}

func (r *memOfferRepo) Accept(ctx context.Context, id string, fn func(*entity.Offer) error) (*entity.Offer, []*entity.Offer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.offers[id]
	if !ok {
		return nil, nil, errors.NotFound("Offer", nil)
	}
	working := cloneOffer(stored)
	if err := fn(working); err != nil {
		return nil, nil, err
	}
	r.offers[id] = working

	var rejected []*entity.Offer
	for _, o := range r.offers {
		if o.ID != id && o.ListingID == working.ListingID && o.IsPending() {
			o.Status = entity.OfferStatusRejected
			rejected = append(rejected, cloneOffer(o))
		}
	}
	return cloneOffer(working), rejected, nil
}

func (r *memOfferRepo) Counter(ctx context.Context, id string, fn func(*entity.Offer) (*entity.Offer, error)) (*entity.Offer, *entity.Offer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.offers[id]
	if !ok {
		return nil, nil, errors.NotFound("Offer", nil)
	}
	working := cloneOffer(stored)
	counter, err := fn(working)
	if err != nil {
		return nil, nil, err
	}
	r.offers[id] = working
	r.offers[counter.ID] = cloneOffer(counter)
	return cloneOffer(working), cloneOffer(counter), nil
}

func (r *memOfferRepo) ExpireStale(ctx context.Context, now time.Time, limit int) ([]*entity.Offer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var expired []*entity.Offer
	for _, o := range r.offers {
		if o.IsPending() && o.IsExpired(now) {
			o.Status = entity.OfferStatusExpired
			expired = append(expired, cloneOffer(o))
		}
	}
	return expired, nil
}

func (r *memOfferRepo) ListByListing(ctx context.Context, listingID, status string) ([]*entity.Offer, error) {
	return r.list(func(o *entity.Offer) bool { return o.ListingID == listingID && (status == "" || o.Status == status) })
}

func (r *memOfferRepo) ListByBuyer(ctx context.Context, buyerID, status string) ([]*entity.Offer, error) {
	return r.list(func(o *entity.Offer) bool { return o.BuyerID == buyerID && (status == "" || o.Status == status) })
}

func (r *memOfferRepo) list(match func(*entity.Offer) bool) ([]*entity.Offer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.Offer
	for _, o := range r.offers {
		if match(o) {
			out = append(out, cloneOffer(o))
		}
	}
	return out, nil
}

type memDisputeRepo struct {
	mu       sync.Mutex
	disputes map[string]*entity.Dispute
}

func newMemDisputeRepo() *memDisputeRepo {
	return &memDisputeRepo{disputes: map[string]*entity.Dispute{}}
}

func cloneDispute(d *entity.Dispute) *entity.Dispute {
	c := *d
	c.Evidence = append([]entity.DisputeEvidence(nil), d.Evidence...)
	return &c
}

func (r *memDisputeRepo) Create(ctx context.Context, d *entity.Dispute) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.disputes[d.ID] = cloneDispute(d)
	return nil
}

func (r *memDisputeRepo) GetByID(ctx context.Context, id string) (*entity.Dispute, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.disputes[id]
	if !ok {
		return nil, errors.NotFound("Dispute", nil)
	}
	return cloneDispute(d), nil
}

func (r *memDisputeRepo) FindOpenByTransactionID(ctx context.Context, transactionID string) (*entity.Dispute, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.disputes {
		if d.TransactionID == transactionID && d.IsOpen() {
			return cloneDispute(d), nil
		}
	}
	return nil, nil
}

func (r *memDisputeRepo) UpdateFn(ctx context.Context, id string, fn func(*entity.Dispute) error) (*entity.Dispute, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.disputes[id]
	if !ok {
		return nil, errors.NotFound("Dispute", nil)
	}
	working := cloneDispute(stored)
	if err := fn(working); err != nil {
		if stderrors.Is(err, repository.ErrNoChange) {
			return cloneDispute(stored), nil
		}
		return nil, err
	}
	r.disputes[id] = working
	return cloneDispute(working), nil
}

// inlineQueue runs side effects synchronously. Tasks matched by drop are
// refused, the way a full or stopped worker queue refuses them.
type inlineQueue struct {
	mu    sync.Mutex
	names []string
	drop  func(name string) bool
}

func (q *inlineQueue) Enqueue(name string, fn func(ctx context.Context) error) bool {
	q.mu.Lock()
	dropped := q.drop != nil && q.drop(name)
	if !dropped {
		q.names = append(q.names, name)
	}
	q.mu.Unlock()
	if dropped {
		return false
	}
	_ = fn(context.Background())
	return true
}

type sentNotification struct {
	UserID string
	Type   string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
}

func (n *recordingNotifier) Notify(ctx context.Context, userID, notificationType, title, message string, data map[string]interface{}) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentNotification{UserID: userID, Type: notificationType})
	return nil
}

func (n *recordingNotifier) count(userID, notificationType string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, s := range n.sent {
		if s.UserID == userID && s.Type == notificationType {
			c++
		}
	}
	return c
}

type recordingEvents struct {
	mu     sync.Mutex
	events []service.DomainEvent
}

func (e *recordingEvents) Publish(ctx context.Context, event service.DomainEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, event)
	return nil
}

func (e *recordingEvents) count(eventType string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	c := 0
	for _, ev := range e.events {
		if ev.Type == eventType {
			c++
		}
	}
	return c
}

type recordingAudit struct {
	mu      sync.Mutex
	records []*entity.AuditLog
}

func (a *recordingAudit) Create(ctx context.Context, log *entity.AuditLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.records = append(a.records, log)
	return nil
}

type memConversations struct {
	mu    sync.Mutex
	items []*entity.Conversation
}

func (c *memConversations) Create(ctx context.Context, conversation *entity.Conversation) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append(c.items, conversation)
	return nil
}

type memLocks struct {
	mu   sync.Mutex
	held map[string]bool
}

func newMemLocks() *memLocks {
	return &memLocks{held: map[string]bool{}}
}

func (l *memLocks) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] {
		return nil, service.ErrLockHeld
	}
	l.held[key] = true
	return func() {
		l.mu.Lock()
		delete(l.held, key)
		l.mu.Unlock()
	}, nil
}

type memProcessedEvents struct {
	mu   sync.Mutex
	seen map[string]bool
}

func newMemProcessedEvents() *memProcessedEvents {
	return &memProcessedEvents{seen: map[string]bool{}}
}

func (p *memProcessedEvents) MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.seen[eventID] {
		return false, nil
	}
	p.seen[eventID] = true
	return true, nil
}

func (p *memProcessedEvents) Forget(ctx context.Context, eventID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.seen, eventID)
	return nil
}

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) CreateOrder(ctx context.Context, req service.CreateOrderRequest) (*service.GatewayOrder, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.GatewayOrder), args.Error(1)
}

func (m *mockGateway) FetchPayment(ctx context.Context, paymentID string) (*service.GatewayPayment, error) {
	args := m.Called(ctx, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.GatewayPayment), args.Error(1)
}

func (m *mockGateway) Refund(ctx context.Context, req service.RefundRequest) (*service.GatewayRefund, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.GatewayRefund), args.Error(1)
}
