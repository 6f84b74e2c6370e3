package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"

	"accountmarket/internal/domain/entity"
	"accountmarket/internal/domain/repository"
	"accountmarket/pkg/errors"
)

// listingLock marks the single non-terminal transaction of a listing.
type listingLock struct {
	ListingID     string    `firestore:"listingId"`
	TransactionID string    `firestore:"transactionId"`
	CreatedAt     time.Time `firestore:"createdAt"`
}

type firestoreTransactionRepository struct {
	client *firestore.Client
}

func NewFirestoreTransactionRepository(client *firestore.Client) repository.TransactionRepository {
	return &firestoreTransactionRepository{
		client: client,
	}
}

func (r *firestoreTransactionRepository) transactions() *firestore.CollectionRef {
	return r.client.Collection("transactions")
}

func (r *firestoreTransactionRepository) lockRef(listingID string) *firestore.DocumentRef {
	return r.client.Collection("listing_locks").Doc(listingID)
}

func (r *firestoreTransactionRepository) listingRef(listingID string) *firestore.DocumentRef {
	return r.client.Collection("listings").Doc(listingID)
}

func decodeTransaction(doc *firestore.DocumentSnapshot) (*entity.Transaction, error) {
	var transaction entity.Transaction
	if err := doc.DataTo(&transaction); err != nil {
		return nil, errors.Internal("Failed to parse transaction data", err)
	}
	return &transaction, nil
}

// CreateExclusive writes the transaction together with the listing lock. A
// lock left behind by a transaction that already ended is taken over. The
// listing must still be active when the write commits.
func (r *firestoreTransactionRepository) CreateExclusive(ctx context.Context, transaction *entity.Transaction) error {
	if transaction.ID == "" {
		transaction.ID = uuid.New().String()
	}

	now := time.Now()
	if transaction.CreatedAt.IsZero() {
		transaction.CreatedAt = now
	}
	transaction.UpdatedAt = now

	lockRef := r.lockRef(transaction.ListingID)
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		listingSnap, err := tx.Get(r.listingRef(transaction.ListingID))
		if err != nil {
			if isNotFound(err) {
				return errors.NotFound("Listing", err)
			}
			return errors.Internal("Failed to read listing", err)
		}
		var listing entity.Listing
		if err := listingSnap.DataTo(&listing); err != nil {
			return errors.Internal("Failed to parse listing data", err)
		}
		if !listing.IsActive() {
			return errors.BadRequest("Listing is not available for purchase", nil)
		}

		snap, err := tx.Get(lockRef)
		if err != nil && !isNotFound(err) {
			return errors.Internal("Failed to read listing lock", err)
		}
		if err == nil && snap.Exists() {
			var lock listingLock
			if err := snap.DataTo(&lock); err != nil {
				return errors.Internal("Failed to parse listing lock", err)
			}
			holder, err := tx.Get(r.transactions().Doc(lock.TransactionID))
			if err != nil && !isNotFound(err) {
				return errors.Internal("Failed to read lock holder", err)
			}
			if err == nil {
				active, err := decodeTransaction(holder)
				if err != nil {
					return err
				}
				if !active.IsTerminal() {
					return errors.BadRequest("Listing already has an active transaction", nil)
				}
			}
		}

		if err := tx.Set(lockRef, listingLock{
			ListingID:     transaction.ListingID,
			TransactionID: transaction.ID,
			CreatedAt:     now,
		}); err != nil {
			return err
		}
		return tx.Create(r.transactions().Doc(transaction.ID), transaction)
	})
	if err != nil {
		return wrapTxError(err, "Failed to create transaction")
	}
	return nil
}

func (r *firestoreTransactionRepository) GetByID(ctx context.Context, id string) (*entity.Transaction, error) {
	doc, err := r.transactions().Doc(id).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, errors.NotFound("Transaction", err)
		}
		return nil, errors.Internal("Failed to get transaction", err)
	}
	return decodeTransaction(doc)
}

func (r *firestoreTransactionRepository) GetByGatewayOrderID(ctx context.Context, orderID string) (*entity.Transaction, error) {
	docs, err := r.transactions().Where("gatewayOrderId", "==", orderID).Limit(1).Documents(ctx).GetAll()
	if err != nil {
		return nil, errors.Internal("Failed to query transaction by order", err)
	}
	if len(docs) == 0 {
		return nil, errors.NotFound("Transaction", nil)
	}
	return decodeTransaction(docs[0])
}

// UpdateFn releases the listing lock in the same write when fn moves the
// transaction into a terminal status. Completing the transaction also marks
// the listing sold in that write.
func (r *firestoreTransactionRepository) UpdateFn(ctx context.Context, id string, fn func(transaction *entity.Transaction) error) (*entity.Transaction, error) {
	ref := r.transactions().Doc(id)

	var result *entity.Transaction
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(ref)
		if err != nil {
			if isNotFound(err) {
				return errors.NotFound("Transaction", err)
			}
			return errors.Internal("Failed to get transaction", err)
		}
		transaction, err := decodeTransaction(doc)
		if err != nil {
			return err
		}
		result = transaction

		wasTerminal := transaction.IsTerminal()
		if err := fn(transaction); err != nil {
			return err
		}

		var releaseLock bool
		if !wasTerminal && transaction.IsTerminal() {
			lockSnap, err := tx.Get(r.lockRef(transaction.ListingID))
			if err != nil && !isNotFound(err) {
				return errors.Internal("Failed to read listing lock", err)
			}
			if err == nil && lockSnap.Exists() {
				var lock listingLock
				if err := lockSnap.DataTo(&lock); err == nil && lock.TransactionID == transaction.ID {
					releaseLock = true
				}
			}
		}

		now := time.Now()
		transaction.UpdatedAt = now
		if err := tx.Set(ref, transaction); err != nil {
			return err
		}
		if !wasTerminal && transaction.Status == entity.TransactionStatusCompleted {
			if err := tx.Set(r.listingRef(transaction.ListingID), map[string]interface{}{
				"status":    entity.ListingStatusSold,
				"updatedAt": now,
			}, firestore.MergeAll); err != nil {
				return err
			}
		}
		if releaseLock {
			return tx.Delete(r.lockRef(transaction.ListingID))
		}
		return nil
	})
	return finish(result, err, "Failed to update transaction")
}

func (r *firestoreTransactionRepository) ListByUserID(ctx context.Context, userID string, role string, status string, limit, offset int) ([]*entity.Transaction, int64, error) {
	var query firestore.Query
	switch role {
	case entity.PartyBuyer:
		query = r.transactions().Where("buyerId", "==", userID)
	case entity.PartySeller:
		query = r.transactions().Where("sellerId", "==", userID)
	case "":
		query = r.transactions().WhereEntity(firestore.OrFilter{
			Filters: []firestore.EntityFilter{
				firestore.PropertyFilter{Path: "buyerId", Operator: "==", Value: userID},
				firestore.PropertyFilter{Path: "sellerId", Operator: "==", Value: userID},
			},
		})
	default:
		return nil, 0, errors.BadRequest("Invalid role", nil)
	}

	if status != "" {
		query = query.Where("status", "==", status)
	}
	query = query.OrderBy("createdAt", firestore.Desc)

	countDocs, err := query.Documents(ctx).GetAll()
	if err != nil {
		return nil, 0, errors.Internal("Failed to count transactions", err)
	}
	total := int64(len(countDocs))

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	transactions := []*entity.Transaction{}
	err = collect(query.Documents(ctx), func(doc *firestore.DocumentSnapshot) error {
		transaction, err := decodeTransaction(doc)
		if err != nil {
			return err
		}
		transactions = append(transactions, transaction)
		return nil
	})
	if err != nil {
		return nil, 0, wrapTxError(err, "Failed to iterate transactions")
	}

	return transactions, total, nil
}

// CountCreatedByBuyerSince filters excluded statuses in memory to avoid a
// composite not-in index.
func (r *firestoreTransactionRepository) CountCreatedByBuyerSince(ctx context.Context, buyerID string, since time.Time, excludeStatuses []string) (int, error) {
	query := r.transactions().
		Where("buyerId", "==", buyerID).
		Where("createdAt", ">=", since)

	excluded := make(map[string]bool, len(excludeStatuses))
	for _, s := range excludeStatuses {
		excluded[s] = true
	}

	count := 0
	err := collect(query.Documents(ctx), func(doc *firestore.DocumentSnapshot) error {
		status, err := doc.DataAt("status")
		if err != nil {
			return err
		}
		if s, _ := status.(string); !excluded[s] {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, errors.Internal("Failed to count recent transactions", err)
	}
	return count, nil
}

func (r *firestoreTransactionRepository) ListDueForAutoRelease(ctx context.Context, now time.Time, limit int) ([]*entity.Transaction, error) {
	query := r.transactions().
		Where("status", "==", entity.TransactionStatusTransferCompleted).
		Where("autoReleaseAt", "<=", now).
		Limit(limit)

	var due []*entity.Transaction
	err := collect(query.Documents(ctx), func(doc *firestore.DocumentSnapshot) error {
		transaction, err := decodeTransaction(doc)
		if err != nil {
			return err
		}
		due = append(due, transaction)
		return nil
	})
	if err != nil {
		return nil, wrapTxError(err, "Failed to query transactions due for release")
	}
	return due, nil
}

func (r *firestoreTransactionRepository) CreateLog(ctx context.Context, log *entity.TransactionLog) error {
	if log.ID == "" {
		log.ID = uuid.New().String()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now()
	}

	_, err := r.client.Collection("transaction_logs").Doc(log.ID).Set(ctx, log)
	if err != nil {
		return errors.Internal("Failed to create transaction log", err)
	}

	return nil
}

func (r *firestoreTransactionRepository) ListLogsByTransactionID(ctx context.Context, transactionID string) ([]*entity.TransactionLog, error) {
	query := r.client.Collection("transaction_logs").
		Where("transactionId", "==", transactionID).
		OrderBy("createdAt", firestore.Asc)

	logs := []*entity.TransactionLog{}
	err := collect(query.Documents(ctx), func(doc *firestore.DocumentSnapshot) error {
		var log entity.TransactionLog
		if err := doc.DataTo(&log); err != nil {
			return errors.Internal("Failed to parse transaction log data", err)
		}
		logs = append(logs, &log)
		return nil
	})
	if err != nil {
		return nil, wrapTxError(err, "Failed to iterate transaction logs")
	}

	return logs, nil
}
