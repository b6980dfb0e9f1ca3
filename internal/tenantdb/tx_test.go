package tenantdb_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/bookablehq/bookable-core/internal/models"
	"github.com/bookablehq/bookable-core/internal/tenantdb"
)

func TestTransactionAtomicity(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	tenantA := uuid.New()
	handle := forTenant(t, db, tenantA)

	boom := errors.New("third write failed")
	err := handle.Transaction(ctx, func(tx *tenantdb.DB) error {
		if err := tx.Create(ctx, &models.Customer{Name: "one"}); err != nil {
			return err
		}
		if err := tx.Create(ctx, &models.Customer{Name: "two"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("got %v, want the original error", err)
	}

	n, err := handle.Count(ctx, &models.Customer{}, nil)
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if n != 0 {
		t.Errorf("found %d rows after rollback, want 0", n)
	}
}

func TestTransactionCommit(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	tenantA := uuid.New()
	handle := forTenant(t, db, tenantA)

	err := handle.Transaction(ctx, func(tx *tenantdb.DB) error {
		if err := tx.Create(ctx, &models.Customer{Name: "one"}); err != nil {
			return err
		}
		return tx.Create(ctx, &models.Customer{Name: "two"})
	})
	if err != nil {
		t.Fatalf("transaction failed: %v", err)
	}

	n, err := handle.Count(ctx, &models.Customer{}, nil)
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if n != 2 {
		t.Errorf("found %d rows, want 2", n)
	}
}

func TestTransactionKeepsTenantBinding(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	tenantA := uuid.New()
	tenantB := uuid.New()
	seedCustomer(t, db, tenantB, "Grace")

	handle := forTenant(t, db, tenantA)
	err := handle.Transaction(ctx, func(tx *tenantdb.DB) error {
		if tx.TenantID() != tenantA {
			t.Errorf("tx bound to %s, want %s", tx.TenantID(), tenantA)
		}
		var got []models.Customer
		if err := tx.Find(ctx, &got, nil); err != nil {
			return err
		}
		if len(got) != 0 {
			t.Errorf("tx saw %d foreign rows", len(got))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("transaction failed: %v", err)
	}
}

func TestNestedTransactionReusesOuter(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	tenantA := uuid.New()
	handle := forTenant(t, db, tenantA)

	boom := errors.New("inner failure")
	err := handle.Transaction(ctx, func(tx *tenantdb.DB) error {
		if err := tx.Create(ctx, &models.Customer{Name: "outer"}); err != nil {
			return err
		}
		// The nested call must join the same transaction, so its failure
		// rolls back the outer write too.
		return tx.Transaction(ctx, func(inner *tenantdb.DB) error {
			if err := inner.Create(ctx, &models.Customer{Name: "inner"}); err != nil {
				return err
			}
			return boom
		})
	})
	if !errors.Is(err, boom) {
		t.Fatalf("got %v, want the inner error", err)
	}

	n, err := handle.Count(ctx, &models.Customer{}, nil)
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if n != 0 {
		t.Errorf("found %d rows, want 0 (outer write must roll back)", n)
	}
}

func TestTransactionPanicRollsBack(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	tenantA := uuid.New()
	handle := forTenant(t, db, tenantA)

	func() {
		defer func() {
			if recover() == nil {
				t.Error("expected panic to propagate")
			}
		}()
		_ = handle.Transaction(ctx, func(tx *tenantdb.DB) error {
			if err := tx.Create(ctx, &models.Customer{Name: "one"}); err != nil {
				return err
			}
			panic("handler blew up")
		})
	}()

	n, err := handle.Count(ctx, &models.Customer{}, nil)
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if n != 0 {
		t.Errorf("found %d rows after panic, want 0", n)
	}
}

func TestTransactionCancelledContext(t *testing.T) {
	db := newTestDB(t)

	tenantA := uuid.New()
	handle := forTenant(t, db, tenantA)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := handle.Transaction(ctx, func(tx *tenantdb.DB) error {
		return tx.Create(ctx, &models.Customer{Name: "one"})
	})
	if err == nil {
		t.Fatal("expected error from cancelled context")
	}

	n, err := handle.Count(context.Background(), &models.Customer{}, nil)
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if n != 0 {
		t.Errorf("found %d rows after cancellation, want 0", n)
	}
}
