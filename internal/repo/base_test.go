package repo

import (
	"context"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type ctxKey struct{}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	return conn
}

func TestBaseDBBindsContext(t *testing.T) {
	db := newTestDB(t)
	base := NewBase(db)

	ctx := context.WithValue(context.Background(), ctxKey{}, "value")
	withCtx := base.DB(ctx)
	if withCtx.Statement == nil || withCtx.Statement.Context != ctx {
		t.Fatalf("expected context to flow through")
	}
	if base.DB(nil) != db {
		t.Fatalf("expected nil context to return raw connection")
	}
}

func TestBaseTxPrefersTransaction(t *testing.T) {
	db := newTestDB(t)
	base := NewBase(db)
	ctx := context.WithValue(context.Background(), ctxKey{}, "tx")

	err := db.Transaction(func(tx *gorm.DB) error {
		bound := base.Tx(ctx, tx)
		if bound.Statement.ConnPool != tx.Statement.ConnPool {
			t.Fatalf("expected transaction connection")
		}
		if bound.Statement.Context != ctx {
			t.Fatalf("expected context on transaction")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}
	if base.Tx(ctx, nil).Statement.ConnPool != db.Statement.ConnPool {
		t.Fatalf("expected base connection without tx")
	}
}

func TestBaseIsPostgres(t *testing.T) {
	if NewBase(newTestDB(t)).IsPostgres() {
		t.Fatal("sqlite must not report postgres")
	}
	if (Base{}).IsPostgres() {
		t.Fatal("zero base must not report postgres")
	}
}
