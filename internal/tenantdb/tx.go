package tenantdb

import (
	"context"

	"gorm.io/gorm"
)

// Transaction runs fn inside a database transaction. The handle passed to fn
// carries the same tenant binding as d; a transaction body cannot rebind to
// another tenant because it only ever sees the scoped handle, never a raw
// connection. An error or panic from fn rolls the whole transaction back and
// surfaces the original error; nil commits. Nested calls reuse the outer
// transaction instead of opening a second one. Cancellation of ctx is
// treated like any other error: rollback, never a half-commit.
func (d *DB) Transaction(ctx context.Context, fn func(tx *DB) error) error {
	if d.inTx {
		return fn(d)
	}

	return d.gdb.WithContext(ctx).Transaction(func(g *gorm.DB) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return fn(&DB{gdb: g, tenantID: d.tenantID, root: d.root, inTx: true})
	})
}
