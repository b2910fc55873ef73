package tenant

import (
	"context"
	"database/sql"
	"sync"
)

// Row is one buffered row destined for a tenant-scoped bulk insert. Cols
// must be in the same order the BatchWriter's CopyIn statement expects.
type Row struct {
	TenantID string
	Cols     []interface{}
}

// FlushFunc bulk-inserts rows already grouped by tenant, running inside a
// WithTenant transaction. Implementations typically build a pq.CopyIn
// statement from table/column names and call tx.Stmt(stmt).Exec per row.
type FlushFunc func(ctx context.Context, tx *sql.Tx, tenantID string, rows []Row) error

// BatchWriter buffers rows from many tenants and flushes them grouped by
// tenant_id, one WithTenant transaction per tenant group, mirroring the
// teacher's mutex-guarded buffering style in pubsub.RedisPubSub.
type BatchWriter struct {
	pool  *Pool
	flush FlushFunc

	mu  sync.Mutex
	buf map[string][]Row
}

// NewBatchWriter constructs a BatchWriter that flushes via flush.
func NewBatchWriter(pool *Pool, flush FlushFunc) *BatchWriter {
	return &BatchWriter{
		pool:  pool,
		flush: flush,
		buf:   make(map[string][]Row),
	}
}

// Add buffers a row for later flush. It never blocks on I/O.
func (w *BatchWriter) Add(row Row) {
	w.mu.Lock()
	w.buf[row.TenantID] = append(w.buf[row.TenantID], row)
	w.mu.Unlock()
}

// Len returns the total number of buffered rows across all tenants.
func (w *BatchWriter) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := 0
	for _, rows := range w.buf {
		n += len(rows)
	}
	return n
}

// Flush drains the buffer, opening one WithTenant transaction per tenant
// group present at the time of the call. It returns every per-tenant
// error so the caller can route individual tenant batches to quarantine
// without losing the rest.
func (w *BatchWriter) Flush(ctx context.Context) map[string]error {
	w.mu.Lock()
	pending := w.buf
	w.buf = make(map[string][]Row)
	w.mu.Unlock()

	errs := make(map[string]error)
	for tenantID, rows := range pending {
		if len(rows) == 0 {
			continue
		}
		err := WithTenant(ctx, w.pool, tenantID, func(ctx context.Context, tx *sql.Tx) error {
			return w.flush(ctx, tx, tenantID, rows)
		})
		if err != nil {
			errs[tenantID] = err
		}
	}
	return errs
}
