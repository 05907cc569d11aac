package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// DefaultBatchSize is the number of rows sent per COPY when the caller passes 0.
const DefaultBatchSize = 50000

// CopyFromSchema bulk-inserts rows into a schema-qualified table using PostgreSQL COPY protocol.
func CopyFromSchema(ctx context.Context, c Copier, schema, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	n, err := c.CopyFrom(ctx, pgx.Identifier{schema, table}, columns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, eris.Wrapf(err, "db: COPY INTO %s.%s", schema, table)
	}

	return n, nil
}

// CopyBatches runs CopyFromSchema in chunks of batchSize rows (0 = DefaultBatchSize).
// The returned count covers every batch that succeeded.
func CopyBatches(ctx context.Context, c Copier, schema, table string, columns []string, rows [][]any, batchSize int) (int64, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	var total int64
	for i := 0; i < len(rows); i += batchSize {
		end := min(i+batchSize, len(rows))
		n, err := CopyFromSchema(ctx, c, schema, table, columns, rows[i:end])
		if err != nil {
			return total, eris.Wrapf(err, "db: batch %d-%d", i, end)
		}
		total += n
	}
	return total, nil
}
