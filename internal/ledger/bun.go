package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// record is the row shape shared by every collection.
type record struct {
	bun.BaseModel `bun:"table:ledger_records,alias:lr"`

	Collection string          `bun:"collection,pk"`
	ID         string          `bun:"id,pk"`
	Position   int64           `bun:"position,notnull"`
	Data       json.RawMessage `bun:"data,type:jsonb,notnull"`
}

// OpenDB connects to Postgres through bun.
func OpenDB(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

// EnsureSchema creates the ledger table when it does not exist yet.
func EnsureSchema(ctx context.Context, db *bun.DB) error {
	if _, err := db.NewCreateTable().
		Model((*record)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to create ledger table: %w", err)
	}
	return nil
}

// BunStore persists one collection in Postgres. Updates rewrite the whole
// collection inside a transaction; the mutex makes the per-collection
// serialization explicit rather than leaning on database lock ordering.
type BunStore[T Keyed] struct {
	db     *bun.DB
	name   string
	logger *slog.Logger

	mu sync.Mutex
}

// NewBunStore returns a collection named name backed by db.
func NewBunStore[T Keyed](db *bun.DB, name string, logger *slog.Logger) *BunStore[T] {
	return &BunStore[T]{db: db, name: name, logger: logger.With(slog.String("collection", name))}
}

func (s *BunStore[T]) load(ctx context.Context, idb bun.IDB) ([]T, error) {
	var rows []record
	err := idb.NewSelect().
		Model(&rows).
		Where("collection = ?", s.name).
		Order("position ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read collection %s: %w", s.name, err)
	}

	records := make([]T, 0, len(rows))
	for _, row := range rows {
		var decoded T
		if err := json.Unmarshal(row.Data, &decoded); err != nil {
			return nil, fmt.Errorf("failed to decode record %s/%s: %w", s.name, row.ID, err)
		}
		records = append(records, decoded)
	}
	return records, nil
}

// Read returns the latest committed state of the collection.
func (s *BunStore[T]) Read(ctx context.Context) ([]T, error) {
	return s.load(ctx, s.db)
}

// Update applies mutate to the current state and commits the result. On any
// error the transaction rolls back and the prior committed state is retained.
func (s *BunStore[T]) Update(ctx context.Context, mutate Mutator[T]) ([]T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []T
	err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		current, err := s.load(ctx, tx)
		if err != nil {
			return err
		}

		next, err := mutate(current)
		if err != nil {
			return err
		}

		if _, err := tx.NewDelete().
			Model((*record)(nil)).
			Where("collection = ?", s.name).
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to clear collection %s: %w", s.name, err)
		}

		if len(next) > 0 {
			rows := make([]record, 0, len(next))
			for i, item := range next {
				data, err := json.Marshal(item)
				if err != nil {
					return fmt.Errorf("failed to encode record %s/%s: %w", s.name, item.RecordID(), err)
				}
				rows = append(rows, record{
					Collection: s.name,
					ID:         item.RecordID(),
					Position:   int64(i),
					Data:       data,
				})
			}
			if _, err := tx.NewInsert().Model(&rows).Exec(ctx); err != nil {
				return fmt.Errorf("failed to write collection %s: %w", s.name, err)
			}
		}

		result = next
		return nil
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Collection update failed", slog.Any("error", err))
		return nil, err
	}
	return result, nil
}
