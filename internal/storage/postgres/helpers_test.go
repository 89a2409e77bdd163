package postgres

import (
	"context"
	"fmt"
)

// TruncateForTest removes all rows from the kv table.
func (s *Store) TruncateForTest(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "TRUNCATE TABLE kv"); err != nil {
		return fmt.Errorf("postgres: failed to truncate kv: %w", err)
	}
	return nil
}
