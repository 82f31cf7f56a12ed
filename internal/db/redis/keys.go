package redis

import (
	"context"

	"github.com/kailas-cloud/incidex/internal/db"
)

const defaultScanCount = 100

// ScanPage runs one SCAN step. A zero next cursor means the iteration is complete.
func (s *Store) ScanPage(
	ctx context.Context, pattern string, cursor uint64, count int64,
) ([]string, uint64, error) {
	if count <= 0 {
		count = defaultScanCount
	}
	cmd := s.b().Scan().Cursor(cursor).Match(pattern).Count(count).Build()
	res, err := s.do(ctx, cmd).AsScanEntry()
	if err != nil {
		return nil, 0, &db.Error{Op: db.OpScan, Err: err}
	}
	return res.Elements, res.Cursor, nil
}
