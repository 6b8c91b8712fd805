package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nao1215/depscan/internal/pypi"
)

// sqliteTime is the layout SQLite's datetime() functions produce.
const sqliteTime = "2006-01-02 15:04:05"

// GetProject returns a cached PyPI lookup no older than maxAge.
// It implements pypi.Cache.
func (sdb *ScanDB) GetProject(ctx context.Context, name string, maxAge time.Duration) (*pypi.Project, bool, error) {
	query := `
	SELECT name, project_exists, status_code, version, summary, checked_at
	FROM pypi_cache
	WHERE name = ? AND checked_at >= datetime('now', ?)
	`

	var (
		p         pypi.Project
		exists    int
		version   sql.NullString
		summary   sql.NullString
		checkedAt string
	)
	modifier := fmt.Sprintf("-%d seconds", int64(maxAge.Seconds()))
	err := sdb.db.QueryRowContext(ctx, query, name, modifier).
		Scan(&p.Name, &exists, &p.StatusCode, &version, &summary, &checkedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read lookup cache: %w", err)
	}

	p.Exists = exists != 0
	p.Version = version.String
	p.Summary = summary.String
	p.CheckedAt = parseTimestamp(checkedAt)
	return &p, true, nil
}

// PutProject stores a PyPI lookup, replacing any earlier result.
// It implements pypi.Cache.
func (sdb *ScanDB) PutProject(ctx context.Context, p *pypi.Project) error {
	checkedAt := p.CheckedAt
	if checkedAt.IsZero() {
		checkedAt = time.Now()
	}

	exists := 0
	if p.Exists {
		exists = 1
	}

	query := `
	INSERT INTO pypi_cache (name, project_exists, status_code, version, summary, checked_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(name) DO UPDATE SET
		project_exists = excluded.project_exists,
		status_code = excluded.status_code,
		version = excluded.version,
		summary = excluded.summary,
		checked_at = excluded.checked_at
	`

	_, err := sdb.db.ExecContext(ctx, query,
		p.Name, exists, p.StatusCode, p.Version, p.Summary,
		checkedAt.UTC().Format(sqliteTime),
	)
	if err != nil {
		return fmt.Errorf("failed to write lookup cache: %w", err)
	}
	return nil
}

// PurgeLookupCache deletes cached lookups older than maxAge and returns
// how many were removed. A zero maxAge removes everything.
func (sdb *ScanDB) PurgeLookupCache(ctx context.Context, maxAge time.Duration) (int64, error) {
	modifier := fmt.Sprintf("-%d seconds", int64(maxAge.Seconds()))
	res, err := sdb.db.ExecContext(ctx, `DELETE FROM pypi_cache WHERE checked_at <= datetime('now', ?)`, modifier)
	if err != nil {
		return 0, fmt.Errorf("failed to purge lookup cache: %w", err)
	}
	return res.RowsAffected()
}

var _ pypi.Cache = (*ScanDB)(nil)
