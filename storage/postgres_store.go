package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"airbnb-pricer/models"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

// PostgresStore keeps jobs and the pricing cache in PostgreSQL
type PostgresStore struct {
	db     *sql.DB
	logger logrus.FieldLogger
}

// NewPostgresStore opens the database and pings it
func NewPostgresStore(ctx context.Context, connStr string, logger logrus.FieldLogger) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open DB: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Minute * 5)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping DB: %w", err)
	}

	logger.Info("Connected to PostgreSQL successfully")
	return &PostgresStore{db: db, logger: logger.WithField("component", "store")}, nil
}

// CreateTables creates the job and cache tables if they don't exist
func (s *PostgresStore) CreateTables(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS pricing_reports (
		id                  UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		status              TEXT        NOT NULL DEFAULT 'queued',
		input_address       TEXT        NOT NULL DEFAULT '',
		input_listing_url   TEXT,
		input_attributes    JSONB       NOT NULL DEFAULT '{}'::jsonb,
		input_date_start    DATE        NOT NULL,
		input_date_end      DATE        NOT NULL,
		discount_policy     JSONB       NOT NULL DEFAULT '{}'::jsonb,
		cache_key           TEXT,
		worker_claim_token  TEXT,
		worker_attempts     INT         NOT NULL DEFAULT 0,
		worker_heartbeat_at TIMESTAMPTZ,
		worker_claimed_at   TIMESTAMPTZ,
		result_summary      JSONB,
		result_calendar     JSONB,
		result_core_version TEXT,
		error_message       TEXT,
		debug               JSONB,
		created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_pricing_reports_claim
		ON pricing_reports (status, worker_heartbeat_at, created_at);

	CREATE TABLE IF NOT EXISTS pricing_cache (
		cache_key  TEXT PRIMARY KEY,
		summary    JSONB       NOT NULL,
		calendar   JSONB       NOT NULL,
		meta       JSONB       NOT NULL DEFAULT '{}'::jsonb,
		expires_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_pricing_cache_expires ON pricing_cache (expires_at);
	`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	s.logger.Info("Tables 'pricing_reports' and 'pricing_cache' are ready")
	return nil
}

const claimQuery = `
UPDATE pricing_reports SET
	status = 'running',
	worker_claim_token = $1,
	worker_attempts = worker_attempts + 1,
	worker_heartbeat_at = NOW(),
	worker_claimed_at = NOW(),
	updated_at = NOW()
WHERE id = (
	SELECT id FROM pricing_reports
	WHERE status = 'queued'
	   OR (status = 'running' AND (worker_heartbeat_at IS NULL OR worker_heartbeat_at < NOW() - make_interval(secs => $2)))
	ORDER BY created_at
	FOR UPDATE SKIP LOCKED
	LIMIT 1
)
RETURNING id, status, input_address, COALESCE(input_listing_url, ''), input_attributes,
	input_date_start, input_date_end, discount_policy, COALESCE(cache_key, ''),
	worker_claim_token, worker_attempts, worker_heartbeat_at, created_at`

// ClaimJob claims the oldest eligible job
func (s *PostgresStore) ClaimJob(ctx context.Context, token string, staleAfter time.Duration) (*models.Job, error) {
	var (
		job           models.Job
		status        string
		attrs, policy []byte
		heartbeat     sql.NullTime
		dStart, dEnd  time.Time
	)
	err := s.db.QueryRowContext(ctx, claimQuery, token, staleAfter.Seconds()).Scan(
		&job.ID, &status, &job.InputAddress, &job.InputListingURL, &attrs,
		&dStart, &dEnd, &policy, &job.CacheKey,
		&job.WorkerClaimToken, &job.WorkerAttempts, &heartbeat, &job.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claim job: %w", err)
	}

	job.Status = models.JobStatus(status)
	job.InputDateStart = models.DayOf(dStart)
	job.InputDateEnd = models.DayOf(dEnd)
	if heartbeat.Valid {
		job.HeartbeatAt = heartbeat.Time
	}
	if job.InputAttributes, err = models.DecodeInputAttributes(attrs); err != nil {
		return &job, models.NewValidationError(err.Error())
	}
	if job.DiscountPolicy, err = models.DecodeDiscountPolicy(policy); err != nil {
		return &job, models.NewValidationError(err.Error())
	}
	return &job, nil
}

// Heartbeat refreshes the job's liveness timestamp
func (s *PostgresStore) Heartbeat(ctx context.Context, jobID, token string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE pricing_reports SET worker_heartbeat_at = NOW()
		WHERE id = $1 AND worker_claim_token = $2 AND status = 'running'`, jobID, token)
	if err != nil {
		return false, fmt.Errorf("heartbeat: %w", err)
	}
	return affected(res)
}

// CompleteJob writes the result and marks the job ready
func (s *PostgresStore) CompleteJob(ctx context.Context, jobID, token string, result models.JobResult) (bool, error) {
	summary, err := json.Marshal(result.Summary)
	if err != nil {
		return false, fmt.Errorf("encode summary: %w", err)
	}
	calendar, err := json.Marshal(result.Calendar)
	if err != nil {
		return false, fmt.Errorf("encode calendar: %w", err)
	}
	debug, err := json.Marshal(result.Debug)
	if err != nil {
		return false, fmt.Errorf("encode debug: %w", err)
	}
	var attrs sql.NullString
	if result.InputAttributes != nil {
		b, err := json.Marshal(result.InputAttributes)
		if err != nil {
			return false, fmt.Errorf("encode attributes: %w", err)
		}
		attrs = sql.NullString{String: string(b), Valid: true}
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE pricing_reports SET
			status = 'ready',
			result_summary = $3,
			result_calendar = $4,
			result_core_version = $5,
			debug = $6,
			input_attributes = COALESCE($7::jsonb, input_attributes),
			error_message = NULL,
			updated_at = NOW()
		WHERE id = $1 AND worker_claim_token = $2`,
		jobID, token, string(summary), string(calendar), result.CoreVersion, string(debug), attrs)
	if err != nil {
		return false, fmt.Errorf("complete job: %w", err)
	}
	return affected(res)
}

// FailJob records a user-facing error on the job
func (s *PostgresStore) FailJob(ctx context.Context, jobID, token string, failure models.JobFailure) (bool, error) {
	debug, err := json.Marshal(failure.Debug)
	if err != nil {
		return false, fmt.Errorf("encode debug: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE pricing_reports SET
			status = 'error',
			error_message = $3,
			debug = $4,
			updated_at = NOW()
		WHERE id = $1 AND worker_claim_token = $2`,
		jobID, token, failure.ErrorMessage, string(debug))
	if err != nil {
		return false, fmt.Errorf("fail job: %w", err)
	}
	return affected(res)
}

// GetCached returns a non-expired cache entry
func (s *PostgresStore) GetCached(ctx context.Context, key string, now time.Time) (*models.CacheEntry, error) {
	var (
		entry                   models.CacheEntry
		summary, calendar, meta []byte
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT cache_key, summary, calendar, meta, expires_at
		FROM pricing_cache WHERE cache_key = $1 AND expires_at > $2`, key, now).
		Scan(&entry.Key, &summary, &calendar, &meta, &entry.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read cache: %w", err)
	}
	if err := json.Unmarshal(summary, &entry.Summary); err != nil {
		return nil, fmt.Errorf("decode cached summary: %w", err)
	}
	if err := json.Unmarshal(calendar, &entry.Calendar); err != nil {
		return nil, fmt.Errorf("decode cached calendar: %w", err)
	}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &entry.Meta); err != nil {
			return nil, fmt.Errorf("decode cached meta: %w", err)
		}
	}
	return &entry, nil
}

// SetCached upserts a cache entry
func (s *PostgresStore) SetCached(ctx context.Context, entry models.CacheEntry) error {
	summary, err := json.Marshal(entry.Summary)
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	calendar, err := json.Marshal(entry.Calendar)
	if err != nil {
		return fmt.Errorf("encode calendar: %w", err)
	}
	meta, err := json.Marshal(entry.Meta)
	if err != nil {
		return fmt.Errorf("encode meta: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO pricing_cache (cache_key, summary, calendar, meta, expires_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (cache_key) DO UPDATE SET
			summary = EXCLUDED.summary,
			calendar = EXCLUDED.calendar,
			meta = EXCLUDED.meta,
			expires_at = EXCLUDED.expires_at,
			updated_at = NOW()`,
		entry.Key, string(summary), string(calendar), string(meta), entry.ExpiresAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			return fmt.Errorf("write cache (%s): %w", pqErr.Code.Name(), err)
		}
		return fmt.Errorf("write cache: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *PostgresStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func affected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}
