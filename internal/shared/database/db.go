package database

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/rocodehq/rocode-gateway/internal/shared/models"
)

type DB struct {
	conn *sql.DB
}

// New creates a new database connection
func New(databaseURL string) (*DB, error) {
	conn, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Configure connection pool
	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(10)
	conn.SetConnMaxLifetime(5 * time.Minute)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := conn.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	return &DB{conn: conn}, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// GetAPIKey retrieves an API key by its raw key value
func (db *DB) GetAPIKey(ctx context.Context, rawKey string) (*models.APIKey, error) {
	// Hash the key
	hash := sha256.Sum256([]byte(rawKey))
	keyHash := hex.EncodeToString(hash[:])

	query := `
		SELECT id, key_hash, key_prefix, name, user_id, subscription_tier,
		       rate_limit_per_minute, is_active, last_used_at, created_at, updated_at
		FROM api_keys
		WHERE key_hash = $1 AND is_active = true
	`

	var apiKey models.APIKey
	err := db.conn.QueryRowContext(ctx, query, keyHash).Scan(
		&apiKey.ID,
		&apiKey.KeyHash,
		&apiKey.KeyPrefix,
		&apiKey.Name,
		&apiKey.UserID,
		&apiKey.SubscriptionTier,
		&apiKey.RateLimitPerMinute,
		&apiKey.IsActive,
		&apiKey.LastUsedAt,
		&apiKey.CreatedAt,
		&apiKey.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("invalid API key")
	}
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}

	return &apiKey, nil
}

// UpdateAPIKeyLastUsed updates the last_used_at timestamp
func (db *DB) UpdateAPIKeyLastUsed(ctx context.Context, apiKeyID string) error {
	query := `UPDATE api_keys SET last_used_at = NOW() WHERE id = $1`
	_, err := db.conn.ExecContext(ctx, query, apiKeyID)
	return err
}

// ListModelPricing retrieves all model pricing rows. These override the
// router's built-in catalog so prices can be updated without a deploy.
func (db *DB) ListModelPricing(ctx context.Context) ([]models.ModelPricing, error) {
	query := `
		SELECT id, alias, provider, model, input_per_m_tokens, output_per_m_tokens,
		       capability, max_output_tokens, created_at, updated_at
		FROM model_pricing
	`

	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	defer rows.Close()

	var pricing []models.ModelPricing
	for rows.Next() {
		var p models.ModelPricing
		if err := rows.Scan(
			&p.ID,
			&p.Alias,
			&p.Provider,
			&p.Model,
			&p.InputPerMTokens,
			&p.OutputPerMTokens,
			&p.Capability,
			&p.MaxOutputTokens,
			&p.CreatedAt,
			&p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("database error: %w", err)
		}
		pricing = append(pricing, p)
	}

	return pricing, rows.Err()
}

// LogOptimization logs an optimization decision
func (db *DB) LogOptimization(ctx context.Context, log *models.OptimizationLog) error {
	query := `
		INSERT INTO optimization_logs (
			id, api_key_id, user_id, requested_model, selected_model, complexity,
			cache_hit, allowed, reject_reason, tokens_saved, cost_saved_usd,
			latency_ms, status_code, error_message
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := db.conn.ExecContext(ctx,
		query,
		log.ID,
		log.APIKeyID,
		log.UserID,
		log.RequestedModel,
		log.SelectedModel,
		log.Complexity,
		log.CacheHit,
		log.Allowed,
		log.RejectReason,
		log.TokensSaved,
		log.CostSavedUSD,
		log.LatencyMs,
		log.StatusCode,
		log.ErrorMessage,
	)

	return err
}
