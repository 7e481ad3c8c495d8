// Package redisstore provides a numerator.Store backed by Redis hashes.
//
// Each sequence is one hash. Compare-and-swap uses WATCH/MULTI on the hash, and the
// increment fast path is a Lua script, so every write is a single atomic step on
// the server.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"docnum/internal/core/apperror"
	"docnum/internal/core/id"
	"docnum/internal/core/numerator"
)

// bulkAttempts bounds the optimistic retries of one BulkUpsert.
const bulkAttempts = 3

// Hash fields
const (
	fieldPrefix      = "prefix"
	fieldSuffix      = "suffix"
	fieldCurrent     = "current_number"
	fieldPadding     = "padding_zeros"
	fieldResetYearly = "reset_yearly"
	fieldLastLabel   = "last_fiscal_year_label"
	fieldVersion     = "version"
	fieldCreatedAt   = "created_at"
	fieldUpdatedAt   = "updated_at"
)

// incrementScript issues current_number when the stored label matches ARGV[1] and
// the counter is within [1, ARGV[3]]. It returns nil when the caller must take the
// compare-and-swap path.
var incrementScript = redis.NewScript(`
local label = redis.call('HGET', KEYS[1], 'last_fiscal_year_label')
if (not label) or label == '' or label ~= ARGV[1] then
  return false
end
local current = tonumber(redis.call('HGET', KEYS[1], 'current_number'))
if (not current) or current < 1 or current > tonumber(ARGV[3]) then
  return false
end
redis.call('HINCRBY', KEYS[1], 'current_number', 1)
redis.call('HINCRBY', KEYS[1], 'version', 1)
redis.call('HSET', KEYS[1], 'updated_at', ARGV[2])
return redis.call('HGETALL', KEYS[1])
`)

// Store is the Redis numerator.Store.
type Store struct {
	client    redis.UniversalClient
	keyPrefix string
	now       func() time.Time
}

// New creates a store. keyPrefix namespaces all keys, e.g. "docnum".
func New(client redis.UniversalClient, keyPrefix string) *Store {
	if keyPrefix == "" {
		keyPrefix = "docnum"
	}
	return &Store{client: client, keyPrefix: keyPrefix, now: time.Now}
}

// Ensure compile-time interface compliance.
var (
	_ numerator.Store       = (*Store)(nil)
	_ numerator.Incrementer = (*Store)(nil)
)

// redisKey places all sequences of a branch in one cluster slot, so a bulk save
// can WATCH them together.
func (s *Store) redisKey(key numerator.Key) string {
	return fmt.Sprintf("%s:seq:{%s:%s}:%s", s.keyPrefix, key.CompanyID, key.BranchID, key.DocumentType)
}

// Get implements numerator.Store.
func (s *Store) Get(ctx context.Context, key numerator.Key) (*numerator.Sequence, error) {
	return get(ctx, s.client, s.redisKey(key), key)
}

func get(ctx context.Context, c redis.Cmdable, rkey string, key numerator.Key) (*numerator.Sequence, error) {
	fields, err := c.HGetAll(ctx, rkey).Result()
	if err != nil {
		return nil, fmt.Errorf("get sequence: %w", err)
	}
	if len(fields) == 0 {
		return nil, apperror.NewNotFound("sequence", key.String())
	}
	return decode(key, fields)
}

// CreateDefault implements numerator.Store.
func (s *Store) CreateDefault(ctx context.Context, key numerator.Key, defaults numerator.TypeDefaults) (*numerator.Sequence, error) {
	rkey := s.redisKey(key)
	seq := numerator.NewSequence(key, defaults, s.now().UTC())

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, rkey).Result()
		if err != nil || n > 0 {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.HSet(ctx, rkey, encode(seq.Config, seq.Version, seq.CreatedAt, seq.UpdatedAt))
			return nil
		})
		return err
	}, rkey)
	// A failed transaction means another creator got there first.
	if err != nil && !errors.Is(err, redis.TxFailedErr) {
		return nil, fmt.Errorf("create sequence: %w", err)
	}
	return s.Get(ctx, key)
}

// CompareAndSwap implements numerator.Store.
func (s *Store) CompareAndSwap(ctx context.Context, key numerator.Key, expectedVersion int64, next numerator.Config) error {
	rkey := s.redisKey(key)

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		version, err := tx.HGet(ctx, rkey, fieldVersion).Int64()
		if errors.Is(err, redis.Nil) {
			return apperror.NewNotFound("sequence", key.String())
		}
		if err != nil {
			return err
		}
		if version != expectedVersion {
			return numerator.ErrVersionConflict
		}

		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.HSet(ctx, rkey, encodeUpdate(next, expectedVersion+1, s.now().UTC()))
			return nil
		})
		return err
	}, rkey)

	switch {
	case err == nil:
		return nil
	case errors.Is(err, redis.TxFailedErr):
		return numerator.ErrVersionConflict
	case errors.Is(err, numerator.ErrVersionConflict), apperror.IsAppError(err):
		return err
	default:
		return fmt.Errorf("update sequence: %w", err)
	}
}

// IncrementAndFetch implements numerator.Incrementer.
func (s *Store) IncrementAndFetch(ctx context.Context, key numerator.Key, fiscalLabel string) (int64, *numerator.Sequence, error) {
	if fiscalLabel == "" {
		return 0, nil, numerator.ErrSlowPath
	}
	res, err := incrementScript.Run(ctx, s.client,
		[]string{s.redisKey(key)},
		fiscalLabel, s.now().UTC().Format(time.RFC3339Nano), numerator.MaxCounter,
	).StringSlice()
	if errors.Is(err, redis.Nil) {
		return 0, nil, numerator.ErrSlowPath
	}
	if err != nil {
		return 0, nil, fmt.Errorf("increment sequence: %w", err)
	}

	fields := make(map[string]string, len(res)/2)
	for i := 0; i+1 < len(res); i += 2 {
		fields[res[i]] = res[i+1]
	}
	seq, err := decode(key, fields)
	if err != nil {
		return 0, nil, err
	}
	return seq.CurrentNumber - 1, seq, nil
}

// BulkUpsert implements numerator.Store. All hashes of the branch are watched and
// written in one MULTI; a concurrent write to any of them restarts the save.
func (s *Store) BulkUpsert(ctx context.Context, companyID, branchID id.ID, edits []numerator.ConfigEdit) ([]numerator.UpsertResult, error) {
	keys := make([]numerator.Key, len(edits))
	rkeys := make([]string, len(edits))
	for i, e := range edits {
		keys[i] = numerator.Key{CompanyID: companyID, BranchID: branchID, DocumentType: e.DocumentType}
		rkeys[i] = s.redisKey(keys[i])
	}

	var results []numerator.UpsertResult
	txf := func(tx *redis.Tx) error {
		now := s.now().UTC()
		results = make([]numerator.UpsertResult, len(edits))
		writes := make([]map[string]any, len(edits))

		for i, e := range edits {
			seq, err := get(ctx, tx, rkeys[i], keys[i])
			created := apperror.IsNotFound(err)
			switch {
			case created:
				seq = numerator.NewSequence(keys[i], numerator.TypeDefaults{}, now)
				seq.Version = 0
			case err != nil:
				return err
			}

			cfg := e.Apply(seq.Config)
			version := seq.Version + 1
			if created {
				writes[i] = encode(cfg, version, now, now)
			} else {
				writes[i] = encodeUpdate(cfg, version, now)
			}
			results[i] = numerator.UpsertResult{DocumentType: e.DocumentType, Created: created, Version: version}
		}

		_, err := tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			for i := range edits {
				p.HSet(ctx, rkeys[i], writes[i])
			}
			return nil
		})
		return err
	}

	for attempt := 0; attempt < bulkAttempts; attempt++ {
		err := s.client.Watch(ctx, txf, rkeys...)
		if err == nil {
			return results, nil
		}
		if !errors.Is(err, redis.TxFailedErr) {
			return nil, fmt.Errorf("bulk upsert sequences: %w", err)
		}
	}
	return nil, apperror.NewConcurrentModification("branch", branchID.String())
}

func encode(cfg numerator.Config, version int64, createdAt, updatedAt time.Time) map[string]any {
	m := encodeUpdate(cfg, version, updatedAt)
	m[fieldCreatedAt] = createdAt.Format(time.RFC3339Nano)
	return m
}

func encodeUpdate(cfg numerator.Config, version int64, updatedAt time.Time) map[string]any {
	return map[string]any{
		fieldPrefix:      cfg.Prefix,
		fieldSuffix:      cfg.Suffix,
		fieldCurrent:     cfg.CurrentNumber,
		fieldPadding:     cfg.PaddingZeros,
		fieldResetYearly: strconv.FormatBool(cfg.ResetYearly),
		fieldLastLabel:   cfg.LastFiscalYearLabel,
		fieldVersion:     version,
		fieldUpdatedAt:   updatedAt.Format(time.RFC3339Nano),
	}
}

func decode(key numerator.Key, f map[string]string) (*numerator.Sequence, error) {
	seq := &numerator.Sequence{Key: key}
	seq.Prefix = f[fieldPrefix]
	seq.Suffix = f[fieldSuffix]
	seq.LastFiscalYearLabel = f[fieldLastLabel]

	var err error
	if seq.CurrentNumber, err = strconv.ParseInt(f[fieldCurrent], 10, 64); err != nil {
		return nil, corrupt(key, fieldCurrent, err)
	}
	if seq.PaddingZeros, err = strconv.Atoi(f[fieldPadding]); err != nil {
		return nil, corrupt(key, fieldPadding, err)
	}
	if seq.ResetYearly, err = strconv.ParseBool(f[fieldResetYearly]); err != nil {
		return nil, corrupt(key, fieldResetYearly, err)
	}
	if seq.Version, err = strconv.ParseInt(f[fieldVersion], 10, 64); err != nil {
		return nil, corrupt(key, fieldVersion, err)
	}
	// Timestamps are informational; a missing one decodes as zero.
	seq.CreatedAt, _ = time.Parse(time.RFC3339Nano, f[fieldCreatedAt])
	seq.UpdatedAt, _ = time.Parse(time.RFC3339Nano, f[fieldUpdatedAt])
	return seq, nil
}

func corrupt(key numerator.Key, field string, err error) error {
	return fmt.Errorf("sequence %s: corrupt field %s: %w", key, field, err)
}
