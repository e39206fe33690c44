package redisstore

import (
	"context"
	"fmt"

	"github.com/MrEthical07/caseguard"
	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

// Records are kept as JSON in append-only lists, newest at the head.

func (s *Store) auditKey() string {
	return s.prefix + ":audit"
}

func (s *Store) activityKey() string {
	return s.prefix + ":activity"
}

// AppendAudit pushes one audit record.
func (s *Store) AppendAudit(ctx context.Context, record caseguard.AuditRecord) error {
	return s.push(ctx, s.auditKey(), record)
}

// AppendActivity pushes one activity entry.
func (s *Store) AppendActivity(ctx context.Context, entry caseguard.ActivityEntry) error {
	return s.push(ctx, s.activityKey(), entry)
}

func (s *Store) push(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	if err := s.redis.LPush(ctx, key, data).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

// ListAudit returns audit records newest first.
func (s *Store) ListAudit(ctx context.Context, filter caseguard.RecordFilter) ([]caseguard.AuditRecord, error) {
	return listRecords(ctx, s.redis, s.auditKey(), filter, func(r caseguard.AuditRecord) string { return r.ActorID })
}

// ListActivity returns activity entries newest first.
func (s *Store) ListActivity(ctx context.Context, filter caseguard.RecordFilter) ([]caseguard.ActivityEntry, error) {
	return listRecords(ctx, s.redis, s.activityKey(), filter, func(e caseguard.ActivityEntry) string { return e.ActorID })
}

func listRecords[T any](ctx context.Context, client redis.UniversalClient, key string, filter caseguard.RecordFilter, actor func(T) string) ([]T, error) {
	stop := int64(-1)
	if filter.ActorID == "" && filter.Limit > 0 {
		stop = int64(filter.Limit) - 1
	}
	raw, err := client.LRange(ctx, key, 0, stop).Result()
	if err != nil {
		return nil, unavailable(err)
	}

	out := make([]T, 0, len(raw))
	for _, item := range raw {
		var v T
		if err := json.Unmarshal([]byte(item), &v); err != nil {
			return nil, fmt.Errorf("decode record: %w", err)
		}
		if filter.ActorID != "" && actor(v) != filter.ActorID {
			continue
		}
		out = append(out, v)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}
