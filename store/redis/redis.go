package redis

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/fragcache/store"
)

var ErrNilClient = errors.New("redis store: nil client")

const (
	defaultScanCount = 500
	delBatch         = 256
)

type Redis struct {
	rdb         goredis.UniversalClient
	closeClient bool
	scanCount   int64
}

var _ store.Store = (*Redis)(nil)

type Config struct {
	Client      goredis.UniversalClient
	CloseClient bool  // set true only if this store exclusively owns the client
	ScanCount   int64 // SCAN COUNT hint used by DelMatching; 0 => 500
}

func New(cfg Config) (*Redis, error) {
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	sc := cfg.ScanCount
	if sc <= 0 {
		sc = defaultScanCount
	}
	return &Redis{rdb: cfg.Client, closeClient: cfg.CloseClient, scanCount: sc}, nil
}

func (s *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := s.rdb.Get(ctx, key).Bytes()
	if err == goredis.Nil {
		return nil, false, nil // miss
	}
	if err != nil {
		return nil, false, err // transport/server error
	}
	return b, true, nil
}

func (s *Redis) GetMulti(ctx context.Context, keys ...string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	if _, ok := s.rdb.(*goredis.ClusterClient); ok && len(keys) > 1 {
		return s.getEach(ctx, keys)
	}
	vals, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	for i, v := range vals {
		switch vv := v.(type) {
		case nil:
		case string:
			out[keys[i]] = []byte(vv)
		case []byte:
			out[keys[i]] = vv
		}
	}
	return out, nil
}

func (s *Redis) Set(ctx context.Context, key string, value []byte, _ int64, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = 0 // treat non-positive TTLs as "no expiry" per store contract
	}
	if err := s.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Redis) Del(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}

// DelMatching walks the keyspace with SCAN and deletes keys matched by pattern.
// The SCAN glob is narrowed with the pattern's literal prefix when it has one.
// On a cluster every master is scanned and keys are deleted one per command,
// since a multi-key DEL fails with CROSSSLOT when keys live in different slots.
func (s *Redis) DelMatching(ctx context.Context, pattern *regexp.Regexp) (int, error) {
	match := "*"
	if lit, _ := pattern.LiteralPrefix(); lit != "" {
		match = "*" + globEscape(lit) + "*"
	}

	cc, ok := s.rdb.(*goredis.ClusterClient)
	if !ok {
		return s.scanDel(ctx, s.rdb, match, pattern, false)
	}
	var removed atomic.Int64
	err := cc.ForEachMaster(ctx, func(ctx context.Context, node *goredis.Client) error {
		n, err := s.scanDel(ctx, node, match, pattern, true)
		removed.Add(int64(n))
		return err
	})
	return int(removed.Load()), err
}

func (s *Redis) scanDel(ctx context.Context, c goredis.Cmdable, match string, pattern *regexp.Regexp, perKey bool) (int, error) {
	removed := 0
	batch := make([]string, 0, delBatch)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		var n int64
		var err error
		if perKey {
			n, err = delEach(ctx, c, batch)
		} else {
			n, err = c.Del(ctx, batch...).Result()
		}
		removed += int(n)
		batch = batch[:0]
		return err
	}

	iter := c.Scan(ctx, 0, match, s.scanCount).Iterator()
	for iter.Next(ctx) {
		k := iter.Val()
		if !pattern.MatchString(k) {
			continue
		}
		batch = append(batch, k)
		if len(batch) == delBatch {
			if err := flush(); err != nil {
				return removed, err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return removed, err
	}
	if err := flush(); err != nil {
		return removed, err
	}
	return removed, nil
}

// delEach pipelines one DEL per key.
func delEach(ctx context.Context, c goredis.Cmdable, keys []string) (int64, error) {
	cmds, err := c.Pipelined(ctx, func(p goredis.Pipeliner) error {
		for _, k := range keys {
			p.Del(ctx, k)
		}
		return nil
	})
	var n int64
	for _, cmd := range cmds {
		if ic, ok := cmd.(*goredis.IntCmd); ok {
			n += ic.Val()
		}
	}
	return n, err
}

// getEach pipelines one GET per key; used on clusters where MGET must stay
// within one slot.
func (s *Redis) getEach(ctx context.Context, keys []string) (map[string][]byte, error) {
	cmds, err := s.rdb.Pipelined(ctx, func(p goredis.Pipeliner) error {
		for _, k := range keys {
			p.Get(ctx, k)
		}
		return nil
	})
	if err != nil && !errors.Is(err, goredis.Nil) {
		return nil, err
	}
	out := make(map[string][]byte, len(keys))
	for i, cmd := range cmds {
		sc, ok := cmd.(*goredis.StringCmd)
		if !ok {
			continue
		}
		b, err := sc.Bytes()
		if errors.Is(err, goredis.Nil) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out[keys[i]] = b
	}
	return out, nil
}

// Close releases the underlying redis client only when this store owns it.
// Safe to call multiple times; repeated calls become no-ops.
func (s *Redis) Close(context.Context) error {
	if s.closeClient {
		if err := s.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
			return err
		}
	}
	return nil
}

var globReplacer = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

func globEscape(s string) string { return globReplacer.Replace(s) }
