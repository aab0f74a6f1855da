package esi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/nerevar/corpsync/internal/cache"
	"github.com/nerevar/corpsync/internal/domain"
)

var tracer = otel.Tracer("esi")

// Options bounds the client's request volume. Zero values fall back to the
// external service's fair-use defaults.
type Options struct {
	CacheTTL          time.Duration
	BatchMaxInFlight  int
	BatchMaxPerSecond int
}

// Client is the cached, rate-limited accessor for character, corporation and
// alliance lookups. One instance is shared process-wide: one connection
// pool, one cache.
type Client struct {
	getter   Getter
	store    cache.Store
	logger   *slog.Logger
	cacheTTL time.Duration
	group    singleflight.Group
	limiter  *rate.Limiter
	sem      chan struct{}
}

func NewClient(getter Getter, store cache.Store, logger *slog.Logger, opts Options) *Client {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 15 * time.Minute
	}
	if opts.BatchMaxInFlight <= 0 {
		opts.BatchMaxInFlight = 2
	}
	if opts.BatchMaxPerSecond <= 0 {
		opts.BatchMaxPerSecond = 5
	}
	return &Client{
		getter:   getter,
		store:    store,
		logger:   logger,
		cacheTTL: opts.CacheTTL,
		limiter:  rate.NewLimiter(rate.Limit(opts.BatchMaxPerSecond), opts.BatchMaxPerSecond),
		sem:      make(chan struct{}, opts.BatchMaxInFlight),
	}
}

type characterResponse struct {
	Name          string `json:"name"`
	CorporationID int64  `json:"corporation_id"`
	AllianceID    *int64 `json:"alliance_id"`
}

type corporationResponse struct {
	Name        string `json:"name"`
	Ticker      string `json:"ticker"`
	AllianceID  *int64 `json:"alliance_id"`
	MemberCount int    `json:"member_count"`
}

type allianceResponse struct {
	Name   string `json:"name"`
	Ticker string `json:"ticker"`
}

// Character looks up a character's current affiliation. A 404 from the
// source yields domain.NotFoundError, not a transport error.
func (c *Client) Character(ctx context.Context, id int64) (*domain.AffiliationRecord, error) {
	ctx, span := tracer.Start(ctx, "ESI.Client.Character")
	defer span.End()

	key := fmt.Sprintf("esi:character:%d", id)
	body, err := c.lookup(ctx, key, fmt.Sprintf("/characters/%d/", id), "character")
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	var resp characterResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		span.RecordError(err)
		return nil, err
	}
	return &domain.AffiliationRecord{
		CharacterID:   id,
		Name:          resp.Name,
		CorporationID: resp.CorporationID,
		AllianceID:    resp.AllianceID,
	}, nil
}

// Corporation looks up a corporation by id.
func (c *Client) Corporation(ctx context.Context, id int64) (*domain.CorporationRecord, error) {
	ctx, span := tracer.Start(ctx, "ESI.Client.Corporation")
	defer span.End()

	key := fmt.Sprintf("esi:corporation:%d", id)
	body, err := c.lookup(ctx, key, fmt.Sprintf("/corporations/%d/", id), "corporation")
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	var resp corporationResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		span.RecordError(err)
		return nil, err
	}
	return &domain.CorporationRecord{
		CorporationID: id,
		Name:          resp.Name,
		Ticker:        resp.Ticker,
		AllianceID:    resp.AllianceID,
		MemberCount:   resp.MemberCount,
	}, nil
}

// Alliance looks up an alliance by id.
func (c *Client) Alliance(ctx context.Context, id int64) (*domain.AllianceRecord, error) {
	ctx, span := tracer.Start(ctx, "ESI.Client.Alliance")
	defer span.End()

	key := fmt.Sprintf("esi:alliance:%d", id)
	body, err := c.lookup(ctx, key, fmt.Sprintf("/alliances/%d/", id), "alliance")
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	var resp allianceResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		span.RecordError(err)
		return nil, err
	}
	return &domain.AllianceRecord{
		AllianceID: id,
		Name:       resp.Name,
		Ticker:     resp.Ticker,
	}, nil
}

// Characters fans out affiliation lookups with bounded concurrency and a
// bounded request rate. Results are partial: an id that errored is omitted
// and logged, it never aborts its siblings.
func (c *Client) Characters(ctx context.Context, ids []int64) map[int64]domain.AffiliationRecord {
	ctx, span := tracer.Start(ctx, "ESI.Client.Characters")
	defer span.End()

	results := make(map[int64]domain.AffiliationRecord, len(ids))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, id := range ids {
		select {
		case <-ctx.Done():
			wg.Wait()
			return results
		case c.sem <- struct{}{}:
		}

		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			defer func() { <-c.sem }()

			if err := c.limiter.Wait(ctx); err != nil {
				return
			}
			record, err := c.Character(ctx, id)
			if err != nil {
				c.logger.Warn("character affiliation lookup failed",
					slog.Int64("character_id", id),
					slog.String("error", err.Error()),
				)
				return
			}
			mu.Lock()
			results[id] = *record
			mu.Unlock()
		}(id)
	}

	wg.Wait()
	return results
}

// lookup is the read-through cache step shared by every single-item lookup.
// Concurrent identical misses collapse into one in-flight request.
func (c *Client) lookup(ctx context.Context, key string, path string, resource string) ([]byte, error) {
	if body, ok := c.store.Get(ctx, key); ok {
		return body, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		body, err := c.getter.Get(ctx, path)
		if err != nil {
			var statusErr *StatusError
			if errors.As(err, &statusErr) && statusErr.Code == 404 {
				return nil, domain.NotFoundError{Resource: resource}
			}
			return nil, err
		}
		c.store.Set(ctx, key, body, c.cacheTTL)
		return body, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}
