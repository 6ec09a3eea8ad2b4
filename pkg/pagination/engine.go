package pagination

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var (
	pagesFetchedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "spoke_pages_fetched_total",
		Help: "Total pages fetched from the provider by endpoint",
	}, []string{"endpoint"})

	itemsDeliveredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "spoke_items_delivered_total",
		Help: "Total items handed to iteration handlers by endpoint",
	}, []string{"endpoint"})

	paginationStopsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "spoke_pagination_stops_total",
		Help: "Completed pagination walks by endpoint and stop reason",
	}, []string{"endpoint", "reason"})
)

// StopReason says why a walk ended.
type StopReason string

const (
	// StopExhausted means the provider returned a short page.
	StopExhausted StopReason = "exhausted"

	// StopCutoff means the Stop policy fired.
	StopCutoff StopReason = "cutoff"

	// StopRecordCap means MaxRecords items were delivered.
	StopRecordCap StopReason = "record_cap"

	// StopSinglePage is reported by Once.
	StopSinglePage StopReason = "single_page"
)

// PageFetcher fetches one page of a collection and returns its raw items.
type PageFetcher interface {
	FetchPage(ctx context.Context, endpoint string, query url.Values) ([]json.RawMessage, error)
}

// StopFunc inspects a page after its items were delivered and reports whether
// the walk should end.
type StopFunc[T any] func(page []T) bool

// Handler receives each item in page order.
type Handler[T any] func(ctx context.Context, item T) error

// Request describes one paged walk.
type Request[T any] struct {
	// Endpoint is the resource path, e.g. "/users".
	Endpoint string

	// PageSize is sent as `limit`. It is fixed per resource by the provider's
	// limits and must be positive.
	PageSize int

	// Filter holds extra query parameters sent with every page.
	Filter url.Values

	// Stop is an optional early-stop policy.
	Stop StopFunc[T]

	// MaxRecords caps delivered items. Zero means no cap.
	MaxRecords int
}

// Result summarizes a finished walk.
type Result struct {
	Pages  int
	Items  int
	Reason StopReason
}

// Engine drives paged walks against a PageFetcher.
type Engine struct {
	fetcher PageFetcher
	logger  zerolog.Logger
}

// NewEngine creates a pagination engine.
func NewEngine(fetcher PageFetcher, logger zerolog.Logger) *Engine {
	return &Engine{
		fetcher: fetcher,
		logger:  logger,
	}
}

// Iterate pages through req.Endpoint, delivering every item to handle before
// the next page is requested.
func Iterate[T any](ctx context.Context, e *Engine, req Request[T], handle Handler[T]) (Result, error) {
	if req.PageSize <= 0 {
		return Result{}, fmt.Errorf("page size must be positive (got %d)", req.PageSize)
	}
	if req.MaxRecords < 0 {
		return Result{}, fmt.Errorf("max records must be >= 0 (got %d)", req.MaxRecords)
	}

	start := time.Now()
	var res Result
	offset := 0

	for {
		query := url.Values{}
		for k, v := range req.Filter {
			query[k] = v
		}
		query.Set("start", strconv.Itoa(offset))
		query.Set("limit", strconv.Itoa(req.PageSize))

		e.logger.Debug().
			Str("endpoint", req.Endpoint).
			Int("start", offset).
			Int("page_size", req.PageSize).
			Msg("Fetching page")

		raw, err := e.fetcher.FetchPage(ctx, req.Endpoint, query)
		if err != nil {
			return res, err
		}
		res.Pages++
		pagesFetchedTotal.WithLabelValues(req.Endpoint).Inc()

		page, err := decodePage[T](req.Endpoint, raw)
		if err != nil {
			return res, err
		}

		for _, item := range page {
			if err := handle(ctx, item); err != nil {
				return res, err
			}
			res.Items++
			itemsDeliveredTotal.WithLabelValues(req.Endpoint).Inc()

			if req.MaxRecords > 0 && res.Items >= req.MaxRecords {
				return e.finish(req.Endpoint, res, StopRecordCap, start), nil
			}
		}

		if len(page) < req.PageSize {
			return e.finish(req.Endpoint, res, StopExhausted, start), nil
		}
		if req.Stop != nil && req.Stop(page) {
			return e.finish(req.Endpoint, res, StopCutoff, start), nil
		}

		offset += req.PageSize
	}
}

// Once fetches an unpaged collection and delivers its items.
func Once[T any](ctx context.Context, e *Engine, endpoint string, handle Handler[T]) (Result, error) {
	start := time.Now()
	var res Result

	raw, err := e.fetcher.FetchPage(ctx, endpoint, nil)
	if err != nil {
		return res, err
	}
	res.Pages = 1
	pagesFetchedTotal.WithLabelValues(endpoint).Inc()

	items, err := decodePage[T](endpoint, raw)
	if err != nil {
		return res, err
	}
	for _, item := range items {
		if err := handle(ctx, item); err != nil {
			return res, err
		}
		res.Items++
		itemsDeliveredTotal.WithLabelValues(endpoint).Inc()
	}

	return e.finish(endpoint, res, StopSinglePage, start), nil
}

func (e *Engine) finish(endpoint string, res Result, reason StopReason, start time.Time) Result {
	res.Reason = reason
	paginationStopsTotal.WithLabelValues(endpoint, string(reason)).Inc()

	e.logger.Info().
		Str("endpoint", endpoint).
		Int("pages", res.Pages).
		Int("items", res.Items).
		Str("stop_reason", string(reason)).
		Dur("duration", time.Since(start)).
		Msg("Pagination complete")

	return res
}

func decodePage[T any](endpoint string, raw []json.RawMessage) ([]T, error) {
	page := make([]T, 0, len(raw))
	for i, item := range raw {
		var v T
		if err := json.Unmarshal(item, &v); err != nil {
			return nil, fmt.Errorf("decode %s item %d: %w", endpoint, i, err)
		}
		page = append(page, v)
	}
	return page, nil
}
