// Package pagination walks offset-paged atSpoke collections one page at a time.
//
// The provider pages with `start` (0-based offset, most recent first) and
// `limit`. Iterate fetches a page, hands every item to the caller's handler in
// order, and only then decides whether to fetch the next page. There is never
// more than one page in flight and nothing is buffered ahead of the handler,
// so a handler error stops the walk immediately.
//
// Example usage:
//
//	engine := pagination.NewEngine(apiClient, logger)
//	res, err := pagination.Iterate(ctx, engine, pagination.Request[client.Request]{
//		Endpoint:   "/requests",
//		PageSize:   100,
//		Filter:     url.Values{"status": {"OPEN,RESOLVED"}},
//		Stop:       pagination.StopWhenStale[client.Request](cutoff, nil),
//		MaxRecords: 500,
//	}, handle)
//
// A walk ends for the first of these reasons:
//   - exhausted: a page came back shorter than the page size
//   - cutoff: the Stop policy fired after the page was delivered
//   - record_cap: MaxRecords items were delivered
package pagination
