package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/Sternrassler/spoke-connector/pkg/pagination"
)

// Provider endpoints, relative to the base URL.
const (
	EndpointWhoAmI       = "/whoami"
	EndpointUsers        = "/users"
	EndpointTeams        = "/teams"
	EndpointWebhooks     = "/webhooks"
	EndpointRequests     = "/requests"
	EndpointRequestTypes = "/request_types"
)

// Page sizes are fixed by the provider. Users, teams and request types break
// above 25 when the provider's AI features are on; 100 is the API maximum.
const (
	UsersPageSize        = 25
	TeamsPageSize        = 25
	RequestTypesPageSize = 25
	RequestsPageSize     = 100
)

// RequestStatusFilter overrides the provider default of OPEN requests only.
const RequestStatusFilter = "OPEN,RESOLVED,PENDING,LOCKED,AUTO_RESOLVED"

// RequestOptions bounds a request walk.
type RequestOptions struct {
	// Watermark is the start of the last successful run. Zero means none.
	Watermark time.Time

	// Lookback is the absolute ceiling; defaults to 14 days.
	Lookback time.Duration

	// MaxRecords caps delivered requests; 0 is uncapped.
	MaxRecords int

	// Now is used by the cutoff policy; defaults to time.Now.
	Now func() time.Time
}

// VerifyAuthentication makes the lightest call the API offers to check the key.
func (c *Client) VerifyAuthentication(ctx context.Context) error {
	_, err := c.Get(ctx, EndpointWhoAmI, nil)
	return err
}

// GetAccountInfo returns the account the API key belongs to.
func (c *Client) GetAccountInfo(ctx context.Context) (Account, json.RawMessage, error) {
	body, err := c.Get(ctx, EndpointWhoAmI, nil)
	if err != nil {
		return Account{}, nil, err
	}

	var acct Account
	if err := json.Unmarshal(body, &acct); err != nil {
		return Account{}, nil, fmt.Errorf("%w: %s: %v", ErrMalformedResponse, EndpointWhoAmI, err)
	}
	return acct, json.RawMessage(body), nil
}

// IterateUsers delivers every user.
func (c *Client) IterateUsers(ctx context.Context, iteratee pagination.Handler[User]) error {
	_, err := pagination.Iterate(ctx, c.engine, pagination.Request[User]{
		Endpoint: EndpointUsers,
		PageSize: UsersPageSize,
	}, iteratee)
	return err
}

// IterateTeams delivers every team.
func (c *Client) IterateTeams(ctx context.Context, iteratee pagination.Handler[Team]) error {
	_, err := pagination.Iterate(ctx, c.engine, pagination.Request[Team]{
		Endpoint: EndpointTeams,
		PageSize: TeamsPageSize,
	}, iteratee)
	return err
}

// IterateWebhooks delivers every webhook. The provider returns them unpaged.
func (c *Client) IterateWebhooks(ctx context.Context, iteratee pagination.Handler[Webhook]) error {
	_, err := pagination.Once(ctx, c.engine, EndpointWebhooks, iteratee)
	return err
}

// IterateRequestTypes delivers every request type.
func (c *Client) IterateRequestTypes(ctx context.Context, iteratee pagination.Handler[RequestType]) error {
	_, err := pagination.Iterate(ctx, c.engine, pagination.Request[RequestType]{
		Endpoint: EndpointRequestTypes,
		PageSize: RequestTypesPageSize,
	}, iteratee)
	return err
}

// IterateRequests delivers requests, most recently updated first, until the
// collection is exhausted, the pages fall behind the watermark or lookback
// window, or opts.MaxRecords requests were delivered.
func (c *Client) IterateRequests(ctx context.Context, opts RequestOptions, iteratee pagination.Handler[Request]) (pagination.Result, error) {
	cutoff := pagination.NewCutoff(opts.Watermark, opts.Lookback)
	if opts.Now != nil {
		cutoff.Now = opts.Now
		if opts.Watermark.IsZero() {
			cutoff.Watermark = opts.Now().Add(-cutoff.Lookback)
		}
	}

	stop := pagination.StopWhenStale[Request](cutoff, func(rule pagination.CutoffRule) {
		if rule == pagination.RuleUnparsable {
			c.logger.Warn().
				Str("endpoint", EndpointRequests).
				Str("stop_reason", string(rule)).
				Msg("Request page ended with an unparsable updatedAt; stopping")
			return
		}
		c.logger.Debug().
			Str("endpoint", EndpointRequests).
			Str("stop_reason", string(rule)).
			Time("watermark", cutoff.Watermark).
			Msg("Request cutoff reached")
	})

	return pagination.Iterate(ctx, c.engine, pagination.Request[Request]{
		Endpoint:   EndpointRequests,
		PageSize:   RequestsPageSize,
		Filter:     url.Values{"status": {RequestStatusFilter}},
		Stop:       stop,
		MaxRecords: opts.MaxRecords,
	}, iteratee)
}
