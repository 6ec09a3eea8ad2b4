// Package steps holds the atSpoke ingestion steps.
package steps

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Sternrassler/spoke-connector/pkg/graph"
	"github.com/Sternrassler/spoke-connector/pkg/integration"
	"github.com/Sternrassler/spoke-connector/pkg/pagination"
)

// Step ids.
const (
	StepFetchAccount      = "fetch-account"
	StepFetchUsers        = "fetch-users"
	StepFetchTeams        = "fetch-teams"
	StepFetchWebhooks     = "fetch-webhooks"
	StepFetchRequestTypes = "fetch-request-types"
	StepFetchRequests     = "fetch-requests"
)

// Entity types.
const (
	AccountEntityType     = "atspoke_account"
	UserEntityType        = "atspoke_user"
	TeamEntityType        = "atspoke_team"
	WebhookEntityType     = "atspoke_webhook"
	RequestTypeEntityType = "atspoke_requesttype"
	RequestEntityType     = "atspoke_request"
)

// Entity classes.
const (
	AccountClass             = "Account"
	UserClass                = "User"
	UserGroupClass           = "UserGroup"
	ApplicationEndpointClass = "ApplicationEndpoint"
	ConfigurationClass       = "Configuration"
	RecordClass              = "Record"
)

// All returns every step in declaration order.
func All() []integration.Step {
	return []integration.Step{
		accountStep(),
		usersStep(),
		teamsStep(),
		webhooksStep(),
		requestTypesStep(),
		requestsStep(),
	}
}

func accountEdgeType(toType string) string {
	return graph.RelationshipType(AccountEntityType, graph.RelationshipHas, toType)
}

func requireClient(exec *integration.ExecutionContext) error {
	if exec.Client == nil {
		return fmt.Errorf("execution context has no api client")
	}
	return nil
}

// addOwned adds e and, when it is new, an Account HAS e relationship. It
// returns the stored entity, which has a different type than e when the key
// was already taken by another type.
func addOwned(ctx context.Context, exec *integration.ExecutionContext, account, e *graph.Entity) (*graph.Entity, error) {
	stored, added, err := exec.JobState.AddEntity(ctx, e)
	if err != nil {
		return nil, fmt.Errorf("add %s %s: %w", e.Type, e.Key, err)
	}
	if !added {
		if stored.Type != e.Type {
			exec.Logger.Warn().
				Str("key", e.Key).
				Str("type", e.Type).
				Str("stored_type", stored.Type).
				Msg("Entity key already used by another type; dropping")
			return stored, nil
		}
		exec.Logger.Debug().Str("type", e.Type).Str("key", e.Key).Msg("Entity already in job state")
		return stored, nil
	}

	rel, err := graph.NewRelationship(graph.RelationshipHas, account, stored)
	if err != nil {
		return nil, err
	}
	if err := exec.JobState.AddRelationship(ctx, rel); err != nil {
		return nil, fmt.Errorf("add relationship %s: %w", rel.Key, err)
	}
	return stored, nil
}

// withoutField returns raw with one top-level field removed. Payloads that
// are not JSON objects come back unchanged.
func withoutField(raw json.RawMessage, field string) json.RawMessage {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return raw
	}
	if _, ok := obj[field]; !ok {
		return raw
	}
	delete(obj, field)
	data, err := json.Marshal(obj)
	if err != nil {
		return raw
	}
	return data
}

// timeProperty converts a provider timestamp to epoch milliseconds, or nil
// when it does not parse.
func timeProperty(s string) any {
	t, ok := pagination.ParseTimestamp(s)
	if !ok {
		return nil
	}
	return t.UnixMilli()
}

// optional returns nil for empty strings so the property is omitted.
func optional(s string) any {
	if s == "" {
		return nil
	}
	return s
}
