package steps

import (
	"context"
	"fmt"

	"github.com/Sternrassler/spoke-connector/pkg/client"
	"github.com/Sternrassler/spoke-connector/pkg/graph"
	"github.com/Sternrassler/spoke-connector/pkg/integration"
)

func requestTypesStep() integration.Step {
	return integration.Step{
		ID:            StepFetchRequestTypes,
		Name:          "Fetch Request Types",
		Entities:      []string{RequestTypeEntityType},
		Relationships: []string{accountEdgeType(RequestTypeEntityType)},
		DependsOn:     []string{StepFetchAccount},
		Handler:       fetchRequestTypes,
	}
}

func requestsStep() integration.Step {
	return integration.Step{
		ID:       StepFetchRequests,
		Name:     "Fetch Requests",
		Entities: []string{RequestEntityType},
		Relationships: []string{
			accountEdgeType(RequestEntityType),
			graph.RelationshipType(RequestEntityType, graph.RelationshipHas, RequestTypeEntityType),
		},
		DependsOn: []string{StepFetchRequestTypes},
		Handler:   fetchRequests,
	}
}

func fetchRequestTypes(ctx context.Context, exec *integration.ExecutionContext) error {
	if err := requireClient(exec); err != nil {
		return err
	}
	account, err := exec.Account()
	if err != nil {
		return err
	}

	count := 0
	err = exec.Client.IterateRequestTypes(ctx, func(ctx context.Context, rt client.RequestType) error {
		e, err := graph.NewEntity(graph.EntitySpec{
			Key:   rt.ID,
			Type:  RequestTypeEntityType,
			Class: []string{ConfigurationClass},
			Properties: map[string]any{
				"name":        rt.Title,
				"displayName": rt.Title,
				"description": optional(rt.Description),
				"status":      optional(rt.Status),
				"icon":        optional(rt.Icon),
			},
			Source: rt.Raw,
		})
		if err != nil {
			return err
		}
		if _, err := addOwned(ctx, exec, account, e); err != nil {
			return err
		}
		count++
		return nil
	})
	if err != nil {
		return err
	}

	exec.Logger.Info().Int("items", count).Msg("Request types fetched")
	return nil
}

func fetchRequests(ctx context.Context, exec *integration.ExecutionContext) error {
	if err := requireClient(exec); err != nil {
		return err
	}
	account, err := exec.Account()
	if err != nil {
		return err
	}

	opts := client.RequestOptions{
		Watermark:  exec.Watermark,
		Lookback:   exec.Lookback,
		MaxRecords: exec.RequestCap,
		Now:        exec.Now,
	}

	linked := 0
	res, err := exec.Client.IterateRequests(ctx, opts, func(ctx context.Context, r client.Request) error {
		e, err := requestEntity(r)
		if err != nil {
			return err
		}
		stored, err := addOwned(ctx, exec, account, e)
		if err != nil {
			return err
		}
		if stored != e || r.RequestType == "" {
			return nil
		}

		// Only request types already materialized in this run are linked.
		rt, ok, err := exec.JobState.FindEntity(ctx, r.RequestType)
		if err != nil {
			return fmt.Errorf("find request type %s: %w", r.RequestType, err)
		}
		if !ok || rt.Type != RequestTypeEntityType {
			exec.Logger.Debug().Str("request", r.ID).Str("request_type", r.RequestType).Msg("Request type not in job state")
			return nil
		}

		rel, err := graph.NewRelationship(graph.RelationshipHas, stored, rt)
		if err != nil {
			return err
		}
		if err := exec.JobState.AddRelationship(ctx, rel); err != nil {
			return fmt.Errorf("add relationship %s: %w", rel.Key, err)
		}
		linked++
		return nil
	})
	if err != nil {
		return err
	}

	exec.Logger.Info().
		Int("items", res.Items).
		Int("pages", res.Pages).
		Int("linked_request_types", linked).
		Str("stop_reason", string(res.Reason)).
		Msg("Requests fetched")
	return nil
}

func requestEntity(r client.Request) (*graph.Entity, error) {
	return graph.NewEntity(graph.EntitySpec{
		Key:   r.ID,
		Type:  RequestEntityType,
		Class: []string{RecordClass},
		Properties: map[string]any{
			"name":          r.Subject,
			"displayName":   r.Subject,
			"webLink":       optional(r.Permalink),
			"email":         optional(r.Email),
			"status":        optional(r.Status),
			"requester":     optional(r.Requester),
			"owner":         optional(r.Owner),
			"requestType":   optional(r.RequestType),
			"privacyLevel":  optional(r.PrivacyLevel),
			"team":          optional(r.Team),
			"org":           optional(r.Org),
			"isAutoResolve": r.IsAutoResolve,
			"isFiled":       r.IsFiled,
			"createdOn":     timeProperty(r.CreatedAt),
			"updatedOn":     timeProperty(r.UpdatedAt),
		},
		Source: withoutField(r.Raw, "requestTypeInfo"),
	})
}
