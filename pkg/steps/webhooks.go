package steps

import (
	"context"

	"github.com/Sternrassler/spoke-connector/pkg/client"
	"github.com/Sternrassler/spoke-connector/pkg/graph"
	"github.com/Sternrassler/spoke-connector/pkg/integration"
)

func webhooksStep() integration.Step {
	return integration.Step{
		ID:            StepFetchWebhooks,
		Name:          "Fetch Webhooks",
		Entities:      []string{WebhookEntityType},
		Relationships: []string{accountEdgeType(WebhookEntityType)},
		DependsOn:     []string{StepFetchAccount},
		Handler:       fetchWebhooks,
	}
}

func fetchWebhooks(ctx context.Context, exec *integration.ExecutionContext) error {
	if err := requireClient(exec); err != nil {
		return err
	}
	account, err := exec.Account()
	if err != nil {
		return err
	}

	count := 0
	err = exec.Client.IterateWebhooks(ctx, func(ctx context.Context, w client.Webhook) error {
		e, err := graph.NewEntity(graph.EntitySpec{
			Key:   w.ID,
			Type:  WebhookEntityType,
			Class: []string{ApplicationEndpointClass},
			Properties: map[string]any{
				"id":                w.ID,
				"name":              w.Client,
				"displayName":       w.Client,
				"enabled":           w.Enabled,
				"topics":            w.Topics,
				"address":           w.URL,
				"targetUrl":         w.URL,
				"targetServiceName": w.Client,
				"description":       optional(w.Description),
			},
			Source: w.Raw,
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

	exec.Logger.Info().Int("items", count).Msg("Webhooks fetched")
	return nil
}
