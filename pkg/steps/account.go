package steps

import (
	"context"
	"fmt"

	"github.com/Sternrassler/spoke-connector/pkg/graph"
	"github.com/Sternrassler/spoke-connector/pkg/integration"
)

func accountStep() integration.Step {
	return integration.Step{
		ID:       StepFetchAccount,
		Name:     "Fetch Account Details",
		Entities: []string{AccountEntityType},
		Handler:  fetchAccount,
	}
}

// AccountKey returns the account entity key for an instance.
func AccountKey(instanceID string) string {
	return "at-spoke-account:" + instanceID
}

func fetchAccount(ctx context.Context, exec *integration.ExecutionContext) error {
	if err := requireClient(exec); err != nil {
		return err
	}

	info, raw, err := exec.Client.GetAccountInfo(ctx)
	if err != nil {
		return fmt.Errorf("get account info: %w", err)
	}

	name := fmt.Sprintf("atSpoke %s - %s", info.Org, exec.Instance.Name)
	e, err := graph.NewEntity(graph.EntitySpec{
		Key:   AccountKey(exec.Instance.ID),
		Type:  AccountEntityType,
		Class: []string{AccountClass},
		Properties: map[string]any{
			"name":        name,
			"displayName": name,
			"org":         info.Org,
		},
		Source: raw,
	})
	if err != nil {
		return err
	}

	stored, _, err := exec.JobState.AddEntity(ctx, e)
	if err != nil {
		return fmt.Errorf("add account: %w", err)
	}
	exec.SetAccount(stored)

	exec.Logger.Info().Str("org", info.Org).Str("key", stored.Key).Msg("Account fetched")
	return nil
}
