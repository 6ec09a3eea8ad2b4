package steps

import (
	"context"

	"github.com/Sternrassler/spoke-connector/pkg/client"
	"github.com/Sternrassler/spoke-connector/pkg/graph"
	"github.com/Sternrassler/spoke-connector/pkg/integration"
)

func usersStep() integration.Step {
	return integration.Step{
		ID:            StepFetchUsers,
		Name:          "Fetch Users",
		Entities:      []string{UserEntityType},
		Relationships: []string{accountEdgeType(UserEntityType)},
		DependsOn:     []string{StepFetchAccount},
		Handler:       fetchUsers,
	}
}

func teamsStep() integration.Step {
	return integration.Step{
		ID:            StepFetchTeams,
		Name:          "Fetch Teams",
		Entities:      []string{TeamEntityType},
		Relationships: []string{accountEdgeType(TeamEntityType)},
		DependsOn:     []string{StepFetchAccount},
		Handler:       fetchTeams,
	}
}

func fetchUsers(ctx context.Context, exec *integration.ExecutionContext) error {
	if err := requireClient(exec); err != nil {
		return err
	}
	account, err := exec.Account()
	if err != nil {
		return err
	}

	count := 0
	err = exec.Client.IterateUsers(ctx, func(ctx context.Context, u client.User) error {
		e, err := userEntity(u)
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

	exec.Logger.Info().Int("items", count).Msg("Users fetched")
	return nil
}

func userEntity(u client.User) (*graph.Entity, error) {
	name := u.DisplayName
	if name == "" {
		name = u.Email
	}

	props := map[string]any{
		"name":        name,
		"displayName": name,
		"email":       u.Email,
		"username":    u.Email,
		"active":      u.Status == "ACTIVE",
		"status":      optional(u.Status),
		"startDate":   optional(u.StartDate),
	}
	if u.IsEmailVerified != nil {
		props["isEmailVerified"] = *u.IsEmailVerified
	}
	if u.IsProfileCompleted != nil {
		props["isProfileCompleted"] = *u.IsProfileCompleted
	}
	if len(u.Memberships) > 0 {
		props["memberships"] = u.Memberships
	}

	return graph.NewEntity(graph.EntitySpec{
		Key:        u.ID,
		Type:       UserEntityType,
		Class:      []string{UserClass},
		Properties: props,
		Source:     u.Raw,
	})
}

func fetchTeams(ctx context.Context, exec *integration.ExecutionContext) error {
	if err := requireClient(exec); err != nil {
		return err
	}
	account, err := exec.Account()
	if err != nil {
		return err
	}

	count := 0
	err = exec.Client.IterateTeams(ctx, func(ctx context.Context, t client.Team) error {
		e, err := teamEntity(t)
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

	exec.Logger.Info().Int("items", count).Msg("Teams fetched")
	return nil
}

func teamEntity(t client.Team) (*graph.Entity, error) {
	props := map[string]any{
		"name":        t.Name,
		"displayName": t.Name,
		"slug":        optional(t.Slug),
		"description": optional(t.Description),
		"icon":        optional(t.Icon),
		"color":       optional(t.Color),
		"status":      optional(t.Status),
		"owner":       optional(t.Owner),
		"org":         optional(t.Org),
		"email":       optional(t.Email),
		"webLink":     optional(t.Permalink),
		"createdOn":   timeProperty(t.CreatedAt),
		"updatedOn":   timeProperty(t.UpdatedAt),
	}
	if len(t.Keywords) > 0 {
		props["keywords"] = t.Keywords
	}

	return graph.NewEntity(graph.EntitySpec{
		Key:        t.ID,
		Type:       TeamEntityType,
		Class:      []string{UserGroupClass},
		Properties: props,
		Source:     t.Raw,
	})
}
