package graph

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
)

func mustEntity(t *testing.T, key, typ string) *Entity {
	t.Helper()
	e, err := NewEntity(EntitySpec{
		Key:        key,
		Type:       typ,
		Class:      []string{"Record"},
		Properties: map[string]any{"name": key},
	})
	if err != nil {
		t.Fatalf("NewEntity() error = %v", err)
	}
	return e
}

func TestNewEntity(t *testing.T) {
	tests := []struct {
		name    string
		spec    EntitySpec
		wantErr bool
	}{
		{name: "valid", spec: EntitySpec{Key: "k", Type: "t", Class: []string{"User"}}},
		{name: "missing key", spec: EntitySpec{Type: "t", Class: []string{"User"}}, wantErr: true},
		{name: "blank key", spec: EntitySpec{Key: "  ", Type: "t", Class: []string{"User"}}, wantErr: true},
		{name: "missing type", spec: EntitySpec{Key: "k", Class: []string{"User"}}, wantErr: true},
		{name: "missing class", spec: EntitySpec{Key: "k", Type: "t"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewEntity(tt.spec)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewEntity() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewEntity_RawDataAndNilProperties(t *testing.T) {
	src := json.RawMessage(`{"id":"u-1"}`)
	e, err := NewEntity(EntitySpec{
		Key:        "u-1",
		Type:       "atspoke_user",
		Class:      []string{"User"},
		Properties: map[string]any{"email": "a@b.test", "startDate": nil},
		Source:     src,
	})
	if err != nil {
		t.Fatalf("NewEntity() error = %v", err)
	}

	if _, ok := e.Properties["startDate"]; ok {
		t.Error("nil properties should be dropped")
	}
	if e.Property("email") != "a@b.test" {
		t.Errorf("email = %v", e.Property("email"))
	}
	if len(e.RawData) != 1 || e.RawData[0].Name != "default" || string(e.RawData[0].RawData) != string(src) {
		t.Errorf("RawData = %+v", e.RawData)
	}
}

func TestNewRelationship(t *testing.T) {
	acct := mustEntity(t, "at-spoke-account:local", "atspoke_account")
	user := mustEntity(t, "u-1", "atspoke_user")

	r, err := NewRelationship(RelationshipHas, acct, user)
	if err != nil {
		t.Fatalf("NewRelationship() error = %v", err)
	}
	if r.Key != "at-spoke-account:local|has|u-1" {
		t.Errorf("Key = %q", r.Key)
	}
	if r.Type != "atspoke_account_has_user" {
		t.Errorf("Type = %q", r.Type)
	}
	if r.Class != RelationshipHas || r.FromKey != acct.Key || r.ToKey != user.Key {
		t.Errorf("relationship = %+v", r)
	}

	if _, err := NewRelationship(RelationshipHas, acct, nil); err == nil {
		t.Error("NewRelationship() with nil target should fail")
	}
}

func TestRelationshipType(t *testing.T) {
	tests := []struct {
		from, to string
		want     string
	}{
		{from: "atspoke_account", to: "atspoke_request", want: "atspoke_account_has_request"},
		{from: "atspoke_request", to: "atspoke_requesttype", want: "atspoke_request_has_requesttype"},
		{from: "x", to: "y", want: "x_has_y"},
		{from: "acme_team", to: "other_user", want: "acme_team_has_other_user"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := RelationshipType(tt.from, RelationshipHas, tt.to); got != tt.want {
				t.Errorf("RelationshipType(%q, %q) = %q, want %q", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestMemoryStore_AddEntityIdempotent(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	first := mustEntity(t, "rt-1", "atspoke_requesttype")
	got, added, err := s.AddEntity(ctx, first)
	if err != nil || !added || got != first {
		t.Fatalf("first AddEntity() = %v, %v, %v", got, added, err)
	}

	dup := mustEntity(t, "rt-1", "atspoke_requesttype")
	dup.Properties["name"] = "changed"
	got, added, err = s.AddEntity(ctx, dup)
	if err != nil {
		t.Fatalf("second AddEntity() error = %v", err)
	}
	if added {
		t.Error("duplicate key should not be reported as added")
	}
	if got != first {
		t.Error("duplicate key should return the existing entity")
	}
	if got.Property("name") != "rt-1" {
		t.Error("existing entity must not be overwritten")
	}
	if n := len(s.Entities()); n != 1 {
		t.Errorf("entities = %d, want 1", n)
	}
}

func TestMemoryStore_FindEntity(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	e := mustEntity(t, "rt-1", "atspoke_requesttype")
	if _, _, err := s.AddEntity(ctx, e); err != nil {
		t.Fatal(err)
	}

	got, ok, err := s.FindEntity(ctx, "rt-1")
	if err != nil || !ok || got != e {
		t.Errorf("FindEntity(rt-1) = %v, %v, %v", got, ok, err)
	}
	if _, ok, _ := s.FindEntity(ctx, "rt-missing"); ok {
		t.Error("FindEntity(rt-missing) should not be found")
	}
}

func TestMemoryStore_Relationships(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	a := mustEntity(t, "a", "x")
	b := mustEntity(t, "b", "y")

	r, _ := NewRelationship(RelationshipHas, a, b)
	if err := s.AddRelationship(ctx, r); err != nil {
		t.Fatalf("AddRelationship() error = %v", err)
	}
	if err := s.AddRelationship(ctx, r); !errors.Is(err, ErrDuplicateRelationship) {
		t.Errorf("duplicate AddRelationship() error = %v", err)
	}

	if _, _, err := s.AddEntity(ctx, a); err != nil {
		t.Fatal(err)
	}
	counts := s.TypeCounts()
	if counts["x"] != 1 || counts["x_has_y"] != 1 {
		t.Errorf("TypeCounts() = %v", counts)
	}
	types := s.EncounteredTypes()
	if len(types) != 2 || types[0] != "x" || types[1] != "x_has_y" {
		t.Errorf("EncounteredTypes() = %v", types)
	}
}

func TestMemoryStore_CancelledContext(t *testing.T) {
	s := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, _, err := s.AddEntity(ctx, mustEntity(t, "a", "x")); !errors.Is(err, context.Canceled) {
		t.Errorf("AddEntity() error = %v", err)
	}
}

func TestMemoryStore_ConcurrentAdds(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	entities := make([]*Entity, 20)
	for i := range entities {
		entities[i] = mustEntity(t, "same", "x")
	}

	var wg sync.WaitGroup
	for _, e := range entities {
		wg.Add(1)
		go func(e *Entity) {
			defer wg.Done()
			_, _, _ = s.AddEntity(ctx, e)
		}(e)
	}
	wg.Wait()

	if n := len(s.EntitiesByType("x")); n != 1 {
		t.Errorf("entities = %d, want 1", n)
	}
}
