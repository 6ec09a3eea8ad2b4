// Package graph models the typed entities and relationships the connector
// produces, and the job-state store they are written to during a run.
package graph

import (
	"encoding/json"
	"fmt"
	"strings"
)

// RelationshipClass is the class tag of an edge.
type RelationshipClass string

// RelationshipHas is the only class the connector emits.
const RelationshipHas RelationshipClass = "HAS"

// RawData is one retained source payload.
type RawData struct {
	Name    string          `json:"name"`
	RawData json.RawMessage `json:"rawData"`
}

// Entity is a typed, keyed node.
type Entity struct {
	Key        string         `json:"_key"`
	Type       string         `json:"_type"`
	Class      []string       `json:"_class"`
	Properties map[string]any `json:"properties"`
	RawData    []RawData      `json:"_rawData,omitempty"`
}

// Relationship is a directed edge between two entity keys.
type Relationship struct {
	Key     string            `json:"_key"`
	Type    string            `json:"_type"`
	Class   RelationshipClass `json:"_class"`
	FromKey string            `json:"_fromEntityKey"`
	ToKey   string            `json:"_toEntityKey"`
}

// EntitySpec describes an entity to build.
type EntitySpec struct {
	Key        string
	Type       string
	Class      []string
	Properties map[string]any
	// Source is retained as the "default" raw payload when non-empty.
	Source json.RawMessage
}

// NewEntity builds an entity from spec. Key, Type and at least one Class are
// required.
func NewEntity(spec EntitySpec) (*Entity, error) {
	switch {
	case strings.TrimSpace(spec.Key) == "":
		return nil, fmt.Errorf("entity of type %q: key is required", spec.Type)
	case spec.Type == "":
		return nil, fmt.Errorf("entity %q: type is required", spec.Key)
	case len(spec.Class) == 0:
		return nil, fmt.Errorf("entity %q: at least one class is required", spec.Key)
	}

	props := make(map[string]any, len(spec.Properties))
	for k, v := range spec.Properties {
		if v == nil {
			continue
		}
		props[k] = v
	}

	e := &Entity{
		Key:        spec.Key,
		Type:       spec.Type,
		Class:      append([]string(nil), spec.Class...),
		Properties: props,
	}
	if len(spec.Source) > 0 {
		e.RawData = []RawData{{Name: "default", RawData: spec.Source}}
	}
	return e, nil
}

// Property returns a property value, or nil.
func (e *Entity) Property(name string) any {
	return e.Properties[name]
}

// NewRelationship builds a relationship of class between two entities. The
// _key is "<fromKey>|<class>|<toKey>" with the class lowercased.
func NewRelationship(class RelationshipClass, from, to *Entity) (*Relationship, error) {
	if from == nil || to == nil {
		return nil, fmt.Errorf("relationship %s: both entities are required", class)
	}
	verb := strings.ToLower(string(class))
	return &Relationship{
		Key:     from.Key + "|" + verb + "|" + to.Key,
		Type:    RelationshipType(from.Type, class, to.Type),
		Class:   class,
		FromKey: from.Key,
		ToKey:   to.Key,
	}, nil
}

// RelationshipType returns the _type of an edge between two entity types:
// "<fromType>_<class>_<toType>", where toType loses the provider prefix it
// shares with fromType. atspoke_account HAS atspoke_user is
// "atspoke_account_has_user".
func RelationshipType(fromType string, class RelationshipClass, toType string) string {
	target := toType
	if prefix, _, ok := strings.Cut(fromType, "_"); ok {
		if rest, found := strings.CutPrefix(toType, prefix+"_"); found && rest != "" {
			target = rest
		}
	}
	return fromType + "_" + strings.ToLower(string(class)) + "_" + target
}
