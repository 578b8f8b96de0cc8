// Package infrastructure synthesizes the CloudFormation resources that deploy
// the Detective graph configuration custom resource: the provider role, the
// handler function and its log group, and the custom resource itself.
package infrastructure

import (
	"encoding/json"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// TemplateFormatVersion is the only CloudFormation template format version.
const TemplateFormatVersion = "2010-09-09"

// DeletionPolicy controls what CloudFormation does with a resource when it
// leaves the stack.
type DeletionPolicy string

const (
	DeletionPolicyDelete DeletionPolicy = "Delete"
	DeletionPolicyRetain DeletionPolicy = "Retain"
)

// IsValid returns true if the DeletionPolicy is a known value.
func (p DeletionPolicy) IsValid() bool {
	return p == DeletionPolicyDelete || p == DeletionPolicyRetain
}

// String returns the string representation of the DeletionPolicy.
func (p DeletionPolicy) String() string {
	return string(p)
}

// Resource is a single entry of a template's Resources section.
type Resource struct {
	Type                string                 `json:"Type"`
	Properties          map[string]interface{} `json:"Properties,omitempty"`
	DependsOn           []string               `json:"DependsOn,omitempty"`
	DeletionPolicy      DeletionPolicy         `json:"DeletionPolicy,omitempty"`
	UpdateReplacePolicy DeletionPolicy         `json:"UpdateReplacePolicy,omitempty"`
}

// Template is a synthesized CloudFormation template.
type Template struct {
	AWSTemplateFormatVersion string               `json:"AWSTemplateFormatVersion"`
	Description              string               `json:"Description,omitempty"`
	Resources                map[string]*Resource `json:"Resources"`
}

// Stack collects resources keyed by logical id.
type Stack struct {
	Description string
	resources   map[string]*Resource

	// graphProvider is shared by every DetectiveGraphConfig in the stack.
	graphProvider *graphProvider
}

// NewStack creates an empty stack.
func NewStack(description string) *Stack {
	return &Stack{
		Description: description,
		resources:   make(map[string]*Resource),
	}
}

// AddResource adds r at the construct path and returns its logical id.
// Adding a second resource at the same path is an error.
func (s *Stack) AddResource(path []string, r *Resource) (string, error) {
	if r == nil || r.Type == "" {
		return "", fmt.Errorf("resource at %v has no type", path)
	}
	id := MakeUniqueID(path)
	if id == "" {
		return "", fmt.Errorf("empty construct path")
	}
	if _, exists := s.resources[id]; exists {
		return "", fmt.Errorf("duplicate logical id %s", id)
	}
	s.resources[id] = r
	return id, nil
}

// Resource returns the resource with the given logical id.
func (s *Stack) Resource(logicalID string) (*Resource, bool) {
	r, ok := s.resources[logicalID]
	return r, ok
}

// LogicalIDs returns the logical ids of all resources, sorted.
func (s *Stack) LogicalIDs() []string {
	ids := make([]string, 0, len(s.resources))
	for id := range s.resources {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Synthesize renders the stack into a template.
func (s *Stack) Synthesize() *Template {
	resources := make(map[string]*Resource, len(s.resources))
	for id, r := range s.resources {
		resources[id] = r
	}
	return &Template{
		AWSTemplateFormatVersion: TemplateFormatVersion,
		Description:              s.Description,
		Resources:                resources,
	}
}

// ResourceCount returns how many resources of the given type the template holds.
func (t *Template) ResourceCount(resourceType string) int {
	n := 0
	for _, r := range t.Resources {
		if r.Type == resourceType {
			n++
		}
	}
	return n
}

// JSON renders the template. Indented output is meant for terminals.
func (t *Template) JSON(indent bool) ([]byte, error) {
	if indent {
		return json.MarshalIndent(t, "", "  ")
	}
	return json.Marshal(t)
}

// YAML renders the template as YAML. Intrinsic functions only know how to
// marshal themselves to JSON, so the template passes through JSON first.
func (t *Template) YAML() ([]byte, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return nil, err
	}
	var generic interface{}
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, err
	}
	return yaml.Marshal(generic)
}
