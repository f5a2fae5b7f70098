package auth

import (
	"fmt"
	"strings"
)

// Resource describes a resource by type and name.
type Resource struct {
	Type  string `json:"type"`
	Class string `json:"class,omitempty"`
	Name  string `json:"name"`
}

// Scope describes an access request (or a granted access) to a resource:
// a list of actions applied to the resource.
type Scope struct {
	Resource
	Actions []string `json:"actions"`
}

func (s Scope) String() string {
	resourceType := s.Type
	if s.Class != "" {
		resourceType = fmt.Sprintf("%s(%s)", resourceType, s.Class)
	}

	return fmt.Sprintf("%s:%s:%s", resourceType, s.Name, strings.Join(s.Actions, ","))
}

// Scopes is a list of Scope instances.
type Scopes []Scope

func (s Scopes) String() string {
	scopes := make([]string, 0, len(s))
	for _, scope := range s {
		scopes = append(scopes, scope.String())
	}

	return strings.Join(scopes, " ")
}

// ParseScope parses a scope string into a Scope struct.
//
// The grammar is defined by the [Token Scope Documentation]:
// the first and the last colon are structural, everything between them is the resource name
// (repository names are allowed to contain colons, eg. when they carry a port number).
//
// [Token Scope Documentation]: https://github.com/distribution/distribution/blob/main/docs/spec/auth/scope.md
func ParseScope(scopeStr string) (Scope, error) {
	parts := strings.Split(scopeStr, ":")
	if len(parts) < 3 {
		return Scope{}, fmt.Errorf("invalid scope format: %s", scopeStr)
	}

	resourceType, resourceName, actions := parts[0], strings.Join(parts[1:len(parts)-1], ":"), parts[len(parts)-1]

	resourceType, resourceClass := splitResourceClass(resourceType)
	if resourceType == "" {
		return Scope{}, fmt.Errorf("invalid scope format: %s", scopeStr)
	}

	if resourceType != strings.TrimSpace(resourceType) || resourceName != strings.TrimSpace(resourceName) {
		return Scope{}, fmt.Errorf("invalid scope format: %s", scopeStr)
	}

	scope := Scope{
		Resource: Resource{
			Type:  resourceType,
			Class: resourceClass,
			Name:  resourceName,
		},
	}

	for _, action := range strings.Split(actions, ",") {
		action = strings.TrimSpace(action)
		if action == "" {
			continue
		}

		scope.Actions = append(scope.Actions, action)
	}

	return scope, nil
}

func splitResourceClass(resourceType string) (string, string) {
	if !strings.HasSuffix(resourceType, ")") {
		return resourceType, ""
	}

	i := strings.Index(resourceType, "(")
	if i < 1 {
		return "", ""
	}

	return resourceType[:i], resourceType[i+1 : len(resourceType)-1]
}

// ParseScopes parses a list of (potentially space separated lists of) scope strings.
//
// Malformed entries are dropped silently: an unparseable scope is treated
// as if no access had been requested for it. Callers must treat an empty
// result as "no access requested", not as an error.
func ParseScopes(scopeStrs []string) Scopes {
	scopes := make(Scopes, 0, len(scopeStrs))

	for _, scopeStr := range scopeStrs {
		for _, s := range strings.Fields(scopeStr) {
			scope, err := ParseScope(s)
			if err != nil {
				continue
			}

			scopes = append(scopes, scope)
		}
	}

	return scopes
}
