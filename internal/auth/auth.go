package auth

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"
)

const (
	RoleLibraryReader = "library_reader"
	RoleLibraryWriter = "library_writer"
)

type Identity struct {
	Principal string
	Roles     []string
}

func (i Identity) HasRole(role string) bool {
	return lo.Contains(i.Roles, role)
}

// CanRead is true for readers and writers.
func (i Identity) CanRead() bool {
	return i.HasRole(RoleLibraryReader) || i.HasRole(RoleLibraryWriter)
}

func (i Identity) CanWrite() bool {
	return i.HasRole(RoleLibraryWriter)
}

type APIKeyValidator interface {
	Validate(ctx context.Context, apiKey string) (Identity, bool)
}

type StaticAPIKeyValidator struct {
	keys map[string]Identity
}

// NewStaticAPIKeyValidator parses "key:principal:role|role" entries separated by commas.
func NewStaticAPIKeyValidator(spec string) (*StaticAPIKeyValidator, error) {
	validator := &StaticAPIKeyValidator{keys: map[string]Identity{}}
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return validator, nil
	}

	for _, entry := range strings.Split(spec, ",") {
		parts := strings.Split(strings.TrimSpace(entry), ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("invalid static key entry %q: expected key:principal:role|role", entry)
		}
		key := strings.TrimSpace(parts[0])
		principal := strings.TrimSpace(parts[1])
		if key == "" || principal == "" {
			return nil, fmt.Errorf("invalid static key entry %q: empty key/principal", entry)
		}
		roles := lo.Uniq(lo.Compact(lo.Map(strings.Split(parts[2], "|"), func(role string, _ int) string {
			return strings.TrimSpace(role)
		})))
		if len(roles) == 0 {
			return nil, fmt.Errorf("invalid static key entry %q: at least one role is required", entry)
		}
		for _, role := range roles {
			if role != RoleLibraryReader && role != RoleLibraryWriter {
				return nil, fmt.Errorf("invalid static key entry %q: unknown role %q", entry, role)
			}
		}
		if _, exists := validator.keys[key]; exists {
			return nil, fmt.Errorf("duplicate static key for principal %q", principal)
		}
		sort.Strings(roles)
		validator.keys[key] = Identity{Principal: principal, Roles: roles}
	}

	return validator, nil
}

func (v *StaticAPIKeyValidator) Validate(_ context.Context, apiKey string) (Identity, bool) {
	identity, ok := v.keys[apiKey]
	return identity, ok
}

func (v *StaticAPIKeyValidator) Len() int {
	return len(v.keys)
}
