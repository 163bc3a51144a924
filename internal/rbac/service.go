package rbac

import (
	"context"
	"slices"
	"strings"

	"github.com/hotel-pms/hotel-pms/internal/shared"
)

// permSet is a normalised set of permission names.
type permSet map[string]struct{}

func newPermSet(perms []string) permSet {
	set := make(permSet, len(perms))
	for _, p := range perms {
		if p = normalize(p); p != "" {
			set[p] = struct{}{}
		}
	}
	return set
}

func (s permSet) hasAny(required []string) bool {
	for _, p := range required {
		if _, ok := s[p]; ok {
			return true
		}
	}
	return len(required) == 0
}

// missing returns the required permissions not in s.
func (s permSet) missing(required []string) []string {
	var out []string
	for _, p := range required {
		if _, ok := s[p]; !ok {
			out = append(out, p)
		}
	}
	return out
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Service resolves role grants. Roles are fixed in code because identities
// arrive already resolved in the access token.
type Service struct {
	grants map[string]permSet
}

// NewService builds Service with the default hotel roles.
func NewService() *Service {
	return NewServiceWithGrants(DefaultGrants())
}

// NewServiceWithGrants builds Service with a custom role table.
func NewServiceWithGrants(grants map[string][]string) *Service {
	table := make(map[string]permSet, len(grants))
	for role, perms := range grants {
		table[normalize(role)] = newPermSet(perms)
	}
	return &Service{grants: table}
}

// DefaultGrants is the role table used in production.
func DefaultGrants() map[string][]string {
	return map[string][]string{
		RoleAdmin: shared.CoreScopes(),
		RoleManager: {
			shared.PermBookingsView, shared.PermBookingsManage,
			shared.PermPaymentsRecord, shared.PermPaymentsRefund,
			shared.PermInventoryView, shared.PermInventoryManage,
			shared.PermPurchasesView, shared.PermPurchasesCreate,
			shared.PermExpensesView, shared.PermExpensesCreate,
			shared.PermRoomsView, shared.PermAuditView,
		},
		RoleReceptionist: {
			shared.PermBookingsView, shared.PermBookingsManage,
			shared.PermPaymentsRecord,
			shared.PermInventoryView,
			shared.PermRoomsView,
		},
		RoleHousekeeping: {
			shared.PermInventoryView,
			shared.PermRoomsView,
		},
	}
}

func (s *Service) grantsFor(role string) permSet {
	if s == nil {
		return nil
	}
	return s.grants[normalize(role)]
}

// EffectivePermissions lists the permissions granted to role, sorted.
func (s *Service) EffectivePermissions(_ context.Context, role string) []string {
	set := s.grantsFor(role)
	out := make([]string, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	slices.Sort(out)
	return out
}

// Authorize checks the identity in ctx against perm.
func (s *Service) Authorize(ctx context.Context, perm string) error {
	id, ok := shared.IdentityFromContext(ctx)
	if !ok {
		return shared.ErrUnauthenticated
	}
	if !s.grantsFor(id.Role).hasAny([]string{normalize(perm)}) {
		return shared.Forbidden(perm)
	}
	return nil
}
