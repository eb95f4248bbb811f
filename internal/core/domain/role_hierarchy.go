package domain

import (
	"fmt"
	"sort"
	"strings"
)

// RoleHierarchy is an immutable, acyclic implication graph: an edge A -> B
// means a holder of A also holds B. Build it once with ParseRoleHierarchy or
// NewRoleHierarchy and share it freely; nothing mutates it afterwards.
type RoleHierarchy struct {
	implies map[string][]string
	known   map[string]struct{}
}

// NewRoleHierarchy builds a hierarchy from an adjacency map. Edge order is
// preserved per role; duplicate edges are dropped. It fails when the graph
// contains a cycle.
func NewRoleHierarchy(edges map[string][]string) (RoleHierarchy, error) {
	h := RoleHierarchy{
		implies: make(map[string][]string, len(edges)),
		known:   make(map[string]struct{}),
	}
	for from, targets := range edges {
		from = strings.TrimSpace(from)
		if from == "" {
			return RoleHierarchy{}, fmt.Errorf("%w: empty role name", ErrInvalidInput)
		}
		h.known[from] = struct{}{}
		for _, to := range targets {
			to = strings.TrimSpace(to)
			if to == "" {
				return RoleHierarchy{}, fmt.Errorf("%w: empty role implied by %s", ErrInvalidInput, from)
			}
			if to == from {
				return RoleHierarchy{}, fmt.Errorf("%w: role %s implies itself", ErrInvalidInput, from)
			}
			h.known[to] = struct{}{}
			if !contains(h.implies[from], to) {
				h.implies[from] = append(h.implies[from], to)
			}
		}
	}
	if cycle := h.findCycle(); cycle != nil {
		return RoleHierarchy{}, fmt.Errorf("%w: role hierarchy cycle %s", ErrInvalidInput, strings.Join(cycle, " > "))
	}
	return h, nil
}

// ParseRoleHierarchy reads the "ROLE_A > ROLE_B" notation. Rules are separated
// by newlines or semicolons; a rule may chain several roles
// ("ROLE_A > ROLE_B > ROLE_C"). Blank rules are ignored.
func ParseRoleHierarchy(def string) (RoleHierarchy, error) {
	edges := make(map[string][]string)
	rules := strings.FieldsFunc(def, func(r rune) bool { return r == '\n' || r == ';' })
	for _, rule := range rules {
		rule = strings.TrimSpace(rule)
		if rule == "" {
			continue
		}
		parts := strings.Split(rule, ">")
		if len(parts) < 2 {
			return RoleHierarchy{}, fmt.Errorf("%w: malformed role rule %q", ErrInvalidInput, rule)
		}
		for i := 0; i < len(parts)-1; i++ {
			from := strings.TrimSpace(parts[i])
			to := strings.TrimSpace(parts[i+1])
			if from == "" || to == "" {
				return RoleHierarchy{}, fmt.Errorf("%w: malformed role rule %q", ErrInvalidInput, rule)
			}
			edges[from] = append(edges[from], to)
		}
	}
	return NewRoleHierarchy(edges)
}

// Reachable returns every role obtainable from granted by following zero or
// more implication edges. Granted roles come first in the order given,
// followed by implied roles in breadth-first discovery order. The result has
// no duplicates.
func (h RoleHierarchy) Reachable(granted []string) []string {
	seen := make(map[string]struct{}, len(granted))
	out := make([]string, 0, len(granted))
	queue := make([]string, 0, len(granted))
	for _, r := range granted {
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
		queue = append(queue, r)
	}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range h.implies[cur] {
			if _, ok := seen[next]; ok {
				continue
			}
			seen[next] = struct{}{}
			out = append(out, next)
			queue = append(queue, next)
		}
	}
	return out
}

// Inherited returns the roles reachable from granted that were not granted
// directly. When nothing beyond the granted set is reachable the result is
// empty, never nil.
func (h RoleHierarchy) Inherited(granted []string) []string {
	reachable := h.Reachable(granted)
	direct := dedupe(granted)
	if len(reachable) == len(direct) {
		return []string{}
	}
	return reachable[len(direct):]
}

// Implies reports whether role is reachable from granted.
func (h RoleHierarchy) Implies(granted []string, role string) bool {
	return contains(h.Reachable(granted), role)
}

// Known reports whether role takes part in the hierarchy.
func (h RoleHierarchy) Known(role string) bool {
	_, ok := h.known[role]
	return ok
}

// Roles lists every role in the hierarchy, sorted.
func (h RoleHierarchy) Roles() []string {
	out := make([]string, 0, len(h.known))
	for r := range h.known {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}

// TopLevelRole is the first granted role by insertion order. It is a
// positional convention and says nothing about seniority.
func TopLevelRole(granted []string) string {
	if len(granted) == 0 {
		return ""
	}
	return granted[0]
}

// findCycle runs a three-colour DFS and returns the first cycle found as a
// path that starts and ends on the same role, or nil.
func (h RoleHierarchy) findCycle() []string {
	const (
		white = iota
		grey
		black
	)
	colour := make(map[string]int, len(h.known))
	var path []string
	var visit func(string) []string
	visit = func(r string) []string {
		colour[r] = grey
		path = append(path, r)
		for _, next := range h.implies[r] {
			switch colour[next] {
			case grey:
				for i, p := range path {
					if p == next {
						return append(append([]string{}, path[i:]...), next)
					}
				}
			case white:
				if c := visit(next); c != nil {
					return c
				}
			}
		}
		path = path[:len(path)-1]
		colour[r] = black
		return nil
	}

	// Deterministic start order keeps error messages stable.
	for _, r := range h.Roles() {
		if colour[r] == white {
			if c := visit(r); c != nil {
				return c
			}
		}
	}
	return nil
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
