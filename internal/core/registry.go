package core

import (
	"context"
	"strings"
	"sync"
)

// GroupResolver looks up a group reference read from a form or CSV row.
type GroupResolver interface {
	ResolveGroup(ref string) (Group, bool)
}

// GroupSet is a fixed list of groups, usable as a GroupResolver.
type GroupSet []Group

// ResolveGroup matches ref against group names first, then ids.
func (s GroupSet) ResolveGroup(ref string) (Group, bool) {
	for _, g := range s {
		if g.Name == ref {
			return g, true
		}
	}
	for _, g := range s {
		if g.ID != "" && g.ID == ref {
			return g, true
		}
	}
	return Group{}, false
}

// HasName reports whether a group called name exists (exact match).
func (s GroupSet) HasName(name string) bool {
	for _, g := range s {
		if g.Name == name {
			return true
		}
	}
	return false
}

// GroupRegistry caches the store's groups as the controlled vocabulary for
// imports, filters and reassignment.
type GroupRegistry struct {
	store GroupStore

	mu     sync.RWMutex
	groups GroupSet
}

// NewGroupRegistry creates a registry backed by store. Call Refresh or
// ListGroups to populate it.
func NewGroupRegistry(store GroupStore) *GroupRegistry {
	return &GroupRegistry{store: store}
}

// Refresh replaces the cached groups with the store's current list.
func (r *GroupRegistry) Refresh(ctx context.Context) error {
	groups, err := r.store.ListGroups(ctx)
	if err != nil {
		return collaboratorErr("list groups", err)
	}

	r.mu.Lock()
	r.groups = append(GroupSet(nil), groups...)
	r.mu.Unlock()
	return nil
}

// ListGroups refreshes the cache and returns the groups.
func (r *GroupRegistry) ListGroups(ctx context.Context) ([]Group, error) {
	if err := r.Refresh(ctx); err != nil {
		return nil, err
	}
	return r.Groups(), nil
}

// Groups returns a copy of the cached groups.
func (r *GroupRegistry) Groups() GroupSet {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append(GroupSet(nil), r.groups...)
}

// ResolveGroup implements GroupResolver over the cached groups.
func (r *GroupRegistry) ResolveGroup(ref string) (Group, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.groups.ResolveGroup(ref)
}

// AddGroup trims name and creates it in the store.
//
// Empty names fail with a *ConfigurationError and names already in the cache
// with ErrDuplicateName, both without calling the store. Two operators
// creating the same name at once are not serialized here; the store decides
// and its rejection is returned as is.
func (r *GroupRegistry) AddGroup(ctx context.Context, name string) (Group, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Group{}, errEmptyName()
	}

	r.mu.RLock()
	exists := r.groups.HasName(name)
	r.mu.RUnlock()
	if exists {
		return Group{}, ErrDuplicateName
	}

	g, err := r.store.CreateGroup(ctx, name)
	if err != nil {
		return Group{}, collaboratorErr("create group", err)
	}

	r.mu.Lock()
	if !r.groups.HasName(g.Name) {
		r.groups = append(r.groups, g)
	}
	r.mu.Unlock()
	return g, nil
}
