// Package store implements the contact and group collaborator the engine
// talks to: an in-memory store for development and tests, and a PostgreSQL
// store on pgx.
package store

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/JonMunkholm/audience/internal/core"
)

// Memory implements [core.Store] in process memory. It enforces the same
// constraints as the PostgreSQL schema: unique emails, unique non-empty
// mobiles, unique group names and existing group references.
type Memory struct {
	mu       sync.Mutex
	index    map[string]int
	contacts []core.Contact
	groups   []core.Group
}

var _ core.Store = (*Memory)(nil)

// NewMemory returns a store holding the named groups and no contacts.
func NewMemory(groups ...string) *Memory {
	m := &Memory{index: make(map[string]int)}
	for _, name := range groups {
		m.groups = append(m.groups, core.Group{ID: uuid.NewString(), Name: name})
	}
	return m
}

func (m *Memory) ListContacts(_ context.Context) ([]core.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.contacts), nil
}

func (m *Memory) CreateContact(_ context.Context, c core.Contact) (core.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if _, ok := m.index[c.ID]; ok {
		return core.Contact{}, fmt.Errorf("%w: contact id %s", ErrConflict, c.ID)
	}
	g, err := m.groupLocked(c.Group)
	if err != nil {
		return core.Contact{}, err
	}
	c.Group = g
	if err := m.checkUniqueLocked(c, ""); err != nil {
		return core.Contact{}, err
	}

	m.index[c.ID] = len(m.contacts)
	m.contacts = append(m.contacts, c)
	return c, nil
}

func (m *Memory) UpdateContact(_ context.Context, id string, patch core.ContactPatch) (core.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i, ok := m.index[id]
	if !ok {
		return core.Contact{}, core.ErrNotFound
	}
	c := patch.Apply(m.contacts[i])
	if patch.Group != nil {
		g, err := m.groupLocked(*patch.Group)
		if err != nil {
			return core.Contact{}, err
		}
		c.Group = g
	}
	if err := m.checkUniqueLocked(c, id); err != nil {
		return core.Contact{}, err
	}

	m.contacts[i] = c
	return c, nil
}

func (m *Memory) DeleteContact(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i, ok := m.index[id]
	if !ok {
		return core.ErrNotFound
	}
	m.contacts = slices.Delete(m.contacts, i, i+1)
	delete(m.index, id)
	for j := i; j < len(m.contacts); j++ {
		m.index[m.contacts[j].ID] = j
	}
	return nil
}

func (m *Memory) ListGroups(_ context.Context) ([]core.Group, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.groups), nil
}

func (m *Memory) CreateGroup(_ context.Context, name string) (core.Group, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if slices.ContainsFunc(m.groups, func(g core.Group) bool { return g.Name == name }) {
		return core.Group{}, core.ErrDuplicateName
	}
	g := core.Group{ID: uuid.NewString(), Name: name}
	m.groups = append(m.groups, g)
	return g, nil
}

// groupLocked resolves ref against stored groups by id, then name.
func (m *Memory) groupLocked(ref core.Group) (core.Group, error) {
	for _, g := range m.groups {
		if ref.ID != "" && g.ID == ref.ID {
			return g, nil
		}
	}
	for _, g := range m.groups {
		if g.Name == ref.Name {
			return g, nil
		}
	}
	return core.Group{}, fmt.Errorf("%w: group %q does not exist", ErrMissingReference, ref.Name)
}

// checkUniqueLocked rejects c if another contact (not self) shares its email
// or non-empty mobile.
func (m *Memory) checkUniqueLocked(c core.Contact, self string) error {
	for _, o := range m.contacts {
		if o.ID == self || o.ID == c.ID {
			continue
		}
		if o.Email == c.Email {
			return fmt.Errorf("%w: email %s", ErrConflict, c.Email)
		}
		if c.Mobile != "" && o.Mobile == c.Mobile {
			return fmt.Errorf("%w: mobile %s", ErrConflict, c.Mobile)
		}
	}
	return nil
}
