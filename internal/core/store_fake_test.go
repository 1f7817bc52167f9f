package core

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

// fakeStore is an in-memory Store that counts calls and can be told to fail
// specific requests.
type fakeStore struct {
	mu       sync.Mutex
	contacts []Contact
	groups   []Group
	calls    map[string]int

	failCreate  map[string]error // by email
	failUpdate  map[string]error // by id
	failDelete  map[string]error // by id
	groupErr    error
	listErr     error
	nextGroupID int
}

func newFakeStore(groups ...string) *fakeStore {
	s := &fakeStore{
		calls:      make(map[string]int),
		failCreate: make(map[string]error),
		failUpdate: make(map[string]error),
		failDelete: make(map[string]error),
	}
	for _, name := range groups {
		s.nextGroupID++
		s.groups = append(s.groups, Group{ID: fmt.Sprintf("g%d", s.nextGroupID), Name: name})
	}
	return s
}

func (s *fakeStore) count(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

func (s *fakeStore) ListContacts(_ context.Context) ([]Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["ListContacts"]++
	if s.listErr != nil {
		return nil, s.listErr
	}
	return slices.Clone(s.contacts), nil
}

func (s *fakeStore) CreateContact(_ context.Context, c Contact) (Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["CreateContact"]++
	if err := s.failCreate[c.Email]; err != nil {
		return Contact{}, err
	}
	s.contacts = append(s.contacts, c)
	return c, nil
}

func (s *fakeStore) UpdateContact(_ context.Context, id string, patch ContactPatch) (Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["UpdateContact"]++
	if err := s.failUpdate[id]; err != nil {
		return Contact{}, err
	}
	for i, c := range s.contacts {
		if c.ID == id {
			s.contacts[i] = patch.Apply(c)
			return s.contacts[i], nil
		}
	}
	return Contact{}, ErrNotFound
}

func (s *fakeStore) DeleteContact(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["DeleteContact"]++
	if err := s.failDelete[id]; err != nil {
		return err
	}
	for i, c := range s.contacts {
		if c.ID == id {
			s.contacts = slices.Delete(s.contacts, i, i+1)
			return nil
		}
	}
	return ErrNotFound
}

func (s *fakeStore) ListGroups(_ context.Context) ([]Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["ListGroups"]++
	if s.listErr != nil {
		return nil, s.listErr
	}
	return slices.Clone(s.groups), nil
}

func (s *fakeStore) CreateGroup(_ context.Context, name string) (Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["CreateGroup"]++
	if s.groupErr != nil {
		return Group{}, s.groupErr
	}
	s.nextGroupID++
	g := Group{ID: fmt.Sprintf("g%d", s.nextGroupID), Name: name}
	s.groups = append(s.groups, g)
	return g, nil
}
