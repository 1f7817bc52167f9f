package core

import (
	"context"
	"time"
)

// Group is a named bucket contacts belong to. ID is assigned by the store
// and may be empty for groups that only exist by name.
type Group struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

// Contact is a stored contact record.
type Contact struct {
	ID        string    `json:"id"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Email     string    `json:"email"`
	Mobile    string    `json:"mobile"`
	Group     Group     `json:"group"`
	CreatedAt time.Time `json:"createdAt"`
}

// FullName returns "{first} {last}", the key used for name sorting.
func (c Contact) FullName() string {
	return c.FirstName + " " + c.LastName
}

// Fields returns the editable fields of c.
func (c Contact) Fields() ContactFields {
	return ContactFields{
		FirstName: c.FirstName,
		LastName:  c.LastName,
		Email:     c.Email,
		Mobile:    c.Mobile,
		Group:     c.Group.Name,
	}
}

// ContactFields is one candidate contact as typed by an operator or read
// from a CSV row. Group holds a group name (or id) to be resolved.
type ContactFields struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Mobile    string `json:"mobile"`
	Group     string `json:"group"`
}

// ContactPatch carries a partial update. Nil fields are left unchanged.
type ContactPatch struct {
	FirstName *string `json:"firstName,omitempty"`
	LastName  *string `json:"lastName,omitempty"`
	Email     *string `json:"email,omitempty"`
	Mobile    *string `json:"mobile,omitempty"`
	Group     *Group  `json:"group,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p ContactPatch) IsEmpty() bool {
	return p.FirstName == nil && p.LastName == nil && p.Email == nil && p.Mobile == nil && p.Group == nil
}

// Apply returns c with the patch fields applied.
func (p ContactPatch) Apply(c Contact) Contact {
	if p.FirstName != nil {
		c.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		c.LastName = *p.LastName
	}
	if p.Email != nil {
		c.Email = *p.Email
	}
	if p.Mobile != nil {
		c.Mobile = *p.Mobile
	}
	if p.Group != nil {
		c.Group = *p.Group
	}
	return c
}

// SkipEntry is one rejected import row with the reason it was rejected.
type SkipEntry struct {
	Row    []string `json:"row"`
	Reason string   `json:"reason"`
}

// ContactStore is the contact half of the persistence collaborator.
type ContactStore interface {
	ListContacts(ctx context.Context) ([]Contact, error)
	CreateContact(ctx context.Context, c Contact) (Contact, error)
	UpdateContact(ctx context.Context, id string, patch ContactPatch) (Contact, error)
	DeleteContact(ctx context.Context, id string) error
}

// GroupStore is the group half of the persistence collaborator.
type GroupStore interface {
	ListGroups(ctx context.Context) ([]Group, error)
	CreateGroup(ctx context.Context, name string) (Group, error)
}

// Store is the full persistence collaborator the engine talks to.
type Store interface {
	ContactStore
	GroupStore
}
