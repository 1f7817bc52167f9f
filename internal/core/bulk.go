package core

// bulk.go applies delete or group reassignment to a set of contacts.
//
// One store request is issued per id. Requests run concurrently up to a
// limit and every outcome is recorded on its own: a failed id does not stop
// the others and nothing is rolled back. Results come back in input order
// once all requests have settled.

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/audience/internal/logging"
)

// DefaultBulkConcurrency is used when NewBulkMutator gets a limit <= 0.
const DefaultBulkConcurrency = 4

// BulkOutcome is the result for one id.
type BulkOutcome struct {
	ID  string `json:"id"`
	Err error  `json:"-"`
}

// OK reports whether the request for this id succeeded.
func (o BulkOutcome) OK() bool { return o.Err == nil }

// BulkResult holds one outcome per requested id, in request order.
type BulkResult struct {
	Outcomes []BulkOutcome
}

// Succeeded returns the ids whose request succeeded.
func (r *BulkResult) Succeeded() []string {
	var ids []string
	for _, o := range r.Outcomes {
		if o.OK() {
			ids = append(ids, o.ID)
		}
	}
	return ids
}

// Failed returns the outcomes whose request failed.
func (r *BulkResult) Failed() []BulkOutcome {
	var out []BulkOutcome
	for _, o := range r.Outcomes {
		if !o.OK() {
			out = append(out, o)
		}
	}
	return out
}

// Err joins the per-id failures, or returns nil when every request succeeded.
func (r *BulkResult) Err() error {
	var errs []error
	for _, o := range r.Failed() {
		errs = append(errs, fmt.Errorf("%s: %w", o.ID, o.Err))
	}
	return errors.Join(errs...)
}

// BulkMutator issues per-contact delete and update requests.
type BulkMutator struct {
	contacts    ContactStore
	groups      GroupResolver
	concurrency int
}

// NewBulkMutator creates a mutator running at most concurrency requests at
// once. groups may be nil, in which case reassignment targets are sent by
// name without checking they exist.
func NewBulkMutator(contacts ContactStore, groups GroupResolver, concurrency int) *BulkMutator {
	if concurrency <= 0 {
		concurrency = DefaultBulkConcurrency
	}
	return &BulkMutator{contacts: contacts, groups: groups, concurrency: concurrency}
}

// DeleteMany deletes each id.
func (m *BulkMutator) DeleteMany(ctx context.Context, ids []string) *BulkResult {
	return m.run(ctx, "delete", ids, func(ctx context.Context, id string) error {
		return m.contacts.DeleteContact(ctx, id)
	})
}

// ReassignGroup moves each id to the named group. An empty name fails with a
// *ConfigurationError and an unknown one with a *ValidationError, both
// before any request is issued. An empty id set is a no-op.
func (m *BulkMutator) ReassignGroup(ctx context.Context, ids []string, groupName string) (*BulkResult, error) {
	groupName = strings.TrimSpace(groupName)
	if groupName == "" {
		return nil, &ConfigurationError{Message: "Empty group name"}
	}

	target := Group{Name: groupName}
	if m.groups != nil {
		g, ok := m.groups.ResolveGroup(groupName)
		if !ok {
			return nil, &ValidationError{Field: "group", Value: groupName, Reason: ReasonUnknownGroup}
		}
		target = g
	}

	patch := ContactPatch{Group: &target}
	return m.run(ctx, "reassign", ids, func(ctx context.Context, id string) error {
		_, err := m.contacts.UpdateContact(ctx, id, patch)
		return err
	}), nil
}

// DeleteSelection deletes the selected contacts and clears sel.
func (m *BulkMutator) DeleteSelection(ctx context.Context, sel *Selection) *BulkResult {
	defer sel.Clear()
	return m.DeleteMany(ctx, sel.IDs())
}

// ReassignSelection moves the selected contacts to groupName and clears sel.
// A rejected group name leaves the selection untouched.
func (m *BulkMutator) ReassignSelection(ctx context.Context, sel *Selection, groupName string) (*BulkResult, error) {
	res, err := m.ReassignGroup(ctx, sel.IDs(), groupName)
	if err != nil {
		return nil, err
	}
	sel.Clear()
	return res, nil
}

func (m *BulkMutator) run(ctx context.Context, op string, ids []string, fn func(context.Context, string) error) *BulkResult {
	result := &BulkResult{Outcomes: make([]BulkOutcome, len(ids))}
	if len(ids) == 0 {
		return result
	}

	logger := logging.WithFields(ctx, "op", op, "count", len(ids))

	var g errgroup.Group
	g.SetLimit(m.concurrency)
	for i, id := range ids {
		result.Outcomes[i].ID = id
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				result.Outcomes[i].Err = err
				return nil
			}
			if err := fn(ctx, id); err != nil {
				result.Outcomes[i].Err = collaboratorErr(op+" contact", err)
				logger.Warn("bulk request failed", "id", id, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()

	logger.Debug("bulk action settled", "failed", len(result.Failed()))
	return result
}
