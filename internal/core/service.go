package core

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/audience/internal/config"
	"github.com/JonMunkholm/audience/internal/logging"
	"github.com/JonMunkholm/audience/internal/metrics"
)

// ServiceOptions tunes a Service. Zero values fall back to package defaults.
type ServiceOptions struct {
	MaxFileSize          int64
	MaxConcurrentImports int
	ImportWait           time.Duration
	ImportTimeout        time.Duration
	BulkConcurrency      int
	BulkTimeout          time.Duration

	NewID IDFunc
	Now   func() time.Time
}

// OptionsFromConfig maps the Import and Bulk config sections onto options.
func OptionsFromConfig(cfg *config.Config) ServiceOptions {
	return ServiceOptions{
		MaxFileSize:          cfg.Import.MaxFileSize,
		MaxConcurrentImports: cfg.Import.MaxConcurrent,
		ImportWait:           cfg.Import.MaxWaitTime,
		ImportTimeout:        cfg.Import.Timeout,
		BulkConcurrency:      cfg.Bulk.MaxConcurrent,
		BulkTimeout:          cfg.Bulk.Timeout,
	}
}

// Service is the entry point for every contact and group operation. It is
// safe for concurrent use.
type Service struct {
	store    Store
	groups   *GroupRegistry
	importer *Importer
	bulk     *BulkMutator
	limiter  *ImportLimiter

	importTimeout time.Duration
	bulkTimeout   time.Duration
	newID         IDFunc
	now           func() time.Time
}

// NewService creates a Service over store.
func NewService(store Store, opts ServiceOptions) *Service {
	if opts.NewID == nil {
		opts.NewID = UUIDs()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	groups := NewGroupRegistry(store)
	return &Service{
		store:  store,
		groups: groups,
		importer: NewImporter(store, groups, ImportOptions{
			NewID:       opts.NewID,
			Now:         opts.Now,
			MaxFileSize: opts.MaxFileSize,
		}),
		bulk:          NewBulkMutator(store, groups, opts.BulkConcurrency),
		limiter:       NewImportLimiter(opts.MaxConcurrentImports, opts.ImportWait),
		importTimeout: opts.ImportTimeout,
		bulkTimeout:   opts.BulkTimeout,
		newID:         opts.NewID,
		now:           opts.Now,
	}
}

// Groups returns the service's group registry.
func (s *Service) Groups() *GroupRegistry {
	return s.groups
}

// ListGroups returns the store's groups.
func (s *Service) ListGroups(ctx context.Context) ([]Group, error) {
	return s.groups.ListGroups(ctx)
}

// AddGroup creates a group. See GroupRegistry.AddGroup.
func (s *Service) AddGroup(ctx context.Context, name string) (Group, error) {
	g, err := s.groups.AddGroup(ctx, name)
	if err != nil {
		return Group{}, err
	}
	logging.FromContext(ctx).Info("group created", "group", g.Name, "id", g.ID)
	return g, nil
}

// ListContacts returns the store's contacts.
func (s *Service) ListContacts(ctx context.Context) ([]Contact, error) {
	contacts, err := s.store.ListContacts(ctx)
	if err != nil {
		return nil, collaboratorErr("list contacts", err)
	}
	return contacts, nil
}

// ContactsByGroup returns a fresh listing filtered to one group.
func (s *Service) ContactsByGroup(ctx context.Context, group string) ([]Contact, error) {
	contacts, err := s.ListContacts(ctx)
	if err != nil {
		return nil, err
	}
	return FilterByGroup(contacts, group), nil
}

// AddContact validates, checks for duplicates, resolves the group and
// creates one contact.
func (s *Service) AddContact(ctx context.Context, f ContactFields) (Contact, error) {
	fields, err := Validate(f)
	if err != nil {
		return Contact{}, err
	}

	existing, err := s.ListContacts(ctx)
	if err != nil {
		return Contact{}, err
	}
	if err := newIdentityIndex(existing).checkDuplicate(fields); err != nil {
		return Contact{}, err
	}

	g, err := s.resolveGroup(ctx, fields.Group)
	if err != nil {
		return Contact{}, err
	}

	created, err := s.store.CreateContact(ctx, Contact{
		ID:        s.newID(),
		FirstName: fields.FirstName,
		LastName:  fields.LastName,
		Email:     fields.Email,
		Mobile:    fields.Mobile,
		Group:     g,
		CreatedAt: s.now(),
	})
	if err != nil {
		return Contact{}, collaboratorErr("create contact", err)
	}
	logging.FromContext(ctx).Info("contact created", "id", created.ID, "group", g.Name)
	return created, nil
}

// UpdateContact applies patch to contact id. The merged record must pass
// Validate and must not collide with any other contact.
func (s *Service) UpdateContact(ctx context.Context, id string, patch ContactPatch) (Contact, error) {
	if patch.IsEmpty() {
		return Contact{}, &ValidationError{Field: "patch", Reason: "nothing to update"}
	}

	existing, err := s.ListContacts(ctx)
	if err != nil {
		return Contact{}, err
	}

	var current Contact
	others := make([]Contact, 0, len(existing))
	found := false
	for _, c := range existing {
		if c.ID == id {
			current, found = c, true
			continue
		}
		others = append(others, c)
	}
	if !found {
		return Contact{}, ErrNotFound
	}

	merged := patch.Apply(current).Fields()
	if patch.Group != nil {
		merged.Group = groupRef(*patch.Group)
	}
	fields, err := Validate(merged)
	if err != nil {
		return Contact{}, err
	}
	if err := newIdentityIndex(others).checkDuplicate(fields); err != nil {
		return Contact{}, err
	}

	normalized := ContactPatch{}
	if patch.FirstName != nil {
		normalized.FirstName = &fields.FirstName
	}
	if patch.LastName != nil {
		normalized.LastName = &fields.LastName
	}
	if patch.Email != nil {
		normalized.Email = &fields.Email
	}
	if patch.Mobile != nil {
		normalized.Mobile = &fields.Mobile
	}
	if patch.Group != nil {
		g, err := s.resolveGroup(ctx, fields.Group)
		if err != nil {
			return Contact{}, err
		}
		normalized.Group = &g
	}

	updated, err := s.store.UpdateContact(ctx, id, normalized)
	if err != nil {
		return Contact{}, collaboratorErr("update contact", err)
	}
	logging.FromContext(ctx).Info("contact updated", "id", id)
	return updated, nil
}

// groupRef picks the reference to resolve: the name when set, else the id.
func groupRef(g Group) string {
	if strings.TrimSpace(g.Name) != "" {
		return g.Name
	}
	return g.ID
}

// DeleteContact deletes one contact.
func (s *Service) DeleteContact(ctx context.Context, id string) error {
	if err := s.store.DeleteContact(ctx, id); err != nil {
		return collaboratorErr("delete contact", err)
	}
	logging.FromContext(ctx).Info("contact deleted", "id", id)
	return nil
}

// resolveGroup resolves ref from the cache, refreshing once on a miss.
func (s *Service) resolveGroup(ctx context.Context, ref string) (Group, error) {
	if g, ok := s.groups.ResolveGroup(ref); ok {
		return g, nil
	}
	if err := s.groups.Refresh(ctx); err != nil {
		return Group{}, err
	}
	if g, ok := s.groups.ResolveGroup(ref); ok {
		return g, nil
	}
	return Group{}, &ValidationError{Field: "group", Value: ref, Reason: ReasonUnknownGroup}
}

// ImportRun is one finished import.
type ImportRun struct {
	ID       string
	FileName string
	Started  time.Time
	Result   *ImportResult
	Summary  ImportSummary
}

// Import reads a CSV file and creates its accepted contacts. It waits for an
// import slot first and fails with ErrTooManyImports if none frees up.
//
// A cancelled or timed-out run returns the partial run together with the
// context error.
func (s *Service) Import(ctx context.Context, fileName string, r io.Reader) (*ImportRun, error) {
	run := &ImportRun{ID: uuid.NewString(), FileName: fileName, Started: s.now()}
	ctx = logging.Attach(ctx, "import_id", run.ID, "file", fileName)
	logger := logging.FromContext(ctx)
	start := time.Now()

	err := s.limiter.Do(ctx, func() error {
		ctx, cancel := s.withTimeout(ctx, s.importTimeout)
		defer cancel()

		logger.Info("import started", "user_agent", ClientFromContext(ctx).UserAgent)

		if err := s.groups.Refresh(ctx); err != nil {
			return err
		}
		existing, err := s.ListContacts(ctx)
		if err != nil {
			return err
		}

		result, err := s.importer.Import(ctx, r, existing)
		run.Result = result
		return err
	})

	if run.Result != nil {
		run.Summary = run.Result.Summarize()
		run.Summary.DurationMs = time.Since(start).Milliseconds()
		recordImportMetrics(run.Summary)
	}

	switch {
	case err == nil:
		metrics.ImportRun("ok", start)
		logger.Info("import completed",
			"total_rows", run.Summary.TotalRows,
			"accepted", run.Summary.Accepted,
			"skipped", run.Summary.Skipped,
			"duration_ms", run.Summary.DurationMs,
		)
		return run, nil
	case run.Result != nil:
		metrics.ImportRun("partial", start)
		logger.Warn("import interrupted", "accepted", run.Summary.Accepted, "error", err)
		return run, err
	default:
		status := "failed"
		if errors.Is(err, ErrTooManyImports) {
			status = "rejected"
		}
		metrics.ImportRun(status, start)
		logger.Warn("import failed", "error", err)
		return nil, err
	}
}

func recordImportMetrics(s ImportSummary) {
	metrics.ImportRows("accepted", s.Accepted)
	metrics.ImportRows("invalid", s.Invalid)
	metrics.ImportRows("duplicate", s.Duplicates)
	metrics.ImportRows("unknown_group", s.UnknownGroup)
	metrics.ImportRows("rejected", s.Rejected)
}

// PreviewImport classifies a CSV file against the current contacts and
// groups without creating anything.
func (s *Service) PreviewImport(ctx context.Context, r io.Reader) (*ImportPreview, error) {
	if err := s.groups.Refresh(ctx); err != nil {
		return nil, err
	}
	existing, err := s.ListContacts(ctx)
	if err != nil {
		return nil, err
	}
	return s.importer.Preview(ctx, r, existing)
}

// DeleteMany deletes each id, reporting every outcome.
func (s *Service) DeleteMany(ctx context.Context, ids []string) *BulkResult {
	ctx, cancel := s.withTimeout(ctx, s.bulkTimeout)
	defer cancel()

	res := s.bulk.DeleteMany(ctx, ids)
	s.logBulk(ctx, "delete", res)
	return res
}

// ReassignGroup moves each id to groupName, reporting every outcome.
func (s *Service) ReassignGroup(ctx context.Context, ids []string, groupName string) (*BulkResult, error) {
	if strings.TrimSpace(groupName) == "" {
		return nil, &ConfigurationError{Message: "Empty group name"}
	}
	if len(ids) == 0 {
		return &BulkResult{}, nil
	}

	ctx, cancel := s.withTimeout(ctx, s.bulkTimeout)
	defer cancel()

	if _, err := s.resolveGroup(ctx, strings.TrimSpace(groupName)); err != nil {
		return nil, err
	}
	res, err := s.bulk.ReassignGroup(ctx, ids, groupName)
	if err != nil {
		return nil, err
	}
	s.logBulk(ctx, "reassign", res)
	return res, nil
}

func (s *Service) logBulk(ctx context.Context, op string, res *BulkResult) {
	ok, failed := len(res.Succeeded()), len(res.Failed())
	metrics.BulkOutcomes(op, ok, failed)
	if len(res.Outcomes) > 0 {
		logging.FromContext(ctx).Info("bulk action completed", "op", op, "succeeded", ok, "failed", failed)
	}
}

// ImportStatus reports the import limiter's state.
func (s *Service) ImportStatus() LimiterStatus {
	return s.limiter.Status()
}

// WaitForImports blocks until running imports finish or ctx ends.
func (s *Service) WaitForImports(ctx context.Context) error {
	return s.limiter.Drain(ctx)
}

func (s *Service) withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
