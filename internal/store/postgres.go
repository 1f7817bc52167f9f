package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/audience/internal/core"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS contact_groups (
	id   uuid PRIMARY KEY DEFAULT gen_random_uuid(),
	name text NOT NULL,
	CONSTRAINT contact_groups_name_key UNIQUE (name)
);

CREATE TABLE IF NOT EXISTS contacts (
	id         uuid PRIMARY KEY DEFAULT gen_random_uuid(),
	first_name text NOT NULL DEFAULT '',
	last_name  text NOT NULL DEFAULT '',
	email      text NOT NULL,
	mobile     text,
	group_id   uuid NOT NULL REFERENCES contact_groups (id) ON UPDATE CASCADE,
	created_at timestamptz NOT NULL DEFAULT now(),
	CONSTRAINT contacts_email_key UNIQUE (email),
	CONSTRAINT contacts_mobile_key UNIQUE (mobile)
);

CREATE INDEX IF NOT EXISTS contacts_group_id_idx ON contacts (group_id);
`

// contactColumns is the select list shared by every query returning contacts.
// Queries alias the contact row as c and its group as g.
const contactColumns = `c.id, c.first_name, c.last_name, c.email, c.mobile, g.id, g.name, c.created_at`

// Postgres implements [core.Store] on a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

var _ core.Store = (*Postgres)(nil)

// NewPostgres wraps an open pool. The caller owns the pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// EnsureSchema creates the contact tables if they do not exist.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (p *Postgres) ListContacts(ctx context.Context) ([]core.Contact, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT `+contactColumns+`
		FROM contacts c
		JOIN contact_groups g ON g.id = c.group_id
		ORDER BY c.created_at, c.id`)
	if err != nil {
		return nil, mapPgError("list contacts", err)
	}
	contacts, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (core.Contact, error) {
		return scanContact(r)
	})
	if err != nil {
		return nil, mapPgError("list contacts", err)
	}
	return contacts, nil
}

func (p *Postgres) CreateContact(ctx context.Context, c core.Contact) (core.Contact, error) {
	row := p.pool.QueryRow(ctx, `
		WITH c AS (
			INSERT INTO contacts (id, first_name, last_name, email, mobile, group_id, created_at)
			VALUES (
				COALESCE($1, gen_random_uuid()),
				$2, $3, $4, $5,
				COALESCE($6, (SELECT id FROM contact_groups WHERE name = $7)),
				COALESCE($8, now())
			)
			RETURNING *
		)
		SELECT `+contactColumns+`
		FROM c
		JOIN contact_groups g ON g.id = c.group_id`,
		toPgUUID(c.ID),
		c.FirstName,
		c.LastName,
		c.Email,
		toPgText(c.Mobile),
		toPgUUID(c.Group.ID),
		c.Group.Name,
		toPgTimestamptz(c.CreatedAt),
	)

	created, err := scanContact(row)
	if err != nil {
		return core.Contact{}, mapPgError("create contact", err)
	}
	return created, nil
}

func (p *Postgres) UpdateContact(ctx context.Context, id string, patch core.ContactPatch) (core.Contact, error) {
	uid := toPgUUID(id)
	if !uid.Valid {
		return core.Contact{}, core.ErrNotFound
	}

	set, args := updateAssignments(patch)
	if len(set) == 0 {
		return p.getContact(ctx, uid)
	}
	args = append(args, uid)

	row := p.pool.QueryRow(ctx, `
		WITH c AS (
			UPDATE contacts SET `+strings.Join(set, ", ")+`
			WHERE id = $`+strconv.Itoa(len(args))+`
			RETURNING *
		)
		SELECT `+contactColumns+`
		FROM c
		JOIN contact_groups g ON g.id = c.group_id`, args...)

	updated, err := scanContact(row)
	if err != nil {
		return core.Contact{}, mapPgError("update contact", err)
	}
	return updated, nil
}

// updateAssignments builds the SET clause for the non-nil patch fields.
// Placeholders are numbered from $1 in the order of the returned args.
func updateAssignments(patch core.ContactPatch) ([]string, []any) {
	var (
		set  []string
		args []any
	)
	add := func(column string, value any) {
		args = append(args, value)
		set = append(set, column+" = $"+strconv.Itoa(len(args)))
	}

	if patch.FirstName != nil {
		add("first_name", *patch.FirstName)
	}
	if patch.LastName != nil {
		add("last_name", *patch.LastName)
	}
	if patch.Email != nil {
		add("email", *patch.Email)
	}
	if patch.Mobile != nil {
		add("mobile", toPgText(*patch.Mobile))
	}
	if patch.Group != nil {
		if gid := toPgUUID(patch.Group.ID); gid.Valid {
			add("group_id", gid)
		} else {
			args = append(args, patch.Group.Name)
			set = append(set, "group_id = (SELECT id FROM contact_groups WHERE name = $"+strconv.Itoa(len(args))+")")
		}
	}
	return set, args
}

func (p *Postgres) getContact(ctx context.Context, id pgtype.UUID) (core.Contact, error) {
	row := p.pool.QueryRow(ctx, `
		SELECT `+contactColumns+`
		FROM contacts c
		JOIN contact_groups g ON g.id = c.group_id
		WHERE c.id = $1`, id)
	c, err := scanContact(row)
	if err != nil {
		return core.Contact{}, mapPgError("get contact", err)
	}
	return c, nil
}

func (p *Postgres) DeleteContact(ctx context.Context, id string) error {
	uid := toPgUUID(id)
	if !uid.Valid {
		return core.ErrNotFound
	}
	tag, err := p.pool.Exec(ctx, `DELETE FROM contacts WHERE id = $1`, uid)
	if err != nil {
		return mapPgError("delete contact", err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (p *Postgres) ListGroups(ctx context.Context) ([]core.Group, error) {
	rows, err := p.pool.Query(ctx, `SELECT id, name FROM contact_groups ORDER BY name`)
	if err != nil {
		return nil, mapPgError("list groups", err)
	}
	groups, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (core.Group, error) {
		return scanGroup(r)
	})
	if err != nil {
		return nil, mapPgError("list groups", err)
	}
	return groups, nil
}

func (p *Postgres) CreateGroup(ctx context.Context, name string) (core.Group, error) {
	row := p.pool.QueryRow(ctx,
		`INSERT INTO contact_groups (name) VALUES ($1) RETURNING id, name`, name)
	g, err := scanGroup(row)
	if err != nil {
		return core.Group{}, mapPgError("create group", err)
	}
	return g, nil
}

// rowScanner is satisfied by pgx.Row and pgx.CollectableRow.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanContact(row rowScanner) (core.Contact, error) {
	var (
		id, groupID pgtype.UUID
		mobile      pgtype.Text
		createdAt   pgtype.Timestamptz
		c           core.Contact
	)
	if err := row.Scan(&id, &c.FirstName, &c.LastName, &c.Email, &mobile, &groupID, &c.Group.Name, &createdAt); err != nil {
		return core.Contact{}, err
	}
	c.ID = pgUUIDToString(id)
	c.Mobile = pgTextToString(mobile)
	c.Group.ID = pgUUIDToString(groupID)
	c.CreatedAt = pgTimestamptzToTime(createdAt)
	return c, nil
}

func scanGroup(row rowScanner) (core.Group, error) {
	var (
		id pgtype.UUID
		g  core.Group
	)
	if err := row.Scan(&id, &g.Name); err != nil {
		return core.Group{}, err
	}
	g.ID = pgUUIDToString(id)
	return g, nil
}
