// Package core provides the contact ingestion and list-management engine.
//
// This package holds all domain logic independent of any UI or transport
// layer. It is used by the HTTP server, the contactctl CLI and tests
// without modification. Persistence is delegated to a [Store].
//
// # Components
//
//   - [Validate]: classifies one candidate contact as accepted or rejected.
//   - [IsDuplicate]: email-or-mobile identity check against a contact set.
//   - [ImportCSV] and [Importer]: drive CSV rows through validation,
//     duplicate detection and group resolution, producing accepted contacts
//     and a skip report.
//   - [ApplyView]: group filter, stable sort and 50-row pagination over a
//     snapshot.
//   - [BulkMutator]: per-id delete and group reassignment with independent
//     outcomes.
//   - [GroupRegistry]: the controlled vocabulary of group names.
//
// [Service] wires these to a store and adds single-record operations, the
// import concurrency limit and timeouts.
//
// # Import flow
//
//  1. The file is read whole, its BOM dropped and invalid UTF-8 replaced.
//  2. Each line is one record, tokenized as CSV on its own. The first record
//     is a header unless its email column already holds a valid address.
//  3. Each row runs through Validate, then the duplicate index (existing
//     contacts plus rows created so far), then group resolution.
//  4. Each accepted contact is created before the next row is checked. A
//     contact the store rejects moves to the skip report with the store's
//     message and stays out of the duplicate index.
//
// # Error Handling
//
// Error kinds are [ValidationError], [DuplicateError], [CollaboratorError],
// [ErrEmptyInput] and [ConfigurationError]. [MapError] turns any of them
// into a [UserMessage] with a support code:
//
//   - VAL001-VAL004: field validation
//   - DUP001: duplicate email or mobile
//   - GRP001-GRP003: group references and names
//   - FILE001-FILE006: import file problems
//   - IMP001-IMP004: import scheduling, cancellation, timeouts
//   - DB000-DB006: store failures
package core
