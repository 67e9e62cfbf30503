// Package tabular reads identifier files (CSV, JSON, spreadsheet) into a
// single canonical identifier column.
//
// Every format is first decoded into a [Table] of string cells, then
// normalized:
//
//  1. A table with exactly one column is taken as the identifier column,
//     whatever its header says.
//  2. Otherwise the canonical column ("Uid" by default) or the first known
//     alias is kept and every other column is dropped.
//  3. If neither is present the read fails with [ErrMissingColumn].
//
// The first few identifiers are then checked by a [Validator]; a file whose
// sampled values do not look like identifiers fails with
// [ErrInvalidIdentifierFormat] before anything is stored.
package tabular
