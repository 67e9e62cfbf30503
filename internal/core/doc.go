// Package core provides the business logic of the user group service.
//
// This package ties the identifier reader, the session store and the
// artifact writers together into one pipeline, independent of any UI or
// transport layer. It can be used by web handlers, CLI tools, or tests
// without modification.
//
// # Pipeline
//
// A session moves through three steps, each of which requires the one
// before it:
//
//  1. [Service.Upload] spools an identifier file, finds its identifier
//     column and makes it the current session
//  2. [Service.Select] attaches a category, an expected open rate and
//     newsletter content, and splits the identifiers into channel groups
//  3. [Service.Download] writes the group files and metadata, packs them
//     into a zip archive in storage and opens it for streaming
//
// Calling a step early fails with session.ErrOutOfOrder. A new upload
// discards any earlier selection.
//
// # Concurrency
//
// Steps are serialized by a [Gate] with a single slot. A request that
// cannot get the slot within the configured wait fails with [ErrBusy]
// rather than queueing indefinitely.
//
//	svc, err := core.NewService(cfg)
//	if err != nil {
//	    return err
//	}
//	res, err := svc.Upload(ctx, "clients.csv", file)
//
// # Retention
//
// Archives and spool files are removed by a janitor once they are older
// than the configured retention. Start it with [Service.StartJanitor].
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a unique code for support reference:
//
//   - FILE001-FILE004: File errors (size, format, parse, missing file)
//   - VAL001-VAL003: Validation errors (column, identifier format, selection)
//   - SES001: Step called out of order
//   - PKG001-PKG003: Artifact errors (write, pack, archive gone)
//   - UPL002-UPL005: Busy, cancelled and timed out requests
//   - RATE001: Rate limited
//
// # Metrics
//
// Each Service owns a Prometheus registry; see [Metrics.Registry].
package core
