// Package core reads and writes fixed-length record (FLR) files.
//
// An FLR file is a sequence of text lines. Each line is one record of a
// known kind, and records are grouped into stacks: an optional header, body
// records, and an optional footer. This package decides which kind each
// line is, groups lines into stacks, enforces unique keys, and writes stacks
// back out in order. Field layout is left to a [Codec].
//
// # Record Types
//
// A [RecordType] pairs a codec with a recognition pattern, a fixed line
// length, or both. A [Registry] holds one or more body types and at most one
// header and one footer type:
//
//	reg, _ := core.NewRegistry(core.MustRecordType(payment, "^P", 120))
//	_ = reg.SetHeader(core.MustRecordType(batchHeader, "^H", core.NoLength))
//	_ = reg.SetFooter(core.MustRecordType(batchTrailer, "^T", core.NoLength))
//
// Header and footer types accept a line when either criterion matches. Body
// types need every configured criterion, and the last registered body type
// wins when several accept a line (see [Registry.SetRejectAmbiguous]).
//
// # Stacks
//
// A footer always closes the current stack. Without a footer type, a header
// closes the current stack unless it is that stack's first line. Every
// stack boundary clears the codecs' unique caches.
//
// # Unique Keys
//
// Body records must be unique per kind within their stack. Header and footer
// records must be unique per kind across stacks; that is checked by
// [File.Validate] before anything is written. With
// [WithIgnoreUniqueConstraint] read-time violations become warnings and the
// record is kept.
//
// # Error Handling
//
// Typed errors ([ConfigurationError], [NoMatchingTypeError], [DecodeError],
// [UniqueConstraintViolation]) carry line and stack positions. [MapError]
// turns any of them into a coded [UserMessage].
package core
