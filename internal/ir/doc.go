// Package ir provides the canonical data model for Concord.
//
// This package contains type definitions and serialization only. All other
// internal packages import ir; ir imports nothing internal. This keeps the
// data model the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - NO float types anywhere - use int64 for numbers (floats break
//     deterministic replay)
//   - Action outputs are an explicit two-case tagged union (ok xor error),
//     never inferred from key presence
//   - Content-addressed identity uses RFC 8785 canonical JSON and SHA-256
//     with domain separation
//   - Logical sequence numbers only, never wall-clock timestamps
package ir
