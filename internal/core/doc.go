// Package core runs the two table-configuration pipelines.
//
// It is independent of any transport: the web handlers and the CLI both
// call [Service] and map failures with [MapError].
//
// # Clear & Match
//
// [Service.RunClear] reads the UTF-8 identifier list and the four UTF-16
// tier exports, keeps the valid 16-character table IDs, and attaches to each
// the first setting found for it in every tier (see package limits). A tier
// export that cannot be read is reported in [ClearResult.TierErrors]; the
// other tiers still merge.
//
// # Compare
//
// [Service.RunCompare] reads two xlsx parameter sheets. The reference sheet
// is parsed with the first-wins policy and the submission with the clean
// policy (see package params), then package diff classifies every submitted
// parameter and flags tiers over the wrong threshold. Duplicated submission
// rows and tables missing from the reference are returned as [Warning]s.
//
// # Concurrency
//
// Whole runs are bounded by a [RunLimiter]. Within a run, tier scans and
// per-table comparisons use bounded worker groups.
package core
