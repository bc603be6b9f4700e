// Package priority ranks changed files by review importance and packs the
// most important ones into a token budget.
//
// Each file is classified by the first matching rule of an ordered rule
// list (built-ins first, then caller rules, unless the caller prepends
// them). Sorting is stable by tier, and packing is a single first-fit pass
// in priority order: a file that does not fit is skipped and scanning
// continues, so smaller lower-priority files can still be included.
package priority
