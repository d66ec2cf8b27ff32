// Package runner executes suites of browser test cases.
//
// # Suite Tree
//
// A Suite is a root Context with a visit path. Contexts nest; each holds
// ordered Cases and child Contexts, plus two kinds of setup hook:
//
//   - Before hooks run before every Case in scope, outer scopes first.
//   - BeforeAll hooks run once per scope, before the first Case that needs
//     them, and their outcome is remembered for the rest of the run.
//
// Within a Context, its own Cases run before its child Contexts, in
// declaration order.
//
// # Case Lifecycle
//
// Every Case starts from a freshly navigated page: the runner loads the
// suite's visit path, then runs pending BeforeAll hooks, then Before
// hooks, then the Case's Steps. The first failing Step ends the Case and
// the rest are recorded as skipped. Failures never stop sibling Cases
// unless the run was configured to bail.
//
// Each CaseResult moves Pending -> Running -> Passed | Failed. Cases
// never retry; the Retry-Poller inside each Step is the only retry.
//
// # Deterministic Testing
//
// Durations and timestamps come from the poller's Clock and run IDs from an
// IDGenerator, so tests driving a sim page with a virtual clock and a
// FixedGenerator produce identical reports on every run.
package runner
