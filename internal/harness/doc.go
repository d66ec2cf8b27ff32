// Package harness runs suite files against the simulated agenda and checks
// the outcome of every case.
//
// It exists to pin down how suites behave end to end without a browser: a
// scenario names a suite file, the page it runs against and what should
// happen, and the harness reports every expectation that did not hold.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: event_management
//	description: "Creating and deleting events"
//	suite: ../../suite/testdata/event_management.yaml
//	today: 2026-10-19T09:30:00Z
//	render_delay: 2
//	expect:
//	  - type: case_outcome
//	    case: "Event Management > when in daily mode > allows creation with a button"
//	    status: passed
//	  - type: case_outcome
//	    case: "Event Management > when in daily mode > allows deletion with a button"
//	    status: failed
//	    kind: NotActionable
//	  - type: navigations
//	    count: 3
//	  - type: dispatch_count
//	    action: click
//	    count: 11
//
// Suite paths are relative to the scenario file.
//
// # Expectation Types
//
//   - case_outcome: a case finished with the given status, and kind when set
//   - all_passed: every case passed
//   - navigations: the page was navigated exactly count times
//   - dispatch_count: exactly count actions of the given kind reached the page
//
// # Deterministic Runs
//
// Every run uses a fresh page, a virtual clock starting at testutil.Epoch and
// a fixed run ID derived from the scenario name, so reports are identical
// across runs and can be compared against golden files.
package harness
