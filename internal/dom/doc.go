// Package dom resolves locators against point-in-time DOM snapshots.
//
// A Snapshot is an immutable parse of the page markup taken by a driver.
// Drivers annotate every element before handing the markup over:
//
//	data-uispec-ref         document-order ordinal used to address the live node
//	data-uispec-visible     "false" when the node has no rendered box
//	data-uispec-obstructed  "true" when another node receives the pointer at its centre
//
// Locators come in two modes:
//
//   - CSS: standard selector matching (cascadia, via goquery)
//   - Text: elements whose rendered text contains a substring
//
// Text matching is case-sensitive. Both sides are NFC normalised and runs of
// whitespace collapse to one space. Only the deepest matching elements are
// returned, so an ancestor never shadows the element that actually renders
// the text.
//
// Handles are bound to the snapshot generation that produced them and must
// not be reused once the page has been snapshotted again.
package dom
