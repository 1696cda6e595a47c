// Package document models the live chat page the bridge works on.
//
// A Document wraps an HTML tree parsed with golang.org/x/net/html and
// queried with goquery. Insertions made through Append, AppendNodes and
// InsertAfter are reported to observers as batches of inserted subtree
// roots, the way a browser MutationObserver reports childList records.
// Batches are delivered serially; mutations made during delivery are queued
// rather than delivered re-entrantly.
//
// Nodes are handed out as *html.Node and are opaque to callers outside the
// document: read and change them through the Document methods so access
// stays serialized.
package document
