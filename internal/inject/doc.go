// Package inject writes call results back into the chat page.
//
// The input surface and the submit control are located through ordered
// selector probes, first match wins, so a change in the host page layout
// is a configuration change. Results are rendered with a text/template
// that has the sprig function set available; the default renders a fenced
// JSON block.
package inject
