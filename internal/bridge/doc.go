// Package bridge ties detection, execution and injection together for one
// chat document.
//
// A Controller attaches a detect.Engine to the document and tracks one
// Call per affordance. Activating an affordance, by Activate or by
// dispatching a click on it, sends the call through the pipeline and
// injects a successful result into the page's chat input. Failures leave
// the affordance in the failed state and enabled for another manual
// attempt; nothing is retried automatically.
package bridge
