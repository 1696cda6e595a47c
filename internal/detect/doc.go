// Package detect finds AHP call URLs in the code regions of a live
// document and attaches an execute affordance to each.
//
// The match pattern is derived from the configured server base URL:
//
//	<escaped base>/[^\s)]+
//
// and is replaced, never merged, whenever the base URL changes. Each code
// region (pre and code elements by default, innermost only) is matched
// against its whole text content, so a URL broken up by inline markup
// inside one region is still found. A region that produced at least one
// affordance is marked with data-ahp-processed and is not scanned again,
// even if its text changes later.
package detect
