// Package analytics provides event sinks that replace the page-global tag queue.
//
// The wizard and the submission pipeline receive a ports.EventSink and never
// know which vendors sit behind it. Sinks compose with Multi.
package analytics
