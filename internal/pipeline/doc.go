// Package pipeline contains the frame pipeline: the paced capture loop that
// drives the transfer engine, the single-slot inference mailbox and its
// worker, the pixel-format normalizer, and the stats aggregator.
//
// Threading model: one producer goroutine (capture loop, which also performs
// the display push), one inference worker goroutine, and release callbacks
// that may arrive on any goroutine. The pool's generation tickets are the
// only synchronization for frame buffer ownership; the mailbox guarantees
// inference latency can never stall the producer.
package pipeline
