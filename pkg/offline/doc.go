/*
Package offline implements the offline cache layer of the landing page.

A Worker sits between the page and its origin. It goes through three phases:
install (precache the static manifest into the current static generation),
activate (drop every generation of older versions) and running (serve
same-origin GET requests cache-first and retry queued lead submissions when
a sync is triggered).

All operations run on the goroutine started by Run; the exported methods
only send commands to it and wait for the reply.
*/
package offline
