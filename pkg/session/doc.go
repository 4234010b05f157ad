/*
Package session runs simulator sessions on top of the wizard controller.

A Manager loads a session, applies one input under a per-session lock
(optionally backed by a distributed lock across replicas), persists the
result and executes the host-side effects it can perform itself: analytics
events and the lead submission. Every other effect is returned to the caller
for rendering.
*/
package session
