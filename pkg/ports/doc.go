/*
Package ports defines the driven ports (interfaces) of the simulator.

These interfaces decouple the wizard, the submission pipeline and the offline
worker from concrete infrastructure, so the same logic runs against memory,
file, Redis or SQLite backends.

# Key Interfaces

  - SessionStore: persists wizard session State.
  - CacheStore: stores responses in named cache generations.
  - PendingQueue: durable queue of failed lead submissions.
  - LeadTransport: delivers a serialized lead to the submission endpoint.
  - EventSink: receives analytics events.
  - DistributedLocker: coordinates background sync across worker replicas.
*/
package ports
