/*
Package domain contains the core models of the SEFRA simulator.

It defines the form structure, the accumulated lead, the wizard state and the
entities used by the offline cache layer. This package is kept pure and free of
I/O so every surface (HTTP, terminal, tests) can share it.

# Key Entities

  - Form, Step, Field: the declarative description of the simulator wizard.
  - LeadRecord: the values collected across steps plus capture metadata.
  - State: the snapshot of one wizard session (current step, record, errors).
  - CachedResponse: an entry stored in a named cache generation.
  - PendingSubmission: a lead payload queued for background retry.
*/
package domain
