package domain

// Field names of the default simulator form.
const (
	FieldName          = "nome"
	FieldEmail         = "email"
	FieldPhone         = "telefone"
	FieldPropertyValue = "valor_imovel"
	FieldTerm          = "prazo"
	FieldCity          = "cidade"
	FieldIncome        = "renda"
)

// Event names recorded through the event sink.
const (
	EventPageView          = "page_view"
	EventLeadInitiated     = "lead_initiated"
	EventStepCompleted     = "form_step_completed"
	EventLeadSubmitted     = "lead_submitted"
	EventLeadSubmitFailed  = "lead_submit_failed"
	EventWhatsAppClick     = "whatsapp_click"
	EventCTAClick          = "cta_click"
	EventSubmissionQueued  = "lead_submission_queued"
	EventSubmissionRetried = "lead_submission_retried"
)

// SyncTagLead is the background sync tag that drains the pending submission queue.
const SyncTagLead = "background-sync-lead"

// LeadSource is stamped on every outbound lead payload.
const LeadSource = "landing_page"

// Worker control message types.
const (
	MessageClearCache         = "CLEAR_CACHE"
	MessagePerformanceMetrics = "PERFORMANCE_METRICS"
)
