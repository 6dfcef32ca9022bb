package log

// Common field names for structured logging.
const (
	FieldComponent = "component"
	FieldError     = "error"
	FieldUserID    = "user_id"
	FieldBudgetID  = "budget_id"
	FieldJob       = "job"
	FieldCount     = "count"
	FieldDuration  = "duration_ms"
)

// Components defines standard component names.
const (
	ComponentApp         = "app"
	ComponentHTTP        = "http"
	ComponentStorage     = "storage"
	ComponentSession     = "session"
	ComponentAuth        = "auth"
	ComponentPermissions = "permissions"
	ComponentScheduler   = "scheduler"
	ComponentJobs        = "jobs"
	ComponentEvents      = "events"
	ComponentEmail       = "email"
)
