package log

// Common field names for structured logging
const (
	FieldComponent     = "component"
	FieldOperation     = "operation"
	FieldError         = "error"
	FieldErrorType     = "error_type"
	FieldSuccess       = "success"
	FieldDuration      = "duration_ms"
	FieldPath          = "path"
	FieldKey           = "key"
	FieldBytes         = "bytes"
	FieldRevision      = "revision"
	FieldEntity        = "entity"
	FieldEntityID      = "entity_id"
	FieldClientID      = "client_id"
	FieldServiceID     = "service_id"
	FieldAppointmentID = "appointment_id"
	FieldStatus        = "status"
	FieldAmountCents   = "amount_cents"
	FieldCategory      = "category"
	FieldSource        = "source"
	FieldSink          = "sink"
	FieldFileName      = "file_name"
	FieldFrom          = "from"
	FieldTo            = "to"
	FieldSheetsRef     = "sheets_ref"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentCLI       = "cli"
	ComponentStore     = "store"
	ComponentSnapshot  = "snapshot"
	ComponentAutosave  = "autosave"
	ComponentBackup    = "backup"
	ComponentReport    = "report"
	ComponentSettings  = "settings"
	ComponentScheduler = "scheduler"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentSheets    = "sheets"
	ComponentCache     = "cache"
	ComponentBackend   = "backend"
)

// Operations defines standard operation names
const (
	OpCreate   = "create"
	OpRead     = "read"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpList     = "list"
	OpLoad     = "load"
	OpSave     = "save"
	OpExport   = "export"
	OpImport   = "import"
	OpPublish  = "publish"
	OpValidate = "validate"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)

// ErrorTypes defines standard error type categories
const (
	ErrorTypeValidation    = "validation_error"
	ErrorTypeConfiguration = "configuration_error"
	ErrorTypeStorage       = "storage_error"
	ErrorTypeCorrupt       = "corrupt_snapshot"
	ErrorTypeNetwork       = "network_error"
	ErrorTypeNotFound      = "not_found_error"
	ErrorTypeInternal      = "internal_error"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

// WithError adds the error and its category
func (f LogFields) WithError(err error, errorType string) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
		f[FieldErrorType] = errorType
	}
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithEntity names the entity kind and id a mutation touched
func (f LogFields) WithEntity(kind, id string) LogFields {
	f[FieldEntity] = kind
	f[FieldEntityID] = id
	return f
}

// WithAppointment adds appointment fields
func (f LogFields) WithAppointment(id, clientID, status string, priceCents int64) LogFields {
	f[FieldAppointmentID] = id
	f[FieldClientID] = clientID
	f[FieldStatus] = status
	f[FieldAmountCents] = priceCents
	return f
}

// WithExpense adds expense fields
func (f LogFields) WithExpense(category string, amountCents int64) LogFields {
	f[FieldCategory] = category
	f[FieldAmountCents] = amountCents
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
