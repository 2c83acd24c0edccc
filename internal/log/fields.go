package log

// Common field names for structured logging
const (
	FieldComponent     = "component"
	FieldCommand       = "command"
	FieldError         = "error"
	FieldErrorType     = "error_type"
	FieldOperation     = "operation"
	FieldKey           = "key"
	FieldBackend       = "backend"
	FieldYear          = "year"
	FieldMonth         = "month"
	FieldTransactionID = "transaction_id"
	FieldOriginalID    = "original_id"
	FieldOccurrences   = "occurrences"
	FieldCount         = "count"
	FieldCurrency      = "currency"
	FieldLabel         = "label"
	FieldDuration      = "duration_ms"
)

// Components defines standard component names
const (
	ComponentApp      = "app"
	ComponentLedger   = "ledger"
	ComponentLabels   = "labels"
	ComponentSettings = "settings"
	ComponentAMQP     = "amqp"
	ComponentBackend  = "backend"
	ComponentCLI      = "cli"
)

// Operations defines standard operation names
const (
	OpLoad     = "load"
	OpCreate   = "create"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpReplace  = "replace"
	OpPublish  = "publish"
	OpValidate = "validate"
	OpStartup  = "startup"
	OpShutdown = "shutdown"
)

// ErrorTypes defines standard error type categories
const (
	ErrorTypeValidation    = "validation_error"
	ErrorTypeConfiguration = "configuration_error"
	ErrorTypeDatabase      = "database_error"
	ErrorTypeNetwork       = "network_error"
	ErrorTypeAuth          = "auth_error"
	ErrorTypeDecode        = "decode_error"
	ErrorTypeInternal      = "internal_error"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithComponent adds component field
func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

// WithError adds error and error type fields
func (f LogFields) WithError(err error, errorType string) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
		f[FieldErrorType] = errorType
	}
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithTransaction adds transaction identity fields
func (f LogFields) WithTransaction(id int64, originalID *int64) LogFields {
	f[FieldTransactionID] = id
	if originalID != nil {
		f[FieldOriginalID] = *originalID
	}
	return f
}

// WithPeriod adds year and month fields
func (f LogFields) WithPeriod(year, month int) LogFields {
	f[FieldYear] = year
	f[FieldMonth] = month
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
