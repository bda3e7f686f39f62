package log

// Common field names for structured logging
const (
	FieldComponent     = "component"
	FieldRequestID     = "request_id"
	FieldMethod        = "method"
	FieldPath          = "path"
	FieldStatusCode    = "status_code"
	FieldDuration      = "duration_ms"
	FieldError         = "error"
	FieldOperation     = "operation"
	FieldOwnerID       = "owner_id"
	FieldGeneration    = "generation"
	FieldTransactionID = "transaction_id"
	FieldKind          = "kind"
	FieldAmountCents   = "amount_cents"
	FieldCategory      = "category"
	FieldCount         = "count"
	FieldStatus        = "status"
	FieldAddr          = "addr"
	FieldVersion       = "version"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentStore     = "store"
	ComponentSession   = "session"
	ComponentStorage   = "storage"
	ComponentMemory    = "memory"
	ComponentAMQP      = "amqp"
	ComponentBackend   = "backend"
	ComponentStatus    = "status_api"
	ComponentDashboard = "dashboard"
	ComponentWorker    = "worker"
)

// Operations defines standard operation names
const (
	OpOpen      = "open"
	OpClose     = "close"
	OpSnapshot  = "snapshot"
	OpCreate    = "create"
	OpUpdate    = "update"
	OpDelete    = "delete"
	OpValidate  = "validate"
	OpSubscribe = "subscribe"
	OpPublish   = "publish"
	OpShutdown  = "shutdown"
	OpStartup   = "startup"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithOwner adds the session owner and its subscription generation
func (f LogFields) WithOwner(ownerID string, generation uint64) LogFields {
	f[FieldOwnerID] = ownerID
	f[FieldGeneration] = generation
	return f
}

// WithTransaction adds transaction-related fields
func (f LogFields) WithTransaction(id string, kind string, amountCents int64, category string) LogFields {
	if id != "" {
		f[FieldTransactionID] = id
	}
	f[FieldKind] = kind
	f[FieldAmountCents] = amountCents
	f[FieldCategory] = category
	return f
}

// WithCount adds a list size
func (f LogFields) WithCount(n int) LogFields {
	f[FieldCount] = n
	return f
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
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
