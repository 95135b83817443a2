package log

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldError      = "error"
	FieldOperation  = "operation"

	FieldOrigin     = "origin"
	FieldRecords    = "records"
	FieldCustomerID = "customer_id"
	FieldCity       = "city"
	FieldZone       = "zone"
	FieldSegment    = "segment"
	FieldScenario   = "scenario"
	FieldExportFile = "export_file"
	FieldBackend    = "backend"
)

// Components defines standard component names
const (
	ComponentApp     = "app"
	ComponentHTTP    = "http"
	ComponentDataset = "dataset"
	ComponentMetrics = "metrics"
	ComponentExport  = "export"
	ComponentStorage = "storage"
	ComponentAMQP    = "amqp"
	ComponentWorker  = "worker"
	ComponentSheets  = "sheets"
	ComponentCache   = "cache"
	ComponentBackend = "backend"
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

// WithRequestID adds request ID field
func (f LogFields) WithRequestID(requestID string) LogFields {
	f[FieldRequestID] = requestID
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

// WithDataset adds dataset snapshot fields
func (f LogFields) WithDataset(origin string, records int) LogFields {
	f[FieldOrigin] = origin
	f[FieldRecords] = records
	return f
}

// WithFilter adds the export filter fields, skipping empty values
func (f LogFields) WithFilter(city, segment, zone string) LogFields {
	if city != "" {
		f[FieldCity] = city
	}
	if segment != "" {
		f[FieldSegment] = segment
	}
	if zone != "" {
		f[FieldZone] = zone
	}
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
