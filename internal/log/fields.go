package log

import (
	"sort"

	"threepl/internal/core"
)

// Field names shared by every component.
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldSuccess    = "success"
	FieldError      = "error"
	FieldErrorType  = "error_type"
	FieldOperation  = "operation"

	FieldVariant      = "variant"
	FieldMonthIndex   = "month_index"
	FieldMonth        = "month"
	FieldKind         = "kind"
	FieldCategory     = "category"
	FieldAmount       = "amount"
	FieldRevision     = "revision"
	FieldGrossRevenue = "gross_revenue"
	FieldEBITDA       = "ebitda"
	FieldMode         = "mode"
	FieldWeightLbs    = "weight_lbs"
	FieldDistance     = "distance_miles"
	FieldQuoteTotal   = "total_landed_cost"
	FieldReportID     = "report_id"
)

const (
	ComponentApp      = "app"
	ComponentHTTP     = "http"
	ComponentLedger   = "ledger"
	ComponentMetrics  = "metrics"
	ComponentFreight  = "freight"
	ComponentStorage  = "storage"
	ComponentImporter = "importer"
	ComponentAMQP     = "amqp"
	ComponentWorker   = "worker"
	ComponentCache    = "cache"
)

const (
	OpUpdate   = "update"
	OpAppend   = "append"
	OpCompute  = "compute"
	OpQuote    = "quote"
	OpReport   = "report"
	OpImport   = "import"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)

const (
	ErrorTypeValidation    = "validation_error"
	ErrorTypeConfiguration = "configuration_error"
	ErrorTypeNotFound      = "not_found_error"
	ErrorTypeInternal      = "internal_error"
)

// LogFields collects attributes before handing them to slog.
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithLedgerEdit(index int, kind core.LineKind, category string, amount float64) LogFields {
	f[FieldMonthIndex] = index
	f[FieldKind] = string(kind)
	f[FieldCategory] = category
	f[FieldAmount] = amount
	return f
}

func (f LogFields) WithMetrics(variant string, index int, m core.DerivedMetrics) LogFields {
	f[FieldVariant] = variant
	f[FieldMonthIndex] = index
	f[FieldMonth] = m.Month
	f[FieldGrossRevenue] = m.GrossRevenue
	f[FieldEBITDA] = m.EBITDA
	return f
}

func (f LogFields) WithQuote(s core.FreightShipment, q core.QuoteBreakdown) LogFields {
	f[FieldMode] = string(q.Mode)
	f[FieldWeightLbs] = s.ActualWeight
	f[FieldDistance] = s.Distance
	f[FieldQuoteTotal] = q.Total
	return f
}

func (f LogFields) WithHTTP(method, path string, status int, durationMs int64) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldStatusCode] = status
	f[FieldDuration] = durationMs
	f[FieldSuccess] = status < 400
	return f
}

// ToSlice flattens the fields in key order so output is stable.
func (f LogFields) ToSlice() []any {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]any, 0, len(f)*2)
	for _, k := range keys {
		out = append(out, k, f[k])
	}
	return out
}
