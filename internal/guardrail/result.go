package guardrail

import "sort"

// Issue codes.
const (
	CodeUnknownTable          = "unknown_table"
	CodeUnsupportedOperation  = "unsupported_operation"
	CodeMissingRequiredField  = "missing_required_field"
	CodeDeprecatedField       = "deprecated_field"
	CodeMissingOrganizationID = "missing_organization_id"
	CodeInvalidSmartCode      = "invalid_smart_code"
)

// Payload is the loosely typed body of a write or query.
type Payload map[string]any

// Clone returns a shallow copy of p.
func (p Payload) Clone() Payload {
	if p == nil {
		return Payload{}
	}
	out := make(Payload, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

func (p Payload) sortedKeys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Request names the table, operation and payload to check.
type Request struct {
	Table     string  `json:"table"`
	Operation string  `json:"operation"`
	Payload   Payload `json:"payload"`
}

// Issue is one finding. Field may list several comma-separated fields.
type Issue struct {
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// AutoFix is a suggested correction. Payload is the complete corrected payload;
// Covers lists the issue codes the fix resolves.
type AutoFix struct {
	Table       string            `json:"table"`
	Payload     Payload           `json:"payload"`
	Renames     map[string]string `json:"renames,omitempty"`
	Covers      []string          `json:"covers"`
	Description string            `json:"description"`
}

// Result is the outcome of a check.
type Result struct {
	Valid         bool     `json:"valid"`
	Errors        []Issue  `json:"errors"`
	Warnings      []Issue  `json:"warnings"`
	MissingFields []string `json:"missing_fields,omitempty"`
	AutoFix       *AutoFix `json:"auto_fix,omitempty"`
}

func newResult() Result {
	return Result{Valid: true, Errors: []Issue{}, Warnings: []Issue{}}
}

func (r *Result) addError(code, field, message string) {
	r.Errors = append(r.Errors, Issue{Code: code, Field: field, Message: message})
	r.Valid = false
}

func (r *Result) addWarning(code, field, message string) {
	r.Warnings = append(r.Warnings, Issue{Code: code, Field: field, Message: message})
}

// ErrorMessages returns the error messages in order.
func (r Result) ErrorMessages() []string {
	return messages(r.Errors)
}

// WarningMessages returns the warning messages in order.
func (r Result) WarningMessages() []string {
	return messages(r.Warnings)
}

// HasErrorCode reports whether any error carries code.
func (r Result) HasErrorCode(code string) bool {
	for _, issue := range r.Errors {
		if issue.Code == code {
			return true
		}
	}
	return false
}

func messages(issues []Issue) []string {
	out := make([]string, 0, len(issues))
	for _, issue := range issues {
		out = append(out, issue.Message)
	}
	return out
}
