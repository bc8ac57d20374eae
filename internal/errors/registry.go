package errors

import "sort"

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category   Category
	Message    string
	Suggestion string
}

// Error codes raised by the observable model and the binding engine.
const (
	CodeUnsupportedValue = "T001"
	CodeReservedName     = "T002"
	CodeUnsupportedOp    = "T003"
	CodeReadOnly         = "T004"
	CodeNotObservable    = "T005"
	CodeNotElement       = "T006"
	CodeWrongKind        = "T007"
	CodeIndexRange       = "T008"
	CodeScriptDisabled   = "T009"
	CodeNocall           = "T010"
	CodeBadStatement     = "T011"
	CodeDetachedTemplate = "T012"
	CodeScriptCompile    = "T013"

	CodeConfigInvalid  = "T020"
	CodeConfigNotFound = "T021"

	CodeSourceNotFound = "T030"
	CodeDataDecode     = "T031"
	CodeTemplateParse  = "T032"

	CodeInvalidFrame = "T040"
)

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Observable model (T001-T009)
	// ============================================

	CodeUnsupportedValue: {
		Category:   CategoryType,
		Message:    "Value cannot be observed",
		Suggestion: "Use map[string]any for records, []any for lists, observe.Func for callables or a scalar.",
	},
	CodeReservedName: {
		Category:   CategoryUsage,
		Message:    "Reserved context name cannot be assigned",
		Suggestion: "Rename the data property; context, parent, root and the observer methods are reserved.",
	},
	CodeUnsupportedOp: {
		Category:   CategoryUsage,
		Message:    "List operation not supported",
		Suggestion: "Only clear, pop, shift, push, unshift, splice, index assignment and length truncation are observable.",
	},
	CodeReadOnly: {
		Category: CategoryUsage,
		Message:  "Computed property is read-only",
	},
	CodeNotObservable: {
		Category:   CategoryUsage,
		Message:    "Context is not observed",
		Suggestion: "Wrap the data with observe.Wrap before rendering.",
	},
	CodeNotElement: {
		Category: CategoryTemplate,
		Message:  "Template is not an element",
	},
	CodeWrongKind: {
		Category: CategoryUsage,
		Message:  "Wrong wrapper kind",
	},
	CodeIndexRange: {
		Category: CategoryUsage,
		Message:  "List index out of range",
	},
	CodeScriptDisabled: {
		Category:   CategoryUsage,
		Message:    "Script expressions are disabled",
		Suggestion: "Install an Evaluator with tales.WithEvaluator to enable script: expressions.",
	},

	// ============================================
	// Expressions and statements (T010-T019)
	// ============================================

	CodeNocall: {
		Category: CategoryUsage,
		Message:  "nocall: expressions are not supported",
	},
	CodeBadStatement: {
		Category: CategoryTemplate,
		Message:  "Malformed statement",
	},
	CodeDetachedTemplate: {
		Category:   CategoryTemplate,
		Message:    "Statement requires a parent node",
		Suggestion: "Structural statements (condition, with, repeat, replace) cannot sit on a detached template root.",
	},
	CodeScriptCompile: {
		Category: CategoryEvaluation,
		Message:  "Script expression does not compile",
	},

	// ============================================
	// Configuration (T020-T029)
	// ============================================

	CodeConfigInvalid: {
		Category: CategoryConfig,
		Message:  "Invalid configuration",
	},
	CodeConfigNotFound: {
		Category:   CategoryConfig,
		Message:    "Configuration file not found",
		Suggestion: "Create tal.yaml in the project root or pass --config.",
	},

	// ============================================
	// Sources (T030-T039)
	// ============================================

	CodeSourceNotFound: {
		Category: CategorySource,
		Message:  "Source not found",
	},
	CodeDataDecode: {
		Category: CategorySource,
		Message:  "Data file could not be decoded",
	},
	CodeTemplateParse: {
		Category: CategorySource,
		Message:  "Template could not be parsed",
	},

	// ============================================
	// Protocol (T040-T049)
	// ============================================

	CodeInvalidFrame: {
		Category: CategoryProtocol,
		Message:  "Invalid frame",
	},
}

// GetAllCodes returns all registered error codes in ascending order.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}

// Register adds a new error template to the registry.
func Register(code string, template ErrorTemplate) {
	registry[code] = template
}
