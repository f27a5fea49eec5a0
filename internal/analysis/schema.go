/*
Package analysis implements the prompt-templated analysis pipeline behind the
diary, expense and wellness features: input contracts, prompt rendering, the
single-attempt invoker that enforces the output contract, and the mapping of a
valid result into display sections.
*/
package analysis

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"google.golang.org/genai"
)

/* =================================================================================
									KINDS
=================================================================================*/

// Kind selects one of the three analysis variants.
type Kind string

const (
	KindDiary    Kind = "diary"
	KindExpense  Kind = "expense"
	KindWellness Kind = "wellness"
)

// Kinds lists every supported kind in display order.
var Kinds = []Kind{KindDiary, KindExpense, KindWellness}

// ParseKind maps a route segment onto a Kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindDiary:
		return KindDiary, nil
	case KindExpense:
		return KindExpense, nil
	case KindWellness:
		return KindWellness, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

/* =================================================================================
								INPUT CONTRACTS
=================================================================================*/

// Field limits and messages. The messages are the ones the forms show inline.
const (
	minDiaryLength   = 50
	minExpenseLength = 20
	minIncome        = 1

	msgDiaryEntries         = "Please enter at least 50 characters for a meaningful analysis."
	msgExpenses             = "Please list some expenses for a meaningful analysis."
	msgIncomeMissing        = "Please enter your monthly income."
	msgInvalidNumber        = "Please enter a valid number."
	msgWellnessDiaryEntries = "Please enter at least 50 characters of diary entries."
	msgWellnessExpenseData  = "Please list some expenses."
)

// RawInput is the unvalidated form payload. Income is left untyped so that a
// JSON number and the text of a posted number input coerce the same way.
type RawInput struct {
	DiaryEntries string `json:"diaryEntries"`
	Expenses     string `json:"expenses"`
	Income       any    `json:"income"`
	ExpenseData  string `json:"expenseData"`
}

// Input is a validated analysis input. The set of implementations is closed.
type Input interface {
	Kind() Kind
	promptArgs() []any
}

// DiaryInput feeds the diary analysis.
type DiaryInput struct {
	DiaryEntries string `json:"diaryEntries"`
}

// ExpenseInput feeds the expense analysis.
type ExpenseInput struct {
	Expenses string  `json:"expenses"`
	Income   float64 `json:"income"`
}

// WellnessInput feeds the wellness analysis.
type WellnessInput struct {
	DiaryEntries string `json:"diaryEntries"`
	ExpenseData  string `json:"expenseData"`
}

func (DiaryInput) Kind() Kind    { return KindDiary }
func (ExpenseInput) Kind() Kind  { return KindExpense }
func (WellnessInput) Kind() Kind { return KindWellness }

// Validate checks raw against the contract of kind and returns the typed input,
// or ValidationErrors with one message per violated field.
func Validate(kind Kind, raw RawInput) (Input, error) {
	var errs ValidationErrors

	switch kind {
	case KindDiary:
		errs.minLength("diaryEntries", raw.DiaryEntries, minDiaryLength, msgDiaryEntries)
		if len(errs) > 0 {
			return nil, errs
		}
		return DiaryInput{DiaryEntries: raw.DiaryEntries}, nil

	case KindExpense:
		errs.minLength("expenses", raw.Expenses, minExpenseLength, msgExpenses)
		income, ok := CoerceNumber(raw.Income)
		switch {
		case !ok:
			errs = append(errs, FieldError{Field: "income", Message: msgInvalidNumber})
		case income < minIncome:
			errs = append(errs, FieldError{Field: "income", Message: msgIncomeMissing})
		}
		if len(errs) > 0 {
			return nil, errs
		}
		return ExpenseInput{Expenses: raw.Expenses, Income: income}, nil

	case KindWellness:
		errs.minLength("diaryEntries", raw.DiaryEntries, minDiaryLength, msgWellnessDiaryEntries)
		errs.minLength("expenseData", raw.ExpenseData, minExpenseLength, msgWellnessExpenseData)
		if len(errs) > 0 {
			return nil, errs
		}
		return WellnessInput{DiaryEntries: raw.DiaryEntries, ExpenseData: raw.ExpenseData}, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}

func (v *ValidationErrors) minLength(field, value string, min int, message string) {
	if utf8.RuneCountInString(value) < min {
		*v = append(*v, FieldError{Field: field, Message: message})
	}
}

// CoerceNumber converts a form value into a finite float64. Empty strings
// coerce to zero; nil, non-numeric text, NaN and infinities are rejected.
func CoerceNumber(v any) (float64, bool) {
	var f float64

	switch n := v.(type) {
	case nil:
		return 0, false
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, true
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

/* =================================================================================
								OUTPUT CONTRACT
=================================================================================*/

// Output is the structured result shared by all three kinds.
type Output struct {
	AnalysisSummary           string   `json:"analysisSummary"`
	KeyFindings               []string `json:"keyFindings"`
	ActionableRecommendations []string `json:"actionableRecommendations"`
	CelebratingWins           string   `json:"celebratingWins"`
	GentleChallenges          string   `json:"gentleChallenges"`
	NextWeekForecast          string   `json:"nextWeekForecast"`
}

// outputFields is the fixed order of the six output fields.
var outputFields = []string{
	"analysisSummary",
	"keyFindings",
	"actionableRecommendations",
	"celebratingWins",
	"gentleChallenges",
	"nextWeekForecast",
}

// Validate is structural only: every field present and non-empty, lists
// holding at least one non-blank item. Content is not judged.
func (o Output) Validate() error {
	var missing []string

	text := map[string]string{
		"analysisSummary":  o.AnalysisSummary,
		"celebratingWins":  o.CelebratingWins,
		"gentleChallenges": o.GentleChallenges,
		"nextWeekForecast": o.NextWeekForecast,
	}
	lists := map[string][]string{
		"keyFindings":               o.KeyFindings,
		"actionableRecommendations": o.ActionableRecommendations,
	}

	for _, name := range outputFields {
		if s, ok := text[name]; ok {
			if strings.TrimSpace(s) == "" {
				missing = append(missing, name)
			}
			continue
		}
		if !nonBlankList(lists[name]) {
			missing = append(missing, name)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: missing or empty %s", ErrSchemaViolation, strings.Join(missing, ", "))
	}
	return nil
}

func nonBlankList(items []string) bool {
	if len(items) == 0 {
		return false
	}
	for _, item := range items {
		if strings.TrimSpace(item) == "" {
			return false
		}
	}
	return true
}

// DecodeOutput parses the backend's raw JSON text and enforces the contract.
// A Markdown code fence around the JSON is tolerated.
func DecodeOutput(raw string) (Output, error) {
	body := strings.TrimSpace(raw)
	if strings.HasPrefix(body, "```") {
		body = strings.TrimPrefix(body, "```json")
		body = strings.TrimPrefix(body, "```")
		body = strings.TrimSuffix(strings.TrimSpace(body), "```")
	}
	if body == "" {
		return Output{}, fmt.Errorf("%w: empty response", ErrSchemaViolation)
	}

	var out Output
	if err := json.Unmarshal([]byte(body), &out); err != nil {
		return Output{}, fmt.Errorf("%w: %v", ErrSchemaViolation, err)
	}
	if err := out.Validate(); err != nil {
		return Output{}, err
	}
	return out, nil
}

/* =================================================================================
							RESPONSE SCHEMA DESCRIPTORS
	Sent with every request so the model answers in the Output shape.
=================================================================================*/

type outputDescriptions struct {
	summary, findings, recommendations, wins, challenges, forecast string
}

var descriptionsByKind = map[Kind]outputDescriptions{
	KindDiary: {
		summary:         "A 2-3 sentence overview of the diary analysis.",
		findings:        "Key findings from the diary analysis with data points.",
		recommendations: "Actionable recommendations based on the diary analysis.",
		wins:            "Specific praise for positive patterns observed.",
		challenges:      "Areas to improve, phrased supportively.",
		forecast:        "Predicted patterns and preventive suggestions.",
	},
	KindExpense: {
		summary:         "A 2-3 sentence overview of the expense analysis.",
		findings:        "Key findings from the expense analysis with data points.",
		recommendations: "Actionable recommendations for budgeting and saving.",
		wins:            "Specific praise for positive spending patterns.",
		challenges:      "Areas to improve, phrased supportively.",
		forecast:        "Predicted spending patterns and preventive suggestions.",
	},
	KindWellness: {
		summary:         "A 2-3 sentence summary of the wellness insights analysis.",
		findings:        "Key findings from the analysis with data points.",
		recommendations: "Actionable recommendations for the user.",
		wins:            "Specific praise for positive patterns observed.",
		challenges:      "Areas to improve, phrased supportively.",
		forecast:        "Predicted patterns and preventive suggestions for the next week.",
	},
}

// ResponseSchema returns the structured-output descriptor for kind. Every
// kind shares the same six required fields; only descriptions differ.
func ResponseSchema(kind Kind) *genai.Schema {
	d := descriptionsByKind[kind]
	minItems := int64(1)

	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"analysisSummary": {Type: genai.TypeString, Description: d.summary},
			"keyFindings": {
				Type:        genai.TypeArray,
				Description: d.findings,
				Items:       &genai.Schema{Type: genai.TypeString},
				MinItems:    &minItems,
			},
			"actionableRecommendations": {
				Type:        genai.TypeArray,
				Description: d.recommendations,
				Items:       &genai.Schema{Type: genai.TypeString},
				MinItems:    &minItems,
			},
			"celebratingWins":  {Type: genai.TypeString, Description: d.wins},
			"gentleChallenges": {Type: genai.TypeString, Description: d.challenges},
			"nextWeekForecast": {Type: genai.TypeString, Description: d.forecast},
		},
		Required:         append([]string(nil), outputFields...),
		PropertyOrdering: append([]string(nil), outputFields...),
	}
}
