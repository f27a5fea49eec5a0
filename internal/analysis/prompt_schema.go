package analysis

import (
	"fmt"
	"strconv"
)

/* =================================================================================
						PROMPT ENGINEERING & TEMPLATES
	Template text is static configuration versioned with its kind. Editing the
	text must never change the Output contract above.
=================================================================================*/

// Template is the fixed prompt for one kind. Body is a fmt format string whose
// verbs receive the user fields verbatim, in the order of Input.promptArgs.
type Template struct {
	Kind    Kind
	Version string
	Body    string
}

// Prompt is the exact payload handed to the generative backend.
type Prompt struct {
	Kind              Kind   `json:"kind"`
	TemplateVersion   string `json:"template_version"`
	SystemInstruction string `json:"system_instruction"`
	Text              string `json:"text"`
}

// SystemInstruction constrains the response format for every kind.
const SystemInstruction = `You are a Personal AI Agent inside a productivity and finance planner.
You are empathetic, motivational, action-oriented, and data-driven.

RESPONSE FORMAT:
- Return ONLY the JSON object defined in the response schema
- Fill all six fields; never leave a field empty
- Do NOT add markdown, explanations, or preamble`

// outputSectionSpec names the six sections in their fixed order, each tied to
// the Output field that carries it.
const outputSectionSpec = `OUTPUT FORMAT (ALWAYS USE THIS)
📊 ANALYSIS SUMMARY (analysisSummary)
[2-3 sentence overview]

🎯 KEY FINDINGS (keyFindings)
[Finding 1 with data point]
[Finding 2 with data point]
[Finding 3 with data point]

💡 ACTIONABLE RECOMMENDATIONS (actionableRecommendations)
→ Recommendation 1 [Why + How]
→ Recommendation 2 [Why + How]
→ Recommendation 3 [Why + How]
→ Recommendation 4 [Why + How]
→ Recommendation 5 [Why + How]

🎉 CELEBRATING YOUR WINS (celebratingWins)
[Specific praise for positive patterns observed]

⚠️ GENTLE CHALLENGES (gentleChallenges)
[Areas to improve, phrased supportively]

📅 NEXT WEEK FORECAST (nextWeekForecast)
[Predicted patterns + preventive suggestions]`

// seasonalContext is shared by the money-aware templates.
const seasonalContext = `CONTEXT AWARENESS
- Winter (Dec-Feb): Higher heating/shopping, gift spending
- Spring (Mar-May): Travel, festivals (Holi)
- Summer (Jun-Aug): AC bills, vacations, cooling costs
- Autumn (Sep-Nov): Diwali shopping, festival expenses
- Diwali (Oct-Nov): Expected gift/decoration spending
- Holi (Mar-May): Food/celebration expenses`

const diaryPromptTemplate = `You are a Personal AI Agent specialized in analyzing user diary entries.

Analyze the following diary entries to identify mood trends, work patterns, and stress triggers.
Extract recurring mood and productivity patterns and provide personalized recommendations for
improving productivity and overall well-being.

` + outputSectionSpec + `

Diary Entries:
%s`

const expensePromptTemplate = `You are an advanced Personal AI Agent specializing in expense management.
Analyze the user's expense data to categorize spending, identify saving opportunities, and suggest budgeting strategies.

INSTRUCTIONS:
1. Categorize spending patterns (essential vs discretionary).
2. Calculate the percentage breakdown by category against the income.
3. Identify month-over-month spending changes.
4. Flag unusual spending spikes with gentle questioning.
5. Suggest 5%% savings targets for each category.

User Income: ₹%s
Expenses: %s

` + outputSectionSpec + `

SPECIFIC RULES:
- Use actual expense amounts in analysis.
- Provide percentage improvements (5%% saves X per month).
- Reference Indian holidays and seasonal factors.
- Celebrate small wins and progress.

` + seasonalContext

const wellnessPromptTemplate = `You are an advanced Personal AI Agent specializing in analyzing user productivity patterns,
expense management, and wellness insights from their diary and expense tracking data.

Cross-reference the diary entries with the expense data: connect moods, stress and routines to
spending, recommend low-cost alternatives, and generate a personalized wellness plan.

Diary Entries:
%s

Expense Data:
%s

` + outputSectionSpec + `

SPECIFIC RULES
DO:
- Always cite specific dates/entries from the diary
- Use actual expense amounts in analysis
- Provide percentage improvements (5%% saves X per month)
- Reference Indian holidays and seasonal factors
DON'T:
- Share medical/legal advice (suggest consulting professionals)
- Make assumptions without evidence from the data
- Be judgmental about spending or lifestyle choices

` + seasonalContext + `

WORK CYCLE AWARENESS
- Salary days: Encourage planning/saving rituals
- Exam seasons: Address stress spending
- Project deadlines: Sleep/health impacts`

var templates = map[Kind]Template{
	KindDiary:    {Kind: KindDiary, Version: "diary/v1", Body: diaryPromptTemplate},
	KindExpense:  {Kind: KindExpense, Version: "expense/v1", Body: expensePromptTemplate},
	KindWellness: {Kind: KindWellness, Version: "wellness/v1", Body: wellnessPromptTemplate},
}

// TemplateFor returns the static template of kind.
func TemplateFor(kind Kind) (Template, bool) {
	t, ok := templates[kind]
	return t, ok
}

// Render builds the prompt for a validated input. It is pure: the same input
// always produces byte-identical text, and user fields are never trimmed.
func Render(in Input) Prompt {
	tpl := templates[in.Kind()]
	return Prompt{
		Kind:              tpl.Kind,
		TemplateVersion:   tpl.Version,
		SystemInstruction: SystemInstruction,
		Text:              fmt.Sprintf(tpl.Body, in.promptArgs()...),
	}
}

func (d DiaryInput) promptArgs() []any { return []any{d.DiaryEntries} }

func (e ExpenseInput) promptArgs() []any { return []any{formatAmount(e.Income), e.Expenses} }

func (w WellnessInput) promptArgs() []any { return []any{w.DiaryEntries, w.ExpenseData} }

// formatAmount prints the shortest plain decimal form, so 50000 renders as "50000".
func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
