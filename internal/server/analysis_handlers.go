package server

import (
	"errors"
	"net/http"
	"strings"

	"Daybook_V0.1/internal/analysis"
	"Daybook_V0.1/internal/utility"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// FormIDHeader selects which form instance a submit belongs to.
const FormIDHeader = "X-Form-ID"

// failureNotices are the toast texts shown when an analysis fails.
var failureNotices = map[analysis.Kind]string{
	analysis.KindDiary:    "There was an error analyzing your diary entries. Please try again.",
	analysis.KindExpense:  "There was an error analyzing your expenses. Please try again.",
	analysis.KindWellness: "There was an error generating wellness insights. Please try again.",
}

var resultTitles = map[analysis.Kind]string{
	analysis.KindDiary:    "Diary Analysis",
	analysis.KindExpense:  "Expense Analysis",
	analysis.KindWellness: "Wellness Insights",
}

type analysisResponse struct {
	Kind      analysis.Kind      `json:"kind"`
	RequestID uint64             `json:"request_id"`
	Result    analysis.Output    `json:"result"`
	Sections  []analysis.Section `json:"sections"`
}

type analysisPage struct {
	Kind     analysis.Kind
	Title    string
	Sections []analysis.Section
}

/* ====================================================================
                   		Analysis Handlers
==================================================================== */

// analyzeHandler runs one analysis attempt for the caller's form.
func (s *Server) analyzeHandler(c echo.Context) error {
	ctx := c.Request().Context()
	logger := zerolog.Ctx(ctx)

	// 1. Resolve the kind
	kind, err := analysis.ParseKind(c.Param("kind"))
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Unknown analysis kind"})
	}

	// 2. Rate limit per caller
	caller := utility.CallerKey(c)
	if s.limiter != nil && !s.limiter.Allow(caller) {
		return c.JSON(http.StatusTooManyRequests, map[string]string{
			"error": "Too many analysis requests, please wait a moment and try again.",
			"code":  "rate_limited",
		})
	}

	// 3. Bind and validate the form
	raw, err := bindRawInput(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	input, err := analysis.Validate(kind, raw)
	if err != nil {
		var verrs analysis.ValidationErrors
		if errors.As(err, &verrs) {
			return c.JSON(http.StatusUnprocessableEntity, map[string]interface{}{
				"error":  "Please fix the highlighted fields.",
				"code":   "validation_failed",
				"fields": verrs.Fields(),
			})
		}
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Unknown analysis kind"})
	}

	// 4. Track the attempt; a newer submit from the same form supersedes this one
	tracker := s.trackers.Get(analysis.TrackerKey(caller, kind, c.Request().Header.Get(FormIDHeader)))
	requestID := tracker.Begin()

	// 5. Call the backend once
	out, err := s.invoker.Analyze(ctx, input)

	var settled *analysis.Output
	if err == nil {
		settled = &out
	}
	if !tracker.Finish(requestID, settled, err) {
		logger.Info().Uint64("request_id", requestID).Str("kind", string(kind)).Msg("Discarding superseded analysis result")
		return c.JSON(http.StatusConflict, map[string]interface{}{
			"error":      "A newer request from this form replaced this one.",
			"code":       "superseded",
			"request_id": requestID,
		})
	}

	// 6. Map failures to status codes
	if err != nil {
		return analysisFailure(c, kind, err)
	}

	// 7. Present
	sections := analysis.Present(out)
	if wantsHTML(c) {
		return c.Render(http.StatusOK, "analysis_result.html", analysisPage{
			Kind:     kind,
			Title:    resultTitles[kind],
			Sections: sections,
		})
	}
	return c.JSON(http.StatusOK, analysisResponse{
		Kind:      kind,
		RequestID: requestID,
		Result:    out,
		Sections:  sections,
	})
}

// analysisStateHandler reports the tracker state of a form.
func (s *Server) analysisStateHandler(c echo.Context) error {
	kind, err := analysis.ParseKind(c.Param("kind"))
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Unknown analysis kind"})
	}

	key := analysis.TrackerKey(utility.CallerKey(c), kind, c.QueryParam("form"))
	tracker, ok := s.trackers.Peek(key)
	if !ok {
		return c.JSON(http.StatusOK, analysis.NewTracker().Snapshot())
	}
	return c.JSON(http.StatusOK, tracker.Snapshot())
}

func analysisFailure(c echo.Context, kind analysis.Kind, err error) error {
	body := map[string]string{"error": failureNotices[kind]}

	switch {
	case errors.Is(err, analysis.ErrBackendUnavailable):
		body["code"] = "backend_unavailable"
		return c.JSON(http.StatusServiceUnavailable, body)
	case errors.Is(err, analysis.ErrSchemaViolation):
		body["code"] = "schema_violation"
		return c.JSON(http.StatusBadGateway, body)
	case errors.Is(err, analysis.ErrUpstream):
		body["code"] = "upstream_error"
		return c.JSON(http.StatusBadGateway, body)
	}

	zerolog.Ctx(c.Request().Context()).Error().Err(err).Msg("Unclassified analysis failure")
	body["code"] = "internal_error"
	return c.JSON(http.StatusInternalServerError, body)
}

// bindRawInput reads the analysis fields from a JSON body or an HTML form post.
func bindRawInput(c echo.Context) (analysis.RawInput, error) {
	var raw analysis.RawInput
	if !isFormPost(c) {
		err := c.Bind(&raw)
		return raw, err
	}

	params, err := c.FormParams()
	if err != nil {
		return raw, err
	}
	raw.DiaryEntries = params.Get("diaryEntries")
	raw.Expenses = params.Get("expenses")
	raw.ExpenseData = params.Get("expenseData")
	if params.Has("income") {
		raw.Income = params.Get("income")
	}
	return raw, nil
}

func isFormPost(c echo.Context) bool {
	ct := c.Request().Header.Get(echo.HeaderContentType)
	return strings.HasPrefix(ct, echo.MIMEApplicationForm) || strings.HasPrefix(ct, echo.MIMEMultipartForm)
}

func wantsHTML(c echo.Context) bool {
	accept := c.Request().Header.Get(echo.HeaderAccept)
	return strings.Contains(accept, echo.MIMETextHTML) && !strings.Contains(accept, echo.MIMEApplicationJSON)
}
