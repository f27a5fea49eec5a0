package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"Daybook_V0.1/internal/analysis"
	"Daybook_V0.1/internal/auth"
	"Daybook_V0.1/internal/schedule"
	"Daybook_V0.1/internal/utility"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// NoticeScheduleSaved is the websocket notice type pushed after a save.
const NoticeScheduleSaved = "SCHEDULE_SAVED"

// scheduleDraft is the editable part of the day form. Numbers arrive either
// as JSON numbers or as the raw text of a number input.
type scheduleDraft struct {
	Tasks         *string `json:"tasks"`
	Budget        any     `json:"budget"`
	ImportantWork *string `json:"importantWork"`
	StudyHours    any     `json:"studyHours"`
	WorkingHours  any     `json:"workingHours"`
}

// patch converts the draft, leaving out every field the form did not send.
func (d scheduleDraft) patch() (schedule.Patch, map[string]string) {
	p := schedule.Patch{Tasks: d.Tasks, ImportantWork: d.ImportantWork}
	fieldErrs := map[string]string{}

	number := func(field string, v any) *float64 {
		if v == nil {
			return nil
		}
		f, ok := analysis.CoerceNumber(v)
		if !ok {
			fieldErrs[field] = "Please enter a valid number."
			return nil
		}
		return &f
	}
	p.Budget = number("budget", d.Budget)
	p.StudyHours = number("studyHours", d.StudyHours)
	p.WorkingHours = number("workingHours", d.WorkingHours)

	return p, fieldErrs
}

// bindScheduleDraft reads the day form from a JSON body or an HTML form post.
// Form fields that were not posted stay nil so the merge leaves them alone.
func bindScheduleDraft(c echo.Context) (scheduleDraft, error) {
	var d scheduleDraft
	if !isFormPost(c) {
		err := c.Bind(&d)
		return d, err
	}

	params, err := c.FormParams()
	if err != nil {
		return d, err
	}
	text := func(field string) *string {
		if !params.Has(field) {
			return nil
		}
		v := params.Get(field)
		return &v
	}
	number := func(field string) any {
		if !params.Has(field) {
			return nil
		}
		return params.Get(field)
	}

	d.Tasks = text("tasks")
	d.ImportantWork = text("importantWork")
	d.Budget = number("budget")
	d.StudyHours = number("studyHours")
	d.WorkingHours = number("workingHours")
	return d, nil
}

/* ====================================================================
                   		Schedule Handlers
==================================================================== */

// saveScheduleHandler merge-writes the day form. Without an identity the
// draft is echoed back together with a call to action to sign in.
func (s *Server) saveScheduleHandler(c echo.Context) error {
	ctx := c.Request().Context()
	logger := zerolog.Ctx(ctx)

	// 1. Parse the date
	day, err := s.parseDate(c.Param("date"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Date must be in YYYY-MM-DD format"})
	}

	// 2. Bind the draft
	draft, err := bindScheduleDraft(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	patch, fieldErrs := draft.patch()
	if len(fieldErrs) > 0 {
		return c.JSON(http.StatusUnprocessableEntity, map[string]interface{}{
			"error":  "Please fix the highlighted fields.",
			"code":   "validation_failed",
			"fields": fieldErrs,
		})
	}

	// 3. Save; a missing identity is refused before the store is touched
	userID, _ := utility.GetUserIDFromContext(c)
	key := schedule.KeyFor(userID, day)

	if err := s.schedules.Save(ctx, key, patch); err != nil {
		if errors.Is(err, schedule.ErrUnauthenticated) {
			body := auth.Unauthenticated("You must be logged in to save a schedule.")
			body["title"] = "Not logged in"
			body["draft"] = patch
			return c.JSON(http.StatusUnauthorized, body)
		}
		logger.Error().Err(err).Str("schedule", key.String()).Msg("Failed to save schedule")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to save schedule"})
	}

	// 4. Tell the user's other open tabs
	if s.hub != nil {
		s.hub.Notify(userID, utility.Notice{
			Type:    NoticeScheduleSaved,
			Message: key.DateID,
			Data:    patch,
		})
	}

	logger.Info().Str("schedule", key.String()).Msg("Schedule saved")
	return c.JSON(http.StatusOK, map[string]string{
		"title":   "Schedule Saved!",
		"message": "Your schedule for the day has been saved.",
		"id":      key.DateID,
	})
}

// getScheduleHandler loads the caller's schedule for one day.
func (s *Server) getScheduleHandler(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := utility.GetUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, auth.Unauthenticated("Please sign in to continue."))
	}

	day, err := s.parseDate(c.Param("date"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Date must be in YYYY-MM-DD format"})
	}

	sched, err := s.schedules.Load(ctx, schedule.KeyFor(userID, day))
	if err != nil {
		if errors.Is(err, schedule.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "No schedule for this day"})
		}
		zerolog.Ctx(ctx).Error().Err(err).Msg("Failed to load schedule")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to load schedule"})
	}
	return c.JSON(http.StatusOK, sched)
}

// listSchedulesHandler returns the caller's schedules between ?from= and ?to=
// inclusive.
func (s *Server) listSchedulesHandler(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := utility.GetUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, auth.Unauthenticated("Please sign in to continue."))
	}

	from, err := s.parseDate(c.QueryParam("from"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "from must be in YYYY-MM-DD format"})
	}
	to, err := s.parseDate(c.QueryParam("to"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "to must be in YYYY-MM-DD format"})
	}
	if to.Before(from) {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "to must not be before from"})
	}

	// Include the whole last day
	end := to.AddDate(0, 0, 1).Add(-time.Nanosecond)

	schedules, err := s.schedules.ListRange(ctx, userID, from, end)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("Failed to list schedules")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to load schedules"})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"schedules": schedules})
}

func (s *Server) parseDate(v string) (time.Time, error) {
	return time.ParseInLocation(schedule.DateLayout, strings.TrimSpace(v), s.loc)
}
