package server

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"Daybook_V0.1/internal/calendar"
	"Daybook_V0.1/internal/schedule"
	"Daybook_V0.1/internal/utility"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// MonthOverview is everything the month view needs in one payload.
type MonthOverview struct {
	Year      int                      `json:"year"`
	Month     time.Month               `json:"month"`
	MonthName string                   `json:"month_name"`
	Season    calendar.Season          `json:"season"`
	Events    []calendar.CalendarEvent `json:"events"`
	Schedules []schedule.DailySchedule `json:"schedules"`
	SignedIn  bool                     `json:"signed_in"`
}

func parseYearMonth(yearStr, monthStr string) (int, time.Month, bool) {
	year, err := strconv.Atoi(yearStr)
	if err != nil || year < 1 || year > 9999 {
		return 0, 0, false
	}
	month, err := strconv.Atoi(monthStr)
	if err != nil || month < 1 || month > 12 {
		return 0, 0, false
	}
	return year, time.Month(month), true
}

// calendarEventsHandler lists the holidays and events of ?year=&month=.
func (s *Server) calendarEventsHandler(c echo.Context) error {
	year, month, ok := parseYearMonth(c.QueryParam("year"), c.QueryParam("month"))
	if !ok {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "year and month (1-12) are required"})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"events": s.calendar.ForMonth(year, month),
	})
}

// monthOverviewHandler assembles the month view. Signed-in callers also get
// their schedules for the month.
func (s *Server) monthOverviewHandler(c echo.Context) error {
	ctx := c.Request().Context()

	year, month, ok := parseYearMonth(c.Param("year"), c.Param("month"))
	if !ok {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid year or month"})
	}

	userID, err := utility.GetUserIDFromContext(c)
	signedIn := err == nil

	res := MonthOverview{
		Year:      year,
		Month:     month,
		MonthName: month.String(),
		Season:    calendar.SeasonOf(month),
		Events:    []calendar.CalendarEvent{},
		Schedules: []schedule.DailySchedule{},
		SignedIn:  signedIn,
	}

	g, grpCtx := errgroup.WithContext(ctx)
	var mu sync.Mutex

	g.Go(func() error {
		events := s.calendar.ForMonth(year, month)
		mu.Lock()
		res.Events = events
		mu.Unlock()
		return nil
	})

	if signedIn {
		g.Go(func() error {
			from, to := schedule.MonthRange(year, month, s.loc)
			schedules, err := s.schedules.ListRange(grpCtx, userID, from, to)
			if err != nil {
				return err
			}
			mu.Lock()
			res.Schedules = schedules
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Int("year", year).Int("month", int(month)).Msg("Failed to build month overview")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to load calendar"})
	}

	return c.JSON(http.StatusOK, res)
}
