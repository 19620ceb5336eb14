package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-water-tracker/internal/application"
	"github.com/oksasatya/go-water-tracker/internal/domain/apperror"
	"github.com/oksasatya/go-water-tracker/pkg/response"
)

type WaterHandler struct {
	Records *application.DailyRecordService
	Reports *application.MonthlyReportService
	Logger  *logrus.Logger
	Now     func() time.Time
}

func NewWaterHandler(records *application.DailyRecordService, reports *application.MonthlyReportService, logger *logrus.Logger) *WaterHandler {
	return &WaterHandler{Records: records, Reports: reports, Logger: logger, Now: time.Now}
}

// intakeRequest is the body of POST /water and PUT /water/:intakeId. Date
// is the moment of drinking, RFC 3339 or YYYY-MM-DD, and selects the day
// through the offset.
type intakeRequest struct {
	Date           string `json:"date" binding:"required"`
	Ml             int    `json:"ml" binding:"required,ml"`
	TimeZoneOffset int    `json:"time_zone_offset" binding:"tzoffset"`
}

// resolve returns the day key and the consumption time of the request.
func (r intakeRequest) resolve() (day, consumedAt time.Time, err error) {
	consumedAt, err = parseDate(r.Date)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	day, err = application.NormalizeEntryDate(consumedAt, r.TimeZoneOffset)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return day, consumedAt, nil
}

type dayQuery struct {
	Date           string `form:"date"`
	TimeZoneOffset int    `form:"time_zone_offset" binding:"tzoffset"`
}

type goalRequest struct {
	DailyWaterGoal int `json:"daily_water_goal" binding:"required,goal"`
}

// parseDate accepts RFC 3339 timestamps and plain YYYY-MM-DD days.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	return time.Time{}, apperror.Validation("invalid date, expected RFC 3339 or YYYY-MM-DD")
}

// resolveDay turns ?date=&time_zone_offset= into a day key. A missing date
// means the current day of the client.
func (h *WaterHandler) resolveDay(c *gin.Context) (time.Time, bool) {
	var q dayQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindError(c, err)
		return time.Time{}, false
	}
	raw := h.Now()
	if q.Date != "" {
		t, err := parseDate(q.Date)
		if err != nil {
			writeError(c, h.Logger, err)
			return time.Time{}, false
		}
		raw = t
	}
	day, err := application.NormalizeEntryDate(raw, q.TimeZoneOffset)
	if err != nil {
		writeError(c, h.Logger, err)
		return time.Time{}, false
	}
	return day, true
}

// Add POST /api/water
func (h *WaterHandler) Add(c *gin.Context) {
	var req intakeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	day, consumedAt, err := req.resolve()
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	rec, err := h.Records.AddIntake(c.Request.Context(), c.GetString("userID"), day, req.Ml, consumedAt, 0)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusCreated, rec, "water intake added", nil)
}

// Update PUT /api/water/:intakeId
func (h *WaterHandler) Update(c *gin.Context) {
	var req intakeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	day, consumedAt, err := req.resolve()
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	rec, err := h.Records.UpdateIntake(c.Request.Context(), c.GetString("userID"), day, c.Param("intakeId"), req.Ml, consumedAt)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, rec, "water intake updated", nil)
}

// Remove DELETE /api/water/:intakeId?date=&time_zone_offset=
func (h *WaterHandler) Remove(c *gin.Context) {
	day, ok := h.resolveDay(c)
	if !ok {
		return
	}
	rec, err := h.Records.RemoveIntake(c.Request.Context(), c.GetString("userID"), day, c.Param("intakeId"))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, rec, "water intake removed", nil)
}

// Today GET /api/today?date=&time_zone_offset=
func (h *WaterHandler) Today(c *gin.Context) {
	day, ok := h.resolveDay(c)
	if !ok {
		return
	}
	rec, err := h.Records.GetOrCreateDailyRecord(c.Request.Context(), c.GetString("userID"), day, 0)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, rec, "daily record", nil)
}

// Month GET /api/month?startDate=&endDate=
func (h *WaterHandler) Month(c *gin.Context) {
	startRaw, endRaw := c.Query("startDate"), c.Query("endDate")
	if startRaw == "" || endRaw == "" {
		response.Error[any](c, http.StatusBadRequest, "startDate and endDate are required", nil)
		return
	}
	start, err := parseDate(startRaw)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	end, err := parseDate(endRaw)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	out, err := h.Reports.GetRange(c.Request.Context(), c.GetString("userID"), start, end)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, out, "monthly summary", map[string]any{"count": len(out)})
}

// WaterRate PATCH /api/waterrate?date=&time_zone_offset=
func (h *WaterHandler) WaterRate(c *gin.Context) {
	var req goalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	day, ok := h.resolveDay(c)
	if !ok {
		return
	}
	u, rec, err := h.Records.ChangeGoal(c.Request.Context(), c.GetString("userID"), day, req.DailyWaterGoal)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"daily_water_goal": u.DailyWaterGoal,
		"record":           rec,
	}, "daily water goal updated", nil)
}
