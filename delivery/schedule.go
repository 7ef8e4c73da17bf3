package delivery

import (
	"net/http"
	"time"

	"tupilates/domain"
	"tupilates/dto"
	"tupilates/utils"

	"github.com/gin-gonic/gin"
)

type ScheduleHandler struct {
	genUC      domain.GeneratorUseCase
	capacityUC domain.CapacityUseCase
	reportUC   domain.ReportUseCase
}

func NewScheduleHandler(r *gin.Engine, genUC domain.GeneratorUseCase, capacityUC domain.CapacityUseCase, reportUC domain.ReportUseCase) {
	handler := &ScheduleHandler{genUC: genUC, capacityUC: capacityUC, reportUC: reportUC}

	r.POST("/instances/generate", handler.GenerateInstances)
	r.GET("/instances/today/availability", handler.TodayAvailability)
	r.GET("/instances/:id/students", handler.ClassRoster)

	r.GET("/slots/availability", handler.SlotAvailability)
	r.GET("/slots/available", handler.ListAvailableSlots)

	r.GET("/calendar", handler.WeeklyCalendar)
	r.GET("/dashboard", handler.Dashboard)
	r.POST("/maintenance/expire", handler.ExpirePackages)
}

func (h *ScheduleHandler) GenerateInstances(c *gin.Context) {
	name := utils.GetAPIHitter(c)

	var req dto.GenerateInstancesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, name, "GenerateInstances", err, "Failed to generate classes")
		return
	}
	start, _ := utils.ParseDate(req.StartDate)
	end, _ := utils.ParseDate(req.EndDate)

	report, err := h.genUC.GenerateInstances(c.Request.Context(), start, end)
	if err != nil {
		respondError(c, name, "GenerateInstances", err, "Failed to generate classes")
		return
	}
	respondOK(c, name, "GenerateInstances", http.StatusOK, report)
}

func (h *ScheduleHandler) SlotAvailability(c *gin.Context) {
	name := utils.GetAPIHitter(c)

	var q dto.SlotAvailabilityQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondBindError(c, name, "SlotAvailability", err, "Failed to check slot availability")
		return
	}
	weekday, _ := utils.ParseWeekday(q.Weekday)

	availability, err := h.capacityUC.SlotAvailability(c.Request.Context(), weekday, q.Time)
	if err != nil {
		respondError(c, name, "SlotAvailability", err, "Failed to check slot availability")
		return
	}
	respondOK(c, name, "SlotAvailability", http.StatusOK, availability)
}

func (h *ScheduleHandler) TodayAvailability(c *gin.Context) {
	name := utils.GetAPIHitter(c)

	var q dto.TodayAvailabilityQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondBindError(c, name, "TodayAvailability", err, "Failed to check today's class")
		return
	}

	availability, err := h.capacityUC.TodayAvailability(c.Request.Context(), q.Time)
	if err != nil {
		respondError(c, name, "TodayAvailability", err, "Failed to check today's class")
		return
	}
	respondOK(c, name, "TodayAvailability", http.StatusOK, availability)
}

func (h *ScheduleHandler) ListAvailableSlots(c *gin.Context) {
	name := utils.GetAPIHitter(c)

	var q dto.AvailableSlotsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondBindError(c, name, "ListAvailableSlots", err, "Failed to list available slots")
		return
	}

	slots, err := h.capacityUC.ListAvailableSlots(c.Request.Context(), dto.MapSlotQuery(&q))
	if err != nil {
		respondError(c, name, "ListAvailableSlots", err, "Failed to list available slots")
		return
	}
	respondOK(c, name, "ListAvailableSlots", http.StatusOK, slots)
}

func (h *ScheduleHandler) WeeklyCalendar(c *gin.Context) {
	name := utils.GetAPIHitter(c)

	var day time.Time
	if week := c.Query("week"); week != "" {
		parsed, err := utils.ParseDate(week)
		if err != nil {
			utils.PrintLogInfo(&name, http.StatusBadRequest, "WeeklyCalendar", &err)
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error":   err.Error(),
				"message": "Failed to build calendar",
			})
			return
		}
		day = parsed
	}

	calendar, err := h.reportUC.WeeklyCalendar(c.Request.Context(), day)
	if err != nil {
		respondError(c, name, "WeeklyCalendar", err, "Failed to build calendar")
		return
	}
	respondOK(c, name, "WeeklyCalendar", http.StatusOK, calendar)
}

func (h *ScheduleHandler) ClassRoster(c *gin.Context) {
	name := utils.GetAPIHitter(c)

	id, ok := parseIDParam(c, name, "ClassRoster", "id", "Failed to get class roster")
	if !ok {
		return
	}

	roster, err := h.reportUC.ClassRoster(c.Request.Context(), id)
	if err != nil {
		respondError(c, name, "ClassRoster", err, "Failed to get class roster")
		return
	}
	respondOK(c, name, "ClassRoster", http.StatusOK, roster)
}

func (h *ScheduleHandler) Dashboard(c *gin.Context) {
	name := utils.GetAPIHitter(c)

	stats, err := h.reportUC.Dashboard(c.Request.Context())
	if err != nil {
		respondError(c, name, "Dashboard", err, "Failed to get dashboard")
		return
	}
	respondOK(c, name, "Dashboard", http.StatusOK, stats)
}

func (h *ScheduleHandler) ExpirePackages(c *gin.Context) {
	name := utils.GetAPIHitter(c)

	report, err := h.reportUC.ExpirePackages(c.Request.Context())
	if err != nil {
		respondError(c, name, "ExpirePackages", err, "Failed to expire packages")
		return
	}
	respondOK(c, name, "ExpirePackages", http.StatusOK, report)
}
