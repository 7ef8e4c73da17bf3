package delivery

import (
	"net/http"
	"time"

	"tupilates/domain"
	"tupilates/dto"
	"tupilates/utils"

	"github.com/gin-gonic/gin"
)

type StudentHandler struct {
	allocationUC domain.AllocationUseCase
	bookingUC    domain.BookingUseCase
	studUC       domain.StudentUseCase
}

func NewStudentHandler(r *gin.Engine, allocationUC domain.AllocationUseCase, bookingUC domain.BookingUseCase, studUC domain.StudentUseCase) {
	handler := &StudentHandler{allocationUC: allocationUC, bookingUC: bookingUC, studUC: studUC}

	students := r.Group("/students")
	{
		students.POST("/regular", handler.RegisterRegular)
		students.POST("/occasional", handler.RegisterOccasional)
		students.GET("/resolve", handler.ResolveStudent)
		students.PUT("/tax-id", handler.UpdateTaxID)
		students.GET("/:id", handler.StudentDetail)
		students.GET("/:id/bookings", handler.UpcomingBookings)
	}

	r.POST("/bookings/reschedule", handler.Reschedule)
	r.POST("/attendance", handler.TakeAttendance)
	r.POST("/assignments/:id/payments", handler.RecordPayment)
}

func (h *StudentHandler) RegisterRegular(c *gin.Context) {
	name := utils.GetAPIHitter(c)

	var req dto.RegisterRegularRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, name, "RegisterRegular", err, "Failed to register student")
		return
	}

	result, err := h.allocationUC.RegisterRegular(c.Request.Context(), dto.MapRegularRegistration(&req))
	if err != nil {
		respondError(c, name, "RegisterRegular", err, "Failed to register student")
		return
	}
	respondOK(c, name, "RegisterRegular", http.StatusCreated, result)
}

func (h *StudentHandler) RegisterOccasional(c *gin.Context) {
	name := utils.GetAPIHitter(c)

	var req dto.RegisterOccasionalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, name, "RegisterOccasional", err, "Failed to book class")
		return
	}

	result, err := h.allocationUC.RegisterOccasional(c.Request.Context(), dto.MapOccasionalRegistration(&req))
	if err != nil {
		respondError(c, name, "RegisterOccasional", err, "Failed to book class")
		return
	}
	respondOK(c, name, "RegisterOccasional", http.StatusCreated, result)
}

func (h *StudentHandler) ResolveStudent(c *gin.Context) {
	name := utils.GetAPIHitter(c)

	var q dto.StudentLookupQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondBindError(c, name, "ResolveStudent", err, "Failed to find student")
		return
	}

	student, err := h.studUC.ResolveStudent(c.Request.Context(), dto.MapLookup(&q))
	if err != nil {
		respondError(c, name, "ResolveStudent", err, "Failed to find student")
		return
	}
	respondOK(c, name, "ResolveStudent", http.StatusOK, student)
}

func (h *StudentHandler) UpdateTaxID(c *gin.Context) {
	name := utils.GetAPIHitter(c)

	var req dto.UpdateTaxIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, name, "UpdateTaxID", err, "Failed to update tax ID")
		return
	}

	lookup := domain.StudentLookup{Phone: req.Phone, Name: req.Name, Surname: req.Surname}
	message, err := h.studUC.UpdateTaxID(c.Request.Context(), lookup, req.TaxID)
	if err != nil {
		respondError(c, name, "UpdateTaxID", err, "Failed to update tax ID")
		return
	}

	utils.PrintLogInfo(&name, http.StatusOK, "UpdateTaxID", nil)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": message,
	})
}

func (h *StudentHandler) StudentDetail(c *gin.Context) {
	name := utils.GetAPIHitter(c)

	id, ok := parseIDParam(c, name, "StudentDetail", "id", "Failed to get student")
	if !ok {
		return
	}

	detail, err := h.studUC.StudentDetail(c.Request.Context(), id)
	if err != nil {
		respondError(c, name, "StudentDetail", err, "Failed to get student")
		return
	}
	respondOK(c, name, "StudentDetail", http.StatusOK, detail)
}

func (h *StudentHandler) UpcomingBookings(c *gin.Context) {
	name := utils.GetAPIHitter(c)

	id, ok := parseIDParam(c, name, "UpcomingBookings", "id", "Failed to get bookings")
	if !ok {
		return
	}

	var from *time.Time
	if raw := c.Query("from"); raw != "" {
		parsed, err := utils.ParseDate(raw)
		if err != nil {
			utils.PrintLogInfo(&name, http.StatusBadRequest, "UpcomingBookings", &err)
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error":   err.Error(),
				"message": "Failed to get bookings",
			})
			return
		}
		from = &parsed
	}

	bookings, err := h.bookingUC.UpcomingBookings(c.Request.Context(), id, from)
	if err != nil {
		respondError(c, name, "UpcomingBookings", err, "Failed to get bookings")
		return
	}
	respondOK(c, name, "UpcomingBookings", http.StatusOK, bookings)
}

func (h *StudentHandler) Reschedule(c *gin.Context) {
	name := utils.GetAPIHitter(c)

	var req dto.RescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, name, "Reschedule", err, "Failed to reschedule class")
		return
	}

	result, err := h.bookingUC.Reschedule(c.Request.Context(), dto.MapReschedule(&req))
	if err != nil {
		respondError(c, name, "Reschedule", err, "Failed to reschedule class")
		return
	}
	respondOK(c, name, "Reschedule", http.StatusOK, result)
}

func (h *StudentHandler) TakeAttendance(c *gin.Context) {
	name := utils.GetAPIHitter(c)

	var req dto.AttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, name, "TakeAttendance", err, "Failed to take attendance")
		return
	}

	result, err := h.bookingUC.TakeAttendance(c.Request.Context(), dto.MapAttendance(&req))
	if err != nil {
		respondError(c, name, "TakeAttendance", err, "Failed to take attendance")
		return
	}
	respondOK(c, name, "TakeAttendance", http.StatusOK, result)
}

func (h *StudentHandler) RecordPayment(c *gin.Context) {
	name := utils.GetAPIHitter(c)

	id, ok := parseIDParam(c, name, "RecordPayment", "id", "Failed to record payment")
	if !ok {
		return
	}

	var req dto.PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, name, "RecordPayment", err, "Failed to record payment")
		return
	}

	result, err := h.studUC.RecordPayment(c.Request.Context(), id, dto.MapPayment(&req))
	if err != nil {
		respondError(c, name, "RecordPayment", err, "Failed to record payment")
		return
	}
	respondOK(c, name, "RecordPayment", http.StatusCreated, result)
}
