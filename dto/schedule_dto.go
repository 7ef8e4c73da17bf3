package dto

import (
	"strings"
	"time"

	"tupilates/domain"
	"tupilates/utils"
)

type GenerateInstancesRequest struct {
	StartDate string `json:"start_date" binding:"required,dateformat"`
	EndDate   string `json:"end_date" binding:"required,dateformat"`
}

type StudentFields struct {
	Name    string  `json:"name" binding:"required,max=100"`
	Surname string  `json:"surname" binding:"required,max=100"`
	Phone   string  `json:"phone" binding:"required,max=20"`
	Channel *string `json:"channel" binding:"omitempty,max=50"`
	Notes   *string `json:"notes" binding:"omitempty,max=500"`
}

type RegisterRegularRequest struct {
	StudentFields
	PackageSize int      `json:"package_size" binding:"required,gt=0"`
	Slots       []string `json:"slots" binding:"required,min=1,dive,slotformat"`
	StartDate   *string  `json:"start_date" binding:"omitempty,dateformat"`
	TaxID       *string  `json:"tax_id" binding:"omitempty,max=20"`
}

type RegisterOccasionalRequest struct {
	StudentFields
	Weekday *string `json:"weekday" binding:"omitempty,weekday"`
	Time    string  `json:"time" binding:"required,timeformat"`
	Date    *string `json:"date" binding:"omitempty,dateformat"`
}

type SlotAvailabilityQuery struct {
	Weekday string `form:"weekday" binding:"required,weekday"`
	Time    string `form:"time" binding:"required,timeformat"`
}

type TodayAvailabilityQuery struct {
	Time string `form:"time" binding:"required,timeformat"`
}

type AvailableSlotsQuery struct {
	Weekday string `form:"weekday" binding:"omitempty,weekday"`
	Op      string `form:"op" binding:"omitempty,oneof=gte lt"`
	Time    string `form:"time" binding:"required,timeformat"`
}

type RescheduleRequest struct {
	StudentID        uint   `json:"student_id" binding:"required,gt=0"`
	OriginInstanceID uint   `json:"origin_instance_id" binding:"required,gt=0"`
	Weekday          string `json:"weekday" binding:"required,weekday"`
	Time             string `json:"time" binding:"required,timeformat"`
	Date             string `json:"date" binding:"required,dateformat"`
}

type NameInput struct {
	Name    string `json:"name" binding:"required"`
	Surname string `json:"surname"`
}

type AttendanceRequest struct {
	Weekday  string      `json:"weekday" binding:"required,weekday"`
	Time     string      `json:"time" binding:"required,timeformat"`
	Date     *string     `json:"date" binding:"omitempty,dateformat"`
	Attended []NameInput `json:"attended" binding:"dive"`
	Absent   []NameInput `json:"absent" binding:"dive"`
}

type StudentLookupQuery struct {
	Phone   string `form:"phone" binding:"required"`
	Name    string `form:"name"`
	Surname string `form:"surname"`
}

type UpdateTaxIDRequest struct {
	Phone   string `json:"phone" binding:"required"`
	Name    string `json:"name"`
	Surname string `json:"surname"`
	TaxID   string `json:"tax_id" binding:"required,max=20"`
}

type PaymentRequest struct {
	Amount float64 `json:"amount" binding:"required,gt=0"`
	Method string  `json:"method" binding:"required,oneof=EF TF TD OT"`
	PaidAt *string `json:"paid_at" binding:"omitempty,dateformat"`
}

// parseOptionalDate assumes the value already passed the dateformat binding.
func parseOptionalDate(s *string) *time.Time {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	t, err := utils.ParseDate(*s)
	if err != nil {
		return nil
	}
	return &t
}

func mustWeekday(s string) time.Weekday {
	wd, _ := utils.ParseWeekday(s)
	return wd
}

func (f StudentFields) toDomain() domain.StudentData {
	return domain.StudentData{
		Name:    f.Name,
		Surname: f.Surname,
		Phone:   f.Phone,
		Channel: f.Channel,
		Notes:   f.Notes,
	}
}

func MapRegularRegistration(req *RegisterRegularRequest) domain.RegularRegistration {
	data := req.StudentFields.toDomain()
	data.TaxID = req.TaxID
	return domain.RegularRegistration{
		StudentData: data,
		PackageSize: req.PackageSize,
		Slots:       req.Slots,
		StartDate:   parseOptionalDate(req.StartDate),
	}
}

func MapOccasionalRegistration(req *RegisterOccasionalRequest) domain.OccasionalRegistration {
	out := domain.OccasionalRegistration{
		StudentData: req.StudentFields.toDomain(),
		Time:        req.Time,
		Date:        parseOptionalDate(req.Date),
	}
	if req.Weekday != nil && *req.Weekday != "" {
		wd := mustWeekday(*req.Weekday)
		out.Weekday = &wd
	}
	return out
}

func MapSlotQuery(q *AvailableSlotsQuery) domain.SlotQuery {
	out := domain.SlotQuery{Operator: q.Op, Time: q.Time}
	if out.Operator == "" {
		out.Operator = "gte"
	}
	if q.Weekday != "" {
		wd := mustWeekday(q.Weekday)
		out.Weekday = &wd
	}
	return out
}

func MapReschedule(req *RescheduleRequest) domain.RescheduleRequest {
	date, _ := utils.ParseDate(req.Date)
	return domain.RescheduleRequest{
		StudentID:        req.StudentID,
		OriginInstanceID: req.OriginInstanceID,
		Weekday:          mustWeekday(req.Weekday),
		Time:             req.Time,
		Date:             date,
	}
}

func mapNames(in []NameInput) []domain.PersonName {
	out := make([]domain.PersonName, 0, len(in))
	for _, n := range in {
		out = append(out, domain.PersonName{Name: n.Name, Surname: n.Surname})
	}
	return out
}

func MapAttendance(req *AttendanceRequest) domain.AttendanceRequest {
	return domain.AttendanceRequest{
		Weekday:  mustWeekday(req.Weekday),
		Time:     req.Time,
		Date:     parseOptionalDate(req.Date),
		Attended: mapNames(req.Attended),
		Absent:   mapNames(req.Absent),
	}
}

func MapLookup(q *StudentLookupQuery) domain.StudentLookup {
	return domain.StudentLookup{Phone: q.Phone, Name: q.Name, Surname: q.Surname}
}

func MapPayment(req *PaymentRequest) domain.PaymentRequest {
	return domain.PaymentRequest{Amount: req.Amount, Method: req.Method, PaidAt: parseOptionalDate(req.PaidAt)}
}
