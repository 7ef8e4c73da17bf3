package domain

import (
	"context"
	"time"
)

const (
	RemainderDrop    = "drop"
	RemainderRoundUp = "round_up"
	RemainderError   = "error"
)

// StudioSettings carries the deployment-wide knobs of a single-instructor studio.
type StudioSettings struct {
	Capacity             int
	InstructorID         uint
	Location             *time.Location
	RemainderPolicy      string
	FuzzyThreshold       float64
	GenerationWindowDays int
	Clock                func() time.Time
}

func (s StudioSettings) Now() time.Time {
	loc := s.Location
	if loc == nil {
		loc = time.UTC
	}
	if s.Clock != nil {
		return s.Clock().In(loc)
	}
	return time.Now().In(loc)
}

// Today is the current civil date in the studio location, at midnight UTC.
func (s StudioSettings) Today() time.Time {
	now := s.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

type ScheduleRepository interface {
	// Transaction runs fn against a repository bound to one transaction.
	// Reads of slots and instances through that repository lock the rows.
	Transaction(ctx context.Context, fn func(repo ScheduleRepository) error) error

	GetInstructor(ctx context.Context, id uint) (*Instructor, error)
	CreateInstructor(ctx context.Context, instructor *Instructor) error

	ListSlots(ctx context.Context) ([]Slot, error)
	ListSlotsByWeekday(ctx context.Context, weekday time.Weekday) ([]Slot, error)
	FindSlot(ctx context.Context, weekday time.Weekday, startTime string) (*Slot, error)
	CreateSlotIfAbsent(ctx context.Context, slot *Slot) (bool, error)
	CountSlotActiveAssignments(ctx context.Context, slotID uint) (int, error)
	IncrementSlotOccupancy(ctx context.Context, slotID uint, capacity int) error
	RebuildSlotOccupancy(ctx context.Context, capacity int) error

	CreateInstanceIfAbsent(ctx context.Context, instance *ClassInstance) (bool, error)
	FindInstance(ctx context.Context, slotID uint, date time.Time) (*ClassInstance, error)
	GetInstance(ctx context.Context, id uint) (*ClassInstance, error)
	ListInstancesBetween(ctx context.Context, from, to time.Time) ([]ClassInstance, error)
	CountInstanceOccupancy(ctx context.Context, instanceID uint) (int, error)

	FindPackageByClassCount(ctx context.Context, classCount int) (*Package, error)
	CreatePackageIfAbsent(ctx context.Context, pkg *Package) (bool, error)

	FindPersonsByPhone(ctx context.Context, phone string) ([]Person, error)
	SavePerson(ctx context.Context, person *Person) error
	FindStudentByPerson(ctx context.Context, personID uint) (*Student, error)
	GetStudent(ctx context.Context, id uint) (*Student, error)
	SaveStudent(ctx context.Context, student *Student) error
	CountStudentsByStatus(ctx context.Context) (map[string]int, error)

	SaveAssignment(ctx context.Context, assignment *PackageAssignment) error
	GetAssignment(ctx context.Context, id uint) (*PackageAssignment, error)
	ListAssignmentsByStudent(ctx context.Context, studentID uint) ([]PackageAssignment, error)
	ListActiveAssignments(ctx context.Context) ([]PackageAssignment, error)
	CreateSlotLink(ctx context.Context, link *PackageSlotLink) error

	SaveRegularAttendance(ctx context.Context, row *RegularAttendance) error
	// An empty statuses list matches any status.
	FindRegular(ctx context.Context, studentID, instanceID uint, statuses []string) (*RegularAttendance, error)
	ListRegularByInstance(ctx context.Context, instanceID uint, statuses []string) ([]RegularAttendance, error)
	ListRegularByStudent(ctx context.Context, studentID uint, from *time.Time, statuses []string) ([]RegularAttendance, error)
	CountRegularByAssignment(ctx context.Context, assignmentID uint, statuses []string) (int, error)

	SaveOccasionalAttendance(ctx context.Context, row *OccasionalAttendance) error
	FindOccasional(ctx context.Context, studentID, instanceID uint) (*OccasionalAttendance, error)
	ListOccasionalByInstance(ctx context.Context, instanceID uint, statuses []string) ([]OccasionalAttendance, error)
	ListOccasionalByStudent(ctx context.Context, studentID uint, from *time.Time, statuses []string) ([]OccasionalAttendance, error)

	CreatePayment(ctx context.Context, payment *Payment) error
	SumPayments(ctx context.Context, assignmentID uint) (float64, error)

	CreateGenerationRun(ctx context.Context, run *GenerationRun) error
}

// ---- Instance generation ----

type DayReport struct {
	Date     string `json:"date"`
	Weekday  string `json:"weekday"`
	Created  int    `json:"created"`
	Existing int    `json:"existing"`
	Message  string `json:"message"`
	Error    string `json:"error,omitempty"`
}

type GenerationReport struct {
	Created       int         `json:"created"`
	Existing      int         `json:"existing"`
	DaysProcessed int         `json:"days_processed"`
	DaysWithClass int         `json:"days_with_classes"`
	Days          []DayReport `json:"days"`
	Message       string      `json:"message"`
}

type GeneratorUseCase interface {
	GenerateInstances(ctx context.Context, start, end time.Time) (*GenerationReport, error)
	// GenerateWindow covers today plus the configured rolling window.
	GenerateWindow(ctx context.Context) (*GenerationReport, error)
}

// ---- Capacity ----

type Availability struct {
	Weekday   string `json:"weekday"`
	Time      string `json:"time"`
	Date      string `json:"date,omitempty"`
	Occupied  int    `json:"occupied"`
	Available int    `json:"available"`
}

type SlotQuery struct {
	Weekday  *time.Weekday
	Operator string // gte | lt
	Time     string
}

type CapacityUseCase interface {
	SlotAvailability(ctx context.Context, weekday time.Weekday, startTime string) (*Availability, error)
	TodayAvailability(ctx context.Context, startTime string) (*Availability, error)
	ListAvailableSlots(ctx context.Context, query SlotQuery) ([]Availability, error)
}

// ---- Allocation ----

type StudentData struct {
	Name    string
	Surname string
	Phone   string
	Channel *string
	TaxID   *string
	Notes   *string
}

type RegularRegistration struct {
	StudentData
	PackageSize int
	Slots       []string // "Weekday HH:MM"
	StartDate   *time.Time
}

type RegularResult struct {
	Message      string   `json:"message"`
	StudentID    uint     `json:"student_id"`
	AssignmentID uint     `json:"assignment_id"`
	Dates        []string `json:"dates"`
}

type OccasionalRegistration struct {
	StudentData
	Weekday *time.Weekday
	Time    string
	Date    *time.Time
}

type OccasionalResult struct {
	Message   string `json:"message"`
	StudentID uint   `json:"student_id"`
	Date      string `json:"date"`
	SlotLabel string `json:"slot"`
}

type AllocationUseCase interface {
	RegisterRegular(ctx context.Context, req RegularRegistration) (*RegularResult, error)
	RegisterOccasional(ctx context.Context, req OccasionalRegistration) (*OccasionalResult, error)
}

// ---- Attendance & rescheduling ----

type RescheduleRequest struct {
	StudentID        uint
	OriginInstanceID uint
	Weekday          time.Weekday
	Time             string
	Date             time.Time
}

type ClassRef struct {
	InstanceID uint   `json:"instance_id"`
	Date       string `json:"date"`
	Time       string `json:"time"`
}

type RescheduleResult struct {
	Message     string   `json:"message"`
	Category    string   `json:"category"`
	Origin      ClassRef `json:"origin"`
	Destination ClassRef `json:"destination"`
}

type Booking struct {
	InstanceID uint   `json:"instance_id"`
	Date       string `json:"date"`
	Weekday    string `json:"weekday"`
	Time       string `json:"time"`
	Category   string `json:"category"`
	Status     string `json:"status"`
}

type UpcomingBookings struct {
	StudentID uint      `json:"student_id"`
	Inactive  bool      `json:"inactive"`
	Message   string    `json:"message,omitempty"`
	Bookings  []Booking `json:"bookings"`
}

type PersonName struct {
	Name    string `json:"name"`
	Surname string `json:"surname"`
}

type AttendanceRequest struct {
	Weekday  time.Weekday
	Time     string
	Date     *time.Time
	Attended []PersonName
	Absent   []PersonName
}

type AttendanceResult struct {
	Date      string   `json:"date"`
	Matched   []string `json:"matched"`
	Unmatched []string `json:"unmatched"`
	Skipped   []string `json:"skipped"`
	Updated   int      `json:"updated"`
}

type BookingUseCase interface {
	Reschedule(ctx context.Context, req RescheduleRequest) (*RescheduleResult, error)
	UpcomingBookings(ctx context.Context, studentID uint, from *time.Time) (*UpcomingBookings, error)
	TakeAttendance(ctx context.Context, req AttendanceRequest) (*AttendanceResult, error)
}

// ---- Students ----

type StudentLookup struct {
	Phone   string
	Name    string
	Surname string
}

type ResolvedStudent struct {
	StudentID uint   `json:"student_id"`
	Status    string `json:"status"`
	FullName  string `json:"full_name"`
}

type AssignmentSummary struct {
	AssignmentID  uint    `json:"assignment_id"`
	ClassCount    int     `json:"class_count"`
	Used          int     `json:"used"`
	UsagePercent  float64 `json:"usage_percent"`
	Status        string  `json:"status"`
	PaymentStatus string  `json:"payment_status"`
	StartDate     string  `json:"start_date"`
}

type StudentDetail struct {
	Student     Student             `json:"student"`
	Assignments []AssignmentSummary `json:"assignments"`
	History     []Booking           `json:"history"`
}

type PaymentRequest struct {
	Amount float64
	Method string
	PaidAt *time.Time
}

type PaymentResult struct {
	PaymentID     uint    `json:"payment_id"`
	TotalPaid     float64 `json:"total_paid"`
	PaymentStatus string  `json:"payment_status"`
}

type StudentUseCase interface {
	ResolveStudent(ctx context.Context, lookup StudentLookup) (*ResolvedStudent, error)
	UpdateTaxID(ctx context.Context, lookup StudentLookup, taxID string) (string, error)
	StudentDetail(ctx context.Context, studentID uint) (*StudentDetail, error)
	RecordPayment(ctx context.Context, assignmentID uint, req PaymentRequest) (*PaymentResult, error)
}

// ---- Reports & maintenance ----

type CalendarCell struct {
	InstanceID uint   `json:"instance_id"`
	Date       string `json:"date"`
	Weekday    string `json:"weekday"`
	Time       string `json:"time"`
	Occupied   int    `json:"occupied"`
	Available  int    `json:"available"`
	Color      string `json:"color"` // lleno | parcial | disponible
}

type WeeklyCalendar struct {
	WeekStart string         `json:"week_start"`
	WeekEnd   string         `json:"week_end"`
	Cells     []CalendarCell `json:"cells"`
}

type RosterEntry struct {
	StudentID uint   `json:"student_id"`
	FullName  string `json:"full_name"`
	Phone     string `json:"phone"`
	Category  string `json:"category"`
	Status    string `json:"status"`
}

type ClassRoster struct {
	InstanceID uint          `json:"instance_id"`
	Date       string        `json:"date"`
	Slot       string        `json:"slot"`
	Occupied   int           `json:"occupied"`
	Available  int           `json:"available"`
	Students   []RosterEntry `json:"students"`
}

type DashboardStats struct {
	Students          map[string]int `json:"students"`
	ActivePackages    int            `json:"active_packages"`
	PendingPayments   int            `json:"pending_payments"`
	ClassesToday      int            `json:"classes_today"`
	BookingsToday     int            `json:"bookings_today"`
	OccupancyTodayPct float64        `json:"occupancy_today_pct"`
}

type MaintenanceReport struct {
	Expired []uint `json:"expired"`
	Message string `json:"message"`
}

type ReportUseCase interface {
	WeeklyCalendar(ctx context.Context, anyDay time.Time) (*WeeklyCalendar, error)
	ClassRoster(ctx context.Context, instanceID uint) (*ClassRoster, error)
	Dashboard(ctx context.Context) (*DashboardStats, error)
	ExpirePackages(ctx context.Context) (*MaintenanceReport, error)
}
