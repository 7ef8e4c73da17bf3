package delivery

import (
	"context"
	"time"

	"tupilates/domain"

	"github.com/stretchr/testify/mock"
)

type mockGenerator struct{ mock.Mock }

func (m *mockGenerator) GenerateInstances(ctx context.Context, start, end time.Time) (*domain.GenerationReport, error) {
	args := m.Called(ctx, start, end)
	report, _ := args.Get(0).(*domain.GenerationReport)
	return report, args.Error(1)
}

func (m *mockGenerator) GenerateWindow(ctx context.Context) (*domain.GenerationReport, error) {
	args := m.Called(ctx)
	report, _ := args.Get(0).(*domain.GenerationReport)
	return report, args.Error(1)
}

type mockCapacity struct{ mock.Mock }

func (m *mockCapacity) SlotAvailability(ctx context.Context, weekday time.Weekday, startTime string) (*domain.Availability, error) {
	args := m.Called(ctx, weekday, startTime)
	a, _ := args.Get(0).(*domain.Availability)
	return a, args.Error(1)
}

func (m *mockCapacity) TodayAvailability(ctx context.Context, startTime string) (*domain.Availability, error) {
	args := m.Called(ctx, startTime)
	a, _ := args.Get(0).(*domain.Availability)
	return a, args.Error(1)
}

func (m *mockCapacity) ListAvailableSlots(ctx context.Context, query domain.SlotQuery) ([]domain.Availability, error) {
	args := m.Called(ctx, query)
	list, _ := args.Get(0).([]domain.Availability)
	return list, args.Error(1)
}

type mockReports struct{ mock.Mock }

func (m *mockReports) WeeklyCalendar(ctx context.Context, anyDay time.Time) (*domain.WeeklyCalendar, error) {
	args := m.Called(ctx, anyDay)
	cal, _ := args.Get(0).(*domain.WeeklyCalendar)
	return cal, args.Error(1)
}

func (m *mockReports) ClassRoster(ctx context.Context, instanceID uint) (*domain.ClassRoster, error) {
	args := m.Called(ctx, instanceID)
	r, _ := args.Get(0).(*domain.ClassRoster)
	return r, args.Error(1)
}

func (m *mockReports) Dashboard(ctx context.Context) (*domain.DashboardStats, error) {
	args := m.Called(ctx)
	s, _ := args.Get(0).(*domain.DashboardStats)
	return s, args.Error(1)
}

func (m *mockReports) ExpirePackages(ctx context.Context) (*domain.MaintenanceReport, error) {
	args := m.Called(ctx)
	r, _ := args.Get(0).(*domain.MaintenanceReport)
	return r, args.Error(1)
}

type mockAllocation struct{ mock.Mock }

func (m *mockAllocation) RegisterRegular(ctx context.Context, req domain.RegularRegistration) (*domain.RegularResult, error) {
	args := m.Called(ctx, req)
	r, _ := args.Get(0).(*domain.RegularResult)
	return r, args.Error(1)
}

func (m *mockAllocation) RegisterOccasional(ctx context.Context, req domain.OccasionalRegistration) (*domain.OccasionalResult, error) {
	args := m.Called(ctx, req)
	r, _ := args.Get(0).(*domain.OccasionalResult)
	return r, args.Error(1)
}

type mockBooking struct{ mock.Mock }

func (m *mockBooking) Reschedule(ctx context.Context, req domain.RescheduleRequest) (*domain.RescheduleResult, error) {
	args := m.Called(ctx, req)
	r, _ := args.Get(0).(*domain.RescheduleResult)
	return r, args.Error(1)
}

func (m *mockBooking) UpcomingBookings(ctx context.Context, studentID uint, from *time.Time) (*domain.UpcomingBookings, error) {
	args := m.Called(ctx, studentID, from)
	r, _ := args.Get(0).(*domain.UpcomingBookings)
	return r, args.Error(1)
}

func (m *mockBooking) TakeAttendance(ctx context.Context, req domain.AttendanceRequest) (*domain.AttendanceResult, error) {
	args := m.Called(ctx, req)
	r, _ := args.Get(0).(*domain.AttendanceResult)
	return r, args.Error(1)
}

type mockStudents struct{ mock.Mock }

func (m *mockStudents) ResolveStudent(ctx context.Context, lookup domain.StudentLookup) (*domain.ResolvedStudent, error) {
	args := m.Called(ctx, lookup)
	r, _ := args.Get(0).(*domain.ResolvedStudent)
	return r, args.Error(1)
}

func (m *mockStudents) UpdateTaxID(ctx context.Context, lookup domain.StudentLookup, taxID string) (string, error) {
	args := m.Called(ctx, lookup, taxID)
	return args.String(0), args.Error(1)
}

func (m *mockStudents) StudentDetail(ctx context.Context, studentID uint) (*domain.StudentDetail, error) {
	args := m.Called(ctx, studentID)
	r, _ := args.Get(0).(*domain.StudentDetail)
	return r, args.Error(1)
}

func (m *mockStudents) RecordPayment(ctx context.Context, assignmentID uint, req domain.PaymentRequest) (*domain.PaymentResult, error) {
	args := m.Called(ctx, assignmentID, req)
	r, _ := args.Get(0).(*domain.PaymentResult)
	return r, args.Error(1)
}

type mockChat struct{ mock.Mock }

func (m *mockChat) Step(ctx context.Context, session string, input map[string]string) (*domain.ConversationReply, error) {
	args := m.Called(ctx, session, input)
	r, _ := args.Get(0).(*domain.ConversationReply)
	return r, args.Error(1)
}
