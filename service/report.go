package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"tupilates/domain"
	"tupilates/utils"

	"github.com/rs/zerolog/log"
)

// Calendar colors.
const (
	ColorFull      = "lleno"
	ColorPartial   = "parcial"
	ColorAvailable = "disponible"

	partialThreshold = 2
)

type reportUseCase struct {
	repo     domain.ScheduleRepository
	settings domain.StudioSettings
}

func NewReportUseCase(repo domain.ScheduleRepository, settings domain.StudioSettings) domain.ReportUseCase {
	return &reportUseCase{repo: repo, settings: settings}
}

func (s *reportUseCase) color(occupied int) string {
	switch {
	case occupied >= s.settings.Capacity:
		return ColorFull
	case occupied >= partialThreshold:
		return ColorPartial
	default:
		return ColorAvailable
	}
}

func (s *reportUseCase) WeeklyCalendar(ctx context.Context, anyDay time.Time) (*domain.WeeklyCalendar, error) {
	if anyDay.IsZero() {
		anyDay = s.settings.Today()
	}
	start := utils.WeekStart(anyDay)
	end := start.AddDate(0, 0, 5) // Monday..Saturday

	instances, err := s.repo.ListInstancesBetween(ctx, start, end)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(instances, func(i, j int) bool {
		if !instances[i].Date.Equal(instances[j].Date) {
			return instances[i].Date.Before(instances[j].Date)
		}
		return instances[i].Slot.StartTime < instances[j].Slot.StartTime
	})

	cal := &domain.WeeklyCalendar{
		WeekStart: utils.FormatDate(start),
		WeekEnd:   utils.FormatDate(end),
		Cells:     []domain.CalendarCell{},
	}
	for _, inst := range instances {
		occupied, err := s.repo.CountInstanceOccupancy(ctx, inst.ID)
		if err != nil {
			return nil, err
		}
		cal.Cells = append(cal.Cells, domain.CalendarCell{
			InstanceID: inst.ID,
			Date:       utils.FormatDate(inst.Date),
			Weekday:    utils.GetDayName(inst.Date.Weekday()),
			Time:       inst.Slot.StartTime,
			Occupied:   occupied,
			Available:  available(s.settings, occupied),
			Color:      s.color(occupied),
		})
	}
	return cal, nil
}

func (s *reportUseCase) ClassRoster(ctx context.Context, instanceID uint) (*domain.ClassRoster, error) {
	inst, err := s.repo.GetInstance(ctx, instanceID)
	if isNotFound(err) {
		return nil, domain.Fail(domain.KindNotFound, "no existe la clase %d", instanceID)
	}
	if err != nil {
		return nil, err
	}

	regular, err := s.repo.ListRegularByInstance(ctx, inst.ID, domain.RegularRoster)
	if err != nil {
		return nil, err
	}
	occasional, err := s.repo.ListOccasionalByInstance(ctx, inst.ID, domain.OccasionalRoster)
	if err != nil {
		return nil, err
	}
	occupied, err := s.repo.CountInstanceOccupancy(ctx, inst.ID)
	if err != nil {
		return nil, err
	}

	roster := &domain.ClassRoster{
		InstanceID: inst.ID,
		Date:       utils.FormatDate(inst.Date),
		Slot:       utils.SlotLabel(inst.Slot.Weekday, inst.Slot.StartTime),
		Occupied:   occupied,
		Available:  available(s.settings, occupied),
		Students:   []domain.RosterEntry{},
	}
	for _, row := range regular {
		st := row.PackageAssignment.Student
		roster.Students = append(roster.Students, domain.RosterEntry{
			StudentID: st.ID,
			FullName:  utils.DisplayName(st.Person.Name, st.Person.Surname),
			Phone:     st.Person.Phone,
			Category:  domain.CategoryRegular,
			Status:    row.Status,
		})
	}
	for _, row := range occasional {
		st := row.Student
		roster.Students = append(roster.Students, domain.RosterEntry{
			StudentID: st.ID,
			FullName:  utils.DisplayName(st.Person.Name, st.Person.Surname),
			Phone:     st.Person.Phone,
			Category:  domain.CategoryOccasional,
			Status:    row.Status,
		})
	}
	return roster, nil
}

func (s *reportUseCase) Dashboard(ctx context.Context) (*domain.DashboardStats, error) {
	byStatus, err := s.repo.CountStudentsByStatus(ctx)
	if err != nil {
		return nil, err
	}
	active, err := s.repo.ListActiveAssignments(ctx)
	if err != nil {
		return nil, err
	}

	stats := &domain.DashboardStats{Students: byStatus, ActivePackages: len(active)}
	for _, a := range active {
		if a.PaymentStatus != domain.PaymentPaid {
			stats.PendingPayments++
		}
	}

	today := s.settings.Today()
	instances, err := s.repo.ListInstancesBetween(ctx, today, today)
	if err != nil {
		return nil, err
	}
	stats.ClassesToday = len(instances)
	for _, inst := range instances {
		occupied, err := s.repo.CountInstanceOccupancy(ctx, inst.ID)
		if err != nil {
			return nil, err
		}
		stats.BookingsToday += occupied
	}
	if places := stats.ClassesToday * s.settings.Capacity; places > 0 {
		stats.OccupancyTodayPct = math.Round(float64(stats.BookingsToday)/float64(places)*1000) / 10
	}
	return stats, nil
}

// ExpirePackages marks as expired every active package with no pending class
// left from today on, then rebuilds the slot occupancy projection.
func (s *reportUseCase) ExpirePackages(ctx context.Context) (*domain.MaintenanceReport, error) {
	today := s.settings.Today()
	report := &domain.MaintenanceReport{Expired: []uint{}}

	err := s.repo.Transaction(ctx, func(tx domain.ScheduleRepository) error {
		active, err := tx.ListActiveAssignments(ctx)
		if err != nil {
			return err
		}
		for i := range active {
			a := &active[i]
			if a.StartDate.After(today) {
				continue
			}
			upcoming, err := tx.ListRegularByStudent(ctx, a.StudentID, &today, domain.RegularActive)
			if err != nil {
				return err
			}
			pending := false
			for _, row := range upcoming {
				if row.PackageAssignmentID == a.ID {
					pending = true
					break
				}
			}
			if pending {
				continue
			}

			a.Status = domain.AssignmentExpired
			if err := tx.SaveAssignment(ctx, a); err != nil {
				return err
			}
			report.Expired = append(report.Expired, a.ID)
		}
		return tx.RebuildSlotOccupancy(ctx, s.settings.Capacity)
	})
	if err != nil {
		return nil, err
	}

	report.Message = fmt.Sprintf("%d paquetes vencidos", len(report.Expired))
	log.Info().Int("expired", len(report.Expired)).Msg("package expiry finished")
	return report, nil
}
