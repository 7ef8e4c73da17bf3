package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"tupilates/domain"
	"tupilates/metrics"
	"tupilates/utils"

	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
)

type generatorUseCase struct {
	repo     domain.ScheduleRepository
	settings domain.StudioSettings
}

func NewGeneratorUseCase(repo domain.ScheduleRepository, settings domain.StudioSettings) domain.GeneratorUseCase {
	return &generatorUseCase{repo: repo, settings: settings}
}

func (s *generatorUseCase) GenerateWindow(ctx context.Context) (*domain.GenerationReport, error) {
	days := s.settings.GenerationWindowDays
	if days <= 0 {
		days = 30
	}
	today := s.settings.Today()
	return s.GenerateInstances(ctx, today, today.AddDate(0, 0, days))
}

func (s *generatorUseCase) GenerateInstances(ctx context.Context, start, end time.Time) (*domain.GenerationReport, error) {
	start, end = utils.DateOnly(start), utils.DateOnly(end)
	if end.Before(start) {
		return nil, domain.Fail(domain.KindValidation,
			"la fecha de inicio (%s) es posterior a la fecha de fin (%s)", utils.FormatDate(start), utils.FormatDate(end))
	}

	instructorMissing := false
	if _, err := s.repo.GetInstructor(ctx, s.settings.InstructorID); err != nil {
		if !isNotFound(err) {
			return nil, err
		}
		instructorMissing = true
		log.Warn().Uint("instructor_id", s.settings.InstructorID).Msg("instructor not found, no classes will be generated")
	}

	report := &domain.GenerationReport{Days: []domain.DayReport{}}
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		dr := domain.DayReport{
			Date:    utils.FormatDate(day),
			Weekday: utils.GetDayName(day.Weekday()),
		}
		report.DaysProcessed++

		switch {
		case day.Weekday() == time.Sunday:
			dr.Message = "Domingo: no se generan clases"
		case instructorMissing:
			dr.Message = "No se generaron clases"
			dr.Error = fmt.Sprintf("no existe el instructor con id=%d", s.settings.InstructorID)
		default:
			s.generateDay(ctx, day, &dr)
			if dr.Created+dr.Existing > 0 {
				report.DaysWithClass++
			}
		}

		report.Created += dr.Created
		report.Existing += dr.Existing
		report.Days = append(report.Days, dr)
	}

	report.Message = fmt.Sprintf("Se crearon %d clases nuevas (%d ya existían) en %d días procesados",
		report.Created, report.Existing, report.DaysProcessed)
	metrics.RecordGeneration(report.Created, report.Existing)
	s.recordRun(ctx, start, end, report)

	log.Info().
		Str("start", utils.FormatDate(start)).
		Str("end", utils.FormatDate(end)).
		Int("created", report.Created).
		Int("existing", report.Existing).
		Msg("class instances generated")
	return report, nil
}

// generateDay creates the instances of one day in its own transaction so a
// failing day does not undo the others.
func (s *generatorUseCase) generateDay(ctx context.Context, day time.Time, dr *domain.DayReport) {
	var created, existing int
	err := s.repo.Transaction(ctx, func(tx domain.ScheduleRepository) error {
		created, existing = 0, 0
		slots, err := tx.ListSlotsByWeekday(ctx, day.Weekday())
		if err != nil {
			return err
		}
		for _, slot := range slots {
			ok, err := tx.CreateInstanceIfAbsent(ctx, &domain.ClassInstance{
				SlotID:       slot.ID,
				InstructorID: s.settings.InstructorID,
				Date:         day,
			})
			if err != nil {
				return err
			}
			if ok {
				created++
			} else {
				existing++
			}
		}
		return nil
	})
	if err != nil {
		log.Error().Err(err).Str("date", dr.Date).Msg("failed to generate classes")
		dr.Error = utils.TranslateDBError(err)
		dr.Message = "No se generaron clases"
		return
	}

	dr.Created, dr.Existing = created, existing
	if created+existing == 0 {
		dr.Message = "No hay turnos definidos para este día"
		return
	}
	dr.Message = fmt.Sprintf("%d clases creadas, %d ya existían", created, existing)
}

func (s *generatorUseCase) recordRun(ctx context.Context, start, end time.Time, report *domain.GenerationReport) {
	breakdown, err := json.Marshal(report.Days)
	if err != nil {
		log.Warn().Err(err).Msg("failed to encode generation breakdown")
		return
	}
	run := &domain.GenerationRun{
		StartDate: start,
		EndDate:   end,
		Created:   report.Created,
		Existing:  report.Existing,
		Breakdown: datatypes.JSON(breakdown),
	}
	if err := s.repo.CreateGenerationRun(ctx, run); err != nil {
		log.Warn().Err(err).Msg("failed to record generation run")
	}
}
