package service

import (
	"context"
	"time"

	"tupilates/domain"
	"tupilates/utils"
)

type capacityUseCase struct {
	repo     domain.ScheduleRepository
	settings domain.StudioSettings
}

func NewCapacityUseCase(repo domain.ScheduleRepository, settings domain.StudioSettings) domain.CapacityUseCase {
	return &capacityUseCase{repo: repo, settings: settings}
}

// SlotAvailability counts active packages linked to the weekly slot.
func (s *capacityUseCase) SlotAvailability(ctx context.Context, weekday time.Weekday, startTime string) (*domain.Availability, error) {
	hhmm, err := utils.NormalizeTime(startTime)
	if err != nil {
		return nil, domain.Fail(domain.KindValidation, "%s", err.Error())
	}

	slot, err := s.repo.FindSlot(ctx, weekday, hhmm)
	if isNotFound(err) {
		return nil, domain.Fail(domain.KindNotFound, "no existe el turno %s", utils.SlotLabel(weekday, hhmm))
	}
	if err != nil {
		return nil, err
	}

	occupied, err := s.repo.CountSlotActiveAssignments(ctx, slot.ID)
	if err != nil {
		return nil, err
	}
	return &domain.Availability{
		Weekday:   utils.GetDayName(weekday),
		Time:      hhmm,
		Occupied:  occupied,
		Available: available(s.settings, occupied),
	}, nil
}

// TodayAvailability counts live bookings on today's class at startTime.
func (s *capacityUseCase) TodayAvailability(ctx context.Context, startTime string) (*domain.Availability, error) {
	hhmm, err := utils.NormalizeTime(startTime)
	if err != nil {
		return nil, domain.Fail(domain.KindValidation, "%s", err.Error())
	}

	today := s.settings.Today()
	if today.Weekday() == time.Sunday {
		return nil, domain.Fail(domain.KindNotFound, "hoy es domingo, no hay clases")
	}

	slot, err := s.repo.FindSlot(ctx, today.Weekday(), hhmm)
	if isNotFound(err) {
		return nil, domain.Fail(domain.KindNotFound, "no existe el turno %s", utils.SlotLabel(today.Weekday(), hhmm))
	}
	if err != nil {
		return nil, err
	}

	instance, err := s.repo.FindInstance(ctx, slot.ID, today)
	if isNotFound(err) {
		return nil, domain.Fail(domain.KindNotFound, "no hay clase programada hoy a las %s", hhmm)
	}
	if err != nil {
		return nil, err
	}

	occupied, err := s.repo.CountInstanceOccupancy(ctx, instance.ID)
	if err != nil {
		return nil, err
	}
	return &domain.Availability{
		Weekday:   utils.GetDayName(today.Weekday()),
		Time:      hhmm,
		Date:      utils.FormatDate(today),
		Occupied:  occupied,
		Available: available(s.settings, occupied),
	}, nil
}

func (s *capacityUseCase) ListAvailableSlots(ctx context.Context, query domain.SlotQuery) ([]domain.Availability, error) {
	if query.Operator != "gte" && query.Operator != "lt" {
		return nil, domain.Fail(domain.KindValidation, "operador inválido %q, use gte o lt", query.Operator)
	}
	hhmm, err := utils.NormalizeTime(query.Time)
	if err != nil {
		return nil, domain.Fail(domain.KindValidation, "%s", err.Error())
	}

	var slots []domain.Slot
	if query.Weekday != nil {
		slots, err = s.repo.ListSlotsByWeekday(ctx, *query.Weekday)
	} else {
		slots, err = s.repo.ListSlots(ctx)
	}
	if err != nil {
		return nil, err
	}

	out := []domain.Availability{}
	for _, slot := range slots {
		// HH:MM strings order the same way as the times they encode
		if query.Operator == "gte" && slot.StartTime < hhmm {
			continue
		}
		if query.Operator == "lt" && slot.StartTime >= hhmm {
			continue
		}
		occupied, err := s.repo.CountSlotActiveAssignments(ctx, slot.ID)
		if err != nil {
			return nil, err
		}
		if free := available(s.settings, occupied); free > 0 {
			out = append(out, domain.Availability{
				Weekday:   utils.GetDayName(slot.Weekday),
				Time:      slot.StartTime,
				Occupied:  occupied,
				Available: free,
			})
		}
	}
	return out, nil
}
