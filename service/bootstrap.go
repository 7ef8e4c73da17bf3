package service

import (
	"context"
	"fmt"

	"tupilates/domain"

	"github.com/rs/zerolog/log"
)

// Catalog is the seed data for a fresh studio.
type Catalog struct {
	Instructor domain.Person
	Slots      []domain.Slot
	Packages   []domain.Package
}

type BootstrapReport struct {
	InstructorCreated bool                     `json:"instructor_created"`
	SlotsCreated      int                      `json:"slots_created"`
	PackagesCreated   int                      `json:"packages_created"`
	Generation        *domain.GenerationReport `json:"generation"`
}

// Bootstrap seeds the instructor and the slot and package catalogs, then
// generates the rolling window of classes. Running it twice changes nothing.
func Bootstrap(ctx context.Context, repo domain.ScheduleRepository, gen domain.GeneratorUseCase, settings domain.StudioSettings, catalog Catalog) (*BootstrapReport, error) {
	report := &BootstrapReport{}

	err := repo.Transaction(ctx, func(tx domain.ScheduleRepository) error {
		_, err := tx.GetInstructor(ctx, settings.InstructorID)
		switch {
		case isNotFound(err):
			instructor := &domain.Instructor{ID: settings.InstructorID, Person: catalog.Instructor}
			if err := tx.CreateInstructor(ctx, instructor); err != nil {
				return err
			}
			report.InstructorCreated = true
		case err != nil:
			return err
		}

		for i := range catalog.Slots {
			slot := catalog.Slots[i]
			created, err := tx.CreateSlotIfAbsent(ctx, &slot)
			if err != nil {
				return fmt.Errorf("slot %v %s: %w", slot.Weekday, slot.StartTime, err)
			}
			if created {
				report.SlotsCreated++
			}
		}

		for i := range catalog.Packages {
			pkg := catalog.Packages[i]
			created, err := tx.CreatePackageIfAbsent(ctx, &pkg)
			if err != nil {
				return fmt.Errorf("package of %d classes: %w", pkg.ClassCount, err)
			}
			if created {
				report.PackagesCreated++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Bool("instructor_created", report.InstructorCreated).
		Int("slots_created", report.SlotsCreated).
		Int("packages_created", report.PackagesCreated).
		Msg("studio catalog seeded")

	report.Generation, err = gen.GenerateWindow(ctx)
	if err != nil {
		return nil, err
	}
	return report, nil
}
