package service

import (
	"context"
	"testing"
	"time"

	"tupilates/domain"

	"github.com/stretchr/testify/require"
)

// Wednesday.
var fixedNow = time.Date(2025, 3, 5, 10, 0, 0, 0, time.UTC)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ptr[T any](v T) *T {
	return &v
}

func testSettings() domain.StudioSettings {
	return domain.StudioSettings{
		Capacity:             4,
		InstructorID:         1,
		Location:             time.UTC,
		RemainderPolicy:      domain.RemainderDrop,
		FuzzyThreshold:       0.85,
		GenerationWindowDays: 30,
		Clock:                func() time.Time { return fixedNow },
	}
}

func testCatalog() Catalog {
	var slots []domain.Slot
	for wd := time.Monday; wd <= time.Saturday; wd++ {
		slots = append(slots, domain.Slot{Weekday: wd, StartTime: "18:00"})
	}
	slots = append(slots, domain.Slot{Weekday: time.Monday, StartTime: "19:00"})

	return Catalog{
		Instructor: domain.Person{Name: "Carla", Surname: "Benítez", Phone: "0981000000"},
		Slots:      slots,
		Packages: []domain.Package{
			{ClassCount: 4, Price: 100},
			{ClassCount: 8, Price: 180},
			{ClassCount: 12, Price: 250},
		},
	}
}

// seedCatalog loads instructor, slots and packages without generating classes.
func seedCatalog(t *testing.T, repo *fakeRepo, settings domain.StudioSettings) {
	t.Helper()
	ctx := context.Background()
	c := testCatalog()

	require.NoError(t, repo.CreateInstructor(ctx, &domain.Instructor{ID: settings.InstructorID, Person: c.Instructor}))
	for i := range c.Slots {
		_, err := repo.CreateSlotIfAbsent(ctx, &c.Slots[i])
		require.NoError(t, err)
	}
	for i := range c.Packages {
		_, err := repo.CreatePackageIfAbsent(ctx, &c.Packages[i])
		require.NoError(t, err)
	}
}

// newStudio returns a seeded repository with the rolling window generated.
func newStudio(t *testing.T) (*fakeRepo, domain.StudioSettings) {
	t.Helper()
	repo := newFakeRepo()
	settings := testSettings()
	_, err := Bootstrap(context.Background(), repo, NewGeneratorUseCase(repo, settings), settings, testCatalog())
	require.NoError(t, err)
	return repo, settings
}

func findInstance(t *testing.T, repo *fakeRepo, wd time.Weekday, hhmm string, date time.Time) *domain.ClassInstance {
	t.Helper()
	ctx := context.Background()
	slot, err := repo.FindSlot(ctx, wd, hhmm)
	require.NoError(t, err)
	inst, err := repo.FindInstance(ctx, slot.ID, date)
	require.NoError(t, err)
	return inst
}

func occupancy(t *testing.T, repo *fakeRepo, instanceID uint) int {
	t.Helper()
	n, err := repo.CountInstanceOccupancy(context.Background(), instanceID)
	require.NoError(t, err)
	return n
}

func registerRegular(t *testing.T, uc domain.AllocationUseCase, name, surname, phone string, size int, start *time.Time, slots ...string) *domain.RegularResult {
	t.Helper()
	res, err := uc.RegisterRegular(context.Background(), domain.RegularRegistration{
		StudentData: domain.StudentData{Name: name, Surname: surname, Phone: phone},
		PackageSize: size,
		Slots:       slots,
		StartDate:   start,
	})
	require.NoError(t, err)
	return res
}

func registerOccasional(t *testing.T, uc domain.AllocationUseCase, name, surname, phone string, date time.Time) *domain.OccasionalResult {
	t.Helper()
	res, err := uc.RegisterOccasional(context.Background(), domain.OccasionalRegistration{
		StudentData: domain.StudentData{Name: name, Surname: surname, Phone: phone},
		Time:        "18:00",
		Date:        &date,
	})
	require.NoError(t, err)
	return res
}

func requireKind(t *testing.T, err error, kind domain.ErrorKind) *domain.ErrorList {
	t.Helper()
	require.Error(t, err)
	list, ok := domain.AsErrorList(err)
	require.True(t, ok, "expected an ErrorList, got %v", err)
	require.Equal(t, kind, list.Kind())
	return list
}
