package service

import (
	"context"
	"time"

	"tupilates/domain"
	"tupilates/metrics"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

const jobTimeout = 4 * time.Minute

// StartScheduler registers the nightly maintenance jobs and starts the cron
// runner. Overlapping runs of the same job are skipped.
func StartScheduler(spec string, gen domain.GeneratorUseCase, reports domain.ReportUseCase) (*cron.Cron, error) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))

	_, err := c.AddFunc(spec, func() {
		runJob("generate_window", func(ctx context.Context) error {
			_, err := gen.GenerateWindow(ctx)
			return err
		})
		runJob("expire_packages", func(ctx context.Context) error {
			_, err := reports.ExpirePackages(ctx)
			return err
		})
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("schedule", spec).Msg("scheduler started")
	c.Start()
	return c, nil
}

func runJob(name string, fn func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	start := time.Now()
	err := fn(ctx)
	metrics.RecordJobRun(name, time.Since(start), err == nil)
	if err != nil {
		log.Error().Err(err).Str("job", name).Msg("scheduled job failed")
		return
	}
	log.Info().Str("job", name).Dur("took", time.Since(start)).Msg("scheduled job finished")
}
