package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"tupilates/config"
	"tupilates/domain"
	"tupilates/repository"
	"tupilates/service"
	"tupilates/utils"

	"github.com/rs/zerolog/log"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	gen       domain.GeneratorUseCase
	reports   domain.ReportUseCase
	bootstrap func(ctx context.Context) (*service.BootstrapReport, error)
	out       io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  bootstrap                                  - seed instructor, slots and packages, then generate the window")
	fmt.Fprintln(cli.out, "  generate [-from YYYY-MM-DD] [-to YYYY-MM-DD] - create class instances (default: rolling window)")
	fmt.Fprintln(cli.out, "  expire                                     - expire finished packages and rebuild slot occupancy")
}

func (cli *commandLine) run(ctx context.Context, args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	generateCmd := flag.NewFlagSet("generate", flag.ContinueOnError)
	generateCmd.SetOutput(cli.out)
	generateFrom := generateCmd.String("from", "", "First date to generate (YYYY-MM-DD).")
	generateTo := generateCmd.String("to", "", "Last date to generate (YYYY-MM-DD).")

	switch args[1] {
	case "bootstrap":
		report, err := cli.bootstrap(ctx)
		if err != nil {
			return err
		}
		return cli.print(report)
	case "generate":
		if err := generateCmd.Parse(args[2:]); err != nil {
			return err
		}
		if (*generateFrom == "") != (*generateTo == "") {
			generateCmd.Usage()
			return errHelp
		}
		var (
			report *domain.GenerationReport
			err    error
		)
		if *generateFrom == "" {
			report, err = cli.gen.GenerateWindow(ctx)
		} else {
			from, ferr := utils.ParseDate(*generateFrom)
			to, terr := utils.ParseDate(*generateTo)
			if err := errors.Join(ferr, terr); err != nil {
				return err
			}
			report, err = cli.gen.GenerateInstances(ctx, from, to)
		}
		if err != nil {
			return err
		}
		return cli.print(report)
	case "expire":
		report, err := cli.reports.ExpirePackages(ctx)
		if err != nil {
			return err
		}
		return cli.print(report)
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) print(v interface{}) error {
	enc := json.NewEncoder(cli.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	config.LoadEnv()
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	utils.InitLogger(cfg.IsDevelopment())

	db, err := config.BootDB(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}

	repo := repository.NewScheduleRepository(db)
	gen := service.NewGeneratorUseCase(repo, cfg.Studio)
	catalog := service.Catalog{Instructor: cfg.Instructor, Slots: cfg.Slots, Packages: cfg.Packages}

	cli := &commandLine{
		gen:     gen,
		reports: service.NewReportUseCase(repo, cfg.Studio),
		bootstrap: func(ctx context.Context) (*service.BootstrapReport, error) {
			return service.Bootstrap(ctx, repo, gen, cfg.Studio, catalog)
		},
		out: os.Stdout,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if err := cli.run(ctx, os.Args); err != nil {
		if errors.Is(err, errHelp) {
			os.Exit(2)
		}
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}
