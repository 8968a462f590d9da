package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/benmeehan/fieldsales-agent/internal/models"
	"github.com/benmeehan/fieldsales-agent/internal/services"
	"github.com/benmeehan/fieldsales-agent/internal/utils"
	"github.com/benmeehan/fieldsales-agent/pkg/file"
	"github.com/rs/zerolog"
)

const usage = `usage: agent [-config path] [-debug] <command> [args]

commands:
  run                     start the background services
  login -id ID -password  sign an agent in
  logout                  forget the signed-in agent
  dashboard               show month-to-date counters
  locate                  print the current averaged position
  visit <form.json>       submit a shop visit
  uplift <form.json>      submit a stock uplift
  flush                   retry queued submissions once
  admin <command>         review uplifts, manage targets and reports (admins only)
`

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the configuration file")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Usage = func() { fmt.Fprint(flag.CommandLine.Output(), usage) }
	flag.Parse()

	// Set up structured logging with JSON output
	level := zerolog.InfoLevel
	if *debug {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	fileClient := file.NewFileService()

	config, err := utils.LoadConfig(*configPath, fileClient)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, config, fileClient, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize agent")
	}

	err = dispatch(ctx, a, fileClient, flag.Arg(0), flag.Args()[1:])
	if cErr := a.Close(); cErr != nil {
		logger.Error().Err(cErr).Msg("Failed to release resources")
	}
	if err != nil {
		var actionable *services.ActionableError
		if errors.As(err, &actionable) {
			fmt.Fprintln(os.Stderr, actionable.Message)
		}
		if errors.Is(err, services.ErrQueuedOffline) {
			fmt.Fprintln(os.Stderr, "Saved offline. It will be sent when the connection is back.")
			return
		}
		logger.Fatal().Err(err).Str("command", flag.Arg(0)).Msg("Command failed")
	}
}

func dispatch(ctx context.Context, a *app, fileClient file.FileOperations, command string, args []string) error {
	switch command {
	case "run":
		return run(ctx, a, fileClient)
	case "login":
		fs := flag.NewFlagSet("login", flag.ExitOnError)
		id := fs.String("id", "", "national ID")
		password := fs.String("password", "", "password")
		_ = fs.Parse(args)

		session, err := a.agents.Login(ctx, *id, *password)
		if err != nil {
			return err
		}
		return printJSON(session)
	case "logout":
		return a.agents.Logout()
	case "dashboard":
		dashboard, err := a.agents.Dashboard(ctx)
		if err != nil {
			return err
		}
		return printJSON(dashboard)
	case "locate":
		coords, err := a.sampler.Acquire(ctx)
		if err != nil {
			return err
		}
		return printJSON(coords)
	case "visit":
		var form visitFile
		if err := readForm(fileClient, args, &form); err != nil {
			return err
		}
		photo, err := readPhoto(fileClient, form.PhotoFile)
		if err != nil {
			return err
		}
		form.Photo = photo
		record, err := a.submissions.SubmitVisit(ctx, form.VisitForm)
		if err != nil {
			return err
		}
		return printJSON(record)
	case "uplift":
		var form upliftFile
		if err := readForm(fileClient, args, &form); err != nil {
			return err
		}
		photo, err := readPhoto(fileClient, form.PhotoFile)
		if err != nil {
			return err
		}
		form.Photo = photo
		record, err := a.submissions.SubmitUplift(ctx, form.UpliftForm)
		if err != nil {
			return err
		}
		return printJSON(record)
	case "flush":
		if a.outbox == nil {
			return errors.New("outbox is not configured")
		}
		retry := services.NewOutboxService(a.outbox, a.backend, a.config.Outbox.Interval,
			a.config.Outbox.BatchSize, a.config.Outbox.Workers, a.logger)
		sent, err := retry.Flush(ctx)
		if err != nil {
			return err
		}
		a.logger.Info().Int("sent", sent).Msg("Outbox flush finished")
		return nil
	case "admin":
		return runAdmin(ctx, a.admin, args)
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

// run starts the background services and blocks until a shutdown signal.
func run(ctx context.Context, a *app, fileClient file.FileOperations) error {
	if a.config.Beacon.Enabled {
		if err := a.connectMQTT(fileClient); err != nil {
			return err
		}
	}

	serviceRegistry := a.registry()
	if err := serviceRegistry.RegisterServices(a.config); err != nil {
		return err
	}
	if err := serviceRegistry.StartServices(); err != nil {
		return err
	}
	a.logger.Info().Strs("services", serviceRegistry.Services()).Msg("All services started successfully")

	<-ctx.Done()

	a.logger.Info().Msg("Shutting down gracefully...")
	return serviceRegistry.StopServices()
}

// visitFile is a visit form on disk. The photo is referenced by path.
type visitFile struct {
	models.VisitForm
	PhotoFile string `json:"photoFile"`
}

type upliftFile struct {
	models.UpliftForm
	PhotoFile string `json:"photoFile"`
}

func readForm(fileClient file.FileOperations, args []string, form any) error {
	if len(args) != 1 {
		return errors.New("expected exactly one form file")
	}
	if err := fileClient.ReadJsonFile(args[0], form); err != nil {
		return fmt.Errorf("failed to read form %s: %w", args[0], err)
	}
	return nil
}

// readPhoto returns nil for an empty path and leaves the missing photo to form validation.
func readPhoto(fileClient file.FileOperations, path string) ([]byte, error) {
	if path == "" {
		return nil, nil
	}
	photo, err := fileClient.ReadFileRaw(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read photo %s: %w", path, err)
	}
	return photo, nil
}

func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
