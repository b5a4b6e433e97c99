package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/vtseva/career-compass/internal/application"
	"github.com/vtseva/career-compass/internal/calendar"
	"github.com/vtseva/career-compass/internal/client"
	"github.com/vtseva/career-compass/internal/config"
	httptransport "github.com/vtseva/career-compass/internal/http"
	"github.com/vtseva/career-compass/internal/logging"
	"github.com/vtseva/career-compass/internal/notify"
	"github.com/vtseva/career-compass/internal/persistence"
	"github.com/vtseva/career-compass/internal/persistence/postgres"
	"github.com/vtseva/career-compass/internal/persistence/sqlite"
	"github.com/vtseva/career-compass/internal/scheduler"
	"github.com/vtseva/career-compass/internal/speakers"
	"github.com/vtseva/career-compass/internal/telemetry"
)

const serviceName = "career-compass"

const usage = `usage: compass [command] [flags]

commands:
  serve      run the HTTP API (default)
  migrate    apply database migrations and exit
  calendar   write .ics files for every session (-out DIR)
  rsvp       submit an RSVP to a running API (-api URL -name ... -email ... -branch ... -speaker ...)
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

// run dispatches the subcommand and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	command := "serve"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		command, args = args[0], args[1:]
	}

	if command == "help" {
		fmt.Fprint(stdout, usage)
		return 0
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "failed to load configuration: %v\n", err)
		return 1
	}
	level, _ := logging.ParseLevel(cfg.LogLevel)
	logger := logging.New(stdout, level).With("service", serviceName)

	switch command {
	case "serve":
		err = serve(ctx, cfg, logger, stdout, stderr)
	case "migrate":
		err = migrate(ctx, cfg, logger)
	case "calendar":
		err = writeCalendars(args, cfg, stdout, stderr)
	case "rsvp":
		err = submitRSVP(ctx, args, stdout, stderr)
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", command, usage)
		return 2
	}

	if errors.Is(err, flag.ErrHelp) {
		return 2
	}
	if err != nil {
		logger.Error("command failed", "command", command, "error", err)
		return 1
	}
	return 0
}

// openStore selects the storage engine from the database URL.
func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (persistence.Store, error) {
	switch cfg.Engine() {
	case config.EnginePostgres:
		store, err := postgres.Open(ctx, cfg.DatabaseURL, postgres.Options{
			InsecureTLS: cfg.DatabaseInsecureTLS,
			Logger:      logger,
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		store, err := sqlite.Open(ctx, sqlite.DefaultConfig(cfg.DatabaseURL), nil, logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
}

func migrate(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	logger.Info("migrations applied", "engine", string(cfg.Engine()))
	return nil
}

// newHandler wires the application service and the read endpoints into the
// HTTP router.
func newHandler(cfg config.Config, repo persistence.RSVPRepository, notifier application.Notifier, now func() time.Time, logger *slog.Logger) (http.Handler, error) {
	dir, err := speakers.Default()
	if err != nil {
		return nil, fmt.Errorf("load speaker directory: %w", err)
	}

	builder := calendar.NewBuilder(cfg.Location, 0, now)
	clock := httptransport.SessionClock{
		Policy:   scheduler.Policy{LeadWindow: cfg.JoinLeadWindow, PastGrace: cfg.PastGrace},
		Location: cfg.Location,
		Now:      now,
	}
	service := application.NewRSVPServiceWithLogger(application.NewStoreRepository(repo), notifier, now, logger)

	return httptransport.NewRouter(httptransport.RouterConfig{
		RSVPs:    httptransport.NewRSVPHandler(service, logger),
		Speakers: httptransport.NewSpeakerHandler(dir, clock, builder, logger),
		Calendar: httptransport.NewCalendarHandler(dir, builder, logger),
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(logger),
			httptransport.CORS(),
		},
	}), nil
}

func serve(ctx context.Context, cfg config.Config, logger *slog.Logger, stdout, stderr io.Writer) error {
	shutdownTracing, err := telemetry.Setup(ctx, serviceName, cfg.OTelEndpoint)
	if err != nil {
		return fmt.Errorf("set up tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Error("failed to flush traces", "error", err)
		}
	}()

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	var notifier application.Notifier
	if cfg.WhatsAppEnabled {
		wa, n, err := openWhatsApp(ctx, cfg, logger, stdout, stderr)
		if err != nil {
			return err
		}
		defer wa.Close()
		notifier = n
	}

	handler, err := newHandler(cfg, store, notifier, time.Now, logger)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("career compass API listening", "addr", server.Addr, "engine", string(cfg.Engine()))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve http: %w", err)
	}
	return nil
}

// openWhatsApp connects the organizer device, pairing it through a terminal
// QR code on first use.
func openWhatsApp(ctx context.Context, cfg config.Config, logger *slog.Logger, stdout, stderr io.Writer) (*notify.WhatsApp, *notify.Notifier, error) {
	zlevel, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		zlevel = zerolog.InfoLevel
	}
	zlog := zerolog.New(stdout).Level(zlevel).With().Timestamp().Str("component", "whatsapp").Logger()

	wa, err := notify.OpenWhatsApp(ctx, cfg.WhatsAppDataDir, zlog)
	if err != nil {
		return nil, nil, err
	}
	if err := wa.Connect(ctx, stderr); err != nil {
		return nil, nil, err
	}

	n, err := notify.NewNotifier(wa, cfg.WhatsAppOrganizer, logger)
	if err != nil {
		wa.Close()
		return nil, nil, err
	}
	logger.Info("organizer notifications enabled")
	return wa, n, nil
}

func writeCalendars(args []string, cfg config.Config, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("calendar", flag.ContinueOnError)
	fs.SetOutput(stderr)
	out := fs.String("out", "calendar_files", "directory for the generated .ics files")
	if err := fs.Parse(args); err != nil {
		return err
	}

	dir, err := speakers.Default()
	if err != nil {
		return fmt.Errorf("load speaker directory: %w", err)
	}

	builder := calendar.NewBuilder(cfg.Location, 0, time.Now)
	paths, err := builder.WriteFiles(*out, dir.All())
	if err != nil {
		return err
	}
	for _, path := range paths {
		fmt.Fprintln(stdout, path)
	}
	return nil
}

func submitRSVP(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("rsvp", flag.ContinueOnError)
	fs.SetOutput(stderr)
	api := fs.String("api", "http://localhost:5000", "base URL of the Career Compass API")
	var form client.Form
	fs.StringVar(&form.Name, "name", "", "attendee name")
	fs.StringVar(&form.Email, "email", "", "attendee email")
	fs.StringVar(&form.Phone, "phone", "", "attendee phone (optional)")
	fs.StringVar(&form.Branch, "branch", "", "career branch, or custom/other with -custom-branch")
	fs.StringVar(&form.CustomBranch, "custom-branch", "", "free-text branch")
	fs.StringVar(&form.Questions, "questions", "", "questions for the speaker (optional)")
	fs.BoolVar(&form.OptIn, "opt-in", false, "receive updates about future sessions")
	speaker := fs.String("speaker", "", "speaker name")
	session := fs.String("session", "", "session date; defaults to the speaker's scheduled date and time")
	if err := fs.Parse(args); err != nil {
		return err
	}

	sessionDate := strings.TrimSpace(*session)
	if sessionDate == "" {
		if dir, err := speakers.Default(); err == nil {
			if sp, ok := dir.Lookup(*speaker); ok {
				sessionDate = sp.Session.Date + " " + sp.Session.Time
			}
		}
	}

	workflow := client.NewWorkflow(client.New(*api, &http.Client{Timeout: 15 * time.Second}))
	if err := workflow.Open(*speaker, sessionDate); err != nil {
		return err
	}
	if err := workflow.Edit(func(f *client.Form) {
		*f = client.Form{
			Name:         form.Name,
			Email:        form.Email,
			Phone:        form.Phone,
			Branch:       form.Branch,
			CustomBranch: form.CustomBranch,
			Questions:    form.Questions,
			OptIn:        form.OptIn,
			SpeakerName:  f.SpeakerName,
			SessionDate:  f.SessionDate,
		}
	}); err != nil {
		return err
	}

	id, err := workflow.Submit(ctx)
	if err != nil {
		var fErr *client.FormError
		if errors.As(err, &fErr) {
			for field, msg := range fErr.Fields {
				fmt.Fprintf(stderr, "%s: %s\n", field, msg)
			}
		}
		var sErr *client.SubmitError
		if errors.As(err, &sErr) {
			for field, msg := range sErr.Fields {
				fmt.Fprintf(stderr, "%s: %s\n", field, msg)
			}
		}
		return err
	}

	fmt.Fprintf(stdout, "RSVP stored with id %d\n", id)
	return nil
}
