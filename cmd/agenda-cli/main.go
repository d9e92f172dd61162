package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/agenda-api/internal/cli"
	"github.com/noah-isme/agenda-api/internal/models"
	"github.com/noah-isme/agenda-api/internal/service"
	"github.com/noah-isme/agenda-api/pkg/agendaclient"
	"github.com/noah-isme/agenda-api/pkg/caldate"
	"github.com/noah-isme/agenda-api/pkg/logger"
)

// The HTTP client satisfies the view's store contract directly.
var _ service.ScheduleStore = (*agendaclient.Client)(nil)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "agenda:", err)
		os.Exit(1)
	}
}

func run() error {
	defaultPath, err := cli.DefaultProfilePath()
	if err != nil {
		defaultPath = cli.ProfileFile
	}

	profilePath := flag.String("profile", defaultPath, "profile file")
	baseURL := flag.String("base-url", "", "API base URL, overrides the profile")
	email := flag.String("email", "", "log in with this email")
	password := flag.String("password", os.Getenv("AGENDA_PASSWORD"), "password for -email (or AGENDA_PASSWORD)")
	view := flag.String("view", "", "initial view: day or week")
	date := flag.String("date", "", "initial anchor date (YYYY-MM-DD)")
	resource := flag.String("resource", "", "initial resource id or all")
	noColor := flag.Bool("no-color", false, "disable coloured output")
	logLevel := flag.String("log-level", "warn", "log level")
	flag.Parse()

	log, err := logger.NewConsole(*logLevel)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	profile, err := cli.LoadProfile(*profilePath)
	if err != nil {
		return err
	}
	if *baseURL != "" {
		profile.BaseURL = *baseURL
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := agendaclient.New(profile.BaseURL,
		agendaclient.WithToken(profile.AccessToken),
		agendaclient.WithLogger(log),
	)
	if err != nil {
		return err
	}

	user, err := authenticate(ctx, client, profile, *email, *password, log)
	if err != nil {
		return err
	}
	if err := cli.SaveProfile(*profilePath, profile); err != nil {
		log.Warn("failed to save profile", zap.Error(err))
	}

	opts, err := viewOptions(profile, *view, *date, *resource, log)
	if err != nil {
		return err
	}
	session := models.Session{
		UserID:      user.ID,
		Role:        user.Role,
		ResourceID:  user.ResourceID,
		AccessToken: client.Token(),
	}
	controller := service.NewScheduleViewController(client, session, opts)

	renderer := cli.NewRenderer(profile.ColorEnabled() && !*noColor)
	renderer.Info(os.Stdout, "signed in as %s (%s)", user.Email, user.Role)
	shell := cli.NewShell(controller, renderer, os.Stdout, log)
	if err := shell.Run(ctx, os.Stdin); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// authenticate logs in with explicit credentials or reuses the profile
// tokens, refreshing once when the stored access token is rejected.
func authenticate(ctx context.Context, client *agendaclient.Client, profile *cli.Profile, email, password string, log *zap.Logger) (*models.UserInfo, error) {
	if email != "" {
		if password == "" {
			return nil, fmt.Errorf("-email requires -password or AGENDA_PASSWORD")
		}
		resp, err := client.Login(ctx, email, password)
		if err != nil {
			return nil, fmt.Errorf("login: %w", err)
		}
		profile.Email = email
		profile.AccessToken = resp.AccessToken
		profile.RefreshToken = resp.RefreshToken
		return &resp.User, nil
	}

	if profile.AccessToken == "" {
		return nil, fmt.Errorf("not signed in: run with -email")
	}
	user, err := client.Me(ctx)
	if err == nil {
		return user, nil
	}
	if profile.RefreshToken == "" {
		return nil, fmt.Errorf("session expired: run with -email: %w", err)
	}

	log.Debug("access token rejected, refreshing", zap.Error(err))
	resp, err := client.Refresh(ctx, profile.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("refresh session: %w", err)
	}
	client.SetToken(resp.AccessToken)
	profile.AccessToken = resp.AccessToken
	profile.RefreshToken = resp.RefreshToken
	return client.Me(ctx)
}

func viewOptions(profile *cli.Profile, rawView, rawDate, rawResource string, log *zap.Logger) (service.ViewControllerOptions, error) {
	opts := service.ViewControllerOptions{
		Grid:   service.DefaultGridConfig(),
		Logger: log,
	}

	if rawView == "" {
		rawView = profile.DefaultView
	}
	granularity, err := models.ParseGranularity(rawView, models.GranularityWeek)
	if err != nil {
		return opts, err
	}
	opts.Granularity = granularity

	if profile.Timezone != "" {
		loc, err := time.LoadLocation(profile.Timezone)
		if err != nil {
			return opts, fmt.Errorf("profile timezone: %w", err)
		}
		opts.Location = loc
	}

	if rawDate != "" {
		anchor, err := caldate.Parse(rawDate)
		if err != nil {
			return opts, err
		}
		opts.Anchor = anchor
	}

	if rawResource != "" {
		selection, err := models.ParseResourceSelection(rawResource)
		if err != nil {
			return opts, err
		}
		opts.Selection = &selection
	}
	return opts, nil
}
