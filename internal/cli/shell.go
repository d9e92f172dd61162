// Package cli implements the interactive terminal front end for the agenda
// API.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/agenda-api/internal/models"
	"github.com/noah-isme/agenda-api/pkg/caldate"
	appErrors "github.com/noah-isme/agenda-api/pkg/errors"
)

// scheduleView is the part of service.ScheduleViewController the shell drives.
type scheduleView interface {
	Window() models.ViewWindow
	Selection() models.ResourceSelection
	Grid() models.GridView
	Appointment(id int64) (models.Appointment, bool)
	Refresh(ctx context.Context) error
	Step(ctx context.Context, steps int) error
	Today(ctx context.Context) error
	GoTo(ctx context.Context, date caldate.Date) error
	SetGranularity(ctx context.Context, granularity models.Granularity) error
	SelectResource(ctx context.Context, selection models.ResourceSelection) error
	Create(ctx context.Context, input models.AppointmentInput) (*models.Appointment, error)
	Update(ctx context.Context, id int64, patch models.AppointmentPatch) (*models.Appointment, error)
	RequestDelete(id int64) (string, error)
	CancelDelete(token string) bool
	ConfirmDelete(ctx context.Context, token string) (int64, error)
}

var errQuit = errors.New("quit")

const helpText = `commands:
  next | prev | today          move the window
  day | week                   switch granularity
  goto <YYYY-MM-DD>            jump to a date
  resource <id|all>            filter resource columns
  refresh                      reload from the server
  show <id>                    print one appointment
  add <resource> <date> <start> <end> <title> [/ client]
  move <id> <date> <start> <end> [resource]
  delete <id>, then confirm | cancel
  quit`

// Shell reads commands and renders the view after each change.
type Shell struct {
	view     scheduleView
	renderer *Renderer
	out      io.Writer
	logger   *zap.Logger

	pendingToken string
	pendingID    int64
}

// NewShell builds a shell writing to out.
func NewShell(view scheduleView, renderer *Renderer, out io.Writer, logger *zap.Logger) *Shell {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Shell{view: view, renderer: renderer, out: out, logger: logger}
}

// Run loads the view and processes commands from in until quit or EOF.
func (s *Shell) Run(ctx context.Context, in io.Reader) error {
	if err := s.view.Refresh(ctx); err != nil {
		s.renderer.Error(s.out, err)
	} else {
		s.render()
	}

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(s.out, "agenda> ")
		if !scanner.Scan() {
			fmt.Fprintln(s.out)
			return scanner.Err()
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		err := s.Execute(ctx, scanner.Text())
		if errors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			s.renderer.Error(s.out, err)
		}
	}
}

// Execute runs one command line.
func (s *Shell) Execute(ctx context.Context, line string) error {
	args := strings.Fields(line)
	if len(args) == 0 {
		return nil
	}
	cmd, args := strings.ToLower(args[0]), args[1:]
	s.logger.Debug("command", zap.String("cmd", cmd), zap.Strings("args", args))

	switch cmd {
	case "quit", "exit", "q":
		return errQuit
	case "help", "?":
		fmt.Fprintln(s.out, helpText)
		return nil
	case "next", "n":
		return s.renderAfter(s.view.Step(ctx, 1))
	case "prev", "p":
		return s.renderAfter(s.view.Step(ctx, -1))
	case "today", "t":
		return s.renderAfter(s.view.Today(ctx))
	case "day":
		return s.renderAfter(s.view.SetGranularity(ctx, models.GranularityDay))
	case "week":
		return s.renderAfter(s.view.SetGranularity(ctx, models.GranularityWeek))
	case "refresh", "r":
		return s.renderAfter(s.view.Refresh(ctx))
	case "goto":
		if len(args) != 1 {
			return usage("goto <YYYY-MM-DD>")
		}
		date, err := caldate.Parse(args[0])
		if err != nil {
			return err
		}
		return s.renderAfter(s.view.GoTo(ctx, date))
	case "resource":
		if len(args) != 1 {
			return usage("resource <id|all>")
		}
		selection, err := models.ParseResourceSelection(args[0])
		if err != nil {
			return err
		}
		return s.renderAfter(s.view.SelectResource(ctx, selection))
	case "show":
		return s.show(args)
	case "add":
		return s.add(ctx, args)
	case "move":
		return s.move(ctx, args)
	case "delete", "del":
		return s.requestDelete(args)
	case "confirm", "y":
		return s.confirmDelete(ctx)
	case "cancel":
		return s.cancelDelete()
	default:
		return fmt.Errorf("unknown command %q, try help", cmd)
	}
}

func (s *Shell) add(ctx context.Context, args []string) error {
	if len(args) < 5 {
		return usage("add <resource> <date> <start> <end> <title> [/ client]")
	}
	resourceID, err := parseID(args[0])
	if err != nil {
		return err
	}
	date, start, end, err := parseSlot(args[1], args[2], args[3])
	if err != nil {
		return err
	}
	title, client := splitTitle(strings.Join(args[4:], " "))

	appt, err := s.view.Create(ctx, models.AppointmentInput{
		ResourceID: resourceID,
		Date:       date,
		StartTime:  start,
		EndTime:    end,
		Title:      title,
		ClientName: client,
	})
	if err != nil {
		return err
	}
	s.renderer.Info(s.out, "created #%d", appt.ID)
	s.render()
	return nil
}

func (s *Shell) move(ctx context.Context, args []string) error {
	if len(args) != 4 && len(args) != 5 {
		return usage("move <id> <date> <start> <end> [resource]")
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	date, start, end, err := parseSlot(args[1], args[2], args[3])
	if err != nil {
		return err
	}
	patch := models.AppointmentPatch{Date: &date, StartTime: &start, EndTime: &end}
	if len(args) == 5 {
		resourceID, err := parseID(args[4])
		if err != nil {
			return err
		}
		patch.ResourceID = &resourceID
	}
	if _, err := s.view.Update(ctx, id, patch); err != nil {
		return err
	}
	s.renderer.Info(s.out, "moved #%d", id)
	s.render()
	return nil
}

func (s *Shell) show(args []string) error {
	if len(args) != 1 {
		return usage("show <id>")
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	appt, ok := s.view.Appointment(id)
	if !ok {
		return appErrors.Clone(appErrors.ErrNotFound, "appointment not loaded")
	}
	fmt.Fprintf(s.out, "#%d %s %s-%s resource %d\n  %s", appt.ID, appt.Date, appt.StartTime, appt.EndTime, appt.ResourceID, appt.Title)
	if appt.ClientName != "" {
		fmt.Fprintf(s.out, " / %s", appt.ClientName)
	}
	fmt.Fprintln(s.out)
	if appt.Notes != nil && *appt.Notes != "" {
		fmt.Fprintf(s.out, "  %s\n", *appt.Notes)
	}
	return nil
}

func (s *Shell) requestDelete(args []string) error {
	if len(args) != 1 {
		return usage("delete <id>")
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	if s.pendingToken != "" {
		s.view.CancelDelete(s.pendingToken)
	}
	token, err := s.view.RequestDelete(id)
	if err != nil {
		return err
	}
	s.pendingToken, s.pendingID = token, id
	s.renderer.Info(s.out, "delete #%d? type confirm or cancel", id)
	return nil
}

func (s *Shell) confirmDelete(ctx context.Context) error {
	if s.pendingToken == "" {
		return appErrors.Clone(appErrors.ErrConfirmationRequired, "nothing to confirm")
	}
	token := s.pendingToken
	s.pendingToken, s.pendingID = "", 0
	id, err := s.view.ConfirmDelete(ctx, token)
	if err != nil {
		return err
	}
	s.renderer.Info(s.out, "deleted #%d", id)
	s.render()
	return nil
}

func (s *Shell) cancelDelete() error {
	if s.pendingToken == "" {
		return nil
	}
	s.view.CancelDelete(s.pendingToken)
	s.renderer.Info(s.out, "kept #%d", s.pendingID)
	s.pendingToken, s.pendingID = "", 0
	return nil
}

func (s *Shell) renderAfter(err error) error {
	if err != nil {
		return err
	}
	s.render()
	return nil
}

func (s *Shell) render() {
	s.renderer.Grid(s.out, s.view.Grid())
}

func usage(text string) error {
	return appErrors.Clone(appErrors.ErrValidation, "usage: "+text)
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(raw, "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid id %q", raw))
	}
	return id, nil
}

func parseSlot(rawDate, rawStart, rawEnd string) (caldate.Date, caldate.Clock, caldate.Clock, error) {
	date, err := caldate.Parse(rawDate)
	if err != nil {
		return caldate.Date{}, 0, 0, err
	}
	start, err := caldate.ParseClock(rawStart)
	if err != nil {
		return caldate.Date{}, 0, 0, err
	}
	end, err := caldate.ParseClock(rawEnd)
	if err != nil {
		return caldate.Date{}, 0, 0, err
	}
	if end <= start {
		return caldate.Date{}, 0, 0, appErrors.Clone(appErrors.ErrValidation, "end must be after start")
	}
	return date, start, end, nil
}

func splitTitle(text string) (string, string) {
	title, client, found := strings.Cut(text, " / ")
	if !found {
		return strings.TrimSpace(text), ""
	}
	return strings.TrimSpace(title), strings.TrimSpace(client)
}
