package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"

	"agenda/internal/caldav"
	"agenda/internal/events"
	"agenda/internal/filter"
	"agenda/internal/ics"
	"agenda/internal/models"
	"agenda/internal/syncer"
	"agenda/internal/validate"
)

const displayLayout = "2006-01-02 15:04"

var inputLayouts = []string{time.RFC3339, "2006-01-02T15:04", displayLayout}

func eventsCommand() *cli.Command {
	return &cli.Command{
		Name:    "events",
		Aliases: []string{"e"},
		Usage:   "Create, change and browse events.",
		Subcommands: []*cli.Command{
			listEventsCommand(),
			showEventCommand(),
			createEventCommand(),
			updateEventCommand(),
			deleteEventCommand(),
			upcomingEventsCommand(),
			exportEventsCommand(),
			importEventsCommand(),
			publishEventsCommand(),
			importGoogleCommand(),
		},
	}
}

func eventFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "title", Aliases: []string{"t"}},
		&cli.StringFlag{Name: "description", Aliases: []string{"d"}},
		&cli.StringFlag{Name: "location", Aliases: []string{"l"}},
		&cli.StringFlag{Name: "start", Usage: "Start as YYYY-MM-DD or YYYY-MM-DD HH:MM."},
		&cli.StringFlag{Name: "end", Usage: "End as YYYY-MM-DD or YYYY-MM-DD HH:MM."},
		&cli.BoolFlag{Name: "all-day"},
		&cli.StringFlag{Name: "category", Aliases: []string{"c"}, Usage: "One of " + models.CategoryNames() + "."},
		&cli.StringSliceFlag{Name: "attendee", Aliases: []string{"a"}, Usage: "User ID or email of an attendee. Repeatable."},
	}
}

func listEventsCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List visible events, optionally filtered.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "category", Aliases: []string{"c"}, Usage: "One of " + models.CategoryNames() + "."},
			&cli.StringFlag{Name: "from", Usage: "Keep events ending on or after this date."},
			&cli.StringFlag{Name: "to", Usage: "Keep events starting on or before this date."},
			&cli.StringFlag{Name: "search", Aliases: []string{"s"}, Usage: "Match title, description or location."},
			&cli.StringFlag{Name: "day", Usage: "Only events starting on this day."},
			&cli.BoolFlag{Name: "created", Usage: "Only events you own."},
			&cli.BoolFlag{Name: "attending", Usage: "Only events you attend but do not own."},
		},
		Action: withWorkspace(func(c *cli.Context, e *env, w *workspace) error {
			spec, err := filterSpec(c, e.loc)
			if err != nil {
				return err
			}

			var list []models.Event
			switch {
			case c.IsSet("day"):
				day, _, err := parseWhen(c.String("day"), e.loc)
				if err != nil {
					return err
				}
				list = filter.Apply(w.events.OnDay(day), spec)
			case c.Bool("created"):
				list = filter.Apply(w.events.Created(), spec)
			case c.Bool("attending"):
				list = filter.Apply(w.events.Attending(), spec)
			default:
				list = w.events.Filter(spec)
			}
			return printEvents(os.Stdout, list, w.session.UserID(), e.loc)
		}),
	}
}

func filterSpec(c *cli.Context, loc *time.Location) (filter.Spec, error) {
	spec := filter.Spec{SearchTerm: c.String("search")}
	if c.IsSet("category") {
		cat, err := models.ParseCategory(c.String("category"))
		if err != nil {
			return spec, err
		}
		spec.Category = &cat
	}
	if c.IsSet("from") {
		from, _, err := parseWhen(c.String("from"), loc)
		if err != nil {
			return spec, err
		}
		spec.StartDate = &from
	}
	if c.IsSet("to") {
		to, clock, err := parseWhen(c.String("to"), loc)
		if err != nil {
			return spec, err
		}
		if !clock {
			to = validate.EndOfDay(to, loc)
		}
		spec.EndDate = &to
	}
	return spec, nil
}

func showEventCommand() *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show one event.",
		ArgsUsage: "<id>",
		Action: withWorkspace(func(c *cli.Context, e *env, w *workspace) error {
			ev, ok := w.events.GetByID(c.Args().First())
			if !ok {
				return fmt.Errorf("%w: %s", events.ErrNotFound, c.Args().First())
			}
			fmt.Printf("ID:          %s\n", ev.ID)
			fmt.Printf("Title:       %s\n", ev.Title)
			fmt.Printf("When:        %s\n", formatSpan(ev, e.loc))
			fmt.Printf("Category:    %s (%s)\n", ev.Category.Label(), ev.Category.Color())
			if ev.Location != "" {
				fmt.Printf("Location:    %s\n", ev.Location)
			}
			if ev.Description != "" {
				fmt.Printf("Description: %s\n", ev.Description)
			}
			fmt.Printf("Owner:       %s\n", ev.CreatedBy)
			if len(ev.Attendees) > 0 {
				fmt.Printf("Attendees:   %s\n", strings.Join(ev.Attendees, ", "))
			}
			fmt.Printf("Updated:     %s\n", ev.UpdatedAt.In(e.loc).Format(displayLayout))
			return nil
		}),
	}
}

func createEventCommand() *cli.Command {
	return &cli.Command{
		Name:  "create",
		Usage: "Create an event.",
		Flags: eventFlags(),
		Action: withWorkspace(func(c *cli.Context, e *env, w *workspace) error {
			start := time.Now()
			if c.IsSet("start") {
				var err error
				if start, _, err = parseWhen(c.String("start"), e.loc); err != nil {
					return err
				}
			}

			form := validate.NewForm(start, e.loc)
			form.Title = c.String("title")
			form.Description = c.String("description")
			form.Location = c.String("location")
			if err := fillForm(c, e, form); err != nil {
				return err
			}

			res, err := w.events.Create(c.Context, form.Draft())
			if err != nil {
				return err
			}
			return report(res, e)
		}),
	}
}

func updateEventCommand() *cli.Command {
	return &cli.Command{
		Name:      "update",
		Usage:     "Change fields of an event you own.",
		ArgsUsage: "<id>",
		Flags:     eventFlags(),
		Action: withWorkspace(func(c *cli.Context, e *env, w *workspace) error {
			id := c.Args().First()
			current, ok := w.events.GetByID(id)
			if !ok {
				return fmt.Errorf("%w: %s", events.ErrNotFound, id)
			}

			form := validate.FormFrom(current, e.loc)
			if c.IsSet("start") {
				start, _, err := parseWhen(c.String("start"), e.loc)
				if err != nil {
					return err
				}
				form.SetStart(start)
			}
			if err := fillForm(c, e, form); err != nil {
				return err
			}
			d := form.Draft()

			var patch models.EventPatch
			for name, field := range map[string]**string{"title": &patch.Title, "description": &patch.Description, "location": &patch.Location} {
				if c.IsSet(name) {
					v := c.String(name)
					*field = &v
				}
			}
			if c.IsSet("start") || c.IsSet("end") || c.IsSet("all-day") {
				patch.Start, patch.End, patch.AllDay = &d.Start, &d.End, &d.AllDay
			}
			if c.IsSet("category") {
				patch.Category = &d.Category
			}
			if c.IsSet("attendee") {
				patch.Attendees = &d.Attendees
			}
			if patch.Empty() {
				return cli.Exit("nothing to update", 2)
			}

			res, err := w.events.Update(c.Context, id, patch)
			if err != nil {
				return err
			}
			return report(res, e)
		}),
	}
}

// fillForm applies the all-day, end, category and attendee flags to form.
// An explicit end the form would have to correct is refused.
func fillForm(c *cli.Context, e *env, form *validate.Form) error {
	if c.IsSet("all-day") {
		form.SetAllDay(c.Bool("all-day"))
	}
	if c.IsSet("end") {
		end, clock, err := parseWhen(c.String("end"), e.loc)
		if err != nil {
			return err
		}
		set := form.SetEndDate
		if clock {
			set = form.SetEnd
		}
		if warning := set(end); warning != "" {
			return cli.Exit(fmt.Sprintf("end %s not accepted: %s", c.String("end"), warning), 1)
		}
	}
	if c.IsSet("category") {
		cat, err := models.ParseCategory(c.String("category"))
		if err != nil {
			return err
		}
		form.Category = cat
	}
	if c.IsSet("attendee") {
		ids, err := resolveUsers(c.Context, e, c.StringSlice("attendee"))
		if err != nil {
			return err
		}
		form.Attendees = ids
	}
	return nil
}

func deleteEventCommand() *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Delete events you own. Unknown IDs are ignored.",
		ArgsUsage: "<id>...",
		Action: withWorkspace(func(c *cli.Context, e *env, w *workspace) error {
			if c.NArg() == 0 {
				return cli.Exit("usage: agenda events delete <id>...", 2)
			}
			for _, id := range c.Args().Slice() {
				res, err := w.events.Delete(c.Context, id)
				if err != nil {
					return err
				}
				if err := report(res, e); err != nil {
					return err
				}
			}
			return nil
		}),
	}
}

func upcomingEventsCommand() *cli.Command {
	return &cli.Command{
		Name:  "upcoming",
		Usage: "List events starting in the next few days.",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "days", Usage: "Window size. Defaults to upcoming_days from the config."},
		},
		Action: withWorkspace(func(c *cli.Context, e *env, w *workspace) error {
			days := e.cfg.UpcomingDays
			if c.IsSet("days") {
				days = c.Int("days")
			}
			return printEvents(os.Stdout, w.events.Upcoming(time.Now(), days), w.session.UserID(), e.loc)
		}),
	}
}

func exportEventsCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Write visible events as an iCalendar document.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Output file. Defaults to stdout."},
		},
		Action: withWorkspace(func(c *cli.Context, e *env, w *workspace) error {
			dir, err := directory(c.Context, e)
			if err != nil {
				return err
			}

			var out io.Writer = os.Stdout
			if path := c.String("out"); path != "" {
				f, err := os.Create(path)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", path, err)
				}
				defer f.Close()
				out = f
			}
			list := w.events.List()
			if err := ics.Export(out, list, dir, time.Now()); err != nil {
				return err
			}
			e.logger.Info("Exported events.", "count", len(list))
			return nil
		}),
	}
}

func importEventsCommand() *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Create events from an iCalendar file.",
		ArgsUsage: "<file.ics>",
		Action: withWorkspace(func(c *cli.Context, e *env, w *workspace) error {
			f, err := os.Open(c.Args().First())
			if err != nil {
				return fmt.Errorf("failed to open calendar file: %w", err)
			}
			defer f.Close()

			dir, err := directory(c.Context, e)
			if err != nil {
				return err
			}
			drafts, err := ics.Import(f, dir, e.loc, e.logger)
			if err != nil {
				return err
			}
			return createAll(c.Context, e, w, drafts)
		}),
	}
}

// createAll creates drafts one by one. Invalid drafts are logged and skipped.
func createAll(ctx context.Context, e *env, w *workspace, drafts []models.EventDraft) error {
	created := 0
	for _, d := range drafts {
		res, err := w.events.Create(ctx, d)
		if err != nil {
			return err
		}
		if res.Rejected {
			fmt.Println(res.Notice)
			return nil
		}
		if len(res.Invalid) > 0 {
			e.logger.Warn("Skipping invalid event.", "title", d.Title, "error", res.Invalid.Error())
			continue
		}
		created++
	}
	fmt.Printf("Imported %d of %d event(s).\n", created, len(drafts))
	return nil
}

func publishEventsCommand() *cli.Command {
	return &cli.Command{
		Name:  "publish",
		Usage: "Mirror the events you own into the configured CalDAV calendar.",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "dry-run", Usage: "Log what would be published without making changes."},
		},
		Action: withWorkspace(func(c *cli.Context, e *env, w *workspace) error {
			if c.Bool("dry-run") {
				e.logger.Info("Performing a dry run. No changes will be made.")
			}
			dir, err := directory(c.Context, e)
			if err != nil {
				return err
			}
			client, err := caldav.NewClient(c.Context, e.logger, caldav.Config{
				Endpoint: e.cfg.CalDAV.Endpoint,
				Username: e.cfg.CalDAV.Username,
				Password: e.cfg.CalDAV.Password,
				Calendar: e.cfg.CalDAV.Calendar,
			}, dir)
			if err != nil {
				return fmt.Errorf("failed to create caldav client: %w", err)
			}

			s := syncer.NewSyncer(e.logger, e.store, client, w.session.UserID(), c.Bool("dry-run"))
			res, err := s.Sync(c.Context, w.events.Created())
			if err != nil {
				return err
			}
			fmt.Printf("Published %d, removed %d, unchanged %d, failed %d.\n", res.Published, res.Removed, res.Unchanged, res.Failed)
			return nil
		}),
	}
}

func directory(ctx context.Context, e *env) (ics.Directory, error) {
	users, err := e.auth.Users(ctx)
	if err != nil {
		return ics.Directory{}, err
	}
	return ics.NewDirectory(users), nil
}

// resolveUsers maps emails to user IDs; plain IDs pass through.
func resolveUsers(ctx context.Context, e *env, refs []string) ([]string, error) {
	users, err := e.auth.Users(ctx)
	if err != nil {
		return nil, err
	}
	byEmail := make(map[string]string, len(users))
	for _, u := range users {
		byEmail[strings.ToLower(u.Email)] = u.ID
	}

	ids := make([]string, 0, len(refs))
	for _, ref := range refs {
		ref = strings.TrimSpace(ref)
		if !strings.Contains(ref, "@") {
			ids = append(ids, ref)
			continue
		}
		id, ok := byEmail[strings.ToLower(ref)]
		if !ok {
			return nil, fmt.Errorf("no user with email %s", ref)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func report(res events.Result, e *env) error {
	switch {
	case res.Rejected:
		fmt.Println(res.Notice)
	case len(res.Invalid) > 0:
		fields := make([]string, 0, len(res.Invalid))
		for f := range res.Invalid {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		for _, f := range fields {
			fmt.Fprintf(os.Stderr, "%s: %s\n", f, res.Invalid[f])
		}
		return cli.Exit("event not saved", 1)
	case res.Notice != "":
		fmt.Printf("%s: %s (%s)\n", res.Notice, res.Event.Title, res.Event.ID)
		e.logger.Debug("Event stored.", "id", res.Event.ID, "updatedAt", res.Event.UpdatedAt)
	}
	return nil
}

// parseWhen reads a date or a date and time in loc. clock reports whether
// a time of day was given.
func parseWhen(s string, loc *time.Location) (t time.Time, clock bool, err error) {
	s = strings.TrimSpace(s)
	for _, layout := range inputLayouts {
		if t, err = time.ParseInLocation(layout, s, loc); err == nil {
			return t, true, nil
		}
	}
	if t, err = time.ParseInLocation(time.DateOnly, s, loc); err == nil {
		return t, false, nil
	}
	return time.Time{}, false, fmt.Errorf("cannot parse %q as a date or date and time", s)
}

func formatSpan(ev models.Event, loc *time.Location) string {
	if ev.AllDay {
		start, end := ev.Start.In(loc).Format(time.DateOnly), ev.End.In(loc).Format(time.DateOnly)
		if start == end {
			return start + " (all day)"
		}
		return start + " - " + end + " (all day)"
	}
	return ev.Start.In(loc).Format(displayLayout) + " - " + ev.End.In(loc).Format(displayLayout)
}

func printEvents(out io.Writer, list []models.Event, userID string, loc *time.Location) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tWHEN\tCATEGORY\tROLE\tTITLE")
	for _, ev := range list {
		role := "owner"
		if !ev.OwnedBy(userID) {
			role = "attendee"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", ev.ID, formatSpan(ev, loc), ev.Category.Label(), role, ev.Title)
	}
	return tw.Flush()
}
