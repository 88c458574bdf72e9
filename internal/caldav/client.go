// Package caldav publishes events to a calendar collection on a CalDAV server.
package caldav

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav"
	"github.com/emersion/go-webdav/caldav"

	"agenda/internal/ics"
	"agenda/internal/models"
)

const userAgent = "agenda/1.0"

// Config holds the server credentials and the target calendar's display name.
type Config struct {
	Endpoint string
	Username string
	Password string
	Calendar string
}

// basicAuthTransport adds Basic Auth and a user agent to each request.
type basicAuthTransport struct {
	Username  string
	Password  string
	Transport http.RoundTripper
}

func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.SetBasicAuth(t.Username, t.Password)
	req.Header.Set("User-Agent", userAgent)
	return t.Transport.RoundTrip(req)
}

// Client writes one <event id>.ics object per event into a calendar.
type Client struct {
	caldavClient *caldav.Client
	webdavClient *webdav.Client
	logger       *slog.Logger
	dir          ics.Directory
	calendarPath string
	now          func() time.Time
}

// NewClient connects to cfg.Endpoint and locates the calendar named cfg.Calendar.
func NewClient(ctx context.Context, logger *slog.Logger, cfg Config, dir ics.Directory) (*Client, error) {
	if cfg.Calendar == "" {
		return nil, errors.New("caldav calendar name is empty")
	}
	httpClient := &http.Client{
		Transport: &basicAuthTransport{
			Username:  cfg.Username,
			Password:  cfg.Password,
			Transport: http.DefaultTransport,
		},
		Timeout: 30 * time.Second,
	}

	caldavClient, err := caldav.NewClient(httpClient, cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create caldav client: %w", err)
	}
	webdavClient, err := webdav.NewClient(httpClient, cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create webdav client: %w", err)
	}

	c := &Client{
		caldavClient: caldavClient,
		webdavClient: webdavClient,
		logger:       logger,
		dir:          dir,
		now:          time.Now,
	}

	logger.Info("Finding CalDAV calendar.", "calendar", cfg.Calendar)
	calendarPath, err := c.findCalendar(ctx, cfg.Calendar)
	if err != nil {
		return nil, fmt.Errorf("could not find calendar '%s': %w", cfg.Calendar, err)
	}
	c.calendarPath = calendarPath
	logger.Info("Found CalDAV calendar.", "path", calendarPath)

	return c, nil
}

// PutEvent creates or replaces the calendar object of e.
func (c *Client) PutEvent(ctx context.Context, e models.Event) error {
	cal := ics.NewCalendar()
	cal.Children = append(cal.Children, ics.ToComponent(e, c.dir, c.now()))

	writer, err := c.webdavClient.Create(ctx, c.objectPath(e.ID))
	if err != nil {
		return fmt.Errorf("failed to create event on CalDAV server: %w", err)
	}
	if err := ical.NewEncoder(writer).Encode(cal); err != nil {
		writer.Close()
		return fmt.Errorf("failed to encode event to iCal format: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to upload event: %w", err)
	}

	c.logger.Debug("Published event.", "id", e.ID, "title", e.Title)
	return nil
}

// DeleteEvent removes the calendar object of the event with id.
func (c *Client) DeleteEvent(ctx context.Context, id string) error {
	if err := c.webdavClient.RemoveAll(ctx, c.objectPath(id)); err != nil {
		return fmt.Errorf("failed to delete event %s: %w", id, err)
	}
	c.logger.Debug("Removed published event.", "id", id)
	return nil
}

func (c *Client) objectPath(id string) string {
	return path.Join(c.calendarPath, url.PathEscape(id)+".ics")
}

// findCalendar walks principal, home set and calendars to find the one named name.
func (c *Client) findCalendar(ctx context.Context, name string) (string, error) {
	principalPath, err := c.caldavClient.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to find principal path: %w", err)
	}

	homeSetPath, err := c.caldavClient.FindCalendarHomeSet(ctx, principalPath)
	if err != nil {
		return "", fmt.Errorf("failed to find calendar home set: %w", err)
	}

	calendars, err := c.caldavClient.FindCalendars(ctx, homeSetPath)
	if err != nil {
		return "", fmt.Errorf("failed to find calendars: %w", err)
	}

	for _, cal := range calendars {
		if strings.EqualFold(cal.Name, name) {
			return cal.Path, nil
		}
	}
	return "", fmt.Errorf("no calendar found with name '%s'", name)
}
