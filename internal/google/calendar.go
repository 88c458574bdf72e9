package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"agenda/internal/models"
	"agenda/internal/validate"
)

const (
	credentialsFile = "credentials.json"
	redirectURL     = "urn:ietf:wg:oauth:2.0:oob"
	tokenPrefix     = "token-"
	tokenSuffix     = ".json"
)

// CalendarClient reads events from the Google Calendar API.
type CalendarClient struct {
	service *calendar.Service
	logger  *slog.Logger
}

// NewClient creates a client for accountName using the token file stored in
// tokenDir by the auth flow.
func NewClient(ctx context.Context, logger *slog.Logger, clientID, clientSecret, tokenDir, accountName string) (*CalendarClient, error) {
	config, err := getOAuthConfig(clientID, clientSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to get OAuth config: %w", err)
	}

	token, err := tokenFromFile(TokenPath(tokenDir, accountName))
	if err != nil {
		return nil, fmt.Errorf("could not load token for account %s: %w. Please run the 'google-auth' command first", accountName, err)
	}

	client := config.Client(ctx, token)
	service, err := calendar.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}

	return &CalendarClient{service: service, logger: logger}, nil
}

// UpcomingDrafts fetches the events of calendarID starting within the next
// days and converts them into drafts.
func (c *CalendarClient) UpcomingDrafts(ctx context.Context, calendarID string, days int, now time.Time, loc *time.Location) ([]models.EventDraft, error) {
	c.logger.Debug("Fetching upcoming events", "calendarID", calendarID, "days", days)
	tmin := now.UTC().Format(time.RFC3339)
	tmax := now.UTC().AddDate(0, 0, days).Format(time.RFC3339)

	events, err := c.service.Events.List(calendarID).
		Context(ctx).
		ShowDeleted(false).
		SingleEvents(true).
		TimeMin(tmin).
		TimeMax(tmax).
		OrderBy("startTime").
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve events: %w", err)
	}

	c.logger.Info("Fetched events from Google Calendar.", "count", len(events.Items), "calendarID", calendarID)
	return ToDrafts(events.Items, loc, c.logger), nil
}

// Calendars lists the IDs of all calendars of the authenticated account.
func (c *CalendarClient) Calendars(ctx context.Context) ([]string, error) {
	list, err := c.service.CalendarList.List().Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list calendars: %w", err)
	}

	var calendarIDs []string
	for _, item := range list.Items {
		calendarIDs = append(calendarIDs, item.Id)
	}
	return calendarIDs, nil
}

// ToDrafts converts Google events to drafts. Cancelled events and events
// with unreadable times are skipped. Attendees are not carried over since
// they are addresses, not local users.
func ToDrafts(items []*calendar.Event, loc *time.Location, logger *slog.Logger) []models.EventDraft {
	var drafts []models.EventDraft
	for _, item := range items {
		if item == nil || item.Status == "cancelled" || item.Start == nil {
			continue
		}

		start, end, allDay, err := eventTimes(item, loc)
		if err != nil {
			logger.Warn("Skipping Google event with invalid times.", "id", item.Id, "error", err)
			continue
		}

		d := models.EventDraft{
			Title:       item.Summary,
			Description: item.Description,
			Location:    item.Location,
			Start:       start,
			End:         end,
			AllDay:      allDay,
			Category:    models.CategoryOther,
		}
		if strings.TrimSpace(d.Title) == "" {
			d.Title = "(no title)"
		}
		drafts = append(drafts, validate.Normalize(d, loc))
	}
	return drafts
}

func eventTimes(item *calendar.Event, loc *time.Location) (time.Time, time.Time, bool, error) {
	if item.Start.DateTime != "" {
		start, err := time.Parse(time.RFC3339, item.Start.DateTime)
		if err != nil {
			return time.Time{}, time.Time{}, false, err
		}
		end := start
		if item.End != nil && item.End.DateTime != "" {
			if end, err = time.Parse(time.RFC3339, item.End.DateTime); err != nil {
				return time.Time{}, time.Time{}, false, err
			}
		}
		return start.In(loc), end.In(loc), false, nil
	}

	// All-day events carry dates and an exclusive end date.
	start, err := time.ParseInLocation(time.DateOnly, item.Start.Date, loc)
	if err != nil {
		return time.Time{}, time.Time{}, false, err
	}
	end := start
	if item.End != nil && item.End.Date != "" {
		exclusive, err := time.ParseInLocation(time.DateOnly, item.End.Date, loc)
		if err != nil {
			return time.Time{}, time.Time{}, false, err
		}
		if exclusive.After(start) {
			end = exclusive.AddDate(0, 0, -1)
		}
	}
	return start, end, true, nil
}

// GetOAuthConfigForAuthFlow is used by the auth command to get the config for the web flow.
func GetOAuthConfigForAuthFlow(clientID, clientSecret string) (*oauth2.Config, error) {
	return getOAuthConfig(clientID, clientSecret)
}

// getOAuthConfig prefers explicit client credentials over a local credentials.json.
func getOAuthConfig(clientID, clientSecret string) (*oauth2.Config, error) {
	if clientID != "" && clientSecret != "" {
		return &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{calendar.CalendarReadonlyScope},
			Endpoint:     google.Endpoint,
		}, nil
	}

	b, err := os.ReadFile(credentialsFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("credentials.json not found. Please provide GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET env vars or place credentials.json in the working directory")
		}
		return nil, fmt.Errorf("unable to read client secret file: %w", err)
	}

	config, err := google.ConfigFromJSON(b, calendar.CalendarReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secret file to config: %w", err)
	}
	config.RedirectURL = redirectURL
	return config, nil
}

// TokenFromWeb exchanges an authorization code for a token.
func TokenFromWeb(ctx context.Context, config *oauth2.Config, authCode string) (*oauth2.Token, error) {
	return config.Exchange(ctx, authCode)
}

// TokenPath returns the token file of accountName inside dir.
func TokenPath(dir, accountName string) string {
	return filepath.Join(dir, tokenPrefix+accountName+tokenSuffix)
}

// SaveToken writes token to path, readable by the owner only.
func SaveToken(path string, token *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("unable to create token file: %w", err)
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(token)
}

func tokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(tok)
	return tok, err
}

// TokenAccounts lists the account names with a token file in dir.
func TokenAccounts(dir string) ([]string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var accounts []string
	for _, file := range files {
		name := file.Name()
		if strings.HasPrefix(name, tokenPrefix) && strings.HasSuffix(name, tokenSuffix) {
			accounts = append(accounts, strings.TrimSuffix(strings.TrimPrefix(name, tokenPrefix), tokenSuffix))
		}
	}
	return accounts, nil
}
