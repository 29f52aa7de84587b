package icloud

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"path"
	"regexp"
	"strconv"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav"
	"github.com/emersion/go-webdav/caldav"
	"github.com/google/uuid"

	"postwmt/internal/ics"
	"postwmt/internal/models"
)

const (
	iCloudCalDAVEndpoint = "https://caldav.icloud.com/"
)

// customTransport handles adding Basic Auth and custom headers to requests.
type customTransport struct {
	Username  string
	Password  string
	Transport http.RoundTripper
}

// RoundTrip adds required headers and authentication to each request.
func (t *customTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.SetBasicAuth(t.Username, t.Password)
	req.Header.Set("User-Agent", "postwmt/1.0")
	return t.Transport.RoundTrip(req)
}

// CalDAVClient implements the reconciler's RemoteCalendar contract on top
// of a CalDAV server (iCloud).
type CalDAVClient struct {
	caldavClient *caldav.Client
	webdavClient *webdav.Client
	logger       *slog.Logger
	calendarPath string
}

// NewClient creates and initializes a new CalDAVClient for iCloud.
func NewClient(logger *slog.Logger, username, password, calendarName string) (*CalDAVClient, error) {
	transport := &customTransport{
		Username:  username,
		Password:  password,
		Transport: http.DefaultTransport,
	}
	httpClient := &http.Client{Transport: transport}

	caldavClient, err := caldav.NewClient(httpClient, iCloudCalDAVEndpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create caldav client: %w", err)
	}

	webdavClient, err := webdav.NewClient(httpClient, iCloudCalDAVEndpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create webdav client: %w", err)
	}

	c := &CalDAVClient{
		caldavClient: caldavClient,
		webdavClient: webdavClient,
		logger:       logger,
	}

	logger.Info("Finding iCloud calendar", "calendarName", calendarName)
	calendarPath, err := c.findCalendar(context.Background(), calendarName)
	if err != nil {
		return nil, fmt.Errorf("could not find calendar '%s': %w", calendarName, err)
	}
	c.calendarPath = calendarPath
	logger.Info("Successfully found iCloud calendar", "path", calendarPath)

	return c, nil
}

// ListEvents runs a calendar-query for the window and returns the events
// found. The object path doubles as the event ID for deletion.
func (c *CalDAVClient) ListEvents(ctx context.Context, window models.SyncWindow) ([]models.RemoteEvent, error) {
	query := &caldav.CalendarQuery{
		CompRequest: caldav.CalendarCompRequest{
			Name: ical.CompCalendar,
			Comps: []caldav.CalendarCompRequest{{
				Name:  ical.CompEvent,
				Props: []string{ical.PropUID, ical.PropSummary, ical.PropDescription, ical.PropDateTimeStart, ical.PropDateTimeEnd},
			}},
		},
		CompFilter: caldav.CompFilter{
			Name: ical.CompCalendar,
			Comps: []caldav.CompFilter{{
				Name:  ical.CompEvent,
				Start: window.Start,
				End:   window.End,
			}},
		},
	}

	objects, err := c.caldavClient.QueryCalendar(ctx, c.calendarPath, query)
	if err != nil {
		return nil, classify("list", err)
	}

	var out []models.RemoteEvent
	for _, obj := range objects {
		if obj.Data == nil {
			continue
		}
		events, err := ics.FromCalendar(obj.Data)
		if err != nil {
			c.logger.Warn("Skipping unreadable calendar object", "path", obj.Path, "error", err)
			continue
		}
		for _, ev := range events {
			out = append(out, models.RemoteEvent{
				ID:          obj.Path,
				Title:       ev.Title,
				Description: ev.Description,
				Start:       ev.Start,
				End:         ev.End,
			})
		}
	}

	c.logger.Info("Listed events from CalDAV calendar", "count", len(out))
	return out, nil
}

// DeleteEvent removes the calendar object at the given path.
func (c *CalDAVClient) DeleteEvent(ctx context.Context, id string) error {
	if err := c.webdavClient.RemoveAll(ctx, id); err != nil {
		return classify("delete", err)
	}
	return nil
}

// InsertEvent uploads a single-VEVENT calendar keyed by the event's UID.
func (c *CalDAVClient) InsertEvent(ctx context.Context, event models.Event) (string, error) {
	if event.UID == "" {
		event.UID = GenerateUID()
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, "-//postwmt//EN")

	ve := ical.NewComponent(ical.CompEvent)
	ve.Props.SetText(ical.PropUID, event.UID)
	ve.Props.SetText(ical.PropSummary, event.Title)
	ve.Props.SetText(ical.PropDescription, event.Description)
	ve.Props.SetDateTime(ical.PropDateTimeStamp, time.Now().UTC())
	ve.Props.SetDateTime(ical.PropDateTimeStart, event.Start.UTC())
	ve.Props.SetDateTime(ical.PropDateTimeEnd, event.End.UTC())
	cal.Children = append(cal.Children, ve)

	objectPath := path.Join(c.calendarPath, fmt.Sprintf("%s.ics", event.UID))
	if _, err := c.caldavClient.PutCalendarObject(ctx, objectPath, cal); err != nil {
		return "", classify("insert", err)
	}

	c.logger.Debug("Uploaded event to CalDAV calendar", "path", objectPath, "title", event.Title)
	return objectPath, nil
}

// findCalendar discovers the user's calendars and returns the path for the one with the matching name.
func (c *CalDAVClient) findCalendar(ctx context.Context, name string) (string, error) {
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
		if cal.Name == name {
			return cal.Path, nil
		}
	}

	return "", fmt.Errorf("no calendar found with name '%s'", name)
}

// GenerateUID creates a new unique identifier for an event.
func GenerateUID() string {
	return uuid.New().String()
}

var statusPattern = regexp.MustCompile(`\b([45][0-9]{2})\b`)

// classify maps a CalDAV failure onto the reconciler's retry taxonomy.
// The webdav client does not expose typed HTTP errors, so the status is
// sniffed from the error text; anything unrecognized but network-shaped
// counts as transient.
func classify(op string, err error) error {
	kind := models.RemoteUnknown

	var nerr net.Error
	if errors.As(err, &nerr) {
		kind = models.RemoteTransient
	} else if m := statusPattern.FindStringSubmatch(err.Error()); m != nil {
		code, _ := strconv.Atoi(m[1])
		switch {
		case code == 429:
			kind = models.RemoteRateLimited
		case code == 401 || code == 403:
			kind = models.RemoteUnauthorized
		case code == 404 || code == 410:
			kind = models.RemoteNotFound
		case code >= 500:
			kind = models.RemoteTransient
		}
	}

	return &models.RemoteError{Kind: kind, Op: op, Err: err}
}
