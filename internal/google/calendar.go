package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"postwmt/internal/models"
)

const (
	credentialsFile = "credentials.json"
)

// CalendarClient implements the reconciler's RemoteCalendar contract on
// top of the Google Calendar API.
type CalendarClient struct {
	service    *calendar.Service
	calendarID string
	logger     *slog.Logger
}

// NewClient creates an authenticated Google Calendar client.
// It supports multiple accounts by looking for token files like
// token-user1.json, token-user2.json, etc.; accountName selects one.
func NewClient(ctx context.Context, logger *slog.Logger, clientID, clientSecret, accountName, calendarID string) (*CalendarClient, error) {
	config, err := getOAuthConfig(clientID, clientSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to get OAuth config: %w", err)
	}

	tokenFile := fmt.Sprintf("token-%s.json", accountName)
	token, err := tokenFromFile(tokenFile)
	if err != nil {
		return nil, fmt.Errorf("could not load token for account %s: %w. Please run the 'auth' command first", accountName, err)
	}

	client := config.Client(ctx, token)
	service, err := calendar.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}

	if calendarID == "" {
		calendarID = "primary"
	}
	return &CalendarClient{service: service, calendarID: calendarID, logger: logger}, nil
}

// ListEvents fetches events inside the window, pre-filtered server-side
// to those whose text mentions the tag marker. The reconciler filters
// again before deleting anything.
func (c *CalendarClient) ListEvents(ctx context.Context, window models.SyncWindow) ([]models.RemoteEvent, error) {
	c.logger.Debug("Listing events", "calendarID", c.calendarID,
		"timeMin", window.Start.Format(time.RFC3339), "timeMax", window.End.Format(time.RFC3339))

	var out []models.RemoteEvent
	pageToken := ""
	for {
		call := c.service.Events.List(c.calendarID).
			ShowDeleted(false).
			SingleEvents(true).
			TimeMin(window.Start.Format(time.RFC3339)).
			TimeMax(window.End.Format(time.RFC3339)).
			Q(models.Tag).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		events, err := call.Do()
		if err != nil {
			return nil, classify("list", err)
		}
		for _, item := range events.Items {
			// All-day events have no DateTime; the tool never creates
			// those, so they are never deletion candidates.
			if item.Start == nil || item.Start.DateTime == "" {
				continue
			}
			start, _ := time.Parse(time.RFC3339, item.Start.DateTime)
			end, _ := time.Parse(time.RFC3339, item.End.DateTime)
			out = append(out, models.RemoteEvent{
				ID:          item.Id,
				Title:       item.Summary,
				Description: item.Description,
				Start:       start,
				End:         end,
			})
		}
		pageToken = events.NextPageToken
		if pageToken == "" {
			break
		}
	}

	c.logger.Info("Listed events from Google Calendar", "count", len(out), "calendarID", c.calendarID)
	return out, nil
}

// DeleteEvent removes one event by its Google event ID.
func (c *CalendarClient) DeleteEvent(ctx context.Context, id string) error {
	if err := c.service.Events.Delete(c.calendarID, id).Context(ctx).Do(); err != nil {
		return classify("delete", err)
	}
	return nil
}

// InsertEvent creates one event and returns its Google event ID. Start
// and end go out as RFC3339 instants with the schedule zone attached so
// the calendar UI shows the intended wall-clock times.
func (c *CalendarClient) InsertEvent(ctx context.Context, ev models.Event) (string, error) {
	ge := &calendar.Event{
		Summary:     ev.Title,
		Description: ev.Description,
		Start: &calendar.EventDateTime{
			DateTime: ev.Start.Format(time.RFC3339),
			TimeZone: ev.Start.Location().String(),
		},
		End: &calendar.EventDateTime{
			DateTime: ev.End.Format(time.RFC3339),
			TimeZone: ev.End.Location().String(),
		},
	}
	created, err := c.service.Events.Insert(c.calendarID, ge).Context(ctx).Do()
	if err != nil {
		return "", classify("insert", err)
	}
	return created.Id, nil
}

// classify maps a Google API failure onto the reconciler's retry
// taxonomy.
func classify(op string, err error) error {
	kind := models.RemoteUnknown

	var gerr *googleapi.Error
	var nerr net.Error
	switch {
	case errors.As(err, &gerr):
		switch {
		case gerr.Code == 429 || hasReason(gerr, "rateLimitExceeded", "userRateLimitExceeded"):
			kind = models.RemoteRateLimited
		case gerr.Code == 401 || gerr.Code == 403:
			kind = models.RemoteUnauthorized
		case gerr.Code == 404 || gerr.Code == 410:
			kind = models.RemoteNotFound
		case gerr.Code >= 500:
			kind = models.RemoteTransient
		}
	case errors.As(err, &nerr):
		kind = models.RemoteTransient
	}

	return &models.RemoteError{Kind: kind, Op: op, Err: err}
}

func hasReason(gerr *googleapi.Error, reasons ...string) bool {
	for _, item := range gerr.Errors {
		for _, r := range reasons {
			if item.Reason == r {
				return true
			}
		}
	}
	return false
}

// GetOAuthConfigForAuthFlow is used by the auth command to get the config for the web flow.
func GetOAuthConfigForAuthFlow(clientID, clientSecret string) (*oauth2.Config, error) {
	return getOAuthConfig(clientID, clientSecret)
}

// getOAuthConfig reads credentials and returns an OAuth2 config.
// It prioritizes environment variables over a local credentials.json file.
func getOAuthConfig(clientID, clientSecret string) (*oauth2.Config, error) {
	if clientID != "" && clientSecret != "" {
		return &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  "urn:ietf:wg:oauth:2.0:oob",
			Scopes:       []string{calendar.CalendarEventsScope},
			Endpoint:     google.Endpoint,
		}, nil
	}

	b, err := os.ReadFile(credentialsFile)
	if err != nil {
		if _, ok := err.(*fs.PathError); ok {
			return nil, fmt.Errorf("credentials.json not found. Please provide GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET env vars or place credentials.json in the root directory")
		}
		return nil, fmt.Errorf("unable to read client secret file: %w", err)
	}

	config, err := google.ConfigFromJSON(b, calendar.CalendarEventsScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secret file to config: %w", err)
	}
	config.RedirectURL = "urn:ietf:wg:oauth:2.0:oob" // For desktop app flow
	return config, nil
}

// TokenFromWeb is called by the auth flow to retrieve a token.
func TokenFromWeb(config *oauth2.Config, authCode string) (*oauth2.Token, error) {
	return config.Exchange(context.Background(), authCode)
}

// SaveToken saves a token to a file path.
func SaveToken(path string, token *oauth2.Token) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("unable to create token file: %w", err)
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(token)
}

// tokenFromFile retrieves a token from a local file.
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

// ResolveAccount picks the account whose token to use. An explicit name
// wins; otherwise the single saved token is auto-detected, and anything
// else is an error listing the choices.
func ResolveAccount(name string) (string, error) {
	if name != "" {
		return name, nil
	}
	accounts, err := GetTokenAccounts()
	if err != nil {
		return "", fmt.Errorf("could not look for saved tokens: %w", err)
	}
	switch len(accounts) {
	case 0:
		return "", fmt.Errorf("no Google accounts found. Run the 'auth' command first")
	case 1:
		return accounts[0], nil
	default:
		return "", fmt.Errorf("several Google accounts found (%s); pick one with --account", strings.Join(accounts, ", "))
	}
}

// GetTokenAccounts lists the account names that have saved tokens.
func GetTokenAccounts() ([]string, error) {
	files, err := os.ReadDir(".")
	if err != nil {
		return nil, err
	}

	var accounts []string
	for _, file := range files {
		if strings.HasPrefix(file.Name(), "token-") && strings.HasSuffix(file.Name(), ".json") {
			accountName := strings.TrimSuffix(strings.TrimPrefix(file.Name(), "token-"), ".json")
			accounts = append(accounts, accountName)
		}
	}
	return accounts, nil
}
