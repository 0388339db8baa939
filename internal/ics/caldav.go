package ics

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav/caldav"

	appLog "alldaycal/internal/log"
)

const userAgent = "alldaycal/1.0"

// basicAuthTransport adds Basic Auth and the user agent to each request.
type basicAuthTransport struct {
	Username  string
	Password  string
	Transport http.RoundTripper
}

func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	if t.Username != "" || t.Password != "" {
		req.SetBasicAuth(t.Username, t.Password)
	}
	req.Header.Set("User-Agent", userAgent)
	return t.Transport.RoundTrip(req)
}

// CalDAVFetcher queries a CalDAV collection for the events in a time range
// and re-encodes them as a single ICS payload.
type CalDAVFetcher struct {
	transport http.RoundTripper
	timeout   time.Duration
}

// NewCalDAVFetcher returns a fetcher using rt, or http.DefaultTransport when
// rt is nil.
func NewCalDAVFetcher(rt http.RoundTripper) *CalDAVFetcher {
	if rt == nil {
		rt = http.DefaultTransport
	}
	return &CalDAVFetcher{transport: rt, timeout: 30 * time.Second}
}

func (f *CalDAVFetcher) Fetch(ctx context.Context, src Source, start, end time.Time) (FetchResult, error) {
	if src.URL == "" {
		return FetchResult{}, errors.New("source URL is empty")
	}

	httpClient := &http.Client{
		Timeout: f.timeout,
		Transport: &basicAuthTransport{
			Username:  src.Username,
			Password:  src.Password,
			Transport: f.transport,
		},
	}
	client, err := caldav.NewClient(httpClient, src.URL)
	if err != nil {
		return FetchResult{}, fmt.Errorf("failed to create caldav client: %w", err)
	}

	calPath, err := resolveCalendar(ctx, client, src.Calendar)
	if err != nil {
		return FetchResult{}, err
	}

	query := &caldav.CalendarQuery{
		CompRequest: caldav.CalendarCompRequest{
			Name:     ical.CompCalendar,
			AllProps: true,
			AllComps: true,
		},
		CompFilter: caldav.CompFilter{
			Name: ical.CompCalendar,
			Comps: []caldav.CompFilter{{
				Name:  ical.CompEvent,
				Start: start.UTC(),
				End:   end.UTC(),
			}},
		},
	}

	appLog.Debug("caldav query start", "id", src.ID, "url", redactURL(src.URL), "calendar", calPath)
	objs, err := client.QueryCalendar(ctx, calPath, query)
	if err != nil {
		return FetchResult{}, fmt.Errorf("caldav query %s: %w", calPath, err)
	}

	body, err := mergeCalendars(objs)
	if err != nil {
		return FetchResult{}, err
	}
	appLog.Info("caldav fetch success", "id", src.ID, "url", redactURL(src.URL), "objects", len(objs), "bytes", len(body))
	return FetchResult{Source: src, Body: body}, nil
}

// resolveCalendar returns the collection path for name. A name starting with
// "/" is taken as a path; anything else is matched against the display names
// of the current user's calendars.
func resolveCalendar(ctx context.Context, client *caldav.Client, name string) (string, error) {
	if strings.HasPrefix(name, "/") {
		return name, nil
	}

	principal, err := client.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to find principal path: %w", err)
	}
	homeSet, err := client.FindCalendarHomeSet(ctx, principal)
	if err != nil {
		return "", fmt.Errorf("failed to find calendar home set: %w", err)
	}
	calendars, err := client.FindCalendars(ctx, homeSet)
	if err != nil {
		return "", fmt.Errorf("failed to find calendars: %w", err)
	}
	if len(calendars) == 0 {
		return "", errors.New("no calendars found")
	}
	if name == "" {
		return calendars[0].Path, nil
	}
	for _, cal := range calendars {
		if cal.Name == name {
			return cal.Path, nil
		}
	}
	return "", fmt.Errorf("no calendar found with name '%s'", name)
}

// mergeCalendars folds the components of every object into one VCALENDAR.
// VTIMEZONE components shared between objects are kept once.
func mergeCalendars(objs []caldav.CalendarObject) ([]byte, error) {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, "-//alldaycal//EN")

	zones := make(map[string]bool)
	for _, obj := range objs {
		if obj.Data == nil {
			continue
		}
		for _, child := range obj.Data.Children {
			if child.Name == ical.CompTimezone {
				id, _ := child.Props.Text(ical.PropTimezoneID)
				if zones[id] {
					continue
				}
				zones[id] = true
			}
			cal.Children = append(cal.Children, child)
		}
	}

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, fmt.Errorf("failed to encode calendar: %w", err)
	}
	return buf.Bytes(), nil
}
