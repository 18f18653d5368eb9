package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
)

const listPageSize = 100

// Client implements EventAPI against the Google Calendar v3 API.
type Client struct {
	svc        *gcal.Service
	calendarID string
	tzName     string
}

// NewClient wraps an already-built calendar service. Production code obtains
// clients through Provider.Calendar; tests point the service at a local
// server.
func NewClient(svc *gcal.Service, calendarID, tzName string) *Client {
	return &Client{svc: svc, calendarID: calendarID, tzName: tzName}
}

// ListEvents returns timed events intersecting [timeMin, timeMax], expanded
// from recurrences and ordered by start. All-day entries carry no dateTime
// and are skipped; they do not block hourly slots.
func (c *Client) ListEvents(ctx context.Context, timeMin, timeMax time.Time) ([]Event, error) {
	res, err := c.svc.Events.List(c.calendarID).
		TimeMin(timeMin.Format(time.RFC3339)).
		TimeMax(timeMax.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		MaxResults(listPageSize).
		Context(ctx).Do()
	if err != nil {
		return nil, wrapAPIError("list events", err)
	}

	events := make([]Event, 0, len(res.Items))
	for _, item := range res.Items {
		if item.Start == nil || item.Start.DateTime == "" || item.End == nil || item.End.DateTime == "" {
			continue
		}
		start, err := time.Parse(time.RFC3339, item.Start.DateTime)
		if err != nil {
			continue
		}
		end, err := time.Parse(time.RFC3339, item.End.DateTime)
		if err != nil {
			continue
		}
		events = append(events, Event{
			ID:      item.Id,
			Summary: item.Summary,
			Start:   start,
			End:     end,
		})
	}
	return events, nil
}

// CreateEvent inserts an event on the practice calendar.
func (c *Client) CreateEvent(ctx context.Context, draft EventDraft) (*Event, error) {
	ev := &gcal.Event{
		Summary:     draft.Summary,
		Description: draft.Description,
		Start: &gcal.EventDateTime{
			DateTime: draft.Start.Format(time.RFC3339),
			TimeZone: c.tzName,
		},
		End: &gcal.EventDateTime{
			DateTime: draft.End.Format(time.RFC3339),
			TimeZone: c.tzName,
		},
	}
	created, err := c.svc.Events.Insert(c.calendarID, ev).Context(ctx).Do()
	if err != nil {
		return nil, wrapAPIError("create event", err)
	}
	return &Event{
		ID:      created.Id,
		Summary: created.Summary,
		Start:   draft.Start,
		End:     draft.End,
	}, nil
}

// DeleteEvent removes an event. Deleting an id that is already gone is not a
// failure; compensating rollbacks and cancellations rely on this.
func (c *Client) DeleteEvent(ctx context.Context, id string) error {
	err := c.svc.Events.Delete(c.calendarID, id).Context(ctx).Do()
	if err == nil {
		return nil
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && (gerr.Code == http.StatusNotFound || gerr.Code == http.StatusGone) {
		return nil
	}
	return wrapAPIError("delete event", err)
}

// Watch registers a push-notification channel so calendar edits made outside
// the system trigger the reconciliation sweep.
func (c *Client) Watch(ctx context.Context, address string, ttl time.Duration) (*WatchInfo, error) {
	expiration := time.Now().Add(ttl)
	ch, err := c.svc.Events.Watch(c.calendarID, &gcal.Channel{
		Id:         "turnos-" + uuid.NewString(),
		Type:       "web_hook",
		Address:    address,
		Expiration: expiration.UnixMilli(),
	}).Context(ctx).Do()
	if err != nil {
		return nil, wrapAPIError("watch", err)
	}
	info := &WatchInfo{ChannelID: ch.Id, ResourceID: ch.ResourceId}
	if ch.Expiration > 0 {
		info.Expiration = time.UnixMilli(ch.Expiration).UTC()
	}
	return info, nil
}

func wrapAPIError(op string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return &APIError{Op: op, Status: gerr.Code, Err: err}
	}
	return fmt.Errorf("calendar: %s: %w", op, err)
}
