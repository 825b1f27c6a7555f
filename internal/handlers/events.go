package handlers

import (
	"net/http"
	"time"

	"church-site-backend/internal/models"
	"church-site-backend/internal/services"

	"github.com/go-chi/chi/v5"
)

// EventHandler handles recurring events and the dated calendar
type EventHandler struct {
	events   *services.EventStore
	calendar *services.CalendarStore
}

// NewEventHandler creates a new event handler
func NewEventHandler(events *services.EventStore, calendar *services.CalendarStore) *EventHandler {
	return &EventHandler{events: events, calendar: calendar}
}

// GetEvents handles GET /api/v1/events
func (h *EventHandler) GetEvents(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, h.events.Events(), http.StatusOK)
}

func eventInputFromForm(r *http.Request) services.EventInput {
	return services.EventInput{
		Title:               r.FormValue("title"),
		Day:                 r.FormValue("day"),
		Time:                r.FormValue("time"),
		Description:         r.FormValue("description"),
		DetailedDescription: r.FormValue("detailed_description"),
		LeaderName:          r.FormValue("leader_name"),
		LeaderRole:          r.FormValue("leader_role"),
	}
}

// CreateEvent handles POST /api/v1/events (multipart, optional "image")
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	if !parseMultipart(w, r, h.events.MaxImageBytes(), 1) {
		return
	}
	image, done, err := formImage(r, "image")
	if err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}
	defer done()

	event, err := h.events.AddEvent(r.Context(), eventInputFromForm(r), image)
	if err != nil {
		respondServiceError(w, err, "add event")
		return
	}
	respondOK(w, event, http.StatusCreated)
}

// UpdateEvent handles PUT /api/v1/events/{id} (multipart, optional "image")
func (h *EventHandler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := int64Param(w, r, "id")
	if !ok || !parseMultipart(w, r, h.events.MaxImageBytes(), 1) {
		return
	}
	image, done, err := formImage(r, "image")
	if err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}
	defer done()

	event, err := h.events.UpdateEvent(r.Context(), id, eventInputFromForm(r), image)
	if err != nil {
		respondServiceError(w, err, "update event")
		return
	}
	respondOK(w, event, http.StatusOK)
}

// DeleteEvent handles DELETE /api/v1/events/{id}
func (h *EventHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := int64Param(w, r, "id")
	if !ok {
		return
	}
	if err := h.events.DeleteEvent(r.Context(), id); err != nil {
		respondServiceError(w, err, "delete event")
		return
	}
	respondOK(w, nil, http.StatusOK)
}

// GetCalendar handles GET /api/v1/calendar?month=2006-01. Without month the
// current window is returned.
func (h *EventHandler) GetCalendar(w http.ResponseWriter, r *http.Request) {
	if month := r.URL.Query().Get("month"); month != "" {
		t, err := time.ParseInLocation("2006-01", month, h.calendar.Location())
		if err != nil {
			respondError(w, "month must be formatted as YYYY-MM", http.StatusBadRequest)
			return
		}
		if err := h.calendar.SetMonth(r.Context(), t); err != nil {
			respondServiceError(w, err, "load calendar")
			return
		}
	}
	from, to := h.calendar.Window(h.calendar.Month())
	respondJSON(w, map[string]interface{}{
		"month":  h.calendar.Month().Format("2006-01"),
		"from":   from,
		"to":     to,
		"events": h.calendar.Events(),
	}, http.StatusOK)
}

// GetCalendarDay handles GET /api/v1/calendar/day/{date}
func (h *EventHandler) GetCalendarDay(w http.ResponseWriter, r *http.Request) {
	date, err := time.ParseInLocation(time.DateOnly, chi.URLParam(r, "date"), h.calendar.Location())
	if err != nil {
		respondError(w, "date must be formatted as YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	events := h.calendar.EventsForDate(date)
	if events == nil {
		events = []models.CalendarEvent{}
	}
	respondJSON(w, events, http.StatusOK)
}

// CreateCalendarEvent handles POST /api/v1/calendar
func (h *EventHandler) CreateCalendarEvent(w http.ResponseWriter, r *http.Request) {
	var req services.CalendarEventInput
	if !decodeJSON(w, r, &req) {
		return
	}
	event, err := h.calendar.AddEvent(r.Context(), req)
	if err != nil {
		respondServiceError(w, err, "add calendar event")
		return
	}
	respondOK(w, event, http.StatusCreated)
}

// DeleteCalendarEvent handles DELETE /api/v1/calendar/{id}
func (h *EventHandler) DeleteCalendarEvent(w http.ResponseWriter, r *http.Request) {
	if err := h.calendar.DeleteEvent(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondServiceError(w, err, "delete calendar event")
		return
	}
	respondOK(w, nil, http.StatusOK)
}
