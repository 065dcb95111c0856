package stats

import "github.com/vmsite/collector/internal/filter"

// Appointment kinds recorded by the booking widgets.
const (
	KindAppointment     = "appointment"
	KindAppointmentGCal = "appointment_gcal"
	KindAppointmentAPI  = "appointment_api"
	KindEmailSend       = "email_send"
	KindSearch          = "search"
	KindClick           = "click"
)

// NullPage labels subscribe clicks recorded without a page.
const NullPage = "(yok)"

var (
	Views    filter.Predicate = filter.KindPrefix{Prefix: "view"}
	Searches filter.Predicate = filter.KindPrefix{Prefix: "search"}
	Clicks   filter.Predicate = filter.KindPrefix{Prefix: "click"}

	Appointments filter.Predicate = filter.KindIn{Kinds: []string{
		KindAppointment, KindAppointmentGCal, KindAppointmentAPI,
	}}
	Emails filter.Predicate = filter.Equals{Field: filter.ColumnKind, Value: KindEmailSend}

	// PageViews are views that carry a page.
	PageViews = filter.All(Views, filter.NotNull{Field: filter.ColumnPage})

	// BlogViews are views of a blog post.
	BlogViews = filter.All(Views, filter.Contains{Field: filter.ColumnPage, Substr: "/blog/"})

	// SearchQueries are searches with a recorded query.
	SearchQueries = filter.All(
		filter.Equals{Field: filter.ColumnKind, Value: KindSearch},
		filter.NotNull{Field: filter.ColumnValue},
	)

	// SubscribeClicks are clicks on a subscribe control or a YouTube link.
	SubscribeClicks = filter.All(
		filter.Equals{Field: filter.ColumnKind, Value: KindClick},
		filter.Any(
			filter.Contains{Field: filter.ColumnElement, Substr: "subscribe"},
			filter.Contains{Field: filter.ColumnProps, Substr: "youtube.com/"},
		),
	)

	// AppointmentsOrEmails feeds the daily time series.
	AppointmentsOrEmails = filter.Any(Appointments, Emails)
)

// IsAppointment reports whether kind counts as an appointment.
func IsAppointment(kind string) bool {
	switch kind {
	case KindAppointment, KindAppointmentGCal, KindAppointmentAPI:
		return true
	}
	return false
}
