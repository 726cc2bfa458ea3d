package tracker

import (
	"context"
	"sync"
	"time"

	"github.com/randalmurphal/eventpipe/pkg/eventpipe/value"
)

// MinTimeOnPage is the shortest visit reported by TrackTimeOnPage.
const MinTimeOnPage = 5 * time.Second

// ScrollThresholds are the depth percentages reported by ScrollDepth.
var ScrollThresholds = []int{25, 50, 75, 100}

// TrackSignupStarted records the start of a signup.
func (t *Tracker) TrackSignupStarted(ctx context.Context, method, userType string) {
	t.TrackEvent(ctx, EventSignupStarted, value.Properties{
		"method":    value.String(method),
		"user_type": value.String(userType),
	})
}

// TrackSignupCompleted records a finished signup.
func (t *Tracker) TrackSignupCompleted(ctx context.Context, method, userType string) {
	t.TrackEvent(ctx, EventSignupCompleted, value.Properties{
		"method":    value.String(method),
		"user_type": value.String(userType),
	})
}

// TrackProfileUpdated records which profile fields changed.
func (t *Tracker) TrackProfileUpdated(ctx context.Context, fields []string) {
	t.TrackEvent(ctx, EventProfileUpdated, value.Properties{
		"fields_updated": value.String(joinFields(fields)),
		"fields_count":   value.Int(int64(len(fields))),
	})
}

// TrackPropertyViewed records a listing view. An empty source means "direct".
func (t *Tracker) TrackPropertyViewed(ctx context.Context, propertyID, source string) {
	if source == "" {
		source = "direct"
	}
	t.TrackEvent(ctx, EventPropertyViewed, value.Properties{
		"property_id": value.String(propertyID),
		"source":      value.String(source),
	})
}

// TrackSearch records a search with its result count. Filters are merged
// into the properties.
func (t *Tracker) TrackSearch(ctx context.Context, term string, results int, filters value.Properties) {
	t.TrackEvent(ctx, EventSearchPerformed, merge(filters, value.Properties{
		"search_term":   value.String(term),
		"results_count": value.Int(int64(results)),
	}))
}

// TrackError records an application error. extra is merged into the
// properties.
func (t *Tracker) TrackError(ctx context.Context, errorType, message string, extra value.Properties) {
	t.TrackEvent(ctx, EventErrorOccurred, merge(extra, value.Properties{
		"error_type":    value.String(errorType),
		"error_message": value.String(message),
	}))
}

// TrackAPIError records a failed API call.
func (t *Tracker) TrackAPIError(ctx context.Context, endpoint string, statusCode int, message string) {
	t.TrackEvent(ctx, EventAPIError, value.Properties{
		"api_endpoint":  value.String(endpoint),
		"status_code":   value.Int(int64(statusCode)),
		"error_message": value.String(message),
	})
}

// TrackFormValidationError records a rejected form field.
func (t *Tracker) TrackFormValidationError(ctx context.Context, form, field, errorType string) {
	t.TrackEvent(ctx, EventFormValidationError, value.Properties{
		"form_name":  value.String(form),
		"field_name": value.String(field),
		"error_type": value.String(errorType),
	})
}

// TrackTimeOnPage records how long a page was visible. Visits not longer
// than MinTimeOnPage are ignored. It reports whether an event was sent.
func (t *Tracker) TrackTimeOnPage(ctx context.Context, path string, spent time.Duration) bool {
	if spent <= MinTimeOnPage {
		return false
	}
	t.TrackEvent(ctx, EventTimeOnPage, value.Properties{
		"time_spent_seconds": value.Int(int64(spent / time.Second)),
		"page_path":          value.String(path),
	})
	return true
}

// ScrollDepth reports each scroll threshold of one page at most once.
type ScrollDepth struct {
	tracker *Tracker
	path    string

	mu      sync.Mutex
	tracked map[int]bool
}

// NewScrollDepth creates a scroll depth reporter for path.
func (t *Tracker) NewScrollDepth(path string) *ScrollDepth {
	return &ScrollDepth{
		tracker: t,
		path:    path,
		tracked: make(map[int]bool, len(ScrollThresholds)),
	}
}

// Observe records every threshold reached by percentage that has not been
// reported yet, and returns them.
func (s *ScrollDepth) Observe(ctx context.Context, percentage float64) []int {
	s.mu.Lock()
	var reached []int
	for _, depth := range ScrollThresholds {
		if percentage >= float64(depth) && !s.tracked[depth] {
			s.tracked[depth] = true
			reached = append(reached, depth)
		}
	}
	s.mu.Unlock()

	for _, depth := range reached {
		s.tracker.TrackEvent(ctx, EventScrollDepth, value.Properties{
			"depth_percentage": value.Int(int64(depth)),
			"page_path":        value.String(s.path),
		})
	}
	return reached
}
