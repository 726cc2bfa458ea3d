package tracker

// Generic events emitted by the tracker itself.
const (
	EventPageView   = "page_view"
	EventFunnelStep = "funnel_step"
)

// User lifecycle events.
const (
	EventSignupStarted         = "signup_started"
	EventSignupCompleted       = "signup_completed"
	EventLogin                 = "login"
	EventLogout                = "logout"
	EventProfileCreated        = "profile_created"
	EventProfileUpdated        = "profile_updated"
	EventVerificationStarted   = "verification_started"
	EventVerificationCompleted = "verification_completed"
)

// Property listing events.
const (
	EventPropertyCreated     = "property_created"
	EventPropertyViewed      = "property_viewed"
	EventPropertyPublished   = "property_published"
	EventPropertySearch      = "property_search"
	EventPropertyFavorited   = "property_favorited"
	EventPropertyUnfavorited = "property_unfavorited"
)

// Matching events.
const (
	EventMatchingStarted = "matching_started"
	EventMatchFound      = "match_found"
	EventMatchViewed     = "match_viewed"
	EventMatchLiked      = "match_liked"
	EventMatchPassed     = "match_passed"
	EventMatchMutual     = "match_mutual"
)

// Rental application events.
const (
	EventApplicationStarted   = "application_started"
	EventApplicationSubmitted = "application_submitted"
	EventApplicationAccepted  = "application_accepted"
	EventApplicationRejected  = "application_rejected"
	EventViewingRequested     = "viewing_requested"
)

// Onboarding events.
const (
	EventOnboardingStarted       = "onboarding_started"
	EventOnboardingStepCompleted = "onboarding_step_completed"
	EventOnboardingCompleted     = "onboarding_completed"
	EventOnboardingAbandoned     = "onboarding_abandoned"
	EventOnboardingModeSelected  = "onboarding_mode_selected"
)

// Payment events.
const (
	EventPaymentInitiated    = "payment_initiated"
	EventPaymentCompleted    = "payment_completed"
	EventPaymentFailed       = "payment_failed"
	EventSubscriptionStarted = "subscription_started"
)

// Engagement events.
const (
	EventCTAClicked      = "cta_clicked"
	EventButtonClicked   = "button_clicked"
	EventModalOpened     = "modal_opened"
	EventModalClosed     = "modal_closed"
	EventFAQExpanded     = "faq_expanded"
	EventLanguageChanged = "language_changed"
)

// Error events.
const (
	EventErrorOccurred       = "error_occurred"
	EventAPIError            = "api_error"
	EventFormValidationError = "form_validation_error"
)

// Search and reading events.
const (
	EventSearchPerformed     = "search_performed"
	EventSearchFilterApplied = "search_filter_applied"
	EventSearchResultClicked = "search_result_clicked"
	EventTimeOnPage          = "time_on_page"
	EventScrollDepth         = "scroll_depth"
)
