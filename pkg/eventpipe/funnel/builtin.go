package funnel

import "github.com/randalmurphal/eventpipe/pkg/eventpipe/value"

// Built-in funnel names.
const (
	SearcherConversion   = "searcher_conversion"
	OwnerConversion      = "owner_conversion"
	QuickStartOnboarding = "quick_start_onboarding"
	FullOnboarding       = "full_onboarding"
	Application          = "application"
	Matching             = "matching"
	PremiumUpgrade       = "premium_upgrade"
)

func steps(defs ...[2]string) []Step {
	out := make([]Step, len(defs))
	for i, d := range defs {
		out[i] = Step{Number: i + 1, Name: d[0], Description: d[1]}
	}
	return out
}

func withMode(s []Step, mode string) []Step {
	s[0].Defaults = value.Properties{"mode": value.String(mode)}
	return s
}

// Builtin returns the built-in funnels in their canonical order.
func Builtin() []Funnel {
	return []Funnel{
		{
			Name:        SearcherConversion,
			DisplayName: "Searcher Conversion",
			Description: "Complete journey from landing to first application",
			Steps: steps(
				[2]string{"landing_viewed", "User lands on homepage"},
				[2]string{"signup_started", "User clicks Sign Up"},
				[2]string{"signup_completed", "User completes signup"},
				[2]string{"onboarding_started", "User starts onboarding"},
				[2]string{"onboarding_completed", "User completes onboarding"},
				[2]string{"first_property_viewed", "User views first property"},
				[2]string{"first_application_submitted", "User submits first application"},
			),
		},
		{
			Name:        OwnerConversion,
			DisplayName: "Owner Conversion",
			Description: "From landing to a first published listing",
			Steps: steps(
				[2]string{"landing_viewed", "Owner lands on homepage"},
				[2]string{"signup_started", "Owner clicks Sign Up"},
				[2]string{"signup_completed", "Owner completes signup"},
				[2]string{"listing_started", "Owner starts a listing"},
				[2]string{"details_added", "Listing details added"},
				[2]string{"photos_uploaded", "Listing photos uploaded"},
				[2]string{"property_published", "Listing published"},
			),
		},
		{
			Name:        QuickStartOnboarding,
			DisplayName: "Quick Start Onboarding",
			Description: "Quick Start onboarding flow",
			Steps: withMode(steps(
				[2]string{"mode_selected", "User selects Quick Start mode"},
				[2]string{"basic_info_completed", "Basic Info completed"},
				[2]string{"budget_location_completed", "Budget & Location completed"},
				[2]string{"lifestyle_completed", "Lifestyle preferences completed"},
				[2]string{"availability_completed", "Availability completed"},
				[2]string{"onboarding_completed", "Onboarding completed"},
			), "quick"),
		},
		{
			Name:        FullOnboarding,
			DisplayName: "Full Onboarding",
			Description: "Complete onboarding flow with compatibility and verification",
			Steps: withMode(steps(
				[2]string{"mode_selected", "User selects full mode"},
				[2]string{"personal_info_completed", "Personal info completed"},
				[2]string{"budget_location_completed", "Budget & Location completed"},
				[2]string{"lifestyle_completed", "Lifestyle preferences completed"},
				[2]string{"preferences_completed", "Housing preferences completed"},
				[2]string{"compatibility_completed", "Compatibility questions completed"},
				[2]string{"verification_completed", "Identity verification completed"},
				[2]string{"onboarding_completed", "Onboarding completed"},
			), "full"),
		},
		{
			Name:        Application,
			DisplayName: "Rental Application",
			Description: "From viewing a property to an accepted application",
			Steps: steps(
				[2]string{"property_viewed", "Property page viewed"},
				[2]string{"application_started", "Application started"},
				[2]string{"application_form_filled", "Application form filled"},
				[2]string{"documents_uploaded", "Supporting documents uploaded"},
				[2]string{"application_submitted", "Application submitted"},
				[2]string{"application_accepted", "Application accepted by owner"},
			),
		},
		{
			Name:        Matching,
			DisplayName: "Matching",
			Description: "From starting matching to a first message",
			Steps: steps(
				[2]string{"matching_started", "Matching started"},
				[2]string{"first_match_viewed", "First match viewed"},
				[2]string{"match_liked", "Match liked"},
				[2]string{"mutual_match", "Mutual match"},
				[2]string{"message_sent", "First message sent"},
			),
		},
		{
			Name:        PremiumUpgrade,
			DisplayName: "Premium Upgrade",
			Description: "From premium prompt to an active subscription",
			Steps: steps(
				[2]string{"premium_prompt_viewed", "Premium prompt viewed"},
				[2]string{"upgrade_clicked", "Upgrade clicked"},
				[2]string{"pricing_viewed", "Pricing page viewed"},
				[2]string{"plan_selected", "Plan selected"},
				[2]string{"payment_info_entered", "Payment details entered"},
				[2]string{"payment_completed", "Payment completed"},
				[2]string{"subscription_activated", "Subscription activated"},
			),
		},
	}
}
