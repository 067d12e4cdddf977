package enum

type IntentCategory string

const (
	IntentInterested    IntentCategory = "interested"
	IntentMeetingBooked IntentCategory = "meeting_booked"
	IntentNotInterested IntentCategory = "not_interested"
	IntentSpam          IntentCategory = "spam"
	IntentOutOfOffice   IntentCategory = "out_of_office"
)

func (t IntentCategory) String() string {
	return string(t)
}

// ParseIntentCategory matches case-sensitively against the closed set of
// categories. The bool reports whether the input was a valid category.
func ParseIntentCategory(s string) (IntentCategory, bool) {
	switch IntentCategory(s) {
	case IntentInterested, IntentMeetingBooked, IntentNotInterested, IntentSpam, IntentOutOfOffice:
		return IntentCategory(s), true
	default:
		return "", false
	}
}

// IntentCategories lists every valid category in declaration order.
func IntentCategories() []IntentCategory {
	return []IntentCategory{
		IntentInterested,
		IntentMeetingBooked,
		IntentNotInterested,
		IntentSpam,
		IntentOutOfOffice,
	}
}

type ClassificationSource string

const (
	// ClassificationSourceModel means the category came back from the classifier as-is.
	ClassificationSourceModel ClassificationSource = "model"
	// ClassificationSourceUnrecognizedLabel means the classifier answered with text
	// outside the closed category set and the conservative default was applied.
	ClassificationSourceUnrecognizedLabel ClassificationSource = "unrecognized_label"
	// ClassificationSourceClassifierError means the classifier call failed and the
	// conservative default was applied.
	ClassificationSourceClassifierError ClassificationSource = "classifier_error"
	// ClassificationSourceManual means an operator relabeled the email over the API.
	ClassificationSourceManual ClassificationSource = "manual"
)

func (t ClassificationSource) String() string {
	return string(t)
}

type EmailSecurity string

const (
	EmailSecurityNone EmailSecurity = "none"
	EmailSecurityTLS  EmailSecurity = "tls"
)

func (t EmailSecurity) String() string {
	return string(t)
}

type ImportSource string

const (
	ImportSourceIMAP ImportSource = "imap"
)

func (t ImportSource) String() string {
	return string(t)
}
