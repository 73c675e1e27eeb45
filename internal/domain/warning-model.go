package domain

// WarningSeverity is the ordered hazard intensity scale used by the NINA API.
// The zero value means the severity could not be classified; such warnings
// are manual-review material and never trigger automatic notifications.
type WarningSeverity int

const (
	SeverityUnknown  WarningSeverity = 0
	SeverityMinor    WarningSeverity = 1
	SeverityModerate WarningSeverity = 2
	SeveritySevere   WarningSeverity = 3
	SeverityExtreme  WarningSeverity = 4
)

// ParseSeverity maps the API severity string onto the ordinal scale.
// Anything unrecognized degrades to SeverityUnknown.
func ParseSeverity(s string) WarningSeverity {
	switch s {
	case "Minor":
		return SeverityMinor
	case "Moderate":
		return SeverityModerate
	case "Severe":
		return SeveritySevere
	case "Extreme":
		return SeverityExtreme
	default:
		return SeverityUnknown
	}
}

func (s WarningSeverity) String() string {
	switch s {
	case SeverityMinor:
		return "Minor"
	case SeverityModerate:
		return "Moderate"
	case SeveritySevere:
		return "Severe"
	case SeverityExtreme:
		return "Extreme"
	default:
		return "Unknown"
	}
}

// Rank returns the position on the total order. Unknown ranks at 0 and is
// excluded from matching.
func (s WarningSeverity) Rank() int { return int(s) }

// WarningCategory identifies one of the NINA warning feeds.
type WarningCategory string

const (
	CategoryWeather WarningCategory = "weather"
	CategoryFlood   WarningCategory = "flood"
	CategoryBiwapp  WarningCategory = "biwapp"
	CategoryKatwarn WarningCategory = "katwarn"
	CategoryMowas   WarningCategory = "mowas"
	CategoryPolice  WarningCategory = "police"
)

// AllCategories lists every feed the poller fetches, in a stable order.
func AllCategories() []WarningCategory {
	return []WarningCategory{
		CategoryWeather,
		CategoryFlood,
		CategoryBiwapp,
		CategoryKatwarn,
		CategoryMowas,
		CategoryPolice,
	}
}

// ParseCategory validates a category string coming from a callback payload.
func ParseCategory(s string) (WarningCategory, bool) {
	switch WarningCategory(s) {
	case CategoryWeather, CategoryFlood, CategoryBiwapp, CategoryKatwarn, CategoryMowas, CategoryPolice:
		return WarningCategory(s), true
	}
	return "", false
}

// Warning is one active warning as returned by a category feed.
type Warning struct {
	ID        string
	Version   int
	StartDate string
	Severity  WarningSeverity
	Category  WarningCategory
	Title     string
}

// DetailedWarningArea names a region the warning applies to.
type DetailedWarningArea struct {
	Description string
	Geocodes    []string
}

// DetailedWarning carries the richer fields fetched per warning id. Used only
// when rendering a notification, never during matching.
type DetailedWarning struct {
	ID          string
	Sender      string
	DateSent    string
	Status      string
	Event       string
	Severity    WarningSeverity
	DateExpires string
	Headline    string
	Description string
	Areas       []DetailedWarningArea
	WarningURL  string
}
