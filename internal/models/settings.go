package models

// Settings represents application-wide settings
type Settings struct {
	WeekConvention string `json:"week_convention"` // "iso" (Monday start) or "us" (Sunday start)
	Timezone       string `json:"timezone"`        // IANA timezone name, or "Local" for the system timezone
}
