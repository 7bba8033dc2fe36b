package templates

// LandingPageData contains dynamic values rendered on the decoy landing page.
type LandingPageData struct {
	Title      string
	Tagline    string
	Paragraphs []string
	ArchiveURL string
	FooterNote string
}

// ClientCountView represents one aggregated crawler row on the stats page.
type ClientCountView struct {
	ClientIP string
	Hits     int64
}

// VisitView represents one recorded hit on the stats page.
type VisitView struct {
	ClientIP  string
	UserAgent string
	Path      string
	Seen      string
}

// StatsPageData bundles template data for the operator stats page.
type StatsPageData struct {
	TotalVisits int64
	TopClients  []ClientCountView
	Recent      []VisitView
}

// ErrorPageData holds information for rendering an error view.
type ErrorPageData struct {
	StatusLabel string
	Message     string
}
