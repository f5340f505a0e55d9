// Package scraper defines the core types, interfaces, and orchestration
// engine for the Product Hunt leaderboard scraper.
package scraper

import "time"

// DateLayout is the wire format for scrape dates, in checkpoints,
// warehouse rows, and log fields alike.
const DateLayout = "2006-01-02"

// Product is a single leaderboard entry. The leaderboard list fetch
// produces it with Page nil; the detail fetch fills Page in.
type Product struct {
	Name    string       `json:"name"`
	Tagline string       `json:"tagline"`
	Topics  []string     `json:"topics"`
	PHURL   string       `json:"ph_url"`
	Date    string       `json:"date,omitempty"`
	Page    *ProductPage `json:"product_page,omitempty"`
}

// ProductPage is the fully scraped product detail: overview, makers,
// and the built-with section.
type ProductPage struct {
	Name        string           `json:"product_name"`
	Description string           `json:"product_description"`
	Categories  []string         `json:"categories"`
	WebsiteLink string           `json:"website_link"`
	TeamMembers []TeamMember     `json:"team_members,omitempty"`
	BuiltWith   []BuiltWithGroup `json:"built_with,omitempty"`
}

// TeamMember is one maker listed on a product's makers page.
type TeamMember struct {
	Name string    `json:"name"`
	Role string    `json:"role"`
	Href string    `json:"href"`
	Page *TeamPage `json:"team_page,omitempty"`
}

// TeamPage is the about section of a maker's profile page.
type TeamPage struct {
	About string `json:"about"`
	Links []Link `json:"links"`
}

// Link is a single outbound link on a maker profile (twitter, website, ...).
type Link struct {
	Type string `json:"type"`
	Href string `json:"href"`
}

// BuiltWithGroup is one collapsible group in a product's built-with section.
type BuiltWithGroup struct {
	GroupName string             `json:"group_name"`
	Products  []BuiltWithProduct `json:"products"`
}

// BuiltWithProduct is a product referenced inside a built-with group.
type BuiltWithProduct struct {
	Name       string   `json:"name"`
	Tagline    string   `json:"tagline"`
	Categories []string `json:"categories"`
	PHLink     string   `json:"ph_link"`
}

// Record is a completed product ready for sink delivery. Rank is the
// product's position on that day's leaderboard, starting at zero.
// Records are immutable once produced; sinks must not mutate them.
type Record struct {
	Date    string  `json:"date"`
	Rank    int     `json:"rank"`
	Product Product `json:"product"`
}

// DayStats summarizes one processed date for logs and metrics.
type DayStats struct {
	Date         time.Time
	Listed       int
	Succeeded    int
	Failed       int
	SinkFailures int
}
