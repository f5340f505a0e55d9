package fetch

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/RaihanArvi/producthunt-scraper/internal/scraper"
)

const siteRoot = "https://www.producthunt.com/"

// parseLeaderboard extracts the day's ranked product stubs from the
// daily leaderboard page.
func parseLeaderboard(doc *goquery.Document) []scraper.Product {
	var products []scraper.Product

	doc.Find(`section[data-test^="post-item-"]`).Each(func(_ int, section *goquery.Selection) {
		nameEl := section.Find(`span[data-test^="post-name"] a`).First()
		taglineEl := section.Find("span.text-secondary").First()
		if nameEl.Length() == 0 || taglineEl.Length() == 0 {
			return
		}

		var topics []string
		section.Find(`a[href^="/topics/"]`).Each(func(_ int, a *goquery.Selection) {
			topics = append(topics, strings.TrimSpace(a.Text()))
		})

		href, _ := nameEl.Attr("href")
		products = append(products, scraper.Product{
			Name:    strings.TrimSpace(nameEl.Text()),
			Tagline: strings.TrimSpace(taglineEl.Text()),
			Topics:  topics,
			PHURL:   href,
		})
	})

	return products
}

// parseProductPage extracts the overview section of a product page.
// Makers and built-with live on separate pages and are attached later.
func parseProductPage(doc *goquery.Document) scraper.ProductPage {
	page := scraper.ProductPage{
		Name:        strings.TrimSpace(doc.Find("main h1").First().Text()),
		Description: strings.TrimSpace(doc.Find("main div.relative.text-16.font-normal.text-gray-700 span").First().Text()),
	}
	doc.Find(`main a[href^="/categories/"]`).Each(func(_ int, a *goquery.Selection) {
		page.Categories = append(page.Categories, strings.TrimSpace(a.Text()))
	})
	return page
}

// parseTeamMembers extracts the maker cards from a product's makers page.
func parseTeamMembers(doc *goquery.Document) []scraper.TeamMember {
	var members []scraper.TeamMember

	doc.Find(`section[data-test^="maker-card"]`).Each(func(_ int, section *goquery.Selection) {
		nameEl := section.Find("a.text-16.font-semibold.text-gray-900").First()
		roleEl := section.Find("a.text-14.text-gray-700").First()
		if nameEl.Length() == 0 || roleEl.Length() == 0 {
			return
		}
		href, _ := nameEl.Attr("href")
		members = append(members, scraper.TeamMember{
			Name: strings.TrimSpace(nameEl.Text()),
			Role: strings.TrimSpace(roleEl.Text()),
			Href: href,
		})
	})

	return members
}

// parseTeamPage extracts the about text and outbound links from a maker
// profile page.
func parseTeamPage(doc *goquery.Document) scraper.TeamPage {
	page := scraper.TeamPage{
		About: strings.TrimSpace(doc.Find("main div:nth-child(1) p").First().Text()),
		Links: []scraper.Link{},
	}
	doc.Find(`a[data-test="user-link"]`).Each(func(_ int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		if !ok || href == "" {
			return
		}
		page.Links = append(page.Links, scraper.Link{
			Type: strings.ToLower(strings.TrimSpace(a.Text())),
			Href: href,
		})
	})
	return page
}

// parseBuiltWith extracts the collapsible groups of a product's
// built-with page.
func parseBuiltWith(doc *goquery.Document) []scraper.BuiltWithGroup {
	var groups []scraper.BuiltWithGroup

	doc.Find("details.group").Each(func(_ int, details *goquery.Selection) {
		group := scraper.BuiltWithGroup{
			GroupName: strings.TrimSpace(details.Find("summary").First().Text()),
		}

		details.Find(`div[data-test^="alternative-item-"]`).Each(func(_ int, item *goquery.Selection) {
			link := item.Find(`a[data-grid-span="1"]`).First()
			if link.Length() == 0 {
				link = item.Find("a[href]").First()
			}
			href, _ := link.Attr("href")

			var categories []string
			item.Find(`a[href^="/categories/"]`).Each(func(_ int, a *goquery.Selection) {
				categories = append(categories, strings.TrimSpace(a.Text()))
			})

			group.Products = append(group.Products, scraper.BuiltWithProduct{
				Name:       strings.TrimSpace(item.Find("span.text-16").First().Text()),
				Tagline:    strings.TrimSpace(item.Find("span.text-secondary").First().Text()),
				Categories: categories,
				PHLink:     resolveSiteURL(href),
			})
		})

		groups = append(groups, group)
	})

	return groups
}

// resolveSiteURL resolves a relative href against the Product Hunt root.
func resolveSiteURL(href string) string {
	if href == "" {
		return ""
	}
	base, err := url.Parse(siteRoot)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
