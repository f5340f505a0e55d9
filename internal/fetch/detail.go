package fetch

import (
	"context"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/RaihanArvi/producthunt-scraper/internal/scraper"
	"github.com/RaihanArvi/producthunt-scraper/internal/snapshot"
)

// ProductFetcher implements scraper.DetailFetcher. One detail fetch walks
// the product's overview page, its makers page, every maker's profile,
// and its built-with page, and assembles the full record.
type ProductFetcher struct {
	renderer  Renderer
	snapshots snapshot.Store
	logger    *zap.Logger
}

// NewProductFetcher constructs a ProductFetcher. A nil snapshot store
// disables archiving.
func NewProductFetcher(renderer Renderer, snapshots snapshot.Store, logger *zap.Logger) *ProductFetcher {
	if snapshots == nil {
		snapshots = snapshot.Noop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProductFetcher{renderer: renderer, snapshots: snapshots, logger: logger}
}

// FetchDetail fills in the stub's product page. The overview page is
// required; secondary pages (makers, profiles, built-with) degrade to
// empty sections on failure rather than failing the item.
func (f *ProductFetcher) FetchDetail(ctx context.Context, stub scraper.Product) (scraper.Product, error) {
	productURL := strings.TrimSuffix(resolveSiteURL(stub.PHURL), "/") + "/"
	slug := path.Base(strings.TrimSuffix(stub.PHURL, "/"))

	overview, err := f.renderDoc(ctx, productURL, "products/"+slug+"/overview.html")
	if err != nil {
		return stub, &scraper.FetchError{URL: productURL, Err: err}
	}
	page := parseProductPage(overview)
	page.WebsiteLink = productURL

	page.TeamMembers = f.fetchTeam(ctx, productURL, slug)
	page.BuiltWith = f.fetchBuiltWith(ctx, productURL, slug)

	full := stub
	full.Page = &page
	return full, nil
}

func (f *ProductFetcher) fetchTeam(ctx context.Context, productURL, slug string) []scraper.TeamMember {
	makersURL := productURL + "makers"
	doc, err := f.renderDoc(ctx, makersURL, "products/"+slug+"/makers.html")
	if err != nil {
		f.logger.Warn("Makers page fetch failed", zap.String("url", makersURL), zap.Error(err))
		return nil
	}

	members := parseTeamMembers(doc)
	for i, member := range members {
		profileURL := resolveSiteURL(member.Href)
		profile, err := f.renderDoc(ctx, profileURL, "makers/"+path.Base(member.Href)+".html")
		if err != nil {
			f.logger.Warn("Maker profile fetch failed", zap.String("url", profileURL), zap.Error(err))
			continue
		}
		teamPage := parseTeamPage(profile)
		members[i].Page = &teamPage
	}
	return members
}

func (f *ProductFetcher) fetchBuiltWith(ctx context.Context, productURL, slug string) []scraper.BuiltWithGroup {
	builtWithURL := productURL + "built-with"
	doc, err := f.renderDoc(ctx, builtWithURL, "products/"+slug+"/built-with.html")
	if err != nil {
		f.logger.Warn("Built-with page fetch failed", zap.String("url", builtWithURL), zap.Error(err))
		return nil
	}
	return parseBuiltWith(doc)
}

func (f *ProductFetcher) renderDoc(ctx context.Context, url, snapshotKey string) (*goquery.Document, error) {
	html, err := f.renderer.Render(ctx, url, detailReadySelector)
	if err != nil {
		return nil, err
	}
	if err := f.snapshots.Save(ctx, snapshotKey, []byte(html)); err != nil {
		f.logger.Warn("Snapshot save failed", zap.String("key", snapshotKey), zap.Error(err))
	}
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}
