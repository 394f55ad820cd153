package places

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"wayfarer/models"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"googlemaps.github.io/maps"
)

const (
	defaultMaxResults = 10
	photoEndpoint     = "https://maps.googleapis.com/maps/api/place/photo"
	fallbackCategory  = "poi"
	unknownAddress    = "Unknown address"
)

// DefaultTypes is used when a query names no POI types.
var DefaultTypes = []string{
	"tourist_attraction",
	"museum",
	"historic",
	"landmark",
	"viewpoint",
	"park",
}

var detailFields = []string{
	"place_id",
	"name",
	"formatted_address",
	"geometry/location",
	"url",
	"editorial_summary",
	"rating",
	"user_ratings_total",
	"types",
	"photos",
}

// mapsAPI is the subset of *maps.Client used here.
type mapsAPI interface {
	TextSearch(ctx context.Context, r *maps.TextSearchRequest) (maps.PlacesSearchResponse, error)
	PlaceDetails(ctx context.Context, r *maps.PlaceDetailsRequest) (maps.PlaceDetailsResult, error)
}

// Client looks POIs up with Places text search and enriches every hit with
// place details.
type Client struct {
	api     mapsAPI
	apiKey  string
	fields  []maps.PlaceDetailsFieldMask
	limiter *rate.Limiter
	logger  *zap.Logger
}

func NewClient(apiKey string, ratePerSec float64, logger *zap.Logger) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("GOOGLE_PLACES_API_KEY not set")
	}
	api, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("places client: %w", err)
	}
	return newClient(api, apiKey, ratePerSec, logger)
}

func newClient(api mapsAPI, apiKey string, ratePerSec float64, logger *zap.Logger) (*Client, error) {
	fields := make([]maps.PlaceDetailsFieldMask, 0, len(detailFields))
	for _, f := range detailFields {
		mask, err := maps.ParsePlaceDetailsFieldMask(f)
		if err != nil {
			return nil, fmt.Errorf("places field %q: %w", f, err)
		}
		fields = append(fields, mask)
	}
	limit := rate.Inf
	if ratePerSec > 0 {
		limit = rate.Limit(ratePerSec)
	}
	return &Client{
		api:     api,
		apiKey:  apiKey,
		fields:  fields,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger,
	}, nil
}

// Search runs one lookup. No hits is an empty result, not an error.
func (c *Client) Search(ctx context.Context, params models.QueryParams) ([]models.POI, error) {
	types := params.POITypes
	if len(types) == 0 {
		types = DefaultTypes
	}
	maxResults := params.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}
	query := BuildQuery(params.City, params.Country, types, params.Query)

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	resp, err := c.api.TextSearch(ctx, &maps.TextSearchRequest{Query: query})
	if err != nil {
		return nil, fmt.Errorf("text search %q: %w", query, err)
	}
	c.logger.Debug("Places text search", zap.String("query", query), zap.Int("results", len(resp.Results)))

	results := resp.Results
	if len(results) > maxResults {
		results = results[:maxResults]
	}

	pois := make([]models.POI, 0, len(results))
	for _, res := range results {
		if res.PlaceID == "" {
			continue
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		details, err := c.api.PlaceDetails(ctx, &maps.PlaceDetailsRequest{
			PlaceID: res.PlaceID,
			Fields:  c.fields,
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.logger.Warn("Place details failed, using search result", zap.String("place_id", res.PlaceID), zap.Error(err))
			pois = append(pois, c.fromSearch(res, types))
			continue
		}
		pois = append(pois, c.fromDetails(details, types))
	}
	return pois, nil
}

func (c *Client) fromDetails(d maps.PlaceDetailsResult, types []string) models.POI {
	p := models.POI{
		ID:       d.PlaceID,
		Name:     d.Name,
		Address:  normalizeAddress(d.FormattedAddress),
		Category: PickCategory(d.Types, types),
		Lat:      d.Geometry.Location.Lat,
		Lng:      d.Geometry.Location.Lng,
		URL:      d.URL,
	}
	if d.EditorialSummary != nil {
		p.Description = d.EditorialSummary.Overview
	}
	setRatings(&p, d.Rating, d.UserRatingsTotal)
	if len(d.Photos) > 0 {
		p.PhotoURL = PhotoURL(d.Photos[0].PhotoReference, c.apiKey)
	}
	return p
}

func (c *Client) fromSearch(r maps.PlacesSearchResult, types []string) models.POI {
	p := models.POI{
		ID:       r.PlaceID,
		Name:     r.Name,
		Address:  normalizeAddress(r.FormattedAddress),
		Category: PickCategory(r.Types, types),
		Lat:      r.Geometry.Location.Lat,
		Lng:      r.Geometry.Location.Lng,
	}
	setRatings(&p, r.Rating, r.UserRatingsTotal)
	if len(r.Photos) > 0 {
		p.PhotoURL = PhotoURL(r.Photos[0].PhotoReference, c.apiKey)
	}
	return p
}

func setRatings(p *models.POI, rating float32, total int) {
	if rating > 0 {
		r := float64(rating)
		p.Rating = &r
	}
	if total > 0 {
		p.UserRatingsTotal = &total
	}
}

// BuildQuery turns params into a text search query. Without a free-text
// query one is composed from the types and place; a given query is enriched
// with the city and country when it does not mention them.
func BuildQuery(city, country string, types []string, query string) string {
	query = strings.TrimSpace(query)
	if query == "" {
		human := make([]string, 0, len(types))
		for _, t := range types {
			human = append(human, strings.ReplaceAll(t, "_", " "))
		}
		q := strings.TrimSpace(fmt.Sprintf("top %s in %s", strings.Join(human, ", "), city))
		if country != "" {
			q += ", " + country
		}
		return q
	}
	lower := strings.ToLower(query)
	if city != "" && !strings.Contains(lower, strings.ToLower(city)) {
		query += " in " + city
	}
	if country != "" && !strings.Contains(lower, strings.ToLower(country)) {
		query += ", " + country
	}
	return query
}

// PickCategory returns the first place type that was asked for, else the
// first place type, else "poi".
func PickCategory(placeTypes, wanted []string) string {
	for _, t := range placeTypes {
		for _, w := range wanted {
			if t == w {
				return t
			}
		}
	}
	if len(placeTypes) > 0 {
		return placeTypes[0]
	}
	return fallbackCategory
}

// PhotoURL builds a Places photo URL for a photo reference.
func PhotoURL(ref, apiKey string) string {
	if ref == "" {
		return ""
	}
	v := url.Values{}
	v.Set("maxwidth", "800")
	v.Set("photo_reference", ref)
	v.Set("key", apiKey)
	return photoEndpoint + "?" + v.Encode()
}

func normalizeAddress(addr string) string {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return unknownAddress
	}
	return addr
}
