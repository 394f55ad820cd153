package places

import (
	"context"
	"errors"
	"strings"
	"testing"

	"wayfarer/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"googlemaps.github.io/maps"
)

type fakeMaps struct {
	results    []maps.PlacesSearchResult
	details    map[string]maps.PlaceDetailsResult
	searchErr  error
	queries    []string
	detailHits []string
}

func (f *fakeMaps) TextSearch(_ context.Context, r *maps.TextSearchRequest) (maps.PlacesSearchResponse, error) {
	f.queries = append(f.queries, r.Query)
	if f.searchErr != nil {
		return maps.PlacesSearchResponse{}, f.searchErr
	}
	return maps.PlacesSearchResponse{Results: f.results}, nil
}

func (f *fakeMaps) PlaceDetails(_ context.Context, r *maps.PlaceDetailsRequest) (maps.PlaceDetailsResult, error) {
	f.detailHits = append(f.detailHits, r.PlaceID)
	d, ok := f.details[r.PlaceID]
	if !ok {
		return maps.PlaceDetailsResult{}, errors.New("NOT_FOUND")
	}
	return d, nil
}

func TestBuildQuery(t *testing.T) {
	tests := []struct {
		name    string
		city    string
		country string
		types   []string
		query   string
		want    string
	}{
		{
			name:    "composed from types",
			city:    "Rome",
			country: "Italy",
			types:   []string{"tourist_attraction", "museum"},
			want:    "top tourist attraction, museum in Rome, Italy",
		},
		{
			name:  "composed without country",
			city:  "Rome",
			types: []string{"park"},
			want:  "top park in Rome",
		},
		{
			name:    "enriched with place",
			city:    "Rome",
			country: "Italy",
			query:   "street food markets",
			want:    "street food markets in Rome, Italy",
		},
		{
			name:    "place already mentioned",
			city:    "Rome",
			country: "Italy",
			query:   "best gelato in rome italy",
			want:    "best gelato in rome italy",
		},
		{
			name:  "blank query is composed",
			city:  "Oslo",
			types: []string{"viewpoint"},
			query: "   ",
			want:  "top viewpoint in Oslo",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildQuery(tt.city, tt.country, tt.types, tt.query))
		})
	}
}

func TestPickCategory(t *testing.T) {
	assert.Equal(t, "museum", PickCategory([]string{"point_of_interest", "museum"}, DefaultTypes))
	assert.Equal(t, "point_of_interest", PickCategory([]string{"point_of_interest"}, DefaultTypes))
	assert.Equal(t, "poi", PickCategory(nil, DefaultTypes))
}

func TestPhotoURL(t *testing.T) {
	u := PhotoURL("ref/1", "k")
	assert.True(t, strings.HasPrefix(u, photoEndpoint+"?"))
	assert.Contains(t, u, "photo_reference=ref%2F1")
	assert.Contains(t, u, "maxwidth=800")
	assert.Empty(t, PhotoURL("", "k"))
}

func TestSearchEnrichesWithDetails(t *testing.T) {
	api := &fakeMaps{
		results: []maps.PlacesSearchResult{
			{PlaceID: "a", Name: "A search"},
			{Name: "no id"},
			{PlaceID: "b", Name: "B search", FormattedAddress: " Via B ", Types: []string{"park"}, Rating: 4.5, UserRatingsTotal: 12},
			{PlaceID: "c", Name: "C search"},
		},
		details: map[string]maps.PlaceDetailsResult{
			"a": {
				PlaceID:          "a",
				Name:             "Colosseum",
				FormattedAddress: "Piazza del Colosseo",
				Types:            []string{"point_of_interest", "tourist_attraction"},
				URL:              "https://maps.example/a",
				Rating:           4.7,
				UserRatingsTotal: 1000,
				EditorialSummary: &maps.PlaceEditorialSummary{Overview: "Ancient amphitheatre"},
				Photos:           []maps.Photo{{PhotoReference: "photo-a"}},
			},
		},
	}
	c, err := newClient(api, "key", 0, zap.NewNop())
	require.NoError(t, err)

	pois, err := c.Search(context.Background(), models.QueryParams{City: "Rome", MaxResults: 3})
	require.NoError(t, err)

	require.Len(t, api.queries, 1)
	assert.Equal(t, "top tourist attraction, museum, historic, landmark, viewpoint, park in Rome", api.queries[0])
	// MaxResults caps search hits before details; the id-less hit is skipped.
	assert.Equal(t, []string{"a", "b"}, api.detailHits)

	require.Len(t, pois, 2)
	assert.Equal(t, "Colosseum", pois[0].Name)
	assert.Equal(t, "tourist_attraction", pois[0].Category)
	assert.Equal(t, "Ancient amphitheatre", pois[0].Description)
	require.NotNil(t, pois[0].Rating)
	assert.InDelta(t, 4.7, *pois[0].Rating, 0.001)
	assert.Contains(t, pois[0].PhotoURL, "photo-a")

	// details failed for b, the search hit is used instead
	assert.Equal(t, "B search", pois[1].Name)
	assert.Equal(t, "Via B", pois[1].Address)
	assert.Equal(t, "park", pois[1].Category)
	require.NotNil(t, pois[1].UserRatingsTotal)
	assert.Equal(t, 12, *pois[1].UserRatingsTotal)
}

func TestSearchEmptyAndErrors(t *testing.T) {
	c, err := newClient(&fakeMaps{}, "key", 0, zap.NewNop())
	require.NoError(t, err)
	pois, err := c.Search(context.Background(), models.QueryParams{City: "Nowhere"})
	require.NoError(t, err)
	assert.Empty(t, pois)

	boom := errors.New("OVER_QUERY_LIMIT")
	c, err = newClient(&fakeMaps{searchErr: boom}, "key", 0, zap.NewNop())
	require.NoError(t, err)
	_, err = c.Search(context.Background(), models.QueryParams{City: "Rome"})
	assert.True(t, errors.Is(err, boom))
}

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient("", 1, zap.NewNop())
	assert.Error(t, err)
}
