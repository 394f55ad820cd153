package models

// POI is a place record returned by the place lookup provider. ID is the
// provider place id and is the identity key.
type POI struct {
	ID               string   `json:"id" bson:"id"`
	Name             string   `json:"name" bson:"name"`
	Address          string   `json:"address" bson:"address"`
	Category         string   `json:"category" bson:"category"`
	Rating           *float64 `json:"rating,omitempty" bson:"rating,omitempty"`
	UserRatingsTotal *int     `json:"user_ratings_total,omitempty" bson:"userRatingsTotal,omitempty"`
	Lat              float64  `json:"lat" bson:"lat"`
	Lng              float64  `json:"lng" bson:"lng"`
	Description      string   `json:"description,omitempty" bson:"description,omitempty"`
	URL              string   `json:"url,omitempty" bson:"url,omitempty"`
	PhotoURL         string   `json:"photo_url,omitempty" bson:"photoUrl,omitempty"`
}

// QueryParams drives one place lookup. Values are replaced, never edited.
type QueryParams struct {
	City       string   `json:"city" bson:"city"`
	Country    string   `json:"country,omitempty" bson:"country,omitempty"`
	MaxResults int      `json:"max_results" bson:"maxResults"`
	POITypes   []string `json:"poi_types,omitempty" bson:"poiTypes,omitempty"`
	Query      string   `json:"query,omitempty" bson:"query,omitempty"`
}

// MergePOIs folds batches into existing keyed by POI.ID. The first position
// an id was seen at is kept, the value comes from the latest batch holding
// that id. Entries without an id are skipped. The input slices are not
// modified.
func MergePOIs(existing []POI, batches ...[]POI) []POI {
	index := make(map[string]int, len(existing))
	merged := make([]POI, 0, len(existing))

	add := func(p POI) {
		if p.ID == "" {
			return
		}
		if i, ok := index[p.ID]; ok {
			merged[i] = p
			return
		}
		index[p.ID] = len(merged)
		merged = append(merged, p)
	}

	for _, p := range existing {
		add(p)
	}
	for _, batch := range batches {
		for _, p := range batch {
			add(p)
		}
	}
	return merged
}

// RefreshPOIs replaces entries of existing with the latest value for their
// id from batches. Ids not already in existing are ignored, so the set and
// its order never change.
func RefreshPOIs(existing []POI, batches ...[]POI) []POI {
	if len(existing) == 0 {
		return existing
	}
	latest := make(map[string]POI)
	for _, batch := range batches {
		for _, p := range batch {
			if p.ID != "" {
				latest[p.ID] = p
			}
		}
	}
	refreshed := make([]POI, len(existing))
	for i, p := range existing {
		if newer, ok := latest[p.ID]; ok {
			p = newer
		}
		refreshed[i] = p
	}
	return refreshed
}
