package plex

// APIResponse wraps the MediaContainer root of Plex responses
type APIResponse struct {
	MediaContainer MediaContainer `json:"MediaContainer"`
}

// MediaContainer is the root container for Plex API responses
type MediaContainer struct {
	Size      int        `json:"size"`
	TotalSize int        `json:"totalSize,omitempty"`
	Offset    int        `json:"offset,omitempty"`
	Metadata  []Metadata `json:"Metadata,omitempty"`
}

// Metadata is one watchlist entry (movie or show) from the discover provider
type Metadata struct {
	RatingKey     string `json:"ratingKey"`
	Key           string `json:"key,omitempty"`
	GUID          string `json:"guid,omitempty"` // plex://movie/... agent guid
	Guids         []Guid `json:"Guid,omitempty"` // External ids, only on detail responses
	Type          string `json:"type"`
	Title         string `json:"title"`
	Year          int    `json:"year,omitempty"`
	Studio        string `json:"studio,omitempty"`
	ContentRating string `json:"contentRating,omitempty"`
	Summary       string `json:"summary,omitempty"`
	Genres        []Tag  `json:"Genre,omitempty"`
	AddedAt       int64  `json:"addedAt,omitempty"`
}

// Guid is an external id such as "tmdb://603"
type Guid struct {
	ID string `json:"id"`
}

// Tag is a Plex tag element (genre, collection)
type Tag struct {
	Tag string `json:"tag"`
}

// PINResponse represents the response from PIN generation
type PINResponse struct {
	ID        int    `json:"id"`
	Code      string `json:"code"`
	ClientID  string `json:"clientIdentifier"`
	AuthToken string `json:"authToken,omitempty"`
	ExpiresAt string `json:"expiresAt"`
}

// PINCheckResponse represents the response from PIN check
type PINCheckResponse struct {
	ID        int    `json:"id"`
	Code      string `json:"code"`
	AuthToken string `json:"authToken"`
	ExpiresAt string `json:"expiresAt"`
}

// UserResponse represents the authenticated plex.tv account
type UserResponse struct {
	ID       int    `json:"id"`
	UUID     string `json:"uuid"`
	Username string `json:"username"`
	Email    string `json:"email"`
}
