package destination

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/mmcdole/arrsync/internal/domain"
	"golift.io/starr"
	"golift.io/starr/radarr"
)

// radarrAPI is the subset of *radarr.Radarr used here
type radarrAPI interface {
	GetSystemStatusContext(ctx context.Context) (*radarr.SystemStatus, error)
	LookupTMDBContext(ctx context.Context, tmdbID int64) (*radarr.Movie, error)
	AddMovieContext(ctx context.Context, movie *radarr.AddMovieInput) (*radarr.Movie, error)
	GetQualityProfilesContext(ctx context.Context) ([]*radarr.QualityProfile, error)
	GetRootFoldersContext(ctx context.Context) ([]*radarr.RootFolder, error)
	GetTagsContext(ctx context.Context) ([]*starr.Tag, error)
}

var _ radarrAPI = (*radarr.Radarr)(nil)

// Radarr implements domain.Destination for movies
type Radarr struct {
	api    radarrAPI
	opts   Options
	logger *slog.Logger
}

// NewRadarr creates a Radarr destination
func NewRadarr(opts Options, logger *slog.Logger) *Radarr {
	if logger == nil {
		logger = slog.Default()
	}
	return &Radarr{
		api:    radarr.New(opts.starrConfig()),
		opts:   opts,
		logger: logger,
	}
}

func (r *Radarr) Name() string {
	return "Radarr"
}

// TestConnection checks the system status endpoint
func (r *Radarr) TestConnection(ctx context.Context) error {
	if _, err := r.api.GetSystemStatusContext(ctx); err != nil {
		return connectionError("Radarr", err)
	}
	return nil
}

// Add adds the movie by TMDB id. A movie already in the library is
// reported as AlreadyExisted rather than an error.
func (r *Radarr) Add(ctx context.Context, ids domain.ProviderIDs, title string, year int) (*domain.AddResult, error) {
	tmdbID, err := strconv.ParseInt(ids.TMDB, 10, 64)
	if err != nil || tmdbID <= 0 {
		return nil, &domain.DestinationError{
			Kind:    domain.ErrDestinationRejected,
			Message: "TMDB ID is required for Radarr",
			Err:     domain.ErrMissingIdentifier,
		}
	}

	movie, err := r.api.LookupTMDBContext(ctx, tmdbID)
	if err != nil {
		return nil, addError("Radarr", "movie", err)
	}
	if movie == nil || (movie.TmdbID == 0 && movie.Title == "") {
		return nil, notFound("movie", "TMDB ID", ids.TMDB, "Radarr")
	}

	if movie.ID > 0 {
		r.logger.Debug("movie already in radarr", "tmdb", tmdbID, "id", movie.ID)
		return &domain.AddResult{AlreadyExisted: true, DisplayTitle: displayTitle(movie.Title, movie.Year)}, nil
	}

	input := &radarr.AddMovieInput{
		Title:            movie.Title,
		TitleSlug:        movie.TitleSlug,
		TmdbID:           tmdbID,
		Year:             movie.Year,
		QualityProfileID: r.opts.QualityProfile,
		RootFolderPath:   r.opts.RootFolder,
		Monitored:        r.opts.Monitored,
		AddOptions:       &radarr.AddMovieOptions{SearchForMovie: r.opts.SearchOnAdd},
		Tags:             r.opts.Tags,
	}
	if input.Title == "" {
		input.Title = title
	}
	if input.Year == 0 {
		input.Year = year
	}

	added, err := r.api.AddMovieContext(ctx, input)
	if err != nil {
		return nil, addError("Radarr", "movie", err)
	}

	r.logger.Info("added movie to radarr", "title", added.Title, "tmdb", tmdbID, "id", added.ID)
	return &domain.AddResult{DisplayTitle: displayTitle(added.Title, added.Year)}, nil
}

// Info fetches the instance version, quality profiles, root folders and tags
func (r *Radarr) Info(ctx context.Context) (*Info, error) {
	status, err := r.api.GetSystemStatusContext(ctx)
	if err != nil {
		return nil, connectionError("Radarr", err)
	}

	profiles, err := r.api.GetQualityProfilesContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch quality profiles: %w", err)
	}
	folders, err := r.api.GetRootFoldersContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch root folders: %w", err)
	}
	tags, err := r.api.GetTagsContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tags: %w", err)
	}

	info := &Info{Version: status.Version, Tags: convertTags(tags)}
	for _, p := range profiles {
		info.QualityProfiles = append(info.QualityProfiles, Profile{ID: p.ID, Name: p.Name})
	}
	for _, f := range folders {
		info.RootFolders = append(info.RootFolders, RootFolder{Path: f.Path, FreeSpace: f.FreeSpace})
	}
	return info, nil
}
