package destination

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/mmcdole/arrsync/internal/domain"
	"golift.io/starr"
	"golift.io/starr/sonarr"
)

// sonarrAPI is the subset of *sonarr.Sonarr used here
type sonarrAPI interface {
	GetSystemStatusContext(ctx context.Context) (*sonarr.SystemStatus, error)
	GetSeriesLookupContext(ctx context.Context, term string, tvdbID int64) ([]*sonarr.Series, error)
	AddSeriesContext(ctx context.Context, series *sonarr.AddSeriesInput) (*sonarr.Series, error)
	GetQualityProfilesContext(ctx context.Context) ([]*sonarr.QualityProfile, error)
	GetRootFoldersContext(ctx context.Context) ([]*sonarr.RootFolder, error)
	GetTagsContext(ctx context.Context) ([]*starr.Tag, error)
}

var _ sonarrAPI = (*sonarr.Sonarr)(nil)

// SonarrOptions adds the series-only settings
type SonarrOptions struct {
	Options
	SeriesType   string
	SeasonFolder bool
	MonitorAll   bool // false leaves existing seasons unmonitored so only future episodes are
}

// Sonarr implements domain.Destination for series
type Sonarr struct {
	api    sonarrAPI
	opts   SonarrOptions
	logger *slog.Logger
}

// NewSonarr creates a Sonarr destination
func NewSonarr(opts SonarrOptions, logger *slog.Logger) *Sonarr {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.SeriesType == "" {
		opts.SeriesType = "standard"
	}
	return &Sonarr{
		api:    sonarr.New(opts.starrConfig()),
		opts:   opts,
		logger: logger,
	}
}

func (s *Sonarr) Name() string {
	return "Sonarr"
}

// TestConnection checks the system status endpoint
func (s *Sonarr) TestConnection(ctx context.Context) error {
	if _, err := s.api.GetSystemStatusContext(ctx); err != nil {
		return connectionError("Sonarr", err)
	}
	return nil
}

// Add adds the series by TVDB id
func (s *Sonarr) Add(ctx context.Context, ids domain.ProviderIDs, title string, year int) (*domain.AddResult, error) {
	tvdbID, err := strconv.ParseInt(ids.TVDB, 10, 64)
	if err != nil || tvdbID <= 0 {
		return nil, &domain.DestinationError{
			Kind:    domain.ErrDestinationRejected,
			Message: "TVDB ID is required for Sonarr",
			Err:     domain.ErrMissingIdentifier,
		}
	}

	results, err := s.api.GetSeriesLookupContext(ctx, "", tvdbID)
	if err != nil {
		return nil, addError("Sonarr", "series", err)
	}
	if len(results) == 0 || results[0] == nil {
		return nil, notFound("series", "TVDB ID", ids.TVDB, "Sonarr")
	}

	series := results[0]
	if series.ID > 0 {
		s.logger.Debug("series already in sonarr", "tvdb", tvdbID, "id", series.ID)
		return &domain.AddResult{AlreadyExisted: true, DisplayTitle: displayTitle(series.Title, series.Year)}, nil
	}

	input := &sonarr.AddSeriesInput{
		TvdbID:           tvdbID,
		Title:            series.Title,
		TitleSlug:        series.TitleSlug,
		QualityProfileID: s.opts.QualityProfile,
		RootFolderPath:   s.opts.RootFolder,
		Monitored:        s.opts.Monitored,
		SeasonFolder:     s.opts.SeasonFolder,
		SeriesType:       s.opts.SeriesType,
		Seasons:          s.seasons(series.Seasons),
		AddOptions:       &sonarr.AddSeriesOptions{SearchForMissingEpisodes: s.opts.SearchOnAdd},
		Tags:             s.opts.Tags,
	}
	if input.Title == "" {
		input.Title = title
	}

	added, err := s.api.AddSeriesContext(ctx, input)
	if err != nil {
		return nil, addError("Sonarr", "series", err)
	}

	addedYear := added.Year
	if addedYear == 0 {
		addedYear = year
	}
	s.logger.Info("added series to sonarr", "title", added.Title, "tvdb", tvdbID, "id", added.ID)
	return &domain.AddResult{DisplayTitle: displayTitle(added.Title, addedYear)}, nil
}

// seasons marks every known season monitored when MonitorAll is set.
// Otherwise all are unmonitored and the series monitor flag picks up new
// episodes as they air.
func (s *Sonarr) seasons(lookup []*sonarr.Season) []*sonarr.Season {
	out := make([]*sonarr.Season, 0, len(lookup))
	for _, season := range lookup {
		if season == nil {
			continue
		}
		out = append(out, &sonarr.Season{
			SeasonNumber: season.SeasonNumber,
			Monitored:    s.opts.MonitorAll,
		})
	}
	return out
}

// Info fetches the instance version, quality profiles, root folders and tags
func (s *Sonarr) Info(ctx context.Context) (*Info, error) {
	status, err := s.api.GetSystemStatusContext(ctx)
	if err != nil {
		return nil, connectionError("Sonarr", err)
	}

	profiles, err := s.api.GetQualityProfilesContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch quality profiles: %w", err)
	}
	folders, err := s.api.GetRootFoldersContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch root folders: %w", err)
	}
	tags, err := s.api.GetTagsContext(ctx)
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
