// Package destination adds resolved titles to Radarr and Sonarr
package destination

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/arrsync/internal/domain"
	"golift.io/starr"
)

const defaultTimeout = 30 * time.Second

// Info describes a destination instance for `radarr info` / `sonarr info`
type Info struct {
	Version         string
	QualityProfiles []Profile
	RootFolders     []RootFolder
	Tags            []Tag
}

type Profile struct {
	ID   int64
	Name string
}

type RootFolder struct {
	Path      string
	FreeSpace int64
}

type Tag struct {
	ID    int
	Label string
}

// Options are the add settings shared by Radarr and Sonarr
type Options struct {
	URL            string
	APIKey         string
	QualityProfile int64
	RootFolder     string
	Monitored      bool
	SearchOnAdd    bool
	Tags           []int
}

func (o Options) starrConfig() *starr.Config {
	return starr.New(o.APIKey, strings.TrimRight(o.URL, "/"), defaultTimeout)
}

// validationError is one entry of the arr validation error array
type validationError struct {
	PropertyName string `json:"propertyName"`
	ErrorMessage string `json:"errorMessage"`
}

// addError converts a failed add into a *domain.DestinationError. what is
// "movie" or "series".
func addError(service, what string, err error) error {
	var reqErr *starr.ReqError
	if errors.As(err, &reqErr) && reqErr.Code >= 400 && reqErr.Code < 500 {
		return &domain.DestinationError{
			Kind:    domain.ErrDestinationRejected,
			Message: fmt.Sprintf("Failed to add %s: %s", what, rejectionMessage(reqErr)),
			Err:     err,
		}
	}
	return &domain.DestinationError{
		Kind:    domain.ErrTransport,
		Message: fmt.Sprintf("Failed to add %s to %s: %v", what, service, err),
		Err:     err,
	}
}

// rejectionMessage joins the errorMessage fields of a validation response
func rejectionMessage(reqErr *starr.ReqError) string {
	var verrs []validationError
	if err := json.Unmarshal([]byte(reqErr.Body), &verrs); err == nil {
		msgs := make([]string, 0, len(verrs))
		for _, v := range verrs {
			if v.ErrorMessage != "" {
				msgs = append(msgs, v.ErrorMessage)
			}
		}
		if len(msgs) > 0 {
			return strings.Join(msgs, "; ")
		}
	}
	if body := strings.TrimSpace(string(reqErr.Body)); body != "" {
		return body
	}
	return http.StatusText(reqErr.Code)
}

// connectionError classifies a failed status call
func connectionError(service string, err error) error {
	var reqErr *starr.ReqError
	if errors.As(err, &reqErr) && (reqErr.Code == http.StatusUnauthorized || reqErr.Code == http.StatusForbidden) {
		return fmt.Errorf("%w: %s rejected the API key (HTTP %d)", domain.ErrAuthFailed, service, reqErr.Code)
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrConnectivity, service, err)
}

func notFound(what, idName, id, service string) error {
	return &domain.DestinationError{
		Kind:    domain.ErrDestinationRejected,
		Message: fmt.Sprintf("Could not find %s with %s %s in %s", what, idName, id, service),
		Err:     domain.ErrNotFound,
	}
}

func displayTitle(title string, year int) string {
	if year > 0 {
		return fmt.Sprintf("%s (%d)", title, year)
	}
	return title
}

func convertTags(tags []*starr.Tag) []Tag {
	out := make([]Tag, 0, len(tags))
	for _, t := range tags {
		out = append(out, Tag{ID: t.ID, Label: t.Label})
	}
	return out
}
