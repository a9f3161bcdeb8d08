package jobs

import (
	"errors"
	"strings"

	"github.com/0xPuncker/cronwatch/pkg/types"
	"github.com/sirupsen/logrus"
)

var ErrDuplicateURL = errors.New("url already exists in the list")

// Listing is a job as presented to front ends, with its current 1-based index.
type Listing struct {
	Index      int          `json:"index"`
	Name       string       `json:"name"`
	URL        string       `json:"url"`
	Filter     []FilterSpec `json:"filter,omitempty"`
	Properties *Properties  `json:"properties,omitempty"`
}

type EditResult struct {
	OldName string  `json:"old_name"`
	Job     Listing `json:"job"`
}

type PropertiesResult struct {
	Index      int         `json:"index"`
	Properties *Properties `json:"properties"`
	Updated    []string    `json:"updated,omitempty"`
}

// Service implements the job operations on top of a Store. Every mutation
// is a full load, mutate, save cycle.
type Service struct {
	store  *Store
	logger *logrus.Logger
}

func NewService(store *Store, logger *logrus.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger,
	}
}

func (s *Service) List() []Listing {
	reg := s.store.Load()
	listings := make([]Listing, 0, reg.Len())
	for i, rec := range reg.Records() {
		listings = append(listings, newListing(i+1, rec))
	}
	return listings
}

// Count returns the number of jobs currently on disk.
func (s *Service) Count() int {
	return s.store.Load().Len()
}

func (s *Service) Add(rawURL, name string) (*Listing, error) {
	rawURL = NormalizeURL(rawURL)
	if !ValidateURL(rawURL) {
		return nil, types.NewError(types.InvalidInput, "add_job", "please provide a valid http/https URL")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = rawURL
	}

	var added Listing
	err := s.store.Update(func(reg *Registry) error {
		if reg.ContainsURL(rawURL) {
			return types.WrapError(types.InvalidInput, "add_job", ErrDuplicateURL, "%s", rawURL)
		}
		rec := NewRecord(rawURL, name)
		added = newListing(reg.Append(rec), rec)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"index": added.Index,
		"name":  added.Name,
		"url":   added.URL,
	}).Info("Job added")
	return &added, nil
}

func (s *Service) Edit(index, rawURL, name string) (*EditResult, error) {
	var result EditResult
	err := s.store.Update(func(reg *Registry) error {
		offset, err := ResolveIndex(index, reg)
		if err != nil {
			return err
		}
		if !ValidateURL(rawURL) {
			return types.NewError(types.InvalidInput, "edit_job", "please provide a valid http/https URL")
		}

		newName := strings.TrimSpace(name)
		if newName == "" {
			newName = rawURL
		}

		old := reg.At(offset)
		rec := old.Clone()
		rec.Name = newName
		rec.URL = rawURL
		reg.Replace(offset, rec)

		result = EditResult{OldName: old.DisplayName(), Job: newListing(offset+1, rec)}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"index":    result.Job.Index,
		"old_name": result.OldName,
		"name":     result.Job.Name,
	}).Info("Job updated")
	return &result, nil
}

func (s *Service) Delete(index string) (*Listing, error) {
	var removed Listing
	err := s.store.Update(func(reg *Registry) error {
		offset, err := ResolveIndex(index, reg)
		if err != nil {
			return err
		}
		removed = newListing(offset+1, reg.Remove(offset))
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"index": removed.Index,
		"name":  removed.Name,
	}).Info("Job deleted")
	return &removed, nil
}

// EditFilter replaces the job's filter list. No tokens removes the filter.
func (s *Service) EditFilter(index string, tokens []string) (*Listing, error) {
	var updated Listing
	err := s.store.Update(func(reg *Registry) error {
		offset, err := ResolveIndex(index, reg)
		if err != nil {
			return err
		}
		filters, err := ParseFilters(tokens)
		if err != nil {
			return err
		}
		rec := reg.At(offset)
		rec.SetFilter(filters)
		updated = newListing(offset+1, rec)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"index":   updated.Index,
		"filters": len(updated.Filter),
	}).Info("Job filters updated")
	return &updated, nil
}

// EditProperties sets key:value properties on a job. With no tokens it only
// returns the job's current properties.
func (s *Service) EditProperties(index string, tokens []string) (*PropertiesResult, error) {
	if len(tokens) == 0 {
		reg := s.store.Load()
		offset, err := ResolveIndex(index, reg)
		if err != nil {
			return nil, err
		}
		return &PropertiesResult{Index: offset + 1, Properties: reg.At(offset).Extra.Clone()}, nil
	}

	var result PropertiesResult
	err := s.store.Update(func(reg *Registry) error {
		offset, err := ResolveIndex(index, reg)
		if err != nil {
			return err
		}
		props, err := ParseProperties(tokens)
		if err != nil {
			return err
		}
		rec := reg.At(offset)
		if err := rec.ApplyProperties(props); err != nil {
			return err
		}

		result = PropertiesResult{Index: offset + 1, Properties: rec.Extra.Clone()}
		for _, p := range props {
			result.Updated = append(result.Updated, p.Path())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"index":   result.Index,
		"updated": strings.Join(result.Updated, ","),
	}).Info("Job properties updated")
	return &result, nil
}

func newListing(index int, rec *Record) Listing {
	listing := Listing{
		Index:  index,
		Name:   rec.DisplayName(),
		URL:    rec.URL,
		Filter: rec.Filter,
	}
	if rec.Extra.Len() > 0 {
		listing.Properties = rec.Extra
	}
	return listing
}
