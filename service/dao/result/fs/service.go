package fs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/option"
	"github.com/viant/afs/url"
	"github.com/viant/parally/service/dao"
	"github.com/viant/parally/service/dao/result"
)

// Service stores every result record as a JSON file under baseURL.
type Service struct {
	baseURL string
	fs      afs.Service
	mu      sync.RWMutex
}

var _ dao.Service[string, result.Record] = (*Service)(nil)

// Save persists a record.
func (s *Service) Save(ctx context.Context, record *result.Record) error {
	if record == nil {
		return dao.ErrNilEntity
	}
	if record.ID == "" {
		return dao.ErrInvalidID
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal result %v: %w", record.ID, err)
	}
	URL := s.recordURL(record.ID)
	if err = s.fs.Upload(ctx, URL, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to save result to %s: %w", URL, err)
	}
	return nil
}

// Load retrieves a record.
func (s *Service) Load(ctx context.Context, id string) (*result.Record, error) {
	if id == "" {
		return nil, dao.ErrInvalidID
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	URL := s.recordURL(id)
	exists, err := s.fs.Exists(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to check if result exists: %w", err)
	}
	if !exists {
		return nil, dao.ErrNotFound
	}
	data, err := s.fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to read result file: %w", err)
	}
	record := &result.Record{}
	if err := json.Unmarshal(data, record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal result %v: %w", URL, err)
	}
	return record, nil
}

// Delete removes a record.
func (s *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return dao.ErrInvalidID
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	URL := s.recordURL(id)
	exists, err := s.fs.Exists(ctx, URL)
	if err != nil {
		return fmt.Errorf("failed to check if result exists: %w", err)
	}
	if !exists {
		return dao.ErrNotFound
	}
	if err := s.fs.Delete(ctx, URL); err != nil {
		return fmt.Errorf("failed to delete result file: %w", err)
	}
	return nil
}

// List returns matching records ordered by session and sequence.
func (s *Service) List(ctx context.Context, parameters ...*dao.Parameter) ([]*result.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if exists, _ := s.fs.Exists(ctx, s.baseURL); !exists {
		return nil, nil
	}
	objects, err := s.fs.List(ctx, s.baseURL, option.NewRecursive(true))
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	var records []*result.Record
outer:
	for _, object := range objects {
		if object.IsDir() || !strings.HasSuffix(object.Name(), ".json") {
			continue
		}
		data, err := s.fs.Download(ctx, object)
		if err != nil {
			log.Printf("failed to read result file %s: %v", object.URL(), err)
			continue
		}
		record := &result.Record{}
		if err := json.Unmarshal(data, record); err != nil {
			log.Printf("failed to unmarshal result from %s: %v", object.URL(), err)
			continue
		}
		for _, parameter := range parameters {
			if !parameter.Matches(record.Field(parameter.Name)) {
				continue outer
			}
		}
		records = append(records, record)
	}
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].Session != records[j].Session {
			return records[i].Session < records[j].Session
		}
		return records[i].Seq < records[j].Seq
	})
	return records, nil
}

func (s *Service) recordURL(id string) string {
	return url.Join(s.baseURL, id+".json")
}

// New creates a journal rooted at baseURL, any afs URL (file path, mem://, s3://…).
func New(baseURL string) (*Service, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("base URL cannot be empty")
	}
	if !strings.Contains(baseURL, "://") {
		baseURL = url.Normalize(path.Clean(baseURL), file.Scheme)
	}
	return &Service{baseURL: baseURL, fs: afs.New()}, nil
}
