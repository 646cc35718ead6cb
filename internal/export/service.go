// Package export renders marketing reports as CSV and publishes them to
// object storage behind short-lived download links.
package export

import (
	"context"
	"errors"
	"fmt"
	"time"

	"eagleeye/api/internal/store"
	"eagleeye/api/internal/util"
)

// ErrUnavailable is returned when no object store is configured.
var ErrUnavailable = errors.New("export storage unavailable")

type Kind string

const (
	KindNeighborhoods Kind = "neighborhoods"
	KindLeads         Kind = "leads"
)

func ParseKind(value string) (Kind, bool) {
	switch Kind(value) {
	case KindNeighborhoods, KindLeads:
		return Kind(value), true
	}
	return "", false
}

// Sink stores rendered exports.
type Sink interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// Result points at a published export.
type Result struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	Rows      int       `json:"rows"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type Service struct {
	sink Sink
	ttl  time.Duration
	now  func() time.Time
}

// NewService creates an export service. sink may be nil, in which case every
// export fails with ErrUnavailable.
func NewService(sink Sink, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Service{sink: sink, ttl: ttl, now: time.Now}
}

func (s *Service) Available() bool {
	return s != nil && s.sink != nil
}

func (s *Service) ExportNeighborhoods(ctx context.Context, rows []store.NeighborhoodPerformance) (Result, error) {
	if !s.Available() {
		return Result{}, ErrUnavailable
	}
	data, err := NeighborhoodsCSV(rows)
	if err != nil {
		return Result{}, err
	}
	return s.publish(ctx, KindNeighborhoods, data, len(rows))
}

func (s *Service) ExportLeads(ctx context.Context, leads []store.Lead) (Result, error) {
	if !s.Available() {
		return Result{}, ErrUnavailable
	}
	data, err := LeadsCSV(leads)
	if err != nil {
		return Result{}, err
	}
	return s.publish(ctx, KindLeads, data, len(leads))
}

func (s *Service) publish(ctx context.Context, kind Kind, data []byte, rows int) (Result, error) {
	now := s.now().UTC()
	key := fmt.Sprintf("exports/%s/%s-%s.csv", kind, now.Format("20060102T150405Z"), util.NewID("")[:8])
	if err := s.sink.Put(ctx, key, data, "text/csv; charset=utf-8"); err != nil {
		return Result{}, err
	}
	url, err := s.sink.PresignGet(ctx, key, s.ttl)
	if err != nil {
		return Result{}, err
	}
	return Result{Key: key, URL: url, Rows: rows, ExpiresAt: now.Add(s.ttl)}, nil
}
