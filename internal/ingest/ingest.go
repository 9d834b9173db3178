// Package ingest runs uploaded files through normalization into the layer
// registry, one file at a time, and reports a status per file.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb/geojson"
	"github.com/rs/zerolog/log"

	"github.com/joeblew999/geoview/internal/config"
	"github.com/joeblew999/geoview/internal/geodata"
	"github.com/joeblew999/geoview/internal/metrics"
	"github.com/joeblew999/geoview/internal/normalize"
	"github.com/joeblew999/geoview/internal/registry"
	"github.com/joeblew999/geoview/internal/style"
)

// Status is the outcome of one uploaded file.
type Status string

const (
	StatusSuccess    Status = "success"
	StatusError      Status = "error"
	StatusCandidates Status = "candidates"
)

// ErrUnknownToken is returned for a candidate set that was never issued or
// is gone.
var ErrUnknownToken = errors.New("unknown candidate token")

// maxPending bounds the candidate sets waiting for a pick.
const maxPending = 16

// TooLargeError rejects a file above the size cap before it is parsed.
type TooLargeError struct {
	File string
	Size int64
	Max  int64
}

func (e *TooLargeError) Error() string {
	return fmt.Sprintf("%s is too large: %d bytes, limit %d MB", e.File, e.Size, e.Max>>20)
}

// Upload is one file handed to the service.
type Upload struct {
	Name string
	Data []byte
}

// FileResult reports what happened to one upload.
type FileResult struct {
	File       string                `json:"file" doc:"Uploaded file name"`
	Format     normalize.Format      `json:"format,omitempty" doc:"Detected format"`
	Status     Status                `json:"status" enum:"success,error,candidates"`
	Message    string                `json:"message" doc:"Human readable outcome"`
	LayerID    string                `json:"layerId,omitempty" doc:"Layer added for the file"`
	Token      string                `json:"token,omitempty" doc:"Candidate set awaiting a pick"`
	Candidates []normalize.Candidate `json:"candidates,omitempty"`
	Warnings   []string              `json:"warnings,omitempty"`
	Err        error                 `json:"-"`
}

type pendingSet struct {
	file       string
	candidates []normalize.Candidate
}

// Service serializes uploads into one registry.
type Service struct {
	reg     *registry.Registry
	maxSize int64
	opts    normalize.Options

	// batch serializes files: each one finishes before the next starts.
	batch sync.Mutex

	mu      sync.Mutex
	pending map[string]*pendingSet
	order   []string
}

// Option configures a Service.
type Option func(*Service)

// WithMaxFileSize sets the upload cap in bytes.
func WithMaxFileSize(n int64) Option {
	return func(s *Service) { s.maxSize = n }
}

// WithNormalizeOptions passes options to every normalizer.
func WithNormalizeOptions(o normalize.Options) Option {
	return func(s *Service) { s.opts = o }
}

// New creates a Service adding layers to reg.
func New(reg *registry.Registry, opts ...Option) *Service {
	s := &Service{
		reg:     reg,
		maxSize: config.DefaultMaxFileSize,
		pending: map[string]*pendingSet{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MaxFileSize returns the upload cap in bytes.
func (s *Service) MaxFileSize() int64 { return s.maxSize }

// Ingest processes files in order. A failing file never stops the batch; a
// cancelled context marks the files not yet started as errors.
func (s *Service) Ingest(ctx context.Context, files []Upload) []FileResult {
	s.batch.Lock()
	defer s.batch.Unlock()

	results := make([]FileResult, 0, len(files))
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			results = append(results, failed(f.Name, "", err))
			continue
		}
		results = append(results, s.ingestOne(f))
	}
	return results
}

func (s *Service) ingestOne(f Upload) FileResult {
	if size := int64(len(f.Data)); size > s.maxSize {
		err := &TooLargeError{File: f.Name, Size: size, Max: s.maxSize}
		metrics.FilesIngestedTotal.WithLabelValues("unknown", "too_large").Inc()
		log.Warn().Str("file", f.Name).Int64("size", size).Msg("Upload over size limit")
		return failed(f.Name, "", err)
	}

	format, err := normalize.Detect(f.Name)
	if err != nil {
		metrics.FilesIngestedTotal.WithLabelValues("unknown", "error").Inc()
		log.Warn().Str("file", f.Name).Err(err).Msg("Unsupported upload")
		return failed(f.Name, "", err)
	}

	start := time.Now()
	res, err := normalize.Normalize(f.Data, format, s.opts)
	metrics.IngestDurationMs.WithLabelValues(string(format)).Observe(float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.FilesIngestedTotal.WithLabelValues(string(format), "error").Inc()
		log.Warn().Str("file", f.Name).Str("format", string(format)).Err(err).Msg("Upload rejected")
		return failed(f.Name, format, err)
	}

	if len(res.Candidates) > 0 {
		token := s.hold(f.Name, res.Candidates)
		metrics.FilesIngestedTotal.WithLabelValues(string(format), "candidates").Inc()
		log.Info().Str("file", f.Name).Int("candidates", len(res.Candidates)).Str("token", token).Msg("Upload holds several layers")
		return FileResult{
			File:       f.Name,
			Format:     format,
			Status:     StatusCandidates,
			Message:    fmt.Sprintf("%s holds %d layers, pick one", f.Name, len(res.Candidates)),
			Token:      token,
			Candidates: res.Candidates,
			Warnings:   res.Warnings,
		}
	}

	id, err := s.reg.Add(res.Collection, LayerName(f.Name), style.Partial{})
	if err != nil {
		metrics.FilesIngestedTotal.WithLabelValues(string(format), "error").Inc()
		log.Warn().Str("file", f.Name).Err(err).Msg("Upload failed validation")
		return failed(f.Name, format, err)
	}
	metrics.FilesIngestedTotal.WithLabelValues(string(format), "ok").Inc()
	return FileResult{
		File:     f.Name,
		Format:   format,
		Status:   StatusSuccess,
		Message:  fmt.Sprintf("added %s", f.Name),
		LayerID:  id,
		Warnings: res.Warnings,
	}
}

func failed(file string, format normalize.Format, err error) FileResult {
	return FileResult{File: file, Format: format, Status: StatusError, Message: err.Error(), Err: err}
}

// LayerName is the layer name used for a file: its base name without the
// extension.
func LayerName(file string) string {
	base := path.Base(strings.ReplaceAll(file, `\`, "/"))
	if ext := path.Ext(base); ext != "" && ext != base {
		base = strings.TrimSuffix(base, ext)
	}
	return base
}

func (s *Service) hold(file string, cands []normalize.Candidate) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	token := uuid.NewString()
	s.pending[token] = &pendingSet{file: file, candidates: cands}
	s.order = append(s.order, token)
	for len(s.order) > maxPending {
		delete(s.pending, s.order[0])
		s.order = s.order[1:]
	}
	return token
}

// Pending returns the candidates held under token.
func (s *Service) Pending(token string) ([]normalize.Candidate, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pending[token]
	if !ok {
		return nil, false
	}
	return p.candidates, true
}

// Pick adds candidate index of the set as a layer named after the
// candidate. The set stays available for further picks.
func (s *Service) Pick(token string, index int) (string, error) {
	s.mu.Lock()
	p, ok := s.pending[token]
	s.mu.Unlock()
	if !ok {
		return "", ErrUnknownToken
	}
	if index < 0 || index >= len(p.candidates) {
		return "", fmt.Errorf("candidate %d out of range [0, %d)", index, len(p.candidates))
	}
	c := p.candidates[index]
	id, err := s.reg.Add(geodata.Clone(c.Data), c.Name, style.Partial{})
	if err != nil {
		return "", err
	}
	log.Info().Str("file", p.file).Str("candidate", c.Name).Str("layer", id).Msg("Candidate picked")
	return id, nil
}

// Merge adds every candidate of the set as one layer named after the file
// and releases the set.
func (s *Service) Merge(token string) (string, error) {
	s.mu.Lock()
	p, ok := s.pending[token]
	s.mu.Unlock()
	if !ok {
		return "", ErrUnknownToken
	}
	fcs := make([]*geojson.FeatureCollection, 0, len(p.candidates))
	for _, c := range p.candidates {
		fcs = append(fcs, geodata.Clone(c.Data))
	}
	id, err := s.reg.Add(geodata.Merge(fcs...), LayerName(p.file), style.Partial{})
	if err != nil {
		return "", err
	}
	s.Discard(token)
	log.Info().Str("file", p.file).Int("candidates", len(p.candidates)).Str("layer", id).Msg("Candidates merged")
	return id, nil
}

// Discard drops a candidate set.
func (s *Service) Discard(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pending[token]; !ok {
		return
	}
	delete(s.pending, token)
	for i, t := range s.order {
		if t == token {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}
