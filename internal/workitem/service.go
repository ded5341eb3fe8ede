package workitem

import (
	"context"
	"log/slog"

	"worklist/internal/dataset"
	"worklist/internal/indexrows"
	"worklist/internal/logging"
	"worklist/internal/requestctx"
)

// Service validates, persists and advances workitems over a Store.
type Service struct {
	store  Store
	logger *slog.Logger
	tags   []indexrows.QueryTag
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithQueryTags replaces the indexed attribute set.
func WithQueryTags(tags []indexrows.QueryTag) Option {
	return func(s *Service) {
		s.tags = tags
	}
}

// NewService constructs a Service backed by store.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		logger: logging.NewNop(),
		tags:   indexrows.DefaultWorkitemTags,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.NewComponentLogger(s.logger, "workitem")
	return s
}

// Add validates ds and creates the workitem it describes. requestUID may be
// empty when the dataset carries AffectedSOPInstanceUID.
func (s *Service) Add(ctx context.Context, partitionKey int, requestUID string, ds *dataset.Dataset) (AddResult, error) {
	ctx = requestctx.WithPartition(ctx, partitionKey)
	ctx = requestctx.WithOperation(ctx, "add")
	if err := Validate(ds, requestUID); err != nil {
		logging.WithContext(ctx, s.logger).Info("workitem rejected",
			logging.Args(append(patientAttrs(ds), logging.Error(err))...)...,
		)
		return AddResult{}, err
	}
	uid := ResolveUID(ds, requestUID)
	ctx = requestctx.WithWorkitemUID(ctx, uid)
	logger := logging.WithContext(ctx, s.logger)

	rows := indexrows.Build(ds, s.tags)
	result, err := s.store.Add(ctx, partitionKey, uid, ds, rows)
	if err != nil {
		return AddResult{}, err
	}
	if err := s.store.CompleteAdd(ctx, partitionKey, result.WorkitemKey); err != nil {
		logger.Warn("workitem left in creating status",
			logging.Int64(logging.FieldWorkitemKey, result.WorkitemKey),
			logging.Error(err),
		)
		return AddResult{}, err
	}

	logger.Info("workitem created",
		logging.Int64(logging.FieldWorkitemKey, result.WorkitemKey),
		logging.Int64("watermark", result.Watermark),
		logging.Int("indexed_rows", rows.Len()),
	)
	logger.Debug("workitem patient", logging.Args(patientAttrs(ds)...)...)
	return result, nil
}

// patientAttrs returns the patient and admission identifiers present in ds.
// The keys are on the logging redaction list.
func patientAttrs(ds *dataset.Dataset) []logging.Attr {
	fields := []struct {
		key string
		tag dataset.Tag
	}{
		{logging.FieldPatientName, dataset.PatientName},
		{logging.FieldPatientID, dataset.PatientID},
		{logging.FieldPatientBirthDate, dataset.PatientBirthDate},
		{logging.FieldAdmissionID, dataset.AdmissionID},
	}
	var attrs []logging.Attr
	for _, f := range fields {
		if v, ok := ds.String(f.tag); ok && v != "" {
			attrs = append(attrs, logging.String(f.key, v))
		}
	}
	return attrs
}

// Get returns the stored metadata of a workitem, or nil when it does not
// exist.
func (s *Service) Get(ctx context.Context, partitionKey int, uid string) (*Metadata, error) {
	return s.store.GetMetadata(ctx, partitionKey, uid)
}

// Store returns the backing store.
func (s *Service) Store() Store {
	return s.store
}
