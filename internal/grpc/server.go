// Package server exposes the water-take quality assessments over gRPC.
package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/tejusbharadwaj/wateruse/internal/api"
	middleware "github.com/tejusbharadwaj/wateruse/internal/grpc/middlewares"
	"github.com/tejusbharadwaj/wateruse/internal/models"
)

// ServerConfig holds configuration options for the gRPC server
type ServerConfig struct {
	CacheSize      int           // Size of the LRU response cache
	CacheTTL       time.Duration // How long a cached response is served
	RateLimit      float64       // Requests per second
	RateLimitBurst int           // Maximum burst size for rate limiting
}

// DefaultServerConfig returns a ServerConfig with sensible defaults
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		CacheSize:      1000,
		CacheTTL:       5 * time.Minute,
		RateLimit:      5.0,
		RateLimitBurst: 10,
	}
}

type Assessor interface {
	CheckPoint(ctx context.Context, point models.MonitoredPoint, end time.Time) (models.CompletenessResult, error)
	ReportPoint(ctx context.Context, point models.MonitoredPoint, from, to time.Time, withDaily bool) (models.PointReport, error)
}

type ModeSource interface {
	Get(ctx context.Context, point models.MonitoredPoint) (models.ReportingMode, error)
	Refresh(ctx context.Context, point models.MonitoredPoint) (models.ReportingMode, error)
}

type ConsentSource interface {
	ForPoint(ctx context.Context, point models.MonitoredPoint) (*models.ResolvedConsent, error)
}

// QualityService answers per-point assessment requests.
type QualityService struct {
	assessor  Assessor
	modes     ModeSource
	consents  ConsentSource
	validator *RequestValidator
	now       func() time.Time
}

func NewQualityService(assessor Assessor, modes ModeSource, consents ConsentSource) *QualityService {
	return &QualityService{
		assessor:  assessor,
		modes:     modes,
		consents:  consents,
		validator: NewRequestValidator(),
		now:       time.Now,
	}
}

// CheckCompleteness takes "point" and an optional RFC 3339 "end"; the window
// ends at the start of end's day, today when omitted.
func (s *QualityService) CheckCompleteness(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	point, err := s.point(req)
	if err != nil {
		return nil, err
	}
	end, err := timeField(req, "end")
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if end.IsZero() {
		end = s.now()
	}

	result, err := s.assessor.CheckPoint(ctx, point, end)
	if err != nil {
		return nil, toStatus(err, "completeness check for %s", point)
	}
	return respond(result)
}

func (s *QualityService) GetReportingMode(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	point, err := s.point(req)
	if err != nil {
		return nil, err
	}
	mode, err := s.modes.Get(ctx, point)
	if err != nil {
		return nil, toStatus(err, "reporting mode for %s", point)
	}
	return respond(mode)
}

func (s *QualityService) RefreshMode(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	point, err := s.point(req)
	if err != nil {
		return nil, err
	}
	mode, err := s.modes.Refresh(ctx, point)
	if err != nil {
		return nil, toStatus(err, "refresh mode for %s", point)
	}
	return respond(mode)
}

// GetPointReport takes "point", RFC 3339 "from" and "to", and an optional
// boolean "daily" to include the plot series.
func (s *QualityService) GetPointReport(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	point, err := s.point(req)
	if err != nil {
		return nil, err
	}
	from, err := timeField(req, "from")
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	to, err := timeField(req, "to")
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if err := s.validator.ValidateRange(from, to); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	rep, err := s.assessor.ReportPoint(ctx, point, from, to, req.GetFields()["daily"].GetBoolValue())
	if err != nil {
		return nil, toStatus(err, "report for %s", point)
	}
	return respond(rep)
}

func (s *QualityService) ResolveConsent(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	point, err := s.point(req)
	if err != nil {
		return nil, err
	}
	resolved, err := s.consents.ForPoint(ctx, point)
	if err != nil {
		return nil, toStatus(err, "consents for %s", point)
	}
	if resolved == nil {
		return nil, status.Errorf(codes.NotFound, "no consent conditions for site %s", point.SiteID())
	}
	return respond(resolved)
}

func (s *QualityService) point(req *structpb.Struct) (models.MonitoredPoint, error) {
	p := req.GetFields()["point"].GetStringValue()
	if err := s.validator.ValidatePoint(p); err != nil {
		return "", status.Error(codes.InvalidArgument, err.Error())
	}
	return models.MonitoredPoint(p), nil
}

func timeField(req *structpb.Struct, name string) (time.Time, error) {
	v := req.GetFields()[name].GetStringValue()
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s: %q is not an RFC 3339 timestamp", name, v)
	}
	return t, nil
}

func respond(v interface{}) (*structpb.Struct, error) {
	out, err := toStruct(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return out, nil
}

// toStatus maps telemetry and context errors onto gRPC codes.
func toStatus(err error, format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...) + ": " + err.Error()
	switch {
	case errors.Is(err, api.ErrNotFound):
		return status.Error(codes.NotFound, msg)
	case errors.Is(err, api.ErrTransient):
		return status.Error(codes.Unavailable, msg)
	case errors.Is(err, api.ErrMalformed):
		return status.Error(codes.DataLoss, msg)
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, msg)
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, msg)
	default:
		return status.Error(codes.Internal, msg)
	}
}

// SetupServer initializes and configures the gRPC server with all middleware.
// The health service reports SERVING for the quality service and the server as
// a whole.
func SetupServer(svc *QualityService, config ServerConfig, logger logrus.FieldLogger) (*grpc.Server, *HealthChecker, error) {
	cache, err := middleware.NewResponseCache(config.CacheSize, config.CacheTTL, MethodRefreshMode)
	if err != nil {
		return nil, nil, err
	}

	server := grpc.NewServer(
		grpc.UnaryInterceptor(
			chainUnaryInterceptors(
				middleware.ContextMiddleware, // Add request ID first
				middleware.NewRateLimitingInterceptor(config.RateLimit, config.RateLimitBurst),
				middleware.NewLoggingInterceptor(logger),
				middleware.NewMetricsInterceptor(middleware.Requests, middleware.Latency),
				cache.Interceptor(), // Cache last to avoid caching errors
			),
		),
	)

	RegisterQualityServiceServer(server, svc)

	health := NewHealthChecker()
	health.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	health.SetServingStatus(serviceName, grpc_health_v1.HealthCheckResponse_SERVING)
	grpc_health_v1.RegisterHealthServer(server, health)

	return server, health, nil
}

// chainUnaryInterceptors creates a single interceptor from multiple interceptors
func chainUnaryInterceptors(interceptors ...grpc.UnaryServerInterceptor) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		chain := handler
		for i := len(interceptors) - 1; i >= 0; i-- {
			interceptor := interceptors[i]
			chainedInterceptor := chain
			chain = func(currentCtx context.Context, currentReq interface{}) (interface{}, error) {
				return interceptor(currentCtx, currentReq, info, chainedInterceptor)
			}
		}
		return chain(ctx, req)
	}
}
