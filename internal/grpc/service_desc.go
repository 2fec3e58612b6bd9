package server

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// The service exchanges google.protobuf.Struct messages: requests carry named
// fields and responses carry the JSON form of the result model.
const serviceName = "wateruse.v1.QualityService"

const (
	MethodCheckCompleteness = "/" + serviceName + "/CheckCompleteness"
	MethodGetReportingMode  = "/" + serviceName + "/GetReportingMode"
	MethodRefreshMode       = "/" + serviceName + "/RefreshMode"
	MethodGetPointReport    = "/" + serviceName + "/GetPointReport"
	MethodResolveConsent    = "/" + serviceName + "/ResolveConsent"
)

// QualityServiceServer is the server API for the quality service.
type QualityServiceServer interface {
	CheckCompleteness(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetReportingMode(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RefreshMode(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetPointReport(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ResolveConsent(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// RegisterQualityServiceServer registers srv on s.
func RegisterQualityServiceServer(s grpc.ServiceRegistrar, srv QualityServiceServer) {
	s.RegisterService(&QualityServiceDesc, srv)
}

var QualityServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*QualityServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CheckCompleteness", Handler: unaryHandler(MethodCheckCompleteness, QualityServiceServer.CheckCompleteness)},
		{MethodName: "GetReportingMode", Handler: unaryHandler(MethodGetReportingMode, QualityServiceServer.GetReportingMode)},
		{MethodName: "RefreshMode", Handler: unaryHandler(MethodRefreshMode, QualityServiceServer.RefreshMode)},
		{MethodName: "GetPointReport", Handler: unaryHandler(MethodGetPointReport, QualityServiceServer.GetPointReport)},
		{MethodName: "ResolveConsent", Handler: unaryHandler(MethodResolveConsent, QualityServiceServer.ResolveConsent)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "wateruse/v1/quality.proto",
}

type structMethod func(QualityServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call structMethod) func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(QualityServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(QualityServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// QualityClient calls the quality service and decodes responses into out,
// which should point to the matching result model.
type QualityClient struct {
	cc grpc.ClientConnInterface
}

func NewQualityClient(cc grpc.ClientConnInterface) *QualityClient {
	return &QualityClient{cc: cc}
}

// Call invokes method with the given request fields.
func (c *QualityClient) Call(ctx context.Context, method string, fields map[string]interface{}, out interface{}, opts ...grpc.CallOption) error {
	in, err := structpb.NewStruct(fields)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	resp := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, resp, opts...); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return fromStruct(resp, out)
}

// toStruct converts a result model to a Struct through its JSON form.
func toStruct(v interface{}) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return structpb.NewStruct(m)
}

func fromStruct(s *structpb.Struct, out interface{}) error {
	b, err := json.Marshal(s.AsMap())
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}
