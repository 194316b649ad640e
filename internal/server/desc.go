package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "ecoscore.v1.EcoScore"

// EcoScoreServer is the server API for ecoscore.v1.EcoScore. Every request
// and response is a google.protobuf.Struct.
type EcoScoreServer interface {
	ProcessDocument(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ExtractText(context.Context, *structpb.Struct) (*structpb.Struct, error)
	EstimateCarbon(context.Context, *structpb.Struct) (*structpb.Struct, error)
	EstimateBatch(context.Context, *structpb.Struct) (*structpb.Struct, error)
	EstimateReceiptItems(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListRecords(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ExportRecords(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

var _ EcoScoreServer = (*Service)(nil)

type structMethod func(EcoScoreServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(name string, call structMethod) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(EcoScoreServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + name}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(EcoScoreServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// ServiceDesc is the grpc.ServiceDesc for ecoscore.v1.EcoScore.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*EcoScoreServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryHandler("ProcessDocument", EcoScoreServer.ProcessDocument),
		unaryHandler("ExtractText", EcoScoreServer.ExtractText),
		unaryHandler("EstimateCarbon", EcoScoreServer.EstimateCarbon),
		unaryHandler("EstimateBatch", EcoScoreServer.EstimateBatch),
		unaryHandler("EstimateReceiptItems", EcoScoreServer.EstimateReceiptItems),
		unaryHandler("ListRecords", EcoScoreServer.ListRecords),
		unaryHandler("ExportRecords", EcoScoreServer.ExportRecords),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "ecoscore/v1/ecoscore.proto",
}

func RegisterEcoScoreServer(s grpc.ServiceRegistrar, srv EcoScoreServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// Client is a thin caller for ecoscore.v1.EcoScore.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client { return &Client{cc: cc} }

func (c *Client) Call(ctx context.Context, method string, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
