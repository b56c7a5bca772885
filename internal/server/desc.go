package server

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "pnltracker.v1.TradesService"

// TradesServer is the handler set behind ServiceDesc. Every call takes and
// returns a structpb.Struct holding the JSON form of its request/response.
type TradesServer interface {
	ExtractText(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListTrades(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AddTrade(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdateTrade(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteTrade(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ClearTrades(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SetCurrentWeek(context.Context, *structpb.Struct) (*structpb.Struct, error)
	WeeklyMetrics(context.Context, *structpb.Struct) (*structpb.Struct, error)
	EquityCurve(context.Context, *structpb.Struct) (*structpb.Struct, error)
	WeeklySeries(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ExportTrades(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ImportTrades(context.Context, *structpb.Struct) (*structpb.Struct, error)
	IngestDirectory(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(TradesServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unary(name string, call unaryCall) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(TradesServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + name}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(TradesServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// ServiceDesc registers a TradesServer on a *grpc.Server.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*TradesServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("ExtractText", TradesServer.ExtractText),
		unary("ListTrades", TradesServer.ListTrades),
		unary("AddTrade", TradesServer.AddTrade),
		unary("UpdateTrade", TradesServer.UpdateTrade),
		unary("DeleteTrade", TradesServer.DeleteTrade),
		unary("ClearTrades", TradesServer.ClearTrades),
		unary("SetCurrentWeek", TradesServer.SetCurrentWeek),
		unary("WeeklyMetrics", TradesServer.WeeklyMetrics),
		unary("EquityCurve", TradesServer.EquityCurve),
		unary("WeeklySeries", TradesServer.WeeklySeries),
		unary("ExportTrades", TradesServer.ExportTrades),
		unary("ImportTrades", TradesServer.ImportTrades),
		unary("IngestDirectory", TradesServer.IngestDirectory),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "pnltracker/v1/trades.proto",
}

// Client calls TradesService methods by name.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client { return &Client{cc: cc} }

// Call sends req (any JSON-encodable value, nil for empty) to method and
// decodes the response into resp when it is non-nil.
func (c *Client) Call(ctx context.Context, method string, req, resp any, opts ...grpc.CallOption) error {
	in, err := toStruct(req)
	if err != nil {
		return err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return err
	}
	if resp == nil {
		return nil
	}
	return fromStruct(out, resp)
}

// toStruct converts v through its JSON form.
func toStruct(v any) (*structpb.Struct, error) {
	if v == nil {
		return &structpb.Struct{}, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	out := new(structpb.Struct)
	if err := protojson.Unmarshal(raw, out); err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return out, nil
}

func fromStruct(s *structpb.Struct, v any) error {
	raw, err := protojson.Marshal(s)
	if err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}
