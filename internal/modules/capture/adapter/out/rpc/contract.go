package rpc

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hashicorp/go-plugin"
	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
)

const (
	PluginMapKey            = "sensing"
	serviceName             = "focustrail.sensing.v1.Sensing"
	jsonCodecName           = "json"
	methodGetInfo           = "/" + serviceName + "/GetInfo"
	methodActiveWindow      = "/" + serviceName + "/ActiveWindow"
	methodCaptureScreenshot = "/" + serviceName + "/CaptureScreenshot"
	methodRunRecognition    = "/" + serviceName + "/RunRecognition"
)

var HandshakeConfig = plugin.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "FOCUSTRAIL_SENSING",
	MagicCookieValue: "focustrail",
}

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return jsonCodecName
}

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type Empty struct{}

type Info struct {
	Name           string `json:"name"`
	Version        string `json:"version"`
	HasRecognition bool   `json:"has_recognition"`
}

type Bounds struct {
	X int32 `json:"x"`
	Y int32 `json:"y"`
	W int32 `json:"w"`
	H int32 `json:"h"`
}

// WindowResponse leaves Found false when nothing has focus.
type WindowResponse struct {
	Found    bool   `json:"found"`
	WindowID uint32 `json:"window_id"`
	AppID    string `json:"app_id"`
	Title    string `json:"title"`
	Owner    string `json:"owner"`
	Bounds   Bounds `json:"bounds"`
}

type ScreenshotRequest struct {
	WindowID uint32 `json:"window_id"`
}

type ScreenshotResponse struct {
	PNG []byte `json:"png"`
}

type RecognitionRequest struct {
	Image []byte `json:"image"`
}

type RecognitionResponse struct {
	Unsupported bool    `json:"unsupported"`
	Text        string  `json:"text"`
	Confidence  float64 `json:"confidence"`
	WordCount   int32   `json:"word_count"`
}

type SensingServer interface {
	GetInfo(ctx context.Context, in *Empty) (*Info, error)
	ActiveWindow(ctx context.Context, in *Empty) (*WindowResponse, error)
	CaptureScreenshot(ctx context.Context, in *ScreenshotRequest) (*ScreenshotResponse, error)
	RunRecognition(ctx context.Context, in *RecognitionRequest) (*RecognitionResponse, error)
}

type SensingClient interface {
	GetInfo(ctx context.Context) (*Info, error)
	ActiveWindow(ctx context.Context) (*WindowResponse, error)
	CaptureScreenshot(ctx context.Context, in *ScreenshotRequest) (*ScreenshotResponse, error)
	RunRecognition(ctx context.Context, in *RecognitionRequest) (*RecognitionResponse, error)
}

type sensingClient struct {
	conn *grpc.ClientConn
}

func NewSensingClient(conn *grpc.ClientConn) SensingClient {
	return &sensingClient{conn: conn}
}

func (c *sensingClient) GetInfo(ctx context.Context) (*Info, error) {
	out := &Info{}
	if err := c.conn.Invoke(ctx, methodGetInfo, &Empty{}, out, grpc.CallContentSubtype(jsonCodecName)); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *sensingClient) ActiveWindow(ctx context.Context) (*WindowResponse, error) {
	out := &WindowResponse{}
	if err := c.conn.Invoke(ctx, methodActiveWindow, &Empty{}, out, grpc.CallContentSubtype(jsonCodecName)); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *sensingClient) CaptureScreenshot(ctx context.Context, in *ScreenshotRequest) (*ScreenshotResponse, error) {
	out := &ScreenshotResponse{}
	if err := c.conn.Invoke(ctx, methodCaptureScreenshot, in, out, grpc.CallContentSubtype(jsonCodecName)); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *sensingClient) RunRecognition(ctx context.Context, in *RecognitionRequest) (*RecognitionResponse, error) {
	out := &RecognitionResponse{}
	if err := c.conn.Invoke(ctx, methodRunRecognition, in, out, grpc.CallContentSubtype(jsonCodecName)); err != nil {
		return nil, err
	}
	return out, nil
}

func unary[Req any, Resp any](method string, newReq func() *Req, call func(context.Context, *Req) (*Resp, error)) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := newReq()
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req any) (any, error) {
			typed, ok := req.(*Req)
			if !ok {
				return nil, fmt.Errorf("invalid request type")
			}
			return call(ctx, typed)
		}
		return interceptor(ctx, in, info, handler)
	}
}

func RegisterSensingServer(server grpc.ServiceRegistrar, impl SensingServer) {
	server.RegisterService(&grpc.ServiceDesc{
		ServiceName: serviceName,
		HandlerType: (*SensingServer)(nil),
		Methods: []grpc.MethodDesc{
			{MethodName: "GetInfo", Handler: unary(methodGetInfo, func() *Empty { return &Empty{} }, impl.GetInfo)},
			{MethodName: "ActiveWindow", Handler: unary(methodActiveWindow, func() *Empty { return &Empty{} }, impl.ActiveWindow)},
			{MethodName: "CaptureScreenshot", Handler: unary(methodCaptureScreenshot, func() *ScreenshotRequest { return &ScreenshotRequest{} }, impl.CaptureScreenshot)},
			{MethodName: "RunRecognition", Handler: unary(methodRunRecognition, func() *RecognitionRequest { return &RecognitionRequest{} }, impl.RunRecognition)},
		},
		Streams:  []grpc.StreamDesc{},
		Metadata: "schemas/sensing-rpc-v1.proto",
	}, impl)
}

type GRPCPlugin struct {
	plugin.NetRPCUnsupportedPlugin
	Impl SensingServer
}

func (p *GRPCPlugin) GRPCServer(_ *plugin.GRPCBroker, server *grpc.Server) error {
	RegisterSensingServer(server, p.Impl)
	return nil
}

func (p *GRPCPlugin) GRPCClient(_ context.Context, _ *plugin.GRPCBroker, conn *grpc.ClientConn) (any, error) {
	return NewSensingClient(conn), nil
}

func PluginMap(impl SensingServer) map[string]plugin.Plugin {
	return map[string]plugin.Plugin{
		PluginMapKey: &GRPCPlugin{Impl: impl},
	}
}

// Serve runs impl as a sensing plugin on stdio until the host kills it.
func Serve(impl SensingServer) {
	plugin.Serve(&plugin.ServeConfig{
		HandshakeConfig: HandshakeConfig,
		Plugins:         PluginMap(impl),
		GRPCServer:      plugin.DefaultGRPCServer,
	})
}
