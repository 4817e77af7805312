package ocr

import (
	"context"
	"image"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/protobuf/types/known/structpb"

	apperrors "github.com/motoristapro/offerwatch/internal/errors"
	"github.com/motoristapro/offerwatch/internal/resilience"
	"github.com/motoristapro/offerwatch/internal/trace"
)

// GRPCEngine calls a remote OCR service. Request:
//
//	{"image": <base64 png>, "format": "png", "languages": ["por"], "level": "line"}
//
// Response:
//
//	{"lines": [{"text": "R$ 18,50", "box": {"x": 0, "y": 0, "w": 0, "h": 0}}]}
type GRPCEngine struct {
	conn      *grpc.ClientConn
	invoker   grpc.ClientConnInterface
	health    healthpb.HealthClient
	breaker   *resilience.Breaker
	languages []string
	timeout   time.Duration
}

// DialGRPC connects lazily to addr; the first call or Ready establishes the connection.
func DialGRPC(addr string, languages []string, timeout time.Duration) (*GRPCEngine, error) {
	conn, err := grpc.NewClient(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:    DefaultKeepaliveTime,
			Timeout: DefaultKeepaliveTimeout,
		}),
		grpc.WithUnaryInterceptor(trace.UnaryClientInterceptor()),
	)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeOCRInitFailed, "dial ocr service").WithMetadata("addr", addr)
	}
	e := newGRPCEngine(conn, languages, timeout)
	e.conn = conn
	return e, nil
}

func newGRPCEngine(cc grpc.ClientConnInterface, languages []string, timeout time.Duration) *GRPCEngine {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &GRPCEngine{
		invoker:   cc,
		health:    healthpb.NewHealthClient(cc),
		breaker:   resilience.New(resilience.OCRConfig()),
		languages: languages,
		timeout:   timeout,
	}
}

// Close closes the gRPC connection
func (e *GRPCEngine) Close() error {
	if e.conn == nil {
		return nil
	}
	return e.conn.Close()
}

// Ready checks the standard gRPC health service.
func (e *GRPCEngine) Ready(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, HealthCheckTimeout)
	defer cancel()
	resp, err := e.health.Check(ctx, &healthpb.HealthCheckRequest{Service: HealthService})
	if err != nil {
		return apperrors.FromGRPCError(err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return apperrors.Newf(apperrors.CodeUnavailable, "ocr service %s", resp.GetStatus())
	}
	return nil
}

// Recognize sends the frame to the remote service.
func (e *GRPCEngine) Recognize(ctx context.Context, img image.Image) ([]Line, error) {
	data, err := encodePNG(img)
	if err != nil {
		return nil, err
	}
	langs := make([]any, len(e.languages))
	for i, l := range e.languages {
		langs[i] = l
	}
	req, err := structpb.NewStruct(map[string]any{
		"image":     data,
		"format":    "png",
		"languages": langs,
		"level":     "line",
	})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeOCRInvalidImage, "build request")
	}

	return resilience.ExecuteWithResult(e.breaker, func() ([]Line, error) {
		callCtx, cancel := context.WithTimeout(ctx, e.timeout)
		defer cancel()
		resp := &structpb.Struct{}
		if err := e.invoker.Invoke(callCtx, RecognizeMethod, req, resp); err != nil {
			return nil, apperrors.FromGRPCError(err)
		}
		return parseLines(resp)
	})
}

func parseLines(resp *structpb.Struct) ([]Line, error) {
	field, ok := resp.GetFields()["lines"]
	if !ok {
		return nil, apperrors.New(apperrors.CodeOCRExtractFailed, "response has no lines field")
	}
	values := field.GetListValue().GetValues()
	lines := make([]Line, 0, len(values))
	for _, v := range values {
		s := v.GetStructValue()
		if s == nil {
			continue
		}
		f := s.GetFields()
		box := f["box"].GetStructValue().GetFields()
		x, y := intField(box, "x"), intField(box, "y")
		lines = append(lines, Line{
			Text: f["text"].GetStringValue(),
			Box:  image.Rect(x, y, x+intField(box, "w"), y+intField(box, "h")),
		})
	}
	return lines, nil
}

func intField(fields map[string]*structpb.Value, key string) int {
	return int(fields[key].GetNumberValue())
}
