package alert

import (
	"context"
	"fmt"

	"github.com/code19m/errx"
	sentinelpb "github.com/code19m/sentinel/pb"
	"github.com/rise-and-shine/statebus/meta"
	"github.com/samber/lo"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Sentinel reports failures to a Sentinel server over gRPC.
type Sentinel struct {
	cfg      Config
	service  string
	version  string
	client   sentinelpb.SentinelServiceClient
	conn     *grpc.ClientConn
	disabled bool
}

// NewSentinel dials cfg.SentinelHost:cfg.SentinelPort. An empty service falls back to
// the identity recorded with meta.SetServiceInfo. A disabled cfg yields a Sentinel that
// never dials and drops every alert.
func NewSentinel(cfg Config, service, version string) (*Sentinel, error) {
	if cfg.Disable {
		return &Sentinel{disabled: true}, nil
	}
	if service == "" {
		service, version = meta.Service()
	}

	target := fmt.Sprintf("%s:%d", cfg.SentinelHost, cfg.SentinelPort)
	conn, err := grpc.NewClient(target,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
	)
	if err != nil {
		return nil, errx.Wrap(err, errx.WithDetails(errx.D{"target": target}))
	}

	return &Sentinel{
		cfg:     cfg,
		service: service,
		version: version,
		client:  sentinelpb.NewSentinelServiceClient(conn),
		conn:    conn,
	}, nil
}

// SendError delivers one alert within cfg.SendTimeout. The dispatch metadata in ctx
// (trace id, dispatch id, message type) is sent along with details; details win on
// conflicting keys. Cancelling ctx does not abort the send.
func (s *Sentinel) SendError(ctx context.Context, errCode, msg, operation string, details map[string]string) error {
	if s.disabled {
		return nil
	}

	dispatch := lo.MapKeys(meta.ExtractMetaFromContext(ctx), func(_ string, k meta.ContextKey) string {
		return string(k)
	})
	payload := lo.Assign(dispatch, details, map[string]string{"service_version": s.version})

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.SendTimeout)
	defer cancel()

	_, err := s.client.SendError(ctx, &sentinelpb.ErrorInfo{
		Code:      errCode,
		Message:   msg,
		Service:   s.service,
		Operation: operation,
		Details:   payload,
	})
	if err != nil {
		return errx.Wrap(err, errx.WithDetails(errx.D{"code": errCode, "operation": operation}))
	}
	return nil
}

// Close releases the gRPC connection.
func (s *Sentinel) Close() error {
	if s.conn == nil {
		return nil
	}
	if err := s.conn.Close(); err != nil {
		return errx.Wrap(err)
	}
	return nil
}
