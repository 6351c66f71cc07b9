package grpcexec

import (
	"context"

	"google.golang.org/protobuf/reflect/protoreflect"

	"github.com/hanpama/cachegraph/internal/grpctp"
	"github.com/hanpama/cachegraph/internal/observable"
	"github.com/hanpama/cachegraph/internal/operation"
)

type config struct {
	baseContext func() context.Context
}

// Option configures an Executor built by New.
type Option func(*config)

// WithBaseContext overrides the context each call derives its per-call
// cancelable context from. Defaults to context.Background.
func WithBaseContext(f func() context.Context) Option {
	return func(c *config) { c.baseContext = f }
}

// New returns an operation.Executor that calls method over transport for
// every execute/maybeExecute round trip: encode ExecuteParams into
// method's input message, call transport.Call, decode the response back
// into an ExecuteResult (spec §6.1).
//
// The returned Observable emits at most one ExecuteResult per
// subscription and then completes — method is assumed unary. Unsubscribe
// before the call returns cancels the in-flight RPC via context
// cancellation, satisfying stopExecuting's teardown contract (spec §5).
func New(transport *grpctp.Transport, method protoreflect.MethodDescriptor, opts ...Option) operation.Executor {
	cfg := &config{baseContext: context.Background}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(params operation.ExecuteParams) *observable.Observable[operation.ExecuteResult] {
		return observable.New(func(obs observable.Observer[operation.ExecuteResult]) func() {
			ctx, cancel := context.WithCancel(cfg.baseContext())

			go func() {
				req, err := encodeRequest(method, params)
				if err != nil {
					if obs.Error != nil {
						obs.Error(err)
					}
					return
				}

				resp, err := transport.Call(ctx, method, req)
				if err != nil {
					if obs.Error != nil {
						obs.Error(err)
					}
					return
				}

				result, err := decodeResponse(method, resp)
				if err != nil {
					if obs.Error != nil {
						obs.Error(err)
					}
					return
				}

				if obs.Next != nil {
					obs.Next(result)
				}
				if obs.Complete != nil {
					obs.Complete()
				}
			}()

			return cancel
		})
	}
}
