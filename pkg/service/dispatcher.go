package service

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ZentaChain/ntlink/pkg/keystore"
	"github.com/ZentaChain/ntlink/pkg/metrics"
	"github.com/ZentaChain/ntlink/pkg/protocol"
)

const tracerName = "github.com/ZentaChain/ntlink/pkg/service"

// Env is the per-context state build and parse functions read and update
type Env struct {
	Keystore *keystore.Keystore
	App      *protocol.AppInfo

	// ServerPublicKey is the static key the session key exchange is sealed
	// against. Empty means DefaultServerPublicKey.
	ServerPublicKey []byte
}

// Protocol returns the active platform
func (e *Env) Protocol() protocol.Protocol {
	return e.App.Protocol
}

// Sender transmits a packet and waits for its response
type Sender interface {
	Send(ctx context.Context, pkt *protocol.SsoPacket, req protocol.RequestType, enc protocol.EncryptType) (*protocol.SsoPacket, error)
}

// Dispatcher turns typed events into packets and parses the responses
type Dispatcher struct {
	registry *Registry
	sender   Sender
	env      *Env
	metrics  *metrics.Metrics
	tracer   trace.Tracer
}

func NewDispatcher(registry *Registry, sender Sender, env *Env, m *metrics.Metrics) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		sender:   sender,
		env:      env,
		metrics:  m,
		tracer:   otel.Tracer(tracerName),
	}
}

func (d *Dispatcher) Env() *Env {
	return d.env
}

// SendEvent dispatches ev through the descriptor for the active platform
// and returns the parsed response. A non-zero return code becomes a
// *protocol.ServiceError and the body is not parsed.
func SendEvent[Resp any](ctx context.Context, d *Dispatcher, ev Event) (Resp, error) {
	var zero Resp

	desc, err := d.registry.Select(ev.Operation(), d.env.Protocol())
	if err != nil {
		return zero, err
	}

	ctx, span := d.tracer.Start(ctx, desc.Command, trace.WithAttributes(
		attribute.String("ntlink.operation", string(desc.Operation)),
		attribute.String("ntlink.request_type", desc.RequestType.String()),
		attribute.String("ntlink.encrypt_type", desc.EncryptType.String()),
	))
	defer span.End()

	resp, err := d.send(ctx, desc, ev)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return zero, err
	}

	typed, ok := resp.(Resp)
	if !ok {
		err := fmt.Errorf("%s parsed %T, caller expects %T", desc.Command, resp, zero)
		span.SetStatus(codes.Error, err.Error())
		return zero, err
	}
	return typed, nil
}

func (d *Dispatcher) send(ctx context.Context, desc *Descriptor, ev Event) (any, error) {
	body, err := desc.build(d.env, ev)
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", desc.Command, err)
	}

	start := time.Now()
	resp, err := d.sender.Send(ctx, protocol.NewSsoPacket(desc.Command, body), desc.RequestType, desc.EncryptType)
	d.metrics.ObserveRequest(desc.Command, time.Since(start))
	if err != nil {
		return nil, err
	}

	trace.SpanFromContext(ctx).SetAttributes(
		attribute.Int64("ntlink.sequence", int64(resp.Sequence())),
		attribute.Int("ntlink.ret_code", int(resp.RetCode())),
	)

	if resp.RetCode() != 0 {
		d.metrics.ServiceError(desc.Command)
		return nil, &protocol.ServiceError{Command: desc.Command, Code: resp.RetCode(), Message: resp.Extra()}
	}

	parsed, err := desc.parse(d.env, ev, resp.Data())
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", desc.Command, err)
	}
	return parsed, nil
}
