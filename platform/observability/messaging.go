package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// MessageInfo описывает сообщение для атрибутов span-а
type MessageInfo struct {
	System      string // kafka | rabbitmq
	Destination string // имя очереди/топика
	MsgType     string // значение X-MsgType
	MessageID   string
}

func (m MessageInfo) attributes() []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("messaging.system", m.System),
		attribute.String("messaging.destination.name", m.Destination),
		attribute.String("messaging.message.type", m.MsgType),
	}
	if m.MessageID != "" {
		attrs = append(attrs, attribute.String("messaging.message.id", m.MessageID))
	}
	return attrs
}

// StartPublishSpan создаёт producer span и записывает trace context в заголовки сообщения
func StartPublishSpan(ctx context.Context, serviceName string, carrier propagation.TextMapCarrier, info MessageInfo) (context.Context, trace.Span) {
	ctx, span := otel.Tracer(serviceName).Start(ctx, "publish "+info.MsgType,
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(info.attributes()...),
	)
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	return ctx, span
}

// StartConsumeSpan извлекает trace context из заголовков и создаёт consumer span
func StartConsumeSpan(ctx context.Context, serviceName string, carrier propagation.TextMapCarrier, info MessageInfo) (context.Context, trace.Span) {
	ctx = otel.GetTextMapPropagator().Extract(ctx, carrier)
	return otel.Tracer(serviceName).Start(ctx, "process "+info.MsgType,
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(info.attributes()...),
	)
}

// EndSpan завершает span, отмечая ошибку если она есть
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
