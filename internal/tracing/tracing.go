package tracing

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/emilythestrangee/stackit/backend/internal/config"
	"github.com/emilythestrangee/stackit/backend/internal/middleware"
)

// ErrorKindKey is the gin context key handlers set to the forum error kind of a failed
// request; GinMiddleware copies it onto the server span.
const ErrorKindKey = "forum.error_kind"

var tracer = otel.Tracer("stackit/http")

// untraced routes are hit by health checkers and scrapers and carry no forum work.
var untraced = map[string]struct{}{
	"/health":  {},
	"/metrics": {},
}

// Init installs a jaeger-backed provider sampling cfg.SampleRatio of new traces. Incoming
// sampled parents are always honoured.
func Init(cfg config.TracingConfig) (*sdktrace.TracerProvider, error) {
	exporter, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(cfg.CollectorEndpoint)))
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", cfg.ServiceName),
			attribute.String("service.namespace", "stackit"),
		)),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))
	return tp, nil
}

// GinMiddleware opens a server span per request named after the route template and
// tags it with the forum resource, the addressed entity and the caller.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if _, skip := untraced[route]; skip {
			c.Next()
			return
		}
		if route == "" {
			route = "unmatched"
		}

		ctx := otel.GetTextMapPropagator().Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		ctx, span := tracer.Start(ctx, c.Request.Method+" "+route,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(routeAttributes(c, route)...),
		)
		defer span.End()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(attribute.Int("http.status_code", status))
		if identity, ok := middleware.CurrentIdentity(c); ok {
			span.SetAttributes(
				attribute.String("enduser.id", identity.UserID),
				attribute.String("enduser.role", string(identity.Role)),
			)
		}
		if kind := c.GetString(ErrorKindKey); kind != "" {
			span.SetAttributes(attribute.String("forum.error_kind", kind))
		}
		if status >= 500 {
			span.SetStatus(codes.Error, "server error")
		}
	}
}

// routeAttributes maps /questions/:id style routes to forum.resource and
// forum.<entity>.id. Answer routes may address their question by param or query.
func routeAttributes(c *gin.Context, route string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("http.method", c.Request.Method),
		attribute.String("http.route", route),
	}
	group := strings.SplitN(strings.TrimPrefix(route, "/"), "/", 2)[0]
	if group == "" || group == "unmatched" {
		return attrs
	}
	attrs = append(attrs, attribute.String("forum.resource", group))

	entity := strings.TrimSuffix(group, "s")
	if group == "admin" {
		entity = adminEntity(route)
	}
	if id := c.Param("id"); id != "" && entity != "" {
		attrs = append(attrs, attribute.String("forum."+entity+".id", id))
	}
	qid := c.Param("question_id")
	if qid == "" {
		qid = c.Query("question_id")
	}
	if qid != "" {
		attrs = append(attrs, attribute.String("forum.question.id", qid))
	}
	return attrs
}

func adminEntity(route string) string {
	switch {
	case strings.HasPrefix(route, "/admin/users"):
		return "user"
	case strings.HasPrefix(route, "/admin/questions"):
		return "question"
	case strings.HasPrefix(route, "/admin/answers"):
		return "answer"
	}
	return ""
}
