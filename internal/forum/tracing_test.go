package forum

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/campusnest/forum/pkg/telemetry"
)

func TestGetGroupIsTraced(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	t.Cleanup(telemetry.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))))

	svc, _ := newTestService(t)
	ctx := context.Background()
	g, err := svc.CreateGroup(ctx, "u1", "Geology", "")
	require.NoError(t, err)

	_, err = svc.GetGroup(ctx, g.GroupID)
	require.NoError(t, err)
	_, err = svc.GetGroup(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)

	var statuses []codes.Code
	for _, span := range rec.Ended() {
		if span.Name() == "forum.GetGroup" {
			statuses = append(statuses, span.Status().Code)
		}
	}
	assert.Equal(t, []codes.Code{codes.Unset, codes.Error}, statuses)
}
