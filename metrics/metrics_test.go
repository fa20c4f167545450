package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/synaptecltd/relay"
	"github.com/synaptecltd/relay/protection"
)

func TestRecordEvaluation(t *testing.T) {
	before := testutil.ToFloat64(results.WithLabelValues("I>", "trip"))
	beforeUnnamed := testutil.ToFloat64(results.WithLabelValues("id-2", "no_trip"))
	beforeEvaluations := testutil.ToFloat64(evaluations)

	RecordEvaluation(relay.Evaluation{
		RMS: 123.4,
		Results: map[string]protection.Result{
			"id-1": protection.Trip(),
			"id-2": protection.NoTrip(),
		},
		Trip: true,
	}, map[string]string{"id-1": "I>"})

	assert.Equal(t, 123.4, testutil.ToFloat64(cycleRMS))
	assert.Equal(t, 1.0, testutil.ToFloat64(tripped))
	assert.Equal(t, beforeEvaluations+1, testutil.ToFloat64(evaluations))
	assert.Equal(t, before+1, testutil.ToFloat64(results.WithLabelValues("I>", "trip")))
	assert.Equal(t, beforeUnnamed+1, testutil.ToFloat64(results.WithLabelValues("id-2", "no_trip")))

	RecordEvaluation(relay.Evaluation{RMS: 10}, nil)
	assert.Equal(t, 0.0, testutil.ToFloat64(tripped))
}

func TestRecordGooseMessage(t *testing.T) {
	beforeOK := testutil.ToFloat64(gooseMessages.WithLabelValues("true"))
	beforeFailed := testutil.ToFloat64(gooseMessages.WithLabelValues("false"))

	RecordGooseMessage(3, nil)
	RecordGooseMessage(4, errors.New("broker down"))

	assert.Equal(t, beforeOK+1, testutil.ToFloat64(gooseMessages.WithLabelValues("true")))
	assert.Equal(t, beforeFailed+1, testutil.ToFloat64(gooseMessages.WithLabelValues("false")))
	assert.Equal(t, 4.0, testutil.ToFloat64(gooseStNum))
}

func TestHandler(t *testing.T) {
	RecordEvaluation(relay.Evaluation{RMS: 42}, nil)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Result().Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "relay_measurement_rms_amperes 42")
	assert.Contains(t, string(body), "relay_protection_evaluations_total")
}

func TestRecordHTTPRequest(t *testing.T) {
	before := testutil.ToFloat64(httpRequests.WithLabelValues("POST", "/reset", "200"))
	RecordHTTPRequest("POST", "/reset", 200, 3*time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(httpRequests.WithLabelValues("POST", "/reset", "200")))
}
