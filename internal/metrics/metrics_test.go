// Newswire - Real-time Alert Ingestion and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/newswire

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestRecordDelivery(t *testing.T) {
	sentBefore := testutil.ToFloat64(AlertsSent.WithLabelValues("defi/tvl"))
	revBefore := testutil.ToFloat64(RevenueMicros)

	RecordDelivery("defi/tvl", 1000)
	RecordDelivery("defi/tvl", 0)

	if got := testutil.ToFloat64(AlertsSent.WithLabelValues("defi/tvl")) - sentBefore; got != 2 {
		t.Errorf("alerts sent delta = %v, want 2", got)
	}
	if got := testutil.ToFloat64(RevenueMicros) - revBefore; got != 1000 {
		t.Errorf("revenue delta = %v, want 1000", got)
	}
}

func TestRecordCounters(t *testing.T) {
	tests := []struct {
		name   string
		record func()
		read   func() float64
	}{
		{
			name:   "ingest",
			record: func() { RecordIngest(IngestDuplicate) },
			read:   func() float64 { return testutil.ToFloat64(IngestItems.WithLabelValues(IngestDuplicate)) },
		},
		{
			name:   "intake rejection",
			record: func() { RecordIntakeRejection("FORBIDDEN_CHANNEL") },
			read:   func() float64 { return testutil.ToFloat64(IntakeRejections.WithLabelValues("FORBIDDEN_CHANNEL")) },
		},
		{
			name:   "bus publish",
			record: func() { RecordBusPublish("alerts.created") },
			read:   func() float64 { return testutil.ToFloat64(BusPublished.WithLabelValues("alerts.created")) },
		},
		{
			name:   "db error",
			record: func() { RecordDBQuery("charge", time.Millisecond, errors.New("boom")) },
			read:   func() float64 { return testutil.ToFloat64(DBQueryErrors.WithLabelValues("charge")) },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := tt.read()
			tt.record()
			if got := tt.read() - before; got != 1 {
				t.Errorf("delta = %v, want 1", got)
			}
		})
	}
}

func TestRecordDBQueryObservesDuration(t *testing.T) {
	RecordDBQuery("recent_alerts", 2*time.Millisecond, nil)

	m := &dto.Metric{}
	h, ok := DBQueryDuration.WithLabelValues("recent_alerts").(interface{ Write(*dto.Metric) error })
	if !ok {
		t.Fatal("histogram does not expose Write")
	}
	if err := h.Write(m); err != nil {
		t.Fatal(err)
	}
	if m.GetHistogram().GetSampleCount() == 0 {
		t.Error("no samples observed")
	}
}

func TestRecordBreakerTransition(t *testing.T) {
	RecordBreakerTransition("bus", "closed", "open")
	if got := testutil.ToFloat64(CircuitBreakerState.WithLabelValues("bus")); got != 2 {
		t.Errorf("state = %v, want 2", got)
	}
	RecordBreakerTransition("bus", "open", "half-open")
	if got := testutil.ToFloat64(CircuitBreakerState.WithLabelValues("bus")); got != 1 {
		t.Errorf("state = %v, want 1", got)
	}
	RecordBreakerTransition("bus", "half-open", "closed")
	if got := testutil.ToFloat64(CircuitBreakerState.WithLabelValues("bus")); got != 0 {
		t.Errorf("state = %v, want 0", got)
	}
}

func TestTrackActiveRequest(t *testing.T) {
	before := testutil.ToFloat64(APIActiveRequests)
	TrackActiveRequest(true)
	if got := testutil.ToFloat64(APIActiveRequests); got != before+1 {
		t.Errorf("active = %v, want %v", got, before+1)
	}
	TrackActiveRequest(false)
	if got := testutil.ToFloat64(APIActiveRequests); got != before {
		t.Errorf("active = %v, want %v", got, before)
	}
}
