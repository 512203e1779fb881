package influxdb

import (
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/petdoor-bridge/internal/infrastructure/config"
)

func TestBatchSettings(t *testing.T) {
	tests := []struct {
		name      string
		cfg       config.InfluxDBConfig
		wantBatch int
		wantFlush time.Duration
	}{
		{"configured", config.InfluxDBConfig{BatchSize: 500, FlushInterval: 5}, 500, 5 * time.Second},
		{"zero uses defaults", config.InfluxDBConfig{}, defaultBatchSize, defaultFlushInterval * time.Second},
		{"negative uses defaults", config.InfluxDBConfig{BatchSize: -1, FlushInterval: -3}, defaultBatchSize, defaultFlushInterval * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			batch, flush := batchSettings(tt.cfg)
			if batch != tt.wantBatch || flush != tt.wantFlush {
				t.Errorf("batchSettings() = (%d, %v), want (%d, %v)", batch, flush, tt.wantBatch, tt.wantFlush)
			}
		})
	}
}

func TestPointLineProtocol(t *testing.T) {
	ts := time.Unix(1700000000, 0)

	tests := []struct {
		name  string
		point *write.Point
		want  string
	}{
		{
			name:  "latency",
			point: latencyPoint("garden", 250*time.Microsecond, ts),
			want:  "door_latency,door_id=garden rtt_ms=0.25 1700000000\n",
		},
		{
			name:  "battery",
			point: batteryPoint("garden", 64, true, true, ts),
			want:  "door_battery,door_id=garden ac_present=true,percent=64i,present=true 1700000000\n",
		},
		{
			name:  "stats",
			point: statsPoint("garden", 12, 1, ts),
			want:  "door_stats,door_id=garden auto_retracts=1i,open_cycles=12i 1700000000\n",
		},
		{
			name:  "status",
			point: statusPoint("garden", "DOOR_CLOSED", false, ts),
			want:  "door_status,door_id=garden,status=DOOR_CLOSED open=false 1700000000\n",
		},
		{
			name:  "disconnected",
			point: connectionPoint("garden", "disconnected", ts),
			want:  "door_connection,door_id=garden,state=disconnected connected=0i 1700000000\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := write.PointToLineProtocol(tt.point, time.Second); got != tt.want {
				t.Errorf("line protocol = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWriteOnZeroClient(t *testing.T) {
	var c Client
	// Must not panic without a write API.
	c.WriteLatency("garden", time.Millisecond)
	c.WriteBattery("garden", 10, true, false)
	c.Flush()
}
