// Package metricsx exports generator lifecycle and prepare-duration
// metrics to InfluxDB, fire-and-forget best-effort: export errors are
// logged and never bubble into registry control flow.
package metricsx

import (
	"log/slog"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/rotblauer/vtsproxy/params"
	"github.com/rotblauer/vtsproxy/registry"
)

// Exporter holds one long-lived InfluxDB client and write API, reused
// across calls rather than opened per point, adapted from
// metrics/influxdb/influxdb2.go's NewClientWithOptions +
// client.WriteAPI shape.
type Exporter struct {
	cfg      *params.MetricsConfig
	client   influxdb2.Client
	writeAPI api
	logger   *slog.Logger
}

// api is the subset of influxdb2.WriteAPI Exporter uses, narrowed so
// a disabled Exporter can stand in a noopWriteAPI without pulling in
// a live client.
type api interface {
	WritePoint(point *write.Point)
	Flush()
}

func NewExporter(cfg *params.MetricsConfig, logger *slog.Logger) *Exporter {
	if cfg == nil || !cfg.Enabled {
		return &Exporter{cfg: cfg, writeAPI: noopWriteAPI{}, logger: logger}
	}
	opts := influxdb2.DefaultOptions()
	opts.SetPrecision(time.Second)
	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token, opts)
	return &Exporter{
		cfg:      cfg,
		client:   client,
		writeAPI: client.WriteAPI(cfg.Org, cfg.Bucket),
		logger:   logger,
	}
}

func (e *Exporter) Close() {
	if e.client != nil {
		e.client.Close()
	}
}

// ExportGeneratorEvent posts one point per registry lifecycle
// transition, tagging referenceFrame/generatorType/group so a
// dashboard can facet by any of the three.
func (e *Exporter) ExportGeneratorEvent(ev registry.Event, generatorType, group string) {
	p := influxdb2.NewPointWithMeasurement("generator_event").
		AddTag("referenceFrame", ev.ID.ReferenceFrame).
		AddTag("generatorType", generatorType).
		AddTag("group", group).
		AddField("kind", string(ev.Kind)).
		SetTime(time.Now())
	if ev.Error != "" {
		p.AddField("error", ev.Error)
	}
	e.write(p)
}

// ExportPrepareDuration posts one point per completed prepare task,
// fielding its wall-clock duration and revision plus the registry's
// current preparing-queue depth at the time of completion.
func (e *Exporter) ExportPrepareDuration(referenceFrame, generatorType, group string, revision int, elapsed time.Duration, preparing int64) {
	p := influxdb2.NewPointWithMeasurement("prepare_duration").
		AddTag("referenceFrame", referenceFrame).
		AddTag("generatorType", generatorType).
		AddTag("group", group).
		AddField("revision", revision).
		AddField("prepareDurationMs", elapsed.Milliseconds()).
		AddField("preparing", preparing).
		SetTime(time.Now())
	e.write(p)
}

func (e *Exporter) write(p *write.Point) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("exporting metric point panicked", "recovered", r)
		}
	}()
	e.writeAPI.WritePoint(p)
	e.writeAPI.Flush()
}

type noopWriteAPI struct{}

func (noopWriteAPI) WritePoint(*write.Point) {}
func (noopWriteAPI) Flush()                  {}
