package main

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

const measurement = "psg"

// InfluxConfig is the configuration for Influx/VictoriaMetrics.
type InfluxConfig struct {
	Host      string
	AuthToken string `yaml:"auth_token"`
	Org       string
	Bucket    string
}

type InfluxWriter struct {
	client influxdb2.Client
	api    api.WriteAPI
}

func NewInfluxWriter(config InfluxConfig) InfluxWriter {
	client := influxdb2.NewClient(config.Host, config.AuthToken)
	return InfluxWriter{
		client: client,
		api:    client.WriteAPI(config.Org, config.Bucket),
	}
}

func (i InfluxWriter) Close() {
	i.api.Flush()
	i.client.Close()
}

func (i InfluxWriter) WriteData(rec *Recording, stage Stage, epochs []Epoch, features [][]float64) {
	for _, p := range annotationPoints(rec) {
		i.api.WritePoint(p)
	}
	for _, p := range featurePoints(rec, stage, epochs, features) {
		i.api.WritePoint(p)
	}
}

func offset(start time.Time, seconds float64) time.Time {
	return start.Add(time.Duration(seconds * float64(time.Second)))
}

func annotationPoints(rec *Recording) []*write.Point {
	points := make([]*write.Point, 0, len(rec.Annotations))
	for _, a := range rec.Annotations {
		points = append(points, influxdb2.NewPointWithMeasurement(measurement).
			AddTag("description", a.Description).
			AddField("onset", a.Onset).
			AddField("duration", a.Duration).
			SetTime(offset(rec.Start, a.Onset)))
	}
	return points
}

// featurePoints emits one point per epoch, channel and band. rows are laid out
// as returned by epochFeatures.
func featurePoints(rec *Recording, stage Stage, epochs []Epoch, rows [][]float64) []*write.Point {
	channels := len(rec.Labels)
	points := make([]*write.Point, 0, len(rows)*channels*len(bands))
	for e, row := range rows {
		t := offset(rec.Start, epochs[e].Onset)
		for b, band := range bands {
			for c, label := range rec.Labels {
				points = append(points, influxdb2.NewPointWithMeasurement(measurement).
					AddTag("channel", label).
					AddTag("band", band.Name).
					AddTag("stage", epochs[e].Description).
					AddTag("filter", stage.String()).
					AddField("power", row[b*channels+c]).
					SetTime(t))
			}
		}
	}
	return points
}
