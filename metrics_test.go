package main

import (
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/tedpearson/psg-explorer/tal"
)

func tags(p *write.Point) map[string]string {
	m := make(map[string]string)
	for _, tag := range p.TagList() {
		m[tag.Key] = tag.Value
	}
	return m
}

func fields(p *write.Point) map[string]interface{} {
	m := make(map[string]interface{})
	for _, field := range p.FieldList() {
		m[field.Key] = field.Value
	}
	return m
}

func TestAnnotationPoints(t *testing.T) {
	start := time.Date(2020, 1, 1, 22, 0, 0, 0, time.UTC)
	rec := &Recording{
		Start: start,
		Annotations: []tal.Record{
			{Onset: 180, Description: "Lights Off"},
			{Onset: 210.5, Duration: 30, Description: "Sleep stage N1"},
		},
	}
	points := annotationPoints(rec)
	if len(points) != 2 {
		t.Fatalf("annotationPoints() returned %d points, want 2", len(points))
	}
	p := points[1]
	if p.Name() != measurement {
		t.Errorf("measurement = %s", p.Name())
	}
	if got := tags(p)["description"]; got != "Sleep stage N1" {
		t.Errorf("description tag = %q", got)
	}
	f := fields(p)
	if f["onset"] != 210.5 || f["duration"] != 30.0 {
		t.Errorf("fields = %v", f)
	}
	if want := start.Add(210*time.Second + 500*time.Millisecond); !p.Time().Equal(want) {
		t.Errorf("time = %s, want %s", p.Time(), want)
	}
}

func TestFeaturePoints(t *testing.T) {
	start := time.Date(2020, 1, 1, 22, 0, 0, 0, time.UTC)
	rec := &Recording{Start: start, Labels: []string{"EEG C3-M2", "EEG C4-M1"}}
	epochs := []Epoch{{Event: Event{Onset: 60, ID: 2, Description: "Sleep stage N2"}}}
	row := make([]float64, len(bands)*2)
	for i := range row {
		row[i] = float64(i)
	}
	points := featurePoints(rec, StageAll, epochs, [][]float64{row})
	if len(points) != len(bands)*2 {
		t.Fatalf("featurePoints() returned %d points, want %d", len(points), len(bands)*2)
	}
	for _, p := range points {
		tg := tags(p)
		if tg["stage"] != "Sleep stage N2" || tg["filter"] != "all" {
			t.Errorf("tags = %v", tg)
		}
		if !p.Time().Equal(start.Add(time.Minute)) {
			t.Errorf("time = %s", p.Time())
		}
		// theta (band 1) on channel 1 is row[1*2+1]
		if tg["band"] == "theta" && tg["channel"] == "EEG C4-M1" && fields(p)["power"] != 3.0 {
			t.Errorf("theta C4 power = %v, want 3", fields(p)["power"])
		}
	}
}
