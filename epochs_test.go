package main

import (
	"errors"
	"reflect"
	"testing"

	"github.com/tedpearson/psg-explorer/tal"
)

func TestParseStage(t *testing.T) {
	tests := []struct {
		in      string
		want    Stage
		wantErr bool
	}{
		{"all", StageAll, false},
		{"1", Stage1, false},
		{"2", Stage2, false},
		{"3", Stage3, false},
		{"4", Stage4, false},
		{"5", 0, true},
		{"N1", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseStage(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownStage) {
					t.Errorf("parseStage(%q) error = %v, want ErrUnknownStage", tt.in, err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("parseStage(%q) = %v, %v, want %v", tt.in, got, err, tt.want)
			}
		})
	}
}

func TestEventIDs(t *testing.T) {
	records := []tal.Record{
		{Onset: 0, Duration: 30, Description: "Sleep stage W"},
		{Onset: 30, Duration: 30, Description: "Sleep stage N2"},
		{Onset: 60, Duration: 30, Description: "Sleep stage R"},
		{Onset: 90, Description: "Lights On"},
	}
	tests := []struct {
		name  string
		stage Stage
		want  map[string]int
	}{
		{"all keeps present stages", StageAll, map[string]int{"Sleep stage N2": 2, "Sleep stage R": 4}},
		{"single stage", Stage3, map[string]int{"Sleep stage N3": 3}},
		{"rem", Stage4, map[string]int{"Sleep stage R": 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := eventIDs(tt.stage, records); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("eventIDs() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEventsFromAnnotations(t *testing.T) {
	records := []tal.Record{
		{Onset: 150, Duration: 45, Description: "Sleep stage N1"},
		{Onset: 60, Duration: 90, Description: "Sleep stage N2"},
		{Onset: 200, Duration: 0, Description: "Sleep stage N2"},
		{Onset: 300, Duration: 30, Description: "Sleep stage W"},
	}
	ids := map[string]int{"Sleep stage N1": 1, "Sleep stage N2": 2}
	got := eventsFromAnnotations(records, ids, 30)
	want := []Event{
		{Onset: 60, ID: 2, Description: "Sleep stage N2"},
		{Onset: 90, ID: 2, Description: "Sleep stage N2"},
		{Onset: 120, ID: 2, Description: "Sleep stage N2"},
		{Onset: 150, ID: 1, Description: "Sleep stage N1"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("eventsFromAnnotations() = %+v, want %+v", got, want)
	}
}

func rampRecording(frequency float64, samples int) *Recording {
	a := make([]float64, samples)
	b := make([]float64, samples)
	for i := range a {
		a[i] = float64(i)
		b[i] = -float64(i)
	}
	return &Recording{
		File:      "ramp.edf",
		Frequency: frequency,
		Rates:     []float64{frequency, frequency},
		Labels:    []string{"EEG C3-M2", "EEG C4-M1"},
		Signals:   [][]float64{a, b},
	}
}

func TestCutEpochs(t *testing.T) {
	rec := rampRecording(4, 400)
	events := []Event{
		{Onset: 0, ID: 2},
		{Onset: 60, ID: 2},
		{Onset: 80, ID: 2},
	}
	epochs := cutEpochs(rec, events, 30)
	if len(epochs) != 2 {
		t.Fatalf("cutEpochs() returned %d epochs, want 2", len(epochs))
	}
	second := epochs[1]
	if second.Onset != 60 || len(second.Data) != 2 || len(second.Data[0]) != 120 {
		t.Fatalf("second epoch = onset %g, %d channels, %d samples", second.Onset, len(second.Data), len(second.Data[0]))
	}
	if second.Data[0][0] != 240 || second.Data[1][119] != -359 {
		t.Errorf("second epoch window = [%g ... %g]", second.Data[0][0], second.Data[1][119])
	}
}

func TestCutEpochs_ShortChannel(t *testing.T) {
	rec := rampRecording(4, 400)
	rec.Signals[1] = rec.Signals[1][:100]
	epochs := cutEpochs(rec, []Event{{Onset: 0, ID: 2}, {Onset: 20, ID: 2}}, 30)
	if len(epochs) != 0 {
		t.Errorf("cutEpochs() returned %d epochs, want 0", len(epochs))
	}
	epochs = cutEpochs(rec, []Event{{Onset: 0, ID: 2}}, 25)
	if len(epochs) != 1 || len(epochs[0].Data[1]) != 100 {
		t.Errorf("cutEpochs() = %d epochs, want one 100-sample window", len(epochs))
	}
}

func TestStageEpochs(t *testing.T) {
	rec := rampRecording(4, 480)
	rec.Annotations = []tal.Record{
		{Onset: 0, Description: "Lights Off"},
		{Onset: 0, Duration: 30, Description: "Sleep stage W"},
		{Onset: 30, Duration: 60, Description: "Sleep stage N1"},
		{Onset: 90, Duration: 30, Description: "Sleep stage N3"},
	}
	tests := []struct {
		stage Stage
		want  []float64
	}{
		{StageAll, []float64{30, 60, 90}},
		{Stage1, []float64{30, 60}},
		{Stage3, []float64{90}},
		{Stage2, nil},
	}
	for _, tt := range tests {
		t.Run(tt.stage.String(), func(t *testing.T) {
			var onsets []float64
			for _, ep := range stageEpochs(rec, tt.stage) {
				onsets = append(onsets, ep.Onset)
			}
			if !reflect.DeepEqual(onsets, tt.want) {
				t.Errorf("stageEpochs(%v) onsets = %v, want %v", tt.stage, onsets, tt.want)
			}
		})
	}
}

func TestStageEpochs_NoStages(t *testing.T) {
	rec := rampRecording(4, 480)
	rec.Annotations = []tal.Record{{Onset: 0, Description: "Lights Off"}}
	if epochs := stageEpochs(rec, StageAll); epochs != nil {
		t.Errorf("stageEpochs() = %v, want nil", epochs)
	}
}
