package main

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/tedpearson/psg-explorer/tal"
)

const epochLength = 30.0 // seconds

var ErrUnknownStage = errors.New(`unknown sleep stage, use "all", 1, 2, 3, or 4`)

// Stage selects which scored sleep stages become epochs.
type Stage int

const (
	StageAll Stage = iota
	Stage1
	Stage2
	Stage3
	Stage4
)

var stageDescriptions = map[Stage]string{
	Stage1: "Sleep stage N1",
	Stage2: "Sleep stage N2",
	Stage3: "Sleep stage N3",
	Stage4: "Sleep stage R",
}

func parseStage(s string) (Stage, error) {
	switch s {
	case "all":
		return StageAll, nil
	case "1":
		return Stage1, nil
	case "2":
		return Stage2, nil
	case "3":
		return Stage3, nil
	case "4":
		return Stage4, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownStage, s)
}

func (s Stage) String() string {
	if s == StageAll {
		return "all"
	}
	if d, ok := stageDescriptions[s]; ok {
		return d
	}
	return fmt.Sprintf("Stage(%d)", int(s))
}

// eventIDs maps annotation descriptions to event ids. For StageAll only the
// stages present in records are included.
func eventIDs(stage Stage, records []tal.Record) map[string]int {
	ids := make(map[string]int)
	if stage != StageAll {
		if d, ok := stageDescriptions[stage]; ok {
			ids[d] = int(stage)
		}
		return ids
	}
	present := make(map[string]bool)
	for _, r := range records {
		present[r.Description] = true
	}
	for s, d := range stageDescriptions {
		if present[d] {
			ids[d] = int(s)
		}
	}
	return ids
}

type Event struct {
	Onset       float64 // seconds from recording start
	ID          int
	Description string
}

// eventsFromAnnotations splits every matching annotation into chunk-long
// events. Annotations shorter than chunk produce none.
func eventsFromAnnotations(records []tal.Record, ids map[string]int, chunk float64) []Event {
	var events []Event
	for _, r := range records {
		id, ok := ids[r.Description]
		if !ok {
			continue
		}
		end := r.Onset + r.Duration
		for t := r.Onset; t < end && end-t >= chunk; t += chunk {
			events = append(events, Event{Onset: t, ID: id, Description: r.Description})
		}
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Onset < events[j].Onset
	})
	return events
}

// Epoch is a fixed-length window of every channel of a recording.
type Epoch struct {
	Event
	Data [][]float64 // channel x sample
}

func cutEpochs(rec *Recording, events []Event, length float64) []Epoch {
	n := int(math.Round(length * rec.Frequency))
	// every channel must hold the whole window
	samples := rec.Samples()
	for _, series := range rec.Signals {
		samples = min(samples, len(series))
	}
	epochs := make([]Epoch, 0, len(events))
	for _, ev := range events {
		first := int(math.Round(ev.Onset * rec.Frequency))
		if first < 0 || first+n > samples {
			continue
		}
		data := make([][]float64, len(rec.Signals))
		for c, series := range rec.Signals {
			data[c] = series[first : first+n]
		}
		epochs = append(epochs, Epoch{Event: ev, Data: data})
	}
	return epochs
}

// stageEpochs returns the 30 s epochs of rec for stage. A recording without
// any matching stage annotation yields no epochs.
func stageEpochs(rec *Recording, stage Stage) []Epoch {
	ids := eventIDs(stage, rec.Annotations)
	if len(ids) == 0 {
		return nil
	}
	return cutEpochs(rec, eventsFromAnnotations(rec.Annotations, ids, epochLength), epochLength)
}
