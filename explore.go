package main

import (
	"time"

	"github.com/tedpearson/psg-explorer/tal"
)

// eegChannels are the scalp EEG derivations in the NCH sleep study recordings.
var eegChannels = []string{"EEG F3-M2", "EEG F4-M1", "EEG C3-M2", "EEG C4-M1", "EEG O1-M2", "EEG O2-M1", "EEG CZ-O1"}

const (
	lightsOff = "Lights Off"
	lightsOn  = "Lights On"
)

type Summary struct {
	Channels     []string
	Frequency    float64
	Points       int
	Length       time.Duration
	Annotations  int
	LastEnd      float64 // onset + duration of the last annotation, in seconds
	FlatChannels []string
	LightsOff    []float64
	LightsOn     []float64
}

func summarize(rec *Recording) Summary {
	s := Summary{
		Channels:    rec.Labels,
		Frequency:   rec.Frequency,
		Points:      rec.Samples(),
		Length:      rec.Duration(),
		Annotations: len(rec.Annotations),
	}
	if len(rec.Annotations) > 0 {
		last := latestAnnotation(rec.Annotations)
		s.LastEnd = last.Onset + last.Duration
	}
	for _, i := range flatChannels(rec.Signals) {
		s.FlatChannels = append(s.FlatChannels, rec.Labels[i])
	}
	s.LightsOff, s.LightsOn = lightsTimes(rec.Annotations)
	return s
}

// latestAnnotation returns the record with the largest onset, the later one
// in file order on ties. records must not be empty.
func latestAnnotation(records []tal.Record) tal.Record {
	last := records[0]
	for _, r := range records[1:] {
		if r.Onset >= last.Onset {
			last = r
		}
	}
	return last
}

// flatChannels returns the indices of signals with fewer than 3 distinct values.
func flatChannels(signals [][]float64) []int {
	var flat []int
	for i, series := range signals {
		seen := make(map[float64]struct{}, 3)
		for _, v := range series {
			seen[v] = struct{}{}
			if len(seen) >= 3 {
				break
			}
		}
		if len(seen) < 3 {
			flat = append(flat, i)
		}
	}
	return flat
}

func lightsTimes(records []tal.Record) (off []float64, on []float64) {
	for _, r := range records {
		switch r.Description {
		case lightsOff:
			off = append(off, r.Onset)
		case lightsOn:
			on = append(on, r.Onset)
		}
	}
	return
}

// sampleIndex converts an offset in seconds to a sample index.
func sampleIndex(seconds, frequency float64) int {
	return int(seconds * frequency)
}
