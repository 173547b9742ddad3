package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/ishiikurisu/edf"

	"github.com/tedpearson/psg-explorer/tal"
)

var (
	ErrNoChannels = errors.New("no matching channels")
	ErrMixedRates = errors.New("channels have different sampling rates")
	ErrInvalidEDF = errors.New("invalid EDF file")
)

const annotationLabel = "EDF Annotations"

// Recording is the signal and annotation content of one EDF+ file.
type Recording struct {
	File        string
	Start       time.Time
	Frequency   float64   // samples per second of the first channel
	Rates       []float64 // samples per second, per channel
	Labels      []string
	Signals     [][]float64
	Annotations []tal.Record
}

func readRecording(file string) (*Recording, error) {
	log.Printf("Parsing %s\n", file)
	// edf.ReadFile doesn't report open errors, so check access first.
	if _, err := os.Stat(file); err != nil {
		return nil, err
	}
	rec, err := decodeEDF(file)
	if err != nil {
		return nil, err
	}
	rec.Annotations, err = tal.ReadFile(file)
	if err != nil {
		return nil, err
	}
	log.Printf("Found %s points in %d channels at %g Hz, and %s annotations\n",
		humanize.Comma(int64(rec.Samples())), len(rec.Signals), rec.Frequency, humanize.Comma(int64(len(rec.Annotations))))
	return rec, nil
}

// decodeEDF reads the signals of file. The edf package panics on headers it
// can't parse; that is returned as ErrInvalidEDF.
func decodeEDF(file string) (rec *Recording, err error) {
	defer func() {
		if r := recover(); r != nil {
			rec = nil
			err = fmt.Errorf("%w %s: %v", ErrInvalidEDF, file, r)
		}
	}()
	data := edf.ReadFile(file)
	start, err := time.ParseInLocation("02.01.06 15.04.05", data.Header["startdate"]+" "+data.Header["starttime"], time.Local)
	if err != nil {
		return nil, fmt.Errorf("parse start time of %s: %w", file, err)
	}
	recordDuration := float64(data.GetDuration())
	if recordDuration <= 0 {
		return nil, fmt.Errorf("%w %s: data record duration %v", ErrInvalidEDF, file, recordDuration)
	}
	labels := data.GetLabels()
	samples := data.GetNumberSamples()
	rec = &Recording{
		File:  file,
		Start: start,
	}
	for i, series := range data.PhysicalRecords {
		label := strings.TrimSpace(labels[i])
		if label == annotationLabel {
			continue
		}
		rec.Labels = append(rec.Labels, label)
		rec.Rates = append(rec.Rates, float64(samples[i])/recordDuration)
		rec.Signals = append(rec.Signals, series)
	}
	if len(rec.Rates) > 0 {
		rec.Frequency = rec.Rates[0]
	}
	return rec, nil
}

// Samples is the number of samples in the first channel.
func (r *Recording) Samples() int {
	if len(r.Signals) == 0 {
		return 0
	}
	return len(r.Signals[0])
}

// Duration is the study length implied by the sample count.
func (r *Recording) Duration() time.Duration {
	if r.Frequency == 0 {
		return 0
	}
	return time.Duration(float64(r.Samples()) / r.Frequency * float64(time.Second))
}

// Pick returns a copy of r holding only the named channels, in file order.
// The picked channels must share one sampling rate.
func (r *Recording) Pick(names []string) (*Recording, error) {
	want := make(map[string]bool, len(names))
	for _, name := range names {
		want[name] = true
	}
	picked := *r
	picked.Labels = nil
	picked.Rates = nil
	picked.Signals = nil
	for i, label := range r.Labels {
		if want[label] {
			picked.Labels = append(picked.Labels, label)
			picked.Rates = append(picked.Rates, r.Rates[i])
			picked.Signals = append(picked.Signals, r.Signals[i])
		}
	}
	if len(picked.Signals) == 0 {
		return nil, fmt.Errorf("%w in %s: %s", ErrNoChannels, r.File, strings.Join(names, ", "))
	}
	for i, rate := range picked.Rates {
		if rate != picked.Rates[0] {
			return nil, fmt.Errorf("%w in %s: %s at %g Hz, %s at %g Hz",
				ErrMixedRates, r.File, picked.Labels[0], picked.Rates[0], picked.Labels[i], rate)
		}
	}
	picked.Frequency = picked.Rates[0]
	return &picked, nil
}
