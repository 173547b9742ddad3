package main

import (
	"fmt"
	"log"
	"os"

	"github.com/dustin/go-humanize"
)

type importer struct {
	config    Config
	stage     Stage
	stateFile string
	dryRun    bool
}

// run exports every new or changed EDF file under path and updates the state
// file. It returns the number of files imported.
func (im importer) run(path string) (int, error) {
	state := readState(im.stateFile)
	files, err := findFiles(path, state)
	if err != nil {
		return 0, err
	}
	var influxWriter InfluxWriter
	if !im.dryRun {
		influxWriter = NewInfluxWriter(im.config.Influx)
		defer influxWriter.Close()
	}
	annotationCount := 0
	epochCount := 0
	fileCount := 0
	for _, file := range files {
		info, err := os.Stat(file)
		if err != nil {
			log.Printf("Error reading %s: %s\n", file, err)
			continue
		}
		rec, epochs, rows, err := im.process(file)
		if err != nil {
			log.Printf("Error parsing %s: %s\n", file, err)
			continue
		}
		annotationCount += len(rec.Annotations)
		epochCount += len(epochs)
		fileCount++
		if !im.dryRun {
			influxWriter.WriteData(rec, im.stage, epochs, rows)
		}
		state.Imported[file] = info.ModTime()
	}
	fmt.Printf("\nTotal new data found: %s annotations and %s epochs in %s files.\n",
		humanize.Comma(int64(annotationCount)), humanize.Comma(int64(epochCount)), humanize.Comma(int64(fileCount)))
	if im.dryRun {
		return fileCount, nil
	}
	return fileCount, writeState(state, im.stateFile)
}

func (im importer) process(file string) (*Recording, []Epoch, [][]float64, error) {
	rec, err := readRecording(file)
	if err != nil {
		return nil, nil, nil, err
	}
	eeg, err := rec.Pick(im.config.Channels)
	if err != nil {
		// annotations are still worth exporting without EEG channels
		log.Printf("Skipping features for %s: %s\n", file, err)
		return rec, nil, nil, nil
	}
	epochs := stageEpochs(eeg, im.stage)
	rows, err := epochFeatures(epochs, eeg.Frequency)
	if err != nil {
		return nil, nil, nil, err
	}
	return eeg, epochs, rows, nil
}
