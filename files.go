package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// State records the modification time of every file already imported.
type State struct {
	Imported map[string]time.Time
}

func readState(file string) State {
	def := func() State {
		return State{
			Imported: make(map[string]time.Time),
		}
	}
	f, err := os.ReadFile(file)
	if err != nil {
		return def()
	}
	var state State
	err = yaml.Unmarshal(f, &state)
	if err != nil || state.Imported == nil {
		return def()
	}
	return state
}

func writeState(state State, file string) error {
	bytes, err := yaml.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	if err := os.WriteFile(file, bytes, 0644); err != nil {
		return fmt.Errorf("write state to %s: %w", file, err)
	}
	return nil
}

var edfFileRE = regexp.MustCompile(`(?i)^[^.].*\.edf$`)

// findFiles returns the EDF files under dir that are new or changed since state.
func findFiles(dir string, state State) ([]string, error) {
	files := make([]string, 0, 100)
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !edfFileRE.MatchString(d.Name()) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.Size() == 0 {
			return nil
		}
		if seen, ok := state.Imported[path]; ok && seen.Equal(info.ModTime()) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// RunWhenMediaInserted calls f when file becomes available. If file becomes unavailable and then available again,
// f will be called each time.
func RunWhenMediaInserted(ctx context.Context, file string, interval time.Duration, f func()) {
	fsFound := false
	fmt.Printf("Watching media path: %s\n", file)
	for {
		fileInfo, err := os.Stat(file)
		if fsFound {
			if err != nil {
				fsFound = false
				fmt.Printf("Media removed: %s\n", file)
			}
		} else {
			if err == nil && fileInfo.IsDir() {
				fsFound = true
				fmt.Printf("Media inserted: %s\n", file)
				f()
			}
		}
		select {
		case <-ctx.Done():
			fmt.Printf("Stopping watching path: %s\n", file)
			return
		case <-time.After(interval):
			// continue to watch
		}
	}
}
