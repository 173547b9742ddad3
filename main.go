package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/tedpearson/psg-explorer/tal"
)

var (
	version   = "development"
	goVersion = "unknown"
	buildDate = "unknown"
)

// Config is the YAML configuration file.
type Config struct {
	Influx   InfluxConfig
	Channels []string
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: psg-explorer [-v] <command> [flags]

Commands:
  info         describe channels, annotations and flat signals of an EDF+ file
  annotations  print the annotations of an EDF+ file
  epochs       count 30s sleep stage epochs
  features     print band power features per epoch
  import       export annotations and band powers to InfluxDB
`)
}

func main() {
	versionFlag := flag.Bool("v", false, "Show version and exit")
	flag.Usage = usage
	flag.Parse()
	fmt.Fprintf(os.Stderr, "psg-explorer version %s built on %s with %s\n", version, buildDate, goVersion)
	if *versionFlag {
		os.Exit(0)
	}
	if flag.NArg() < 1 {
		usage()
		os.Exit(2)
	}
	var err error
	args := flag.Args()[1:]
	switch flag.Arg(0) {
	case "info":
		err = runInfo(args, os.Stdout)
	case "annotations":
		err = runAnnotations(args, os.Stdout)
	case "epochs":
		err = runEpochs(args, os.Stdout)
	case "features":
		err = runFeatures(args, os.Stdout)
	case "import":
		err = runImport(args)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatal(err)
	}
}

func readConfig(configFile string) (Config, error) {
	config := Config{Channels: eegChannels}
	cf, err := os.ReadFile(configFile)
	if err != nil {
		return config, fmt.Errorf("error reading config file %s: %w", configFile, err)
	}
	err = yaml.Unmarshal(cf, &config)
	if err != nil {
		return config, fmt.Errorf("error loading config from %s: %w", configFile, err)
	}
	if len(config.Channels) == 0 {
		config.Channels = eegChannels
	}
	return config, nil
}

func channelList(s string) []string {
	if s == "" {
		return eegChannels
	}
	var names []string
	for _, name := range strings.Split(s, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}

func fileFlag(fs *flag.FlagSet) *string {
	return fs.String("file", "", "EDF+ file to read")
}

func requireFile(fs *flag.FlagSet, file string) error {
	if file == "" {
		fs.Usage()
		return fmt.Errorf("%s: -file is required", fs.Name())
	}
	return nil
}

func runInfo(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("info", flag.ContinueOnError)
	file := fileFlag(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireFile(fs, *file); err != nil {
		return err
	}
	rec, err := readRecording(*file)
	if err != nil {
		return err
	}
	writeSummary(out, summarize(rec))
	return nil
}

func writeSummary(out io.Writer, s Summary) {
	fmt.Fprintf(out, "The sampling frequency is %g Hz\n", s.Frequency)
	fmt.Fprintf(out, "The EDF file has %d channels: %s\n", len(s.Channels), strings.Join(s.Channels, ", "))
	fmt.Fprintf(out, "There are %s data points in each channel\n", humanize.Comma(int64(s.Points)))
	fmt.Fprintf(out, "The total study length is %gs, or %.2f hrs\n", s.Length.Seconds(), s.Length.Hours())
	fmt.Fprintf(out, "There are %s annotations\n", humanize.Comma(int64(s.Annotations)))
	if s.Annotations > 0 {
		fmt.Fprintf(out, "The last annotation ends at %gs\n", s.LastEnd)
	}
	if len(s.FlatChannels) > 0 {
		fmt.Fprintf(out, "These channels have flat signals: %s\n", strings.Join(s.FlatChannels, ", "))
	}
	for _, t := range s.LightsOff {
		fmt.Fprintf(out, "Lights Off occurs at %gs, which is data point %d\n", t, sampleIndex(t, s.Frequency))
	}
	for _, t := range s.LightsOn {
		fmt.Fprintf(out, "Lights On occurs at %gs, which is data point %d\n", t, sampleIndex(t, s.Frequency))
	}
}

func runAnnotations(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("annotations", flag.ContinueOnError)
	file := fileFlag(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireFile(fs, *file); err != nil {
		return err
	}
	records, err := tal.ReadFile(*file)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "onset\tduration\tdescription")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", formatSeconds(r.Onset), formatSeconds(r.Duration), r.Description)
	}
	return tw.Flush()
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// loadEpochs reads file, keeps the requested channels and cuts epochs for stage.
func loadEpochs(file, stageName, channels string) (*Recording, Stage, []Epoch, error) {
	stage, err := parseStage(stageName)
	if err != nil {
		return nil, 0, nil, err
	}
	rec, err := readRecording(file)
	if err != nil {
		return nil, 0, nil, err
	}
	rec, err = rec.Pick(channelList(channels))
	if err != nil {
		return nil, 0, nil, err
	}
	return rec, stage, stageEpochs(rec, stage), nil
}

func runEpochs(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("epochs", flag.ContinueOnError)
	file := fileFlag(fs)
	stageName := fs.String("stage", "all", `Sleep stage: "all", 1, 2, 3, or 4`)
	channels := fs.String("channels", "", "Comma separated channels (default EEG channels)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireFile(fs, *file); err != nil {
		return err
	}
	_, _, epochs, err := loadEpochs(*file, *stageName, *channels)
	if err != nil {
		return err
	}
	counts := make(map[string]int)
	for _, ep := range epochs {
		counts[ep.Description]++
	}
	fmt.Fprintf(out, "%s epochs of %gs\n", humanize.Comma(int64(len(epochs))), epochLength)
	for s := Stage1; s <= Stage4; s++ {
		if n := counts[stageDescriptions[s]]; n > 0 {
			fmt.Fprintf(out, "%s: %s\n", stageDescriptions[s], humanize.Comma(int64(n)))
		}
	}
	return nil
}

func runFeatures(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("features", flag.ContinueOnError)
	file := fileFlag(fs)
	stageName := fs.String("stage", "all", `Sleep stage: "all", 1, 2, 3, or 4`)
	channels := fs.String("channels", "", "Comma separated channels (default EEG channels)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireFile(fs, *file); err != nil {
		return err
	}
	rec, _, epochs, err := loadEpochs(*file, *stageName, *channels)
	if err != nil {
		return err
	}
	rows, err := epochFeatures(epochs, rec.Frequency)
	if err != nil {
		return err
	}
	return writeFeatures(out, rec.Labels, epochs, rows)
}

func writeFeatures(out io.Writer, labels []string, epochs []Epoch, rows [][]float64) error {
	tw := tabwriter.NewWriter(out, 0, 8, 1, ' ', 0)
	header := []string{"onset", "stage"}
	for _, band := range bands {
		for _, label := range labels {
			header = append(header, band.Name+":"+label)
		}
	}
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for i, row := range rows {
		cols := []string{formatSeconds(epochs[i].Onset), epochs[i].Description}
		for _, v := range row {
			cols = append(cols, strconv.FormatFloat(v, 'g', 6, 64))
		}
		fmt.Fprintln(tw, strings.Join(cols, "\t"))
	}
	return tw.Flush()
}

func runImport(args []string) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	path := fs.String("path", ".", "Path to data directory")
	configFile := fs.String("config", "psg-explorer.yaml", "Config file")
	stateFile := fs.String("state-file", "psg-explorer.state.yaml", "State file")
	stageName := fs.String("stage", "all", `Sleep stage: "all", 1, 2, 3, or 4`)
	dryRun := fs.Bool("dry-run", false, "Don't insert into the database")
	watch := fs.Bool("watch", false, "Import every time the data directory appears")
	if err := fs.Parse(args); err != nil {
		return err
	}
	stage, err := parseStage(*stageName)
	if err != nil {
		return err
	}
	config, err := readConfig(*configFile)
	if err != nil {
		return err
	}
	im := importer{
		config:    config,
		stage:     stage,
		stateFile: *stateFile,
		dryRun:    *dryRun,
	}
	if !*watch {
		_, err := im.run(*path)
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	RunWhenMediaInserted(ctx, *path, 5*time.Second, func() {
		if _, err := im.run(*path); err != nil {
			log.Printf("Import failed: %s\n", err)
		}
	})
	return nil
}
