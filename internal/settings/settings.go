package settings

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"mirrorsync/internal/log"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

const (
	DefaultSrcDir     = "source_folder"
	DefaultReplicaDir = "replica_folder"
	DefaultLogPath    = "sync_log.txt"
	DefaultInterval   = 30 * time.Second
)

type Settings struct {
	SrcDir     string
	ReplicaDir string
	LogPath    string
	Interval   time.Duration
	Detached   bool
	Once       bool
	LogLevel   log.Level
	LogToStd   bool
}

//Flags keeps the raw flag values until they are merged with the config file and validated.
type Flags struct {
	fs         *pflag.FlagSet
	configPath string
	srcDir     string
	replicaDir string
	logPath    string
	interval   float64
	detached   bool
	once       bool
	level      string
	logToStd   bool
}

//RegisterFlags defines all the settings flags on the given set (e.g. a cobra command's flags).
func RegisterFlags(flagSet *pflag.FlagSet) *Flags {
	f := &Flags{fs: flagSet}
	flagSet.StringVar(&f.configPath, "config", "", "optional YAML file with the settings; explicitly set flags take precedence")
	flagSet.StringVarP(&f.srcDir, "source", "s", DefaultSrcDir, "source directory path")
	flagSet.StringVarP(&f.replicaDir, "replica", "r", DefaultReplicaDir, "replica directory path")
	flagSet.StringVarP(&f.logPath, "log", "l", DefaultLogPath, "path of the file the sync actions are appended to")
	flagSet.Float64VarP(&f.interval, "interval", "t", DefaultInterval.Seconds(), "sync interval, in seconds")
	flagSet.BoolVar(&f.detached, "threaded", false, "run the sync loop on a separate goroutine")
	flagSet.BoolVar(&f.once, "once", false,
		"if true, then directories are synchronized only once (i.e. the program has finite execution), "+
			"otherwise - the process is started and lasts indefinitely (until interruption)")
	flagSet.StringVar(&f.level, "loglvl", log.InfoLevel,
		fmt.Sprintf("level of logging, permitted values are: %v, %v, %v, %v",
			log.DebugLevel, log.InfoLevel, log.WarnLevel, log.ErrorLevel),
	)
	flagSet.BoolVar(&f.logToStd, "log2std", false, "if true, then the sync actions are printed to the console as well")
	return f
}

//New parses commandArgs on its own flag set. Positional arguments, if present, are the source and replica dirs.
func New(commandArgs []string, errorHandling pflag.ErrorHandling) (*Settings, error) {
	flagSet := pflag.NewFlagSet("mirrorsync", errorHandling)
	f := RegisterFlags(flagSet)
	if err := flagSet.Parse(commandArgs); err != nil {
		return nil, err
	}
	return f.Settings(flagSet.Args())
}

//Settings merges defaults, the config file and the flags, and checks the result.
func (f *Flags) Settings(args []string) (*Settings, error) {
	if len(args) > 2 {
		return nil, errors.New("at most two arguments (for the directories for synchronization) are expected")
	}

	var file fileConfig
	if f.configPath != "" {
		var err error
		if file, err = loadFile(f.configPath); err != nil {
			return nil, err
		}
	}

	stg := &Settings{
		SrcDir:     pickString(f, "source", f.srcDir, file.Source),
		ReplicaDir: pickString(f, "replica", f.replicaDir, file.Replica),
		LogPath:    pickString(f, "log", f.logPath, file.Log),
		Detached:   pickBool(f, "threaded", f.detached, file.Threaded),
		Once:       pickBool(f, "once", f.once, file.Once),
		LogToStd:   pickBool(f, "log2std", f.logToStd, file.LogToStd),
	}
	level := pickString(f, "loglvl", f.level, file.LogLevel)
	seconds := f.interval
	if !f.fs.Changed("interval") && file.Interval != nil {
		seconds = *file.Interval
	}
	if len(args) > 0 {
		stg.SrcDir = args[0]
	}
	if len(args) > 1 {
		stg.ReplicaDir = args[1]
	}

	var err error
	if stg.SrcDir, err = absPath(stg.SrcDir); err != nil {
		return nil, err
	}
	if stg.ReplicaDir, err = absPath(stg.ReplicaDir); err != nil {
		return nil, err
	}
	if stg.LogPath, err = absPath(stg.LogPath); err != nil {
		return nil, err
	}
	if stg.SrcDir == stg.ReplicaDir {
		return nil, errors.New("the directories for synchronization cannot be the same")
	}
	if isWithin(stg.ReplicaDir, stg.SrcDir) || isWithin(stg.SrcDir, stg.ReplicaDir) {
		return nil, errors.New("the directories for synchronization cannot be nested in one another")
	}
	if !log.Level(level).IsValid() {
		return nil, fmt.Errorf("logging level %q does not exist", level)
	}
	stg.LogLevel = log.Level(strings.ToLower(level))
	if stg.Interval, err = intervalFromSeconds(seconds); err != nil {
		return nil, err
	}

	return stg, nil
}

//Validate checks the source root. The replica root is created on demand, so only its parent chain matters later.
func (stg *Settings) Validate() error {
	if err := validateDirectoryPath(stg.SrcDir); err != nil {
		return fmt.Errorf("the source directory is invalid: %w", err)
	}
	if info, err := os.Stat(stg.ReplicaDir); err == nil && !info.IsDir() {
		return fmt.Errorf("the replica directory is invalid: path %q is not a directory path", stg.ReplicaDir)
	}
	return nil
}

func validateDirectoryPath(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("path %q is not a directory path", path)
	}
	return nil
}

type fileConfig struct {
	Source   string   `yaml:"source"`
	Replica  string   `yaml:"replica"`
	Log      string   `yaml:"log"`
	Interval *float64 `yaml:"interval"`
	Threaded *bool    `yaml:"threaded"`
	Once     *bool    `yaml:"once"`
	LogLevel string   `yaml:"log_level"`
	LogToStd *bool    `yaml:"log2std"`
}

func loadFile(path string) (fileConfig, error) {
	var cfg fileConfig
	expanded, err := homedir.Expand(path)
	if err != nil {
		return cfg, fmt.Errorf("cannot expand config path %q: %w", path, err)
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		return cfg, fmt.Errorf("reading config %s: %w", expanded, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("parsing config %s: %w", expanded, err)
	}
	return cfg, nil
}

func pickString(f *Flags, name, flagValue, fileValue string) string {
	if f.fs.Changed(name) || fileValue == "" {
		return flagValue
	}
	return fileValue
}

func pickBool(f *Flags, name string, flagValue bool, fileValue *bool) bool {
	if f.fs.Changed(name) || fileValue == nil {
		return flagValue
	}
	return *fileValue
}

func absPath(path string) (string, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return "", fmt.Errorf("path %q cannot be expanded: %w", path, err)
	}
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return "", fmt.Errorf("path %q cannot be converted to absolute: %w", path, err)
	}
	return abs, nil
}

//isWithin reports whether path lies strictly inside dir.
func isWithin(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func intervalFromSeconds(seconds float64) (time.Duration, error) {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds <= 0 {
		return 0, fmt.Errorf("sync interval must be a positive number of seconds, got %v", seconds)
	}
	d := time.Duration(seconds * float64(time.Second))
	if d <= 0 {
		return 0, fmt.Errorf("sync interval %v seconds is too small", seconds)
	}
	return d, nil
}
