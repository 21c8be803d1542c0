package config

import "math"

const (
	defaultConfigPath  = "~/.config/gazefix/config.toml"
	projectConfigName  = "gazefix.toml"
	defaultDataDir     = "./data"
	defaultOutputDir   = "./output"
	defaultStateDir    = "~/.local/share/gazefix"
	defaultResX        = 1920.0
	defaultResY        = 1080.0
	defaultFreq        = 300.0
	defaultCommand     = "i2mc-run"
	defaultTimeout     = 300
	defaultTableFile   = "allfixations.txt"
	defaultDelimiter   = ","
	defaultPlotWidth   = 1500
	defaultPlotHeight  = 900
	defaultWorkers     = 1
	defaultLogFormat   = "console"
	defaultLogLevel    = "info"
	maxDispResFraction = 0.2
)

var defaultExtensions = []string{".tsv", ".txt", ".csv", ".xlsx"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:   defaultDataDir,
			OutputDir: defaultOutputDir,
			StateDir:  defaultStateDir,
		},
		Tracker: Tracker{
			ResX:                defaultResX,
			ResY:                defaultResY,
			Freq:                defaultFreq,
			Normalized:          true,
			Extensions:          append([]string(nil), defaultExtensions...),
			TimeColumn:          "RelTimestamp",
			LeftXColumn:         "LGazePos2dx",
			LeftYColumn:         "LGazePos2dy",
			LeftValidityColumn:  "LValidity",
			RightXColumn:        "RGazePos2dx",
			RightYColumn:        "RGazePos2dy",
			RightValidityColumn: "RValidity",
			AverageXColumn:      "average_X",
			AverageYColumn:      "average_Y",
		},
		Classifier: Classifier{
			Command:          defaultCommand,
			TimeoutSeconds:   defaultTimeout,
			ScreenSize:       []float64{50.9174, 28.6411},
			DistToScreen:     65,
			WindowTimeInterp: 0.1,
			EdgeSampInterp:   2,
			MaxDisp:          defaultMaxDisp(defaultResX),
			WindowTime:       0.2,
			StepTime:         0.02,
			MaxErrors:        100,
			Downsamples:      []float64{2, 5, 10},
			DownsampFilter:   0,
			CutoffStd:        2,
			OnOffsetThresh:   3,
			MaxMergeDist:     30,
			MaxMergeTime:     30,
			MinFixDur:        40,
		},
		Output: Output{
			TableFile:     defaultTableFile,
			Delimiter:     defaultDelimiter,
			Plots:         true,
			PlotWidth:     defaultPlotWidth,
			PlotHeight:    defaultPlotHeight,
			ParamsSidecar: true,
		},
		Batch: Batch{
			Workers: defaultWorkers,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

// defaultMaxDisp is the largest interpolation displacement: a fifth of the
// horizontal resolution along the diagonal.
func defaultMaxDisp(resX float64) float64 {
	return resX * maxDispResFraction * math.Sqrt2
}
