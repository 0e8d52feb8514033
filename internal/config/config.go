package config

import (
	"flag"
	"os"

	"github.com/ilyakaznacheev/cleanenv"

	"qrt/internal/chunker"
)

type Config struct {
	Env       string       `yaml:"env" env:"QRT_ENV" env-default:"local"`
	StorePath string       `yaml:"store_path" env:"QRT_STORE_PATH"`
	Symbol    SymbolConfig `yaml:"symbol"`
	Sheet     SheetConfig  `yaml:"sheet"`
	Scan      ScanConfig   `yaml:"scan"`
	Limits    LimitsConfig `yaml:"limits"`
}

type SymbolConfig struct {
	MaxBytes        int     `yaml:"max_bytes" env:"QRT_SYMBOL_MAX_BYTES" env-default:"2953"`
	SafetyMargin    float64 `yaml:"safety_margin" env:"QRT_SAFETY_MARGIN" env-default:"0.8"`
	BoxSize         int     `yaml:"box_size" env-default:"10"`
	Border          int     `yaml:"border" env-default:"4"`
	ErrorCorrection string  `yaml:"error_correction" env-default:"L"`
}

type SheetConfig struct {
	PerSheet int `yaml:"per_sheet" env-default:"9"`
	Columns  int `yaml:"columns" env-default:"3"`
	Padding  int `yaml:"padding" env-default:"20"`
}

type ScanConfig struct {
	ChunkDir        string `yaml:"chunk_dir" env:"QRT_CHUNK_DIR" env-default:"scanned_chunks"`
	AutoReconstruct bool   `yaml:"auto_reconstruct" env:"QRT_AUTO_RECONSTRUCT" env-default:"true"`
	DebounceMS      int    `yaml:"debounce_ms" env-default:"500"`
}

type LimitsConfig struct {
	// CapacityWarn is the chunk count above which generation requires
	// explicit confirmation.
	CapacityWarn int `yaml:"capacity_warn" env:"QRT_CAPACITY_WARN" env-default:"100"`
}

// MaxChunkBytes derives the chunk cap from the symbol capacity and safety
// margin.
func (c *Config) MaxChunkBytes() int {
	return chunker.CapacityFor(c.Symbol.MaxBytes, c.Symbol.SafetyMargin)
}

// MustLoad reads configuration from an optional file plus environment.
// Unlike a service, the tool runs fine without a config file: defaults apply.
func MustLoad() *Config {
	configPath := fetchConfigPath()
	if configPath == "" {
		var cfg Config
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			panic("cannot read environment config: " + err.Error())
		}
		return &cfg
	}

	return MustLoadConfig(configPath)
}

func MustLoadConfig(configPath string) *Config {
	// check if file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file does not exist: " + configPath)
	}

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		panic("cannot read config: " + err.Error())
	}

	return &cfg
}

// Priority: flag > env > default.
// default value is empty string.
func fetchConfigPath() string {
	var res string

	flag.StringVar(&res, "config", "", "path to config file")
	flag.Parse()

	if res == "" {
		res = os.Getenv("QRT_CONFIG_PATH")
	}
	return res
}
