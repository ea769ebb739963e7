package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config aggregates application configuration values.
type Config struct {
	Data       DataConfig       `yaml:"data"`
	Enrichment EnrichmentConfig `yaml:"enrichment"`
	Scoring    ScoringConfig    `yaml:"scoring"`
	Export     ExportConfig     `yaml:"export"`
	Graph      GraphConfig      `yaml:"graph"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// DataConfig locates the reference and association sources.
type DataConfig struct {
	GeneFile        string `yaml:"gene_file"`
	DiseaseFile     string `yaml:"disease_file"`
	AssociationDir  string `yaml:"association_dir"`
	AssociationFile string `yaml:"association_file"`
	TargetDir       string `yaml:"target_dir"`
	PathwayMapping  string `yaml:"pathway_mapping"`
	Species         string `yaml:"species"`
	Interactions    string `yaml:"interactions"`
	GeneSets        string `yaml:"gene_sets"`
	OutputDir       string `yaml:"output_dir"`
}

// EnrichmentConfig controls the external enrichment step and its filters.
type EnrichmentConfig struct {
	Command     string   `yaml:"command"`
	Processes   int      `yaml:"processes"`
	PValue      *float64 `yaml:"pvalue"`
	FDR         *float64 `yaml:"fdr"`
	NESPositive bool     `yaml:"nes_positive"`
}

// ScoringConfig controls overlap scoring.
type ScoringConfig struct {
	UnknownPathways string `yaml:"unknown_pathways"` // strict|skip
}

// ExportConfig controls pushing results to the graph store.
type ExportConfig struct {
	Workers   int `yaml:"workers"`
	BatchSize int `yaml:"batch_size"`
}

// GraphConfig describes connectivity to the graph database.
type GraphConfig struct {
	URI            string        `yaml:"uri"`
	Database       string        `yaml:"database"`
	Username       string        `yaml:"username"`
	Password       string        `yaml:"password"`
	MaxConnections int           `yaml:"max_connections"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

// LoggingConfig controls structured logging settings.
type LoggingConfig struct {
	Level         string `yaml:"level"`
	Format        string `yaml:"format"` // text|json
	IncludeCaller bool   `yaml:"include_caller"`
}

const (
	defaultGeneFile         = "data/gene_data.txt"
	defaultDiseaseFile      = "data/disease_data.txt"
	defaultAssociationDir   = "data/association_by_datatype_indirect"
	defaultAssociationFile  = "data/input/auto-input/filtered_associations.tsv"
	defaultTargetDir        = "data/targets"
	defaultPathwayMapping   = "data/Ensembl2Reactome_All_Levels.txt"
	defaultInteractions     = "data/FIsInGene_with_annotations.txt"
	defaultGeneSets         = "data/ReactomePathways.gmt"
	defaultOutputDir        = "output"
	defaultSpecies          = "Homo sapiens"
	defaultProcesses        = 4
	defaultUnknownPathways  = "strict"
	defaultExportWorkers    = 4
	defaultExportBatchSize  = 500
	defaultLoggingLevel     = "info"
	defaultLoggingFormat    = "text"
	defaultGraphMaxSessions = 10
	defaultConnectTimeout   = 5 * time.Second
)

// Load reads an optional .env file, then configuration from environment
// variables, applying defaults.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Config{
		Data: DataConfig{
			GeneFile:        valueOrDefault("SECTARGET_GENE_FILE", defaultGeneFile),
			DiseaseFile:     valueOrDefault("SECTARGET_DISEASE_FILE", defaultDiseaseFile),
			AssociationDir:  valueOrDefault("SECTARGET_ASSOCIATION_DIR", defaultAssociationDir),
			AssociationFile: valueOrDefault("SECTARGET_ASSOCIATION_FILE", defaultAssociationFile),
			TargetDir:       valueOrDefault("SECTARGET_TARGET_DIR", defaultTargetDir),
			PathwayMapping:  valueOrDefault("SECTARGET_PATHWAY_MAPPING", defaultPathwayMapping),
			Species:         valueOrDefault("SECTARGET_SPECIES", defaultSpecies),
			Interactions:    valueOrDefault("SECTARGET_INTERACTIONS", defaultInteractions),
			GeneSets:        valueOrDefault("SECTARGET_GENE_SETS", defaultGeneSets),
			OutputDir:       valueOrDefault("SECTARGET_OUTPUT_DIR", defaultOutputDir),
		},
		Enrichment: EnrichmentConfig{
			Command:     os.Getenv("SECTARGET_ENRICH_COMMAND"),
			Processes:   parseIntWithDefault("SECTARGET_ENRICH_PROCESSES", defaultProcesses),
			NESPositive: parseBoolWithDefault("SECTARGET_NES_POSITIVE", false),
		},
		Scoring: ScoringConfig{
			UnknownPathways: valueOrDefault("SECTARGET_UNKNOWN_PATHWAYS", defaultUnknownPathways),
		},
		Export: ExportConfig{
			Workers:   parseIntWithDefault("SECTARGET_EXPORT_WORKERS", defaultExportWorkers),
			BatchSize: parseIntWithDefault("SECTARGET_EXPORT_BATCH_SIZE", defaultExportBatchSize),
		},
		Logging: LoggingConfig{
			Level:         valueOrDefault("LOG_LEVEL", defaultLoggingLevel),
			Format:        valueOrDefault("LOG_FORMAT", defaultLoggingFormat),
			IncludeCaller: parseBoolWithDefault("LOG_INCLUDE_CALLER", false),
		},
		Graph: GraphConfig{
			URI:            os.Getenv("GRAPH_URI"),
			Database:       valueOrDefault("GRAPH_DATABASE", ""),
			Username:       os.Getenv("GRAPH_USERNAME"),
			Password:       os.Getenv("GRAPH_PASSWORD"),
			MaxConnections: parseIntWithDefault("GRAPH_MAX_CONNECTIONS", defaultGraphMaxSessions),
			ConnectTimeout: defaultConnectTimeout,
		},
	}

	var err error
	if cfg.Enrichment.PValue, err = parseOptionalFloat("SECTARGET_PVALUE_THRESHOLD"); err != nil {
		return Config{}, err
	}
	if cfg.Enrichment.FDR, err = parseOptionalFloat("SECTARGET_FDR_THRESHOLD"); err != nil {
		return Config{}, err
	}

	if v := os.Getenv("GRAPH_CONNECT_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Graph.ConnectTimeout = d
		} else {
			return Config{}, fmt.Errorf("invalid GRAPH_CONNECT_TIMEOUT: %w", err)
		}
	}

	return cfg, nil
}

// LoadFile overlays the YAML document at path onto cfg. Keys absent from the
// document keep their current values.
func LoadFile(cfg Config, path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate rejects values no component can run with.
func (c Config) Validate() error {
	switch c.Scoring.UnknownPathways {
	case "strict", "skip":
	default:
		return fmt.Errorf("invalid unknown pathway policy %q", c.Scoring.UnknownPathways)
	}
	if c.Enrichment.Processes <= 0 {
		return fmt.Errorf("enrichment processes must be positive, got %d", c.Enrichment.Processes)
	}
	for name, v := range map[string]*float64{"pvalue": c.Enrichment.PValue, "fdr": c.Enrichment.FDR} {
		if v != nil && (*v < 0 || *v > 1) {
			return fmt.Errorf("%s threshold %v outside [0, 1]", name, *v)
		}
	}
	return nil
}

func valueOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseBoolWithDefault(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		val, err := strconv.ParseBool(v)
		if err != nil {
			return fallback
		}
		return val
	}
	return fallback
}

func parseIntWithDefault(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if val, err := strconv.Atoi(v); err == nil {
			return val
		}
	}
	return fallback
}

func parseOptionalFloat(key string) (*float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, v, err)
	}
	return &f, nil
}
