// Package config is the single source of truth for pipeline tunables.
// Values are resolved in order: defaults, then a sectioned YAML config file,
// then environment overrides (after loading a local .env when present).
package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/NimaFathima/astrobiomers/internal/core"
)

// Config holds all application configuration.
type Config struct {
	Acquisition   Acquisition   `mapstructure:"acquisition"`
	Preprocessing Preprocessing `mapstructure:"preprocessing"`
	NER           NER           `mapstructure:"ner"`
	RE            RE            `mapstructure:"re"`
	Topic         Topic         `mapstructure:"topic"`
	Resolver      Resolver      `mapstructure:"resolver"`
	Aligner       Aligner       `mapstructure:"aligner"`
	Graph         Graph         `mapstructure:"graph"`
	Pipeline      Pipeline      `mapstructure:"pipeline"`
	Logging       Logging       `mapstructure:"logging"`
}

// Acquisition holds paper acquisition configuration.
type Acquisition struct {
	CuratedEnabled         bool     `mapstructure:"curated_enabled"`
	LiteratureEnabled      bool     `mapstructure:"literature_enabled"`
	LiteratureContactEmail string   `mapstructure:"literature_contact_email"`
	LiteratureAPIKey       string   `mapstructure:"literature_api_key"`
	LiteratureEndpoint     string   `mapstructure:"literature_endpoint"`
	MaxPapers              int      `mapstructure:"max_papers"`
	SearchTerms            []string `mapstructure:"search_terms"`
	DateStart              string   `mapstructure:"date_start"`
	DateEnd                string   `mapstructure:"date_end"`
	SecondarySources       []string `mapstructure:"secondary_sources"`
	RetryAttempts          int      `mapstructure:"retry_attempts"`
	Fanout                 int      `mapstructure:"fanout"`
}

// Preprocessing holds text cleaning configuration.
type Preprocessing struct {
	MinSentenceLength      int  `mapstructure:"min_sentence_length"`
	RemoveCitationMarkers  bool `mapstructure:"remove_citation_markers"`
	Lemmatize              bool `mapstructure:"lemmatize"`
}

// NER holds named-entity-recognition configuration.
type NER struct {
	ModelsEnabled []string `mapstructure:"models_enabled"`
	MinConfidence float64  `mapstructure:"min_confidence"`
	BatchSize     int      `mapstructure:"batch_size"`
	Device        string   `mapstructure:"device"`
	ModelPath     string   `mapstructure:"model_path"`
}

// RE holds relation-extraction configuration.
type RE struct {
	DependencyEnabled          bool    `mapstructure:"dependency_enabled"`
	PatternsEnabled            bool    `mapstructure:"patterns_enabled"`
	CooccurrenceEnabled        bool    `mapstructure:"cooccurrence_enabled"`
	CooccurrenceWindowSentences int    `mapstructure:"cooccurrence_window_sentences"`
	MinConfidence              float64 `mapstructure:"min_confidence"`
}

// UMAPParams carries the reduction parameters.
type UMAPParams struct {
	NNeighbors  int `mapstructure:"n_neighbors"`
	NComponents int `mapstructure:"n_components"`
}

// HDBSCANParams carries the clustering parameters.
type HDBSCANParams struct {
	MinSamples int `mapstructure:"min_samples"`
}

// Topic holds topic modeling configuration.
type Topic struct {
	MinTopicSize      int           `mapstructure:"min_topic_size"`
	EmbeddingModelTag string        `mapstructure:"embedding_model_tag"`
	EmbeddingModelPath string       `mapstructure:"embedding_model_path"`
	UMAP              UMAPParams    `mapstructure:"umap_params"`
	HDBSCAN           HDBSCANParams `mapstructure:"hdbscan_params"`
	Seed              int           `mapstructure:"seed"`
}

// Resolver holds entity resolution configuration.
type Resolver struct {
	ServicesEnabled    []string `mapstructure:"services_enabled"`
	PerEntityTimeoutMS int      `mapstructure:"per_entity_timeout_ms"`
	CacheTTLSeconds    int      `mapstructure:"cache_ttl_s"`
	CachePath          string   `mapstructure:"cache_path"`
	OfflineMode        bool     `mapstructure:"offline_mode"`
	Fanout             int      `mapstructure:"fanout"`
	Endpoints          map[string]string `mapstructure:"endpoints"`
}

// Aligner holds ontology alignment configuration.
type Aligner struct {
	OntologiesEnabled []string `mapstructure:"ontologies_enabled"`
	MatchThreshold    float64  `mapstructure:"match_threshold"`
}

// Graph holds graph store configuration.
type Graph struct {
	Endpoint                 string `mapstructure:"endpoint"`
	User                     string `mapstructure:"user"`
	Password                 string `mapstructure:"password"`
	Database                 string `mapstructure:"database"`
	BatchSize                int    `mapstructure:"batch_size"`
	Mode                     string `mapstructure:"mode"`
	IncludeCooccurrenceEdges bool   `mapstructure:"include_cooccurrence_edges"`
}

// Pipeline holds orchestration configuration.
type Pipeline struct {
	OutputDir   string   `mapstructure:"output_dir"`
	Resume      bool     `mapstructure:"resume"`
	Incremental bool     `mapstructure:"incremental"`
	Stages      []string `mapstructure:"stages"`
	FailFast    bool     `mapstructure:"fail_fast"`
}

// Logging holds log configuration.
type Logging struct {
	Level string `mapstructure:"level"`
}

// Known toggle values, used by validation.
var (
	KnownNERModels = []string{"transformer_scientific", "dictionary_biomedical", "patterns_space_biology"}
	KnownServices  = []string{"gene_service", "protein_service", "taxonomy_service", "chemical_service"}
	KnownOntologies = []string{"GO", "HPO", "MONDO", "ENVO", "CL", "UBERON"}
	KnownStages    = []string{
		"acquisition", "preprocessing", "ner", "re", "topics", "resolution", "alignment", "graph",
	}
)

// Load reads configuration from defaults, the given config file (optional), a
// local .env file, and the environment. It returns a ConfigError on any
// invalid or missing required value.
func Load(configFile string) (*Config, error) {
	// Best effort; a missing .env is normal.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, core.NewConfigError("config_file", fmt.Sprintf("cannot read %s: %v", configFile, err))
		}
	} else {
		v.SetConfigName("astrobiomers")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
				return nil, core.NewConfigError("config_file", err.Error())
			}
		}
	}

	bindEnvironment(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, core.NewConfigError("config", err.Error())
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("acquisition.curated_enabled", true)
	v.SetDefault("acquisition.literature_enabled", false)
	v.SetDefault("acquisition.literature_endpoint", "https://eutils.ncbi.nlm.nih.gov/entrez/eutils")
	v.SetDefault("acquisition.max_papers", 600)
	v.SetDefault("acquisition.search_terms", []string{
		"spaceflight", "microgravity", "space radiation", "hindlimb unloading",
	})
	v.SetDefault("acquisition.secondary_sources", []string{})
	v.SetDefault("acquisition.retry_attempts", 3)
	v.SetDefault("acquisition.fanout", 4)

	v.SetDefault("preprocessing.min_sentence_length", 10)
	v.SetDefault("preprocessing.remove_citation_markers", true)
	v.SetDefault("preprocessing.lemmatize", true)

	v.SetDefault("ner.models_enabled", KnownNERModels)
	v.SetDefault("ner.min_confidence", 0.5)
	v.SetDefault("ner.batch_size", 32)
	v.SetDefault("ner.device", "cpu")
	v.SetDefault("ner.model_path", "models/biomedical-ner")

	v.SetDefault("re.dependency_enabled", true)
	v.SetDefault("re.patterns_enabled", true)
	v.SetDefault("re.cooccurrence_enabled", true)
	v.SetDefault("re.cooccurrence_window_sentences", 1)
	v.SetDefault("re.min_confidence", 0.5)

	v.SetDefault("topic.min_topic_size", 10)
	v.SetDefault("topic.embedding_model_tag", "pubmedbert-base-embeddings")
	v.SetDefault("topic.embedding_model_path", "models/pubmedbert-embeddings")
	v.SetDefault("topic.umap_params.n_neighbors", 15)
	v.SetDefault("topic.umap_params.n_components", 5)
	v.SetDefault("topic.hdbscan_params.min_samples", 1)
	v.SetDefault("topic.seed", 42)

	v.SetDefault("resolver.services_enabled", KnownServices)
	v.SetDefault("resolver.per_entity_timeout_ms", 5000)
	v.SetDefault("resolver.cache_ttl_s", 7*24*3600)
	v.SetDefault("resolver.cache_path", "resolution_cache.db")
	v.SetDefault("resolver.offline_mode", false)
	v.SetDefault("resolver.fanout", 8)
	v.SetDefault("resolver.endpoints", map[string]string{})

	v.SetDefault("aligner.ontologies_enabled", KnownOntologies)
	v.SetDefault("aligner.match_threshold", 0.8)

	v.SetDefault("graph.endpoint", "bolt://localhost:7687")
	v.SetDefault("graph.user", "neo4j")
	v.SetDefault("graph.database", "neo4j")
	v.SetDefault("graph.batch_size", 500)
	v.SetDefault("graph.mode", "merge")
	v.SetDefault("graph.include_cooccurrence_edges", false)

	v.SetDefault("pipeline.output_dir", "output")
	v.SetDefault("pipeline.resume", false)
	v.SetDefault("pipeline.incremental", false)
	v.SetDefault("pipeline.stages", KnownStages)
	v.SetDefault("pipeline.fail_fast", false)

	v.SetDefault("logging.level", "INFO")
}

// bindEnvironment wires both generic <SECTION>_<KEY> variables and the
// documented shorthand names.
func bindEnvironment(v *viper.Viper) {
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bind := func(key string, envs ...string) {
		args := append([]string{key}, envs...)
		_ = v.BindEnv(args...)
	}
	bind("acquisition.literature_contact_email", "LITERATURE_CONTACT_EMAIL")
	bind("acquisition.literature_api_key", "LITERATURE_API_KEY")
	bind("graph.endpoint", "GRAPH_ENDPOINT")
	bind("graph.user", "GRAPH_USER")
	bind("graph.password", "GRAPH_PASSWORD")
	bind("graph.database", "GRAPH_DATABASE")
	bind("pipeline.output_dir", "OUTPUT_DIR")
	bind("logging.level", "LOG_LEVEL")
}

// Validate checks ranges and cross-field requirements, returning a ConfigError
// naming the first offending key.
func Validate(cfg *Config) error {
	if cfg.Acquisition.LiteratureEnabled && cfg.Acquisition.LiteratureContactEmail == "" {
		return core.NewConfigError("acquisition.literature_contact_email",
			"required when literature_enabled is true")
	}
	if cfg.Acquisition.MaxPapers < 1 {
		return core.NewConfigError("acquisition.max_papers", "must be >= 1")
	}
	if cfg.Acquisition.Fanout < 1 {
		return core.NewConfigError("acquisition.fanout", "must be >= 1")
	}
	if cfg.Preprocessing.MinSentenceLength < 0 {
		return core.NewConfigError("preprocessing.min_sentence_length", "must be >= 0")
	}
	if cfg.NER.MinConfidence < 0 || cfg.NER.MinConfidence > 1 {
		return core.NewConfigError("ner.min_confidence", "must be in [0,1]")
	}
	if cfg.NER.BatchSize < 1 {
		return core.NewConfigError("ner.batch_size", "must be >= 1")
	}
	if cfg.NER.Device != "cpu" && cfg.NER.Device != "gpu-if-available" {
		return core.NewConfigError("ner.device", `must be "cpu" or "gpu-if-available"`)
	}
	for _, m := range cfg.NER.ModelsEnabled {
		if !contains(KnownNERModels, m) {
			return core.NewConfigError("ner.models_enabled", "unknown model "+m)
		}
	}
	if cfg.RE.CooccurrenceWindowSentences < 0 {
		return core.NewConfigError("re.cooccurrence_window_sentences", "must be >= 0")
	}
	if cfg.RE.MinConfidence < 0 || cfg.RE.MinConfidence > 1 {
		return core.NewConfigError("re.min_confidence", "must be in [0,1]")
	}
	if cfg.Topic.MinTopicSize < 2 {
		return core.NewConfigError("topic.min_topic_size", "must be >= 2")
	}
	if cfg.Topic.UMAP.NComponents < 1 {
		return core.NewConfigError("topic.umap_params.n_components", "must be >= 1")
	}
	for _, s := range cfg.Resolver.ServicesEnabled {
		if !contains(KnownServices, s) {
			return core.NewConfigError("resolver.services_enabled", "unknown service "+s)
		}
	}
	if cfg.Resolver.PerEntityTimeoutMS < 1 {
		return core.NewConfigError("resolver.per_entity_timeout_ms", "must be >= 1")
	}
	if cfg.Resolver.Fanout < 1 {
		return core.NewConfigError("resolver.fanout", "must be >= 1")
	}
	for _, o := range cfg.Aligner.OntologiesEnabled {
		if !contains(KnownOntologies, o) {
			return core.NewConfigError("aligner.ontologies_enabled", "unknown ontology "+o)
		}
	}
	if cfg.Aligner.MatchThreshold < 0 || cfg.Aligner.MatchThreshold > 1 {
		return core.NewConfigError("aligner.match_threshold", "must be in [0,1]")
	}
	if cfg.Graph.BatchSize < 1 {
		return core.NewConfigError("graph.batch_size", "must be >= 1")
	}
	if cfg.Graph.Mode != "merge" && cfg.Graph.Mode != "replace" {
		return core.NewConfigError("graph.mode", `must be "merge" or "replace"`)
	}
	if len(cfg.Pipeline.Stages) == 0 {
		return core.NewConfigError("pipeline.stages", "must name at least one stage")
	}
	for _, s := range cfg.Pipeline.Stages {
		if !contains(KnownStages, s) {
			return core.NewConfigError("pipeline.stages", "unknown stage "+s)
		}
	}
	return nil
}

func contains(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
