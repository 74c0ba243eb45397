package models

type Config struct {
	Debug     bool   `envconfig:"VARMERGE_DEBUG" default:"false" yaml:"debug"`
	LogFormat string `envconfig:"VARMERGE_LOG_FORMAT" default:"text" yaml:"logFormat"`

	Api struct {
		Port string `envconfig:"VARMERGE_API_INTERNAL_PORT" default:"5000" yaml:"port"`
	} `yaml:"api"`
	Merge struct {
		DbsPath               string `envconfig:"VARMERGE_DBS_PATH" default:"resources/DBs" yaml:"dbsPath"`
		AssemblyId            string `envconfig:"VARMERGE_ASSEMBLY_ID" default:"GRCh38" yaml:"assemblyId"`
		OutputPath            string `envconfig:"VARMERGE_OUTPUT_PATH" default:"Results/extended_table.tsv" yaml:"outputPath"`
		SeedTablePath         string `envconfig:"VARMERGE_SEED_TABLE_PATH" yaml:"seedTablePath"`
		AnnotationsCommaSep   string `envconfig:"VARMERGE_ANNOTATIONS" yaml:"annotations"`
		AnnotationConcurrency int    `envconfig:"VARMERGE_ANNOTATION_CONCURRENCY" default:"4" yaml:"annotationConcurrency"`
		RequestRetentionHours int    `envconfig:"VARMERGE_REQUEST_RETENTION_HOURS" default:"72" yaml:"requestRetentionHours"`
	} `yaml:"merge"`
	PostProcess struct {
		FastaPath                string `envconfig:"VARMERGE_FASTA_PATH" yaml:"fastaPath"`
		OutputDirectory          string `envconfig:"VARMERGE_POSTPROCESS_OUTPUT_DIR" default:"Results" yaml:"outputDirectory"`
		IndicatorColumnsCommaSep string `envconfig:"VARMERGE_INDICATOR_COLUMNS" yaml:"indicatorColumns"`
		Workers                  int    `envconfig:"VARMERGE_POSTPROCESS_WORKERS" default:"8" yaml:"workers"`
		CacheSize                int    `envconfig:"VARMERGE_REFERENCE_CACHE_SIZE" default:"65536" yaml:"cacheSize"`
	} `yaml:"postProcess"`
	Elasticsearch struct {
		Url      string `envconfig:"VARMERGE_ES_URL" yaml:"url"`
		Username string `envconfig:"VARMERGE_ES_USERNAME" yaml:"username"`
		Password string `envconfig:"VARMERGE_ES_PASSWORD" yaml:"password"`
		Workers  int    `envconfig:"VARMERGE_ES_BULK_WORKERS" default:"2" yaml:"workers"`
	} `yaml:"elasticsearch"`
	S3 struct {
		Endpoint  string `envconfig:"VARMERGE_S3_ENDPOINT" yaml:"endpoint"`
		Region    string `envconfig:"VARMERGE_S3_REGION" yaml:"region"`
		AccessKey string `envconfig:"VARMERGE_S3_ACCESS_KEY" yaml:"accessKey"`
		SecretKey string `envconfig:"VARMERGE_S3_SECRET_KEY" yaml:"secretKey"`
		Bucket    string `envconfig:"VARMERGE_S3_BUCKET" yaml:"bucket"`
		UseSSL    bool   `envconfig:"VARMERGE_S3_USE_SSL" default:"true" yaml:"useSSL"`
	} `yaml:"s3"`
}
