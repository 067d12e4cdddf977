package config

type AppConfig struct {
	APIPort     string `env:"PORT" envDefault:"11000"`
	APIKey      string `env:"API_KEY,required"`
	RabbitMQURL string `env:"RABBITMQ_URL"`
}

type DatabaseConfig struct {
	Host            string `env:"POSTGRES_HOST,required"`
	Port            string `env:"POSTGRES_PORT,required"`
	User            string `env:"POSTGRES_USER,required"`
	DBName          string `env:"POSTGRES_DB_NAME,required"`
	Password        string `env:"POSTGRES_PASSWORD,required"`
	MaxConn         int    `env:"POSTGRES_DB_MAX_CONN" envDefault:"50"`
	MaxIdleConn     int    `env:"POSTGRES_DB_MAX_IDLE_CONN" envDefault:"10"`
	ConnMaxLifetime int    `env:"POSTGRES_DB_CONN_MAX_LIFETIME" envDefault:"60"`
	LogLevel        string `env:"POSTGRES_LOG_LEVEL" envDefault:"WARN"`
	SSLMode         string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`
}

type IMAPConfig struct {
	// Lookback bounds the initial backfill window per folder.
	Lookback       string `env:"IMAP_LOOKBACK" envDefault:"720h"`
	DefaultFolders string `env:"IMAP_DEFAULT_FOLDERS" envDefault:"INBOX"`
	QueueSize      int    `env:"PIPELINE_QUEUE_SIZE" envDefault:"256"`
	Workers        int    `env:"PIPELINE_WORKERS" envDefault:"4"`
}

type AIConfig struct {
	APIBaseURL     string `env:"AI_API_BASE_URL" envDefault:"https://api.openai.com/v1"`
	APIKey         string `env:"AI_API_KEY"`
	ClassifyModel  string `env:"AI_CLASSIFY_MODEL" envDefault:"gpt-4o-mini"`
	ReplyModel     string `env:"AI_REPLY_MODEL" envDefault:"gpt-4o"`
	EmbeddingModel string `env:"AI_EMBEDDING_MODEL" envDefault:"text-embedding-3-small"`
	TimeoutSeconds int    `env:"AI_TIMEOUT_SECONDS" envDefault:"60"`
}

type VectorConfig struct {
	SeedProductInfo    string `env:"VECTOR_SEED_PRODUCT_INFO"`
	SeedOutreachAgenda string `env:"VECTOR_SEED_OUTREACH_AGENDA"`
	SeedMeetingBooking string `env:"VECTOR_SEED_MEETING_BOOKING"`
}

type NotifyConfig struct {
	SlackWebhookURL string `env:"SLACK_WEBHOOK_URL"`
	WebhookURL      string `env:"NOTIFY_WEBHOOK_URL"`
}

type StorageConfig struct {
	AWSRegion             string `env:"AWS_REGION" envDefault:"us-east-1"`
	AWSAccessKeyID        string `env:"AWS_ACCESS_KEY_ID"`
	AWSSecretAccessKey    string `env:"AWS_SECRET_ACCESS_KEY"`
	AWSEndpoint           string `env:"AWS_S3_ENDPOINT"`
	EmailAttachmentBucket string `env:"BUCKET_NAME_EMAIL_ATTACHMENT" envDefault:"attachments"`
}

type CronConfig struct {
	// Schedule for reconnecting accounts stuck in error state.
	CronScheduleReconnectAccounts string `env:"CRON_SCHEDULE_RECONNECT_ACCOUNTS" envDefault:"*/5 * * * *"`
}
