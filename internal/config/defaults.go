package config

const (
	defaultQueueDir          = "~/.local/share/sceneforge/jobs"
	defaultOutputDir         = "~/.local/share/sceneforge/output"
	defaultLogDir            = "~/.local/share/sceneforge/logs"
	defaultDatabaseDir       = "~/.local/share/sceneforge/database"
	defaultBakedPrefix       = "bos://world-data/baked/"
	defaultEngineTimeout     = 3600
	defaultQueuePollInterval = 2
	defaultWaitPollInterval  = 1
	defaultWaitTimeout       = 1800
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			QueueDir:    defaultQueueDir,
			OutputDir:   defaultOutputDir,
			LogDir:      defaultLogDir,
			DatabaseDir: defaultDatabaseDir,
		},
		Engine: Engine{
			TimeoutSeconds: defaultEngineTimeout,
		},
		Remote: Remote{
			BakedPrefix: defaultBakedPrefix,
		},
		Workflow: Workflow{
			QueuePollInterval: defaultQueuePollInterval,
			WaitPollInterval:  defaultWaitPollInterval,
			WaitTimeout:       defaultWaitTimeout,
		},
		History: History{
			Enabled: true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
