package app

// Application wires the clients and the job tracker together. It is built
// once in main and handed to the TUI; every dependency travels explicitly on
// this struct, never through package-level state.
type Application struct {
	Config   Config
	Logger   *Logger
	Agent    *AgentClient
	Platform *PlatformClient
	Tracker  *IngestionJobTracker
}

func NewApplication(cfg Config) *Application {
	logger := NewLogger(DefaultLogWriter(cfg.LogFile))
	platform := NewPlatformClient(cfg.PlatformURL, cfg.AuthToken, cfg.TeacherID, cfg.AllowedUploadTypes, logger)
	agent := NewAgentClient(cfg.AgentURL, cfg.AuthToken, logger)
	tracker := NewIngestionJobTracker(platform, logger, cfg.PollInterval(), uint(cfg.PollMaxAttempts))

	return &Application{
		Config:   cfg,
		Logger:   logger,
		Agent:    agent,
		Platform: platform,
		Tracker:  tracker,
	}
}

// NewSession opens a fresh conversation for a subject. An empty chatID
// generates a new one.
func (a *Application) NewSession(chatID, classroomID, subjectID string, flow FlowType) *Session {
	return NewSession(chatID, classroomID, subjectID, flow, a.Agent, a.Logger)
}

// Close stops every outstanding ingestion poller. Streams are owned by their
// sessions and canceled there.
func (a *Application) Close() {
	a.Tracker.Close()
}
