package config

func Defaults() *Config {
	return &Config{
		General: GeneralConfig{
			LogLevel:       "info",
			TimeoutSeconds: 15,
			Strict:         false,
		},
		Store: StoreConfig{
			DBPath:             "~/.seekbot/interactions.db",
			HistoryMaxAgeMins:  10,
			HistoryMaxMessages: 10,
		},
		Retrieval: RetrievalConfig{
			Engine:           "sqlite",
			IndexPath:        "~/.seekbot/index.db",
			ResultsRequested: 3,
			HistoryTurns:     2,
		},
		MRC: MRCConfig{
			Enabled:          false,
			ResultsRequested: 3,
		},
		Speech: SpeechConfig{
			Enabled:  false,
			ASRModel: "whisper-1",
			TTSModel: "tts-1",
			TTSVoice: "alloy",
		},
		Channels: ChannelsConfig{
			Telegram: TelegramConfig{
				Enabled:   false,
				ParseMode: "Markdown",
			},
			Stdio: StdioConfig{
				Enabled: true,
			},
			Fileio: FileioConfig{
				Enabled:      false,
				OutputFormat: "text",
			},
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Listen:  "127.0.0.1:9091",
		},
	}
}
