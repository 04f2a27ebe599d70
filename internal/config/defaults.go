package config

func Defaults() *Config {
	return &Config{
		General: GeneralConfig{
			LogLevel: "info",
			Timezone: "Europe/Warsaw",
		},
		Telegram: TelegramConfig{},
		Sheet: SheetConfig{
			SheetName: "war",
		},
		Ledger: LedgerConfig{
			Driver: "jsonl",
			Path:   "~/.lotbot/processed.jsonl",
		},
		Sections: SectionsConfig{
			MappingFile:   "~/.lotbot/sections.yaml",
			Authoritative: "laba",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    "127.0.0.1:9615",
		},
	}
}
