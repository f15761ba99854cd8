package config

import "time"

// ScheduleConfig controls the active polling window.
type ScheduleConfig struct {
	Enabled      bool // false polls every interval regardless of time of day
	Interval     time.Duration
	StartHour    int
	CutoffHour   int
	CutoffMinute int
	Timezone     string
}

func loadSchedule() ScheduleConfig {
	return ScheduleConfig{
		Enabled:      boolEnvOrDefault(envScheduleEnabled, true),
		Interval:     durationEnvOrDefault(envPollInterval, defaultPollInterval),
		StartHour:    rangeEnvOrDefault(envScheduleStart, defaultStartHour, 0, 23),
		CutoffHour:   rangeEnvOrDefault(envScheduleCutoffH, defaultCutoffHour, 0, 23),
		CutoffMinute: rangeEnvOrDefault(envScheduleCutoffM, defaultCutoffMinute, 0, 59),
		Timezone:     envOrDefault(envScheduleTimezone, ""),
	}
}
