package app

import (
	"time"

	"github.com/aymarr/mediguardian-backend/internal/modules/verification"
	"github.com/aymarr/mediguardian-backend/internal/pkg/logger"
	"github.com/aymarr/mediguardian-backend/internal/utils"
)

type Config struct {
	JWTSecretKey string
	TokenTTL     time.Duration

	// ScheduleTZ governs when "08:30" fires and which calendar day an
	// escalation counter belongs to.
	ScheduleTZ          *time.Location
	EscalationThreshold int
	EscalationWindow    time.Duration

	// ExtractorProvider selects the embedding backend: "http" (external
	// embedding service) or "vision" (Cloud Vision fallback).
	ExtractorProvider string

	Calibration verification.Calibration
}

func LoadConfig(log *logger.Logger) Config {
	tzName := utils.GetEnv("SCHEDULE_TZ", "UTC", log)
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		log.Warn("invalid SCHEDULE_TZ, falling back to UTC", "value", tzName, "error", err)
		loc = time.UTC
	}

	cal := verification.DefaultCalibration()
	cal.BaseThreshold = utils.GetEnvAsFloat("MATCH_BASE_THRESHOLD", cal.BaseThreshold, log)
	cal.StrictThreshold = utils.GetEnvAsFloat("MATCH_STRICT_THRESHOLD", cal.StrictThreshold, log)
	cal.AmbiguityGap = utils.GetEnvAsFloat("MATCH_AMBIGUITY_GAP", cal.AmbiguityGap, log)

	return Config{
		JWTSecretKey:        utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log),
		TokenTTL:            time.Duration(utils.GetEnvAsInt("TOKEN_TTL_SECONDS", 43200, log)) * time.Second,
		ScheduleTZ:          loc,
		EscalationThreshold: utils.GetEnvAsInt("ESCALATION_THRESHOLD", 3, log),
		EscalationWindow:    time.Duration(utils.GetEnvAsInt("ESCALATION_WINDOW_SECONDS", 86400, log)) * time.Second,
		ExtractorProvider:   utils.GetEnv("EXTRACTOR_PROVIDER", "http", log),
		Calibration:         cal,
	}
}
