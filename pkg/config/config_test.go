package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	cfg := fromViper(v)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, 60.0, cfg.Grading.PassThreshold)
	assert.Equal(t, 70.0, cfg.Grading.AtRiskThreshold)
	assert.Equal(t, "exclude", cfg.Grading.ZeroScorePolicy)
	assert.Equal(t, [4]float64{0.30, 0.20, 0.25, 0.25}, cfg.Grading.DefaultWeights)
	assert.Equal(t, 30*time.Minute, cfg.Exports.SignedURLTTL)
	assert.Equal(t, int64(5*1024*1024), cfg.Exports.MaxImportBytes)
	assert.Equal(t, time.Hour, cfg.Database.ConnMaxLifetime)
	assert.Equal(t, 5*time.Second, cfg.Database.ConnectTimeout)
	assert.Equal(t, 3, cfg.Database.ConnectRetries)
}

func TestOverrides(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("GRADING_DEFAULT_WEIGHTS", "0.25, 0.25, 0.25, 0.25")
	v.Set("ANALYTICS_CACHE_TTL", "not-a-duration")
	v.Set("ALLOWED_ORIGINS", "http://a.test, ,http://b.test")
	cfg := fromViper(v)

	assert.Equal(t, [4]float64{0.25, 0.25, 0.25, 0.25}, cfg.Grading.DefaultWeights)
	assert.Equal(t, 10*time.Minute, cfg.Analytics.CacheTTL)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORS.AllowedOrigins)
}

func TestParseWeightsRejectsMalformed(t *testing.T) {
	fallback := [4]float64{1, 0, 0, 0}
	assert.Equal(t, fallback, parseWeights("0.5,0.5", fallback))
	assert.Equal(t, fallback, parseWeights("0.5,x,0,0", fallback))
	assert.Equal(t, fallback, parseWeights("2,0,0,0", fallback))
}
