package config

import "testing"

func TestLoadDefaultsToThoroughPreset(t *testing.T) {
	t.Setenv("PIPELINE_PRESET", "")
	t.Setenv("ENSEMBLE_ENABLED", "")
	t.Setenv("USE_LLM_JUDGE", "")

	cfg := Load()
	if cfg.Preset != "thorough" {
		t.Fatalf("expected default preset thorough, got %q", cfg.Preset)
	}
	if !cfg.EnsembleEnabled || !cfg.ParallelExtraction || !cfg.SelfCorrectionEnabled {
		t.Fatalf("thorough preset should enable ensemble, parallel and self-correction: %+v", cfg)
	}
	if !cfg.ExternalValidation || !cfg.UseLLMJudge {
		t.Fatalf("thorough preset should enable external validation and LLM judge: %+v", cfg)
	}
}

func TestLoadFastPresetDisablesEnsemble(t *testing.T) {
	t.Setenv("PIPELINE_PRESET", "fast")

	cfg := Load()
	if cfg.EnsembleEnabled || cfg.SelfCorrectionEnabled || cfg.UseLLMJudge {
		t.Fatalf("fast preset should disable ensemble, self-correction and LLM judge: %+v", cfg)
	}
}

func TestLoadEnvOverridesPresetField(t *testing.T) {
	t.Setenv("PIPELINE_PRESET", "fast")
	t.Setenv("ENSEMBLE_ENABLED", "true")

	cfg := Load()
	if !cfg.EnsembleEnabled {
		t.Fatalf("env override should re-enable ensemble on fast preset")
	}
	if cfg.SelfCorrectionEnabled {
		t.Fatalf("unrelated preset fields should keep preset value")
	}
}

func TestLoadUnknownPresetFallsBackToThorough(t *testing.T) {
	t.Setenv("PIPELINE_PRESET", "turbo")

	cfg := Load()
	if cfg.Preset != "thorough" {
		t.Fatalf("expected fallback preset thorough, got %q", cfg.Preset)
	}
}

func TestLoadParsesThresholdOverrides(t *testing.T) {
	t.Setenv("CLASSIFICATION_FLOOR", "0.8")
	t.Setenv("CONFIDENCE_FLOOR", "0.9")
	t.Setenv("MAX_CORRECTION_RETRIES", "3")

	cfg := Load()
	if cfg.ClassificationFloor != 0.8 {
		t.Fatalf("classification floor = %v", cfg.ClassificationFloor)
	}
	if cfg.ConfidenceFloor != 0.9 {
		t.Fatalf("confidence floor = %v", cfg.ConfidenceFloor)
	}
	if cfg.MaxRetries != 3 {
		t.Fatalf("max retries = %d", cfg.MaxRetries)
	}
}

func TestLoadIgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("CONFIDENCE_FLOOR", "not-a-number")

	cfg := Load()
	if cfg.ConfidenceFloor != 0.65 {
		t.Fatalf("expected fallback confidence floor, got %v", cfg.ConfidenceFloor)
	}
}
