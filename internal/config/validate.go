package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable. Provider API keys are
// deliberately not required here: a missing key disables that provider and
// the preflight status command reports it.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateOCR(); err != nil {
		return err
	}
	if err := c.validateSubtitles(); err != nil {
		return err
	}
	if err := c.validateMetadata(); err != nil {
		return err
	}
	if err := c.validateBatch(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		return errors.New("paths.output_dir must be set")
	}
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		return errors.New("paths.work_dir must be set")
	}
	return nil
}

func (c *Config) validateOCR() error {
	if c.OCR.FrameInterval <= 0 {
		return errors.New("ocr.frame_interval must be positive")
	}
	if c.OCR.FrameInterval > 60 {
		return errors.New("ocr.frame_interval must be 60 seconds or less")
	}
	if c.OCR.MinAlnumRatio < 0 || c.OCR.MinAlnumRatio > 1 {
		return errors.New("ocr.min_alnum_ratio must be between 0 and 1")
	}
	if c.OCR.CropBottomRatio < 0 || c.OCR.CropBottomRatio > 0.9 {
		return errors.New("ocr.crop_bottom_ratio must be between 0 and 0.9")
	}
	return nil
}

func (c *Config) validateSubtitles() error {
	switch c.Subtitles.Format {
	case "srt":
		return nil
	default:
		return fmt.Errorf("subtitles.format %q is not supported (use srt)", c.Subtitles.Format)
	}
}

func (c *Config) validateMetadata() error {
	if c.Metadata.ProviderTimeoutSeconds <= 0 {
		return errors.New("metadata.provider_timeout_seconds must be positive")
	}
	if c.Metadata.CacheTTLDays < 0 {
		return errors.New("metadata.cache_ttl_days must not be negative")
	}
	return nil
}

func (c *Config) validateBatch() error {
	if c.Batch.Workers < 0 {
		return errors.New("batch.workers must not be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format %q is not supported (use console or json)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error", "fatal":
	default:
		return fmt.Errorf("logging.level %q is not supported", c.Logging.Level)
	}
	return nil
}
