package crawler

import (
	"errors"
	"fmt"
)

// Config holds the settings for a crawl session. It is decoupled from Viper so
// the engine can be configured directly in tests.
type Config struct {
	// Concurrency bounds in-flight fetches. 1 gives a strictly sequential
	// depth-first walk.
	Concurrency     int
	ExcludePatterns []string
	CheckRedirects  bool
	CheckOffDomain  bool
	// MaxPages caps distinct same-site pages fetched; 0 means unbounded.
	MaxPages int
}

// DefaultConfig returns a sequential crawl with the default exclusions, the
// redirect post-pass and off-domain checks enabled.
func DefaultConfig() Config {
	return Config{
		Concurrency:     1,
		ExcludePatterns: DefaultExcludePatterns(),
		CheckRedirects:  true,
		CheckOffDomain:  true,
	}
}

// Validate checks for obviously bad configuration values.
func (c Config) Validate() error {
	if c.Concurrency < 1 {
		return errors.New("crawler concurrency must be >= 1")
	}
	if c.MaxPages < 0 {
		return errors.New("crawler max pages must be >= 0")
	}
	if _, err := NewLinkFilter(c.ExcludePatterns); err != nil {
		return fmt.Errorf("crawler exclude patterns: %w", err)
	}
	return nil
}
