package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate checks configuration values with range checks and clear messages.
// Call after Load and before wiring any component.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	if err := validateOllamaHost(c.OllamaHost); err != nil {
		return err
	}

	if strings.TrimSpace(c.GenerationModel) == "" {
		return fmt.Errorf("%w: generation_model is empty", ErrInvalidModelName)
	}
	if strings.TrimSpace(c.EmbeddingModel) == "" {
		return fmt.Errorf("%w: embedding_model is empty", ErrInvalidModelName)
	}

	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("%w: %.2f (must be in [0, 2])", ErrInvalidTemperature, c.Temperature)
	}

	if c.ChunkMaxChars < 1 {
		return fmt.Errorf("%w: chunk_max_chars must be positive, got %d", ErrInvalidChunking, c.ChunkMaxChars)
	}
	if c.ChunkOverlap < 0 {
		return fmt.Errorf("%w: chunk_overlap must not be negative, got %d", ErrInvalidChunking, c.ChunkOverlap)
	}

	if c.MinSimilarity < 0 || c.MinSimilarity > 1 {
		return fmt.Errorf("%w: %.2f (must be in [0, 1])", ErrInvalidSimilarity, c.MinSimilarity)
	}

	if c.DefaultTopK < 1 || c.MaxTopK < c.DefaultTopK || c.FinalTopK < 1 || c.FinalTopK > c.MaxTopK {
		return fmt.Errorf("%w: default=%d max=%d final=%d", ErrInvalidTopK, c.DefaultTopK, c.MaxTopK, c.FinalTopK)
	}

	if c.PostgresHost == "" || c.PostgresDBName == "" || c.PostgresUser == "" {
		return fmt.Errorf("%w: host, user and db name are required", ErrInvalidPostgres)
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidPostgres, c.PostgresPort)
	}

	return nil
}

func validateOllamaHost(host string) error {
	if host == "" {
		return fmt.Errorf("%w: empty", ErrInvalidOllamaHost)
	}
	u, err := url.Parse(host)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidOllamaHost, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme must be http or https, got %q", ErrInvalidOllamaHost, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: missing host in %q", ErrInvalidOllamaHost, host)
	}
	return nil
}
