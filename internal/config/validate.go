package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

var logLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	// Validate server configuration
	if c.Legalese.Server.Addr == "" {
		return errors.New("server address cannot be empty")
	}

	// Validate address format and port
	if _, err := net.ResolveTCPAddr("tcp", c.Legalese.Server.Addr); err != nil {
		return fmt.Errorf("invalid server address: %v", err)
	}

	if c.Legalese.Server.Timeout < 0 {
		return errors.New("server timeout cannot be negative")
	}

	if err := c.Legalese.AI.validate(); err != nil {
		return err
	}

	if c.Legalese.Store.Path == "" {
		return errors.New("store path cannot be empty")
	}

	if c.Legalese.Audit.Enabled && c.Legalese.Audit.Path == "" {
		return errors.New("audit path cannot be empty when audit is enabled")
	}

	if c.Legalese.Log.Level != "" && !logLevels[strings.ToLower(c.Legalese.Log.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Legalese.Log.Level)
	}

	return nil
}

func (ai AIConfig) validate() error {
	switch strings.ToLower(ai.Provider) {
	case "huggingface":
		if ai.Model == "" {
			return errors.New("ai model cannot be empty for the huggingface provider")
		}
	case "tgi":
		if ai.Endpoint == "" {
			return errors.New("ai endpoint cannot be empty for the tgi provider")
		}
	default:
		return fmt.Errorf("unknown ai provider: %s", ai.Provider)
	}

	if ai.Endpoint != "" {
		u, err := url.Parse(ai.Endpoint)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid ai endpoint: %s", ai.Endpoint)
		}
	}

	if ai.RewriteTimeout <= 0 {
		return errors.New("ai rewrite_timeout must be positive")
	}
	if ai.ChatTimeout <= 0 {
		return errors.New("ai chat_timeout must be positive")
	}
	if ai.RewriteMaxTokens <= 0 {
		return errors.New("ai rewrite_max_tokens must be positive")
	}
	if ai.ChatMaxTokens <= 0 {
		return errors.New("ai chat_max_tokens must be positive")
	}
	if ai.ChatContextChars <= 0 {
		return errors.New("ai chat_context_chars must be positive")
	}
	return nil
}
