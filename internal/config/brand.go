package config

import "relaybot/internal/caption"

// CaptionBrand merges the configured overrides onto the default brand.
func (c *Config) CaptionBrand() caption.Brand {
	b := caption.DefaultBrand()
	if c.Brand.Header != "" {
		b.Header = c.Brand.Header
	}
	if c.Brand.Tag != "" {
		b.Tag = c.Brand.Tag
	}
	if c.Brand.Connector != "" {
		b.Connector = c.Brand.Connector
	}
	if c.Brand.Footer != "" {
		b.Footer = c.Brand.Footer
	}
	return b
}
