// Package config loads meeting configuration.
//
// A configuration file is YAML (.yaml, .yml) or TOML (.toml). Missing keys
// keep the standard meeting-day defaults of [DefaultConfig], and a few
// environment variables override the file:
//
//	GEMINI_API_KEY        gateway API key
//	MEETGRID_MODEL        Gemini model name
//	MEETGRID_CONCURRENCY  parallel gateway calls
//	MEETGRID_CACHE        cache database path ("off" disables the cache)
//	MEETGRID_TIMEZONE     IANA timezone of the meeting
package config
