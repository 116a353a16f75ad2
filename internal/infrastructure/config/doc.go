// Package config loads and validates gateway configuration.
//
// Configuration comes from three layers, later layers overriding earlier:
//
//  1. Hardcoded defaults (topic names match the deployed device firmware)
//  2. YAML file (configs/config.yaml by default)
//  3. Environment variables (GREENHOUSE_SECTION_KEY)
//
// Secrets (broker password, InfluxDB token, webhook URL) are expected to
// arrive via environment variables rather than the YAML file.
//
// Validation is eager and fatal: the gateway refuses to start with a
// missing broker host, out-of-range port, or absent credentials, so a
// misconfigured deployment fails at boot instead of at first publish.
package config
