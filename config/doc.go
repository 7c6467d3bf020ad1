// Package config loads App configuration from a YAML file, environment
// overrides and secret references.
//
// Load applies, in order: Default values, the YAML file, HONEYID_*
// environment variables, then secret resolution of the API keys (values such
// as "secretref:file:app.key" or "${HONEYID_KEY}"). The result is validated
// before it is returned.
package config
