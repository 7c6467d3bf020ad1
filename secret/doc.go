// Package secret holds credentials that must never be printed and resolves
// references to them in configuration values.
//
// Value wraps a secret string. Its String, JSON and YAML forms are redacted;
// only Reveal returns the plaintext.
//
// References use the prefix "secretref:":
//   - Full value:  secretref:env:HONEYID_AUTH_API_KEY
//   - From a file: secretref:file:/run/secrets/app_api_key
//   - Inline use:  Bearer secretref:env:TOKEN
//
// The "env" and "file" providers are registered in DefaultRegistry.
// ${VAR} placeholders are expanded before reference resolution (see
// ExpandEnvStrict).
package secret
