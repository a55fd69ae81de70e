// Package config loads the service configuration.
//
// Values come from three layers, later ones winning:
//
//	1. Default()
//	2. a YAML file (SURVEY_CONFIG, or config.yaml / configs/config.yaml)
//	3. SURVEY_* environment variables
//
// Variable names follow the struct nesting, for example:
//
//	SURVEY_SERVER_PORT=8080
//	SURVEY_SURVEY_SESSION_TTL=2h
//	SURVEY_SURVEY_INSTRUMENT_FILE=instruments/emba-36.yaml
//	SURVEY_SECURITY_RATE_LIMIT_RPS=20
//	SURVEY_LOGGING_LEVEL=debug
package config
