// Package config provides configuration loading and validation for the voice
// assistant relay service. It handles YAML-based configuration with struct
// validation and applies the environment overrides the deployment relies on:
// PORT for the listen port and GROQ_API_KEY / OPENAI_API_KEY for the
// assistant credential.
package config
