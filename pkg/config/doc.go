// Package config defines the SDK configuration and loads it from the
// environment.
//
// Config fields carry env tags parsed by caarlos0/env; Load reads an
// optional .env file first via godotenv, so local development and CI can
// override settings without code changes. The loaded struct is validated
// once at client construction; the rest of the SDK consumes it as
// already-validated values.
package config
