//go:build tools

package main

// Pin the swag CLI used to regenerate the OpenAPI docs.
import (
	_ "github.com/swaggo/swag"
)
