// Package seoapi talks to the rank tracking provider and manages the pool
// of API credentials. Every lookup costs units against a key's daily budget,
// so callers check a key out through KeyService before hitting the wire.
package seoapi
