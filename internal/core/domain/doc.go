// Package domain contains the core business entities and errors for Recall.
// Types here are pure data with no knowledge of storage or providers.
package domain
