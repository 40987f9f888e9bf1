// Package llms provides a provider-neutral interface for text completion models.
//
// Each subpackage wraps the official SDK of one provider and implements Model.
package llms
