// Package llmfactory creates the completion models from configuration,
// and selects the model for each tool.
package llmfactory
