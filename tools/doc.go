// Package tools declares the bridge tools, decodes and validates their
// arguments, and composes the prompts sent to the model.
package tools
