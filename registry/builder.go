package registry

import (
	"context"
	"errors"
)

// CallFunc is a function that implements the UDF's execution logic.
type CallFunc func(ctx context.Context, args []any) (any, error)

// Config holds the configuration for building a Function.
type Config struct {
	name      string
	signature Signature
	metadata  map[string]any
	callFunc  CallFunc
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		metadata: map[string]any{},
	}
}

// SetName sets the function name.
func (c *Config) SetName(name string) *Config {
	c.name = name
	return c
}

// SetSignature sets the structured signature.
func (c *Config) SetSignature(sig Signature) *Config {
	c.signature = sig
	return c
}

// SetMetadata sets the free-form metadata.
func (c *Config) SetMetadata(md map[string]any) *Config {
	c.metadata = md
	return c
}

// SetCallFunc sets the execution function.
func (c *Config) SetCallFunc(fn CallFunc) *Config {
	c.callFunc = fn
	return c
}

// udf is the internal implementation of the Function interface.
type udf struct {
	name      string
	signature Signature
	metadata  map[string]any
	callFunc  CallFunc
}

// New creates a new Function from the provided Config.
// Returns an error if required fields (name, callFunc) are missing.
func New(cfg *Config) (Function, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	if cfg.name == "" {
		return nil, errors.New("function name is required")
	}

	if cfg.callFunc == nil {
		return nil, errors.New("call function is required")
	}

	return &udf{
		name:      cfg.name,
		signature: cfg.signature,
		metadata:  cfg.metadata,
		callFunc:  cfg.callFunc,
	}, nil
}

// Name returns the function name.
func (f *udf) Name() string {
	return f.name
}

// Signature returns the structured signature.
func (f *udf) Signature() Signature {
	return f.signature
}

// Metadata returns the free-form metadata.
func (f *udf) Metadata() map[string]any {
	return f.metadata
}

// Call invokes the execution function.
func (f *udf) Call(ctx context.Context, args []any) (any, error) {
	return f.callFunc(ctx, args)
}
