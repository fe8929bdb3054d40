//go:build !plugindyn || !linux

package plugin

import "errors"

// ErrDynamicUnsupported is returned by builds without the plugindyn tag.
var ErrDynamicUnsupported = errors.New("dynamic plugin loading requires linux and -tags=plugindyn")

// LoadDynamicPlugins always fails in this build.
func LoadDynamicPlugins(dir string) error {
	return ErrDynamicUnsupported
}
