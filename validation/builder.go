// Copyright (C) 2025 Mono Technologies Inc.
//
// This program is free software; you can redistribute it and/or
// modify it under the terms of the GNU General Public License
// as published by the Free Software Foundation; version 2.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.

package validation

import (
	"errors"
	"fmt"
)

// ErrorCollector accumulates validation errors so a config check can report
// every problem at once instead of stopping at the first.
type ErrorCollector struct {
	errs []error
	ctx  string // Optional context prefix (e.g., "wled.json")
}

// NewCollector creates a new error collector.
func NewCollector() *ErrorCollector {
	return &ErrorCollector{}
}

// WithContext sets a prefix prepended to all subsequently collected errors.
func (ec *ErrorCollector) WithContext(ctx string) *ErrorCollector {
	ec.ctx = ctx
	return ec
}

// Check collects err if it is non-nil.
func (ec *ErrorCollector) Check(err error) {
	if err == nil {
		return
	}
	if ec.ctx != "" {
		err = fmt.Errorf("%s: %w", ec.ctx, err)
	}
	ec.errs = append(ec.errs, err)
}

// CheckMsg collects err, if non-nil, wrapped with msg between the context
// prefix and the original error.
func (ec *ErrorCollector) CheckMsg(err error, msg string) {
	if err == nil {
		return
	}
	if ec.ctx != "" {
		ec.errs = append(ec.errs, fmt.Errorf("%s: %s: %w", ec.ctx, msg, err))
		return
	}
	ec.errs = append(ec.errs, fmt.Errorf("%s: %w", msg, err))
}

// Len returns how many errors have been collected.
func (ec *ErrorCollector) Len() int {
	return len(ec.errs)
}

// Error returns all accumulated errors joined together, or nil.
func (ec *ErrorCollector) Error() error {
	return errors.Join(ec.errs...)
}
