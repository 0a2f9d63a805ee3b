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

package daemon

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"golang.org/x/sys/unix"
)

// ErrAlreadyRunning is returned when another daemon holds the instance lock
var ErrAlreadyRunning = errors.New("daemon is already running")

// InstanceLock is an exclusive flock held for the daemon's lifetime
type InstanceLock struct {
	file *os.File
}

// LockPath returns the lock file guarding a socket path
func LockPath(socketPath string) string {
	return socketPath + ".lock"
}

// AcquireLock takes a non-blocking exclusive lock on path and writes the
// current PID into it. The lock is released when the process exits.
func AcquireLock(path string) (*InstanceLock, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file: %w", err)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, fmt.Errorf("%w (lock %s)", ErrAlreadyRunning, path)
		}
		return nil, fmt.Errorf("failed to lock %s: %w", path, err)
	}

	if err := f.Truncate(0); err == nil {
		f.WriteAt([]byte(strconv.Itoa(os.Getpid())+"\n"), 0)
	}

	return &InstanceLock{file: f}, nil
}

// Release unlocks and removes the lock file
func (l *InstanceLock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	path := l.file.Name()
	unix.Flock(int(l.file.Fd()), unix.LOCK_UN)
	err := l.file.Close()
	l.file = nil
	os.Remove(path)
	return err
}
