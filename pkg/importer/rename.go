// Zaparoo Library
// Copyright (c) 2026 The Zaparoo Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Zaparoo Library.
//
// Zaparoo Library is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Zaparoo Library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Zaparoo Library.  If not, see <http://www.gnu.org/licenses/>.

package importer

import (
	"errors"
	"fmt"
	"os"
	"syscall"

	"github.com/spf13/afero"
)

// CrossDeviceError means the staging directory and its destination ended
// up on different filesystems, so the publish step cannot be atomic.
type CrossDeviceError struct {
	Err error
	Src string
	Dst string
}

func (e *CrossDeviceError) Error() string {
	return fmt.Sprintf("cannot move %q to %q across filesystems: %v", e.Src, e.Dst, e.Err)
}

func (e *CrossDeviceError) Unwrap() error {
	return e.Err
}

func isEXDEV(err error) bool {
	var le *os.LinkError
	if errors.As(err, &le) {
		return errors.Is(le.Err, syscall.EXDEV)
	}
	return errors.Is(err, syscall.EXDEV)
}

// publish moves a finished staging directory to its final name.
func publish(fs afero.Fs, staging, dest string) error {
	if err := fs.Rename(staging, dest); err != nil {
		if isEXDEV(err) {
			return &CrossDeviceError{Src: staging, Dst: dest, Err: err}
		}
		return fmt.Errorf("failed to publish %s: %w", dest, err)
	}
	return nil
}
