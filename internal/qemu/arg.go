// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package qemu

import (
	"fmt"
	"slices"
	"strings"
)

// Argument is a QEMU argument with or without value.
//
// Its name is either unique in an argument list or may be repeated with
// different values.
type Argument struct {
	name       string
	value      string
	repeatable bool
}

// UniqueArg returns an [Argument] that may be given only once.
func UniqueArg(name string, value ...string) Argument {
	return Argument{
		name:  name,
		value: strings.Join(value, ","),
	}
}

// RepeatableArg returns an [Argument] that may be given multiple times with
// different values.
func RepeatableArg(name string, value ...string) Argument {
	return Argument{
		name:       name,
		value:      strings.Join(value, ","),
		repeatable: true,
	}
}

// ParseArgs parses QEMU arguments as given on the command line. Each name must
// start with a dash and is followed by its value unless the next element is
// another name. All arguments are treated as repeatable, as their semantics
// are unknown.
func ParseArgs(args []string) ([]Argument, error) {
	parsed := make([]Argument, 0, len(args))

	for idx := 0; idx < len(args); idx++ {
		name, found := strings.CutPrefix(args[idx], "-")
		if !found || name == "" {
			return nil, &ArgumentError{"expected name, got: " + args[idx]}
		}

		arg := RepeatableArg(name)

		if next := idx + 1; next < len(args) && !strings.HasPrefix(args[next], "-") {
			arg.value = args[next]
			idx = next
		}

		parsed = append(parsed, arg)
	}

	return parsed, nil
}

// String implements [fmt.Stringer].
func (a Argument) String() string {
	if a.value == "" {
		return "-" + a.name
	}

	return "-" + a.name + " " + a.value
}

// Name returns the name of the [Argument].
func (a Argument) Name() string {
	return a.name
}

// Value returns the value of the [Argument].
func (a Argument) Value() string {
	return a.value
}

// collides returns true if both arguments can not be used together. Unique
// arguments collide by name, repeatable ones only if the values are equal as
// well.
func (a Argument) collides(other Argument) bool {
	if a.name != other.name {
		return false
	}

	if a.repeatable && other.repeatable {
		return a.value == other.value
	}

	return true
}

// BuildArgumentStrings compiles the [Argument]s into a slice of strings that
// can be used with [exec.Command].
func BuildArgumentStrings(args []Argument) ([]string, error) {
	strs := make([]string, 0, 2*len(args))

	for idx, arg := range args {
		if i := slices.IndexFunc(args[:idx], arg.collides); i != -1 {
			return nil, fmt.Errorf("%w: %s, %s",
				ErrArgumentCollision, args[i], arg)
		}

		strs = append(strs, "-"+arg.name)
		if arg.value != "" {
			strs = append(strs, arg.value)
		}
	}

	return strs, nil
}
