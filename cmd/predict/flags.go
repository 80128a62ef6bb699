package main

import (
	"flag"
	"strconv"
)

// numberFlag is a numeric flag that stays nil unless given, so a missing value
// reaches the validator as missing instead of as zero.
type numberFlag struct {
	value *float64
}

func (f *numberFlag) String() string {
	if f == nil || f.value == nil {
		return ""
	}
	return strconv.FormatFloat(*f.value, 'g', -1, 64)
}

func (f *numberFlag) Set(s string) error {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	f.value = &v
	return nil
}

func newNumberFlag(fs *flag.FlagSet, name, usage string) *numberFlag {
	f := &numberFlag{}
	fs.Var(f, name, usage)
	return f
}
