/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 */

package logx

import (
	"fmt"

	libval "github.com/go-playground/validator/v10"

	"github.com/sabouaram/ahttp/errs"
)

// Options is the serializable logging configuration, condensed from the
// teacher's multi-file stdout/file/syslog split into the single destination
// this client needs: stderr. FilePath is carried in the configuration but no
// file is opened or written from it.
type Options struct {
	Level            string `mapstructure:"level" json:"level" yaml:"level" toml:"level" validate:"omitempty,oneof=critical fatal error warning info debug Critical Fatal Error Warning Info Debug"`
	DisableColor     bool   `mapstructure:"disableColor" json:"disableColor" yaml:"disableColor" toml:"disableColor"`
	DisableTimestamp bool   `mapstructure:"disableTimestamp" json:"disableTimestamp" yaml:"disableTimestamp" toml:"disableTimestamp"`
	EnableAccessLog  bool   `mapstructure:"enableAccessLog" json:"enableAccessLog" yaml:"enableAccessLog" toml:"enableAccessLog"`
	FilePath         string `mapstructure:"filePath" json:"filePath" yaml:"filePath" toml:"filePath"`
}

// Default returns Options at InfoLevel, colored, timestamped output.
func Default() Options {
	return Options{Level: InfoLevel.String()}
}

// Validate checks struct constraints via the go-playground validator.
func (o Options) Validate() errs.Error {
	er := libval.New().Struct(o)
	if er == nil {
		return nil
	}

	err := errs.New(CodeValidation, "logx: validation failed")
	if ve, ok := er.(libval.ValidationErrors); ok {
		for _, e := range ve {
			err = err.Add(fmt.Errorf("field %q fails constraint %q", e.StructNamespace(), e.ActualTag()))
		}
	} else {
		err = err.Add(er)
	}
	return err
}
