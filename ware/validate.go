// Copyright 2025 The Rivaas Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ware

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("lowerfirst", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return s != "" && s[0] >= 'a' && s[0] <= 'z'
	})
	return v
}

// ErrIllegalName is returned for ware names that are empty, shorter than three
// characters or not starting with a lowercase letter.
var ErrIllegalName = errors.New("illegal name for middleware")

// ValidateName checks a ware name.
func ValidateName(name string) error {
	return checkConfig(Config{Name: name})
}

func checkConfig(cfg Config) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, "must have a value")
		case "min":
			msgs = append(msgs, "must be at least "+fe.Param()+" chars")
		case "lowerfirst":
			msgs = append(msgs, "must start with lowercase letter")
		default:
			msgs = append(msgs, fe.Error())
		}
	}
	return fmt.Errorf("%w %q: %s", ErrIllegalName, cfg.Name, strings.Join(msgs, ", "))
}
