// Copyright 2025 UMH Systems GmbH
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

// Package safejson encodes with goccy/go-json and falls back to encoding/json
// when goccy panics on an unusual type.
package safejson

import (
	jsonstd "encoding/json"
	"errors"
	"reflect"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

var errNotPointer = errors.New("decoded must be a non-nil pointer")

func Marshal(val any) (encoded []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			zap.S().Warnf("goccy failed to encode, attempting to use stdlib, error: %v", r)

			encoded, err = jsonstd.Marshal(val)
		}
	}()

	return json.Marshal(val)
}

func Unmarshal(data []byte, decoded any) (err error) {
	v := reflect.ValueOf(decoded)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return errNotPointer
	}

	defer func() {
		if r := recover(); r != nil {
			zap.S().Warnf("goccy failed to decode, attempting to use stdlib, error: %v", r)

			err = jsonstd.Unmarshal(data, decoded)
		}
	}()

	return json.Unmarshal(data, decoded)
}
