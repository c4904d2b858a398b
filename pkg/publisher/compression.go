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

package publisher

import (
	"sync"

	"github.com/klauspost/compress/zstd"
)

const (
	encodingIdentity = "identity"
	encodingZstd     = "zstd"
)

var (
	encoderPool = sync.Pool{
		New: func() interface{} {
			encoder, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))

			return encoder
		},
	}

	decoderPool = sync.Pool{
		New: func() interface{} {
			decoder, _ := zstd.NewReader(nil)

			return decoder
		},
	}
)

// encodePayload applies the configured compression and returns the content
// encoding to advertise.
func encodePayload(compression string, payload []byte) ([]byte, string, error) {
	if compression != CompressionZstd {
		return payload, encodingIdentity, nil
	}

	encoder, ok := encoderPool.Get().(*zstd.Encoder)
	if !ok || encoder == nil {
		var err error

		encoder, err = zstd.NewWriter(nil)
		if err != nil {
			return nil, "", err
		}
	}
	defer encoderPool.Put(encoder)

	return encoder.EncodeAll(payload, make([]byte, 0, len(payload)/4)), encodingZstd, nil
}

// decodePayload reverses encodePayload.
func decodePayload(encoding string, payload []byte) ([]byte, error) {
	if encoding != encodingZstd {
		return payload, nil
	}

	decoder, ok := decoderPool.Get().(*zstd.Decoder)
	if !ok || decoder == nil {
		var err error

		decoder, err = zstd.NewReader(nil)
		if err != nil {
			return nil, err
		}
	}
	defer decoderPool.Put(decoder)

	return decoder.DecodeAll(payload, nil)
}
