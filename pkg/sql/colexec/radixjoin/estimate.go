// Copyright 2023 Matrix Origin
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package radixjoin

import (
	"encoding/binary"

	"github.com/axiomhq/hyperloglog"

	"github.com/matrixorigin/moradix/pkg/hash"
)

// EstimateBucketBits picks the smallest radix width that leaves about
// targetBucketRows distinct build keys per bucket, capped at maxBits.
// Duplicates of a key always share a bucket, so distinct keys rather than
// rows drive the estimate.
func EstimateBucketBits(hashes []uint64, targetBucketRows, maxBits int) int {
	if targetBucketRows < 1 {
		targetBucketRows = 1
	}
	sk := hyperloglog.New14()
	var buf [8]byte
	for _, h := range hashes {
		if h&hash.NullHash == hash.NullHash {
			continue
		}
		binary.LittleEndian.PutUint64(buf[:], h)
		sk.Insert(buf[:])
	}
	ndv := sk.Estimate()
	bits := 0
	for bits < maxBits && ndv>>bits > uint64(targetBucketRows) {
		bits++
	}
	return bits
}
