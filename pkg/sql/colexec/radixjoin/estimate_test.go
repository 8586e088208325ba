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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/matrixorigin/moradix/pkg/hash"
)

func TestEstimateBucketBits(t *testing.T) {
	hs := make([]uint64, 0, 20000)
	for i := 0; i < 10000; i++ {
		v := hash.DefaultHasher.HashUint64(uint64(i)) << 1
		// every key twice
		hs = append(hs, v, v)
	}
	hs = append(hs, hash.NullHash, hash.NullHash)

	// about 10000 distinct keys, 1000 per bucket wants 4 bits
	require.Equal(t, 4, EstimateBucketBits(hs, 1000, 20))
	require.Equal(t, 2, EstimateBucketBits(hs, 1000, 2))
	require.Equal(t, 0, EstimateBucketBits(hs, 100000, 20))
	require.Equal(t, 0, EstimateBucketBits(nil, 1, 20))
}
